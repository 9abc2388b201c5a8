package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deployworks/deployctl/pkg/values"
)

func newTargetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "targets",
		Aliases: []string{"target", "ls"},
		Short:   "List configured targets",
		Long: `List the targets of the current workspace, including the selected
option of each switch target.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}

			snap := app.ws.Snapshot()
			if len(snap.Targets) == 0 {
				fmt.Println("No targets configured.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tDESCRIPTION\tSELECTION")
			for _, t := range snap.Targets {
				selection := ""
				if t.IsSwitch() {
					option, err := app.switches.SelectedOption(cmd.Context(), t)
					switch {
					case err != nil:
						selection = fmt.Sprintf("error: %v", err)
					case option != nil:
						selection = option.Label()
					default:
						selection = "<none>"
					}
				}
				desc, err := app.ws.ResolveValue(t.Description, values.ResolveOptions{})
				if err != nil {
					desc = t.Description
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, t.Type, desc, selection)
			}
			return w.Flush()
		},
	}

	return cmd
}
