package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deployworks/deployctl/pkg/dispatch"
)

func newDeleteCmd() *cobra.Command {
	var (
		targets     []string
		packageName string
		autoApprove bool
	)

	cmd := &cobra.Command{
		Use:   "delete [file...]",
		Short: "Delete files on targets",
		Long: `Delete files on one or more targets. Local workspace files are
never touched.

Examples:
  deployctl delete old/page.html --target staging
  deployctl delete --package assets --target cdn --auto-approve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}

			files, err := app.resolveFiles(args, packageName)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no files to delete")
			}

			if !autoApprove {
				fmt.Printf("About to delete %d file(s) on the selected targets. Continue? [y/N]: ", len(files))
				reader := bufio.NewReader(os.Stdin)
				answer, _ := reader.ReadString('\n')
				if answer = strings.ToLower(strings.TrimSpace(answer)); answer != "y" && answer != "yes" {
					fmt.Println("Aborted.")
					return nil
				}
			}

			return app.runOperation(cmd.Context(), dispatch.OpDelete, files, targets)
		},
	}

	cmd.Flags().StringArrayVarP(&targets, "target", "t", nil, "Target name (repeatable)")
	cmd.Flags().StringVarP(&packageName, "package", "p", "", "Delete the files of a configured package")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Skip the confirmation prompt")

	return cmd
}
