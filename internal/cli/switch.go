package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/deployworks/deployctl/pkg/target"
)

func newSwitchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "switch <target> [option]",
		Short: "Show or change the selected option of a switch target",
		Long: `Show or change the selected option of a switch target. The selection
is persisted in the state backend and survives reloads and restarts.

Without an option argument, the current selection is printed; in an
interactive terminal you are prompted to pick one instead.

Examples:
  deployctl switch environment
  deployctl switch environment production`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}

			matches, err := target.TargetsByName(args[:1], app.ws.Snapshot().Targets)
			if err != nil {
				return err
			}
			sw := matches[0]
			if !sw.IsSwitch() {
				return fmt.Errorf("target %q is not a switch", sw.Name)
			}
			if len(sw.SwitchOptions) == 0 {
				return fmt.Errorf("switch %q has no options", sw.Name)
			}

			options, err := app.switches.EligibleOptions(sw)
			if err != nil {
				return err
			}
			if len(options) == 0 {
				return fmt.Errorf("switch %q has no options eligible in this context", sw.Name)
			}

			if len(args) == 2 {
				option := findOption(options, args[1])
				if option == nil {
					return fmt.Errorf("switch %q has no eligible option %q", sw.Name, args[1])
				}
				return changeOption(app, cmd, sw, option)
			}

			current, err := app.switches.SelectedOption(cmd.Context(), sw)
			if err != nil {
				return err
			}

			if !term.IsTerminal(int(os.Stdin.Fd())) {
				if current == nil {
					fmt.Println("<none>")
					return nil
				}
				fmt.Println(current.Label())
				return nil
			}

			option, err := promptOption(sw.Name, options, current)
			if err != nil || option == nil {
				return err
			}
			return changeOption(app, cmd, sw, option)
		},
	}

	return cmd
}

func changeOption(app *app, cmd *cobra.Command, sw *target.Target, option *target.SwitchOption) error {
	if err := app.switches.ChangeOption(cmd.Context(), sw, option); err != nil {
		return err
	}
	fmt.Printf("Switch %q now points at %q.\n", sw.Name, option.Label())
	return nil
}

func findOption(options []*target.SwitchOption, name string) *target.SwitchOption {
	want := target.NormalizeName(name)
	for _, option := range options {
		if target.NormalizeName(option.Name) == want {
			return option
		}
	}
	return nil
}

// promptOption asks the user to pick from the eligible options. A single
// option is selected without prompting.
func promptOption(switchName string, options []*target.SwitchOption, current *target.SwitchOption) (*target.SwitchOption, error) {
	if len(options) == 1 {
		return options[0], nil
	}

	fmt.Printf("Options for switch %q:\n", switchName)
	for i, option := range options {
		marker := " "
		if current != nil && option.ID == current.ID {
			marker = "*"
		}
		fmt.Printf("  %s %d) %s\n", marker, i+1, option.Label())
	}
	fmt.Print("Select an option (empty to keep current): ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, nil
	}

	index, err := strconv.Atoi(answer)
	if err != nil || index < 1 || index > len(options) {
		return nil, fmt.Errorf("invalid selection %q", answer)
	}
	return options[index-1], nil
}
