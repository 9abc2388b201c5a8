package cli

import (
	"github.com/spf13/cobra"

	"github.com/deployworks/deployctl/pkg/dispatch"
)

func newPullCmd() *cobra.Command {
	var (
		targets     []string
		packageName string
	)

	cmd := &cobra.Command{
		Use:   "pull [file...]",
		Short: "Download files from targets into the workspace",
		Long: `Download files from one or more targets into the workspace,
overwriting the local copies.

Examples:
  deployctl pull src/config.json --target production
  deployctl pull --package assets --target cdn`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}

			files, err := app.resolveFiles(args, packageName)
			if err != nil {
				return err
			}
			return app.runOperation(cmd.Context(), dispatch.OpPull, files, targets)
		},
	}

	cmd.Flags().StringArrayVarP(&targets, "target", "t", nil, "Target name (repeatable)")
	cmd.Flags().StringVarP(&packageName, "package", "p", "", "Pull the files of a configured package")

	return cmd
}
