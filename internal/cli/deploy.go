package cli

import (
	"github.com/spf13/cobra"

	"github.com/deployworks/deployctl/pkg/dispatch"
)

func newDeployCmd() *cobra.Command {
	var (
		targets     []string
		packageName string
	)

	cmd := &cobra.Command{
		Use:   "deploy [file...]",
		Short: "Upload workspace files to targets",
		Long: `Upload files from the workspace to one or more targets.

Files can be given as arguments, selected through a package with --package,
or omitted to deploy the whole workspace. Targets default to every
configured target; use --target to restrict by name (case-insensitive).

Examples:
  deployctl deploy
  deployctl deploy src/index.html --target staging
  deployctl deploy --package assets --target staging --target cdn`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}

			files, err := app.resolveFiles(args, packageName)
			if err != nil {
				return err
			}
			return app.runOperation(cmd.Context(), dispatch.OpDeploy, files, targets)
		},
	}

	cmd.Flags().StringArrayVarP(&targets, "target", "t", nil, "Target name (repeatable)")
	cmd.Flags().StringVarP(&packageName, "package", "p", "", "Deploy the files of a configured package")

	return cmd
}
