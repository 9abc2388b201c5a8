// Package cli implements the deployctl CLI commands.
package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	// Import state backends to register them via init()
	_ "github.com/deployworks/deployctl/pkg/state/backend/azurerm"
	_ "github.com/deployworks/deployctl/pkg/state/backend/gcs"
	_ "github.com/deployworks/deployctl/pkg/state/backend/local"
	_ "github.com/deployworks/deployctl/pkg/state/backend/s3"

	// Import plugins to register them via init()
	_ "github.com/deployworks/deployctl/pkg/plugin/http"
	_ "github.com/deployworks/deployctl/pkg/plugin/local"
	_ "github.com/deployworks/deployctl/pkg/plugin/s3"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "deployctl",
	Short: "Deploy workspace files to any target",
	Long: `deployctl synchronizes workspace files with remote targets.

Targets, packages, and values are declared in a settings file discovered
from the workspace root upward (.deployctl.json or .deployctl/settings.json),
optionally composed from local overrides and imported fragments.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().String("workspace", ".", "Workspace root directory")
	rootCmd.PersistentFlags().String("section", "", "Settings section to load (default \"deploy\")")
	rootCmd.PersistentFlags().String("backend", "local", "Selection state backend type (local, s3, gcs, azurerm)")
	rootCmd.PersistentFlags().StringArray("backend-config", nil, "Backend configuration (key=value)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	// Bind to viper
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	viper.SetEnvPrefix("DEPLOYCTL")
	viper.AutomaticEnv()

	// Optional user-level config file
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".deployctl"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		_ = viper.ReadInConfig()
	}

	// Add subcommands
	rootCmd.AddCommand(newDeployCmd())
	rootCmd.AddCommand(newPullCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newTargetsCmd())
	rootCmd.AddCommand(newSwitchCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newVersionCmd())
}
