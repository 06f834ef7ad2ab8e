package cli

import (
	"github.com/spf13/cobra"

	"github.com/flowstate-io/flowstate/internal/engine"
	"github.com/flowstate-io/flowstate/internal/logging"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:     "flowstate",
	Short:   "Declarative provisioning for data platform projects",
	Version: engine.Version,
	Long: `Flowstate manages zones, datasets, recipes, and scenarios for a
platform project from a declarative configuration file.

It computes an ordered plan of creates, updates, and deletes against a
local state file, and applies it through the platform API one change at
a time.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "flowstate.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(versionCmd)
}
