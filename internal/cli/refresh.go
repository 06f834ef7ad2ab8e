package cli

import (
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reconcile state with the platform",
	Long: `Reads every tracked resource from the platform and updates state to
match. Resources deleted out of band are dropped from state; changed
attributes are recorded. The configuration is not consulted.`,
	Args: cobra.NoArgs,
	RunE: runRefresh,
}

func runRefresh(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	changes, err := app.eng.Refresh(cmd.Context())
	if err != nil {
		return err
	}

	renderDrift(changes)
	return nil
}
