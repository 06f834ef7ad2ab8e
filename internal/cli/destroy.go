package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowstate-io/flowstate/internal/engine"
)

var destroyAutoApprove bool

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Delete all managed resources",
	Long: `Deletes every resource tracked in state, in reverse dependency
order, and removes it from state as it goes.`,
	Args: cobra.NoArgs,
	RunE: runDestroy,
}

func init() {
	destroyCmd.Flags().BoolVar(&destroyAutoApprove, "auto-approve", false, "Skip interactive approval before destroying")
}

func runDestroy(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	plan, err := app.eng.Plan(cmd.Context(), nil, engine.PlanOptions{Destroy: true, Refresh: true})
	if err != nil {
		return err
	}

	renderPlan(plan)
	if !plan.HasChanges() {
		return nil
	}

	if !destroyAutoApprove {
		if !confirm("Do you really want to destroy all resources?") {
			fmt.Println("Destroy cancelled.")
			return nil
		}
	}

	fmt.Println()
	result, err := app.eng.Apply(cmd.Context(), plan, progressCallback)
	if err != nil {
		reportPartial(err)
		return err
	}

	renderApplySummary(result)
	return nil
}
