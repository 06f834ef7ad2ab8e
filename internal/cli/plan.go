package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowstate-io/flowstate/internal/engine"
	"github.com/flowstate-io/flowstate/internal/state"
)

var (
	planOutFile string
	planRefresh bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate an execution plan",
	Long: `Generates an execution plan showing what actions flowstate will take
to reach the desired state defined in the configuration.

The plan shows:
  - Resources to be created
  - Resources to be updated (with diff)
  - Resources to be deleted`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planOutFile, "out", "o", "", "Write plan to file for later apply")
	planCmd.Flags().BoolVar(&planRefresh, "refresh", true, "Refresh state from the platform before diffing")
}

func runPlan(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	plan, err := app.eng.Plan(cmd.Context(), app.cfg.Resources(), engine.PlanOptions{
		Refresh: planRefresh,
	})
	if err != nil {
		return err
	}

	renderPlan(plan)

	if planOutFile != "" {
		if err := state.WritePlanFile(planOutFile, plan); err != nil {
			return err
		}
		fmt.Printf("\nPlan saved to %s. Apply it with: flowstate apply %s\n", planOutFile, planOutFile)
	}
	return nil
}
