package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowstate-io/flowstate/internal/engine"
	"github.com/flowstate-io/flowstate/internal/ir"
	"github.com/flowstate-io/flowstate/internal/state"
)

var applyAutoApprove bool

var applyCmd = &cobra.Command{
	Use:   "apply [planfile]",
	Short: "Apply a configuration or a saved plan",
	Long: `Creates, updates, and deletes resources to match the configuration.

With no arguments, a fresh plan is computed and applied. With a saved
plan file, the plan is applied only if the state has not changed since
the plan was computed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&applyAutoApprove, "auto-approve", false, "Skip interactive approval of plan before applying")
}

func runApply(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	var plan *ir.Plan
	if len(args) == 1 {
		plan, err = state.ReadPlanFile(args[0])
		if err != nil {
			return err
		}
	} else {
		plan, err = app.eng.Plan(cmd.Context(), app.cfg.Resources(), engine.PlanOptions{Refresh: true})
		if err != nil {
			return err
		}
	}

	renderPlan(plan)
	if !plan.HasChanges() {
		return nil
	}

	if !applyAutoApprove {
		if !confirm("Do you want to perform these actions?") {
			fmt.Println("Apply cancelled.")
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

// progressCallback prints one line per change lifecycle event.
func progressCallback(change *ir.ResourceChange, phase engine.Phase) {
	c := actionColor(change.Action)
	switch phase {
	case engine.PhaseStart:
		c.Printf("%s: %s...\n", change.Address, applyVerb(change.Action))
	case engine.PhaseDone:
		c.Printf("%s: done\n", change.Address)
	case engine.PhaseFailed:
		deleteColor.Printf("%s: failed\n", change.Address)
	}
}

func applyVerb(a ir.Action) string {
	switch a {
	case ir.ActionCreate:
		return "creating"
	case ir.ActionUpdate:
		return "updating"
	case ir.ActionDelete:
		return "deleting"
	default:
		return string(a)
	}
}
