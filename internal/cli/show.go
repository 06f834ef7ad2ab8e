package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowstate-io/flowstate/internal/config"
	"github.com/flowstate-io/flowstate/internal/state"
)

var showCmd = &cobra.Command{
	Use:   "show [planfile]",
	Short: "Show the current state or a saved plan",
	Long: `With no arguments, prints the current state. With a saved plan file,
renders the plan it contains.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		plan, err := state.ReadPlanFile(args[0])
		if err != nil {
			return err
		}
		renderPlan(plan)
		return nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	store := state.NewStore(cfg.StatePath, cfg.Project)
	st, err := store.Load()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render state: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
