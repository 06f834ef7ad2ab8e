package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowstate-io/flowstate/internal/config"
	"github.com/flowstate-io/flowstate/internal/ir"
	"github.com/flowstate-io/flowstate/internal/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect the state file",
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked resource addresses",
	Args:  cobra.NoArgs,
	RunE:  runStateList,
}

var stateShowCmd = &cobra.Command{
	Use:   "show <address>",
	Short: "Show the recorded attributes of one resource",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateShow,
}

func init() {
	stateCmd.AddCommand(stateListCmd)
	stateCmd.AddCommand(stateShowCmd)
}

func loadStateFile() (*ir.State, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return state.NewStore(cfg.StatePath, cfg.Project).Load()
}

func runStateList(cmd *cobra.Command, args []string) error {
	st, err := loadStateFile()
	if err != nil {
		return err
	}
	for _, addr := range st.Addresses() {
		fmt.Println(addr)
	}
	return nil
}

func runStateShow(cmd *cobra.Command, args []string) error {
	st, err := loadStateFile()
	if err != nil {
		return err
	}

	inst, ok := st.Resources[args[0]]
	if !ok {
		return fmt.Errorf("no resource %s in state", args[0])
	}

	data, err := json.MarshalIndent(inst, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render resource: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
