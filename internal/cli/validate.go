package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowstate-io/flowstate/internal/config"
	"github.com/flowstate-io/flowstate/internal/engine"
	"github.com/flowstate-io/flowstate/internal/provider"
	"github.com/flowstate-io/flowstate/internal/state"
	"github.com/flowstate-io/flowstate/providers/platform"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for errors",
	Long: `Parses the configuration, validates every resource, and checks the
dependency graph for unresolved references and cycles. Nothing is read
from or written to the platform, and no API key is required.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Planning without refresh never calls a handler, so the client can
	// be unauthenticated here.
	client := platform.NewClient(platform.Options{Host: cfg.Host, Project: cfg.Project})
	defer client.Close()

	registry := provider.NewRegistry()
	if err := platform.Register(registry, client); err != nil {
		return err
	}

	store := state.NewStore(cfg.StatePath, cfg.Project)
	eng := engine.New(store, registry, cfg.Project)
	if _, err := eng.Plan(cmd.Context(), cfg.Resources(), engine.PlanOptions{Refresh: false}); err != nil {
		return err
	}

	fmt.Printf("Configuration is valid: %d resource(s) in project %s.\n",
		len(cfg.Resources()), cfg.Project)
	return nil
}
