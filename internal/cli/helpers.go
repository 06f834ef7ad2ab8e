package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/flowstate-io/flowstate/internal/config"
	"github.com/flowstate-io/flowstate/internal/engine"
	"github.com/flowstate-io/flowstate/internal/ir"
	"github.com/flowstate-io/flowstate/internal/provider"
	"github.com/flowstate-io/flowstate/internal/state"
	"github.com/flowstate-io/flowstate/providers/platform"
)

// app bundles the wired components a command needs. Close releases the
// API client.
type app struct {
	cfg    *config.Config
	store  *state.Store
	client *platform.Client
	eng    *engine.Engine
}

func (a *app) Close() {
	if a.client != nil {
		_ = a.client.Close()
	}
}

// buildApp loads the configuration and wires the client, registry,
// store, and engine together.
func buildApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	apiKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}

	client := platform.NewClient(platform.Options{
		Host:    cfg.Host,
		APIKey:  apiKey,
		Project: cfg.Project,
	})

	registry := provider.NewRegistry()
	if err := platform.Register(registry, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	store := state.NewStore(cfg.StatePath, cfg.Project)
	return &app{
		cfg:    cfg,
		store:  store,
		client: client,
		eng:    engine.New(store, registry, cfg.Project),
	}, nil
}

// confirm prompts for interactive approval.
func confirm(prompt string) bool {
	fmt.Printf("\n%s (yes/no): ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "yes" || answer == "y"
}

// reportPartial prints what an aborted apply managed to finish.
func reportPartial(err error) {
	var applyErr *engine.ApplyError
	var canceled *engine.CanceledError

	switch {
	case errors.As(err, &applyErr):
		if applyErr.Result != nil && len(applyErr.Result.Applied) > 0 {
			fmt.Printf("\n%d change(s) were applied before the failure; state reflects them.\n",
				len(applyErr.Result.Applied))
		}
	case errors.As(err, &canceled):
		if canceled.Result != nil && len(canceled.Result.Applied) > 0 {
			fmt.Printf("\nCanceled after %d change(s); state reflects them.\n",
				len(canceled.Result.Applied))
		}
	}
}

func renderApplySummary(result *ir.ApplyResult) {
	counts := result.Summary()
	fmt.Printf("\nApply complete! Resources: %d added, %d changed, %d destroyed.\n",
		counts[ir.ActionCreate], counts[ir.ActionUpdate], counts[ir.ActionDelete])
}
