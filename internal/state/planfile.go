package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowstate-io/flowstate/internal/ir"
)

// WritePlanFile persists a plan as a saved-plan artifact. The embedded
// metadata snapshot is checked for staleness when the plan is applied.
func WritePlanFile(path string, p *ir.Plan) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize plan: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create plan directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write plan file %s: %w", path, err)
	}
	return nil
}

// ReadPlanFile loads a previously saved plan.
func ReadPlanFile(path string) (*ir.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file %s: %w", path, err)
	}
	p := &ir.Plan{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse plan file %s: %w", path, err)
	}
	return p, nil
}
