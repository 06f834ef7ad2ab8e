package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fatih/color"

	"github.com/flowstate-io/flowstate/internal/ir"
)

var (
	createColor = color.New(color.FgGreen)
	updateColor = color.New(color.FgYellow)
	deleteColor = color.New(color.FgRed)
	faintColor  = color.New(color.Faint)
)

func actionColor(a ir.Action) *color.Color {
	switch a {
	case ir.ActionCreate:
		return createColor
	case ir.ActionUpdate:
		return updateColor
	case ir.ActionDelete:
		return deleteColor
	default:
		return faintColor
	}
}

func actionSymbol(a ir.Action) string {
	switch a {
	case ir.ActionCreate:
		return "+"
	case ir.ActionUpdate:
		return "~"
	case ir.ActionDelete:
		return "-"
	default:
		return " "
	}
}

// renderPlan prints every non-noop change with its attribute diff.
func renderPlan(plan *ir.Plan) {
	if !plan.HasChanges() {
		fmt.Println("No changes. Resources are up-to-date.")
		return
	}

	fmt.Println("Flowstate will perform the following actions:")
	for _, change := range plan.Changes {
		if change.Action == ir.ActionNoOp {
			continue
		}
		renderChange(change)
	}
	renderPlanSummary(plan)
}

func renderChange(change *ir.ResourceChange) {
	c := actionColor(change.Action)
	c.Printf("\n  %s %s (%s)\n", actionSymbol(change.Action), change.Address, change.Action)

	switch change.Action {
	case ir.ActionCreate:
		renderAttributes(c, change.After)
	case ir.ActionDelete:
		renderAttributes(c, change.Before)
	case ir.ActionUpdate:
		renderDiff(change.Diff)
	}
}

func renderAttributes(c *color.Color, attrs map[string]any) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.Printf("      %s = %s\n", k, renderValue(attrs[k]))
	}
}

func renderDiff(diff map[string]ir.AttributeDiff) {
	keys := make([]string, 0, len(diff))
	for k := range diff {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d := diff[k]
		updateColor.Printf("      %s = %s -> %s\n", k, renderValue(d.Before), renderValue(d.After))
	}
}

func renderValue(v any) string {
	if v == nil {
		return "(none)"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func renderPlanSummary(plan *ir.Plan) {
	counts := plan.Summary()
	fmt.Printf("\nPlan: %d to add, %d to change, %d to destroy.\n",
		counts[ir.ActionCreate], counts[ir.ActionUpdate], counts[ir.ActionDelete])
}

// renderDrift prints drift results, where updates show live values that
// differ from state.
func renderDrift(changes []*ir.ResourceChange) {
	if len(changes) == 0 {
		fmt.Println("No drift detected. State matches the platform.")
		return
	}

	fmt.Printf("Detected drift on %d resource(s):\n", len(changes))
	for _, change := range changes {
		c := actionColor(change.Action)
		switch change.Action {
		case ir.ActionDelete:
			c.Printf("\n  - %s no longer exists\n", change.Address)
		case ir.ActionUpdate:
			c.Printf("\n  ~ %s changed outside of flowstate\n", change.Address)
			renderDiff(change.Diff)
		}
	}
}
