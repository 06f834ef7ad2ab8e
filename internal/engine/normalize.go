package engine

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/flowstate-io/flowstate/internal/ir"
)

// normalizeAttributes canonicalizes an attribute map through a JSON
// round-trip (so numeric types compare consistently with values loaded
// from state) and resolves provider-side placeholder tokens such as
// ${projectKey} to their live values.
func normalizeAttributes(attrs map[string]any, projectKey string) (map[string]any, error) {
	if attrs == nil {
		attrs = map[string]any{}
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("attributes are not serializable: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("attributes are not round-trippable: %w", err)
	}

	vars := map[string]string{"projectKey": projectKey}
	return interpolateValue(out, vars).(map[string]any), nil
}

// interpolateValue replaces ${...} variable tokens in string values,
// recursively through maps and lists.
func interpolateValue(v any, vars map[string]string) any {
	switch val := v.(type) {
	case string:
		for name, replacement := range vars {
			val = strings.ReplaceAll(val, "${"+name+"}", replacement)
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = interpolateValue(item, vars)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = interpolateValue(item, vars)
		}
		return out
	default:
		return val
	}
}

// diffDesired compares stored attributes against planned ones, keyed by
// the planned attributes only. Attributes present solely in state are
// server-managed additions and do not constitute a change.
func diffDesired(prior, planned map[string]any) map[string]ir.AttributeDiff {
	diff := make(map[string]ir.AttributeDiff)
	for k, after := range planned {
		before, ok := prior[k]
		if !ok || !reflect.DeepEqual(before, after) {
			diff[k] = ir.AttributeDiff{Before: before, After: after}
		}
	}
	return diff
}

// diffAll compares two attribute maps over the union of their keys. Used
// by the drift detector, where there is no desired configuration to key
// off.
func diffAll(before, after map[string]any) map[string]ir.AttributeDiff {
	diff := make(map[string]ir.AttributeDiff)
	for k, bv := range before {
		av, ok := after[k]
		if !ok || !reflect.DeepEqual(bv, av) {
			diff[k] = ir.AttributeDiff{Before: bv, After: av}
		}
	}
	for k, av := range after {
		if _, ok := before[k]; !ok {
			diff[k] = ir.AttributeDiff{Before: nil, After: av}
		}
	}
	return diff
}
