package engine

import (
	"fmt"
	"strings"

	"github.com/flowstate-io/flowstate/internal/ir"
)

// DuplicateAddressError is returned when multiple desired resources share
// the same address.
type DuplicateAddressError struct {
	Address string
}

func (e *DuplicateAddressError) Error() string {
	return fmt.Sprintf("duplicate resource address: %s", e.Address)
}

// UnresolvedReferenceError is returned when a resource references an
// address that exists neither in the desired set nor in state.
type UnresolvedReferenceError struct {
	Address   string
	Reference string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s references unknown address %s", e.Address, e.Reference)
}

// CycleError is returned when the dependency graph contains a cycle.
// Path is the full cycle, ending with a repeat of the first address.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}

// ValidationError aggregates per-resource validation failures. Nothing is
// mutated when validation fails.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed:")
	for _, msg := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(msg)
	}
	return b.String()
}

// ProjectMismatchError is returned when the loaded state belongs to a
// different project than the current configuration.
type ProjectMismatchError struct {
	Expected string
	Got      string
}

func (e *ProjectMismatchError) Error() string {
	return fmt.Sprintf("state belongs to project %s, not %s", e.Got, e.Expected)
}

// StalePlanError is returned when a saved plan's recorded state identity
// no longer matches the live state. The caller must re-plan; no change is
// attempted.
type StalePlanError struct {
	Reason string
}

func (e *StalePlanError) Error() string {
	return fmt.Sprintf("saved plan is stale: %s; re-run plan", e.Reason)
}

// ApplyError is returned when a handler operation fails mid-apply. It
// carries the partial result so callers can report what succeeded before
// the failure. Already-applied changes are not rolled back.
type ApplyError struct {
	Result  *ir.ApplyResult
	Address string
	Err     error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply failed on %s: %v", e.Address, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// CanceledError is returned when cooperative cancellation is observed
// between changes. It is distinct from ApplyError so callers can treat it
// as user-initiated rather than a remote failure.
type CanceledError struct {
	Result *ir.ApplyResult
	Err    error
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("apply canceled: %v", e.Err)
}

func (e *CanceledError) Unwrap() error {
	return e.Err
}
