// Package waflerr holds the error taxonomy from spec.md §7. Each variant is
// a distinct type so callers can dispatch on it with errors.As instead of
// string matching.
package waflerr

import "fmt"

// ValidationError is raised at schematic init when a signature mismatch,
// malformed manifest, or unknown component is found. Non-fatal to the
// process; aborts only the offending schematic.
type ValidationError struct {
	Edge   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Edge, e.Reason)
}

// TypeError means a packet's encoding didn't match its declared port type.
// Attached to the consuming edge; yields Exception downstream, the
// producer's invocation continues.
type TypeError struct {
	Port     string
	Expected string
	Actual   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type mismatch on port %s: expected %s, got %s", e.Port, e.Expected, e.Actual)
}

// ComponentNotFoundError is returned by a Registry when no provider hosts
// the requested component.
type ComponentNotFoundError struct {
	Name string
}

func (e *ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component not found: %s", e.Name)
}

// ProviderError is an opaque passthrough from a provider implementation.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string { return e.Message }

// BracketMismatchError is raised by the router when Open/Close signals on
// a port don't balance.
type BracketMismatchError struct {
	Port string
}

func (e *BracketMismatchError) Error() string {
	return fmt.Sprintf("bracket mismatch on port %s", e.Port)
}

// FatalError marks an internal invariant violation (e.g. an unknown node
// id). Never silently swallowed.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string { return fmt.Sprintf("fatal: %s", e.Reason) }

// TransportError surfaces an RPC failure between the scheduler and a
// remote provider. It is always converted to a ProviderError at the
// scheduler boundary so callers treat it uniformly with in-process
// failures (spec.md §4.D).
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport error: %v", e.Cause) }
func (e *TransportError) Unwrap() error { return e.Cause }

// ClaimsError covers every way a claims token can fail to load or verify.
type ClaimsError struct {
	Reason string
}

func (e *ClaimsError) Error() string { return fmt.Sprintf("claims error: %s", e.Reason) }

// ErrTimeout is the synthesized error for an invocation that exceeds its
// deadline (spec.md §4.F, §7).
var ErrTimeout = fmt.Errorf("timeout")
