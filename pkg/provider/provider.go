// Package provider defines the uniform invoke/list/stats contract of
// spec.md §4.C and the registry that resolves a target Entity to the
// provider instance that hosts it.
//
// Adapted from the teacher's pkg/minicli: there, a Handler registers a
// pattern and a CLIFunc, and minicli.ProcessCommand resolves free-text
// input to the matching Handler before invoking it. Here a Provider
// registers components by name instead of a text pattern, and Registry
// plays minicli's dispatch role, but the "named thing with a uniform
// call contract, looked up before invocation" shape is the same.
package provider

import (
	"context"

	"wafl/pkg/packet"
)

// Kind distinguishes a hosted component from a hosted schematic in
// List() results (spec.md §6 Component.kind).
type Kind int

const (
	KindComponent Kind = iota
	KindSchematic
)

// HostedType is one entry in a provider's List(), carrying full
// signatures (spec.md §4.C). The Providers field is carried forward per
// SPEC_FULL.md's "supplemented features": it names the provider id(s)
// backing this entry, echoing original_source's HostedType wire shape.
type HostedType struct {
	Name      string
	Kind      Kind
	Signature packet.ComponentSignature
	Providers []string
}

// Stat is one component's call count, the only field spec.md §6 puts on
// the wire; providers that use a Recorder additionally keep recent call
// durations in-process (see stats.go).
type Stat struct {
	Component string
	NumCalls  uint64
}

// Provider is the uniform contract every native, wasm, or remote
// component host implements (spec.md §4.C). Native, wasm, and remote
// providers differ only in how Invoke is implemented; there is no shared
// base state (spec.md §9 design note).
type Provider interface {
	// Invoke returns a lazy, potentially-infinite stream of output
	// packets that ends with Done on every declared output of the
	// target component. The context governs cancellation (spec.md §5).
	Invoke(ctx context.Context, target packet.Entity, payload map[string]packet.Packet) (<-chan packet.PortPacket, error)

	// List enumerates every component and schematic this provider hosts.
	List() []HostedType

	// Stats returns per-component statistics. id selects one component;
	// empty selects all.
	Stats(id string) []Stat
}
