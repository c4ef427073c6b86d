package provider

import (
	"context"

	"wafl/pkg/packet"
)

// Aggregate presents an entire Registry as a single Provider, the shape
// pkg/rpc's Server expects. It is the remote-serving counterpart to
// Resolve: rather than one process dispatching locally to whichever
// provider hosts a component, Aggregate lets a remote peer address the
// whole registry through one RPC endpoint and have Invoke's ambient
// resolution rules (spec.md §4.C) applied on this side of the wire.
type Aggregate struct {
	registry *Registry
}

func NewAggregate(r *Registry) *Aggregate {
	return &Aggregate{registry: r}
}

func (a *Aggregate) Invoke(ctx context.Context, target packet.Entity, payload map[string]packet.Packet) (<-chan packet.PortPacket, error) {
	p, err := a.registry.Resolve("", target.Name)
	if err != nil {
		return nil, err
	}
	return p.Invoke(ctx, target, payload)
}

func (a *Aggregate) List() []HostedType { return a.registry.List() }

func (a *Aggregate) Stats(id string) []Stat { return a.registry.Stats(id) }
