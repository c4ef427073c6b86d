package provider

import (
	"sync"

	"wafl/pkg/packet"
	"wafl/pkg/waflerr"
)

// Registry maps provider id to provider instance. Guarded by a
// readers-writers lock acquired only on registration (spec.md §5 "Shared
// state"), the same discipline the teacher's minicli command trie uses
// for handler registration.
type Registry struct {
	mu    sync.RWMutex
	ids   []string // declared order, for deterministic fallback scanning
	byID  map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Provider)}
}

// Register adds p under id. Re-registering the same id replaces it but
// keeps its position in declaration order.
func (r *Registry) Register(id string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		r.ids = append(r.ids, id)
	}
	r.byID[id] = p
}

func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	return p, ok
}

// Resolve finds the provider hosting the named component. If ambientID
// is non-empty and that provider hosts the component, it wins
// immediately; otherwise providers are scanned in declared order and the
// first host wins (spec.md §4.C "Registry").
func (r *Registry) Resolve(ambientID, component string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ambientID != "" {
		if p, ok := r.byID[ambientID]; ok && hosts(p, component) {
			return p, nil
		}
	}

	for _, id := range r.ids {
		p := r.byID[id]
		if hosts(p, component) {
			return p, nil
		}
	}

	return nil, &waflerr.ComponentNotFoundError{Name: component}
}

func hosts(p Provider, component string) bool {
	for _, t := range p.List() {
		if t.Kind == KindComponent && t.Name == component {
			return true
		}
	}
	return false
}

// ComponentSignature looks up the signature of a named component across
// every registered provider, used by schematic validation (spec.md §4.G
// "init validates every schematic against its providers' reported
// signatures").
func (r *Registry) ComponentSignature(target packet.Entity, component string) (packet.ComponentSignature, bool) {
	p, err := r.Resolve(target.Name, component)
	if err != nil {
		return packet.ComponentSignature{}, false
	}
	for _, t := range p.List() {
		if t.Kind == KindComponent && t.Name == component {
			return t.Signature, true
		}
	}
	return packet.ComponentSignature{}, false
}

// List concatenates every registered provider's hosted types.
func (r *Registry) List() []HostedType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []HostedType
	for _, id := range r.ids {
		out = append(out, r.byID[id].List()...)
	}
	return out
}

// Stats concatenates every registered provider's stats for id (empty
// selects all).
func (r *Registry) Stats(id string) []Stat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Stat
	for _, pid := range r.ids {
		out = append(out, r.byID[pid].Stats(id)...)
	}
	return out
}
