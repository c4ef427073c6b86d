// Package network implements spec.md §4.G: the Network Facade, the single
// entry point a caller (the RPC server, a CLI, an embedding process) uses
// to run a schematic.
//
// Grounded on the teacher's pkg/miniclient.Conn / cmd/miniweb: a thin
// façade that owns no state of its own beyond a connection to the real
// subsystem (there, a minimega instance; here, the Registry and
// Scheduler) and turns one call into a request/response or request/stream
// round trip.
package network

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wafl/pkg/packet"
	"wafl/pkg/provider"
	"wafl/pkg/scheduler"
	"wafl/pkg/schematic"
	"wafl/pkg/waflerr"
)

// Facade is the process-lifetime owner of every Provider instance (spec.md
// §4 "Ownership: the Network Facade owns Provider instances for the
// process lifetime").
type Facade struct {
	mu               sync.RWMutex
	registry         *provider.Registry
	schematics       map[string]*schematic.Schematic
	sched            *scheduler.Scheduler
	initialized      bool
	defaultSchematic string
	timeout          time.Duration
}

func New(registry *provider.Registry) *Facade {
	return &Facade{
		registry:   registry,
		schematics: make(map[string]*schematic.Schematic),
		sched:      scheduler.New(registry),
	}
}

// SetDefaultSchematic names the schematic Request runs when called with an
// empty schematicName, backing -schematic / WAFL_DEFAULT_SCHEMATIC.
func (f *Facade) SetDefaultSchematic(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultSchematic = name
}

// SetTimeout overrides schematic.DefaultTimeout for every invocation this
// facade starts, backing -timeout.
func (f *Facade) SetTimeout(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeout = d
}

// Register adds sch under its own name. Must be called before Init.
func (f *Facade) Register(sch *schematic.Schematic) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schematics[sch.Name] = sch
}

// Init validates every registered schematic against the providers' reported
// signatures; any type mismatch aborts with a structured error listing all
// offending edges (spec.md §4.G "init"). One-shot: a second call is a
// no-op success.
func (f *Facade) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.initialized {
		return nil
	}

	var errs []error
	for _, sch := range f.schematics {
		if err := sch.Validate(f.registry.ComponentSignature); err != nil {
			errs = append(errs, fmt.Errorf("schematic %s: %w", sch.Name, err))
		}
	}
	if len(errs) > 0 {
		msg := "schematic validation failed:"
		for _, e := range errs {
			msg += "\n  " + e.Error()
		}
		return &waflerr.ValidationError{Edge: "init", Reason: msg}
	}

	f.initialized = true
	return nil
}

// Request constructs an Invocation targeting the named schematic and
// delegates to the Scheduler (spec.md §4.G "request").
func (f *Facade) Request(ctx context.Context, schematicName string, origin packet.Entity, data map[string]packet.Packet) (<-chan packet.PortPacket, error) {
	f.mu.RLock()
	if schematicName == "" {
		schematicName = f.defaultSchematic
	}
	sch, ok := f.schematics[schematicName]
	initialized := f.initialized
	timeout := f.timeout
	f.mu.RUnlock()

	if !initialized {
		return nil, &waflerr.FatalError{Reason: "network facade not initialized"}
	}
	if !ok {
		return nil, &waflerr.ComponentNotFoundError{Name: schematicName}
	}
	if timeout == 0 {
		timeout = schematic.DefaultTimeout
	}

	inv := schematic.NewInvocation(origin, packet.NewSchematic(schematicName), data, schematicName, timeout)
	return f.sched.Run(ctx, sch, inv), nil
}

// ListSchematics returns every registered schematic's signature (spec.md
// §4.G "list_schematics").
func (f *Facade) ListSchematics() []packet.SchematicSignature {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]packet.SchematicSignature, 0, len(f.schematics))
	for _, sch := range f.schematics {
		out = append(out, sch.Signature)
	}
	return out
}

// Shutdown releases no process-owned resources beyond marking the facade
// uninitialized; provider lifetimes are managed by whoever registered them
// with the Registry (spec.md §4 "Ownership").
func (f *Facade) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = false
}
