// Package scheduler implements spec.md §4.F: the drive loop that walks a
// schematic invocation from seeded input to a terminated output stream.
//
// Grounded on the teacher's internal/ron command dispatch (internal/ron
// keeps a table of pending commands per client and fires each as its
// dependencies clear, acking back on a channel) generalized from "one
// client, a command queue" to "one invocation, a readiness-driven node
// fan".
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"wafl/pkg/packet"
	"wafl/pkg/provider"
	"wafl/pkg/router"
	"wafl/pkg/schematic"
	"wafl/pkg/waflerr"
)

// Scheduler drives schematic invocations against a shared provider
// registry. Stateless between invocations: all per-invocation state lives
// in the router and closures created by Run (spec.md §5 "InvocationContext
// is owned by one scheduler task").
type Scheduler struct {
	registry *provider.Registry
}

func New(registry *provider.Registry) *Scheduler {
	return &Scheduler{registry: registry}
}

// Run drives sch for one invocation and returns the stream of packets
// delivered to SCHEMATIC_OUTPUT. The channel closes when the invocation
// completes, times out, or hits a fatal error (spec.md §4.F "Completion").
func (s *Scheduler) Run(ctx context.Context, sch *schematic.Schematic, inv schematic.Invocation) <-chan packet.PortPacket {
	out := make(chan packet.PortPacket, 16)
	rawOut := make(chan packet.PortPacket, 16)
	rt := router.New(sch, rawOut)

	order := sch.TopoOrder()

	for port, p := range inv.Payload {
		rt.Route(schematic.SchematicInput, port, p)
	}

	ctx, cancel := context.WithDeadline(ctx, inv.Deadline)

	var (
		mu        sync.Mutex
		executing = make(map[schematic.NodeID]bool)
		doneOut   = make(map[string]bool)
		completed bool
		inFlight  int64
	)

	wake := make(chan struct{}, 1)
	signalWake := func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	}

	// finishCh hands the completion reason to the forwarder goroutine,
	// which is the sole writer of (and closer of) out. finish itself never
	// touches out directly, so a latch/timeout firing from the drive loop
	// can never race the forwarder's own out<-pp send with out's close.
	finishCh := make(chan error, 1)
	finish := func(reason error) {
		mu.Lock()
		if completed {
			mu.Unlock()
			return
		}
		completed = true
		mu.Unlock()

		cancel()
		select {
		case finishCh <- reason:
		default:
		}
	}

	// forwards terminal output from the router to the caller, watches for
	// every SCHEMATIC_OUTPUT edge having delivered Done, and is the only
	// goroutine that writes to or closes out.
	go func() {
		for {
			select {
			case pp, ok := <-rawOut:
				if !ok {
					close(out)
					return
				}
				out <- pp
				if pp.Packet.Kind == packet.KindDone {
					mu.Lock()
					doneOut[pp.Port] = true
					complete := rt.OutputsDone(doneOut)
					mu.Unlock()
					if complete {
						finish(nil)
					}
				}
			case reason := <-finishCh:
				if reason != nil {
					out <- packet.PortPacket{Packet: packet.Error(reason.Error())}
				}
				close(out)
				return
			}
		}
	}()

	inputNames := func(sig packet.ComponentSignature) []string {
		names := make([]string, len(sig.Inputs))
		for i, p := range sig.Inputs {
			names[i] = p.Name
		}
		return names
	}

	// fire runs one batch of node id: drains its ready inputs, dispatches
	// to the owning provider, and routes every packet it yields.
	fire := func(id schematic.NodeID, node schematic.Node, sig packet.ComponentSignature) {
		defer func() {
			atomic.AddInt64(&inFlight, -1)
			mu.Lock()
			executing[id] = false
			mu.Unlock()
			signalWake()
		}()

		payload := rt.Drain(id, inputNames(sig))

		ambient := ""
		if node.Provider.Kind == packet.EntityProvider {
			ambient = node.Provider.Name
		}
		prov, err := s.registry.Resolve(ambient, node.Component)
		if err != nil {
			for _, o := range sig.Outputs {
				rt.Deliver(id, o.Name, packet.Error(err.Error()))
				rt.Deliver(id, o.Name, packet.Done())
			}
			return
		}

		stream, err := prov.Invoke(ctx, packet.NewComponent(node.Component), payload)
		if err != nil {
			for _, o := range sig.Outputs {
				rt.Deliver(id, o.Name, packet.Error(err.Error()))
				rt.Deliver(id, o.Name, packet.Done())
			}
			return
		}

		for pp := range stream {
			rt.Route(id, pp.Port, pp.Packet)
		}
	}

	go func() {
		for {
			mu.Lock()
			if completed {
				mu.Unlock()
				return
			}
			mu.Unlock()

			fired := false
			for _, id := range order {
				if id == schematic.SchematicInput || id == schematic.SchematicOutput {
					continue
				}
				node, ok := sch.Nodes[id]
				if !ok {
					continue
				}

				mu.Lock()
				busy := executing[id]
				mu.Unlock()
				if busy {
					continue
				}

				sig, ok := s.registry.ComponentSignature(node.Provider, node.Component)
				if !ok {
					finish(&waflerr.FatalError{Reason: "unknown component for node " + string(id)})
					return
				}
				if !rt.Ready(id, inputNames(sig)) {
					continue
				}

				mu.Lock()
				executing[id] = true
				mu.Unlock()
				atomic.AddInt64(&inFlight, 1)
				fired = true
				go fire(id, node, sig)
			}

			if latched, latchErr := rt.Latched(); latched && atomic.LoadInt64(&inFlight) == 0 {
				finish(latchErr)
				return
			}

			if fired {
				continue
			}

			select {
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					finish(waflerr.ErrTimeout)
				} else {
					finish(nil)
				}
				return
			case <-wake:
			}
		}
	}()

	return out
}
