// Package router implements spec.md §4.B's Port Router: the per-invocation
// FIFO queues between a schematic's nodes, packet fan-out on multi-edge
// outputs, and bracket-depth tracking.
//
// Grounded on the teacher's internal/miniplumber.Pipe: a named endpoint
// with a lock-guarded set of readers that every write fans out to, plus a
// per-pipe sequence counter. Here the "pipe" is one (node, port) pair, the
// "readers" are the edges leaving it, and the fan-out cloning replaces
// miniplumber's string broadcast with Packet.Clone.
package router

import (
	"sync"

	"wafl/pkg/packet"
	"wafl/pkg/schematic"
	"wafl/pkg/waflerr"
)

// Router holds the live state of one schematic invocation: a FIFO per
// (node, port) and the bracket depth observed on each.
type Router struct {
	mu sync.Mutex

	sch *schematic.Schematic

	queues  map[schematic.PortRef][]packet.Packet
	depth   map[schematic.PortRef]int
	latched bool
	latchErr error

	// output receives every packet delivered to SCHEMATIC_OUTPUT.
	output chan packet.PortPacket
}

func New(sch *schematic.Schematic, output chan packet.PortPacket) *Router {
	return &Router{
		sch:    sch,
		queues: make(map[schematic.PortRef][]packet.Packet),
		depth:  make(map[schematic.PortRef]int),
		output: output,
	}
}

// Deliver appends packet to (node, port)'s FIFO, or to the invocation's
// external output channel when node is SCHEMATIC_OUTPUT (spec.md §4.B
// "deliver").
func (r *Router) Deliver(node schematic.NodeID, port string, p packet.Packet) {
	r.mu.Lock()

	switch p.Kind {
	case packet.KindOpen:
		r.depth[schematic.PortRef{Node: node, Port: port}]++
	case packet.KindClose:
		ref := schematic.PortRef{Node: node, Port: port}
		r.depth[ref]--
		if r.depth[ref] < 0 {
			r.latch(&waflerr.BracketMismatchError{Port: port})
		}
	case packet.KindError:
		r.latch(&waflerr.ProviderError{Message: p.Message})
	}

	if node == schematic.SchematicOutput {
		out := packet.PortPacket{Port: port, Packet: p}
		r.mu.Unlock()
		r.output <- out
		return
	}

	ref := schematic.PortRef{Node: node, Port: port}
	r.queues[ref] = append(r.queues[ref], p)
	r.mu.Unlock()
}

// latch sets the error latch exactly once; the first error wins (spec.md §7
// "the first Error observed establishes the invocation's failure cause").
// Caller must hold r.mu.
func (r *Router) latch(err error) {
	if !r.latched {
		r.latched = true
		r.latchErr = err
	}
}

// Latched reports whether the error latch has been set, and the error that
// set it.
func (r *Router) Latched() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latched, r.latchErr
}

// Route fans p out to every edge leaving (from, fromPort), cloning it by
// value for each destination (spec.md §4.B "route").
func (r *Router) Route(from schematic.NodeID, fromPort string, p packet.Packet) {
	for _, e := range r.sch.EdgesFrom(from, fromPort) {
		r.Deliver(e.To.Node, e.To.Port, p.Clone())
	}
}

// Ready reports whether every declared input port of node has at least one
// packet queued or a declared default (spec.md §4.B "ready").
func (r *Router) Ready(node schematic.NodeID, inputs []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, port := range inputs {
		ref := schematic.PortRef{Node: node, Port: port}
		if len(r.queues[ref]) > 0 {
			continue
		}
		if _, ok := r.sch.Defaults[ref]; ok {
			continue
		}
		return false
	}
	return true
}

// Drain removes and returns one packet from each of node's declared input
// ports, substituting the schematic's declared default when a port has no
// queued packet (spec.md §4.F step 2: "drain one packet from each of n's
// inputs to form a payload").
func (r *Router) Drain(node schematic.NodeID, inputs []string) map[string]packet.Packet {
	r.mu.Lock()
	defer r.mu.Unlock()

	payload := make(map[string]packet.Packet, len(inputs))
	for _, port := range inputs {
		ref := schematic.PortRef{Node: node, Port: port}
		q := r.queues[ref]
		if len(q) > 0 {
			payload[port] = q[0]
			r.queues[ref] = q[1:]
			continue
		}
		if def, ok := r.sch.Defaults[ref]; ok {
			payload[port] = def
		}
	}
	return payload
}

// OutputsDone reports whether every edge into SCHEMATIC_OUTPUT has
// delivered Done (spec.md §4.F "Completion").
func (r *Router) OutputsDone(doneOutputs map[string]bool) bool {
	for port := range r.outputPorts() {
		if !doneOutputs[port] {
			return false
		}
	}
	return true
}

func (r *Router) outputPorts() map[string]bool {
	ports := make(map[string]bool)
	for _, e := range r.sch.Edges {
		if e.To.Node == schematic.SchematicOutput {
			ports[e.To.Port] = true
		}
	}
	return ports
}
