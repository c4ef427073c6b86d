// Package schematic holds the in-memory schematic model of spec.md §3:
// nodes, edges, defaults, and the invocation record that targets one. The
// manifest loader that parses a schematic definition into this model is
// an external collaborator (spec.md §1); this package only defines the
// shape it populates.
package schematic

import (
	"errors"
	"fmt"

	"wafl/pkg/packet"
)

// NodeID names a node within a schematic. Two ids are reserved.
type NodeID string

const (
	SchematicInput  NodeID = "SCHEMATIC_INPUT"
	SchematicOutput NodeID = "SCHEMATIC_OUTPUT"
)

// PortRef addresses one port on one node.
type PortRef struct {
	Node NodeID
	Port string
}

func (r PortRef) String() string { return fmt.Sprintf("%s.%s", r.Node, r.Port) }

// Node maps a schematic node to the provider and component that backs it.
type Node struct {
	Provider  packet.Entity
	Component string
}

// Edge is one producer-output to consumer-input wire. Ordered: a
// schematic's Edges slice preserves declaration order, used to
// tie-break scheduler readiness (spec.md §4.F).
type Edge struct {
	From PortRef
	To   PortRef
}

// Schematic is the directed multigraph of components with typed ports
// (spec.md's GLOSSARY).
type Schematic struct {
	Name string

	Nodes map[NodeID]Node
	Edges []Edge

	// Defaults supplies a static packet for a to_port with no incoming
	// edge, injected at invocation start (spec.md §3 "Defaults").
	Defaults map[PortRef]packet.Packet

	// MergeInputs declares which input ports accept fan-in from more
	// than one edge (spec.md §3 "Fan-in allowed only when to_port has
	// merge semantics declared" — Open Question (a)).
	MergeInputs map[PortRef]bool

	Signature packet.SchematicSignature
}

func New(name string) *Schematic {
	return &Schematic{
		Name:        name,
		Nodes:       make(map[NodeID]Node),
		Defaults:    make(map[PortRef]packet.Packet),
		MergeInputs: make(map[PortRef]bool),
	}
}

// EdgesFrom returns every edge whose source is (node, port), supporting
// fan-out (spec.md §3 "Fan-out allowed").
func (s *Schematic) EdgesFrom(node NodeID, port string) []Edge {
	var out []Edge
	for _, e := range s.Edges {
		if e.From.Node == node && e.From.Port == port {
			out = append(out, e)
		}
	}
	return out
}

// EdgesTo returns every edge feeding (node, port).
func (s *Schematic) EdgesTo(node NodeID, port string) []Edge {
	var out []Edge
	for _, e := range s.Edges {
		if e.To.Node == node && e.To.Port == port {
			out = append(out, e)
		}
	}
	return out
}

// TopoOrder returns every declared node plus SCHEMATIC_INPUT and
// SCHEMATIC_OUTPUT in topological order of the edges — used by the
// scheduler's topological tie-break (spec.md §4.F step 1). The relative
// order of declared nodes with no ordering edge between them follows map
// iteration and is not defined.
func (s *Schematic) TopoOrder() []NodeID {
	indegree := make(map[NodeID]int)
	adj := make(map[NodeID][]NodeID)
	var order []NodeID
	seen := make(map[NodeID]bool)

	note := func(id NodeID) {
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
			indegree[id] = 0
		}
	}
	for id := range s.Nodes {
		note(id)
	}
	note(SchematicInput)
	note(SchematicOutput)

	for _, e := range s.Edges {
		adj[e.From.Node] = append(adj[e.From.Node], e.To.Node)
		indegree[e.To.Node]++
	}

	var queue []NodeID
	for _, id := range order {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var result []NodeID
	visited := make(map[NodeID]bool)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		result = append(result, id)
		for _, next := range adj[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	// any node left unvisited (a cycle) is appended after the ordered ones
	// rather than dropped, so the scheduler still has a tie-break rank.
	for _, id := range order {
		if !visited[id] {
			result = append(result, id)
		}
	}
	return result
}

// Validate checks spec.md §3's SchematicSignature invariant: every
// internal edge's producer output type is assignable to its consumer
// input type. Every offending edge is reported, joined into one error.
func (s *Schematic) Validate(resolve func(ref packet.Entity, component string) (packet.ComponentSignature, bool)) error {
	var errs []error
	for _, e := range s.Edges {
		fromSig, ok := s.componentSignature(e.From.Node, resolve)
		if !ok {
			errs = append(errs, fmt.Errorf("edge %s -> %s: unknown source node %s", e.From, e.To, e.From.Node))
			continue
		}
		toSig, ok := s.componentSignature(e.To.Node, resolve)
		if !ok {
			errs = append(errs, fmt.Errorf("edge %s -> %s: unknown destination node %s", e.From, e.To, e.To.Node))
			continue
		}

		outPort, ok := fromSig.Output(e.From.Port)
		if !ok {
			errs = append(errs, fmt.Errorf("edge %s -> %s: no such output port", e.From, e.To))
			continue
		}
		inPort, ok := toSig.Input(e.To.Port)
		if !ok {
			errs = append(errs, fmt.Errorf("edge %s -> %s: no such input port", e.From, e.To))
			continue
		}

		if !packet.Compatible(outPort.Type, inPort.Type) {
			errs = append(errs, fmt.Errorf("edge %s -> %s: %s not assignable to %s", e.From, e.To, outPort.Type, inPort.Type))
		}
	}
	return errors.Join(errs...)
}

func (s *Schematic) componentSignature(id NodeID, resolve func(packet.Entity, string) (packet.ComponentSignature, bool)) (packet.ComponentSignature, bool) {
	switch id {
	case SchematicInput:
		// SCHEMATIC_INPUT is the virtual producer of the schematic's own
		// declared inputs: what a caller supplies becomes what flows out
		// of this node onto internal edges.
		return packet.ComponentSignature{Name: string(SchematicInput), Outputs: s.Signature.Inputs}, true
	case SchematicOutput:
		// SCHEMATIC_OUTPUT is the virtual consumer of the schematic's own
		// declared outputs: what a caller receives is what flows into
		// this node.
		return packet.ComponentSignature{Name: string(SchematicOutput), Inputs: s.Signature.Outputs}, true
	}
	node, ok := s.Nodes[id]
	if !ok {
		return packet.ComponentSignature{}, false
	}
	return resolve(node.Provider, node.Component)
}
