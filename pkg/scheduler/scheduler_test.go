package scheduler_test

import (
	"context"
	"testing"
	"time"

	"wafl/pkg/packet"
	"wafl/pkg/provider"
	"wafl/pkg/scheduler"
	"wafl/pkg/schematic"
	"wafl/pkg/waflerr"
)

// echoProvider hosts one component, "upper", that uppercases its "in"
// string input onto its "out" output.
type echoProvider struct{}

func (echoProvider) List() []provider.HostedType {
	return []provider.HostedType{{
		Name: "upper", Kind: provider.KindComponent,
		Signature: packet.ComponentSignature{
			Name:    "upper",
			Inputs:  []packet.PortSignature{{Name: "in", Type: packet.String()}},
			Outputs: []packet.PortSignature{{Name: "out", Type: packet.String()}},
		},
	}}
}

func (echoProvider) Stats(string) []provider.Stat { return nil }

func (echoProvider) Invoke(ctx context.Context, target packet.Entity, payload map[string]packet.Packet) (<-chan packet.PortPacket, error) {
	out := make(chan packet.PortPacket, 2)
	go func() {
		defer close(out)
		v, _ := packet.Decode(payload["in"].Data, packet.String())
		s := v.(string)
		upper := make([]byte, len(s))
		for i := range s {
			c := s[i]
			if c >= 'a' && c <= 'z' {
				c -= 32
			}
			upper[i] = c
		}
		data, _ := packet.Encode(string(upper), packet.String())
		out <- packet.PortPacket{Port: "out", Packet: packet.Data(data, packet.String())}
		out <- packet.PortPacket{Port: "out", Packet: packet.Done()}
	}()
	return out, nil
}

func TestSchedulerSingleNode(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register("echo", echoProvider{})

	sch := schematic.New("uppercase")
	sch.Nodes["n1"] = schematic.Node{Provider: packet.NewProvider("echo"), Component: "upper"}
	sch.Edges = []schematic.Edge{
		{From: schematic.PortRef{Node: schematic.SchematicInput, Port: "in"}, To: schematic.PortRef{Node: "n1", Port: "in"}},
		{From: schematic.PortRef{Node: "n1", Port: "out"}, To: schematic.PortRef{Node: schematic.SchematicOutput, Port: "result"}},
	}

	data, _ := packet.Encode("hello", packet.String())
	inv := schematic.NewInvocation(packet.NewComponent("caller"), packet.NewSchematic("uppercase"),
		map[string]packet.Packet{"in": packet.Data(data, packet.String())}, "net1", time.Second)

	sdr := scheduler.New(reg)
	ch := sdr.Run(context.Background(), sch, inv)

	var got []packet.PortPacket
	for pp := range ch {
		got = append(got, pp)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 packets, got %d: %+v", len(got), got)
	}
	v, err := packet.Decode(got[0].Packet.Data, packet.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.(string) != "HELLO" {
		t.Fatalf("expected HELLO, got %v", v)
	}
	if got[1].Packet.Kind != packet.KindDone {
		t.Fatalf("expected trailing Done, got %+v", got[1])
	}
}

// TestSchedulerFanOut wires "upper"'s single "out" port to two distinct
// SCHEMATIC_OUTPUT ports and asserts both drain fully and completion fires
// only once (spec.md §8 S5 "fan-out to two sinks").
func TestSchedulerFanOut(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register("echo", echoProvider{})

	sch := schematic.New("fanout")
	sch.Nodes["n1"] = schematic.Node{Provider: packet.NewProvider("echo"), Component: "upper"}
	sch.Edges = []schematic.Edge{
		{From: schematic.PortRef{Node: schematic.SchematicInput, Port: "in"}, To: schematic.PortRef{Node: "n1", Port: "in"}},
		{From: schematic.PortRef{Node: "n1", Port: "out"}, To: schematic.PortRef{Node: schematic.SchematicOutput, Port: "result1"}},
		{From: schematic.PortRef{Node: "n1", Port: "out"}, To: schematic.PortRef{Node: schematic.SchematicOutput, Port: "result2"}},
	}

	data, _ := packet.Encode("hi", packet.String())
	inv := schematic.NewInvocation(packet.NewComponent("caller"), packet.NewSchematic("fanout"),
		map[string]packet.Packet{"in": packet.Data(data, packet.String())}, "net1", time.Second)

	sdr := scheduler.New(reg)
	ch := sdr.Run(context.Background(), sch, inv)

	byPort := make(map[string][]packet.Packet)
	var total int
	for pp := range ch {
		byPort[pp.Port] = append(byPort[pp.Port], pp.Packet)
		total++
	}

	if total != 4 {
		t.Fatalf("expected 4 packets total (data+done per sink), got %d: %+v", total, byPort)
	}
	for _, port := range []string{"result1", "result2"} {
		pkts, ok := byPort[port]
		if !ok || len(pkts) != 2 {
			t.Fatalf("expected 2 packets on %s, got %+v", port, pkts)
		}
		v, err := packet.Decode(pkts[0].Data, packet.String())
		if err != nil {
			t.Fatalf("decode %s: %v", port, err)
		}
		if v.(string) != "HI" {
			t.Fatalf("expected HI on %s, got %v", port, v)
		}
		if pkts[1].Kind != packet.KindDone {
			t.Fatalf("expected trailing Done on %s, got %+v", port, pkts[1])
		}
	}
}

// blockingProvider hosts "stall", a component whose Invoke never yields a
// packet, so a schematic routed through it can only terminate via the
// invocation deadline.
type blockingProvider struct{}

func (blockingProvider) List() []provider.HostedType {
	return []provider.HostedType{{
		Name: "stall", Kind: provider.KindComponent,
		Signature: packet.ComponentSignature{
			Name:    "stall",
			Inputs:  []packet.PortSignature{{Name: "in", Type: packet.String()}},
			Outputs: []packet.PortSignature{{Name: "out", Type: packet.String()}},
		},
	}}
}

func (blockingProvider) Stats(string) []provider.Stat { return nil }

func (blockingProvider) Invoke(ctx context.Context, target packet.Entity, payload map[string]packet.Packet) (<-chan packet.PortPacket, error) {
	out := make(chan packet.PortPacket)
	go func() {
		defer close(out)
		<-ctx.Done()
	}()
	return out, nil
}

// TestSchedulerDeadlineExceeded asserts that an invocation whose component
// never emits terminates with waflerr.ErrTimeout once its deadline passes
// (spec.md §8 S6 "deadline-exceeded timeout").
func TestSchedulerDeadlineExceeded(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register("stall", blockingProvider{})

	sch := schematic.New("stalls")
	sch.Nodes["n1"] = schematic.Node{Provider: packet.NewProvider("stall"), Component: "stall"}
	sch.Edges = []schematic.Edge{
		{From: schematic.PortRef{Node: schematic.SchematicInput, Port: "in"}, To: schematic.PortRef{Node: "n1", Port: "in"}},
		{From: schematic.PortRef{Node: "n1", Port: "out"}, To: schematic.PortRef{Node: schematic.SchematicOutput, Port: "result"}},
	}

	data, _ := packet.Encode("hi", packet.String())
	inv := schematic.NewInvocation(packet.NewComponent("caller"), packet.NewSchematic("stalls"),
		map[string]packet.Packet{"in": packet.Data(data, packet.String())}, "net1", 20*time.Millisecond)

	sdr := scheduler.New(reg)
	ch := sdr.Run(context.Background(), sch, inv)

	var got []packet.PortPacket
	for pp := range ch {
		got = append(got, pp)
	}

	if len(got) != 1 {
		t.Fatalf("expected exactly 1 packet (the timeout error), got %d: %+v", len(got), got)
	}
	if got[0].Packet.Kind != packet.KindError {
		t.Fatalf("expected Error packet, got %+v", got[0])
	}
	if got[0].Packet.Message != waflerr.ErrTimeout.Error() {
		t.Fatalf("expected message %q, got %q", waflerr.ErrTimeout.Error(), got[0].Packet.Message)
	}
}
