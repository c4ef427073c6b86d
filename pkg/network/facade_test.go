package network_test

import (
	"context"
	"testing"

	"wafl/pkg/network"
	"wafl/pkg/packet"
	"wafl/pkg/provider"
	"wafl/pkg/provider/inmemory"
	"wafl/pkg/schematic"
)

func strArg(t *testing.T, s string) packet.Packet {
	t.Helper()
	data, err := packet.Encode(s, packet.String())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return packet.Data(data, packet.String())
}

// TestFacadeAddItem runs the add-item half of S2 through the full stack:
// Facade -> Scheduler -> Router -> inmemory.Collection provider.
func TestFacadeAddItem(t *testing.T) {
	reg := provider.NewRegistry()
	reg.Register(inmemory.ProviderID, inmemory.New())

	sch := schematic.New("add-item-flow")
	sch.Signature.ComponentSignature = packet.ComponentSignature{
		Name: "add-item-flow",
		Inputs: []packet.PortSignature{
			{Name: "document_id", Type: packet.String()},
			{Name: "collection_id", Type: packet.String()},
			{Name: "document", Type: packet.String()},
		},
		Outputs: []packet.PortSignature{
			{Name: "document_id", Type: packet.String()},
		},
	}
	sch.Nodes["n1"] = schematic.Node{Provider: packet.NewProvider(inmemory.ProviderID), Component: "add-item"}
	sch.Edges = []schematic.Edge{
		{From: schematic.PortRef{Node: schematic.SchematicInput, Port: "document_id"}, To: schematic.PortRef{Node: "n1", Port: "document_id"}},
		{From: schematic.PortRef{Node: schematic.SchematicInput, Port: "collection_id"}, To: schematic.PortRef{Node: "n1", Port: "collection_id"}},
		{From: schematic.PortRef{Node: schematic.SchematicInput, Port: "document"}, To: schematic.PortRef{Node: "n1", Port: "document"}},
		{From: schematic.PortRef{Node: "n1", Port: "document_id"}, To: schematic.PortRef{Node: schematic.SchematicOutput, Port: "document_id"}},
	}

	f := network.New(reg)
	f.Register(sch)
	if err := f.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	ch, err := f.Request(context.Background(), "add-item-flow", packet.NewClient("test"), map[string]packet.Packet{
		"document_id":   strArg(t, "d1"),
		"collection_id": strArg(t, "c"),
		"document":      strArg(t, "x"),
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

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
	if v.(string) != "d1" {
		t.Fatalf("expected d1, got %v", v)
	}
	if got[1].Packet.Kind != packet.KindDone {
		t.Fatalf("expected trailing Done, got %+v", got[1])
	}
}

func TestFacadeRequestBeforeInit(t *testing.T) {
	reg := provider.NewRegistry()
	f := network.New(reg)
	f.Register(schematic.New("unused"))

	if _, err := f.Request(context.Background(), "unused", packet.NewClient("test"), nil); err == nil {
		t.Fatalf("expected error requesting before Init")
	}
}

func TestFacadeUnknownSchematic(t *testing.T) {
	reg := provider.NewRegistry()
	f := network.New(reg)
	if err := f.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := f.Request(context.Background(), "nope", packet.NewClient("test"), nil); err == nil {
		t.Fatalf("expected error for unknown schematic")
	}
}
