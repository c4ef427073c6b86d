package inmemory_test

import (
	"context"
	"testing"

	"wafl/pkg/packet"
	"wafl/pkg/provider/inmemory"
)

func drain(t *testing.T, ch <-chan packet.PortPacket) []packet.PortPacket {
	t.Helper()
	var out []packet.PortPacket
	for pp := range ch {
		out = append(out, pp)
	}
	return out
}

func strArg(t *testing.T, s string) packet.Packet {
	t.Helper()
	data, err := packet.Encode(s, packet.String())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return packet.Data(data, packet.String())
}

func decodeStr(t *testing.T, p packet.Packet) string {
	t.Helper()
	if p.Kind != packet.KindData {
		t.Fatalf("expected Data packet, got %s", p.Kind)
	}
	v, err := packet.Decode(p.Data, packet.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v.(string)
}

// TestAddGetList runs spec.md's S2 scenario: add two documents, list them,
// then fetch one back.
func TestAddGetList(t *testing.T) {
	c := inmemory.New()
	ctx := context.Background()
	target := func(name string) packet.Entity { return packet.NewComponent(name) }

	ch, err := c.Invoke(ctx, target("add-item"), map[string]packet.Packet{
		"document_id":   strArg(t, "d1"),
		"collection_id": strArg(t, "c"),
		"document":      strArg(t, "x"),
	})
	if err != nil {
		t.Fatalf("invoke add-item: %v", err)
	}
	out := drain(t, ch)
	if len(out) != 2 || decodeStr(t, out[0].Packet) != "d1" || out[1].Packet.Kind != packet.KindDone {
		t.Fatalf("unexpected add-item output: %+v", out)
	}

	ch, err = c.Invoke(ctx, target("add-item"), map[string]packet.Packet{
		"document_id":   strArg(t, "d2"),
		"collection_id": strArg(t, "c"),
		"document":      strArg(t, "y"),
	})
	if err != nil {
		t.Fatalf("invoke add-item: %v", err)
	}
	drain(t, ch)

	ch, err = c.Invoke(ctx, target("list-items"), map[string]packet.Packet{
		"collection_id": strArg(t, "c"),
	})
	if err != nil {
		t.Fatalf("invoke list-items: %v", err)
	}
	out = drain(t, ch)
	if len(out) != 2 {
		t.Fatalf("expected 2 packets, got %d", len(out))
	}
	ids, err := packet.Decode(out[0].Packet.Data, packet.List(packet.String()))
	if err != nil {
		t.Fatalf("decode ids: %v", err)
	}
	list := ids.([]interface{})
	if len(list) != 2 {
		t.Fatalf("expected 2 ids, got %v", list)
	}

	ch, err = c.Invoke(ctx, target("get-item"), map[string]packet.Packet{
		"document_id":   strArg(t, "d1"),
		"collection_id": strArg(t, "c"),
	})
	if err != nil {
		t.Fatalf("invoke get-item: %v", err)
	}
	out = drain(t, ch)
	if decodeStr(t, out[0].Packet) != "x" {
		t.Fatalf("expected document x, got %+v", out[0].Packet)
	}
}

func TestGetItemMissing(t *testing.T) {
	c := inmemory.New()
	ch, err := c.Invoke(context.Background(), packet.NewComponent("get-item"), map[string]packet.Packet{
		"document_id":   strArg(t, "nope"),
		"collection_id": strArg(t, "c"),
	})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	out := drain(t, ch)
	if out[0].Packet.Kind != packet.KindException {
		t.Fatalf("expected Exception, got %+v", out[0].Packet)
	}
}

func TestUnknownComponent(t *testing.T) {
	c := inmemory.New()
	if _, err := c.Invoke(context.Background(), packet.NewComponent("delete-item"), nil); err == nil {
		t.Fatalf("expected error for unknown component")
	}
}
