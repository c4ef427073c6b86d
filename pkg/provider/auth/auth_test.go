package auth_test

import (
	"context"
	"testing"

	"wafl/pkg/packet"
	"wafl/pkg/provider/auth"
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

// TestAuthFlow runs spec.md's S3 scenario end to end.
func TestAuthFlow(t *testing.T) {
	a := auth.New()
	ctx := context.Background()

	ch, err := a.Invoke(ctx, packet.NewComponent("create-user"), map[string]packet.Packet{
		"username": strArg(t, "jane"),
		"user_id":  strArg(t, "u1"),
		"password": strArg(t, "p"),
	})
	if err != nil {
		t.Fatalf("invoke create-user: %v", err)
	}
	out := drain(t, ch)
	if decodeStr(t, out[0].Packet) != "u1" {
		t.Fatalf("expected u1, got %+v", out[0].Packet)
	}

	ch, err = a.Invoke(ctx, packet.NewComponent("authenticate"), map[string]packet.Packet{
		"username":   strArg(t, "jane"),
		"password":   strArg(t, "p"),
		"session_id": strArg(t, "sess"),
	})
	if err != nil {
		t.Fatalf("invoke authenticate: %v", err)
	}
	out = drain(t, ch)
	if decodeStr(t, out[0].Packet) != "sess" {
		t.Fatalf("expected sess, got %+v", out[0].Packet)
	}

	ch, err = a.Invoke(ctx, packet.NewComponent("validate-session"), map[string]packet.Packet{
		"session_id": strArg(t, "sess"),
	})
	if err != nil {
		t.Fatalf("invoke validate-session: %v", err)
	}
	out = drain(t, ch)
	if decodeStr(t, out[0].Packet) != "u1" {
		t.Fatalf("expected u1, got %+v", out[0].Packet)
	}

	ch, err = a.Invoke(ctx, packet.NewComponent("has-permission"), map[string]packet.Packet{
		"user_id":    strArg(t, "u1"),
		"permission": strArg(t, "nope"),
	})
	if err != nil {
		t.Fatalf("invoke has-permission: %v", err)
	}
	out = drain(t, ch)
	if out[0].Packet.Kind != packet.KindException && out[0].Packet.Kind != packet.KindError {
		t.Fatalf("expected Exception or Error, got %+v", out[0].Packet)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	a := auth.New()
	ctx := context.Background()

	drain(t, mustInvoke(t, a, ctx, "create-user", map[string]packet.Packet{
		"username": strArg(t, "jane"),
		"user_id":  strArg(t, "u1"),
		"password": strArg(t, "p"),
	}))

	out := drain(t, mustInvoke(t, a, ctx, "authenticate", map[string]packet.Packet{
		"username":   strArg(t, "jane"),
		"password":   strArg(t, "wrong"),
		"session_id": strArg(t, "sess"),
	}))
	if out[0].Packet.Kind != packet.KindException {
		t.Fatalf("expected Exception for wrong password, got %+v", out[0].Packet)
	}
}

func TestGrantPermission(t *testing.T) {
	a := auth.New()
	ctx := context.Background()

	drain(t, mustInvoke(t, a, ctx, "create-user", map[string]packet.Packet{
		"username": strArg(t, "jane"),
		"user_id":  strArg(t, "u1"),
		"password": strArg(t, "p"),
	}))
	drain(t, mustInvoke(t, a, ctx, "grant-permission", map[string]packet.Packet{
		"user_id":    strArg(t, "u1"),
		"permission": strArg(t, "read"),
	}))

	out := drain(t, mustInvoke(t, a, ctx, "has-permission", map[string]packet.Packet{
		"user_id":    strArg(t, "u1"),
		"permission": strArg(t, "read"),
	}))
	if out[0].Packet.Kind != packet.KindData {
		t.Fatalf("expected Data(true), got %+v", out[0].Packet)
	}
}

func mustInvoke(t *testing.T, a *auth.Auth, ctx context.Context, name string, payload map[string]packet.Packet) <-chan packet.PortPacket {
	t.Helper()
	ch, err := a.Invoke(ctx, packet.NewComponent(name), payload)
	if err != nil {
		t.Fatalf("invoke %s: %v", name, err)
	}
	return ch
}
