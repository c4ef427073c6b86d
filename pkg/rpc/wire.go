// Package rpc implements spec.md §4.D's RPC Transport: a server that
// exposes one Provider over the network, and a client that implements the
// same provider.Provider contract against a remote server.
//
// Wire framing is gob over a github.com/xtaci/smux stream, one stream per
// invocation, grounded on the teacher's internal/meshage client (gob.Encoder
// /gob.Decoder directly over net.Conn). smux replaces meshage's one-conn-
// per-peer model with one multiplexed session per server address so many
// concurrent invocations share a single TCP connection without meshage's
// own store-and-forward routing, which this transport doesn't need.
package rpc

import "wafl/pkg/packet"

// request is the single message that opens an invocation (spec.md §4.D
// "one Invocation message").
type request struct {
	Component string
	Payload   map[string]packet.Packet
}

// frame is one entry in the response stream (spec.md §4.D "OutputKind").
// Packet already carries Kind/Data/DataTag/Message, so frame only adds the
// port it arrived on; the teacher's meshage.Message plays the same role of
// "self-describing envelope already shaped like its payload".
type frame struct {
	Port   string
	Packet packet.Packet
}
