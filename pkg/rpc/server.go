package rpc

import (
	"context"
	"encoding/gob"
	"io"
	"net"

	"github.com/xtaci/smux"

	"wafl/pkg/packet"
	"wafl/pkg/provider"
	"wafl/pkg/wlog"
)

const (
	opInvoke byte = iota + 1
	opList
	opStats
)

// Server exposes one Provider over the network (spec.md §4.D "Server").
// Each accepted connection becomes one smux session; each invocation opens
// its own stream within that session, so concurrent invocations never
// share state unless the provider itself introduces it.
type Server struct {
	provider provider.Provider
	log      *wlog.NamedLogger
}

func NewServer(p provider.Provider) *Server {
	return &Server{provider: p, log: wlog.Named("rpc.server")}
}

// Serve accepts connections on ln until it is closed or returns an error.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	sess, err := smux.Server(conn, smux.DefaultConfig())
	if err != nil {
		s.log.Error("smux handshake: %v", err)
		conn.Close()
		return
	}
	defer sess.Close()

	for {
		stream, err := sess.AcceptStream()
		if err != nil {
			if err != io.EOF {
				s.log.Debug("session closed: %v", err)
			}
			return
		}
		go s.handleStream(stream)
	}
}

func (s *Server) handleStream(stream *smux.Stream) {
	defer stream.Close()

	var op [1]byte
	if _, err := io.ReadFull(stream, op[:]); err != nil {
		s.log.Error("read op: %v", err)
		return
	}

	dec := gob.NewDecoder(stream)
	enc := gob.NewEncoder(stream)

	switch op[0] {
	case opInvoke:
		s.handleInvoke(dec, enc)
	case opList:
		enc.Encode(s.provider.List())
	case opStats:
		var id string
		if err := dec.Decode(&id); err != nil {
			s.log.Error("decode stats id: %v", err)
			return
		}
		enc.Encode(s.provider.Stats(id))
	default:
		s.log.Error("unknown rpc op %d", op[0])
	}
}

func (s *Server) handleInvoke(dec *gob.Decoder, enc *gob.Encoder) {
	var req request
	if err := dec.Decode(&req); err != nil {
		s.log.Error("decode request: %v", err)
		return
	}

	stream, err := s.provider.Invoke(context.Background(), packet.NewComponent(req.Component), req.Payload)
	if err != nil {
		enc.Encode(frame{Packet: packet.Error(err.Error())})
		return
	}

	for pp := range stream {
		if err := enc.Encode(frame{Port: pp.Port, Packet: pp.Packet}); err != nil {
			return
		}
	}
}
