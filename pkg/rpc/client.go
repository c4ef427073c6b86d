package rpc

import (
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/xtaci/smux"

	"wafl/pkg/packet"
	"wafl/pkg/provider"
	"wafl/pkg/waflerr"
)

// Client implements provider.Provider against a remote Server, so the
// scheduler treats a remote component exactly like a local one (spec.md
// §4.D "Client ... exposes the same provider contract over the wire").
// One smux session is kept open per Client and shared across calls,
// grounded on the teacher's meshage client: one persistent net.Conn per
// peer, reused for every message rather than reconnecting per call.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	sess *smux.Session
	addr string
}

func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, &waflerr.TransportError{Cause: err}
	}
	sess, err := smux.Client(conn, smux.DefaultConfig())
	if err != nil {
		conn.Close()
		return nil, &waflerr.TransportError{Cause: err}
	}
	return &Client{conn: conn, sess: sess, addr: addr}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.Close()
}

func (c *Client) openStream() (*smux.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess.IsClosed() {
		return nil, &waflerr.TransportError{Cause: fmt.Errorf("session to %s closed", c.addr)}
	}
	stream, err := c.sess.OpenStream()
	if err != nil {
		return nil, &waflerr.TransportError{Cause: err}
	}
	return stream, nil
}

// Invoke satisfies provider.Provider, translating transport failures into
// waflerr.ProviderError so callers treat them the same as any in-process
// provider failure (spec.md §4.D "the client MUST surface transport errors
// as ProviderError").
func (c *Client) Invoke(ctx context.Context, target packet.Entity, payload map[string]packet.Packet) (<-chan packet.PortPacket, error) {
	stream, err := c.openStream()
	if err != nil {
		return nil, &waflerr.ProviderError{Message: err.Error()}
	}

	if _, err := stream.Write([]byte{opInvoke}); err != nil {
		stream.Close()
		return nil, &waflerr.ProviderError{Message: err.Error()}
	}
	enc := gob.NewEncoder(stream)
	if err := enc.Encode(request{Component: target.Name, Payload: payload}); err != nil {
		stream.Close()
		return nil, &waflerr.ProviderError{Message: err.Error()}
	}

	out := make(chan packet.PortPacket, 16)
	go func() {
		defer close(out)
		defer stream.Close()

		dec := gob.NewDecoder(stream)
		for {
			var fr frame
			if err := dec.Decode(&fr); err != nil {
				if err != io.EOF {
					out <- packet.PortPacket{Packet: packet.Error(err.Error())}
				}
				return
			}
			select {
			case out <- packet.PortPacket{Port: fr.Port, Packet: fr.Packet}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (c *Client) List() []provider.HostedType {
	stream, err := c.openStream()
	if err != nil {
		return nil
	}
	defer stream.Close()

	if _, err := stream.Write([]byte{opList}); err != nil {
		return nil
	}
	var out []provider.HostedType
	gob.NewDecoder(stream).Decode(&out)
	return out
}

func (c *Client) Stats(id string) []provider.Stat {
	stream, err := c.openStream()
	if err != nil {
		return nil
	}
	defer stream.Close()

	if _, err := stream.Write([]byte{opStats}); err != nil {
		return nil
	}
	if err := gob.NewEncoder(stream).Encode(id); err != nil {
		return nil
	}
	var out []provider.Stat
	gob.NewDecoder(stream).Decode(&out)
	return out
}
