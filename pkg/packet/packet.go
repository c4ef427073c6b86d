// Package packet implements spec.md §3's Packet tagged variant and §4.A's
// self-describing codec, plus the Entity and PortSignature types that
// address and type the ports packets travel between.
//
// The wire framing here (a leading kind byte driving a small recursive
// binary encoding) is the same shape as the teacher's own gob-encoded
// meshage.Message: a self-describing envelope decoded without an external
// schema. We hand-roll the recursive encoder instead of reusing gob
// because the codec's contract (§4.A) requires decode to surface a
// TypeError on tag mismatch rather than gob's best-effort coercion.
package packet

import "fmt"

// Kind is the tagged variant discriminant for a Packet.
type Kind int

const (
	KindData Kind = iota
	KindException
	KindError
	KindOpen
	KindClose
	KindDone
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "Data"
	case KindException:
		return "Exception"
	case KindError:
		return "Error"
	case KindOpen:
		return "Open"
	case KindClose:
		return "Close"
	case KindDone:
		return "Done"
	default:
		return "Invalid"
	}
}

// Packet is one unit of data or control flowing on a port for a single
// invocation. Exactly one of the fields below is meaningful, selected by
// Kind.
type Packet struct {
	Kind Kind

	// Data payload, set when Kind == KindData. Encoded with Encode/Decode
	// below; self-describing via an embedded kind tag.
	Data    []byte
	DataTag TypeTag

	// Message holds the text of an Exception or Error packet.
	Message string
}

func Data(raw []byte, tag TypeTag) Packet {
	return Packet{Kind: KindData, Data: raw, DataTag: tag}
}

func Exception(msg string) Packet { return Packet{Kind: KindException, Message: msg} }
func Error(msg string) Packet     { return Packet{Kind: KindError, Message: msg} }
func Open() Packet                { return Packet{Kind: KindOpen} }
func Close() Packet               { return Packet{Kind: KindClose} }
func Done() Packet                { return Packet{Kind: KindDone} }
func Invalid() Packet             { return Packet{Kind: KindInvalid} }

// AsError normalizes Invalid to Error("invalid") per spec.md §9 Open
// Question (b): "Invalid" is treated as Error by consumers.
func (p Packet) AsError() Packet {
	if p.Kind == KindInvalid {
		return Error("invalid")
	}
	return p
}

// Clone returns a value copy of p suitable for fan-out to multiple
// consumers; Data is copied so one consumer mutating its buffer can never
// affect another (spec.md §4.B "the packet is cloned by value").
func (p Packet) Clone() Packet {
	c := p
	if p.Data != nil {
		c.Data = append([]byte(nil), p.Data...)
	}
	return c
}

func (p Packet) String() string {
	switch p.Kind {
	case KindData:
		return fmt.Sprintf("Data(%s, %d bytes)", p.DataTag, len(p.Data))
	case KindException, KindError:
		return fmt.Sprintf("%s(%q)", p.Kind, p.Message)
	default:
		return p.Kind.String()
	}
}

// PortPacket pairs a packet with the output port name it was observed on,
// the unit every provider's invoke() stream yields (spec.md §4.C).
type PortPacket struct {
	Port   string
	Packet Packet
}
