package schematic

import (
	"time"

	"github.com/google/uuid"

	"wafl/pkg/packet"
)

// Invocation is the immutable record of one concrete execution (spec.md
// §3). Its lifetime is the invocation: it is destroyed when the output
// stream terminates.
type Invocation struct {
	ID        string
	Origin    packet.Entity
	Target    packet.Entity
	Payload   map[string]packet.Packet
	NetworkID string

	// Deadline is the wall-clock point past which the scheduler cancels
	// the invocation and emits Error("timeout") (spec.md §4.F).
	Deadline time.Time
}

const DefaultTimeout = 5 * time.Second

// NewInvocation mints a fresh invocation id using a real UUID rather than
// a process-local counter — unlike the teacher's meshage sequence numbers
// or ron command ids, which are only unique within one mesh node, an
// Invocation's id must stay unique if it is ever compared across
// processes (e.g. logged by both a scheduler and a remote RPC provider).
func NewInvocation(origin, target packet.Entity, payload map[string]packet.Packet, networkID string, timeout time.Duration) Invocation {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return Invocation{
		ID:        uuid.NewString(),
		Origin:    origin,
		Target:    target,
		Payload:   payload,
		NetworkID: networkID,
		Deadline:  time.Now().Add(timeout),
	}
}
