// Package game implements the authoritative coordination engine: the
// single-owner world state, the command queue it consumes, and the
// proximity grouping and turn progression rules.
package game

import (
	"github.com/delveworks/sessiond/internal/game/watch"
)

// PlayerID uniquely identifies a connected player for the life of the
// process. IDs are assigned by a monotonic counter and never reused.
type PlayerID uint64

// GroupID identifies a combat group.
type GroupID uint64

// GroupFrame is the value carried on a combat group's coalescing broadcast
// channel: the group turn number and the encoded bytes to forward.
type GroupFrame struct {
	Turn    uint64
	Payload []byte
}

// Command is a client-origin instruction consumed by the Coordinator.
// The originating PlayerID travels out-of-band on the queue envelope; the
// Coordinator trusts the channel's declared sender identity, never a
// client-asserted ID.
type Command interface {
	command()
}

// Wait declines to act this turn. Accepted, produces no state change; it
// exists so a client can explicitly pass without being treated as idle.
type Wait struct{}

// AddPlayer registers a new player. Outbox is the bounded unicast channel
// the Coordinator uses to reach the player's connection actor.
type AddPlayer struct {
	Outbox chan<- Event
}

// TimeoutPlayer reports that the player's connection has failed; the
// Coordinator removes the player from the world.
type TimeoutPlayer struct{}

// MoveTo reports a movement intent to the given world position.
type MoveTo struct {
	X int32
	Y int32
}

// Done reports that the player finished the given turn.
type Done struct {
	Turn int64
}

func (Wait) command()          {}
func (AddPlayer) command()     {}
func (TimeoutPlayer) command() {}
func (MoveTo) command()        {}
func (Done) command()          {}

// Envelope is one command queue entry: the declared sender plus the command.
type Envelope struct {
	From PlayerID
	Cmd  Command
}

// Event is a Coordinator-origin message delivered to one connection actor
// over its unicast channel.
type Event interface {
	event()
}

// Packets carries pre-encoded frames to write verbatim to the client.
type Packets struct {
	Data []byte
}

// JoinGroup tells the actor to start listening on the given combat group's
// broadcast channel.
type JoinGroup struct {
	Group GroupID
	Feed  *watch.Receiver[GroupFrame]
}

// Turn informs the actor of its player's new turn counter. Informational;
// the actor caches it locally.
type Turn struct {
	N int64
}

func (Packets) event()   {}
func (JoinGroup) event() {}
func (Turn) event()      {}
