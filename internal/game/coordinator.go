package game

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/delveworks/sessiond/internal/wire"
)

// WellKnownGroup is the single combat-group slot used by proximity
// grouping. TODO: allocate a group per spatial cluster instead of one
// global slot.
const WellKnownGroup GroupID = 0

// defaultColorHint is the color argument of PlayerJoin announcements.
const defaultColorHint = 0xffffff

// ErrUnknownPlayer reports a command referencing a PlayerID absent from the
// world, which can happen when a command races the sender's own removal.
// The Coordinator discards such commands instead of failing the server.
var ErrUnknownPlayer = errors.New("game: unknown player")

// Options configures a Coordinator.
type Options struct {
	// Seed is the world seed sent in LevelInfo on join.
	Seed uint64
	// ProximityThreshold is the grouping distance; players strictly closer
	// than this are grouped.
	ProximityThreshold float64
	// QueueSize bounds the command queue. A full queue exerts backpressure
	// on connection actors, never the other way around.
	QueueSize int
	// AnnounceDepartures enables PlayerLeave broadcasts on removal.
	// Disabled by default; clients learn of departures out of band.
	AnnounceDepartures bool
}

func (o Options) withDefaults() Options {
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.ProximityThreshold <= 0 {
		o.ProximityThreshold = DefaultProximityThreshold
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	return o
}

// Defaults for Options fields left zero.
const (
	DefaultSeed               uint64  = 1767444506747788338
	DefaultProximityThreshold float64 = 3.0
	DefaultQueueSize                  = 128
)

// Coordinator is the sole mutator of world state. It pulls command
// envelopes from a bounded many-to-one queue and applies them strictly in
// arrival order: one command is fully processed, including its event
// fan-out, before the next is read.
type Coordinator struct {
	opts   Options
	logger *zap.Logger
	queue  chan Envelope
	state  *State
}

// NewCoordinator creates a Coordinator with an empty world.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a Coordinator ready to Run.
func NewCoordinator(opts Options, logger *zap.Logger) *Coordinator {
	opts = opts.withDefaults()
	return &Coordinator{
		opts:   opts,
		logger: logger,
		queue:  make(chan Envelope, opts.QueueSize),
		state:  NewState(),
	}
}

// Submit enqueues a command on behalf of the declared sender, blocking when
// the queue is full (backpressure on the caller) or until ctx is done.
//
// Postcondition: The command is queued FIFO relative to other Submit calls
// from the same goroutine, or ctx.Err() is returned.
func (c *Coordinator) Submit(ctx context.Context, from PlayerID, cmd Command) error {
	select {
	case c.queue <- Envelope{From: from, Cmd: cmd}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("submitting command for player %d: %w", from, ctx.Err())
	}
}

// Run consumes the command queue until ctx is cancelled. It is the only
// goroutine that touches the world state.
//
// Postcondition: Returns nil on cancellation; the queue is abandoned.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("coordinator running",
		zap.Uint64("seed", c.opts.Seed),
		zap.Float64("proximity_threshold", c.opts.ProximityThreshold),
	)
	for {
		select {
		case env := <-c.queue:
			c.apply(env)
		case <-ctx.Done():
			c.logger.Info("coordinator stopped",
				zap.Int("players", len(c.state.Players)),
			)
			return nil
		}
	}
}

// PlayerCount reports the number of players the Coordinator considers
// alive. Only meaningful from the Coordinator goroutine or in tests that
// drive apply directly.
func (c *Coordinator) PlayerCount() int {
	return len(c.state.Players)
}

// apply processes exactly one command against world state.
func (c *Coordinator) apply(env Envelope) {
	switch cmd := env.Cmd.(type) {
	case AddPlayer:
		c.addPlayer(env.From, cmd.Outbox)
	case TimeoutPlayer:
		c.removePlayer(env.From)
	case MoveTo:
		c.movePlayer(env.From, cmd.X, cmd.Y)
	case Done:
		c.finishTurn(env.From)
	case Wait:
		// Explicit decline to act. No state change.
	default:
		c.logger.Warn("discarding unknown command",
			zap.Uint64("player", uint64(env.From)),
		)
	}
}

// addPlayer inserts a new player at the origin and unicasts the join
// bundle: LevelInfo(seed) followed by one PlayerJoin per existing player.
// Existing players are deliberately not told about the newcomer; join
// announcements are one-directional in this protocol.
func (c *Coordinator) addPlayer(id PlayerID, outbox chan<- Event) {
	if _, exists := c.state.Players[id]; exists {
		c.logger.Warn("duplicate AddPlayer ignored",
			zap.Uint64("player", uint64(id)),
		)
		return
	}

	p := &Player{
		ID:     id,
		Turn:   0,
		Outbox: outbox,
	}

	// Insert first: the player is in the world even if the join bundle
	// cannot be built or delivered. A live actor with no world entry would
	// have every later command silently discarded.
	c.state.Players[id] = p
	c.logger.Info("player added",
		zap.Uint64("player", uint64(id)),
		zap.Int("players", len(c.state.Players)),
	)

	packet, err := wire.Append(nil, uint64(wire.OpLevelInfo), c.opts.Seed)
	if err == nil {
		for oid, other := range c.state.Players {
			if oid == id {
				continue
			}
			packet, err = wire.Append(packet,
				uint64(wire.OpPlayerJoin), uint64(oid), uint64(other.Turn), defaultColorHint)
			if err != nil {
				break
			}
		}
	}
	if err != nil {
		c.logger.Error("encoding join bundle",
			zap.Uint64("player", uint64(id)),
			zap.Error(err),
		)
		return
	}
	c.unicast(p, Packets{Data: packet})
}

// removePlayer drops the player from the world. The dangling outbox is
// discarded; the actor has already exited or is about to.
func (c *Coordinator) removePlayer(id PlayerID) {
	p, ok := c.state.Players[id]
	if !ok {
		c.logger.Warn("removal for unknown player discarded",
			zap.Uint64("player", uint64(id)),
			zap.Error(ErrUnknownPlayer),
		)
		return
	}

	if p.Group != nil {
		delete(c.state.group(*p.Group).Members, id)
	}
	delete(c.state.Players, id)
	c.logger.Info("player removed",
		zap.Uint64("player", uint64(id)),
		zap.Int("players", len(c.state.Players)),
	)

	if !c.opts.AnnounceDepartures {
		return
	}
	packet, err := wire.Encode(uint64(wire.OpPlayerLeave), uint64(id))
	if err != nil {
		c.logger.Error("encoding PlayerLeave", zap.Error(err))
		return
	}
	for _, other := range c.state.Players {
		c.unicast(other, Packets{Data: packet})
	}
}

// movePlayer updates the mover's position, fans the move out to every
// connected player (the mover included), then runs proximity grouping.
// The fan-out is atomic with respect to world state: all sends happen
// before the next queue item is read.
func (c *Coordinator) movePlayer(id PlayerID, x, y int32) {
	p, ok := c.state.Players[id]
	if !ok {
		c.logger.Warn("move for unknown player discarded",
			zap.Uint64("player", uint64(id)),
			zap.Error(ErrUnknownPlayer),
		)
		return
	}

	p.Pos.X = x
	p.Pos.Y = y
	p.Moved = true

	// Coordinates travel as u32; no sign extension.
	packet, err := wire.Encode(uint64(wire.OpMoveTo), uint64(id), uint64(uint32(x)), uint64(uint32(y)))
	if err != nil {
		c.logger.Error("encoding MoveTo broadcast", zap.Error(err))
		return
	}
	for _, other := range c.state.Players {
		c.unicast(other, Packets{Data: packet})
	}

	c.groupNearby(p)
}

// finishTurn advances the reporting player's turn counter and unicasts the
// new value back to that player only. Grouped players additionally get the
// turn published on their group's broadcast channel so lagging members can
// catch up to the latest turn.
func (c *Coordinator) finishTurn(id PlayerID) {
	p, ok := c.state.Players[id]
	if !ok {
		c.logger.Warn("turn report for unknown player discarded",
			zap.Uint64("player", uint64(id)),
			zap.Error(ErrUnknownPlayer),
		)
		return
	}

	p.Turn++
	c.unicast(p, Turn{N: p.Turn})

	if p.Group == nil {
		return
	}
	payload, err := wire.Encode(uint64(wire.OpTurn), uint64(p.Turn))
	if err != nil {
		c.logger.Error("encoding group Turn", zap.Error(err))
		return
	}
	c.state.group(*p.Group).Feed.Send(GroupFrame{
		Turn:    uint64(p.Turn),
		Payload: payload,
	})
}

// unicast delivers an event without ever stalling the Coordinator: a full
// outbox drops the event. The actor's disconnect path still works because
// TimeoutPlayer travels the command queue, not the outbox.
func (c *Coordinator) unicast(p *Player, ev Event) {
	select {
	case p.Outbox <- ev:
	default:
		c.logger.Warn("outbox full, dropping event",
			zap.Uint64("player", uint64(p.ID)),
		)
	}
}
