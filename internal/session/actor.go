package session

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/delveworks/sessiond/internal/game"
	"github.com/delveworks/sessiond/internal/game/watch"
	"github.com/delveworks/sessiond/internal/wire"
)

// Stream is the bidirectional byte stream a connection actor owns. The
// transport layer guarantees ordered, reliable delivery; the actor never
// sees connection establishment or encryption.
type Stream interface {
	io.Reader
	io.Writer
}

// deadlineStream is implemented by streams that support read deadlines
// (QUIC streams do). The actor uses it only when a read timeout is
// configured.
type deadlineStream interface {
	SetReadDeadline(t time.Time) error
}

// CommandSink accepts commands on behalf of a declared sender. The
// Coordinator implements it; its bounded queue exerts backpressure on the
// actor, never the other way around.
type CommandSink interface {
	Submit(ctx context.Context, from game.PlayerID, cmd game.Command) error
}

// Options configures a connection actor.
type Options struct {
	// OutboxSize bounds the unicast channel from the Coordinator.
	OutboxSize int
	// ReadTimeout bounds each frame read. Zero keeps the steady-state
	// behavior of waiting indefinitely for client input; a positive value
	// synthesizes a disconnect when the client stalls.
	ReadTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.OutboxSize <= 0 {
		o.OutboxSize = 128
	}
	return o
}

// Actor owns one client's stream pair and bridges socket I/O to the
// command/event channels. It multiplexes server-origin events, the combat
// group feed once joined, and a single in-flight frame read; ties between
// the cases are broken arbitrarily, not by priority.
type Actor struct {
	id     game.PlayerID
	stream Stream
	sink   CommandSink
	opts   Options
	logger *zap.Logger

	outbox chan game.Event
	feed   *watch.Receiver[game.GroupFrame]
	turn   int64
}

// readResult is one completed frame read: decoded values or a fatal
// transport error. Malformed frame bodies are dropped before this point.
type readResult struct {
	values []int64
	err    error
}

// NewActor creates an actor for an accepted stream.
//
// Precondition: stream, sink, and logger must be non-nil; id must come from
// the Registry.
// Postcondition: Returns an Actor ready to Run once.
func NewActor(id game.PlayerID, stream Stream, sink CommandSink, opts Options, logger *zap.Logger) *Actor {
	opts = opts.withDefaults()
	return &Actor{
		id:     id,
		stream: stream,
		sink:   sink,
		opts:   opts,
		logger: logger,
		outbox: make(chan game.Event, opts.OutboxSize),
	}
}

// Run registers the player, writes the YouAre greeting, and services the
// connection until it fails or ctx is cancelled. Any read or write failure
// is reported to the Coordinator as TimeoutPlayer before returning; the
// client is never sent an explicit error frame.
//
// Postcondition: The player has been removed from the world (via
// TimeoutPlayer) unless ctx was cancelled first.
func (a *Actor) Run(ctx context.Context) error {
	// Session-scoped context: the reader goroutine's pending result send
	// must unblock when this method returns for any reason, not only at
	// server shutdown.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.sink.Submit(ctx, a.id, game.AddPlayer{Outbox: a.outbox}); err != nil {
		return err
	}

	greeting, err := wire.Encode(uint64(wire.OpYouAre), uint64(a.id))
	if err != nil {
		return err
	}
	if _, err := a.stream.Write(greeting); err != nil {
		a.reportTimeout(ctx)
		return nil
	}

	a.logger.Debug("actor loop starting", zap.Uint64("player", uint64(a.id)))

	reads := make(chan readResult)
	go a.readFrames(ctx, reads)

	for {
		var feedCh <-chan struct{}
		if a.feed != nil {
			feedCh = a.feed.Changed()
		}

		select {
		case <-ctx.Done():
			a.reportTimeout(context.Background())
			return ctx.Err()

		case ev := <-a.outbox:
			if err := a.handleEvent(ev); err != nil {
				a.logger.Warn("write failed",
					zap.Uint64("player", uint64(a.id)),
					zap.Error(err),
				)
				a.reportTimeout(ctx)
				return nil
			}

		case <-feedCh:
			frame, fresh := a.feed.Latest()
			if !fresh || len(frame.Payload) == 0 {
				continue
			}
			a.turn = int64(frame.Turn)
			if _, err := a.stream.Write(frame.Payload); err != nil {
				a.reportTimeout(ctx)
				return nil
			}

		case res := <-reads:
			if res.err != nil {
				a.logger.Debug("read failed, disconnecting",
					zap.Uint64("player", uint64(a.id)),
					zap.Error(res.err),
				)
				a.reportTimeout(ctx)
				return nil
			}
			cmd := decodeCommand(res.values)
			if cmd == nil {
				continue
			}
			if err := a.sink.Submit(ctx, a.id, cmd); err != nil {
				return err
			}
		}
	}
}

// readFrames keeps exactly one frame read in flight, delivering decoded
// frames in order. Malformed bodies are dropped without ending the
// connection; transport failures (including a bad length prefix read and
// read deadline expiry) are delivered once and end the loop.
func (a *Actor) readFrames(ctx context.Context, reads chan<- readResult) {
	for {
		if a.opts.ReadTimeout > 0 {
			if ds, ok := a.stream.(deadlineStream); ok {
				_ = ds.SetReadDeadline(time.Now().Add(a.opts.ReadTimeout))
			}
		}

		values, err := wire.Decode(a.stream)
		if err != nil {
			if errors.Is(err, wire.ErrMalformedFrame) {
				a.logger.Debug("dropping malformed frame",
					zap.Uint64("player", uint64(a.id)),
					zap.Error(err),
				)
				continue
			}
			select {
			case reads <- readResult{err: err}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case reads <- readResult{values: values}:
		case <-ctx.Done():
			return
		}
	}
}

// handleEvent applies one Coordinator-origin event. Only Packets touches
// the socket; returned errors are write failures and fatal to the session.
func (a *Actor) handleEvent(ev game.Event) error {
	switch ev := ev.(type) {
	case game.Packets:
		if len(ev.Data) == 0 {
			return nil
		}
		_, err := a.stream.Write(ev.Data)
		return err
	case game.JoinGroup:
		a.feed = ev.Feed
		a.logger.Debug("joined combat group",
			zap.Uint64("player", uint64(a.id)),
			zap.Uint64("group", uint64(ev.Group)),
		)
		return nil
	case game.Turn:
		a.turn = ev.N
		return nil
	default:
		return nil
	}
}

// reportTimeout tells the Coordinator this connection is gone. Best effort:
// the actor is exiting either way.
func (a *Actor) reportTimeout(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.sink.Submit(ctx, a.id, game.TimeoutPlayer{}); err != nil {
		a.logger.Warn("failed to report disconnect",
			zap.Uint64("player", uint64(a.id)),
			zap.Error(err),
		)
	}
}

// decodeCommand maps a decoded frame to a domain command. Unknown opcodes
// and short argument lists produce nil: the frame is dropped and the
// connection stays open.
func decodeCommand(values []int64) game.Command {
	if len(values) == 0 {
		return nil
	}
	switch wire.Opcode(values[0]) {
	case wire.OpMoveTo:
		if len(values) < 3 {
			return nil
		}
		return game.MoveTo{X: int32(values[1]), Y: int32(values[2])}
	case wire.OpPass:
		return game.Wait{}
	case wire.OpTurn:
		// Reserved for a future turn acknowledgement; ignored today.
		return nil
	default:
		return nil
	}
}
