package session

import (
	"context"
	"net"

	"go.uber.org/zap"

	"github.com/delveworks/sessiond/internal/transport"
)

// Gateway implements transport.SessionHandler: each accepted stream gets a
// fresh PlayerID and a connection actor that runs until disconnect.
type Gateway struct {
	registry *Registry
	sink     CommandSink
	opts     Options
	logger   *zap.Logger
}

// NewGateway creates a Gateway.
//
// Precondition: registry, sink, and logger must be non-nil.
func NewGateway(registry *Registry, sink CommandSink, opts Options, logger *zap.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		sink:     sink,
		opts:     opts,
		logger:   logger,
	}
}

// HandleSession runs one client session to completion.
//
// Postcondition: The session is released from the registry when the actor
// exits, for any reason.
func (g *Gateway) HandleSession(ctx context.Context, stream transport.Stream, remote net.Addr, traceID string) error {
	info := g.registry.Register(remote.String(), traceID)

	logger := g.logger.With(
		zap.Uint64("player", uint64(info.ID)),
		zap.String("trace_id", traceID),
	)
	logger.Info("session started", zap.String("remote_addr", info.RemoteAddr))

	actor := NewActor(info.ID, stream, g.sink, g.opts, logger)
	err := actor.Run(ctx)

	g.registry.Release(info.ID)
	logger.Info("session finished", zap.Int("live_sessions", g.registry.Count()))
	return err
}
