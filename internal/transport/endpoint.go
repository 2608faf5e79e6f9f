// Package transport provides the QUIC listener that turns incoming
// connections into ordered bidirectional streams for the session layer.
// Connection establishment and encryption live here; everything above sees
// only a Stream and a remote address.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"
	"go.uber.org/zap"

	"github.com/delveworks/sessiond/internal/config"
)

// Stream is one client's ordered, reliable, encrypted byte stream.
type Stream interface {
	io.Reader
	io.Writer
	SetReadDeadline(t time.Time) error
	Close() error
}

// SessionHandler processes one accepted connection's stream. The handler
// owns the stream until it returns.
type SessionHandler interface {
	HandleSession(ctx context.Context, stream Stream, remote net.Addr, traceID string) error
}

// Endpoint listens for QUIC connections and dispatches each one's
// server-initiated bidirectional stream to a SessionHandler.
type Endpoint struct {
	cfg     config.ListenConfig
	handler SessionHandler
	logger  *zap.Logger

	listener *quic.Listener
	wg       sync.WaitGroup
	quit     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewEndpoint creates a QUIC endpoint with the given configuration.
//
// Precondition: cfg must validate; handler and logger must be non-nil.
// Postcondition: Returns an Endpoint ready to be started with
// ListenAndServe.
func NewEndpoint(cfg config.ListenConfig, handler SessionHandler, logger *zap.Logger) *Endpoint {
	return &Endpoint{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		quit:    make(chan struct{}),
	}
}

// ListenAndServe starts the QUIC listener and accepts connections until
// Stop is called. This method blocks until the endpoint is stopped.
//
// Precondition: The endpoint must not already be running.
// Postcondition: The listener is closed when this method returns.
func (e *Endpoint) ListenAndServe() error {
	start := time.Now()

	tlsConf, err := LoadTLS(e.cfg.CertFile, e.cfg.KeyFile, e.cfg.ALPN)
	if err != nil {
		return err
	}

	listener, err := quic.ListenAddr(e.cfg.Addr(), tlsConf, &quic.Config{
		MaxIdleTimeout: e.cfg.IdleTimeout,
	})
	if err != nil {
		return fmt.Errorf("listening on %s: %w", e.cfg.Addr(), err)
	}

	e.mu.Lock()
	e.listener = listener
	e.running = true
	e.mu.Unlock()

	e.logger.Info("quic endpoint listening",
		zap.String("addr", listener.Addr().String()),
		zap.Strings("alpn", e.cfg.ALPN),
		zap.Duration("startup", time.Since(start)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-e.quit
		cancel()
	}()

	for {
		conn, err := listener.Accept(ctx)
		if err != nil {
			select {
			case <-e.quit:
				return nil
			default:
				e.logger.Error("accepting connection", zap.Error(err))
				continue
			}
		}

		e.wg.Add(1)
		go e.handleConn(ctx, conn)
	}
}

// handleConn opens the session stream on a single accepted connection and
// runs the handler to completion.
func (e *Endpoint) handleConn(ctx context.Context, conn *quic.Conn) {
	defer e.wg.Done()
	start := time.Now()
	remote := conn.RemoteAddr()
	traceID := uuid.NewString()

	logger := e.logger.With(
		zap.String("remote_addr", remote.String()),
		zap.String("trace_id", traceID),
	)
	logger.Info("client connected")

	defer func() {
		_ = conn.CloseWithError(0, "")
	}()

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		logger.Error("opening bidirectional stream", zap.Error(err))
		return
	}
	defer stream.Close()

	if err := e.handler.HandleSession(ctx, stream, remote, traceID); err != nil {
		logger.Debug("session ended",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
	} else {
		logger.Info("session ended cleanly",
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// Stop gracefully stops the endpoint, closing the listener and waiting for
// all active sessions to finish.
//
// Postcondition: All connections are closed and goroutines have exited.
func (e *Endpoint) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false

	close(e.quit)
	if e.listener != nil {
		_ = e.listener.Close()
	}
	e.wg.Wait()

	e.logger.Info("quic endpoint stopped")
}

// Addr returns the actual listening address, or empty string if not yet
// listening.
func (e *Endpoint) Addr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener != nil {
		return e.listener.Addr().String()
	}
	return ""
}

// IsRunning returns whether the endpoint is currently accepting
// connections.
func (e *Endpoint) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}
