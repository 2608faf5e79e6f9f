package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/delveworks/sessiond/internal/config"
	"github.com/delveworks/sessiond/internal/game"
	"github.com/delveworks/sessiond/internal/testutil"
	"github.com/delveworks/sessiond/internal/transport"
	"github.com/delveworks/sessiond/internal/wire"
)

// startTestServer brings up the full stack on a loopback port: coordinator,
// registry, gateway, and QUIC endpoint. Returns the listen address.
func startTestServer(t *testing.T) string {
	t.Helper()
	logger := zaptest.NewLogger(t)

	coordinator := game.NewCoordinator(game.Options{}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	coordDone := make(chan error, 1)
	go func() { coordDone <- coordinator.Run(ctx) }()

	certFile, keyFile := testutil.WriteSelfSignedCert(t)
	gateway := NewGateway(NewRegistry(), coordinator, Options{}, logger)
	endpoint := transport.NewEndpoint(config.ListenConfig{
		Host:        "127.0.0.1",
		Port:        0,
		CertFile:    certFile,
		KeyFile:     keyFile,
		ALPN:        []string{"h3"},
		IdleTimeout: time.Minute,
	}, gateway, logger)

	epDone := make(chan error, 1)
	go func() { epDone <- endpoint.ListenAndServe() }()

	deadline := time.After(5 * time.Second)
	for !endpoint.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("endpoint never started listening")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	t.Cleanup(func() {
		endpoint.Stop()
		cancel()
		select {
		case <-epDone:
		case <-time.After(5 * time.Second):
			t.Error("endpoint did not stop")
		}
		<-coordDone
	})
	return endpoint.Addr()
}

func TestGateway_SessionEndToEnd(t *testing.T) {
	addr := startTestServer(t)

	a := testutil.DialFrames(t, addr, []string{"h3"})

	// Greeting, then level info. An empty world means no join announcements.
	require.Equal(t, []int64{int64(wire.OpYouAre), 0}, a.Recv(5*time.Second))
	levelInfo := a.Recv(5 * time.Second)
	require.Len(t, levelInfo, 2)
	assert.Equal(t, int64(wire.OpLevelInfo), levelInfo[0])
	assert.Equal(t, int64(game.DefaultSeed), levelInfo[1])

	// A move fans out to every player, the mover included.
	a.Send(uint64(wire.OpMoveTo), 2, 3)
	assert.Equal(t, []int64{int64(wire.OpMoveTo), 0, 2, 3}, a.Recv(5*time.Second))
}

func TestGateway_SecondPlayerSeesFirst(t *testing.T) {
	addr := startTestServer(t)

	a := testutil.DialFrames(t, addr, []string{"h3"})
	require.Equal(t, []int64{int64(wire.OpYouAre), 0}, a.Recv(5*time.Second))
	a.Recv(5 * time.Second) // level info

	b := testutil.DialFrames(t, addr, []string{"h3"})
	require.Equal(t, []int64{int64(wire.OpYouAre), 1}, b.Recv(5*time.Second))
	levelInfo := b.Recv(5 * time.Second)
	assert.Equal(t, int64(wire.OpLevelInfo), levelInfo[0])

	// The newcomer is told about the existing player; the reverse
	// announcement does not happen.
	join := b.Recv(5 * time.Second)
	assert.Equal(t, []int64{int64(wire.OpPlayerJoin), 0, 0, 0xffffff}, join)

	// Both receive the move fan-out once B moves.
	b.Send(uint64(wire.OpMoveTo), 1, 1)
	assert.Equal(t, []int64{int64(wire.OpMoveTo), 1, 1, 1}, a.Recv(5*time.Second))
	assert.Equal(t, []int64{int64(wire.OpMoveTo), 1, 1, 1}, b.Recv(5*time.Second))
}
