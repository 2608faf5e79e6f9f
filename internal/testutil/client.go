package testutil

import (
	"context"
	"crypto/tls"
	"testing"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/delveworks/sessiond/internal/wire"
)

// FrameClient is a QUIC test client speaking the length-prefixed msgpack
// frame protocol, for integration testing against a running endpoint.
type FrameClient struct {
	conn   *quic.Conn
	stream *quic.Stream
	t      *testing.T
}

// DialFrames connects to a server at addr and accepts the bidirectional
// stream the server opens for the session.
//
// Precondition: addr must be a valid "host:port" string with a listening
// server; the server's certificate is not verified.
// Postcondition: Returns a connected FrameClient or fails the test.
func DialFrames(t *testing.T, addr string, alpn []string) *FrameClient {
	t.Helper()
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tlsConf := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         alpn,
	}
	conn, err := quic.DialAddr(ctx, addr, tlsConf, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v [%s]", addr, err, time.Since(start))
	}
	t.Cleanup(func() {
		_ = conn.CloseWithError(0, "test done")
	})

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		t.Fatalf("accepting session stream from %s: %v", addr, err)
	}

	t.Logf("frame client connected to %s [%s]", addr, time.Since(start))
	return &FrameClient{conn: conn, stream: stream, t: t}
}

// Send encodes values as one frame and writes it to the session stream.
func (c *FrameClient) Send(values ...uint64) {
	c.t.Helper()
	frame, err := wire.Encode(values...)
	if err != nil {
		c.t.Fatalf("encoding frame %v: %v", values, err)
	}
	_ = c.stream.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := c.stream.Write(frame); err != nil {
		c.t.Fatalf("sending frame %v: %v", values, err)
	}
}

// Recv reads one frame from the session stream.
//
// Postcondition: Returns the decoded values or fails the test on timeout or
// a malformed frame.
func (c *FrameClient) Recv(timeout time.Duration) []int64 {
	c.t.Helper()
	_ = c.stream.SetReadDeadline(time.Now().Add(timeout))
	values, err := wire.Decode(c.stream)
	if err != nil {
		c.t.Fatalf("reading frame: %v", err)
	}
	return values
}

// Close tears the connection down immediately.
func (c *FrameClient) Close() {
	_ = c.conn.CloseWithError(0, "")
}
