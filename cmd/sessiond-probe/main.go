// Package main provides a development probe client: it connects to a
// running session server, prints every frame the server sends, and can
// issue moves, making protocol changes observable without a game client.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/delveworks/sessiond/internal/wire"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "server address")
	alpn := flag.String("alpn", "h3", "ALPN protocol")
	moves := flag.String("moves", "", "semicolon-separated x,y moves to send, e.g. \"1,1;2,3\"")
	interval := flag.Duration("interval", 500*time.Millisecond, "delay between moves")
	linger := flag.Duration("linger", 3*time.Second, "how long to keep reading after the last move")
	flag.Parse()

	targets, err := parseMoves(*moves)
	if err != nil {
		log.Fatalf("parsing -moves: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	conn, err := quic.DialAddr(ctx, *addr, &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{*alpn},
	}, nil)
	cancel()
	if err != nil {
		log.Fatalf("dialing %s: %v", *addr, err)
	}
	defer conn.CloseWithError(0, "probe done")

	acceptCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	stream, err := conn.AcceptStream(acceptCtx)
	cancel()
	if err != nil {
		log.Fatalf("accepting session stream: %v", err)
	}
	fmt.Printf("connected to %s\n", *addr)

	// Print incoming frames until the stream dies.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			values, err := wire.Decode(stream)
			if err != nil {
				fmt.Printf("stream closed: %v\n", err)
				return
			}
			printFrame(values)
		}
	}()

	for _, mv := range targets {
		time.Sleep(*interval)
		frame, err := wire.Encode(uint64(wire.OpMoveTo), uint64(mv[0]), uint64(mv[1]))
		if err != nil {
			log.Fatalf("encoding move: %v", err)
		}
		if _, err := stream.Write(frame); err != nil {
			log.Fatalf("sending move: %v", err)
		}
		fmt.Printf("-> MoveTo(%d, %d)\n", mv[0], mv[1])
	}

	select {
	case <-done:
	case <-time.After(*linger):
	}
}

// parseMoves turns "1,1;2,3" into coordinate pairs.
func parseMoves(s string) ([][2]int64, error) {
	if s == "" {
		return nil, nil
	}
	var out [][2]int64
	for _, pair := range strings.Split(s, ";") {
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("move %q: want x,y", pair)
		}
		x, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("move %q: %w", pair, err)
		}
		y, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("move %q: %w", pair, err)
		}
		out = append(out, [2]int64{x, y})
	}
	return out, nil
}

func printFrame(values []int64) {
	if len(values) == 0 {
		return
	}
	op := wire.Opcode(values[0])
	args := values[1:]
	fmt.Printf("<- %s%v\n", op, args)
}
