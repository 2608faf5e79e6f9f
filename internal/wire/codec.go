// Package wire implements the binary framing protocol: length-prefixed
// frames whose body is a MessagePack array of unsigned integers, the first
// being the opcode.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// MaxBodyLen is the largest encodable frame body. The length prefix is a
// 16-bit big-endian integer, so a body may not exceed 65535 bytes.
const MaxBodyLen = 0xFFFF

var (
	// ErrFrameTooLarge reports a frame body exceeding MaxBodyLen.
	ErrFrameTooLarge = errors.New("wire: frame body exceeds 65535 bytes")
	// ErrMalformedFrame reports a frame body that is not a well-formed
	// array-of-integers encoding. The connection may stay open; only
	// transport-level failures are fatal.
	ErrMalformedFrame = errors.New("wire: malformed frame")
)

// Append encodes values as one frame and appends it to dst, returning the
// extended slice. It is the batching primitive: callers build multi-frame
// packets (e.g. LevelInfo followed by PlayerJoin announcements) with
// repeated calls on the same buffer.
//
// Precondition: values must be non-empty; values[0] is the opcode.
// Postcondition: Returns dst with exactly one well-formed frame appended,
// or an error if the encoded body would not fit the 16-bit length prefix.
func Append(dst []byte, values ...uint64) ([]byte, error) {
	if len(values) == 0 {
		return dst, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}

	var body bytes.Buffer
	enc := msgpack.NewEncoder(&body)
	if err := enc.EncodeArrayLen(len(values)); err != nil {
		return dst, fmt.Errorf("encoding array header: %w", err)
	}
	for _, v := range values {
		if err := enc.EncodeUint(v); err != nil {
			return dst, fmt.Errorf("encoding value %d: %w", v, err)
		}
	}

	if body.Len() > MaxBodyLen {
		return dst, ErrFrameTooLarge
	}

	var prefix [2]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(body.Len()))
	dst = append(dst, prefix[:]...)
	return append(dst, body.Bytes()...), nil
}

// Encode encodes values as a single standalone frame.
//
// Precondition: values must be non-empty; values[0] is the opcode.
// Postcondition: Returns a complete frame (prefix + body) or an error.
func Encode(values ...uint64) ([]byte, error) {
	return Append(nil, values...)
}

// Decode reads exactly one frame from r: the 2-byte big-endian length,
// then exactly that many body bytes, then the MessagePack integer array.
// A declared length of L always consumes exactly L body bytes from the
// stream regardless of content.
//
// Read failures (EOF, short body) propagate as transport errors; a body
// that is not an array-of-integers encoding returns ErrMalformedFrame.
//
// Postcondition: Returns the decoded integer sequence (opcode first), or
// an error. Unknown opcodes are accepted here and rejected by the handler.
func Decode(r io.Reader) ([]int64, error) {
	var prefix [2]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("reading frame length: %w", err)
	}

	body := make([]byte, binary.BigEndian.Uint16(prefix[:]))
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("reading frame body: %w", err)
	}

	return DecodeBody(body)
}

// DecodeBody parses a frame body that has already been read off the stream.
//
// Postcondition: Returns the decoded integer sequence or ErrMalformedFrame.
func DecodeBody(body []byte) ([]int64, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(body))
	count, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: empty array", ErrMalformedFrame)
	}

	values := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		v, err := dec.DecodeInt64()
		if err != nil {
			return nil, fmt.Errorf("%w: element %d of %d: %v", ErrMalformedFrame, i, count, err)
		}
		values = append(values, v)
	}
	return values, nil
}
