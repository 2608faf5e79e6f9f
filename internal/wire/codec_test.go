package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"pgregory.net/rapid"
)

func TestEncode_PrefixMatchesBody(t *testing.T) {
	frame, err := Encode(uint64(OpYouAre), 7)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(frame), 2)

	declared := binary.BigEndian.Uint16(frame[:2])
	assert.Equal(t, int(declared), len(frame)-2)
}

func TestEncode_Empty(t *testing.T) {
	_, err := Encode()
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecode_RoundTrip(t *testing.T) {
	frame, err := Encode(uint64(OpMoveTo), 12, 34)
	require.NoError(t, err)

	values, err := Decode(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, []int64{int64(OpMoveTo), 12, 34}, values)
}

func TestPropertyRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 32).Draw(t, "count")
		values := make([]uint64, n)
		for i := range values {
			// Arguments are bounded by what a JS-adjacent client can
			// represent exactly.
			values[i] = rapid.Uint64Range(0, 1<<53).Draw(t, "value")
		}

		frame, err := Encode(values...)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}

		decoded, err := Decode(bytes.NewReader(frame))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(decoded) != len(values) {
			t.Fatalf("got %d values, want %d", len(decoded), len(values))
		}
		for i, v := range values {
			if uint64(decoded[i]) != v {
				t.Fatalf("value %d: got %d, want %d", i, decoded[i], v)
			}
		}
	})
}

func TestPropertyDecodeConsumesDeclaredLength(t *testing.T) {
	// A declared length of L must consume exactly L body bytes regardless
	// of whether the body parses.
	rapid.Check(t, func(t *rapid.T) {
		body := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(t, "body")
		trailer := rapid.SliceOfN(rapid.Byte(), 1, 16).Draw(t, "trailer")

		var stream bytes.Buffer
		var prefix [2]byte
		binary.BigEndian.PutUint16(prefix[:], uint16(len(body)))
		stream.Write(prefix[:])
		stream.Write(body)
		stream.Write(trailer)

		_, _ = Decode(&stream)
		if stream.Len() != len(trailer) {
			t.Fatalf("stream has %d bytes left, want the %d trailer bytes", stream.Len(), len(trailer))
		}
	})
}

func TestDecode_TruncatedBody(t *testing.T) {
	// Length prefix declares 5 bytes but only 3 follow before the stream
	// closes: this is a transport error, not a malformed frame.
	stream := bytes.NewReader([]byte{0x00, 0x05, 0x01, 0x02, 0x03})
	_, err := Decode(stream)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedFrame)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecode_NonArrayHeader(t *testing.T) {
	var body bytes.Buffer
	enc := msgpack.NewEncoder(&body)
	require.NoError(t, enc.EncodeString("not an array"))

	var stream bytes.Buffer
	var prefix [2]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(body.Len()))
	stream.Write(prefix[:])
	stream.Write(body.Bytes())

	_, err := Decode(&stream)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecode_FewerElementsThanDeclared(t *testing.T) {
	var body bytes.Buffer
	enc := msgpack.NewEncoder(&body)
	require.NoError(t, enc.EncodeArrayLen(3))
	require.NoError(t, enc.EncodeUint(1))

	var stream bytes.Buffer
	var prefix [2]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(body.Len()))
	stream.Write(prefix[:])
	stream.Write(body.Bytes())

	_, err := Decode(&stream)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecode_EmptyArray(t *testing.T) {
	var body bytes.Buffer
	enc := msgpack.NewEncoder(&body)
	require.NoError(t, enc.EncodeArrayLen(0))

	var stream bytes.Buffer
	var prefix [2]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(body.Len()))
	stream.Write(prefix[:])
	stream.Write(body.Bytes())

	_, err := Decode(&stream)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestEncode_FrameTooLarge(t *testing.T) {
	// Each max-width uint encodes to 9 body bytes; 8000 of them exceed the
	// 16-bit length prefix.
	values := make([]uint64, 8000)
	for i := range values {
		values[i] = 1 << 52
	}
	_, err := Encode(values...)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestAppend_BatchesFrames(t *testing.T) {
	packet, err := Append(nil, uint64(OpLevelInfo), 42)
	require.NoError(t, err)
	packet, err = Append(packet, uint64(OpPlayerJoin), 0, 0, 0xffffff)
	require.NoError(t, err)

	stream := bytes.NewReader(packet)

	first, err := Decode(stream)
	require.NoError(t, err)
	assert.Equal(t, []int64{int64(OpLevelInfo), 42}, first)

	second, err := Decode(stream)
	require.NoError(t, err)
	assert.Equal(t, []int64{int64(OpPlayerJoin), 0, 0, 0xffffff}, second)

	assert.Zero(t, stream.Len())
}

func TestOpcode_String(t *testing.T) {
	assert.Equal(t, "MoveTo", OpMoveTo.String())
	assert.Equal(t, "PlaceTile", OpPlaceTile.String())
	assert.Equal(t, "Unknown", Opcode(99).String())
}
