package http1

import (
	"errors"
	"io"
	"strings"
	"syscall"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReader returns one scripted result per Read call.
type scriptedReader struct {
	steps []readStep
}

type readStep struct {
	data string
	err  error
}

func (r *scriptedReader) Read(p []byte) (int, error) {
	if len(r.steps) == 0 {
		return 0, io.EOF
	}
	step := r.steps[0]
	n := copy(p, step.data)
	if n < len(step.data) {
		r.steps[0].data = step.data[n:]
		return n, nil
	}
	r.steps = r.steps[1:]
	return n, step.err
}

func TestReadHeaderBlock(t *testing.T) {
	input := "GET / HTTP/1.1\r\nHost: x\r\n\r\nBODY"

	block, rest, err := ReadHeaderBlock(strings.NewReader(input), nil, 1024, 1024)
	require.NoError(t, err)
	assert.Equal(t, "GET / HTTP/1.1\r\nHost: x\r\n\r\n", string(block))
	assert.Equal(t, "BODY", string(rest))
}

func TestReadHeaderBlockOneByteReads(t *testing.T) {
	input := "GET /slow HTTP/1.1\r\nHost: x\r\n\r\n"

	block, rest, err := ReadHeaderBlock(iotest.OneByteReader(strings.NewReader(input)), nil, 1024, 1024)
	require.NoError(t, err)
	assert.Equal(t, input, string(block))
	assert.Empty(t, rest)
}

func TestReadHeaderBlockTerminatorAcrossReads(t *testing.T) {
	r := &scriptedReader{steps: []readStep{
		{data: "GET / HTTP/1.1\r\nA: b\r"},
		{data: "\n\r"},
		{data: "\nnext"},
	}}

	block, rest, err := ReadHeaderBlock(r, nil, 1024, 1024)
	require.NoError(t, err)
	assert.Equal(t, "GET / HTTP/1.1\r\nA: b\r\n\r\n", string(block))
	assert.Equal(t, "next", string(rest))
}

func TestReadHeaderBlockFromPending(t *testing.T) {
	pending := []byte("GET /second HTTP/1.1\r\n\r\nGET /third")
	// The reader must not be touched when pending already holds a block.
	r := iotest.ErrReader(errors.New("must not read"))

	block, rest, err := ReadHeaderBlock(r, pending, 1024, 1024)
	require.NoError(t, err)
	assert.Equal(t, "GET /second HTTP/1.1\r\n\r\n", string(block))
	assert.Equal(t, "GET /third", string(rest))
}

func TestReadHeaderBlockPendingPlusReads(t *testing.T) {
	pending := []byte("GET /p HTTP/1.1\r\nHo")

	block, rest, err := ReadHeaderBlock(strings.NewReader("st: y\r\n\r\n"), pending, 1024, 4)
	require.NoError(t, err)
	assert.Equal(t, "GET /p HTTP/1.1\r\nHost: y\r\n\r\n", string(block))
	assert.Empty(t, rest)
	assert.Equal(t, "GET /p HTTP/1.1\r\nHo", string(pending), "pending is copied, not modified")
}

func TestReadHeaderBlockTooLarge(t *testing.T) {
	huge := "GET / HTTP/1.1\r\nX-Big: " + strings.Repeat("a", 4096) + "\r\n\r\n"

	_, _, err := ReadHeaderBlock(strings.NewReader(huge), nil, 1024, 512)
	assert.ErrorIs(t, err, ErrHeadersTooLarge)
}

func TestReadHeaderBlockTooLargeWithoutTerminator(t *testing.T) {
	// An endless header line must stop at the cap, not at EOF.
	r := io.MultiReader(strings.NewReader("GET / HTTP/1.1\r\nX: "), neverEnding('a'))

	_, _, err := ReadHeaderBlock(r, nil, 2048, 1024)
	assert.ErrorIs(t, err, ErrHeadersTooLarge)
}

func TestReadHeaderBlockBodyBeyondCapIsFine(t *testing.T) {
	// Only the block counts against the cap, not body bytes read with it.
	input := "POST / HTTP/1.1\r\nContent-Length: 2000\r\n\r\n" + strings.Repeat("b", 2000)

	block, rest, err := ReadHeaderBlock(strings.NewReader(input), nil, 1024, 4096)
	require.NoError(t, err)
	assert.Equal(t, "POST / HTTP/1.1\r\nContent-Length: 2000\r\n\r\n", string(block))
	assert.Len(t, rest, 2000)
}

func TestReadHeaderBlockPeerClosed(t *testing.T) {
	tests := []struct {
		name string
		r    io.Reader
	}{
		{"immediate eof", strings.NewReader("")},
		{"eof mid headers", strings.NewReader("GET / HTTP/1.1\r\nHost")},
		{"zero length read", &scriptedReader{steps: []readStep{{data: "GET / HT"}, {data: ""}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadHeaderBlock(tt.r, nil, 1024, 1024)
			assert.ErrorIs(t, err, ErrPeerClosed)
		})
	}
}

func TestReadHeaderBlockReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := &scriptedReader{steps: []readStep{{data: "GET / HTTP/1.1\r\n"}, {err: boom}}}

	_, _, err := ReadHeaderBlock(r, nil, 1024, 1024)
	assert.ErrorIs(t, err, boom)
}

func TestReadHeaderBlockDataWithEOF(t *testing.T) {
	// A final read may deliver the terminator together with io.EOF.
	r := &scriptedReader{steps: []readStep{{data: "GET / HTTP/1.1\r\n\r\n", err: io.EOF}}}

	block, _, err := ReadHeaderBlock(r, nil, 1024, 1024)
	require.NoError(t, err)
	assert.Equal(t, "GET / HTTP/1.1\r\n\r\n", string(block))
}

func TestReadHeaderBlockRetriesInterrupted(t *testing.T) {
	r := &scriptedReader{steps: []readStep{
		{data: "GET / HTTP/1.1\r\n"},
		{err: syscall.EINTR},
		{data: "\r\n"},
	}}

	block, _, err := ReadHeaderBlock(r, nil, 1024, 1024)
	require.NoError(t, err)
	assert.Equal(t, "GET / HTTP/1.1\r\n\r\n", string(block))
}

// neverEnding is an endless stream of one byte.
type neverEnding byte

func (b neverEnding) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(b)
	}
	return len(p), nil
}
