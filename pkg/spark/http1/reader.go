package http1

import (
	"bytes"
	"errors"
	"io"

	"github.com/watt-toolkit/spark/pkg/spark/socket"
)

// ReadHeaderBlock reads from r until the buffer holds a complete header block.
//
// The buffer starts with a copy of pending (bytes left over from the previous
// request on the connection) and grows by reads of chunkSize bytes. It returns
// the block, terminator included, and the bytes that followed it in the same
// reads (start of the body or of a pipelined request).
//
// ErrHeadersTooLarge is returned once the buffer passes maxBytes without a
// terminator, or when the block found is itself longer than maxBytes.
// A zero-length read or io.EOF yields ErrPeerClosed; other read errors are
// returned as is. Interrupted reads are retried.
func ReadHeaderBlock(r io.Reader, pending []byte, maxBytes, chunkSize int) (block, rest []byte, err error) {
	buf := make([]byte, 0, max(len(pending), chunkSize))
	buf = append(buf, pending...)
	chunk := make([]byte, chunkSize)

	var readErr error
	searchFrom := 0

	for {
		if i := bytes.Index(buf[searchFrom:], headerTerminator); i != -1 {
			end := searchFrom + i + len(headerTerminator)
			if end > maxBytes {
				return nil, nil, ErrHeadersTooLarge
			}
			return buf[:end:end], buf[end:], nil
		}

		if len(buf) > maxBytes {
			return nil, nil, ErrHeadersTooLarge
		}
		if readErr != nil {
			return nil, nil, readErr
		}

		// The terminator may straddle the previous read.
		searchFrom = max(len(buf)-len(headerTerminator)+1, 0)

		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		readErr = classifyReadErr(n, err)
	}
}

// classifyReadErr maps a Read result onto the error the loops act on:
// nil to keep reading, ErrPeerClosed for an orderly close, or the failure.
func classifyReadErr(n int, err error) error {
	switch {
	case err == nil && n == 0:
		return ErrPeerClosed
	case err == nil:
		return nil
	case socket.IsInterrupted(err):
		return nil
	case errors.Is(err, io.EOF):
		return ErrPeerClosed
	default:
		return err
	}
}
