package http1

import (
	"errors"
	"io"
)

// DrainBody consumes a request body of contentLength bytes and returns the
// bytes that belong to the next request.
//
// buffered holds the bytes already read past the header terminator. They
// count toward the body first; whatever exceeds contentLength is returned as
// pending. The rest of the body is read from r in chunkSize reads, and bytes
// a read delivers past the body boundary are returned as pending too.
//
// The body itself is discarded. If the peer closes or a read fails before
// the body is complete, ErrIncompleteBody or the read error is returned.
func DrainBody(r io.Reader, buffered []byte, contentLength uint64, chunkSize int) (pending []byte, err error) {
	if contentLength == 0 {
		return buffered, nil
	}
	if uint64(len(buffered)) >= contentLength {
		return buffered[contentLength:], nil
	}

	remaining := contentLength - uint64(len(buffered))
	chunk := make([]byte, chunkSize)

	for remaining > 0 {
		n, err := r.Read(chunk)
		if uint64(n) > remaining {
			pending = append(pending, chunk[remaining:n]...)
			remaining = 0
		} else {
			remaining -= uint64(n)
		}
		if remaining == 0 {
			break
		}

		if err := classifyReadErr(n, err); err != nil {
			if errors.Is(err, ErrPeerClosed) {
				return nil, ErrIncompleteBody
			}
			return nil, err
		}
	}

	return pending, nil
}
