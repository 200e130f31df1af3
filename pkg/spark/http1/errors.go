package http1

import "errors"

// Parser errors. The messages are the descriptive text logged with a 400.
var (
	// ErrEmptyRequest indicates the header block holds no CRLF-terminated line
	ErrEmptyRequest = errors.New("empty request")

	// ErrInvalidRequestLine indicates the request line is not METHOD SP TARGET SP VERSION
	ErrInvalidRequestLine = errors.New("invalid request line")

	// ErrUnsupportedVersion indicates a version other than HTTP/1.0 or HTTP/1.1
	ErrUnsupportedVersion = errors.New("unsupported http version")

	// ErrInvalidMethod indicates a method outside [A-Z0-9_-]
	ErrInvalidMethod = errors.New("invalid method")

	// ErrInvalidTarget indicates a target that does not start with "/"
	ErrInvalidTarget = errors.New("invalid target")

	// ErrBadHeaderLine indicates a header line without a colon
	ErrBadHeaderLine = errors.New("bad header line")

	// ErrEmptyHeaderName indicates a header line with nothing before the colon
	ErrEmptyHeaderName = errors.New("empty header name")

	// ErrInvalidHeaderName indicates a header name outside [A-Za-z0-9_-]
	ErrInvalidHeaderName = errors.New("invalid header name")

	// ErrMissingTerminator indicates the block ended before the blank line
	ErrMissingTerminator = errors.New("missing header terminator")

	// ErrBadContentLength indicates a Content-Length that is empty, not
	// decimal, or larger than a uint64
	ErrBadContentLength = errors.New("bad content-length")
)

// Transport errors.
var (
	// ErrHeadersTooLarge indicates the header block outgrew the configured cap
	ErrHeadersTooLarge = errors.New("header block too large")

	// ErrPeerClosed indicates a zero-length read: the peer closed its side
	ErrPeerClosed = errors.New("connection closed by peer")

	// ErrIncompleteBody indicates the peer closed before the declared body arrived
	ErrIncompleteBody = errors.New("incomplete request body")
)
