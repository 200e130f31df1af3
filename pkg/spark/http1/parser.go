package http1

import (
	"bytes"
	"math"
	"strings"
)

// ParseRequest parses a header block (request line and headers up to and
// including the blank line) into a Request.
//
// Only CRLF-terminated lines are considered; trailing bytes without a CRLF
// are ignored. On any error the zero Request is returned with one of the
// parser errors from errors.go.
func ParseRequest(block []byte) (Request, error) {
	lines := splitLines(block)
	if len(lines) == 0 {
		return Request{}, ErrEmptyRequest
	}

	req, err := parseRequestLine(lines[0])
	if err != nil {
		return Request{}, err
	}

	req.Header, err = parseHeaders(lines[1:])
	if err != nil {
		return Request{}, err
	}

	if v, ok := req.Header[headerContentLength]; ok {
		n, err := parseContentLength(v)
		if err != nil {
			return Request{}, err
		}
		req.ContentLength = n
	}

	return req, nil
}

// splitLines returns the CRLF-terminated lines of block, without the CRLF.
func splitLines(block []byte) []string {
	lines := make([]string, 0, 16)
	for len(block) > 0 {
		i := bytes.Index(block, crlf)
		if i == -1 {
			break
		}
		lines = append(lines, string(block[:i]))
		block = block[i+len(crlf):]
	}
	return lines
}

// parseRequestLine parses "METHOD SP TARGET SP VERSION".
func parseRequestLine(line string) (Request, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return Request{}, ErrInvalidRequestLine
	}

	req := Request{Method: fields[0], Target: fields[1], Version: fields[2]}

	if req.Version != VersionHTTP11 && req.Version != VersionHTTP10 {
		return Request{}, ErrUnsupportedVersion
	}
	if !isMethod(req.Method) {
		return Request{}, ErrInvalidMethod
	}
	if !strings.HasPrefix(req.Target, "/") {
		return Request{}, ErrInvalidTarget
	}

	return req, nil
}

// parseHeaders parses header lines up to the first blank line.
func parseHeaders(lines []string) (Header, error) {
	header := make(Header, len(lines))

	for _, line := range lines {
		if line == "" {
			return header, nil
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, ErrBadHeaderLine
		}

		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		if name == "" {
			return nil, ErrEmptyHeaderName
		}
		if !isToken(name) {
			return nil, ErrInvalidHeaderName
		}

		header[strings.ToLower(name)] = value
	}

	return nil, ErrMissingTerminator
}

// parseContentLength parses a non-negative decimal without overflowing uint64.
func parseContentLength(v string) (uint64, error) {
	if v == "" {
		return 0, ErrBadContentLength
	}

	var n uint64
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c < '0' || c > '9' {
			return 0, ErrBadContentLength
		}
		d := uint64(c - '0')
		if n > (math.MaxUint64-d)/10 {
			return 0, ErrBadContentLength
		}
		n = n*10 + d
	}
	return n, nil
}

// isMethod reports whether s is non-empty and made of A-Z, 0-9, '-' or '_'.
func isMethod(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '-' && c != '_' {
			return false
		}
	}
	return true
}

// isToken reports whether s is made of ASCII letters, digits, '-' or '_'.
func isToken(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '-' && c != '_' {
			return false
		}
	}
	return true
}
