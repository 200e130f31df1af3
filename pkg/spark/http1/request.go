package http1

import "strings"

// Header holds request headers keyed by lowercase name.
// A repeated header keeps only its last value.
type Header map[string]string

// Get returns the value stored for name, matched case-insensitively.
func (h Header) Get(name string) string {
	return h[strings.ToLower(name)]
}

// Has reports whether name is present, matched case-insensitively.
func (h Header) Has(name string) bool {
	_, ok := h[strings.ToLower(name)]
	return ok
}

// Request is a parsed request head. It is built fresh by ParseRequest and
// not modified afterwards.
type Request struct {
	Method  string
	Target  string
	Version string

	Header Header

	// ContentLength is the declared body size, 0 when absent.
	// Transfer-Encoding is not interpreted: a chunked-only request has a
	// zero-length body here.
	ContentLength uint64
}

// IsHTTP11 reports whether the request line carried HTTP/1.1.
func (r *Request) IsHTTP11() bool {
	return r.Version == VersionHTTP11
}
