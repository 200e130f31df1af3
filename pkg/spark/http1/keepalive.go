package http1

import "strings"

// WantsKeepAlive decides whether the connection stays open after the
// response to req.
//
// With keep-alive disabled the answer is always false. HTTP/1.1 persists
// unless the Connection header contains "close"; HTTP/1.0 closes unless it
// contains "keep-alive". Both checks are case-insensitive substring matches.
func WantsKeepAlive(req *Request, enabled bool) bool {
	if !enabled {
		return false
	}

	conn := strings.ToLower(req.Header[headerConnection])

	if req.Version == VersionHTTP11 {
		return !strings.Contains(conn, tokenClose)
	}
	return strings.Contains(conn, tokenKeepAlive)
}
