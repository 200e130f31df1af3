// Package http1 implements the HTTP/1.0 and HTTP/1.1 wire handling of the
// spark server: header block reading, request parsing, body draining,
// keep-alive negotiation and response emission.
package http1

// Protocol versions accepted on the request line.
const (
	VersionHTTP10 = "HTTP/1.0"
	VersionHTTP11 = "HTTP/1.1"
)

// ServerName is sent in the Server response header.
const ServerName = "spark"

// Header names used by the server. Request headers are stored lowercase,
// response headers keep their canonical spelling.
const (
	headerContentLength = "content-length"
	headerConnection    = "connection"

	HeaderDate          = "Date"
	HeaderServer        = "Server"
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	HeaderConnection    = "Connection"
	HeaderKeepAlive     = "Keep-Alive"
)

// Connection header tokens.
const (
	tokenClose     = "close"
	tokenKeepAlive = "keep-alive"
)

// Content types.
const (
	ContentTypeHTML  = "text/html; charset=utf-8"
	ContentTypePlain = "text/plain; charset=utf-8"
)

// Status codes produced by the core.
const (
	StatusOK                  = 200
	StatusBadRequest          = 400
	StatusForbidden           = 403
	StatusNotFound            = 404
	StatusPayloadTooLarge     = 413
	StatusInternalServerError = 500
	StatusNotImplemented      = 501
	StatusServiceUnavailable  = 503
)

// Wire framing.
var (
	crlf             = []byte("\r\n")
	headerTerminator = []byte("\r\n\r\n")
	colonSpace       = []byte(": ")
)

// dateFormat is the RFC 1123 layout used for the Date header (always GMT).
const dateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// StatusText returns the reason phrase for code, or "Unknown".
func StatusText(code int) string {
	switch code {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusForbidden:
		return "Forbidden"
	case StatusNotFound:
		return "Not Found"
	case StatusPayloadTooLarge:
		return "Payload Too Large"
	case StatusInternalServerError:
		return "Internal Server Error"
	case StatusNotImplemented:
		return "Not Implemented"
	case StatusServiceUnavailable:
		return "Service Unavailable"
	default:
		return "Unknown"
	}
}
