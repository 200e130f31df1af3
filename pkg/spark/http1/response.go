package http1

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/watt-toolkit/spark/pkg/spark/socket"
)

// HeaderField is one response header line.
type HeaderField struct {
	Name  string
	Value string
}

// ResponseHead is the status line and headers of a response.
// Headers are written in the order they were first set.
type ResponseHead struct {
	// Proto defaults to HTTP/1.1 when empty.
	Proto  string
	Status int
	// Reason defaults to StatusText(Status) when empty.
	Reason string

	fields []HeaderField
}

// NewResponseHead returns a head for status with its standard reason phrase.
func NewResponseHead(status int) *ResponseHead {
	return &ResponseHead{
		Proto:  VersionHTTP11,
		Status: status,
		Reason: StatusText(status),
		fields: make([]HeaderField, 0, 8),
	}
}

// Set sets name to value, replacing an existing header of the same name
// (compared case-insensitively) in place.
func (h *ResponseHead) Set(name, value string) {
	for i := range h.fields {
		if strings.EqualFold(h.fields[i].Name, name) {
			h.fields[i].Value = value
			return
		}
	}
	h.fields = append(h.fields, HeaderField{Name: name, Value: value})
}

// Get returns the value of name, or "" when unset.
func (h *ResponseHead) Get(name string) string {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Fields returns the headers in write order.
func (h *ResponseHead) Fields() []HeaderField {
	return h.fields
}

// AppendHead appends the serialized head (status line, header lines and the
// blank line) to dst.
func (h *ResponseHead) AppendHead(dst []byte) []byte {
	proto := h.Proto
	if proto == "" {
		proto = VersionHTTP11
	}
	reason := h.Reason
	if reason == "" {
		reason = StatusText(h.Status)
	}

	dst = append(dst, proto...)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(h.Status), 10)
	dst = append(dst, ' ')
	dst = append(dst, reason...)
	dst = append(dst, crlf...)

	for _, f := range h.fields {
		dst = append(dst, f.Name...)
		dst = append(dst, colonSpace...)
		dst = append(dst, f.Value...)
		dst = append(dst, crlf...)
	}

	return append(dst, crlf...)
}

// SetStandardHeaders sets Date, Server, Content-Type and Content-Length for
// a body of bodyLen bytes.
func (h *ResponseHead) SetStandardHeaders(now time.Time, contentType string, bodyLen int) {
	h.Set(HeaderDate, FormatDate(now))
	h.Set(HeaderServer, ServerName)
	h.Set(HeaderContentType, contentType)
	h.Set(HeaderContentLength, strconv.Itoa(bodyLen))
}

// SetConnection sets the Connection header and, when persisting, the
// Keep-Alive hint "timeout=<seconds>, max=<requests>".
func (h *ResponseHead) SetConnection(keepAlive bool, timeoutSec, maxRequests uint32) {
	if !keepAlive {
		h.Set(HeaderConnection, tokenClose)
		return
	}
	h.Set(HeaderConnection, tokenKeepAlive)
	h.Set(HeaderKeepAlive, "timeout="+strconv.FormatUint(uint64(timeoutSec), 10)+
		", max="+strconv.FormatUint(uint64(maxRequests), 10))
}

// FormatDate formats t as an HTTP date in GMT.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateFormat)
}

// WriteResponse writes head and then body to w as two writes.
// Each write is retried until fully flushed; the first write error is
// returned and the response must be treated as undelivered.
func WriteResponse(w io.Writer, head *ResponseHead, body []byte) error {
	if err := writeFull(w, head.AppendHead(make([]byte, 0, 256))); err != nil {
		return err
	}
	return writeFull(w, body)
}

// writeFull writes p to w, continuing after partial writes and interrupted
// system calls. A write that makes no progress yields io.ErrShortWrite.
func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		p = p[n:]
		if err != nil {
			if socket.IsInterrupted(err) {
				continue
			}
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}
