package http1

import (
	"html"
	"strconv"
	"strings"
)

// ErrorPage renders the HTML body sent with error statuses.
func ErrorPage(status int, detail string) []byte {
	title := strconv.Itoa(status) + " " + html.EscapeString(StatusText(status))

	var b strings.Builder
	b.Grow(256 + len(detail))
	b.WriteString(`<!doctype html><html><head><meta charset="utf-8"/>`)
	b.WriteString("<title>" + title + "</title>")
	b.WriteString(`</head><body style="font-family: sans-serif;">`)
	b.WriteString("<h1>" + title + "</h1>")
	b.WriteString("<p>" + html.EscapeString(detail) + "</p>")
	b.WriteString("<hr/><p><small>" + ServerName + "</small></p>")
	b.WriteString("</body></html>")
	return []byte(b.String())
}

// InfoPage renders the informational page returned by the stub handler.
// Method and target are echoed back escaped.
func InfoPage(status int, method, target string) []byte {
	title := strconv.Itoa(status) + " " + html.EscapeString(StatusText(status))

	var b strings.Builder
	b.Grow(384 + len(method) + len(target))
	b.WriteString(`<!doctype html><html><head><meta charset="utf-8"/>`)
	b.WriteString("<title>" + title + "</title>")
	b.WriteString(`</head><body style="font-family:sans-serif;">`)
	b.WriteString("<h1>" + title + "</h1>")
	b.WriteString("<p><b>Method:</b> " + html.EscapeString(method) + "</p>")
	b.WriteString("<p><b>Target:</b> " + html.EscapeString(target) + "</p>")
	b.WriteString("<p>Routing and file serving are not enabled on this server.</p>")
	b.WriteString("</body></html>")
	return []byte(b.String())
}
