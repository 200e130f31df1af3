package http1

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorPage(t *testing.T) {
	page := string(ErrorPage(StatusServiceUnavailable, "too many <clients>"))

	assert.True(t, strings.HasPrefix(page, "<!doctype html>"))
	assert.Contains(t, page, "<title>503 Service Unavailable</title>")
	assert.Contains(t, page, "<h1>503 Service Unavailable</h1>")
	assert.Contains(t, page, "too many &lt;clients&gt;")
	assert.NotContains(t, page, "<clients>")
}

func TestInfoPage(t *testing.T) {
	page := string(InfoPage(StatusOK, "GET", `/a?q="<script>"`))

	assert.Contains(t, page, "<h1>200 OK</h1>")
	assert.Contains(t, page, "<b>Method:</b> GET")
	assert.Contains(t, page, "&lt;script&gt;")
	assert.NotContains(t, page, "<script>")
}
