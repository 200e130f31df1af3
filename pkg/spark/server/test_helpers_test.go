package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/watt-toolkit/spark/pkg/spark/config"
	"github.com/watt-toolkit/spark/pkg/spark/socket"
)

// mockConn implements net.Conn for testing
type mockConn struct {
	readData  *strings.Reader
	writeData *strings.Builder
	closed    bool
	deadlines int
	mu        sync.Mutex
}

func newMockConn(data string) *mockConn {
	return &mockConn{
		readData:  strings.NewReader(data),
		writeData: &strings.Builder{},
	}
}

func (m *mockConn) Read(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, net.ErrClosed
	}
	return m.readData.Read(b)
}

func (m *mockConn) Write(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, net.ErrClosed
	}
	return m.writeData.Write(b)
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 8080}
}

func (m *mockConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}
}

func (m *mockConn) SetDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadlines++
	return nil
}

func (m *mockConn) SetReadDeadline(t time.Time) error {
	return m.SetDeadline(t)
}

func (m *mockConn) SetWriteDeadline(t time.Time) error {
	return m.SetDeadline(t)
}

func (m *mockConn) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockConn) GetWritten() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeData.String()
}

func (m *mockConn) DeadlineCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deadlines
}

// testConfig is the default configuration with the smallest buffers, so
// tests can cross the header cap and chunk boundaries cheaply.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.ReadHeaderMaxBytes = 1024
	cfg.RecvChunkSize = 1024
	cfg.KeepAliveTimeoutSec = 5
	return cfg
}

// newTestServer builds a Server logging into a test hook.
func newTestServer(t *testing.T, cfg config.Config, opts ...Option) (*Server, *logtest.Hook) {
	t.Helper()

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	s, err := New(cfg, append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	s.now = func() time.Time {
		return time.Date(2024, time.March, 5, 7, 8, 9, 0, time.UTC)
	}
	return s, hook
}

// startServer serves s on an ephemeral loopback port and returns its address.
func startServer(t *testing.T, s *Server) string {
	t.Helper()

	l, err := socket.Listen(context.Background(), "127.0.0.1:0", socket.DefaultConfig())
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() {
		served <- s.Serve(l)
	}()

	t.Cleanup(func() {
		s.Close()
		select {
		case err := <-served:
			if !errors.Is(err, ErrServerClosed) {
				t.Errorf("Serve returned %v, want ErrServerClosed", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after Close")
		}
	})

	return l.Addr().String()
}

// client is one test connection with a buffered reader for responses.
type client struct {
	t    *testing.T
	conn net.Conn
	br   *bufio.Reader
}

func dial(t *testing.T, addr string) *client {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &client{t: t, conn: conn, br: bufio.NewReader(conn)}
}

func (c *client) send(s string) {
	c.t.Helper()
	_, err := io.WriteString(c.conn, s)
	require.NoError(c.t, err)
}

// response reads one response and copies it out of fasthttp's pools.
func (c *client) response() *fasthttp.Response {
	c.t.Helper()

	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	resp := &fasthttp.Response{}
	require.NoError(c.t, resp.Read(c.br))
	return resp
}

// requireClosed asserts that the server closed the connection.
func (c *client) requireClosed() {
	c.t.Helper()

	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err := c.br.ReadByte()
	require.ErrorIs(c.t, err, io.EOF)
}

// parseResponses splits a raw byte stream into responses.
func parseResponses(t *testing.T, raw string) []*fasthttp.Response {
	t.Helper()

	br := bufio.NewReader(strings.NewReader(raw))
	var out []*fasthttp.Response
	for {
		if _, err := br.Peek(1); err != nil {
			return out
		}
		resp := &fasthttp.Response{}
		require.NoError(t, resp.Read(br))
		out = append(out, resp)
	}
}
