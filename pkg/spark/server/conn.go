package server

import (
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/watt-toolkit/spark/pkg/spark/http1"
)

// connState is the lifecycle state of a worker's connection.
type connState int32

const (
	// stateNew is the state before the first request is read
	stateNew connState = iota

	// stateActive indicates a request is being read, drained or answered
	stateActive

	// stateIdle indicates the worker waits for the next request with no
	// pipelined bytes buffered
	stateIdle

	// stateClosed indicates the connection has been released
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateNew:
		return "new"
	case stateActive:
		return "active"
	case stateIdle:
		return "idle"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// timeoutConn refreshes the read deadline before every Read and the write
// deadline before every Write, so the timeout bounds each operation rather
// than the whole exchange. A zero timeout disables deadlines.
type timeoutConn struct {
	net.Conn
	timeout time.Duration
}

func (c *timeoutConn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

func (c *timeoutConn) Write(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}

// conn is the worker-side state of one admitted connection. It is owned by
// a single goroutine; only rwc and state are touched from outside (by
// Shutdown and Close).
type conn struct {
	srv *Server
	rwc net.Conn
	tc  *timeoutConn
	log *logrus.Entry

	// pending holds bytes read past the end of the previous request.
	pending []byte
	handled uint32

	state  atomic.Int32
	closed atomic.Bool
}

func newConn(srv *Server, rwc net.Conn) *conn {
	c := &conn{
		srv: srv,
		rwc: rwc,
		tc:  &timeoutConn{Conn: rwc, timeout: srv.cfg.Timeout()},
		log: srv.log.WithField("conn", rwc.RemoteAddr().String()),
	}
	c.state.Store(int32(stateNew))
	return c
}

func (c *conn) getState() connState {
	return connState(c.state.Load())
}

func (c *conn) setState(s connState) {
	c.state.Store(int32(s))
}

// serve runs the request loop until the connection ends. Every exit path,
// panics included, goes through the deferred release.
func (c *conn) serve() {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("panic", r).Error("worker panic, closing connection")
		}
		c.release()
	}()

	cfg := c.srv.cfg
	maxHeader := int(cfg.ReadHeaderMaxBytes)
	chunk := int(cfg.RecvChunkSize)

	for {
		if len(c.pending) == 0 && c.handled > 0 {
			c.setState(stateIdle)
			// Shutdown may have closed idle connections between the
			// last response and this point.
			if c.srv.shuttingDown() {
				return
			}
		}

		block, rest, err := http1.ReadHeaderBlock(c.tc, c.pending, maxHeader, chunk)
		c.pending = nil
		c.setState(stateActive)
		if err != nil {
			if errors.Is(err, http1.ErrHeadersTooLarge) {
				c.log.Warn("header too large, sending 400")
				c.protocolError("The request header block is too large.")
				return
			}
			c.ioFailure("read", err)
			return
		}

		req, err := http1.ParseRequest(block)
		if err != nil {
			c.log.WithError(err).Warn("bad request, sending 400")
			c.protocolError("The request could not be parsed.")
			return
		}

		keepAlive := http1.WantsKeepAlive(&req, cfg.KeepAlive)
		if keepAlive && c.handled+1 >= cfg.KeepAliveMaxRequests {
			c.log.Debug("keep-alive max requests reached, closing after this response")
			keepAlive = false
		}
		if keepAlive && c.srv.shuttingDown() {
			keepAlive = false
		}
		c.log.Infof("%s %s (%s)", req.Method, req.Target, connectionMode(keepAlive))

		c.pending, err = http1.DrainBody(c.tc, rest, req.ContentLength, chunk)
		if err != nil {
			c.ioFailure("body", err)
			return
		}

		reply := c.srv.handler(&req)
		if err := c.srv.writeReply(c.tc, reply, keepAlive); err != nil {
			c.ioFailure("write", err)
			return
		}
		c.handled++
		c.srv.stats.TotalRequests.Add(1)
		c.srv.metrics.Request(req.Method, reply.Status)

		if !keepAlive {
			return
		}
	}
}

// protocolError answers a malformed or oversized request with 400 and
// Connection: close. Write errors are ignored since the connection is
// closed right after.
func (c *conn) protocolError(detail string) {
	c.srv.stats.ProtocolErrors.Add(1)
	c.srv.metrics.ProtocolError()
	_ = c.srv.writeReply(c.tc, errorReply(http1.StatusBadRequest, detail), false)
}

// ioFailure records a transport failure. The connection is closed without
// a response; a peer that simply went away is not worth more than DEBUG.
func (c *conn) ioFailure(phase string, err error) {
	if errors.Is(err, http1.ErrPeerClosed) {
		c.log.WithField("phase", phase).Debug("peer closed connection")
		return
	}
	c.srv.stats.IOErrors.Add(1)
	c.srv.metrics.IOFailure(phase)
	c.log.WithError(err).WithField("phase", phase).Debug("connection failed")
}

// release closes the transport and returns the admission slot. It runs at
// most once.
func (c *conn) release() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.setState(stateClosed)
	_ = c.rwc.Close()
	c.srv.untrackConn(c)
}

func connectionMode(keepAlive bool) string {
	if keepAlive {
		return "keep-alive"
	}
	return "close"
}
