// Package server implements the spark connection layer: the admission
// controller that accepts TCP connections and turns away the ones over
// capacity, and the per-connection worker that reads, answers and
// pipelines HTTP/1.x requests.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/watt-toolkit/spark/pkg/spark/config"
	"github.com/watt-toolkit/spark/pkg/spark/http1"
	"github.com/watt-toolkit/spark/pkg/spark/metrics"
	"github.com/watt-toolkit/spark/pkg/spark/socket"
)

var (
	// ErrServerClosed is returned by Serve and ListenAndServe after
	// Shutdown or Close.
	ErrServerClosed = errors.New("server: closed")

	// ErrInvalidBindAddress is returned by ListenAndServe when the
	// configured server IP is not an IPv4 address.
	ErrInvalidBindAddress = errors.New("server: invalid bind address")
)

// Accept backoff bounds for errors other than EINTR and a closed listener.
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = 1 * time.Second
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Server) {
		s.log = logrus.NewEntry(l)
	}
}

// WithMetrics sets the Prometheus collectors. The default records nothing.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithHandler replaces StubHandler.
func WithHandler(h Handler) Option {
	return func(s *Server) {
		s.handler = h
	}
}

// WithSocketConfig sets the listener and connection socket options.
func WithSocketConfig(c socket.Config) Option {
	return func(s *Server) {
		s.sockCfg = c
	}
}

// Server accepts connections and serves them with one worker goroutine
// each, up to cfg.MaxClients at a time.
type Server struct {
	cfg     config.Config
	handler Handler
	log     *logrus.Entry
	metrics *metrics.Metrics
	sockCfg socket.Config
	stats   Stats
	now     func() time.Time

	// Shutdown coordination
	mu       sync.Mutex
	listener net.Listener
	shutdown atomic.Bool
	done     chan struct{}
	wg       sync.WaitGroup

	// Connection tracking
	conns   map[*conn]struct{}
	connsMu sync.Mutex
}

// New validates cfg and builds a Server.
func New(cfg config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Server{
		cfg:     cfg,
		handler: StubHandler,
		log:     logrus.NewEntry(discard),
		sockCfg: socket.DefaultConfig(),
		now:     time.Now,
		done:    make(chan struct{}),
		conns:   make(map[*conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.stats.StartTime = time.Now()

	return s, nil
}

// Stats returns the live server counters.
func (s *Server) Stats() *Stats {
	return &s.stats
}

// Addr returns the listener address, or nil before Serve is called.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe binds cfg.ServerIP:cfg.Port and serves until Shutdown or
// Close. Bind failures are logged at FATAL level and returned.
func (s *Server) ListenAndServe() error {
	if ip := net.ParseIP(s.cfg.ServerIP); ip == nil || ip.To4() == nil {
		err := fmt.Errorf("%w: %s", ErrInvalidBindAddress, s.cfg.ServerIP)
		s.log.Log(logrus.FatalLevel, "Invalid server_ip: "+s.cfg.ServerIP)
		return err
	}

	l, err := socket.Listen(context.Background(), s.cfg.Addr(), s.sockCfg)
	if err != nil {
		s.log.WithError(err).Log(logrus.FatalLevel, "listen failed")
		return fmt.Errorf("server: listen on %s: %w", s.cfg.Addr(), err)
	}

	return s.Serve(l)
}

// Serve accepts connections on l until Shutdown or Close, and always
// returns a non-nil error. l is closed on return.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.shutdown.Load() {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()
	defer l.Close()

	s.log.WithField("addr", l.Addr().String()).Info("listening")

	var delay time.Duration
	for {
		nc, err := l.Accept()
		if err != nil {
			if s.shutdown.Load() || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			if socket.IsInterrupted(err) {
				continue
			}

			s.metrics.AcceptError()
			s.log.WithError(err).Error("accept failed")

			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay *= 2
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			select {
			case <-time.After(delay):
			case <-s.done:
				return ErrServerClosed
			}
			continue
		}
		delay = 0

		s.admit(nc)
	}
}

// admit hands nc to a new worker, or answers 503 and closes it when the
// server is at capacity. The capacity check and the increment are not one
// atomic step, but admit only runs on the accept goroutine and workers only
// ever decrement, so the server never exceeds MaxClients.
func (s *Server) admit(nc net.Conn) {
	if s.stats.ActiveConnections.Load() >= int64(s.cfg.MaxClients) {
		s.reject(nc)
		return
	}

	if err := socket.Tune(nc, s.sockCfg); err != nil {
		s.log.WithError(err).Debug("socket tuning failed")
	}

	c := newConn(s, nc)
	if !s.trackConn(c) {
		nc.Close()
		return
	}

	s.stats.TotalConnections.Add(1)
	s.metrics.ConnAccepted()

	go c.serve()
}

// reject sends 503 on nc and closes it. The connection is never counted.
func (s *Server) reject(nc net.Conn) {
	defer nc.Close()

	s.stats.RejectedConnections.Add(1)
	s.metrics.ConnRejected()
	s.log.WithField("conn", nc.RemoteAddr().String()).Warn("max clients reached, sending 503")

	tc := &timeoutConn{Conn: nc, timeout: s.cfg.Timeout()}
	reply := errorReply(http1.StatusServiceUnavailable, "The server is at capacity, try again later.")
	if err := s.writeReply(tc, reply, false); err != nil {
		s.log.WithError(err).Debug("503 write failed")
	}
}

// writeReply emits reply with the standard headers and the connection
// decision.
func (s *Server) writeReply(w io.Writer, reply Reply, keepAlive bool) error {
	head := http1.NewResponseHead(reply.Status)
	head.SetStandardHeaders(s.now(), reply.ContentType, len(reply.Body))
	head.SetConnection(keepAlive, s.cfg.KeepAliveTimeoutSec, s.cfg.KeepAliveMaxRequests)
	return http1.WriteResponse(w, head, reply.Body)
}

func (s *Server) shuttingDown() bool {
	return s.shutdown.Load()
}

// trackConn registers c and takes its admission slot. It fails once
// shutdown has begun.
func (s *Server) trackConn(c *conn) bool {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	if s.shutdown.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	s.stats.ActiveConnections.Add(1)
	s.wg.Add(1)
	return true
}

// untrackConn returns c's admission slot.
func (s *Server) untrackConn(c *conn) {
	s.connsMu.Lock()
	delete(s.conns, c)
	s.connsMu.Unlock()

	s.stats.ActiveConnections.Add(-1)
	s.metrics.ConnClosed()
	s.wg.Done()
}

// closeConns closes the transport of tracked connections, all of them or
// only the idle ones. Workers notice on their next read or write and exit
// through their own cleanup.
func (s *Server) closeConns(idleOnly bool) {
	s.connsMu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		if idleOnly && c.getState() != stateIdle {
			continue
		}
		conns = append(conns, c)
	}
	s.connsMu.Unlock()

	for _, c := range conns {
		c.rwc.Close()
	}
}

// stop marks the server as shutting down and closes the listener. It
// reports false if that already happened.
func (s *Server) stop() bool {
	if !s.shutdown.CompareAndSwap(false, true) {
		return false
	}

	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()

	close(s.done)

	// No trackConn can run past this point, so wg.Wait is safe.
	s.connsMu.Lock()
	s.connsMu.Unlock()

	return true
}

// Shutdown stops accepting, closes idle connections and waits for the
// remaining workers to finish their current exchange. When ctx expires
// first, the remaining connections are closed and ctx.Err() is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.stop() {
		return nil
	}
	s.log.Info("shutting down")

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		s.closeConns(true)
		select {
		case <-finished:
			return nil
		case <-ctx.Done():
			s.closeConns(false)
			<-finished
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops accepting, closes every connection and waits for the
// workers to exit.
func (s *Server) Close() error {
	if !s.stop() {
		return nil
	}

	s.closeConns(false)
	s.wg.Wait()

	return nil
}
