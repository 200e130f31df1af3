package server

import (
	"sync/atomic"
	"time"
)

// Stats holds the server counters. All fields are updated atomically and
// may be read while the server runs.
type Stats struct {
	// Total number of connections admitted to a worker
	TotalConnections atomic.Uint64

	// Current number of connections owned by a worker. This is the
	// admission counter: it never goes negative and each admitted
	// connection decrements it exactly once.
	ActiveConnections atomic.Int64

	// Connections refused with 503 at capacity
	RejectedConnections atomic.Uint64

	// Total number of responses sent by workers
	TotalRequests atomic.Uint64

	// Requests answered with 400
	ProtocolErrors atomic.Uint64

	// Connections ended by a transport failure
	IOErrors atomic.Uint64

	// Server start time
	StartTime time.Time
}

// Duration returns the time since the server started
func (s *Stats) Duration() time.Duration {
	return time.Since(s.StartTime)
}

// RequestsPerSecond returns the average requests per second
func (s *Stats) RequestsPerSecond() float64 {
	duration := s.Duration().Seconds()
	if duration == 0 {
		return 0
	}
	return float64(s.TotalRequests.Load()) / duration
}
