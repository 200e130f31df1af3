// Package config loads and validates the spark server configuration.
//
// The configuration is a flat JSON object. Every key is optional; missing
// keys keep the value from Default and unknown keys are ignored.
//
//	{
//	    "server_ip": "0.0.0.0",
//	    "port": 8080,
//	    "max_clients": 256,
//	    "keep_alive": true,
//	    "keep_alive_timeout_sec": 5
//	}
package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// ErrInvalid is wrapped by every error describing a bad configuration.
var ErrInvalid = errors.New("invalid config")

// FieldError reports a configuration key that failed a type or range check.
type FieldError struct {
	// Key is the JSON key of the offending value.
	Key string

	// Reason completes the sentence "<key> <reason>".
	Reason string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Key, e.Reason)
}

// Unwrap returns ErrInvalid so callers can test with errors.Is.
func (e *FieldError) Unwrap() error {
	return ErrInvalid
}

// Config is the immutable server configuration for one run.
type Config struct {
	// ServerIP is the IPv4 address the listener binds to.
	ServerIP string
	Port     uint16

	// MaxClients caps concurrently served connections. Connections accepted
	// beyond the cap get a 503 and are closed.
	MaxClients uint32

	LogFile  string
	LogLevel string

	KeepAlive            bool
	KeepAliveTimeoutSec  uint32
	KeepAliveMaxRequests uint32

	// ReadHeaderMaxBytes caps the size of one request header block.
	ReadHeaderMaxBytes uint32

	// RecvChunkSize is the size of each socket read.
	RecvChunkSize uint32

	// MetricsAddr enables the Prometheus endpoint when non-empty.
	MetricsAddr string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServerIP:             "127.0.0.1",
		Port:                 8080,
		MaxClients:           128,
		LogFile:              "./server.log",
		LogLevel:             "INFO",
		KeepAlive:            true,
		KeepAliveTimeoutSec:  10,
		KeepAliveMaxRequests: 100,
		ReadHeaderMaxBytes:   32768,
		RecvChunkSize:        65536,
	}
}

// Addr returns the listen address "ip:port".
func (c Config) Addr() string {
	return net.JoinHostPort(c.ServerIP, strconv.Itoa(int(c.Port)))
}

// Timeout returns the per-operation socket timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.KeepAliveTimeoutSec) * time.Second
}

// minBufferSize is the lower bound for the header cap and the read chunk.
const minBufferSize = 1024

// Validate checks the cross-field and range rules. It is called by Parse
// and may be called on a Config built in code.
func (c Config) Validate() error {
	if c.Port == 0 {
		return &FieldError{Key: "port", Reason: "must be 1..65535"}
	}
	if c.MaxClients == 0 {
		return &FieldError{Key: "max_clients", Reason: "must be 1..4294967295"}
	}
	if c.KeepAlive && c.KeepAliveTimeoutSec == 0 {
		return &FieldError{Key: "keep_alive_timeout_sec", Reason: "must be > 0 when keep_alive=true"}
	}
	if c.KeepAlive && c.KeepAliveMaxRequests == 0 {
		return &FieldError{Key: "keep_alive_max_requests", Reason: "must be > 0 when keep_alive=true"}
	}
	if c.ReadHeaderMaxBytes < minBufferSize {
		return &FieldError{Key: "read_header_max_bytes", Reason: "too small (min 1024)"}
	}
	if c.RecvChunkSize < minBufferSize {
		return &FieldError{Key: "recv_chunk_size", Reason: "too small (min 1024)"}
	}
	if c.ServerIP == "" {
		return &FieldError{Key: "server_ip", Reason: "must not be empty"}
	}
	return nil
}

// Load reads and parses the JSON file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: cannot open %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes data over Default and validates the result.
func Parse(data []byte) (Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return Config{}, fmt.Errorf("%w: invalid JSON: %v", ErrInvalid, err)
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return Config{}, fmt.Errorf("%w: root must be a JSON object", ErrInvalid)
	}

	cfg := Default()
	d := decoder{obj: obj}

	cfg.ServerIP = d.str("server_ip", cfg.ServerIP)
	cfg.Port = uint16(d.uint("port", uint64(cfg.Port), math.MaxUint16, "must be 1..65535"))
	cfg.MaxClients = uint32(d.uint("max_clients", uint64(cfg.MaxClients), math.MaxUint32, "must be 1..4294967295"))
	cfg.LogFile = d.str("log_file", cfg.LogFile)
	cfg.LogLevel = d.str("log_level", cfg.LogLevel)
	cfg.KeepAlive = d.bool("keep_alive", cfg.KeepAlive)
	cfg.KeepAliveTimeoutSec = uint32(d.uint("keep_alive_timeout_sec", uint64(cfg.KeepAliveTimeoutSec), math.MaxUint32, "too large"))
	cfg.KeepAliveMaxRequests = uint32(d.uint("keep_alive_max_requests", uint64(cfg.KeepAliveMaxRequests), math.MaxUint32, "too large"))
	cfg.ReadHeaderMaxBytes = uint32(d.uint("read_header_max_bytes", uint64(cfg.ReadHeaderMaxBytes), math.MaxUint32, "too large"))
	cfg.RecvChunkSize = uint32(d.uint("recv_chunk_size", uint64(cfg.RecvChunkSize), math.MaxUint32, "too large"))
	cfg.MetricsAddr = d.str("metrics_addr", cfg.MetricsAddr)

	if d.err != nil {
		return Config{}, d.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decoder pulls typed values out of the decoded object and remembers the
// first failure.
type decoder struct {
	obj map[string]any
	err error
}

func (d *decoder) fail(key, reason string) {
	if d.err == nil {
		d.err = &FieldError{Key: key, Reason: reason}
	}
}

func (d *decoder) str(key, def string) string {
	v, ok := d.obj[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		d.fail(key, "must be string")
		return def
	}
	return s
}

func (d *decoder) bool(key string, def bool) bool {
	v, ok := d.obj[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		d.fail(key, "must be boolean")
		return def
	}
	return b
}

func (d *decoder) uint(key string, def, limit uint64, rangeReason string) uint64 {
	v, ok := d.obj[key]
	if !ok {
		return def
	}
	num, ok := v.(json.Number)
	if !ok {
		d.fail(key, "must be integer")
		return def
	}
	n, err := num.Int64()
	if err != nil {
		d.fail(key, "must be integer")
		return def
	}
	if n < 0 {
		d.fail(key, "must be non-negative")
		return def
	}
	if uint64(n) > limit {
		d.fail(key, rangeReason)
		return def
	}
	return uint64(n)
}
