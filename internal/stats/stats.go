// Package stats exposes the forwarder's operational counters as Prometheus
// metrics and serves the local stats socket protocol (§6).
//
// Grounded on the original daemon's metrics.rs, translated from the Rust
// prometheus crate's Counter/Gauge/Registry onto
// github.com/prometheus/client_golang/prometheus.
package stats

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Registry owns the counters and gauge the forwarder core updates on every
// read and age-TTL pass, plus the registry used to render them.
type Registry struct {
	CacheHits      prometheus.Counter
	CacheMiss      prometheus.Counter
	LastCacheCheck prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry builds a fresh, independent metrics registry -- never the
// global DefaultRegisterer, so repeated construction in tests never panics
// on duplicate registration.
func NewRegistry() *Registry {
	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits",
		Help: "Counts the cache hits",
	})
	cacheMiss := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_miss",
		Help: "Counts the cache misses",
	})
	lastCacheCheck := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "last_cache_check",
		Help: "Last time the ttl of all entries in the cache where checked",
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(cacheHits, cacheMiss, lastCacheCheck)

	return &Registry{
		CacheHits:      cacheHits,
		CacheMiss:      cacheMiss,
		LastCacheCheck: lastCacheCheck,
		registry:       reg,
	}
}

// Render produces the textual Prometheus exposition format for the current
// metric values.
func (r *Registry) Render() ([]byte, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("stats: gathering metrics: %w", err)
	}
	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return nil, fmt.Errorf("stats: encoding metrics: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// AddressLister supplies the cache keys for the "addresses" command,
// implemented by *forwarder.Forwarder. Kept as an interface to avoid a
// stats -> forwarder import cycle.
type AddressLister interface {
	Addresses() []string
}

// Listener serves the stats socket protocol (§6): accept, read a single
// command, half-close, write one reply, close.
type Listener struct {
	ln   *net.UnixListener
	reg  *Registry
	addr AddressLister
	log  *slog.Logger
}

// ListenUnix removes any stale socket file at path and listens on a new
// UNIX stream socket there.
func ListenUnix(path string, reg *Registry, addr AddressLister, log *slog.Logger) (*Listener, error) {
	if log == nil {
		log = slog.Default()
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("stats: removing stale socket %s: %w", path, err)
		}
	}
	unixAddr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, fmt.Errorf("stats: resolving %s: %w", path, err)
	}
	ln, err := net.ListenUnix("unix", unixAddr)
	if err != nil {
		return nil, fmt.Errorf("stats: listening on %s: %w", path, err)
	}
	return &Listener{ln: ln, reg: reg, addr: addr, log: log}, nil
}

func (l *Listener) Close() error { return l.ln.Close() }

// SetAcceptDeadline bounds the next Accept call, letting the event loop
// poll the stats socket without blocking past its tick (§4.5).
func (l *Listener) SetAcceptDeadline(t time.Time) error {
	return l.ln.SetDeadline(t)
}

// Accept blocks for one connection (bounded by SetAcceptDeadline) and
// serves it to completion: read one command, write one reply, close.
func (l *Listener) Accept() error {
	conn, err := l.ln.Accept()
	if err != nil {
		return fmt.Errorf("stats: accept: %w", err)
	}
	defer conn.Close()

	command, err := readCommand(conn)
	if err != nil && err != io.EOF {
		l.log.Warn("stats: reading command", "err", err)
		return nil
	}

	reply := l.dispatch(command)
	if _, err := conn.Write(reply); err != nil {
		l.log.Warn("stats: writing reply", "err", err)
	}
	return nil
}

func readCommand(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	return "", scanner.Err()
}

func (l *Listener) dispatch(command string) []byte {
	switch command {
	case "addresses":
		return []byte(strings.Join(l.addr.Addresses(), "\n"))
	case "metrics":
		body, err := l.reg.Render()
		if err != nil {
			l.log.Error("stats: rendering metrics", "err", err)
			return []byte("Unknown command")
		}
		return body
	default:
		return []byte("Unknown command")
	}
}
