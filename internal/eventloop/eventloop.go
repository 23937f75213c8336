// Package eventloop binds the UDP socket and the stats socket to the
// forwarder core in a single-threaded, readiness-driven loop (§4.5).
//
// Ported from the teacher's DNSServer.Start -- same net.UDPConn,
// 512-byte receive buffer and slog.Logger idiom -- but collapsed to one
// goroutine: no per-datagram goroutine, no WaitGroup, no TCP listener.
// A 100ms read deadline stands in for the spec's poll timeout, since the
// standard library has no single primitive that blocks on readiness across
// a UDP socket and a UNIX listener together.
package eventloop

import (
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/halvard/rdnsd/internal/forwarder"
	"github.com/halvard/rdnsd/internal/message"
	"github.com/halvard/rdnsd/internal/stats"
)

const (
	pollTimeout  = 100 * time.Millisecond
	udpBufSize   = 512
	statsTimeout = 10 * time.Millisecond
)

// Loop owns the UDP socket, the stats listener and the forwarder core for
// the lifetime of the process.
type Loop struct {
	conn    *net.UDPConn
	statsLn *stats.Listener
	fwd     *forwarder.Forwarder
	servers []string
	log     *slog.Logger

	buf []byte
}

// New binds listenAddr for DNS traffic. statsLn may be nil if the stats
// socket is disabled.
func New(listenAddr string, servers []string, fwd *forwarder.Forwarder, statsLn *stats.Listener, log *slog.Logger) (*Loop, error) {
	if log == nil {
		log = slog.Default()
	}
	udpAddr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return &Loop{
		conn:    conn,
		statsLn: statsLn,
		fwd:     fwd,
		servers: servers,
		log:     log,
		buf:     make([]byte, udpBufSize),
	}, nil
}

func (l *Loop) Close() error { return l.conn.Close() }

// Run blocks, servicing ticks until stop is closed.
func (l *Loop) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		l.tick()
	}
}

// tick performs exactly one event-loop iteration, in the order the spec
// mandates: age TTLs, then read, then write (§5).
func (l *Loop) tick() {
	l.fwd.AgeTTL(time.Now())

	l.readUDP()
	l.acceptStats()

	for _, out := range l.fwd.Write(l.servers) {
		if _, err := l.conn.WriteTo(out.Bytes, out.Addr); err != nil {
			l.log.Error("writing outbound datagram", "addr", out.Addr, "err", err)
		}
	}
}

func (l *Loop) readUDP() {
	if err := l.conn.SetReadDeadline(time.Now().Add(pollTimeout)); err != nil {
		l.log.Error("setting read deadline", "err", err)
		return
	}

	n, addr, err := l.conn.ReadFromUDP(l.buf)
	if err != nil {
		if !isTimeout(err) {
			l.log.Error("reading UDP datagram", "err", err)
		}
		return
	}

	msg, err := message.Unmarshal(l.buf[:n])
	if err != nil {
		l.log.Warn("discarding unparseable datagram", "from", addr, "err", err)
		return
	}

	l.fwd.Read(addr, msg)
}

func (l *Loop) acceptStats() {
	if l.statsLn == nil {
		return
	}
	if err := l.statsLn.SetAcceptDeadline(time.Now().Add(statsTimeout)); err != nil {
		l.log.Error("setting stats accept deadline", "err", err)
		return
	}
	if err := l.statsLn.Accept(); err != nil {
		if !isTimeout(err) {
			l.log.Warn("stats socket accept", "err", err)
		}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
