// Package forwarder implements the forwarding/caching state machine (§4.4):
// the in-flight request table, the answer cache, TTL aging, and the
// read/write halves of the forwarding protocol.
//
// Ported from the original Rust daemon's ServerHandler (server.rs): a
// HashMap<u16, Request> for in-flight transactions and a
// HashMap<String, Vec<ResourceRecord>> cache, both owned outright by a
// single actor (the event loop, §5) with no locking of their own.
package forwarder

import (
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/halvard/rdnsd/internal/message"
	"github.com/halvard/rdnsd/internal/rr"
	"github.com/halvard/rdnsd/internal/stats"
)

// State is a pending entry's position in the per-transaction state machine
// (§4.4).
type State int

const (
	Added State = iota
	AwaitingUpstream
	ReadyToSend
)

func (s State) String() string {
	switch s {
	case Added:
		return "ADDED"
	case AwaitingUpstream:
		return "AWAITING_UPSTREAM"
	case ReadyToSend:
		return "READY_TO_SEND"
	default:
		return "UNKNOWN"
	}
}

// request is an in-flight transaction (§3 "In-flight request entry").
type request struct {
	addr  net.Addr
	state State
	msg   message.Message
}

// Outbound is one message the write path wants sent: the wire bytes and the
// destination address.
type Outbound struct {
	Bytes []byte
	Addr  net.Addr
}

const (
	pendingCapacityHint = 16
	cacheCapacityHint   = 128
)

// Forwarder holds the two tables and the TTL aging clock. It is not safe
// for concurrent use by design (§5): exactly one actor -- the event loop --
// may call its methods.
type Forwarder struct {
	pending     map[uint16]*request
	cache       map[string][]rr.RR
	lastChecked time.Time
	log         *slog.Logger
	stats       *stats.Registry
}

// New returns an empty Forwarder. reg is the metrics registry its read and
// age-TTL paths report into; it must not be nil.
func New(log *slog.Logger, reg *stats.Registry) *Forwarder {
	if log == nil {
		log = slog.Default()
	}
	return &Forwarder{
		pending:     make(map[uint16]*request, pendingCapacityHint),
		cache:       make(map[string][]rr.RR, cacheCapacityHint),
		lastChecked: time.Now(),
		log:         log,
		stats:       reg,
	}
}

func cacheKey(qname string) string {
	return strings.ToLower(qname)
}

// Seed installs records directly into the cache, bypassing the read path.
// Used by host seeding (§4.6) before the event loop starts.
func (f *Forwarder) Seed(qname string, records []rr.RR) {
	if len(records) == 0 {
		return
	}
	key := cacheKey(qname)
	clones := make([]rr.RR, len(records))
	for i, r := range records {
		clones[i] = rr.Copy(r)
	}
	f.cache[key] = clones
}

// Addresses returns the current cache keys, for the stats socket's
// "addresses" command (§6).
func (f *Forwarder) Addresses() []string {
	keys := make([]string, 0, len(f.cache))
	for k := range f.cache {
		keys = append(keys, k)
	}
	return keys
}

// AgeTTL subtracts the whole seconds elapsed since the last aging from every
// cached record's TTL, saturating at 0, and evicts expired records and
// now-empty keys (§4.4 "TTL aging"). A sub-second remainder carries over to
// the next call, so ticks shorter than a second still add up. Must run
// before Read on every event-loop tick (§5 ordering guarantee).
func (f *Forwarder) AgeTTL(now time.Time) {
	elapsed := now.Sub(f.lastChecked)
	elapsedSeconds := uint32(0)
	if elapsed > 0 {
		elapsedSeconds = uint32(elapsed.Seconds())
	}

	for key, records := range f.cache {
		kept := records[:0]
		for _, r := range records {
			if r.TTL <= elapsedSeconds {
				continue // saturating subtraction: dropped, never wraps
			}
			r.TTL -= elapsedSeconds
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(f.cache, key)
		} else {
			f.cache[key] = kept
		}
	}

	f.lastChecked = now
	f.stats.LastCacheCheck.Set(float64(now.Unix()))
}

// Read implements §4.4's read path. addr is the datagram's source, m the
// parsed inbound message.
func (f *Forwarder) Read(addr net.Addr, m message.Message) {
	if len(m.Questions) == 0 {
		f.log.Warn("dropping message with no question", "addr", addr)
		return
	}
	qname := m.Questions[0].Name
	key := cacheKey(qname)

	if cached, ok := f.cache[key]; ok {
		f.stats.CacheHits.Inc()
		m.ResourceRecords = make([]rr.RR, len(cached))
		for i, r := range cached {
			m.ResourceRecords[i] = rr.Copy(r)
		}
	} else {
		f.stats.CacheMiss.Inc()
	}

	id := m.Header.GetMessageID()

	if len(m.ResourceRecords) == 0 {
		f.pending[id] = &request{addr: addr, state: Added, msg: m}
		return
	}

	records := make([]rr.RR, len(m.ResourceRecords))
	for i, r := range m.ResourceRecords {
		records[i] = rr.Copy(r)
	}
	f.cache[key] = records

	if existing, ok := f.pending[id]; ok {
		existing.state = ReadyToSend
		existing.msg.ResourceRecords = m.ResourceRecords
	}
}

// Write implements §4.4's write path. servers is the configured upstream
// host list, without port. Every entry in ADDED is broadcast to every
// upstream; every entry in READY_TO_SEND is emitted once to its original
// requester and then removed; AWAITING_UPSTREAM entries are left alone.
func (f *Forwarder) Write(servers []string) []Outbound {
	var out []Outbound

	for id, req := range f.pending {
		switch req.state {
		case ReadyToSend:
			bytes, err := req.msg.Marshal()
			if err != nil {
				f.log.Error("marshaling reply", "id", id, "err", err)
				delete(f.pending, id)
				continue
			}
			out = append(out, Outbound{Bytes: bytes, Addr: req.addr})
			delete(f.pending, id)

		case Added:
			bytes, err := req.msg.Marshal()
			if err != nil {
				f.log.Error("marshaling upstream query", "id", id, "err", err)
				delete(f.pending, id)
				continue
			}
			for _, server := range servers {
				upstream, err := net.ResolveUDPAddr("udp", net.JoinHostPort(server, "53"))
				if err != nil {
					f.log.Error("resolving upstream", "server", server, "err", err)
					continue
				}
				out = append(out, Outbound{Bytes: bytes, Addr: upstream})
			}
			req.state = AwaitingUpstream

		case AwaitingUpstream:
			// awaiting reply; nothing to do this tick.
		}
	}

	return out
}
