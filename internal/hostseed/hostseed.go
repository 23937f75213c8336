// Package hostseed populates the answer cache with locally-authoritative
// records before the event loop starts (§4.6), from a system-style hosts
// file and/or inline YAML `{ip: name}` entries.
//
// Grounded on the original daemon's config.rs Config::get_hosts.
package hostseed

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/halvard/rdnsd/internal/qclass"
	"github.com/halvard/rdnsd/internal/qtype"
	"github.com/halvard/rdnsd/internal/rr"
)

// permanentTTL is u32::max_value() in the original: "should be long enough
// ~136 years" -- still subject to the aging loop's saturating arithmetic.
const permanentTTL = 0xFFFFFFFF

// Hosts is the seeded name -> records map, keyed by hostname exactly as
// later entries overwrite earlier ones (§4.6).
type Hosts map[string][]rr.RR

func recordFor(name string, ip net.IP) (rr.RR, error) {
	if v4 := ip.To4(); v4 != nil {
		return rr.RR{Name: name, Type: qtype.A, Class: qclass.IN, TTL: permanentTTL, RDATA: v4}, nil
	}
	if v6 := ip.To16(); v6 != nil {
		return rr.RR{Name: name, Type: qtype.AAAA, Class: qclass.IN, TTL: permanentTTL, RDATA: v6}, nil
	}
	return rr.RR{}, fmt.Errorf("hostseed: %q is not a valid IP literal", ip.String())
}

// ParseHostsFile reads a system-style hosts file: "#" comment lines are
// skipped, remaining lines are whitespace-separated fields, the first
// field is the IP literal and the last field the hostname.
func ParseHostsFile(path string) (Hosts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hostseed: opening %s: %w", path, err)
	}
	defer f.Close()

	out := make(Hosts)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		ip := net.ParseIP(fields[0])
		if ip == nil {
			continue
		}
		name := fields[len(fields)-1]

		record, err := recordFor(name, ip)
		if err != nil {
			continue
		}
		out[name] = []rr.RR{record}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("hostseed: reading %s: %w", path, err)
	}
	return out, nil
}

// FromInline builds Hosts from the config's `hosts` sequence of
// single-entry `{ip: name}` mappings.
func FromInline(entries []map[string]string) (Hosts, error) {
	out := make(Hosts)
	for _, entry := range entries {
		for ipLiteral, name := range entry {
			ip := net.ParseIP(ipLiteral)
			if ip == nil {
				return nil, fmt.Errorf("hostseed: %q is not a valid IP literal", ipLiteral)
			}
			record, err := recordFor(name, ip)
			if err != nil {
				return nil, err
			}
			out[name] = []rr.RR{record}
		}
	}
	return out, nil
}

// Merge overlays extra onto base, later entries overwriting earlier ones by
// name (§4.6).
func Merge(base, extra Hosts) Hosts {
	out := make(Hosts, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
