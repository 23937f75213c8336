// Package rr implements the DNS resource record (RFC 1035 §3.2.1): name,
// rtype, rclass, ttl, and an opaque rdata payload.
//
// Per the design notes (§9), rdata is carried as raw bytes rather than a
// per-type tagged union -- this forwarder only ever copies records between
// cache, pending table and wire, it never constructs or inspects rdata for
// a specific type (A/CNAME/MX/...), so a typed union would be dead
// dispatch code no caller exercises.
package rr

import (
	"fmt"

	"github.com/halvard/rdnsd/internal/codec"
	"github.com/halvard/rdnsd/internal/qclass"
	"github.com/halvard/rdnsd/internal/qtype"
)

type RR struct {
	Name  string
	Type  qtype.Type
	Class qclass.Class
	TTL   uint32
	RDATA []byte
}

// Copy returns a deep copy of old; cache entries and pending messages must
// never share a backing RDATA array (§3 invariant: TTL aging mutates copies
// independently).
func Copy(old RR) RR {
	data := make([]byte, len(old.RDATA))
	copy(data, old.RDATA)
	return RR{Name: old.Name, Type: old.Type, Class: old.Class, TTL: old.TTL, RDATA: data}
}

// MarshalFixed encodes type, class, ttl, rdlength and rdata -- everything
// after the name. The message builder supplies the name bytes separately,
// since per §4.3 every answer-section name is replaced by a fixed
// compression pointer rather than rr.Name's actual encoding.
func (r *RR) MarshalFixed() []byte {
	w := codec.NewWriter()
	w.WriteUint16(uint16(r.Type))
	w.WriteUint16(uint16(r.Class))
	w.WriteUint32(r.TTL)
	w.WriteUint16(uint16(len(r.RDATA)))
	w.WriteBytes(r.RDATA)
	return w.Bytes()
}

// Unmarshal decodes one resource record starting at r's current position.
// full is the entire message, needed to resolve a compression pointer in
// the record's name.
func Unmarshal(r *codec.Reader, full []byte) (RR, error) {
	name, consumed, err := codec.DecodeRRName(full, r.Position())
	if err != nil {
		return RR{}, err
	}
	r.SetPosition(r.Position() + consumed)

	rawType, err := r.ReadUint16()
	if err != nil {
		return RR{}, err
	}
	t, err := qtype.Parse(rawType)
	if err != nil {
		return RR{}, err
	}

	rawClass, err := r.ReadUint16()
	if err != nil {
		return RR{}, err
	}
	c, err := qclass.Parse(rawClass)
	if err != nil {
		return RR{}, err
	}

	ttl, err := r.ReadUint32()
	if err != nil {
		return RR{}, err
	}

	rdlength, err := r.ReadUint16()
	if err != nil {
		return RR{}, err
	}

	rdata, err := r.ReadBytes(int(rdlength))
	if err != nil {
		return RR{}, fmt.Errorf("rr: reading %d byte rdata: %w", rdlength, err)
	}

	return RR{Name: name, Type: t, Class: c, TTL: ttl, RDATA: rdata}, nil
}
