// Package message implements the DNS message parser and builder (§4.3):
// the 12-byte header, the question section, and a single flat resource
// record section. Authority and additional sections are parsed only
// insofar as needed to ignore them, and are always emitted empty (§1
// Non-goals, §3).
package message

import (
	"fmt"

	"github.com/halvard/rdnsd/internal/codec"
	"github.com/halvard/rdnsd/internal/header"
	"github.com/halvard/rdnsd/internal/question"
	"github.com/halvard/rdnsd/internal/qtype"
	"github.com/halvard/rdnsd/internal/rr"
)

// Message is a parsed (or about-to-be-built) DNS message. ResourceRecords
// holds what the wire format calls the answer section; the forwarder core
// never distinguishes answer/authority/additional, so there is only one
// list here (§3 Data model).
type Message struct {
	Header          header.Header
	Questions       []question.Question
	ResourceRecords []rr.RR
}

// Unmarshal parses buf into a Message, following §4.3 exactly: the header,
// then qdcount questions (names never compressed), then -- only if the
// message is a response -- ancount resource records (names may be
// compressed). Authority and additional sections, if present, are left
// unread; their counts are not trusted by this forwarder.
func Unmarshal(buf []byte) (Message, error) {
	h, err := header.Unmarshal(buf)
	if err != nil {
		return Message{}, err
	}

	r := codec.NewReader(buf)
	r.SetPosition(12)

	msg := Message{Header: *h}

	msg.Questions = make([]question.Question, 0, h.GetQDCOUNT())
	for i := 0; i < int(h.GetQDCOUNT()); i++ {
		q, err := question.Unmarshal(r)
		if err != nil {
			return Message{}, fmt.Errorf("message: question %d: %w", i, err)
		}
		msg.Questions = append(msg.Questions, q)
	}

	if h.IsResponse() {
		msg.ResourceRecords = make([]rr.RR, 0, h.GetANCOUNT())
		for i := 0; i < int(h.GetANCOUNT()); i++ {
			record, err := rr.Unmarshal(r, buf)
			if err != nil {
				return Message{}, fmt.Errorf("message: resource record %d: %w", i, err)
			}
			msg.ResourceRecords = append(msg.ResourceRecords, record)
		}
	}

	return msg, nil
}

// Marshal builds the wire form of msg: header, questions, then resource
// records with the name-compression scheme described in §4.3.
//
// Every record's name is replaced on output by a pointer back to the first
// question's name -- the builder never re-encodes rr.Name. The pointer
// target starts at offset 12 (the first byte after the fixed header, i.e.
// the first question name) and is advanced by 4 for every CNAME record
// emitted so far, approximating a pointer into the canonical name embedded
// in that record's own rdata. This is a known source-language shortcut,
// not true compression (§9) -- it is reproduced literally, not "fixed".
//
// qdcount and ancount are always written as the actual slice lengths;
// nscount and arcount are always 0.
func (msg *Message) Marshal() ([]byte, error) {
	h := msg.Header
	h.SetQDCOUNT(uint16(len(msg.Questions)))
	h.SetANCOUNT(uint16(len(msg.ResourceRecords)))
	h.SetNSCOUNT(0)
	h.SetARCOUNT(0)

	headerBytes, err := h.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("message: marshaling header: %w", err)
	}

	w := codec.NewWriter()
	w.WriteBytes(headerBytes)

	for i, q := range msg.Questions {
		qBytes, err := q.Marshal()
		if err != nil {
			return nil, fmt.Errorf("message: marshaling question %d: %w", i, err)
		}
		w.WriteBytes(qBytes)
	}

	positionQuestion := len(headerBytes)
	for _, record := range msg.ResourceRecords {
		if positionQuestion > 0x3FFF {
			return nil, fmt.Errorf("message: compression pointer offset %d exceeds 14 bits", positionQuestion)
		}
		w.WriteByte(0b11000000 | byte(positionQuestion>>8))
		w.WriteByte(byte(positionQuestion & 0xFF))
		w.WriteBytes(record.MarshalFixed())

		if record.Type == qtype.CNAME {
			positionQuestion += 4
		}
	}

	return w.Bytes(), nil
}

// Copy returns a deep copy of source, including independent resource record
// slices and RDATA, so that mutating the copy never changes source.
func Copy(source Message) Message {
	out := Message{
		Header:    source.Header,
		Questions: append([]question.Question(nil), source.Questions...),
	}
	out.ResourceRecords = make([]rr.RR, len(source.ResourceRecords))
	for i, r := range source.ResourceRecords {
		out.ResourceRecords[i] = rr.Copy(r)
	}
	return out
}
