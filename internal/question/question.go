// Package question implements the DNS question section entry: qname, qtype,
// qclass (RFC 1035 §4.1.2).
package question

import (
	"github.com/halvard/rdnsd/internal/codec"
	"github.com/halvard/rdnsd/internal/qclass"
	"github.com/halvard/rdnsd/internal/qtype"
)

type Question struct {
	Name  string
	Type  qtype.Type
	Class qclass.Class
}

// Marshal encodes the question: name as uncompressed labels, then qtype and
// qclass as big-endian u16s. Question names are never compressed on the
// wire (§4.3).
func (q *Question) Marshal() ([]byte, error) {
	nameBytes, err := codec.EncodeName(q.Name)
	if err != nil {
		return nil, err
	}
	w := codec.NewWriter()
	w.WriteBytes(nameBytes)
	w.WriteUint16(uint16(q.Type))
	w.WriteUint16(uint16(q.Class))
	return w.Bytes(), nil
}

// Unmarshal reads one question from r. Per §4.3, a compression pointer in
// the question section is an error, not a reference to follow.
func Unmarshal(r *codec.Reader) (Question, error) {
	name, err := codec.DecodeQuestionName(r)
	if err != nil {
		return Question{}, err
	}

	rawType, err := r.ReadUint16()
	if err != nil {
		return Question{}, err
	}
	t, err := qtype.Parse(rawType)
	if err != nil {
		return Question{}, err
	}

	rawClass, err := r.ReadUint16()
	if err != nil {
		return Question{}, err
	}
	c, err := qclass.Parse(rawClass)
	if err != nil {
		return Question{}, err
	}

	return Question{Name: name, Type: t, Class: c}, nil
}
