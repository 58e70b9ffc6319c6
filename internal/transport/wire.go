package transport

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"hlckv/internal/hlc"
	"hlckv/internal/storage"
)

// ErrMalformed is returned when a message cannot be decoded.
var ErrMalformed = errors.New("transport: malformed message")

// Request is the single request message of both services. Client calls use
// Key, Value, Context and Quorum; replica calls carry a fully versioned
// Record instead.
type Request struct {
	Key       string
	Value     []byte
	Context   hlc.Timestamp // highest version the client has seen
	Sent      hlc.Timestamp // sender's clock when the request left
	ClientID  string
	RequestID string
	Quorum    uint32
	Record    *Record
	Repair    bool
	NodeID    string
}

// Response is the single response message of both services.
type Response struct {
	Found    bool
	Record   *Record
	Sent     hlc.Timestamp
	Conflict bool
	Applied  bool
	Siblings []*Record
}

// Record is a key with its versioned value.
type Record struct {
	Key     string
	Value   []byte
	Version hlc.Timestamp
	Deleted bool
	Origin  string
}

// RecordFrom converts a stored value to its wire form.
func RecordFrom(key string, vv *storage.VersionedValue) *Record {
	if vv == nil {
		return nil
	}
	return &Record{
		Key:     key,
		Value:   vv.Value,
		Version: vv.Version,
		Deleted: vv.Deleted,
		Origin:  vv.Origin,
	}
}

// VersionedValue converts r back to its storage form.
func (r *Record) VersionedValue() *storage.VersionedValue {
	if r == nil {
		return nil
	}
	return &storage.VersionedValue{
		Value:   r.Value,
		Version: r.Version,
		Deleted: r.Deleted,
		Origin:  r.Origin,
	}
}

// Field numbers. These are part of the wire format and must not be reused.
const (
	reqKey       protowire.Number = 1
	reqValue     protowire.Number = 2
	reqContext   protowire.Number = 3
	reqSent      protowire.Number = 4
	reqClientID  protowire.Number = 5
	reqRequestID protowire.Number = 6
	reqQuorum    protowire.Number = 7
	reqRecord    protowire.Number = 8
	reqRepair    protowire.Number = 9
	reqNodeID    protowire.Number = 10

	respFound    protowire.Number = 1
	respRecord   protowire.Number = 2
	respSent     protowire.Number = 3
	respConflict protowire.Number = 4
	respApplied  protowire.Number = 5
	respSiblings protowire.Number = 6

	recKey     protowire.Number = 1
	recValue   protowire.Number = 2
	recVersion protowire.Number = 3
	recDeleted protowire.Number = 4
	recOrigin  protowire.Number = 5

	tsPhysical protowire.Number = 1
	tsLogical  protowire.Number = 2
)

// Marshal encodes the request.
func (m *Request) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, reqKey, m.Key)
	b = appendBytes(b, reqValue, m.Value)
	b = appendTimestamp(b, reqContext, m.Context)
	b = appendTimestamp(b, reqSent, m.Sent)
	b = appendString(b, reqClientID, m.ClientID)
	b = appendString(b, reqRequestID, m.RequestID)
	b = appendVarint(b, reqQuorum, uint64(m.Quorum))
	if m.Record != nil {
		b = appendMessage(b, reqRecord, m.Record.appendTo(nil))
	}
	b = appendBool(b, reqRepair, m.Repair)
	b = appendString(b, reqNodeID, m.NodeID)
	return b, nil
}

// Unmarshal decodes b into the request, replacing its contents.
func (m *Request) Unmarshal(b []byte) error {
	*m = Request{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == reqKey && typ == protowire.BytesType:
			return consumeString(b, &m.Key)
		case num == reqValue && typ == protowire.BytesType:
			return consumeBytes(b, &m.Value)
		case num == reqContext && typ == protowire.BytesType:
			return consumeTimestamp(b, &m.Context)
		case num == reqSent && typ == protowire.BytesType:
			return consumeTimestamp(b, &m.Sent)
		case num == reqClientID && typ == protowire.BytesType:
			return consumeString(b, &m.ClientID)
		case num == reqRequestID && typ == protowire.BytesType:
			return consumeString(b, &m.RequestID)
		case num == reqQuorum && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Quorum = uint32(v)
			return n, nil
		case num == reqRecord && typ == protowire.BytesType:
			m.Record = new(Record)
			return consumeMessage(b, m.Record.unmarshal)
		case num == reqRepair && typ == protowire.VarintType:
			return consumeBool(b, &m.Repair)
		case num == reqNodeID && typ == protowire.BytesType:
			return consumeString(b, &m.NodeID)
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// Marshal encodes the response.
func (m *Response) Marshal() ([]byte, error) {
	var b []byte
	b = appendBool(b, respFound, m.Found)
	if m.Record != nil {
		b = appendMessage(b, respRecord, m.Record.appendTo(nil))
	}
	b = appendTimestamp(b, respSent, m.Sent)
	b = appendBool(b, respConflict, m.Conflict)
	b = appendBool(b, respApplied, m.Applied)
	for _, s := range m.Siblings {
		b = appendMessage(b, respSiblings, s.appendTo(nil))
	}
	return b, nil
}

// Unmarshal decodes b into the response, replacing its contents.
func (m *Response) Unmarshal(b []byte) error {
	*m = Response{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == respFound && typ == protowire.VarintType:
			return consumeBool(b, &m.Found)
		case num == respRecord && typ == protowire.BytesType:
			m.Record = new(Record)
			return consumeMessage(b, m.Record.unmarshal)
		case num == respSent && typ == protowire.BytesType:
			return consumeTimestamp(b, &m.Sent)
		case num == respConflict && typ == protowire.VarintType:
			return consumeBool(b, &m.Conflict)
		case num == respApplied && typ == protowire.VarintType:
			return consumeBool(b, &m.Applied)
		case num == respSiblings && typ == protowire.BytesType:
			r := new(Record)
			m.Siblings = append(m.Siblings, r)
			return consumeMessage(b, r.unmarshal)
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

func (r *Record) appendTo(b []byte) []byte {
	b = appendString(b, recKey, r.Key)
	b = appendBytes(b, recValue, r.Value)
	b = appendTimestamp(b, recVersion, r.Version)
	b = appendBool(b, recDeleted, r.Deleted)
	b = appendString(b, recOrigin, r.Origin)
	return b
}

func (r *Record) unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == recKey && typ == protowire.BytesType:
			return consumeString(b, &r.Key)
		case num == recValue && typ == protowire.BytesType:
			return consumeBytes(b, &r.Value)
		case num == recVersion && typ == protowire.BytesType:
			return consumeTimestamp(b, &r.Version)
		case num == recDeleted && typ == protowire.VarintType:
			return consumeBool(b, &r.Deleted)
		case num == recOrigin && typ == protowire.BytesType:
			return consumeString(b, &r.Origin)
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// walk iterates over the fields of an encoded message. field consumes the
// value following the tag and returns its length.
func walk(b []byte, field func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		n, err := field(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}

// Proto3 semantics: zero values are omitted.

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendTimestamp(b []byte, num protowire.Number, t hlc.Timestamp) []byte {
	if t.IsZero() {
		return b
	}
	var msg []byte
	msg = appendVarint(msg, tsPhysical, t.Physical)
	msg = appendVarint(msg, tsLogical, uint64(t.Logical))
	return appendMessage(b, num, msg)
}

func consumeString(b []byte, s *string) (int, error) {
	v, n := protowire.ConsumeString(b)
	*s = v
	return n, nil
}

func consumeBytes(b []byte, out *[]byte) (int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n >= 0 {
		*out = append([]byte(nil), v...)
	}
	return n, nil
}

func consumeBool(b []byte, out *bool) (int, error) {
	v, n := protowire.ConsumeVarint(b)
	*out = protowire.DecodeBool(v)
	return n, nil
}

func consumeMessage(b []byte, unmarshal func([]byte) error) (int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}
	return n, unmarshal(v)
}

func consumeTimestamp(b []byte, t *hlc.Timestamp) (int, error) {
	return consumeMessage(b, func(msg []byte) error {
		*t = hlc.Timestamp{}
		return walk(msg, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if typ != protowire.VarintType || (num != tsPhysical && num != tsLogical) {
				return protowire.ConsumeFieldValue(num, typ, b), nil
			}
			v, n := protowire.ConsumeVarint(b)
			if num == tsPhysical {
				t.Physical = v
			} else {
				if v > uint64(^uint32(0)) {
					return 0, fmt.Errorf("%w: logical %d out of range", ErrMalformed, v)
				}
				t.Logical = uint32(v)
			}
			return n, nil
		})
	})
}
