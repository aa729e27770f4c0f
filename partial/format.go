package partial

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/hupe1980/batchagg/codec"
	"github.com/hupe1980/batchagg/internal/compress"
	"github.com/hupe1980/batchagg/reduce"
	"github.com/hupe1980/batchagg/tensor"
)

const (
	magic         = "BAGG"
	formatVersion = 1
	preambleSize  = len(magic) + 3
)

// ErrMalformed is returned for blobs that do not decode.
var ErrMalformed = errors.New("partial: malformed blob")

// Entry is the aggregate one reducer produced for one feature.
type Entry struct {
	Feature   string
	Aggregate reduce.Aggregate
}

// Partial is everything one batch contributed to a run.
type Partial struct {
	RunID     string
	Batch     int64
	Rows      int64
	CreatedAt time.Time
	Entries   []Entry
}

// header is the codec-encoded record at the start of every blob body.
type header struct {
	RunID     string    `json:"run_id"`
	Batch     int64     `json:"batch"`
	Rows      int64     `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
	Entries   int       `json:"entries"`
}

// Body message fields.
const (
	fieldHeader protowire.Number = 1
	fieldEntry  protowire.Number = 2
)

// Entry message fields.
const (
	fieldFeature protowire.Number = 1
	fieldOp      protowire.Number = 2
	fieldField   protowire.Number = 3
)

// Field message fields.
const (
	fieldName  protowire.Number = 1
	fieldValue protowire.Number = 2
)

// Encode serializes p.
func Encode(p *Partial, c codec.Codec, ct compress.Type) ([]byte, error) {
	id, err := codec.ID(c)
	if err != nil {
		return nil, err
	}
	hdr, err := c.Marshal(header{
		RunID:     p.RunID,
		Batch:     p.Batch,
		Rows:      p.Rows,
		CreatedAt: p.CreatedAt,
		Entries:   len(p.Entries),
	})
	if err != nil {
		return nil, fmt.Errorf("partial: encode header: %w", err)
	}

	var body []byte
	body = protowire.AppendTag(body, fieldHeader, protowire.BytesType)
	body = protowire.AppendBytes(body, hdr)
	for _, e := range p.Entries {
		body = protowire.AppendTag(body, fieldEntry, protowire.BytesType)
		body = protowire.AppendBytes(body, appendEntry(nil, e))
	}

	block, err := compress.Compress(body, ct)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, preambleSize+len(block))
	out = append(out, magic...)
	out = append(out, formatVersion, byte(ct), id)
	return append(out, block...), nil
}

func appendEntry(dst []byte, e Entry) []byte {
	dst = protowire.AppendTag(dst, fieldFeature, protowire.BytesType)
	dst = protowire.AppendString(dst, e.Feature)
	dst = protowire.AppendTag(dst, fieldOp, protowire.BytesType)
	dst = protowire.AppendString(dst, e.Aggregate.Op())

	for _, f := range e.Aggregate.Fields() {
		var msg []byte
		msg = protowire.AppendTag(msg, fieldName, protowire.BytesType)
		msg = protowire.AppendString(msg, f.Name)
		// Nil fields are omitted; vocabularies ordered by frequency carry only values.
		if f.Value != nil {
			msg = protowire.AppendTag(msg, fieldValue, protowire.BytesType)
			msg = protowire.AppendBytes(msg, tensor.AppendWire(nil, f.Value))
		}
		dst = protowire.AppendTag(dst, fieldField, protowire.BytesType)
		dst = protowire.AppendBytes(dst, msg)
	}
	return dst
}

// Decode parses a blob written by Encode.
func Decode(b []byte) (*Partial, error) {
	if len(b) < preambleSize || string(b[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrMalformed)
	}
	if v := b[len(magic)]; v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, v)
	}
	ct := compress.Type(b[len(magic)+1])
	if _, ok := compress.ParseType(ct.String()); !ok {
		return nil, fmt.Errorf("%w: %w: %d", ErrMalformed, compress.ErrUnknownType, ct)
	}
	c, err := codec.ByID(b[len(magic)+2])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	body, err := compress.Decompress(b[preambleSize:], ct)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	p := &Partial{}
	var sawHeader bool
	var want int
	err = eachField(body, func(num protowire.Number, v []byte) error {
		switch num {
		case fieldHeader:
			var h header
			if err := c.Unmarshal(v, &h); err != nil {
				return fmt.Errorf("header: %w", err)
			}
			p.RunID, p.Batch, p.Rows, p.CreatedAt = h.RunID, h.Batch, h.Rows, h.CreatedAt
			want = h.Entries
			sawHeader = true
		case fieldEntry:
			e, err := parseEntry(v)
			if err != nil {
				return err
			}
			p.Entries = append(p.Entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if !sawHeader {
		return nil, fmt.Errorf("%w: missing header", ErrMalformed)
	}
	if len(p.Entries) != want {
		return nil, fmt.Errorf("%w: %d entries, header says %d", ErrMalformed, len(p.Entries), want)
	}
	return p, nil
}

func parseEntry(b []byte) (Entry, error) {
	var feature, op string
	var fields []reduce.Field
	err := eachField(b, func(num protowire.Number, v []byte) error {
		switch num {
		case fieldFeature:
			feature = string(v)
		case fieldOp:
			op = string(v)
		case fieldField:
			f, err := parseField(v)
			if err != nil {
				return err
			}
			fields = append(fields, f)
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	agg, err := reduce.FromFields(op, fields)
	if err != nil {
		return Entry{}, fmt.Errorf("feature %q: %w", feature, err)
	}
	return Entry{Feature: feature, Aggregate: agg}, nil
}

func parseField(b []byte) (reduce.Field, error) {
	var f reduce.Field
	err := eachField(b, func(num protowire.Number, v []byte) error {
		switch num {
		case fieldName:
			f.Name = string(v)
		case fieldValue:
			d, err := tensor.ParseWire(v)
			if err != nil {
				return err
			}
			f.Value = d
		}
		return nil
	})
	return f, err
}

// eachField walks the length-delimited fields of a message. Fields of any
// other wire type are skipped.
func eachField(b []byte, fn func(protowire.Number, []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if typ != protowire.BytesType {
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			b = b[m:]
			continue
		}
		v, m := protowire.ConsumeBytes(b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
		if err := fn(num, v); err != nil {
			return err
		}
	}
	return nil
}
