// Package codec encodes the metadata written next to persisted partial
// aggregates: run manifests and the per-blob header record.
//
// Each codec has a stable name and a one-byte ID. Partial blobs store the
// ID in their header so a reader can pick the matching codec; changing the
// default never breaks blobs written earlier.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Stable one-byte identifiers stored in blob headers.
const (
	IDJSON   byte = 1
	IDGoJSON byte = 2
)

var builtin = []struct {
	id    byte
	codec Codec
}{
	{IDJSON, JSON{}},
	{IDGoJSON, GoJSON{}},
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	for _, b := range builtin {
		if b.codec.Name() == name {
			return b.codec, true
		}
	}
	return nil, false
}

// ByID returns the codec a blob header names with id.
func ByID(id byte) (Codec, error) {
	for _, b := range builtin {
		if b.id == id {
			return b.codec, nil
		}
	}
	return nil, fmt.Errorf("codec: blob header names unknown codec id %d", id)
}

// ID returns the header byte of a built-in codec. Custom codecs cannot be
// named in a blob header.
func ID(c Codec) (byte, error) {
	for _, b := range builtin {
		if b.codec.Name() == c.Name() {
			return b.id, nil
		}
	}
	return 0, fmt.Errorf("codec: %q cannot be recorded in a blob header", c.Name())
}

// MustMarshal encodes v with c, or Default when c is nil, and panics on
// error. Tests and examples use it for fixtures.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
