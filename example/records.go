package example

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// FrameRecords concatenates records, each prefixed with its varint length.
func FrameRecords(records [][]byte) []byte {
	size := 0
	for _, r := range records {
		size += protowire.SizeBytes(len(r))
	}
	out := make([]byte, 0, size)
	for _, r := range records {
		out = protowire.AppendBytes(out, r)
	}
	return out
}

// ReadRecords splits a stream written by FrameRecords. The returned records
// alias b.
func ReadRecords(b []byte) ([][]byte, error) {
	var out [][]byte
	for len(b) > 0 {
		r, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
		}
		out = append(out, r[:len(r):len(r)])
		b = b[n:]
	}
	return out, nil
}
