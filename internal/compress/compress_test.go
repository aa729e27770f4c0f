package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	compressible := bytes.Repeat([]byte("count=42;mean=3.5;"), 200)
	random := []byte{0x9c, 0x01, 0xfe, 0x33, 0x7a}

	for _, typ := range []Type{None, LZ4, Zstd} {
		t.Run(typ.String(), func(t *testing.T) {
			for _, data := range [][]byte{compressible, random, {}} {
				block, err := Compress(data, typ)
				require.NoError(t, err)

				got, err := Decompress(block, typ)
				require.NoError(t, err)
				assert.Equal(t, len(data), len(got))
				assert.True(t, bytes.Equal(data, got))
			}
		})
	}
}

func TestCompress_Shrinks(t *testing.T) {
	data := bytes.Repeat([]byte{0}, 4096)

	for _, typ := range []Type{LZ4, Zstd} {
		block, err := Compress(data, typ)
		require.NoError(t, err)
		assert.Less(t, len(block), len(data), typ.String())
	}
}

func TestDecompress_Corrupt(t *testing.T) {
	_, err := Decompress([]byte{1, 2, 3}, LZ4)
	require.ErrorIs(t, err, ErrCorrupt)

	block, err := Compress(bytes.Repeat([]byte("abc"), 100), Zstd)
	require.NoError(t, err)
	_, err = Decompress(block[:len(block)-4], Zstd)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestUnknownType(t *testing.T) {
	_, err := Compress([]byte("x"), Type(9))
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestParseType(t *testing.T) {
	for _, typ := range []Type{None, LZ4, Zstd} {
		got, ok := ParseType(typ.String())
		require.True(t, ok)
		assert.Equal(t, typ, got)
	}
	_, ok := ParseType("brotli")
	assert.False(t, ok)
}
