package neuro

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"
)

var compressions = []Compression{CompressionNone, CompressionGzip, CompressionZstd, CompressionLZ4}

// payload returns an encoded buffer large enough to compress well.
func payload(t *testing.T) []byte {
	t.Helper()
	in := fixture()
	in.Blob = bytes.Repeat([]byte("neuro"), 2000)
	data, err := Marshal(in)
	require.NoError(t, err)
	return data
}

func TestCompressRoundTrip(t *testing.T) {
	data := payload(t)
	for _, c := range compressions {
		t.Run(c.String(), func(t *testing.T) {
			packed, err := Compress(data, c)
			require.NoError(t, err)
			assert.Equal(t, c, DetectCompression(packed))
			if c != CompressionNone {
				assert.Less(t, len(packed), len(data))
			}

			out, err := Decompress(packed, c, 0)
			require.NoError(t, err)
			assert.Equal(t, data, out)

			var got TestObject
			require.NoError(t, Unmarshal(out, &got))
			assert.Len(t, got.Blob, 10000)
		})
	}
}

func TestCompressRandomData(t *testing.T) {
	data := frand.Bytes(4096)
	for _, c := range compressions[1:] {
		packed, err := Compress(data, c)
		require.NoError(t, err, c.String())
		out, err := Decompress(packed, c, int64(len(data)))
		require.NoError(t, err, c.String())
		assert.Equal(t, data, out, c.String())
	}
}

func TestDecompressLimit(t *testing.T) {
	data := make([]byte, 1000)
	for _, c := range compressions {
		packed, err := Compress(data, c)
		require.NoError(t, err)

		_, err = Decompress(packed, c, 999)
		assert.ErrorIs(t, err, ErrDecompressLimit, c.String())

		out, err := Decompress(packed, c, 1000)
		require.NoError(t, err, c.String())
		assert.Len(t, out, 1000)
	}
}

func TestDecompressErrors(t *testing.T) {
	_, err := Compress([]byte("x"), Compression(9))
	assert.ErrorIs(t, err, ErrUnknownCompression)
	_, err = Decompress([]byte("x"), Compression(9), 0)
	assert.ErrorIs(t, err, ErrUnknownCompression)

	_, err = Decompress([]byte{0x1f, 0x8b, 0x00, 0x01}, CompressionGzip, 0)
	assert.Error(t, err)
	_, err = Decompress(append(bytes.Clone(magicZstd), 0xff, 0xff, 0xff), CompressionZstd, 0)
	assert.Error(t, err)
}

func TestDecompressReader(t *testing.T) {
	data := payload(t)
	for _, c := range compressions {
		packed, err := Compress(data, c)
		require.NoError(t, err)

		rc, got, err := NewDecompressReader(bytes.NewReader(packed), 0)
		require.NoError(t, err)
		assert.Equal(t, c, got)
		out, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, data, out)
		require.NoError(t, rc.Close())

		rc, _, err = NewDecompressReader(bytes.NewReader(packed), 100)
		require.NoError(t, err)
		_, err = io.ReadAll(rc)
		assert.ErrorIs(t, err, ErrDecompressLimit, c.String())
	}

	// Input shorter than any magic passes through.
	rc, c, err := NewDecompressReader(bytes.NewReader([]byte{0x15}), 0)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, c)
	out, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x15}, out)

	rc, _, err = NewDecompressReader(bytes.NewReader(nil), 0)
	require.NoError(t, err)
	out, err = io.ReadAll(rc)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestParseCompression(t *testing.T) {
	for _, c := range compressions {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCompression("brotli")
	assert.ErrorIs(t, err, ErrUnknownCompression)
	assert.Equal(t, "unknown(9)", Compression(9).String())
}
