package neuro

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the algorithm wrapping an encoded buffer at rest.
// Compressed data is self-identifying through the algorithm's magic bytes.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionLZ4
)

// DefaultDecompressLimit bounds inflation when no limit is given.
const DefaultDecompressLimit = 1 << 30

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4  = []byte{0x04, 0x22, 0x4d, 0x18}
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses the String form of a Compression.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "gzip":
		return CompressionGzip, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// zstdEncoder is shared; EncodeAll is safe for concurrent use.
var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("neuro: zstd encoder initialization failed: " + err.Error())
	}
}

// Compress wraps data with c. CompressionNone returns data unchanged.
func Compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case CompressionGzip, CompressionLZ4:
		var out bytes.Buffer
		zw := compressWriter(&out, c)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("%s compress: %w", c, err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("%s compress: %w", c, err)
		}
		return out.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompression, c)
	}
}

func compressWriter(w io.Writer, c Compression) io.WriteCloser {
	if c == CompressionLZ4 {
		return lz4.NewWriter(w)
	}
	return gzip.NewWriter(w)
}

// DetectCompression reports the algorithm data starts with, or
// CompressionNone when no known magic matches.
func DetectCompression(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, magicGzip):
		return CompressionGzip
	case bytes.HasPrefix(data, magicZstd):
		return CompressionZstd
	case bytes.HasPrefix(data, magicLZ4):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// Decompress unwraps data compressed with c. Output beyond limit bytes fails
// with ErrDecompressLimit; a limit <= 0 means DefaultDecompressLimit.
func Decompress(data []byte, c Compression, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultDecompressLimit
	}
	if c == CompressionNone {
		if int64(len(data)) > limit {
			return nil, fmt.Errorf("%w: %d > %d bytes", ErrDecompressLimit, len(data), limit)
		}
		return data, nil
	}
	rc, err := decompressReader(bytes.NewReader(data), c)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	out, err := io.ReadAll(LimitReader(rc, limit))
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", c, err)
	}
	return out, nil
}

// NewDecompressReader sniffs the head of r and returns a reader of the
// decompressed stream with the detected algorithm. Uncompressed input is
// passed through. Output beyond limit fails with ErrDecompressLimit.
func NewDecompressReader(r io.Reader, limit int64) (io.ReadCloser, Compression, error) {
	if limit <= 0 {
		limit = DefaultDecompressLimit
	}
	pr := PeekReader(r)
	head, err := pr.Peek(len(magicZstd))
	if err != nil && err != io.EOF {
		return nil, CompressionNone, err
	}
	c := DetectCompression(head)
	if c == CompressionNone {
		return LimitReader(pr, limit), c, nil
	}
	rc, err := decompressReader(pr, c)
	if err != nil {
		return nil, c, err
	}
	return &limitedCloser{Reader: LimitReader(rc, limit), inner: rc, src: pr}, c, nil
}

func decompressReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip decompress: %w", err)
		}
		return zr, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return zr.IOReadCloser(), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompression, c)
	}
}

// limitedCloser closes the decompressor and then the source.
type limitedCloser struct {
	io.Reader
	inner io.Closer
	src   io.Closer
}

func (l *limitedCloser) Close() error {
	err := l.inner.Close()
	if cerr := l.src.Close(); err == nil {
		err = cerr
	}
	return err
}
