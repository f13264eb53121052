package neuro

import (
	"fmt"
	"io"
)

// LimitedReader reads at most N bytes from R. Unlike io.LimitedReader it
// reports ErrDecompressLimit when R holds more, so a truncated result is
// never mistaken for a complete one.
type LimitedReader struct {
	R     io.Reader
	N     int64 // bytes left
	limit int64
}

// LimitReader wraps r. A limit <= 0 disables the check.
func LimitReader(r io.Reader, limit int64) io.ReadCloser {
	if limit <= 0 {
		return io.NopCloser(r)
	}
	return &LimitedReader{R: r, N: limit, limit: limit}
}

func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.N <= 0 {
		// Read one more byte to tell an exact fit from an overflow.
		var extra [1]byte
		n, err := l.R.Read(extra[:])
		if n > 0 {
			return 0, fmt.Errorf("%w: more than %d bytes", ErrDecompressLimit, l.limit)
		}
		if err == nil {
			err = io.ErrNoProgress
		}
		return 0, err
	}
	if int64(len(p)) > l.N {
		p = p[:l.N]
	}
	n, err := l.R.Read(p)
	l.N -= int64(n)
	return n, err
}

// Close closes the underlying reader if it implements io.Closer.
func (l *LimitedReader) Close() error {
	if c, ok := l.R.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
