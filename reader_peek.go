package neuro

import (
	"io"
)

// PeekableReader lets a caller look at the head of a stream, e.g. to sniff
// a compression magic, before handing the whole stream on.
type PeekableReader struct {
	R io.Reader // The underlying reader.
	B []byte    // Peeked bytes not yet consumed.
}

// PeekReader returns a PeekableReader. If the given reader is already a
// PeekableReader, it is returned directly.
func PeekReader(r io.Reader) *PeekableReader {
	if pr, ok := r.(*PeekableReader); ok {
		return pr
	}
	return &PeekableReader{R: r}
}

// Peek returns up to n next bytes without advancing the reader. Fewer bytes
// come back only together with the error that cut the read short.
func (r *PeekableReader) Peek(n int) ([]byte, error) {
	if len(r.B) >= n {
		return r.B[:n], nil
	}
	i := len(r.B)
	r.B = append(r.B, make([]byte, n-i)...)
	read, err := io.ReadFull(r.R, r.B[i:])
	r.B = r.B[:i+read]
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return r.B, err
}

// Close closes the underlying reader if it implements io.Closer.
func (r *PeekableReader) Close() error {
	if c, ok := r.R.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Read drains the peeked bytes first, then reads from the underlying reader.
func (r *PeekableReader) Read(p []byte) (n int, err error) {
	if len(r.B) > 0 {
		n = copy(p, r.B)
		r.B = r.B[n:]
		return n, nil
	}
	return r.R.Read(p)
}
