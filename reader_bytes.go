package neuro

import (
	"fmt"
	"io"
	"math"
)

// BytesReader is a cursor over an in-memory byte slice. Besides io.Reader it
// decodes the wire primitives in place, so slices it returns alias B.
type BytesReader struct {
	B []byte // source slice
	N int    // current read position
}

// NewBytesReader creates a new BytesReader.
func NewBytesReader(b []byte) *BytesReader {
	return &BytesReader{B: b}
}

// Read implements the [io.Reader] interface.
func (r *BytesReader) Read(p []byte) (int, error) {
	if r.N >= len(r.B) {
		return 0, io.EOF
	}
	n := copy(p, r.B[r.N:])
	r.N += n
	return n, nil
}

// ReadByte implements the [io.ByteReader] interface.
func (r *BytesReader) ReadByte() (byte, error) {
	if r.N >= len(r.B) {
		return 0, io.EOF
	}
	b := r.B[r.N]
	r.N++
	return b, nil
}

// Seek implements the [io.Seeker] interface.
func (r *BytesReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(r.N) + offset
	case io.SeekEnd:
		abs = int64(len(r.B)) + offset
	default:
		return 0, ErrInvalidWhence
	}

	if abs < 0 || abs > int64(len(r.B)) {
		return 0, ErrInvalidSeek
	}

	r.N = int(abs)
	return abs, nil
}

// Reset points the reader at b.
func (r *BytesReader) Reset(b []byte) {
	r.B = b
	r.N = 0
}

// Available returns the number of bytes left to read.
func (r *BytesReader) Available() int {
	return max(len(r.B)-r.N, 0)
}

// EOF reports whether every byte has been consumed.
func (r *BytesReader) EOF() bool { return r.N >= len(r.B) }

func (r *BytesReader) varUint() (uint64, error) {
	v, n, err := ReadVarUint(r.B, r.N)
	if err != nil {
		return 0, fmt.Errorf("%w at offset %d", err, r.N)
	}
	r.N += n
	return v, nil
}

func (r *BytesReader) varUint32() (uint32, error) {
	v, err := r.varUint()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d does not fit 32 bits at offset %d", ErrVarintOverflow, v, r.N)
	}
	return uint32(v), nil
}

// next returns the following n bytes without copying.
func (r *BytesReader) next(n uint64) ([]byte, error) {
	if n > uint64(r.Available()) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrUnexpectedEndOfData, n, r.N, r.Available())
	}
	b := r.B[r.N : r.N+int(n)]
	r.N += int(n)
	return b, nil
}

func (r *BytesReader) fixed32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return Order.Uint32(b), nil
}

func (r *BytesReader) fixed64() (uint64, error) {
	b, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return Order.Uint64(b), nil
}

// length reads a varuint length and the payload it prefixes.
func (r *BytesReader) length() ([]byte, error) {
	n, err := r.varUint()
	if err != nil {
		return nil, err
	}
	return r.next(n)
}
