package neuro

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// byteSource is what a StreamReader reads through: buffered, byte-wise and
// at least forward seekable.
type byteSource interface {
	io.Reader
	io.ByteReader
	io.Seeker
}

// StreamReader reads wire primitives from an io.Reader. It buffers the
// source unless it is already in memory and tracks the first error;
// subsequent reads become no-ops.
type StreamReader struct {
	r     byteSource
	count int64 // total bytes consumed
	err   error // first error encountered
}

var _ byteSource = (*StreamReader)(nil)

// NewStreamReaderSize creates a StreamReader with a specified buffer size.
func NewStreamReaderSize(r io.Reader, size int) (*StreamReader, error) {
	if r == nil {
		return nil, ErrNilIO
	}

	switch reader := r.(type) {
	// Share the source of an existing StreamReader.
	case *StreamReader:
		return &StreamReader{r: reader.r, count: reader.count}, nil

	// prevent unpredictable double-buffering.
	case *bufio.Reader:
		if reader.Size() >= size {
			return &StreamReader{r: &bufioReaderAdapter{Reader: reader}}, nil
		}
		return nil, ErrAlreadyBuffered

	// in memory already, no buffering needed
	case *BytesReader:
		return &StreamReader{r: reader}, nil
	case *bytes.Reader:
		return &StreamReader{r: reader}, nil
	}

	if size < 16 {
		return nil, ErrSizeTooSmall
	}

	// bufio reads through the seeker so its position tracks what was consumed.
	seeker := ForwardSeeker(r)
	return &StreamReader{
		r: &bufioReaderAdapter{Reader: bufio.NewReaderSize(seeker, size), seeker: seeker},
	}, nil
}

// NewStreamReader creates a StreamReader with the default buffer size.
func NewStreamReader(r io.Reader) (*StreamReader, error) {
	return NewStreamReaderSize(r, 4096)
}

// Read implements the io.Reader interface.
func (r *StreamReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.r.Read(p)
	r.count += int64(n)
	r.setError(err)
	return n, r.err
}

// ReadByte implements the io.ByteReader interface.
func (r *StreamReader) ReadByte() (byte, error) {
	if r.err != nil {
		return 0, r.err
	}
	b, err := r.r.ReadByte()
	if err != nil {
		r.setError(err)
		return 0, err
	}
	r.count++
	return b, nil
}

// Seek moves the read position. Sources that are not seekable only move forward.
func (r *StreamReader) Seek(offset int64, whence int) (int64, error) {
	if r.err != nil {
		return r.count, r.err
	}
	pos, err := r.r.Seek(offset, whence)
	if err != nil {
		r.setError(err)
		return r.count, err
	}
	r.count = pos
	return pos, nil
}

// Skip discards the next n bytes. Skipping past the end of the source
// latches ErrUnexpectedEndOfData.
func (r *StreamReader) Skip(n int64) {
	if n <= 0 || r.err != nil {
		return
	}
	if rem, ok := r.remaining(); ok && n > rem {
		r.Seek(rem, io.SeekCurrent)
		r.setError(ErrUnexpectedEndOfData)
		return
	}
	r.Seek(n, io.SeekCurrent)
}

// remaining returns the unread size of sources that know it. Seekable
// sources accept positions past their end, so Skip checks against it.
func (r *StreamReader) remaining() (int64, bool) {
	switch src := r.r.(type) {
	case *bytes.Reader:
		return int64(src.Len()), true
	case *BytesReader:
		return int64(src.Available()), true
	case *bufioReaderAdapter:
		return src.remaining()
	}
	return 0, false
}

func (r *StreamReader) Count() int64 { return r.count }
func (r *StreamReader) Err() error   { return r.err }
func (r *StreamReader) IsEOF() bool  { return r.err == io.EOF }

// setError records the first non-nil error.
func (r *StreamReader) setError(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// Result returns the total bytes read and the final error state.
func (r *StreamReader) Result() (int64, error) {
	return r.count, r.err
}

// ReadVarUint reads one varint. End of input before the first byte latches
// io.EOF; inside the varint it latches ErrUnexpectedEndOfData.
func (r *StreamReader) ReadVarUint() uint64 {
	if r.err != nil {
		return 0
	}
	var v uint64
	for i := range MaxVarintLen64 {
		b, err := r.r.ReadByte()
		if err != nil {
			if err == io.EOF && i > 0 {
				err = ErrUnexpectedEndOfData
			}
			r.setError(err)
			return 0
		}
		r.count++
		if i == MaxVarintLen64-1 && b > 1 {
			break
		}
		v |= uint64(b&0x7f) << (7 * i)
		if b < 0x80 {
			return v
		}
	}
	r.setError(ErrVarintOverflow)
	return 0
}

// ReadFull fills dst. A short read latches ErrUnexpectedEndOfData.
func (r *StreamReader) ReadFull(dst []byte) {
	if r.err != nil || len(dst) == 0 {
		return
	}
	n, err := io.ReadFull(r.r, dst)
	r.count += int64(n)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = ErrUnexpectedEndOfData
	}
	r.setError(err)
}

// ReadLength reads a length-prefixed payload into buf, growing it as needed,
// and returns the filled slice. Lengths above limit latch ErrRecordTooLarge
// instead of allocating.
func (r *StreamReader) ReadLength(buf []byte, limit int) []byte {
	n := r.ReadVarUint()
	if r.err != nil {
		return buf[:0]
	}
	if n > uint64(limit) {
		r.setError(fmt.Errorf("%w: %d > %d bytes", ErrRecordTooLarge, n, limit))
		return buf[:0]
	}
	if uint64(cap(buf)) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]
	r.ReadFull(buf)
	return buf
}

// SkipLength steps over a length-prefixed payload, applying the same limit
// as ReadLength.
func (r *StreamReader) SkipLength(limit int) {
	n := r.ReadVarUint()
	if r.err != nil {
		return
	}
	if n > uint64(limit) {
		r.setError(fmt.Errorf("%w: %d > %d bytes", ErrRecordTooLarge, n, limit))
		return
	}
	r.Skip(int64(n))
}
