package neuro

import (
	"encoding"
	"io"
)

// ReadFromGeneric provides an io.ReaderFrom for a BinaryUnmarshaler.
// WARNING: This is NOT a streaming implementation. It reads the entire
// io.Reader into a pooled buffer before unmarshalling; use a Decoder for
// streams of many values.
func ReadFromGeneric[T encoding.BinaryUnmarshaler](v T, r io.Reader) (int64, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	n, err := buf.ReadFrom(r)
	if err != nil {
		return n, err
	}
	return n, v.UnmarshalBinary(buf.Bytes())
}

// WriteToGeneric provides an io.WriterTo for a BinaryMarshaler.
func WriteToGeneric[T encoding.BinaryMarshaler](v T, w io.Writer) (int64, error) {
	if w == nil {
		return 0, ErrWriteToNil
	}
	buf, err := v.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	if err != nil {
		return int64(n), err
	}
	if n < len(buf) {
		return int64(n), io.ErrShortWrite
	}
	return int64(n), nil
}

// MarshalToGeneric encodes v into p without allocating a result slice.
func MarshalToGeneric[T any](v *T, p []byte) (int, error) {
	w := getWriter()
	defer putWriter(w)
	c, err := Write(w, v)
	if err != nil {
		return 0, err
	}
	if len(p) < c.Length {
		return 0, io.ErrShortBuffer
	}
	return copy(p, c.Bytes()), nil
}
