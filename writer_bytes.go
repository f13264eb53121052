package neuro

import "io"

// minGrow is the smallest capacity increase a BytesWriter makes.
const minGrow = 128

// BytesWriter is an io.Writer appending to a growable byte slice. Capacity
// grows geometrically: it at least doubles, and always by at least 128 bytes.
type BytesWriter struct {
	B []byte // written data, len(B) is the write position
}

// NewBytesWriter creates a BytesWriter that appends after the contents of p.
func NewBytesWriter(p []byte) *BytesWriter {
	return &BytesWriter{B: p}
}

// Grow ensures room for n more bytes without another allocation.
func (w *BytesWriter) Grow(n int) {
	if cap(w.B)-len(w.B) >= n {
		return
	}
	c := max(2*cap(w.B), cap(w.B)+minGrow, len(w.B)+n)
	b := make([]byte, len(w.B), c)
	copy(b, w.B)
	w.B = b
}

// Write implements the io.Writer interface.
func (w *BytesWriter) Write(p []byte) (int, error) {
	w.Grow(len(p))
	w.B = append(w.B, p...)
	return len(p), nil
}

// WriteString implements the io.StringWriter interface.
func (w *BytesWriter) WriteString(s string) (int, error) {
	w.Grow(len(s))
	w.B = append(w.B, s...)
	return len(s), nil
}

// WriteByte implements the io.ByteWriter interface.
func (w *BytesWriter) WriteByte(c byte) error {
	w.Grow(1)
	w.B = append(w.B, c)
	return nil
}

// ReadFrom implements the io.ReaderFrom interface and reads data from r until EOF.
func (w *BytesWriter) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	for {
		w.Grow(minGrow)
		n, err := r.Read(w.B[len(w.B):cap(w.B)])
		w.B = w.B[:len(w.B)+n]
		total += int64(n)
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

func (w *BytesWriter) appendVarUint(v uint64) {
	w.Grow(MaxVarintLen64)
	w.B = AppendVarUint(w.B, v)
}

func (w *BytesWriter) appendFixed32(v uint32) {
	w.Grow(4)
	w.B = Order.AppendUint32(w.B, v)
}

func (w *BytesWriter) appendFixed64(v uint64) {
	w.Grow(8)
	w.B = Order.AppendUint64(w.B, v)
}

func (w *BytesWriter) appendLength(p []byte) {
	w.Grow(MaxVarintLen64 + len(p))
	w.B = AppendBytes(w.B, p)
}

func (w *BytesWriter) appendLengthString(s string) {
	w.Grow(MaxVarintLen64 + len(s))
	w.B = AppendString(w.B, s)
}

// Flush does nothing; the data is already in memory.
func (w *BytesWriter) Flush() error { return nil }

// Reset keeps the capacity and drops the contents.
func (w *BytesWriter) Reset() { w.B = w.B[:0] }

// Len returns the number of bytes written.
func (w *BytesWriter) Len() int { return len(w.B) }

// Bytes returns the written data. It aliases the internal buffer.
func (w *BytesWriter) Bytes() []byte { return w.B }
