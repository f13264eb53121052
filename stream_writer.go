package neuro

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// byteSink is what a StreamWriter writes through.
type byteSink interface {
	io.Writer
	io.ByteWriter
	io.StringWriter
	Flush() error
}

// StreamWriter writes wire primitives and encoded chunks to an io.Writer.
// It buffers the destination and tracks the first error that occurs; after
// an error, all subsequent write operations become no-ops.
type StreamWriter struct {
	w     byteSink
	count int64 // total bytes written
	err   error // first error encountered
	depth int
}

var _ byteSink = (*StreamWriter)(nil)

// NewStreamWriterSize creates a StreamWriter with a specified buffer size.
// It returns an error to prevent double-buffering, a common source of bugs.
func NewStreamWriterSize(w io.Writer, size int) (*StreamWriter, error) {
	if w == nil {
		return nil, ErrNilIO
	}

	switch bw := w.(type) {
	// Reuse the buffer of an existing StreamWriter.
	case *StreamWriter:
		return &StreamWriter{w: bw.w, depth: bw.depth + 1}, nil

	// prevent unpredictable double-buffering.
	case *bufio.Writer:
		if bw.Size() >= size {
			return &StreamWriter{w: bw, depth: 1}, nil
		}
		return nil, ErrAlreadyBuffered

	// in memory already, no buffering needed
	case *BytesWriter:
		return &StreamWriter{w: bw}, nil
	case *bytes.Buffer:
		return &StreamWriter{w: &bytesBufferWriterAdapter{bw}}, nil
	}

	return &StreamWriter{w: bufio.NewWriterSize(w, size)}, nil
}

// NewStreamWriter creates a StreamWriter with the default buffer size.
func NewStreamWriter(w io.Writer) (*StreamWriter, error) {
	return NewStreamWriterSize(w, 4096)
}

// Write implements the io.Writer interface.
func (w *StreamWriter) Write(buf []byte) (int, error) {
	if len(buf) == 0 || w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(buf)
	w.count += int64(n)
	w.setError(err)
	return n, w.err
}

// WriteString implements the io.StringWriter interface.
func (w *StreamWriter) WriteString(str string) (int, error) {
	if str == "" || w.err != nil {
		return 0, w.err
	}
	n, err := w.w.WriteString(str)
	w.count += int64(n)
	w.setError(err)
	return n, w.err
}

// WriteByte implements the io.ByteWriter interface.
func (w *StreamWriter) WriteByte(v byte) error {
	if w.err != nil {
		return w.err
	}
	err := w.w.WriteByte(v)
	if err == nil {
		w.count++
	} else {
		w.err = err
	}
	return err
}

func (w *StreamWriter) Count() int64 { return w.count }
func (w *StreamWriter) Err() error   { return w.err }

// setError records the first non-nil error.
// This preserves the root cause of a failure chain instead of a later,
// less relevant error.
func (w *StreamWriter) setError(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

// Result flushes the buffer and returns the final count and error state.
func (w *StreamWriter) Result() (int64, error) {
	w.Flush()
	return w.count, w.err
}

// Flush writes any buffered data to the underlying io.Writer.
func (w *StreamWriter) Flush() error {
	// Only the outermost writer is responsible for the final flush.
	if w.depth > 0 || w.err != nil {
		return w.err
	}
	err := w.w.Flush()
	w.setError(err)
	return err
}

// WriteVarUint writes v as a varint.
func (w *StreamWriter) WriteVarUint(v uint64) {
	if w.err != nil {
		return
	}
	var buf [MaxVarintLen64]byte
	n := PutVarUint(buf[:], v)
	_, _ = w.Write(buf[:n])
}

// WriteLength writes p prefixed with its length.
func (w *StreamWriter) WriteLength(p []byte) {
	w.WriteVarUint(uint64(len(p)))
	_, _ = w.Write(p)
}

// WriteChunk writes the bytes of c.
func (w *StreamWriter) WriteChunk(c BytesChunk) {
	_, _ = w.Write(c.Bytes())
}

// Printf formats to the stream.
func (w *StreamWriter) Printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	n, err := fmt.Fprintf(w.w, format, args...)
	w.count += int64(n)
	w.setError(err)
}
