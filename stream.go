package neuro

import (
	"io"
)

// MaxRecordSize bounds a single length-prefixed record read from a stream.
const MaxRecordSize = 1 << 28

// Encoder writes a stream of top-level values, each prefixed with its length.
type Encoder struct {
	sw *StreamWriter
	w  *Writer
}

// NewEncoder creates an Encoder writing to dst. A nil opts means DefaultOptions.
func NewEncoder(dst io.Writer, opts *Options) (*Encoder, error) {
	sw, err := NewStreamWriter(dst)
	if err != nil {
		return nil, err
	}
	return &Encoder{sw: sw, w: NewWriter(opts)}, nil
}

// Encode appends v to the stream. Output is buffered until Flush.
func Encode[T any](e *Encoder, v *T) error {
	if err := e.sw.Err(); err != nil {
		return err
	}
	c, err := Write(e.w, v)
	if err != nil {
		return err
	}
	e.sw.WriteVarUint(uint64(c.Length))
	e.sw.WriteChunk(c)
	return e.sw.Err()
}

// Flush writes buffered records to the destination.
func (e *Encoder) Flush() error { return e.sw.Flush() }

// Count returns the number of bytes written so far.
func (e *Encoder) Count() int64 { return e.sw.Count() }

// Decoder reads a stream written by an Encoder.
type Decoder struct {
	sr  *StreamReader
	r   *Reader
	buf []byte
}

// NewDecoder creates a Decoder reading from src. A nil opts means DefaultOptions.
func NewDecoder(src io.Reader, opts *Options) (*Decoder, error) {
	sr, err := NewStreamReader(src)
	if err != nil {
		return nil, err
	}
	return &Decoder{sr: sr, r: NewReader(opts)}, nil
}

// Decode reads the next record into v, reusing v's instances like ReadInto.
// It returns io.EOF once the stream ends cleanly between records.
func Decode[T any](d *Decoder, v *T) error {
	d.buf = d.sr.ReadLength(d.buf, MaxRecordSize)
	if err := d.sr.Err(); err != nil {
		return err
	}
	return ReadInto(d.r, ChunkOf(d.buf), v)
}

// Skip steps over the next record without decoding it.
func (d *Decoder) Skip() error {
	d.sr.SkipLength(MaxRecordSize)
	return d.sr.Err()
}
