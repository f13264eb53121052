package neuro

import (
	"encoding"
	"io"
)

// Marshaler is the set of standard encoding interfaces a Message provides.
type Marshaler interface {
	encoding.BinaryMarshaler
	io.WriterTo

	// MarshalTo encodes into buf and fails with io.ErrShortBuffer when it is too small.
	MarshalTo(buf []byte) (int, error)
}

// Unmarshaler is the set of standard decoding interfaces a Message provides.
type Unmarshaler interface {
	encoding.BinaryUnmarshaler
	io.ReaderFrom
}

// Codec aggregates Marshaler and Unmarshaler with a size report.
type Codec interface {
	Size() int
	Marshaler
	Unmarshaler
}

// Write encodes v as a top-level value into w's buffer: a single field with
// key 1 followed by nothing. The returned chunk aliases w's buffer and stays
// valid until w is used again.
func Write[T any](w *Writer, v *T) (BytesChunk, error) {
	if err := TryAutoRegister(); err != nil {
		return BytesChunk{}, err
	}
	w.reset()
	Value(w, 1, "", v)
	if w.err != nil {
		return BytesChunk{}, w.err
	}
	return w.Chunk(), nil
}

// ReadInto decodes data into the existing value v, reusing its instances.
//
// When ReadInto fails, v may be partially updated: fields before the failure
// point hold new values, the rest keep their old ones. Callers needing
// all-or-nothing semantics should use Read, which decodes into a fresh value.
func ReadInto[T any](r *Reader, data BytesChunk, v *T) error {
	if err := TryAutoRegister(); err != nil {
		return err
	}
	r.reset(data)
	Value(r, 1, "", v)
	return r.err
}

// Read decodes data into a new value.
func Read[T any](r *Reader, data BytesChunk) (T, error) {
	var v T
	err := ReadInto(r, data, &v)
	return v, err
}

// Marshal encodes v with a pooled Writer and returns a copy of the bytes.
func Marshal[T any](v *T) ([]byte, error) {
	w := getWriter()
	defer putWriter(w)
	c, err := Write(w, v)
	if err != nil {
		return nil, err
	}
	return c.Copy(), nil
}

// Unmarshal decodes data into v with a pooled Reader. Like ReadInto it
// reuses v's instances and may leave v partially updated on failure.
func Unmarshal[T any](data []byte, v *T) error {
	r := getReader()
	defer putReader(r)
	return ReadInto(r, ChunkOf(data), v)
}

// Clone returns a deep copy of v made by encoding and decoding it.
func Clone[T any](v *T) (T, error) {
	var out T
	err := CloneInto(v, &out)
	return out, err
}

// CloneInto copies src over dst the way ReadInto would, reusing dst's instances.
func CloneInto[T any](src, dst *T) error {
	w := getWriter()
	defer putWriter(w)
	c, err := Write(w, src)
	if err != nil {
		return err
	}
	r := getReader()
	defer putReader(r)
	return ReadInto(r, c, dst)
}

// Message adapts a pointer to a registered value to the standard binary
// interfaces, so it can be handed to code expecting them.
type Message[T any] struct {
	V *T
}

var _ Codec = Message[struct{}]{}

// Of wraps v as a Message.
func Of[T any](v *T) Message[T] { return Message[T]{V: v} }

// Size encodes the value to measure it.
func (m Message[T]) Size() int {
	w := getWriter()
	defer putWriter(w)
	c, err := Write(w, m.V)
	if err != nil {
		return 0
	}
	return c.Length
}

func (m Message[T]) MarshalBinary() ([]byte, error) { return Marshal(m.V) }
func (m Message[T]) MarshalTo(buf []byte) (int, error) { return MarshalToGeneric(m.V, buf) }
func (m Message[T]) WriteTo(w io.Writer) (int64, error) { return WriteToGeneric(m, w) }
func (m Message[T]) UnmarshalBinary(data []byte) error { return Unmarshal(data, m.V) }
func (m Message[T]) ReadFrom(r io.Reader) (int64, error) { return ReadFromGeneric(m, r) }
