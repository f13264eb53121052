package neuro

import (
	"fmt"
)

// WriteJSON encodes v as a JSON document. An absent top-level value, such as
// a nil pointer, is written as null.
func WriteJSON[T any](v *T, opts *Options) ([]byte, error) {
	if err := TryAutoRegister(); err != nil {
		return nil, err
	}
	w := NewJSONWriter(opts)
	Value(w, 1, "", v)
	if w.err == nil && w.buf.Len() == 0 {
		w.buf.B = append(w.buf.B, "null"...)
	}
	return w.bytes()
}

// ReadJSONInto decodes a JSON document into the existing value v, reusing
// its instances. Like ReadInto, a failed read may leave v partially updated.
func ReadJSONInto[T any](data []byte, v *T, opts *Options) error {
	if err := TryAutoRegister(); err != nil {
		return err
	}
	doc, err := parseJSON(data)
	if err != nil {
		return err
	}
	r := NewJSONReader(opts)
	r.reset(doc)
	Value(r, 1, "", v)
	return r.err
}

// ReadJSON decodes a JSON document into a new value.
func ReadJSON[T any](data []byte, opts *Options) (T, error) {
	var v T
	err := ReadJSONInto(data, &v, opts)
	return v, err
}

// MarshalJSON encodes v as compact JSON with the default options.
func MarshalJSON[T any](v *T) ([]byte, error) { return WriteJSON(v, nil) }

// UnmarshalJSON decodes data into v with the default options.
func UnmarshalJSON[T any](data []byte, v *T) error { return ReadJSONInto(data, v, nil) }

// WriteGlobalJSON encodes a member of a global family as a JSON object whose
// "-globalType" member names the family, so ReadGlobalJSON can decode it
// without knowing the type.
func WriteGlobalJSON(v any, opts *Options) ([]byte, error) {
	if err := TryAutoRegister(); err != nil {
		return nil, err
	}
	m, err := globalMember(v)
	if err != nil {
		return nil, err
	}
	w := NewJSONWriter(opts)
	w.global = string(w.typeMarker(m.f.globalID, m.f.root.Name()))
	m.write(w, m.tag != 0)
	return w.bytes()
}

// ReadGlobalJSON decodes a document written by WriteGlobalJSON. The result
// is a pointer to the concrete registered type.
func ReadGlobalJSON(data []byte, opts *Options) (any, error) {
	if err := TryAutoRegister(); err != nil {
		return nil, err
	}
	doc, err := parseJSON(data)
	if err != nil {
		return nil, err
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: global value is a %T, want an object", ErrInvalidJSON, doc)
	}
	marker, ok := obj[jsonGlobalType]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrInvalidJSON, jsonGlobalType)
	}
	id, err := parseTypeMarker(marker)
	if err != nil {
		return nil, err
	}
	f, err := globalFamily(id)
	if err != nil {
		return nil, err
	}
	r := NewJSONReader(opts)
	r.reset(doc)
	v := readMember(r, f)
	if r.err != nil {
		return nil, r.err
	}
	return v, nil
}
