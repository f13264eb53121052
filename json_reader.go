package neuro

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
)

// JSONReader decodes documents written by JSONWriter. The input may carry
// comments and trailing commas. Fields are looked up by name within the
// current object only; a missing member or a null is an absent field.
type JSONReader struct {
	latch
	nodes []any // decoded values; the top is being read
	dicts []jsonDict
}

type jsonDict struct {
	m    map[string]any
	keys []string
}

var _ Syncer = (*JSONReader)(nil)

// NewJSONReader creates a JSONReader. A nil opts means DefaultOptions.
func NewJSONReader(opts *Options) *JSONReader {
	r := &JSONReader{}
	r.opts = orDefault(opts)
	return r
}

func (r *JSONReader) Reading() bool { return true }

// parseJSON decodes data into a tree of map[string]any, []any, json.Number,
// string, bool and nil.
func parseJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after document", ErrInvalidJSON)
	}
	return doc, nil
}

// reset starts a pass over the document node.
func (r *JSONReader) reset(doc any) {
	r.latch.reset(nil)
	r.nodes = append(r.nodes[:0], doc)
	r.dicts = r.dicts[:0]
}

func (r *JSONReader) top() any { return r.nodes[len(r.nodes)-1] }

func (r *JSONReader) push(n any) { r.nodes = append(r.nodes, n) }

func (r *JSONReader) pop() { r.nodes = r.nodes[:len(r.nodes)-1] }

func (r *JSONReader) invalid(format string, args ...any) {
	r.setError(fmt.Errorf("%w: "+format, append([]any{ErrInvalidJSON}, args...)...))
}

// beginField pushes the member called name. The top-level value, whose name
// is empty, is the document itself.
func (r *JSONReader) beginField(key uint32, name string, shape SizeType, repeated bool) bool {
	if r.err != nil {
		return false
	}
	if name == "" && len(r.nodes) == 1 {
		if r.top() == nil {
			return false
		}
		r.push(r.top())
		return true
	}
	obj, ok := r.top().(map[string]any)
	if !ok {
		r.invalid("field %q read outside an object", name)
		return false
	}
	n, ok := obj[name]
	if !ok || n == nil {
		return false
	}
	r.push(n)
	return true
}

func (r *JSONReader) endField() {
	if r.err == nil {
		r.pop()
	}
}

// text returns the top node as the text of a number or string.
func (r *JSONReader) text(what string) (string, bool) {
	switch n := r.top().(type) {
	case json.Number:
		return n.String(), true
	case string:
		return n, true
	}
	r.invalid("want %s, got %T", what, r.top())
	return "", false
}

func (r *JSONReader) valUint(v *uint64) {
	if r.err != nil {
		return
	}
	if s, ok := r.text("an unsigned integer"); ok {
		x, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			r.invalid("%v", err)
			return
		}
		*v = x
	}
}

func (r *JSONReader) valInt(v *int64) {
	if r.err != nil {
		return
	}
	if s, ok := r.text("an integer"); ok {
		x, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			r.invalid("%v", err)
			return
		}
		*v = x
	}
}

func (r *JSONReader) float(bits int) float64 {
	s, ok := r.text("a number")
	if !ok {
		return 0
	}
	switch s {
	case "NaN":
		return math.NaN()
	case "Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	f, err := strconv.ParseFloat(s, bits)
	if err != nil {
		r.invalid("%v", err)
	}
	return f
}

func (r *JSONReader) valFloat32(v *float32) {
	if r.err == nil {
		if f := r.float(32); r.err == nil {
			*v = float32(f)
		}
	}
}

func (r *JSONReader) valFloat64(v *float64) {
	if r.err == nil {
		if f := r.float(64); r.err == nil {
			*v = f
		}
	}
}

func (r *JSONReader) valBool(v *bool) {
	if r.err != nil {
		return
	}
	switch n := r.top().(type) {
	case bool:
		*v = n
	case string: // dictionary key
		b, err := strconv.ParseBool(n)
		if err != nil {
			r.invalid("%v", err)
			return
		}
		*v = b
	default:
		r.invalid("want a bool, got %T", n)
	}
}

func (r *JSONReader) valString(v *string) {
	if r.err != nil {
		return
	}
	s, ok := r.top().(string)
	if !ok {
		r.invalid("want a string, got %T", r.top())
		return
	}
	*v = s
}

func (r *JSONReader) valBytes(v *[]byte) {
	if r.err != nil {
		return
	}
	s, ok := r.top().(string)
	if !ok {
		r.invalid("want base64 bytes, got %T", r.top())
		return
	}
	dst := (*v)[:0]
	if dst == nil {
		dst = make([]byte, 0, base64.StdEncoding.DecodedLen(len(s)))
	}
	out, err := base64.StdEncoding.AppendDecode(dst, []byte(s))
	if err != nil {
		r.invalid("%v", err)
		return
	}
	*v = out
}

func (r *JSONReader) writeGroupBegin(bool, uint32, string) {
	r.setError(fmt.Errorf("%w: write on a JSONReader", ErrInvariantViolation))
}

// parseTypeMarker reads a "-subType" or "-globalType" value: a number or a
// "tag:Name" string whose name is informational.
func parseTypeMarker(n any) (uint64, error) {
	var s string
	switch m := n.(type) {
	case json.Number:
		s = m.String()
	case string:
		s, _, _ = strings.Cut(m, ":")
	default:
		return 0, fmt.Errorf("%w: type marker %v", ErrInvalidJSON, n)
	}
	tag, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: type marker %q: %v", ErrInvalidJSON, s, err)
	}
	return tag, nil
}

func (r *JSONReader) readGroupBegin() (withType bool, tag uint32) {
	if r.err != nil || !r.enter() {
		return false, 0
	}
	obj, ok := r.top().(map[string]any)
	if !ok {
		r.invalid("want an object, got %T", r.top())
		return false, 0
	}
	if m, ok := obj[jsonSubType]; ok {
		t, err := parseTypeMarker(m)
		if err != nil {
			r.setError(err)
			return false, 0
		}
		withType, tag = true, uint32(t)
	}
	r.push(obj)
	return withType, tag
}

func (r *JSONReader) readAbsentGroup() {
	if r.err == nil && r.enter() {
		r.push(map[string]any{})
	}
}

func (r *JSONReader) groupEnd() {
	if r.err == nil {
		r.pop()
		r.leave()
	}
}

func (r *JSONReader) listBegin(int) int {
	if r.err != nil {
		return 0
	}
	a, ok := r.top().([]any)
	if !ok {
		r.invalid("want an array, got %T", r.top())
		return 0
	}
	return len(a)
}

func (r *JSONReader) elemBegin(i int) {
	if r.err == nil {
		r.push(r.top().([]any)[i])
	}
}

func (r *JSONReader) elemEnd() {
	if r.err == nil {
		r.pop()
	}
}

func (r *JSONReader) listEnd() {}

// dictBegin visits members in sorted key order.
func (r *JSONReader) dictBegin(_, _ SizeType, _ int) int {
	if r.err != nil {
		return 0
	}
	m, ok := r.top().(map[string]any)
	if !ok {
		r.invalid("want an object, got %T", r.top())
		return 0
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	r.dicts = append(r.dicts, jsonDict{m: m, keys: keys})
	return len(keys)
}

func (r *JSONReader) dictKey(i int) {
	if r.err == nil {
		r.push(r.dicts[len(r.dicts)-1].keys[i])
	}
}

func (r *JSONReader) dictValue(i int) {
	if r.err != nil {
		return
	}
	d := r.dicts[len(r.dicts)-1]
	r.pop()
	r.push(d.m[d.keys[i]])
}

func (r *JSONReader) dictEntryEnd() {
	if r.err == nil {
		r.pop()
	}
}

func (r *JSONReader) dictEnd() {
	if r.err == nil {
		r.dicts = r.dicts[:len(r.dicts)-1]
	}
}
