package neuro

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

// JSON member names of the type markers.
const (
	jsonSubType    = "-subType"
	jsonGlobalType = "-globalType"
)

// JSONWriter encodes values as JSON objects keyed by field name. It shares
// the field model of Writer: sparse defaults are omitted, nil collections
// are absent and empty ones are written as [] or {}.
type JSONWriter struct {
	latch
	buf    BytesWriter
	first  []bool // per open object or array: no member written yet
	key    bool   // the next scalar is a dictionary key
	global string // encoded "-globalType" marker for the next group
}

var _ Syncer = (*JSONWriter)(nil)

// NewJSONWriter creates a JSONWriter. A nil opts means DefaultOptions.
func NewJSONWriter(opts *Options) *JSONWriter {
	w := &JSONWriter{}
	w.opts = orDefault(opts)
	return w
}

func (w *JSONWriter) Reading() bool { return false }

func (w *JSONWriter) reset() {
	w.latch.reset(nil)
	w.buf.Reset()
	w.first = w.first[:0]
	w.key = false
	w.global = ""
}

// bytes returns the document, indented when Options.JSONIndent is set.
func (w *JSONWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if w.opts.JSONIndent == "" {
		return bytes.Clone(w.buf.B), nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, w.buf.B, "", w.opts.JSONIndent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return out.Bytes(), nil
}

// member writes the separator and name of the next object member.
func (w *JSONWriter) member(name string) {
	n := len(w.first) - 1
	if w.first[n] {
		w.first[n] = false
	} else {
		w.buf.B = append(w.buf.B, ',')
	}
	w.buf.B = appendJSONString(w.buf.B, name)
	w.buf.B = append(w.buf.B, ':')
}

func (w *JSONWriter) beginField(key uint32, name string, shape SizeType, repeated bool) bool {
	if w.err != nil {
		return false
	}
	// A top-level value has no enclosing object.
	if len(w.first) > 0 {
		w.member(name)
	}
	return true
}

func (w *JSONWriter) endField() {}

// scalar appends a scalar's text, quoted when it is a dictionary key.
func (w *JSONWriter) scalar(text []byte, quoted bool) {
	if w.key {
		w.key = false
		if !quoted {
			w.buf.B = append(w.buf.B, '"')
			w.buf.B = append(w.buf.B, text...)
			w.buf.B = append(w.buf.B, '"')
		} else {
			w.buf.B = append(w.buf.B, text...)
		}
		w.buf.B = append(w.buf.B, ':')
		return
	}
	w.buf.B = append(w.buf.B, text...)
}

func (w *JSONWriter) valUint(v *uint64) {
	if w.err == nil {
		var tmp [24]byte
		w.scalar(strconv.AppendUint(tmp[:0], *v, 10), false)
	}
}

func (w *JSONWriter) valInt(v *int64) {
	if w.err == nil {
		var tmp [24]byte
		w.scalar(strconv.AppendInt(tmp[:0], *v, 10), false)
	}
}

func (w *JSONWriter) valFloat32(v *float32) {
	if w.err == nil {
		w.float(float64(*v), 32)
	}
}

func (w *JSONWriter) valFloat64(v *float64) {
	if w.err == nil {
		w.float(*v, 64)
	}
}

// float writes finite values as numbers and the others as strings.
func (w *JSONWriter) float(f float64, bits int) {
	var tmp [32]byte
	switch {
	case math.IsNaN(f):
		w.scalar(append(tmp[:0], `"NaN"`...), true)
	case math.IsInf(f, 1):
		w.scalar(append(tmp[:0], `"Infinity"`...), true)
	case math.IsInf(f, -1):
		w.scalar(append(tmp[:0], `"-Infinity"`...), true)
	default:
		w.scalar(strconv.AppendFloat(tmp[:0], f, 'g', -1, bits), false)
	}
}

func (w *JSONWriter) valBool(v *bool) {
	if w.err == nil {
		w.scalar(strconv.AppendBool(nil, *v), false)
	}
}

func (w *JSONWriter) valString(v *string) {
	if w.err == nil {
		w.scalar(appendJSONString(nil, *v), true)
	}
}

func (w *JSONWriter) valBytes(v *[]byte) {
	if w.err != nil {
		return
	}
	out := append(make([]byte, 0, base64.StdEncoding.EncodedLen(len(*v))+2), '"')
	out = base64.StdEncoding.AppendEncode(out, *v)
	w.scalar(append(out, '"'), true)
}

// typeMarker formats a tag for "-subType" and "-globalType".
func (w *JSONWriter) typeMarker(tag uint32, name string) []byte {
	if w.opts.JSONTypeNames && name != "" {
		return appendJSONString(nil, strconv.FormatUint(uint64(tag), 10)+":"+name)
	}
	return strconv.AppendUint(nil, uint64(tag), 10)
}

func (w *JSONWriter) writeGroupBegin(withType bool, tag uint32, typeName string) {
	if w.err != nil || !w.enter() {
		return
	}
	if w.key {
		w.setError(fmt.Errorf("%w: group as a dictionary key", ErrDictionaryShape))
		return
	}
	w.buf.B = append(w.buf.B, '{')
	w.first = append(w.first, true)
	if w.global != "" {
		w.member(jsonGlobalType)
		w.buf.B = append(w.buf.B, w.global...)
		w.global = ""
	}
	if withType && tag != 0 {
		w.member(jsonSubType)
		w.buf.B = append(w.buf.B, w.typeMarker(tag, typeName)...)
	}
}

func (w *JSONWriter) groupEnd() {
	if w.err != nil {
		return
	}
	w.buf.B = append(w.buf.B, '}')
	w.first = w.first[:len(w.first)-1]
	w.leave()
}

func (w *JSONWriter) readGroupBegin() (bool, uint32) {
	w.setError(fmt.Errorf("%w: read on a JSONWriter", ErrInvariantViolation))
	return false, 0
}

func (w *JSONWriter) readAbsentGroup() {
	w.setError(fmt.Errorf("%w: read on a JSONWriter", ErrInvariantViolation))
}

func (w *JSONWriter) listBegin(n int) int {
	if w.err == nil {
		w.buf.B = append(w.buf.B, '[')
	}
	return n
}

func (w *JSONWriter) elemBegin(i int) {
	if w.err == nil && i > 0 {
		w.buf.B = append(w.buf.B, ',')
	}
}

func (w *JSONWriter) elemEnd() {}

func (w *JSONWriter) listEnd() {
	if w.err == nil {
		w.buf.B = append(w.buf.B, ']')
	}
}

func (w *JSONWriter) dictBegin(_, _ SizeType, n int) int {
	if w.err == nil {
		w.buf.B = append(w.buf.B, '{')
	}
	return n
}

func (w *JSONWriter) dictKey(i int) {
	if w.err != nil {
		return
	}
	if i > 0 {
		w.buf.B = append(w.buf.B, ',')
	}
	w.key = true
}

func (w *JSONWriter) dictValue(int)  {}
func (w *JSONWriter) dictEntryEnd() {}

func (w *JSONWriter) dictEnd() {
	if w.err == nil {
		w.buf.B = append(w.buf.B, '}')
	}
}

const hexDigits = "0123456789abcdef"

// appendJSONString appends s as a quoted JSON string. Invalid UTF-8 is
// replaced with U+FFFD.
func appendJSONString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c >= 0x20 && c != '"' && c != '\\' {
				i++
				continue
			}
			dst = append(dst, s[start:i]...)
			switch c {
			case '"', '\\':
				dst = append(dst, '\\', c)
			case '\n':
				dst = append(dst, '\\', 'n')
			case '\r':
				dst = append(dst, '\\', 'r')
			case '\t':
				dst = append(dst, '\\', 't')
			default:
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, s[start:i]...)
			dst = append(dst, "\ufffd"...)
			i += size
			start = i
			continue
		}
		i += size
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}
