package neuro

import (
	"fmt"
	"math"
)

// groupState tracks the reader's position inside one group.
type groupState struct {
	nextKey  uint32   // absolute key of the pending header
	shape    SizeType // shape of the pending header
	repeated bool
	pending  bool     // a header was read, its payload was not consumed
	ended    bool     // the end-of-group marker was consumed
	root     bool     // end of input also ends the group
	valShape SizeType // shape of the payload about to be read
}

// Reader decodes the binary container format. Fields are found by key in
// ascending order; unknown or skipped fields are stepped over using only their
// header, so a reader tolerates fields it does not know.
//
// Strings are copied out of the input. Byte slices are copied into the
// destination's existing capacity.
type Reader struct {
	latch
	in    BytesReader
	cur   groupState
	stack []groupState
	dicts []dictFrame
}

// dictFrame holds the wire shapes of the dictionary being read.
type dictFrame struct {
	key, value SizeType
}

var _ Syncer = (*Reader)(nil)

// NewReader creates a Reader. A nil opts means DefaultOptions.
func NewReader(opts *Options) *Reader {
	r := &Reader{}
	r.opts = orDefault(opts)
	return r
}

func (r *Reader) Reading() bool { return true }

func (r *Reader) reset(data BytesChunk) {
	r.latch.reset(nil)
	r.in.Reset(data.Bytes())
	r.cur = groupState{root: true}
	r.stack = r.stack[:0]
	r.dicts = r.dicts[:0]
}

func (r *Reader) varUint() uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.in.varUint()
	r.setError(err)
	return v
}

func (r *Reader) varUint32() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.in.varUint32()
	r.setError(err)
	return v
}

// nextHeader reads one header of the current group. It returns false at the
// end of the group.
func (r *Reader) nextHeader() bool {
	if r.cur.ended || r.err != nil {
		return false
	}
	if r.cur.root && r.in.EOF() {
		r.cur.ended = true
		return false
	}
	raw := r.varUint()
	if r.err != nil {
		return false
	}
	if raw == endOfGroup {
		r.cur.ended = true
		return false
	}
	h, err := DecodeHeader(raw)
	if err != nil {
		r.setError(fmt.Errorf("%w at offset %d", err, r.in.N))
		return false
	}
	next := uint64(r.cur.nextKey) + h.KeyDelta
	if next > math.MaxUint32 {
		r.setError(fmt.Errorf("%w: key %d overflows at offset %d", ErrInvalidHeader, next, r.in.N))
		return false
	}
	r.cur.nextKey = uint32(next)
	r.cur.shape = h.Shape
	r.cur.repeated = h.Repeated
	r.cur.pending = true
	return true
}

// SeekKey advances to the field with the given key in the current group. It
// skips fields with lower keys and reports false when the field is absent:
// a higher key or the end of the group comes first. The pending field is
// left unconsumed, so seeking the same key twice succeeds twice.
func (r *Reader) SeekKey(target uint32) bool {
	for r.err == nil {
		if !r.cur.pending && !r.nextHeader() {
			return false
		}
		switch {
		case r.cur.nextKey == target:
			return true
		case r.cur.nextKey > target:
			return false
		}
		r.skip(r.cur.shape, r.cur.repeated)
		r.cur.pending = false
	}
	return false
}

func (r *Reader) beginField(key uint32, name string, shape SizeType, repeated bool) bool {
	if !r.SeekKey(key) {
		return false
	}
	if !shape.compatible(r.cur.shape) || repeated != r.cur.repeated {
		r.setError(fmt.Errorf("%w: field %d (%q) is %s repeated=%t on the wire, want %s repeated=%t",
			ErrShapeMismatch, key, name, r.cur.shape, r.cur.repeated, shape, repeated))
		return false
	}
	r.cur.valShape = r.cur.shape
	return true
}

func (r *Reader) endField() {
	if r.err == nil {
		r.cur.pending = false
	}
}

// skip steps over one field payload.
func (r *Reader) skip(shape SizeType, repeated bool) {
	n := uint64(1)
	if repeated {
		n = r.varUint()
	}
	for i := uint64(0); i < n && r.err == nil; i++ {
		r.skipValue(shape)
	}
}

func (r *Reader) skipValue(shape SizeType) {
	var err error
	switch shape {
	case VarInt:
		r.varUint()
	case Fixed32:
		_, err = r.in.next(4)
	case Fixed64:
		_, err = r.in.next(8)
	case Length:
		_, err = r.in.length()
	case Dictionary:
		k, v, derr := unpackDictShapes(r.varUint())
		if derr != nil {
			err = derr
			break
		}
		n := r.varUint()
		for i := uint64(0); i < n && r.err == nil; i++ {
			r.skipValue(k)
			r.skipValue(v)
		}
	case ChildWithType:
		r.varUint()
		fallthrough
	case Child:
		r.skipGroup()
	}
	r.setError(err)
}

func (r *Reader) skipGroup() {
	if r.err != nil || !r.enter() {
		return
	}
	defer r.leave()
	for r.err == nil {
		raw := r.varUint()
		if r.err != nil || raw == endOfGroup {
			return
		}
		h, err := DecodeHeader(raw)
		if err != nil {
			r.setError(err)
			return
		}
		r.skip(h.Shape, h.Repeated)
	}
}

func (r *Reader) valUint(v *uint64) {
	if r.err == nil {
		*v = r.varUint()
	}
}

func (r *Reader) valInt(v *int64) {
	if r.err == nil {
		*v = Unzag(r.varUint())
	}
}

func (r *Reader) valFloat32(v *float32) {
	if r.err != nil {
		return
	}
	b, err := r.in.fixed32()
	if err != nil {
		r.setError(err)
		return
	}
	*v = math.Float32frombits(b)
}

func (r *Reader) valFloat64(v *float64) {
	if r.err != nil {
		return
	}
	b, err := r.in.fixed64()
	if err != nil {
		r.setError(err)
		return
	}
	*v = math.Float64frombits(b)
}

func (r *Reader) valBool(v *bool) {
	if r.err == nil {
		*v = r.varUint() != 0
	}
}

func (r *Reader) valString(v *string) {
	if r.err != nil {
		return
	}
	b, err := r.in.length()
	if err != nil {
		r.setError(err)
		return
	}
	*v = string(b)
}

func (r *Reader) valBytes(v *[]byte) {
	if r.err != nil {
		return
	}
	b, err := r.in.length()
	if err != nil {
		r.setError(err)
		return
	}
	if *v == nil {
		*v = make([]byte, len(b))
		copy(*v, b)
		return
	}
	*v = append((*v)[:0], b...)
}

func (r *Reader) writeGroupBegin(bool, uint32, string) {
	r.setError(fmt.Errorf("%w: write on a Reader", ErrInvariantViolation))
}

func (r *Reader) readGroupBegin() (withType bool, tag uint32) {
	if r.err != nil {
		return false, 0
	}
	if !r.cur.valShape.IsGroup() {
		r.setError(fmt.Errorf("%w: %s payload read as a group", ErrShapeMismatch, r.cur.valShape))
		return false, 0
	}
	if r.cur.valShape == ChildWithType {
		withType = true
		tag = r.varUint32()
	}
	if r.err != nil || !r.enter() {
		return false, 0
	}
	r.stack = append(r.stack, r.cur)
	r.cur = groupState{}
	return withType, tag
}

func (r *Reader) readAbsentGroup() {
	if r.err != nil || !r.enter() {
		return
	}
	r.stack = append(r.stack, r.cur)
	r.cur = groupState{ended: true}
}

// groupEnd drains the fields nobody asked for, then leaves the group.
func (r *Reader) groupEnd() {
	for r.err == nil && !r.cur.ended {
		if r.cur.pending {
			r.skip(r.cur.shape, r.cur.repeated)
			r.cur.pending = false
		}
		r.nextHeader()
	}
	if r.err != nil {
		return
	}
	r.cur = r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	r.leave()
}

// count reads an element count that each element needs at least minSize
// bytes for, so a corrupt count cannot force a huge allocation.
func (r *Reader) count(minSize int) int {
	n := r.varUint()
	if r.err != nil {
		return 0
	}
	if n > uint64(r.in.Available()/minSize) {
		r.setError(fmt.Errorf("%w: count %d exceeds remaining %d bytes", ErrUnexpectedEndOfData, n, r.in.Available()))
		return 0
	}
	return int(n)
}

func minPayload(shape SizeType) int {
	switch shape {
	case Fixed32:
		return 4
	case Fixed64:
		return 8
	default:
		return 1
	}
}

func (r *Reader) listBegin(int) int {
	if r.err != nil {
		return 0
	}
	return r.count(minPayload(r.cur.valShape))
}

func (r *Reader) elemBegin(int) {}
func (r *Reader) elemEnd()      {}
func (r *Reader) listEnd()      {}

func (r *Reader) dictBegin(keyShape, valueShape SizeType, _ int) int {
	if r.err != nil {
		return 0
	}
	k, v, err := unpackDictShapes(r.varUint())
	if r.err != nil {
		return 0
	}
	if err != nil {
		r.setError(err)
		return 0
	}
	if k != keyShape || !valueShape.compatible(v) {
		r.setError(fmt.Errorf("%w: wire %s->%s, want %s->%s", ErrDictionaryShape, k, v, keyShape, valueShape))
		return 0
	}
	n := r.count(minPayload(k) + minPayload(v))
	if r.err != nil {
		return 0
	}
	r.dicts = append(r.dicts, dictFrame{key: k, value: v})
	return n
}

func (r *Reader) dictKey(int) {
	if r.err == nil {
		r.cur.valShape = r.dicts[len(r.dicts)-1].key
	}
}

func (r *Reader) dictValue(int) {
	if r.err == nil {
		r.cur.valShape = r.dicts[len(r.dicts)-1].value
	}
}

func (r *Reader) dictEntryEnd() {}

func (r *Reader) dictEnd() {
	if r.err == nil {
		r.dicts = r.dicts[:len(r.dicts)-1]
	}
}
