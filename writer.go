package neuro

import (
	"fmt"
	"math"
)

// Writer encodes values into the binary container format. A Writer is reusable:
// every top-level call resets it, and the chunk it returns aliases the
// Writer's buffer until the next call.
type Writer struct {
	latch
	buf     BytesWriter
	lastKey uint32
	keys    []uint32 // lastKey of each enclosing group
}

var _ Syncer = (*Writer)(nil)

// NewWriter creates a Writer. A nil opts means DefaultOptions.
func NewWriter(opts *Options) *Writer {
	w := &Writer{}
	w.opts = orDefault(opts)
	return w
}

func (w *Writer) Reading() bool { return false }

// Chunk returns the bytes written since the last reset.
func (w *Writer) Chunk() BytesChunk { return ChunkOf(w.buf.B) }

// Len returns the number of bytes written since the last reset.
func (w *Writer) Len() int { return w.buf.Len() }

func (w *Writer) reset() {
	w.latch.reset(nil)
	w.buf.Reset()
	w.lastKey = 0
	w.keys = w.keys[:0]
}

func (w *Writer) beginField(key uint32, name string, shape SizeType, repeated bool) bool {
	if w.err != nil {
		return false
	}
	if key <= w.lastKey {
		w.setError(fmt.Errorf("%w: field %d (%q) synced after field %d", ErrInvariantViolation, key, name, w.lastKey))
		return false
	}
	w.buf.appendVarUint(EncodeHeader(uint64(key-w.lastKey), shape, repeated))
	w.lastKey = key
	return true
}

func (w *Writer) endField() {}

func (w *Writer) valUint(v *uint64) {
	if w.err == nil {
		w.buf.appendVarUint(*v)
	}
}

func (w *Writer) valInt(v *int64) {
	if w.err == nil {
		w.buf.appendVarUint(ZigZag(*v))
	}
}

func (w *Writer) valFloat32(v *float32) {
	if w.err == nil {
		w.buf.appendFixed32(math.Float32bits(*v))
	}
}

func (w *Writer) valFloat64(v *float64) {
	if w.err == nil {
		w.buf.appendFixed64(math.Float64bits(*v))
	}
}

func (w *Writer) valBool(v *bool) {
	if w.err != nil {
		return
	}
	var b uint64
	if *v {
		b = 1
	}
	w.buf.appendVarUint(b)
}

func (w *Writer) valString(v *string) {
	if w.err == nil {
		w.buf.appendLengthString(*v)
	}
}

func (w *Writer) valBytes(v *[]byte) {
	if w.err == nil {
		w.buf.appendLength(*v)
	}
}

func (w *Writer) writeGroupBegin(withType bool, tag uint32, _ string) {
	if w.err != nil || !w.enter() {
		return
	}
	if withType {
		w.buf.appendVarUint(uint64(tag))
	}
	w.keys = append(w.keys, w.lastKey)
	w.lastKey = 0
}

func (w *Writer) groupEnd() {
	if w.err != nil {
		return
	}
	w.buf.appendVarUint(endOfGroup)
	w.lastKey = w.keys[len(w.keys)-1]
	w.keys = w.keys[:len(w.keys)-1]
	w.leave()
}

func (w *Writer) readGroupBegin() (bool, uint32) {
	w.setError(fmt.Errorf("%w: read on a Writer", ErrInvariantViolation))
	return false, 0
}

func (w *Writer) readAbsentGroup() {
	w.setError(fmt.Errorf("%w: read on a Writer", ErrInvariantViolation))
}

func (w *Writer) listBegin(n int) int {
	if w.err == nil {
		w.buf.appendVarUint(uint64(n))
	}
	return n
}

func (w *Writer) elemBegin(int) {}
func (w *Writer) elemEnd()      {}
func (w *Writer) listEnd()      {}

func (w *Writer) dictBegin(keyShape, valueShape SizeType, n int) int {
	if w.err == nil {
		w.buf.appendVarUint(packDictShapes(keyShape, valueShape))
		w.buf.appendVarUint(uint64(n))
	}
	return n
}

func (w *Writer) dictKey(int)   {}
func (w *Writer) dictValue(int) {}
func (w *Writer) dictEntryEnd() {}
func (w *Writer) dictEnd()      {}
