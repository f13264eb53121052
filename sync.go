package neuro

// Syncer is the engine a sync function drives. The same sync function both
// writes and reads a type: the field helpers (Int, String, List, Poly, ...)
// consult Reading and either emit the field or assign it from the input.
//
// Errors latch: after the first failure every later call is a no-op and Err
// reports the failure. A sync function may call Fail to abort with its own
// error, e.g. after validating a decoded value.
//
// Syncer is implemented by Writer, Reader, JSONWriter and JSONReader only.
type Syncer interface {
	Reading() bool
	Err() error
	Fail(err error)
	Options() *Options

	engine
}

// SyncFunc describes how to synchronize one registered type. It calls field
// helpers in ascending key order; the writer rejects anything else.
type SyncFunc[T any] func(s Syncer, v *T)

// engine is the per-format backend behind the field helpers. On the write
// side values are consumed from the pointers, on the read side assigned.
type engine interface {
	// beginField emits a field header (write) or seeks to the field (read).
	// It returns false when the field must be skipped: on read the field is
	// absent, on either side an error has latched.
	beginField(key uint32, name string, shape SizeType, repeated bool) bool
	endField()

	valUint(v *uint64)
	valInt(v *int64)
	valFloat32(v *float32)
	valFloat64(v *float64)
	valBool(v *bool)
	valString(v *string)
	valBytes(v *[]byte)

	// writeGroupBegin opens a nested group. withType marks a ChildWithType
	// payload carrying tag; typeName only feeds textual formats.
	writeGroupBegin(withType bool, tag uint32, typeName string)
	// readGroupBegin opens the group at the current position and reports
	// the subtype tag found there (0 when there is none).
	readGroupBegin() (withType bool, tag uint32)
	// readAbsentGroup opens an empty group so a sync function can apply
	// its defaults for a field that was not present.
	readAbsentGroup()
	groupEnd()

	// listBegin writes a count of n (write) or returns the count on the
	// wire (read).
	listBegin(n int) int
	elemBegin(i int)
	elemEnd()
	listEnd()

	dictBegin(keyShape, valueShape SizeType, n int) int
	dictKey(i int)
	dictValue(i int)
	dictEntryEnd()
	dictEnd()
}

// latch holds the first error of a sync pass and the options in effect.
type latch struct {
	err   error
	opts  *Options
	depth int
}

func (l *latch) Err() error        { return l.err }
func (l *latch) Options() *Options { return l.opts }
func (l *latch) Fail(err error)    { l.setError(err) }

func (l *latch) setError(err error) {
	if l.err == nil && err != nil {
		l.err = err
	}
}

// enter accounts for one more level of group nesting.
func (l *latch) enter() bool {
	l.depth++
	if l.depth > l.opts.maxDepth() {
		l.setError(ErrMaxDepth)
		return false
	}
	return true
}

func (l *latch) leave() { l.depth-- }

func (l *latch) reset(err error) {
	l.err = err
	l.depth = 0
}
