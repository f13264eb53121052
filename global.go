package neuro

import (
	"fmt"
	"math"
	"reflect"
)

// Field keys of the global envelopes.
const (
	globalIDKey   = 1 // VarInt global type id
	globalBodyKey = 2 // Child or ChildWithType body

	batchRunsKey = 1 // repeated Child: one group per run of same-family items
	runIDKey     = 1
	runItemsKey  = 2 // repeated ChildWithType
)

// member is a value resolved against its global family.
type member struct {
	f   *family
	e   *typeEntry
	tag uint32
	v   any
}

// globalMember resolves v, a pointer to a registered struct whose family
// has a global type id.
func globalMember(v any) (member, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return member{}, fmt.Errorf("%w: nil global value", ErrNilElement)
	}
	if t.Kind() != reflect.Pointer {
		return member{}, fmt.Errorf("%w: global value %v is not a pointer", ErrInvalidType, t)
	}
	f, ok := types.globalOf.Load(t.Elem())
	if !ok {
		if _, err := lookupEntry(t.Elem()); err != nil {
			return member{}, err
		}
		return member{}, fmt.Errorf("%w: %v belongs to no global family", ErrUnknownGlobalType, t.Elem())
	}
	e, tag, err := memberEntry(f, v)
	if err != nil {
		return member{}, err
	}
	return member{f: f, e: e, tag: tag, v: v}, nil
}

func (m member) write(s Syncer, withType bool) {
	s.writeGroupBegin(withType, m.tag, m.e.name)
	m.e.sync(s, m.v)
	s.groupEnd()
}

// readMember decodes one group of family f into a new (or pooled) instance.
func readMember(s Syncer, f *family) any {
	_, tag := s.readGroupBegin()
	if s.Err() != nil {
		return nil
	}
	e, err := f.entryFor(tag)
	if err != nil {
		s.Fail(err)
		return nil
	}
	v := allocate(s, e)
	e.sync(s, v)
	s.groupEnd()
	return v
}

func globalFamily(id uint64) (*family, error) {
	if id > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownGlobalType, id)
	}
	return lookupGlobal(uint32(id))
}

// WriteGlobal encodes v together with its global type id, so ReadGlobal can
// decode it without knowing the type. v must point to a member of a family
// registered with RegisterGlobalType.
func WriteGlobal(w *Writer, v any) (BytesChunk, error) {
	if err := TryAutoRegister(); err != nil {
		return BytesChunk{}, err
	}
	w.reset()
	m, err := globalMember(v)
	if err != nil {
		return BytesChunk{}, err
	}
	id := uint64(m.f.globalID)
	if w.beginField(globalIDKey, "id", VarInt, false) {
		w.valUint(&id)
		w.endField()
	}
	shape := Child
	if m.tag != 0 {
		shape = ChildWithType
	}
	if w.beginField(globalBodyKey, "body", shape, false) {
		m.write(w, m.tag != 0)
		w.endField()
	}
	if w.err != nil {
		return BytesChunk{}, w.err
	}
	return w.Chunk(), nil
}

// ReadGlobal decodes a value written by WriteGlobal. The result is a pointer
// to the concrete registered type.
func ReadGlobal(r *Reader, data BytesChunk) (any, error) {
	if err := TryAutoRegister(); err != nil {
		return nil, err
	}
	r.reset(data)
	var id uint64
	if !r.beginField(globalIDKey, "id", VarInt, false) {
		return nil, missing(r, "global type id")
	}
	r.valUint(&id)
	r.endField()
	f, err := globalFamily(id)
	if err != nil {
		return nil, err
	}
	if !r.beginField(globalBodyKey, "body", Child, false) {
		return nil, missing(r, "global body")
	}
	v := readMember(r, f)
	r.endField()
	if r.err != nil {
		return nil, r.err
	}
	return v, nil
}

func missing(s Syncer, what string) error {
	if err := s.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w: missing %s", ErrUnexpectedEndOfData, what)
}

// splitRuns groups consecutive items of the same global family.
func splitRuns(items []any) ([][]member, error) {
	var runs [][]member
	for i, v := range items {
		m, err := globalMember(v)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if n := len(runs); n > 0 && runs[n-1][0].f == m.f {
			runs[n-1] = append(runs[n-1], m)
			continue
		}
		runs = append(runs, []member{m})
	}
	return runs, nil
}

// WriteGlobalList encodes a heterogeneous batch. Consecutive items of one
// family share a single type id on the wire.
func WriteGlobalList(w *Writer, items []any) (BytesChunk, error) {
	if err := TryAutoRegister(); err != nil {
		return BytesChunk{}, err
	}
	w.reset()
	runs, err := splitRuns(items)
	if err != nil {
		return BytesChunk{}, err
	}
	if w.beginField(batchRunsKey, "runs", Child, true) {
		w.listBegin(len(runs))
		for _, run := range runs {
			w.writeGroupBegin(false, 0, "")
			id := uint64(run[0].f.globalID)
			if w.beginField(runIDKey, "id", VarInt, false) {
				w.valUint(&id)
				w.endField()
			}
			if w.beginField(runItemsKey, "items", ChildWithType, true) {
				w.listBegin(len(run))
				for _, m := range run {
					m.write(w, true)
				}
				w.listEnd()
				w.endField()
			}
			w.groupEnd()
		}
		w.listEnd()
		w.endField()
	}
	if w.err != nil {
		return BytesChunk{}, w.err
	}
	return w.Chunk(), nil
}

// ReadGlobalList decodes a batch written by WriteGlobalList, in order.
func ReadGlobalList(r *Reader, data BytesChunk) ([]any, error) {
	if err := TryAutoRegister(); err != nil {
		return nil, err
	}
	r.reset(data)
	var out []any
	if !r.beginField(batchRunsKey, "runs", Child, true) {
		return out, r.err
	}
	n := r.listBegin(0)
	for i := 0; i < n && r.err == nil; i++ {
		r.readGroupBegin()
		var id uint64
		if r.beginField(runIDKey, "id", VarInt, false) {
			r.valUint(&id)
			r.endField()
		}
		f, err := globalFamily(id)
		if err != nil {
			r.setError(err)
			break
		}
		if r.beginField(runItemsKey, "items", ChildWithType, true) {
			count := r.listBegin(0)
			for j := 0; j < count && r.err == nil; j++ {
				out = append(out, readMember(r, f))
			}
			r.listEnd()
			r.endField()
		}
		r.groupEnd()
	}
	r.listEnd()
	r.endField()
	if r.err != nil {
		return nil, r.err
	}
	return out, nil
}
