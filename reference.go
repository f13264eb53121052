package neuro

import (
	"reflect"

	"github.com/puzpuzpuz/xsync/v4"
)

// Reference points at a value of family R by id instead of embedding it.
// The zero RefID means no reference.
type Reference[R any] struct {
	RefID uint32
}

func (r *Reference[R]) refID() *uint32 { return &r.RefID }

// IsZero reports whether r refers to nothing.
func (r Reference[R]) IsZero() bool { return r.RefID == 0 }

// RefTo builds a reference to id.
func RefTo[R any](id uint32) Reference[R] { return Reference[R]{RefID: id} }

type refKey struct {
	root reflect.Type
	id   uint32
}

// RefTable maps (family, RefID) pairs to loaded values. Bundles fill it and
// Resolve looks references up in it. It is safe for concurrent use.
type RefTable struct {
	m *xsync.Map[refKey, any]
}

func NewRefTable() *RefTable {
	return &RefTable{m: xsync.NewMap[refKey, any]()}
}

// Put stores v as the target of id within the family rooted at root.
func (t *RefTable) Put(root reflect.Type, id uint32, v any) {
	t.m.Store(refKey{root, id}, v)
}

// Get returns the value stored for id within the family rooted at root.
func (t *RefTable) Get(root reflect.Type, id uint32) (any, bool) {
	return t.m.Load(refKey{root, id})
}

// Delete removes the entry for id in the family rooted at root.
func (t *RefTable) Delete(root reflect.Type, id uint32) {
	t.m.Delete(refKey{root, id})
}

// Len returns the number of stored values.
func (t *RefTable) Len() int { return t.m.Size() }

// Store puts v into the table as the target of id in its family R.
func Store[R any](t *RefTable, id uint32, v R) {
	t.Put(reflect.TypeFor[R](), id, v)
}

// Resolve returns the value ref points to. It reports false for the zero
// reference, for ids not in the table and for values of another type.
func Resolve[R any](t *RefTable, ref Reference[R]) (R, bool) {
	var zero R
	if ref.IsZero() {
		return zero, false
	}
	v, ok := t.Get(reflect.TypeFor[R](), ref.RefID)
	if !ok {
		return zero, false
	}
	r, ok := v.(R)
	return r, ok
}
