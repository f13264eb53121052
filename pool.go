package neuro

import (
	"reflect"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// Pool lets readers reuse instances instead of allocating them.
//
// Get returns a pointer to a value of type t (a struct type, not a pointer
// type) or nil when none is available. Put receives instances a read has
// discarded: trimmed list elements, replaced polymorphic values, cleared
// pointer fields. Reads fully resynchronize every instance they obtain, so
// pooled values need no reset.
type Pool interface {
	Get(t reflect.Type) any
	Put(v any)
}

// TypePool is a Pool keeping one sync.Pool per concrete type.
type TypePool struct {
	pools *xsync.Map[reflect.Type, *sync.Pool]
}

var _ Pool = (*TypePool)(nil)

// NewTypePool returns an empty TypePool.
func NewTypePool() *TypePool {
	return &TypePool{pools: xsync.NewMap[reflect.Type, *sync.Pool]()}
}

// Get returns a pooled *t, or nil when the pool for t is empty.
func (p *TypePool) Get(t reflect.Type) any {
	sp, ok := p.pools.Load(t)
	if !ok {
		return nil
	}
	return sp.Get()
}

// Put pools v under its element type. Nil and non-pointer values are dropped.
func (p *TypePool) Put(v any) {
	if isNilMember(v) {
		return
	}
	t := reflect.TypeOf(v)
	if t.Kind() != reflect.Pointer {
		return
	}
	sp, _ := p.pools.LoadOrStore(t.Elem(), &sync.Pool{})
	sp.Put(v)
}

// allocate returns an instance of e's type, from the pool when one is configured.
func allocate(s Syncer, e *typeEntry) any {
	if p := s.Options().Pool; p != nil {
		if v := p.Get(e.typ); v != nil {
			return v
		}
	}
	return e.alloc()
}

// release hands a discarded instance to the pool, if any.
func release(s Syncer, v any) {
	if isNilMember(v) {
		return
	}
	if p := s.Options().Pool; p != nil {
		p.Put(v)
	}
}
