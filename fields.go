package neuro

import (
	"fmt"
	"reflect"

	"golang.org/x/exp/constraints"
)

// Field helpers are called from sync functions, one per field, in ascending
// key order. Keys are positive and unique within a type; the name labels the
// field in JSON and in error messages.

// scalar syncs a value with a default: on write the field is omitted when it
// equals def, on read a missing field assigns def.
func scalar[T comparable](s Syncer, key uint32, name string, v *T, def T) {
	if s.Err() != nil {
		return
	}
	c := codecFor[T]()
	if !s.Reading() {
		if *v == def {
			return
		}
		if s.beginField(key, name, c.shape, false) {
			c.write(s, v, 0, false)
			s.endField()
		}
		return
	}
	if !s.beginField(key, name, c.shape, false) {
		if s.Err() == nil {
			*v = def
		}
		return
	}
	c.read(s, v)
	s.endField()
}

// Int syncs a signed integer, zigzag encoded.
func Int[T constraints.Signed](s Syncer, key uint32, name string, v *T, def T) {
	scalar(s, key, name, v, def)
}

// Uint syncs an unsigned integer.
func Uint[T constraints.Unsigned](s Syncer, key uint32, name string, v *T, def T) {
	scalar(s, key, name, v, def)
}

// Float syncs a float32 (Fixed32) or float64 (Fixed64).
func Float[T constraints.Float](s Syncer, key uint32, name string, v *T, def T) {
	scalar(s, key, name, v, def)
}

// Bool syncs a bool written as a VarInt 0 or 1.
func Bool(s Syncer, key uint32, name string, v *bool, def bool) {
	scalar(s, key, name, v, def)
}

// String syncs a UTF-8 string as a Length field.
func String(s Syncer, key uint32, name string, v *string, def string) {
	scalar(s, key, name, v, def)
}

// Enum syncs a named integer type.
func Enum[T constraints.Integer](s Syncer, key uint32, name string, v *T, def T) {
	scalar(s, key, name, v, def)
}

// Bytes syncs a byte slice. A nil slice is absent; an empty one is written
// and read back as empty.
func Bytes(s Syncer, key uint32, name string, v *[]byte) {
	Value(s, key, name, v)
}

// Ref syncs a reference by its id. The zero reference is omitted.
func Ref[T any](s Syncer, key uint32, name string, v *Reference[T]) {
	scalar(s, key, name, v, Reference[T]{})
}

// Value syncs a value without a default. Scalars are always written; nil
// pointers, interfaces and byte slices are absent. A missing field assigns
// the zero value, except for structs stored by value which are synced from
// an empty group so their own defaults apply.
func Value[T any](s Syncer, key uint32, name string, v *T) {
	if s.Err() != nil {
		return
	}
	c := codecFor[T]()
	if !s.Reading() {
		if c.isNil(v) {
			return
		}
		shape, tag, withType, err := c.fieldShape(v)
		if err != nil {
			s.Fail(err)
			return
		}
		if s.beginField(key, name, shape, false) {
			c.write(s, v, tag, withType)
			s.endField()
		}
		return
	}
	if !s.beginField(key, name, c.shape, false) {
		if s.Err() == nil {
			c.absent(s, v)
		}
		return
	}
	c.read(s, v)
	s.endField()
}

// Struct syncs a registered struct held by value.
func Struct[T any](s Syncer, key uint32, name string, v *T) {
	Value(s, key, name, v)
}

// Ptr syncs a nullable registered struct. Reading a present field into a
// nil pointer allocates; reading an absent one sets it to nil.
func Ptr[T any](s Syncer, key uint32, name string, v **T) {
	Value(s, key, name, v)
}

// Poly syncs an interface value of a registered family. Subtypes carry their
// tag on the wire. On read the existing instance is reused when its type
// matches; otherwise it goes back to the pool and a new one is allocated.
func Poly[R any](s Syncer, key uint32, name string, v *R) {
	Value(s, key, name, v)
}

// List syncs a slice. A nil slice is absent, an empty one is written with a
// zero count. Reading resizes in place: elements at existing indexes are
// reused, trimmed elements go to the pool. Nil pointer or interface elements
// fail with ErrNilElement.
func List[T any](s Syncer, key uint32, name string, v *[]T) {
	if s.Err() != nil {
		return
	}
	c := codecFor[T]()
	if !s.Reading() {
		writeList(s, c, key, name, *v)
		return
	}
	if !s.beginField(key, name, c.shape, true) {
		if s.Err() == nil {
			trim(s, c, *v, 0)
			*v = nil
		}
		return
	}
	n := s.listBegin(0)
	if s.Err() != nil {
		return
	}
	l := resize(s, c, *v, n)
	*v = l
	for i := 0; i < n && s.Err() == nil; i++ {
		s.elemBegin(i)
		c.read(s, &l[i])
		s.elemEnd()
	}
	s.listEnd()
	s.endField()
}

func writeList[T any](s Syncer, c *valueCodec[T], key uint32, name string, l []T) {
	if l == nil {
		return
	}
	shape, withType := c.shape, false
	for i := range l {
		if c.isNil(&l[i]) {
			s.Fail(fmt.Errorf("%w: %q[%d]", ErrNilElement, name, i))
			return
		}
	}
	if c.tagOf != nil {
		shape = Child
		for i := range l {
			tag, err := c.tagOf(&l[i])
			if err != nil {
				s.Fail(err)
				return
			}
			if tag != 0 {
				shape, withType = ChildWithType, true
				break
			}
		}
	}
	if !s.beginField(key, name, shape, true) {
		return
	}
	s.listBegin(len(l))
	for i := range l {
		var tag uint32
		if c.tagOf != nil {
			tag, _ = c.tagOf(&l[i])
		}
		s.elemBegin(i)
		c.write(s, &l[i], tag, withType)
		s.elemEnd()
	}
	s.listEnd()
	s.endField()
}

// resize returns l with length n, reusing its backing array when possible.
// Only elements below len(l) are kept for reuse; slots grown into are zeroed.
// The result is never nil.
func resize[T any](s Syncer, c *valueCodec[T], l []T, n int) []T {
	if l == nil || n > cap(l) {
		nl := make([]T, n)
		copy(nl, l)
		return nl
	}
	if n > len(l) {
		clear(l[len(l):n])
	}
	trim(s, c, l, n)
	return l[:n]
}

// trim pools and clears the elements of l from index n on.
func trim[T any](s Syncer, c *valueCodec[T], l []T, n int) {
	if n >= len(l) {
		return
	}
	for i := n; i < len(l); i++ {
		c.discard(s, &l[i])
	}
	clear(l[n:])
}

// Dict syncs a map. Keys must be scalars; iteration order on the wire is
// unspecified. A nil map is absent. Reading clears the map and rebuilds it.
func Dict[K comparable, V any](s Syncer, key uint32, name string, v *map[K]V) {
	if s.Err() != nil {
		return
	}
	kc, vc := codecFor[K](), codecFor[V]()
	if kc.err == nil && !kc.shape.IsScalar() {
		s.Fail(fmt.Errorf("%w: key type %v of %q is not a scalar", ErrDictionaryShape, reflect.TypeFor[K](), name))
		return
	}
	if !s.Reading() {
		writeDict(s, kc, vc, key, name, *v)
		return
	}
	if !s.beginField(key, name, Dictionary, false) {
		if s.Err() == nil {
			*v = nil
		}
		return
	}
	n := s.dictBegin(kc.shape, vc.shape, 0)
	if s.Err() != nil {
		return
	}
	m := *v
	if m == nil {
		m = make(map[K]V, n)
	} else {
		for k := range m {
			val := m[k]
			vc.discard(s, &val)
		}
		clear(m)
	}
	*v = m
	for i := 0; i < n && s.Err() == nil; i++ {
		var k K
		var val V
		s.dictKey(i)
		kc.read(s, &k)
		s.dictValue(i)
		vc.read(s, &val)
		s.dictEntryEnd()
		m[k] = val
	}
	s.dictEnd()
	s.endField()
}

func writeDict[K comparable, V any](s Syncer, kc *valueCodec[K], vc *valueCodec[V], key uint32, name string, m map[K]V) {
	if m == nil {
		return
	}
	shape, withType := vc.shape, false
	if vc.tagOf != nil {
		shape = Child
	}
	for k, val := range m {
		if vc.isNil(&val) {
			s.Fail(fmt.Errorf("%w: %q[%v]", ErrNilElement, name, k))
			return
		}
		if vc.tagOf == nil {
			continue
		}
		tag, err := vc.tagOf(&val)
		if err != nil {
			s.Fail(err)
			return
		}
		if tag != 0 {
			shape, withType = ChildWithType, true
		}
	}
	if !s.beginField(key, name, Dictionary, false) {
		return
	}
	s.dictBegin(kc.shape, shape, len(m))
	i := 0
	for k, val := range m {
		var tag uint32
		if vc.tagOf != nil {
			tag, _ = vc.tagOf(&val)
		}
		s.dictKey(i)
		kc.write(s, &k, 0, false)
		s.dictValue(i)
		vc.write(s, &val, tag, withType)
		s.dictEntryEnd()
		i++
	}
	s.dictEnd()
	s.endField()
}

// Base syncs the fields a type inherits from B, a member of the family R,
// as one ChildWithType field carrying B's tag. It lets a subtype's sync
// function delegate to its parent's. On read, a tag that is not B's fails
// with ErrInvariantViolation.
func Base[R, B any](s Syncer, key uint32, name string, v *B) {
	if s.Err() != nil {
		return
	}
	f, err := lookupFamily(reflect.TypeFor[R]())
	if err != nil {
		s.Fail(err)
		return
	}
	e, err := lookupEntry(reflect.TypeFor[B]())
	if err != nil {
		s.Fail(err)
		return
	}
	tag, ok := f.tagFor(e.typ)
	if !ok {
		s.Fail(fmt.Errorf("%w: base %v of field %q is not in %v", ErrInvariantViolation, e.typ, name, f.root))
		return
	}
	if !s.Reading() {
		if s.beginField(key, name, ChildWithType, false) {
			s.writeGroupBegin(true, tag, e.name)
			e.sync(s, v)
			s.groupEnd()
			s.endField()
		}
		return
	}
	if !s.beginField(key, name, ChildWithType, false) {
		if s.Err() == nil {
			s.readAbsentGroup()
			e.sync(s, v)
			s.groupEnd()
		}
		return
	}
	if _, wire := s.readGroupBegin(); wire != tag && s.Err() == nil {
		s.Fail(fmt.Errorf("%w: base field %q has tag %d, want %d", ErrInvariantViolation, name, wire, tag))
		return
	}
	e.sync(s, v)
	s.groupEnd()
	s.endField()
}
