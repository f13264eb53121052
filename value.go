package neuro

import (
	"fmt"
	"math"
	"reflect"
	"unsafe"

	"github.com/puzpuzpuz/xsync/v4"
)

// valueCodec moves one value of type T through an engine. Field helpers
// frame the value with a header; the codec handles only the payload.
type valueCodec[T any] struct {
	typ   reflect.Type
	shape SizeType
	err   error // non-nil for types that cannot be field values

	write  func(s Syncer, v *T, tag uint32, withType bool)
	read   func(s Syncer, v *T)
	absent func(s Syncer, v *T) // assign the value of a missing field

	isNil   func(v *T) bool
	discard func(s Syncer, v *T)       // give v's instance to the pool
	tagOf   func(v *T) (uint32, error) // polymorphic values only
}

// refHolder is implemented by *Reference[T].
type refHolder interface {
	refID() *uint32
}

var codecs = xsync.NewMap[reflect.Type, any]()

func codecFor[T any]() *valueCodec[T] {
	t := reflect.TypeFor[T]()
	if c, ok := codecs.Load(t); ok {
		return c.(*valueCodec[T])
	}
	c, _ := codecs.LoadOrStore(t, newValueCodec[T](t))
	return c.(*valueCodec[T])
}

func newValueCodec[T any](t reflect.Type) *valueCodec[T] {
	c := &valueCodec[T]{
		typ:     t,
		isNil:   func(*T) bool { return false },
		discard: func(Syncer, *T) {},
		absent: func(_ Syncer, v *T) {
			var zero T
			*v = zero
		},
	}
	if _, ok := any((*T)(nil)).(refHolder); ok {
		c.reference()
		return c
	}
	switch k := t.Kind(); k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		c.shape = VarInt
		c.write = func(s Syncer, v *T, _ uint32, _ bool) {
			x := loadInt(k, unsafe.Pointer(v))
			s.valInt(&x)
		}
		c.read = func(s Syncer, v *T) {
			var x int64
			s.valInt(&x)
			storeInt(k, unsafe.Pointer(v), x)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		c.shape = VarInt
		c.write = func(s Syncer, v *T, _ uint32, _ bool) {
			x := loadUint(k, unsafe.Pointer(v))
			s.valUint(&x)
		}
		c.read = func(s Syncer, v *T) {
			var x uint64
			s.valUint(&x)
			storeUint(k, unsafe.Pointer(v), x)
		}
	case reflect.Bool:
		c.shape = VarInt
		c.write = func(s Syncer, v *T, _ uint32, _ bool) { s.valBool((*bool)(unsafe.Pointer(v))) }
		c.read = func(s Syncer, v *T) { s.valBool((*bool)(unsafe.Pointer(v))) }
	case reflect.Float32:
		c.shape = Fixed32
		c.write = func(s Syncer, v *T, _ uint32, _ bool) { s.valFloat32((*float32)(unsafe.Pointer(v))) }
		c.read = func(s Syncer, v *T) { s.valFloat32((*float32)(unsafe.Pointer(v))) }
	case reflect.Float64:
		c.shape = Fixed64
		c.write = func(s Syncer, v *T, _ uint32, _ bool) { s.valFloat64((*float64)(unsafe.Pointer(v))) }
		c.read = func(s Syncer, v *T) { s.valFloat64((*float64)(unsafe.Pointer(v))) }
	case reflect.String:
		c.shape = Length
		c.write = func(s Syncer, v *T, _ uint32, _ bool) { s.valString((*string)(unsafe.Pointer(v))) }
		c.read = func(s Syncer, v *T) { s.valString((*string)(unsafe.Pointer(v))) }
	case reflect.Slice:
		if t.Elem().Kind() != reflect.Uint8 {
			c.unsupported(fmt.Errorf("%w: %v as a value, use List", ErrInvalidType, t))
			break
		}
		c.shape = Length
		c.isNil = func(v *T) bool { return *(*[]byte)(unsafe.Pointer(v)) == nil }
		c.write = func(s Syncer, v *T, _ uint32, _ bool) { s.valBytes((*[]byte)(unsafe.Pointer(v))) }
		c.read = func(s Syncer, v *T) { s.valBytes((*[]byte)(unsafe.Pointer(v))) }
	case reflect.Struct:
		c.group(t)
	case reflect.Pointer:
		if t.Elem().Kind() != reflect.Struct {
			c.unsupported(fmt.Errorf("%w: %v as a value", ErrInvalidType, t))
			break
		}
		c.pointer(t.Elem())
	case reflect.Interface:
		c.poly(t)
	default:
		c.unsupported(fmt.Errorf("%w: %v as a value", ErrInvalidType, t))
	}
	return c
}

func (c *valueCodec[T]) unsupported(err error) {
	c.err = err
	c.write = func(s Syncer, _ *T, _ uint32, _ bool) { s.Fail(err) }
	c.read = func(s Syncer, _ *T) { s.Fail(err) }
	c.absent = c.read
}

func (c *valueCodec[T]) reference() {
	c.shape = VarInt
	c.write = func(s Syncer, v *T, _ uint32, _ bool) {
		id := uint64(*any(v).(refHolder).refID())
		s.valUint(&id)
	}
	c.read = func(s Syncer, v *T) {
		var id uint64
		s.valUint(&id)
		if id > math.MaxUint32 {
			s.Fail(fmt.Errorf("%w: reference id %d", ErrVarintOverflow, id))
			return
		}
		*any(v).(refHolder).refID() = uint32(id)
	}
}

// group handles a registered struct stored by value.
func (c *valueCodec[T]) group(t reflect.Type) {
	c.shape = Child
	c.write = func(s Syncer, v *T, _ uint32, withType bool) {
		e, err := lookupEntry(t)
		if err != nil {
			s.Fail(err)
			return
		}
		s.writeGroupBegin(withType, 0, e.name)
		e.sync(s, v)
		s.groupEnd()
	}
	c.read = func(s Syncer, v *T) {
		e, err := lookupEntry(t)
		if err != nil {
			s.Fail(err)
			return
		}
		if _, tag := s.readGroupBegin(); tag != 0 {
			s.Fail(fmt.Errorf("%w: tag %d on non-polymorphic %v", ErrUnknownSubType, tag, t))
			return
		}
		e.sync(s, v)
		s.groupEnd()
	}
	c.absent = func(s Syncer, v *T) {
		e, err := lookupEntry(t)
		if err != nil {
			s.Fail(err)
			return
		}
		s.readAbsentGroup()
		e.sync(s, v)
		s.groupEnd()
	}
}

// pointer handles a nullable *S for a registered struct S.
func (c *valueCodec[T]) pointer(elem reflect.Type) {
	c.shape = Child
	c.isNil = func(v *T) bool { return *(*unsafe.Pointer)(unsafe.Pointer(v)) == nil }
	c.discard = func(s Syncer, v *T) {
		if !c.isNil(v) {
			release(s, any(*v))
		}
	}
	c.write = func(s Syncer, v *T, _ uint32, withType bool) {
		e, err := lookupEntry(elem)
		if err != nil {
			s.Fail(err)
			return
		}
		s.writeGroupBegin(withType, 0, e.name)
		e.sync(s, any(*v))
		s.groupEnd()
	}
	c.read = func(s Syncer, v *T) {
		e, err := lookupEntry(elem)
		if err != nil {
			s.Fail(err)
			return
		}
		if _, tag := s.readGroupBegin(); tag != 0 {
			s.Fail(fmt.Errorf("%w: tag %d on non-polymorphic %v", ErrUnknownSubType, tag, elem))
			return
		}
		if c.isNil(v) {
			*v = allocate(s, e).(T)
		}
		e.sync(s, any(*v))
		s.groupEnd()
	}
	c.absent = func(s Syncer, v *T) {
		c.discard(s, v)
		var zero T
		*v = zero
	}
}

// poly handles an interface value whose dynamic type is a member of the
// family rooted at root.
func (c *valueCodec[T]) poly(root reflect.Type) {
	c.shape = ChildWithType
	c.isNil = func(v *T) bool { return isNilMember(any(*v)) }
	c.discard = func(s Syncer, v *T) { release(s, any(*v)) }
	c.tagOf = func(v *T) (uint32, error) {
		f, err := lookupFamily(root)
		if err != nil {
			return 0, err
		}
		_, tag, err := memberEntry(f, any(*v))
		return tag, err
	}
	c.write = func(s Syncer, v *T, tag uint32, withType bool) {
		f, err := lookupFamily(root)
		if err != nil {
			s.Fail(err)
			return
		}
		x := any(*v)
		e, _, err := memberEntry(f, x)
		if err != nil {
			s.Fail(err)
			return
		}
		s.writeGroupBegin(withType, tag, e.name)
		e.sync(s, x)
		s.groupEnd()
	}
	c.read = func(s Syncer, v *T) {
		f, err := lookupFamily(root)
		if err != nil {
			s.Fail(err)
			return
		}
		_, tag := s.readGroupBegin()
		if s.Err() != nil {
			return
		}
		e, err := f.entryFor(tag)
		if err != nil {
			s.Fail(err)
			return
		}
		cur := any(*v)
		if ct := reflect.TypeOf(cur); isNilMember(cur) || ct.Kind() != reflect.Pointer || ct.Elem() != e.typ {
			release(s, cur)
			*v = allocate(s, e).(T)
		}
		e.sync(s, any(*v))
		s.groupEnd()
	}
	c.absent = func(s Syncer, v *T) {
		c.discard(s, v)
		var zero T
		*v = zero
	}
}

// fieldShape returns the header shape for v and whether its payload carries
// a subtype tag.
func (c *valueCodec[T]) fieldShape(v *T) (shape SizeType, tag uint32, withType bool, err error) {
	if c.tagOf == nil {
		return c.shape, 0, false, nil
	}
	tag, err = c.tagOf(v)
	if err != nil || tag == 0 {
		return Child, 0, false, err
	}
	return ChildWithType, tag, true, nil
}

func loadInt(k reflect.Kind, p unsafe.Pointer) int64 {
	switch k {
	case reflect.Int8:
		return int64(*(*int8)(p))
	case reflect.Int16:
		return int64(*(*int16)(p))
	case reflect.Int32:
		return int64(*(*int32)(p))
	case reflect.Int64:
		return *(*int64)(p)
	default:
		return int64(*(*int)(p))
	}
}

func storeInt(k reflect.Kind, p unsafe.Pointer, x int64) {
	switch k {
	case reflect.Int8:
		*(*int8)(p) = int8(x)
	case reflect.Int16:
		*(*int16)(p) = int16(x)
	case reflect.Int32:
		*(*int32)(p) = int32(x)
	case reflect.Int64:
		*(*int64)(p) = x
	default:
		*(*int)(p) = int(x)
	}
}

func loadUint(k reflect.Kind, p unsafe.Pointer) uint64 {
	switch k {
	case reflect.Uint8:
		return uint64(*(*uint8)(p))
	case reflect.Uint16:
		return uint64(*(*uint16)(p))
	case reflect.Uint32:
		return uint64(*(*uint32)(p))
	case reflect.Uint64:
		return *(*uint64)(p)
	case reflect.Uintptr:
		return uint64(*(*uintptr)(p))
	default:
		return uint64(*(*uint)(p))
	}
}

func storeUint(k reflect.Kind, p unsafe.Pointer, x uint64) {
	switch k {
	case reflect.Uint8:
		*(*uint8)(p) = uint8(x)
	case reflect.Uint16:
		*(*uint16)(p) = uint16(x)
	case reflect.Uint32:
		*(*uint32)(p) = uint32(x)
	case reflect.Uint64:
		*(*uint64)(p) = x
	case reflect.Uintptr:
		*(*uintptr)(p) = uintptr(x)
	default:
		*(*uint)(p) = uint(x)
	}
}
