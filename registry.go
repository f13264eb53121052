package neuro

import (
	"fmt"
	"math"
	"reflect"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// typeEntry is the type-erased registration of one concrete struct type.
type typeEntry struct {
	typ   reflect.Type
	name  string
	sync  func(s Syncer, v any) // v is a pointer to typ
	alloc func() any
}

// family is a polymorphic root: an interface type whose implementations
// are told apart by subtype tags. The base type is written without a tag.
type family struct {
	root     reflect.Type
	base     *typeEntry
	globalID uint32
	byTag    *xsync.Map[uint32, *typeEntry]
	tags     *xsync.Map[reflect.Type, uint32] // member struct type -> tag, 0 for base
}

// tagFor returns the subtype tag of the struct type t.
func (f *family) tagFor(t reflect.Type) (uint32, bool) {
	return f.tags.Load(t)
}

// entryFor resolves a tag read from the input. Tag 0, or no tag at all,
// selects the base type.
func (f *family) entryFor(tag uint32) (*typeEntry, error) {
	if tag == 0 {
		if f.base == nil {
			return nil, fmt.Errorf("%w: %v has no base type for untagged data", ErrUnknownSubType, f.root)
		}
		return f.base, nil
	}
	e, ok := f.byTag.Load(tag)
	if !ok {
		return nil, fmt.Errorf("%w: tag %d in %v", ErrUnknownSubType, tag, f.root)
	}
	return e, nil
}

type registry struct {
	mu       sync.Mutex // serializes registrations; lookups are lock-free
	types    *xsync.Map[reflect.Type, *typeEntry]
	families *xsync.Map[reflect.Type, *family]
	globals  *xsync.Map[uint32, *family]
	globalOf *xsync.Map[reflect.Type, *family] // member struct type -> its global family
}

func newRegistry() *registry {
	return &registry{
		types:    xsync.NewMap[reflect.Type, *typeEntry](),
		families: xsync.NewMap[reflect.Type, *family](),
		globals:  xsync.NewMap[uint32, *family](),
		globalOf: xsync.NewMap[reflect.Type, *family](),
	}
}

var types = newRegistry()

func checkTag(what string, tag uint32) error {
	if tag == 0 || tag >= math.MaxInt32 {
		return fmt.Errorf("%w: %s %d not in [1, %d)", ErrTagOutOfRange, what, tag, math.MaxInt32)
	}
	return nil
}

func newEntry[T any](fn SyncFunc[T]) *typeEntry {
	t := reflect.TypeFor[T]()
	return &typeEntry{
		typ:   t,
		name:  t.Name(),
		sync:  func(s Syncer, v any) { fn(s, v.(*T)) },
		alloc: func() any { return new(T) },
	}
}

func checkStruct(t reflect.Type) error {
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %v is a %s, want a struct", ErrInvalidType, t, t.Kind())
	}
	return nil
}

// entry registers e unless its type is known, and returns the registered entry.
// Caller holds mu.
func (r *registry) entry(e *typeEntry) *typeEntry {
	if old, ok := r.types.Load(e.typ); ok {
		return old
	}
	r.types.Store(e.typ, e)
	log().Debug("neuro: registered type", "type", e.typ.String())
	return e
}

// family returns the family rooted at root, creating it. Caller holds mu.
func (r *registry) family(root reflect.Type) (*family, error) {
	if root.Kind() != reflect.Interface {
		return nil, fmt.Errorf("%w: family root %v is not an interface", ErrInvalidType, root)
	}
	if f, ok := r.families.Load(root); ok {
		return f, nil
	}
	f := &family{
		root:  root,
		byTag: xsync.NewMap[uint32, *typeEntry](),
		tags:  xsync.NewMap[reflect.Type, uint32](),
	}
	r.families.Store(root, f)
	return f, nil
}

func implements(f *family, t reflect.Type) error {
	if !reflect.PointerTo(t).Implements(f.root) {
		return fmt.Errorf("%w: *%v does not implement %v", ErrNotInFamily, t, f.root)
	}
	return nil
}

// join records membership of e in f under tag. Caller holds mu.
func (r *registry) join(f *family, e *typeEntry, tag uint32) {
	f.tags.Store(e.typ, tag)
	if f.globalID != 0 {
		if _, ok := r.globalOf.Load(e.typ); !ok {
			r.globalOf.Store(e.typ, f)
		}
	}
}

// Register makes T usable as a Child field, list element or dictionary value.
// Registering the same type twice fails with ErrDuplicateType.
func Register[T any](fn SyncFunc[T]) error {
	t := reflect.TypeFor[T]()
	if err := checkStruct(t); err != nil {
		return err
	}
	types.mu.Lock()
	defer types.mu.Unlock()
	if _, ok := types.types.Load(t); ok {
		return fmt.Errorf("%w: %v", ErrDuplicateType, t)
	}
	types.entry(newEntry(fn))
	return nil
}

// RegisterRoot declares the interface R as a polymorphic family whose base
// type B is written without a subtype tag. B is registered if needed; a type
// registered earlier keeps its first sync function.
func RegisterRoot[R, B any](fn SyncFunc[B]) error {
	types.mu.Lock()
	defer types.mu.Unlock()
	_, err := types.registerRoot(reflect.TypeFor[R](), newEntry(fn))
	return err
}

func (r *registry) registerRoot(root reflect.Type, e *typeEntry) (*family, error) {
	if err := checkStruct(e.typ); err != nil {
		return nil, err
	}
	f, err := r.family(root)
	if err != nil {
		return nil, err
	}
	if err := implements(f, e.typ); err != nil {
		return nil, err
	}
	e = r.entry(e)
	switch {
	case f.base == e:
		return f, nil
	case f.base != nil:
		return nil, fmt.Errorf("%w: %v already has base %v", ErrDuplicateType, root, f.base.typ)
	}
	if tag, ok := f.tagFor(e.typ); ok {
		return nil, fmt.Errorf("%w: %v is already subtype %d of %v", ErrDuplicateType, e.typ, tag, root)
	}
	f.base = e
	r.join(f, e, 0)
	log().Debug("neuro: registered family", "root", root.String(), "base", e.typ.String())
	return f, nil
}

// RegisterSubClass adds S to the family R under tag. Tags must be unique per
// family and lie in [1, MaxInt32). Repeating an identical registration is a
// no-op; any other conflict fails loudly.
func RegisterSubClass[R, S any](tag uint32, fn SyncFunc[S]) error {
	if err := checkTag("subtype tag", tag); err != nil {
		return err
	}
	e := newEntry(fn)
	if err := checkStruct(e.typ); err != nil {
		return err
	}
	types.mu.Lock()
	defer types.mu.Unlock()
	f, err := types.family(reflect.TypeFor[R]())
	if err != nil {
		return err
	}
	if err := implements(f, e.typ); err != nil {
		return err
	}
	if old, ok := f.byTag.Load(tag); ok {
		if old.typ == e.typ {
			return nil
		}
		return fmt.Errorf("%w: tag %d of %v is taken by %v, wanted by %v", ErrDuplicateTag, tag, f.root, old.typ, e.typ)
	}
	if old, ok := f.tagFor(e.typ); ok {
		return fmt.Errorf("%w: %v is already tag %d of %v", ErrDuplicateType, e.typ, old, f.root)
	}
	e = types.entry(e)
	f.byTag.Store(tag, e)
	types.join(f, e, tag)
	log().Debug("neuro: registered subtype", "root", f.root.String(), "type", e.typ.String(), "tag", tag)
	return nil
}

// RegisterGlobalType registers the family R with base B like RegisterRoot and
// assigns it a global type id, so instances can be written without the
// reader knowing their type in advance.
func RegisterGlobalType[R, B any](id uint32, fn SyncFunc[B]) error {
	if err := checkTag("global type id", id); err != nil {
		return err
	}
	types.mu.Lock()
	defer types.mu.Unlock()
	root := reflect.TypeFor[R]()
	if old, ok := types.globals.Load(id); ok && old.root != root {
		return fmt.Errorf("%w: %d is taken by %v", ErrDuplicateGlobalID, id, old.root)
	}
	if f, ok := types.families.Load(root); ok && f.globalID != 0 && f.globalID != id {
		return fmt.Errorf("%w: %v already has global id %d", ErrDuplicateGlobalID, root, f.globalID)
	}
	f, err := types.registerRoot(root, newEntry(fn))
	if err != nil {
		return err
	}
	f.globalID = id
	types.globals.Store(id, f)
	f.tags.Range(func(t reflect.Type, _ uint32) bool {
		if _, ok := types.globalOf.Load(t); !ok {
			types.globalOf.Store(t, f)
		}
		return true
	})
	log().Debug("neuro: registered global type", "root", root.String(), "id", id)
	return nil
}

// Must panics if err is not nil. It suits registrations in init functions.
func Must(err error) {
	if err != nil {
		panic(err)
	}
}

func lookupEntry(t reflect.Type) (*typeEntry, error) {
	if e, ok := types.types.Load(t); ok {
		return e, nil
	}
	return nil, &UnregisteredTypeError{Type: t}
}

func lookupFamily(root reflect.Type) (*family, error) {
	if f, ok := types.families.Load(root); ok {
		return f, nil
	}
	return nil, &UnregisteredTypeError{Type: root}
}

func lookupGlobal(id uint32) (*family, error) {
	if f, ok := types.globals.Load(id); ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownGlobalType, id)
}

// IsRegistered reports whether T is a registered struct type or family root.
func IsRegistered[T any]() bool {
	t := reflect.TypeFor[T]()
	if _, ok := types.types.Load(t); ok {
		return true
	}
	_, ok := types.families.Load(t)
	return ok
}

// ShapeOf reports the wire shape T occupies as a field value.
func ShapeOf[T any]() (SizeType, error) {
	c := codecFor[T]()
	if c.err != nil {
		return 0, c.err
	}
	return c.shape, nil
}

// GlobalIDOf returns the global type id of the family R.
func GlobalIDOf[R any]() (uint32, bool) {
	f, ok := types.families.Load(reflect.TypeFor[R]())
	if !ok || f.globalID == 0 {
		return 0, false
	}
	return f.globalID, true
}

// SubTypeTag returns the tag v's dynamic type has in the family R, 0 for the base type.
func SubTypeTag[R any](v R) (uint32, error) {
	f, err := lookupFamily(reflect.TypeFor[R]())
	if err != nil {
		return 0, err
	}
	_, tag, err := memberEntry(f, any(v))
	return tag, err
}

// isNilMember reports whether x is a nil interface or holds a nil pointer.
func isNilMember(x any) bool {
	if x == nil {
		return true
	}
	rv := reflect.ValueOf(x)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// memberEntry resolves the dynamic type of x, which must be a pointer to a
// registered member of f.
func memberEntry(f *family, x any) (*typeEntry, uint32, error) {
	if isNilMember(x) {
		return nil, 0, fmt.Errorf("%w: nil %v", ErrNilElement, f.root)
	}
	t := reflect.TypeOf(x)
	if t.Kind() != reflect.Pointer {
		return nil, 0, fmt.Errorf("%w: %v is not a pointer", ErrNotInFamily, t)
	}
	t = t.Elem()
	e, err := lookupEntry(t)
	if err != nil {
		return nil, 0, err
	}
	tag, ok := f.tagFor(t)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %v in %v", ErrNotInFamily, t, f.root)
	}
	return e, tag, nil
}
