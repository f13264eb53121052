package neuro

// Types shared by the tests. They are registered once in init, the way an
// application registers its types at startup.

// TestClass is a polymorphic family: BaseClass untagged, subtypes 2 and 3.
type TestClass interface{ testClass() }

type BaseClass struct {
	Name string
}

type SubTestClass1 struct {
	Base     BaseClass
	NumValue int32
}

type SubTestClass2 struct {
	Text  string
	Score float64
}

func (*BaseClass) testClass()     {}
func (*SubTestClass1) testClass() {}
func (*SubTestClass2) testClass() {}

// Item and Spell are global families.
type Item interface{ item() }

type Weapon struct {
	Damage int32
	Label  string
}

type Sword struct {
	Weapon    Weapon
	Sharpness float32
}

func (*Weapon) item() {}
func (*Sword) item()  {}

type Spell interface{ spell() }

type Fireball struct {
	Radius uint16
}

func (*Fireball) spell() {}

// Inner has a non-zero default.
type Inner struct {
	A     int32
	Label string
}

type TestObject struct {
	Id               int64
	ListInt          []int32
	DictionaryIntStr map[int32]string
	BaseClassObj     TestClass
	Reference        Reference[Item]
	Child            *Inner
	Children         []TestClass
	Ratio            float32
	Blob             []byte
	Inner            Inner
	Named            map[string]*Inner
	Level            Level
}

type Level uint8

const (
	LevelLow Level = iota
	LevelMid
	LevelHigh
)

// HolderV1 and HolderV2 are two versions of one schema.
type HolderV1 struct {
	Inner Inner
}

type HolderV2 struct {
	Inner  Inner
	Extra  []string
	Nested map[string]Inner
	Count  int64
}

// Node nests without bound.
type Node struct {
	Value int64
	Next  *Node
}

// OutOfOrder syncs its keys backwards.
type OutOfOrder struct {
	A, B int32
}

// Shelf holds a list of pointers.
type Shelf struct {
	Items []*Inner
}

type Unregistered struct {
	X int32
}

func syncBaseClass(s Syncer, v *BaseClass) {
	String(s, 1, "name", &v.Name, "")
}

func syncSubTestClass1(s Syncer, v *SubTestClass1) {
	Base[TestClass](s, 1, "base", &v.Base)
	Int(s, 2, "numValue", &v.NumValue, 0)
}

func syncSubTestClass2(s Syncer, v *SubTestClass2) {
	String(s, 1, "text", &v.Text, "")
	Float(s, 2, "score", &v.Score, 0)
}

func syncWeapon(s Syncer, v *Weapon) {
	Int(s, 1, "damage", &v.Damage, 0)
	String(s, 2, "label", &v.Label, "")
}

func syncSword(s Syncer, v *Sword) {
	Base[Item](s, 1, "weapon", &v.Weapon)
	Float(s, 2, "sharpness", &v.Sharpness, 0)
}

func syncFireball(s Syncer, v *Fireball) {
	Uint(s, 1, "radius", &v.Radius, 0)
}

func syncInner(s Syncer, v *Inner) {
	Int(s, 1, "a", &v.A, 0)
	String(s, 2, "label", &v.Label, "none")
}

func syncTestObject(s Syncer, v *TestObject) {
	Int(s, 1, "id", &v.Id, 0)
	List(s, 2, "listInt", &v.ListInt)
	Dict(s, 3, "dictionaryIntStr", &v.DictionaryIntStr)
	Poly(s, 4, "baseClassObj", &v.BaseClassObj)
	Ref(s, 5, "reference", &v.Reference)
	Ptr(s, 6, "child", &v.Child)
	List(s, 7, "children", &v.Children)
	Float(s, 8, "ratio", &v.Ratio, 1.5)
	Bytes(s, 9, "blob", &v.Blob)
	Struct(s, 10, "inner", &v.Inner)
	Dict(s, 11, "named", &v.Named)
	Enum(s, 12, "level", &v.Level, LevelMid)
}

func syncHolderV1(s Syncer, v *HolderV1) {
	Struct(s, 1, "inner", &v.Inner)
}

func syncHolderV2(s Syncer, v *HolderV2) {
	Struct(s, 1, "inner", &v.Inner)
	List(s, 2, "extra", &v.Extra)
	Dict(s, 3, "nested", &v.Nested)
	Int(s, 4, "count", &v.Count, 0)
}

func syncNode(s Syncer, v *Node) {
	Int(s, 1, "value", &v.Value, 0)
	Ptr(s, 2, "next", &v.Next)
}

func syncShelf(s Syncer, v *Shelf) {
	List(s, 1, "items", &v.Items)
}

func syncOutOfOrder(s Syncer, v *OutOfOrder) {
	Int(s, 2, "b", &v.B, 0)
	Int(s, 1, "a", &v.A, 0)
}

func init() {
	Must(Register[Inner](syncInner))
	Must(RegisterRoot[TestClass, BaseClass](syncBaseClass))
	Must(RegisterSubClass[TestClass, SubTestClass1](2, syncSubTestClass1))
	Must(RegisterSubClass[TestClass, SubTestClass2](3, syncSubTestClass2))
	Must(RegisterSubClass[Item, Sword](1, syncSword))
	Must(RegisterGlobalType[Item, Weapon](7, syncWeapon))
	Must(RegisterGlobalType[Spell, Fireball](9, syncFireball))
	Must(Register[TestObject](syncTestObject))
	Must(Register[HolderV1](syncHolderV1))
	Must(Register[HolderV2](syncHolderV2))
	Must(Register[Node](syncNode))
	Must(Register[OutOfOrder](syncOutOfOrder))
	Must(Register[Shelf](syncShelf))
}

// fixture is the canonical scenario object.
func fixture() *TestObject {
	return &TestObject{
		Id:               1234,
		ListInt:          []int32{7, 6, 5, 3},
		DictionaryIntStr: map[int32]string{1: "first", 2: "second", 3: "third"},
		BaseClassObj:     &SubTestClass1{NumValue: 99},
		Reference:        RefTo[Item](123),
		Inner:            Inner{Label: "none"},
		Level:            LevelMid,
		Ratio:            1.5,
	}
}

// chain builds a list of n nodes.
func chain(n int) *Node {
	var head *Node
	for i := n; i > 0; i-- {
		head = &Node{Value: int64(i), Next: head}
	}
	return head
}
