package neuro

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type JSONTestSuite struct {
	suite.Suite
	bare *Options // numeric type markers
}

func TestJSONSuite(t *testing.T) {
	suite.Run(t, new(JSONTestSuite))
}

func (s *JSONTestSuite) SetupTest() {
	s.bare = DefaultOptions().WithJSONTypeNames(false)
}

func (s *JSONTestSuite) TestObjectsAreKeyedByName() {
	out, err := MarshalJSON(&Inner{A: 1, Label: "x"})
	s.Require().NoError(err)
	s.Equal(`{"a":1,"label":"x"}`, string(out))

	// Defaults are omitted like on the wire.
	out, err = MarshalJSON(&Inner{Label: "none"})
	s.Require().NoError(err)
	s.Equal(`{}`, string(out))

	v := HolderV2{
		Inner:  Inner{A: 1, Label: "none"},
		Extra:  []string{"a", "b"},
		Nested: map[string]Inner{"n": {A: 2, Label: "none"}},
		Count:  -3,
	}
	out, err = MarshalJSON(&v)
	s.Require().NoError(err)
	s.Equal(`{"inner":{"a":1},"extra":["a","b"],"nested":{"n":{"a":2}},"count":-3}`, string(out))
}

func (s *JSONTestSuite) TestSubType() {
	var v TestClass = &SubTestClass2{Text: "hi", Score: 2}
	out, err := MarshalJSON(&v)
	s.Require().NoError(err)
	s.Equal(`{"-subType":"3:SubTestClass2","text":"hi","score":2}`, string(out))

	out, err = WriteJSON(&v, s.bare)
	s.Require().NoError(err)
	s.Equal(`{"-subType":3,"text":"hi","score":2}`, string(out))

	// Both forms read back; the name is informational.
	for _, doc := range []string{
		`{"-subType":"3:SubTestClass2","text":"hi","score":2}`,
		`{"-subType":3,"text":"hi","score":2}`,
		`{"-subType":"3:Whatever","text":"hi","score":2}`,
	} {
		var got TestClass
		s.Require().NoError(UnmarshalJSON([]byte(doc), &got), doc)
		s.Equal(v, got)
	}

	// No marker selects the base type.
	var got TestClass
	s.Require().NoError(UnmarshalJSON([]byte(`{"name":"b"}`), &got))
	s.Equal(&BaseClass{Name: "b"}, got)

	err = UnmarshalJSON([]byte(`{"-subType":77}`), &got)
	s.ErrorIs(err, ErrUnknownSubType)
	err = UnmarshalJSON([]byte(`{"-subType":"x:Bad"}`), &got)
	s.ErrorIs(err, ErrInvalidJSON)
}

func (s *JSONTestSuite) TestBaseDelegation() {
	var v TestClass = &SubTestClass1{Base: BaseClass{Name: "n"}, NumValue: 99}
	out, err := MarshalJSON(&v)
	s.Require().NoError(err)
	s.Equal(`{"-subType":"2:SubTestClass1","base":{"name":"n"},"numValue":99}`, string(out))

	var got TestClass
	s.Require().NoError(UnmarshalJSON(out, &got))
	s.Equal(v, got)
}

func (s *JSONTestSuite) TestPolyList() {
	in := TestObject{
		Children: []TestClass{&BaseClass{Name: "b"}, &SubTestClass2{Text: "t"}},
		Inner:    Inner{Label: "none"},
		Ratio:    1.5,
		Level:    LevelMid,
	}
	out, err := MarshalJSON(&in)
	s.Require().NoError(err)
	s.Equal(`{"children":[{"name":"b"},{"-subType":"3:SubTestClass2","text":"t"}],"inner":{}}`, string(out))

	var got TestObject
	s.Require().NoError(UnmarshalJSON(out, &got))
	s.Equal(in, got)
}

func (s *JSONTestSuite) TestRoundTrip() {
	in := fixture()
	in.Named = map[string]*Inner{"x": {A: 5, Label: "none"}, "y": {Label: ""}}
	in.Children = []TestClass{&SubTestClass1{NumValue: 1}, &BaseClass{}}
	in.Blob = []byte{1, 2, 3}
	in.Child = &Inner{A: -7, Label: "c"}
	in.Ratio = 0.25
	in.Level = LevelHigh

	out, err := MarshalJSON(in)
	s.Require().NoError(err)
	s.Contains(string(out), `"blob":"AQID"`)
	s.Contains(string(out), `"reference":123`)

	var got TestObject
	s.Require().NoError(UnmarshalJSON(out, &got))
	s.Equal(in, &got)

	// JSON and the binary form agree.
	data, err := Marshal(&got)
	s.Require().NoError(err)
	var again TestObject
	s.Require().NoError(Unmarshal(data, &again))
	s.Equal(in, &again)
}

func (s *JSONTestSuite) TestDictionaryKeys() {
	in := TestObject{DictionaryIntStr: map[int32]string{-1: "neg"}, Inner: Inner{Label: "none"}, Ratio: 1.5, Level: LevelMid}
	out, err := MarshalJSON(&in)
	s.Require().NoError(err)
	s.Equal(`{"dictionaryIntStr":{"-1":"neg"},"inner":{}}`, string(out))

	var got TestObject
	s.Require().NoError(UnmarshalJSON(out, &got))
	s.Equal(in, got)

	err = UnmarshalJSON([]byte(`{"dictionaryIntStr":{"one":"x"}}`), &got)
	s.ErrorIs(err, ErrInvalidJSON)
}

func (s *JSONTestSuite) TestNonFiniteFloats() {
	var v TestClass = &SubTestClass2{Score: math.Inf(1)}
	out, err := MarshalJSON(&v)
	s.Require().NoError(err)
	s.Equal(`{"-subType":"3:SubTestClass2","score":"Infinity"}`, string(out))
	var got TestClass
	s.Require().NoError(UnmarshalJSON(out, &got))
	s.Equal(v, got)

	f := math.Inf(-1)
	out, err = MarshalJSON(&f)
	s.Require().NoError(err)
	s.Equal(`"-Infinity"`, string(out))

	f = math.NaN()
	out, err = MarshalJSON(&f)
	s.Require().NoError(err)
	s.Equal(`"NaN"`, string(out))
	var nan float64
	s.Require().NoError(UnmarshalJSON(out, &nan))
	s.True(math.IsNaN(nan))
}

func (s *JSONTestSuite) TestTopLevelScalars() {
	n := int32(-5)
	out, err := MarshalJSON(&n)
	s.Require().NoError(err)
	s.Equal(`-5`, string(out))

	str := "tab\there \"quoted\"\n"
	out, err = MarshalJSON(&str)
	s.Require().NoError(err)
	s.Equal(`"tab\there \"quoted\"\n"`, string(out))
	got, err := ReadJSON[string](out, nil)
	s.Require().NoError(err)
	s.Equal(str, got)

	b := true
	out, err = MarshalJSON(&b)
	s.Require().NoError(err)
	s.Equal(`true`, string(out))
}

func (s *JSONTestSuite) TestNull() {
	var p *Inner
	out, err := MarshalJSON(&p)
	s.Require().NoError(err)
	s.Equal(`null`, string(out))

	p = &Inner{A: 1}
	s.Require().NoError(UnmarshalJSON([]byte(`null`), &p))
	s.Nil(p)

	// A null member is an absent field.
	var h HolderV2
	s.Require().NoError(UnmarshalJSON([]byte(`{"inner":null,"extra":null,"count":null}`), &h))
	s.Equal(HolderV2{Inner: Inner{Label: "none"}}, h)
}

func (s *JSONTestSuite) TestLenientInput() {
	doc := `
	// counts are informational
	{
		"inner": {"a": 1,}, /* trailing commas are fine */
		"unknown": {"ignored": [1, 2, 3]},
		"count": 2,
	}`
	var h HolderV2
	s.Require().NoError(UnmarshalJSON([]byte(doc), &h))
	s.Equal(HolderV2{Inner: Inner{A: 1, Label: "none"}, Count: 2}, h)
}

func (s *JSONTestSuite) TestInvalidInput() {
	var h HolderV2
	for _, doc := range []string{
		`{"inner":`,
		`{} {}`,
		`{"count":"abc"}`,
		`{"count":1.5}`,
		`{"extra":5}`,
		`{"inner":[]}`,
		`{"extra":[1]}`,
		`[]`,
	} {
		err := UnmarshalJSON([]byte(doc), &h)
		s.ErrorIs(err, ErrInvalidJSON, doc)
	}
}

func (s *JSONTestSuite) TestIndent() {
	out, err := WriteJSON(&HolderV1{Inner: Inner{A: 1, Label: "none"}}, DefaultOptions().WithJSONIndent("  "))
	s.Require().NoError(err)
	s.Equal("{\n  \"inner\": {\n    \"a\": 1\n  }\n}", string(out))
}

func (s *JSONTestSuite) TestMaxDepth() {
	opts := DefaultOptions().WithMaxDepth(5)
	_, err := WriteJSON(chain(10), opts)
	s.ErrorIs(err, ErrMaxDepth)

	out, err := MarshalJSON(chain(10))
	s.Require().NoError(err)
	_, err = ReadJSON[Node](out, opts)
	s.ErrorIs(err, ErrMaxDepth)

	got, err := ReadJSON[Node](out, nil)
	s.Require().NoError(err)
	s.Equal(*chain(10), got)
}

func (s *JSONTestSuite) TestGlobal() {
	out, err := WriteGlobalJSON(&Weapon{Damage: 3}, nil)
	s.Require().NoError(err)
	s.Equal(`{"-globalType":"7:Item","damage":3}`, string(out))

	sword := &Sword{Weapon: Weapon{Damage: 2}, Sharpness: 0.5}
	out, err = WriteGlobalJSON(sword, nil)
	s.Require().NoError(err)
	s.Equal(`{"-globalType":"7:Item","-subType":"1:Sword","weapon":{"damage":2},"sharpness":0.5}`, string(out))
	v, err := ReadGlobalJSON(out, nil)
	s.Require().NoError(err)
	s.Equal(sword, v)

	out, err = WriteGlobalJSON(&Fireball{Radius: 3}, s.bare)
	s.Require().NoError(err)
	s.Equal(`{"-globalType":9,"radius":3}`, string(out))
	v, err = ReadGlobalJSON(out, nil)
	s.Require().NoError(err)
	s.Equal(&Fireball{Radius: 3}, v)

	_, err = WriteGlobalJSON(&Inner{}, nil)
	s.ErrorIs(err, ErrUnknownGlobalType)
	_, err = ReadGlobalJSON([]byte(`{"radius":3}`), nil)
	s.ErrorIs(err, ErrInvalidJSON)
	_, err = ReadGlobalJSON([]byte(`[1]`), nil)
	s.ErrorIs(err, ErrInvalidJSON)
	_, err = ReadGlobalJSON([]byte(`{"-globalType":"99:Nope"}`), nil)
	s.ErrorIs(err, ErrUnknownGlobalType)
}

func TestAppendJSONString(t *testing.T) {
	got := appendJSONString(nil, "a\x01b\xffcé\\")
	assert.Equal(t, `"a\u0001b`+"\ufffd"+`cé\\"`, string(got))
}

func TestJSONWriterRejectsReads(t *testing.T) {
	w := NewJSONWriter(nil)
	var v Inner
	syncInner(w, &v)
	require.NoError(t, w.Err())
	w.readAbsentGroup()
	assert.ErrorIs(t, w.Err(), ErrInvariantViolation)
}
