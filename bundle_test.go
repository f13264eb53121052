package neuro

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type BundleTestSuite struct {
	suite.Suite
	w *Writer
	r *Reader
}

func TestBundleSuite(t *testing.T) {
	suite.Run(t, new(BundleTestSuite))
}

func (s *BundleTestSuite) SetupTest() {
	s.w = NewWriter(nil)
	s.r = NewReader(nil)
}

func bundleItems() []BundleItem {
	return []BundleItem{
		{RefID: 1, Name: "sword", Value: &Sword{Weapon: Weapon{Damage: 5, Label: "iron"}, Sharpness: 0.5}},
		{RefID: 2, Name: "club", Value: &Weapon{Damage: 3}},
		{RefID: 10, Name: "fire", Value: &Fireball{Radius: 4}},
		{RefID: 3, Name: "dagger", Value: &Weapon{Damage: 1, Label: "bone"}},
	}
}

func (s *BundleTestSuite) TestExactBytes() {
	c, err := WriteBundle(s.w, []BundleItem{{RefID: 2, Name: "club", Value: &Weapon{Damage: 3}}})
	s.Require().NoError(err)
	// run(id 7, one item), name, body length, header(2, Child), damage, end of group
	s.Equal([]byte{0x07, 0x01, 0x04, 'c', 'l', 'u', 'b', 0x04, 0x25, 0x10, 0x06, 0x00}, c.Bytes())
}

func (s *BundleTestSuite) TestScan() {
	c, err := WriteBundle(s.w, bundleItems())
	s.Require().NoError(err)

	entries, err := ScanBundle(c.Bytes())
	s.Require().NoError(err)
	s.Require().Len(entries, 4)
	want := []struct {
		name   string
		global uint32
		ref    uint32
	}{{"sword", 7, 1}, {"club", 7, 2}, {"fire", 9, 10}, {"dagger", 7, 3}}
	for i, e := range entries {
		s.Equal(want[i].name, e.Name)
		s.Equal(want[i].global, e.GlobalID)
		s.Equal(want[i].ref, e.RefID)
	}

	// Single items decode on their own, in any order.
	v, err := entries[2].Decode(s.r)
	s.Require().NoError(err)
	s.Equal(&Fireball{Radius: 4}, v)
	v, err = entries[0].Decode(s.r)
	s.Require().NoError(err)
	s.Equal(bundleItems()[0].Value, v)
}

func (s *BundleTestSuite) TestRoundTrip() {
	c, err := WriteBundle(s.w, bundleItems())
	s.Require().NoError(err)
	items, err := ReadBundle(s.r, c.Copy())
	s.Require().NoError(err)
	s.Equal(bundleItems(), items)
}

func (s *BundleTestSuite) TestEmpty() {
	c, err := WriteBundle(s.w, nil)
	s.Require().NoError(err)
	s.Zero(c.Length)
	items, err := ReadBundle(s.r, c.Bytes())
	s.Require().NoError(err)
	s.Empty(items)
}

func (s *BundleTestSuite) TestLoadAndResolve() {
	c, err := WriteBundle(s.w, bundleItems())
	s.Require().NoError(err)

	table := NewRefTable()
	n, err := LoadBundle(s.r, c.Bytes(), table)
	s.Require().NoError(err)
	s.Equal(4, n)
	s.Equal(4, table.Len())

	item, ok := Resolve(table, RefTo[Item](2))
	s.Require().True(ok)
	s.Equal(&Weapon{Damage: 3}, item)

	spell, ok := Resolve(table, RefTo[Spell](10))
	s.Require().True(ok)
	s.Equal(&Fireball{Radius: 4}, spell)

	// RefIDs are scoped by family.
	_, ok = Resolve(table, RefTo[Spell](2))
	s.False(ok)
	_, ok = Resolve(table, Reference[Item]{})
	s.False(ok)
}

func (s *BundleTestSuite) TestResolveFromDecodedReference() {
	c, err := WriteBundle(s.w, bundleItems())
	s.Require().NoError(err)
	table := NewRefTable()
	_, err = LoadBundle(s.r, c.Bytes(), table)
	s.Require().NoError(err)

	in := fixture()
	in.Reference = RefTo[Item](1)
	data, err := Marshal(in)
	s.Require().NoError(err)
	var out TestObject
	s.Require().NoError(Unmarshal(data, &out))

	item, ok := Resolve(table, out.Reference)
	s.Require().True(ok)
	s.IsType(&Sword{}, item)
}

func (s *BundleTestSuite) TestRejectsBadItems() {
	_, err := WriteBundle(s.w, []BundleItem{{RefID: 0, Name: "zero", Value: &Weapon{}}})
	s.ErrorIs(err, ErrInvariantViolation)

	_, err = WriteBundle(s.w, []BundleItem{{RefID: 1, Name: "inner", Value: &Inner{}}})
	s.ErrorIs(err, ErrUnknownGlobalType)

	_, err = WriteBundle(s.w, []BundleItem{{RefID: 1, Name: "nil"}})
	s.ErrorIs(err, ErrNilElement)
}

func (s *BundleTestSuite) TestCorruptInput() {
	// One run, so no prefix ends on a run boundary.
	c, err := WriteBundle(s.w, bundleItems()[:2])
	s.Require().NoError(err)
	data := c.Copy()
	for i := 1; i < len(data); i++ {
		_, err := ReadBundle(s.r, data[:i])
		s.Error(err, "prefix of %d bytes", i)
	}

	// Unknown global id is reported on decode, not on scan.
	bad := []byte{0x63, 0x01, 0x01, 'x', 0x02, 0x15, 0x00}
	entries, err := ScanBundle(bad)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	_, err = entries[0].Decode(s.r)
	s.ErrorIs(err, ErrUnknownGlobalType)

	// A body must open with a non-repeated group header.
	bad = []byte{0x07, 0x01, 0x01, 'x', 0x02, 0x10, 0x00}
	_, err = ScanBundle(bad)
	s.ErrorIs(err, ErrInvalidHeader)
}

func (s *BundleTestSuite) TestReader() {
	c, err := WriteBundle(s.w, bundleItems())
	s.Require().NoError(err)
	br, err := NewBundleReader(bytes.NewReader(c.Copy()), nil)
	s.Require().NoError(err)

	name, id, err := br.Next()
	s.Require().NoError(err)
	s.Equal("sword", name)
	s.Equal(uint32(7), id)

	// club is skipped implicitly by the following Next.
	_, _, err = br.Next()
	s.Require().NoError(err)

	name, id, err = br.Next()
	s.Require().NoError(err)
	s.Equal("fire", name)
	s.Equal(uint32(9), id)
	item, err := br.Decode()
	s.Require().NoError(err)
	s.Equal(BundleItem{RefID: 10, Name: "fire", Value: &Fireball{Radius: 4}}, item)

	_, err = br.Entry()
	s.ErrorIs(err, ErrInvariantViolation)

	name, _, err = br.Next()
	s.Require().NoError(err)
	s.Equal("dagger", name)
	s.Require().NoError(br.Skip())

	_, _, err = br.Next()
	s.ErrorIs(err, io.EOF)
}

func (s *BundleTestSuite) TestReaderOverPlainStream() {
	c, err := WriteBundle(s.w, bundleItems())
	s.Require().NoError(err)
	// A reader without Seek still skips bodies.
	br, err := NewBundleReader(io.MultiReader(bytes.NewReader(c.Copy())), nil)
	s.Require().NoError(err)
	var names []string
	for {
		name, _, err := br.Next()
		if err == io.EOF {
			break
		}
		s.Require().NoError(err)
		names = append(names, name)
	}
	s.Equal([]string{"sword", "club", "fire", "dagger"}, names)
}

func (s *BundleTestSuite) TestReaderTruncated() {
	c, err := WriteBundle(s.w, bundleItems()[:1])
	s.Require().NoError(err)
	data := c.Copy()
	br, err := NewBundleReader(bytes.NewReader(data[:len(data)-2]), nil)
	s.Require().NoError(err)
	_, _, err = br.Next()
	s.Require().NoError(err)
	_, err = br.Decode()
	s.ErrorIs(err, ErrUnexpectedEndOfData)
}

func (s *BundleTestSuite) TestSkipTruncatedBody() {
	c, err := WriteBundle(s.w, bundleItems()[:1])
	s.Require().NoError(err)
	data := c.Copy()
	data = data[:len(data)-2]

	path := filepath.Join(s.T().TempDir(), "bundle.bin")
	s.Require().NoError(os.WriteFile(path, data, 0o600))
	f, err := os.Open(path)
	s.Require().NoError(err)
	defer f.Close()

	sources := map[string]io.Reader{
		"bytes.Reader": bytes.NewReader(data),
		"BytesReader":  NewBytesReader(data),
		"plain":        io.MultiReader(bytes.NewReader(data)),
		"file":         f,
	}
	for name, src := range sources {
		br, err := NewBundleReader(src, nil)
		s.Require().NoError(err, name)
		_, _, err = br.Next()
		s.Require().NoError(err, name)
		_, _, err = br.Next()
		s.ErrorIs(err, ErrUnexpectedEndOfData, name)
	}
}

func TestGlobal(t *testing.T) {
	w, r := NewWriter(nil), NewReader(nil)

	c, err := WriteGlobal(w, &Weapon{Damage: 3})
	require.NoError(t, err)
	// header(1, VarInt), id 7, header(2, Child), damage, end of group
	assert.Equal(t, []byte{0x10, 0x07, 0x15, 0x10, 0x06, 0x00}, c.Bytes())

	v, err := ReadGlobal(r, c)
	require.NoError(t, err)
	assert.Equal(t, &Weapon{Damage: 3}, v)

	sword := &Sword{Weapon: Weapon{Damage: 9}, Sharpness: 2}
	c, err = WriteGlobal(w, sword)
	require.NoError(t, err)
	v, err = ReadGlobal(r, c)
	require.NoError(t, err)
	assert.Equal(t, sword, v)

	_, err = WriteGlobal(w, &Inner{})
	assert.ErrorIs(t, err, ErrUnknownGlobalType)
	_, err = WriteGlobal(w, &Unregistered{})
	assert.ErrorIs(t, err, ErrUnregisteredType)
	_, err = WriteGlobal(w, Weapon{})
	assert.ErrorIs(t, err, ErrInvalidType)
	_, err = WriteGlobal(w, nil)
	assert.ErrorIs(t, err, ErrNilElement)

	_, err = ReadGlobal(r, ChunkOf([]byte{0x10, 0x63, 0x15, 0x00}))
	assert.ErrorIs(t, err, ErrUnknownGlobalType)
	_, err = ReadGlobal(r, ChunkOf(nil))
	assert.ErrorIs(t, err, ErrUnexpectedEndOfData)
	_, err = ReadGlobal(r, ChunkOf([]byte{0x10, 0x07}))
	assert.ErrorIs(t, err, ErrUnexpectedEndOfData)
}

func TestGlobalList(t *testing.T) {
	w, r := NewWriter(nil), NewReader(nil)
	items := []any{
		&Weapon{Damage: 1},
		&Sword{Weapon: Weapon{Label: "long"}, Sharpness: 1.25},
		&Fireball{Radius: 8},
		&Fireball{Radius: 9},
		&Weapon{Damage: 2},
	}
	c, err := WriteGlobalList(w, items)
	require.NoError(t, err)

	out, err := ReadGlobalList(r, c)
	require.NoError(t, err)
	assert.Equal(t, items, out)

	c, err = WriteGlobalList(w, nil)
	require.NoError(t, err)
	out, err = ReadGlobalList(r, c)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = WriteGlobalList(w, []any{&Weapon{}, &Inner{}})
	assert.ErrorIs(t, err, ErrUnknownGlobalType)
}
