package neuro

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"
)

func TestVarUintKnownEncodings(t *testing.T) {
	cases := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x80, 0x80, 0x01}},
		{math.MaxUint64, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
	}
	for _, c := range cases {
		got := AppendVarUint(nil, c.v)
		assert.Equal(t, c.want, got, "encode %d", c.v)
		assert.Equal(t, len(c.want), VarUintSize(c.v))

		buf := make([]byte, MaxVarintLen64)
		assert.Equal(t, len(c.want), PutVarUint(buf, c.v))

		v, n, err := ReadVarUint(c.want, 0)
		require.NoError(t, err)
		assert.Equal(t, c.v, v)
		assert.Equal(t, len(c.want), n)
	}
}

func TestVarUintRandom(t *testing.T) {
	var buf []byte
	values := make([]uint64, 1000)
	for i := range values {
		// Spread values over every encoded length.
		values[i] = frand.Uint64n(math.MaxUint64) >> frand.Intn(64)
		buf = AppendVarUint(buf, values[i])
	}
	pos := 0
	for _, want := range values {
		v, n, err := ReadVarUint(buf, pos)
		require.NoError(t, err)
		require.Equal(t, want, v)
		pos += n
	}
	assert.Equal(t, len(buf), pos)
}

func TestVarUintErrors(t *testing.T) {
	_, _, err := ReadVarUint(nil, 0)
	assert.ErrorIs(t, err, ErrUnexpectedEndOfData)

	_, _, err = ReadVarUint([]byte{0x80, 0x80}, 0)
	assert.ErrorIs(t, err, ErrUnexpectedEndOfData)

	eleven := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}
	_, _, err = ReadVarUint(eleven, 0)
	assert.ErrorIs(t, err, ErrVarintOverflow)

	tooBig := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02}
	_, _, err = ReadVarUint(tooBig, 0)
	assert.ErrorIs(t, err, ErrVarintOverflow)
}

func TestZigZag(t *testing.T) {
	cases := map[int64]uint64{
		0:             0,
		-1:            1,
		1:             2,
		-2:            3,
		2:             4,
		math.MaxInt32: 4294967294,
		math.MinInt32: 4294967295,
		math.MaxInt64: math.MaxUint64 - 1,
		math.MinInt64: math.MaxUint64,
	}
	for v, want := range cases {
		assert.Equal(t, want, ZigZag(v), "zigzag %d", v)
		assert.Equal(t, v, Unzag(want), "unzag %d", want)
	}
	for range 1000 {
		v := int64(frand.Uint64n(math.MaxUint64))
		require.Equal(t, v, Unzag(ZigZag(v)))
	}
}

func TestInsertVarUint(t *testing.T) {
	buf := []byte("headbody")
	buf = InsertVarUint(buf, 300, 4)
	assert.Equal(t, append([]byte("head"), append([]byte{0xac, 0x02}, "body"...)...), buf)

	buf = InsertVarUint([]byte{}, 5, 0)
	assert.Equal(t, []byte{5}, buf)
}

func TestFloatsAreBitExact(t *testing.T) {
	for _, f := range []float64{0, math.Copysign(0, -1), 1.5, math.Inf(1), math.Inf(-1), math.SmallestNonzeroFloat64, math.MaxFloat64} {
		buf := AppendFloat64(nil, f)
		got, err := ReadFloat64(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, math.Float64bits(f), math.Float64bits(got))
	}
	nan := math.Float32frombits(0x7fc00001)
	buf := AppendFloat32(nil, nan)
	assert.Equal(t, []byte{0x7f, 0xc0, 0x00, 0x01}, buf)
	got, err := ReadFloat32(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x7fc00001), math.Float32bits(got))

	_, err = ReadFloat32(buf[:3], 0)
	assert.ErrorIs(t, err, ErrUnexpectedEndOfData)
	_, err = ReadFloat64(buf, 0)
	assert.ErrorIs(t, err, ErrUnexpectedEndOfData)
}

func TestLengthPrefixed(t *testing.T) {
	buf := AppendString(nil, "neuro")
	buf = AppendBytes(buf, []byte{1, 2})
	s, n, err := ReadBytes(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "neuro", string(s))
	b, m, err := ReadBytes(buf, n)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, b)
	assert.Equal(t, len(buf), n+m)

	_, _, err = ReadBytes(buf[:4], 0)
	assert.ErrorIs(t, err, ErrUnexpectedEndOfData)
}
