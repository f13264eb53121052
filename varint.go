package neuro

import (
	"encoding/binary"
	"math"
)

// MaxVarintLen64 is the longest encoding of a uint64: ceil(64/7) bytes.
const MaxVarintLen64 = 10

// Order is the byte order of fixed-width payloads.
var Order = binary.BigEndian

// AppendVarUint appends the 7-bits-per-byte encoding of v to dst.
// The high bit of every byte but the last is the continuation flag and
// groups are stored least significant first:
//
//	0 -> [0x00], 127 -> [0x7f], 128 -> [0x80 0x01], 300 -> [0xac 0x02]
func AppendVarUint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// PutVarUint encodes v into buf and returns the number of bytes written.
// buf must hold at least VarUintSize(v) bytes.
func PutVarUint(buf []byte, v uint64) int {
	i := 0
	for v >= 0x80 {
		buf[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	buf[i] = byte(v)
	return i + 1
}

// VarUintSize returns the number of bytes AppendVarUint writes for v.
func VarUintSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// ReadVarUint decodes a varint starting at buf[pos]. It returns the value and
// the number of bytes consumed.
func ReadVarUint(buf []byte, pos int) (uint64, int, error) {
	if pos >= len(buf) {
		return 0, 0, ErrUnexpectedEndOfData
	}
	// Fast path for single-byte values.
	if b := buf[pos]; b < 0x80 {
		return uint64(b), 1, nil
	}

	var v uint64
	var shift uint
	for i := 0; pos+i < len(buf); i++ {
		if i == MaxVarintLen64 {
			return 0, 0, ErrVarintOverflow
		}
		b := buf[pos+i]
		// The 10th byte only has room for bit 63.
		if i == MaxVarintLen64-1 && b > 1 {
			return 0, 0, ErrVarintOverflow
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrUnexpectedEndOfData
}

// InsertVarUint inserts the encoding of v at buf[at], shifting the trailing
// bytes right. It is used to prefix a payload with its length once the length
// is known.
func InsertVarUint(buf []byte, v uint64, at int) []byte {
	var tmp [MaxVarintLen64]byte
	n := PutVarUint(tmp[:], v)
	buf = append(buf, tmp[:n]...)
	copy(buf[at+n:], buf[at:len(buf)-n])
	copy(buf[at:], tmp[:n])
	return buf
}

// ZigZag maps signed integers onto unsigned ones so that values of small
// magnitude produce short varints: 0->0, -1->1, 1->2, -2->3 ...
func ZigZag(v int64) uint64 { return uint64(v<<1) ^ uint64(v>>63) }

// Unzag reverses ZigZag.
func Unzag(u uint64) int64 { return int64(u>>1) ^ -int64(u&1) }

// AppendFloat32 appends the 4 big-endian bytes of the IEEE 754 bit pattern of v.
func AppendFloat32(dst []byte, v float32) []byte {
	return Order.AppendUint32(dst, math.Float32bits(v))
}

// AppendFloat64 appends the 8 big-endian bytes of the IEEE 754 bit pattern of v.
func AppendFloat64(dst []byte, v float64) []byte {
	return Order.AppendUint64(dst, math.Float64bits(v))
}

// ReadFloat32 decodes 4 bytes at buf[pos] bit-exactly.
func ReadFloat32(buf []byte, pos int) (float32, error) {
	if len(buf)-pos < 4 {
		return 0, ErrUnexpectedEndOfData
	}
	return math.Float32frombits(Order.Uint32(buf[pos:])), nil
}

// ReadFloat64 decodes 8 bytes at buf[pos] bit-exactly.
func ReadFloat64(buf []byte, pos int) (float64, error) {
	if len(buf)-pos < 8 {
		return 0, ErrUnexpectedEndOfData
	}
	return math.Float64frombits(Order.Uint64(buf[pos:])), nil
}

// AppendBytes appends a varuint length followed by b.
func AppendBytes(dst, b []byte) []byte {
	dst = AppendVarUint(dst, uint64(len(b)))
	return append(dst, b...)
}

// AppendString appends a varuint length followed by the UTF-8 bytes of s.
func AppendString(dst []byte, s string) []byte {
	dst = AppendVarUint(dst, uint64(len(s)))
	return append(dst, s...)
}

// ReadBytes decodes a length-prefixed payload at buf[pos]. The returned slice
// aliases buf. n is the total number of bytes consumed including the prefix.
func ReadBytes(buf []byte, pos int) (b []byte, n int, err error) {
	length, n, err := ReadVarUint(buf, pos)
	if err != nil {
		return nil, 0, err
	}
	start := pos + n
	if length > uint64(len(buf)-start) {
		return nil, 0, ErrUnexpectedEndOfData
	}
	end := start + int(length)
	return buf[start:end:end], n + int(length), nil
}
