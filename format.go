package neuro

import "fmt"

// SizeType is the wire shape of a field payload.
type SizeType uint8

const (
	VarInt        SizeType = iota // one varint
	Fixed32                       // 4 bytes
	Fixed64                       // 8 bytes
	Length                        // varuint length + bytes
	Dictionary                    // packed shapes + count + pairs
	Child                         // nested group of the declared type
	ChildWithType                 // subtype tag + nested group
	maxSizeType
)

const (
	sizeTypeBits = 3
	sizeTypeMask = 1<<sizeTypeBits - 1
	repeatedBit  = 1 << sizeTypeBits

	// headerShift is the combined width of the size-type and repeated bits.
	headerShift = sizeTypeBits + 1

	// endOfGroup is the raw header value that terminates a group.
	endOfGroup = 0
)

var sizeTypeNames = [...]string{"VarInt", "Fixed32", "Fixed64", "Length", "Dictionary", "Child", "ChildWithType"}

func (t SizeType) String() string {
	if t < maxSizeType {
		return sizeTypeNames[t]
	}
	return fmt.Sprintf("SizeType(%d)", uint8(t))
}

// IsGroup reports whether t frames a nested group.
func (t SizeType) IsGroup() bool { return t == Child || t == ChildWithType }

// IsScalar reports whether t can be a dictionary key.
func (t SizeType) IsScalar() bool { return t <= Length }

// compatible reports whether a payload written as wire can be read as want.
// Child and ChildWithType are interchangeable: the reader learns from the
// wire whether a subtype tag follows.
func (t SizeType) compatible(wire SizeType) bool {
	if t.IsGroup() {
		return wire.IsGroup()
	}
	return t == wire
}

// Header is one decoded field header.
type Header struct {
	KeyDelta uint64
	Shape    SizeType
	Repeated bool
}

// EncodeHeader packs a header: keyDelta<<4 | repeated<<3 | shape.
func EncodeHeader(keyDelta uint64, shape SizeType, repeated bool) uint64 {
	h := keyDelta<<headerShift | uint64(shape)
	if repeated {
		h |= repeatedBit
	}
	return h
}

// DecodeHeader unpacks a raw header value and validates its shape bits.
func DecodeHeader(raw uint64) (Header, error) {
	h := Header{
		KeyDelta: raw >> headerShift,
		Shape:    SizeType(raw & sizeTypeMask),
		Repeated: raw&repeatedBit != 0,
	}
	if h.Shape >= maxSizeType {
		return h, fmt.Errorf("%w: size-type %d", ErrInvalidHeader, h.Shape)
	}
	if h.Repeated && h.Shape == Dictionary {
		return h, fmt.Errorf("%w: repeated dictionary", ErrInvalidHeader)
	}
	if raw != endOfGroup && h.KeyDelta == 0 {
		return h, fmt.Errorf("%w: zero key delta", ErrInvalidHeader)
	}
	return h, nil
}

// packDictShapes packs the key and value shapes of a dictionary into one varuint.
func packDictShapes(key, value SizeType) uint64 {
	return uint64(key) | uint64(value)<<sizeTypeBits
}

func unpackDictShapes(v uint64) (key, value SizeType, err error) {
	key = SizeType(v & sizeTypeMask)
	value = SizeType(v >> sizeTypeBits)
	if !key.IsScalar() || value >= maxSizeType || value == Dictionary {
		return key, value, fmt.Errorf("%w: packed shapes %#x", ErrDictionaryShape, v)
	}
	return key, value, nil
}
