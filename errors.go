package neuro

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNilIO indicates that a stream reader/writer was constructed with a nil io.Reader/io.Writer.
	ErrNilIO = errors.New("neuro: stream reader/writer called with a nil io.Reader/io.Writer")

	// ErrSizeTooSmall indicates a size conflict with bufio
	ErrSizeTooSmall = errors.New("neuro: NewStreamReaderSize with a size smaller than 16 conflict with bufio")

	// ErrAlreadyBuffered indicates that a stream reader/writer was constructed over an already-buffered
	// reader/writer, which would lead to unpredictable behavior and performance issues.
	ErrAlreadyBuffered = errors.New("neuro: reader or writer is already buffered")

	// ErrWriteToNil indicates a WriteTo operation was attempted on a nil io.Writer.
	ErrWriteToNil = errors.New("neuro: WriteTo called with a nil io.Writer")

	// ErrInvalidSeek indicates a seek was attempted to invalid position.
	ErrInvalidSeek = errors.New("neuro: seek to a invalid position")

	// ErrUnsupportedNegativeSeek indicates a backward seek was attempted on a forward-only seeker.
	ErrUnsupportedNegativeSeek = errors.New("neuro: unsupported negative offset for forward-only seeker")

	// ErrInvalidWhence indicates that an invalid 'whence' parameter was provided to a Seek operation.
	ErrInvalidWhence = errors.New("neuro: unsupported whence for forward-only seeker")

	// ErrDiscardNegative indicates a Discard operation was attempted with a negative byte count.
	ErrDiscardNegative = errors.New("neuro: cannot discard negative number of bytes")

	// ErrUnexpectedEndOfData indicates that the input ended in the middle of a
	// varint, a fixed-width value, a length-prefixed payload or a nested group.
	ErrUnexpectedEndOfData = errors.New("neuro: unexpected end of data")

	// ErrVarintOverflow indicates a varint longer than 10 bytes or one that does not fit 64 bits.
	ErrVarintOverflow = errors.New("neuro: varint overflows uint64")

	// ErrInvalidHeader indicates a header with an unknown size-type, a repeated
	// dictionary, or a key delta that overflows the key space.
	ErrInvalidHeader = errors.New("neuro: invalid field header")

	// ErrShapeMismatch indicates a field whose wire shape differs from the shape the reader expects.
	ErrShapeMismatch = errors.New("neuro: field shape mismatch")

	// ErrDictionaryShape indicates a dictionary whose key/value shapes differ from the expected ones.
	ErrDictionaryShape = errors.New("neuro: dictionary key/value shape mismatch")

	// ErrUnregisteredType is matched by every UnregisteredTypeError.
	ErrUnregisteredType = errors.New("neuro: unregistered type")

	// ErrInvalidType indicates a registration with a type of the wrong kind,
	// e.g. a family root that is not an interface.
	ErrInvalidType = errors.New("neuro: invalid type for registration")

	// ErrDuplicateType indicates a second registration of the same concrete type.
	ErrDuplicateType = errors.New("neuro: type already registered")

	// ErrDuplicateTag indicates two subtypes registered under one family with the same tag.
	ErrDuplicateTag = errors.New("neuro: duplicate subtype tag")

	// ErrDuplicateGlobalID indicates two global types registered with the same id.
	ErrDuplicateGlobalID = errors.New("neuro: duplicate global type id")

	// ErrTagOutOfRange indicates a tag or global id outside [1, MaxInt32).
	ErrTagOutOfRange = errors.New("neuro: tag out of range")

	// ErrNotInFamily indicates a type that does not belong to (or cannot implement) a polymorphic family.
	ErrNotInFamily = errors.New("neuro: type does not belong to family")

	// ErrUnknownSubType indicates a subtype tag on the wire that is not registered in the declared family.
	ErrUnknownSubType = errors.New("neuro: unknown subtype tag for family")

	// ErrUnknownGlobalType indicates a global type id on the wire that is not registered.
	ErrUnknownGlobalType = errors.New("neuro: unknown global type id")

	// ErrInvariantViolation indicates a programming error that would corrupt the
	// wire format if ignored: out-of-order field keys, or base-class delegation
	// on a type outside the declared family.
	ErrInvariantViolation = errors.New("neuro: invariant violation")

	// ErrNilElement indicates a nil pointer or interface inside a list or dictionary.
	ErrNilElement = errors.New("neuro: nil collection element")

	// ErrMaxDepth indicates nesting deeper than Options.MaxDepth.
	ErrMaxDepth = errors.New("neuro: maximum nesting depth exceeded")

	// ErrInvalidJSON indicates JSON input that does not match the expected structure.
	ErrInvalidJSON = errors.New("neuro: invalid json")

	// ErrUnknownCompression indicates compressed input whose magic bytes are not recognized.
	ErrUnknownCompression = errors.New("neuro: unknown compression format")

	// ErrRecordTooLarge indicates a length-prefixed record in a stream above the reader's limit.
	ErrRecordTooLarge = errors.New("neuro: record exceeds size limit")

	// ErrDecompressLimit indicates decompressed output larger than the configured limit.
	ErrDecompressLimit = errors.New("neuro: decompressed size exceeds limit")
)

// UnregisteredTypeError reports a type that reached the sync engine without a
// registration call. It is fatal for the read or write in flight.
type UnregisteredTypeError struct {
	Type reflect.Type
}

func (e *UnregisteredTypeError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUnregisteredType.Error(), e.Type)
}

func (e *UnregisteredTypeError) Is(target error) bool { return target == ErrUnregisteredType }
