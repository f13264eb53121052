package neuro

import (
	"fmt"
	"io"
	"math"
)

// BundleReader walks a bundle from an io.Reader item by item, so large
// bundles need not be held in memory. Bodies that are not asked for are
// skipped with a forward seek.
type BundleReader struct {
	sr       *StreamReader
	r        *Reader
	left     uint64 // items left in the current run
	globalID uint32
	name     string
	body     int64 // unread body bytes of the current item
	buf      []byte
}

// NewBundleReader creates a BundleReader over src. A nil opts means DefaultOptions.
func NewBundleReader(src io.Reader, opts *Options) (*BundleReader, error) {
	sr, err := NewStreamReader(src)
	if err != nil {
		return nil, err
	}
	return &BundleReader{sr: sr, r: NewReader(opts)}, nil
}

// Next advances to the next item and returns its name and global type id.
// The previous item's body is skipped if it was not read. Next returns
// io.EOF after the last item.
func (b *BundleReader) Next() (name string, globalID uint32, err error) {
	if err := b.Skip(); err != nil {
		return "", 0, err
	}
	for b.left == 0 {
		id := b.sr.ReadVarUint()
		count := b.sr.ReadVarUint()
		if err := b.sr.Err(); err != nil {
			return "", 0, err
		}
		if id == 0 || id > math.MaxUint32 {
			return "", 0, fmt.Errorf("%w: bundle run id %d", ErrUnknownGlobalType, id)
		}
		b.globalID = uint32(id)
		b.left = count
	}
	b.buf = b.sr.ReadLength(b.buf, MaxRecordSize)
	b.name = string(b.buf)
	size := b.sr.ReadVarUint()
	if err := b.sr.Err(); err != nil {
		if err == io.EOF {
			err = ErrUnexpectedEndOfData
		}
		return "", 0, err
	}
	if size > MaxRecordSize {
		return "", 0, fmt.Errorf("%w: bundle item %q of %d bytes", ErrRecordTooLarge, b.name, size)
	}
	b.body = int64(size)
	b.left--
	return b.name, b.globalID, nil
}

// Skip steps over the current item's body.
func (b *BundleReader) Skip() error {
	if b.body > 0 {
		b.sr.Skip(b.body)
		b.body = 0
	}
	if err := b.sr.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Entry reads the current item's body. The body stays valid until the next
// call on b.
func (b *BundleReader) Entry() (BundleEntry, error) {
	if b.body == 0 {
		return BundleEntry{}, fmt.Errorf("%w: no pending bundle item", ErrInvariantViolation)
	}
	if cap(b.buf) < int(b.body) {
		b.buf = make([]byte, b.body)
	}
	body := b.buf[:b.body]
	b.sr.ReadFull(body)
	b.body = 0
	if err := b.sr.Err(); err != nil {
		return BundleEntry{}, err
	}
	ref, _, _, err := parseBodyHeader(body)
	if err != nil {
		return BundleEntry{}, fmt.Errorf("bundle item %q: %w", b.name, err)
	}
	return BundleEntry{GlobalID: b.globalID, RefID: ref, Name: b.name, Body: ChunkOf(body)}, nil
}

// Decode reads and decodes the current item.
func (b *BundleReader) Decode() (BundleItem, error) {
	e, err := b.Entry()
	if err != nil {
		return BundleItem{}, err
	}
	v, err := e.Decode(b.r)
	if err != nil {
		return BundleItem{}, err
	}
	return BundleItem{RefID: e.RefID, Name: e.Name, Value: v}, nil
}
