package neuro

import (
	"fmt"
	"math"
)

// A bundle is a flat list of named, referenceable global values, the form
// baked data is shipped in. Items are stored in runs of one global type:
//
//	run:  globalID varuint, count varuint, count × item
//	item: name (length-prefixed), body length varuint, body
//	body: header(keyDelta = RefID, Child|ChildWithType) [tag] fields 0
//
// Bodies are self-contained, so a reader can index a bundle without
// decoding it and decode single items later.

// BundleItem is one value of a bundle.
type BundleItem struct {
	RefID uint32
	Name  string
	Value any // pointer to a member of a global family
}

// BundleEntry is an undecoded bundle item. Body aliases the scanned buffer.
type BundleEntry struct {
	GlobalID uint32
	RefID    uint32
	Name     string
	Body     BytesChunk
}

// WriteBundle encodes items as a bundle into w's buffer. RefIDs must be
// non-zero; consecutive items of one global family share a run.
func WriteBundle(w *Writer, items []BundleItem) (BytesChunk, error) {
	if err := TryAutoRegister(); err != nil {
		return BytesChunk{}, err
	}
	w.reset()
	values := make([]any, len(items))
	for i, it := range items {
		if it.RefID == 0 {
			return BytesChunk{}, fmt.Errorf("%w: bundle item %d (%q) has RefID 0", ErrInvariantViolation, i, it.Name)
		}
		values[i] = it.Value
	}
	runs, err := splitRuns(values)
	if err != nil {
		return BytesChunk{}, err
	}
	i := 0
	for _, run := range runs {
		w.buf.appendVarUint(uint64(run[0].f.globalID))
		w.buf.appendVarUint(uint64(len(run)))
		for _, m := range run {
			it := items[i]
			i++
			w.buf.appendLengthString(it.Name)
			mark := w.buf.Len()
			shape := Child
			if m.tag != 0 {
				shape = ChildWithType
			}
			w.buf.appendVarUint(EncodeHeader(uint64(it.RefID), shape, false))
			m.write(w, m.tag != 0)
			if w.err != nil {
				return BytesChunk{}, fmt.Errorf("bundle item %q: %w", it.Name, w.err)
			}
			w.buf.B = InsertVarUint(w.buf.B, uint64(w.buf.Len()-mark), mark)
		}
	}
	return w.Chunk(), nil
}

// parseBodyHeader reads the RefID and shape that open a bundle body.
func parseBodyHeader(body []byte) (uint32, Header, int, error) {
	raw, n, err := ReadVarUint(body, 0)
	if err != nil {
		return 0, Header{}, 0, err
	}
	h, err := DecodeHeader(raw)
	if err != nil {
		return 0, h, 0, err
	}
	if !h.Shape.IsGroup() || h.Repeated || h.KeyDelta > math.MaxUint32 {
		return 0, h, 0, fmt.Errorf("%w: bundle body header %#x", ErrInvalidHeader, raw)
	}
	return uint32(h.KeyDelta), h, n, nil
}

// ScanBundle indexes a bundle without decoding any body.
func ScanBundle(data []byte) ([]BundleEntry, error) {
	var entries []BundleEntry
	in := BytesReader{B: data}
	for !in.EOF() {
		id, err := in.varUint32()
		if err != nil {
			return nil, err
		}
		count, err := in.varUint()
		if err != nil {
			return nil, err
		}
		if count > uint64(in.Available()/2) {
			return nil, fmt.Errorf("%w: bundle run of %d items", ErrUnexpectedEndOfData, count)
		}
		for range count {
			name, err := in.length()
			if err != nil {
				return nil, err
			}
			body, err := in.length()
			if err != nil {
				return nil, err
			}
			ref, _, _, err := parseBodyHeader(body)
			if err != nil {
				return nil, fmt.Errorf("bundle item %q: %w", name, err)
			}
			entries = append(entries, BundleEntry{
				GlobalID: id,
				RefID:    ref,
				Name:     string(name),
				Body:     BytesChunk{Array: data, Offset: in.N - len(body), Length: len(body)},
			})
		}
	}
	return entries, nil
}

// Decode decodes the entry's body with r. The result is a pointer to the
// concrete registered type.
func (e BundleEntry) Decode(r *Reader) (any, error) {
	if err := TryAutoRegister(); err != nil {
		return nil, err
	}
	f, err := lookupGlobal(e.GlobalID)
	if err != nil {
		return nil, err
	}
	_, h, n, err := parseBodyHeader(e.Body.Bytes())
	if err != nil {
		return nil, err
	}
	r.reset(e.Body)
	r.in.N = n
	r.cur.valShape = h.Shape
	v := readMember(r, f)
	if r.err != nil {
		return nil, fmt.Errorf("bundle item %q: %w", e.Name, r.err)
	}
	return v, nil
}

// ReadBundle decodes every item of a bundle.
func ReadBundle(r *Reader, data []byte) ([]BundleItem, error) {
	entries, err := ScanBundle(data)
	if err != nil {
		return nil, err
	}
	items := make([]BundleItem, 0, len(entries))
	for _, e := range entries {
		v, err := e.Decode(r)
		if err != nil {
			return nil, err
		}
		items = append(items, BundleItem{RefID: e.RefID, Name: e.Name, Value: v})
	}
	return items, nil
}

// LoadBundle decodes every item of a bundle into table, keyed by the item's
// family root and RefID. It returns the number of items loaded.
func LoadBundle(r *Reader, data []byte, table *RefTable) (int, error) {
	entries, err := ScanBundle(data)
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		v, err := e.Decode(r)
		if err != nil {
			return i, err
		}
		f, _ := lookupGlobal(e.GlobalID)
		table.Put(f.root, e.RefID, v)
	}
	return len(entries), nil
}
