package neuro

import (
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"
)

// DumpOptions controls Dump.
type DumpOptions struct {
	// Bundle dumps data as a bundle: one section per item.
	Bundle bool
	// MaxBytes truncates Length payload previews; 0 means 32.
	MaxBytes int
	// MaxDepth bounds group nesting; 0 means DefaultMaxDepth.
	MaxDepth int
}

// dumper prints the container format without knowing any schema.
type dumper struct {
	out   *StreamWriter
	in    BytesReader
	opts  DumpOptions
	depth int
}

// Dump writes a human-readable tree of the keys, shapes and payloads in
// data. It needs no registered types, so it can inspect any encoded buffer.
func Dump(w io.Writer, data []byte, opts DumpOptions) error {
	out, err := NewStreamWriter(w)
	if err != nil {
		return err
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 32
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	d := &dumper{out: out, opts: opts}
	if opts.Bundle {
		err = d.bundle(data)
	} else {
		d.in.Reset(data)
		err = d.group(true)
	}
	if ferr := out.Flush(); err == nil {
		err = ferr
	}
	return err
}

func (d *dumper) bundle(data []byte) error {
	entries, err := ScanBundle(data)
	if err != nil {
		return err
	}
	for _, e := range entries {
		d.out.Printf("item %q global=%d ref=%d size=%d\n", e.Name, e.GlobalID, e.RefID, e.Body.Length)
		d.in.Reset(e.Body.Bytes())
		d.depth = 1
		if err := d.group(true); err != nil {
			return fmt.Errorf("bundle item %q: %w", e.Name, err)
		}
	}
	d.depth = 0
	return d.out.Err()
}

func (d *dumper) line(format string, args ...any) {
	d.out.Printf("%s"+format+"\n", append([]any{strings.Repeat("  ", d.depth)}, args...)...)
}

// group prints fields up to the end-of-group marker, or to the end of the
// input for the root.
func (d *dumper) group(root bool) error {
	if d.depth > d.opts.MaxDepth {
		return ErrMaxDepth
	}
	var key uint64
	for {
		if root && d.in.EOF() {
			return d.out.Err()
		}
		raw, err := d.in.varUint()
		if err != nil {
			return err
		}
		if raw == endOfGroup {
			if root {
				return fmt.Errorf("%w: end-of-group marker at top level", ErrInvalidHeader)
			}
			return d.out.Err()
		}
		h, err := DecodeHeader(raw)
		if err != nil {
			return err
		}
		key += h.KeyDelta
		if err := d.field(key, h); err != nil {
			return err
		}
	}
}

func (d *dumper) field(key uint64, h Header) error {
	if !h.Repeated {
		return d.value(fmt.Sprintf("%d", key), h.Shape)
	}
	n, err := d.in.varUint()
	if err != nil {
		return err
	}
	d.line("%d: %s[%d]", key, h.Shape, n)
	d.depth++
	defer func() { d.depth-- }()
	for i := uint64(0); i < n; i++ {
		if err := d.value(fmt.Sprintf("[%d]", i), h.Shape); err != nil {
			return err
		}
	}
	return nil
}

// value prints one payload of the given shape under label.
func (d *dumper) value(label string, shape SizeType) error {
	switch shape {
	case VarInt:
		v, err := d.in.varUint()
		if err != nil {
			return err
		}
		d.line("%s: VarInt %d (zigzag %d)", label, v, Unzag(v))
	case Fixed32:
		v, err := d.in.fixed32()
		if err != nil {
			return err
		}
		d.line("%s: Fixed32 %#08x (%g)", label, v, math.Float32frombits(v))
	case Fixed64:
		v, err := d.in.fixed64()
		if err != nil {
			return err
		}
		d.line("%s: Fixed64 %#016x (%g)", label, v, math.Float64frombits(v))
	case Length:
		b, err := d.in.length()
		if err != nil {
			return err
		}
		d.line("%s: Length %d %s", label, len(b), d.preview(b))
	case Dictionary:
		return d.dict(label)
	case Child, ChildWithType:
		if shape == ChildWithType {
			tag, err := d.in.varUint()
			if err != nil {
				return err
			}
			d.line("%s: ChildWithType tag=%d {", label, tag)
		} else {
			d.line("%s: Child {", label)
		}
		d.depth++
		err := d.group(false)
		d.depth--
		if err != nil {
			return err
		}
		d.line("}")
	default:
		return fmt.Errorf("%w: shape %d", ErrInvalidHeader, shape)
	}
	return nil
}

func (d *dumper) dict(label string) error {
	packed, err := d.in.varUint()
	if err != nil {
		return err
	}
	k, v, err := unpackDictShapes(packed)
	if err != nil {
		return err
	}
	n, err := d.in.varUint()
	if err != nil {
		return err
	}
	d.line("%s: Dictionary<%s,%s>[%d]", label, k, v, n)
	d.depth++
	defer func() { d.depth-- }()
	for i := uint64(0); i < n; i++ {
		if err := d.value(fmt.Sprintf("key[%d]", i), k); err != nil {
			return err
		}
		if err := d.value(fmt.Sprintf("value[%d]", i), v); err != nil {
			return err
		}
	}
	return nil
}

// preview shows b as a quoted string when it is printable UTF-8, otherwise
// as hex. Long payloads are cut at MaxBytes.
func (d *dumper) preview(b []byte) string {
	cut := b
	suffix := ""
	if len(cut) > d.opts.MaxBytes {
		cut, suffix = cut[:d.opts.MaxBytes], "..."
	}
	if utf8.Valid(b) && !strings.ContainsFunc(string(cut), func(r rune) bool { return r < 0x20 && r != '\t' && r != '\n' }) {
		return fmt.Sprintf("%q%s", cut, suffix)
	}
	return fmt.Sprintf("%x%s", cut, suffix)
}
