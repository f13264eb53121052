package neuro

// BytesChunk is an (array, offset, length) view over a byte slice. It never
// copies: a chunk returned by a Writer aliases the writer's buffer and stays
// valid until the writer's next top-level call, which lets callers chain a
// write straight into a read (see Clone).
type BytesChunk struct {
	Array  []byte
	Offset int
	Length int
}

// ChunkOf returns a chunk covering all of b.
func ChunkOf(b []byte) BytesChunk {
	return BytesChunk{Array: b, Length: len(b)}
}

// Bytes returns the viewed bytes. The result aliases Array.
func (c BytesChunk) Bytes() []byte {
	end := c.Offset + c.Length
	return c.Array[c.Offset:end:end]
}

// Copy returns a freshly allocated copy of the viewed bytes.
func (c BytesChunk) Copy() []byte {
	out := make([]byte, c.Length)
	copy(out, c.Bytes())
	return out
}

// Slice returns a sub-view of c starting at off with length n.
func (c BytesChunk) Slice(off, n int) BytesChunk {
	return BytesChunk{Array: c.Array, Offset: c.Offset + off, Length: n}
}

// IsEmpty reports whether the chunk holds no bytes.
func (c BytesChunk) IsEmpty() bool { return c.Length == 0 }
