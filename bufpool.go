package neuro

import (
	"bytes"
	"sync"
)

// maxPooledBuffer caps the capacity kept by pooled writers and buffers, so
// one huge message does not pin its memory forever.
const maxPooledBuffer = 1 << 20

// bytesBufPool reuses buffers for reading whole streams into memory.
var bytesBufPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

func getBuffer() *bytes.Buffer {
	buf := bytesBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() <= maxPooledBuffer {
		bytesBufPool.Put(buf)
	}
}

// writerPool and readerPool back the convenience entry points that do not
// take an explicit Writer or Reader. Pooled instances use DefaultOptions.
var writerPool = sync.Pool{
	New: func() any { return NewWriter(nil) },
}

var readerPool = sync.Pool{
	New: func() any { return NewReader(nil) },
}

func getWriter() *Writer { return writerPool.Get().(*Writer) }

func putWriter(w *Writer) {
	if cap(w.buf.B) <= maxPooledBuffer {
		w.reset()
		writerPool.Put(w)
	}
}

func getReader() *Reader { return readerPool.Get().(*Reader) }

func putReader(r *Reader) {
	r.reset(BytesChunk{})
	readerPool.Put(r)
}
