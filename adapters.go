package neuro

import (
	"bufio"
	"bytes"
	"io"
)

type (
	bytesBufferWriterAdapter struct{ *bytes.Buffer }
	bufioReaderAdapter       struct {
		*bufio.Reader
		seeker io.ReadSeeker // source of Reader, nil when unknown
		pos    int64
	}
)

func (w *bytesBufferWriterAdapter) Flush() error { return nil }

// Read reads data into p, updating the stream position.
func (b *bufioReaderAdapter) Read(p []byte) (n int, err error) {
	n, err = b.Reader.Read(p)
	b.pos += int64(n)
	return n, err
}

// ReadByte reads a single byte, updating the stream position.
func (b *bufioReaderAdapter) ReadByte() (c byte, err error) {
	c, err = b.Reader.ReadByte()
	if err == nil {
		b.pos++
	}
	return c, err
}

// remaining returns the bytes left after pos when the source can seek to
// its end. The source position is restored afterwards.
func (b *bufioReaderAdapter) remaining() (int64, bool) {
	if b.seeker == nil {
		return 0, false
	}
	if _, ok := b.seeker.(*forwardSeeker); ok {
		return 0, false
	}
	cur, err := b.seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, false
	}
	end, err := b.seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, false
	}
	if _, err := b.seeker.Seek(cur, io.SeekStart); err != nil {
		return 0, false
	}
	return end - b.pos, true
}

// Seek handles the internal buffer of bufio.Reader: targets inside the
// buffer are discarded, others are forwarded to the source and the buffer
// is reset. Without a seekable source only forward seeks work.
func (b *bufioReaderAdapter) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = b.pos + offset
	case io.SeekEnd:
		if b.seeker == nil {
			return b.pos, ErrInvalidWhence
		}
		endPos, err := b.seeker.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, err
		}
		target = endPos + offset
	default:
		return 0, ErrInvalidWhence
	}

	if b.pos <= target && target < b.pos+int64(b.Reader.Buffered()) {
		n, err := b.Reader.Discard(int(target - b.pos))
		b.pos += int64(n)
		return b.pos, err
	}

	if b.seeker != nil {
		newPos, err := b.seeker.Seek(target, io.SeekStart)
		if err != nil {
			return b.pos, err
		}
		b.Reader.Reset(b.seeker)
		b.pos = newPos
		return newPos, nil
	}

	if target < b.pos {
		return b.pos, ErrUnsupportedNegativeSeek
	}
	_, err := Discard(b, target-b.pos)
	return b.pos, err
}
