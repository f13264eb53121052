package neuro

import "io"

// Discard reads and drops n bytes from r.
func Discard(r io.Reader, n int64) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	if n < 0 {
		return 0, ErrDiscardNegative
	}
	skipped, err := io.CopyN(io.Discard, r, n)
	if err == io.EOF {
		err = ErrUnexpectedEndOfData
	}
	return skipped, err
}
