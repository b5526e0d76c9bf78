package cvc

import (
	"encoding/binary"
	"fmt"
	"math"
)

// fit returns b as exactly size bytes: shorter input is left-padded with
// zeros, longer input may only lose leading zero bytes.
func fit(size int, b []byte) ([]byte, error) {
	switch {
	case len(b) == size:
		return clone(b), nil
	case len(b) < size:
		out := make([]byte, size)
		copy(out[size-len(b):], b)
		return out, nil
	default:
		excess := len(b) - size
		for _, octet := range b[:excess] {
			if octet != 0x00 {
				return nil, fmt.Errorf("%w: %d bytes do not fit %d, leading bytes are non-zero", ErrFieldSize, len(b), size)
			}
		}
		return clone(b[excess:]), nil
	}
}

// reader walks a fixed layout payload.
type reader struct {
	data []byte
	off  int
}

func (r *reader) remaining() int { return len(r.data) - r.off }

func (r *reader) next(n int, field string) ([]byte, error) {
	if r.remaining() < n {
		return nil, fmt.Errorf("%w: %s needs %d bytes, %d remaining", ErrFieldSize, field, n, r.remaining())
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) nextCopy(n int, field string) ([]byte, error) {
	b, err := r.next(n, field)
	if err != nil {
		return nil, err
	}
	return clone(b), nil
}

// decodeExponent reads a big-endian exponent field. Values that do not fit in
// an int on this platform cannot be 65537 and are rejected outright.
func decodeExponent(b []byte) (int, error) {
	v := uint64(binary.BigEndian.Uint32(b))
	if v > math.MaxInt {
		return 0, fmt.Errorf("%w: got %d", ErrExponentPolicy, v)
	}
	return int(v), nil
}
