package tlv

import "fmt"

const (
	// MaxLength is the largest content length the codec accepts.
	MaxLength = 0x7FFFFFFF

	// maxShortFormLength is the largest length encoded in a single octet.
	maxShortFormLength = 0x7F
	longFormBit        = 0x80
)

// Length is the definite length of a TLV's content octets.
type Length struct {
	value int
}

// NewLength builds a length. Values outside 0..MaxLength cannot be encoded.
func NewLength(n int) (Length, error) {
	if n < 0 || n > MaxLength {
		return Length{}, &LengthEncodingError{
			Kind:   Overflow,
			Detail: fmt.Sprintf("length %d out of range 0-%d", n, MaxLength),
		}
	}
	return Length{value: n}, nil
}

// Value returns the content length.
func (l Length) Value() int { return l.value }

// Size returns the number of octets Encode writes for this length.
func (l Length) Size() int {
	switch {
	case l.value <= maxShortFormLength:
		return 1
	case l.value <= 0xFF:
		return 2
	case l.value <= 0xFFFF:
		return 3
	case l.value <= 0xFFFFFF:
		return 4
	default:
		return 5
	}
}

// Encode appends the encoded length to dst. Short form is used up to 0x7F,
// above that the minimal long form.
func (l Length) Encode(dst []byte) []byte {
	if l.value <= maxShortFormLength {
		return append(dst, byte(l.value))
	}

	n := l.Size() - 1
	dst = append(dst, longFormBit|byte(n))
	for i := n - 1; i >= 0; i-- {
		dst = append(dst, byte(l.value>>(8*i)))
	}
	return dst
}

func (l Length) String() string {
	return fmt.Sprintf("Length(%d)", l.value)
}

// ParseLength reads a definite length from the start of data and returns it
// together with the number of octets consumed.
func ParseLength(data []byte) (Length, int, error) {
	if len(data) == 0 {
		return Length{}, 0, newDecodeError(0, "cannot read length", ErrTruncated)
	}

	first := data[0]
	if first == longFormBit {
		return Length{}, 0, newDecodeError(0, "cannot read length",
			&LengthEncodingError{Kind: Indefinite, Detail: "indefinite length not supported"})
	}
	if first < longFormBit {
		return Length{value: int(first)}, 1, nil
	}

	n := int(first &^ longFormBit)
	if n > 4 {
		return Length{}, 0, newDecodeError(0, "cannot read length",
			&LengthEncodingError{Kind: Unsupported, Detail: fmt.Sprintf("%d length octets exceed maximum of 4", n)})
	}
	if len(data) < 1+n {
		return Length{}, 0, newDecodeError(0, "truncated length encoding", ErrTruncated)
	}
	if n == 4 && data[1]&0x80 != 0 {
		return Length{}, 0, newDecodeError(0, "cannot read length",
			&LengthEncodingError{Kind: Overflow, Detail: fmt.Sprintf("length out of range 0-%d", MaxLength)})
	}

	value := 0
	for _, b := range data[1 : 1+n] {
		value = value<<8 | int(b)
	}
	return Length{value: value}, 1 + n, nil
}
