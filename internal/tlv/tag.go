package tlv

import (
	"fmt"
)

// TagClass is the class of a tag, stored in the two high order bits of the
// first tag octet.
type TagClass uint8

const (
	UniversalClass       TagClass = 0x00 // 00xxxxxx
	ApplicationClass     TagClass = 0x40 // 01xxxxxx
	ContextSpecificClass TagClass = 0x80 // 10xxxxxx
	PrivateClass         TagClass = 0xC0 // 11xxxxxx
)

const (
	classMask       = 0xC0
	constructedMask = 0x20
	tagNumberMask   = 0x1F

	// maxContinuationOctets bounds the base-128 tag number to 28 bits.
	maxContinuationOctets = 4
	maxTagNumber          = 1<<(7*maxContinuationOctets) - 1
)

// TagClassOf extracts the class from the first octet of an encoded tag.
func TagClassOf(octet byte) TagClass {
	return TagClass(octet & classMask)
}

func (c TagClass) String() string {
	switch c {
	case UniversalClass:
		return "UNIVERSAL"
	case ApplicationClass:
		return "APPLICATION"
	case ContextSpecificClass:
		return "CONTEXT_SPECIFIC"
	case PrivateClass:
		return "PRIVATE"
	default:
		return fmt.Sprintf("TagClass(0x%02X)", uint8(c))
	}
}

// Tag identifies a TLV: a class, a constructed flag and a tag number.
//
// Tag numbers below 31 are encoded in the first octet. Larger numbers set the
// low five bits of the first octet to 0x1F and follow it with a big-endian
// base-128 sequence where every octet but the last has its top bit set.
type Tag struct {
	number      uint32
	class       TagClass
	constructed bool
}

// NewTag builds a tag. Numbers that need more than four continuation octets
// are rejected with ErrTagEncoding.
func NewTag(number uint32, class TagClass, constructed bool) (Tag, error) {
	if number > maxTagNumber {
		return Tag{}, fmt.Errorf("%w: tag number %d out of range 0-%d", ErrTagEncoding, number, maxTagNumber)
	}
	if class&^classMask != 0 {
		return Tag{}, fmt.Errorf("%w: invalid tag class 0x%02X", ErrTagEncoding, uint8(class))
	}
	return Tag{number: number, class: class, constructed: constructed}, nil
}

// MustTag is like NewTag but panics on error. It is meant for package level
// tag constants.
func MustTag(number uint32, class TagClass, constructed bool) Tag {
	t, err := NewTag(number, class, constructed)
	if err != nil {
		panic(err)
	}
	return t
}

// Number returns the tag number.
func (t Tag) Number() uint32 { return t.number }

// Class returns the tag class.
func (t Tag) Class() TagClass { return t.class }

// Constructed reports whether the constructed bit is set.
func (t Tag) Constructed() bool { return t.constructed }

// Equal reports whether both tags have the same class, constructed flag and number.
func (t Tag) Equal(o Tag) bool {
	return t == o
}

// Size returns the number of octets Encode writes for this tag.
func (t Tag) Size() int {
	switch {
	case t.number < 0x1F:
		return 1
	case t.number < 0x80:
		return 2
	case t.number < 0x4000:
		return 3
	case t.number < 0x200000:
		return 4
	default:
		return 5
	}
}

// Encode appends the encoded tag to dst and returns the extended slice.
func (t Tag) Encode(dst []byte) []byte {
	first := byte(t.class)
	if t.constructed {
		first |= constructedMask
	}

	if t.number < tagNumberMask {
		return append(dst, first|byte(t.number))
	}

	dst = append(dst, first|tagNumberMask)

	var stack [maxContinuationOctets]byte
	pos := len(stack) - 1
	n := t.number
	stack[pos] = byte(n & 0x7F)
	for n >>= 7; n > 0; n >>= 7 {
		pos--
		stack[pos] = byte(n&0x7F) | 0x80
	}
	return append(dst, stack[pos:]...)
}

func (t Tag) String() string {
	return fmt.Sprintf("Tag(no=%d,class=%s,constructed=%t)", t.number, t.class, t.constructed)
}

// ParseTag reads a tag from the start of data and returns it together with the
// number of octets consumed.
func ParseTag(data []byte) (Tag, int, error) {
	if len(data) == 0 {
		return Tag{}, 0, newDecodeError(0, "cannot read tag", ErrTruncated)
	}

	first := data[0]
	t := Tag{
		class:       TagClassOf(first),
		constructed: first&constructedMask == constructedMask,
		number:      uint32(first & tagNumberMask),
	}
	if t.number != tagNumberMask {
		return t, 1, nil
	}

	var number uint32
	for i := 0; ; i++ {
		if 1+i >= len(data) {
			return Tag{}, 0, newDecodeError(0, "cannot read long form tag number", ErrTruncated)
		}
		b := data[1+i]
		number = number<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			t.number = number
			return t, 2 + i, nil
		}
		if i == maxContinuationOctets-1 {
			return Tag{}, 0, newDecodeError(0, "tag extension too long", ErrTagEncoding)
		}
	}
}
