package tlv

import (
	"encoding/hex"
	"fmt"
)

// TLV is a tag, a definite length and a value. The length always equals the
// size of the value.
type TLV struct {
	tag    Tag
	length Length
	value  Value
}

// New builds a TLV whose length is computed from the value.
func New(tag Tag, value Value) (TLV, error) {
	if value == nil {
		value = Leaf{}
	}
	length, err := NewLength(value.Size())
	if err != nil {
		return TLV{}, err
	}
	return TLV{tag: tag, length: length, value: value}, nil
}

// NewWithLength builds a TLV from an explicit length, which must match the
// size of the value.
func NewWithLength(tag Tag, length Length, value Value) (TLV, error) {
	if value == nil {
		value = Leaf{}
	}
	if length.Value() != value.Size() {
		return TLV{}, fmt.Errorf("%w: length %d, value size %d", ErrConsistency, length.Value(), value.Size())
	}
	return TLV{tag: tag, length: length, value: value}, nil
}

// Tag returns the tag.
func (t TLV) Tag() Tag { return t.tag }

// Length returns the length.
func (t TLV) Length() Length { return t.length }

// Value returns the value. The zero TLV has an empty Leaf value.
func (t TLV) Value() Value {
	if t.value == nil {
		return Leaf{}
	}
	return t.value
}

// Size returns the number of octets Encode writes.
func (t TLV) Size() int {
	return t.tag.Size() + t.length.Size() + t.Value().Size()
}

// Encode appends tag, length and content octets, in that order, to dst.
func (t TLV) Encode(dst []byte) []byte {
	dst = t.tag.Encode(dst)
	dst = t.length.Encode(dst)
	return t.Value().appendTo(dst)
}

// Children parses the content octets as a list of TLVs. For a Constructed
// value built in memory the existing children are returned.
func (t TLV) Children() ([]TLV, error) {
	if c, ok := t.value.(Constructed); ok {
		return c.Children(), nil
	}
	children, err := ParseList(t.Value().content())
	if err != nil {
		return nil, shift(err, t.tag.Size()+t.length.Size())
	}
	return children, nil
}

func (t TLV) String() string {
	switch v := t.Value().(type) {
	case Constructed:
		return fmt.Sprintf("TLV(%s, %s, %s)", t.tag, t.length, v)
	default:
		return fmt.Sprintf("TLV(%s, %s, %s)", t.tag, t.length, hex.EncodeToString(v.content()))
	}
}

// Marshal returns the encoding of t in a freshly allocated slice.
func Marshal(t TLV) []byte {
	return t.Encode(make([]byte, 0, t.Size()))
}

// Parse reads one TLV from the start of data and returns it together with the
// number of octets consumed. The content is returned as a Leaf sharing data's
// backing array; nested content is not parsed.
func Parse(data []byte) (TLV, int, error) {
	tag, tagSize, err := ParseTag(data)
	if err != nil {
		return TLV{}, 0, err
	}

	length, lengthSize, err := ParseLength(data[tagSize:])
	if err != nil {
		return TLV{}, 0, shift(err, tagSize)
	}

	start := tagSize + lengthSize
	if length.Value() > len(data)-start {
		return TLV{}, 0, newDecodeError(0,
			fmt.Sprintf("value needs %d octets, %d available", length.Value(), len(data)-start), ErrTruncated)
	}
	end := start + length.Value()

	return TLV{tag: tag, length: length, value: leafView(data[start:end])}, end, nil
}

// ParseList reads consecutive top-level TLVs until data is exhausted. It is
// used to decode the content of a constructed value.
func ParseList(data []byte) ([]TLV, error) {
	var list []TLV
	for offset := 0; offset < len(data); {
		t, n, err := Parse(data[offset:])
		if err != nil {
			return nil, shift(err, offset)
		}
		list = append(list, t)
		offset += n
	}
	return list, nil
}

// ParseValue parses the content octets of v as a list of TLVs.
func ParseValue(v Value) ([]TLV, error) {
	return ParseList(v.content())
}
