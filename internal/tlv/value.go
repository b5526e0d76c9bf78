package tlv

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
)

// Value is the content of a TLV. It is implemented by Leaf and Constructed
// only.
type Value interface {
	// Size returns the number of content octets.
	Size() int
	// Bytes returns a copy of the content octets.
	Bytes() []byte

	appendTo(dst []byte) []byte
	content() []byte
}

// Leaf is a primitive value: an immutable view of content octets.
//
// A Leaf produced by Parse shares the backing array of the parsed buffer, the
// caller must not modify that buffer while the Leaf is in use. Reads never
// move any internal position, so a Leaf can be read concurrently.
type Leaf struct {
	data []byte
}

// NewLeaf returns a Leaf holding a copy of b.
func NewLeaf(b []byte) Leaf {
	return Leaf{data: append([]byte(nil), b...)}
}

// leafView wraps b without copying. The capacity is clipped so appends made by
// callers to the returned content can never write into the shared buffer.
func leafView(b []byte) Leaf {
	return Leaf{data: b[:len(b):len(b)]}
}

// Size returns the number of content octets.
func (l Leaf) Size() int { return len(l.data) }

// Bytes returns a copy of the content octets.
func (l Leaf) Bytes() []byte {
	return append([]byte(nil), l.data...)
}

// String returns the content octets as a string. Certificate references are
// plain ASCII so no decoding is applied.
func (l Leaf) String() string {
	return string(l.data)
}

// Text decodes the content octets with the given character encoding. A nil
// encoding returns the octets as-is, like String.
func (l Leaf) Text(enc encoding.Encoding) (string, error) {
	if enc == nil {
		return l.String(), nil
	}
	b, err := enc.NewDecoder().Bytes(l.data)
	if err != nil {
		return "", fmt.Errorf("failed to decode leaf value: %w", err)
	}
	return string(b), nil
}

func (l Leaf) appendTo(dst []byte) []byte { return append(dst, l.data...) }

func (l Leaf) content() []byte { return l.data }

// Constructed is a value made of nested TLVs, kept in insertion order.
type Constructed struct {
	children []TLV
}

// NewConstructed returns a constructed value holding the given children in order.
func NewConstructed(children ...TLV) Constructed {
	return Constructed{children: append([]TLV(nil), children...)}
}

// Children returns the nested TLVs in encoding order.
func (c Constructed) Children() []TLV {
	return append([]TLV(nil), c.children...)
}

// Len returns the number of nested TLVs.
func (c Constructed) Len() int { return len(c.children) }

// Size returns the combined encoded size of all children.
func (c Constructed) Size() int {
	size := 0
	for _, child := range c.children {
		size += child.Size()
	}
	return size
}

// Bytes returns the concatenated encoding of all children.
func (c Constructed) Bytes() []byte {
	return c.appendTo(make([]byte, 0, c.Size()))
}

func (c Constructed) appendTo(dst []byte) []byte {
	for _, child := range c.children {
		dst = child.Encode(dst)
	}
	return dst
}

func (c Constructed) content() []byte { return c.Bytes() }

func (c Constructed) String() string {
	parts := make([]string, len(c.children))
	for i, child := range c.children {
		parts[i] = child.String()
	}
	return "Constructed[" + strings.Join(parts, ", ") + "]"
}
