package tlv

import (
	"errors"
	"fmt"
)

var (
	// ErrTagEncoding is returned when a tag number does not fit the supported
	// encoding width (at most four base-128 continuation octets).
	ErrTagEncoding = errors.New("tlv: unsupported tag encoding")

	// ErrLengthEncoding is matched by every *LengthEncodingError.
	ErrLengthEncoding = errors.New("tlv: unsupported length encoding")

	// ErrConsistency is returned when a declared length does not match the
	// size of the value it is paired with.
	ErrConsistency = errors.New("tlv: length does not match value size")

	// ErrTruncated is returned when the input ends inside a tag, a length or
	// the content octets announced by a length.
	ErrTruncated = errors.New("tlv: unexpected end of data")
)

// LengthErrorKind classifies a length encoding failure.
type LengthErrorKind int

const (
	// Indefinite is the 0x80 form, which this codec does not support.
	Indefinite LengthErrorKind = iota + 1
	// Overflow is a four octet length with the top bit set.
	Overflow
	// Unsupported is a long form using zero or more than four octets.
	Unsupported
)

func (k LengthErrorKind) String() string {
	switch k {
	case Indefinite:
		return "indefinite"
	case Overflow:
		return "overflow"
	case Unsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("LengthErrorKind(%d)", int(k))
	}
}

// LengthEncodingError describes why a length could not be encoded or decoded.
type LengthEncodingError struct {
	Kind   LengthErrorKind
	Detail string
}

// Error implements the error interface.
func (e *LengthEncodingError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("tlv: %s length encoding", e.Kind)
	}
	return fmt.Sprintf("tlv: %s length encoding: %s", e.Kind, e.Detail)
}

// Is allows LengthEncodingError to match ErrLengthEncoding with errors.Is.
func (e *LengthEncodingError) Is(target error) bool {
	return target == ErrLengthEncoding
}

// DecodeError records where in the input a decoding failure happened.
type DecodeError struct {
	Offset  int    // Byte offset where the failing element starts
	Message string // Human-readable error description
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tlv: decode error at offset %d: %s: %v", e.Offset, e.Message, e.Err)
	}
	return fmt.Sprintf("tlv: decode error at offset %d: %s", e.Offset, e.Message)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newDecodeError(offset int, message string, err error) *DecodeError {
	return &DecodeError{
		Offset:  offset,
		Message: message,
		Err:     err,
	}
}

// shift moves the offset of a DecodeError produced on a sub-slice so that it
// is relative to the enclosing buffer.
func shift(err error, by int) error {
	var de *DecodeError
	if by != 0 && errors.As(err, &de) {
		return newDecodeError(de.Offset+by, de.Message, de.Err)
	}
	return err
}
