package tlv

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLength_Boundaries(t *testing.T) {
	tests := []struct {
		value int
		hex   string
	}{
		{0x00, "00"},
		{0x7F, "7f"},
		{0x80, "8180"},
		{0xFF, "81ff"},
		{0x100, "820100"},
		{0xFFFF, "82ffff"},
		{0x10000, "83010000"},
		{0xFFFFFF, "83ffffff"},
		{0x1000000, "8401000000"},
		{0x7FFFFFFF, "847fffffff"},
	}

	for _, tt := range tests {
		t.Run(tt.hex, func(t *testing.T) {
			l, err := NewLength(tt.value)
			require.NoError(t, err)

			encoded := l.Encode(nil)
			require.Equal(t, tt.hex, hex.EncodeToString(encoded))
			require.Equal(t, len(encoded), l.Size())

			parsed, n, err := ParseLength(encoded)
			require.NoError(t, err)
			require.Equal(t, len(encoded), n)
			require.Equal(t, tt.value, parsed.Value())
		})
	}
}

func TestParseLength_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		kind LengthErrorKind
	}{
		{"indefinite", []byte{0x80}, Indefinite},
		{"four octets with top bit set", []byte{0x84, 0x80, 0x00, 0x00, 0x00}, Overflow},
		{"five octets", []byte{0x85, 0x00, 0x00, 0x00, 0x00, 0x01}, Unsupported},
		{"reserved 0xFF", []byte{0xff}, Unsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseLength(tt.data)
			require.ErrorIs(t, err, ErrLengthEncoding)

			var le *LengthEncodingError
			require.True(t, errors.As(err, &le))
			require.Equal(t, tt.kind, le.Kind)
		})
	}

	t.Run("truncated long form", func(t *testing.T) {
		_, _, err := ParseLength([]byte{0x82, 0x01})
		require.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("empty", func(t *testing.T) {
		_, _, err := ParseLength(nil)
		require.ErrorIs(t, err, ErrTruncated)
	})
}

func TestNewLength_OutOfRange(t *testing.T) {
	_, err := NewLength(-1)
	require.ErrorIs(t, err, ErrLengthEncoding)

	_, err = NewLength(MaxLength + 1)
	require.ErrorIs(t, err, ErrLengthEncoding)
}
