package pki

import (
	"encoding/asn1"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wolfeidau/cvca/internal/tlv"
	"golang.org/x/crypto/cryptobyte"
)

// Terminal authority object identifiers embedded in card verifiable
// certificates, one per certificate profile.
var (
	// OIDCATerminalAuthority is carried by CA certificates.
	OIDCATerminalAuthority = asn1.ObjectIdentifier{1, 3, 36, 3, 4, 2, 2, 4}

	// OIDAuthenticationTerminalAuthority is carried by authentication certificates.
	OIDAuthenticationTerminalAuthority = asn1.ObjectIdentifier{1, 3, 36, 3, 5, 2, 4}
)

// ErrInvalidOID is returned when an object identifier cannot be parsed or encoded.
var ErrInvalidOID = errors.New("invalid object identifier")

// ParseOID parses a dotted-decimal object identifier such as "1.3.36.3.5.2.4".
func ParseOID(dotted string) (asn1.ObjectIdentifier, error) {
	parts := strings.Split(dotted, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: %q needs at least two arcs", ErrInvalidOID, dotted)
	}

	oid := make(asn1.ObjectIdentifier, len(parts))
	for i, part := range parts {
		arc, err := strconv.Atoi(part)
		if err != nil || arc < 0 {
			return nil, fmt.Errorf("%w: %q has invalid arc %q", ErrInvalidOID, dotted, part)
		}
		oid[i] = arc
	}
	return oid, nil
}

// OIDContent returns the DER content octets of oid, without the universal
// OBJECT IDENTIFIER tag and length.
func OIDContent(oid asn1.ObjectIdentifier) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1ObjectIdentifier(oid)
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOID, err)
	}

	encoded, _, err := tlv.Parse(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse encoded object identifier: %w", err)
	}
	return encoded.Value().Bytes(), nil
}
