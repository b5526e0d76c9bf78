package ca

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/wolfeidau/cvca/internal/cvc"
	"github.com/wolfeidau/cvca/internal/pki"
	"github.com/wolfeidau/cvca/internal/tlv"
)

// ErrMalformedCertificate is returned when a certificate TLV does not have
// the signed certificate structure.
var ErrMalformedCertificate = errors.New("ca: malformed certificate")

// Certificate is a signed certificate opened with its issuer key.
type Certificate struct {
	Profile   cvc.Profile
	Data      *cvc.CertificateData
	Signature []byte
	Trailing  []byte

	// Payload is the full to-be-signed payload, recovered part and trailing
	// part joined.
	Payload []byte
}

// Open verifies cert against the issuer public key and decodes the payload
// with the profile named by its first byte.
func Open(cert tlv.TLV, issuer *rsa.PublicKey) (*Certificate, error) {
	if !cert.Tag().Equal(CVCertificate) {
		return nil, fmt.Errorf("%w: outer tag is %s", ErrMalformedCertificate, cert.Tag())
	}

	children, err := cert.Children()
	if err != nil {
		return nil, err
	}
	if len(children) != 2 {
		return nil, fmt.Errorf("%w: expected 2 elements, got %d", ErrMalformedCertificate, len(children))
	}
	if !children[0].Tag().Equal(CVSignature) {
		return nil, fmt.Errorf("%w: first element is %s", ErrMalformedCertificate, children[0].Tag())
	}
	if !children[1].Tag().Equal(CVTrailing) {
		return nil, fmt.Errorf("%w: second element is %s", ErrMalformedCertificate, children[1].Tag())
	}

	signature := children[0].Value().Bytes()
	trailing := children[1].Value().Bytes()

	payload, err := pki.Recover(issuer, signature, trailing)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedCertificate)
	}

	profile, err := cvc.ProfileByIdentifier(payload[0])
	if err != nil {
		return nil, err
	}
	data, err := profile.Parse(payload)
	if err != nil {
		return nil, err
	}

	return &Certificate{
		Profile:   profile,
		Data:      data,
		Signature: signature,
		Trailing:  trailing,
		Payload:   payload,
	}, nil
}

// ParseCertificate decodes an encoded certificate and opens it.
func ParseCertificate(b []byte, issuer *rsa.PublicKey) (*Certificate, error) {
	cert, n, err := tlv.Parse(b)
	if err != nil {
		return nil, err
	}
	if n != len(b) {
		return nil, fmt.Errorf("%w: %d bytes after certificate", ErrMalformedCertificate, len(b)-n)
	}
	return Open(cert, issuer)
}
