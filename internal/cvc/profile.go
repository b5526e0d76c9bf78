// Package cvc models the card verifiable certificate profiles: the exact byte
// layout of the to-be-signed payload for each certificate type.
//
// Payload layout, common prefix:
//
//	CPI (1) | modulus (256, big-endian) | exponent (4, big-endian) | OID content octets
//
// followed by the profile specific reference fields:
//
//	CA_CERTIFICATE:             CHR (8)  | CAR (8)
//	AUTHENTICATION_CERTIFICATE: CHA (7)  | CHR (12) | CAR (8)
package cvc

import (
	"bytes"
	"crypto/rsa"
	"encoding/asn1"
	"fmt"
	"math/big"
	"sync"

	"github.com/wolfeidau/cvca/internal/pki"
)

const (
	// ModulusSize is the encoded size of the holder modulus.
	ModulusSize = 256
	// ExponentSize is the encoded size of the holder public exponent.
	ExponentSize = 4
	// PublicExponent is the only public exponent certificates may carry.
	PublicExponent = 65537
)

// Profile identifies a certificate type by its certificate profile identifier
// (CPI), the first byte of the payload.
type Profile byte

const (
	CACertificate             Profile = 0x21
	AuthenticationCertificate Profile = 0x22
)

// Profiles lists every registered profile.
var Profiles = []Profile{CACertificate, AuthenticationCertificate}

// layout holds the reference field sizes of a profile. A cha of zero means the
// profile has no holder authorization field.
type layout struct {
	cha, chr, car int
}

// terminal authority identifiers, DER encoded once on first use.
var (
	caTerminalAuthority = sync.OnceValues(func() ([]byte, error) {
		return pki.OIDContent(pki.OIDCATerminalAuthority)
	})
	authTerminalAuthority = sync.OnceValues(func() ([]byte, error) {
		return pki.OIDContent(pki.OIDAuthenticationTerminalAuthority)
	})
)

// ProfileByIdentifier returns the profile registered for a CPI byte.
func ProfileByIdentifier(cpi byte) (Profile, error) {
	switch p := Profile(cpi); p {
	case CACertificate, AuthenticationCertificate:
		return p, nil
	default:
		return 0, fmt.Errorf("%w: identifier 0x%02X", ErrUnknownProfile, cpi)
	}
}

// ParseProfileName maps the names used in configuration files to profiles.
func ParseProfileName(name string) (Profile, error) {
	switch name {
	case "ca", "CA_CERTIFICATE":
		return CACertificate, nil
	case "authentication", "auth", "AUTHENTICATION_CERTIFICATE":
		return AuthenticationCertificate, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
}

// Identifier returns the CPI byte.
func (p Profile) Identifier() byte { return byte(p) }

func (p Profile) String() string {
	switch p {
	case CACertificate:
		return "CA_CERTIFICATE"
	case AuthenticationCertificate:
		return "AUTHENTICATION_CERTIFICATE"
	default:
		return fmt.Sprintf("Profile(0x%02X)", byte(p))
	}
}

// OID returns the terminal authority object identifier registered for p.
func (p Profile) OID() asn1.ObjectIdentifier {
	switch p {
	case CACertificate:
		return pki.OIDCATerminalAuthority
	case AuthenticationCertificate:
		return pki.OIDAuthenticationTerminalAuthority
	default:
		return nil
	}
}

// TerminalAuthorityID returns the DER content octets of the profile's object
// identifier, as they appear in the payload.
func (p Profile) TerminalAuthorityID() ([]byte, error) {
	var (
		oid []byte
		err error
	)
	switch p {
	case CACertificate:
		oid, err = caTerminalAuthority()
	case AuthenticationCertificate:
		oid, err = authTerminalAuthority()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, p)
	}
	if err != nil {
		return nil, err
	}
	return clone(oid), nil
}

func (p Profile) layout() (layout, error) {
	switch p {
	case CACertificate:
		return layout{chr: 8, car: 8}, nil
	case AuthenticationCertificate:
		return layout{cha: 7, chr: 12, car: 8}, nil
	default:
		return layout{}, fmt.Errorf("%w: %s", ErrUnknownProfile, p)
	}
}

// PayloadSize returns the size of a payload generated for p.
func (p Profile) PayloadSize() (int, error) {
	l, err := p.layout()
	if err != nil {
		return 0, err
	}
	oid, err := p.TerminalAuthorityID()
	if err != nil {
		return 0, err
	}
	return 1 + ModulusSize + ExponentSize + len(oid) + l.cha + l.chr + l.car, nil
}

// Parse decodes a to-be-signed payload into certificate data.
func (p Profile) Parse(payload []byte) (*CertificateData, error) {
	l, err := p.layout()
	if err != nil {
		return nil, err
	}
	oid, err := p.TerminalAuthorityID()
	if err != nil {
		return nil, err
	}

	r := &reader{data: payload}

	cpi, err := r.next(1, "CPI")
	if err != nil {
		return nil, err
	}
	if cpi[0] != p.Identifier() {
		return nil, fmt.Errorf("%w: CPI is 0x%02X, expected 0x%02X", ErrProfileMismatch, cpi[0], p.Identifier())
	}

	modulus, err := r.next(ModulusSize, "modulus")
	if err != nil {
		return nil, err
	}
	exponent, err := r.next(ExponentSize, "exponent")
	if err != nil {
		return nil, err
	}

	encountered, err := r.next(len(oid), "OID")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(oid, encountered) {
		return nil, fmt.Errorf("%w: expected %s", ErrOIDMismatch, p.OID())
	}

	e, err := decodeExponent(exponent)
	if err != nil {
		return nil, err
	}

	data := &CertificateData{
		PublicKey: &rsa.PublicKey{
			N: new(big.Int).SetBytes(modulus),
			E: e,
		},
	}

	switch p {
	case CACertificate:
		if data.CHR, err = r.nextCopy(l.chr, "CHR"); err != nil {
			return nil, err
		}
		if data.CAR, err = r.nextCopy(l.car, "CAR"); err != nil {
			return nil, err
		}
	case AuthenticationCertificate:
		if data.CHA, err = r.nextCopy(l.cha, "CHA"); err != nil {
			return nil, err
		}
		if data.CHR, err = r.nextCopy(l.chr, "CHR"); err != nil {
			return nil, err
		}
		if data.CAR, err = r.nextCopy(l.car, "CAR"); err != nil {
			return nil, err
		}
	}

	if r.remaining() > 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, r.remaining())
	}
	return data, nil
}

// Generate encodes certificate data into a to-be-signed payload. Reference
// field sizes are not checked here; call Validate first.
func (p Profile) Generate(data *CertificateData) ([]byte, error) {
	oid, err := p.TerminalAuthorityID()
	if err != nil {
		return nil, err
	}
	if data == nil || data.PublicKey == nil || data.PublicKey.N == nil {
		return nil, fmt.Errorf("%w: public key", ErrMissingField)
	}
	if data.PublicKey.E <= 0 {
		return nil, fmt.Errorf("%w: exponent %d is not positive", ErrFieldSize, data.PublicKey.E)
	}

	modulus, err := fit(ModulusSize, data.PublicKey.N.Bytes())
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	exponent, err := fit(ExponentSize, big.NewInt(int64(data.PublicKey.E)).Bytes())
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}

	tbs := make([]byte, 0, 1+len(modulus)+len(exponent)+len(oid)+len(data.CHA)+len(data.CHR)+len(data.CAR))
	tbs = append(tbs, p.Identifier())
	tbs = append(tbs, modulus...)
	tbs = append(tbs, exponent...)
	tbs = append(tbs, oid...)

	switch p {
	case CACertificate:
		tbs = append(tbs, data.CHR...)
		tbs = append(tbs, data.CAR...)
	case AuthenticationCertificate:
		tbs = append(tbs, data.CHA...)
		tbs = append(tbs, data.CHR...)
		tbs = append(tbs, data.CAR...)
	}
	return tbs, nil
}

// Validate checks the reference field sizes, the presence of CHA and the
// public exponent against the profile.
func (p Profile) Validate(data *CertificateData) error {
	l, err := p.layout()
	if err != nil {
		return err
	}
	if data == nil || data.PublicKey == nil || data.PublicKey.N == nil {
		return fmt.Errorf("%w: public key", ErrMissingField)
	}

	if len(data.CAR) != l.car {
		return fmt.Errorf("%w: CAR must be %d bytes, got %d", ErrFieldSize, l.car, len(data.CAR))
	}
	if len(data.CHR) != l.chr {
		return fmt.Errorf("%w: CHR must be %d bytes, got %d", ErrFieldSize, l.chr, len(data.CHR))
	}

	switch {
	case l.cha == 0 && data.HasCHA():
		return fmt.Errorf("%w: CHA not used for %s", ErrMissingField, p)
	case l.cha > 0 && !data.HasCHA():
		return fmt.Errorf("%w: CHA missing, but required for %s", ErrMissingField, p)
	case l.cha > 0 && len(data.CHA) != l.cha:
		return fmt.Errorf("%w: CHA must be %d bytes, got %d", ErrFieldSize, l.cha, len(data.CHA))
	}

	if data.PublicKey.E != PublicExponent {
		return fmt.Errorf("%w: got %d", ErrExponentPolicy, data.PublicKey.E)
	}
	return nil
}
