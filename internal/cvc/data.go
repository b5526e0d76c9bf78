package cvc

import (
	"crypto/rsa"
	"fmt"
	"math/big"
)

// CertificateData is the content of a card verifiable certificate: the holder
// public key and the reference fields.
//
// CHA is optional; nil means absent. Field sizes are checked by
// Profile.Validate, not here.
type CertificateData struct {
	PublicKey *rsa.PublicKey
	CAR       []byte // certification authority reference
	CHR       []byte // certificate holder reference
	CHA       []byte // certificate holder authorization
}

// NewCertificateData copies the given fields into a new CertificateData.
// The public key, CAR and CHR are required.
func NewCertificateData(pub *rsa.PublicKey, car, chr, cha []byte) (*CertificateData, error) {
	switch {
	case pub == nil || pub.N == nil:
		return nil, fmt.Errorf("%w: public key", ErrMissingField)
	case car == nil:
		return nil, fmt.Errorf("%w: CAR", ErrMissingField)
	case chr == nil:
		return nil, fmt.Errorf("%w: CHR", ErrMissingField)
	}

	d := &CertificateData{
		PublicKey: &rsa.PublicKey{N: new(big.Int).Set(pub.N), E: pub.E},
		CAR:       clone(car),
		CHR:       clone(chr),
	}
	if cha != nil {
		d.CHA = clone(cha)
	}
	return d, nil
}

// HasCHA reports whether the holder authorization is present.
func (d *CertificateData) HasCHA() bool {
	return d.CHA != nil
}

func (d *CertificateData) String() string {
	var bits int
	if d.PublicKey != nil && d.PublicKey.N != nil {
		bits = d.PublicKey.N.BitLen()
	}
	if d.HasCHA() {
		return fmt.Sprintf("CertificateData(key=RSA-%d, car=%q, chr=%q, cha=%q)", bits, d.CAR, d.CHR, d.CHA)
	}
	return fmt.Sprintf("CertificateData(key=RSA-%d, car=%q, chr=%q)", bits, d.CAR, d.CHR)
}

func clone(b []byte) []byte {
	return append(make([]byte, 0, len(b)), b...)
}
