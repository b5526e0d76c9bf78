package pki

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// FileKeySource loads the issuer key from a PEM file on disk.
// This is intended for local development and tests - production issuers keep
// the key wrapped by KMS (see KMSKeySource).
type FileKeySource struct {
	Path string
}

// LoadKey reads and parses the PEM-encoded RSA private key at Path.
func (f FileKeySource) LoadKey(ctx context.Context) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read issuer key file: %w", err)
	}

	key, err := ParseRSAPrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse issuer key %s: %w", f.Path, err)
	}
	return key, nil
}

// ParseRSAPrivateKey accepts a PEM block ("RSA PRIVATE KEY" or "PRIVATE KEY")
// or raw PKCS#1 / PKCS#8 DER.
func ParseRSAPrivateKey(data []byte) (*rsa.PrivateKey, error) {
	der := data
	if block, _ := pem.Decode(data); block != nil {
		der = block.Bytes
	}

	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: not a PKCS#1 or PKCS#8 private key", ErrUnsupportedKey)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key is not RSA (got %T)", ErrUnsupportedKey, parsed)
	}
	return key, nil
}

// ParseRSAPublicKey accepts a PEM block ("RSA PUBLIC KEY" or "PUBLIC KEY") or
// raw PKCS#1 / PKIX DER.
func ParseRSAPublicKey(data []byte) (*rsa.PublicKey, error) {
	der := data
	if block, _ := pem.Decode(data); block != nil {
		der = block.Bytes
	}

	if key, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: not a PKCS#1 or PKIX public key", ErrUnsupportedKey)
	}

	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is not RSA (got %T)", ErrUnsupportedKey, parsed)
	}
	return key, nil
}
