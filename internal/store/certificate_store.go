// Package store records issued certificates so they can be listed, looked up
// by holder or fingerprint and revoked.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/wolfeidau/cvca/internal/cvc"
)

// CertMetadata represents metadata about an issued certificate
type CertMetadata struct {
	ID               string     `dynamodbav:"id"`
	Profile          string     `dynamodbav:"profile"`
	CAR              string     `dynamodbav:"car"`
	CHR              string     `dynamodbav:"chr"`
	CHA              string     `dynamodbav:"cha,omitempty"` // hex, authentication certificates only
	Fingerprint      string     `dynamodbav:"fingerprint"`
	Certificate      string     `dynamodbav:"certificate"` // base64 of the encoded certificate TLV
	IssuedAt         time.Time  `dynamodbav:"issued_at"`
	Revoked          bool       `dynamodbav:"revoked"`
	RevokedAt        *time.Time `dynamodbav:"revoked_at,omitempty"`
	RevocationReason string     `dynamodbav:"revocation_reason,omitempty"`
	Description      string     `dynamodbav:"description,omitempty"`
}

// CertificateStore manages certificate metadata
type CertificateStore interface {
	// Get retrieves certificate metadata by ID
	Get(ctx context.Context, id string) (*CertMetadata, error)

	// GetByHolder retrieves all certificates issued to a holder reference
	GetByHolder(ctx context.Context, chr string) ([]*CertMetadata, error)

	// GetByFingerprint retrieves a certificate by fingerprint
	GetByFingerprint(ctx context.Context, fingerprint string) (*CertMetadata, error)

	// Register stores certificate metadata
	Register(ctx context.Context, cert *CertMetadata) error

	// Revoke marks a certificate as revoked
	Revoke(ctx context.Context, id string, reason string) error

	// List returns registered certificates
	List(ctx context.Context, opts ListCertificatesOptions) ([]*CertMetadata, error)
}

// ListCertificatesOptions specifies filters for listing certificates
type ListCertificatesOptions struct {
	CHR            string // Filter by holder reference (empty = all)
	IncludeRevoked bool   // Include revoked certs (default: false)
	Limit          int    // Max results (0 = default)
}

// Errors
var (
	ErrCertNotFound      = errors.New("certificate not found")
	ErrCertAlreadyExists = errors.New("certificate already exists")
	ErrThrottled         = errors.New("AWS request throttled")
)

// Fingerprint returns the base58 encoded SHA-256 of an encoded certificate.
func Fingerprint(encoded []byte) string {
	sum := sha256.Sum256(encoded)
	return base58.Encode(sum[:])
}

// NewCertMetadata creates CertMetadata for a freshly issued certificate.
func NewCertMetadata(profile cvc.Profile, data *cvc.CertificateData, encoded []byte) (*CertMetadata, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate certificate id: %w", err)
	}

	cert := &CertMetadata{
		ID:          id.String(),
		Profile:     profile.String(),
		CAR:         string(data.CAR),
		CHR:         string(data.CHR),
		Fingerprint: Fingerprint(encoded),
		Certificate: base64.StdEncoding.EncodeToString(encoded),
		IssuedAt:    time.Now().UTC(),
	}
	if data.HasCHA() {
		cert.CHA = hex.EncodeToString(data.CHA)
	}
	return cert, nil
}

// Encoded returns the encoded certificate TLV.
func (c *CertMetadata) Encoded() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(c.Certificate)
	if err != nil {
		return nil, fmt.Errorf("failed to decode certificate %s: %w", c.ID, err)
	}
	return b, nil
}
