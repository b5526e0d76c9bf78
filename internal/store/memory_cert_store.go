package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryCertificateStore is an in-memory implementation of CertificateStore for development and testing
type MemoryCertificateStore struct {
	mu                 sync.RWMutex
	certs              map[string]*CertMetadata   // indexed by ID
	certsByHolder      map[string][]*CertMetadata // indexed by CHR
	certsByFingerprint map[string]*CertMetadata   // indexed by fingerprint
}

// NewMemoryCertificateStore creates a new in-memory certificate store
func NewMemoryCertificateStore() *MemoryCertificateStore {
	return &MemoryCertificateStore{
		certs:              make(map[string]*CertMetadata),
		certsByHolder:      make(map[string][]*CertMetadata),
		certsByFingerprint: make(map[string]*CertMetadata),
	}
}

// Get retrieves certificate metadata by ID
func (s *MemoryCertificateStore) Get(ctx context.Context, id string) (*CertMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cert, exists := s.certs[id]
	if !exists {
		return nil, ErrCertNotFound
	}

	return copyCert(cert), nil
}

// GetByHolder retrieves all certificates issued to a holder reference
func (s *MemoryCertificateStore) GetByHolder(ctx context.Context, chr string) ([]*CertMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	certs := s.certsByHolder[chr]
	result := make([]*CertMetadata, len(certs))
	for i, cert := range certs {
		result[i] = copyCert(cert)
	}

	return result, nil
}

// GetByFingerprint retrieves a certificate by fingerprint
func (s *MemoryCertificateStore) GetByFingerprint(ctx context.Context, fingerprint string) (*CertMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cert, exists := s.certsByFingerprint[fingerprint]
	if !exists {
		return nil, ErrCertNotFound
	}

	return copyCert(cert), nil
}

// Register stores certificate metadata
func (s *MemoryCertificateStore) Register(ctx context.Context, cert *CertMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.certs[cert.ID]; exists {
		return ErrCertAlreadyExists
	}
	if _, exists := s.certsByFingerprint[cert.Fingerprint]; exists {
		return ErrCertAlreadyExists
	}

	stored := copyCert(cert)
	s.certs[cert.ID] = stored
	s.certsByFingerprint[cert.Fingerprint] = stored
	s.certsByHolder[cert.CHR] = append(s.certsByHolder[cert.CHR], stored)

	return nil
}

// Revoke marks a certificate as revoked
func (s *MemoryCertificateStore) Revoke(ctx context.Context, id string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cert, exists := s.certs[id]
	if !exists {
		return ErrCertNotFound
	}

	now := time.Now().UTC()
	cert.Revoked = true
	cert.RevokedAt = &now
	cert.RevocationReason = reason

	return nil
}

// List returns registered certificates ordered by ID, which for UUIDv7 is
// issue order.
func (s *MemoryCertificateStore) List(ctx context.Context, opts ListCertificatesOptions) ([]*CertMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*CertMetadata
	if opts.CHR != "" {
		candidates = s.certsByHolder[opts.CHR]
	} else {
		candidates = make([]*CertMetadata, 0, len(s.certs))
		for _, cert := range s.certs {
			candidates = append(candidates, cert)
		}
	}

	sorted := slices.SortedFunc(slices.Values(candidates), func(a, b *CertMetadata) int {
		return strings.Compare(a.ID, b.ID)
	})

	result := []*CertMetadata{}
	for _, cert := range sorted {
		if cert.Revoked && !opts.IncludeRevoked {
			continue
		}

		result = append(result, copyCert(cert))

		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}

	return result, nil
}

// copyCert creates a deep copy of certificate metadata
func copyCert(cert *CertMetadata) *CertMetadata {
	c := *cert
	if cert.RevokedAt != nil {
		t := *cert.RevokedAt
		c.RevokedAt = &t
	}
	return &c
}
