package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testCert(id, chr string) *CertMetadata {
	return &CertMetadata{
		ID:          id,
		Profile:     "CA_CERTIFICATE",
		CAR:         "DEYYR001",
		CHR:         chr,
		Fingerprint: "fp-" + id,
		Certificate: "fyE=",
		IssuedAt:    time.Now().UTC(),
	}
}

func TestNewMemoryCertificateStore(t *testing.T) {
	store := NewMemoryCertificateStore()
	require.NotNil(t, store)
}

func TestMemoryCertificateStore_Register(t *testing.T) {
	t.Run("register new certificate", func(t *testing.T) {
		store := NewMemoryCertificateStore()
		ctx := context.Background()

		require.NoError(t, store.Register(ctx, testCert("01", "DEYYI001")))

		retrieved, err := store.Get(ctx, "01")
		require.NoError(t, err)
		require.Equal(t, "DEYYI001", retrieved.CHR)
	})

	t.Run("register duplicate id returns error", func(t *testing.T) {
		store := NewMemoryCertificateStore()
		ctx := context.Background()

		cert := testCert("01", "DEYYI001")
		require.NoError(t, store.Register(ctx, cert))

		err := store.Register(ctx, cert)
		require.ErrorIs(t, err, ErrCertAlreadyExists)
	})

	t.Run("register duplicate fingerprint returns error", func(t *testing.T) {
		store := NewMemoryCertificateStore()
		ctx := context.Background()

		require.NoError(t, store.Register(ctx, testCert("01", "DEYYI001")))

		other := testCert("02", "DEYYI001")
		other.Fingerprint = "fp-01"
		require.ErrorIs(t, store.Register(ctx, other), ErrCertAlreadyExists)
	})

	t.Run("stored copy is isolated from caller", func(t *testing.T) {
		store := NewMemoryCertificateStore()
		ctx := context.Background()

		cert := testCert("01", "DEYYI001")
		require.NoError(t, store.Register(ctx, cert))
		cert.CHR = "changed"

		retrieved, err := store.Get(ctx, "01")
		require.NoError(t, err)
		require.Equal(t, "DEYYI001", retrieved.CHR)
	})
}

func TestMemoryCertificateStore_Lookups(t *testing.T) {
	store := NewMemoryCertificateStore()
	ctx := context.Background()

	require.NoError(t, store.Register(ctx, testCert("01", "DEYYI001")))
	require.NoError(t, store.Register(ctx, testCert("02", "DEYYI001")))
	require.NoError(t, store.Register(ctx, testCert("03", "DEYYI002")))

	t.Run("get missing certificate", func(t *testing.T) {
		_, err := store.Get(ctx, "99")
		require.ErrorIs(t, err, ErrCertNotFound)
	})

	t.Run("get by fingerprint", func(t *testing.T) {
		cert, err := store.GetByFingerprint(ctx, "fp-03")
		require.NoError(t, err)
		require.Equal(t, "03", cert.ID)

		_, err = store.GetByFingerprint(ctx, "fp-99")
		require.ErrorIs(t, err, ErrCertNotFound)
	})

	t.Run("get by holder", func(t *testing.T) {
		certs, err := store.GetByHolder(ctx, "DEYYI001")
		require.NoError(t, err)
		require.Len(t, certs, 2)

		certs, err = store.GetByHolder(ctx, "unknown")
		require.NoError(t, err)
		require.Empty(t, certs)
	})
}

func TestMemoryCertificateStore_Revoke(t *testing.T) {
	t.Run("revoke existing certificate", func(t *testing.T) {
		store := NewMemoryCertificateStore()
		ctx := context.Background()
		require.NoError(t, store.Register(ctx, testCert("01", "DEYYI001")))

		require.NoError(t, store.Revoke(ctx, "01", "key compromise"))

		cert, err := store.Get(ctx, "01")
		require.NoError(t, err)
		require.True(t, cert.Revoked)
		require.NotNil(t, cert.RevokedAt)
		require.Equal(t, "key compromise", cert.RevocationReason)

		byFingerprint, err := store.GetByFingerprint(ctx, "fp-01")
		require.NoError(t, err)
		require.True(t, byFingerprint.Revoked)
	})

	t.Run("revoke missing certificate", func(t *testing.T) {
		store := NewMemoryCertificateStore()
		err := store.Revoke(context.Background(), "99", "superseded")
		require.ErrorIs(t, err, ErrCertNotFound)
	})
}

func TestMemoryCertificateStore_List(t *testing.T) {
	store := NewMemoryCertificateStore()
	ctx := context.Background()

	for i := range 5 {
		chr := "DEYYI001"
		if i%2 == 1 {
			chr = "DEYYI002"
		}
		require.NoError(t, store.Register(ctx, testCert(fmt.Sprintf("%02d", i), chr)))
	}
	require.NoError(t, store.Revoke(ctx, "00", "superseded"))

	t.Run("excludes revoked by default", func(t *testing.T) {
		result, err := store.List(ctx, ListCertificatesOptions{})
		require.NoError(t, err)
		require.Len(t, result, 4)
		require.Equal(t, "01", result[0].ID)
	})

	t.Run("include revoked", func(t *testing.T) {
		result, err := store.List(ctx, ListCertificatesOptions{IncludeRevoked: true})
		require.NoError(t, err)
		require.Len(t, result, 5)
		require.Equal(t, "00", result[0].ID)
	})

	t.Run("filter by holder", func(t *testing.T) {
		result, err := store.List(ctx, ListCertificatesOptions{CHR: "DEYYI002"})
		require.NoError(t, err)
		require.Len(t, result, 2)
		for _, cert := range result {
			require.Equal(t, "DEYYI002", cert.CHR)
		}
	})

	t.Run("limit", func(t *testing.T) {
		result, err := store.List(ctx, ListCertificatesOptions{Limit: 3, IncludeRevoked: true})
		require.NoError(t, err)
		require.Len(t, result, 3)
		require.Equal(t, []string{"00", "01", "02"}, []string{result[0].ID, result[1].ID, result[2].ID})
	})

	t.Run("empty store returns empty slice", func(t *testing.T) {
		result, err := NewMemoryCertificateStore().List(ctx, ListCertificatesOptions{})
		require.NoError(t, err)
		require.NotNil(t, result)
		require.Empty(t, result)
	})
}
