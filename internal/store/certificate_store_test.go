package store

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/cvca/internal/cvc"
)

func TestNewCertMetadata(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	data, err := cvc.NewCertificateData(&key.PublicKey, []byte("DEYYI001"), []byte("DEYYE-000001"), []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07})
	require.NoError(t, err)

	encoded := []byte{0x7F, 0x21, 0x00}
	cert, err := NewCertMetadata(cvc.AuthenticationCertificate, data, encoded)
	require.NoError(t, err)

	id, err := uuid.Parse(cert.ID)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), id.Version())

	require.Equal(t, "AUTHENTICATION_CERTIFICATE", cert.Profile)
	require.Equal(t, "DEYYI001", cert.CAR)
	require.Equal(t, "DEYYE-000001", cert.CHR)
	require.Equal(t, "01020304050607", cert.CHA)
	require.False(t, cert.Revoked)

	raw, err := base58.Decode(cert.Fingerprint)
	require.NoError(t, err)
	require.Len(t, raw, 32)
	require.Equal(t, Fingerprint(encoded), cert.Fingerprint)

	decoded, err := cert.Encoded()
	require.NoError(t, err)
	require.Equal(t, encoded, decoded)
}

func TestCertMetadata_EncodedInvalid(t *testing.T) {
	cert := &CertMetadata{ID: "01", Certificate: "not base64!"}
	_, err := cert.Encoded()
	require.Error(t, err)
}
