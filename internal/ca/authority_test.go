package ca

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/cvca/internal/cvc"
	"github.com/wolfeidau/cvca/internal/pki"
	"github.com/wolfeidau/cvca/internal/tlv"
)

var (
	issuerKey = sync.OnceValue(func() *rsa.PrivateKey { return generateKey(2048) })
	holderKey = sync.OnceValue(func() *rsa.PrivateKey { return generateKey(2048) })
)

func generateKey(bits int) *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		panic(err)
	}
	return key
}

// countingSigner records calls and optionally fails.
type countingSigner struct {
	mu    sync.Mutex
	calls int
	err   error
	next  pki.RecoverySigner
}

func (s *countingSigner) SignRecoverable(ctx context.Context, msg []byte) (pki.Signature, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return pki.Signature{}, s.err
	}
	return s.next.SignRecoverable(ctx, msg)
}

func (s *countingSigner) Public() *rsa.PublicKey { return s.next.Public() }

func newAuthority(t *testing.T) (*Authority, *countingSigner) {
	t.Helper()
	signer, err := pki.NewISO9796Signer(issuerKey())
	require.NoError(t, err)
	counting := &countingSigner{next: signer}
	return New(counting), counting
}

func caData(t *testing.T) *cvc.CertificateData {
	t.Helper()
	data, err := cvc.NewCertificateData(&holderKey().PublicKey, []byte("DEYYR001"), []byte("DEYYI001"), nil)
	require.NoError(t, err)
	return data
}

func authData(t *testing.T) *cvc.CertificateData {
	t.Helper()
	data, err := cvc.NewCertificateData(&holderKey().PublicKey, []byte("DEYYI001"), []byte("DEYYE-000001"), []byte("1234567"))
	require.NoError(t, err)
	return data
}

func TestAuthority_Issue_CACertificate(t *testing.T) {
	authority, _ := newAuthority(t)

	cert, err := authority.Issue(context.Background(), cvc.CACertificate, caData(t))
	require.NoError(t, err)
	require.True(t, cert.Tag().Equal(CVCertificate))

	children, err := cert.Children()
	require.NoError(t, err)
	require.Len(t, children, 2)

	assert.Equal(t, uint32(55), children[0].Tag().Number())
	assert.Equal(t, 256, children[0].Length().Value())
	assert.Equal(t, uint32(56), children[1].Tag().Number())
	assert.Equal(t, 62, children[1].Length().Value())

	encoded := tlv.Marshal(cert)
	require.Equal(t, cert.Size(), len(encoded))
	require.Equal(t, []byte{0x7F, 0x21, 0x82, 0x01, 0x46}, encoded[:5])

	tbs, err := cvc.CACertificate.Generate(caData(t))
	require.NoError(t, err)
	require.Equal(t, tbs[222:], children[1].Value().Bytes())
}

func TestAuthority_Issue_Deterministic(t *testing.T) {
	authority, _ := newAuthority(t)

	first, err := authority.IssueEncoded(context.Background(), cvc.AuthenticationCertificate, authData(t))
	require.NoError(t, err)
	second, err := authority.IssueEncoded(context.Background(), cvc.AuthenticationCertificate, authData(t))
	require.NoError(t, err)

	require.True(t, bytes.Equal(first, second))
}

func TestAuthority_Issue_ValidationSkipsSigner(t *testing.T) {
	tests := []struct {
		name    string
		profile cvc.Profile
		mutate  func(*cvc.CertificateData)
		wantErr error
	}{
		{
			name:    "authentication without cha",
			profile: cvc.AuthenticationCertificate,
			mutate:  func(d *cvc.CertificateData) { d.CHA = nil },
			wantErr: cvc.ErrMissingField,
		},
		{
			name:    "authentication with short chr",
			profile: cvc.AuthenticationCertificate,
			mutate:  func(d *cvc.CertificateData) { d.CHR = []byte("DEYYE") },
			wantErr: cvc.ErrFieldSize,
		},
		{
			name:    "exponent policy",
			profile: cvc.AuthenticationCertificate,
			mutate:  func(d *cvc.CertificateData) { d.PublicKey.E = 3 },
			wantErr: cvc.ErrExponentPolicy,
		},
		{
			name:    "unknown profile",
			profile: cvc.Profile(0x30),
			mutate:  func(*cvc.CertificateData) {},
			wantErr: cvc.ErrUnknownProfile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authority, signer := newAuthority(t)
			data := authData(t)
			tt.mutate(data)

			_, err := authority.Issue(context.Background(), tt.profile, data)
			require.ErrorIs(t, err, tt.wantErr)
			require.Zero(t, signer.calls)
		})
	}
}

func TestAuthority_Issue_SignerErrorPropagates(t *testing.T) {
	authority, signer := newAuthority(t)
	signerErr := errors.New("hsm unavailable")
	signer.err = signerErr

	_, err := authority.Issue(context.Background(), cvc.CACertificate, caData(t))
	require.Same(t, signerErr, err)
	require.Equal(t, 1, signer.calls)
}

func TestAuthority_Issue_Concurrent(t *testing.T) {
	authority, signer := newAuthority(t)
	data := caData(t)
	want, err := authority.IssueEncoded(context.Background(), cvc.CACertificate, data)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = authority.IssueEncoded(context.Background(), cvc.CACertificate, data)
		}()
	}
	wg.Wait()

	for _, got := range results {
		require.Equal(t, want, got)
	}
	require.Equal(t, 9, signer.calls)
}
