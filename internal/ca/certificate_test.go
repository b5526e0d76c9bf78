package ca

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/cvca/internal/cvc"
	"github.com/wolfeidau/cvca/internal/pki"
	"github.com/wolfeidau/cvca/internal/tlv"
)

func TestOpen_RoundTrip(t *testing.T) {
	authority, _ := newAuthority(t)
	issuer := authority.Signer().Public()

	tests := []struct {
		name    string
		profile cvc.Profile
		data    *cvc.CertificateData
	}{
		{"ca certificate", cvc.CACertificate, caData(t)},
		{"authentication certificate", cvc.AuthenticationCertificate, authData(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := authority.IssueEncoded(context.Background(), tt.profile, tt.data)
			require.NoError(t, err)

			cert, err := ParseCertificate(encoded, issuer)
			require.NoError(t, err)
			require.Equal(t, tt.profile, cert.Profile)
			require.True(t, tt.data.PublicKey.Equal(cert.Data.PublicKey))
			require.Equal(t, tt.data.CAR, cert.Data.CAR)
			require.Equal(t, tt.data.CHR, cert.Data.CHR)
			require.Equal(t, tt.data.CHA, cert.Data.CHA)
			require.Len(t, cert.Signature, 256)

			size, err := tt.profile.PayloadSize()
			require.NoError(t, err)
			require.Len(t, cert.Payload, size)
		})
	}
}

func TestOpen_Rejects(t *testing.T) {
	authority, _ := newAuthority(t)
	issuer := authority.Signer().Public()

	cert, err := authority.Issue(context.Background(), cvc.CACertificate, caData(t))
	require.NoError(t, err)
	children, err := cert.Children()
	require.NoError(t, err)

	t.Run("wrong outer tag", func(t *testing.T) {
		other, err := tlv.New(tlv.MustTag(34, tlv.ApplicationClass, true), tlv.NewConstructed(children...))
		require.NoError(t, err)
		_, err = Open(other, issuer)
		require.ErrorIs(t, err, ErrMalformedCertificate)
	})

	t.Run("swapped elements", func(t *testing.T) {
		swapped, err := tlv.New(CVCertificate, tlv.NewConstructed(children[1], children[0]))
		require.NoError(t, err)
		_, err = Open(swapped, issuer)
		require.ErrorIs(t, err, ErrMalformedCertificate)
	})

	t.Run("tampered trailing data", func(t *testing.T) {
		trailing := children[1].Value().Bytes()
		trailing[len(trailing)-1] ^= 0x01
		rest, err := tlv.New(CVTrailing, tlv.NewLeaf(trailing))
		require.NoError(t, err)
		tampered, err := tlv.New(CVCertificate, tlv.NewConstructed(children[0], rest))
		require.NoError(t, err)

		_, err = Open(tampered, issuer)
		require.ErrorIs(t, err, pki.ErrInvalidSignature)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := Open(cert, &holderKey().PublicKey)
		require.ErrorIs(t, err, pki.ErrInvalidSignature)
	})

	t.Run("bytes after certificate", func(t *testing.T) {
		encoded := append(tlv.Marshal(cert), 0x00)
		_, err := ParseCertificate(encoded, issuer)
		require.ErrorIs(t, err, ErrMalformedCertificate)
	})
}
