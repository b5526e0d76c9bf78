package commands

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/cvca/internal/ca"
	"github.com/wolfeidau/cvca/internal/cvc"
	"github.com/wolfeidau/cvca/internal/tlv"
)

type fixture struct {
	dir       string
	config    string
	issuerKey string
	holderKey string
	issuer    *rsa.PrivateKey
	holderPub *rsa.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	issuer, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	holder, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fixture{
		dir:       dir,
		config:    filepath.Join(dir, "cvca.yaml"),
		issuerKey: filepath.Join(dir, "issuer.pem"),
		holderKey: filepath.Join(dir, "holder.pub.pem"),
		issuer:    issuer,
		holderPub: &holder.PublicKey,
	}

	issuerPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(issuer)})
	require.NoError(t, os.WriteFile(f.issuerKey, issuerPEM, 0o600))

	holderDER, err := x509.MarshalPKIXPublicKey(&holder.PublicKey)
	require.NoError(t, err)
	holderPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: holderDER})
	require.NoError(t, os.WriteFile(f.holderKey, holderPEM, 0o600))

	cfg := "issuer:\n  reference: DEYYI001\n  keyFile: " + f.issuerKey + "\n"
	require.NoError(t, os.WriteFile(f.config, []byte(cfg), 0o600))

	return f
}

func TestIssueCmd_Run(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(f.dir, "holder.cvcert")

	cmd := &IssueCmd{
		Profile:   "authentication",
		HolderKey: f.holderKey,
		CHR:       "DEYYE-000001",
		CHA:       "01020304050607",
		Out:       out,
	}
	require.NoError(t, cmd.Run(context.Background(), &Globals{Config: f.config}))

	encoded, err := os.ReadFile(out)
	require.NoError(t, err)

	cert, err := ca.ParseCertificate(encoded, &f.issuer.PublicKey)
	require.NoError(t, err)
	require.Equal(t, cvc.AuthenticationCertificate, cert.Profile)
	require.Equal(t, "DEYYI001", string(cert.Data.CAR))
	require.Equal(t, "DEYYE-000001", string(cert.Data.CHR))
	require.True(t, f.holderPub.Equal(cert.Data.PublicKey))
}

func TestIssueCmd_RejectsInvalidData(t *testing.T) {
	f := newFixture(t)

	cmd := &IssueCmd{
		Profile:   "authentication",
		HolderKey: f.holderKey,
		CHR:       "DEYYE-000001",
		Out:       filepath.Join(f.dir, "holder.cvcert"),
	}
	err := cmd.Run(context.Background(), &Globals{Config: f.config})
	require.ErrorIs(t, err, cvc.ErrMissingField)

	_, statErr := os.Stat(cmd.Out)
	require.True(t, os.IsNotExist(statErr))
}

func TestRegistryCommands_RequirePersistentStore(t *testing.T) {
	f := newFixture(t)
	globals := &Globals{Config: f.config}

	err := (&ListCmd{Limit: 50}).Run(context.Background(), globals)
	require.ErrorIs(t, err, errNoRegistry)

	err = (&RevokeCmd{ID: "01", Reason: "superseded"}).Run(context.Background(), globals)
	require.ErrorIs(t, err, errNoRegistry)
}

func TestReadCertificate_Hex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cert.hex")
	require.NoError(t, os.WriteFile(path, []byte("02010a\n"), 0o600))

	data, err := readCertificate(path)
	require.NoError(t, err)
	require.Equal(t, []byte{0x02, 0x01, 0x0A}, data)

	path = filepath.Join(dir, "cert.bin")
	require.NoError(t, os.WriteFile(path, []byte{0x7F, 0x21, 0x00}, 0o600))
	data, err = readCertificate(path)
	require.NoError(t, err)
	require.Equal(t, []byte{0x7F, 0x21, 0x00}, data)
}

func TestPrintTLV(t *testing.T) {
	sig, err := tlv.New(ca.CVSignature, tlv.NewLeaf(bytes.Repeat([]byte{0xAA}, 20)))
	require.NoError(t, err)
	rest, err := tlv.New(ca.CVTrailing, tlv.NewLeaf([]byte{0x01, 0x02}))
	require.NoError(t, err)
	cert, err := tlv.New(ca.CVCertificate, tlv.NewConstructed(sig, rest))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printTLV(&buf, cert, 0))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, []string{
		"7F21 [28]",
		"  5F37 [20] " + hex.EncodeToString(bytes.Repeat([]byte{0xAA}, 16)) + "...",
		"  5F38 [2] 0102",
	}, lines)
}

func TestLoadIssuerPublicKey(t *testing.T) {
	f := newFixture(t)

	pub, err := loadIssuerPublicKey(f.issuerKey)
	require.NoError(t, err)
	require.True(t, f.issuer.PublicKey.Equal(pub))

	pub, err = loadIssuerPublicKey(f.holderKey)
	require.NoError(t, err)
	require.True(t, f.holderPub.Equal(pub))
}
