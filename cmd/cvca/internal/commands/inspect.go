package commands

import (
	"context"
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wolfeidau/cvca/internal/ca"
	"github.com/wolfeidau/cvca/internal/pki"
	"github.com/wolfeidau/cvca/internal/store"
	"github.com/wolfeidau/cvca/internal/tlv"
	jose "gopkg.in/square/go-jose.v2"
)

type InspectCmd struct {
	File      string `arg:"" help:"Encoded certificate file, binary or hex (- for stdin)" default:"-"`
	IssuerKey string `help:"Issuer RSA public or private key file, enables signature verification" default:"" type:"path"`
	JWK       bool   `name:"jwk" help:"Print the holder public key as a JSON Web Key"`
}

func (c *InspectCmd) Run(ctx context.Context, globals *Globals) error {
	encoded, err := readCertificate(c.File)
	if err != nil {
		return err
	}

	cert, _, err := tlv.Parse(encoded)
	if err != nil {
		return fmt.Errorf("failed to decode certificate: %w", err)
	}
	if err := printTLV(os.Stdout, cert, 0); err != nil {
		return err
	}
	fmt.Printf("Fingerprint: %s\n", store.Fingerprint(encoded))

	if c.IssuerKey == "" {
		if c.JWK {
			return fmt.Errorf("--jwk requires --issuer-key to recover the holder key")
		}
		return nil
	}

	issuer, err := loadIssuerPublicKey(c.IssuerKey)
	if err != nil {
		return err
	}

	opened, err := ca.ParseCertificate(encoded, issuer)
	if err != nil {
		return fmt.Errorf("failed to verify certificate: %w", err)
	}

	fmt.Println()
	fmt.Printf("Signature:   valid\n")
	fmt.Printf("Profile:     %s (0x%02X)\n", opened.Profile, opened.Profile.Identifier())
	fmt.Printf("CAR:         %s\n", opened.Data.CAR)
	fmt.Printf("CHR:         %s\n", opened.Data.CHR)
	if opened.Data.HasCHA() {
		fmt.Printf("CHA:         %s\n", hex.EncodeToString(opened.Data.CHA))
	}
	fmt.Printf("Public key:  RSA-%d e=%d\n", opened.Data.PublicKey.N.BitLen(), opened.Data.PublicKey.E)

	if c.JWK {
		jwk := jose.JSONWebKey{
			Key:   opened.Data.PublicKey,
			KeyID: string(opened.Data.CHR),
			Use:   "sig",
		}
		out, err := jwk.MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to encode JWK: %w", err)
		}
		fmt.Println(string(out))
	}

	return nil
}

func readCertificate(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}

	// hex as printed by issue
	trimmed := strings.TrimSpace(string(data))
	if decoded, err := hex.DecodeString(trimmed); err == nil && len(decoded) > 0 {
		return decoded, nil
	}
	return data, nil
}

func loadIssuerPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read issuer key: %w", err)
	}
	if pub, err := pki.ParseRSAPublicKey(data); err == nil {
		return pub, nil
	}
	key, err := pki.ParseRSAPrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse issuer key: %w", err)
	}
	return &key.PublicKey, nil
}

// printTLV writes an indented outline of t, descending into constructed values.
func printTLV(w io.Writer, t tlv.TLV, depth int) error {
	indent := strings.Repeat("  ", depth)
	tag := t.Tag().Encode(nil)

	if !t.Tag().Constructed() {
		_, err := fmt.Fprintf(w, "%s%X [%d] %s\n", indent, tag, t.Length().Value(), preview(t.Value().Bytes()))
		return err
	}

	if _, err := fmt.Fprintf(w, "%s%X [%d]\n", indent, tag, t.Length().Value()); err != nil {
		return err
	}
	children, err := t.Children()
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := printTLV(w, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func preview(b []byte) string {
	const previewLen = 16
	if len(b) <= previewLen {
		return hex.EncodeToString(b)
	}
	return hex.EncodeToString(b[:previewLen]) + "..."
}
