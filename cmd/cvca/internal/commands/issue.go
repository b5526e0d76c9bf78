package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/wolfeidau/cvca/internal/cvc"
	"github.com/wolfeidau/cvca/internal/logger"
	"github.com/wolfeidau/cvca/internal/pki"
	"github.com/wolfeidau/cvca/internal/store"
)

type IssueCmd struct {
	Profile     string `help:"Certificate profile (ca, authentication)" default:"authentication" enum:"ca,authentication"`
	HolderKey   string `help:"Holder RSA public key file (PEM or DER)" required:"" type:"existingfile"`
	CHR         string `name:"chr" help:"Certificate holder reference" required:""`
	CHA         string `name:"cha" help:"Certificate holder authorization, hex encoded" default:""`
	CAR         string `name:"car" help:"Certification authority reference (defaults to the issuer reference)" default:""`
	Description string `help:"Description recorded with the certificate" default:""`
	Out         string `help:"Output file for the encoded certificate (hex to stdout if empty)" default:"" type:"path"`
}

func (c *IssueCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := setup(ctx, globals)
	if err != nil {
		return err
	}

	profile, err := cvc.ParseProfileName(c.Profile)
	if err != nil {
		return err
	}

	data, err := c.certificateData(env.cfg.Issuer.Reference)
	if err != nil {
		return err
	}

	authority, err := env.authority(ctx)
	if err != nil {
		return err
	}
	certs := env.store()

	return logger.Operation(ctx, env.logger, "issue", func(ctx context.Context) error {
		encoded, err := authority.IssueEncoded(ctx, profile, data)
		if err != nil {
			return fmt.Errorf("failed to issue certificate: %w", err)
		}

		meta, err := store.NewCertMetadata(profile, data, encoded)
		if err != nil {
			return err
		}
		meta.Description = c.Description

		if err := certs.Register(ctx, meta); err != nil {
			return fmt.Errorf("failed to register certificate: %w", err)
		}

		env.logger.Info().
			Str("id", meta.ID).
			Str("profile", meta.Profile).
			Str("chr", meta.CHR).
			Str("fingerprint", meta.Fingerprint).
			Msg("Certificate issued")

		return c.write(encoded)
	})
}

func (c *IssueCmd) certificateData(issuerReference string) (*cvc.CertificateData, error) {
	keyData, err := os.ReadFile(c.HolderKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read holder key: %w", err)
	}
	pub, err := pki.ParseRSAPublicKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse holder key: %w", err)
	}

	var cha []byte
	if c.CHA != "" {
		cha, err = hex.DecodeString(c.CHA)
		if err != nil {
			return nil, fmt.Errorf("invalid --cha: %w", err)
		}
	}

	car := c.CAR
	if car == "" {
		car = issuerReference
	}

	return cvc.NewCertificateData(pub, []byte(car), []byte(c.CHR), cha)
}

func (c *IssueCmd) write(encoded []byte) error {
	if c.Out == "" {
		fmt.Println(hex.EncodeToString(encoded))
		return nil
	}
	if err := os.WriteFile(c.Out, encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}
	return nil
}
