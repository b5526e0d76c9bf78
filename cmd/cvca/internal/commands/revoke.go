package commands

import (
	"context"
	"fmt"
)

type RevokeCmd struct {
	ID     string `arg:"" help:"Certificate ID, or fingerprint with --fingerprint"`
	Reason string `help:"Revocation reason" required:""`
	ByFP   bool   `name:"fingerprint" help:"Treat the argument as a certificate fingerprint"`
}

func (r *RevokeCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := setup(ctx, globals)
	if err != nil {
		return err
	}
	certs, err := env.registry()
	if err != nil {
		return err
	}

	id := r.ID
	if r.ByFP {
		cert, err := certs.GetByFingerprint(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("failed to look up certificate: %w", err)
		}
		id = cert.ID
	}

	if err := certs.Revoke(ctx, id, r.Reason); err != nil {
		return fmt.Errorf("failed to revoke certificate %s: %w", id, err)
	}

	fmt.Printf("Certificate %s revoked\n", id)
	return nil
}
