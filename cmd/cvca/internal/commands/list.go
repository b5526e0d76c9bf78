package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/wolfeidau/cvca/internal/store"
)

type ListCmd struct {
	CHR            string `name:"chr" help:"Holder reference to filter by" default:""`
	IncludeRevoked bool   `help:"Include revoked certificates" default:"false"`
	Limit          int    `help:"Maximum number of certificates" default:"50"`
}

func (l *ListCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := setup(ctx, globals)
	if err != nil {
		return err
	}

	registry, err := env.registry()
	if err != nil {
		return err
	}

	certs, err := registry.List(ctx, store.ListCertificatesOptions{
		CHR:            l.CHR,
		IncludeRevoked: l.IncludeRevoked,
		Limit:          l.Limit,
	})
	if err != nil {
		return fmt.Errorf("failed to list certificates: %w", err)
	}

	printCertificates(certs)
	return nil
}

func printCertificates(certs []*store.CertMetadata) {
	if len(certs) == 0 {
		fmt.Println("No certificates found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROFILE\tCAR\tCHR\tISSUED\tSTATUS")
	for _, cert := range certs {
		status := "valid"
		if cert.Revoked {
			status = "revoked"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			cert.ID, cert.Profile, cert.CAR, cert.CHR, cert.IssuedAt.Format(time.RFC3339), status)
	}
	_ = w.Flush()
}
