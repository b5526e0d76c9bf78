package main

import (
	"context"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/cvca/cmd/cvca/internal/commands"
	"github.com/wolfeidau/cvca/internal/telemetry"
)

var (
	version = "dev"
	cli     struct {
		Issue     commands.IssueCmd     `cmd:"" help:"Issue a certificate"`
		Inspect   commands.InspectCmd   `cmd:"" help:"Decode and verify a certificate"`
		List      commands.ListCmd      `cmd:"" help:"List issued certificates"`
		Revoke    commands.RevokeCmd    `cmd:"" help:"Revoke an issued certificate"`
		Bootstrap commands.BootstrapCmd `cmd:"" help:"Create the certificate table"`
		Config    string                `help:"Issuer YAML/JSON config file path" default:"cvca.yaml" type:"path" env:"CVCA_CONFIG"`
		Debug     bool                  `help:"Enable debug mode."`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	shutdown := func(context.Context) error { return nil }
	if telemetry.Enabled() {
		var err error
		shutdown, err = telemetry.InitTelemetry(ctx, "cvca", version)
		cmd.FatalIfErrorf(err)
	}

	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version, Config: cli.Config})

	// flush before FatalIfErrorf exits
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := shutdown(flushCtx); err != nil {
		log.Warn().Err(err).Msg("Failed to flush telemetry")
	}
	cancel()

	cmd.FatalIfErrorf(err)
}
