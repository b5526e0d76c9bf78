package commands

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/cvca/internal/bootstrap"
	"github.com/wolfeidau/cvca/internal/config"
)

// BootstrapCmd creates the DynamoDB certificate table, for LocalStack and
// fresh environments.
type BootstrapCmd struct {
	Environment string `help:"environment name (local, dev, prod)" default:"local" enum:"local,dev,prod"`
	AWSRegion   string `help:"AWS region" default:"us-east-1" env:"AWS_REGION"`
	AWSEndpoint string `help:"AWS endpoint (for LocalStack)" env:"AWS_ENDPOINT" default:""`
	Clean       bool   `help:"delete an existing table first" default:"false"`
	Delete      bool   `help:"delete the table instead of creating it" default:"false"`
}

func (cmd *BootstrapCmd) Run(ctx context.Context, globals *Globals) error {
	awsCfg, err := config.AWSConfig{Region: cmd.AWSRegion, Endpoint: cmd.AWSEndpoint}.LoadAWSConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	tableName := bootstrap.CertificatesTableName(cmd.Environment)
	client := dynamodb.NewFromConfig(awsCfg)

	if cmd.Delete {
		log.Info().Str("table", tableName).Msg("Deleting certificate table")
		return bootstrap.DeleteCertificatesTable(ctx, client, tableName)
	}

	log.Info().Str("table", tableName).Bool("clean", cmd.Clean).Msg("Creating certificate table")

	if err := bootstrap.CreateCertificatesTable(ctx, client, tableName, cmd.Clean); err != nil {
		return err
	}

	fmt.Printf("Certificate table %s ready\n", tableName)
	return nil
}
