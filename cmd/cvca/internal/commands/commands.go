package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/cvca/internal/ca"
	"github.com/wolfeidau/cvca/internal/config"
	"github.com/wolfeidau/cvca/internal/logger"
	"github.com/wolfeidau/cvca/internal/pki"
	"github.com/wolfeidau/cvca/internal/store"
)

// errNoRegistry is returned by commands that read back issued certificates
// when the configured store does not outlive the process.
var errNoRegistry = errors.New("this command needs a persistent certificate store, set store.backend to dynamodb")

type Globals struct {
	Debug   bool
	Version string
	Config  string
}

// environment holds what a command needs to reach the issuer and its store.
type environment struct {
	cfg    *config.Config
	aws    aws.Config
	logger zerolog.Logger
}

func setup(ctx context.Context, globals *Globals) (*environment, error) {
	cfg, err := config.Load(globals.Config)
	if err != nil {
		return nil, err
	}

	env := &environment{
		cfg:    cfg,
		logger: logger.Setup(globals.Debug),
	}

	if cfg.UsesAWS() {
		env.aws, err = cfg.AWS.LoadAWSConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
	}

	return env, nil
}

func (e *environment) keySource() (pki.KeySource, error) {
	switch {
	case e.cfg.Issuer.KeyFile != "":
		return pki.FileKeySource{Path: e.cfg.Issuer.KeyFile}, nil
	case e.cfg.Issuer.SSMParameter != "":
		return pki.NewSSMKeySource(e.aws, e.cfg.Issuer.SSMParameter), nil
	}

	ciphertext, err := os.ReadFile(e.cfg.Issuer.WrappedKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read wrapped issuer key: %w", err)
	}
	return pki.NewKMSKeySource(e.aws, e.cfg.Issuer.KMSKeyID, ciphertext), nil
}

func (e *environment) authority(ctx context.Context) (*ca.Authority, error) {
	src, err := e.keySource()
	if err != nil {
		return nil, err
	}

	signer, err := pki.NewSigner(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to create issuer signer: %w", err)
	}
	return ca.New(signer), nil
}

func (e *environment) store() store.CertificateStore {
	if e.cfg.Store.Backend == config.BackendDynamoDB {
		return store.NewDynamoDBCertificateStore(dynamodb.NewFromConfig(e.aws), e.cfg.Store.Table)
	}
	e.logger.Warn().Msg("Using in-memory certificate store, issued certificates are not persisted")
	return store.NewMemoryCertificateStore()
}

// registry returns the configured store for commands that query certificates
// registered by earlier runs.
func (e *environment) registry() (store.CertificateStore, error) {
	if e.cfg.Store.Backend != config.BackendDynamoDB {
		return nil, errNoRegistry
	}
	return e.store(), nil
}
