// Package config loads the issuer configuration from a YAML or JSON file.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the issuer configuration.
type Config struct {
	Issuer IssuerConfig `yaml:"issuer" json:"issuer"`
	Store  StoreConfig  `yaml:"store" json:"store"`
	AWS    AWSConfig    `yaml:"aws" json:"aws"`
}

// IssuerConfig names the issuer reference and where its key comes from.
// Exactly one of KeyFile, SSMParameter or KMSKeyID must be set.
type IssuerConfig struct {
	// Reference is the issuer's holder reference, written as CAR into every
	// certificate it issues.
	Reference string `yaml:"reference" json:"reference"`

	KeyFile      string `yaml:"keyFile" json:"keyFile"`
	SSMParameter string `yaml:"ssmParameter" json:"ssmParameter"`

	// KMSKeyID and WrappedKeyFile select a key encrypted under a KMS key.
	KMSKeyID       string `yaml:"kmsKeyId" json:"kmsKeyId"`
	WrappedKeyFile string `yaml:"wrappedKeyFile" json:"wrappedKeyFile"`
}

// StoreConfig selects where issued certificates are recorded.
type StoreConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	Table   string `yaml:"table" json:"table"`
}

// AWSConfig holds AWS SDK overrides.
type AWSConfig struct {
	Region   string `yaml:"region" json:"region"`
	Endpoint string `yaml:"endpoint" json:"endpoint"` // LocalStack
}

// Load reads the configuration file at path. The format is chosen by
// extension, defaulting to YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = BackendMemory
	}
	if c.AWS.Region == "" {
		c.AWS.Region = os.Getenv("AWS_REGION")
	}
}

// Validate checks the configuration for missing or conflicting settings.
func (c *Config) Validate() error {
	if len(c.Issuer.Reference) != 8 {
		return fmt.Errorf("%w: issuer.reference must be 8 characters, got %q", ErrInvalidConfig, c.Issuer.Reference)
	}

	sources := 0
	for _, set := range []string{c.Issuer.KeyFile, c.Issuer.SSMParameter, c.Issuer.KMSKeyID} {
		if set != "" {
			sources++
		}
	}

	switch {
	case sources == 0:
		return fmt.Errorf("%w: one of issuer.keyFile, issuer.ssmParameter or issuer.kmsKeyId is required", ErrInvalidConfig)
	case sources > 1:
		return fmt.Errorf("%w: issuer.keyFile, issuer.ssmParameter and issuer.kmsKeyId are mutually exclusive", ErrInvalidConfig)
	case c.Issuer.KMSKeyID != "" && c.Issuer.WrappedKeyFile == "":
		return fmt.Errorf("%w: issuer.wrappedKeyFile is required with issuer.kmsKeyId", ErrInvalidConfig)
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendDynamoDB:
		if c.Store.Table == "" {
			return fmt.Errorf("%w: store.table is required for the dynamodb backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store.backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	return nil
}

// UsesAWS reports whether the configuration needs AWS credentials.
func (c *Config) UsesAWS() bool {
	return c.Issuer.KMSKeyID != "" || c.Issuer.SSMParameter != "" || c.Store.Backend == BackendDynamoDB
}

// LoadAWSConfig loads AWS configuration with optional region and endpoint
// overrides.
func (c AWSConfig) LoadAWSConfig(ctx context.Context) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}
	if c.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(c.Endpoint))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}
