package pki

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// SSMParameterGetter is the subset of the SSM client used to read issuer keys.
type SSMParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMKeySource loads a PEM issuer key from an SSM SecureString parameter.
type SSMKeySource struct {
	client SSMParameterGetter
	name   string
}

// NewSSMKeySource creates a key source for the parameter name.
func NewSSMKeySource(awsConfig aws.Config, name string) *SSMKeySource {
	return NewSSMKeySourceWithClient(ssm.NewFromConfig(awsConfig), name)
}

// NewSSMKeySourceWithClient is like NewSSMKeySource with an explicit client.
func NewSSMKeySourceWithClient(client SSMParameterGetter, name string) *SSMKeySource {
	return &SSMKeySource{client: client, name: name}
}

// LoadKey fetches and decrypts the parameter and parses it as an RSA private key.
func (s *SSMKeySource) LoadKey(ctx context.Context) (*rsa.PrivateKey, error) {
	output, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load issuer key from SSM: %w", err)
	}
	if output.Parameter == nil || output.Parameter.Value == nil {
		return nil, fmt.Errorf("parameter %s has no value", s.name)
	}

	key, err := ParseRSAPrivateKey([]byte(*output.Parameter.Value))
	if err != nil {
		return nil, fmt.Errorf("failed to parse issuer key from parameter %s: %w", s.name, err)
	}
	return key, nil
}
