package pki

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/cvca/internal/telemetry"
)

// KMSDecrypter is the subset of the KMS client used to unwrap issuer keys.
type KMSDecrypter interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// KMSKeySource unwraps an issuer key that was encrypted under an AWS KMS key.
//
// KMS has no raw RSA signing operation, which ISO/IEC 9796-2 needs, so the
// private key is kept encrypted at rest and only decrypted into memory when
// the signer is created.
type KMSKeySource struct {
	client     KMSDecrypter
	kmsKeyID   string
	ciphertext []byte

	// MaxTries bounds the attempts made for throttled or transient failures.
	MaxTries uint
}

// NewKMSKeySource creates a key source for a ciphertext blob produced by
// kms.Encrypt under kmsKeyID. The kmsKeyID can be a key ID, key ARN, alias
// name, or alias ARN.
func NewKMSKeySource(awsConfig aws.Config, kmsKeyID string, ciphertext []byte) *KMSKeySource {
	return NewKMSKeySourceWithClient(kms.NewFromConfig(awsConfig), kmsKeyID, ciphertext)
}

// NewKMSKeySourceWithClient is like NewKMSKeySource with an explicit client.
func NewKMSKeySourceWithClient(client KMSDecrypter, kmsKeyID string, ciphertext []byte) *KMSKeySource {
	return &KMSKeySource{
		client:     client,
		kmsKeyID:   kmsKeyID,
		ciphertext: ciphertext,
		MaxTries:   3,
	}
}

// LoadKey decrypts the wrapped key and parses it as an RSA private key.
func (k *KMSKeySource) LoadKey(ctx context.Context) (*rsa.PrivateKey, error) {
	decrypt := func() ([]byte, error) {
		out, err := k.client.Decrypt(ctx, &kms.DecryptInput{
			CiphertextBlob: k.ciphertext,
			KeyId:          aws.String(k.kmsKeyID),
		})
		if err != nil {
			if isPermanentKMSError(err) {
				return nil, backoff.Permanent(err)
			}
			log.Warn().Err(err).Str("kms_key_id", k.kmsKeyID).Msg("KMS decrypt failed, retrying")
			telemetry.GetMetrics().KeyLoadRetriesTotal.Add(ctx, 1)
			return nil, err
		}
		return out.Plaintext, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond

	plaintext, err := backoff.Retry(ctx, decrypt,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(k.MaxTries),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt issuer key with KMS: %w", err)
	}

	key, err := ParseRSAPrivateKey(plaintext)
	clear(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to parse KMS decrypted issuer key: %w", err)
	}
	return key, nil
}

// isPermanentKMSError reports errors that retrying cannot fix.
func isPermanentKMSError(err error) bool {
	var (
		invalidCiphertext *types.InvalidCiphertextException
		incorrectKey      *types.IncorrectKeyException
		notFound          *types.NotFoundException
		disabled          *types.DisabledException
		invalidState      *types.KMSInvalidStateException
	)
	return errors.As(err, &invalidCiphertext) ||
		errors.As(err, &incorrectKey) ||
		errors.As(err, &notFound) ||
		errors.As(err, &disabled) ||
		errors.As(err, &invalidState) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
