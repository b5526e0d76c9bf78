package pki

import (
	"context"
	"crypto/rsa"
)

// Signature is the result of a message recovery signature.
type Signature struct {
	// Value is the signature, exactly as long as the issuer modulus in bytes.
	Value []byte

	// Recovered is the length of the message prefix embedded in Value. A
	// verifier reconstructs those bytes from Value alone; the rest of the
	// message has to be transmitted next to the signature.
	Recovered int
}

// RecoverySigner signs messages with a scheme that embeds part of the message
// in the signature. Implementations include ISO9796Signer backed by a key
// loaded from a file (FileKeySource), an SSM parameter (SSMKeySource) or
// unwrapped through AWS KMS (KMSKeySource).
type RecoverySigner interface {
	// SignRecoverable signs msg. Signing may be slow or hardware bound, so
	// callers can bound it with ctx.
	SignRecoverable(ctx context.Context, msg []byte) (Signature, error)

	// Public returns the issuer public key matching the signing key.
	Public() *rsa.PublicKey
}

// KeySource loads an issuer RSA private key.
type KeySource interface {
	LoadKey(ctx context.Context) (*rsa.PrivateKey, error)
}

// NewSigner loads the issuer key from src and returns an ISO/IEC 9796-2
// signer bound to it.
func NewSigner(ctx context.Context, src KeySource) (*ISO9796Signer, error) {
	key, err := src.LoadKey(ctx)
	if err != nil {
		return nil, err
	}
	return NewISO9796Signer(key)
}
