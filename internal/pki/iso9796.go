package pki

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
)

const (
	// trailerImplicit marks the hash function as implied by the context.
	trailerImplicit = 0xBC

	headerPartialRecovery = 0x60
	headerFullRecovery    = 0x40

	padFiller     = 0xBB
	padTerminator = 0x01

	minModulusBits = 1024
)

var (
	// ErrUnsupportedKey is returned for issuer keys the signer cannot use.
	ErrUnsupportedKey = errors.New("unsupported issuer key")

	// ErrInvalidSignature is returned when a signature does not recover to a
	// well formed, matching representative.
	ErrInvalidSignature = errors.New("invalid message recovery signature")
)

// ISO9796Signer implements ISO/IEC 9796-2 digital signature scheme 1 with
// SHA-256 and the implicit trailer. Messages that fit the representative are
// fully recovered; longer messages are partially recovered and the signer
// reports how many leading bytes were embedded.
//
// The signer is deterministic and holds no mutable state, it can be shared
// between goroutines.
type ISO9796Signer struct {
	key *rsa.PrivateKey
}

// NewISO9796Signer binds a signer to key. The modulus must be a whole number of
// bytes long so that the representative header always stays below it.
func NewISO9796Signer(key *rsa.PrivateKey) (*ISO9796Signer, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: missing private key", ErrUnsupportedKey)
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKey, err)
	}
	if key.N.BitLen() < minModulusBits {
		return nil, fmt.Errorf("%w: modulus of %d bits is below %d", ErrUnsupportedKey, key.N.BitLen(), minModulusBits)
	}
	if key.N.BitLen()%8 != 0 {
		return nil, fmt.Errorf("%w: modulus of %d bits is not byte aligned", ErrUnsupportedKey, key.N.BitLen())
	}
	return &ISO9796Signer{key: key}, nil
}

// Public returns the issuer public key.
func (s *ISO9796Signer) Public() *rsa.PublicKey {
	return &s.key.PublicKey
}

// SignRecoverable signs msg and reports the length of the recovered prefix.
func (s *ISO9796Signer) SignRecoverable(ctx context.Context, msg []byte) (Signature, error) {
	if err := ctx.Err(); err != nil {
		return Signature{}, err
	}

	block, recovered := representative(s.key.N.BitLen(), msg)

	m := new(big.Int).SetBytes(block)
	sig, err := s.privateOp(m)
	if err != nil {
		return Signature{}, err
	}

	return Signature{
		Value:     sig.FillBytes(make([]byte, len(block))),
		Recovered: recovered,
	}, nil
}

// representative builds the message representative for a modulus of keyBits
// bits and returns it together with the number of message bytes it embeds.
//
//	[header|padding ... 0xBA][recovered message][SHA-256(msg)][0xBC]
func representative(keyBits int, msg []byte) ([]byte, int) {
	block := make([]byte, (keyBits+7)/8)
	digest := sha256.Sum256(msg)

	delta := len(block) - len(digest) - 1
	copy(block[delta:], digest[:])
	block[len(block)-1] = trailerImplicit

	var header byte
	recovered := len(msg)
	if x := (len(digest)+len(msg))*8 + 8 + 4 - keyBits; x > 0 {
		header = headerPartialRecovery
		recovered = len(msg) - (x+7)/8
	} else {
		header = headerFullRecovery
	}

	delta -= recovered
	copy(block[delta:], msg[:recovered])

	if delta-1 > 0 {
		for i := delta - 1; i != 0; i-- {
			block[i] = padFiller
		}
		block[delta-1] ^= padTerminator
		block[0] = 0x0B | header
	} else {
		block[0] = 0x0A | header
	}

	return block, recovered
}

// privateOp computes m^d mod n with blinding and checks the result against the
// public key before releasing it.
func (s *ISO9796Signer) privateOp(m *big.Int) (*big.Int, error) {
	n := s.key.N
	e := big.NewInt(int64(s.key.E))

	var r, rInv *big.Int
	for {
		var err error
		r, err = rand.Int(rand.Reader, n)
		if err != nil {
			return nil, fmt.Errorf("failed to generate blinding factor: %w", err)
		}
		if r.Sign() == 0 {
			continue
		}
		if rInv = new(big.Int).ModInverse(r, n); rInv != nil {
			break
		}
	}

	blinded := new(big.Int).Exp(r, e, n)
	blinded.Mul(blinded, m).Mod(blinded, n)

	sig := new(big.Int).Exp(blinded, s.key.D, n)
	sig.Mul(sig, rInv).Mod(sig, n)

	if check := new(big.Int).Exp(sig, e, n); check.Cmp(m) != 0 {
		return nil, errors.New("rsa private operation failed consistency check")
	}
	return sig, nil
}

// Recover reverses SignRecoverable: it opens signature with the issuer public
// key, checks the representative against trailing (the part of the message
// that was not embedded) and returns the complete message.
func Recover(pub *rsa.PublicKey, signature, trailing []byte) ([]byte, error) {
	if pub == nil || pub.N == nil {
		return nil, fmt.Errorf("%w: missing public key", ErrUnsupportedKey)
	}

	k := (pub.N.BitLen() + 7) / 8
	if len(signature) != k {
		return nil, fmt.Errorf("%w: signature is %d bytes, modulus %d", ErrInvalidSignature, len(signature), k)
	}

	s := new(big.Int).SetBytes(signature)
	if s.Cmp(pub.N) >= 0 {
		return nil, fmt.Errorf("%w: signature out of range", ErrInvalidSignature)
	}
	block := new(big.Int).Exp(s, big.NewInt(int64(pub.E)), pub.N).FillBytes(make([]byte, k))

	if block[0]&0xD0 != 0x40 {
		return nil, fmt.Errorf("%w: bad representative header 0x%02X", ErrInvalidSignature, block[0])
	}
	if block[k-1] != trailerImplicit {
		return nil, fmt.Errorf("%w: unsupported trailer 0x%02X", ErrInvalidSignature, block[k-1])
	}

	hashStart := k - 1 - sha256.Size
	start, err := messageStart(block[:hashStart])
	if err != nil {
		return nil, err
	}

	partial := block[0]&0x20 != 0
	if !partial && len(trailing) > 0 {
		return nil, fmt.Errorf("%w: fully recovered signature with %d trailing bytes", ErrInvalidSignature, len(trailing))
	}

	msg := make([]byte, 0, hashStart-start+len(trailing))
	msg = append(msg, block[start:hashStart]...)
	msg = append(msg, trailing...)

	digest := sha256.Sum256(msg)
	if subtle.ConstantTimeCompare(digest[:], block[hashStart:k-1]) != 1 {
		return nil, fmt.Errorf("%w: message digest mismatch", ErrInvalidSignature)
	}

	return msg, nil
}

// messageStart returns the offset of the embedded message in a representative
// whose hash and trailer have been cut off. The header nibble is 0xA when the
// message follows immediately, or 0xB when a run of 0xBB filler ending in 0xBA
// comes first.
func messageStart(head []byte) (int, error) {
	switch head[0] & 0x0F {
	case 0x0A:
		return 1, nil
	case 0x0B:
		i := 1
		for i < len(head) && head[i] == padFiller {
			i++
		}
		if i == len(head) || head[i] != padFiller^padTerminator {
			return 0, fmt.Errorf("%w: malformed padding in representative", ErrInvalidSignature)
		}
		return i + 1, nil
	default:
		return 0, fmt.Errorf("%w: no message boundary in representative", ErrInvalidSignature)
	}
}
