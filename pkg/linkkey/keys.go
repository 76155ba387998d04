package linkkey

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrEmptySecret is returned when a key pair is requested for a zero-length secret.
var ErrEmptySecret = errors.New("secret must not be empty")

// KeyPair is the secp256k1 key pair derived from a link secret.
// It is recomputed on demand and never persisted.
type KeyPair struct {
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

// DeriveKeyPair deterministically maps a secret to a key pair: the private
// scalar is keccak256(secret), the address follows from the public key.
// Two parties who learn the same secret derive bit-identical keys with no
// coordination, so no entropy source is consulted and no salt is applied.
func DeriveKeyPair(secret []byte) (KeyPair, error) {
	if len(secret) == 0 {
		return KeyPair{}, ErrEmptySecret
	}

	privateKey, err := crypto.ToECDSA(crypto.Keccak256(secret))
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to derive private key: %w", err)
	}

	return KeyPair{
		PrivateKey: privateKey,
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// PrivateKeyBytes returns the 32-byte private scalar.
func (kp KeyPair) PrivateKeyBytes() []byte {
	return crypto.FromECDSA(kp.PrivateKey)
}

// PublicKeyBytes returns the uncompressed 65-byte public key.
func (kp KeyPair) PublicKeyBytes() []byte {
	return crypto.FromECDSAPub(&kp.PrivateKey.PublicKey)
}
