package protocol

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// SecretSource supplies secrets for links created without an explicit
// password. It is an injected capability so tests can pin the secret.
type SecretSource interface {
	Generate() (string, error)
}

const (
	secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	secretLength   = 16
)

// randomSecretSource draws 16 alphanumeric characters from crypto/rand,
// roughly 95 bits of entropy, enough to make offline search infeasible.
type randomSecretSource struct{}

// NewRandomSecretSource returns the production secret source.
func NewRandomSecretSource() SecretSource {
	return randomSecretSource{}
}

func (randomSecretSource) Generate() (string, error) {
	max := big.NewInt(int64(len(secretAlphabet)))
	out := make([]byte, secretLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read randomness: %w", err)
		}
		out[i] = secretAlphabet[n.Int64()]
	}
	return string(out), nil
}
