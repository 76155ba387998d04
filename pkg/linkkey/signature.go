package linkkey

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// personalMessagePrefix is the EIP-191 domain-separation tag. Prefixing it
// before hashing keeps a claim signature from being replayed as a signature
// over raw transaction or protocol data.
const personalMessagePrefix = "\x19Ethereum Signed Message:\n"

// CommitToAddress hashes the raw 20 address bytes with no prefix. The
// escrow contract recomputes the same value on-chain, so the two sides
// must agree byte-for-byte.
func CommitToAddress(addr common.Address) common.Hash {
	return crypto.Keccak256Hash(addr.Bytes())
}

// PersonalHash applies the personal-message prefix to msg and hashes.
func PersonalHash(msg []byte) common.Hash {
	prefixed := fmt.Sprintf("%s%d", personalMessagePrefix, len(msg))
	return crypto.Keccak256Hash([]byte(prefixed), msg)
}

// AuthorizeClaim signs the commitment to the recipient address with the
// link key, producing the 65-byte (r, s, v) signature the escrow contract
// verifies before releasing funds. Binding the signature to the recipient
// means it is useless for claiming on behalf of anyone else. v is
// normalized to 27/28 for on-chain ecrecover.
func AuthorizeClaim(recipient common.Address, linkKey *ecdsa.PrivateKey) ([]byte, error) {
	commitment := CommitToAddress(recipient)
	digest := PersonalHash(commitment.Bytes())

	sig, err := crypto.Sign(digest.Bytes(), linkKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign claim authorization: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// Verify recovers the signer of the personal-message hash of message and
// compares it to expected. A malformed or unmatched signature reports
// false rather than an error: an unmatched recovery is simply not verified.
func Verify(message, sig []byte, expected common.Address) bool {
	if len(sig) != crypto.SignatureLength {
		return false
	}

	normalized := make([]byte, crypto.SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}

	digest := PersonalHash(message)
	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == expected
}
