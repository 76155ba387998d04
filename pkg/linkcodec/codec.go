// Package linkcodec maps claim-link parameters to and from the shareable
// URL form. The query keys and their order are fixed protocol surface:
// links already shared must keep decoding across releases.
package linkcodec

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	keyChain        = "c"
	keyVersion      = "v"
	keyDepositIndex = "i"
	keySecret       = "p"
)

// IndexAbsent marks a link whose deposit-index parameter was missing.
const IndexAbsent int64 = -1

// Params is the tuple a claim link carries. All real state lives in the
// escrow contract, keyed by DepositIndex.
type Params struct {
	Chain        string
	Version      string
	DepositIndex int64
	Secret       string
}

// Encode builds the shareable link:
//
//	<baseURL>?c=<chain>&v=<version>&i=<depositIndex>&p=<secret>
//
// Pure string assembly, no validation; fields are query-escaped.
func Encode(baseURL string, p Params) string {
	return fmt.Sprintf("%s?%s=%s&%s=%s&%s=%d&%s=%s",
		baseURL,
		keyChain, url.QueryEscape(p.Chain),
		keyVersion, url.QueryEscape(p.Version),
		keyDepositIndex, p.DepositIndex,
		keySecret, url.QueryEscape(p.Secret),
	)
}

// Decode parses a claim link. Decoding is lenient: a missing parameter
// decodes to its zero value (IndexAbsent for the deposit index) and
// validation is left to the caller. It fails only when the URL itself does
// not parse or the deposit index is present but not an integer.
func Decode(link string) (Params, error) {
	u, err := url.Parse(link)
	if err != nil {
		return Params{}, fmt.Errorf("failed to parse link: %w", err)
	}

	q := u.Query()
	p := Params{
		Chain:        q.Get(keyChain),
		Version:      q.Get(keyVersion),
		DepositIndex: IndexAbsent,
		Secret:       q.Get(keySecret),
	}

	if raw := q.Get(keyDepositIndex); raw != "" {
		idx, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Params{}, fmt.Errorf("deposit index %q is not an integer: %w", raw, err)
		}
		p.DepositIndex = idx
	}

	return p, nil
}
