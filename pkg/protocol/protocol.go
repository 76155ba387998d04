// Package protocol composes key derivation, the signature scheme, the
// link codec, and the receipt parser with a ContractGateway into the two
// end-to-end operations of the claim-link protocol: create and claim.
//
// The protocol holds no mutable state between calls; concurrent
// invocations for different links never interact. Suspension happens only
// inside the gateway (submitting a transaction and awaiting its
// confirmation), and cancellation is whatever the caller's context says.
package protocol

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/linkforge/claimlink/pkg/gateway"
	"github.com/linkforge/claimlink/pkg/linkcodec"
	"github.com/linkforge/claimlink/pkg/linkkey"
	"github.com/linkforge/claimlink/pkg/receipt"
)

// Protocol orchestrates create and claim against one chain and one
// protocol version.
type Protocol struct {
	gateway gateway.ContractGateway
	parser  *receipt.Parser
	baseURL string
	version string
	secrets SecretSource
	logger  *zap.Logger
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithSecretSource overrides the secret source used when a create request
// carries no explicit password.
func WithSecretSource(source SecretSource) Option {
	return func(p *Protocol) { p.secrets = source }
}

// New builds a Protocol. baseURL and version come from configuration; the
// version is explicit here so multiple contract generations can be driven
// side by side.
func New(gw gateway.ContractGateway, parser *receipt.Parser, baseURL, version string, logger *zap.Logger, opts ...Option) *Protocol {
	p := &Protocol{
		gateway: gw,
		parser:  parser,
		baseURL: baseURL,
		version: version,
		secrets: NewRandomSecretSource(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CreateRequest describes a deposit to escrow.
type CreateRequest struct {
	LinkType     uint8
	TokenAddress common.Address
	Amount       *big.Int
	TokenID      *big.Int
	// Secret is the link password. Empty means generate one.
	Secret string
}

// CreateResult is the outcome of a successful create.
type CreateResult struct {
	Link         string
	DepositIndex int64
	Secret       string
	Receipt      *types.Receipt
}

// CreateLink deposits assets into escrow and encodes the claim link. The
// link is encoded only after the deposit transaction is confirmed, because
// the contract assigns the deposit index at inclusion time.
func (p *Protocol) CreateLink(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount.Wrap("amount must be positive")
	}

	secret := req.Secret
	if secret == "" {
		generated, err := p.secrets.Generate()
		if err != nil {
			return nil, err
		}
		secret = generated
	}

	keyPair, err := linkkey.DeriveKeyPair([]byte(secret))
	if err != nil {
		return nil, err
	}

	tokenID := req.TokenID
	if tokenID == nil {
		tokenID = big.NewInt(0)
	}
	value := big.NewInt(0)
	if req.LinkType == gateway.LinkTypeNative {
		value = req.Amount
	}

	handle, err := p.gateway.Deposit(ctx, gateway.DepositParams{
		TokenAddress: req.TokenAddress,
		LinkType:     req.LinkType,
		Amount:       req.Amount,
		TokenID:      tokenID,
		Claimer:      keyPair.Address,
		Value:        value,
	})
	if err != nil {
		// Rejected before inclusion: nothing to roll back, no link exists.
		return nil, err
	}

	rcpt, err := handle.AwaitConfirmation(ctx)
	if err != nil {
		// Mined but reverted, or never confirmed. Distinct from outright
		// rejection since gas may have been spent.
		return nil, err
	}

	index, err := p.parser.ExtractDepositIndex(rcpt, p.gateway.ChainID())
	if err != nil {
		return nil, err
	}

	link := linkcodec.Encode(p.baseURL, linkcodec.Params{
		Chain:        p.gateway.ChainID(),
		Version:      p.version,
		DepositIndex: index,
		Secret:       secret,
	})

	p.logger.Info("claim link created",
		zap.String("chain", p.gateway.ChainID()),
		zap.Int64("deposit_index", index),
		zap.String("tx_hash", handle.Hash().Hex()))

	return &CreateResult{
		Link:         link,
		DepositIndex: index,
		Secret:       secret,
		Receipt:      rcpt,
	}, nil
}

// ClaimRequest describes a claim attempt.
type ClaimRequest struct {
	Link      string
	Recipient common.Address
}

// ClaimResult is the outcome of a successful claim.
type ClaimResult struct {
	DepositIndex int64
	Receipt      *types.Receipt
}

// ClaimLink decodes the link, derives the link key from its secret, signs
// the recipient commitment, and submits the withdrawal. A contract
// rejection is terminal and reported verbatim: a rejected claim signature
// never becomes valid by resubmission.
func (p *Protocol) ClaimLink(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	params, err := linkcodec.Decode(req.Link)
	if err != nil {
		return nil, ErrMalformedLink.Wrap(err.Error())
	}
	if params.Chain == "" || params.Version == "" || params.DepositIndex < 0 {
		return nil, ErrMalformedLink.Wrap("link is missing chain, version, or deposit index")
	}
	if params.Chain != p.gateway.ChainID() {
		return nil, gateway.ErrUnknownChain.Wrapf("link targets chain %s, gateway serves %s", params.Chain, p.gateway.ChainID())
	}
	if params.Version != p.version {
		return nil, gateway.ErrUnknownVersion.Wrapf("link targets version %s, protocol serves %s", params.Version, p.version)
	}
	if req.Recipient == (common.Address{}) {
		return nil, ErrMalformedLink.Wrap("recipient address must be set")
	}

	if params.Secret == "" {
		return nil, ErrVerificationMismatch.Wrap("link carries no secret")
	}
	keyPair, err := linkkey.DeriveKeyPair([]byte(params.Secret))
	if err != nil {
		return nil, ErrVerificationMismatch.Wrap(err.Error())
	}

	signature, err := linkkey.AuthorizeClaim(req.Recipient, keyPair.PrivateKey)
	if err != nil {
		return nil, err
	}

	commitment := linkkey.CommitToAddress(req.Recipient)
	if !linkkey.Verify(commitment.Bytes(), signature, keyPair.Address) {
		return nil, ErrVerificationMismatch.Wrap("signature does not recover to the link address")
	}

	handle, err := p.gateway.Withdraw(ctx, gateway.WithdrawParams{
		DepositIndex:  params.DepositIndex,
		Recipient:     req.Recipient,
		RecipientHash: commitment,
		Signature:     signature,
	})
	if err != nil {
		return nil, err
	}

	rcpt, err := handle.AwaitConfirmation(ctx)
	if err != nil {
		return nil, err
	}

	p.logger.Info("claim link redeemed",
		zap.String("chain", params.Chain),
		zap.Int64("deposit_index", params.DepositIndex),
		zap.String("recipient", req.Recipient.Hex()),
		zap.String("tx_hash", handle.Hash().Hex()))

	return &ClaimResult{
		DepositIndex: params.DepositIndex,
		Receipt:      rcpt,
	}, nil
}
