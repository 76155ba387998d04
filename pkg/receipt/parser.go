// Package receipt extracts the escrow-assigned deposit index from a
// confirmed transaction's event logs. Log selection is a pluggable
// strategy so the chain-specific quirks stay isolated here and never
// leak into callers.
package receipt

import (
	"fmt"
	"math/big"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrNoDepositEvent is returned when no log in the receipt matches the
	// escrow deposit event.
	ErrNoDepositEvent = errorsmod.Register("receipt", 1, "deposit event not found in receipt logs")

	// ErrMalformedEvent is returned when a selected log cannot be decoded
	// as the deposit event.
	ErrMalformedEvent = errorsmod.Register("receipt", 2, "malformed deposit event log")
)

// depositEventName must match the escrow contract's deposit event.
const depositEventName = "DepositMade"

// depositEventABI carries just the event this parser reads.
const depositEventABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "sender", "type": "address"},
			{"indexed": false, "name": "index", "type": "uint256"},
			{"indexed": false, "name": "linkType", "type": "uint8"},
			{"indexed": false, "name": "amount", "type": "uint256"}
		],
		"name": "DepositMade",
		"type": "event"
	}
]`

// LogSelector picks the deposit event log out of a receipt's log list.
type LogSelector interface {
	Select(logs []*types.Log) (*types.Log, error)
}

// TopicSelector selects the last log emitted by the escrow contract whose
// first topic is the deposit event signature. Selecting by signature is
// immune to trailing logs appended by chain infrastructure, so it is the
// default for every chain.
type TopicSelector struct {
	Contract common.Address
	Topic    common.Hash
}

// Select implements LogSelector.
func (s TopicSelector) Select(logs []*types.Log) (*types.Log, error) {
	for i := len(logs) - 1; i >= 0; i-- {
		log := logs[i]
		if log.Address == s.Contract && len(log.Topics) > 0 && log.Topics[0] == s.Topic {
			return log, nil
		}
	}
	return nil, ErrNoDepositEvent
}

// OffsetSelector selects a log at a fixed offset from the end of the log
// list: FromEnd of 1 is the last entry, 2 the second-to-last. It exists
// for chains whose infrastructure contracts append a fee-transfer log the
// protocol does not control, and is positional rather than signature-based.
type OffsetSelector struct {
	FromEnd int
}

// Select implements LogSelector.
func (s OffsetSelector) Select(logs []*types.Log) (*types.Log, error) {
	if s.FromEnd < 1 || len(logs) < s.FromEnd {
		return nil, ErrNoDepositEvent
	}
	return logs[len(logs)-s.FromEnd], nil
}

// Parser reads deposit indexes from transaction receipts. The selector for
// a chain is configuration of the parser alone; callers only see
// ExtractDepositIndex.
type Parser struct {
	escrowABI abi.ABI
	selectors map[string]LogSelector
	fallback  LogSelector
}

// Option configures a Parser.
type Option func(*Parser)

// WithSelector overrides the log selector for one chain.
func WithSelector(chainID string, selector LogSelector) Option {
	return func(p *Parser) {
		p.selectors[chainID] = selector
	}
}

// NewParser builds a parser for deposits made to the given escrow
// contract. The default selector matches on the deposit event signature;
// chains known to append a trailing infrastructure log are pre-wired to a
// positional selector reading second-to-last.
func NewParser(escrow common.Address, opts ...Option) (*Parser, error) {
	escrowABI, err := abi.JSON(strings.NewReader(depositEventABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse deposit event ABI: %w", err)
	}

	p := &Parser{
		escrowABI: escrowABI,
		selectors: map[string]LogSelector{
			// Polygon and Mumbai append a fee-transfer log after every
			// transaction. TODO: drop these entries once the deployed
			// contracts there are verified against the topic selector.
			"137":   OffsetSelector{FromEnd: 2},
			"80001": OffsetSelector{FromEnd: 2},
		},
		fallback: TopicSelector{
			Contract: escrow,
			Topic:    escrowABI.Events[depositEventName].ID,
		},
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ExtractDepositIndex returns the deposit index the escrow contract
// assigned in the transaction the receipt belongs to.
func (p *Parser) ExtractDepositIndex(rcpt *types.Receipt, chainID string) (int64, error) {
	selector, ok := p.selectors[chainID]
	if !ok {
		selector = p.fallback
	}

	log, err := selector.Select(rcpt.Logs)
	if err != nil {
		return 0, err
	}

	values, err := p.escrowABI.Unpack(depositEventName, log.Data)
	if err != nil {
		return 0, errorsmod.Wrapf(ErrMalformedEvent, "failed to unpack %s: %s", depositEventName, err)
	}
	if len(values) == 0 {
		return 0, ErrMalformedEvent
	}

	index, ok := values[0].(*big.Int)
	if !ok {
		return 0, errorsmod.Wrapf(ErrMalformedEvent, "unexpected index type %T", values[0])
	}
	if !index.IsInt64() {
		return 0, errorsmod.Wrapf(ErrMalformedEvent, "deposit index %s out of range", index)
	}
	return index.Int64(), nil
}
