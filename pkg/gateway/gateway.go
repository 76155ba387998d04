// Package gateway is the boundary to the escrow contract. Everything that
// talks to the network lives here; the link protocol core only sees the
// ContractGateway interface.
package gateway

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Link types are contract-defined and must not be renumbered.
const (
	LinkTypeNative  uint8 = 0 // native coin
	LinkTypeERC20   uint8 = 1 // fungible token
	LinkTypeERC721  uint8 = 2 // non-fungible token
	LinkTypeERC1155 uint8 = 3 // multi-token
)

// DepositParams describes one escrow deposit.
type DepositParams struct {
	TokenAddress common.Address
	LinkType     uint8
	Amount       *big.Int
	TokenID      *big.Int
	// Claimer is the address derived from the link secret; the contract
	// stores it as the claimer commitment.
	Claimer common.Address
	// Value is the native value sent with the transaction (equal to
	// Amount for native-coin deposits, zero otherwise).
	Value *big.Int
}

// WithdrawParams describes one claim attempt.
type WithdrawParams struct {
	DepositIndex  int64
	Recipient     common.Address
	RecipientHash common.Hash
	Signature     []byte
}

// TxHandle tracks a submitted transaction until inclusion.
type TxHandle interface {
	Hash() common.Hash
	// AwaitConfirmation blocks until the transaction is mined. A mined but
	// reverted transaction returns the receipt together with
	// ErrTransactionReverted carrying the chain-reported reason.
	AwaitConfirmation(ctx context.Context) (*types.Receipt, error)
}

// ContractGateway submits deposit and withdraw transactions to the escrow
// contract of one chain and one protocol version.
type ContractGateway interface {
	Deposit(ctx context.Context, params DepositParams) (TxHandle, error)
	Withdraw(ctx context.Context, params WithdrawParams) (TxHandle, error)
	EscrowAddress() common.Address
	ChainID() string
}
