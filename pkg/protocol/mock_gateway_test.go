package protocol_test

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/linkforge/claimlink/pkg/gateway"
	"github.com/linkforge/claimlink/pkg/linkkey"
)

var depositMadeTopic = crypto.Keccak256Hash([]byte("DepositMade(address,uint256,uint8,uint256)"))

// escrowDeposit mirrors the contract's deposit record.
type escrowDeposit struct {
	linkType  uint8
	amount    *big.Int
	tokenID   *big.Int
	claimer   common.Address
	claimed   bool
	recipient common.Address
}

// escrowGateway simulates the escrow contract in memory so create and
// claim can be exercised end to end, including mined-but-reverted
// outcomes surfaced from AwaitConfirmation.
type escrowGateway struct {
	mu       sync.Mutex
	chainID  string
	escrow   common.Address
	sender   common.Address
	deposits []*escrowDeposit

	// emit an extra trailing log after every transaction, the way some
	// chains' infrastructure contracts do
	trailingInfraLog bool

	depositCalls  int
	withdrawCalls int
	rejectDeposit error
}

func newEscrowGateway(chainID string) *escrowGateway {
	return &escrowGateway{
		chainID: chainID,
		escrow:  common.HexToAddress("0xE5C20000000000000000000000000000000000E5"),
		sender:  common.HexToAddress("0x00000000000000000000000000000000000000AA"),
	}
}

func (g *escrowGateway) EscrowAddress() common.Address { return g.escrow }
func (g *escrowGateway) ChainID() string               { return g.chainID }

func (g *escrowGateway) Deposit(_ context.Context, params gateway.DepositParams) (gateway.TxHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.depositCalls++
	if g.rejectDeposit != nil {
		return nil, g.rejectDeposit
	}

	index := int64(len(g.deposits))
	g.deposits = append(g.deposits, &escrowDeposit{
		linkType: params.LinkType,
		amount:   new(big.Int).Set(params.Amount),
		tokenID:  new(big.Int).Set(params.TokenID),
		claimer:  params.Claimer,
	})

	rcpt := &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs:   []*types.Log{g.depositLog(index, params.LinkType, params.Amount)},
	}
	if g.trailingInfraLog {
		rcpt.Logs = append(rcpt.Logs, &types.Log{
			Address: common.HexToAddress("0x0000000000000000000000000000000000001010"),
			Data:    make([]byte, 32),
		})
	}

	return &mockTxHandle{hash: txHash(g.depositCalls), receipt: rcpt}, nil
}

func (g *escrowGateway) Withdraw(_ context.Context, params gateway.WithdrawParams) (gateway.TxHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.withdrawCalls++
	hash := txHash(1000 + g.withdrawCalls)

	// The contract's checks happen at execution, so failures surface as
	// mined-but-reverted from AwaitConfirmation, not as submit errors.
	revert := func(reason string) (gateway.TxHandle, error) {
		return &mockTxHandle{
			hash:    hash,
			receipt: &types.Receipt{Status: types.ReceiptStatusFailed},
			err:     gateway.ErrTransactionReverted.Wrap(reason),
		}, nil
	}

	if params.DepositIndex < 0 || params.DepositIndex >= int64(len(g.deposits)) {
		return revert("deposit does not exist")
	}
	deposit := g.deposits[params.DepositIndex]
	if deposit.claimed {
		return revert("deposit already claimed")
	}
	if linkkey.CommitToAddress(params.Recipient) != params.RecipientHash {
		return revert("recipient hash mismatch")
	}
	if !linkkey.Verify(params.RecipientHash.Bytes(), params.Signature, deposit.claimer) {
		return revert("invalid claim signature")
	}

	deposit.claimed = true
	deposit.recipient = params.Recipient

	return &mockTxHandle{
		hash:    hash,
		receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful},
	}, nil
}

func (g *escrowGateway) depositLog(index int64, linkType uint8, amount *big.Int) *types.Log {
	data := make([]byte, 0, 96)
	data = append(data, common.BigToHash(big.NewInt(index)).Bytes()...)
	data = append(data, common.BigToHash(big.NewInt(int64(linkType))).Bytes()...)
	data = append(data, common.BigToHash(amount).Bytes()...)

	return &types.Log{
		Address: g.escrow,
		Topics:  []common.Hash{depositMadeTopic, g.sender.Hash()},
		Data:    data,
	}
}

func txHash(n int) common.Hash {
	return common.BigToHash(big.NewInt(int64(n)))
}

type mockTxHandle struct {
	hash    common.Hash
	receipt *types.Receipt
	err     error
}

func (h *mockTxHandle) Hash() common.Hash { return h.hash }

func (h *mockTxHandle) AwaitConfirmation(context.Context) (*types.Receipt, error) {
	if h.err != nil {
		return h.receipt, h.err
	}
	return h.receipt, nil
}

// fixedSecretSource pins the generated secret for tests.
type fixedSecretSource struct {
	secret string
}

func (s fixedSecretSource) Generate() (string, error) {
	return s.secret, nil
}
