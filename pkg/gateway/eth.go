package gateway

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/linkforge/claimlink/pkg/config"
)

const defaultConfirmationTimeout = 2 * time.Minute

// EthGateway implements ContractGateway against an EVM chain.
type EthGateway struct {
	chainID    string
	evmChainID *big.Int
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	escrow     common.Address
	escrowABI  abi.ABI
	gasLimit   uint64
	timeout    time.Duration
	logger     *zap.Logger
}

// NewEthGateway resolves the chain and protocol version to a configured
// RPC endpoint and escrow contract address and connects. An unknown chain
// or version fails here, before any network I/O is attempted.
func NewEthGateway(cfg *config.Config, chainID, version string, logger *zap.Logger) (*EthGateway, error) {
	chainCfg, ok := cfg.Chains[chainID]
	if !ok {
		return nil, ErrUnknownChain.Wrap(chainID)
	}
	escrowHex, ok := cfg.EscrowAddress(version, chainID)
	if !ok {
		return nil, ErrUnknownVersion.Wrapf("version %s has no escrow contract on chain %s", version, chainID)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(chainCfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}

	client, err := ethclient.Dial(chainCfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to node: %w", err)
	}

	evmChainID, err := client.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	escrowABI, err := abi.JSON(strings.NewReader(EscrowABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse escrow ABI: %w", err)
	}

	timeout := chainCfg.ConfirmationTimeout
	if timeout <= 0 {
		timeout = defaultConfirmationTimeout
	}

	gw := &EthGateway{
		chainID:    chainID,
		evmChainID: evmChainID,
		client:     client,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		escrow:     common.HexToAddress(escrowHex),
		escrowABI:  escrowABI,
		gasLimit:   chainCfg.GasLimit,
		timeout:    timeout,
		logger:     logger,
	}

	logger.Info("escrow gateway initialized",
		zap.String("chain_id", chainID),
		zap.String("escrow", gw.escrow.Hex()),
		zap.String("sender", gw.address.Hex()))

	return gw, nil
}

// EscrowAddress returns the resolved escrow contract address.
func (g *EthGateway) EscrowAddress() common.Address {
	return g.escrow
}

// ChainID returns the protocol chain identifier this gateway serves.
func (g *EthGateway) ChainID() string {
	return g.chainID
}

// Deposit submits a makeDeposit transaction to the escrow contract.
func (g *EthGateway) Deposit(ctx context.Context, params DepositParams) (TxHandle, error) {
	data, err := g.escrowABI.Pack("makeDeposit",
		params.TokenAddress,
		params.LinkType,
		params.Amount,
		params.TokenID,
		params.Claimer,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack makeDeposit call: %w", err)
	}

	handle, err := g.submit(ctx, data, params.Value)
	if err != nil {
		return nil, err
	}

	g.logger.Info("deposit transaction sent",
		zap.String("tx_hash", handle.Hash().Hex()),
		zap.Uint8("link_type", params.LinkType),
		zap.String("amount", params.Amount.String()))

	return handle, nil
}

// Withdraw submits a withdrawDeposit transaction carrying the claim proof.
func (g *EthGateway) Withdraw(ctx context.Context, params WithdrawParams) (TxHandle, error) {
	data, err := g.escrowABI.Pack("withdrawDeposit",
		big.NewInt(params.DepositIndex),
		params.Recipient,
		[32]byte(params.RecipientHash),
		params.Signature,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack withdrawDeposit call: %w", err)
	}

	handle, err := g.submit(ctx, data, big.NewInt(0))
	if err != nil {
		return nil, err
	}

	g.logger.Info("withdraw transaction sent",
		zap.String("tx_hash", handle.Hash().Hex()),
		zap.Int64("deposit_index", params.DepositIndex),
		zap.String("recipient", params.Recipient.Hex()))

	return handle, nil
}

// submit signs and sends a transaction to the escrow contract. A remote
// rejection before inclusion is terminal: resubmitting identical
// parameters would fail identically, so no retry happens here.
func (g *EthGateway) submit(ctx context.Context, data []byte, value *big.Int) (TxHandle, error) {
	nonce, err := g.client.PendingNonceAt(ctx, g.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	if value == nil {
		value = big.NewInt(0)
	}
	tx := types.NewTransaction(nonce, g.escrow, value, g.gasLimit, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(g.evmChainID), g.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := g.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, ErrTransactionRejected.Wrap(err.Error())
	}

	return &ethTxHandle{
		client:  g.client,
		hash:    signedTx.Hash(),
		from:    g.address,
		timeout: g.timeout,
		logger:  g.logger,
	}, nil
}

type ethTxHandle struct {
	client  *ethclient.Client
	hash    common.Hash
	from    common.Address
	timeout time.Duration
	logger  *zap.Logger
}

// Hash returns the transaction hash.
func (h *ethTxHandle) Hash() common.Hash {
	return h.hash
}

// AwaitConfirmation polls for the transaction receipt with exponential
// backoff until it appears, the timeout elapses, or ctx is cancelled.
func (h *ethTxHandle) AwaitConfirmation(ctx context.Context) (*types.Receipt, error) {
	var rcpt *types.Receipt

	poll := func() error {
		r, err := h.client.TransactionReceipt(ctx, h.hash)
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				return err // not mined yet, keep polling
			}
			return backoff.Permanent(err)
		}
		rcpt = r
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = h.timeout
	if err := backoff.Retry(poll, backoff.WithContext(policy, ctx)); err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, ErrConfirmationTimeout.Wrap(h.hash.Hex())
		}
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}

	if rcpt.Status == types.ReceiptStatusFailed {
		reason := h.revertReason(ctx, rcpt)
		h.logger.Warn("transaction reverted",
			zap.String("tx_hash", h.hash.Hex()),
			zap.String("reason", reason))
		return rcpt, ErrTransactionReverted.Wrap(reason)
	}

	return rcpt, nil
}

// revertReason replays the transaction as a call at its inclusion block to
// recover the chain-reported revert reason. Best effort: nodes without
// archive state return a generic message.
func (h *ethTxHandle) revertReason(ctx context.Context, rcpt *types.Receipt) string {
	tx, _, err := h.client.TransactionByHash(ctx, h.hash)
	if err != nil {
		return "execution reverted"
	}

	msg := ethereum.CallMsg{
		From:     h.from,
		To:       tx.To(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}
	if _, err := h.client.CallContract(ctx, msg, rcpt.BlockNumber); err != nil {
		return err.Error()
	}
	return "execution reverted"
}

// EscrowABI covers the escrow contract surface this client drives.
const EscrowABI = `[
	{
		"inputs": [
			{"name": "tokenAddress", "type": "address"},
			{"name": "linkType", "type": "uint8"},
			{"name": "amount", "type": "uint256"},
			{"name": "tokenId", "type": "uint256"},
			{"name": "claimer", "type": "address"}
		],
		"name": "makeDeposit",
		"outputs": [{"name": "index", "type": "uint256"}],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "index", "type": "uint256"},
			{"name": "recipient", "type": "address"},
			{"name": "recipientHash", "type": "bytes32"},
			{"name": "signature", "type": "bytes"}
		],
		"name": "withdrawDeposit",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
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
