package receipt_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/linkforge/claimlink/pkg/receipt"
)

var (
	escrowAddr = common.HexToAddress("0xE5C20000000000000000000000000000000000E5")
	feeAddr    = common.HexToAddress("0x0000000000000000000000000000000000001010")

	depositTopic = crypto.Keccak256Hash([]byte("DepositMade(address,uint256,uint8,uint256)"))
	feeTopic     = crypto.Keccak256Hash([]byte("LogFeeTransfer(address,address,address,uint256,uint256,uint256,uint256,uint256)"))
)

// depositLog builds a DepositMade log with the given index in the first
// non-indexed slot, encoded the way the contract emits it.
func depositLog(index int64) *types.Log {
	data := make([]byte, 0, 96)
	data = append(data, common.BigToHash(big.NewInt(index)).Bytes()...)          // index
	data = append(data, common.BigToHash(big.NewInt(0)).Bytes()...)              // linkType
	data = append(data, common.BigToHash(big.NewInt(133700000000000)).Bytes()...) // amount

	sender := common.HexToAddress("0x00000000000000000000000000000000000000AA")
	return &types.Log{
		Address: escrowAddr,
		Topics:  []common.Hash{depositTopic, sender.Hash()},
		Data:    data,
	}
}

func feeLog() *types.Log {
	return &types.Log{
		Address: feeAddr,
		Topics:  []common.Hash{feeTopic},
		Data:    make([]byte, 32),
	}
}

func TestExtractDepositIndex_EventLast(t *testing.T) {
	parser, err := receipt.NewParser(escrowAddr)
	require.NoError(t, err)

	rcpt := &types.Receipt{Logs: []*types.Log{feeLog(), depositLog(7)}}

	index, err := parser.ExtractDepositIndex(rcpt, "1")
	require.NoError(t, err)
	require.EqualValues(t, 7, index)
}

func TestExtractDepositIndex_TrailingInfraLog(t *testing.T) {
	parser, err := receipt.NewParser(escrowAddr)
	require.NoError(t, err)

	// Same receipt shape plus one trailing infrastructure log, as Polygon
	// produces: the positional selector reads second-to-last there.
	rcpt := &types.Receipt{Logs: []*types.Log{depositLog(7), feeLog()}}

	index, err := parser.ExtractDepositIndex(rcpt, "137")
	require.NoError(t, err)
	require.EqualValues(t, 7, index)
}

func TestExtractDepositIndex_TopicSelectorIgnoresTrailingLog(t *testing.T) {
	parser, err := receipt.NewParser(escrowAddr)
	require.NoError(t, err)

	// On the default path the signature-based selector is immune to the
	// trailing log: no positional special case needed.
	rcpt := &types.Receipt{Logs: []*types.Log{depositLog(9), feeLog()}}

	index, err := parser.ExtractDepositIndex(rcpt, "1")
	require.NoError(t, err)
	require.EqualValues(t, 9, index)
}

func TestExtractDepositIndex_NoDepositEvent(t *testing.T) {
	parser, err := receipt.NewParser(escrowAddr)
	require.NoError(t, err)

	tests := []struct {
		name string
		logs []*types.Log
	}{
		{name: "empty log list", logs: nil},
		{name: "only foreign logs", logs: []*types.Log{feeLog(), feeLog()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.ExtractDepositIndex(&types.Receipt{Logs: tt.logs}, "1")
			require.ErrorIs(t, err, receipt.ErrNoDepositEvent)
		})
	}
}

func TestExtractDepositIndex_OffsetOutOfRange(t *testing.T) {
	parser, err := receipt.NewParser(escrowAddr)
	require.NoError(t, err)

	// Polygon selector wants second-to-last; a single-log receipt cannot
	// satisfy it.
	rcpt := &types.Receipt{Logs: []*types.Log{depositLog(1)}}

	_, err = parser.ExtractDepositIndex(rcpt, "137")
	require.ErrorIs(t, err, receipt.ErrNoDepositEvent)
}

func TestExtractDepositIndex_SelectorOverride(t *testing.T) {
	parser, err := receipt.NewParser(escrowAddr,
		receipt.WithSelector("137", receipt.TopicSelector{
			Contract: escrowAddr,
			Topic:    depositTopic,
		}),
	)
	require.NoError(t, err)

	rcpt := &types.Receipt{Logs: []*types.Log{depositLog(3), feeLog()}}

	index, err := parser.ExtractDepositIndex(rcpt, "137")
	require.NoError(t, err)
	require.EqualValues(t, 3, index)
}

func TestExtractDepositIndex_MalformedEventData(t *testing.T) {
	parser, err := receipt.NewParser(escrowAddr)
	require.NoError(t, err)

	bad := depositLog(1)
	bad.Data = bad.Data[:16] // truncated

	_, err = parser.ExtractDepositIndex(&types.Receipt{Logs: []*types.Log{bad}}, "1")
	require.ErrorIs(t, err, receipt.ErrMalformedEvent)
}
