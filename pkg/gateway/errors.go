package gateway

import (
	errorsmod "cosmossdk.io/errors"
)

var (
	ErrUnknownChain        = errorsmod.Register("gateway", 1, "unknown chain identifier")
	ErrUnknownVersion      = errorsmod.Register("gateway", 2, "unknown protocol version")
	ErrTransactionRejected = errorsmod.Register("gateway", 3, "transaction rejected before inclusion")
	ErrTransactionReverted = errorsmod.Register("gateway", 4, "transaction reverted on chain")
	ErrConfirmationTimeout = errorsmod.Register("gateway", 5, "transaction not confirmed in time")
)
