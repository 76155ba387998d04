package protocol

import (
	errorsmod "cosmossdk.io/errors"
)

var (
	ErrMalformedLink        = errorsmod.Register("claimlink", 1, "malformed claim link")
	ErrVerificationMismatch = errorsmod.Register("claimlink", 2, "claim not authorized")
	ErrInvalidAmount        = errorsmod.Register("claimlink", 3, "invalid deposit amount")
)
