package apperrors

import (
	"errors"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// Balance can't go negative: neither available nor frozen part
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Transaction status may leave PENDING exactly once
	// Whoever loses the accept/reject/expire race observes this error
	ErrInvalidStateTransition = errors.New("invalid transaction state transition")

	ErrForbidden = errors.New("actor is not allowed to resolve this transaction")

	ErrAlreadyCheckedIn = errors.New("already checked in this day")

	ErrGiftAmountOutOfBounds = errors.New("gift amount is out of allowed bounds")
	ErrGiftToSelf            = errors.New("can't gift points to yourself")
	ErrGiftNotExpired        = errors.New("gift deadline has not passed yet")

	ErrTokenInvalid = errors.New("token is invalid or expired")

	ErrEmailTaken               = errors.New("email is bound to another account")
	ErrNotEnoughPointsToBind    = errors.New("not enough points to bind email")
	ErrVerificationNotFound     = errors.New("verification not found")
	ErrVerificationCodeMismatch = errors.New("verification code mismatch")
	ErrVerificationExpired      = errors.New("verification expired")
)
