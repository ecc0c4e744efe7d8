package vesting

import "errors"

var (
	ErrInvalidSchedule    = errors.New("invalid schedule")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAlreadyExists      = errors.New("grant already exists")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAccountMismatch    = errors.New("account mismatch")
	ErrNothingToClaim     = errors.New("nothing to claim")
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	ErrTransferFailure    = errors.New("transfer failed")
	ErrGrantNotFound      = errors.New("grant not found")

	// ErrInconsistentState means the escrow invariants no longer hold. It is
	// never retried.
	ErrInconsistentState = errors.New("inconsistent escrow state")
)

// Store level errors.
var (
	ErrAccountNotFound   = errors.New("token account not found")
	ErrAccountExists     = errors.New("token account already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAssetMismatch     = errors.New("asset mismatch")
	ErrClaimedConflict   = errors.New("claimed counter changed concurrently")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidSchedule, "invalid_schedule"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrAlreadyExists, "already_exists"},
	{ErrUnauthorized, "unauthorized"},
	{ErrAccountMismatch, "account_mismatch"},
	{ErrNothingToClaim, "nothing_to_claim"},
	{ErrArithmeticOverflow, "arithmetic_overflow"},
	{ErrTransferFailure, "transfer_failure"},
	{ErrGrantNotFound, "grant_not_found"},
	{ErrInconsistentState, "inconsistent_state"},
	{ErrAccountNotFound, "account_not_found"},
}

// Code returns a stable identifier for err, or "internal" when err does not wrap
// one of the package errors. The outermost package error wins, so a transfer
// failure caused by a missing account reports transfer_failure.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if err == c.err {
			return c.code
		}
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		if code := Code(u.Unwrap()); code != "" {
			return code
		}
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if code := Code(inner); code != "internal" && code != "" {
				return code
			}
		}
	}
	return "internal"
}
