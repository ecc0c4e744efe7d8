package vesting

import (
	"fmt"
	"math/big"

	"github.com/dimitrije/vesting-api/internal/models"
	"github.com/shopspring/decimal"
)

// ValidateSchedule enforces 0 <= start <= cliff < end.
func ValidateSchedule(s models.Schedule) error {
	if s.StartDate < 0 {
		return fmt.Errorf("%w: start date %d is negative, dates are unix seconds and must be >= 0", ErrInvalidSchedule, s.StartDate)
	}
	if s.CliffDate < s.StartDate {
		return fmt.Errorf("%w: cliff date %d precedes start date %d", ErrInvalidSchedule, s.CliffDate, s.StartDate)
	}
	if s.EndDate <= s.CliffDate {
		return fmt.Errorf("%w: end date %d must be after cliff date %d", ErrInvalidSchedule, s.EndDate, s.CliffDate)
	}
	return nil
}

// VestedAmount returns how much of totalDeposited has vested at now.
//
// Nothing vests before the cliff and everything has vested at the end date.
// In between the amount grows linearly from the start date and is rounded
// down, so the beneficiary never receives more than the elapsed share.
func VestedAmount(now int64, s models.Schedule, totalDeposited uint64) (uint64, error) {
	if now < s.CliffDate {
		return 0, nil
	}
	if now >= s.EndDate {
		return totalDeposited, nil
	}

	elapsed := decimal.NewFromInt(now).Sub(decimal.NewFromInt(s.StartDate))
	duration := decimal.NewFromInt(s.EndDate).Sub(decimal.NewFromInt(s.StartDate))
	if !duration.IsPositive() || elapsed.IsNegative() {
		return 0, fmt.Errorf("%w: schedule %d..%d evaluated at %d", ErrInvalidSchedule, s.StartDate, s.EndDate, now)
	}

	total := decimal.NewFromBigInt(new(big.Int).SetUint64(totalDeposited), 0)
	vested, _ := total.Mul(elapsed).QuoRem(duration, 0)

	v := vested.BigInt()
	if !v.IsUint64() || v.Uint64() > totalDeposited {
		return 0, fmt.Errorf("%w: vested amount %s exceeds deposit %d", ErrArithmeticOverflow, vested.String(), totalDeposited)
	}
	return v.Uint64(), nil
}

// Claimable is the positive difference between what has vested and what was
// already claimed.
func Claimable(vested, claimed uint64) (uint64, error) {
	if vested <= claimed {
		return 0, ErrNothingToClaim
	}
	return vested - claimed, nil
}

// AddClaimed returns claimed+delta, refusing to wrap or exceed the deposit.
func AddClaimed(claimed, delta, deposited uint64) (uint64, error) {
	sum := claimed + delta
	if sum < claimed {
		return 0, fmt.Errorf("%w: claimed %d + %d wraps", ErrArithmeticOverflow, claimed, delta)
	}
	if sum > deposited {
		return 0, fmt.Errorf("%w: claimed %d exceeds deposit %d", ErrInconsistentState, sum, deposited)
	}
	return sum, nil
}
