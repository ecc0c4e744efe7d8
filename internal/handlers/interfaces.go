package handlers

import (
	"context"

	"github.com/dimitrije/vesting-api/internal/models"
	"github.com/dimitrije/vesting-api/internal/services"
	"github.com/dimitrije/vesting-api/internal/vesting"
)

// GrantServiceInterface defines the methods used by handlers from GrantService
type GrantServiceInterface interface {
	Create(ctx context.Context, caller string, req vesting.CreateRequest) (*vesting.GrantState, error)
	Claim(ctx context.Context, caller string, req vesting.ClaimRequest) (*vesting.ClaimResult, error)
	Get(ctx context.Context, address string) (*vesting.GrantState, error)
	Preview(ctx context.Context, address string, at *int64) (*vesting.Preview, error)
	Claims(ctx context.Context, address string) ([]models.ClaimRecord, error)
	Account(ctx context.Context, address string) (*models.TokenAccount, error)
	Mint(ctx context.Context, owner, asset string, amount uint64) (*models.TokenAccount, error)
	Now() int64
}

// ManualClock is the subset of vesting.ManualClock the dev endpoints drive.
type ManualClock interface {
	Now() int64
	Set(now int64)
	Advance(seconds int64) int64
}

var (
	_ GrantServiceInterface = (*services.GrantService)(nil)
	_ ManualClock           = (*vesting.ManualClock)(nil)
)
