package vesting

import (
	"context"

	"github.com/dimitrije/vesting-api/internal/models"
)

// Transfer moves Amount units of Asset between two token accounts.
type Transfer struct {
	From   string
	To     string
	Asset  string
	Amount uint64
}

// TransferExecutor is the atomic "move N units" capability. A transfer either
// applies fully or returns an error and changes nothing.
type TransferExecutor interface {
	Transfer(ctx context.Context, t Transfer) error
}

// Tx is one unit of work over grant records and token balances. Everything done
// through a Tx commits or rolls back together, transfers included.
type Tx interface {
	TransferExecutor

	GrantExists(ctx context.Context, address string) (bool, error)
	InsertGrant(ctx context.Context, g *models.Grant, s *models.Schedule) error

	// LockGrant loads the grant, its schedule and its vault and holds them until
	// the transaction ends.
	LockGrant(ctx context.Context, address string) (*models.Grant, *models.Schedule, *models.TokenAccount, error)

	// UpdateClaimed sets total_claimed to next only if it still equals expected.
	UpdateClaimed(ctx context.Context, address string, expected, next uint64) error
	InsertClaim(ctx context.Context, rec *models.ClaimRecord) error

	CreateTokenAccount(ctx context.Context, acct *models.TokenAccount) error
	// EnsureTokenAccount returns the account at address, creating an empty one
	// when absent.
	EnsureTokenAccount(ctx context.Context, address, owner, asset string) (*models.TokenAccount, error)
	// Mint credits amount to an existing token account and returns it.
	Mint(ctx context.Context, address string, amount uint64) (*models.TokenAccount, error)
}

// Store persists grants and balances.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetGrant(ctx context.Context, address string) (*models.Grant, *models.Schedule, error)
	GetTokenAccount(ctx context.Context, address string) (*models.TokenAccount, error)
	ListClaims(ctx context.Context, grantAddress string) ([]models.ClaimRecord, error)
}
