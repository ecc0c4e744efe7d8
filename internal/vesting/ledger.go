package vesting

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dimitrije/vesting-api/internal/models"
)

// GrantState is a grant together with its schedule and current vault balance.
type GrantState struct {
	Grant        models.Grant
	Schedule     models.Schedule
	VaultBalance uint64
}

func (s *GrantState) Status() string {
	return s.Grant.Status()
}

// Preview is the vesting position of a grant at a point in ledger time.
type Preview struct {
	GrantAddress string
	At           int64
	Vested       uint64
	Claimed      uint64
	Claimable    uint64
	Remaining    uint64
	Decimals     uint8
}

// Ledger records grants and serves read-only views of them.
type Ledger struct {
	store   Store
	guard   *Guard
	deriver AddressDeriver
	clock   Clock
}

func NewLedger(store Store, deriver AddressDeriver, clock Clock) *Ledger {
	return &Ledger{
		store:   store,
		guard:   NewGuard(deriver),
		deriver: deriver,
		clock:   clock,
	}
}

// Create records a new grant and moves the deposit from the employer's funding
// account into a freshly allocated vault. Nothing is persisted unless every
// step succeeds.
func (l *Ledger) Create(ctx context.Context, caller string, req CreateRequest) (*GrantState, error) {
	accts, source, err := l.guard.AuthorizeCreate(caller, req)
	if err != nil {
		return nil, err
	}

	sched := models.Schedule{
		Address:      accts.Schedule,
		GrantAddress: accts.Grant,
		StartDate:    req.StartDate,
		CliffDate:    req.CliffDate,
		EndDate:      req.EndDate,
	}
	if err := ValidateSchedule(sched); err != nil {
		return nil, err
	}
	if req.DepositAmount == 0 {
		return nil, fmt.Errorf("%w: deposit must be positive", ErrInvalidAmount)
	}
	if req.DepositAmount > math.MaxInt64 {
		return nil, fmt.Errorf("%w: deposit %d exceeds %d", ErrInvalidAmount, req.DepositAmount, int64(math.MaxInt64))
	}

	grant := models.Grant{
		Address:         accts.Grant,
		Employer:        req.Employer,
		Employee:        req.Employee,
		Asset:           req.Asset,
		Decimals:        req.Decimals,
		TotalDeposited:  req.DepositAmount,
		TotalClaimed:    0,
		ScheduleAddress: accts.Schedule,
		VaultAddress:    accts.Vault,
		GrantBump:       accts.GrantBump,
		VaultBump:       accts.VaultBump,
	}

	err = l.store.InTx(ctx, func(tx Tx) error {
		exists, err := tx.GrantExists(ctx, grant.Address)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, grant.Address)
		}

		if err := tx.InsertGrant(ctx, &grant, &sched); err != nil {
			return err
		}
		vault := &models.TokenAccount{
			Address: accts.Vault,
			Owner:   grant.Address,
			Asset:   grant.Asset,
		}
		if err := tx.CreateTokenAccount(ctx, vault); err != nil {
			if errors.Is(err, ErrAccountExists) {
				return fmt.Errorf("%w: vault %s already allocated", ErrAlreadyExists, vault.Address)
			}
			return err
		}

		if err := tx.Transfer(ctx, Transfer{
			From:   source,
			To:     vault.Address,
			Asset:  grant.Asset,
			Amount: grant.TotalDeposited,
		}); err != nil {
			return fmt.Errorf("%w: deposit: %w", ErrTransferFailure, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &GrantState{Grant: grant, Schedule: sched, VaultBalance: grant.TotalDeposited}, nil
}

func (l *Ledger) Get(ctx context.Context, address string) (*GrantState, error) {
	grant, sched, err := l.store.GetGrant(ctx, address)
	if err != nil {
		return nil, err
	}
	vault, err := l.store.GetTokenAccount(ctx, grant.VaultAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to load vault: %w", err)
	}
	return &GrantState{Grant: *grant, Schedule: *sched, VaultBalance: vault.Balance}, nil
}

// Preview reports the grant's position at the current ledger time.
func (l *Ledger) Preview(ctx context.Context, address string) (*Preview, error) {
	return l.PreviewAt(ctx, address, l.clock.Now())
}

func (l *Ledger) PreviewAt(ctx context.Context, address string, at int64) (*Preview, error) {
	grant, sched, err := l.store.GetGrant(ctx, address)
	if err != nil {
		return nil, err
	}
	vested, err := VestedAmount(at, *sched, grant.TotalDeposited)
	if err != nil {
		return nil, err
	}

	p := &Preview{
		GrantAddress: grant.Address,
		At:           at,
		Vested:       vested,
		Claimed:      grant.TotalClaimed,
		Remaining:    grant.Remaining(),
		Decimals:     grant.Decimals,
	}
	if vested > grant.TotalClaimed {
		p.Claimable = vested - grant.TotalClaimed
	}
	return p, nil
}

func (l *Ledger) Claims(ctx context.Context, address string) ([]models.ClaimRecord, error) {
	if _, _, err := l.store.GetGrant(ctx, address); err != nil {
		return nil, err
	}
	return l.store.ListClaims(ctx, address)
}

// Now is the ledger time used for claims and previews.
func (l *Ledger) Now() int64 {
	return l.clock.Now()
}

// Fund mints amount into owner's token account for asset, creating the account
// when needed. It only backs development tooling.
func (l *Ledger) Fund(ctx context.Context, owner, asset string, amount uint64) (*models.TokenAccount, error) {
	if owner == "" || asset == "" {
		return nil, fmt.Errorf("%w: owner and asset are required", ErrAccountMismatch)
	}
	if amount == 0 || amount > math.MaxInt64 {
		return nil, fmt.Errorf("%w: mint amount %d", ErrInvalidAmount, amount)
	}
	address, err := DeriveTokenAccount(l.deriver, owner, asset)
	if err != nil {
		return nil, err
	}

	var acct *models.TokenAccount
	err = l.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.EnsureTokenAccount(ctx, address, owner, asset); err != nil {
			return err
		}
		minted, err := tx.Mint(ctx, address, amount)
		if err != nil {
			return err
		}
		acct = minted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (l *Ledger) Account(ctx context.Context, address string) (*models.TokenAccount, error) {
	return l.store.GetTokenAccount(ctx, address)
}

// TokenAccountFor returns the canonical token account address of owner for asset.
func (l *Ledger) TokenAccountFor(owner, asset string) (string, error) {
	return DeriveTokenAccount(l.deriver, owner, asset)
}
