package vesting

import (
	"context"
	"fmt"
	"time"

	"github.com/dimitrije/vesting-api/internal/models"
	"github.com/google/uuid"
)

// ClaimResult describes a settled claim.
type ClaimResult struct {
	GrantAddress string
	Destination  string
	Amount       uint64
	Vested       uint64
	TotalClaimed uint64
	Remaining    uint64
	Decimals     uint8
	ClaimedAt    int64
	Record       models.ClaimRecord
}

// Processor settles claims. The grant row and vault are locked for the whole
// read, compute and write sequence so two claims can never both release the
// same vested units.
type Processor struct {
	store Store
	guard *Guard
	clock Clock
}

func NewProcessor(store Store, deriver AddressDeriver, clock Clock) *Processor {
	return &Processor{
		store: store,
		guard: NewGuard(deriver),
		clock: clock,
	}
}

func (p *Processor) Claim(ctx context.Context, caller string, req ClaimRequest) (*ClaimResult, error) {
	var result *ClaimResult

	err := p.store.InTx(ctx, func(tx Tx) error {
		grant, sched, vault, err := tx.LockGrant(ctx, req.Grant)
		if err != nil {
			return err
		}

		dest, err := p.guard.AuthorizeClaim(caller, req, grant, sched, vault)
		if err != nil {
			return err
		}

		if grant.TotalClaimed > grant.TotalDeposited || vault.Balance != grant.TotalDeposited-grant.TotalClaimed {
			return fmt.Errorf("%w: vault %s holds %d, grant expects %d", ErrInconsistentState,
				vault.Address, vault.Balance, grant.TotalDeposited-grant.TotalClaimed)
		}

		now := p.clock.Now()
		vested, err := VestedAmount(now, *sched, grant.TotalDeposited)
		if err != nil {
			return err
		}
		amount, err := Claimable(vested, grant.TotalClaimed)
		if err != nil {
			return err
		}
		next, err := AddClaimed(grant.TotalClaimed, amount, grant.TotalDeposited)
		if err != nil {
			return err
		}

		if _, err := tx.EnsureTokenAccount(ctx, dest, grant.Employee, grant.Asset); err != nil {
			return fmt.Errorf("%w: destination: %w", ErrTransferFailure, err)
		}
		if err := tx.Transfer(ctx, Transfer{
			From:   vault.Address,
			To:     dest,
			Asset:  grant.Asset,
			Amount: amount,
		}); err != nil {
			return fmt.Errorf("%w: %w", ErrTransferFailure, err)
		}

		if err := tx.UpdateClaimed(ctx, grant.Address, grant.TotalClaimed, next); err != nil {
			return fmt.Errorf("%w: released %d but could not record it: %w", ErrInconsistentState, amount, err)
		}

		rec := models.ClaimRecord{
			ID:           uuid.New().String(),
			GrantAddress: grant.Address,
			Amount:       amount,
			TotalClaimed: next,
			ClaimedAt:    now,
			CreatedAt:    time.Now().UTC(),
		}
		if err := tx.InsertClaim(ctx, &rec); err != nil {
			return fmt.Errorf("%w: released %d but could not record it: %w", ErrInconsistentState, amount, err)
		}

		result = &ClaimResult{
			GrantAddress: grant.Address,
			Destination:  dest,
			Amount:       amount,
			Vested:       vested,
			TotalClaimed: next,
			Remaining:    grant.TotalDeposited - next,
			Decimals:     grant.Decimals,
			ClaimedAt:    now,
			Record:       rec,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
