package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/dimitrije/vesting-api/internal/models"
	"github.com/dimitrije/vesting-api/internal/vesting"
)

const (
	Month      int64 = 2592000
	ScheduleT0 int64 = 1_700_000_000
)

// Fixtures creates funded grants through a ledger, whatever store backs it.
type Fixtures struct {
	ledger  *vesting.Ledger
	counter int
}

func NewFixtures(ledger *vesting.Ledger) *Fixtures {
	return &Fixtures{ledger: ledger}
}

// CreateGrant funds a fresh employer and records a grant with a 3 month cliff
// and 24 month end, unless opts say otherwise.
func (f *Fixtures) CreateGrant(t *testing.T, opts ...GrantOption) *vesting.GrantState {
	t.Helper()
	f.counter++

	req := vesting.CreateRequest{
		Employer:      fmt.Sprintf("employer-%d", f.counter),
		Employee:      fmt.Sprintf("employee-%d", f.counter),
		Asset:         "USDC",
		Decimals:      6,
		StartDate:     ScheduleT0,
		CliffDate:     ScheduleT0 + 3*Month,
		EndDate:       ScheduleT0 + 24*Month,
		DepositAmount: 100000,
	}
	for _, opt := range opts {
		opt(&req)
	}

	ctx := context.Background()
	if _, err := f.ledger.Fund(ctx, req.Employer, req.Asset, req.DepositAmount); err != nil {
		t.Fatalf("failed to fund employer: %v", err)
	}
	state, err := f.ledger.Create(ctx, req.Employer, req)
	if err != nil {
		t.Fatalf("failed to create grant: %v", err)
	}
	return state
}

// GrantOption configures a test grant
type GrantOption func(*vesting.CreateRequest)

func WithParties(employer, employee string) GrantOption {
	return func(r *vesting.CreateRequest) {
		r.Employer = employer
		r.Employee = employee
	}
}

func WithDeposit(amount uint64) GrantOption {
	return func(r *vesting.CreateRequest) {
		r.DepositAmount = amount
	}
}

func WithSchedule(start, cliff, end int64) GrantOption {
	return func(r *vesting.CreateRequest) {
		r.StartDate = start
		r.CliffDate = cliff
		r.EndDate = end
	}
}

// SampleGrantState is an in-memory grant for handler tests that never touch a
// store.
func SampleGrantState() *vesting.GrantState {
	return &vesting.GrantState{
		Grant: models.Grant{
			Address:         "GrantAddr1111111111111111111111111111111111",
			Employer:        "acme-treasury",
			Employee:        "bob",
			Asset:           "USDC",
			Decimals:        6,
			TotalDeposited:  100000,
			TotalClaimed:    0,
			ScheduleAddress: "SchedAddr1111111111111111111111111111111111",
			VaultAddress:    "VaultAddr1111111111111111111111111111111111",
			GrantBump:       254,
			VaultBump:       255,
		},
		Schedule: models.Schedule{
			Address:      "SchedAddr1111111111111111111111111111111111",
			GrantAddress: "GrantAddr1111111111111111111111111111111111",
			StartDate:    ScheduleT0,
			CliffDate:    ScheduleT0 + 3*Month,
			EndDate:      ScheduleT0 + 24*Month,
		},
		VaultBalance: 100000,
	}
}
