package vesting

import (
	"fmt"

	"github.com/dimitrije/vesting-api/internal/models"
)

// CreateRequest carries the terms of a new grant. Account handles are optional;
// when supplied they must equal the derived addresses.
type CreateRequest struct {
	Employer      string
	Employee      string
	Asset         string
	Decimals      uint8
	StartDate     int64
	CliffDate     int64
	EndDate       int64
	DepositAmount uint64

	Grant    string
	Schedule string
	Vault    string
	Source   string
}

// ClaimRequest names the grant being claimed from. Employer and Grant are
// required, the remaining handles are checked when present.
type ClaimRequest struct {
	Employer    string
	Grant       string
	Schedule    string
	Vault       string
	Asset       string
	Destination string
}

// Guard checks caller roles and the structural relationships between the
// accounts named in a request. It never mutates anything.
type Guard struct {
	deriver AddressDeriver
}

func NewGuard(deriver AddressDeriver) *Guard {
	return &Guard{deriver: deriver}
}

// AuthorizeCreate returns the grant's derived accounts and the employer's
// funding account.
func (g *Guard) AuthorizeCreate(caller string, req CreateRequest) (Accounts, string, error) {
	if caller == "" || caller != req.Employer {
		return Accounts{}, "", fmt.Errorf("%w: only the employer can create a grant", ErrUnauthorized)
	}
	if req.Employee == "" || req.Asset == "" {
		return Accounts{}, "", fmt.Errorf("%w: employee and asset are required", ErrAccountMismatch)
	}
	if req.Employee == req.Employer {
		return Accounts{}, "", fmt.Errorf("%w: employer and employee must differ", ErrAccountMismatch)
	}

	accts, err := DeriveAccounts(g.deriver, req.Employer, req.Employee)
	if err != nil {
		return Accounts{}, "", err
	}
	source, err := DeriveTokenAccount(g.deriver, req.Employer, req.Asset)
	if err != nil {
		return Accounts{}, "", err
	}

	if err := matchHandle("grant", req.Grant, accts.Grant); err != nil {
		return Accounts{}, "", err
	}
	if err := matchHandle("schedule", req.Schedule, accts.Schedule); err != nil {
		return Accounts{}, "", err
	}
	if err := matchHandle("vault", req.Vault, accts.Vault); err != nil {
		return Accounts{}, "", err
	}
	if err := matchHandle("source", req.Source, source); err != nil {
		return Accounts{}, "", err
	}
	return accts, source, nil
}

// AuthorizeClaim validates a claim against the stored grant state and returns
// the beneficiary's destination account.
func (g *Guard) AuthorizeClaim(caller string, req ClaimRequest, grant *models.Grant, sched *models.Schedule, vault *models.TokenAccount) (string, error) {
	if caller == "" || caller != grant.Employee {
		return "", fmt.Errorf("%w: only the beneficiary can claim", ErrUnauthorized)
	}
	if req.Employer != grant.Employer {
		return "", fmt.Errorf("%w: employer %q does not own grant %s", ErrAccountMismatch, req.Employer, grant.Address)
	}

	accts, err := DeriveAccounts(g.deriver, grant.Employer, grant.Employee)
	if err != nil {
		return "", err
	}
	if req.Grant != accts.Grant || grant.Address != accts.Grant {
		return "", fmt.Errorf("%w: grant %s is not derived from employer and employee", ErrAccountMismatch, req.Grant)
	}
	if err := VerifyBumps(g.deriver, grant); err != nil {
		return "", err
	}

	if sched.Address != accts.Schedule || grant.ScheduleAddress != accts.Schedule || sched.GrantAddress != grant.Address {
		return "", fmt.Errorf("%w: schedule %s is not bound to grant %s", ErrAccountMismatch, sched.Address, grant.Address)
	}
	if err := matchHandle("schedule", req.Schedule, accts.Schedule); err != nil {
		return "", err
	}

	if vault.Address != accts.Vault || grant.VaultAddress != accts.Vault || vault.Owner != grant.Address {
		return "", fmt.Errorf("%w: vault %s is not owned by grant %s", ErrAccountMismatch, vault.Address, grant.Address)
	}
	if vault.Asset != grant.Asset {
		return "", fmt.Errorf("%w: vault holds %s, grant is in %s", ErrAccountMismatch, vault.Asset, grant.Asset)
	}
	if err := matchHandle("vault", req.Vault, accts.Vault); err != nil {
		return "", err
	}
	if err := matchHandle("asset", req.Asset, grant.Asset); err != nil {
		return "", err
	}

	dest, err := DeriveTokenAccount(g.deriver, grant.Employee, grant.Asset)
	if err != nil {
		return "", err
	}
	if err := matchHandle("destination", req.Destination, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func matchHandle(name, supplied, expected string) error {
	if supplied != "" && supplied != expected {
		return fmt.Errorf("%w: %s %s, expected %s", ErrAccountMismatch, name, supplied, expected)
	}
	return nil
}
