package vesting

import (
	"fmt"

	"github.com/dimitrije/vesting-api/internal/models"
)

// Seed prefixes for derived account addresses.
const (
	SeedGrant         = "grant"
	SeedGrantSchedule = "grant_schedule"
	SeedVault         = "vault"
	SeedTokenAccount  = "token_account"
)

// AddressDeriver maps seed material to a deterministic account address. The
// same seeds always produce the same address and bump, and CreateAddress with
// that bump reproduces the address.
type AddressDeriver interface {
	Derive(seeds ...[]byte) (address string, bump uint8, err error)
	CreateAddress(bump uint8, seeds ...[]byte) (string, error)
}

// Accounts is the set of addresses owned by one grant.
type Accounts struct {
	Grant     string
	GrantBump uint8
	Schedule  string
	Vault     string
	VaultBump uint8
}

func DeriveAccounts(d AddressDeriver, employer, employee string) (Accounts, error) {
	var a Accounts
	var err error

	a.Grant, a.GrantBump, err = d.Derive([]byte(SeedGrant), []byte(employer), []byte(employee))
	if err != nil {
		return Accounts{}, fmt.Errorf("%w: failed to derive grant address: %w", ErrAccountMismatch, err)
	}
	a.Schedule, _, err = d.Derive([]byte(SeedGrantSchedule), []byte(employer), []byte(employee))
	if err != nil {
		return Accounts{}, fmt.Errorf("%w: failed to derive schedule address: %w", ErrAccountMismatch, err)
	}
	a.Vault, a.VaultBump, err = d.Derive([]byte(SeedVault), []byte(a.Grant))
	if err != nil {
		return Accounts{}, fmt.Errorf("%w: failed to derive vault address: %w", ErrAccountMismatch, err)
	}
	return a, nil
}

// DeriveTokenAccount returns the canonical balance address of owner for asset.
func DeriveTokenAccount(d AddressDeriver, owner, asset string) (string, error) {
	addr, _, err := d.Derive([]byte(SeedTokenAccount), []byte(owner), []byte(asset))
	if err != nil {
		return "", fmt.Errorf("%w: failed to derive token account: %w", ErrAccountMismatch, err)
	}
	return addr, nil
}

// VerifyBumps re-creates the grant and vault addresses from the bumps stored
// on the grant and reports whether they still match.
func VerifyBumps(d AddressDeriver, g *models.Grant) error {
	grant, err := d.CreateAddress(g.GrantBump, []byte(SeedGrant), []byte(g.Employer), []byte(g.Employee))
	if err != nil || grant != g.Address {
		return fmt.Errorf("%w: grant %s does not match bump %d", ErrAccountMismatch, g.Address, g.GrantBump)
	}
	vault, err := d.CreateAddress(g.VaultBump, []byte(SeedVault), []byte(g.Address))
	if err != nil || vault != g.VaultAddress {
		return fmt.Errorf("%w: vault %s does not match bump %d", ErrAccountMismatch, g.VaultAddress, g.VaultBump)
	}
	return nil
}
