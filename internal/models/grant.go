package models

import "time"

const (
	GrantStatusActive      = "active"
	GrantStatusFullyVested = "fully_vested"
)

// Grant is one employer to employee vesting commitment.
type Grant struct {
	Address         string    `json:"address"`
	Employer        string    `json:"employer"`
	Employee        string    `json:"employee"`
	Asset           string    `json:"asset"`
	Decimals        uint8     `json:"decimals"`
	TotalDeposited  uint64    `json:"total_deposited"`
	TotalClaimed    uint64    `json:"total_claimed"`
	ScheduleAddress string    `json:"schedule_address"`
	VaultAddress    string    `json:"vault_address"`
	GrantBump       uint8     `json:"grant_bump"`
	VaultBump       uint8     `json:"vault_bump"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Remaining is the amount still held in escrow for the grant.
func (g *Grant) Remaining() uint64 {
	return g.TotalDeposited - g.TotalClaimed
}

func (g *Grant) Status() string {
	if g.TotalClaimed == g.TotalDeposited {
		return GrantStatusFullyVested
	}
	return GrantStatusActive
}

// Schedule timestamps are unix seconds.
type Schedule struct {
	Address      string `json:"address"`
	GrantAddress string `json:"grant_address"`
	StartDate    int64  `json:"start_date"`
	CliffDate    int64  `json:"cliff_date"`
	EndDate      int64  `json:"end_date"`
}

type ClaimRecord struct {
	ID           string    `json:"id"`
	GrantAddress string    `json:"grant_address"`
	Amount       uint64    `json:"amount"`
	TotalClaimed uint64    `json:"total_claimed"`
	ClaimedAt    int64     `json:"claimed_at"`
	CreatedAt    time.Time `json:"created_at"`
}
