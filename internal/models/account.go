package models

import "time"

// TokenAccount holds a balance of a single asset for a single owner. Vaults are
// token accounts owned by a grant address.
type TokenAccount struct {
	Address   string    `json:"address"`
	Owner     string    `json:"owner"`
	Asset     string    `json:"asset"`
	Balance   uint64    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
