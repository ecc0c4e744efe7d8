package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS token_accounts (
		address VARCHAR(64) PRIMARY KEY,
		owner VARCHAR(255) NOT NULL,
		asset VARCHAR(255) NOT NULL,
		balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS grants (
		address VARCHAR(64) PRIMARY KEY,
		employer VARCHAR(255) NOT NULL,
		employee VARCHAR(255) NOT NULL,
		asset VARCHAR(255) NOT NULL,
		decimals SMALLINT NOT NULL DEFAULT 0,
		total_deposited BIGINT NOT NULL CHECK (total_deposited > 0),
		total_claimed BIGINT NOT NULL DEFAULT 0,
		schedule_address VARCHAR(64) NOT NULL UNIQUE,
		vault_address VARCHAR(64) NOT NULL UNIQUE,
		grant_bump SMALLINT NOT NULL,
		vault_bump SMALLINT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(employer, employee),
		CHECK (total_claimed >= 0 AND total_claimed <= total_deposited)
	)`,

	`CREATE TABLE IF NOT EXISTS grant_schedules (
		address VARCHAR(64) PRIMARY KEY,
		grant_address VARCHAR(64) NOT NULL UNIQUE REFERENCES grants(address),
		start_date BIGINT NOT NULL CHECK (start_date >= 0),
		cliff_date BIGINT NOT NULL,
		end_date BIGINT NOT NULL,
		CHECK (start_date <= cliff_date AND cliff_date < end_date)
	)`,

	`CREATE TABLE IF NOT EXISTS grant_claims (
		id UUID PRIMARY KEY,
		grant_address VARCHAR(64) NOT NULL REFERENCES grants(address),
		amount BIGINT NOT NULL CHECK (amount > 0),
		total_claimed BIGINT NOT NULL,
		claimed_at BIGINT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_token_accounts_owner ON token_accounts(owner)`,
	`CREATE INDEX IF NOT EXISTS idx_grants_employer ON grants(employer)`,
	`CREATE INDEX IF NOT EXISTS idx_grants_employee ON grants(employee)`,
	`CREATE INDEX IF NOT EXISTS idx_grant_claims_grant_address ON grant_claims(grant_address, created_at)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
