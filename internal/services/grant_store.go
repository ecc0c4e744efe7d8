package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dimitrije/vesting-api/internal/database"
	"github.com/dimitrije/vesting-api/internal/models"
	"github.com/dimitrije/vesting-api/internal/vesting"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation   = "23505"
	pgNumericOutOfRange = "22003"
)

const grantColumns = `
	g.address, g.employer, g.employee, g.asset, g.decimals,
	g.total_deposited, g.total_claimed, g.schedule_address, g.vault_address,
	g.grant_bump, g.vault_bump, g.created_at, g.updated_at,
	s.address, s.grant_address, s.start_date, s.cliff_date, s.end_date`

const accountColumns = `address, owner, asset, balance, created_at, updated_at`

// GrantStore is the Postgres backed vesting.Store.
type GrantStore struct {
	db *database.DB
}

func NewGrantStore(db *database.DB) *GrantStore {
	return &GrantStore{db: db}
}

func (s *GrantStore) InTx(ctx context.Context, fn func(tx vesting.Tx) error) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&grantTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *GrantStore) GetGrant(ctx context.Context, address string) (*models.Grant, *models.Schedule, error) {
	return scanGrant(s.db.Pool.QueryRow(ctx, `
		SELECT`+grantColumns+`
		FROM grants g
		JOIN grant_schedules s ON s.address = g.schedule_address
		WHERE g.address = $1
	`, address))
}

func (s *GrantStore) GetTokenAccount(ctx context.Context, address string) (*models.TokenAccount, error) {
	return scanAccount(s.db.Pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM token_accounts WHERE address = $1
	`, address))
}

func (s *GrantStore) ListClaims(ctx context.Context, grantAddress string) ([]models.ClaimRecord, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, grant_address, amount, total_claimed, claimed_at, created_at
		FROM grant_claims
		WHERE grant_address = $1
		ORDER BY total_claimed
	`, grantAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	claims := []models.ClaimRecord{}
	for rows.Next() {
		var rec models.ClaimRecord
		var amount, total int64
		if err := rows.Scan(&rec.ID, &rec.GrantAddress, &amount, &total, &rec.ClaimedAt, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		rec.Amount = uint64(amount)
		rec.TotalClaimed = uint64(total)
		claims = append(claims, rec)
	}
	return claims, rows.Err()
}

type grantTx struct {
	tx pgx.Tx
}

func (t *grantTx) GrantExists(ctx context.Context, address string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM grants WHERE address = $1)`, address).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check grant: %w", err)
	}
	return exists, nil
}

func (t *grantTx) InsertGrant(ctx context.Context, g *models.Grant, sched *models.Schedule) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO grants (address, employer, employee, asset, decimals, total_deposited, total_claimed,
		                    schedule_address, vault_address, grant_bump, vault_bump)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, g.Address, g.Employer, g.Employee, g.Asset, int16(g.Decimals), int64(g.TotalDeposited), int64(g.TotalClaimed),
		g.ScheduleAddress, g.VaultAddress, int16(g.GrantBump), int16(g.VaultBump)).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return fmt.Errorf("%w: %s", vesting.ErrAlreadyExists, g.Address)
		}
		return fmt.Errorf("failed to insert grant: %w", err)
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO grant_schedules (address, grant_address, start_date, cliff_date, end_date)
		VALUES ($1, $2, $3, $4, $5)
	`, sched.Address, sched.GrantAddress, sched.StartDate, sched.CliffDate, sched.EndDate)
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return fmt.Errorf("%w: schedule %s", vesting.ErrAlreadyExists, sched.Address)
		}
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	return nil
}

func (t *grantTx) LockGrant(ctx context.Context, address string) (*models.Grant, *models.Schedule, *models.TokenAccount, error) {
	g, sched, err := scanGrant(t.tx.QueryRow(ctx, `
		SELECT`+grantColumns+`
		FROM grants g
		JOIN grant_schedules s ON s.address = g.schedule_address
		WHERE g.address = $1
		FOR UPDATE OF g
	`, address))
	if err != nil {
		return nil, nil, nil, err
	}

	vault, err := t.lockAccount(ctx, g.VaultAddress)
	if err != nil {
		if errors.Is(err, vesting.ErrAccountNotFound) {
			return nil, nil, nil, fmt.Errorf("%w: vault %s missing", vesting.ErrInconsistentState, g.VaultAddress)
		}
		return nil, nil, nil, err
	}
	return g, sched, vault, nil
}

func (t *grantTx) UpdateClaimed(ctx context.Context, address string, expected, next uint64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE grants SET total_claimed = $1, updated_at = NOW()
		WHERE address = $2 AND total_claimed = $3
	`, int64(next), address, int64(expected))
	if err != nil {
		return fmt.Errorf("failed to update claimed amount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return vesting.ErrClaimedConflict
	}
	return nil
}

func (t *grantTx) InsertClaim(ctx context.Context, rec *models.ClaimRecord) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO grant_claims (id, grant_address, amount, total_claimed, claimed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, rec.ID, rec.GrantAddress, int64(rec.Amount), int64(rec.TotalClaimed), rec.ClaimedAt).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert claim: %w", err)
	}
	return nil
}

func (t *grantTx) CreateTokenAccount(ctx context.Context, acct *models.TokenAccount) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO token_accounts (address, owner, asset, balance)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, acct.Address, acct.Owner, acct.Asset, int64(acct.Balance)).Scan(&acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return fmt.Errorf("%w: %s", vesting.ErrAccountExists, acct.Address)
		}
		return fmt.Errorf("failed to create token account: %w", err)
	}
	return nil
}

func (t *grantTx) EnsureTokenAccount(ctx context.Context, address, owner, asset string) (*models.TokenAccount, error) {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO token_accounts (address, owner, asset)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO NOTHING
	`, address, owner, asset)
	if err != nil {
		return nil, fmt.Errorf("failed to create token account: %w", err)
	}

	acct, err := t.lockAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	if acct.Owner != owner || acct.Asset != asset {
		return nil, fmt.Errorf("%w: account %s belongs to %s/%s", vesting.ErrAccountMismatch, address, acct.Owner, acct.Asset)
	}
	return acct, nil
}

func (t *grantTx) Mint(ctx context.Context, address string, amount uint64) (*models.TokenAccount, error) {
	if amount > math.MaxInt64 {
		return nil, fmt.Errorf("%w: mint amount %d", vesting.ErrArithmeticOverflow, amount)
	}
	acct, err := scanAccount(t.tx.QueryRow(ctx, `
		UPDATE token_accounts SET balance = balance + $1, updated_at = NOW()
		WHERE address = $2
		RETURNING `+accountColumns, int64(amount), address))
	if err != nil {
		if isPgCode(err, pgNumericOutOfRange) {
			return nil, fmt.Errorf("%w: balance of %s", vesting.ErrArithmeticOverflow, address)
		}
		return nil, err
	}
	return acct, nil
}

// Transfer locks both accounts in address order so concurrent transfers
// between the same pair cannot deadlock.
func (t *grantTx) Transfer(ctx context.Context, tr vesting.Transfer) error {
	if tr.From == tr.To {
		return fmt.Errorf("%w: transfer to self", vesting.ErrAccountMismatch)
	}
	if tr.Amount > math.MaxInt64 {
		return fmt.Errorf("%w: transfer amount %d", vesting.ErrArithmeticOverflow, tr.Amount)
	}

	first, second := tr.From, tr.To
	if second < first {
		first, second = second, first
	}
	a, err := t.lockAccount(ctx, first)
	if err != nil {
		return err
	}
	b, err := t.lockAccount(ctx, second)
	if err != nil {
		return err
	}
	from, to := a, b
	if from.Address != tr.From {
		from, to = b, a
	}

	if from.Asset != tr.Asset || to.Asset != tr.Asset {
		return fmt.Errorf("%w: %s -> %s in %s", vesting.ErrAssetMismatch, from.Asset, to.Asset, tr.Asset)
	}
	if from.Balance < tr.Amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", vesting.ErrInsufficientFunds, from.Address, from.Balance, tr.Amount)
	}
	if to.Balance > math.MaxInt64-tr.Amount {
		return fmt.Errorf("%w: credit to %s", vesting.ErrArithmeticOverflow, to.Address)
	}

	if _, err := t.tx.Exec(ctx, `
		UPDATE token_accounts SET balance = balance - $1, updated_at = NOW() WHERE address = $2
	`, int64(tr.Amount), tr.From); err != nil {
		return fmt.Errorf("failed to debit %s: %w", tr.From, err)
	}
	if _, err := t.tx.Exec(ctx, `
		UPDATE token_accounts SET balance = balance + $1, updated_at = NOW() WHERE address = $2
	`, int64(tr.Amount), tr.To); err != nil {
		return fmt.Errorf("failed to credit %s: %w", tr.To, err)
	}
	return nil
}

func (t *grantTx) lockAccount(ctx context.Context, address string) (*models.TokenAccount, error) {
	return scanAccount(t.tx.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM token_accounts WHERE address = $1 FOR UPDATE
	`, address))
}

func scanGrant(row pgx.Row) (*models.Grant, *models.Schedule, error) {
	var g models.Grant
	var sched models.Schedule
	var decimals, grantBump, vaultBump int16
	var deposited, claimed int64

	err := row.Scan(
		&g.Address, &g.Employer, &g.Employee, &g.Asset, &decimals,
		&deposited, &claimed, &g.ScheduleAddress, &g.VaultAddress,
		&grantBump, &vaultBump, &g.CreatedAt, &g.UpdatedAt,
		&sched.Address, &sched.GrantAddress, &sched.StartDate, &sched.CliffDate, &sched.EndDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, vesting.ErrGrantNotFound
		}
		return nil, nil, fmt.Errorf("failed to load grant: %w", err)
	}

	g.Decimals = uint8(decimals)
	g.GrantBump = uint8(grantBump)
	g.VaultBump = uint8(vaultBump)
	g.TotalDeposited = uint64(deposited)
	g.TotalClaimed = uint64(claimed)
	return &g, &sched, nil
}

func scanAccount(row pgx.Row) (*models.TokenAccount, error) {
	var acct models.TokenAccount
	var balance int64
	err := row.Scan(&acct.Address, &acct.Owner, &acct.Asset, &balance, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, vesting.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load token account: %w", err)
	}
	acct.Balance = uint64(balance)
	return &acct, nil
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
