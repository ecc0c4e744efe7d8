package services

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/vesting-api/internal/database"
	"github.com/dimitrije/vesting-api/internal/derive"
	"github.com/dimitrije/vesting-api/internal/models"
	"github.com/dimitrije/vesting-api/internal/vesting"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	grantCols   = []string{"address", "employer", "employee", "asset", "decimals", "total_deposited", "total_claimed", "schedule_address", "vault_address", "grant_bump", "vault_bump", "created_at", "updated_at", "s_address", "grant_address", "start_date", "cliff_date", "end_date"}
	accountCols = []string{"address", "owner", "asset", "balance", "created_at", "updated_at"}
)

const (
	lockGrantSQL   = `FROM grants g JOIN grant_schedules s ON s.address = g.schedule_address WHERE g.address = \$1 FOR UPDATE OF g`
	lockAccountSQL = `FROM token_accounts WHERE address = \$1 FOR UPDATE`
)

func setupGrantStore(t *testing.T) (*GrantStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewGrantStore(db), mock
}

func grantRow(g models.Grant, s models.Schedule) *pgxmock.Rows {
	return pgxmock.NewRows(grantCols).AddRow(
		g.Address, g.Employer, g.Employee, g.Asset, int16(g.Decimals),
		int64(g.TotalDeposited), int64(g.TotalClaimed), g.ScheduleAddress, g.VaultAddress,
		int16(g.GrantBump), int16(g.VaultBump), g.CreatedAt, g.UpdatedAt,
		s.Address, s.GrantAddress, s.StartDate, s.CliffDate, s.EndDate,
	)
}

func accountRow(a models.TokenAccount) *pgxmock.Rows {
	return pgxmock.NewRows(accountCols).AddRow(a.Address, a.Owner, a.Asset, int64(a.Balance), a.CreatedAt, a.UpdatedAt)
}

func testGrant() (models.Grant, models.Schedule) {
	now := time.Now()
	g := models.Grant{
		Address:         "grant-1",
		Employer:        "acme",
		Employee:        "bob",
		Asset:           "USDC",
		Decimals:        6,
		TotalDeposited:  100_000,
		TotalClaimed:    16_666,
		ScheduleAddress: "sched-1",
		VaultAddress:    "vault-1",
		GrantBump:       254,
		VaultBump:       255,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s := models.Schedule{Address: "sched-1", GrantAddress: "grant-1", StartDate: 0, CliffDate: 100, EndDate: 1000}
	return g, s
}

func TestGrantStore_GetGrant(t *testing.T) {
	store, mock := setupGrantStore(t)
	g, s := testGrant()

	mock.ExpectQuery(`SELECT .+ FROM grants g JOIN grant_schedules s`).
		WithArgs("grant-1").
		WillReturnRows(grantRow(g, s))

	got, sched, err := store.GetGrant(context.Background(), "grant-1")

	require.NoError(t, err)
	assert.Equal(t, g.Address, got.Address)
	assert.Equal(t, uint8(6), got.Decimals)
	assert.Equal(t, uint64(100_000), got.TotalDeposited)
	assert.Equal(t, uint64(16_666), got.TotalClaimed)
	assert.Equal(t, uint8(254), got.GrantBump)
	assert.Equal(t, s, *sched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantStore_GetGrant_NotFound(t *testing.T) {
	store, mock := setupGrantStore(t)

	mock.ExpectQuery(`SELECT .+ FROM grants g`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, _, err := store.GetGrant(context.Background(), "missing")

	assert.ErrorIs(t, err, vesting.ErrGrantNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantStore_GetTokenAccount_NotFound(t *testing.T) {
	store, mock := setupGrantStore(t)

	mock.ExpectQuery(`FROM token_accounts WHERE address`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetTokenAccount(context.Background(), "nope")

	assert.ErrorIs(t, err, vesting.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantStore_ListClaims(t *testing.T) {
	store, mock := setupGrantStore(t)
	now := time.Now()

	rows := pgxmock.NewRows([]string{"id", "grant_address", "amount", "total_claimed", "claimed_at", "created_at"}).
		AddRow("c1", "grant-1", int64(100), int64(100), int64(500), now).
		AddRow("c2", "grant-1", int64(50), int64(150), int64(600), now)
	mock.ExpectQuery(`SELECT .+ FROM grant_claims WHERE grant_address = \$1 ORDER BY total_claimed`).
		WithArgs("grant-1").
		WillReturnRows(rows)

	claims, err := store.ListClaims(context.Background(), "grant-1")

	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, uint64(50), claims[1].Amount)
	assert.Equal(t, uint64(150), claims[1].TotalClaimed)
	assert.Equal(t, int64(600), claims[1].ClaimedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantStore_InTx_RollsBackOnError(t *testing.T) {
	store, mock := setupGrantStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("grant-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx vesting.Tx) error {
		exists, err := tx.GrantExists(context.Background(), "grant-1")
		require.NoError(t, err)
		assert.True(t, exists)
		return vesting.ErrAlreadyExists
	})

	assert.ErrorIs(t, err, vesting.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantStore_InsertGrant_UniqueViolation(t *testing.T) {
	store, mock := setupGrantStore(t)
	g, s := testGrant()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO grants`).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx vesting.Tx) error {
		return tx.InsertGrant(context.Background(), &g, &s)
	})

	assert.ErrorIs(t, err, vesting.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantStore_Transfer(t *testing.T) {
	store, mock := setupGrantStore(t)
	now := time.Now()
	src := models.TokenAccount{Address: "b-src", Owner: "acme", Asset: "USDC", Balance: 100, CreatedAt: now, UpdatedAt: now}
	dst := models.TokenAccount{Address: "a-dst", Owner: "bob", Asset: "USDC", Balance: 5, CreatedAt: now, UpdatedAt: now}

	mock.ExpectBegin()
	mock.ExpectQuery(lockAccountSQL).WithArgs("a-dst").WillReturnRows(accountRow(dst))
	mock.ExpectQuery(lockAccountSQL).WithArgs("b-src").WillReturnRows(accountRow(src))
	mock.ExpectExec(`UPDATE token_accounts SET balance = balance -`).
		WithArgs(int64(40), "b-src").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE token_accounts SET balance = balance \+`).
		WithArgs(int64(40), "a-dst").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(tx vesting.Tx) error {
		return tx.Transfer(context.Background(), vesting.Transfer{From: "b-src", To: "a-dst", Asset: "USDC", Amount: 40})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantStore_Transfer_Rejections(t *testing.T) {
	now := time.Now()
	testCases := []struct {
		name    string
		src     models.TokenAccount
		amount  uint64
		wantErr error
	}{
		{"insufficient funds", models.TokenAccount{Address: "b-src", Owner: "acme", Asset: "USDC", Balance: 10}, 40, vesting.ErrInsufficientFunds},
		{"asset mismatch", models.TokenAccount{Address: "b-src", Owner: "acme", Asset: "DAI", Balance: 100}, 40, vesting.ErrAssetMismatch},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock := setupGrantStore(t)
			dst := models.TokenAccount{Address: "a-dst", Owner: "bob", Asset: "USDC", CreatedAt: now, UpdatedAt: now}
			tc.src.CreatedAt, tc.src.UpdatedAt = now, now

			mock.ExpectBegin()
			mock.ExpectQuery(lockAccountSQL).WithArgs("a-dst").WillReturnRows(accountRow(dst))
			mock.ExpectQuery(lockAccountSQL).WithArgs("b-src").WillReturnRows(accountRow(tc.src))
			mock.ExpectRollback()

			err := store.InTx(context.Background(), func(tx vesting.Tx) error {
				return tx.Transfer(context.Background(), vesting.Transfer{From: "b-src", To: "a-dst", Asset: "USDC", Amount: tc.amount})
			})

			assert.ErrorIs(t, err, tc.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGrantStore_UpdateClaimed_Conflict(t *testing.T) {
	store, mock := setupGrantStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE grants SET total_claimed`).
		WithArgs(int64(200), "grant-1", int64(100)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx vesting.Tx) error {
		return tx.UpdateClaimed(context.Background(), "grant-1", 100, 200)
	})

	assert.ErrorIs(t, err, vesting.ErrClaimedConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantStore_LockGrant_MissingVault(t *testing.T) {
	store, mock := setupGrantStore(t)
	g, s := testGrant()

	mock.ExpectBegin()
	mock.ExpectQuery(lockGrantSQL).WithArgs("grant-1").WillReturnRows(grantRow(g, s))
	mock.ExpectQuery(lockAccountSQL).WithArgs("vault-1").WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx vesting.Tx) error {
		_, _, _, err := tx.LockGrant(context.Background(), "grant-1")
		return err
	})

	assert.ErrorIs(t, err, vesting.ErrInconsistentState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantStore_EnsureTokenAccount_ForeignOwner(t *testing.T) {
	store, mock := setupGrantStore(t)
	now := time.Now()
	existing := models.TokenAccount{Address: "acct", Owner: "mallory", Asset: "USDC", CreatedAt: now, UpdatedAt: now}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO token_accounts .+ ON CONFLICT`).
		WithArgs("acct", "bob", "USDC").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(lockAccountSQL).WithArgs("acct").WillReturnRows(accountRow(existing))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx vesting.Tx) error {
		_, err := tx.EnsureTokenAccount(context.Background(), "acct", "bob", "USDC")
		return err
	})

	assert.ErrorIs(t, err, vesting.ErrAccountMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantStore_Mint(t *testing.T) {
	store, mock := setupGrantStore(t)
	now := time.Now()
	minted := models.TokenAccount{Address: "acct", Owner: "acme", Asset: "USDC", Balance: 500, CreatedAt: now, UpdatedAt: now}

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE token_accounts SET balance = balance \+ \$1`).
		WithArgs(int64(500), "acct").
		WillReturnRows(accountRow(minted))
	mock.ExpectCommit()

	var got *models.TokenAccount
	err := store.InTx(context.Background(), func(tx vesting.Tx) error {
		var err error
		got, err = tx.Mint(context.Background(), "acct", 500)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, uint64(500), got.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Runs a full claim through the processor to pin the statement sequence the
// Postgres store issues for one settlement.
func TestGrantStore_ClaimThroughProcessor(t *testing.T) {
	store, mock := setupGrantStore(t)
	deriver := derive.FromNamespace("store-test")
	clock := vesting.NewManualClock(500)
	now := time.Now()

	accts, err := vesting.DeriveAccounts(deriver, "acme", "bob")
	require.NoError(t, err)
	dest, err := vesting.DeriveTokenAccount(deriver, "bob", "USDC")
	require.NoError(t, err)

	g := models.Grant{
		Address: accts.Grant, Employer: "acme", Employee: "bob", Asset: "USDC", Decimals: 6,
		TotalDeposited: 1000, TotalClaimed: 100,
		ScheduleAddress: accts.Schedule, VaultAddress: accts.Vault,
		GrantBump: accts.GrantBump, VaultBump: accts.VaultBump, CreatedAt: now, UpdatedAt: now,
	}
	s := models.Schedule{Address: accts.Schedule, GrantAddress: accts.Grant, StartDate: 0, CliffDate: 100, EndDate: 1000}
	vault := models.TokenAccount{Address: accts.Vault, Owner: accts.Grant, Asset: "USDC", Balance: 900, CreatedAt: now, UpdatedAt: now}
	destAcct := models.TokenAccount{Address: dest, Owner: "bob", Asset: "USDC", Balance: 100, CreatedAt: now, UpdatedAt: now}

	first, second := vault, destAcct
	if second.Address < first.Address {
		first, second = second, first
	}

	mock.ExpectBegin()
	mock.ExpectQuery(lockGrantSQL).WithArgs(accts.Grant).WillReturnRows(grantRow(g, s))
	mock.ExpectQuery(lockAccountSQL).WithArgs(accts.Vault).WillReturnRows(accountRow(vault))
	mock.ExpectExec(`INSERT INTO token_accounts .+ ON CONFLICT`).
		WithArgs(dest, "bob", "USDC").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(lockAccountSQL).WithArgs(dest).WillReturnRows(accountRow(destAcct))
	mock.ExpectQuery(lockAccountSQL).WithArgs(first.Address).WillReturnRows(accountRow(first))
	mock.ExpectQuery(lockAccountSQL).WithArgs(second.Address).WillReturnRows(accountRow(second))
	mock.ExpectExec(`UPDATE token_accounts SET balance = balance -`).
		WithArgs(int64(400), accts.Vault).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE token_accounts SET balance = balance \+`).
		WithArgs(int64(400), dest).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE grants SET total_claimed`).
		WithArgs(int64(500), accts.Grant, int64(100)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`INSERT INTO grant_claims`).
		WithArgs(pgxmock.AnyArg(), accts.Grant, int64(400), int64(500), int64(500)).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	proc := vesting.NewProcessor(store, deriver, clock)
	res, err := proc.Claim(context.Background(), "bob", vesting.ClaimRequest{Employer: "acme", Grant: accts.Grant})

	require.NoError(t, err)
	assert.Equal(t, uint64(400), res.Amount)
	assert.Equal(t, uint64(500), res.TotalClaimed)
	assert.Equal(t, dest, res.Destination)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantStore_ClaimThroughProcessor_TransferFailureRollsBack(t *testing.T) {
	store, mock := setupGrantStore(t)
	deriver := derive.FromNamespace("store-test")
	clock := vesting.NewManualClock(500)
	now := time.Now()

	accts, err := vesting.DeriveAccounts(deriver, "acme", "bob")
	require.NoError(t, err)
	dest, err := vesting.DeriveTokenAccount(deriver, "bob", "USDC")
	require.NoError(t, err)

	g := models.Grant{
		Address: accts.Grant, Employer: "acme", Employee: "bob", Asset: "USDC",
		TotalDeposited: 1000, ScheduleAddress: accts.Schedule, VaultAddress: accts.Vault,
		GrantBump: accts.GrantBump, VaultBump: accts.VaultBump, CreatedAt: now, UpdatedAt: now,
	}
	s := models.Schedule{Address: accts.Schedule, GrantAddress: accts.Grant, StartDate: 0, CliffDate: 100, EndDate: 1000}
	vault := models.TokenAccount{Address: accts.Vault, Owner: accts.Grant, Asset: "USDC", Balance: 1000, CreatedAt: now, UpdatedAt: now}
	destAcct := models.TokenAccount{Address: dest, Owner: "bob", Asset: "USDC", CreatedAt: now, UpdatedAt: now}

	first, second := vault, destAcct
	if second.Address < first.Address {
		first, second = second, first
	}

	mock.ExpectBegin()
	mock.ExpectQuery(lockGrantSQL).WithArgs(accts.Grant).WillReturnRows(grantRow(g, s))
	mock.ExpectQuery(lockAccountSQL).WithArgs(accts.Vault).WillReturnRows(accountRow(vault))
	mock.ExpectExec(`INSERT INTO token_accounts .+ ON CONFLICT`).
		WithArgs(dest, "bob", "USDC").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(lockAccountSQL).WithArgs(dest).WillReturnRows(accountRow(destAcct))
	mock.ExpectQuery(lockAccountSQL).WithArgs(first.Address).WillReturnRows(accountRow(first))
	mock.ExpectQuery(lockAccountSQL).WithArgs(second.Address).WillReturnRows(accountRow(second))
	mock.ExpectExec(`UPDATE token_accounts SET balance = balance -`).
		WithArgs(int64(500), accts.Vault).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	proc := vesting.NewProcessor(store, deriver, clock)
	_, err = proc.Claim(context.Background(), "bob", vesting.ClaimRequest{Employer: "acme", Grant: accts.Grant})

	assert.ErrorIs(t, err, vesting.ErrTransferFailure)
	assert.NoError(t, mock.ExpectationsWereMet())
}
