package vesting

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/dimitrije/vesting-api/internal/models"
)

// MemoryHooks inject failures into a MemoryStore.
type MemoryHooks struct {
	BeforeTransfer      func(t Transfer) error
	BeforeUpdateClaimed func(address string) error
}

type memState struct {
	grants    map[string]models.Grant
	schedules map[string]models.Schedule
	accounts  map[string]models.TokenAccount
	claims    map[string][]models.ClaimRecord
}

func newMemState() *memState {
	return &memState{
		grants:    make(map[string]models.Grant),
		schedules: make(map[string]models.Schedule),
		accounts:  make(map[string]models.TokenAccount),
		claims:    make(map[string][]models.ClaimRecord),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.grants {
		c.grants[k] = v
	}
	for k, v := range s.schedules {
		c.schedules[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.claims {
		c.claims[k] = append([]models.ClaimRecord(nil), v...)
	}
	return c
}

// MemoryStore keeps grants and balances in process. Transactions are
// serialized and operate on a copy that replaces the live state only when the
// callback succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	hooks MemoryHooks
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (m *MemoryStore) SetHooks(h MemoryHooks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = h
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(&memTx{state: work, hooks: m.hooks}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *MemoryStore) GetGrant(ctx context.Context, address string) (*models.Grant, *models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.grant(address)
}

func (m *MemoryStore) GetTokenAccount(ctx context.Context, address string) (*models.TokenAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.state.accounts[address]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &acct, nil
}

func (m *MemoryStore) ListClaims(ctx context.Context, grantAddress string) ([]models.ClaimRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ClaimRecord{}, m.state.claims[grantAddress]...), nil
}

// Accounts returns every token account ordered by address.
func (m *MemoryStore) Accounts() []models.TokenAccount {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.TokenAccount, 0, len(m.state.accounts))
	for _, a := range m.state.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func (s *memState) grant(address string) (*models.Grant, *models.Schedule, error) {
	g, ok := s.grants[address]
	if !ok {
		return nil, nil, ErrGrantNotFound
	}
	sched, ok := s.schedules[g.ScheduleAddress]
	if !ok {
		return nil, nil, fmt.Errorf("%w: schedule %s missing", ErrInconsistentState, g.ScheduleAddress)
	}
	return &g, &sched, nil
}

type memTx struct {
	state *memState
	hooks MemoryHooks
}

func (t *memTx) GrantExists(ctx context.Context, address string) (bool, error) {
	_, ok := t.state.grants[address]
	return ok, nil
}

func (t *memTx) InsertGrant(ctx context.Context, g *models.Grant, s *models.Schedule) error {
	if _, ok := t.state.grants[g.Address]; ok {
		return ErrAlreadyExists
	}
	for _, existing := range t.state.grants {
		if existing.Employer == g.Employer && existing.Employee == g.Employee {
			return ErrAlreadyExists
		}
	}
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	t.state.grants[g.Address] = *g
	t.state.schedules[s.Address] = *s
	return nil
}

func (t *memTx) LockGrant(ctx context.Context, address string) (*models.Grant, *models.Schedule, *models.TokenAccount, error) {
	g, s, err := t.state.grant(address)
	if err != nil {
		return nil, nil, nil, err
	}
	vault, ok := t.state.accounts[g.VaultAddress]
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: vault %s missing", ErrInconsistentState, g.VaultAddress)
	}
	return g, s, &vault, nil
}

func (t *memTx) UpdateClaimed(ctx context.Context, address string, expected, next uint64) error {
	if t.hooks.BeforeUpdateClaimed != nil {
		if err := t.hooks.BeforeUpdateClaimed(address); err != nil {
			return err
		}
	}
	g, ok := t.state.grants[address]
	if !ok {
		return ErrGrantNotFound
	}
	if g.TotalClaimed != expected {
		return ErrClaimedConflict
	}
	g.TotalClaimed = next
	g.UpdatedAt = time.Now().UTC()
	t.state.grants[address] = g
	return nil
}

func (t *memTx) InsertClaim(ctx context.Context, rec *models.ClaimRecord) error {
	t.state.claims[rec.GrantAddress] = append(t.state.claims[rec.GrantAddress], *rec)
	return nil
}

func (t *memTx) CreateTokenAccount(ctx context.Context, acct *models.TokenAccount) error {
	if _, ok := t.state.accounts[acct.Address]; ok {
		return ErrAccountExists
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	t.state.accounts[acct.Address] = *acct
	return nil
}

func (t *memTx) EnsureTokenAccount(ctx context.Context, address, owner, asset string) (*models.TokenAccount, error) {
	if acct, ok := t.state.accounts[address]; ok {
		if acct.Owner != owner || acct.Asset != asset {
			return nil, fmt.Errorf("%w: account %s belongs to %s/%s", ErrAccountMismatch, address, acct.Owner, acct.Asset)
		}
		return &acct, nil
	}
	acct := &models.TokenAccount{Address: address, Owner: owner, Asset: asset}
	if err := t.CreateTokenAccount(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

func (t *memTx) Mint(ctx context.Context, address string, amount uint64) (*models.TokenAccount, error) {
	acct, ok := t.state.accounts[address]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if amount > math.MaxInt64-acct.Balance || acct.Balance > math.MaxInt64 {
		return nil, fmt.Errorf("%w: balance %d + %d", ErrArithmeticOverflow, acct.Balance, amount)
	}
	acct.Balance += amount
	acct.UpdatedAt = time.Now().UTC()
	t.state.accounts[address] = acct
	return &acct, nil
}

func (t *memTx) Transfer(ctx context.Context, tr Transfer) error {
	if t.hooks.BeforeTransfer != nil {
		if err := t.hooks.BeforeTransfer(tr); err != nil {
			return err
		}
	}
	if tr.From == tr.To {
		return fmt.Errorf("%w: transfer to self", ErrAccountMismatch)
	}
	from, ok := t.state.accounts[tr.From]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, tr.From)
	}
	to, ok := t.state.accounts[tr.To]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, tr.To)
	}
	if from.Asset != tr.Asset || to.Asset != tr.Asset {
		return fmt.Errorf("%w: %s -> %s in %s", ErrAssetMismatch, from.Asset, to.Asset, tr.Asset)
	}
	if from.Balance < tr.Amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, tr.From, from.Balance, tr.Amount)
	}
	if to.Balance+tr.Amount < to.Balance {
		return fmt.Errorf("%w: credit to %s", ErrArithmeticOverflow, tr.To)
	}

	now := time.Now().UTC()
	from.Balance -= tr.Amount
	from.UpdatedAt = now
	to.Balance += tr.Amount
	to.UpdatedAt = now
	t.state.accounts[tr.From] = from
	t.state.accounts[tr.To] = to
	return nil
}
