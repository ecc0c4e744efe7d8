package vesting

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/dimitrije/vesting-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	month   = int64(2_592_000)
	start   = int64(1_700_000_000)
	deposit = uint64(100_000)
)

func testSchedule() models.Schedule {
	return models.Schedule{
		StartDate: start,
		CliffDate: start + 3*month,
		EndDate:   start + 24*month,
	}
}

func TestValidateSchedule(t *testing.T) {
	testCases := []struct {
		name    string
		s       models.Schedule
		wantErr bool
	}{
		{"cliff after start", models.Schedule{StartDate: 10, CliffDate: 20, EndDate: 30}, false},
		{"cliff equals start", models.Schedule{StartDate: 10, CliffDate: 10, EndDate: 30}, false},
		{"zero start", models.Schedule{StartDate: 0, CliffDate: 0, EndDate: 1}, false},
		{"cliff before start", models.Schedule{StartDate: 10, CliffDate: 9, EndDate: 30}, true},
		{"end equals cliff", models.Schedule{StartDate: 10, CliffDate: 20, EndDate: 20}, true},
		{"end before cliff", models.Schedule{StartDate: 10, CliffDate: 20, EndDate: 15}, true},
		{"negative start", models.Schedule{StartDate: -1, CliffDate: 0, EndDate: 10}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSchedule(tc.s)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSchedule)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSchedule_NegativeStartMessage(t *testing.T) {
	err := ValidateSchedule(models.Schedule{StartDate: -5, CliffDate: 0, EndDate: 10})

	assert.ErrorIs(t, err, ErrInvalidSchedule)
	assert.ErrorContains(t, err, "must be >= 0")
}

func TestVestedAmount(t *testing.T) {
	s := testSchedule()

	testCases := []struct {
		name string
		now  int64
		want uint64
	}{
		{"at start", start, 0},
		{"just before cliff", s.CliffDate - 1, 0},
		{"at cliff", s.CliffDate, 12_500},
		{"four months", start + 4*month, 16_666},
		{"half way", start + 12*month, 50_000},
		{"one second before end", s.EndDate - 1, 99_999},
		{"at end", s.EndDate, deposit},
		{"long after end", s.EndDate + 100*month, deposit},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := VestedAmount(tc.now, s, deposit)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestVestedAmount_NoIntermediateOverflow(t *testing.T) {
	s := models.Schedule{StartDate: 0, CliffDate: 0, EndDate: math.MaxInt64}

	got, err := VestedAmount(math.MaxInt64/2, s, math.MaxUint64)

	require.NoError(t, err)
	assert.Equal(t, uint64(1<<63)-2, got)
}

func TestVestedAmount_CliffEqualsStart(t *testing.T) {
	s := models.Schedule{StartDate: 100, CliffDate: 100, EndDate: 200}

	got, err := VestedAmount(100, s, 1_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)

	got, err = VestedAmount(150, s, 1_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), got)
}

func TestVestedAmount_MonotoneAndBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		startDate := rng.Int63n(1 << 40)
		cliff := startDate + rng.Int63n(1<<30)
		end := cliff + 1 + rng.Int63n(1<<30)
		s := models.Schedule{StartDate: startDate, CliffDate: cliff, EndDate: end}
		total := rng.Uint64()
		require.NoError(t, ValidateSchedule(s))

		var prev uint64
		for j := 0; j < 20; j++ {
			now := startDate - 10 + int64(j)*((end-startDate+20)/19)
			v, err := VestedAmount(now, s, total)
			require.NoError(t, err)
			assert.LessOrEqual(t, v, total)
			assert.GreaterOrEqual(t, v, prev, "vested decreased for %+v at %d", s, now)
			if now < cliff {
				assert.Zero(t, v)
			}
			prev = v
		}

		v, err := VestedAmount(end, s, total)
		require.NoError(t, err)
		assert.Equal(t, total, v)
	}
}

func TestClaimable(t *testing.T) {
	got, err := Claimable(100, 40)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), got)

	_, err = Claimable(40, 40)
	assert.ErrorIs(t, err, ErrNothingToClaim)

	_, err = Claimable(0, 0)
	assert.ErrorIs(t, err, ErrNothingToClaim)
}

func TestAddClaimed(t *testing.T) {
	got, err := AddClaimed(10, 5, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), got)

	_, err = AddClaimed(math.MaxUint64, 1, math.MaxUint64)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)

	_, err = AddClaimed(90, 11, 100)
	assert.ErrorIs(t, err, ErrInconsistentState)
}

func TestCode(t *testing.T) {
	assert.Equal(t, "nothing_to_claim", Code(ErrNothingToClaim))
	assert.Equal(t, "transfer_failure", Code(fmt.Errorf("%w: %w", ErrTransferFailure, ErrAccountNotFound)))
	assert.Equal(t, "internal", Code(assert.AnError))
	assert.Equal(t, "", Code(nil))
}
