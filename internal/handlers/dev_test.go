package handlers

import (
	"net/http"
	"testing"

	"github.com/dimitrije/vesting-api/internal/middleware"
	"github.com/dimitrije/vesting-api/internal/models"
	"github.com/dimitrije/vesting-api/internal/testutil"
	"github.com/dimitrije/vesting-api/internal/vesting"
	"github.com/dimitrije/vesting-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupDevTest(t *testing.T, clock ManualClock, enabled bool) (*testutil.MockGrantService, *testutil.HTTPTestClient) {
	t.Helper()
	mockGrantService := new(testutil.MockGrantService)
	handler := NewDevHandler(mockGrantService, clock)

	app := drift.New()
	app.Use(driftmw.BodyParser())
	dev := app.Group("/api/v1/dev")
	dev.Use(middleware.DevOnly(enabled))
	dev.Post("/mint", handler.Mint)
	dev.Post("/clock", handler.Clock)

	return mockGrantService, testutil.NewHTTPTestClient(t, app)
}

func ptr(v int64) *int64 { return &v }

func TestDevHandler_Mint(t *testing.T) {
	mockGrantService, client := setupDevTest(t, nil, true)
	mockGrantService.On("Mint", mock.Anything, "acme-treasury", "USDC", uint64(100000)).
		Return(&models.TokenAccount{Address: "a1", Owner: "acme-treasury", Asset: "USDC", Balance: 100000}, nil)

	rec := client.Request(http.MethodPost, "/api/v1/dev/mint",
		dto.MintRequest{Owner: "acme-treasury", Asset: "USDC", Amount: "100000"}, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.AccountResponse
	testutil.ParseJSON(t, rec, &resp)
	assert.Equal(t, "100000", resp.Balance)
}

func TestDevHandler_Mint_Rejected(t *testing.T) {
	mockGrantService, client := setupDevTest(t, nil, true)
	mockGrantService.On("Mint", mock.Anything, "acme-treasury", "USDC", uint64(0)).Return(nil, vesting.ErrInvalidAmount)

	rec := client.Request(http.MethodPost, "/api/v1/dev/mint",
		dto.MintRequest{Owner: "acme-treasury", Asset: "USDC", Amount: "0"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = client.Request(http.MethodPost, "/api/v1/dev/mint",
		dto.MintRequest{Owner: "acme-treasury", Asset: "USDC", Amount: "ten"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDevHandler_Disabled(t *testing.T) {
	mockGrantService, client := setupDevTest(t, vesting.NewManualClock(0), false)

	rec := client.Request(http.MethodPost, "/api/v1/dev/mint",
		dto.MintRequest{Owner: "acme-treasury", Asset: "USDC", Amount: "1"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = client.Request(http.MethodPost, "/api/v1/dev/clock", dto.ClockRequest{Advance: ptr(1)}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	mockGrantService.AssertNotCalled(t, "Mint")
}

func TestDevHandler_Clock(t *testing.T) {
	clock := vesting.NewManualClock(testutil.ScheduleT0)
	_, client := setupDevTest(t, clock, true)

	rec := client.Request(http.MethodPost, "/api/v1/dev/clock",
		dto.ClockRequest{Advance: ptr(4 * testutil.Month)}, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.ClockResponse
	testutil.ParseJSON(t, rec, &resp)
	assert.Equal(t, testutil.ScheduleT0+4*testutil.Month, resp.Now)
	assert.Equal(t, testutil.ScheduleT0+4*testutil.Month, clock.Now())

	rec = client.Request(http.MethodPost, "/api/v1/dev/clock",
		dto.ClockRequest{Set: ptr(testutil.ScheduleT0 + 24*testutil.Month)}, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testutil.ScheduleT0+24*testutil.Month, clock.Now())
}

func TestDevHandler_Clock_NeverMovesBackwards(t *testing.T) {
	clock := vesting.NewManualClock(testutil.ScheduleT0)
	_, client := setupDevTest(t, clock, true)

	rec := client.Request(http.MethodPost, "/api/v1/dev/clock", dto.ClockRequest{Set: ptr(0)}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = client.Request(http.MethodPost, "/api/v1/dev/clock", dto.ClockRequest{Advance: ptr(-1)}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = client.Request(http.MethodPost, "/api/v1/dev/clock",
		dto.ClockRequest{Set: ptr(testutil.ScheduleT0 + 1), Advance: ptr(1)}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, testutil.ScheduleT0, clock.Now())
}

func TestDevHandler_Clock_SystemClock(t *testing.T) {
	_, client := setupDevTest(t, nil, true)

	rec := client.Request(http.MethodPost, "/api/v1/dev/clock", dto.ClockRequest{Advance: ptr(60)}, "")

	assert.Equal(t, http.StatusConflict, rec.Code)
}
