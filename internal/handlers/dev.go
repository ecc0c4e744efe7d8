package handlers

import (
	"net/http"

	"github.com/dimitrije/vesting-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

// DevHandler serves the non-production funding and time travel endpoints.
type DevHandler struct {
	grantService GrantServiceInterface
	clock        ManualClock
}

// NewDevHandler builds the dev endpoints. clock is nil when the ledger runs on
// the system clock.
func NewDevHandler(grantService GrantServiceInterface, clock ManualClock) *DevHandler {
	return &DevHandler{grantService: grantService, clock: clock}
}

func (h *DevHandler) Mint(c *drift.Context) {
	var req dto.MintRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "invalid_request", "invalid request body")
		return
	}

	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		badRequest(c, "invalid_amount", "amount must be a base-unit integer")
		return
	}

	acct, err := h.grantService.Mint(c.Request.Context(), req.Owner, req.Asset, amount)
	if err != nil {
		writeError(c, err)
		return
	}
	_ = c.JSON(http.StatusOK, dto.NewAccountResponse(acct))
}

func (h *DevHandler) Clock(c *drift.Context) {
	if h.clock == nil {
		_ = c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   "clock_not_manual",
			Message: "ledger runs on the system clock",
		})
		return
	}

	var req dto.ClockRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "invalid_request", "invalid request body")
		return
	}

	switch {
	case req.Set != nil && req.Advance != nil:
		badRequest(c, "invalid_request", "set and advance are exclusive")
		return
	case req.Set != nil:
		if *req.Set < h.clock.Now() {
			badRequest(c, "invalid_request", "clock cannot move backwards")
			return
		}
		h.clock.Set(*req.Set)
	case req.Advance != nil:
		if *req.Advance < 0 {
			badRequest(c, "invalid_request", "clock cannot move backwards")
			return
		}
		h.clock.Advance(*req.Advance)
	}

	_ = c.JSON(http.StatusOK, dto.ClockResponse{Now: h.clock.Now()})
}
