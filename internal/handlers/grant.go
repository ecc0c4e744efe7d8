package handlers

import (
	"net/http"
	"strconv"

	"github.com/dimitrije/vesting-api/internal/middleware"
	"github.com/dimitrije/vesting-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type GrantHandler struct {
	grantService GrantServiceInterface
}

func NewGrantHandler(grantService GrantServiceInterface) *GrantHandler {
	return &GrantHandler{grantService: grantService}
}

func (h *GrantHandler) Create(c *drift.Context) {
	principal := middleware.GetPrincipal(c)
	if principal == "" {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateGrantRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "invalid_request", "invalid request body")
		return
	}

	amount, err := dto.ParseAmount(req.DepositAmount)
	if err != nil {
		badRequest(c, "invalid_amount", "deposit_amount must be a base-unit integer")
		return
	}

	state, err := h.grantService.Create(c.Request.Context(), principal, req.ToVesting(amount))
	if err != nil {
		writeError(c, err)
		return
	}

	_ = c.JSON(http.StatusCreated, dto.NewGrantResponse(state))
}

func (h *GrantHandler) Get(c *drift.Context) {
	state, err := h.grantService.Get(c.Request.Context(), c.Param("grant"))
	if err != nil {
		writeError(c, err)
		return
	}
	_ = c.JSON(http.StatusOK, dto.NewGrantResponse(state))
}

// Vesting previews the grant at ?at=<unix seconds>, or at ledger time when
// at is omitted.
func (h *GrantHandler) Vesting(c *drift.Context) {
	var at *int64
	if raw := c.QueryParam("at"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid_request", "at must be a unix timestamp")
			return
		}
		at = &v
	}

	preview, err := h.grantService.Preview(c.Request.Context(), c.Param("grant"), at)
	if err != nil {
		writeError(c, err)
		return
	}
	_ = c.JSON(http.StatusOK, dto.NewVestingResponse(preview))
}

func (h *GrantHandler) Claims(c *drift.Context) {
	records, err := h.grantService.Claims(c.Request.Context(), c.Param("grant"))
	if err != nil {
		writeError(c, err)
		return
	}
	_ = c.JSON(http.StatusOK, dto.NewClaimRecordResponses(records))
}

func (h *GrantHandler) Claim(c *drift.Context) {
	principal := middleware.GetPrincipal(c)
	if principal == "" {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.ClaimGrantRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "invalid_request", "invalid request body")
		return
	}

	res, err := h.grantService.Claim(c.Request.Context(), principal, req.ToVesting(c.Param("grant")))
	if err != nil {
		writeError(c, err)
		return
	}
	_ = c.JSON(http.StatusOK, dto.NewClaimResponse(res))
}

func (h *GrantHandler) Account(c *drift.Context) {
	acct, err := h.grantService.Account(c.Request.Context(), c.Param("address"))
	if err != nil {
		writeError(c, err)
		return
	}
	_ = c.JSON(http.StatusOK, dto.NewAccountResponse(acct))
}

func (h *GrantHandler) Health(c *drift.Context) {
	_ = c.JSON(http.StatusOK, map[string]any{
		"status":      "ok",
		"ledger_time": h.grantService.Now(),
	})
}
