package handlers

import (
	"net/http"

	"github.com/dimitrije/vesting-api/internal/vesting"
	"github.com/dimitrije/vesting-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

var statusByCode = map[string]int{
	"invalid_schedule":    http.StatusBadRequest,
	"invalid_amount":      http.StatusBadRequest,
	"account_mismatch":    http.StatusBadRequest,
	"unauthorized":        http.StatusForbidden,
	"grant_not_found":     http.StatusNotFound,
	"account_not_found":   http.StatusNotFound,
	"already_exists":      http.StatusConflict,
	"nothing_to_claim":    http.StatusConflict,
	"transfer_failure":    http.StatusUnprocessableEntity,
	"arithmetic_overflow": http.StatusInternalServerError,
	"inconsistent_state":  http.StatusInternalServerError,
}

// StatusFor maps a ledger error to its HTTP status.
func StatusFor(err error) int {
	if status, ok := statusByCode[vesting.Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeError(c *drift.Context, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if vesting.Code(err) == "internal" {
		msg = "internal error"
	}
	_ = c.JSON(status, dto.ErrorResponse{Error: vesting.Code(err), Message: msg})
}

func badRequest(c *drift.Context, code, msg string) {
	_ = c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: code, Message: msg})
}
