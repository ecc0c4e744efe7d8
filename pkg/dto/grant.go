package dto

import (
	"math/big"
	"strconv"

	"github.com/dimitrije/vesting-api/internal/models"
	"github.com/dimitrije/vesting-api/internal/vesting"
	"github.com/shopspring/decimal"
)

// Amounts travel as base-unit decimal strings. Display fields carry the same
// value shifted by the asset decimals.

// CreateGrantRequest is the body of POST /api/v1/grants. Dates are unix
// seconds with 0 <= start_date <= cliff_date < end_date; a negative start_date
// is rejected as invalid_schedule. deposit_amount is a base-unit integer string.
type CreateGrantRequest struct {
	Employer      string `json:"employer"`
	Employee      string `json:"employee"`
	Asset         string `json:"asset"`
	Decimals      uint8  `json:"decimals"`
	StartDate     int64  `json:"start_date"`
	CliffDate     int64  `json:"cliff_date"`
	EndDate       int64  `json:"end_date"`
	DepositAmount string `json:"deposit_amount"`

	Grant    string `json:"grant,omitempty"`
	Schedule string `json:"schedule,omitempty"`
	Vault    string `json:"vault,omitempty"`
	Source   string `json:"source,omitempty"`
}

type ClaimGrantRequest struct {
	Employer    string `json:"employer"`
	Schedule    string `json:"schedule,omitempty"`
	Vault       string `json:"vault,omitempty"`
	Asset       string `json:"asset,omitempty"`
	Destination string `json:"destination,omitempty"`
}

type MintRequest struct {
	Owner  string `json:"owner"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type ClockRequest struct {
	Set     *int64 `json:"set,omitempty"`
	Advance *int64 `json:"advance,omitempty"`
}

type ClockResponse struct {
	Now int64 `json:"now"`
}

type ScheduleResponse struct {
	Address   string `json:"address"`
	StartDate int64  `json:"start_date"`
	CliffDate int64  `json:"cliff_date"`
	EndDate   int64  `json:"end_date"`
}

type GrantResponse struct {
	Address          string           `json:"address"`
	Employer         string           `json:"employer"`
	Employee         string           `json:"employee"`
	Asset            string           `json:"asset"`
	Decimals         uint8            `json:"decimals"`
	Vault            string           `json:"vault"`
	Status           string           `json:"status"`
	TotalDeposited   string           `json:"total_deposited"`
	TotalClaimed     string           `json:"total_claimed"`
	VaultBalance     string           `json:"vault_balance"`
	DisplayDeposited string           `json:"display_deposited"`
	DisplayClaimed   string           `json:"display_claimed"`
	GrantBump        uint8            `json:"grant_bump"`
	VaultBump        uint8            `json:"vault_bump"`
	Schedule         ScheduleResponse `json:"schedule"`
}

type VestingResponse struct {
	Grant            string `json:"grant"`
	At               int64  `json:"at"`
	Vested           string `json:"vested"`
	Claimed          string `json:"claimed"`
	Claimable        string `json:"claimable"`
	Remaining        string `json:"remaining"`
	DisplayVested    string `json:"display_vested"`
	DisplayClaimable string `json:"display_claimable"`
}

type ClaimResponse struct {
	ID            string `json:"id"`
	Grant         string `json:"grant"`
	Destination   string `json:"destination"`
	Amount        string `json:"amount"`
	DisplayAmount string `json:"display_amount"`
	Vested        string `json:"vested"`
	TotalClaimed  string `json:"total_claimed"`
	Remaining     string `json:"remaining"`
	ClaimedAt     int64  `json:"claimed_at"`
}

type ClaimRecordResponse struct {
	ID           string `json:"id"`
	Amount       string `json:"amount"`
	TotalClaimed string `json:"total_claimed"`
	ClaimedAt    int64  `json:"claimed_at"`
}

type AccountResponse struct {
	Address string `json:"address"`
	Owner   string `json:"owner"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ParseAmount reads a base-unit amount. Empty and non-integer strings are
// rejected.
func ParseAmount(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func FormatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// DisplayAmount renders v in whole asset units, e.g. 1500000 with 6 decimals
// is "1.5".
func DisplayAmount(v uint64, decimals uint8) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
	return d.Shift(-int32(decimals)).String()
}

func (r CreateGrantRequest) ToVesting(amount uint64) vesting.CreateRequest {
	return vesting.CreateRequest{
		Employer:      r.Employer,
		Employee:      r.Employee,
		Asset:         r.Asset,
		Decimals:      r.Decimals,
		StartDate:     r.StartDate,
		CliffDate:     r.CliffDate,
		EndDate:       r.EndDate,
		DepositAmount: amount,
		Grant:         r.Grant,
		Schedule:      r.Schedule,
		Vault:         r.Vault,
		Source:        r.Source,
	}
}

func (r ClaimGrantRequest) ToVesting(grant string) vesting.ClaimRequest {
	return vesting.ClaimRequest{
		Employer:    r.Employer,
		Grant:       grant,
		Schedule:    r.Schedule,
		Vault:       r.Vault,
		Asset:       r.Asset,
		Destination: r.Destination,
	}
}

func NewGrantResponse(s *vesting.GrantState) GrantResponse {
	g := s.Grant
	return GrantResponse{
		Address:          g.Address,
		Employer:         g.Employer,
		Employee:         g.Employee,
		Asset:            g.Asset,
		Decimals:         g.Decimals,
		Vault:            g.VaultAddress,
		Status:           s.Status(),
		TotalDeposited:   FormatAmount(g.TotalDeposited),
		TotalClaimed:     FormatAmount(g.TotalClaimed),
		VaultBalance:     FormatAmount(s.VaultBalance),
		DisplayDeposited: DisplayAmount(g.TotalDeposited, g.Decimals),
		DisplayClaimed:   DisplayAmount(g.TotalClaimed, g.Decimals),
		GrantBump:        g.GrantBump,
		VaultBump:        g.VaultBump,
		Schedule: ScheduleResponse{
			Address:   s.Schedule.Address,
			StartDate: s.Schedule.StartDate,
			CliffDate: s.Schedule.CliffDate,
			EndDate:   s.Schedule.EndDate,
		},
	}
}

func NewVestingResponse(p *vesting.Preview) VestingResponse {
	return VestingResponse{
		Grant:            p.GrantAddress,
		At:               p.At,
		Vested:           FormatAmount(p.Vested),
		Claimed:          FormatAmount(p.Claimed),
		Claimable:        FormatAmount(p.Claimable),
		Remaining:        FormatAmount(p.Remaining),
		DisplayVested:    DisplayAmount(p.Vested, p.Decimals),
		DisplayClaimable: DisplayAmount(p.Claimable, p.Decimals),
	}
}

func NewClaimResponse(r *vesting.ClaimResult) ClaimResponse {
	return ClaimResponse{
		ID:            r.Record.ID,
		Grant:         r.GrantAddress,
		Destination:   r.Destination,
		Amount:        FormatAmount(r.Amount),
		DisplayAmount: DisplayAmount(r.Amount, r.Decimals),
		Vested:        FormatAmount(r.Vested),
		TotalClaimed:  FormatAmount(r.TotalClaimed),
		Remaining:     FormatAmount(r.Remaining),
		ClaimedAt:     r.ClaimedAt,
	}
}

func NewClaimRecordResponses(records []models.ClaimRecord) []ClaimRecordResponse {
	out := make([]ClaimRecordResponse, len(records))
	for i, r := range records {
		out[i] = ClaimRecordResponse{
			ID:           r.ID,
			Amount:       FormatAmount(r.Amount),
			TotalClaimed: FormatAmount(r.TotalClaimed),
			ClaimedAt:    r.ClaimedAt,
		}
	}
	return out
}

func NewAccountResponse(a *models.TokenAccount) AccountResponse {
	return AccountResponse{
		Address: a.Address,
		Owner:   a.Owner,
		Asset:   a.Asset,
		Balance: FormatAmount(a.Balance),
	}
}
