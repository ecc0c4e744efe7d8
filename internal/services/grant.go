package services

import (
	"context"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dimitrije/vesting-api/internal/models"
	"github.com/dimitrije/vesting-api/internal/sse"
	"github.com/dimitrije/vesting-api/internal/vesting"
	"github.com/dimitrije/vesting-api/pkg/circuit"
	"github.com/dimitrije/vesting-api/pkg/messaging"
)

const publishTimeout = 2 * time.Second

type EventPublisher interface {
	Publish(ctx context.Context, subject string, data any) error
}

type GrantNotifier interface {
	BroadcastCreated(data sse.GrantCreatedData)
	BroadcastClaim(data sse.GrantClaimedData)
}

// GrantService fronts the vesting ledger for the HTTP layer. After a create or
// claim commits it fans the change out to NATS and to open event streams.
// Event delivery is best effort and never fails the operation.
type GrantService struct {
	ledger    *vesting.Ledger
	processor *vesting.Processor
	logger    *log.Logger

	publisher     EventPublisher
	breaker       *circuit.Breaker
	subjectPrefix string
	notifier      GrantNotifier
}

func NewGrantService(ledger *vesting.Ledger, processor *vesting.Processor, logger *log.Logger) *GrantService {
	return &GrantService{
		ledger:    ledger,
		processor: processor,
		logger:    logger,
	}
}

func (s *GrantService) WithEvents(publisher EventPublisher, breaker *circuit.Breaker, subjectPrefix string) *GrantService {
	s.publisher = publisher
	s.breaker = breaker
	s.subjectPrefix = subjectPrefix
	return s
}

func (s *GrantService) WithNotifier(n GrantNotifier) *GrantService {
	s.notifier = n
	return s
}

func (s *GrantService) Create(ctx context.Context, caller string, req vesting.CreateRequest) (*vesting.GrantState, error) {
	state, err := s.ledger.Create(ctx, caller, req)
	if err != nil {
		s.logger.Warn("grant create rejected", "employer", req.Employer, "employee", req.Employee, "code", vesting.Code(err), "err", err)
		return nil, err
	}

	g := state.Grant
	s.logger.Info("grant created",
		"grant", g.Address, "employer", g.Employer, "employee", g.Employee,
		"asset", g.Asset, "deposited", g.TotalDeposited)

	deposited := strconv.FormatUint(g.TotalDeposited, 10)
	s.publish(ctx, messaging.EventTypeGrantCreated, g.Address, caller, messaging.GrantCreatedEvent{
		Grant:     g.Address,
		Employer:  g.Employer,
		Employee:  g.Employee,
		Asset:     g.Asset,
		Vault:     g.VaultAddress,
		Deposited: deposited,
		StartDate: state.Schedule.StartDate,
		CliffDate: state.Schedule.CliffDate,
		EndDate:   state.Schedule.EndDate,
	})
	if s.notifier != nil {
		s.notifier.BroadcastCreated(sse.GrantCreatedData{
			Grant:     g.Address,
			Employer:  g.Employer,
			Employee:  g.Employee,
			Deposited: deposited,
		})
	}
	return state, nil
}

func (s *GrantService) Claim(ctx context.Context, caller string, req vesting.ClaimRequest) (*vesting.ClaimResult, error) {
	res, err := s.processor.Claim(ctx, caller, req)
	if err != nil {
		code := vesting.Code(err)
		if code == "inconsistent_state" || code == "internal" {
			s.logger.Error("claim failed", "grant", req.Grant, "caller", caller, "code", code, "err", err)
		} else {
			s.logger.Debug("claim rejected", "grant", req.Grant, "caller", caller, "code", code, "err", err)
		}
		return nil, err
	}

	s.logger.Info("claim settled",
		"grant", res.GrantAddress, "amount", res.Amount,
		"total_claimed", res.TotalClaimed, "remaining", res.Remaining, "at", res.ClaimedAt)

	amount := strconv.FormatUint(res.Amount, 10)
	total := strconv.FormatUint(res.TotalClaimed, 10)
	remaining := strconv.FormatUint(res.Remaining, 10)
	s.publish(ctx, messaging.EventTypeGrantClaimed, res.GrantAddress, caller, messaging.GrantClaimedEvent{
		Grant:        res.GrantAddress,
		Employee:     caller,
		Destination:  res.Destination,
		Amount:       amount,
		TotalClaimed: total,
		Remaining:    remaining,
		ClaimedAt:    res.ClaimedAt,
	})
	if s.notifier != nil {
		s.notifier.BroadcastClaim(sse.GrantClaimedData{
			Grant:        res.GrantAddress,
			Amount:       amount,
			TotalClaimed: total,
			Remaining:    remaining,
			ClaimedAt:    res.ClaimedAt,
		})
	}
	return res, nil
}

func (s *GrantService) Get(ctx context.Context, address string) (*vesting.GrantState, error) {
	return s.ledger.Get(ctx, address)
}

// Preview evaluates the schedule at at, or at the ledger clock when at is nil.
func (s *GrantService) Preview(ctx context.Context, address string, at *int64) (*vesting.Preview, error) {
	if at == nil {
		return s.ledger.Preview(ctx, address)
	}
	return s.ledger.PreviewAt(ctx, address, *at)
}

func (s *GrantService) Claims(ctx context.Context, address string) ([]models.ClaimRecord, error) {
	return s.ledger.Claims(ctx, address)
}

func (s *GrantService) Account(ctx context.Context, address string) (*models.TokenAccount, error) {
	return s.ledger.Account(ctx, address)
}

func (s *GrantService) Mint(ctx context.Context, owner, asset string, amount uint64) (*models.TokenAccount, error) {
	acct, err := s.ledger.Fund(ctx, owner, asset, amount)
	if err != nil {
		return nil, err
	}
	s.logger.Info("minted", "owner", owner, "asset", asset, "amount", amount, "balance", acct.Balance)
	return acct, nil
}

func (s *GrantService) Now() int64 {
	return s.ledger.Now()
}

func (s *GrantService) publish(ctx context.Context, eventType, grant, principal string, data any) {
	if s.publisher == nil {
		return
	}
	event, err := messaging.NewEvent(eventType, grant, data, messaging.EventMetadata{
		Principal: principal,
		Source:    "vesting-api",
	})
	if err != nil {
		s.logger.Error("failed to build event", "type", eventType, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	subject := messaging.Subject(s.subjectPrefix, eventType)
	send := func() error { return s.publisher.Publish(ctx, subject, event) }
	if s.breaker != nil {
		err = s.breaker.Execute(ctx, send)
	} else {
		err = send()
	}
	if err != nil {
		s.logger.Warn("failed to publish event", "subject", subject, "grant", grant, "err", err)
	}
}
