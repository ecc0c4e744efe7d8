// Package circuit stops calling a failing dependency for a cool-down period
// after repeated errors.
package circuit

import (
	"context"
	"errors"
	"sync"
	"time"
)

type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

type Config struct {
	Name          string
	MaxFailures   int
	Timeout       time.Duration
	HalfOpenMax   int
	OnStateChange func(name string, from, to State)

	// Now overrides the time source, mainly for tests.
	Now func() time.Time
}

// Breaker guards calls to one dependency. All state lives behind mu; the
// state change callback runs after the lock is released.
type Breaker struct {
	name        string
	maxFailures int
	timeout     time.Duration
	halfOpenMax int
	now         func() time.Time
	onChange    func(name string, from, to State)

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	inFlight    int
	lastFailure time.Time
}

func NewBreaker(cfg Config) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Breaker{
		name:        cfg.Name,
		maxFailures: cfg.MaxFailures,
		timeout:     cfg.Timeout,
		halfOpenMax: cfg.HalfOpenMax,
		now:         cfg.Now,
		onChange:    cfg.OnStateChange,
		state:       StateClosed,
	}
}

// Execute runs fn unless the breaker is open. A cancelled ctx is returned
// without calling fn and without counting as a failure.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	halfOpen, err := b.allow()
	if err != nil {
		return err
	}

	err = fn()
	b.record(halfOpen, err == nil)
	return err
}

func (b *Breaker) allow() (bool, error) {
	b.mu.Lock()
	var from, to State
	changed := false

	defer func() {
		b.mu.Unlock()
		if changed {
			b.notify(from, to)
		}
	}()

	switch b.state {
	case StateClosed:
		return false, nil
	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.timeout {
			return false, ErrCircuitOpen
		}
		from, to, changed = b.state, StateHalfOpen, true
		b.setState(StateHalfOpen)
		fallthrough
	default:
		if b.inFlight >= b.halfOpenMax {
			return false, ErrTooManyRequests
		}
		b.inFlight++
		return true, nil
	}
}

func (b *Breaker) record(halfOpen, ok bool) {
	b.mu.Lock()
	from := b.state

	if halfOpen && b.inFlight > 0 {
		b.inFlight--
	}
	switch {
	case ok && b.state == StateHalfOpen:
		b.successes++
		if b.successes >= b.halfOpenMax {
			b.setState(StateClosed)
		}
	case ok:
		b.failures = 0
	case b.state == StateHalfOpen:
		b.lastFailure = b.now()
		b.setState(StateOpen)
	case b.state == StateClosed:
		b.failures++
		if b.failures >= b.maxFailures {
			b.lastFailure = b.now()
			b.setState(StateOpen)
		}
	}

	to := b.state
	b.mu.Unlock()
	if from != to {
		b.notify(from, to)
	}
}

func (b *Breaker) setState(s State) {
	b.state = s
	b.failures = 0
	b.successes = 0
	if s != StateHalfOpen {
		b.inFlight = 0
	}
}

func (b *Breaker) notify(from, to State) {
	if b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.state
	b.setState(StateClosed)
	b.mu.Unlock()
	if from != StateClosed {
		b.notify(from, StateClosed)
	}
}
