// Package circuit tracks consecutive failures of a remote dependency so that
// readiness probes can report it as degraded.
package circuit

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the dependency is answering.
	StateClosed State = iota
	// StateOpen means the failure threshold was crossed and no success has
	// been observed since.
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// StateChange reports a transition caused by an observation.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker counts consecutive failures. It never blocks callers: a write that
// might still land on the ledger is not something to short-circuit, so the
// breaker is an observer only.
type Breaker struct {
	mu        sync.Mutex
	name      string
	state     State
	failures  int
	threshold int
	openedAt  time.Time
	now       func() time.Time
}

// Option configures a Breaker instance.
type Option func(*Breaker)

// WithFailureThreshold sets the number of consecutive failures that opens
// the circuit. Default is 5.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.threshold = n
		}
	}
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{name: name, threshold: 5, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

// Observe records one outcome. A single success closes an open circuit.
func (b *Breaker) Observe(failed bool) StateChange {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !failed {
		b.failures = 0
		if b.state == StateOpen {
			b.state = StateClosed
			b.openedAt = time.Time{}
			return StateChange{Closed: true}
		}
		return StateChange{}
	}

	b.failures++
	if b.state == StateClosed && b.failures >= b.threshold {
		b.state = StateOpen
		b.openedAt = b.now()
		return StateChange{Opened: true}
	}
	return StateChange{}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// OpenSince returns when the circuit opened, or the zero time when closed.
func (b *Breaker) OpenSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openedAt
}
