package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker(t *testing.T) {
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	b := New("ledger", WithFailureThreshold(3), WithClock(func() time.Time { return at }))

	assert.Equal(t, StateChange{}, b.Observe(true))
	assert.Equal(t, StateChange{}, b.Observe(true))
	assert.Equal(t, StateClosed, b.State())

	assert.Equal(t, StateChange{Opened: true}, b.Observe(true))
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, at, b.OpenSince())

	// further failures do not re-announce the transition
	assert.Equal(t, StateChange{}, b.Observe(true))

	assert.Equal(t, StateChange{Closed: true}, b.Observe(false))
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.OpenSince().IsZero())
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := New("ledger", WithFailureThreshold(2))
	b.Observe(true)
	b.Observe(false)
	b.Observe(true)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
}
