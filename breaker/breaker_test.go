package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapse-systems/corpuscallosum/ccerrors"
)

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	b := New(Config{FailureThreshold: 3, RecoveryTimeout: time.Hour, SuccessThreshold: 2})

	for i := 0; i < 2; i++ {
		require.NoError(t, b.Allow())
		b.Observe(errors.New("boom"))
		assert.Equal(t, Closed, b.State())
	}

	require.NoError(t, b.Allow())
	b.Observe(errors.New("boom"))
	assert.Equal(t, Open, b.State())
}

func TestBreakerHalfOpensAfterRecoveryTimeout(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	b := New(Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Second, SuccessThreshold: 1, Now: clock})

	require.NoError(t, b.Allow())
	b.Observe(errors.New("boom"))
	require.Equal(t, Open, b.State())

	require.ErrorIs(t, b.Allow(), ccerrors.ErrCircuitOpen)

	now = now.Add(11 * time.Second)
	require.NoError(t, b.Allow())
	assert.Equal(t, HalfOpen, b.State())
}

func TestBreakerClosesAfterConsecutiveSuccessesInHalfOpen(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	b := New(Config{FailureThreshold: 1, RecoveryTimeout: time.Second, SuccessThreshold: 2, Now: clock})

	require.NoError(t, b.Allow())
	b.Observe(errors.New("boom"))
	now = now.Add(2 * time.Second)
	require.NoError(t, b.Allow())
	require.Equal(t, HalfOpen, b.State())

	b.Observe(nil)
	assert.Equal(t, HalfOpen, b.State())
	b.Observe(nil)
	assert.Equal(t, Closed, b.State())
}

// TestBreakerHalfOpenAllowsOnlyOneConcurrentTrial guards against every
// waiting caller being let through at once when the breaker transitions
// to HalfOpen: only the first Allow should succeed until its Observe
// resolves.
func TestBreakerHalfOpenAllowsOnlyOneConcurrentTrial(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	b := New(Config{FailureThreshold: 1, RecoveryTimeout: time.Second, SuccessThreshold: 2, Now: clock})

	require.NoError(t, b.Allow())
	b.Observe(errors.New("boom"))
	now = now.Add(2 * time.Second)

	require.NoError(t, b.Allow())
	require.Equal(t, HalfOpen, b.State())

	require.ErrorIs(t, b.Allow(), ccerrors.ErrCircuitOpen, "a second concurrent caller should not get a trial slot")

	b.Observe(nil)
	require.NoError(t, b.Allow(), "after the first trial resolves, the next caller should get a trial slot")
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	b := New(Config{FailureThreshold: 1, RecoveryTimeout: time.Second, SuccessThreshold: 2, Now: clock})

	require.NoError(t, b.Allow())
	b.Observe(errors.New("boom"))
	now = now.Add(2 * time.Second)
	require.NoError(t, b.Allow())
	require.Equal(t, HalfOpen, b.State())

	b.Observe(errors.New("still failing"))
	assert.Equal(t, Open, b.State())
}
