package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayGrowsExponentiallyAndRespectsCap(t *testing.T) {
	cfg := Config{Base: 100 * time.Millisecond, Factor: 2, Cap: 30 * time.Second}

	assert.Equal(t, 100*time.Millisecond, cfg.Delay(0))
	assert.Equal(t, 200*time.Millisecond, cfg.Delay(1))
	assert.Equal(t, 400*time.Millisecond, cfg.Delay(2))
	assert.Equal(t, 30*time.Second, cfg.Delay(20), "delay must not exceed Cap regardless of attempt count")
}

func TestDelayJitterStaysWithinBound(t *testing.T) {
	cfg := Config{Base: time.Second, Factor: 1, Cap: time.Minute, Jitter: 0.1}
	for i := 0; i < 50; i++ {
		d := cfg.Delay(0)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	cfg := Config{Base: time.Millisecond, Factor: 1, Cap: 10 * time.Millisecond}
	attempts := 0
	err := Retry(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsWhenContextCanceled(t *testing.T) {
	cfg := Config{Base: 50 * time.Millisecond, Factor: 1, Cap: 50 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Retry(ctx, cfg, func(ctx context.Context) error {
		attempts++
		return errors.New("always fails")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, attempts, 1)
}
