package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineEngineRunsFnDirectly(t *testing.T) {
	var ran bool
	out, err := InlineEngine{}.ExecutePlan(context.Background(), "plan-1", func(ctx context.Context) (any, error) {
		ran = true
		return "ok", nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, "ok", out)
}

func TestInlineEnginePropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	_, err := InlineEngine{}.ExecutePlan(context.Background(), "plan-1", func(ctx context.Context) (any, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}
