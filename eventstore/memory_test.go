package eventstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapse-systems/corpuscallosum/message"
)

func mustMessage(t *testing.T, id int64, ts int64) message.Message {
	t.Helper()
	msg, err := message.New(id, message.Internal, message.External, message.Normal, ts, nil, 0)
	require.NoError(t, err)
	return msg
}

// TestReplayEventsIsMonotoneAndContiguous is property 7: the projection of
// a replayed window to event ids is strictly increasing and is a
// contiguous subsequence of the full log restricted to the same window.
func TestReplayEventsIsMonotoneAndContiguous(t *testing.T) {
	ctx := context.Background()
	store := New(0)

	for i := int64(1); i <= 50; i++ {
		_, err := store.Append(ctx, mustMessage(t, i, i*10))
		require.NoError(t, err)
	}

	full, err := store.ReplayEvents(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, full, 50)

	windowed, err := store.ReplayEvents(ctx, 100, 300)
	require.NoError(t, err)
	require.NotEmpty(t, windowed)

	for i := 1; i < len(windowed); i++ {
		assert.Greater(t, windowed[i].EventID, windowed[i-1].EventID)
	}

	var fullInWindow []EventLogEntry
	for _, e := range full {
		if e.TimestampMs >= 100 && e.TimestampMs <= 300 {
			fullInWindow = append(fullInWindow, e)
		}
	}
	require.Equal(t, len(fullInWindow), len(windowed))
	for i := range windowed {
		assert.Equal(t, fullInWindow[i].EventID, windowed[i].EventID)
	}
}

func TestRingBufferTrimsOldest(t *testing.T) {
	ctx := context.Background()
	store := New(5)
	for i := int64(1); i <= 8; i++ {
		_, err := store.Append(ctx, mustMessage(t, i, i))
		require.NoError(t, err)
	}
	events, err := store.GetEvents(ctx, 0, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.EqualValues(t, 4, events[0].EventID)
	assert.EqualValues(t, 8, events[len(events)-1].EventID)
}
