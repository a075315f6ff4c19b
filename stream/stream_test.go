package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapse-systems/corpuscallosum/message"
)

func mustMessage(t *testing.T, id int64, payload any) message.Message {
	t.Helper()
	msg, err := message.New(id, message.Internal, message.External, message.Normal, 0, payload, 0)
	require.NoError(t, err)
	return msg
}

func TestNoDemandNoDelivery(t *testing.T) {
	s := New(message.External, Config{Tick: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	sub := s.Subscribe("sub", 4)
	sub.demand.Store(0)

	require.True(t, s.Publish(mustMessage(t, 1, "x")))

	select {
	case <-sub.Messages():
		t.Fatal("message delivered with zero demand")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPerSubscriberOrderPreservation(t *testing.T) {
	s := New(message.External, Config{Tick: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	sub := s.Subscribe("sub", 20)
	for i := int64(1); i <= 10; i++ {
		require.True(t, s.Publish(mustMessage(t, i, i)))
	}

	var got []int64
	for i := 0; i < 10; i++ {
		select {
		case msg := <-sub.Messages():
			got = append(got, msg.ID())
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1])
	}
}

// TestBackpressureBounded is scenario S2: a buffer of size 10 never holds
// more than 10 in-flight messages, and all 20 published are eventually
// delivered in order.
func TestBackpressureBounded(t *testing.T) {
	s := New(message.External, Config{Tick: time.Millisecond, PendingCapacity: 1000})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	sub := s.Subscribe("sub", 10)
	for i := int64(1); i <= 20; i++ {
		require.True(t, s.Publish(mustMessage(t, i, i)))
	}

	var got []int64
	for i := 0; i < 20; i++ {
		select {
		case msg := <-sub.Messages():
			got = append(got, msg.ID())
			sub.Request(1)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for message %d, got %d so far", i, len(got))
		}
	}
	require.Len(t, got, 20)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1])
	}
	assert.Zero(t, s.LossCount())
}

// TestBufferOverflowIsLoss is scenario S3: with no subscriber draining a
// 10-capacity buffer, the 11th and 12th Publish calls are dropped and
// counted as loss.
func TestBufferOverflowIsLoss(t *testing.T) {
	s := New(message.External, Config{Tick: time.Hour, PendingCapacity: 10})

	for i := int64(1); i <= 10; i++ {
		require.True(t, s.Publish(mustMessage(t, i, i)))
	}
	for i := int64(11); i <= 12; i++ {
		assert.False(t, s.Publish(mustMessage(t, i, i)))
	}
	assert.EqualValues(t, 2, s.LossCount())
	assert.Equal(t, 10, s.PendingDepth())
}
