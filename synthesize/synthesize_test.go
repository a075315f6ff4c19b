package synthesize

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapse-systems/corpuscallosum/message"
)

func mustMessage(t *testing.T, source, dest message.Tract) message.Message {
	t.Helper()
	msg, err := message.New(1, source, dest, message.Normal, 0, nil, 0)
	require.NoError(t, err)
	return msg
}

// TestBalanceArithmetic verifies the balance-ratio formula
// min(a,b)/max(a,b) against generated directional traffic counts.
func TestBalanceArithmetic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("emits confidence exactly min/max when it fires", prop.ForAll(
		func(a, b int) bool {
			ps := New()
			for i := 0; i < a; i++ {
				ps.AddEvent(mustMessage(t, message.Internal, message.External))
			}
			for i := 0; i < b; i++ {
				ps.AddEvent(mustMessage(t, message.External, message.Internal))
			}
			window := a + b

			min, max := a, b
			if min > max {
				min, max = max, min
			}
			want := float64(min) / float64(max)

			ev := ps.DetectEmergence(window)
			if ev == nil {
				return true
			}
			return ev.Confidence == want
		},
		gen.IntRange(1, 50),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}

// TestBalancedDialogueEmergesOnlyAboveThreshold is scenario S4 and the
// firing half of property 6: balanced traffic, with both directional
// counts above 10 and a balance ratio above 0.7, produces an emergence
// event. The non-firing half is covered by TestUnbalancedTrafficNeverEmerges
// (S5) and TestDirectionalMinimumGuardsSmallWindows.
func TestBalancedDialogueEmergesOnlyAboveThreshold(t *testing.T) {
	ps := New()
	for i := 0; i < 60; i++ {
		ps.AddEvent(mustMessage(t, message.Internal, message.External))
		ps.AddEvent(mustMessage(t, message.External, message.Internal))
	}
	assert.Equal(t, 120, ps.HistoryLen())
	assert.NotEmpty(t, ps.EmergenceEvents())
}

func TestUnbalancedTrafficNeverEmerges(t *testing.T) {
	ps := New()
	for i := 0; i < 60; i++ {
		ps.AddEvent(mustMessage(t, message.Internal, message.External))
	}
	assert.Empty(t, ps.EmergenceEvents())
}

func TestDirectionalMinimumGuardsSmallWindows(t *testing.T) {
	ps := New()
	for i := 0; i < 5; i++ {
		ps.AddEvent(mustMessage(t, message.Internal, message.External))
		ps.AddEvent(mustMessage(t, message.External, message.Internal))
	}
	assert.Empty(t, ps.EmergenceEvents())
}
