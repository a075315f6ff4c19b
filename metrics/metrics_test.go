package metrics

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

// TestBalanceArithmeticMatchesMinMax verifies DialogueBalanceRatio equals
// min(a,b)/max(a,b) after N records with i2e=a>0, e2i=b>0.
func TestBalanceArithmeticMatchesMinMax(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("dialogue balance ratio is min/max", prop.ForAll(
		func(a, b int) bool {
			m := New()
			var snap Snapshot
			for i := 0; i < a; i++ {
				snap = m.Record(InternalToExternal, 0)
			}
			for i := 0; i < b; i++ {
				snap = m.Record(ExternalToInternal, 0)
			}
			min, max := a, b
			if min > max {
				min, max = max, min
			}
			return snap.DialogueBalanceRatio == float64(min)/float64(max)
		},
		gen.IntRange(1, 200),
		gen.IntRange(1, 200),
	))

	properties.TestingRun(t)
}

func TestEmergenceScoreZeroBelowMessageFloor(t *testing.T) {
	m := New()
	var snap Snapshot
	for i := 0; i < EmergenceMessageFloor; i++ {
		snap = m.Record(InternalToExternal, 0)
	}
	assert.Zero(t, snap.EmergenceScore)
}

func TestSelfAddressedCountsOnlyTotal(t *testing.T) {
	m := New()
	snap := m.Record(None, 0)
	assert.EqualValues(t, 1, snap.TotalMessages)
	assert.Zero(t, snap.InternalToExternal)
	assert.Zero(t, snap.ExternalToInternal)
}

func TestRestorePreservesSnapshot(t *testing.T) {
	want := Snapshot{TotalMessages: 42, InternalToExternal: 20, ExternalToInternal: 15}
	m := Restore(want)
	assert.Equal(t, want, m.Snapshot())
}
