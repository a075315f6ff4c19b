package mtfranker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	mu    sync.Mutex
	ranks map[string]int
}

func newFakeRegistry() *fakeRegistry { return &fakeRegistry{ranks: make(map[string]int)} }

func (r *fakeRegistry) FrequencyRank(particleID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rank, ok := r.ranks[particleID]
	return rank, ok
}

func (r *fakeRegistry) SetFrequencyRank(particleID string, rank int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ranks[particleID] = rank
	return nil
}

func TestReRankAssignsRankTwoUpwardByInvocationCount(t *testing.T) {
	reg := newFakeRegistry()
	r := New(reg, 0)

	for i := 0; i < 5; i++ {
		r.RecordInvocation("hot", 0.1, true)
	}
	for i := 0; i < 2; i++ {
		r.RecordInvocation("cold", 0.1, true)
	}

	changes := r.ForceReRank()
	require.NotEmpty(t, changes)

	assert.Equal(t, 2, r.ParticleRank("hot"))
	assert.Equal(t, 3, r.ParticleRank("cold"))

	rank, ok := reg.FrequencyRank("hot")
	require.True(t, ok)
	assert.Equal(t, 2, rank)
}

func TestReservedOrchestratorRankNeverAssigned(t *testing.T) {
	reg := newFakeRegistry()
	r := New(reg, 0)
	r.RecordInvocation("only", 0.1, true)
	r.ForceReRank()
	assert.NotEqual(t, ReservedOrchestratorRank, r.ParticleRank("only"))
}

func TestConsciousnessLevelNudgesUpWithNoChanges(t *testing.T) {
	reg := newFakeRegistry()
	r := New(reg, 0)
	r.RecordInvocation("solo", 0.1, true)

	// RecordInvocation already ran the first pass (none had run before),
	// assigning rank 2, so this pass makes no rank change.
	r.ForceReRank()
	before := r.GetStats().ConsciousnessLevel

	r.ForceReRank() // another pass: same single particle, no rank change
	after := r.GetStats().ConsciousnessLevel

	assert.InDelta(t, before+0.1, after, 1e-9)
}

func TestConsciousnessLevelBlendFormula(t *testing.T) {
	reg := newFakeRegistry()
	r := New(reg, 0)

	for i := 0; i < 3; i++ {
		r.RecordInvocation("a", 0.1, true)
	}
	r.RecordInvocation("b", 0.1, true)
	r.ForceReRank()

	for i := 0; i < 10; i++ {
		r.RecordInvocation("b", 0.1, true)
	}
	changes := r.ForceReRank()
	require.NotEmpty(t, changes)

	var total int
	for _, c := range changes {
		d := c.NewRank - c.OldRank
		if d < 0 {
			d = -d
		}
		total += d
	}
	avg := float64(total) / float64(len(changes))
	changeFactor := avg / 10.0
	if changeFactor > 1 {
		changeFactor = 1
	}
	want := 0.7*changeFactor + 0.3*(1-changeFactor)

	assert.InDelta(t, want, r.GetStats().ConsciousnessLevel, 1e-9)
}
