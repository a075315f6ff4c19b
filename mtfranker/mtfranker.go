// Package mtfranker implements the MTF (Move-To-Front) dynamic
// re-ranking system described in spec.md §4.12: particle invocation
// frequencies drive periodic rank reassignment, writing back into the
// shared agent registry, with a consciousness_level metric tracking
// optimization effectiveness.
//
// Grounded directly on MTFRanker/ParticleUsageStats/MTFRankingState in
// original_source/lib/mtf_ranker.py; the registry/state persistence
// mechanism is delegated to package registrystate instead of ad hoc
// file I/O, following registry/store's interface-plus-backend convention.
package mtfranker

import (
	"sort"
	"sync"
	"time"
)

// DefaultReRankingInterval matches the Python implementation's 5-minute
// re_ranking_interval_s default.
const DefaultReRankingInterval = 300 * time.Second

// ReservedOrchestratorRank is never assigned to a particle; rank 1 is
// reserved for the orchestrator itself.
const ReservedOrchestratorRank = 1

// UnrankedDefault is the rank a particle has before it is ever re-ranked.
const UnrankedDefault = 999

// UsageStats mirrors ParticleUsageStats: accumulated invocation counters
// and their derived metrics for a single particle.
type UsageStats struct {
	ParticleID           string
	InvocationCount      int64
	TotalExecutionTimeS  float64
	SuccessCount         int64
	FailureCount         int64
	LastInvocationUnixMs int64
	CurrentFrequencyRank int

	SuccessRate           float64
	AverageExecutionTimeS float64
}

func (s *UsageStats) recordInvocation(executionTimeS float64, success bool, now time.Time) {
	s.InvocationCount++
	s.TotalExecutionTimeS += executionTimeS
	s.LastInvocationUnixMs = now.UnixMilli()
	if success {
		s.SuccessCount++
	} else {
		s.FailureCount++
	}
	s.updateDerivedMetrics()
}

func (s *UsageStats) updateDerivedMetrics() {
	if total := s.SuccessCount + s.FailureCount; total > 0 {
		s.SuccessRate = float64(s.SuccessCount) / float64(total)
	}
	if s.InvocationCount > 0 {
		s.AverageExecutionTimeS = s.TotalExecutionTimeS / float64(s.InvocationCount)
	}
}

// RankChange records a particle's rank transition from a re-ranking pass.
type RankChange struct {
	ParticleID string
	OldRank    int
	NewRank    int
}

// Registry is the minimal shared-state seam MTFRanker needs: reading a
// particle's currently persisted rank and writing back a new one.
// registrystate.Store implements this against the atomic rename-on-write
// agent registry file.
type Registry interface {
	FrequencyRank(particleID string) (int, bool)
	SetFrequencyRank(particleID string, rank int) error
}

// MTFRanker tracks per-particle usage and periodically reassigns
// frequency ranks, most-invoked first, starting at rank 2 (rank 1 is
// reserved for the orchestrator).
type MTFRanker struct {
	registry Registry
	interval time.Duration
	nowFn    func() time.Time

	mu                  sync.Mutex
	stats               map[string]*UsageStats
	totalReRankings     int64
	lastReRankingUnixMs int64
	consciousnessLevel  float64
}

// New constructs an MTFRanker backed by the given registry. interval <= 0
// uses DefaultReRankingInterval.
func New(registry Registry, interval time.Duration) *MTFRanker {
	if interval <= 0 {
		interval = DefaultReRankingInterval
	}
	return &MTFRanker{
		registry: registry,
		interval: interval,
		nowFn:    time.Now,
		stats:    make(map[string]*UsageStats),
	}
}

// RecordInvocation records a particle invocation's outcome and, if the
// re-ranking interval has elapsed since the last pass, triggers
// ReRankParticles.
func (r *MTFRanker) RecordInvocation(particleID string, executionTimeS float64, success bool) []RankChange {
	now := r.nowFn()

	r.mu.Lock()
	stats, ok := r.stats[particleID]
	if !ok {
		rank := UnrankedDefault
		if existing, found := r.registry.FrequencyRank(particleID); found {
			rank = existing
		}
		stats = &UsageStats{ParticleID: particleID, CurrentFrequencyRank: rank}
		r.stats[particleID] = stats
	}
	stats.recordInvocation(executionTimeS, success, now)

	due := now.Sub(msToTime(r.lastReRankingUnixMs)) >= r.interval
	r.mu.Unlock()

	if due {
		return r.ReRankParticles()
	}
	return nil
}

// ReRankParticles reassigns ranks by descending invocation count, rank 2
// upward (rank 1 reserved for the orchestrator), writes changes into the
// registry, and updates the consciousness_level metric. Returns the set
// of particles whose rank changed.
func (r *MTFRanker) ReRankParticles() []RankChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reRankLocked()
}

func (r *MTFRanker) reRankLocked() []RankChange {
	sorted := make([]*UsageStats, 0, len(r.stats))
	for _, s := range r.stats {
		sorted = append(sorted, s)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].InvocationCount > sorted[j].InvocationCount
	})

	var changes []RankChange
	for i, s := range sorted {
		newRank := i + 2 // rank 1 reserved for orchestrator
		oldRank := s.CurrentFrequencyRank
		if oldRank == newRank {
			continue
		}
		s.CurrentFrequencyRank = newRank
		_ = r.registry.SetFrequencyRank(s.ParticleID, newRank)
		changes = append(changes, RankChange{ParticleID: s.ParticleID, OldRank: oldRank, NewRank: newRank})
	}

	r.totalReRankings++
	r.lastReRankingUnixMs = r.nowFn().UnixMilli()
	r.updateConsciousnessLevelLocked(changes)

	return changes
}

// updateConsciousnessLevelLocked implements the Python blend: no changes
// nudges consciousness toward 1.0 by +0.1 (system already optimized);
// otherwise consciousness_level = 0.7*change_factor + 0.3*(1-change_factor),
// where change_factor normalizes the average |rank delta| against an
// assumed maximum swing of 10 ranks.
func (r *MTFRanker) updateConsciousnessLevelLocked(changes []RankChange) {
	if len(changes) == 0 {
		r.consciousnessLevel = min1(r.consciousnessLevel+0.1, 1.0)
		return
	}
	var total int
	for _, c := range changes {
		d := c.NewRank - c.OldRank
		if d < 0 {
			d = -d
		}
		total += d
	}
	avg := float64(total) / float64(len(changes))
	changeFactor := min1(avg/10.0, 1.0)
	r.consciousnessLevel = 0.7*changeFactor + 0.3*(1-changeFactor)
}

// ForceReRank bypasses the interval check and re-ranks immediately.
func (r *MTFRanker) ForceReRank() []RankChange {
	return r.ReRankParticles()
}

// ParticleRank returns a particle's current frequency rank, falling back
// to the registry's persisted value, then UnrankedDefault.
func (r *MTFRanker) ParticleRank(particleID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stats[particleID]; ok {
		return s.CurrentFrequencyRank
	}
	if rank, found := r.registry.FrequencyRank(particleID); found {
		return rank
	}
	return UnrankedDefault
}

// TopParticles returns the n most-invoked particles by invocation count,
// descending. Supplements spec.md with the Python implementation's
// get_top_particles introspection.
func (r *MTFRanker) TopParticles(n int) []UsageStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := make([]UsageStats, 0, len(r.stats))
	for _, s := range r.stats {
		sorted = append(sorted, *s)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].InvocationCount > sorted[j].InvocationCount
	})
	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// Stats summarizes the ranker's overall state.
type Stats struct {
	TotalParticlesTracked int
	TotalReRankings       int64
	ConsciousnessLevel    float64
	ReRankingInterval     time.Duration
	TopParticles          []UsageStats
}

// GetStats returns the ranker's summary statistics, including the top 5
// particles by invocation count.
func (r *MTFRanker) GetStats() Stats {
	r.mu.Lock()
	tracked := len(r.stats)
	reRankings := r.totalReRankings
	level := r.consciousnessLevel
	interval := r.interval
	r.mu.Unlock()

	return Stats{
		TotalParticlesTracked: tracked,
		TotalReRankings:       reRankings,
		ConsciousnessLevel:    level,
		ReRankingInterval:     interval,
		TopParticles:          r.TopParticles(5),
	}
}

func min1(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
