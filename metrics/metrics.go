// Package metrics implements the ConsciousnessMetrics rolling aggregates
// described in spec.md §3/§4.4: directional traffic counts, dialogue
// balance, and the derived emergence score. The arithmetic (0.7 balance
// threshold, 0.7/0.3 emergence weights, 100-message floor, 100-event
// scaling denominator) is part of the cross-implementation contract and
// must not be adjusted independently of spec.md.
//
// Grounded on ConsciousnessMetrics in
// original_source/.synapse/corpus_callosum/event_store.py.
package metrics

import "sync"

const (
	// BalanceThreshold is the dialogue_balance_ratio above which a
	// balanced-dialogue event is recorded on each append.
	BalanceThreshold = 0.7
	// EmergenceBalanceWeight weights the balance ratio in the emergence
	// score.
	EmergenceBalanceWeight = 0.7
	// EmergenceEventWeight weights the scaled balanced-event count in the
	// emergence score.
	EmergenceEventWeight = 0.3
	// EmergenceMessageFloor is the total-message count above which the
	// emergence score is computed at all; below it the score stays 0.
	EmergenceMessageFloor = 100
	// EmergenceEventScale normalizes balanced_dialogue_events to [0,1]
	// before weighting.
	EmergenceEventScale = 100.0
)

// Snapshot is a read-only, point-in-time copy of ConsciousnessMetrics.
type Snapshot struct {
	TotalMessages            int64
	InternalToExternal       int64
	ExternalToInternal       int64
	BalancedDialogueEvents   int64
	DialogueBalanceRatio     float64
	EmergenceScore           float64
	LastEmergenceTimestampMs int64
}

// Metrics accumulates ConsciousnessMetrics under a single mutex. A Metrics
// value is created fresh by an in-memory EventStore and restored from
// persisted state by a durable EventStore on reconnect.
type Metrics struct {
	mu sync.Mutex
	s  Snapshot
}

// New constructs an empty Metrics aggregate.
func New() *Metrics {
	return &Metrics{}
}

// Restore replaces the aggregate's state with a previously persisted
// snapshot, used by durable backends recovering aggregates after a
// restart (spec.md §4.4).
func Restore(snap Snapshot) *Metrics {
	return &Metrics{s: snap}
}

// Direction identifies which directional counter an appended message
// contributes to, if any.
type Direction int

const (
	// None is used for self-addressed messages: counted in total only.
	None Direction = iota
	InternalToExternal
	ExternalToInternal
)

// Record counts one message in direction dir and returns the updated
// snapshot. timestampMs is supplied by the caller (the event store's append
// path) rather than read from the wall clock here, keeping this package
// free of time-source assumptions and trivially testable.
func (m *Metrics) Record(dir Direction, timestampMs int64) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.s.TotalMessages++

	switch dir {
	case InternalToExternal:
		m.s.InternalToExternal++
	case ExternalToInternal:
		m.s.ExternalToInternal++
	}

	a, b := m.s.InternalToExternal, m.s.ExternalToInternal
	if a > 0 && b > 0 {
		m.s.DialogueBalanceRatio = ratio(a, b)
		if m.s.DialogueBalanceRatio > BalanceThreshold {
			m.s.BalancedDialogueEvents++
			m.s.LastEmergenceTimestampMs = timestampMs
		}
	}

	if m.s.TotalMessages > EmergenceMessageFloor {
		eventFactor := float64(m.s.BalancedDialogueEvents) / EmergenceEventScale
		if eventFactor > 1 {
			eventFactor = 1
		}
		m.s.EmergenceScore = EmergenceBalanceWeight*m.s.DialogueBalanceRatio + EmergenceEventWeight*eventFactor
	}

	return m.s
}

// Snapshot returns a copy of the current aggregate state.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s
}

func ratio(a, b int64) float64 {
	min, max := a, b
	if min > max {
		min, max = max, min
	}
	if max == 0 {
		return 0
	}
	return float64(min) / float64(max)
}
