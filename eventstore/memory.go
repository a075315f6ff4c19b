package eventstore

import (
	"context"
	"sync"

	"github.com/synapse-systems/corpuscallosum/message"
	"github.com/synapse-systems/corpuscallosum/metrics"
)

// DefaultMaxEntries is the default ring capacity for the in-memory backend,
// matching the durable backend's default approximate stream length
// (spec.md §6).
const DefaultMaxEntries = 100_000

// MemoryStore is a ring-buffered, non-durable EventStore. It is used when
// the durable backend is unavailable or explicitly disabled (spec.md
// §4.4), and in tests.
type MemoryStore struct {
	maxEntries int

	mu      sync.RWMutex
	entries []EventLogEntry
	nextID  int64
	metrics *metrics.Metrics
}

// New constructs an in-memory EventStore capped at maxEntries (trimmed
// oldest-first once exceeded). maxEntries <= 0 uses DefaultMaxEntries.
func New(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{maxEntries: maxEntries, metrics: metrics.New()}
}

// Connect is a no-op for the in-memory backend.
func (s *MemoryStore) Connect(context.Context) error { return nil }

// Disconnect is a no-op for the in-memory backend.
func (s *MemoryStore) Disconnect(context.Context) error { return nil }

// Append records msg, trims the ring if necessary, and updates
// ConsciousnessMetrics per spec.md §4.4's four-step algorithm.
func (s *MemoryStore) Append(_ context.Context, msg message.Message) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	entry := FromMessage(s.nextID, msg)
	s.entries = append(s.entries, entry)
	if len(s.entries) > s.maxEntries {
		overflow := len(s.entries) - s.maxEntries
		s.entries = s.entries[overflow:]
	}

	s.metrics.Record(directionOf(msg), msg.TimestampMs())
	return entry.EventID, nil
}

func directionOf(msg message.Message) metrics.Direction {
	if msg.SelfAddressed() {
		return metrics.None
	}
	if msg.Source() == message.Internal && msg.Dest() == message.External {
		return metrics.InternalToExternal
	}
	if msg.Source() == message.External && msg.Dest() == message.Internal {
		return metrics.ExternalToInternal
	}
	return metrics.None
}

// GetEvents performs a non-blocking range read. blockMs is ignored by the
// in-memory backend: data is always immediately available or absent.
func (s *MemoryStore) GetEvents(_ context.Context, startID int64, count int, _ int) ([]EventLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []EventLogEntry
	for _, e := range s.entries {
		if e.EventID < startID {
			continue
		}
		out = append(out, e)
		if count > 0 && len(out) >= count {
			break
		}
	}
	return out, nil
}

// ReplayEvents returns entries whose TimestampMs falls within
// [fromTs, toTs], in chronological (insertion) order. A zero bound is
// unbounded on that side.
func (s *MemoryStore) ReplayEvents(_ context.Context, fromTs, toTs int64) ([]EventLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []EventLogEntry
	for _, e := range s.entries {
		if fromTs > 0 && e.TimestampMs < fromTs {
			continue
		}
		if toTs > 0 && e.TimestampMs > toTs {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// GetMetrics returns a snapshot of the in-memory ConsciousnessMetrics.
func (s *MemoryStore) GetMetrics(context.Context) (metrics.Snapshot, error) {
	return s.metrics.Snapshot(), nil
}
