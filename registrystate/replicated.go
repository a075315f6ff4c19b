package registrystate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ReplicatedMap is the minimal replicated-map contract the clustered
// Store is implemented against. Satisfied by *rmap.Map from
// goa.design/pulse/rmap; defined locally so this package stays
// unit-testable without Redis, matching
// registry/store/replicated.Map's ReplicatedMap contract.
type ReplicatedMap interface {
	Delete(ctx context.Context, key string) (string, error)
	Get(key string) (string, bool)
	Keys() []string
	Set(ctx context.Context, key, value string) (string, error)
}

const agentKeyPrefix = "corpus_callosum:agent:"

// ReplicatedStore persists the agent registry in a Pulse replicated map,
// making frequency-rank updates durable across restarts and visible to
// every node in a multi-node deployment (spec.md §9 Open Question:
// clustered path for the shared registry).
type ReplicatedStore struct {
	m   ReplicatedMap
	ctx context.Context
}

// NewReplicatedStore constructs a clustered registry Store backed by m.
// ctx bounds the Set calls Store methods issue; a background
// context is appropriate for most callers since rank updates are
// best-effort.
func NewReplicatedStore(ctx context.Context, m ReplicatedMap) *ReplicatedStore {
	return &ReplicatedStore{m: m, ctx: ctx}
}

var _ Store = (*ReplicatedStore)(nil)

// FrequencyRank returns a particle's persisted frequency rank.
func (s *ReplicatedStore) FrequencyRank(particleID string) (int, bool) {
	val, ok := s.m.Get(agentKey(particleID))
	if !ok {
		return 0, false
	}
	var entry AgentEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return 0, false
	}
	return entry.FrequencyRank, true
}

// SetFrequencyRank updates a particle's frequency rank in the
// replicated map, preserving any other fields already stored.
func (s *ReplicatedStore) SetFrequencyRank(particleID string, rank int) error {
	entry := AgentEntry{FrequencyRank: rank}
	if val, ok := s.m.Get(agentKey(particleID)); ok {
		_ = json.Unmarshal([]byte(val), &entry)
		entry.FrequencyRank = rank
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("registrystate: marshal agent %q: %w", particleID, err)
	}
	if _, err := s.m.Set(s.ctx, agentKey(particleID), string(b)); err != nil {
		return fmt.Errorf("registrystate: store agent %q: %w", particleID, err)
	}
	return nil
}

// Snapshot returns every agent entry currently in the replicated map.
func (s *ReplicatedStore) Snapshot() Snapshot {
	agents := make(map[string]AgentEntry)
	for _, key := range s.m.Keys() {
		if !strings.HasPrefix(key, agentKeyPrefix) {
			continue
		}
		val, ok := s.m.Get(key)
		if !ok {
			continue
		}
		var entry AgentEntry
		if err := json.Unmarshal([]byte(val), &entry); err != nil {
			continue
		}
		agents[strings.TrimPrefix(key, agentKeyPrefix)] = entry
	}
	return Snapshot{Agents: agents}
}

func agentKey(particleID string) string {
	return agentKeyPrefix + particleID
}
