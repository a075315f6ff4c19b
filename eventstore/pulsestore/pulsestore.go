package pulsestore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/synapse-systems/corpuscallosum/eventstore"
	"github.com/synapse-systems/corpuscallosum/internal/backoff"
	"github.com/synapse-systems/corpuscallosum/message"
	"github.com/synapse-systems/corpuscallosum/metrics"
)

// StreamName is the single Pulse stream all routed messages are appended
// to. Unlike features/stream/pulse's per-session streams, the corpus
// callosum's durable log is one append-only stream for the whole bus.
const StreamName = "corpus_callosum:events"

// metricsKey is the Redis hash key the store's ConsciousnessMetrics
// snapshot is persisted under, so an aggregate survives a process
// restart.
const metricsKey = "corpus_callosum:metrics"

// Store is the durable, Redis/Pulse-backed EventStore. It appends
// EventLogEntry values (JSON-encoded) to a single Pulse stream and keeps
// ConsciousnessMetrics mirrored to a Redis hash alongside it.
//
// Grounded on RedisEventStore in
// original_source/.synapse/corpus_callosum/event_store.py, using the
// Pulse client/stream wrapper layering of features/stream/pulse/clients/pulse
// and features/stream/pulse/sink.go for the append path and a direct
// go-redis client for the range reads Pulse's consumer-group API does
// not expose.
type Store struct {
	redis  *redis.Client
	client Client

	backoff backoff.Config

	mu      sync.Mutex
	metrics *metrics.Metrics
}

// Options configures a durable Store.
type Options struct {
	// Redis is the backing connection. Required.
	Redis *redis.Client
	// StreamMaxLen bounds the durable stream's approximate length. Zero
	// uses DefaultMaxLen.
	StreamMaxLen int
	// Backoff controls reconnect retry timing. Zero value uses
	// backoff.Default().
	Backoff backoff.Config
}

// New constructs a durable Store. Connect must be called before use.
func New(opts Options) (*Store, error) {
	if opts.Redis == nil {
		return nil, fmt.Errorf("pulsestore: redis client is required")
	}
	client, err := NewClient(ClientOptions{Redis: opts.Redis, StreamMaxLen: opts.StreamMaxLen})
	if err != nil {
		return nil, err
	}
	bo := opts.Backoff
	if bo == (backoff.Config{}) {
		bo = backoff.Default()
	}
	return &Store{
		redis:   opts.Redis,
		client:  client,
		backoff: bo,
		metrics: metrics.New(),
	}, nil
}

var _ eventstore.EventStore = (*Store)(nil)

// Connect pings Redis, retrying with exponential backoff (spec.md §9 Open
// Question: base 100ms, factor 2, cap 30s) until ctx is canceled, then
// restores any previously persisted ConsciousnessMetrics snapshot.
func (s *Store) Connect(ctx context.Context) error {
	if err := backoff.Retry(ctx, s.backoff, func(ctx context.Context) error {
		return s.redis.Ping(ctx).Err()
	}); err != nil {
		return fmt.Errorf("pulsestore: connect: %w", err)
	}
	snap, err := s.loadMetrics(ctx)
	if err != nil {
		return fmt.Errorf("pulsestore: load metrics: %w", err)
	}
	s.mu.Lock()
	s.metrics = metrics.Restore(snap)
	s.mu.Unlock()
	return nil
}

// Disconnect closes the Pulse client. The caller retains ownership of the
// underlying Redis connection.
func (s *Store) Disconnect(ctx context.Context) error {
	return s.client.Close(ctx)
}

// Append publishes msg's EventLogEntry projection to the durable stream
// and updates ConsciousnessMetrics, persisting the resulting snapshot.
func (s *Store) Append(ctx context.Context, msg message.Message) (int64, error) {
	str, err := s.client.Stream(StreamName)
	if err != nil {
		return 0, fmt.Errorf("pulsestore: open stream: %w", err)
	}

	// eventID assignment and the XADD that grows the stream must happen as
	// one critical section: releasing s.mu between computing eventID (from
	// XLEN) and writing it would let two concurrent Appends both read the
	// same length and assign the same id.
	s.mu.Lock()
	eventID := s.nextEventIDLocked(ctx)
	entry := eventstore.FromMessage(eventID, msg)
	payload, err := json.Marshal(entry)
	if err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("pulsestore: marshal entry: %w", err)
	}
	_, err = str.Add(ctx, "message_routed", payload)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	snap := s.metrics.Record(directionOf(msg), msg.TimestampMs())
	s.mu.Unlock()
	if err := s.persistMetrics(ctx, snap); err != nil {
		return eventID, fmt.Errorf("pulsestore: persist metrics: %w", err)
	}
	return eventID, nil
}

// GetEvents scans the durable stream and returns entries whose EventID is
// at least startID, up to count. Unlike a native Redis cursor, the
// correlation is on the entry's own monotonic EventID field rather than
// the Redis-assigned stream id, matching the in-memory backend's
// semantics; blockMs is accepted for interface parity but this
// implementation does not block, since it always reads the full
// durable history.
func (s *Store) GetEvents(ctx context.Context, startID int64, count int, _ int) ([]eventstore.EventLogEntry, error) {
	entries, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	var out []eventstore.EventLogEntry
	for _, e := range entries {
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

// ReplayEvents returns durable entries whose TimestampMs falls within
// [fromTs, toTs].
func (s *Store) ReplayEvents(ctx context.Context, fromTs, toTs int64) ([]eventstore.EventLogEntry, error) {
	entries, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	var out []eventstore.EventLogEntry
	for _, e := range entries {
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

// GetMetrics returns the store's current ConsciousnessMetrics snapshot.
func (s *Store) GetMetrics(context.Context) (metrics.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics.Snapshot(), nil
}

// scan reads the entire durable stream via XRANGE and decodes each
// entry's JSON payload.
func (s *Store) scan(ctx context.Context) ([]eventstore.EventLogEntry, error) {
	msgs, err := s.redis.XRange(ctx, StreamName, "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("pulsestore: xrange: %w", err)
	}
	out := make([]eventstore.EventLogEntry, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["message_routed"]
		if !ok {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var entry eventstore.EventLogEntry
		if err := json.Unmarshal([]byte(str), &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// nextEventIDLocked derives a monotonic event id from the durable
// stream's current length. Caller must hold s.mu.
func (s *Store) nextEventIDLocked(ctx context.Context) int64 {
	n, err := s.redis.XLen(ctx, StreamName).Result()
	if err != nil {
		return 1
	}
	return n + 1
}

func (s *Store) persistMetrics(ctx context.Context, snap metrics.Snapshot) error {
	return s.redis.HSet(ctx, metricsKey, map[string]any{
		"total_messages":              snap.TotalMessages,
		"internal_to_external":        snap.InternalToExternal,
		"external_to_internal":        snap.ExternalToInternal,
		"balanced_dialogue_events":    snap.BalancedDialogueEvents,
		"dialogue_balance_ratio":      snap.DialogueBalanceRatio,
		"emergence_score":             snap.EmergenceScore,
		"last_emergence_timestamp_ms": snap.LastEmergenceTimestampMs,
	}).Err()
}

func (s *Store) loadMetrics(ctx context.Context) (metrics.Snapshot, error) {
	vals, err := s.redis.HGetAll(ctx, metricsKey).Result()
	if err != nil {
		return metrics.Snapshot{}, err
	}
	if len(vals) == 0 {
		return metrics.Snapshot{}, nil
	}
	return metrics.Snapshot{
		TotalMessages:            parseInt64(vals["total_messages"]),
		InternalToExternal:       parseInt64(vals["internal_to_external"]),
		ExternalToInternal:       parseInt64(vals["external_to_internal"]),
		BalancedDialogueEvents:   parseInt64(vals["balanced_dialogue_events"]),
		DialogueBalanceRatio:     parseFloat64(vals["dialogue_balance_ratio"]),
		EmergenceScore:           parseFloat64(vals["emergence_score"]),
		LastEmergenceTimestampMs: parseInt64(vals["last_emergence_timestamp_ms"]),
	}, nil
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseFloat64(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
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
