// Package eventstore defines the EventStore contract shared by the
// in-memory and durable (Pulse/Redis) backends described in spec.md §4.4:
// an append-only log of routed messages with replay-by-time-window and
// consciousness-metric aggregation.
//
// Grounded on RedisEventStore in
// original_source/.synapse/corpus_callosum/event_store.py, restructured
// around the Store-interface-plus-backend convention of
// runtime/agent/run.Store / runtime/agent/run/inmem.Store.
package eventstore

import (
	"context"

	"github.com/synapse-systems/corpuscallosum/message"
	"github.com/synapse-systems/corpuscallosum/metrics"
)

// EventLogEntry is the serialized projection of a Message persisted for
// replay and analytics. Payload bodies are never persisted (spec.md §3).
type EventLogEntry struct {
	// EventID is monotonic within a single stream/store instance.
	EventID int64 `json:"event_id"`
	// TimestampMs is the message's creation time in milliseconds since epoch.
	TimestampMs int64 `json:"timestamp_ms"`
	// MessageID is the routed message's id.
	MessageID int64 `json:"message_id"`
	// SourceTract and DestTract are the symbolic tract names.
	SourceTract string `json:"source_tract"`
	DestTract   string `json:"dest_tract"`
	// Priority is the integer priority level.
	Priority int `json:"priority"`
	// PayloadSize is the payload-size hint in bytes.
	PayloadSize int `json:"payload_size"`
	// PayloadType is a short type tag for the payload, for reconstruction
	// bookkeeping only; the payload body itself is not stored.
	PayloadType string `json:"payload_type"`
}

// FromMessage projects a Message into its EventLogEntry form. eventID is
// assigned by the store appending the entry.
func FromMessage(eventID int64, m message.Message) EventLogEntry {
	return EventLogEntry{
		EventID:     eventID,
		TimestampMs: m.TimestampMs(),
		MessageID:   m.ID(),
		SourceTract: m.Source().String(),
		DestTract:   m.Dest().String(),
		Priority:    int(m.Priority()),
		PayloadSize: m.PayloadSize(),
		PayloadType: m.PayloadTypeTag(),
	}
}

// EventStore is the append-only log interface implemented by the in-memory
// ring buffer (package eventstore, New) and the durable Pulse/Redis backend
// (package eventstore/pulsestore).
type EventStore interface {
	// Connect establishes the backend connection. A no-op for the
	// in-memory backend.
	Connect(ctx context.Context) error
	// Disconnect releases backend resources. A no-op for the in-memory
	// backend.
	Disconnect(ctx context.Context) error

	// Append records msg as a new EventLogEntry, updates
	// ConsciousnessMetrics, and returns the assigned event id.
	Append(ctx context.Context, msg message.Message) (int64, error)

	// GetEvents performs a non-blocking range read starting at startID for
	// up to count entries. Both backends in this module accept blockMs but
	// do not wait on it: the call returns the entries present when it is
	// made, possibly none.
	GetEvents(ctx context.Context, startID int64, count int, blockMs int) ([]EventLogEntry, error)

	// ReplayEvents produces events in chronological order within
	// [fromTs, toTs]. A zero fromTs/toTs means "unbounded" on that side.
	// The returned slice is ordered by increasing MessageID (spec.md §8
	// property 7).
	ReplayEvents(ctx context.Context, fromTs, toTs int64) ([]EventLogEntry, error)

	// GetMetrics returns a snapshot of the store's ConsciousnessMetrics.
	GetMetrics(ctx context.Context) (metrics.Snapshot, error)
}
