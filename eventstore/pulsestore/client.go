// Package pulsestore provides the durable, Redis-backed EventStore
// implementation. It mirrors the layering goa-ai uses for its own Pulse
// streams: a thin Client/Stream wrapper around goa.design/pulse/streaming
// that exposes only the operations the store needs, plus direct Redis
// access for the range/replay reads Pulse's sink API does not cover.
//
// Grounded on features/stream/pulse/clients/pulse/client.go and
// features/stream/pulse/sink.go, restructured around
// original_source/.synapse/corpus_callosum/event_store.py's RedisEventStore
// (XADD with maxlen trimming, XRANGE for replay, a metrics hash alongside
// the stream).
package pulsestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"goa.design/pulse/streaming"
	streamopts "goa.design/pulse/streaming/options"
)

type (
	// ClientOptions configures the Pulse client.
	ClientOptions struct {
		// Redis is the backing Redis connection. Required.
		Redis *redis.Client
		// StreamMaxLen bounds the number of entries retained per stream via
		// approximate XADD MAXLEN trimming. Zero uses DefaultMaxLen.
		StreamMaxLen int
	}

	// Client exposes the subset of Pulse stream operations the durable
	// EventStore needs.
	Client interface {
		// Stream returns a handle to the named Pulse stream, creating it if
		// it does not yet exist.
		Stream(name string) (Stream, error)
		// Close releases client resources. The caller retains ownership of
		// the underlying Redis connection.
		Close(ctx context.Context) error
	}

	// Stream exposes the append operation used to publish EventLogEntry
	// payloads.
	Stream interface {
		// Add publishes payload under event, returning the Redis-assigned
		// entry id (e.g. "1700000000000-0").
		Add(ctx context.Context, event string, payload []byte) (string, error)
		// Destroy deletes the stream and all its entries. Used only by
		// tests to reset fixture state.
		Destroy(ctx context.Context) error
	}

	client struct {
		redis  *redis.Client
		maxLen int
	}

	handle struct {
		stream *streaming.Stream
	}
)

// DefaultMaxLen bounds the durable stream's approximate length when
// StreamMaxLen is unset (spec.md §6: "default 100,000, approximate").
const DefaultMaxLen = 100_000

// NewClient constructs a Pulse client backed by the given Redis connection.
func NewClient(opts ClientOptions) (Client, error) {
	if opts.Redis == nil {
		return nil, errors.New("pulsestore: redis client is required")
	}
	maxLen := opts.StreamMaxLen
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &client{redis: opts.Redis, maxLen: maxLen}, nil
}

func (c *client) Stream(name string) (Stream, error) {
	if name == "" {
		return nil, errors.New("pulsestore: stream name is required")
	}
	str, err := streaming.NewStream(name, c.redis, streamopts.WithStreamMaxLen(c.maxLen))
	if err != nil {
		return nil, fmt.Errorf("pulsestore: open stream: %w", err)
	}
	return &handle{stream: str}, nil
}

// Close is a no-op: the caller owns the Redis connection's lifecycle.
func (c *client) Close(context.Context) error { return nil }

func (h *handle) Add(ctx context.Context, event string, payload []byte) (string, error) {
	id, err := h.stream.Add(ctx, event, payload)
	if err != nil {
		return "", fmt.Errorf("pulsestore: add: %w", err)
	}
	return id, nil
}

func (h *handle) Destroy(ctx context.Context) error {
	return h.stream.Destroy(ctx)
}
