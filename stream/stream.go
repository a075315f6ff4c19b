// Package stream implements the per-tract ReactiveStream described in
// spec.md §4.2: a bounded pending buffer feeding per-subscriber bounded
// queues through a round-robin distributor that honors explicit demand
// (backpressure).
//
// Grounded on the StreamSubscription/distributor design in
// original_source/.synapse/corpus_callosum/reactive_message_router.py,
// translated from asyncio's Queue/Lock primitives to goroutines, channels,
// and a single mutex, in the style of runtime/agent/hooks/bus.go's
// synchronous fan-out bus and features/stream/pulse/subscriber.go's
// Pulse-backed subscriber.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/synapse-systems/corpuscallosum/message"
)

// Config configures a ReactiveStream.
type Config struct {
	// PendingCapacity bounds the stream's shared pending buffer. Publish
	// calls beyond this capacity are dropped and counted as loss.
	// Defaults to 1000.
	PendingCapacity int
	// Tick is the distributor's polling granularity. Defaults to 10ms.
	// An edge-triggered implementation is an equivalent policy choice
	// (spec.md §9); this implementation uses the simpler periodic tick.
	Tick time.Duration
}

func (c Config) withDefaults() Config {
	if c.PendingCapacity <= 0 {
		c.PendingCapacity = 1000
	}
	if c.Tick <= 0 {
		c.Tick = 10 * time.Millisecond
	}
	return c
}

// Stream is one tract's ReactiveStream: a bounded pending FIFO distributed
// round-robin to subscribers with outstanding demand.
type Stream struct {
	cfg   Config
	tract message.Tract

	mu         sync.Mutex
	pending    []message.Message
	subs       map[string]*Subscription
	order      []string // insertion order, for stable round-robin rotation
	lastServed int      // index into order of the last subscriber served

	lossCount int64

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// New constructs a Stream for the given tract. Start must be called before
// any delivery occurs; Stop releases the distributor goroutine.
func New(tract message.Tract, cfg Config) *Stream {
	return &Stream{
		cfg:        cfg.withDefaults(),
		tract:      tract,
		subs:       make(map[string]*Subscription),
		lastServed: -1,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the background distributor loop. Safe to call once per
// Stream; subsequent calls are no-ops.
func (s *Stream) Start(ctx context.Context) {
	s.once.Do(func() {
		go s.run(ctx)
	})
}

// Stop halts the distributor loop and waits for it to exit.
func (s *Stream) Stop() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	<-s.doneCh
}

func (s *Stream) run(ctx context.Context) {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.distributeTick()
		}
	}
}

// Publish enqueues a message into the pending buffer. Returns false (the
// message is dropped and counted as loss) when the buffer is at capacity;
// Publish never blocks on downstream subscriber capacity (spec.md §5).
func (s *Stream) Publish(msg message.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) >= s.cfg.PendingCapacity {
		s.lossCount++
		return false
	}
	s.pending = append(s.pending, msg)
	return true
}

// Subscribe creates a subscription with initial demand equal to
// bufferSize. Re-subscribing an existing, still-active id is idempotent
// and returns the existing subscription.
func (s *Stream) Subscribe(subscriberID string, bufferSize int) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.subs[subscriberID]; ok && existing.Active() {
		return existing
	}
	sub := newSubscription(subscriberID, s.tract, bufferSize)
	if _, existed := s.subs[subscriberID]; !existed {
		s.order = append(s.order, subscriberID)
	}
	s.subs[subscriberID] = sub
	return sub
}

// Unsubscribe marks the subscription inactive. It is removed from the
// stream's bookkeeping on the next distribution tick.
func (s *Stream) Unsubscribe(subscriberID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[subscriberID]; ok {
		sub.cancel()
	}
}

// LossCount returns the number of messages dropped due to a full pending
// buffer since the stream was created.
func (s *Stream) LossCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lossCount
}

// PendingDepth returns the current number of messages waiting in the
// pending buffer, used by CorpusCallosum to track peak queue depth.
func (s *Stream) PendingDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// distributeTick drains the pending buffer into subscriber queues,
// round-robin across subscribers with outstanding demand, starting from the
// subscriber after the one last served (spec.md §9 Open Question: strict
// rotation rather than "first with capacity", so no subscriber starves
// another under asymmetric consumer speed). Stops when the pending buffer
// is empty or no subscriber can currently accept a message; in the latter
// case the head-of-line message stays at the front of the buffer and
// distribution resumes on the next tick.
func (s *Stream) distributeTick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneInactiveLocked()
	n := len(s.order)
	if n == 0 {
		return
	}

	for len(s.pending) > 0 {
		delivered := false
		for i := 1; i <= n; i++ {
			idx := (s.lastServed + i) % n
			sub, ok := s.subs[s.order[idx]]
			if !ok || !sub.Active() || sub.Demand() <= 0 {
				continue
			}
			msg := s.pending[0]
			select {
			case sub.queue <- msg:
				s.pending = s.pending[1:]
				sub.demand.Add(-1)
				sub.delivered.Add(1)
				s.lastServed = idx
				delivered = true
			default:
				continue
			}
			break
		}
		if !delivered {
			return
		}
	}
}

// pruneInactiveLocked removes inactive subscriptions from the rotation.
// Caller must hold s.mu.
func (s *Stream) pruneInactiveLocked() {
	var lastServedID string
	if s.lastServed >= 0 && s.lastServed < len(s.order) {
		lastServedID = s.order[s.lastServed]
	}

	kept := make([]string, 0, len(s.order))
	for _, id := range s.order {
		sub, ok := s.subs[id]
		if !ok {
			continue
		}
		if !sub.Active() {
			delete(s.subs, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept

	s.lastServed = -1
	for i, id := range kept {
		if id == lastServedID {
			s.lastServed = i
			break
		}
	}
}
