package stream

import (
	"sync/atomic"

	"github.com/synapse-systems/corpuscallosum/message"
)

// Subscription is a ReactiveStream subscriber's mutable state: a bounded
// inbound queue, an outstanding-demand counter, and a delivered counter.
// Subscriptions are owned by the ReactiveStream that created them (spec.md
// §3); callers interact with them only through Request, Messages, and
// Unsubscribe.
type Subscription struct {
	id    string
	tract message.Tract
	queue chan message.Message

	demand    atomic.Int64
	delivered atomic.Int64
	active    atomic.Bool
}

func newSubscription(id string, tract message.Tract, bufferSize int) *Subscription {
	s := &Subscription{
		id:    id,
		tract: tract,
		queue: make(chan message.Message, bufferSize),
	}
	s.active.Store(true)
	// The initial request equals the subscriber's buffer capacity
	// (spec.md §4.2: "The initial request on subscribe is the
	// subscriber's buffer size").
	s.demand.Store(int64(bufferSize))
	return s
}

// ID returns the subscriber id this subscription was created for.
func (s *Subscription) ID() string { return s.id }

// Tract returns the tract this subscription is attached to.
func (s *Subscription) Tract() message.Tract { return s.tract }

// Request grants n additional credits, allowing the distributor to deliver
// up to n more messages to this subscriber.
func (s *Subscription) Request(n int64) {
	if n <= 0 {
		return
	}
	s.demand.Add(n)
}

// Demand returns the subscriber's current outstanding demand. The stream
// never delivers while this is <= 0 (spec.md §4.2 backpressure contract).
func (s *Subscription) Demand() int64 { return s.demand.Load() }

// Delivered returns the number of messages delivered to this subscriber so
// far. Monotonically non-decreasing (spec.md §3 invariant).
func (s *Subscription) Delivered() int64 { return s.delivered.Load() }

// Messages returns the channel on which delivered messages arrive, in
// publish order relative to this subscriber.
func (s *Subscription) Messages() <-chan message.Message { return s.queue }

// Active reports whether the subscription is still live. A false value
// means the subscription will be removed from its stream on the next
// distribution tick.
func (s *Subscription) Active() bool { return s.active.Load() }

// cancel marks the subscription inactive; removal from the owning stream
// happens lazily on the next distribution tick (spec.md §4.2).
func (s *Subscription) cancel() { s.active.Store(false) }
