// Package corpuscallosum implements the CorpusCallosum facade described in
// spec.md §4.6: the dual-tract message bus composing a ReactiveStream and
// a CircuitBreaker per tract, an optional shared EventStore and
// PatternSynthesizer, plus aggregate MessageStats and lifecycle control.
//
// Grounded on ReactiveCorpusCallosum in
// original_source/.synapse/corpus_callosum/reactive_message_router.py,
// restructured in the style of runtime/agent/hooks.NewBus's
// explicit-lifecycle, no-singleton composition root and its
// sync.Once-guarded idempotent Close.
package corpuscallosum

import (
	"context"
	"sync"
	"time"

	"github.com/synapse-systems/corpuscallosum/breaker"
	"github.com/synapse-systems/corpuscallosum/ccerrors"
	"github.com/synapse-systems/corpuscallosum/eventstore"
	"github.com/synapse-systems/corpuscallosum/message"
	"github.com/synapse-systems/corpuscallosum/metrics"
	"github.com/synapse-systems/corpuscallosum/stream"
	"github.com/synapse-systems/corpuscallosum/synthesize"
	"github.com/synapse-systems/corpuscallosum/telemetry"
)

// Stats is the bus's aggregate traffic accounting, mirroring
// MessageStats in the original router.
type Stats struct {
	TotalMessages    int64
	MessagesInternal int64
	MessagesExternal int64
	PeakQueueDepth   int
	MessageLossCount int64
}

// Config configures a CorpusCallosum instance. All fields are optional;
// zero values disable the corresponding subsystem (spec.md §9: event
// sourcing and pattern synthesis are both optional).
type Config struct {
	// Stream configures both tract streams.
	Stream stream.Config
	// Breaker configures both tract circuit breakers.
	Breaker breaker.Config
	// EventStore persists routed messages for replay and durable
	// ConsciousnessMetrics. Nil disables event sourcing.
	EventStore eventstore.EventStore
	// EnablePatternSynthesis turns on emergence detection over the
	// routed-message window. The zero value (false) leaves it off.
	EnablePatternSynthesis bool
	// SubscribeIdleTimeout bounds how long Subscribe's delivery loop
	// waits for a message before re-checking for cancellation and
	// re-issuing credit. Defaults to 1s, matching the original
	// implementation's asyncio.wait_for timeout.
	SubscribeIdleTimeout time.Duration
	// SubscriberBuffer is the per-subscriber queue capacity used by
	// Subscribe. Defaults to 64.
	SubscriberBuffer int
	// Logger receives structured lifecycle and routing diagnostics.
	// Defaults to telemetry.NewNoopLogger().
	Logger telemetry.Logger
	// Clock supplies the current time for message timestamps; defaults
	// to time.Now. Overridable for deterministic tests.
	Clock func() time.Time
}

func (c Config) withDefaults() Config {
	if c.SubscribeIdleTimeout <= 0 {
		c.SubscribeIdleTimeout = time.Second
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = 64
	}
	if c.Logger == nil {
		c.Logger = telemetry.NewNoopLogger()
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// CorpusCallosum is the dual-tract reactive message bus: one ReactiveStream
// and one CircuitBreaker per tract, an optional shared EventStore, and an
// optional PatternSynthesizer. There is no package-level singleton
// (spec.md §9 design note); callers construct, Start, and Stop their own
// instance.
type CorpusCallosum struct {
	cfg Config

	streams  map[message.Tract]*stream.Stream
	breakers map[message.Tract]*breaker.CircuitBreaker

	eventStore  eventstore.EventStore
	synthesizer *synthesize.PatternSynthesizer

	idMu   sync.Mutex
	nextID int64

	statsMu sync.Mutex
	stats   Stats

	startOnce sync.Once
	stopOnce  sync.Once
}

// New constructs a CorpusCallosum. Start must be called before routing or
// subscribing.
func New(cfg Config) *CorpusCallosum {
	cfg = cfg.withDefaults()

	cc := &CorpusCallosum{
		cfg: cfg,
		streams: map[message.Tract]*stream.Stream{
			message.Internal: stream.New(message.Internal, cfg.Stream),
			message.External: stream.New(message.External, cfg.Stream),
		},
		breakers: map[message.Tract]*breaker.CircuitBreaker{
			message.Internal: breaker.New(cfg.Breaker),
			message.External: breaker.New(cfg.Breaker),
		},
		eventStore: cfg.EventStore,
	}
	if cfg.EnablePatternSynthesis {
		cc.synthesizer = synthesize.New()
	}
	return cc
}

// Start launches both tract streams' distributor loops and connects the
// event store, if configured. Safe to call once; subsequent calls are
// no-ops.
func (cc *CorpusCallosum) Start(ctx context.Context) error {
	var startErr error
	cc.startOnce.Do(func() {
		cc.streams[message.Internal].Start(ctx)
		cc.streams[message.External].Start(ctx)
		if cc.eventStore != nil {
			if err := cc.eventStore.Connect(ctx); err != nil {
				startErr = err
				return
			}
		}
		cc.cfg.Logger.Info(ctx, "corpus callosum started")
	})
	return startErr
}

// Stop halts both tract streams and disconnects the event store. Safe to
// call once; subsequent calls are no-ops.
func (cc *CorpusCallosum) Stop(ctx context.Context) error {
	var stopErr error
	cc.stopOnce.Do(func() {
		cc.streams[message.Internal].Stop()
		cc.streams[message.External].Stop()
		if cc.eventStore != nil {
			if err := cc.eventStore.Disconnect(ctx); err != nil {
				stopErr = err
				return
			}
		}
		cc.cfg.Logger.Info(ctx, "corpus callosum stopped")
	})
	return stopErr
}

// RouteMessage routes payload from sourceTract to destTract, returning the
// assigned message id on success. It consults the destination tract's
// circuit breaker before publishing and records the outcome back into it,
// per spec.md §4.6's "select breaker/stream by destination" rule.
//
// Returns ccerrors.ErrCircuitOpen if the destination breaker is open, or
// ccerrors.ErrBufferFull if the destination stream's pending buffer is
// full. Both are loss events reflected in Stats.MessageLossCount.
func (cc *CorpusCallosum) RouteMessage(
	ctx context.Context,
	sourceTract, destTract message.Tract,
	priority message.Priority,
	payload any,
	payloadSize int,
) (int64, error) {
	br := cc.breakers[destTract]
	if err := br.Allow(); err != nil {
		cc.recordLoss()
		return 0, err
	}

	msg, err := message.New(cc.nextMessageID(), sourceTract, destTract, priority, cc.cfg.Clock().UnixMilli(), payload, payloadSize)
	if err != nil {
		br.Observe(err)
		return 0, err
	}

	ok := cc.streams[destTract].Publish(msg)
	if !ok {
		br.Observe(ccerrors.ErrBufferFull)
		cc.recordLoss()
		return 0, ccerrors.ErrBufferFull
	}
	br.Observe(nil)

	cc.recordDelivery(destTract)

	if cc.eventStore != nil {
		if _, err := cc.eventStore.Append(ctx, msg); err != nil {
			cc.cfg.Logger.Error(ctx, "failed to persist event", "error", err)
		}
	}

	if cc.synthesizer != nil {
		if ev := cc.synthesizer.AddEvent(msg); ev != nil {
			cc.cfg.Logger.Info(ctx, "consciousness emergence detected", "description", ev.Description, "confidence", ev.Confidence)
		}
	}

	return msg.ID(), nil
}

// Subscribe returns a channel of delivered messages for the given tract
// and a cancel function. bufferSize sizes the subscriber's inbound
// queue; <= 0 uses Config.SubscriberBuffer. The returned goroutine
// requests one message of credit at a time, waiting up to
// Config.SubscribeIdleTimeout before re-checking for cancellation
// (spec.md §4.6, asyncio.wait_for parity).
func (cc *CorpusCallosum) Subscribe(ctx context.Context, subscriberID string, tract message.Tract, bufferSize int) (<-chan message.Message, context.CancelFunc) {
	if bufferSize <= 0 {
		bufferSize = cc.cfg.SubscriberBuffer
	}
	st := cc.streams[tract]
	sub := st.Subscribe(subscriberID, bufferSize)

	out := make(chan message.Message)
	runCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		defer st.Unsubscribe(subscriberID)
		for {
			sub.Request(1)
			select {
			case <-runCtx.Done():
				return
			case msg := <-sub.Messages():
				select {
				case out <- msg:
				case <-runCtx.Done():
					return
				}
			case <-time.After(cc.cfg.SubscribeIdleTimeout):
				continue
			}
		}
	}()

	return out, cancel
}

// ReplayHistory returns persisted events within [fromTs, toTs] from the
// event store. Returns ccerrors.ErrEventStoreUnavailable if event sourcing
// is disabled.
func (cc *CorpusCallosum) ReplayHistory(ctx context.Context, fromTs, toTs int64) ([]eventstore.EventLogEntry, error) {
	if cc.eventStore == nil {
		return nil, ccerrors.ErrEventStoreUnavailable
	}
	return cc.eventStore.ReplayEvents(ctx, fromTs, toTs)
}

// GetStats returns a copy of the bus's aggregate traffic statistics.
func (cc *CorpusCallosum) GetStats() Stats {
	cc.statsMu.Lock()
	defer cc.statsMu.Unlock()
	return cc.stats
}

// GetConsciousnessMetrics returns the event store's ConsciousnessMetrics
// snapshot. Returns ccerrors.ErrEventStoreUnavailable if event sourcing is
// disabled.
func (cc *CorpusCallosum) GetConsciousnessMetrics(ctx context.Context) (metrics.Snapshot, error) {
	if cc.eventStore == nil {
		return metrics.Snapshot{}, ccerrors.ErrEventStoreUnavailable
	}
	return cc.eventStore.GetMetrics(ctx)
}

// GetEmergenceEvents returns all balanced-dialogue patterns detected so
// far. Returns an empty slice if pattern synthesis is disabled.
func (cc *CorpusCallosum) GetEmergenceEvents() []synthesize.EmergenceEvent {
	if cc.synthesizer == nil {
		return nil
	}
	return cc.synthesizer.EmergenceEvents()
}

func (cc *CorpusCallosum) nextMessageID() int64 {
	cc.idMu.Lock()
	defer cc.idMu.Unlock()
	cc.nextID++
	return cc.nextID
}

func (cc *CorpusCallosum) recordDelivery(destTract message.Tract) {
	cc.statsMu.Lock()
	defer cc.statsMu.Unlock()
	cc.stats.TotalMessages++
	if destTract == message.Internal {
		cc.stats.MessagesInternal++
	} else {
		cc.stats.MessagesExternal++
	}
	for _, st := range cc.streams {
		if depth := st.PendingDepth(); depth > cc.stats.PeakQueueDepth {
			cc.stats.PeakQueueDepth = depth
		}
	}
}

func (cc *CorpusCallosum) recordLoss() {
	cc.statsMu.Lock()
	defer cc.statsMu.Unlock()
	cc.stats.MessageLossCount++
}
