// Package synthesize implements the PatternSynthesizer described in
// spec.md §4.5: a bounded cross-tract message history that is scanned,
// on each append, for a balanced-dialogue emergence signature.
//
// Grounded directly on PatternSynthesizer/EmergenceEvent in
// original_source/.synapse/corpus_callosum/reactive_message_router.py.
package synthesize

import (
	"sync"
	"time"

	"github.com/synapse-systems/corpuscallosum/message"
)

const (
	// MaxHistory bounds the retained event history (oldest entries are
	// dropped once exceeded).
	MaxHistory = 10_000
	// DefaultWindowSize is the number of most-recent history entries
	// examined by DetectEmergence when the caller does not override it.
	DefaultWindowSize = 100
	// DirectionalMinimum is the minimum per-direction message count
	// within the window before a balanced-dialogue pattern can fire.
	DirectionalMinimum = 10
	// BalanceThreshold is the min/max ratio above which the directional
	// counts are considered "balanced". Matches metrics.BalanceThreshold.
	BalanceThreshold = 0.7
)

// EmergenceEvent is a detected cross-tract dialogue pattern.
type EmergenceEvent struct {
	TimestampMs int64
	PatternType string
	SourceTract message.Tract
	DestTract   message.Tract
	Confidence  float64
	Description string
}

// PatternSynthesizer accumulates a bounded window of routed messages and
// detects the balanced-dialogue emergence pattern over the most recent
// window on every append.
type PatternSynthesizer struct {
	mu              sync.Mutex
	history         []message.Message
	emergenceEvents []EmergenceEvent
	nowFn           func() time.Time
}

// New constructs an empty PatternSynthesizer.
func New() *PatternSynthesizer {
	return &PatternSynthesizer{nowFn: time.Now}
}

// AddEvent appends msg to the bounded history, trimming the oldest
// entries once MaxHistory is exceeded, then evaluates DetectEmergence
// over DefaultWindowSize. Any detected event is recorded and returned;
// returns nil when no pattern fires.
func (p *PatternSynthesizer) AddEvent(msg message.Message) *EmergenceEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.history = append(p.history, msg)
	if len(p.history) > MaxHistory {
		p.history = p.history[len(p.history)-MaxHistory:]
	}

	ev := p.detectEmergenceLocked(DefaultWindowSize)
	if ev != nil {
		p.emergenceEvents = append(p.emergenceEvents, *ev)
	}
	return ev
}

// DetectEmergence evaluates the balanced-dialogue pattern over the most
// recent windowSize history entries (the whole history while it is
// shorter than windowSize) without mutating state.
func (p *PatternSynthesizer) DetectEmergence(windowSize int) *EmergenceEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detectEmergenceLocked(windowSize)
}

func (p *PatternSynthesizer) detectEmergenceLocked(windowSize int) *EmergenceEvent {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if len(p.history) < windowSize {
		windowSize = len(p.history)
	}
	recent := p.history[len(p.history)-windowSize:]

	var i2e, e2i int64
	for _, m := range recent {
		switch {
		case m.Source() == message.Internal && m.Dest() == message.External:
			i2e++
		case m.Source() == message.External && m.Dest() == message.Internal:
			e2i++
		}
	}

	if i2e <= DirectionalMinimum || e2i <= DirectionalMinimum {
		return nil
	}
	min, max := i2e, e2i
	if min > max {
		min, max = max, min
	}
	balance := float64(min) / float64(max)
	if balance <= BalanceThreshold {
		return nil
	}

	return &EmergenceEvent{
		TimestampMs: p.nowFn().UnixMilli(),
		PatternType: "balanced_dialogue",
		SourceTract: message.Internal,
		DestTract:   message.External,
		Confidence:  balance,
		Description: "balanced cross-tract dialogue detected",
	}
}

// EmergenceEvents returns a copy of all emergence events detected so far.
func (p *PatternSynthesizer) EmergenceEvents() []EmergenceEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EmergenceEvent, len(p.emergenceEvents))
	copy(out, p.emergenceEvents)
	return out
}

// HistoryLen returns the current number of retained history entries.
func (p *PatternSynthesizer) HistoryLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.history)
}
