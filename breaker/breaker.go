// Package breaker implements the per-destination-tract circuit breaker
// described in spec.md §4.3: a Closed/Open/HalfOpen state machine that
// isolates a failing destination from further traffic until it recovers.
//
// Grounded on the three-state breaker in
// original_source/.synapse/corpus_callosum/reactive_message_router.py and
// restructured around Go's explicit Allow/Observe pair instead of Python's
// async context manager, matching the error-as-return-value style
// runtime/a2a/retry uses instead of exceptions.
package breaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/synapse-systems/corpuscallosum/ccerrors"
)

// State is one of the three circuit breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

// String renders the symbolic state name.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config configures a CircuitBreaker's thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive failures (in Closed)
	// that trips the breaker to Open. Defaults to 10.
	FailureThreshold int
	// RecoveryTimeout is how long the breaker stays Open before allowing a
	// probe call in HalfOpen. Defaults to 5s.
	RecoveryTimeout time.Duration
	// SuccessThreshold is the number of consecutive successes in HalfOpen
	// that closes the breaker. Defaults to 3.
	SuccessThreshold int
	// Now returns the current time; overridable for deterministic tests.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 10
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 5 * time.Second
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 3
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// CircuitBreaker isolates a single destination from repeated failures. All
// state transitions are serialized under a single mutex so that the
// observed state and the success/failure bookkeeping never interleave
// (spec.md §4.3's atomicity requirement).
type CircuitBreaker struct {
	cfg Config

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	// halfOpenProbeInFlight gates HalfOpen to a single outstanding trial
	// call at a time: a struggling destination that triggered the breaker
	// should see one probe per Observe, not every waiting caller at once.
	halfOpenProbeInFlight bool
}

// New constructs a CircuitBreaker starting in the Closed state.
func New(cfg Config) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg.withDefaults(), state: Closed}
}

// Allow reports whether a call may proceed, advancing Open -> HalfOpen when
// the recovery timeout has elapsed. In HalfOpen, at most one trial call is
// let through at a time; concurrent callers see ccerrors.ErrCircuitOpen
// until the in-flight trial's Observe resolves. Returns
// ccerrors.ErrCircuitOpen when the breaker is refusing traffic.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.cfg.Now().Sub(b.lastFailureTime) >= b.cfg.RecoveryTimeout {
			b.state = HalfOpen
			b.successCount = 0
			b.halfOpenProbeInFlight = true
			return nil
		}
		return ccerrors.ErrCircuitOpen
	case HalfOpen:
		if b.halfOpenProbeInFlight {
			return ccerrors.ErrCircuitOpen
		}
		b.halfOpenProbeInFlight = true
		return nil
	default:
		return nil
	}
}

// Observe records the outcome of a call previously allowed by Allow. It
// must be called exactly once per Allow that returned nil.
func (b *CircuitBreaker) Observe(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		switch b.state {
		case HalfOpen:
			b.successCount++
			b.halfOpenProbeInFlight = false
			if b.successCount >= b.cfg.SuccessThreshold {
				b.state = Closed
				b.failureCount = 0
			}
		case Closed:
			if b.failureCount > 0 {
				b.failureCount--
			}
		}
		return
	}

	b.failureCount++
	b.lastFailureTime = b.cfg.Now()
	switch b.state {
	case HalfOpen:
		b.state = Open
		b.halfOpenProbeInFlight = false
	case Closed:
		if b.failureCount >= b.cfg.FailureThreshold {
			b.state = Open
		}
	}
}

// State returns the breaker's current state without mutating it (other than
// the Open->HalfOpen transition Allow would also perform; State does not
// perform that transition, it only reports the last-observed state).
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot captures the breaker's counters for diagnostics/tests.
type Snapshot struct {
	State           State
	FailureCount    int
	SuccessCount    int
	LastFailureTime time.Time
}

// Snapshot returns a point-in-time copy of the breaker's internal counters.
func (b *CircuitBreaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:           b.state,
		FailureCount:    b.failureCount,
		SuccessCount:    b.successCount,
		LastFailureTime: b.lastFailureTime,
	}
}

// Do runs fn if the breaker allows it, observing the result. It returns
// ccerrors.ErrCircuitOpen without calling fn when the breaker is Open.
func (b *CircuitBreaker) Do(fn func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn()
	b.Observe(err)
	return err
}
