// Package ccerrors defines the sentinel error kinds shared across the
// Corpus Callosum substrate (spec.md §7). Components wrap these sentinels
// with fmt.Errorf("...: %w", ...) at the call site so callers can recover
// the kind with errors.Is/errors.As regardless of which component raised it.
package ccerrors

import "errors"

var (
	// ErrCircuitOpen is returned when a destination tract's circuit breaker
	// is refusing traffic. Routing failures of this kind are counted as
	// loss and are not retried automatically.
	ErrCircuitOpen = errors.New("corpuscallosum: circuit open")

	// ErrBufferFull is returned when a ReactiveStream's pending buffer is
	// saturated. Treated identically to ErrCircuitOpen at the route
	// boundary: the message is dropped and counted as loss.
	ErrBufferFull = errors.New("corpuscallosum: stream buffer full")

	// ErrTimeout is returned when a task or AgentConsumer.Process exceeds
	// its configured bound. Terminal for the task it applies to.
	ErrTimeout = errors.New("corpuscallosum: timeout")

	// ErrProcessingFailed wraps any error returned by an AgentConsumer's
	// message handler. Terminal for the task it applies to.
	ErrProcessingFailed = errors.New("corpuscallosum: processing failed")

	// ErrPatternCollision is returned when a Pattern insert targets an
	// existing id with a different action-sequence signature. The
	// newcomer is dropped; the learner continues.
	ErrPatternCollision = errors.New("corpuscallosum: pattern id collision")

	// ErrEventStoreUnavailable is returned when an append or metrics read
	// against the event store fails. Routing is unaffected; metrics
	// degrade to their last known values.
	ErrEventStoreUnavailable = errors.New("corpuscallosum: event store unavailable")

	// ErrRegistrationConflict is returned when an agent id is registered
	// twice with the orchestrator. The existing registration is
	// unaffected.
	ErrRegistrationConflict = errors.New("corpuscallosum: agent already registered")

	// ErrUnknownRequest is returned by the planner when given a request
	// kind it does not recognize. No actions are produced.
	ErrUnknownRequest = errors.New("corpuscallosum: unknown request kind")
)
