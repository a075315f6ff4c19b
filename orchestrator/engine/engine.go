// Package engine abstracts the durable-execution backend an Orchestrator
// may delegate plan execution to, so a plan's per-action dispatch loop
// can optionally survive an Orchestrator process restart instead of
// being lost mid-flight.
//
// Grounded on the Engine/WorkflowDefinition/ActivityDefinition
// abstraction in runtime/agent/engine, trimmed hard: that package's
// Engine registers arbitrarily many named workflows and activities up
// front because it backs a generated multi-agent runtime. An
// Orchestrator only ever runs one kind of durable unit of
// work, "execute this plan's dispatch loop", so Engine here exposes a
// single ExecutePlan operation instead of a registration API.
package engine

import "context"

// ActivityFunc performs the actual (non-deterministic, I/O-bound) work
// of a plan execution: routing tasks, waiting on AgentConsumer results,
// and returning the synthesized outcome. Engine implementations invoke
// it from within whatever execution context their backend provides.
type ActivityFunc func(ctx context.Context) (any, error)

// Engine runs a plan's ActivityFunc to completion, optionally wrapping
// it in durable-execution bookkeeping. planID identifies the run for
// engines that need a stable correlation key (e.g. a workflow ID).
type Engine interface {
	ExecutePlan(ctx context.Context, planID string, fn ActivityFunc) (any, error)
}

// InlineEngine runs fn directly with no durability, no retries, and no
// external dependency: it is the Orchestrator's default when no
// durable Engine is configured.
type InlineEngine struct{}

// ExecutePlan implements Engine by calling fn in the caller's
// goroutine.
func (InlineEngine) ExecutePlan(ctx context.Context, _ string, fn ActivityFunc) (any, error) {
	return fn(ctx)
}
