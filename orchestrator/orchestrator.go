// Package orchestrator implements the Orchestrator described in spec.md
// §4.8: the Internal-tract coordinator that turns a Planner's
// ExecutionPlan into routed tasks, collects AgentConsumer results
// (honoring per-task timeouts), and hands the aggregate to
// orchestrator/synth for synthesis.
//
// Grounded on ReactiveCorpusCallosum.route_message/get consumer wiring in
// original_source/.synapse/corpus_callosum/reactive_message_router.py and
// the agent/orchestrator result write-back contract in
// original_source/lib/core/agent_consumer.py
// (_store_result_to_orchestrator/_store_error_to_orchestrator), adapted
// to Go's explicit context-deadline idiom instead of asyncio.wait_for.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synapse-systems/corpuscallosum/agent"
	"github.com/synapse-systems/corpuscallosum/ccerrors"
	"github.com/synapse-systems/corpuscallosum/corpuscallosum"
	"github.com/synapse-systems/corpuscallosum/message"
	"github.com/synapse-systems/corpuscallosum/orchestrator/engine"
	"github.com/synapse-systems/corpuscallosum/orchestrator/synth"
	"github.com/synapse-systems/corpuscallosum/planner"
	"github.com/synapse-systems/corpuscallosum/telemetry"
)

// DefaultTaskTimeout bounds how long executeSingleTask waits for an
// AgentConsumer's result before treating the task as timed out.
const DefaultTaskTimeout = 30 * time.Second

// Config configures an Orchestrator.
type Config struct {
	// ID identifies this orchestrator instance in routed TaskEnvelopes'
	// OrchestratorRef field.
	ID string
	// Bus is the CorpusCallosum used to route tasks to External-tract
	// agents. Nil enables degraded in-process fallback mode (spec.md
	// §9): tasks are dispatched directly to a locally registered
	// Consumer's Processor without going through the bus.
	Bus *corpuscallosum.CorpusCallosum
	// TaskTimeout bounds executeSingleTask's wait for a result. Defaults
	// to DefaultTaskTimeout.
	TaskTimeout time.Duration
	Logger      telemetry.Logger
	// Engine optionally runs ExecutePlan's dispatch loop through a
	// durable-execution backend (see orchestrator/engine) instead of
	// directly in the calling goroutine. Defaults to engine.InlineEngine,
	// which adds no durability.
	Engine engine.Engine
}

func (c Config) withDefaults() Config {
	if c.ID == "" {
		c.ID = "orchestrator-" + uuid.NewString()
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = DefaultTaskTimeout
	}
	if c.Logger == nil {
		c.Logger = telemetry.NewNoopLogger()
	}
	if c.Engine == nil {
		c.Engine = engine.InlineEngine{}
	}
	return c
}

// registeredAgent pairs a running Consumer with the Processor it
// dispatches to directly in degraded mode.
type registeredAgent struct {
	consumer  *agent.Consumer
	processor agent.Processor
}

// Orchestrator coordinates plan execution: it registers AgentConsumers,
// routes each PlannedAction as a task, and collects results through its
// own ResultSink implementation.
//
// Lock ordering: resultMu is always acquired before any call into Bus,
// which in turn may acquire stream/breaker locks internally. Orchestrator
// code must never acquire resultMu while holding a lock obtained from
// Bus, to avoid the inverse-order deadlock spec.md §5 calls out.
type Orchestrator struct {
	cfg       Config
	planner   *planner.Planner
	synth     *synth.Synthesizer

	agentsMu sync.Mutex
	agents   map[string]*registeredAgent

	resultMu sync.Mutex
	pending  map[string]chan agent.ExecutionResult
}

// New constructs an Orchestrator.
func New(cfg Config, pl *planner.Planner) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg.withDefaults(),
		planner: pl,
		synth:   synth.New(),
		agents:  make(map[string]*registeredAgent),
		pending: make(map[string]chan agent.ExecutionResult),
	}
}

var _ agent.ResultSink = (*Orchestrator)(nil)

// RegisterAgentConsumer registers and starts an AgentConsumer under
// agentID. Returns ccerrors.ErrRegistrationConflict if agentID is
// already registered.
func (o *Orchestrator) RegisterAgentConsumer(ctx context.Context, agentID string, tract message.Tract, processor agent.Processor) error {
	o.agentsMu.Lock()
	defer o.agentsMu.Unlock()

	if _, exists := o.agents[agentID]; exists {
		return fmt.Errorf("orchestrator: %w: agent %q already registered", ccerrors.ErrRegistrationConflict, agentID)
	}

	consumer := agent.New(agent.Config{AgentID: agentID, Tract: tract, Logger: o.cfg.Logger}, processor, o)
	if o.cfg.Bus != nil {
		consumer.Start(ctx, o.cfg.Bus)
	}
	o.agents[agentID] = &registeredAgent{consumer: consumer, processor: processor}
	return nil
}

// StopAllAgents stops every registered AgentConsumer.
func (o *Orchestrator) StopAllAgents(ctx context.Context) {
	o.agentsMu.Lock()
	defer o.agentsMu.Unlock()
	for _, ra := range o.agents {
		ra.consumer.Stop(ctx)
	}
}

// ExecutePlan routes every action in plan, collects results, and returns
// the synthesized outcome. The dispatch loop itself runs through
// Config.Engine, so a durable engine can make a whole plan's worth of
// dispatch/collect survive an Orchestrator restart.
func (o *Orchestrator) ExecutePlan(ctx context.Context, plan planner.ExecutionPlan) synth.Synthesis {
	out, err := o.cfg.Engine.ExecutePlan(ctx, plan.ID, func(ctx context.Context) (any, error) {
		results := make([]synth.ActionResult, 0, len(plan.Actions))
		for _, action := range plan.Actions {
			results = append(results, o.executeSingleTask(ctx, action))
		}
		return o.synth.Synthesize(results), nil
	})
	if err != nil {
		o.cfg.Logger.Error(ctx, "plan execution failed", "plan_id", plan.ID, "error", err)
		return synth.Synthesis{Success: false, TotalActions: len(plan.Actions)}
	}
	return out.(synth.Synthesis)
}

// executeSingleTask routes a single PlannedAction as a task, registers a
// pending result slot before dispatch (spec.md §5 lock ordering:
// resultMu acquired before any Bus call), and waits up to
// Config.TaskTimeout for the AgentConsumer's result.
func (o *Orchestrator) executeSingleTask(ctx context.Context, action planner.PlannedAction) synth.ActionResult {
	task := message.Task{
		ID:          action.ID,
		TargetAgent: action.ActionType,
		Action:      action.ActionType,
		Descriptor:  action.Descriptor,
		Priority:    priorityFromPlanner(action.Priority),
	}

	resultCh := make(chan agent.ExecutionResult, 1)
	o.resultMu.Lock()
	o.pending[task.ID] = resultCh
	o.resultMu.Unlock()
	defer func() {
		o.resultMu.Lock()
		delete(o.pending, task.ID)
		o.resultMu.Unlock()
	}()

	if err := o.dispatch(ctx, task); err != nil {
		return synth.ActionResult{ActionType: action.ActionType, Status: "failed"}
	}

	select {
	case res := <-resultCh:
		return synth.ActionResult{ActionType: action.ActionType, Status: res.Status}
	case <-time.After(o.cfg.TaskTimeout):
		return synth.ActionResult{ActionType: action.ActionType, Status: "timeout"}
	case <-ctx.Done():
		return synth.ActionResult{ActionType: action.ActionType, Status: "timeout"}
	}
}

// dispatch routes task either through the bus (TaskEnvelope routed from
// the Internal to the External tract) or, in degraded mode,
// directly to the registered Consumer's Processor in a background
// goroutine that reports back through StoreTaskResult exactly as a
// bus-routed AgentConsumer would.
func (o *Orchestrator) dispatch(ctx context.Context, task message.Task) error {
	env := message.TaskEnvelope{Task: task, OrchestratorRef: o.cfg.ID}

	if o.cfg.Bus != nil {
		_, err := o.cfg.Bus.RouteMessage(ctx, message.Internal, message.External, task.Priority, env, 0)
		return err
	}

	o.agentsMu.Lock()
	ra, ok := o.agents[task.TargetAgent]
	o.agentsMu.Unlock()
	if !ok {
		return fmt.Errorf("orchestrator: no degraded-mode agent registered for %q", task.TargetAgent)
	}

	go func() {
		start := time.Now()
		msg, err := message.New(0, message.Internal, message.External, task.Priority, start.UnixMilli(), env, 0)
		if err != nil {
			return
		}
		out, procErr := ra.processor.ProcessMessage(ctx, msg)
		elapsed := time.Since(start).Seconds()
		if procErr != nil {
			_ = o.StoreTaskResult(ctx, task.ID, agent.ExecutionResult{TaskID: task.ID, Agent: task.TargetAgent, Status: "failed", ExecutionTimeS: elapsed, Error: procErr.Error()})
			return
		}
		_ = o.StoreTaskResult(ctx, task.ID, agent.ExecutionResult{TaskID: task.ID, Agent: task.TargetAgent, Status: "completed", Output: out, ExecutionTimeS: elapsed})
	}()
	return nil
}

// StoreTaskResult is the orchestrator's sole writer into the pending
// result map (spec.md §5). A result for a task that is no longer pending
// (already timed out and removed) is discarded with a warning, never
// panicking or blocking.
func (o *Orchestrator) StoreTaskResult(ctx context.Context, taskID string, result agent.ExecutionResult) error {
	o.resultMu.Lock()
	ch, ok := o.pending[taskID]
	o.resultMu.Unlock()

	if !ok {
		o.cfg.Logger.Warn(ctx, "discarding late task result", "task_id", taskID)
		return nil
	}

	select {
	case ch <- result:
	default:
		o.cfg.Logger.Warn(ctx, "discarding duplicate task result", "task_id", taskID)
	}
	return nil
}

func priorityFromPlanner(p int) message.Priority {
	switch {
	case p >= 8:
		return message.Critical
	case p >= 6:
		return message.High
	case p >= 4:
		return message.Normal
	case p >= 2:
		return message.Low
	default:
		return message.Low
	}
}
