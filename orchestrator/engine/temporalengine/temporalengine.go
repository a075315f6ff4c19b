// Package temporalengine implements engine.Engine on top of the
// Temporal Go SDK, so an Orchestrator's plan execution survives a
// process restart instead of being lost mid-flight.
//
// Grounded on runtime/agent/engine/temporal/engine.go, trimmed hard:
// that adapter registers an open-ended set of named workflows/activities
// with per-queue worker pools, because it backs a generated multi-agent
// runtime. An Orchestrator only ever runs
// one kind of durable unit, "execute this plan's dispatch loop", so
// this adapter registers exactly one workflow and one activity
// (CorpusCallosumExecutePlanWorkflow / CorpusCallosumExecutePlanActivity)
// and resolves which
// in-process ActivityFunc a given run should execute through a
// planID-keyed registry. The registry lookup only works within the
// process that called ExecutePlan, matching Temporal's own model where
// activities, unlike workflow decision code, are free to do arbitrary
// local I/O instead of being replay-deterministic.
package temporalengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/synapse-systems/corpuscallosum/orchestrator/engine"
)

const (
	workflowName = "CorpusCallosumExecutePlanWorkflow"
	activityName = "CorpusCallosumExecutePlanActivity"

	// defaultActivityTimeout bounds how long Temporal waits for the
	// plan's dispatch-loop activity before treating it as failed. The
	// activity itself already enforces per-task timeouts internally
	// (Orchestrator.Config.TaskTimeout), so this is a generous outer
	// bound covering an entire plan's worth of actions.
	defaultActivityTimeout = 10 * time.Minute
)

// Options configures the Temporal engine adapter.
type Options struct {
	// Client is a pre-configured Temporal client. If nil, ClientOptions
	// is used to dial one.
	Client client.Client
	// ClientOptions configures a new client when Client is nil.
	ClientOptions client.Options
	// TaskQueue is the Temporal task queue the adapter's worker polls.
	// Required.
	TaskQueue string
	// DisableTracing skips installing the OTEL tracing interceptor on
	// the client. Enabled by default, mirroring runtime/agent/engine/temporal's
	// default-on instrumentation.
	DisableTracing bool
}

// Engine implements engine.Engine by running each ExecutePlan call as a
// single-activity Temporal workflow.
type Engine struct {
	client      client.Client
	closeClient bool
	taskQueue   string
	worker      worker.Worker

	mu    sync.Mutex
	funcs map[string]engine.ActivityFunc
}

// New constructs and starts the Temporal engine adapter: it registers
// the workflow/activity pair with a worker for TaskQueue and starts
// that worker.
func New(opts Options) (*Engine, error) {
	if opts.TaskQueue == "" {
		return nil, fmt.Errorf("temporalengine: task queue is required")
	}

	cli := opts.Client
	closeClient := false
	if cli == nil {
		copts := opts.ClientOptions
		if !opts.DisableTracing {
			tracer, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{})
			if err != nil {
				return nil, fmt.Errorf("temporalengine: configure tracing interceptor: %w", err)
			}
			copts.Interceptors = append(copts.Interceptors, tracer)
		}
		c, err := client.NewLazyClient(copts)
		if err != nil {
			return nil, fmt.Errorf("temporalengine: create client: %w", err)
		}
		cli = c
		closeClient = true
	}

	e := &Engine{
		client:      cli,
		closeClient: closeClient,
		taskQueue:   opts.TaskQueue,
		funcs:       make(map[string]engine.ActivityFunc),
	}

	w := worker.New(cli, opts.TaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(e.runWorkflow, workflow.RegisterOptions{Name: workflowName})
	w.RegisterActivityWithOptions(e.runActivity, activity.RegisterOptions{Name: activityName})
	if err := w.Start(); err != nil {
		if closeClient {
			cli.Close()
		}
		return nil, fmt.Errorf("temporalengine: start worker: %w", err)
	}
	e.worker = w
	return e, nil
}

// runWorkflow is the single generic workflow every plan execution runs
// through: it schedules the plan's activity and returns its result.
func (e *Engine) runWorkflow(ctx workflow.Context, planID string) (any, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: defaultActivityTimeout,
	})
	var result any
	if err := workflow.ExecuteActivity(ctx, activityName, planID).Get(ctx, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// runActivity resolves the planID-scoped ActivityFunc registered by the
// ExecutePlan call that started this workflow and invokes it.
func (e *Engine) runActivity(ctx context.Context, planID string) (any, error) {
	e.mu.Lock()
	fn, ok := e.funcs[planID]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("temporalengine: no activity function registered for plan %q", planID)
	}
	return fn(ctx)
}

// ExecutePlan implements engine.Engine by starting the shared workflow
// under a plan-scoped workflow ID and waiting for it to complete.
func (e *Engine) ExecutePlan(ctx context.Context, planID string, fn engine.ActivityFunc) (any, error) {
	e.mu.Lock()
	e.funcs[planID] = fn
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.funcs, planID)
		e.mu.Unlock()
	}()

	run, err := e.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "corpuscallosum-plan-" + planID,
		TaskQueue: e.taskQueue,
	}, workflowName, planID)
	if err != nil {
		return nil, fmt.Errorf("temporalengine: start workflow: %w", err)
	}

	var result any
	if err := run.Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("temporalengine: workflow result: %w", err)
	}
	return result, nil
}

// Close stops the worker and, if this adapter dialed its own client,
// closes it too.
func (e *Engine) Close() {
	if e.worker != nil {
		e.worker.Stop()
	}
	if e.closeClient {
		e.client.Close()
	}
}
