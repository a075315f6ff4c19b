package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synapse-systems/corpuscallosum/agent"
	"github.com/synapse-systems/corpuscallosum/ccerrors"
	"github.com/synapse-systems/corpuscallosum/message"
	"github.com/synapse-systems/corpuscallosum/orchestrator/engine"
	"github.com/synapse-systems/corpuscallosum/planner"
)

type echoProcessor struct{}

func (echoProcessor) ProcessMessage(ctx context.Context, msg message.Message) (any, error) {
	return "done", nil
}

type slowProcessor struct{ delay time.Duration }

func (p slowProcessor) ProcessMessage(ctx context.Context, msg message.Message) (any, error) {
	select {
	case <-time.After(p.delay):
		return "late", nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TestDegradedModeExecutesPlanInProcess verifies that with no Bus
// configured, ExecutePlan still dispatches to a registered agent and
// reports a completed result.
func TestDegradedModeExecutesPlanInProcess(t *testing.T) {
	ctx := context.Background()
	orch := New(Config{ID: "test-orch", TaskTimeout: time.Second}, planner.New(planner.Defaults{}))

	require.NoError(t, orch.RegisterAgentConsumer(ctx, "create_file", message.External, echoProcessor{}))
	defer orch.StopAllAgents(ctx)

	pl := planner.New(planner.Defaults{})
	plan, err := pl.Plan(planner.Request{Kind: planner.CreateFile, Path: "a.txt", Content: "hi"})
	require.NoError(t, err)

	syn := orch.ExecutePlan(ctx, plan)
	assert.True(t, syn.Success)
	assert.Equal(t, 1, syn.CompletedActions)
}

// TestDuplicateAgentRegistrationConflicts verifies that registering the
// same agent id twice is rejected and the existing registration is
// unaffected.
func TestDuplicateAgentRegistrationConflicts(t *testing.T) {
	ctx := context.Background()
	orch := New(Config{ID: "test-orch"}, planner.New(planner.Defaults{}))

	require.NoError(t, orch.RegisterAgentConsumer(ctx, "worker", message.External, echoProcessor{}))
	defer orch.StopAllAgents(ctx)

	err := orch.RegisterAgentConsumer(ctx, "worker", message.External, echoProcessor{})
	require.ErrorIs(t, err, ccerrors.ErrRegistrationConflict)
}

// TestTimedOutTaskDiscardsLateResult is the second half of scenario S7:
// a task that exceeds TaskTimeout is reported as "timeout", and the
// processor's eventual, late StoreTaskResult call for the same task id
// is discarded with a warning rather than re-delivered or causing a panic.
func TestTimedOutTaskDiscardsLateResult(t *testing.T) {
	ctx := context.Background()
	orch := New(Config{ID: "test-orch", TaskTimeout: 50 * time.Millisecond}, planner.New(planner.Defaults{}))

	require.NoError(t, orch.RegisterAgentConsumer(ctx, "create_file", message.External, slowProcessor{delay: 300 * time.Millisecond}))
	defer orch.StopAllAgents(ctx)

	pl := planner.New(planner.Defaults{})
	plan, err := pl.Plan(planner.Request{Kind: planner.CreateFile, Path: "a.txt"})
	require.NoError(t, err)

	syn := orch.ExecutePlan(ctx, plan)
	require.Len(t, syn.Results, 1)
	assert.Equal(t, "timeout", syn.Results[0].Status)

	err = orch.StoreTaskResult(ctx, plan.Actions[0].ID, agent.ExecutionResult{Status: "completed"})
	assert.NoError(t, err)

	time.Sleep(350 * time.Millisecond)
}

// recordingEngine wraps engine.InlineEngine but records the planID it
// was asked to execute, so tests can assert ExecutePlan routes through
// Config.Engine rather than running the dispatch loop inline itself.
type recordingEngine struct {
	sawPlanID string
}

func (r *recordingEngine) ExecutePlan(ctx context.Context, planID string, fn engine.ActivityFunc) (any, error) {
	r.sawPlanID = planID
	return fn(ctx)
}

// TestExecutePlanDelegatesThroughConfiguredEngine verifies ExecutePlan
// routes its dispatch loop through Config.Engine instead of always
// running inline, and that the engine's result still reaches the
// caller as a synth.Synthesis.
func TestExecutePlanDelegatesThroughConfiguredEngine(t *testing.T) {
	ctx := context.Background()
	eng := &recordingEngine{}
	orch := New(Config{ID: "test-orch", TaskTimeout: time.Second, Engine: eng}, planner.New(planner.Defaults{}))

	require.NoError(t, orch.RegisterAgentConsumer(ctx, "create_file", message.External, echoProcessor{}))
	defer orch.StopAllAgents(ctx)

	pl := planner.New(planner.Defaults{})
	plan, err := pl.Plan(planner.Request{Kind: planner.CreateFile, Path: "a.txt", Content: "hi"})
	require.NoError(t, err)

	syn := orch.ExecutePlan(ctx, plan)
	assert.True(t, syn.Success)
	assert.Equal(t, plan.ID, eng.sawPlanID)
}
