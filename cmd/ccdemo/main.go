// Command ccdemo wires a CorpusCallosum, a single External-tract
// responder particle, a Planner, and an Orchestrator together and runs
// one plan end to end, printing the synthesized outcome.
//
// Grounded on the wiring shape of cmd/demo/main.go (register one agent,
// run one request through it, print the result), adapted from a
// Temporal-workflow runtime to the Corpus Callosum's
// plan -> route -> collect -> synthesize loop.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/synapse-systems/corpuscallosum/corpuscallosum"
	"github.com/synapse-systems/corpuscallosum/message"
	"github.com/synapse-systems/corpuscallosum/model"
	"github.com/synapse-systems/corpuscallosum/orchestrator"
	"github.com/synapse-systems/corpuscallosum/planner"
	"github.com/synapse-systems/corpuscallosum/telemetry"
)

// responder is a minimal External-tract particle: it "executes" a
// PlannedAction by acknowledging it, standing in for a real file-creator
// or template-rendering particle. When llm is set, the acknowledgment
// text is produced by an actual model call instead of being synthesized,
// demonstrating a real particle backed by model.Client; llm is nil
// whenever no provider API key is configured, which keeps the demo
// runnable offline.
type responder struct {
	llm model.Client
}

func (r responder) ProcessMessage(ctx context.Context, msg message.Message) (any, error) {
	env, ok := msg.Payload().(message.TaskEnvelope)
	if !ok {
		return nil, nil
	}
	if r.llm == nil {
		return fmt.Sprintf("executed %s on %v", env.Task.Action, env.Task.Descriptor["template"]), nil
	}
	prompt := fmt.Sprintf("Briefly acknowledge completing action %q with descriptor %v.", env.Task.Action, env.Task.Descriptor)
	out, err := r.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("ccdemo: model complete: %w", err)
	}
	return out, nil
}

// newResponderLLM picks a model.Client from whichever provider API key is
// present in the environment, preferring Anthropic, then OpenAI. It
// returns nil (not an error) when none are configured, since the demo's
// synthetic responder path covers that case.
func newResponderLLM() model.Client {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c, err := model.NewAnthropicClient(key, "claude-3-5-haiku-latest", 256)
		if err == nil {
			return c
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c, err := model.NewOpenAIClient(key, "gpt-4o-mini")
		if err == nil {
			return c
		}
	}
	return nil
}

func main() {
	ctx := context.Background()
	logger := telemetry.NewClueLogger("corpuscallosum")

	cc := corpuscallosum.New(corpuscallosum.Config{
		EnablePatternSynthesis: true,
		Logger:                 logger,
	})
	if err := cc.Start(ctx); err != nil {
		log.Fatalf("start corpus callosum: %v", err)
	}
	defer cc.Stop(ctx)

	orch := orchestrator.New(orchestrator.Config{
		ID:          "ccdemo-orchestrator",
		Bus:         cc,
		TaskTimeout: 5 * time.Second,
		Logger:      logger,
	}, planner.New(planner.Defaults{}))

	// One responder subscribes to the whole External tract; task routing
	// in bus mode is tract-scoped, not agent-id-scoped (agent ids only
	// disambiguate in degraded in-process mode).
	if err := orch.RegisterAgentConsumer(ctx, "responder", message.External, responder{llm: newResponderLLM()}); err != nil {
		log.Fatalf("register agent: %v", err)
	}
	defer orch.StopAllAgents(ctx)

	pl := planner.New(planner.Defaults{DefaultLanguage: "typescript"})
	plan, err := pl.Plan(planner.Request{
		Kind:     planner.CreateComponent,
		Path:     "components/widget",
		Template: "react-component",
	})
	if err != nil {
		log.Fatalf("plan: %v", err)
	}

	synthesis := orch.ExecutePlan(ctx, plan)
	fmt.Printf("plan %s: success=%v completed=%d timeout=%d failed=%d\n",
		plan.ID, synthesis.Success, synthesis.CompletedActions, synthesis.TimeoutActions, synthesis.FailedActions)
	for _, p := range synthesis.EmergentPatterns {
		fmt.Printf("  emergent: %s (%s)\n", p.Pattern, p.Description)
	}
}
