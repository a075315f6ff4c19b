// Package synth implements the plan-level ResultSynthesizer described in
// spec.md §4.10: aggregating per-action execution results into a single
// outcome, plus coarse pattern detection over the action mix.
//
// Grounded directly on ResultSynthesizer in
// original_source/lib/orchestration/synthesizer.py; the structural
// pattern's "≥2 create_directory" trigger (rather than the original's
// "any create_directory") is this module's decided generalization,
// recorded as a design decision.
package synth

// ActionResult is one executed action's outcome, as reported by an
// AgentConsumer via the orchestrator's result store.
type ActionResult struct {
	ActionType string
	Status     string // "completed", "timeout", or "failed"
}

// EmergentPattern is a coarse pattern detected across a plan's executed
// actions.
type EmergentPattern struct {
	Pattern     string
	Description string
	Detail      string
}

// Synthesis is the aggregated outcome of one ExecutionPlan's results.
type Synthesis struct {
	Success          bool
	TotalActions     int
	CompletedActions int
	TimeoutActions   int
	FailedActions    int
	Results          []ActionResult
	EmergentPatterns []EmergentPattern
}

// Synthesizer aggregates ActionResults into a Synthesis and tracks how
// many syntheses it has performed.
type Synthesizer struct {
	synthesesPerformed int
}

// New constructs an empty Synthesizer.
func New() *Synthesizer { return &Synthesizer{} }

// Synthesize aggregates results into a Synthesis, detecting the
// batch-optimization, template-abstraction, and structural-hierarchy
// patterns over the action mix.
func (s *Synthesizer) Synthesize(results []ActionResult) Synthesis {
	syn := Synthesis{TotalActions: len(results), Results: results}

	var dirCount int
	for _, r := range results {
		switch r.Status {
		case "completed":
			syn.CompletedActions++
		case "timeout":
			syn.TimeoutActions++
		case "failed":
			syn.FailedActions++
		}
		if r.ActionType == "create_directory" {
			dirCount++
		}
	}
	syn.Success = syn.FailedActions == 0 && syn.TimeoutActions == 0

	if syn.CompletedActions > 0 {
		if hasActionType(results, "batch_create_files") {
			syn.EmergentPatterns = append(syn.EmergentPatterns, EmergentPattern{
				Pattern:     "batch_optimization",
				Description: "multiple file operations compressed into a single batch",
				Detail:      "O(n) -> O(1) for n files",
			})
		}
		if hasActionType(results, "apply_template") {
			syn.EmergentPatterns = append(syn.EmergentPatterns, EmergentPattern{
				Pattern:     "template_abstraction",
				Description: "reusable pattern applied via template",
				Detail:      "abstraction_level=high",
			})
		}
		if dirCount >= 2 {
			syn.EmergentPatterns = append(syn.EmergentPatterns, EmergentPattern{
				Pattern:     "structural_hierarchy",
				Description: "organized directory structure created",
				Detail:      "depth observed across plan",
			})
		}
	}

	s.synthesesPerformed++
	return syn
}

// SynthesesPerformed returns the number of Synthesize calls so far.
func (s *Synthesizer) SynthesesPerformed() int { return s.synthesesPerformed }

func hasActionType(results []ActionResult, actionType string) bool {
	for _, r := range results {
		if r.ActionType == actionType {
			return true
		}
	}
	return false
}
