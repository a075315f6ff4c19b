package message

// Envelope is the sum type that orchestrator-bound traffic must carry as a
// Message payload. The dynamically-typed "conventional payload shape"
// described by spec.md §4.7/§9 is expressed here as three concrete variants
// instead of a duck-typed map, per the design note on dynamic typing.
type Envelope interface {
	isEnvelope()
}

// TaskEnvelope carries a task descriptor and a back-reference (opaque
// token) to the orchestrator that must receive the result. AgentConsumer
// implementations extract Task and OrchestratorRef from this variant; if a
// payload is not a TaskEnvelope, the consumer computes the result (if any)
// but does not store it, and logs the omission.
type TaskEnvelope struct {
	// Task is the unit of work to execute.
	Task Task
	// OrchestratorRef is a handle into an orchestrator-owned registry,
	// not a shared-ownership pointer (per spec.md §9's cyclic-reference
	// design note).
	OrchestratorRef string
}

func (TaskEnvelope) isEnvelope() {}

// RawBytes carries an opaque byte payload with no task semantics, used for
// traffic that does not participate in the orchestrator's result
// correlation (e.g. control-plane probes, test traffic).
type RawBytes struct {
	Data []byte
}

func (RawBytes) isEnvelope() {}

// Control carries a named control signal with optional structured
// arguments, used for operational messages (e.g. "drain", "ping") that
// agents may choose to interpret outside the task-execution path.
type Control struct {
	Signal string
	Args   map[string]any
}

func (Control) isEnvelope() {}

// Task describes one unit of work routed through the Corpus Callosum to a
// target agent.
type Task struct {
	ID           string
	TargetAgent  string
	Action       string
	Descriptor   map[string]any
	Context      map[string]any
	Dependencies []string
	TimeoutSec   int
	Priority     Priority
}
