// Package planner implements the Planner described in spec.md §4.9: a
// pure, deterministic translator from a high-level OrchestratorRequest
// into an ExecutionPlan of PlannedActions against the External-tract
// particles, with a Defaults table bridging the gap between a sparse
// request and a fully-specified action.
//
// Grounded on the ExecutionPlanner/PlannedAction/ActionType shape
// described in original_source/lib/orchestration/planner.py (its
// request-dispatch body was not retained in the retrieval pack; the
// request-kind table below follows spec.md directly) and the compound-id
// scheme in original_source/lib/orchestration/id_generator.py via this
// module's idgen package.
package planner

import (
	"fmt"
	"path"

	"github.com/synapse-systems/corpuscallosum/ccerrors"
	"github.com/synapse-systems/corpuscallosum/idgen"
)

// RequestKind enumerates the high-level requests the Planner understands.
type RequestKind string

const (
	CreateFile       RequestKind = "create_file"
	CreateDirectory  RequestKind = "create_directory"
	ReadFile         RequestKind = "read_file"
	DeleteFile       RequestKind = "delete_file"
	DeleteDirectory  RequestKind = "delete_directory"
	MoveFile         RequestKind = "move_file"
	BatchCreateFiles RequestKind = "batch_create_files"
	ApplyTemplate    RequestKind = "apply_template"
	CreateComponent  RequestKind = "create_component"
	ScaffoldModule   RequestKind = "scaffold_module"
)

// Priority mirrors the planner's coarse priority vocabulary; the
// orchestrator maps this to message.Priority when routing.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Defaults holds the fallback values the Planner fills in when a Request
// leaves a field unset (spec.md §4.9).
type Defaults struct {
	BasePath            string
	PriorityNormalValue int
	PriorityHighValue   int
	DefaultContent      string
	Encoding            string
	CreateParents       bool
	RecursiveDelete     bool
	DefaultLanguage     string
}

// DefaultDefaults is the Planner's built-in Defaults table.
func DefaultDefaults() Defaults {
	return Defaults{
		BasePath:           ".",
		PriorityNormalValue: 5,
		PriorityHighValue:   8,
		DefaultContent:      "",
		Encoding:            "utf-8",
		CreateParents:       true,
		RecursiveDelete:     false,
		DefaultLanguage:     "python",
	}
}

// Request is a high-level OrchestratorRequest to be planned.
type Request struct {
	Kind     RequestKind
	Path     string
	Paths    []string
	Content  string
	Dest     string
	Template string
	Priority Priority
	Context  map[string]any
}

// PlannedAction is a single concrete step targeting an External-tract
// particle.
type PlannedAction struct {
	ID         string
	ActionType string
	Target     string
	Descriptor map[string]any
	Priority   int
}

// ExecutionPlan is the Planner's output: an ordered sequence of
// PlannedActions derived from one Request.
type ExecutionPlan struct {
	ID      string
	Actions []PlannedAction
}

// Planner is a pure, stateless translator; its only mutable state is the
// id generator used for deterministic, collision-resistant plan/action
// ids.
type Planner struct {
	defaults  Defaults
	planIDs   *idgen.Generator
	actionIDs *idgen.Generator
}

// New constructs a Planner. A zero Defaults uses DefaultDefaults.
func New(defaults Defaults) *Planner {
	if defaults == (Defaults{}) {
		defaults = DefaultDefaults()
	}
	return &Planner{defaults: defaults, planIDs: idgen.New(), actionIDs: idgen.New()}
}

// Plan translates req into an ExecutionPlan. Returns
// ccerrors.ErrUnknownRequest for an unrecognized Kind.
func (p *Planner) Plan(req Request) (ExecutionPlan, error) {
	priority := p.priorityValue(req.Priority)

	var actions []PlannedAction
	switch req.Kind {
	case CreateFile:
		actions = []PlannedAction{p.fileAction("create_file", req, priority)}
	case ReadFile:
		actions = []PlannedAction{p.fileAction("read_file", req, priority)}
	case DeleteFile:
		actions = []PlannedAction{p.fileAction("delete_file", req, priority)}
	case CreateDirectory:
		actions = []PlannedAction{{
			ActionType: "create_directory",
			Target:     p.resolvePath(req.Path),
			Descriptor: map[string]any{"create_parents": p.defaults.CreateParents},
			Priority:   priority,
		}}
	case DeleteDirectory:
		actions = []PlannedAction{{
			ActionType: "delete_directory",
			Target:     p.resolvePath(req.Path),
			Descriptor: map[string]any{"recursive": p.defaults.RecursiveDelete},
			Priority:   priority,
		}}
	case MoveFile:
		actions = []PlannedAction{{
			ActionType: "move_file",
			Target:     p.resolvePath(req.Path),
			Descriptor: map[string]any{"dest": p.resolvePath(req.Dest)},
			Priority:   priority,
		}}
	case BatchCreateFiles:
		actions = make([]PlannedAction, 0, len(req.Paths))
		for _, path := range req.Paths {
			r := req
			r.Path = path
			actions = append(actions, p.fileAction("create_file", r, priority))
		}
		actions = append([]PlannedAction{{
			ActionType: "batch_create_files",
			Target:     p.resolvePath(p.defaults.BasePath),
			Descriptor: map[string]any{"count": len(req.Paths)},
			Priority:   priority,
		}}, actions...)
	case ApplyTemplate:
		actions = []PlannedAction{{
			ActionType: "apply_template",
			Target:     p.resolvePath(req.Path),
			Descriptor: map[string]any{"template": req.Template, "language": p.defaults.DefaultLanguage},
			Priority:   priority,
		}}
	case CreateComponent:
		// A component is a directory plus its package init file plus the
		// module file the component is named for: dir + init + module.
		ext := languageExtension(p.defaults.DefaultLanguage)
		actions = []PlannedAction{
			{ActionType: "create_directory", Target: p.resolvePath(req.Path), Descriptor: map[string]any{"create_parents": p.defaults.CreateParents}, Priority: priority},
			{ActionType: "create_file", Target: p.resolvePath(req.Path + "/__init__.py"), Descriptor: map[string]any{"content": p.defaults.DefaultContent, "encoding": p.defaults.Encoding}, Priority: priority},
			{ActionType: "create_file", Target: p.resolvePath(req.Path + "/" + componentModuleName(req.Path, ext)), Descriptor: map[string]any{"content": req.Content, "encoding": p.defaults.Encoding, "language": p.defaults.DefaultLanguage}, Priority: priority},
		}
	case ScaffoldModule:
		actions = []PlannedAction{
			{ActionType: "create_directory", Target: p.resolvePath(req.Path), Descriptor: map[string]any{"create_parents": p.defaults.CreateParents}, Priority: priority},
			{ActionType: "apply_template", Target: p.resolvePath(req.Path), Descriptor: map[string]any{"template": req.Template, "language": p.defaults.DefaultLanguage}, Priority: priority},
		}
	default:
		return ExecutionPlan{}, fmt.Errorf("planner: %w: %q", ccerrors.ErrUnknownRequest, req.Kind)
	}

	planID := p.planIDs.Next("plan", []byte(string(req.Kind)+req.Path))
	for i := range actions {
		actions[i].ID = p.actionIDs.Next("action", []byte(actions[i].ActionType+actions[i].Target))
	}

	return ExecutionPlan{ID: planID, Actions: actions}, nil
}

func (p *Planner) fileAction(actionType string, req Request, priority int) PlannedAction {
	return PlannedAction{
		ActionType: actionType,
		Target:     p.resolvePath(req.Path),
		Descriptor: map[string]any{"content": req.Content, "encoding": p.defaults.Encoding},
		Priority:   priority,
	}
}

func (p *Planner) resolvePath(target string) string {
	if target == "" {
		return p.defaults.BasePath
	}
	return target
}

// componentModuleName derives the module file a component directory is
// named for, e.g. componentModuleName("widgets/button", ".tsx") ->
// "button.tsx".
func componentModuleName(componentPath, ext string) string {
	return path.Base(componentPath) + ext
}

// languageExtension maps a Defaults.DefaultLanguage value to the file
// extension CreateComponent's module step should use. Unrecognized
// languages fall back to ".txt" rather than guessing.
func languageExtension(language string) string {
	switch language {
	case "python":
		return ".py"
	case "javascript":
		return ".js"
	case "typescript":
		return ".ts"
	case "go":
		return ".go"
	default:
		return ".txt"
	}
}

func (p *Planner) priorityValue(pr Priority) int {
	if pr == PriorityHigh {
		return p.defaults.PriorityHighValue
	}
	return p.defaults.PriorityNormalValue
}
