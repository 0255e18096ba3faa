// Package tool implements the Tool Registry: descriptors keyed by name,
// JSON-schema argument validation, and the execution contract the Tool
// Orchestrator dispatches against (spec.md §4.4, §6 "Tool execution
// interface"). Grounded on the teacher's internal/tool/{types,registry}.go
// (Tool/PermissionAwareTool interfaces, name-keyed map registry),
// generalized with github.com/santhosh-tekuri/jsonschema/v6 argument
// validation in place of the teacher's ad hoc per-tool param parsing.
package tool

import "context"

// Sensitivity mirrors internal/permission.Sensitivity without importing
// it, keeping this package collaborator-free; the Permission Gate and a
// Descriptor's Sensitivity must agree by convention at wiring time.
type Sensitivity string

const (
	ReadOnly      Sensitivity = "read-only"
	LocalEffect   Sensitivity = "local-effect"
	Destructive   Sensitivity = "destructive"
	NetworkEgress Sensitivity = "network-egress"
)

// ExecContext carries the collaborators a running tool may use, per
// spec.md §6 "Tool execution interface": an activity stream for chunked
// output and an interruption poll. Tools never touch the Message
// History directly.
type ExecContext struct {
	// Emit, if set, publishes a TOOL_OUTPUT_CHUNK-shaped payload for long
	// tool output. The Orchestrator binds this to the call's id and the
	// Event Bus.
	Emit func(chunk string)
	// Interrupted reports whether the owning turn has been cancelled.
	Interrupted func() bool
	Cwd         string
}

// Result is the terminal outcome of Execute (spec.md §3 ToolCallState
// output/error/error_kind fields, §6).
type Result struct {
	Success   bool
	Output    string
	Error     string
	ErrorKind string
}

// PreviewFormatter renders a short, UI-facing summary of a Result,
// independent of the full Output the LLM receives (spec.md §4.5 "Result
// preview / truncation").
type PreviewFormatter func(args map[string]any, r Result) string

// SubtextFormatter renders a one-line description of a pending call,
// shown while it is still executing (e.g. "Reading README.md").
type SubtextFormatter func(args map[string]any) string

// Tool is one registered capability a turn can invoke.
type Tool interface {
	// Name is the tool's registered, lowercase-kebab-case identifier.
	Name() string
	// Schema is the tool's JSON Schema for Arguments, used by the
	// Orchestrator's validation boundary (spec.md §4.5).
	Schema() map[string]any
	// RequiresConfirmation reports whether a miss in the Trust Cache must
	// prompt the user before this tool runs (spec.md §4.4).
	RequiresConfirmation() bool
	// Sensitivity is this tool's declared risk class (spec.md §4.3).
	Sensitivity() Sensitivity
	// IsTransparentWrapper reports whether this tool is a grouping
	// wrapper (e.g. a batch) whose children replace it in any observer's
	// view (spec.md §3 "transparent").
	IsTransparentWrapper() bool
	// VisibleInChat reports whether a UI should render this call at all.
	VisibleInChat() bool
	// Execute runs the tool. args has already been validated against
	// Schema(). Errors are captured into Result, never returned, per the
	// Orchestrator's "errors never propagate out of dispatch" contract
	// (spec.md §4.5 "Errors").
	Execute(ctx context.Context, args map[string]any, ec ExecContext) Result
}

// Previewable is implemented by tools that customize their UI preview
// or subtext beyond the Registry's generic truncation.
type Previewable interface {
	Preview(args map[string]any, r Result) string
	Subtext(args map[string]any) string
}

// Describable is implemented by tools that supply a natural-language
// description for the LLM transport's tool listing. A tool that omits
// it is registered with an empty description.
type Describable interface {
	Description() string
}
