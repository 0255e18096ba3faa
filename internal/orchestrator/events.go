package orchestrator

// StartEvent is the bus.ToolCallStart payload (spec.md §4.5 "Lifecycle
// events"). ParentID here is the ToolCallState's parent_id — the id of
// the batch wrapper this call was unwrapped from, not the Activity
// Event's own parent_id (which instead carries the turn/agent scope
// and lives on bus.Event itself).
type StartEvent struct {
	ID            string
	Name          string
	Args          map[string]any
	ParentID      string
	IsTransparent bool
}

// EndEvent is the bus.ToolCallEnd payload.
type EndEvent struct {
	ID         string
	Status     string // success | error | cancelled
	DurationMs int64
	ErrorKind  string
}

// ChunkEvent is the bus.ToolOutputChunk payload, emitted by a running
// tool via tool.ExecContext.Emit for long output (spec.md §4.5).
type ChunkEvent struct {
	ID    string
	Chunk string
}
