package orchestrator

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/loomcode/loom/internal/message"
)

// childSpec is one element of a batch wrapper's "calls" argument.
type childSpec struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// unwrapBatches replaces any call naming the batch wrapper tool and
// carrying a valid child list with its children, each becoming an
// ordinary ToolCall whose ParentID (tracked out-of-band in the
// returned parents map) is the wrapper's original id (spec.md §4.5
// "Batch unwrapping"). A call whose batch payload is invalid (empty,
// over MaxBatchSize, or a malformed child) passes through unchanged so
// the batch tool itself can return a structured error.
func (d *Dispatcher) unwrapBatches(calls []message.ToolCall) (out []message.ToolCall, parents map[string]string) {
	parents = make(map[string]string)
	for _, c := range calls {
		if c.Name != d.cfg().BatchToolName {
			out = append(out, c)
			continue
		}

		children, ok := parseBatchChildren(c.Arguments, d.cfg().MaxBatchSize)
		if !ok {
			out = append(out, c)
			continue
		}

		for _, child := range children {
			argBuf, err := json.Marshal(child.Arguments)
			if err != nil {
				argBuf = []byte("{}")
			}
			childCall := message.ToolCall{
				ID:        uuid.NewString(),
				Name:      child.Name,
				Arguments: string(argBuf),
			}
			parents[childCall.ID] = c.ID
			out = append(out, childCall)
		}
	}
	return out, parents
}

func parseBatchChildren(raw string, maxBatchSize int) ([]childSpec, bool) {
	var payload struct {
		Calls []childSpec `json:"calls"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, false
	}
	if len(payload.Calls) == 0 || len(payload.Calls) > maxBatchSize {
		return nil, false
	}
	for _, c := range payload.Calls {
		if c.Name == "" || c.Arguments == nil {
			return nil, false
		}
	}
	return payload.Calls, true
}

// validationError renders a structured error payload for a call that
// never executes (unknown tool, malformed arguments, schema mismatch).
func validationError(kind, msg string) string {
	buf, _ := json.Marshal(map[string]string{"error_kind": kind, "error": msg})
	return string(buf)
}
