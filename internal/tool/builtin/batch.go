package builtin

import (
	"context"

	"github.com/loomcode/loom/internal/tool"
)

// BatchTool groups several tool calls under one LLM-issued call id
// (spec.md §4.5 "Batch unwrapping", §3 "transparent"). The Orchestrator
// unwraps a well-formed batch payload before dispatch ever reaches the
// registry, replacing this call with its children; Execute only runs
// when the payload itself was malformed, in which case it reports why
// rather than silently no-opping.
type BatchTool struct{}

func (t *BatchTool) Name() string { return "batch" }

func (t *BatchTool) Description() string {
	return "Run several independent tool calls as one grouped dispatch"
}

func (t *BatchTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"calls": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":      map[string]any{"type": "string"},
						"arguments": map[string]any{"type": "object"},
					},
					"required": []any{"name", "arguments"},
				},
				"minItems": 1,
			},
		},
		"required":             []any{"calls"},
		"additionalProperties": false,
	}
}

func (t *BatchTool) RequiresConfirmation() bool   { return false }
func (t *BatchTool) Sensitivity() tool.Sensitivity { return tool.ReadOnly }
func (t *BatchTool) IsTransparentWrapper() bool    { return true }
func (t *BatchTool) VisibleInChat() bool           { return false }

func (t *BatchTool) Execute(ctx context.Context, args map[string]any, ec tool.ExecContext) tool.Result {
	return tool.Result{
		Error:     "batch payload was empty, oversized, or contained a malformed child call",
		ErrorKind: "invalid_argument",
	}
}
