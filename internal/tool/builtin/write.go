package builtin

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/loomcode/loom/internal/tool"
)

// WriteTool creates or overwrites a file (spec.md §6 representative
// tool "write"); it is local-effect and therefore always gated by the
// Permission Gate unless previously trusted.
type WriteTool struct{}

func (t *WriteTool) Name() string { return "write" }

func (t *WriteTool) Description() string {
	return "Write content to a file, creating or overwriting it"
}

func (t *WriteTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{"type": "string"},
			"content":   map[string]any{"type": "string"},
		},
		"required":             []any{"file_path", "content"},
		"additionalProperties": false,
	}
}

func (t *WriteTool) RequiresConfirmation() bool   { return true }
func (t *WriteTool) Sensitivity() tool.Sensitivity { return tool.LocalEffect }
func (t *WriteTool) IsTransparentWrapper() bool    { return false }
func (t *WriteTool) VisibleInChat() bool           { return true }

func (t *WriteTool) Execute(ctx context.Context, args map[string]any, ec tool.ExecContext) tool.Result {
	filePath, _ := args["file_path"].(string)
	content, _ := args["content"].(string)
	if filePath == "" {
		return tool.Result{Error: "file_path is required", ErrorKind: "invalid_argument"}
	}
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(ec.Cwd, filePath)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return tool.Result{Error: "failed to create directory: " + err.Error(), ErrorKind: "io_error"}
	}

	_, statErr := os.Stat(filePath)
	isNew := os.IsNotExist(statErr)

	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return tool.Result{Error: "failed to write file: " + err.Error(), ErrorKind: "io_error"}
	}

	action := "Updated"
	if isNew {
		action = "Created"
	}
	lines := 1
	for _, c := range content {
		if c == '\n' {
			lines++
		}
	}
	return tool.Result{Success: true, Output: action + " " + filePath + " (" + strconv.Itoa(lines) + " lines)"}
}

func (t *WriteTool) Subtext(args map[string]any) string {
	fp, _ := args["file_path"].(string)
	return "Writing " + fp
}

func (t *WriteTool) Preview(args map[string]any, r tool.Result) string {
	if !r.Success {
		return r.Error
	}
	return r.Output
}
