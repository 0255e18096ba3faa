package builtin

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/loomcode/loom/internal/tool"
)

// EditTool performs an exact-match string replacement on a file
// (spec.md §6 representative tool "edit"); local-effect, gated.
type EditTool struct{}

func (t *EditTool) Name() string { return "edit" }

func (t *EditTool) Description() string {
	return "Replace an exact string match in a file with new text"
}

func (t *EditTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path":   map[string]any{"type": "string"},
			"old_string":  map[string]any{"type": "string"},
			"new_string":  map[string]any{"type": "string"},
			"replace_all": map[string]any{"type": "boolean"},
		},
		"required":             []any{"file_path", "old_string", "new_string"},
		"additionalProperties": false,
	}
}

func (t *EditTool) RequiresConfirmation() bool   { return true }
func (t *EditTool) Sensitivity() tool.Sensitivity { return tool.LocalEffect }
func (t *EditTool) IsTransparentWrapper() bool    { return false }
func (t *EditTool) VisibleInChat() bool           { return true }

func (t *EditTool) Execute(ctx context.Context, args map[string]any, ec tool.ExecContext) tool.Result {
	filePath, _ := args["file_path"].(string)
	oldString, _ := args["old_string"].(string)
	newString, _ := args["new_string"].(string)
	replaceAll, _ := args["replace_all"].(bool)

	if filePath == "" {
		return tool.Result{Error: "file_path is required", ErrorKind: "invalid_argument"}
	}
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(ec.Cwd, filePath)
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return tool.Result{Error: "file not found: " + filePath, ErrorKind: "not_found"}
		}
		return tool.Result{Error: "failed to read file: " + err.Error(), ErrorKind: "io_error"}
	}
	oldContent := string(raw)

	count := strings.Count(oldContent, oldString)
	if count == 0 {
		return tool.Result{Error: "old_string not found in file", ErrorKind: "invalid_argument"}
	}
	if !replaceAll && count > 1 {
		return tool.Result{
			Error:     "old_string is not unique in file (found " + strconv.Itoa(count) + " occurrences); pass replace_all=true",
			ErrorKind: "invalid_argument",
		}
	}

	var newContent string
	replaced := 1
	if replaceAll {
		replaced = count
		newContent = strings.ReplaceAll(oldContent, oldString, newString)
	} else {
		newContent = strings.Replace(oldContent, oldString, newString, 1)
	}

	if err := os.WriteFile(filePath, []byte(newContent), 0644); err != nil {
		return tool.Result{Error: "failed to write file: " + err.Error(), ErrorKind: "io_error"}
	}

	return tool.Result{Success: true, Output: "Edited " + filePath + " (" + strconv.Itoa(replaced) + " replacement(s))"}
}

func (t *EditTool) Subtext(args map[string]any) string {
	fp, _ := args["file_path"].(string)
	return "Editing " + fp
}

func (t *EditTool) Preview(args map[string]any, r tool.Result) string {
	if !r.Success {
		return r.Error
	}
	return r.Output
}
