// Package builtin implements the concrete tools wired into a default
// Tool Registry: read/write/edit/bash/glob/grep/todo-write,
// web-search/web-fetch, the task/task-output/task-stop background-task
// tools, and the batch wrapper the Orchestrator unwraps transparently (spec.md §6
// "Representative tool set"). Grounded on the teacher's
// internal/tool/{read,write,edit,bash,glob,grep,todo*}.go, generalized
// onto the tool.Tool interface (schema-validated args, sensitivity
// classification, ExecContext instead of a bare cwd string).
package builtin

import (
	"bufio"
	"context"
	"os"
	"path/filepath"

	"github.com/loomcode/loom/internal/tool"
)

const (
	maxReadLines  = 2000
	maxLineLength = 500
)

// ReadTool reads a text file's contents, optionally windowed by offset
// and limit (spec.md §6 representative tool "read").
type ReadTool struct{}

func (t *ReadTool) Name() string { return "read" }

func (t *ReadTool) Description() string {
	return "Read a file's contents, optionally a specific line range"
}

func (t *ReadTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{"type": "string"},
			"offset":    map[string]any{"type": "integer", "minimum": 0},
			"limit":     map[string]any{"type": "integer", "minimum": 1},
		},
		"required":             []any{"file_path"},
		"additionalProperties": false,
	}
}

func (t *ReadTool) RequiresConfirmation() bool   { return false }
func (t *ReadTool) Sensitivity() tool.Sensitivity { return tool.ReadOnly }
func (t *ReadTool) IsTransparentWrapper() bool    { return false }
func (t *ReadTool) VisibleInChat() bool           { return true }

func (t *ReadTool) Execute(ctx context.Context, args map[string]any, ec tool.ExecContext) tool.Result {
	filePath, _ := args["file_path"].(string)
	if filePath == "" {
		return tool.Result{Error: "file_path is required", ErrorKind: "invalid_argument"}
	}
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(ec.Cwd, filePath)
	}

	offset := intArg(args, "offset", 0)
	limit := intArg(args, "limit", maxReadLines)
	if limit <= 0 {
		limit = maxReadLines
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return tool.Result{Error: "file not found: " + filePath, ErrorKind: "not_found"}
		}
		return tool.Result{Error: "failed to stat file: " + err.Error(), ErrorKind: "io_error"}
	}
	if info.IsDir() {
		return tool.Result{Error: "path is a directory: " + filePath, ErrorKind: "invalid_argument"}
	}

	file, err := os.Open(filePath)
	if err != nil {
		return tool.Result{Error: "failed to open file: " + err.Error(), ErrorKind: "io_error"}
	}
	defer file.Close()

	header := make([]byte, 512)
	n, _ := file.Read(header)
	if n > 0 && containsNullByte(header[:n]) {
		return tool.Result{Success: true, Output: "Binary file detected: " + filePath}
	}
	file.Seek(0, 0)

	var out []byte
	scanner := bufio.NewScanner(file)
	lineNo := 0
	read := 0
	for scanner.Scan() {
		lineNo++
		if offset > 0 && lineNo <= offset {
			continue
		}
		if read >= limit {
			break
		}
		line := scanner.Text()
		if len(line) > maxLineLength {
			line = line[:maxLineLength] + "..."
		}
		out = append(out, []byte(line)...)
		out = append(out, '\n')
		read++
	}
	if err := scanner.Err(); err != nil {
		return tool.Result{Error: "error reading file: " + err.Error(), ErrorKind: "io_error"}
	}

	if ec.Interrupted != nil && ec.Interrupted() {
		return tool.Result{Error: "interrupted", ErrorKind: "interrupted"}
	}

	return tool.Result{Success: true, Output: string(out)}
}

func (t *ReadTool) Preview(args map[string]any, r tool.Result) string {
	if !r.Success {
		return r.Error
	}
	return r.Output
}

func (t *ReadTool) Subtext(args map[string]any) string {
	fp, _ := args["file_path"].(string)
	return "Reading " + fp
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

func containsNullByte(b []byte) bool {
	for _, c := range b {
		if c == 0 {
			return true
		}
	}
	return false
}
