package builtin

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/loomcode/loom/internal/tool"
)

const maxGlobResults = 100

var ignoredDirs = map[string]bool{
	"node_modules": true, ".git": true, ".svn": true, ".hg": true,
	"vendor": true, "__pycache__": true, ".cache": true, "dist": true, "build": true,
}

// GlobTool finds files under a base path matching a doublestar
// pattern, newest-modified first (spec.md §6 representative tool
// "glob").
type GlobTool struct{}

func (t *GlobTool) Name() string { return "glob" }

func (t *GlobTool) Description() string {
	return "Find files matching a glob pattern"
}

func (t *GlobTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{"type": "string"},
			"path":    map[string]any{"type": "string"},
		},
		"required":             []any{"pattern"},
		"additionalProperties": false,
	}
}

func (t *GlobTool) RequiresConfirmation() bool   { return false }
func (t *GlobTool) Sensitivity() tool.Sensitivity { return tool.ReadOnly }
func (t *GlobTool) IsTransparentWrapper() bool    { return false }
func (t *GlobTool) VisibleInChat() bool           { return true }

func (t *GlobTool) Execute(ctx context.Context, args map[string]any, ec tool.ExecContext) tool.Result {
	pattern, _ := args["pattern"].(string)
	if pattern == "" {
		return tool.Result{Error: "pattern is required", ErrorKind: "invalid_argument"}
	}

	basePath := ec.Cwd
	if p, ok := args["path"].(string); ok && p != "" {
		if filepath.IsAbs(p) {
			basePath = p
		} else {
			basePath = filepath.Join(ec.Cwd, p)
		}
	}
	if _, err := os.Stat(basePath); err != nil {
		return tool.Result{Error: "path not found: " + basePath, ErrorKind: "not_found"}
	}

	type found struct {
		path    string
		modTime int64
	}
	var files []found

	err := filepath.WalkDir(basePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ec.Interrupted != nil && ec.Interrupted() {
			return context.Canceled
		}
		if d.IsDir() {
			if ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(basePath, path)
		if err != nil {
			return nil
		}
		matched, err := doublestar.Match(pattern, rel)
		if err != nil || !matched {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, found{path: rel, modTime: info.ModTime().UnixNano()})
		return nil
	})
	if err != nil && err != context.Canceled {
		return tool.Result{Error: "glob error: " + err.Error(), ErrorKind: "io_error"}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime > files[j].modTime })
	truncated := false
	if len(files) > maxGlobResults {
		files = files[:maxGlobResults]
		truncated = true
	}

	out := ""
	for _, f := range files {
		out += f.path + "\n"
	}
	if truncated {
		out += "... (more results not shown)\n"
	}

	return tool.Result{Success: true, Output: out}
}

func (t *GlobTool) Subtext(args map[string]any) string {
	p, _ := args["pattern"].(string)
	return "Finding " + p
}

func (t *GlobTool) Preview(args map[string]any, r tool.Result) string {
	if !r.Success {
		return r.Error
	}
	return r.Output
}
