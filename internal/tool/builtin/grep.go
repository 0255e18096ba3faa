package builtin

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/loomcode/loom/internal/tool"
)

const (
	maxGrepMatches = 50
	maxGrepFiles   = 100
)

// GrepTool searches file contents under a path with a regular
// expression, case-insensitive by default (spec.md §6 representative
// tool "grep").
type GrepTool struct{}

func (t *GrepTool) Name() string { return "grep" }

func (t *GrepTool) Description() string {
	return "Search file contents for a regular expression pattern"
}

func (t *GrepTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{"type": "string"},
			"path":    map[string]any{"type": "string"},
			"include": map[string]any{"type": "string"},
		},
		"required":             []any{"pattern"},
		"additionalProperties": false,
	}
}

func (t *GrepTool) RequiresConfirmation() bool   { return false }
func (t *GrepTool) Sensitivity() tool.Sensitivity { return tool.ReadOnly }
func (t *GrepTool) IsTransparentWrapper() bool    { return false }
func (t *GrepTool) VisibleInChat() bool           { return true }

func (t *GrepTool) Execute(ctx context.Context, args map[string]any, ec tool.ExecContext) tool.Result {
	pattern, _ := args["pattern"].(string)
	if pattern == "" {
		return tool.Result{Error: "pattern is required", ErrorKind: "invalid_argument"}
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return tool.Result{Error: "invalid pattern: " + err.Error(), ErrorKind: "invalid_argument"}
	}

	basePath := ec.Cwd
	if p, ok := args["path"].(string); ok && p != "" {
		if filepath.IsAbs(p) {
			basePath = p
		} else {
			basePath = filepath.Join(ec.Cwd, p)
		}
	}
	includePattern, _ := args["include"].(string)

	info, err := os.Stat(basePath)
	if err != nil {
		return tool.Result{Error: "path not found: " + basePath, ErrorKind: "not_found"}
	}

	var matches []string
	filesSearched := 0

	searchFile := func(path, rel string) error {
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()
		head := make([]byte, 512)
		n, _ := f.Read(head)
		if n > 0 && containsNullByte(head[:n]) {
			return nil
		}
		f.Seek(0, 0)

		scanner := bufio.NewScanner(f)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if re.MatchString(line) {
				display := strings.TrimSpace(line)
				if len(display) > maxLineLength {
					display = display[:maxLineLength] + "..."
				}
				matches = append(matches, fmt.Sprintf("%s:%d: %s", rel, lineNo, display))
				if len(matches) >= maxGrepMatches {
					return filepath.SkipAll
				}
			}
		}
		return nil
	}

	if !info.IsDir() {
		searchFile(basePath, filepath.Base(basePath))
	} else {
		filepath.WalkDir(basePath, func(path string, d os.DirEntry, err error) error {
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
			if includePattern != "" {
				if ok, _ := filepath.Match(includePattern, d.Name()); !ok {
					return nil
				}
			}
			rel, err := filepath.Rel(basePath, path)
			if err != nil {
				rel = path
			}
			filesSearched++
			if filesSearched > maxGrepFiles {
				return filepath.SkipAll
			}
			return searchFile(path, rel)
		})
	}

	out := strings.Join(matches, "\n")
	if len(matches) >= maxGrepMatches {
		out += "\n... (more matches not shown)"
	}
	return tool.Result{Success: true, Output: out}
}

func (t *GrepTool) Subtext(args map[string]any) string {
	p, _ := args["pattern"].(string)
	return "Searching for " + p
}

func (t *GrepTool) Preview(args map[string]any, r tool.Result) string {
	if !r.Success {
		return r.Error
	}
	return r.Output
}
