package builtin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/loomcode/loom/internal/search"
	"github.com/loomcode/loom/internal/tool"
)

// WebSearchTool searches the web for up-to-date information (spec.md
// §6 representative tool "web-search"). Its declared Sensitivity is
// NetworkEgress. Grounded on the teacher's internal/tool/websearch.go
// and internal/provider/search package, generalized onto this
// engine's tool.ExecContext instead of the teacher's ui.ToolResult.
type WebSearchTool struct {
	// Provider overrides the selected backend; nil resolves from the
	// SEARCH_PROVIDER environment variable, falling back to
	// search.DefaultProvider (no API key required).
	Provider search.Provider
}

func (t *WebSearchTool) Name() string { return "web-search" }

func (t *WebSearchTool) Description() string {
	return "Search the web for up-to-date information"
}

func (t *WebSearchTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":           map[string]any{"type": "string"},
			"num_results":     map[string]any{"type": "integer", "minimum": 1, "maximum": 50},
			"allowed_domains": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"blocked_domains": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required":             []any{"query"},
		"additionalProperties": false,
	}
}

func (t *WebSearchTool) RequiresConfirmation() bool   { return true }
func (t *WebSearchTool) Sensitivity() tool.Sensitivity { return tool.NetworkEgress }
func (t *WebSearchTool) IsTransparentWrapper() bool    { return false }
func (t *WebSearchTool) VisibleInChat() bool           { return true }

func (t *WebSearchTool) provider() search.Provider {
	if t.Provider != nil {
		return t.Provider
	}
	if name := os.Getenv("SEARCH_PROVIDER"); name != "" {
		p := search.CreateProvider(search.ProviderName(name))
		if p.IsAvailable() {
			return p
		}
	}
	return search.DefaultProvider()
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any, ec tool.ExecContext) tool.Result {
	query, _ := args["query"].(string)
	if query == "" {
		return tool.Result{Error: "query is required", ErrorKind: "invalid_argument"}
	}

	opts := search.DefaultOptions()
	if n := intArg(args, "num_results", 0); n > 0 {
		opts.NumResults = n
	}
	opts.AllowedDomains = stringListArg(args, "allowed_domains")
	opts.BlockedDomains = stringListArg(args, "blocked_domains")

	p := t.provider()
	results, err := p.Search(ctx, query, opts)
	if err != nil {
		return tool.Result{Error: fmt.Sprintf("search failed: %v", err), ErrorKind: "exec_error"}
	}

	var sb strings.Builder
	if len(results) == 0 {
		sb.WriteString("No results found for: " + query)
	} else {
		fmt.Fprintf(&sb, "Found %d results for: %s\n\n", len(results), query)
		for _, r := range results {
			fmt.Fprintf(&sb, "- [%s](%s)\n", r.Title, r.URL)
			if r.Snippet != "" {
				fmt.Fprintf(&sb, "  %s\n\n", r.Snippet)
			}
		}
	}

	return tool.Result{Success: true, Output: sb.String()}
}

func (t *WebSearchTool) Subtext(args map[string]any) string {
	q, _ := args["query"].(string)
	return "Searching: " + q
}

func (t *WebSearchTool) Preview(args map[string]any, r tool.Result) string {
	if !r.Success {
		return r.Error
	}
	return r.Output
}

func stringListArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
