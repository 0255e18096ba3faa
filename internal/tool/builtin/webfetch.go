package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/loomcode/loom/internal/tool"
)

const (
	maxFetchResponseSize = 5 * 1024 * 1024
	fetchHTTPTimeout     = 30 * time.Second
	maxFetchLines        = 2000
)

// WebFetchTool retrieves a URL and renders it for the model, converting
// HTML to Markdown by default (spec.md §6 representative tool
// "web-fetch"). Grounded on the teacher's internal/tool/webfetch.go,
// which uses the same html-to-markdown converter.
type WebFetchTool struct{}

func (t *WebFetchTool) Name() string { return "web-fetch" }

func (t *WebFetchTool) Description() string {
	return "Fetch a URL's content, converting HTML to Markdown by default"
}

func (t *WebFetchTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":    map[string]any{"type": "string"},
			"format": map[string]any{"type": "string", "enum": []any{"markdown", "text"}},
		},
		"required":             []any{"url"},
		"additionalProperties": false,
	}
}

func (t *WebFetchTool) RequiresConfirmation() bool   { return true }
func (t *WebFetchTool) Sensitivity() tool.Sensitivity { return tool.NetworkEgress }
func (t *WebFetchTool) IsTransparentWrapper() bool    { return false }
func (t *WebFetchTool) VisibleInChat() bool           { return true }

func (t *WebFetchTool) Execute(ctx context.Context, args map[string]any, ec tool.ExecContext) tool.Result {
	urlStr, _ := args["url"].(string)
	if urlStr == "" {
		return tool.Result{Error: "url is required", ErrorKind: "invalid_argument"}
	}
	if !strings.HasPrefix(urlStr, "http://") && !strings.HasPrefix(urlStr, "https://") {
		urlStr = "https://" + urlStr
	}

	format := "markdown"
	if f, _ := args["format"].(string); f != "" {
		format = f
	}

	client := &http.Client{Timeout: fetchHTTPTimeout}
	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		return tool.Result{Error: "invalid URL: " + err.Error(), ErrorKind: "invalid_argument"}
	}
	req.Header.Set("User-Agent", "loom/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return tool.Result{Error: "request failed: " + err.Error(), ErrorKind: "exec_error"}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return tool.Result{Error: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status), ErrorKind: "exec_error"}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchResponseSize))
	if err != nil {
		return tool.Result{Error: "failed to read response: " + err.Error(), ErrorKind: "exec_error"}
	}

	content := string(body)
	contentType := resp.Header.Get("Content-Type")
	if format == "markdown" && strings.Contains(contentType, "text/html") {
		converter := md.NewConverter("", true, nil)
		if markdown, err := converter.ConvertString(content); err == nil {
			content = markdown
		}
	}

	lines := strings.Split(content, "\n")
	if len(lines) > maxFetchLines {
		lines = lines[:maxFetchLines]
		content = strings.Join(lines, "\n") + "\n... (output truncated)"
	}

	return tool.Result{Success: true, Output: content}
}

func (t *WebFetchTool) Subtext(args map[string]any) string {
	url, _ := args["url"].(string)
	return "Fetching " + url
}

func (t *WebFetchTool) Preview(args map[string]any, r tool.Result) string {
	if !r.Success {
		return r.Error
	}
	return r.Output
}
