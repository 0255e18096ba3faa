package openai

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/loomcode/loom/internal/message"
	"github.com/loomcode/loom/internal/tool"
)

// fakeTransport serves a canned SSE stream, mirroring the teacher's own
// provider tests (internal/provider/moonshot/client_test.go), which
// fake the HTTP round tripper rather than mocking the SDK itself.
type fakeTransport struct {
	body   []byte
	stream string
}

func (t *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		t.body = b
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:       io.NopCloser(strings.NewReader(t.stream)),
	}, nil
}

func TestSendAccumulatesContentAndToolCalls(t *testing.T) {
	transport := &fakeTransport{stream: "" +
		"data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Look\"}}]}\n\n" +
		"data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"ing\"}}]}\n\n" +
		"data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":\"call_1\",\"function\":{\"name\":\"read\",\"arguments\":\"{\\\"file\"}}]}}]}\n\n" +
		"data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"tool_calls\":[{\"index\":0,\"function\":{\"arguments\":\"_path\\\":\\\"a.go\\\"}\"}}]}}]}\n\n" +
		"data: [DONE]\n\n",
	}
	sdk := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL("https://example.com/v1"),
		option.WithHTTPClient(&http.Client{Transport: transport}),
	)

	c := NewClient(sdk, "gpt-4o", 0)
	resp, err := c.Send(context.Background(), []message.Message{message.User("look at a.go")}, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.Content != "Looking" {
		t.Fatalf("expected accumulated content %q, got %q", "Looking", resp.Content)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 accumulated tool call, got %d", len(resp.ToolCalls))
	}
	call := resp.ToolCalls[0]
	if call.ID != "call_1" || call.Name != "read" {
		t.Fatalf("unexpected tool call identity: %+v", call)
	}
	if call.Arguments != `{"file_path":"a.go"}` {
		t.Fatalf("expected accumulated arguments across chunks, got %q", call.Arguments)
	}
}

func TestToOpenAIMessagesPrependsSystemPrompt(t *testing.T) {
	out := toOpenAIMessages("be terse", []message.Message{message.User("hi")})
	if len(out) != 2 {
		t.Fatalf("expected system + user, got %d messages", len(out))
	}
	if out[0].OfSystem == nil {
		t.Fatal("expected first message to be a system message")
	}
}

func TestToOpenAIMessagesAssistantWithToolCalls(t *testing.T) {
	m := message.Assistant("", []message.ToolCall{{ID: "call_1", Name: "read", Arguments: `{"file_path":"a.go"}`}})
	out := toOpenAIMessages("", []message.Message{m})

	if len(out) != 1 || out[0].OfAssistant == nil {
		t.Fatalf("expected one assistant message, got %+v", out)
	}
	calls := out[0].OfAssistant.ToolCalls
	if len(calls) != 1 || calls[0].OfFunction.ID != "call_1" {
		t.Fatalf("unexpected tool calls on assistant message: %+v", calls)
	}
}

func TestToOpenAIMessagesToolResult(t *testing.T) {
	out := toOpenAIMessages("", []message.Message{message.ToolResult("call_1", "read", "contents")})
	if len(out) != 1 || out[0].OfTool == nil {
		t.Fatalf("expected a tool message, got %+v", out)
	}
}

func TestToOpenAIToolsCarriesSchema(t *testing.T) {
	descriptors := []tool.Descriptor{{
		Name:        "read",
		Description: "Read a file",
		Schema:      map[string]any{"type": "object", "properties": map[string]any{"file_path": map[string]any{"type": "string"}}},
	}}

	out := toOpenAITools(descriptors)
	if len(out) != 1 || out[0].OfFunction == nil {
		t.Fatalf("expected one function tool, got %+v", out)
	}
	if out[0].OfFunction.Function.Name != "read" {
		t.Fatalf("unexpected function name: %q", out[0].OfFunction.Function.Name)
	}
}

func TestNewClientDefaultsMaxTokens(t *testing.T) {
	c := NewClient(openai.Client{}, "gpt-4o", 0)
	if c.MaxTokens != 4096 {
		t.Fatalf("expected default max tokens of 4096, got %d", c.MaxTokens)
	}
}
