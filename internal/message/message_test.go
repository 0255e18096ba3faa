package message

import (
	"strings"
	"testing"
)

func TestConstructors(t *testing.T) {
	u := User("hello")
	if u.Role != RoleUser || u.Content != "hello" {
		t.Fatalf("User() = %+v", u)
	}

	a := Assistant("hi", []ToolCall{{ID: "tc1", Name: "Read", Arguments: `{"file_path":"/tmp"}`}})
	if a.Role != RoleAssistant || len(a.ToolCalls) != 1 {
		t.Fatalf("Assistant() = %+v", a)
	}

	tr := ToolResult("tc1", "Read", "file content")
	if tr.Role != RoleTool || tr.ToolCallID != "tc1" {
		t.Fatalf("ToolResult() = %+v", tr)
	}

	r := Reminder("nudge")
	if !r.IsEphemeral() || r.Role != RoleSystem {
		t.Fatalf("Reminder() = %+v, ephemeral=%v", r, r.IsEphemeral())
	}
}

func TestParseArguments(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		wantLen int
	}{
		{"empty", "", false, 0},
		{"null", "null", false, 0},
		{"valid", `{"key": "value"}`, false, 1},
		{"invalid", `not json`, true, 0},
		{"whitespace", "  ", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := ParseArguments(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseArguments() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(params) != tt.wantLen {
				t.Fatalf("expected %d params, got %d", tt.wantLen, len(params))
			}
		})
	}
}

func TestBuildConversationText(t *testing.T) {
	msgs := []Message{
		User("hello"),
		Assistant("hi there", []ToolCall{{ID: "tc1", Name: "Read"}}),
		ToolResult("tc1", "Read", "file data"),
	}

	text := BuildConversationText(msgs)
	for _, want := range []string{"User: hello", "Assistant: hi there", "[Tool Call: Read]", "[Tool Result: Read]"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

func TestBuildConversationTextTruncation(t *testing.T) {
	longContent := strings.Repeat("x", 600)
	msgs := []Message{ToolResult("tc1", "Read", longContent)}

	text := BuildConversationText(msgs)
	if !strings.Contains(text, "...[truncated]") {
		t.Error("expected truncation marker for long tool result")
	}
}
