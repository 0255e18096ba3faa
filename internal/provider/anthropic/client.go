// Package anthropic binds the Anthropic Messages API to turn.Transport.
// Grounded on the teacher's internal/provider/anthropic/client.go:
// same message/tool conversion and streaming-event accumulation loop,
// collapsed into one blocking call instead of a channel of chunks,
// since turn.Transport.Send returns a single completed response.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/loomcode/loom/internal/message"
	"github.com/loomcode/loom/internal/tool"
)

// Client implements turn.Transport against the Anthropic SDK.
type Client struct {
	SDK          anthropic.Client
	Model        string
	MaxTokens    int
	SystemPrompt string
}

// NewClient wraps an already-configured SDK client.
func NewClient(sdk anthropic.Client, model string, maxTokens int) *Client {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{SDK: sdk, Model: model, MaxTokens: maxTokens}
}

// Send implements turn.Transport.
func (c *Client) Send(ctx context.Context, messages []message.Message, tools []tool.Descriptor) (message.CompletionResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.Model),
		MaxTokens: int64(c.MaxTokens),
		Messages:  toAnthropicMessages(messages),
	}
	if c.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.SystemPrompt}}
	}
	if len(tools) > 0 {
		params.Tools = toAnthropicTools(tools)
	}

	stream := c.SDK.Messages.NewStreaming(ctx, params)

	var resp message.CompletionResponse
	var curToolID, curToolName, curToolInput string

	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "content_block_start":
			block := event.AsContentBlockStart()
			if block.ContentBlock.Type == "tool_use" {
				curToolID = block.ContentBlock.ID
				curToolName = block.ContentBlock.Name
				curToolInput = ""
			}
		case "content_block_delta":
			delta := event.AsContentBlockDelta()
			switch delta.Delta.Type {
			case "text_delta":
				resp.Content += delta.Delta.Text
			case "input_json_delta":
				curToolInput += delta.Delta.PartialJSON
			}
		case "content_block_stop":
			if curToolID != "" {
				resp.ToolCalls = append(resp.ToolCalls, message.ToolCall{
					ID: curToolID, Name: curToolName, Arguments: curToolInput,
				})
				curToolID, curToolName, curToolInput = "", "", ""
			}
		case "message_delta":
			resp.Usage.OutputTokens = int(event.AsMessageDelta().Usage.OutputTokens)
		case "message_start":
			resp.Usage.InputTokens = int(event.AsMessageStart().Message.Usage.InputTokens)
		}
	}
	if err := stream.Err(); err != nil {
		return resp, fmt.Errorf("anthropic stream: %w", err)
	}
	return resp, nil
}

func toAnthropicMessages(msgs []message.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case message.RoleUser:
			out = append(out, userMessage(m))
		case message.RoleTool:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false),
			))
		case message.RoleAssistant:
			out = append(out, assistantMessage(m))
		}
	}
	return out
}

func userMessage(m message.Message) anthropic.MessageParam {
	if len(m.Images) == 0 {
		return anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content))
	}
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Images)+1)
	if m.Content != "" {
		blocks = append(blocks, anthropic.NewTextBlock(m.Content))
	}
	for _, img := range m.Images {
		blocks = append(blocks, anthropic.NewImageBlockBase64(img.MediaType, img.Data))
	}
	return anthropic.NewUserMessage(blocks...)
}

func assistantMessage(m message.Message) anthropic.MessageParam {
	if len(m.ToolCalls) == 0 {
		return anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content))
	}
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.ToolCalls)+1)
	if m.Content != "" {
		blocks = append(blocks, anthropic.NewTextBlock(m.Content))
	}
	for _, tc := range m.ToolCalls {
		var input any
		if tc.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
				input = tc.Arguments
			}
		} else {
			input = map[string]any{}
		}
		blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
	}
	return anthropic.NewAssistantMessage(blocks...)
}

func toAnthropicTools(tools []tool.Descriptor) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := anthropic.ToolInputSchemaParam{}
		if props, ok := t.Schema["properties"]; ok {
			schema.Properties = props
		}
		if required, ok := t.Schema["required"].([]string); ok {
			schema.Required = required
		} else if required, ok := t.Schema["required"].([]any); ok {
			strs := make([]string, 0, len(required))
			for _, r := range required {
				if s, ok := r.(string); ok {
					strs = append(strs, s)
				}
			}
			schema.Required = strs
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			},
		})
	}
	return out
}
