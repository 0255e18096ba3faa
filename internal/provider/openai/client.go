// Package openai binds the OpenAI Chat Completions API (and any
// OpenAI-compatible endpoint, including Moonshot/Kimi) to turn.Transport.
// Grounded on the teacher's internal/provider/openai/client.go:
// same message/tool conversion, collapsed from its
// streamChatCompletions channel-of-chunks loop into one blocking call,
// since turn.Transport.Send returns a single completed response.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"

	"github.com/loomcode/loom/internal/message"
	"github.com/loomcode/loom/internal/tool"
)

// Client implements turn.Transport against the OpenAI SDK.
type Client struct {
	SDK          openai.Client
	Model        string
	MaxTokens    int
	SystemPrompt string
}

// NewClient wraps an already-configured SDK client. The same binding
// serves any OpenAI-compatible endpoint (e.g. Moonshot/Kimi) by
// pointing the SDK's base URL at that provider instead.
func NewClient(sdk openai.Client, model string, maxTokens int) *Client {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{SDK: sdk, Model: model, MaxTokens: maxTokens}
}

// Send implements turn.Transport.
func (c *Client) Send(ctx context.Context, messages []message.Message, tools []tool.Descriptor) (message.CompletionResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:               c.Model,
		Messages:            toOpenAIMessages(c.SystemPrompt, messages),
		MaxCompletionTokens: openai.Int(int64(c.MaxTokens)),
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}

	stream := c.SDK.Chat.Completions.NewStreaming(ctx, params)

	var resp message.CompletionResponse
	type pending struct{ id, name, args string }
	byIndex := map[int64]*pending{}
	order := []int64{}

	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			resp.Content += choice.Delta.Content
			for _, tc := range choice.Delta.ToolCalls {
				p, ok := byIndex[tc.Index]
				if !ok {
					p = &pending{id: tc.ID, name: tc.Function.Name}
					byIndex[tc.Index] = p
					order = append(order, tc.Index)
				}
				p.args += tc.Function.Arguments
			}
		}
		if chunk.Usage.PromptTokens > 0 {
			resp.Usage.InputTokens = int(chunk.Usage.PromptTokens)
		}
		if chunk.Usage.CompletionTokens > 0 {
			resp.Usage.OutputTokens = int(chunk.Usage.CompletionTokens)
		}
	}
	if err := stream.Err(); err != nil {
		return resp, fmt.Errorf("openai stream: %w", err)
	}

	for _, idx := range order {
		p := byIndex[idx]
		id := p.id
		if id == "" {
			id = fmt.Sprintf("call_%d", idx)
		}
		resp.ToolCalls = append(resp.ToolCalls, message.ToolCall{ID: id, Name: p.name, Arguments: p.args})
	}

	return resp, nil
}

func toOpenAIMessages(systemPrompt string, msgs []message.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if systemPrompt != "" {
		out = append(out, openai.SystemMessage(systemPrompt))
	}
	for _, m := range msgs {
		switch m.Role {
		case message.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case message.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case message.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case message.RoleAssistant:
			out = append(out, assistantMessage(m))
		}
	}
	return out
}

func assistantMessage(m message.Message) openai.ChatCompletionMessageParamUnion {
	if len(m.ToolCalls) == 0 {
		return openai.AssistantMessage(m.Content)
	}
	var asst openai.ChatCompletionAssistantMessageParam
	if m.Content != "" {
		asst.Content.OfString = openai.Opt(m.Content)
	}
	asst.ToolCalls = make([]openai.ChatCompletionMessageToolCallUnionParam, len(m.ToolCalls))
	for i, tc := range m.ToolCalls {
		asst.ToolCalls[i] = openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			},
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
}

func toOpenAITools(tools []tool.Descriptor) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var params openai.FunctionParameters
		if t.Schema != nil {
			params = t.Schema
		}
		out = append(out, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  params,
				},
			},
		})
	}
	return out
}
