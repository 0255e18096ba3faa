package main

import (
	"context"
	"fmt"
	"os"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go/v3"

	"github.com/loomcode/loom/internal/bus"
	"github.com/loomcode/loom/internal/config"
	"github.com/loomcode/loom/internal/cycle"
	"github.com/loomcode/loom/internal/hooks"
	"github.com/loomcode/loom/internal/interrupt"
	"github.com/loomcode/loom/internal/message"
	"github.com/loomcode/loom/internal/orchestrator"
	"github.com/loomcode/loom/internal/permission"
	"github.com/loomcode/loom/internal/provider"
	anthropicProvider "github.com/loomcode/loom/internal/provider/anthropic"
	openaiProvider "github.com/loomcode/loom/internal/provider/openai"
	"github.com/loomcode/loom/internal/session"
	"github.com/loomcode/loom/internal/task"
	"github.com/loomcode/loom/internal/tool"
	"github.com/loomcode/loom/internal/tool/builtin"
	"github.com/loomcode/loom/internal/trust"
	"github.com/loomcode/loom/internal/turn"

	printer "github.com/loomcode/loom/internal/activity/printer"
)

const defaultSystemPrompt = `You are loom, a terminal coding assistant. Use the
available tools to read, search and edit files, run commands, and answer the
user's request directly and concisely.`

// engine bundles every collaborator one CLI invocation wires together:
// the Event Bus, History, Orchestrator, Turn Controller and an
// opportunistic Session Persister. Grounded on the teacher's
// cmd/gen/main.go bootstrap (buildClient/buildTools/runNonInteractive),
// generalized from the teacher's single LLM-call pipeline into this
// engine's Turn Controller + Tool Orchestrator + Permission Gate stack.
type engine struct {
	bus        *bus.Bus
	history    *message.History
	controller *turn.Controller
	transport  turn.Transport
	persister  *session.Persister
	sessionID  string
	settings   *config.Settings
}

// newEngine loads layered configuration, then constructs every
// collaborator the Turn Controller depends on.
func newEngine() (*engine, error) {
	settings, err := config.NewLoader().Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	b := bus.New()
	history := message.NewHistory(message.EstimatorConfig{
		CharsPerToken: settings.CharsPerTokenEstimate,
		MaxMessages:   settings.MaxHistoryMessages,
		MaxTokens:     settings.MaxHistoryTokens,
	})
	history.ReplaceSystem(defaultSystemPrompt)

	trustCache := trust.New()
	gate := permission.New(b, trustCache)
	gate.Rules = settings

	registry := tool.NewRegistry()
	tasks := task.NewManager()
	builtin.Register(registry, tasks, nil)

	hookEngine := hooks.NewEngine(cwd(), nil)

	transport, err := newTransport(settings)
	if err != nil {
		return nil, err
	}

	dispatcher := &orchestrator.Dispatcher{
		Registry: registry,
		Bus:      b,
		Gate:     gate,
		PreDispatch: func(ctx context.Context, name string, args map[string]any) (map[string]any, bool, string) {
			out := hookEngine.Run(ctx, name, args)
			return out.UpdatedInput, out.Blocked, out.BlockReason
		},
		Cfg: orchestrator.Config{
			Parallel:      settings.ParallelTools,
			MaxFanout:     orchestrator.DefaultMaxFanout,
			MaxBatchSize:  settings.MaxBatchSize,
			BatchToolName: orchestrator.DefaultBatchToolName,
			Preview:       orchestrator.DefaultPreviewTiers(),
		},
		UsagePercent: history.UsagePercent,
	}

	cycleDetector := cycle.NewDetectorWithConfig(cycle.Config{
		ToolCallWindow:     settings.ToolCallCycleWindow,
		ToolCallThreshold:  settings.ToolCallCycleThreshold,
		ThinkingSimilarity: settings.ThinkingCycleSimilarit,
		ThinkingRepetition: settings.ThinkingCycleRepeat,
	})
	interruptToken := interrupt.New()

	controller := turn.New(history, b, dispatcher, cycleDetector, interruptToken, transport)
	controller.Tools = registry.Descriptors
	controller.Trust = trustCache

	printer.New(os.Stdout).Subscribe(b)

	persister, err := session.NewPersister()
	if err != nil {
		return nil, fmt.Errorf("session persister: %w", err)
	}

	return &engine{
		bus:        b,
		history:    history,
		controller: controller,
		transport:  transport,
		persister:  persister,
		settings:   settings,
	}, nil
}

// newTransport picks the LLM transport named by settings.Provider,
// defaulting to Anthropic, mirroring the teacher's
// getDefaultModel/buildClient provider switch.
func newTransport(settings *config.Settings) (turn.Transport, error) {
	model := settings.Model

	switch provider.Name(settings.Provider) {
	case provider.OpenAI:
		if model == "" {
			model = "gpt-4o"
		}
		c := openaiProvider.NewClient(openaisdk.NewClient(), model, 4096)
		c.SystemPrompt = defaultSystemPrompt
		return c, nil
	case provider.Anthropic, "":
		if model == "" {
			model = "claude-sonnet-4-5-20250929"
		}
		c := anthropicProvider.NewClient(anthropicsdk.NewClient(), model, 4096)
		c.SystemPrompt = defaultSystemPrompt
		return c, nil
	default:
		return nil, fmt.Errorf("unknown provider %q (known: %v)", settings.Provider, provider.KnownProviders())
	}
}

// compact summarizes the conversation so far and replaces it with the
// summary, keeping the system prompt intact. Mirrors the teacher's
// /compact slash command over core.Compact.
func (e *engine) compact(ctx context.Context) error {
	msgs := e.history.GetAll()
	summary, count, err := turn.Compact(ctx, e.transport, msgs, "")
	if err != nil {
		return err
	}
	e.history.ClearConversation()
	e.history.Append(message.Reminder(fmt.Sprintf("Conversation summary (%d messages compacted):\n%s", count, summary)))
	return nil
}

func cwd() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}
