// Package printer is a narrow terminal Event Bus subscriber that
// renders ActivityEvents as styled lines, standing in for the "terminal
// UI" external collaborator spec.md §1 names as out of scope. Grounded
// on the teacher's internal/tui styling (styles.go's lipgloss.Style
// palette), collapsed from a full bubbletea Elm-architecture app down
// to the bus's own narrow subscribe/callback interface (spec.md §4.1),
// since a full TUI is not part of this engine's scope.
package printer

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/loomcode/loom/internal/bus"
	"github.com/loomcode/loom/internal/orchestrator"
	"github.com/loomcode/loom/internal/permission"
	"github.com/loomcode/loom/internal/turn"
)

var (
	toolStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	toolErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	turnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Faint(true)
)

// Printer subscribes to an Event Bus and writes a styled one-line
// rendering of every event to Out. Subscribers must not perform
// long-running work in-band (spec.md §4.1); Write calls are
// synchronous, unbuffered terminal output.
type Printer struct {
	Out io.Writer
}

// New creates a Printer writing to out.
func New(out io.Writer) *Printer {
	return &Printer{Out: out}
}

// Subscribe registers the printer as a wildcard subscriber on b,
// returning the cancel func the caller uses to unsubscribe.
func (p *Printer) Subscribe(b *bus.Bus) func() {
	return b.Subscribe(bus.Wildcard, p.render)
}

func (p *Printer) render(e bus.Event) {
	switch e.Type {
	case bus.TurnStart:
		p.line(turnStyle.Render("▶ turn start"))
	case bus.TurnEnd:
		if d, ok := e.Data.(turn.EndData); ok {
			if d.Interrupted {
				p.line(errorStyle.Render(fmt.Sprintf("■ turn end (interrupted: %s)", d.Reason)))
			} else {
				p.line(turnStyle.Render("■ turn end"))
			}
		}
	case bus.AssistantMessageComplete:
		if d, ok := e.Data.(turn.AssistantCompleteData); ok && d.Content != "" {
			p.line(assistantStyle.Render(truncate(d.Content, 200)))
		}
	case bus.ToolCallStart:
		if d, ok := e.Data.(orchestrator.StartEvent); ok {
			p.line(toolStyle.Render(fmt.Sprintf("⚙ %s", d.Name)))
		}
	case bus.ToolCallEnd:
		if d, ok := e.Data.(orchestrator.EndEvent); ok {
			style := toolStyle
			if d.Status != "success" {
				style = toolErrStyle
			}
			p.line(style.Render(fmt.Sprintf("  %s (%dms) %s", d.Status, d.DurationMs, d.ErrorKind)))
		}
	case bus.PermissionRequest:
		if d, ok := e.Data.(permission.Request); ok {
			p.line(promptStyle.Render(fmt.Sprintf("? %s wants to run %s (%s)", d.Tool, d.Summary, d.Sensitivity)))
		}
	case bus.Error:
		if msg, ok := e.Data.(string); ok {
			p.line(errorStyle.Render("✗ " + msg))
		}
	default:
		p.line(dimStyle.Render(string(e.Type)))
	}
}

func (p *Printer) line(s string) {
	fmt.Fprintln(p.Out, s)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
