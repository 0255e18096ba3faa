// Package permission implements the Permission Gate: sensitivity
// classification, Trust Cache consultation, and the async prompt/response
// handshake over the Activity Event Bus (spec.md §4.3). Grounded on the
// teacher's internal/permission (Decision enum) and internal/config
// permission.go (CheckPermission priority ladder, destructive-command
// detection, BuildRule scope derivation), generalized from the teacher's
// synchronous TUI round-trip into a bus-mediated one.
package permission

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loomcode/loom/internal/bus"
	"github.com/loomcode/loom/internal/config"
	"github.com/loomcode/loom/internal/trust"
)

// Sensitivity is a tool's declared risk class (spec.md §4.3).
type Sensitivity string

const (
	ReadOnly      Sensitivity = "read-only"
	LocalEffect   Sensitivity = "local-effect"
	Destructive   Sensitivity = "destructive"
	NetworkEgress Sensitivity = "network-egress"
)

// Decision is the gate's verdict for one tool call.
type Decision int

const (
	Allow Decision = iota
	Deny
)

// ErrDenied is returned by Check when the call is denied, interrupted, or
// times out (spec.md §4.3 "Failure semantics").
var ErrDenied = errors.New("permission denied")

// GrantScope is the user's chosen persistence scope for an approval
// (spec.md §4.3 step 6).
type GrantScope string

const (
	ScopeOnce        GrantScope = "once"
	ScopeThisCommand GrantScope = "this_command"
	ScopeThisPath    GrantScope = "this_path"
	ScopeThisSession GrantScope = "this_session"
)

// destructiveBashPatterns mirrors the teacher's always-ask list for
// dangerous shell commands (internal/config/permission.go
// DestructiveCommands); these never auto-allow from a Trust Cache hit
// formed from a broader scope.
var destructiveBashPatterns = []string{
	"rm -rf", "rm -fr", "rm -r ",
	"git reset --hard", "git clean -fd", "git clean -f",
	"git push --force", "git push -f",
	"chmod 777", "chmod -R 777",
	":(){ :|:& };:",
	"> /dev/", "dd if=", "mkfs", "fdisk",
}

// IsDestructiveBash reports whether cmd matches a known irreversible
// shell pattern, regardless of any broader trust grant.
func IsDestructiveBash(cmd string) bool {
	for _, p := range destructiveBashPatterns {
		if strings.Contains(cmd, p) {
			return true
		}
	}
	return false
}

// Classifier maps a tool name and its arguments to a Sensitivity and a
// scope string used for Trust Cache lookups and grants (spec.md §4.3
// "declared class plus the call's arguments"). This is the Go analogue
// of the teacher's BuildRule.
type Classifier func(toolName string, args map[string]any) (Sensitivity, scope string)

// DefaultClassifier implements the builtin tool set's classification,
// grounded on BuildRule's per-tool argument extraction.
func DefaultClassifier(toolName string, args map[string]any) (Sensitivity, string) {
	switch toolName {
	case "read", "glob", "grep":
		return ReadOnly, scopeFromArgs(args, "file_path", "pattern")
	case "web-search":
		return NetworkEgress, scopeFromArgs(args, "query")
	case "web-fetch":
		return NetworkEgress, webFetchScope(args)
	case "edit", "write":
		return LocalEffect, scopeFromArgs(args, "file_path")
	case "bash":
		cmd, _ := args["command"].(string)
		return Destructive, normalizeBashScope(cmd)
	case "task":
		return LocalEffect, scopeFromArgs(args, "subagent_type")
	case "task-output":
		return ReadOnly, scopeFromArgs(args, "task_id")
	case "task-stop":
		return LocalEffect, scopeFromArgs(args, "task_id")
	case "todo-write":
		return ReadOnly, "*"
	default:
		return LocalEffect, scopeFromArgs(args, "file_path", "path")
	}
}

func scopeFromArgs(args map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := args[k].(string); ok && v != "" {
			return v
		}
	}
	return "*"
}

func webFetchScope(args map[string]any) string {
	u, _ := args["url"].(string)
	return "domain:" + u
}

func normalizeBashScope(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return "*"
	}
	parts := strings.SplitN(cmd, " ", 2)
	base := filepath.Base(parts[0])
	if len(parts) == 1 {
		return base
	}
	return base + ":" + parts[1]
}

// Request is emitted on the bus as bus.PermissionRequest's Data payload.
type Request struct {
	RequestID   string
	Tool        string
	Summary     string
	Sensitivity Sensitivity
}

// Response is emitted on the bus as bus.PermissionResponse's Data payload
// (typically by the UI, in reply to a Request).
type Response struct {
	RequestID  string
	Approved   bool
	GrantScope GrantScope
}

// Interrupted reports (optional) whether an active turn has been
// cancelled; wired to the Interruption Manager.
type Interrupted func() bool

// Gate classifies, consults the Trust Cache, and runs the prompt/response
// handshake for calls that require confirmation.
type Gate struct {
	Bus         *bus.Bus
	Trust       *trust.Cache
	Classify    Classifier
	Interrupted Interrupted
	Timeout     time.Duration
	// Rules is the pre-seeded allow/deny/ask surface loaded from
	// internal/config (spec.md §6 "Configuration surface"); nil means
	// no pre-seeded rules, only the Trust Cache and interactive prompt.
	Rules *config.Settings
}

// New creates a Gate with DefaultClassifier and a 5-minute prompt
// timeout.
func New(b *bus.Bus, t *trust.Cache) *Gate {
	return &Gate{Bus: b, Trust: t, Classify: DefaultClassifier, Timeout: 5 * time.Minute}
}

// Check classifies the call, consults the pre-seeded rule surface and
// the Trust Cache, and — on miss for a tool that requires confirmation
// — runs the async prompt protocol (spec.md §4.3 steps 1-7). Read-only
// calls always auto-allow without consulting the cache. A Deny rule
// always wins, even over a broader trust grant, mirroring the
// teacher's CheckPermission priority ladder.
func (g *Gate) Check(ctx context.Context, toolName, summary string, args map[string]any, requiresConfirmation bool) (Decision, error) {
	classify := g.Classify
	if classify == nil {
		classify = DefaultClassifier
	}
	sensitivity, scope := classify(toolName, args)

	if g.Rules != nil {
		switch g.Rules.Check(toolName, args) {
		case config.RuleDeny:
			return Deny, ErrDenied
		case config.RuleAllow:
			return Allow, nil
		case config.RuleAsk:
			return g.prompt(ctx, toolName, summary, sensitivity, scope)
		}
	}

	if !requiresConfirmation && sensitivity == ReadOnly {
		return Allow, nil
	}

	if sensitivity == Destructive && toolName == "bash" {
		if cmd, _ := args["command"].(string); IsDestructiveBash(cmd) {
			return g.prompt(ctx, toolName, summary, sensitivity, scope)
		}
	}

	if g.Trust != nil {
		if _, ok := g.Trust.Lookup(toolName, scope); ok {
			return Allow, nil
		}
	}

	if !requiresConfirmation {
		return Allow, nil
	}
	return g.prompt(ctx, toolName, summary, sensitivity, scope)
}

func (g *Gate) prompt(ctx context.Context, toolName, summary string, sensitivity Sensitivity, scope string) (Decision, error) {
	if g.Bus == nil {
		return Deny, ErrDenied
	}

	requestID := uuid.NewString()
	result := make(chan Response, 1)

	cancel := g.Bus.SubscribeOnce(bus.PermissionResponse, func(e bus.Event) {
		resp, ok := e.Data.(Response)
		if !ok || resp.RequestID != requestID {
			return
		}
		select {
		case result <- resp:
		default:
		}
	})
	defer cancel()

	g.Bus.Emit(bus.Event{
		Type: bus.PermissionRequest,
		Data: Request{RequestID: requestID, Tool: toolName, Summary: summary, Sensitivity: sensitivity},
	})

	var timeoutCh <-chan time.Time
	if g.Timeout > 0 {
		timer := time.NewTimer(g.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	pollTick := time.NewTicker(25 * time.Millisecond)
	defer pollTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return Deny, ErrDenied
		case <-timeoutCh:
			return Deny, ErrDenied
		case resp := <-result:
			if !resp.Approved {
				return Deny, ErrDenied
			}
			g.persistGrant(toolName, scope, resp.GrantScope)
			return Allow, nil
		case <-pollTick.C:
			if g.Interrupted != nil && g.Interrupted() {
				return Deny, ErrDenied
			}
		}
	}
}

// persistGrant records a grant narrowed to the call's own classified
// scope (e.g. a specific file path or command), not a blanket "**" —
// "this command"/"this path" must not silently cover every other
// command or path for the rest of the turn.
func (g *Gate) persistGrant(toolName, classifiedScope string, grantScope GrantScope) {
	if g.Trust == nil {
		return
	}
	switch grantScope {
	case ScopeThisSession:
		g.Trust.Grant(trust.Grant{Tool: toolName, Scope: "**", Lifetime: trust.Session})
	case ScopeThisCommand, ScopeThisPath:
		g.Trust.Grant(trust.Grant{Tool: toolName, Scope: classifiedScope, Lifetime: trust.Turn})
	case ScopeOnce, "":
		// Nothing persisted; the approval covers only this call.
	}
}
