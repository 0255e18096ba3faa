package config

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// RuleVerdict is the result of consulting the pre-seeded permission
// rule surface, mirroring the teacher's PermissionResult.
type RuleVerdict int

const (
	// RuleUnset means no Allow/Deny/Ask pattern matched; the caller
	// falls through to the Trust Cache and, on a miss, the interactive
	// prompt.
	RuleUnset RuleVerdict = iota
	RuleAllow
	RuleDeny
	RuleAsk
)

// BuildRule renders a "Tool(args)" rule string for toolName/args, the
// Go analogue of the teacher's BuildRule: the same per-tool argument
// extraction (bash command normalized to "base:rest", file tools by
// path, WebFetch by host).
func BuildRule(toolName string, args map[string]any) string {
	var argStr string
	switch toolName {
	case "bash":
		if cmd, ok := args["command"].(string); ok {
			argStr = normalizeBashCommand(cmd)
		}
	case "read", "edit", "write":
		if fp, ok := args["file_path"].(string); ok {
			argStr = fp
		}
	case "glob", "grep":
		if p, ok := args["pattern"].(string); ok {
			argStr = p
		}
	case "web-fetch":
		if u, ok := args["url"].(string); ok {
			if parsed, err := url.Parse(u); err == nil {
				argStr = "domain:" + parsed.Host
			} else {
				argStr = u
			}
		}
	default:
		if fp, ok := args["file_path"].(string); ok {
			argStr = fp
		} else if p, ok := args["path"].(string); ok {
			argStr = p
		} else if p, ok := args["pattern"].(string); ok {
			argStr = p
		}
	}
	return toolName + "(" + argStr + ")"
}

func normalizeBashCommand(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return ""
	}
	parts := strings.SplitN(cmd, " ", 2)
	base := filepath.Base(parts[0])
	if len(parts) == 1 {
		return base
	}
	return base + ":" + parts[1]
}

// MatchRule reports whether rule (as produced by BuildRule) matches
// pattern, a "Tool(glob)" entry from PermissionRules. Tool names must
// match exactly; the argument portion matches with doublestar glob
// semantics (the teacher's own hand-rolled matchGlob, replaced per
// DESIGN.md with github.com/bmatcuk/doublestar/v4). A bash command line
// is not a path, so for bash rules '/' is not a separator and wildcards
// match across it.
func MatchRule(rule, pattern string) bool {
	toolRule, argsRule := parseRule(rule)
	toolPat, argsPat := parseRule(pattern)
	if toolRule != toolPat {
		return false
	}
	if argsPat == "" {
		return argsRule == ""
	}
	if toolRule == "bash" {
		argsPat = strings.ReplaceAll(argsPat, "/", "\x00")
		argsRule = strings.ReplaceAll(argsRule, "/", "\x00")
	}
	ok, err := doublestar.Match(argsPat, argsRule)
	return err == nil && ok
}

func parseRule(s string) (tool, args string) {
	tool, args, found := strings.Cut(s, "(")
	if !found {
		return s, ""
	}
	return tool, strings.TrimSuffix(args, ")")
}

// Check consults the rule surface for a tool invocation, in the
// teacher's CheckPermission priority order: Deny rules beat everything
// (cannot be bypassed), then Allow, then Ask; RuleUnset falls through
// to the Trust Cache/interactive prompt.
func (s *Settings) Check(toolName string, args map[string]any) RuleVerdict {
	rule := BuildRule(toolName, args)

	for _, pattern := range s.Permissions.Deny {
		if MatchRule(rule, pattern) {
			return RuleDeny
		}
	}
	for _, pattern := range s.Permissions.Allow {
		if MatchRule(rule, pattern) {
			return RuleAllow
		}
	}
	for _, pattern := range s.Permissions.Ask {
		if MatchRule(rule, pattern) {
			return RuleAsk
		}
	}
	return RuleUnset
}
