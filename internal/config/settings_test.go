package config

import "testing"

func TestMergeScalarOverridesOnlyWhenNonZero(t *testing.T) {
	base := Default()
	overlay := &Settings{MaxHistoryMessages: 50}

	merged := Merge(base, overlay)

	if merged.MaxHistoryMessages != 50 {
		t.Fatalf("expected overlay to win for a set field, got %d", merged.MaxHistoryMessages)
	}
	if merged.MaxHistoryTokens != base.MaxHistoryTokens {
		t.Fatalf("expected base to survive for an unset overlay field, got %d", merged.MaxHistoryTokens)
	}
}

func TestMergePermissionRulesDedupAppend(t *testing.T) {
	base := &Settings{Permissions: PermissionRules{Allow: []string{"Read(*)"}}}
	overlay := &Settings{Permissions: PermissionRules{Allow: []string{"Read(*)", "Bash(git *)"}}}

	merged := Merge(base, overlay)

	if len(merged.Permissions.Allow) != 2 {
		t.Fatalf("expected dedup-append, got %v", merged.Permissions.Allow)
	}
}

func TestMergeBoolsOR(t *testing.T) {
	base := &Settings{ParallelTools: false}
	overlay := &Settings{ParallelTools: true}

	merged := Merge(base, overlay)

	if !merged.ParallelTools {
		t.Fatal("expected overlay's true to win")
	}
}

func TestCheckDenyBeatsAllow(t *testing.T) {
	s := &Settings{Permissions: PermissionRules{
		Allow: []string{"bash(*)"},
		Deny:  []string{"bash(rm:**)"},
	}}

	verdict := s.Check("bash", map[string]any{"command": "rm -rf /tmp/x"})
	if verdict != RuleDeny {
		t.Fatalf("expected deny to win over a broader allow, got %v", verdict)
	}

	verdict = s.Check("bash", map[string]any{"command": "git status"})
	if verdict != RuleAllow {
		t.Fatalf("expected allow for a command not matching deny, got %v", verdict)
	}
}

func TestCheckUnsetWhenNoRuleMatches(t *testing.T) {
	s := &Settings{}
	if verdict := s.Check("Read", map[string]any{"file_path": "/tmp/x"}); verdict != RuleUnset {
		t.Fatalf("expected RuleUnset with no configured rules, got %v", verdict)
	}
}

func TestBuildRuleBash(t *testing.T) {
	rule := BuildRule("bash", map[string]any{"command": "git status --short"})
	if rule != "bash(git:status --short)" {
		t.Fatalf("unexpected bash rule rendering: %q", rule)
	}
}
