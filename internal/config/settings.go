// Package config loads loom's layered settings (spec.md §6
// "Configuration surface (core-relevant)"). Grounded on the teacher's
// internal/config/{settings,loader,merger}.go: the same user/project/
// local layering and JSON shape, narrowed to the core-relevant key set
// plus the permission allow/deny/ask rule surface the Trust Cache and
// Permission Gate consult for pre-seeded rules underneath runtime
// grants. Accepts YAML as well as JSON, per SPEC_FULL.md's domain-stack
// table (gopkg.in/yaml.v3).
package config

// Settings is the core-relevant configuration surface (spec.md §6).
// Every field corresponds to one key in that section's fixed key set.
type Settings struct {
	MaxHistoryMessages        int `json:"max_history_messages" yaml:"max_history_messages"`
	MaxHistoryTokens          int `json:"max_history_tokens" yaml:"max_history_tokens"`
	CharsPerTokenEstimate     int `json:"chars_per_token_estimate" yaml:"chars_per_token_estimate"`
	ContextNearCapacityThresh int `json:"context_near_capacity_threshold" yaml:"context_near_capacity_threshold"`

	ParallelTools bool `json:"parallel_tools" yaml:"parallel_tools"`
	MaxBatchSize  int  `json:"max_batch_size" yaml:"max_batch_size"`

	ToolCallCycleWindow    int     `json:"tool_call_cycle_window" yaml:"tool_call_cycle_window"`
	ToolCallCycleThreshold int     `json:"tool_call_cycle_threshold" yaml:"tool_call_cycle_threshold"`
	ThinkingCycleSimilarit float64 `json:"thinking_cycle_similarity" yaml:"thinking_cycle_similarity"`
	ThinkingCycleRepeat    int     `json:"thinking_cycle_repetition" yaml:"thinking_cycle_repetition"`

	CheckpointInterval        int `json:"checkpoint_interval" yaml:"checkpoint_interval"`
	CheckpointMinPromptTokens int `json:"checkpoint_min_prompt_tokens" yaml:"checkpoint_min_prompt_tokens"`
	CheckpointMaxPromptTokens int `json:"checkpoint_max_prompt_tokens" yaml:"checkpoint_max_prompt_tokens"`

	// TurnDurationCapMinutes is a pointer so "unset" (no cap) is
	// distinguishable from an explicit 0, matching the "?" optionality
	// spec.md §6 marks it with.
	TurnDurationCapMinutes *int `json:"turn_duration_cap_minutes,omitempty" yaml:"turn_duration_cap_minutes,omitempty"`

	ToolResultPreviewLines       int `json:"tool_result_preview_lines" yaml:"tool_result_preview_lines"`
	ToolResultMaxTokensNormal    int `json:"tool_result_max_tokens_normal" yaml:"tool_result_max_tokens_normal"`
	ToolResultMaxTokensModerate  int `json:"tool_result_max_tokens_moderate" yaml:"tool_result_max_tokens_moderate"`
	ToolResultMaxTokensAggressiv int `json:"tool_result_max_tokens_aggressive" yaml:"tool_result_max_tokens_aggressive"`
	ToolResultMaxTokensCritical  int `json:"tool_result_max_tokens_critical" yaml:"tool_result_max_tokens_critical"`

	ValidationRetryEnabled bool `json:"validation_retry_enabled" yaml:"validation_retry_enabled"`

	// Permissions is the pre-seeded allow/deny/ask rule surface the
	// Trust Cache/Permission Gate consult underneath runtime grants,
	// mirroring the teacher's PermissionSettings.
	Permissions PermissionRules `json:"permissions,omitempty" yaml:"permissions,omitempty"`

	// Model selects the default LLM backend + model id.
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
}

// PermissionRules holds "Tool(pattern)"-style glob rules, matching the
// teacher's PermissionSettings shape verbatim.
type PermissionRules struct {
	Allow []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty" yaml:"deny,omitempty"`
	Ask   []string `json:"ask,omitempty" yaml:"ask,omitempty"`
}

// Default returns the spec's suggested defaults (spec.md §4.6, §4.7,
// DESIGN.md "Open Question decisions"), used as the base layer every
// config source is merged on top of.
func Default() *Settings {
	return &Settings{
		MaxHistoryMessages:        200,
		MaxHistoryTokens:          100_000,
		CharsPerTokenEstimate:     4,
		ContextNearCapacityThresh: 80,

		ParallelTools: true,
		MaxBatchSize:  20,

		ToolCallCycleWindow:    20,
		ToolCallCycleThreshold: 4,
		ThinkingCycleSimilarit: 0.85,
		ThinkingCycleRepeat:    3,

		CheckpointInterval:        10,
		CheckpointMinPromptTokens: 20,
		CheckpointMaxPromptTokens: 4000,

		ToolResultPreviewLines:       20,
		ToolResultMaxTokensNormal:    4000,
		ToolResultMaxTokensModerate:  2000,
		ToolResultMaxTokensAggressiv: 800,
		ToolResultMaxTokensCritical:  300,

		ValidationRetryEnabled: true,

		Provider: "anthropic",
	}
}
