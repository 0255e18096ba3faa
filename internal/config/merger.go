package config

// Merge combines base and overlay, with overlay's explicitly-set (non-zero)
// scalar fields winning and permission rule lists merged/deduplicated,
// mirroring the teacher's MergeSettings/mergePermissionSettings.
func Merge(base, overlay *Settings) *Settings {
	if base == nil {
		return overlay
	}
	if overlay == nil {
		return base
	}

	result := *base

	mergeInt(&result.MaxHistoryMessages, overlay.MaxHistoryMessages)
	mergeInt(&result.MaxHistoryTokens, overlay.MaxHistoryTokens)
	mergeInt(&result.CharsPerTokenEstimate, overlay.CharsPerTokenEstimate)
	mergeInt(&result.ContextNearCapacityThresh, overlay.ContextNearCapacityThresh)
	mergeInt(&result.MaxBatchSize, overlay.MaxBatchSize)
	mergeInt(&result.ToolCallCycleWindow, overlay.ToolCallCycleWindow)
	mergeInt(&result.ToolCallCycleThreshold, overlay.ToolCallCycleThreshold)
	mergeInt(&result.ThinkingCycleRepeat, overlay.ThinkingCycleRepeat)
	mergeInt(&result.CheckpointInterval, overlay.CheckpointInterval)
	mergeInt(&result.CheckpointMinPromptTokens, overlay.CheckpointMinPromptTokens)
	mergeInt(&result.CheckpointMaxPromptTokens, overlay.CheckpointMaxPromptTokens)
	mergeInt(&result.ToolResultPreviewLines, overlay.ToolResultPreviewLines)
	mergeInt(&result.ToolResultMaxTokensNormal, overlay.ToolResultMaxTokensNormal)
	mergeInt(&result.ToolResultMaxTokensModerate, overlay.ToolResultMaxTokensModerate)
	mergeInt(&result.ToolResultMaxTokensAggressiv, overlay.ToolResultMaxTokensAggressiv)
	mergeInt(&result.ToolResultMaxTokensCritical, overlay.ToolResultMaxTokensCritical)

	if overlay.ThinkingCycleSimilarit != 0 {
		result.ThinkingCycleSimilarit = overlay.ThinkingCycleSimilarit
	}
	if overlay.TurnDurationCapMinutes != nil {
		result.TurnDurationCapMinutes = overlay.TurnDurationCapMinutes
	}
	if overlay.Model != "" {
		result.Model = overlay.Model
	}
	if overlay.Provider != "" {
		result.Provider = overlay.Provider
	}

	// bool fields are OR-ed: a layer can switch a flag on, but cannot
	// switch off a flag that a lower layer already set.
	result.ParallelTools = overlay.ParallelTools || base.ParallelTools
	result.ValidationRetryEnabled = overlay.ValidationRetryEnabled || base.ValidationRetryEnabled

	result.Permissions = PermissionRules{
		Allow: mergeDedup(base.Permissions.Allow, overlay.Permissions.Allow),
		Deny:  mergeDedup(base.Permissions.Deny, overlay.Permissions.Deny),
		Ask:   mergeDedup(base.Permissions.Ask, overlay.Permissions.Ask),
	}

	return &result
}

func mergeInt(dst *int, overlay int) {
	if overlay != 0 {
		*dst = overlay
	}
}

// mergeDedup appends overlay entries after base entries, dropping
// duplicates already seen in base (teacher's mergeStringSlices).
func mergeDedup(base, overlay []string) []string {
	seen := make(map[string]bool, len(base)+len(overlay))
	var result []string
	for _, s := range base {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range overlay {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}
