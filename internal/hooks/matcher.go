package hooks

import "regexp"

// matches reports whether matcher selects toolName. "" or "*" selects
// every tool; otherwise matcher is a regex anchored at both ends.
func matches(matcher, toolName string) bool {
	switch matcher {
	case "", "*":
		return true
	default:
		if re, err := regexp.Compile("^(" + matcher + ")$"); err == nil {
			return re.MatchString(toolName)
		}
		return matcher == toolName
	}
}
