package utils

// Truncate shortens s to at most maxLen runes, appending an ellipsis when
// anything was cut. Multi-byte characters are never split.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
