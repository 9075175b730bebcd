package util //nolint:revive // package name util hosts shared formatting helpers used by CLI output

import "time"

// FormatAge formats the elapsed time since a timestamp for display.
// Returns "—" when the timestamp is zero or in the future, truncates to
// seconds for readability.
func FormatAge(t time.Time, now time.Time) string {
	if t.IsZero() || !t.Before(now) {
		return "—"
	}
	return now.Sub(t).Truncate(time.Second).String()
}

// Truncate shortens s to max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
