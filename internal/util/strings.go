// Package util provides small shared helpers that don't fit into
// domain-specific packages.
package util

// SafeTruncate truncates a string to maxLen characters without panicking.
// Used when logging token material, where only a short prefix may appear.
//
// A negative maxLen is treated as 0 and returns an empty string.
func SafeTruncate(s string, maxLen int) string {
	if maxLen < 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
