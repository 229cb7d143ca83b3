// internal/action/format.go
package action

import "strings"

// FormatMessage normalizes line breaks in assistant-originated display text.
// Model replies carry newlines two ways: a literal backslash-n escape that
// survived JSON decoding, and real newline characters. Both must render as a
// line break, so every assistant string shown to the user goes through this
// transform.
func FormatMessage(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}
