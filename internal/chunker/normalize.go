package chunker

import "strings"

// Normalize collapses every run of whitespace into a single space and trims
// both ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
