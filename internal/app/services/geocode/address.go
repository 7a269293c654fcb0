package geocode

import (
	"regexp"
	"strings"
)

var (
	parenthesized = regexp.MustCompile(`\([^)]*\)`)
	multiSpace    = regexp.MustCompile(`\s+`)
)

// CleanAddress normalises an address for search: parenthesised segments
// (building names, unit numbers) are dropped and whitespace is collapsed.
func CleanAddress(address string) string {
	address = parenthesized.ReplaceAllString(address, "")
	address = multiSpace.ReplaceAllString(address, " ")
	return strings.TrimSpace(address)
}
