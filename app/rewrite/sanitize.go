package rewrite

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	// A hyphen or dash directly between two word characters, e.g.
	// "Street-Legal" or "AC-DC". Downstream *arr parsers split on '-'.
	innerDash = regexp.MustCompile(`([\p{L}\p{N}_])[-–—]([\p{L}\p{N}_])`)
)

// SanitizeField normalizes an attribute value for use inside a rewritten
// title: NFC unicode normalization, whitespace collapsed to single spaces,
// and hyphens between word characters replaced with spaces so they cannot be
// misread as field separators.
func SanitizeField(value string) string {
	if value == "" {
		return ""
	}

	value = norm.NFC.String(value)
	value = strings.TrimSpace(whitespaceRun.ReplaceAllString(value, " "))

	// Repeat until stable: consecutive runs like "a-b-c" need a second pass
	// because the match consumes the shared word character.
	for {
		replaced := innerDash.ReplaceAllString(value, "$1 $2")
		if replaced == value {
			break
		}
		value = replaced
	}

	return strings.TrimSpace(whitespaceRun.ReplaceAllString(value, " "))
}

// SafeHyphenField makes a field safe for a hyphen-delimited title by turning
// spaced hyphens into ": ". This catches the delimiter-shaped hyphens that
// SanitizeField leaves alone (surrounded by spaces, not word characters).
func SafeHyphenField(value string) string {
	return strings.ReplaceAll(value, " - ", ": ")
}
