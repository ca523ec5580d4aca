package result

import (
	"regexp"
	"unicode/utf8"
)

// ignoredChars is kept literal: ")-_" is a range and also drops digits and
// upper-case ASCII letters.
var ignoredChars = regexp.MustCompile(`[,;:!?./\\ ()-_]`)

// ContentLen estimates how much information a text carries. Values that
// are not strings count as zero.
func ContentLen(v any) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	return utf8.RuneCountInString(ignoredChars.ReplaceAllString(s, ""))
}
