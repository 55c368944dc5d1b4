package matcher

import (
	"regexp"
	"strconv"
)

// AgeRange is a parsed numeric age restriction.
type AgeRange struct {
	Min int
	Max int
}

var ageRangePattern = regexp.MustCompile(`(\d+)\s*-\s*(\d+)`)

// ParseAgeRange extracts the first "<min>-<max>" pattern from free-text age
// restrictions, tolerating whitespace around the hyphen. The second return is
// false when no such pattern exists, which callers treat as "unparseable"
// rather than as a zero-width range.
func ParseAgeRange(text string) (AgeRange, bool) {
	m := ageRangePattern.FindStringSubmatch(text)
	if m == nil {
		return AgeRange{}, false
	}

	// The pattern only admits digits, so Atoi cannot fail here.
	min, _ := strconv.Atoi(m[1])
	max, _ := strconv.Atoi(m[2])
	return AgeRange{Min: min, Max: max}, true
}
