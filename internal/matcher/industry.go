package matcher

import "strings"

// WildcardIndustry marks a program as open to every industry.
const WildcardIndustry = "all"

// normalizeTag lower-cases and trims an industry tag so the containment check
// below stays symmetric. Swapping the heuristic for exact or taxonomy-based
// matching only requires touching this file.
func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// industriesOpen reports whether a program places no industry restriction:
// either the tag set is empty or it contains the wildcard.
func industriesOpen(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, tag := range tags {
		if normalizeTag(tag) == WildcardIndustry {
			return true
		}
	}
	return false
}

// tagsOverlap reports whether any program tag substring-matches any profile
// tag, in either direction, case-insensitively. "tech" matches "technology"
// and vice versa.
func tagsOverlap(programTags, profileTags []string) bool {
	for _, pt := range programTags {
		pn := normalizeTag(pt)
		if pn == "" {
			continue
		}
		for _, ut := range profileTags {
			un := normalizeTag(ut)
			if un == "" {
				continue
			}
			if strings.Contains(pn, un) || strings.Contains(un, pn) {
				return true
			}
		}
	}
	return false
}

// firstTags returns at most n trimmed tags for use in gap messages.
func firstTags(tags []string, n int) []string {
	out := make([]string, 0, n)
	for _, tag := range tags {
		if t := strings.TrimSpace(tag); t != "" {
			out = append(out, t)
		}
		if len(out) == n {
			break
		}
	}
	return out
}
