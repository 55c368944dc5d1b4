package matcher

import (
	"sort"
	"time"

	"grant-match-api/internal/models"
)

// DefaultDeadlineWindowDays is the lookahead used by the upcoming-deadline
// view when the caller does not pick one.
const DefaultDeadlineWindowDays = 30

// MatchCatalog scores every program, drops anything under MinViableScore and
// ranks the rest: high priority first, then medium, then low, with higher
// scores first inside each tier. The sort is stable so equal entries keep
// catalog order.
func MatchCatalog(catalog []models.FundingProgram, profile models.UserProfile, now time.Time) []models.GrantMatch {
	matches := make([]models.GrantMatch, 0, len(catalog))
	for _, program := range catalog {
		m := ScoreMatch(program, profile, now)
		if m.Score < MinViableScore {
			continue
		}
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		ri, rj := priorityRank(matches[i].Priority), priorityRank(matches[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return matches[i].Score > matches[j].Score
	})

	return matches
}

// TopRecommendations returns the first limit entries of MatchCatalog. A limit
// of zero (or less) yields an empty list.
func TopRecommendations(catalog []models.FundingProgram, profile models.UserProfile, now time.Time, limit int) []models.GrantMatch {
	matches := MatchCatalog(catalog, profile, now)
	if limit <= 0 {
		return matches[:0]
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// HighPriorityMatches keeps only the high tier of MatchCatalog.
func HighPriorityMatches(catalog []models.FundingProgram, profile models.UserProfile, now time.Time) []models.GrantMatch {
	matches := MatchCatalog(catalog, profile, now)
	high := matches[:0]
	for _, m := range matches {
		if m.Priority == models.PriorityHigh {
			high = append(high, m)
		}
	}
	return high
}

// UpcomingDeadlineMatches keeps matches whose deadline falls strictly between
// now and now plus daysAhead days, soonest first. daysAhead of zero or less
// falls back to DefaultDeadlineWindowDays.
func UpcomingDeadlineMatches(catalog []models.FundingProgram, profile models.UserProfile, now time.Time, daysAhead int) []models.GrantMatch {
	if daysAhead <= 0 {
		daysAhead = DefaultDeadlineWindowDays
	}
	cutoff := now.AddDate(0, 0, daysAhead)

	matches := MatchCatalog(catalog, profile, now)
	upcoming := matches[:0]
	for _, m := range matches {
		d := m.Program.Deadline
		if d != nil && d.After(now) && d.Before(cutoff) {
			upcoming = append(upcoming, m)
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Program.Deadline.Before(*upcoming[j].Program.Deadline)
	})

	return upcoming
}

func priorityRank(p models.Priority) int {
	switch p {
	case models.PriorityHigh:
		return 0
	case models.PriorityMedium:
		return 1
	default:
		return 2
	}
}
