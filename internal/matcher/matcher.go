// Package matcher scores funding programs against a user profile. It is a
// pure in-memory computation: no I/O, no clock reads (the caller passes now),
// and no failure modes. Missing optional fields on either side mean "no
// constraint" and simply leave points on the table.
package matcher

import (
	"fmt"
	"strings"
	"time"

	"grant-match-api/internal/models"
)

// Point budget per rule group. The budgets sum to 100, so the raw score is
// already a percentage.
const (
	pointsGeography  = 30
	pointsIndustry   = 25
	pointsNewcomer   = 15
	pointsAge        = 10
	pointsFunding    = 10
	pointsSideHustle = 5
	pointsSimplicity = 5
)

// MinViableScore is the floor below which a match is treated as noise and
// dropped from catalog results.
const MinViableScore = 30

// Priority thresholds and the deadline escalation window.
const (
	highPriorityScore       = 80
	mediumPriorityScore     = 50
	deadlineEscalationDays  = 30
	simpleApplicationCutoff = 2
)

// ScoreMatch evaluates one program against one profile. It is total: every
// input produces a GrantMatch, never an error. Rules fire in a fixed order
// (geography, industry, newcomer, age, funding, side hustle, simplicity) and
// reasons accumulate in that order.
func ScoreMatch(program models.FundingProgram, profile models.UserProfile, now time.Time) models.GrantMatch {
	score := 0
	var reasons []string
	var missing []string

	// Geography: nil province means a federal, Canada-wide program.
	switch {
	case program.Province == nil || strings.TrimSpace(*program.Province) == "" || isFederal(*program.Province):
		score += pointsGeography
		reasons = append(reasons, "Federal program available Canada-wide")
	case strings.EqualFold(strings.TrimSpace(*program.Province), strings.TrimSpace(profile.Province)):
		score += pointsGeography
		reasons = append(reasons, fmt.Sprintf("Available in %s", strings.TrimSpace(*program.Province)))
	default:
		missing = append(missing, fmt.Sprintf("Only available in %s", strings.TrimSpace(*program.Province)))
	}

	// Industry: an open program always matches, otherwise any bidirectional
	// substring hit between program and profile tags counts.
	switch {
	case industriesOpen(program.Industries):
		score += pointsIndustry
		reasons = append(reasons, "Open to all industries")
	case tagsOverlap(program.Industries, profile.Industries):
		score += pointsIndustry
		reasons = append(reasons, "Matches your industry")
	default:
		missing = append(missing, fmt.Sprintf("Targets %s businesses", strings.Join(firstTags(program.Industries, 3), ", ")))
	}

	// Newcomer fit: skipped entirely unless the user is a newcomer. An unset
	// flag on the program is neutral: no points, no gap.
	if profile.IsNewcomer {
		if program.NewcomerEligible != nil {
			if *program.NewcomerEligible {
				score += pointsNewcomer
				reasons = append(reasons, "Newcomer-friendly program")
			} else {
				missing = append(missing, "Not designed for newcomers")
			}
		}
	}

	// Age eligibility. When the restriction text does not look like a range
	// but mentions "39" we surface a youth-program hint without scoring it;
	// that literal check matches how the one youth program in the catalog is
	// written up and is intentionally not generalized.
	if program.AgeRestrictions != nil {
		if r, ok := ParseAgeRange(*program.AgeRestrictions); ok {
			if profile.Age != nil {
				if *profile.Age >= r.Min && *profile.Age <= r.Max {
					score += pointsAge
					reasons = append(reasons, fmt.Sprintf("Meets age requirement (%d-%d)", r.Min, r.Max))
				} else {
					missing = append(missing, fmt.Sprintf("Age requirement: %d-%d", r.Min, r.Max))
				}
			}
		} else if strings.Contains(*program.AgeRestrictions, "39") {
			reasons = append(reasons, "May qualify as a youth program")
		}
	}

	// Funding amount fit. Both bounds declared: inclusive range check. Only a
	// maximum declared: the program must cover the amount sought. No gap
	// reason either way.
	switch {
	case program.FundingMin != nil && program.FundingMax != nil:
		if profile.FundingNeeded >= *program.FundingMin && profile.FundingNeeded <= *program.FundingMax {
			score += pointsFunding
			reasons = append(reasons, fmt.Sprintf("Funding range $%d-$%d fits your needs", *program.FundingMin, *program.FundingMax))
		}
	case program.FundingMax != nil:
		if *program.FundingMax >= profile.FundingNeeded {
			score += pointsFunding
			reasons = append(reasons, fmt.Sprintf("Provides up to $%d", *program.FundingMax))
		}
	}

	// Side-hustle fit: skipped unless the user runs part-time. Absence of the
	// program flag counts as eligible.
	if profile.IsSideHustle {
		if program.SideHustleEligible != nil && !*program.SideHustleEligible {
			missing = append(missing, "Requires full-time commitment")
		} else {
			score += pointsSideHustle
			reasons = append(reasons, "Works for part-time businesses")
		}
	}

	// Simplicity bonus for low-friction applications.
	if program.ApplicationComplexity != nil && *program.ApplicationComplexity <= simpleApplicationCutoff {
		score += pointsSimplicity
		reasons = append(reasons, "Simple application process")
	}

	priority := basePriority(score)
	if program.Deadline != nil && score >= mediumPriorityScore {
		if days := daysUntil(now, *program.Deadline); days > 0 && days <= deadlineEscalationDays {
			priority = models.PriorityHigh
			reasons = append(reasons, fmt.Sprintf("Deadline in %d days!", days))
		}
	}

	return models.GrantMatch{
		Program:                program,
		Score:                  score,
		MatchPercentage:        clampScore(score),
		MatchReasons:           reasons,
		MissingRequirements:    missing,
		EstimatedApprovalWeeks: program.ApprovalTimeWeeks,
		Priority:               priority,
	}
}

func basePriority(score int) models.Priority {
	switch {
	case score >= highPriorityScore:
		return models.PriorityHigh
	case score >= mediumPriorityScore:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// daysUntil returns the number of days from now until deadline, rounded up.
// Zero or negative means the deadline is not strictly in the future.
func daysUntil(now, deadline time.Time) int {
	d := deadline.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// clampScore keeps the percentage inside [0,100]. The additive budget already
// tops out at 100; the clamp is here so the output contract holds even if a
// rule budget changes.
func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// isFederal reports whether a province value is one of the sentinel spellings
// catalog sources use for nationwide programs.
func isFederal(province string) bool {
	switch strings.ToLower(strings.TrimSpace(province)) {
	case "federal", "canada", "all":
		return true
	}
	return false
}
