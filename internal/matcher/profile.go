package matcher

import (
	"strings"

	"grant-match-api/internal/models"
)

// Default profile values applied when neither the stored profile nor the
// override supplies a field.
const (
	DefaultProvince      = "Ontario"
	DefaultFundingNeeded = int64(25000)
)

// Defaults returns the baseline profile used when nothing better is known
// about the user. Booleans default to false, everything optional stays unset.
func Defaults() models.UserProfile {
	return models.UserProfile{
		Province:      DefaultProvince,
		BusinessStage: models.StageIdea,
		FundingNeeded: DefaultFundingNeeded,
	}
}

// MergeProfile resolves the profile for one match request. Precedence is
// per-field: override beats stored, stored beats Defaults. Either input may
// be nil. The result is a fresh value; neither input is mutated.
func MergeProfile(stored *models.UserProfile, override *models.ProfileOverride) models.UserProfile {
	p := Defaults()

	if stored != nil {
		if strings.TrimSpace(stored.Province) != "" {
			p.Province = stored.Province
		}
		if stored.Age != nil {
			p.Age = stored.Age
		}
		p.IsNewcomer = stored.IsNewcomer
		if stored.YearsInCanada != nil {
			p.YearsInCanada = stored.YearsInCanada
		}
		if len(stored.Industries) > 0 {
			p.Industries = stored.Industries
		}
		if stored.BusinessStage != "" {
			p.BusinessStage = stored.BusinessStage
		}
		if stored.FundingNeeded > 0 {
			p.FundingNeeded = stored.FundingNeeded
		}
		p.IsSideHustle = stored.IsSideHustle
		if stored.ExperienceLevel != models.ExperienceUnset {
			p.ExperienceLevel = stored.ExperienceLevel
		}
	}

	if override != nil {
		if override.Province != nil && strings.TrimSpace(*override.Province) != "" {
			p.Province = *override.Province
		}
		if override.Age != nil {
			p.Age = override.Age
		}
		if override.IsNewcomer != nil {
			p.IsNewcomer = *override.IsNewcomer
		}
		if override.YearsInCanada != nil {
			p.YearsInCanada = override.YearsInCanada
		}
		if len(override.Industries) > 0 {
			p.Industries = override.Industries
		}
		if override.BusinessStage != nil {
			p.BusinessStage = *override.BusinessStage
		}
		if override.FundingNeeded != nil {
			p.FundingNeeded = *override.FundingNeeded
		}
		if override.IsSideHustle != nil {
			p.IsSideHustle = *override.IsSideHustle
		}
		if override.ExperienceLevel != nil {
			p.ExperienceLevel = NormalizeExperience(*override.ExperienceLevel)
		}
	}

	return p
}

// NormalizeExperience maps whatever the wizard recorded onto the closed
// experience enum. "none" and "beginner" collapse to beginner, "some" stays,
// any other non-empty answer counts as experienced. Empty stays unset and is
// never coerced to a default.
func NormalizeExperience(raw string) models.ExperienceLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return models.ExperienceUnset
	case "none", "beginner":
		return models.ExperienceBeginner
	case "some":
		return models.ExperienceSome
	default:
		return models.ExperienceExperienced
	}
}
