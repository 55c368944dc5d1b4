package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"grant-match-api/internal/models"
)

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

const (
	maxTextLength      = 2000
	maxIndustryTags    = 25
	maxFundingCAD      = int64(100_000_000)
	maxComplexityLevel = 5
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateProgram checks a catalog entry before it is persisted. Optional
// fields are only checked when present; absence is never an error.
func ValidateProgram(program models.FundingProgram) error {
	if strings.TrimSpace(program.ID) == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	if len(program.ID) > 128 {
		return &ValidationError{Field: "id", Message: "cannot exceed 128 characters"}
	}

	if strings.TrimSpace(program.Name) == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if len(program.Name) > maxTextLength {
		return &ValidationError{Field: "name", Message: "is too long"}
	}

	switch program.GrantType {
	case models.GrantTypeGrant, models.GrantTypeLoan, models.GrantTypeTaxCredit:
	default:
		return &ValidationError{Field: "grant_type", Message: "must be one of grant, loan, tax_credit"}
	}

	if err := validateTags(program.Industries, "industries"); err != nil {
		return err
	}

	if program.FundingMin != nil && *program.FundingMin < 0 {
		return &ValidationError{Field: "funding_min", Message: "must be non-negative"}
	}
	if program.FundingMax != nil {
		if *program.FundingMax < 0 {
			return &ValidationError{Field: "funding_max", Message: "must be non-negative"}
		}
		if *program.FundingMax > maxFundingCAD {
			return &ValidationError{Field: "funding_max", Message: "exceeds maximum allowed amount"}
		}
	}
	if program.FundingMin != nil && program.FundingMax != nil && *program.FundingMin > *program.FundingMax {
		return &ValidationError{Field: "funding_min", Message: "must not exceed funding_max"}
	}

	if program.ApplicationComplexity != nil {
		if *program.ApplicationComplexity < 1 || *program.ApplicationComplexity > maxComplexityLevel {
			return &ValidationError{Field: "application_complexity", Message: "must be between 1 and 5"}
		}
	}

	if program.ApprovalTimeWeeks != nil && *program.ApprovalTimeWeeks < 0 {
		return &ValidationError{Field: "approval_time_weeks", Message: "must be non-negative"}
	}

	return nil
}

// ValidateProfile checks stored wizard answers before persisting them.
func ValidateProfile(profile models.UserProfile) error {
	if strings.TrimSpace(profile.Province) == "" {
		return &ValidationError{Field: "province", Message: "is required"}
	}

	if profile.Age != nil && (*profile.Age < 0 || *profile.Age > 120) {
		return &ValidationError{Field: "age", Message: "must be between 0 and 120"}
	}

	if profile.YearsInCanada != nil && *profile.YearsInCanada < 0 {
		return &ValidationError{Field: "years_in_canada", Message: "must be non-negative"}
	}

	if err := validateTags(profile.Industries, "industries"); err != nil {
		return err
	}

	switch profile.BusinessStage {
	case "", models.StageIdea, models.StageStartup, models.StageGrowing:
	default:
		return &ValidationError{Field: "business_stage", Message: "must be one of idea, startup, growing"}
	}

	if profile.FundingNeeded < 0 {
		return &ValidationError{Field: "funding_needed", Message: "must be non-negative"}
	}
	if profile.FundingNeeded > maxFundingCAD {
		return &ValidationError{Field: "funding_needed", Message: "exceeds maximum allowed amount"}
	}

	return nil
}

func validateTags(tags []string, field string) error {
	if len(tags) > maxIndustryTags {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("cannot contain more than %d tags", maxIndustryTags),
		}
	}

	seen := make(map[string]bool)
	for i, tag := range tags {
		trimmed := strings.ToLower(strings.TrimSpace(tag))
		if trimmed == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: "must not be empty",
			}
		}
		if seen[trimmed] {
			return &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate tag: %s", trimmed),
			}
		}
		seen[trimmed] = true
	}

	return nil
}

// SanitizeString strips control characters and trims surrounding whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// ValidateTimeString parses an RFC3339 timestamp.
func ValidateTimeString(timeStr string) (time.Time, error) {
	if timeStr == "" {
		return time.Time{}, &ValidationError{Field: "time", Message: "is required"}
	}

	t, err := time.Parse(time.RFC3339, timeStr)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "time", Message: "must be a valid RFC3339 timestamp"}
	}

	return t, nil
}

// ValidateUUID checks that an identifier is a v4 UUID. User ids come from the
// account system, which issues v4 UUIDs.
func ValidateUUID(id, fieldName string) error {
	if id == "" {
		return &ValidationError{Field: fieldName, Message: "is required"}
	}

	id = SanitizeString(id)

	if !uuidRegex.MatchString(strings.ToLower(id)) {
		return &ValidationError{Field: fieldName, Message: "must be a valid UUID v4"}
	}

	return nil
}
