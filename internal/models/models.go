package models

import "time"

// GrantType classifies how a program delivers money.
type GrantType string

const (
	GrantTypeGrant     GrantType = "grant"
	GrantTypeLoan      GrantType = "loan"
	GrantTypeTaxCredit GrantType = "tax_credit"
)

// BusinessStage is where the user's business currently is.
type BusinessStage string

const (
	StageIdea    BusinessStage = "idea"
	StageStartup BusinessStage = "startup"
	StageGrowing BusinessStage = "growing"
)

// ExperienceLevel is the normalized founder experience bucket. The empty
// string means the user never answered, which is distinct from "beginner".
type ExperienceLevel string

const (
	ExperienceUnset       ExperienceLevel = ""
	ExperienceBeginner    ExperienceLevel = "beginner"
	ExperienceSome        ExperienceLevel = "some"
	ExperienceExperienced ExperienceLevel = "experienced"
)

// Priority is the coarse urgency bucket attached to a match.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// FundingProgram is one entry in the funding catalog. Optional constraints
// are pointers; a nil pointer means "no constraint", never "zero".
type FundingProgram struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	GrantType   GrantType `json:"grant_type"`

	// Province is nil for federal programs available everywhere.
	Province *string `json:"province,omitempty"`
	// Industries is the set of industry tags; empty, or containing "all",
	// means open to every industry.
	Industries []string `json:"industries"`

	FundingMin *int64     `json:"funding_min,omitempty"` // CAD
	FundingMax *int64     `json:"funding_max,omitempty"` // CAD
	Deadline   *time.Time `json:"deadline,omitempty"`    // nil = rolling intake

	NewcomerEligible   *bool `json:"newcomer_eligible,omitempty"`
	SideHustleEligible *bool `json:"side_hustle_eligible,omitempty"`

	// AgeRestrictions is free text from the catalog source, e.g. "18-39".
	AgeRestrictions       *string `json:"age_restrictions,omitempty"`
	ApplicationComplexity *int    `json:"application_complexity,omitempty"` // 1 (simple) .. 5
	ApprovalTimeWeeks     *int    `json:"approval_time_weeks,omitempty"`

	Active bool `json:"active"`
}

// UserProfile is the fully-resolved profile a match request runs against.
// It is assembled per request (stored answers + override + defaults) and is
// never persisted by the matcher itself.
type UserProfile struct {
	Province        string          `json:"province"`
	Age             *int            `json:"age,omitempty"`
	IsNewcomer      bool            `json:"is_newcomer"`
	YearsInCanada   *int            `json:"years_in_canada,omitempty"`
	Industries      []string        `json:"industries"`
	BusinessStage   BusinessStage   `json:"business_stage"`
	FundingNeeded   int64           `json:"funding_needed"` // CAD
	IsSideHustle    bool            `json:"is_side_hustle"`
	ExperienceLevel ExperienceLevel `json:"experience_level,omitempty"`
}

// ProfileOverride is a caller-supplied partial profile. Every field is a
// pointer so that "field absent" and "field set to the zero value" can be
// told apart during the per-field merge.
type ProfileOverride struct {
	Province        *string        `json:"province,omitempty"`
	Age             *int           `json:"age,omitempty"`
	IsNewcomer      *bool          `json:"is_newcomer,omitempty"`
	YearsInCanada   *int           `json:"years_in_canada,omitempty"`
	Industries      []string       `json:"industries,omitempty"`
	BusinessStage   *BusinessStage `json:"business_stage,omitempty"`
	FundingNeeded   *int64         `json:"funding_needed,omitempty"`
	IsSideHustle    *bool          `json:"is_side_hustle,omitempty"`
	ExperienceLevel *string        `json:"experience_level,omitempty"`
}

// GrantMatch is the scored, explained result for one program.
type GrantMatch struct {
	Program                FundingProgram `json:"program"`
	Score                  int            `json:"score"`
	MatchPercentage        int            `json:"match_percentage"`
	MatchReasons           []string       `json:"match_reasons"`
	MissingRequirements    []string       `json:"missing_requirements"`
	EstimatedApprovalWeeks *int           `json:"estimated_approval_weeks,omitempty"`
	Priority               Priority       `json:"priority"`
}

// MatchesResponse is the payload returned for any match view.
type MatchesResponse struct {
	UserID      string       `json:"user_id"`
	View        string       `json:"view"`
	Matches     []GrantMatch `json:"matches"`
	Total       int          `json:"total"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// SaveProfileResponse acknowledges a stored wizard profile.
type SaveProfileResponse struct {
	UserID string `json:"user_id"`
	Saved  bool   `json:"saved"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
