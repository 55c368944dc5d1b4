package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"grant-match-api/internal/database"
	"grant-match-api/internal/features"
	"grant-match-api/internal/models"
)

func setupTestDB(t *testing.T) (*database.DB, func()) {
	dbPath := "./test_" + uuid.New().String() + ".db"
	db, err := database.NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return db, cleanup
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func int64Ptr(i int64) *int64 { return &i }

func testPrograms() []models.FundingProgram {
	deadline := time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)
	return []models.FundingProgram{
		{
			ID:                    "csbf",
			Name:                  "Canada Small Business Financing",
			GrantType:             models.GrantTypeLoan,
			Industries:            []string{"all"},
			FundingMax:            int64Ptr(1000000),
			ApplicationComplexity: intPtr(2),
			Active:                true,
		},
		{
			ID:         "on-retail",
			Name:       "Ontario Retail Support",
			GrantType:  models.GrantTypeGrant,
			Province:   strPtr("Ontario"),
			Industries: []string{"retail"},
			FundingMin: int64Ptr(5000),
			FundingMax: int64Ptr(50000),
			Deadline:   &deadline,
			Active:     true,
		},
		{
			ID:         "qc-tech",
			Name:       "Quebec Tech Accelerator",
			GrantType:  models.GrantTypeGrant,
			Province:   strPtr("Quebec"),
			Industries: []string{"tech"},
			Active:     true,
		},
		{
			ID:         "inactive",
			Name:       "Closed Program",
			GrantType:  models.GrantTypeGrant,
			Industries: []string{"all"},
			Active:     false,
		},
	}
}

func seedCatalog(t *testing.T, svc *Service) {
	for _, program := range testPrograms() {
		if err := svc.CreateProgram(context.Background(), program); err != nil {
			t.Fatalf("Failed to create program %s: %v", program.ID, err)
		}
	}
}

func TestGetMatches_EndToEnd(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db, Options{})
	seedCatalog(t, svc)

	userID := uuid.New().String()
	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)

	profile := models.UserProfile{
		Province:      "Ontario",
		Industries:    []string{"retail"},
		BusinessStage: models.StageStartup,
		FundingNeeded: 20000,
	}
	if err := svc.SaveProfile(context.Background(), userID, profile); err != nil {
		t.Fatalf("Failed to save profile: %v", err)
	}

	resp, err := svc.GetMatches(context.Background(), userID, nil, now)
	if err != nil {
		t.Fatalf("Failed to get matches: %v", err)
	}

	// qc-tech scores 0 and falls under the floor, inactive is filtered out of
	// the catalog query, the two remaining programs survive.
	if resp.Total != 2 {
		t.Fatalf("Expected 2 matches, got %d", resp.Total)
	}
	for _, m := range resp.Matches {
		if m.Program.ID == "qc-tech" || m.Program.ID == "inactive" {
			t.Errorf("Program %s should not appear in results", m.Program.ID)
		}
		if m.Score < 30 {
			t.Errorf("Match %s below viability floor: %d", m.Program.ID, m.Score)
		}
	}

	// on-retail: geography 30 + industry 25 + funding 10 = 65, escalated to
	// high by the Nov 10 deadline. csbf: 30 + 25 + 10 + 5 = 70, medium. The
	// escalated program sorts first despite the lower score.
	if resp.Matches[0].Program.ID != "on-retail" {
		t.Errorf("Expected on-retail first, got %s", resp.Matches[0].Program.ID)
	}
	if resp.Matches[0].Priority != models.PriorityHigh {
		t.Errorf("Expected escalated high priority, got %s", resp.Matches[0].Priority)
	}
}

func TestGetMatches_NoStoredProfileUsesDefaults(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db, Options{})
	seedCatalog(t, svc)

	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	resp, err := svc.GetMatches(context.Background(), uuid.New().String(), nil, now)
	if err != nil {
		t.Fatalf("Failed to get matches for unknown user: %v", err)
	}

	// Defaults are province Ontario, $25k: csbf scores 70, on-retail 65.
	if resp.Total != 2 {
		t.Errorf("Expected 2 matches on defaults, got %d", resp.Total)
	}
}

func TestGetMatches_OverrideTakesPrecedence(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db, Options{})
	seedCatalog(t, svc)

	userID := uuid.New().String()
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	stored := models.UserProfile{
		Province:      "Ontario",
		Industries:    []string{"retail"},
		FundingNeeded: 20000,
	}
	if err := svc.SaveProfile(context.Background(), userID, stored); err != nil {
		t.Fatalf("Failed to save profile: %v", err)
	}

	override := &models.ProfileOverride{
		Province:   strPtr("Quebec"),
		Industries: []string{"tech"},
	}
	resp, err := svc.GetMatches(context.Background(), userID, override, now)
	if err != nil {
		t.Fatalf("Failed to get matches with override: %v", err)
	}

	found := false
	for _, m := range resp.Matches {
		if m.Program.ID == "qc-tech" {
			found = true
		}
		if m.Program.ID == "on-retail" && m.Score >= 55 {
			t.Errorf("Override province should have cost on-retail its geography points, got %d", m.Score)
		}
	}
	if !found {
		t.Error("Expected qc-tech to match after override")
	}
}

func TestGetMatches_InvalidUserID(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db, Options{})

	if _, err := svc.GetMatches(context.Background(), "not-a-uuid", nil, time.Now().UTC()); err == nil {
		t.Error("Expected error for invalid user id")
	}
}

func TestGetMatches_EmptyCatalog(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db, Options{})

	resp, err := svc.GetMatches(context.Background(), uuid.New().String(), nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("Empty catalog should not be an error: %v", err)
	}
	if resp.Total != 0 || len(resp.Matches) != 0 {
		t.Errorf("Expected empty result, got %+v", resp)
	}
}

func TestGetMatches_CachedResponse(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	flags := features.NewManager()
	flags.Register(features.FeatureCacheEnabled, true, "")

	svc := NewService(db, Options{Features: flags})
	seedCatalog(t, svc)

	userID := uuid.New().String()
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	first, err := svc.GetMatches(context.Background(), userID, nil, now)
	if err != nil {
		t.Fatalf("First call failed: %v", err)
	}

	// A program added after the first computation must not appear while the
	// cached response is fresh.
	extra := models.FundingProgram{
		ID:         "late",
		Name:       "Late Arrival Fund",
		GrantType:  models.GrantTypeGrant,
		Industries: []string{"all"},
		Active:     true,
	}
	if err := svc.CreateProgram(context.Background(), extra); err != nil {
		t.Fatalf("Failed to add program: %v", err)
	}

	second, err := svc.GetMatches(context.Background(), userID, nil, now)
	if err != nil {
		t.Fatalf("Second call failed: %v", err)
	}
	if second.Total != first.Total {
		t.Errorf("Expected cached total %d, got %d", first.Total, second.Total)
	}
}

func TestGetTopMatches_Limit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db, Options{})
	seedCatalog(t, svc)

	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	resp, err := svc.GetTopMatches(context.Background(), uuid.New().String(), nil, now, 1)
	if err != nil {
		t.Fatalf("Failed to get top matches: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("Expected 1 match, got %d", resp.Total)
	}
	if resp.View != ViewTop {
		t.Errorf("Expected view %q, got %q", ViewTop, resp.View)
	}
}

func TestGetHighPriorityMatches(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db, Options{})
	seedCatalog(t, svc)

	// Within 30 days of the on-retail deadline, so it escalates to high once
	// the industry points put the score over the escalation threshold.
	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	override := &models.ProfileOverride{Industries: []string{"retail"}}
	resp, err := svc.GetHighPriorityMatches(context.Background(), uuid.New().String(), override, now)
	if err != nil {
		t.Fatalf("Failed to get high priority matches: %v", err)
	}

	if resp.Total != 1 || resp.Matches[0].Program.ID != "on-retail" {
		t.Fatalf("Expected only the escalated program, got %+v", resp.Matches)
	}
}

func TestGetUpcomingDeadlineMatches(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db, Options{})
	seedCatalog(t, svc)

	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	resp, err := svc.GetUpcomingDeadlineMatches(context.Background(), uuid.New().String(), nil, now, 30)
	if err != nil {
		t.Fatalf("Failed to get deadline matches: %v", err)
	}

	if resp.Total != 1 || resp.Matches[0].Program.ID != "on-retail" {
		t.Fatalf("Expected only the deadline-bound program, got %+v", resp.Matches)
	}

	// Outside the window nothing qualifies.
	early := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	resp, err = svc.GetUpcomingDeadlineMatches(context.Background(), uuid.New().String(), nil, early, 30)
	if err != nil {
		t.Fatalf("Failed to get deadline matches: %v", err)
	}
	if resp.Total != 0 {
		t.Errorf("Expected no matches outside the window, got %d", resp.Total)
	}
}

func TestGetUpcomingDeadlineMatches_ConfiguredWindow(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db, Options{DeadlineWindowDays: 120})
	seedCatalog(t, svc)

	// 101 days before the on-retail deadline: outside the stock 30-day
	// window, inside the configured one.
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	resp, err := svc.GetUpcomingDeadlineMatches(context.Background(), uuid.New().String(), nil, now, 0)
	if err != nil {
		t.Fatalf("Failed to get deadline matches: %v", err)
	}
	if resp.Total != 1 || resp.Matches[0].Program.ID != "on-retail" {
		t.Fatalf("Expected the configured window to apply, got %+v", resp.Matches)
	}

	// An explicit days parameter still wins over the configured default.
	resp, err = svc.GetUpcomingDeadlineMatches(context.Background(), uuid.New().String(), nil, now, 30)
	if err != nil {
		t.Fatalf("Failed to get deadline matches: %v", err)
	}
	if resp.Total != 0 {
		t.Errorf("Expected the explicit window to apply, got %d matches", resp.Total)
	}
}

func TestCreateProgram_Invalid(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db, Options{})

	bad := models.FundingProgram{ID: "x", Name: "No Type"}
	if err := svc.CreateProgram(context.Background(), bad); err == nil {
		t.Error("Expected validation error for missing grant type")
	}

	inverted := models.FundingProgram{
		ID:         "y",
		Name:       "Inverted Range",
		GrantType:  models.GrantTypeGrant,
		FundingMin: int64Ptr(10000),
		FundingMax: int64Ptr(5000),
	}
	if err := svc.CreateProgram(context.Background(), inverted); err == nil {
		t.Error("Expected validation error for inverted funding range")
	}
}

func TestSaveProfile_NormalizesExperience(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	svc := NewService(db, Options{})
	userID := uuid.New().String()

	profile := models.UserProfile{
		Province:        "Ontario",
		ExperienceLevel: models.ExperienceLevel("None"),
	}
	if err := svc.SaveProfile(context.Background(), userID, profile); err != nil {
		t.Fatalf("Failed to save profile: %v", err)
	}

	stored, err := db.GetProfile(context.Background(), userID)
	if err != nil {
		t.Fatalf("Failed to load profile: %v", err)
	}
	if stored.ExperienceLevel != models.ExperienceBeginner {
		t.Errorf("Expected normalized beginner, got %q", stored.ExperienceLevel)
	}
}
