package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"grant-match-api/internal/models"
)

// DB wraps the database connection and provides access to the funding
// catalog and saved wizard profiles.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS programs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			grant_type TEXT NOT NULL,
			province TEXT,
			industries TEXT NOT NULL DEFAULT '[]',
			funding_min INTEGER,
			funding_max INTEGER,
			deadline TEXT,
			newcomer_eligible INTEGER,
			side_hustle_eligible INTEGER,
			age_restrictions TEXT,
			application_complexity INTEGER,
			approval_time_weeks INTEGER,
			active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			province TEXT NOT NULL,
			age INTEGER,
			is_newcomer INTEGER NOT NULL DEFAULT 0,
			years_in_canada INTEGER,
			industries TEXT NOT NULL DEFAULT '[]',
			business_stage TEXT NOT NULL DEFAULT 'idea',
			funding_needed INTEGER NOT NULL DEFAULT 0,
			is_side_hustle INTEGER NOT NULL DEFAULT 0,
			experience_level TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_programs_active ON programs(active)`,
		`CREATE INDEX IF NOT EXISTS idx_programs_province ON programs(province)`,
		`CREATE INDEX IF NOT EXISTS idx_programs_deadline ON programs(deadline)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// UpsertProgram creates or updates a catalog entry.
func (db *DB) UpsertProgram(ctx context.Context, program models.FundingProgram) error {
	query := `INSERT INTO programs (
		id, name, description, url, grant_type, province, industries,
		funding_min, funding_max, deadline, newcomer_eligible,
		side_hustle_eligible, age_restrictions, application_complexity,
		approval_time_weeks, active, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		description = excluded.description,
		url = excluded.url,
		grant_type = excluded.grant_type,
		province = excluded.province,
		industries = excluded.industries,
		funding_min = excluded.funding_min,
		funding_max = excluded.funding_max,
		deadline = excluded.deadline,
		newcomer_eligible = excluded.newcomer_eligible,
		side_hustle_eligible = excluded.side_hustle_eligible,
		age_restrictions = excluded.age_restrictions,
		application_complexity = excluded.application_complexity,
		approval_time_weeks = excluded.approval_time_weeks,
		active = excluded.active,
		updated_at = excluded.updated_at`

	_, err := db.conn.ExecContext(
		ctx,
		query,
		program.ID,
		program.Name,
		program.Description,
		program.URL,
		string(program.GrantType),
		program.Province,
		serializeTags(program.Industries),
		program.FundingMin,
		program.FundingMax,
		timeToNullString(program.Deadline),
		boolToNullInt(program.NewcomerEligible),
		boolToNullInt(program.SideHustleEligible),
		program.AgeRestrictions,
		program.ApplicationComplexity,
		program.ApprovalTimeWeeks,
		program.Active,
		time.Now().UTC().Format(time.RFC3339),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert program: %w", err)
	}

	return nil
}

// GetActivePrograms returns every catalog entry flagged active. The matcher
// treats the returned list as the already-filtered catalog and does no
// activity filtering of its own.
func (db *DB) GetActivePrograms(ctx context.Context) ([]models.FundingProgram, error) {
	query := `SELECT id, name, description, url, grant_type, province,
		industries, funding_min, funding_max, deadline, newcomer_eligible,
		side_hustle_eligible, age_restrictions, application_complexity,
		approval_time_weeks, active
		FROM programs
		WHERE active = 1`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active programs: %w", err)
	}
	defer rows.Close()

	var programs []models.FundingProgram
	for rows.Next() {
		program, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, program)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating programs: %w", err)
	}

	return programs, nil
}

// GetProgram returns a single catalog entry, or nil when the id is unknown.
func (db *DB) GetProgram(ctx context.Context, id string) (*models.FundingProgram, error) {
	query := `SELECT id, name, description, url, grant_type, province,
		industries, funding_min, funding_max, deadline, newcomer_eligible,
		side_hustle_eligible, age_restrictions, application_complexity,
		approval_time_weeks, active
		FROM programs WHERE id = ?`

	row := db.conn.QueryRowContext(ctx, query, id)
	program, err := scanProgram(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &program, nil
}

// UpsertProfile stores or replaces a user's wizard answers.
func (db *DB) UpsertProfile(ctx context.Context, userID string, profile models.UserProfile) error {
	query := `INSERT INTO profiles (
		user_id, province, age, is_newcomer, years_in_canada, industries,
		business_stage, funding_needed, is_side_hustle, experience_level,
		updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		province = excluded.province,
		age = excluded.age,
		is_newcomer = excluded.is_newcomer,
		years_in_canada = excluded.years_in_canada,
		industries = excluded.industries,
		business_stage = excluded.business_stage,
		funding_needed = excluded.funding_needed,
		is_side_hustle = excluded.is_side_hustle,
		experience_level = excluded.experience_level,
		updated_at = excluded.updated_at`

	_, err := db.conn.ExecContext(
		ctx,
		query,
		userID,
		profile.Province,
		profile.Age,
		profile.IsNewcomer,
		profile.YearsInCanada,
		serializeTags(profile.Industries),
		string(profile.BusinessStage),
		profile.FundingNeeded,
		profile.IsSideHustle,
		string(profile.ExperienceLevel),
		time.Now().UTC().Format(time.RFC3339),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

// GetProfile loads a stored profile. A missing profile returns (nil, nil):
// matching then runs against defaults, it is not an error.
func (db *DB) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `SELECT province, age, is_newcomer, years_in_canada, industries,
		business_stage, funding_needed, is_side_hustle, experience_level
		FROM profiles WHERE user_id = ?`

	var (
		profile       models.UserProfile
		age           sql.NullInt64
		yearsInCanada sql.NullInt64
		industriesRaw string
		stage         string
		experience    string
	)

	err := db.conn.QueryRowContext(ctx, query, userID).Scan(
		&profile.Province,
		&age,
		&profile.IsNewcomer,
		&yearsInCanada,
		&industriesRaw,
		&stage,
		&profile.FundingNeeded,
		&profile.IsSideHustle,
		&experience,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if age.Valid {
		v := int(age.Int64)
		profile.Age = &v
	}
	if yearsInCanada.Valid {
		v := int(yearsInCanada.Int64)
		profile.YearsInCanada = &v
	}
	profile.Industries = deserializeTags(industriesRaw)
	profile.BusinessStage = models.BusinessStage(stage)
	profile.ExperienceLevel = models.ExperienceLevel(experience)

	return &profile, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProgram(row rowScanner) (models.FundingProgram, error) {
	var (
		program       models.FundingProgram
		province      sql.NullString
		industriesRaw string
		fundingMin    sql.NullInt64
		fundingMax    sql.NullInt64
		deadline      sql.NullString
		newcomer      sql.NullInt64
		sideHustle    sql.NullInt64
		ageText       sql.NullString
		complexity    sql.NullInt64
		approvalWeeks sql.NullInt64
		grantType     string
	)

	err := row.Scan(
		&program.ID,
		&program.Name,
		&program.Description,
		&program.URL,
		&grantType,
		&province,
		&industriesRaw,
		&fundingMin,
		&fundingMax,
		&deadline,
		&newcomer,
		&sideHustle,
		&ageText,
		&complexity,
		&approvalWeeks,
		&program.Active,
	)
	if err == sql.ErrNoRows {
		return models.FundingProgram{}, err
	}
	if err != nil {
		return models.FundingProgram{}, fmt.Errorf("failed to scan program: %w", err)
	}

	program.GrantType = models.GrantType(grantType)
	program.Industries = deserializeTags(industriesRaw)
	if province.Valid {
		v := province.String
		program.Province = &v
	}
	if fundingMin.Valid {
		v := fundingMin.Int64
		program.FundingMin = &v
	}
	if fundingMax.Valid {
		v := fundingMax.Int64
		program.FundingMax = &v
	}
	if deadline.Valid && deadline.String != "" {
		t, err := time.Parse(time.RFC3339, deadline.String)
		if err != nil {
			return models.FundingProgram{}, fmt.Errorf("failed to parse deadline: %w", err)
		}
		program.Deadline = &t
	}
	if newcomer.Valid {
		v := newcomer.Int64 != 0
		program.NewcomerEligible = &v
	}
	if sideHustle.Valid {
		v := sideHustle.Int64 != 0
		program.SideHustleEligible = &v
	}
	if ageText.Valid {
		v := ageText.String
		program.AgeRestrictions = &v
	}
	if complexity.Valid {
		v := int(complexity.Int64)
		program.ApplicationComplexity = &v
	}
	if approvalWeeks.Valid {
		v := int(approvalWeeks.Int64)
		program.ApprovalTimeWeeks = &v
	}

	return program, nil
}

func timeToNullString(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func boolToNullInt(b *bool) interface{} {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}

// serializeTags stores a tag list as a JSON array in a TEXT column.
func serializeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	data, err := json.Marshal(tags)
	if err != nil {
		// Fallback to comma-separated if JSON fails
		return strings.Join(tags, ",")
	}
	return string(data)
}

func deserializeTags(serialized string) []string {
	if serialized == "" || serialized == "[]" {
		return []string{}
	}

	var result []string
	if err := json.Unmarshal([]byte(serialized), &result); err == nil {
		return result
	}

	// Fallback to comma-separated format for backward compatibility
	return strings.Split(serialized, ",")
}
