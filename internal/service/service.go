package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"grant-match-api/internal/cache"
	"grant-match-api/internal/database"
	"grant-match-api/internal/events"
	"grant-match-api/internal/features"
	"grant-match-api/internal/matcher"
	"grant-match-api/internal/metrics"
	"grant-match-api/internal/models"
	"grant-match-api/internal/tracing"
	"grant-match-api/internal/validation"
)

// Match view names as they appear in responses and metrics labels.
const (
	ViewAll          = "all"
	ViewTop          = "top"
	ViewHighPriority = "high-priority"
	ViewDeadlines    = "deadlines"
)

const defaultCacheTTL = 15 * time.Minute

// Service provides business logic for the grant match API.
type Service struct {
	db           *database.DB
	cache        cache.Cache
	cacheTTL     time.Duration
	events       *events.Manager
	features     *features.Manager
	logger       *zap.Logger
	defaultLimit int
	deadlineDays int
}

// Options configures optional service collaborators. Zero values fall back to
// an in-memory cache, a disabled event manager and a no-op logger.
type Options struct {
	Cache        cache.Cache
	CacheTTL     time.Duration
	Events       *events.Manager
	Features     *features.Manager
	Logger       *zap.Logger
	DefaultLimit int
	// DeadlineWindowDays is the lookahead used by the deadline view when the
	// request does not name one.
	DeadlineWindowDays int
}

// NewService creates a new service instance.
func NewService(db *database.DB, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.NewInMemoryCache()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.Events == nil {
		opts.Events = events.NewManager(false)
	}
	if opts.Features == nil {
		opts.Features = features.NewManager()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 5
	}
	if opts.DeadlineWindowDays <= 0 {
		opts.DeadlineWindowDays = matcher.DefaultDeadlineWindowDays
	}

	return &Service{
		db:           db,
		cache:        opts.Cache,
		cacheTTL:     opts.CacheTTL,
		events:       opts.Events,
		features:     opts.Features,
		logger:       opts.Logger,
		defaultLimit: opts.DefaultLimit,
		deadlineDays: opts.DeadlineWindowDays,
	}
}

// CreateProgram validates and stores a catalog entry.
func (s *Service) CreateProgram(ctx context.Context, program models.FundingProgram) error {
	if err := validation.ValidateProgram(program); err != nil {
		return err
	}

	if err := s.db.UpsertProgram(ctx, program); err != nil {
		return err
	}

	s.logger.Info("program upserted",
		zap.String("program_id", program.ID),
		zap.String("grant_type", string(program.GrantType)),
	)
	s.events.PublishProgramCreated(ctx, program)

	return nil
}

// SaveProfile validates and stores a user's wizard answers. The experience
// answer is normalized to the closed enum on the way in.
func (s *Service) SaveProfile(ctx context.Context, userID string, profile models.UserProfile) error {
	if err := validation.ValidateUUID(userID, "user_id"); err != nil {
		return err
	}
	if err := validation.ValidateProfile(profile); err != nil {
		return err
	}

	profile.ExperienceLevel = matcher.NormalizeExperience(string(profile.ExperienceLevel))

	if err := s.db.UpsertProfile(ctx, userID, profile); err != nil {
		return err
	}

	s.logger.Info("profile saved", zap.String("user_id", userID))
	s.events.PublishProfileSaved(ctx, userID)

	return nil
}

// GetMatches returns the full ranked match list for a user. When no override
// is supplied the result is served from cache for the rest of the day's TTL.
func (s *Service) GetMatches(ctx context.Context, userID string, override *models.ProfileOverride, now time.Time) (models.MatchesResponse, error) {
	ctx, span := tracing.GetTracer().StartSpan(ctx, "service.GetMatches")
	defer span.End()

	if err := validation.ValidateUUID(userID, "user_id"); err != nil {
		return models.MatchesResponse{}, err
	}

	cacheKey := ""
	if s.features.IsEnabled(features.FeatureCacheEnabled) {
		overrideJSON, _ := json.Marshal(override)
		cacheKey = cache.MatchKey(userID, ViewAll, overrideJSON, now.Format("2006-01-02"))

		var cached models.MatchesResponse
		if err := cache.GetJSON(ctx, s.cache, cacheKey, &cached); err == nil {
			metrics.CacheHits.Inc()
			return cached, nil
		}
		metrics.CacheMisses.Inc()
	}

	catalog, profile, err := s.loadInputs(ctx, userID, override)
	if err != nil {
		return models.MatchesResponse{}, err
	}

	matches := matcher.MatchCatalog(catalog, profile, now)
	resp := s.buildResponse(ctx, userID, ViewAll, matches, now)

	if cacheKey != "" {
		if err := cache.SetJSON(ctx, s.cache, cacheKey, resp, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache match response", zap.String("user_id", userID), zap.Error(err))
		}
	}

	return resp, nil
}

// GetTopMatches returns the first limit entries of the ranked list. A limit
// of zero falls back to the configured default; the caller can not request an
// unbounded view through this operation.
func (s *Service) GetTopMatches(ctx context.Context, userID string, override *models.ProfileOverride, now time.Time, limit int) (models.MatchesResponse, error) {
	if err := validation.ValidateUUID(userID, "user_id"); err != nil {
		return models.MatchesResponse{}, err
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}

	catalog, profile, err := s.loadInputs(ctx, userID, override)
	if err != nil {
		return models.MatchesResponse{}, err
	}

	matches := matcher.TopRecommendations(catalog, profile, now, limit)
	return s.buildResponse(ctx, userID, ViewTop, matches, now), nil
}

// GetHighPriorityMatches returns only the high tier of the ranked list.
func (s *Service) GetHighPriorityMatches(ctx context.Context, userID string, override *models.ProfileOverride, now time.Time) (models.MatchesResponse, error) {
	if err := validation.ValidateUUID(userID, "user_id"); err != nil {
		return models.MatchesResponse{}, err
	}

	catalog, profile, err := s.loadInputs(ctx, userID, override)
	if err != nil {
		return models.MatchesResponse{}, err
	}

	matches := matcher.HighPriorityMatches(catalog, profile, now)
	return s.buildResponse(ctx, userID, ViewHighPriority, matches, now), nil
}

// GetUpcomingDeadlineMatches returns matches with deadlines inside the window,
// soonest first.
func (s *Service) GetUpcomingDeadlineMatches(ctx context.Context, userID string, override *models.ProfileOverride, now time.Time, daysAhead int) (models.MatchesResponse, error) {
	if err := validation.ValidateUUID(userID, "user_id"); err != nil {
		return models.MatchesResponse{}, err
	}

	catalog, profile, err := s.loadInputs(ctx, userID, override)
	if err != nil {
		return models.MatchesResponse{}, err
	}

	if daysAhead <= 0 {
		daysAhead = s.deadlineDays
	}

	matches := matcher.UpcomingDeadlineMatches(catalog, profile, now, daysAhead)
	return s.buildResponse(ctx, userID, ViewDeadlines, matches, now), nil
}

// loadInputs fetches the active catalog and resolves the request profile from
// stored answers, the override and defaults. A user with no stored profile is
// matched against defaults, never rejected.
func (s *Service) loadInputs(ctx context.Context, userID string, override *models.ProfileOverride) ([]models.FundingProgram, models.UserProfile, error) {
	stored, err := s.db.GetProfile(ctx, userID)
	if err != nil {
		return nil, models.UserProfile{}, fmt.Errorf("failed to load profile: %w", err)
	}

	catalog, err := s.db.GetActivePrograms(ctx)
	if err != nil {
		return nil, models.UserProfile{}, fmt.Errorf("failed to load catalog: %w", err)
	}

	return catalog, matcher.MergeProfile(stored, override), nil
}

func (s *Service) buildResponse(ctx context.Context, userID, view string, matches []models.GrantMatch, now time.Time) models.MatchesResponse {
	metrics.MatchesComputed.WithLabelValues(view).Inc()
	for _, m := range matches {
		metrics.MatchScores.Observe(float64(m.Score))
	}

	if s.features.IsEnabled(features.FeatureEventHooksEnabled) {
		s.events.PublishMatchesComputed(ctx, userID, view, matches)
	}

	if matches == nil {
		matches = []models.GrantMatch{}
	}

	return models.MatchesResponse{
		UserID:      userID,
		View:        view,
		Matches:     matches,
		Total:       len(matches),
		GeneratedAt: now,
	}
}
