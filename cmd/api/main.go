package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"grant-match-api/internal/cache"
	"grant-match-api/internal/config"
	"grant-match-api/internal/database"
	"grant-match-api/internal/events"
	"grant-match-api/internal/features"
	"grant-match-api/internal/handler"
	"grant-match-api/internal/logger"
	"grant-match-api/internal/middleware"
	"grant-match-api/internal/service"
	"grant-match-api/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	}); err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	var matchCache cache.Cache
	if cfg.Cache.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.Password, cfg.Cache.DB)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisCache.Close()
		matchCache = redisCache
		log.Info("using redis match cache", zap.String("addr", cfg.Cache.RedisAddr))
	} else {
		matchCache = cache.NewInMemoryCache()
		log.Info("using in-memory match cache")
	}

	flags := features.NewManager()
	flags.Register(features.FeatureCacheEnabled, cfg.Cache.Enabled, "Cache match responses per user and day")
	flags.Register(features.FeatureEventHooksEnabled, true, "Publish in-process events for catalog and match activity")
	flags.Register(features.FeatureDeadlineReminders, false, "Deadline reminder emails (not yet launched)")

	eventManager := events.NewManager(flags.IsEnabled(features.FeatureEventHooksEnabled))
	defer eventManager.Shutdown()
	eventManager.Subscribe(events.EventMatchesComputed, func(ctx context.Context, e events.Event) error {
		if data, ok := e.Data.(events.MatchesComputedData); ok {
			log.Debug("matches computed",
				zap.String("user_id", data.UserID),
				zap.String("view", data.View),
				zap.Int("count", data.MatchCount),
				zap.Int("top_score", data.TopScore),
			)
		}
		return nil
	})

	svc := service.NewService(db, service.Options{
		Cache:              matchCache,
		CacheTTL:           time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		Events:             eventManager,
		Features:           flags,
		Logger:             log,
		DefaultLimit:       cfg.Matching.DefaultLimit,
		DeadlineWindowDays: cfg.Matching.DeadlineWindowDays,
	})

	h := handler.NewHandlerWithOptions(svc, handler.Options{
		MaxBodySize: cfg.Server.MaxRequestBodySize,
	})

	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.Server.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.TracingMiddleware())
	r.Use(middleware.MetricsMiddleware())

	// Routes
	r.Route("/programs", func(r chi.Router) {
		r.Post("/", h.CreateProgram)
	})

	r.Route("/users", func(r chi.Router) {
		r.Put("/{user_id}/profile", h.SaveProfile)
		r.Get("/{user_id}/matches", h.GetMatches)
		r.Post("/{user_id}/matches", h.ComputeMatches)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("error shutting down server", zap.Error(err))
		}
		if err := tracing.Shutdown(ctx); err != nil {
			log.Error("error shutting down tracing", zap.Error(err))
		}
	}()

	log.Info("starting server",
		zap.String("addr", addr),
		zap.String("database", cfg.Database.Path),
		zap.String("environment", cfg.App.Environment),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server failed", zap.Error(err))
	}
}
