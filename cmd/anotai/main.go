// Copyright (c) 2026 Antonio Anerao
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/antonioanerao/anotai/internal/auth"
	"github.com/antonioanerao/anotai/internal/cache"
	"github.com/antonioanerao/anotai/internal/captcha"
	"github.com/antonioanerao/anotai/internal/config"
	"github.com/antonioanerao/anotai/internal/handler/api"
	"github.com/antonioanerao/anotai/internal/logging"
	"github.com/antonioanerao/anotai/internal/middleware"
	"github.com/antonioanerao/anotai/internal/scheduler"
	"github.com/antonioanerao/anotai/internal/service"
	"github.com/antonioanerao/anotai/internal/session"
	"github.com/antonioanerao/anotai/internal/settings"
	"github.com/antonioanerao/anotai/internal/signup"
	"github.com/antonioanerao/anotai/internal/store"
	"github.com/antonioanerao/anotai/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func buildInfo() version.Info {
	return version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "anotai - shared text pads\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ANOTAI_SESSION_SECRET       Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ANOTAI_DB_PATH              SQLite database path (default: ./data/anotai.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ANOTAI_SERVER_PORT          Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ANOTAI_ENV                  Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ANOTAI_PRIMARY_ADMIN_EMAIL  Email always granted the admin role\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ANOTAI_RECAPTCHA_SITE_KEY   reCAPTCHA v3 site key\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ANOTAI_RECAPTCHA_SECRET_KEY reCAPTCHA v3 secret key\n")
		_, _ = fmt.Fprintf(os.Stderr, "  ANOTAI_REDIS_URL            Redis URL for distributed caching (optional)\n")
	}

	flag.Parse()

	if *showVersion {
		_, _ = fmt.Printf("anotai %s\n", buildInfo())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	eventLogHandler := logging.NewEventLogHandler(textHandler, db)
	logger = slog.New(eventLogHandler)
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	// Session manager backed by the sessions table
	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Settings cache: Redis when configured, in-memory otherwise
	settingsCache, err := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: time.Duration(cfg.CacheTTL) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = settingsCache.Close() }()
	if cfg.UseRedisCache() {
		slog.Info("cache initialized", "backend", "redis", "url", cfg.RedisURL)
	} else {
		slog.Info("cache initialized", "backend", "memory")
	}

	settingsGateway := settings.NewGateway(db, settingsCache)

	// Captcha verifier; outside production or without keys it passes
	// tokens through and logs the relaxation.
	verifier := captcha.New(captcha.Config{
		SecretKey:   cfg.RecaptchaSecretKey,
		SiteKey:     cfg.RecaptchaSiteKey,
		Required:    cfg.CaptchaRequired(),
		MinScore:    cfg.RecaptchaMinScore,
		Development: cfg.IsDevelopment(),
	})

	signupService := signup.NewService(db, verifier, auth.HashPassword, cfg.PrimaryAdminEmail)
	accountService := service.NewAccountService(db, cfg.PrimaryAdminEmail)
	eventService := service.NewEventService(db)

	// Start the stale-pad prune job
	sched := scheduler.New(db, logger, cfg.PrunePadsAfterDays)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// Login protection: IP rate limit on login POSTs plus account lockout
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	slog.Info("login protection initialized",
		"ip_rate_limit", "0.5 req/s",
		"max_failed_attempts", 5,
		"lockout_duration", "15m",
	)

	// Public rate limiter for auth routes (defense-in-depth)
	publicRateLimiter := middleware.NewGlobalRateLimiter(10.0, 20)

	apiHandler := api.NewHandler(api.Deps{
		DB:       db,
		Sessions: sessionManager,
		Settings: settingsGateway,
		Signup:   signupService,
		Accounts: accountService,
		Events:   eventService,
		Verifier: verifier,
		Login:    loginProtection,
	})

	// Create router
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(sessionManager.LoadAndSave)

	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment()))
	slog.Info("CSRF protection initialized", "secure", !cfg.IsDevelopment())

	r.Get("/health", apiHandler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(csrfMiddleware)

		// Public routes with rate limiting on the auth surface
		r.Group(func(r chi.Router) {
			r.Use(publicRateLimiter.Middleware())
			r.Post("/signup", apiHandler.Signup)
			r.With(loginProtection.Middleware()).Post("/login", apiHandler.Login)
			r.Post("/logout", apiHandler.Logout)
		})

		r.Get("/settings/public", apiHandler.PublicSettings)

		// Pad routes; reads are public, writes are decided per pad
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalLoadUser(sessionManager, db))
			r.Post("/pads", apiHandler.CreatePad)
			r.Get("/pads/{slug}", apiHandler.GetPad)
			r.Patch("/pads/{slug}", apiHandler.UpdatePad)
			r.Delete("/pads/{slug}", apiHandler.DeletePad)
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(sessionManager))
			r.Use(middleware.LoadUser(sessionManager, db))
			r.Get("/me", apiHandler.Me)
			r.Get("/my/pads", apiHandler.MyPads)
			r.Patch("/account/password", apiHandler.ChangePassword)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(sessionManager))
			r.Use(middleware.LoadUser(sessionManager, db))
			r.Use(middleware.RequireAdminWithEventLog(eventService))
			r.Get("/users", apiHandler.AdminListUsers)
			r.Post("/users", apiHandler.AdminCreateUser)
			r.Get("/pads", apiHandler.AdminListPads)
			r.Delete("/pads/{id}", apiHandler.AdminDeletePad)
			r.Get("/settings", apiHandler.AdminGetSettings)
			r.Patch("/settings", apiHandler.AdminUpdateSettings)
			r.Get("/events", apiHandler.AdminListEvents)
		})
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
