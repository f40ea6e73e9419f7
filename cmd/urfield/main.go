// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/hkdf"

	"github.com/olegiv/urfield-go/internal/auth"
	"github.com/olegiv/urfield-go/internal/cms"
	"github.com/olegiv/urfield-go/internal/cms/sanity"
	"github.com/olegiv/urfield-go/internal/config"
	"github.com/olegiv/urfield-go/internal/handler"
	"github.com/olegiv/urfield-go/internal/logging"
	"github.com/olegiv/urfield-go/internal/media"
	"github.com/olegiv/urfield-go/internal/middleware"
	"github.com/olegiv/urfield-go/internal/scheduler"
	"github.com/olegiv/urfield-go/internal/service"
	"github.com/olegiv/urfield-go/internal/session"
	"github.com/olegiv/urfield-go/internal/store"
	"github.com/olegiv/urfield-go/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "URField Lab API\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  %s [options] [serve]\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "  %s [options] import -year <id> -file <authors.json>\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  URFIELD_SESSION_SECRET    Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  URFIELD_DB_PATH           SQLite database path (default: ./data/urfield.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  URFIELD_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  URFIELD_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  URFIELD_CMS_BACKEND       Content backend: local|sanity (default: local)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  URFIELD_SANITY_PROJECT_ID Sanity project id (sanity backend)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  URFIELD_SANITY_TOKEN      Sanity API token with write access\n")
		_, _ = fmt.Fprintf(os.Stderr, "  URFIELD_DO_SEED           Seed a year and an admin author into an empty local store\n")
		_, _ = fmt.Fprintf(os.Stderr, "  URFIELD_REDIS_URL         Redis URL for shared login lockouts (optional)\n")
	}

	flag.Parse()

	if *showVersion {
		_, _ = fmt.Println(version.Get().String())
		os.Exit(0)
	}

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "", "serve":
		err = run()
	case "import":
		err = runImport(flag.Args()[1:])
	default:
		flag.Usage()
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// app holds the dependencies shared by the commands.
type app struct {
	cfg    *config.Config
	db     *sql.DB
	logger *slog.Logger

	repo     cms.Repository
	uploader cms.Uploader
	queue    scheduler.QueueCounter
	// local is nil when assets are stored in Sanity.
	local *media.Local
}

func setup() (*app, error) {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevelValue()}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevelValue()})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)

	a := &app{cfg: cfg, db: db, logger: logger}

	if cfg.UseSanity() {
		client, err := sanity.New(sanity.Config{
			ProjectID:  cfg.SanityProjectID,
			Dataset:    cfg.SanityDataset,
			APIVersion: cfg.SanityAPIVersion,
			Token:      cfg.SanityToken,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("creating sanity client: %w", err)
		}
		a.repo = client
		a.uploader = client
		a.queue = scheduler.PendingCounts{Repo: client}
		slog.Info("content backend ready", "backend", config.BackendSanity, "project", cfg.SanityProjectID, "dataset", cfg.SanityDataset)
		return a, nil
	}

	docs := store.NewDocumentStore(db)
	if cfg.DoSeed {
		if err := store.Seed(context.Background(), docs); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seeding database: %w", err)
		}
	}
	a.local = media.NewLocal(media.Config{
		Dir:       cfg.UploadsDir,
		PublicURL: cfg.PublicURL,
		MaxSize:   cfg.MaxUploadBytes(),
	}, docs)
	a.repo = docs
	a.uploader = a.local
	a.queue = docs
	slog.Info("content backend ready", "backend", config.BackendLocal, "uploads", cfg.UploadsDir)
	return a, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database connection", "error", err)
	}
}

func run() error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	sessionManager := session.New(a.db, cfg.IsDevelopment())
	sessions := session.NewStore(sessionManager)
	events := service.NewEventService(a.db)
	hasher := auth.NewHasher()

	authService := service.NewAuthService(a.repo, a.uploader, sessions, hasher, a.logger)
	articleService := service.NewArticleService(a.repo, a.uploader, sessions, service.NewReferenceValidator(a.repo), a.logger)
	articleService.SetUploadConcurrency(cfg.UploadConcurrency)
	verifyService := service.NewVerifyService(a.repo, sessions, a.logger)

	protectionCfg := middleware.DefaultLoginProtectionConfig()
	if cfg.UseRedis() {
		attempts, err := middleware.NewRedisAttemptStore(context.Background(), cfg.RedisURL, "")
		if err != nil {
			slog.Warn("redis unavailable, using in-memory login lockouts", "error", err)
		} else {
			defer func() { _ = attempts.Close() }()
			protectionCfg.Store = attempts
			slog.Info("login lockouts shared through redis")
		}
	}
	protection := middleware.NewLoginProtection(protectionCfg)
	defer protection.Close()

	csrfKey, err := deriveKey(cfg.SessionSecret, "urfield csrf")
	if err != nil {
		return fmt.Errorf("deriving csrf key: %w", err)
	}

	maxUpload := cfg.MaxUploadBytes()
	routerCfg := handler.RouterConfig{
		Auth:            handler.NewAuthHandler(authService, events, protection, maxUpload, a.logger),
		Articles:        handler.NewArticlesHandler(articleService, authService, events, maxUpload, a.logger),
		Verify:          handler.NewVerifyHandler(verifyService, authService, events, a.logger),
		Sessions:        sessionManager,
		LoginProtection: protection,
		RateLimiter:     middleware.NewRateLimiter(10, 20),
		CSRF:            middleware.DefaultCSRFConfig(csrfKey, cfg.IsDevelopment(), cfg.TrustedOrigins...),
		IsDevelopment:   cfg.IsDevelopment(),
	}
	if a.local != nil {
		routerCfg.Uploads = a.local.FileServer()
		routerCfg.Health = handler.NewHealthHandler(a.db, cfg.UploadsDir, version.Get())
	} else {
		routerCfg.Health = handler.NewHealthHandler(a.db, "", version.Get())
	}

	sched := scheduler.New(a.queue, events, scheduler.Config{
		DigestSchedule: cfg.DigestSchedule,
		EventRetention: cfg.EventRetention(),
	}, a.logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           handler.NewRouter(routerCfg),
		ReadTimeout:       2 * time.Minute, // Multipart uploads
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", version.Get().Version)
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

// runImport creates verified authors from a JSON list and prints one result
// per author.
func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	yearID := fs.String("year", "", "Year document id the authors belong to")
	file := fs.String("file", "", "JSON file with the author list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *yearID == "" || *file == "" {
		fs.Usage()
		return errors.New("import requires -year and -file")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("reading author list: %w", err)
	}
	var list []service.ImportAuthor
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parsing author list: %w", err)
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	importer := service.NewImporter(a.repo, a.uploader, service.NewEventService(a.db), service.ImporterConfig{
		PasswordHash:   a.cfg.ImportPasswordHash,
		DefaultPicture: a.cfg.DefaultPicture,
	}, a.logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := importer.ImportAuthors(ctx, *yearID, list)
	if err != nil {
		return fmt.Errorf("importing authors: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// deriveKey derives a 32-byte key for purpose from the session secret.
func deriveKey(secret, purpose string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose)), key); err != nil {
		return nil, err
	}
	return key, nil
}
