package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2"
	"gorm.io/gorm"

	api "xlytics-backend/cmd/api"
	"xlytics-backend/internal/logging"
	syncdomain "xlytics-backend/internal/sync/domain"
	syncRepo "xlytics-backend/internal/sync/repository"
	syncUsecase "xlytics-backend/internal/sync/usecase"
	"xlytics-backend/pkg/config"
	"xlytics-backend/pkg/database"
	"xlytics-backend/pkg/twitter"
)

func main() {
	logging.InitLogger()

	// Load configuration
	cfg := config.Load()

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	switch args[0] {
	case "serve":
		runServer(cfg)
	case "archive":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: xlytics archive <handle> [export-data-dir]")
			os.Exit(1)
		}
		dir := cfg.ArchiveDir
		if len(args) >= 3 {
			dir = args[2]
		}
		if dir == "" {
			fmt.Fprintln(os.Stderr, "archive directory required: pass it as an argument or set ARCHIVE_DIR")
			os.Exit(1)
		}
		os.Exit(runArchive(cfg, args[1], dir))
	default:
		os.Exit(runSync(cfg, args))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  xlytics <handle> [--days N]         sync a subject's posts into the store
  xlytics archive <handle> [dir]      ingest an unpacked archive export
  xlytics serve                       run the HTTP API`)
}

// runSync is the CLI sync entry point: resolve the handle, pull posts from
// the lookback window, exit 0 on success (including nothing new) and 1 when
// the subject or the store is unreachable.
func runSync(cfg *config.Config, args []string) int {
	handle := args[0]

	flags := flag.NewFlagSet("sync", flag.ExitOnError)
	days := flags.Int("days", 30, "lookback window in days")
	if err := flags.Parse(args[1:]); err != nil {
		return 1
	}

	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		return 1
	}
	if err := migrate(db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		return 1
	}

	uc, err := buildUsecase(cfg, db)
	if err != nil {
		slog.Error("failed to build provider", "error", err)
		return 1
	}

	result, err := uc.SyncPosts(context.Background(), handle, *days)
	if errors.Is(err, syncdomain.ErrReauthRequired) {
		slog.Warn("credentials expired, reauthentication required", "handle", handle)
		err = nil
	}
	if err != nil {
		slog.Error("sync failed", "handle", handle, "error", err)
		return 1
	}

	slog.Info("sync complete",
		"handle", result.Subject.Username,
		"subject_id", result.Subject.TwitterID,
		"fetched", result.Fetched,
		"created", result.Created,
		"skipped", result.Skipped,
	)
	return 0
}

func runArchive(cfg *config.Config, handle, dir string) int {
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		return 1
	}
	if err := migrate(db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		return 1
	}

	uc, err := buildUsecase(cfg, db)
	if err != nil {
		slog.Error("failed to build provider", "error", err)
		return 1
	}

	ctx := context.Background()
	subjectID := ""
	if subject, err := uc.ResolveSubject(ctx, handle); subject != nil {
		subjectID = subject.TwitterID
	} else if err != nil {
		slog.Warn("could not resolve handle, relying on archive account data", "handle", handle, "error", err)
	}

	result, err := uc.IngestArchive(ctx, subjectID, dir)
	if err != nil {
		slog.Error("archive ingestion failed", "dir", dir, "error", err)
		return 1
	}

	slog.Info("archive ingested",
		"posts", result.Posts,
		"created", result.PostsCreated,
		"updated", result.PostsUpdated,
		"followers", result.Followers,
		"following", result.Following,
		"likes", result.Likes,
	)
	return 0
}

// runServer starts the HTTP API. An unreachable store is not fatal here: the
// server comes up in live-only mode with no-op repositories.
func runServer(cfg *config.Config) {
	var uc syncUsecase.SyncUsecase

	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		slog.Warn("database unreachable, running in live-only mode", "error", err)
		uc, err = buildLiveOnlyUsecase(cfg)
	} else {
		if err := migrate(db); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		uc, err = buildUsecase(cfg, db)
	}
	if err != nil {
		slog.Error("failed to build provider", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(uc, cfg)

	slog.Info("server starting", "port", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&syncdomain.Subject{},
		&syncdomain.Post{},
		&syncdomain.Connection{},
		&syncdomain.CacheEntry{},
	)
}

func buildUsecase(cfg *config.Config, db *gorm.DB) (syncUsecase.SyncUsecase, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	// Initialize repositories (dependency injection)
	userRepo := syncRepo.NewUserRepository(db)
	postRepo := syncRepo.NewPostRepository(db)
	connRepo := syncRepo.NewConnectionRepository(db)
	cacheRepo := syncRepo.NewCacheRepository(db)

	freshness := syncUsecase.NewFreshness(postRepo, connRepo, cacheRepo, cfg.PostsTTL, cfg.ConnectionsTTL)
	return syncUsecase.NewSyncUsecase(provider, userRepo, postRepo, connRepo, cacheRepo, freshness), nil
}

func buildLiveOnlyUsecase(cfg *config.Config) (syncUsecase.SyncUsecase, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	userRepo := syncRepo.NewNoopUserRepository()
	postRepo := syncRepo.NewNoopPostRepository()
	connRepo := syncRepo.NewNoopConnectionRepository()
	cacheRepo := syncRepo.NewNoopCacheRepository()

	freshness := syncUsecase.NewFreshness(postRepo, connRepo, cacheRepo, cfg.PostsTTL, cfg.ConnectionsTTL)
	return syncUsecase.NewSyncUsecase(provider, userRepo, postRepo, connRepo, cacheRepo, freshness), nil
}

func newProvider(cfg *config.Config) (syncdomain.SocialProvider, error) {
	backend := twitter.BackendRettiwt
	if cfg.TwitterOfficial {
		backend = twitter.BackendOfficial
	}

	return twitter.NewProvider(twitter.Config{
		Backend:      backend,
		ClientID:     cfg.TwitterClientID,
		ClientSecret: cfg.TwitterClientSecret,
		AccessToken:  cfg.TwitterAccessToken,
		RefreshToken: cfg.TwitterRefreshToken,
		OnTokenRefresh: func(token *oauth2.Token) error {
			slog.Info("access token refreshed", "expires", token.Expiry)
			return nil
		},
		ServiceURL: cfg.RettiwtServiceURL,
		Username:   cfg.RettiwtUsername,
		Cookies:    cfg.RettiwtCookies,
	})
}
