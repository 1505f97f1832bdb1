package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"ltgsite/internal/admin"
	"ltgsite/internal/api"
	"ltgsite/internal/auth"
	"ltgsite/internal/backend"
	"ltgsite/internal/config"
	"ltgsite/internal/database"
	"ltgsite/internal/drafts"
	"ltgsite/internal/intake"
	"ltgsite/internal/jobs"
	"ltgsite/internal/storage"
)

const loginRateKeyPrefix = "rate:login:"

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := backend.NewProviderFromConfig(cfg)
	repo := jobs.NewRepository(provider, cfg.Backend.Table, logger)

	var redisClient *redis.Client
	if cfg.Drafts.Driver == "redis" || cfg.Intake.RateLimitPerHour > 0 {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("close redis client failed", slog.Any("error", err))
			}
		}()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("ping redis: %v", err)
		}
	}

	draftStore, cleaner, err := openDrafts(cfg, redisClient, logger)
	if err != nil {
		log.Fatalf("init drafts: %v", err)
	}
	if cleaner != nil {
		if err := cleaner.Start(ctx); err != nil {
			log.Fatalf("start draft cleanup: %v", err)
		}
		defer cleaner.Stop()
	}

	sessions := admin.NewSessions(repo, draftStore, cfg.Drafts.SessionIdle, admin.Options{
		Debounce: cfg.Drafts.Debounce,
		Logger:   logger,
	})
	defer sessions.CloseAll()

	authService, err := auth.NewAuthService(
		backend.Credentials{URL: cfg.Backend.URL, Key: cfg.Backend.AnonKey},
		cfg.Backend.JWTSecret,
	)
	if err != nil {
		log.Fatalf("init auth: %v", err)
	}

	intakeService := newIntakeService(cfg, redisClient, logger)

	var loginLimiter api.LoginLimiter
	if redisClient != nil {
		loginLimiter = intake.NewRedisLimiter(redisClient, loginRateKeyPrefix, cfg.Intake.RateLimitPerHour)
	}

	router := api.NewRouter(api.RouterOptions{
		Server:         "api",
		Logger:         logger,
		AllowedOrigins: cfg.API.AllowedOrigins,
		StaticDir:      cfg.API.StaticDir,
	})
	api.RegisterRoutes(router, api.Deps{
		Jobs:         repo,
		Intake:       intakeService,
		Auth:         authService,
		Tokens:       authService,
		Sessions:     sessions,
		LoginLimiter: loginLimiter,
		Logger:       logger,
		MaxBody:      int64(cfg.Intake.MaxFiles+1) * cfg.Intake.MaxFileBytes,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listening", slog.String("addr", srv.Addr), slog.String("backend", cfg.Backend.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down api")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", slog.Any("error", err))
	}
}

// openDrafts returns the draft store for cfg.Drafts.Driver and, for stores
// that do not expire entries themselves, a cleanup scheduler.
func openDrafts(cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) (drafts.Store, *drafts.Cleaner, error) {
	switch cfg.Drafts.Driver {
	case "redis":
		return drafts.NewRedisStore(redisClient, cfg.Drafts.TTL), nil, nil
	case "postgres":
		db, err := database.InitDatabase(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store, err := drafts.NewPostgresStore(db, cfg.Drafts.TTL)
		if err != nil {
			return nil, nil, err
		}
		return store, drafts.NewCleaner(store, cfg.Drafts.TTL, cfg.Drafts.CleanupSpec, logger), nil
	default:
		store := drafts.NewMemoryStore(cfg.Drafts.TTL)
		return store, drafts.NewCleaner(store, cfg.Drafts.TTL, cfg.Drafts.CleanupSpec, logger), nil
	}
}

// newIntakeService wires the public form. Without object storage the form
// still accepts contact requests; quote requests with files fail with a
// configuration error.
func newIntakeService(cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) *intake.Service {
	var uploader intake.Uploader
	if cfg.Storage.Endpoint != "" {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logger.Error("storage unavailable, uploads disabled", slog.Any("error", err))
		} else {
			uploader = client
			logger.Info("storage client ready", slog.String("bucket", cfg.Storage.Bucket))
		}
	}

	var scanner storage.Scanner
	if s := storage.NewClamdScanner(cfg.Intake.ClamdAddr); s != nil {
		scanner = s
	}

	var limiter intake.Limiter
	if redisClient != nil && cfg.Intake.RateLimitPerHour > 0 {
		limiter = intake.NewRedisLimiter(redisClient, intake.RateKeyPrefix, cfg.Intake.RateLimitPerHour)
	}

	var sender intake.Sender
	if cfg.Backend.AnonKey != "" {
		sender = intake.NewFunctionClient(cfg.Backend.FunctionURL(intake.FunctionName), cfg.Backend.AnonKey, cfg.Backend.RequestTimeout)
	}

	return intake.NewService(uploader, sender, intake.Options{
		Scanner:      scanner,
		Limiter:      limiter,
		MaxFiles:     cfg.Intake.MaxFiles,
		MaxFileBytes: cfg.Intake.MaxFileBytes,
		Source:       cfg.Intake.Source,
		Logger:       logger,
	})
}
