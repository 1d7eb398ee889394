package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adapthttp "travelstory/internal/adapter/http"
	"travelstory/internal/adapter/memory"
	"travelstory/internal/adapter/postgres"
	"travelstory/internal/adapter/s3media"
	"travelstory/internal/app"
	"travelstory/internal/config"
	"travelstory/internal/domain"
	"travelstory/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New("travelstory", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	var (
		users   domain.UserRepository
		stories domain.StoryRepository
		ping    func(context.Context) error
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db open: %w", err)
		}
		defer func() { _ = db.Close() }()
		users, stories, ping = db, db, db.Ping
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		db := memory.New()
		users, stories = db, db
	}

	var (
		host         domain.MediaHost
		mediaHandler http.Handler
	)
	if cfg.S3.Bucket != "" {
		s3host, err := s3media.New(ctx, s3media.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PublicURL: cfg.S3.PublicURL,
			Folder:    cfg.S3.Folder,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return fmt.Errorf("media host: %w", err)
		}
		host = s3host
	} else {
		log.Warn("S3_BUCKET not set, hosting media in memory")
		local := memory.NewMediaHost("/media")
		host, mediaHandler = local, local
	}

	limiter := adapthttp.NewMemoryRateLimiter()
	if cfg.Redis.Addr != "" {
		redisLimiter, err := adapthttp.NewRedisRateLimiter(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}
	defer limiter.Close()

	tokens := app.NewTokenManager(cfg.TokenSecret, cfg.TokenTTL)
	authSvc := app.NewAuthService(users, tokens)
	storySvc := app.NewStoryService(stories, host, cfg.PlaceholderImageURL, log)
	mediaSvc := app.NewMediaService(host, cfg.MediaMaxBytes)

	srv := adapthttp.New(authSvc, storySvc, mediaSvc, log).
		WithCORS(cfg.CORSOrigins).
		WithRateLimiter(limiter, cfg.RateLimitAuth, cfg.RateLimitUpload).
		WithWebDir(cfg.WebDir).
		WithHealthCheck(ping)
	if mediaHandler != nil {
		srv.WithMediaHandler(mediaHandler)
	}
	if cfg.SSOEnabled() {
		oidcCfg, err := adapthttp.NewOIDCConfig(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret, cfg.OIDC.RedirectURL)
		if err != nil {
			return fmt.Errorf("oidc discovery: %w", err)
		}
		srv.WithOIDC(oidcCfg)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr, "sso", cfg.SSOEnabled())
		errorCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("server stopped")
		return nil
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
