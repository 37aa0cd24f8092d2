package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/app"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/blob"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/config"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/email"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/export"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/logging"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/revisions"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/search"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/session"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/site"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "clinic api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	if err := os.MkdirAll(cfg.RevisionsDir, 0o755); err != nil {
		return fmt.Errorf("create revisions dir: %w", err)
	}

	dataStore := store.NewPostgresStore(db)
	deps := app.Deps{
		Store:     dataStore,
		Revisions: revisions.New(cfg.RevisionsDir),
		Exporter:  export.NewService(cfg.SiteName, cfg.PublicBaseURL, logger),
		Mailer: email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			SiteName: cfg.SiteName,
		}),
		Checks: map[string]app.Pinger{},
	}

	var meili *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meili.Close()
	}
	searchService := search.NewService(meili, search.NewPgFTS(db), logger)
	deps.Search = searchService

	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisStore.Close()
		deps.Sessions = redisStore
		deps.Checks["redis"] = redisStore
		logger.Info("sessions stored in redis")
	} else {
		logger.Info("sessions stored in postgres")
	}

	if cfg.MinIOConfigured() {
		media, err := blob.NewMinIO(blob.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		}, logger)
		if err != nil {
			return err
		}
		if err := media.EnsureBucket(ctx); err != nil {
			logger.Warn("media bucket unavailable at startup", zap.Error(err))
		}
		deps.Media = media
	} else {
		logger.Warn("media storage not configured, uploads are disabled")
	}

	service := app.New(cfg, deps, logger)
	if err := service.BootstrapAdmin(ctx); err != nil {
		logger.Warn("bootstrap admin failed, will retry on next restart", zap.Error(err))
	}

	siteHandler, err := site.NewHandler(dataStore, cfg.SiteName, logger)
	if err != nil {
		return fmt.Errorf("load site templates: %w", err)
	}

	httpServer := app.NewHTTPServer(service, siteHandler, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("clinic api listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	searchService.Flush()
	return nil
}
