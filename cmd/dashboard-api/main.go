package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/enrollment-dashboard-api/api/swagger"
	"github.com/noah-isme/enrollment-dashboard-api/internal/handler"
	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
	"github.com/noah-isme/enrollment-dashboard-api/internal/repository"
	"github.com/noah-isme/enrollment-dashboard-api/internal/service"
	"github.com/noah-isme/enrollment-dashboard-api/pkg/cache"
	"github.com/noah-isme/enrollment-dashboard-api/pkg/config"
	"github.com/noah-isme/enrollment-dashboard-api/pkg/database"
	"github.com/noah-isme/enrollment-dashboard-api/pkg/jobs"
	"github.com/noah-isme/enrollment-dashboard-api/pkg/logger"
	"github.com/noah-isme/enrollment-dashboard-api/pkg/sheets"
	"github.com/noah-isme/enrollment-dashboard-api/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

// @title Enrollment Dashboard API
// @version 1.0.0
// @description Batch enrollment reporting over the enrollment spreadsheets.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	snapshot := setUpSnapshot(ctx, cfg, metrics, logr)
	var snapshots service.SnapshotStore
	if snapshot != nil {
		snapshots = snapshot
	}

	var (
		refreshLog *repository.RefreshLogRepository
		recorder   service.RefreshRecorder
	)
	if cfg.Database.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close()

		refreshLog = repository.NewRefreshLogRepository(db, metrics)
		if err := refreshLog.EnsureSchema(ctx); err != nil {
			logr.Fatal("failed to prepare refresh log schema", zap.Error(err))
		}
		audit := service.NewRefreshAudit(refreshLog, jobs.QueueConfig{Logger: logr})
		audit.Start(context.Background())
		defer audit.Stop()
		recorder = audit
	}

	fetcher := sheets.NewClient(sheets.Config{
		SpreadsheetID:      cfg.Sheets.SpreadsheetID,
		CredentialsJSON:    cfg.Sheets.CredentialsJSON,
		ServiceAccountFile: cfg.Sheets.ServiceAccountFile,
		Timeout:            cfg.Sheets.FetchTimeout,
	}, nil, logr)

	loader := service.NewSheetLoader(service.SheetLoaderParams{
		Fetcher:    fetcher,
		SheetNames: cfg.Sheets.WorksheetNames,
		Recorder:   recorder,
		Metrics:    metrics,
		Logger:     logr,
	})
	tables := service.NewTableCache(service.TableCacheParams{
		Loader:   loader,
		TTL:      cfg.Cache.TTL,
		Snapshot: snapshots,
		Metrics:  metrics,
		Logger:   logr,
	})
	dashboard := service.NewDashboardService(tables, logr)

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	exports := service.NewExportService(service.ExportServiceParams{
		Viewer:  dashboard,
		Storage: files,
		Signer:  storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		Metrics: metrics,
		Logger:  logr,
		Config: service.ExportConfig{
			APIPrefix:       cfg.APIPrefix,
			ResultTTL:       cfg.Exports.ResultTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
		},
	})
	exports.StartCleanup(ctx)

	var (
		refreshes interface {
			List(ctx context.Context, filter models.RefreshFilter) ([]models.RefreshEvent, int, error)
		}
		purger interface{ Purge(ctx context.Context) error }
	)
	if refreshLog != nil {
		refreshes = refreshLog
	}
	if snapshot != nil {
		purger = snapshot
	}

	r := handler.NewRouter(handler.RouterParams{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		JWTSecret:      cfg.JWT.Secret,
		Logger:         logr,
		Metrics:        metrics,
		Dashboard:      handler.NewDashboardHandler(dashboard),
		Cache:          handler.NewCacheHandler(tables, refreshes, purger),
		Exports:        handler.NewExportHandler(exports),
		Observability:  handler.NewMetricsHandler(metrics, tables),
	})
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// prime the table cache in the background
	go func() {
		table, source := tables.Get(ctx, false)
		logr.Info("initial table load", zap.String("source", string(source)), zap.Int("rows", table.Len()))
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logr.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Error("could not stop server gracefully", zap.Error(err))
			_ = srv.Close()
		}
	}
}

func setUpSnapshot(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) *service.CacheService {
	if !cfg.Cache.SnapshotEnabled {
		return nil
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, snapshots disabled", zap.Error(err))
		return nil
	}
	return service.NewCacheService(repository.NewCacheRepository(client, logr), metrics, service.CacheServiceConfig{
		Key:     cfg.Cache.SnapshotKey,
		TTL:     cfg.Cache.SnapshotTTL,
		Enabled: true,
	}, logr)
}
