// Package app wires configuration into the services shared by the binaries.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/andresuchdata/restock/internal/api"
	"github.com/andresuchdata/restock/internal/cache"
	"github.com/andresuchdata/restock/internal/config"
	"github.com/andresuchdata/restock/internal/repository"
	"github.com/andresuchdata/restock/internal/repository/postgres"
	"github.com/andresuchdata/restock/internal/service"
	"github.com/andresuchdata/restock/internal/source"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// App holds the wired services and the resources to release on shutdown.
type App struct {
	Config  *config.Config
	Loader  *source.Loader
	Reports *service.ReportService

	closers []func() error
}

// New connects the optional backends (object storage, drive, redis, postgres)
// and builds the report service. Backends that are not configured are skipped.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	// 1. Sources
	var loaderOpts []source.LoaderOption
	if cfg.Storage.Enabled() {
		objects, err := source.NewMinioClient(source.ObjectStoreConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		loaderOpts = append(loaderOpts, source.WithObjectStorage(objects, cfg.Storage.Bucket))
		log.Info().Str("endpoint", cfg.Storage.Endpoint).Msg("object storage enabled")
	}
	if cfg.Drive.CredentialsJSON != "" {
		drive, err := source.NewDriveClient(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			return nil, err
		}
		loaderOpts = append(loaderOpts, source.WithDrive(drive))
		log.Info().Msg("google drive enabled")
	}
	a.Loader = source.NewLoader(cfg.App.DataDir, loaderOpts...)

	// 2. Cache
	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("report cache unavailable, continuing without it")
		reportCache = cache.NewNoopReportCache()
	}

	// 3. Run log
	runs := repository.NewMemoryRunRepository(cfg.Report.MaxSessions * 4)
	if cfg.Database.Enabled {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.EnsureSchema(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
		runs = postgres.NewReportRunRepository(db)
		log.Info().Str("driver", postgres.DriverName(cfg.Database.Driver)).Msg("run log stored in database")
	}

	a.Reports = service.NewReportService(a.Loader, reportCache, runs, service.ReportServiceConfig{
		Options:            cfg.ReportOptions(),
		ScenarioThresholds: cfg.Thresholds.ScenarioThresholds(),
		MaxSessions:        cfg.Report.MaxSessions,
	})

	return a, nil
}

// Server builds the HTTP server for the API.
func (a *App) Server() *http.Server {
	if a.Config.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(&api.Services{ReportService: a.Reports}, a.Config.Server.AllowedOrigins)
	return &http.Server{
		Addr:         ":" + a.Config.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(a.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.Config.Server.WriteTimeout) * time.Second,
	}
}

// Close releases every opened backend.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
