package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenish/internal/api"
	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/intelligence"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/repository/csvsource"
	"github.com/andresuchdata/replenish/internal/repository/postgres"
	"github.com/andresuchdata/replenish/internal/service"
	"github.com/andresuchdata/replenish/internal/storage"
	"github.com/andresuchdata/replenish/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.Setup(cfg.Server.LogLevel, cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	var objects *storage.MinioClient
	if cfg.Storage.Enabled {
		objects, err = storage.NewFromConfig(cfg.Storage)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
		}
	}

	source, err := snapshotSource(cfg, db, objects)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize snapshot source")
	}

	engine := intelligence.NewEngine(
		intelligence.WithWorkers(cfg.Intelligence.Workers),
		intelligence.WithLogger(logger.Component("engine")),
	)

	backend, opts := cacheOptions(cfg.Cache)
	defer backend.Close()
	if objects != nil {
		opts = append(opts, service.WithExporter(
			storage.NewExportPublisher(objects, cfg.Storage.ExportPrefix, cfg.App.DataDir),
		))
	}

	advisor := service.NewAdvisorService(
		source,
		postgres.NewSuggestionRepository(db),
		engine,
		cfg.Intelligence.Settings(),
		opts...,
	)

	router := api.NewRouter(&api.Services{AdvisorService: advisor}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("snapshot_source", cfg.App.SnapshotSource).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// give in-flight requests 5 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

func snapshotSource(cfg *config.Config, db *postgres.DB, objects *storage.MinioClient) (repository.SnapshotSource, error) {
	switch cfg.App.SnapshotSource {
	case "", "postgres":
		return postgres.NewSnapshotRepository(db, cfg.Intelligence.HistoryWindowDays), nil
	case "dir":
		return csvsource.NewDirSource(cfg.App.SnapshotDir), nil
	case "bucket":
		if objects == nil {
			return nil, errors.New("bucket snapshots need STORAGE_ENABLED=true")
		}
		return storage.NewBundleSource(objects, cfg.Storage.SnapshotPrefix, cfg.App.DataDir), nil
	default:
		return nil, fmt.Errorf("unknown snapshot source %q", cfg.App.SnapshotSource)
	}
}

// cacheOptions shares one redis client between both caches and the run lock.
// Without redis the service keeps its in-process defaults.
func cacheOptions(cfg config.CacheConfig) (*cache.Backend, []service.Option) {
	backend, err := cache.Open(cfg)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("redis unavailable, using in-process caches and run lock")
		return nil, nil
	}
	if backend == nil {
		return nil, nil
	}
	return backend, []service.Option{
		service.WithDashboardCache(backend.DashboardCache()),
		service.WithSuggestionCache(backend.SuggestionCache()),
		service.WithRunLocker(backend.RunLocker()),
	}
}
