package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/cruise-data-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/cruise-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/cruise-data-etl/internal/config"
	"github.com/couchcryptid/cruise-data-etl/internal/observability"
	"github.com/couchcryptid/cruise-data-etl/internal/pipeline"
	"github.com/couchcryptid/cruise-data-etl/internal/products"
	"github.com/couchcryptid/cruise-data-etl/internal/rawdata"
	"github.com/couchcryptid/cruise-data-etl/internal/stationdb"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	repo := rawdata.NewRepository(rawdata.NewResolver(cfg.DataRoot), cfg.UnderwayResolution)
	sources := pipeline.Sources{Events: repo, Tracks: repo, Stations: repo}

	// Station reference database (optional via STATION_DB_PATH).
	var stationDB *stationdb.Store
	if cfg.StationDBPath != "" {
		stationDB, err = stationdb.Open(cfg.StationDBPath)
		if err != nil {
			logger.Error("failed to open station database", "path", cfg.StationDBPath, "error", err)
			os.Exit(1)
		}
		sources.Stations = stationDB
		logger.Info("station database enabled", "path", cfg.StationDBPath)
	}

	// Product notifications (feature-flagged via KAFKA_ENABLED).
	var notifier pipeline.Notifier
	var kafkaNotifier *kafkaadapter.Notifier
	if cfg.KafkaEnabled {
		kafkaNotifier = kafkaadapter.NewNotifier(cfg, logger)
		notifier = kafkaNotifier
		logger.Info("kafka notifications enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaProductTopic)
	} else {
		logger.Info("kafka notifications disabled")
	}

	store := products.NewStore(cfg.ProductsDir)
	p := pipeline.New(repo, sources, store, notifier, logger, metrics, pipeline.Options{
		MatchKm:   cfg.StationMatchKm,
		CacheSize: cfg.StationCacheSize,
	})

	// On-demand products are built from the same sources behind a
	// long-lived station cache.
	apiSources := sources
	apiSources.Stations = pipeline.NewCachedStations(sources.Stations, cfg.StationCacheSize, metrics)
	api := httpadapter.API{
		Cruises:   repo,
		Generator: pipeline.NewGenerator(apiSources, cfg.StationMatchKm, logger, metrics),
		Files:     store,
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, api, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Generate every cruise once at startup.
	if cfg.GenerateOnStart {
		go func() {
			if _, err := p.Run(ctx, nil); err != nil {
				logger.Error("startup generation finished with errors", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaNotifier != nil {
		if err := kafkaNotifier.Close(); err != nil {
			logger.Error("kafka notifier close error", "error", err)
		}
	}
	if stationDB != nil {
		if err := stationDB.Close(); err != nil {
			logger.Error("station database close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
