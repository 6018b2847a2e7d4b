package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/cafepick-api/internal/adapter/http"
	"github.com/couchcryptid/cafepick-api/internal/adapter/cafenomad"
	"github.com/couchcryptid/cafepick-api/internal/adapter/googleplaces"
	kafkaadapter "github.com/couchcryptid/cafepick-api/internal/adapter/kafka"
	"github.com/couchcryptid/cafepick-api/internal/adapter/postgres"
	"github.com/couchcryptid/cafepick-api/internal/config"
	"github.com/couchcryptid/cafepick-api/internal/pipeline"
	"github.com/couchcryptid/cafepick-api/internal/service"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the Kafka ingestion pipeline when enabled).",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadDeps()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), rt)
		},
	}
}

func serve(parent context.Context, rt *deps) error {
	cfg, logger := rt.cfg, rt.logger

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *postgres.Store
	if cfg.DatabaseURL != "" && (cfg.VenueSource == config.SourcePostgres || cfg.KafkaEnabled) {
		var err error
		if db, err = postgres.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConnections, logger); err != nil {
			return err
		}
		defer db.Close()
	}

	var store service.VenueStore
	switch cfg.VenueSource {
	case config.SourcePostgres:
		store = db
	default:
		client := cafenomad.NewClient(cfg.CafeNomadBaseURL, cfg.CafeNomadTimeout, logger, rt.metrics)
		store = cafenomad.NewSource(client, rt.tables, cfg.CafeNomadCacheTTL, cfg.CafeNomadCacheSize, nil, logger, rt.metrics)
	}
	logger.Info("venue source selected", "source", cfg.VenueSource)

	var places service.PlacesLookup
	if cfg.PlacesEnabled {
		client := googleplaces.NewClient(cfg.GoogleMapsAPIKey, cfg.PlacesTimeout, rt.tables, logger, rt.metrics)
		places = googleplaces.NewCachedTransit(client, cfg.TransitCacheTTL, cfg.TransitCacheSize, nil, rt.metrics)
		logger.Info("google places enabled", "timeout", cfg.PlacesTimeout, "transit_cache_ttl", cfg.TransitCacheTTL)
	} else {
		logger.Info("google places disabled")
	}

	svc := service.New(store, places, rt.tables, logger, rt.metrics)
	ready := httpadapter.Readiness{svc}

	var reader *kafkaadapter.Reader
	var p *pipeline.Pipeline
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		defer func() {
			if err := reader.Close(); err != nil {
				logger.Error("kafka reader close error", "error", err)
			}
		}()
		p = pipeline.New(reader, pipeline.NewTransformer(rt.tables), db, logger, rt.metrics, cfg.BatchSize)
		ready = append(ready, p)
	}

	srv := httpadapter.NewServer(httpadapter.Options{Addr: cfg.HTTPAddr, CORSOrigins: cfg.CORSOrigins}, svc, ready, logger, rt.metrics)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
