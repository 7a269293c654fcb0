// Package main runs the store recommendation service: an HTTP API serving
// personalized store recommendations, visit tracking and a collaborative
// filtering model over visit history.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stamp-ai/recommender/internal/app"
	"github.com/stamp-ai/recommender/internal/app/httpapi"
	"github.com/stamp-ai/recommender/internal/app/storage/postgres"
	"github.com/stamp-ai/recommender/internal/config"
	"github.com/stamp-ai/recommender/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	flag.Parse()

	log := logger.NewDefault("recommender")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Error("load configuration")
		os.Exit(1)
	}

	stores := app.Stores{}
	if cfg.Database.DSN != "" {
		db, err := postgres.Connect(cfg.Database.DSN)
		if err != nil {
			log.WithError(err).Error("connect database")
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(db); err != nil {
			log.WithError(err).Error("migrate database")
			os.Exit(1)
		}
		pg := postgres.New(db)
		stores.Catalog = pg
		stores.Visits = pg
		log.Info("using postgres storage")
	} else {
		log.Info("using in-memory storage")
	}

	application, err := app.New(stores, app.Options{
		DatasetPath:      cfg.Catalog.DatasetPath,
		TrainSchedule:    cfg.Model.TrainSchedule,
		GeocoderEndpoint: cfg.Geocoder.Endpoint,
		GeocoderKey:      cfg.Geocoder.APIKey,
		RedisAddr:        cfg.Cache.RedisAddr,
		CacheTTL:         cfg.Cache.TTL,
	}, log)
	if err != nil {
		log.WithError(err).Error("build application")
		os.Exit(1)
	}

	handler, err := httpapi.NewHandler(application, httpapi.Config{
		CORSOrigins:       cfg.Server.CORSOrigins,
		RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
		Burst:             cfg.Server.RateLimit.Burst,
	}, log)
	if err != nil {
		log.WithError(err).Error("build http handler")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("start application")
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server")
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application shutdown")
	}

	log.Info("stopped")
}
