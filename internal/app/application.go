package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/stamp-ai/recommender/internal/app/services/catalog"
	cfsvc "github.com/stamp-ai/recommender/internal/app/services/cf"
	"github.com/stamp-ai/recommender/internal/app/services/geocode"
	recommendsvc "github.com/stamp-ai/recommender/internal/app/services/recommend"
	visitsvc "github.com/stamp-ai/recommender/internal/app/services/visits"
	"github.com/stamp-ai/recommender/internal/app/storage"
	"github.com/stamp-ai/recommender/internal/app/storage/memory"
	"github.com/stamp-ai/recommender/internal/app/system"
	"github.com/stamp-ai/recommender/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Catalog storage.CatalogStore
	Visits  storage.VisitStore
}

// Options configures optional integrations.
type Options struct {
	DatasetPath      string
	TrainSchedule    string
	GeocoderEndpoint string
	GeocoderKey      string
	RedisAddr        string
	CacheTTL         time.Duration
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Catalog   *catalog.Service
	Recommend *recommendsvc.Service
	Visits    *visitsvc.Service
	CF        *cfsvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Catalog == nil {
		stores.Catalog = mem
	}
	if stores.Visits == nil {
		stores.Visits = mem
	}

	manager := system.NewManager()

	catalogService := catalog.New(stores.Catalog, opts.DatasetPath, log)
	recommendService := recommendsvc.New(catalogService, log)
	visitService := visitsvc.New(catalogService, stores.Visits, log)
	cfService := cfsvc.New(stores.Visits, log)

	if addr := strings.TrimSpace(opts.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		recommendService.WithCache(recommendsvc.NewRedisCache(client, opts.CacheTTL, log))
		log.WithField("addr", addr).Info("recommendation cache enabled")
	}

	trainer, err := cfsvc.NewTrainer(cfService, opts.TrainSchedule, log)
	if err != nil {
		return nil, fmt.Errorf("configure trainer: %w", err)
	}
	if err := manager.Register(trainer); err != nil {
		return nil, fmt.Errorf("register trainer: %w", err)
	}

	if endpoint := strings.TrimSpace(opts.GeocoderEndpoint); endpoint != "" {
		httpClient := &http.Client{Timeout: 10 * time.Second}
		geocoder, err := geocode.NewHTTPClient(httpClient, endpoint, opts.GeocoderKey, log)
		if err != nil {
			log.WithError(err).Warn("configure geocoder")
		} else {
			backfill := geocode.NewBackfill(catalogService, geocoder, log)
			if err := manager.Register(backfill); err != nil {
				return nil, fmt.Errorf("register geocode backfill: %w", err)
			}
		}
	} else {
		log.Warn("geocoder endpoint not set; coordinate backfill disabled")
	}

	return &Application{
		manager:   manager,
		log:       log,
		Catalog:   catalogService,
		Recommend: recommendService,
		Visits:    visitService,
		CF:        cfService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
