package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/stamp-ai/recommender/internal/app/domain/store"
	"github.com/stamp-ai/recommender/internal/app/storage"
	"github.com/stamp-ai/recommender/pkg/logger"
)

// Service manages the store catalog. The dataset loads lazily on first use so
// the process starts even when the file is still being provisioned.
type Service struct {
	store       storage.CatalogStore
	log         *logger.Logger
	datasetPath string

	loadOnce sync.Once
}

// New constructs a catalog service. datasetPath may be empty, in which case
// no dataset is seeded and the catalog starts from whatever the backing
// store already holds.
func New(catalogStore storage.CatalogStore, datasetPath string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{
		store:       catalogStore,
		log:         log,
		datasetPath: datasetPath,
	}
}

// EnsureLoaded seeds the catalog from the dataset exactly once. A dataset
// read failure degrades to the fallback catalog rather than failing the
// request.
func (s *Service) EnsureLoaded(ctx context.Context) {
	s.loadOnce.Do(func() {
		existing, err := s.store.ListStores(ctx)
		if err != nil {
			s.log.WithError(err).Warn("catalog inspection failed; skipping dataset load")
			return
		}
		if len(existing) > 0 {
			s.log.WithField("stores", len(existing)).Info("catalog already populated")
			return
		}
		if s.datasetPath == "" {
			return
		}

		stores, err := LoadDataset(s.datasetPath)
		if err != nil {
			s.log.WithError(err).WithField("path", s.datasetPath).Warn("dataset load failed; using fallback catalog")
			stores = fallbackStores()
		}
		seeded := 0
		for _, st := range stores {
			if _, err := s.store.CreateStore(ctx, st); err != nil {
				s.log.WithError(err).WithField("store_id", st.ID).Warn("seed store failed")
				continue
			}
			seeded++
		}
		s.log.WithField("stores", seeded).Info("catalog dataset loaded")
	})
}

// Create registers a store supplied through the API.
func (s *Service) Create(ctx context.Context, st store.Store) (store.Store, error) {
	st.Name = strings.TrimSpace(st.Name)
	st.Address = strings.TrimSpace(st.Address)
	if st.Name == "" {
		return store.Store{}, fmt.Errorf("name is required")
	}
	if st.Rating < 0 || st.Rating > 5 {
		return store.Store{}, fmt.Errorf("rating must be between 0 and 5")
	}
	created, err := s.store.CreateStore(ctx, st)
	if err != nil {
		return store.Store{}, err
	}
	s.log.WithField("store_id", created.ID).
		WithField("name", created.Name).
		Info("store created")
	return created, nil
}

// Get retrieves a store, accepting upstream numeric ids.
func (s *Service) Get(ctx context.Context, id string) (store.Store, error) {
	s.EnsureLoaded(ctx)
	normalized, err := store.NormalizeID(id)
	if err != nil {
		return store.Store{}, err
	}
	return s.store.GetStore(ctx, normalized)
}

// List returns the full catalog in dataset order.
func (s *Service) List(ctx context.Context) ([]store.Store, error) {
	s.EnsureLoaded(ctx)
	return s.store.ListStores(ctx)
}

// AddEvent attaches a promotional event to a store.
func (s *Service) AddEvent(ctx context.Context, e store.Event) (store.Event, error) {
	s.EnsureLoaded(ctx)
	normalized, err := store.NormalizeID(e.StoreID)
	if err != nil {
		return store.Event{}, err
	}
	e.StoreID = normalized
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return store.Event{}, fmt.Errorf("title is required")
	}
	if !store.ValidEventType(e.Type) {
		return store.Event{}, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.EndAt.Before(e.StartAt) {
		return store.Event{}, fmt.Errorf("end_at must not precede start_at")
	}
	if e.ExpMultiplier <= 0 {
		e.ExpMultiplier = 1
	}
	created, err := s.store.CreateEvent(ctx, e)
	if err != nil {
		return store.Event{}, err
	}
	s.log.WithField("store_id", created.StoreID).
		WithField("event_id", created.ID).
		WithField("type", string(created.Type)).
		Info("event created")
	return created, nil
}

// Events lists a store's promotional events.
func (s *Service) Events(ctx context.Context, storeID string) ([]store.Event, error) {
	s.EnsureLoaded(ctx)
	normalized, err := store.NormalizeID(storeID)
	if err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, normalized)
}

// SetCoordinates records a geocoding result for a store.
func (s *Service) SetCoordinates(ctx context.Context, id string, lat, lon float64) (store.Store, error) {
	st, err := s.store.GetStore(ctx, id)
	if err != nil {
		return store.Store{}, err
	}
	st.Latitude = lat
	st.Longitude = lon
	return s.store.UpdateStore(ctx, st)
}

// MissingCoordinates lists stores the geocode backfill still has to resolve.
func (s *Service) MissingCoordinates(ctx context.Context, limit int) ([]store.Store, error) {
	s.EnsureLoaded(ctx)
	return s.store.ListStoresWithoutCoordinates(ctx, limit)
}
