package visits

import (
	"context"
	"fmt"
	"strings"

	"github.com/stamp-ai/recommender/internal/app/domain/store"
	"github.com/stamp-ai/recommender/internal/app/domain/visit"
	"github.com/stamp-ai/recommender/internal/app/storage"
	"github.com/stamp-ai/recommender/pkg/logger"
)

// Catalog resolves store ids. Lookups go through the catalog service so a
// visit recorded before any catalog read still triggers dataset seeding.
type Catalog interface {
	Get(ctx context.Context, id string) (store.Store, error)
}

// Service records user visits, the training signal for collaborative
// filtering.
type Service struct {
	catalog Catalog
	store   storage.VisitStore
	log     *logger.Logger
}

// New constructs a visit service. catalog may be nil to skip store
// validation.
func New(catalog Catalog, visitStore storage.VisitStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("visits")
	}
	return &Service{catalog: catalog, store: visitStore, log: log}
}

// Record accumulates count visits for the (user, store) pair. count defaults
// to 1.
func (s *Service) Record(ctx context.Context, userID, storeID string, count int) (visit.Visit, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return visit.Visit{}, fmt.Errorf("user_id is required")
	}
	normalized, err := store.NormalizeID(storeID)
	if err != nil {
		return visit.Visit{}, err
	}
	if count == 0 {
		count = 1
	}
	if count < 0 {
		return visit.Visit{}, fmt.Errorf("count must be positive")
	}

	if s.catalog != nil {
		if _, err := s.catalog.Get(ctx, normalized); err != nil {
			return visit.Visit{}, fmt.Errorf("store validation failed: %w", err)
		}
	}

	v, err := s.store.RecordVisit(ctx, userID, normalized, count)
	if err != nil {
		return visit.Visit{}, err
	}
	s.log.WithField("user_id", userID).
		WithField("store_id", normalized).
		WithField("total", v.VisitCount).
		Debug("visit recorded")
	return v, nil
}

// ListByUser returns a user's visit history.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]visit.Visit, error) {
	return s.store.ListVisitsByUser(ctx, userID)
}
