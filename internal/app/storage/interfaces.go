package storage

import (
	"context"
	"errors"

	"github.com/stamp-ai/recommender/internal/app/domain/store"
	"github.com/stamp-ai/recommender/internal/app/domain/visit"
)

// ErrNotFound is returned when a requested record does not exist. Callers
// map it to HTTP 404.
var ErrNotFound = errors.New("record not found")

// CatalogStore persists the store catalog.
type CatalogStore interface {
	CreateStore(ctx context.Context, st store.Store) (store.Store, error)
	UpdateStore(ctx context.Context, st store.Store) (store.Store, error)
	GetStore(ctx context.Context, id string) (store.Store, error)
	ListStores(ctx context.Context) ([]store.Store, error)
	// ListStoresWithoutCoordinates returns catalog entries the geocode
	// backfill still has to resolve, up to the given limit.
	ListStoresWithoutCoordinates(ctx context.Context, limit int) ([]store.Store, error)
	// CreateEvent attaches a promotional event to an existing store.
	CreateEvent(ctx context.Context, e store.Event) (store.Event, error)
	// ListEvents returns a store's events in creation order.
	ListEvents(ctx context.Context, storeID string) ([]store.Event, error)
}

// VisitStore persists user visit counts, the collaborative-filtering signal.
type VisitStore interface {
	// RecordVisit adds count visits for the (user, store) pair, creating
	// the row when absent, and returns the accumulated record.
	RecordVisit(ctx context.Context, userID, storeID string, count int) (visit.Visit, error)
	ListVisits(ctx context.Context) ([]visit.Visit, error)
	ListVisitsByUser(ctx context.Context, userID string) ([]visit.Visit, error)
}
