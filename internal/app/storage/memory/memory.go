package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stamp-ai/recommender/internal/app/domain/store"
	"github.com/stamp-ai/recommender/internal/app/domain/visit"
	"github.com/stamp-ai/recommender/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	stores  map[string]store.Store
	order   []string
	visits  map[string]visit.Visit // keyed by userID + "\x00" + storeID
	visitID int64
	events  map[string][]store.Event // keyed by store id
	eventID int64
}

var _ storage.CatalogStore = (*Store)(nil)
var _ storage.VisitStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID: 1,
		stores: make(map[string]store.Store),
		visits: make(map[string]visit.Visit),
		events: make(map[string][]store.Event),
	}
}

// nextStoreIDLocked returns the next free sequential id, skipping ids the
// dataset seed already claimed.
func (s *Store) nextStoreIDLocked() string {
	for {
		id := fmt.Sprintf("store%04d", s.nextID)
		s.nextID++
		if _, exists := s.stores[id]; !exists {
			return id
		}
	}
}

// CatalogStore implementation -------------------------------------------------

func (s *Store) CreateStore(_ context.Context, st store.Store) (store.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.ID == "" {
		st.ID = s.nextStoreIDLocked()
	} else if _, exists := s.stores[st.ID]; exists {
		return store.Store{}, fmt.Errorf("store %s already exists", st.ID)
	}

	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now

	s.stores[st.ID] = st
	s.order = append(s.order, st.ID)
	return st, nil
}

func (s *Store) UpdateStore(_ context.Context, st store.Store) (store.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.stores[st.ID]
	if !ok {
		return store.Store{}, fmt.Errorf("store %s: %w", st.ID, storage.ErrNotFound)
	}

	st.CreatedAt = original.CreatedAt
	st.UpdatedAt = time.Now().UTC()
	s.stores[st.ID] = st
	return st, nil
}

func (s *Store) GetStore(_ context.Context, id string) (store.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stores[id]
	if !ok {
		return store.Store{}, fmt.Errorf("store %s: %w", id, storage.ErrNotFound)
	}
	return st, nil
}

func (s *Store) ListStores(_ context.Context) ([]store.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]store.Store, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.stores[id])
	}
	return result, nil
}

func (s *Store) ListStoresWithoutCoordinates(_ context.Context, limit int) ([]store.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []store.Store
	for _, id := range s.order {
		st := s.stores[id]
		if st.HasCoordinates() {
			continue
		}
		result = append(result, st)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) CreateEvent(_ context.Context, e store.Event) (store.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[e.StoreID]; !ok {
		return store.Event{}, fmt.Errorf("store %s: %w", e.StoreID, storage.ErrNotFound)
	}
	s.eventID++
	e.ID = fmt.Sprintf("event%04d", s.eventID)
	s.events[e.StoreID] = append(s.events[e.StoreID], e)
	return e, nil
}

func (s *Store) ListEvents(_ context.Context, storeID string) ([]store.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.stores[storeID]; !ok {
		return nil, fmt.Errorf("store %s: %w", storeID, storage.ErrNotFound)
	}
	result := make([]store.Event, len(s.events[storeID]))
	copy(result, s.events[storeID])
	return result, nil
}

// VisitStore implementation ---------------------------------------------------

func visitKey(userID, storeID string) string {
	return userID + "\x00" + storeID
}

func (s *Store) RecordVisit(_ context.Context, userID, storeID string, count int) (visit.Visit, error) {
	if userID == "" || storeID == "" {
		return visit.Visit{}, fmt.Errorf("user_id and store_id are required")
	}
	if count <= 0 {
		return visit.Visit{}, fmt.Errorf("visit count must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	key := visitKey(userID, storeID)
	v, ok := s.visits[key]
	if !ok {
		s.visitID++
		v = visit.Visit{
			ID:        fmt.Sprintf("%d", s.visitID),
			UserID:    userID,
			StoreID:   storeID,
			CreatedAt: now,
		}
	}
	v.VisitCount += count
	v.UpdatedAt = now
	s.visits[key] = v
	return v, nil
}

func (s *Store) ListVisits(_ context.Context) ([]visit.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]visit.Visit, 0, len(s.visits))
	for _, v := range s.visits {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UserID != result[j].UserID {
			return result[i].UserID < result[j].UserID
		}
		return result[i].StoreID < result[j].StoreID
	})
	return result, nil
}

func (s *Store) ListVisitsByUser(_ context.Context, userID string) ([]visit.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []visit.Visit
	for _, v := range s.visits {
		if v.UserID == userID {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StoreID < result[j].StoreID })
	return result, nil
}
