// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stamp-ai/recommender/internal/app/domain/store"
	"github.com/stamp-ai/recommender/internal/app/domain/visit"
	"github.com/stamp-ai/recommender/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.CatalogStore = (*Store)(nil)
var _ storage.VisitStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type storeRow struct {
	ID          string     `db:"id"`
	Name        string     `db:"name"`
	Category    string     `db:"category"`
	Address     string     `db:"address"`
	Latitude    float64    `db:"latitude"`
	Longitude   float64    `db:"longitude"`
	Rating      float64    `db:"rating"`
	ReviewCount int        `db:"review_count"`
	IsNew       bool       `db:"is_new"`
	OpenedAt    *time.Time `db:"opened_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (r storeRow) toDomain() store.Store {
	return store.Store(r)
}

func fromDomain(st store.Store) storeRow {
	return storeRow(st)
}

// --- CatalogStore -----------------------------------------------------------

func (s *Store) CreateStore(ctx context.Context, st store.Store) (store.Store, error) {
	if st.ID == "" {
		st.ID = "store-" + uuid.NewString()
	}
	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO catalog_stores
			(id, name, category, address, latitude, longitude, rating, review_count, is_new, opened_at, created_at, updated_at)
		VALUES
			(:id, :name, :category, :address, :latitude, :longitude, :rating, :review_count, :is_new, :opened_at, :created_at, :updated_at)
	`, fromDomain(st))
	if err != nil {
		return store.Store{}, fmt.Errorf("insert store: %w", err)
	}
	return st, nil
}

func (s *Store) UpdateStore(ctx context.Context, st store.Store) (store.Store, error) {
	st.UpdatedAt = time.Now().UTC()
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE catalog_stores SET
			name = :name,
			category = :category,
			address = :address,
			latitude = :latitude,
			longitude = :longitude,
			rating = :rating,
			review_count = :review_count,
			is_new = :is_new,
			opened_at = :opened_at,
			updated_at = :updated_at
		WHERE id = :id
	`, fromDomain(st))
	if err != nil {
		return store.Store{}, fmt.Errorf("update store: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return store.Store{}, fmt.Errorf("store %s: %w", st.ID, storage.ErrNotFound)
	}
	return s.GetStore(ctx, st.ID)
}

func (s *Store) GetStore(ctx context.Context, id string) (store.Store, error) {
	var row storeRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM catalog_stores WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Store{}, fmt.Errorf("store %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return store.Store{}, fmt.Errorf("get store: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListStores(ctx context.Context) ([]store.Store, error) {
	var rows []storeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM catalog_stores ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	result := make([]store.Store, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) ListStoresWithoutCoordinates(ctx context.Context, limit int) ([]store.Store, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []storeRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM catalog_stores
		WHERE latitude = 0 AND longitude = 0
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list stores without coordinates: %w", err)
	}
	result := make([]store.Store, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

// --- Events -------------------------------------------------------------------

type eventRow struct {
	ID            string    `db:"id"`
	StoreID       string    `db:"store_id"`
	Type          string    `db:"type"`
	Title         string    `db:"title"`
	Description   string    `db:"description"`
	StartAt       time.Time `db:"start_at"`
	EndAt         time.Time `db:"end_at"`
	ExpMultiplier float64   `db:"exp_multiplier"`
}

func (r eventRow) toDomain() store.Event {
	return store.Event{
		ID:            r.ID,
		StoreID:       r.StoreID,
		Type:          store.EventType(r.Type),
		Title:         r.Title,
		Description:   r.Description,
		StartAt:       r.StartAt,
		EndAt:         r.EndAt,
		ExpMultiplier: r.ExpMultiplier,
	}
}

func (s *Store) CreateEvent(ctx context.Context, e store.Event) (store.Event, error) {
	if _, err := s.GetStore(ctx, e.StoreID); err != nil {
		return store.Event{}, err
	}
	e.ID = "event-" + uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_events (id, store_id, type, title, description, start_at, end_at, exp_multiplier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.StoreID, string(e.Type), e.Title, e.Description, e.StartAt, e.EndAt, e.ExpMultiplier)
	if err != nil {
		return store.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return e, nil
}

func (s *Store) ListEvents(ctx context.Context, storeID string) ([]store.Event, error) {
	var rows []eventRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, store_id, type, title, description, start_at, end_at, exp_multiplier
		FROM store_events
		WHERE store_id = $1
		ORDER BY start_at, id
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	result := make([]store.Event, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

// --- VisitStore ---------------------------------------------------------------

type visitRow struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	StoreID    string    `db:"store_id"`
	VisitCount int       `db:"visit_count"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r visitRow) toDomain() visit.Visit {
	return visit.Visit(r)
}

func (s *Store) RecordVisit(ctx context.Context, userID, storeID string, count int) (visit.Visit, error) {
	if count <= 0 {
		return visit.Visit{}, fmt.Errorf("visit count must be positive")
	}
	now := time.Now().UTC()

	var row visitRow
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO store_visits (id, user_id, store_id, visit_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, store_id) DO UPDATE SET
			visit_count = store_visits.visit_count + EXCLUDED.visit_count,
			updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, store_id, visit_count, created_at, updated_at
	`, uuid.NewString(), userID, storeID, count, now)
	if err != nil {
		return visit.Visit{}, fmt.Errorf("record visit: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListVisits(ctx context.Context) ([]visit.Visit, error) {
	var rows []visitRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, store_id, visit_count, created_at, updated_at
		FROM store_visits
		ORDER BY user_id, store_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	result := make([]visit.Visit, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) ListVisitsByUser(ctx context.Context, userID string) ([]visit.Visit, error) {
	var rows []visitRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, store_id, visit_count, created_at, updated_at
		FROM store_visits
		WHERE user_id = $1
		ORDER BY store_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list visits by user: %w", err)
	}
	result := make([]visit.Visit, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}
