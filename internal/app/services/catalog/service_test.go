package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stamp-ai/recommender/internal/app/domain/store"
	"github.com/stamp-ai/recommender/internal/app/storage"
	"github.com/stamp-ai/recommender/internal/app/storage/memory"
)

func TestService_SeedsDatasetOnce(t *testing.T) {
	path := writeDataset(t, `name,address,category,latitude,longitude
Cafe One,"Mapo-gu, Seoul",cafe,37.5665,126.9780
Cafe Two,"Gangnam-gu, Seoul",cafe,37.4979,127.0276
`)

	svc := New(memory.New(), path, nil)
	stores, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stores) != 2 {
		t.Fatalf("seeded %d stores, want 2", len(stores))
	}

	// A second List must not reseed.
	again, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if len(again) != 2 {
		t.Fatalf("reseeded catalog: %d stores", len(again))
	}
}

func TestService_FallbackOnBadDataset(t *testing.T) {
	svc := New(memory.New(), filepath.Join(t.TempDir(), "missing.csv"), nil)
	stores, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stores) != 1 {
		t.Fatalf("expected fallback catalog with 1 store, got %d", len(stores))
	}
}

func TestService_SkipsSeedWhenPopulated(t *testing.T) {
	mem := memory.New()
	if _, err := mem.CreateStore(context.Background(), store.Store{ID: "store0042", Name: "Existing"}); err != nil {
		t.Fatalf("precreate: %v", err)
	}

	path := writeDataset(t, "name,address,latitude,longitude\nCafe,Seoul,37.5,127.0\n")
	svc := New(mem, path, nil)

	stores, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stores) != 1 || stores[0].ID != "store0042" {
		t.Fatalf("populated catalog was reseeded: %#v", stores)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc := New(memory.New(), "", nil)

	if _, err := svc.Create(context.Background(), store.Store{Name: "  "}); err == nil {
		t.Fatalf("expected error for blank name")
	}
	if _, err := svc.Create(context.Background(), store.Store{Name: "Cafe", Rating: 6}); err == nil {
		t.Fatalf("expected error for rating out of range")
	}

	created, err := svc.Create(context.Background(), store.Store{Name: " Cafe ", Rating: 4.5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "Cafe" {
		t.Fatalf("name not trimmed: %q", created.Name)
	}
}

func TestService_GetNormalizesID(t *testing.T) {
	mem := memory.New()
	if _, err := mem.CreateStore(context.Background(), store.Store{ID: "store0024", Name: "Cafe"}); err != nil {
		t.Fatalf("precreate: %v", err)
	}
	svc := New(mem, "", nil)

	got, err := svc.Get(context.Background(), "24")
	if err != nil {
		t.Fatalf("get numeric id: %v", err)
	}
	if got.ID != "store0024" {
		t.Fatalf("resolved id = %s", got.ID)
	}

	if _, err := svc.Get(context.Background(), "99"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing store error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Get(context.Background(), "not-an-id"); err == nil {
		t.Fatalf("expected error for malformed id")
	}
}

func TestService_AddEvent(t *testing.T) {
	mem := memory.New()
	if _, err := mem.CreateStore(context.Background(), store.Store{ID: "store0024", Name: "Cafe"}); err != nil {
		t.Fatalf("precreate: %v", err)
	}
	svc := New(mem, "", nil)

	start := time.Now().UTC()
	end := start.Add(24 * time.Hour)

	if _, err := svc.AddEvent(context.Background(), store.Event{StoreID: "24", Title: " ", Type: store.EventDiscount, StartAt: start, EndAt: end}); err == nil {
		t.Fatalf("expected error for blank title")
	}
	if _, err := svc.AddEvent(context.Background(), store.Event{StoreID: "24", Title: "Promo", Type: "MEGA_EXP", StartAt: start, EndAt: end}); err == nil {
		t.Fatalf("expected error for unknown event type")
	}
	if _, err := svc.AddEvent(context.Background(), store.Event{StoreID: "24", Title: "Promo", Type: store.EventDiscount, StartAt: end, EndAt: start}); err == nil {
		t.Fatalf("expected error for inverted time range")
	}
	if _, err := svc.AddEvent(context.Background(), store.Event{StoreID: "99", Title: "Promo", Type: store.EventDiscount, StartAt: start, EndAt: end}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown store error = %v, want ErrNotFound", err)
	}

	// Numeric store ids normalize; a zero multiplier defaults to 1.
	created, err := svc.AddEvent(context.Background(), store.Event{StoreID: "24", Title: " Promo ", Type: store.EventDoubleExp, StartAt: start, EndAt: end})
	if err != nil {
		t.Fatalf("add event: %v", err)
	}
	if created.StoreID != "store0024" || created.Title != "Promo" || created.ExpMultiplier != 1 {
		t.Fatalf("created = %#v", created)
	}

	events, err := svc.Events(context.Background(), "24")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].ID != created.ID {
		t.Fatalf("events = %#v", events)
	}
}

func TestService_SetCoordinates(t *testing.T) {
	mem := memory.New()
	if _, err := mem.CreateStore(context.Background(), store.Store{ID: "store0001", Name: "Cafe"}); err != nil {
		t.Fatalf("precreate: %v", err)
	}
	svc := New(mem, "", nil)

	missing, err := svc.MissingCoordinates(context.Background(), 10)
	if err != nil {
		t.Fatalf("missing coordinates: %v", err)
	}
	if len(missing) != 1 {
		t.Fatalf("expected 1 unlocated store, got %d", len(missing))
	}

	updated, err := svc.SetCoordinates(context.Background(), "store0001", 37.5, 127.0)
	if err != nil {
		t.Fatalf("set coordinates: %v", err)
	}
	if !updated.HasCoordinates() {
		t.Fatalf("coordinates not applied: %#v", updated)
	}

	missing, err = svc.MissingCoordinates(context.Background(), 10)
	if err != nil {
		t.Fatalf("missing coordinates after update: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("store still reported unlocated")
	}
}
