package cf

import (
	"context"
	"testing"
	"time"

	"github.com/stamp-ai/recommender/internal/app/storage/memory"
)

func seedVisits(t *testing.T, store *memory.Store) {
	t.Helper()
	records := []struct {
		user, storeID string
		count         int
	}{
		{"u1", "store0001", 5},
		{"u1", "store0002", 3},
		{"u2", "store0001", 4},
		{"u3", "store0003", 7},
	}
	for _, r := range records {
		if _, err := store.RecordVisit(context.Background(), r.user, r.storeID, r.count); err != nil {
			t.Fatalf("record visit %s/%s: %v", r.user, r.storeID, err)
		}
	}
}

func TestService_TrainAndStats(t *testing.T) {
	store := memory.New()
	seedVisits(t, store)

	svc := New(store, nil)
	if err := svc.Train(context.Background()); err != nil {
		t.Fatalf("train: %v", err)
	}

	stats := svc.Stats(context.Background())
	if !stats.Trained {
		t.Fatalf("model not trained")
	}
	if stats.Users != 3 || stats.Stores != 3 {
		t.Fatalf("dimensions = %dx%d, want 3x3", stats.Users, stats.Stores)
	}
}

func TestService_TrainsOnDemand(t *testing.T) {
	store := memory.New()
	seedVisits(t, store)

	svc := New(store, nil)
	// No explicit Train call: the first read triggers one.
	similar := svc.SimilarUsers(context.Background(), "u1", 0)
	if len(similar) == 0 {
		t.Fatalf("expected neighbours from on-demand training")
	}
	if similar[0].UserID != "u2" {
		t.Fatalf("closest neighbour = %s, want u2", similar[0].UserID)
	}
}

func TestService_RecommendEmptyStore(t *testing.T) {
	svc := New(memory.New(), nil)
	if recs := svc.Recommend(context.Background(), "u1", 0); recs != nil {
		t.Fatalf("empty store recommendations = %v, want nil", recs)
	}
	if stats := svc.Stats(context.Background()); stats.Trained {
		t.Fatalf("empty store reports trained model")
	}
}

func TestService_RetrainPicksUpNewVisits(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	if _, err := store.RecordVisit(context.Background(), "u1", "store0001", 1); err != nil {
		t.Fatalf("record visit: %v", err)
	}
	if err := svc.Train(context.Background()); err != nil {
		t.Fatalf("first train: %v", err)
	}
	if stats := svc.Stats(context.Background()); stats.Users != 1 {
		t.Fatalf("users = %d, want 1", stats.Users)
	}

	if _, err := store.RecordVisit(context.Background(), "u2", "store0002", 1); err != nil {
		t.Fatalf("record visit: %v", err)
	}
	if err := svc.Train(context.Background()); err != nil {
		t.Fatalf("second train: %v", err)
	}
	if stats := svc.Stats(context.Background()); stats.Users != 2 {
		t.Fatalf("users after retrain = %d, want 2", stats.Users)
	}
}

func TestTrainer_ScheduleValidation(t *testing.T) {
	svc := New(memory.New(), nil)

	if _, err := NewTrainer(svc, "not a schedule", nil); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
	if _, err := NewTrainer(svc, "@every 1h", nil); err != nil {
		t.Fatalf("interval schedule rejected: %v", err)
	}
	if _, err := NewTrainer(svc, "*/5 * * * *", nil); err != nil {
		t.Fatalf("cron schedule rejected: %v", err)
	}
	if _, err := NewTrainer(svc, "", nil); err != nil {
		t.Fatalf("default schedule rejected: %v", err)
	}
}

func TestTrainer_StartStop(t *testing.T) {
	store := memory.New()
	seedVisits(t, store)
	svc := New(store, nil)

	trainer, err := NewTrainer(svc, "@every 1h", nil)
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	if trainer.Name() != "cf-trainer" {
		t.Fatalf("unexpected name %q", trainer.Name())
	}

	ctx := context.Background()
	if err := trainer.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Second start is a no-op.
	if err := trainer.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := trainer.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := trainer.Stop(stopCtx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
