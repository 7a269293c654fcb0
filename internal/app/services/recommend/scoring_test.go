package recommend

import (
	"math"
	"testing"
	"time"

	"github.com/stamp-ai/recommender/internal/app/domain/store"
)

func TestHaversineKM(t *testing.T) {
	if d := HaversineKM(37.5665, 126.9780, 37.5665, 126.9780); d != 0 {
		t.Fatalf("same point distance = %v, want 0", d)
	}
	// One degree of latitude is about 111.19 km.
	if d := HaversineKM(0, 0, 1, 0); math.Abs(d-111.19) > 0.01 {
		t.Fatalf("one degree latitude = %v, want ~111.19", d)
	}
	if d := HaversineKM(37.5665, 126.9780, 37.4979, 127.0276); d <= 0 || d >= 15 {
		t.Fatalf("seoul city hall to gangnam = %v, expected a single-digit km range", d)
	}
}

func TestDistanceScore(t *testing.T) {
	if s := DistanceScore(0, 5); s != 30 {
		t.Fatalf("zero distance = %v, want 30", s)
	}
	if s := DistanceScore(2.5, 5); s != 15 {
		t.Fatalf("half distance = %v, want 15", s)
	}
	if s := DistanceScore(5, 5); s != 0 {
		t.Fatalf("max distance = %v, want 0", s)
	}
	if s := DistanceScore(10, 5); s != 0 {
		t.Fatalf("beyond max = %v, want 0", s)
	}
	// Non-positive maxKM falls back to the 5 km default.
	if s := DistanceScore(2.5, 0); s != 15 {
		t.Fatalf("default max = %v, want 15", s)
	}
}

func TestRatingScore(t *testing.T) {
	// Five stars with 99 reviews maxes both components.
	if s := RatingScore(5, 99); s != 20 {
		t.Fatalf("max score = %v, want 20", s)
	}
	if s := RatingScore(5, 0); s != 15 {
		t.Fatalf("no reviews = %v, want 15", s)
	}
	if s := RatingScore(0, 0); s != 0 {
		t.Fatalf("empty rating = %v, want 0", s)
	}
	if s := RatingScore(4, 10000); s != 17 {
		t.Fatalf("review bonus must cap at 5: got %v, want 17", s)
	}
}

func TestEventScore(t *testing.T) {
	now := time.Now()
	active := func(typ store.EventType, multiplier float64) store.Event {
		return store.Event{
			Type:          typ,
			StartAt:       now.Add(-time.Hour),
			EndAt:         now.Add(time.Hour),
			ExpMultiplier: multiplier,
		}
	}

	if s := EventScore(nil, now); s != 0 {
		t.Fatalf("no events = %v, want 0", s)
	}

	// 2x double-exp: base 15 with a 1.0 multiplier bonus.
	if s := EventScore([]store.Event{active(store.EventDoubleExp, 2)}, now); s != 15 {
		t.Fatalf("double exp = %v, want 15", s)
	}

	// 3x triple-exp hits the 1.5 bonus and the 30 point cap.
	if s := EventScore([]store.Event{active(store.EventTripleExp, 3)}, now); s != 30 {
		t.Fatalf("triple exp = %v, want 30", s)
	}

	// Unknown types score the 5 point base.
	if s := EventScore([]store.Event{active(store.EventType("MYSTERY"), 0)}, now); s != 5 {
		t.Fatalf("unknown type = %v, want 5", s)
	}

	expired := store.Event{
		Type:    store.EventDiscount,
		StartAt: now.Add(-2 * time.Hour),
		EndAt:   now.Add(-time.Hour),
	}
	if s := EventScore([]store.Event{expired}, now); s != 0 {
		t.Fatalf("expired event = %v, want 0", s)
	}
}

func TestNewStoreScore(t *testing.T) {
	now := time.Now()
	openedToday := now.Add(-time.Hour)
	opened15d := now.Add(-15 * 24 * time.Hour)
	opened40d := now.Add(-40 * 24 * time.Hour)

	if s := NewStoreScore(true, &openedToday, now); s != 20 {
		t.Fatalf("opened today = %v, want 20", s)
	}
	if s := NewStoreScore(true, &opened15d, now); s != 10 {
		t.Fatalf("opened 15 days ago = %v, want 10", s)
	}
	if s := NewStoreScore(true, &opened40d, now); s != 0 {
		t.Fatalf("opened 40 days ago = %v, want 0", s)
	}
	if s := NewStoreScore(false, &openedToday, now); s != 0 {
		t.Fatalf("not flagged new = %v, want 0", s)
	}
	if s := NewStoreScore(true, nil, now); s != 0 {
		t.Fatalf("missing opening date = %v, want 0", s)
	}
}

func TestCompositeScore(t *testing.T) {
	now := time.Now()
	opened := now.Add(-time.Hour)
	st := store.Store{Rating: 5, ReviewCount: 99, IsNew: true, OpenedAt: &opened}
	events := []store.Event{{
		Type:          store.EventTripleExp,
		StartAt:       now.Add(-time.Hour),
		EndAt:         now.Add(time.Hour),
		ExpMultiplier: 3,
	}}

	b := CompositeScore(0, st, events, now)
	if b.Distance != 30 || b.Rating != 20 || b.Event != 30 || b.NewStore != 20 {
		t.Fatalf("unexpected breakdown: %#v", b)
	}
	if b.Total != 100 {
		t.Fatalf("total = %v, want 100", b.Total)
	}
}
