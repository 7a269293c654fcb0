package cf

import (
	"math"
	"testing"

	"github.com/stamp-ai/recommender/internal/app/domain/visit"
)

func TestNewModel_Empty(t *testing.T) {
	if m := NewModel(nil); m != nil {
		t.Fatalf("expected nil model for no visits")
	}

	var m *Model
	if got := m.SimilarUsers("u1", 5); got != nil {
		t.Fatalf("nil model SimilarUsers = %v, want nil", got)
	}
	if got := m.Recommend("u1", 5); got != nil {
		t.Fatalf("nil model Recommend = %v, want nil", got)
	}
	if stats := m.Stats(); stats.Trained {
		t.Fatalf("nil model reports trained")
	}
}

func TestModel_SimilarUsers(t *testing.T) {
	m := NewModel([]visit.Visit{
		{UserID: "u1", StoreID: "s1", VisitCount: 5},
		{UserID: "u1", StoreID: "s2", VisitCount: 3},
		{UserID: "u2", StoreID: "s1", VisitCount: 4},
		{UserID: "u2", StoreID: "s2", VisitCount: 2},
		{UserID: "u3", StoreID: "s3", VisitCount: 10},
	})

	similar := m.SimilarUsers("u1", 5)
	if len(similar) != 2 {
		t.Fatalf("expected 2 neighbours, got %d", len(similar))
	}
	if similar[0].UserID != "u2" {
		t.Fatalf("closest neighbour = %s, want u2", similar[0].UserID)
	}
	if similar[0].Similarity < 0.9 {
		t.Fatalf("u2 similarity = %v, want > 0.9", similar[0].Similarity)
	}
	// u3 shares no stores with u1.
	if similar[1].UserID != "u3" || similar[1].Similarity != 0 {
		t.Fatalf("disjoint neighbour = %#v, want u3 with similarity 0", similar[1])
	}

	if got := m.SimilarUsers("ghost", 5); got != nil {
		t.Fatalf("unknown user SimilarUsers = %v, want nil", got)
	}

	if got := m.SimilarUsers("u1", 1); len(got) != 1 {
		t.Fatalf("limit not applied: %d neighbours", len(got))
	}
}

func TestModel_Recommend(t *testing.T) {
	m := NewModel([]visit.Visit{
		{UserID: "u1", StoreID: "s1", VisitCount: 5},
		{UserID: "u2", StoreID: "s1", VisitCount: 4},
		{UserID: "u2", StoreID: "s2", VisitCount: 2},
	})

	recs := m.Recommend("u1", 5)
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	// s1 is already visited, so only s2 can be predicted, and the
	// similarity-weighted average of a single neighbour is its raw count.
	if recs[0].StoreID != "s2" {
		t.Fatalf("recommended = %s, want s2", recs[0].StoreID)
	}
	if math.Abs(recs[0].Score-2) > 1e-9 {
		t.Fatalf("predicted score = %v, want 2", recs[0].Score)
	}
}

func TestModel_Recommend_ColdStartFallback(t *testing.T) {
	m := NewModel([]visit.Visit{
		{UserID: "u1", StoreID: "s1", VisitCount: 5},
		{UserID: "u2", StoreID: "s1", VisitCount: 4},
		{UserID: "u2", StoreID: "s2", VisitCount: 2},
	})

	recs := m.Recommend("ghost", 5)
	if len(recs) != 2 {
		t.Fatalf("expected popularity fallback with 2 stores, got %d", len(recs))
	}
	if recs[0].StoreID != "s1" || recs[0].Score != 9 {
		t.Fatalf("most popular = %#v, want s1 with 9 total visits", recs[0])
	}

	// A single-user matrix cannot form neighbourhoods either.
	single := NewModel([]visit.Visit{{UserID: "u1", StoreID: "s1", VisitCount: 3}})
	recs = single.Recommend("u1", 5)
	if len(recs) != 1 || recs[0].StoreID != "s1" {
		t.Fatalf("single-user fallback = %#v", recs)
	}
}

func TestModel_Stats(t *testing.T) {
	m := NewModel([]visit.Visit{
		{UserID: "u1", StoreID: "s1", VisitCount: 5},
		{UserID: "u1", StoreID: "s2", VisitCount: 3},
		{UserID: "u2", StoreID: "s1", VisitCount: 3},
	})

	stats := m.Stats()
	if !stats.Trained {
		t.Fatalf("stats not marked trained")
	}
	if stats.Users != 2 || stats.Stores != 2 {
		t.Fatalf("dimensions = %dx%d, want 2x2", stats.Users, stats.Stores)
	}
	if stats.TotalVisits != 11 {
		t.Fatalf("total visits = %d, want 11", stats.TotalVisits)
	}
	// 3 of 4 cells filled.
	if stats.SparsityPercent != 25 {
		t.Fatalf("sparsity = %v, want 25", stats.SparsityPercent)
	}
	if stats.AvgVisitsPerUser != 5.5 {
		t.Fatalf("avg visits per user = %v, want 5.5", stats.AvgVisitsPerUser)
	}
}

func TestModel_AccumulatesDuplicatePairs(t *testing.T) {
	m := NewModel([]visit.Visit{
		{UserID: "u1", StoreID: "s1", VisitCount: 2},
		{UserID: "u1", StoreID: "s1", VisitCount: 3},
	})
	if stats := m.Stats(); stats.TotalVisits != 5 {
		t.Fatalf("accumulated visits = %d, want 5", stats.TotalVisits)
	}
}
