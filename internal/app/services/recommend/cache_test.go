package recommend

import (
	"strings"
	"testing"

	recdomain "github.com/stamp-ai/recommender/internal/app/domain/recommend"
)

func TestCacheKey(t *testing.T) {
	base := recdomain.Request{
		UserID:   "u1",
		Location: recdomain.Location{Latitude: 37.5665, Longitude: 126.9780},
	}

	key, err := cacheKey(base)
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	if !strings.HasPrefix(key, "rec:u1:") {
		t.Fatalf("key = %q, want rec:u1: prefix", key)
	}

	again, err := cacheKey(base)
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	if key != again {
		t.Fatalf("key not deterministic: %q vs %q", key, again)
	}

	moved := base
	moved.Location.Latitude = 37.4979
	movedKey, err := cacheKey(moved)
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	if movedKey == key {
		t.Fatalf("different locations must yield different keys")
	}

	withCandidates := base
	withCandidates.EventStores = []recdomain.EventCandidate{{StoreID: "1", ExpMultiplier: 2}}
	candidateKey, err := cacheKey(withCandidates)
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	if candidateKey == key {
		t.Fatalf("different candidate lists must yield different keys")
	}
}
