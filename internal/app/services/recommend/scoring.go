package recommend

import (
	"math"
	"time"

	"github.com/stamp-ai/recommender/internal/app/domain/store"
)

const (
	earthRadiusKM        = 6371.0
	defaultMaxDistanceKM = 5.0
)

// HaversineKM returns the great-circle distance between two points in
// kilometres, rounded to two decimals.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	lat1R := lat1 * math.Pi / 180
	lon1R := lon1 * math.Pi / 180
	lat2R := lat2 * math.Pi / 180
	lon2R := lon2 * math.Pi / 180

	dLat := lat2R - lat1R
	dLon := lon2R - lon1R

	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1R)*math.Cos(lat2R)*math.Pow(math.Sin(dLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return round2(earthRadiusKM * c)
}

// DistanceScore rewards proximity: 30 points at zero distance falling
// linearly to 0 at maxKM.
func DistanceScore(distanceKM, maxKM float64) float64 {
	if maxKM <= 0 {
		maxKM = defaultMaxDistanceKM
	}
	if distanceKM >= maxKM {
		return 0
	}
	return round2(30 * (1 - distanceKM/maxKM))
}

// RatingScore combines the star rating (up to 15 points) with a review-count
// confidence bonus (up to 5 points, logarithmic).
func RatingScore(rating float64, reviewCount int) float64 {
	ratingScore := (rating / 5.0) * 15
	reviewScore := math.Min(5, math.Log(float64(reviewCount)+1)/math.Log(100)*5)
	return round2(ratingScore + reviewScore)
}

var eventTypeScores = map[store.EventType]float64{
	store.EventDoubleExp:  15,
	store.EventTripleExp:  20,
	store.EventBonusStamp: 10,
	store.EventDiscount:   8,
	store.EventFreeItem:   12,
}

// EventScore sums points for events active at now, capped at 30. Experience
// multipliers add up to a 1.5x bonus per event.
func EventScore(events []store.Event, now time.Time) float64 {
	if len(events) == 0 {
		return 0
	}
	total := 0.0
	for _, ev := range events {
		if !ev.Active(now) {
			continue
		}
		base, ok := eventTypeScores[ev.Type]
		if !ok {
			base = 5
		}
		if ev.ExpMultiplier > 0 {
			base *= math.Min(ev.ExpMultiplier/2, 1.5)
		}
		total += base
	}
	return round2(math.Min(total, 30))
}

// NewStoreScore rewards recently opened stores: 20 points on opening day
// falling linearly to 0 after 30 days.
func NewStoreScore(isNew bool, openedAt *time.Time, now time.Time) float64 {
	if !isNew || openedAt == nil {
		return 0
	}
	days := int(now.Sub(*openedAt).Hours() / 24)
	if days < 0 || days > 30 {
		return 0
	}
	return round2(20 * (1 - float64(days)/30))
}

// ScoreBreakdown is the composite recommendation score with its components.
type ScoreBreakdown struct {
	Total    float64 `json:"total"`
	Distance float64 `json:"distance"`
	Rating   float64 `json:"rating"`
	Event    float64 `json:"event"`
	NewStore float64 `json:"new_store"`
}

// CompositeScore computes the full breakdown for a store at the given
// distance.
func CompositeScore(distanceKM float64, st store.Store, events []store.Event, now time.Time) ScoreBreakdown {
	b := ScoreBreakdown{
		Distance: DistanceScore(distanceKM, defaultMaxDistanceKM),
		Rating:   RatingScore(st.Rating, st.ReviewCount),
		Event:    EventScore(events, now),
		NewStore: NewStoreScore(st.IsNew, st.OpenedAt, now),
	}
	b.Total = round2(b.Distance + b.Rating + b.Event + b.NewStore)
	return b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
