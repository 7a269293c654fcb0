package recommend

import "time"

// Category names for the four recommendation sections. Section order in a
// response is fixed: event, new, popular, nearby.
const (
	CategoryEvent   = "event"
	CategoryNew     = "new"
	CategoryPopular = "popular"
	CategoryNearby  = "nearby"
)

// Location is a user position in WGS84 degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// EventCandidate references a store running an experience-multiplier event.
type EventCandidate struct {
	StoreID       string  `json:"store_id"`
	ExpMultiplier float64 `json:"exp_multiplier"`
}

// NewCandidate references a recently joined store.
type NewCandidate struct {
	StoreID  string    `json:"store_id"`
	JoinedAt time.Time `json:"joined_date"`
}

// PopularCandidate references a frequently visited store.
type PopularCandidate struct {
	StoreID    string `json:"store_id"`
	VisitCount int    `json:"visit_count"`
}

// Request is the recommendation request supplied by the upstream backend.
type Request struct {
	UserID        string             `json:"user_id"`
	Location      Location           `json:"location"`
	EventStores   []EventCandidate   `json:"event_stores"`
	NewStores     []NewCandidate     `json:"new_stores"`
	PopularStores []PopularCandidate `json:"popular_stores"`
}

// StoreInfo is a ranked store within a category section.
type StoreInfo struct {
	StoreID    string   `json:"store_id"`
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Address    string   `json:"address"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	DistanceKM float64  `json:"distance_km"`
	Rating     float64  `json:"rating"`
	Score      float64  `json:"recommendation_score"`
	Reasons    []string `json:"recommendation_reason"`
}

// Section is one category of recommended stores, at most two entries.
type Section struct {
	Category string      `json:"category"`
	Stores   []StoreInfo `json:"stores"`
}

// Response is the full recommendation answer for a user.
type Response struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message,omitempty"`
	UserID   string    `json:"user_id"`
	Sections []Section `json:"recommendations"`
}
