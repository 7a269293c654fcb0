package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Store is a catalog entry for a participating shop.
type Store struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	Address     string     `json:"address"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Rating      float64    `json:"rating"`
	ReviewCount int        `json:"review_count"`
	IsNew       bool       `json:"is_new"`
	OpenedAt    *time.Time `json:"opened_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// HasCoordinates reports whether the store carries a usable location.
func (s Store) HasCoordinates() bool {
	return s.Latitude != 0 || s.Longitude != 0
}

// EventType classifies a promotional event.
type EventType string

const (
	EventDoubleExp  EventType = "DOUBLE_EXP"
	EventTripleExp  EventType = "TRIPLE_EXP"
	EventBonusStamp EventType = "BONUS_STAMP"
	EventDiscount   EventType = "DISCOUNT"
	EventFreeItem   EventType = "FREE_ITEM"
)

// Event is a promotional event attached to a store.
type Event struct {
	ID            string    `json:"id"`
	StoreID       string    `json:"store_id"`
	Type          EventType `json:"type"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	ExpMultiplier float64   `json:"exp_multiplier"`
}

// Active reports whether the event is running at the given time.
func (e Event) Active(now time.Time) bool {
	return !now.Before(e.StartAt) && !now.After(e.EndAt)
}

// ValidEventType reports whether t is one of the known promotion kinds.
func ValidEventType(t EventType) bool {
	switch t {
	case EventDoubleExp, EventTripleExp, EventBonusStamp, EventDiscount, EventFreeItem:
		return true
	}
	return false
}

// NormalizeID maps an upstream numeric store id onto the catalog id form,
// e.g. "24" becomes "store0024". Identifiers already in catalog form pass
// through unchanged.
func NormalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("store id is required")
	}
	if strings.HasPrefix(id, "store") {
		return id, nil
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return "", fmt.Errorf("store id %q is neither numeric nor catalog form", id)
	}
	return fmt.Sprintf("store%04d", n), nil
}
