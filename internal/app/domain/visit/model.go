package visit

import "time"

// Visit records how many times a user visited a store. One row exists per
// (user, store) pair; recording again accumulates the count.
type Visit struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	StoreID    string    `json:"store_id"`
	VisitCount int       `json:"visit_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
