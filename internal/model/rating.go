package model

import "time"

// Rating mirrors the `ratings` table.  A citizen may rate a given road at
// most once; the value is a 0.0–5.0 score with one decimal place, stored as
// DECIMAL(2,1) and carried as float64.
type Rating struct {
	ID        uint64    // ratings.id
	RoadID    uint64    // ratings.road_id
	UserID    uint64    // ratings.user_id
	Rating    float64   // ratings.rating
	Location  string    // ratings.location (free-form place description)
	CreatedAt time.Time // ratings.created_at
}
