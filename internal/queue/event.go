// Package queue defines message payloads exchanged over the message broker
// plus the publisher and background consumer for contribution events.
package queue

// ContributionRecordedEvent is published when a citizen rates or reviews a
// road.  It carries enough information for downstream consumers to log,
// notify, or feed analytics without querying the primary database.
type ContributionRecordedEvent struct {
	UserID     uint64   `json:"user_id"`
	UserName   string   `json:"user_name"`
	RoadID     uint64   `json:"road_id"`
	Kind       string   `json:"kind"` // "rating" or "review"
	Rating     *float64 `json:"rating,omitempty"`
	Location   string   `json:"location,omitempty"`
	RecordedAt string   `json:"recorded_at"`
}
