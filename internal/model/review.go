package model

import "time"

// Review mirrors the `reviews` table.  Media holds the storage-relative path
// of an uploaded photo or video, Tags a comma-separated list supplied by the
// citizen.  Both are optional.
type Review struct {
	ID        uint64    // reviews.id
	RoadID    uint64    // reviews.road_id
	UserID    uint64    // reviews.user_id
	Media     *string   // reviews.media (nullable)
	Tags      *string   // reviews.tags (nullable)
	CreatedAt time.Time // reviews.created_at
}
