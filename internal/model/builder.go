package model

// Builder mirrors the `builders` table.  AverageRating is denormalized from
// the ratings of the builder's roads and refreshed opportunistically; the
// authoritative value is always the AVG over ratings.
type Builder struct {
	ID            uint64  // builders.id
	Name          string  // builders.name
	AverageRating float64 // builders.average_rating
	TotalProjects int     // builders.total_projects
	Hyperlink     *string // builders.hyperlink (nullable)
}
