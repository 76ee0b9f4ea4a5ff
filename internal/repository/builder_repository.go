package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/civictrack/road-registry/internal/model"
)

// ErrBuilderNotFound is returned when a builder cannot be found in the DB.
var ErrBuilderNotFound = errors.New("builder not found")

// BuilderRepo encapsulates database queries for road-construction builders.
type BuilderRepo struct {
	db *sql.DB
}

func NewBuilderRepo(db *sql.DB) *BuilderRepo { return &BuilderRepo{db: db} }

// GetByID fetches a builder by id, returning ErrBuilderNotFound when absent.
func (r *BuilderRepo) GetByID(ctx context.Context, id uint64) (*model.Builder, error) {
	const q = "SELECT id, name, average_rating, total_projects, hyperlink FROM builders WHERE id = ?"
	var b model.Builder
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&b.ID, &b.Name, &b.AverageRating, &b.TotalProjects, &b.Hyperlink)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBuilderNotFound
		}
		return nil, err
	}
	return &b, nil
}

// RefreshStats recomputes the builder's denormalized average rating and
// project count from the roads and ratings tables.  Called after road
// creation; losing the update is harmless because the columns are
// recomputable.
func (r *BuilderRepo) RefreshStats(ctx context.Context, id uint64) error {
	const q = `UPDATE builders b SET
		b.total_projects = (SELECT COUNT(*) FROM roads r WHERE r.builder_id = b.id),
		b.average_rating = COALESCE((
			SELECT ROUND(AVG(rt.rating), 2) FROM ratings rt
			JOIN roads r ON r.id = rt.road_id
			WHERE r.builder_id = b.id), 0)
	WHERE b.id = ?`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
