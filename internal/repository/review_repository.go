package repository

import (
	"context"
	"database/sql"

	"github.com/civictrack/road-registry/internal/model"
)

// ReviewRepo persists citizen reviews in the 'reviews' table.  It keeps a
// RoadRepo reference for road existence checks.
type ReviewRepo struct {
	db    *sql.DB
	roads *RoadRepo
}

func NewReviewRepo(db *sql.DB, roads *RoadRepo) *ReviewRepo {
	return &ReviewRepo{db: db, roads: roads}
}

// Create inserts a review and bumps the author's contribution counter in the
// same transaction.  ErrRoadNotFound is returned for an unknown road.
// Unlike ratings, a citizen may review the same road repeatedly.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	if err = roadExists(ctx, tx, rv.RoadID); err != nil {
		return err
	}

	var res sql.Result
	res, err = tx.ExecContext(ctx,
		"INSERT INTO reviews (road_id, user_id, media, tags) VALUES (?,?,?,?)",
		rv.RoadID, rv.UserID, rv.Media, rv.Tags)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	rv.ID = uint64(id)

	if _, err = tx.ExecContext(ctx,
		"UPDATE users SET total_contributions = total_contributions + 1 WHERE id = ?",
		rv.UserID); err != nil {
		return err
	}
	return tx.QueryRowContext(ctx,
		"SELECT created_at FROM reviews WHERE id = ?", rv.ID).Scan(&rv.CreatedAt)
}

// ListByRoad returns all reviews for a road ordered by creation time.
// ErrRoadNotFound is returned when the road itself does not exist.
func (r *ReviewRepo) ListByRoad(ctx context.Context, roadID uint64) ([]*model.Review, error) {
	if err := r.roads.Exists(ctx, roadID); err != nil {
		return nil, err
	}

	const q = "SELECT id, road_id, user_id, media, tags, created_at FROM reviews WHERE road_id = ? ORDER BY created_at"
	rows, err := r.db.QueryContext(ctx, q, roadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Review
	for rows.Next() {
		rv := new(model.Review)
		if err := rows.Scan(&rv.ID, &rv.RoadID, &rv.UserID, &rv.Media, &rv.Tags, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
