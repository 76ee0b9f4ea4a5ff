package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/civictrack/road-registry/internal/model"
)

// RatingRepo persists citizen ratings in the 'ratings' table.  It keeps a
// RoadRepo reference for road existence checks.
type RatingRepo struct {
	db    *sql.DB
	roads *RoadRepo
}

func NewRatingRepo(db *sql.DB, roads *RoadRepo) *RatingRepo {
	return &RatingRepo{db: db, roads: roads}
}

// Create inserts a rating and bumps the author's contribution counter in the
// same transaction.  ErrRoadNotFound is returned for an unknown road and
// ErrConflict when the user has already rated it; a citizen rates a given
// road at most once.
func (r *RatingRepo) Create(ctx context.Context, rt *model.Rating) error {
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

	if err = roadExists(ctx, tx, rt.RoadID); err != nil {
		return err
	}
	var one int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM ratings WHERE road_id = ? AND user_id = ?", rt.RoadID, rt.UserID).Scan(&one)
	if err == nil {
		err = ErrConflict
		return err
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	err = nil

	var res sql.Result
	res, err = tx.ExecContext(ctx,
		"INSERT INTO ratings (road_id, user_id, rating, location) VALUES (?,?,?,?)",
		rt.RoadID, rt.UserID, rt.Rating, rt.Location)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	rt.ID = uint64(id)

	if _, err = tx.ExecContext(ctx,
		"UPDATE users SET total_contributions = total_contributions + 1 WHERE id = ?",
		rt.UserID); err != nil {
		return err
	}
	return tx.QueryRowContext(ctx,
		"SELECT created_at FROM ratings WHERE id = ?", rt.ID).Scan(&rt.CreatedAt)
}

// ListByRoad returns all ratings for a road ordered by creation time.
// ErrRoadNotFound is returned when the road itself does not exist.
func (r *RatingRepo) ListByRoad(ctx context.Context, roadID uint64) ([]*model.Rating, error) {
	if err := r.roads.Exists(ctx, roadID); err != nil {
		return nil, err
	}

	const q = "SELECT id, road_id, user_id, rating, location, created_at FROM ratings WHERE road_id = ? ORDER BY created_at"
	rows, err := r.db.QueryContext(ctx, q, roadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Rating
	for rows.Next() {
		rt := new(model.Rating)
		if err := rows.Scan(&rt.ID, &rt.RoadID, &rt.UserID, &rt.Rating, &rt.Location, &rt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
