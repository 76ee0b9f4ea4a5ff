// This file defines repository methods for roads: creation by a manager,
// detail lookups with aggregated rating data, listings for inspectors and
// builders, and the guarded update a builder performs when assigning a chief
// engineer or changing construction status.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/civictrack/road-registry/internal/model"
)

// ErrRoadNotFound is returned when a road cannot be found in the DB.
var ErrRoadNotFound = errors.New("road not found")

// RoadRepo encapsulates all database queries related to roads.
type RoadRepo struct {
	db *sql.DB
}

// NewRoadRepo constructs a RoadRepo with the provided DB handle, allowing
// dependency injection of the database in tests and at startup.
func NewRoadRepo(db *sql.DB) *RoadRepo {
	return &RoadRepo{db: db}
}

// RoadDetail is a road joined with the names of the parties responsible for
// it and the aggregated citizen feedback.  AverageRating is nil when the
// road has no ratings yet.
type RoadDetail struct {
	model.Road
	BuilderName    string
	MaintainerName string
	EmployeeName   string
	AverageRating  *float64
	TotalRatings   int
	TotalReviews   int
}

// RoadSummary is the listing projection used for inspector and builder
// views; it carries the average rating but skips the joined names.
type RoadSummary struct {
	model.Road
	AverageRating *float64
}

const roadColumns = "r.id, r.coordinates, r.cost, r.started_date, r.ended_date, r.builder_id, r.employee_id, r.maintained_by, r.chief_engineer, r.date_verified, r.status, r.created_at, r.updated_at"

// Create inserts a new road. On success the road's ID field is populated
// with the auto-generated value and the row timestamps are read back so
// callers receive a fully populated record.
func (r *RoadRepo) Create(ctx context.Context, road *model.Road) error {
	const qInsert = `INSERT INTO roads
		(coordinates, cost, started_date, ended_date, builder_id, employee_id, maintained_by, chief_engineer, date_verified, status)
		VALUES (?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, qInsert,
		road.Coordinates, road.Cost, road.StartedDate, road.EndedDate,
		road.BuilderID, road.EmployeeID, road.MaintainedBy,
		road.ChiefEngineer, road.DateVerified, road.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	road.ID = uint64(id)

	const qSelect = "SELECT created_at, updated_at FROM roads WHERE id = ?"
	return r.db.QueryRowContext(ctx, qSelect, road.ID).Scan(&road.CreatedAt, &road.UpdatedAt)
}

// Detail fetches a road together with builder/maintainer/employee names, the
// one-decimal average rating and the rating/review counts.  The aggregation
// happens in SQL so the handler never loads every rating row.
func (r *RoadRepo) Detail(ctx context.Context, id uint64) (*RoadDetail, error) {
	const q = `SELECT ` + roadColumns + `,
		b.name, m.name, u.name,
		(SELECT ROUND(AVG(rt.rating), 1) FROM ratings rt WHERE rt.road_id = r.id),
		(SELECT COUNT(*) FROM ratings rt WHERE rt.road_id = r.id),
		(SELECT COUNT(*) FROM reviews rv WHERE rv.road_id = r.id)
	FROM roads r
	JOIN builders b ON b.id = r.builder_id
	JOIN builders m ON m.id = r.maintained_by
	JOIN users u ON u.id = r.employee_id
	WHERE r.id = ?`

	var (
		d   RoadDetail
		avg sql.NullFloat64
	)
	row := r.db.QueryRowContext(ctx, q, id)
	err := scanRoad(func(dest ...any) error {
		dest = append(dest, &d.BuilderName, &d.MaintainerName, &d.EmployeeName,
			&avg, &d.TotalRatings, &d.TotalReviews)
		return row.Scan(dest...)
	}, &d.Road)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoadNotFound
		}
		return nil, err
	}
	if avg.Valid {
		d.AverageRating = &avg.Float64
	}
	return &d, nil
}

// ListByEmployee returns the roads assigned to a government employee
// (manager or inspector) ordered by id.
func (r *RoadRepo) ListByEmployee(ctx context.Context, employeeID uint64) ([]*RoadSummary, error) {
	const q = `SELECT ` + roadColumns + `,
		(SELECT ROUND(AVG(rt.rating), 1) FROM ratings rt WHERE rt.road_id = r.id)
	FROM roads r WHERE r.employee_id = ? ORDER BY r.id`
	return r.listSummaries(ctx, q, employeeID)
}

// ListByBuilder returns roads the builder either constructed or maintains,
// each with its current average rating.
func (r *RoadRepo) ListByBuilder(ctx context.Context, builderID uint64) ([]*RoadSummary, error) {
	const q = `SELECT ` + roadColumns + `,
		(SELECT ROUND(AVG(rt.rating), 1) FROM ratings rt WHERE rt.road_id = r.id)
	FROM roads r WHERE r.builder_id = ? OR r.maintained_by = ? ORDER BY r.id`
	return r.listSummaries(ctx, q, builderID, builderID)
}

// BuilderRoadUpdate carries the optional fields a builder may change on a
// road it owns or maintains.  Nil fields are left untouched.
type BuilderRoadUpdate struct {
	ChiefEngineer *string
	Status        *string
	DateVerified  *time.Time
}

// UpdateByBuilder applies upd to the road provided the builder constructed
// or maintains it.  ErrRoadNotFound is returned for an unknown road and
// ErrForbidden when the builder has no claim on it.  The ownership check and
// update run in one transaction so a concurrent reassignment cannot slip
// between them.
func (r *RoadRepo) UpdateByBuilder(ctx context.Context, roadID, builderID uint64, upd BuilderRoadUpdate) (*model.Road, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	var ownerID, maintainerID uint64
	err = tx.QueryRowContext(ctx,
		"SELECT builder_id, maintained_by FROM roads WHERE id = ?", roadID).
		Scan(&ownerID, &maintainerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrRoadNotFound
		}
		return nil, err
	}
	if builderID != ownerID && builderID != maintainerID {
		err = ErrForbidden
		return nil, err
	}

	set := ""
	args := []any{}
	if upd.ChiefEngineer != nil {
		set += "chief_engineer = ?, "
		args = append(args, *upd.ChiefEngineer)
	}
	if upd.Status != nil {
		set += "status = ?, "
		args = append(args, *upd.Status)
	}
	if upd.DateVerified != nil {
		set += "date_verified = ?, "
		args = append(args, *upd.DateVerified)
	}
	args = append(args, roadID)
	if _, err = tx.ExecContext(ctx,
		"UPDATE roads SET "+set+"updated_at = CURRENT_TIMESTAMP WHERE id = ?", args...); err != nil {
		return nil, err
	}

	var road model.Road
	if err = scanRoad(tx.QueryRowContext(ctx,
		"SELECT "+roadColumns+" FROM roads r WHERE r.id = ?", roadID).Scan, &road); err != nil {
		return nil, err
	}
	return &road, nil
}

// Exists verifies that a road row exists, returning ErrRoadNotFound when it
// does not; the rating and review repositories call it before reading or
// inserting feedback.
func (r *RoadRepo) Exists(ctx context.Context, id uint64) error {
	return roadExists(ctx, r.db, id)
}

// rowQuerier is satisfied by *sql.DB and *sql.Tx, so existence checks can run
// both standalone and inside a feedback-insert transaction.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func roadExists(ctx context.Context, q rowQuerier, id uint64) error {
	var one int
	if err := q.QueryRowContext(ctx, "SELECT 1 FROM roads WHERE id = ?", id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoadNotFound
		}
		return err
	}
	return nil
}

func (r *RoadRepo) listSummaries(ctx context.Context, q string, args ...any) ([]*RoadSummary, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*RoadSummary
	for rows.Next() {
		s := new(RoadSummary)
		var avg sql.NullFloat64
		err := scanRoad(func(dest ...any) error {
			dest = append(dest, &avg)
			return rows.Scan(dest...)
		}, &s.Road)
		if err != nil {
			return nil, err
		}
		if avg.Valid {
			s.AverageRating = &avg.Float64
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// scanRoad scans the roadColumns projection into road via the given scan
// function, which may append extra destinations for joined columns.
func scanRoad(scan func(dest ...any) error, road *model.Road) error {
	return scan(&road.ID, &road.Coordinates, &road.Cost, &road.StartedDate,
		&road.EndedDate, &road.BuilderID, &road.EmployeeID, &road.MaintainedBy,
		&road.ChiefEngineer, &road.DateVerified, &road.Status,
		&road.CreatedAt, &road.UpdatedAt)
}
