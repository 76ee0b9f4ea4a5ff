package model

import "time"

// Road lifecycle states stored in roads.status.  A road starts under
// construction, is marked completed by its builder, and moves to maintained
// once handed over to the maintaining builder.
const (
	RoadStatusUnderConstruction = "under_construction"
	RoadStatusCompleted         = "completed"
	RoadStatusMaintained        = "maintained"
)

// Road mirrors the `roads` table.  Coordinates carries the geometry of the
// road as raw JSON so the API can pass it through without interpreting it.
//
// Fields:
//
//	ID            – primary key identifier of the road.
//	Coordinates   – geo shape as a JSON document (roads.coordinates).
//	Cost          – construction cost; stored as DECIMAL(15,2), carried as a
//	                string to avoid float rounding in money values.
//	StartedDate   – construction start date.
//	EndedDate     – construction end date (nil while ongoing).
//	BuilderID     – builder that constructed the road.
//	EmployeeID    – government employee (manager or inspector) responsible.
//	MaintainedBy  – builder responsible for maintenance.
//	ChiefEngineer – engineer assigned by the builder (empty until assigned).
//	DateVerified  – when an inspector verified the road (nil until then).
//	Status        – one of the RoadStatus* constants.
type Road struct {
	ID            uint64     // roads.id
	Coordinates   []byte     // roads.coordinates (JSON column)
	Cost          string     // roads.cost
	StartedDate   time.Time  // roads.started_date
	EndedDate     *time.Time // roads.ended_date (nullable)
	BuilderID     uint64     // roads.builder_id
	EmployeeID    uint64     // roads.employee_id
	MaintainedBy  uint64     // roads.maintained_by
	ChiefEngineer string     // roads.chief_engineer
	DateVerified  *time.Time // roads.date_verified (nullable)
	Status        string     // roads.status
	CreatedAt     time.Time  // roads.created_at
	UpdatedAt     time.Time  // roads.updated_at
}
