// Road registration and inspection endpoints for government employees.
// Managers register roads and assign responsibility; inspectors list the
// roads assigned to them for verification.
package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civictrack/road-registry/internal/model"
	"github.com/civictrack/road-registry/internal/repository"
)

// UserDirectory is the slice of the user repository the employee endpoints
// need: inspector lookups and the email-verification flag.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	SetVerified(ctx context.Context, id uint64, verified bool) error
}

type EmployeeHandler struct {
	Roads    *repository.RoadRepo
	Builders *repository.BuilderRepo
	Users    UserDirectory
}

func NewEmployeeHandler(roads *repository.RoadRepo, builders *repository.BuilderRepo, users UserDirectory) *EmployeeHandler {
	return &EmployeeHandler{Roads: roads, Builders: builders, Users: users}
}

// ----- DTOs -----

type createRoadReq struct {
	Coordinates  json.RawMessage `json:"coordinates"`
	Cost         string          `json:"cost" validate:"required"`
	StartedDate  string          `json:"started_date" validate:"required"`
	EndedDate    *string         `json:"ended_date"`
	BuilderID    uint64          `json:"builder_id" validate:"required"`
	InspectorID  *uint64         `json:"inspector_assigned"`
	DateVerified *string         `json:"date_verified"`
}

type roadSummaryResp struct {
	RoadID        uint64   `json:"road_id"`
	BuilderID     uint64   `json:"builder_id"`
	MaintainedBy  uint64   `json:"maintained_by"`
	Cost          string   `json:"cost"`
	StartedDate   string   `json:"started_date"`
	EndedDate     *string  `json:"ended_date"`
	Status        string   `json:"status"`
	ChiefEngineer string   `json:"chief_engineer,omitempty"`
	DateVerified  *string  `json:"date_verified"`
	AverageRating *float64 `json:"average_rating"`
}

func toRoadSummaryResp(s *repository.RoadSummary) roadSummaryResp {
	return roadSummaryResp{
		RoadID:        s.ID,
		BuilderID:     s.BuilderID,
		MaintainedBy:  s.MaintainedBy,
		Cost:          s.Cost,
		StartedDate:   s.StartedDate.Format("2006-01-02"),
		EndedDate:     dateString(s.EndedDate),
		Status:        s.Status,
		ChiefEngineer: s.ChiefEngineer,
		DateVerified:  dateString(s.DateVerified),
		AverageRating: s.AverageRating,
	}
}

// CreateRoad registers a new road.  The authenticated manager becomes the
// responsible employee unless an inspector is assigned, in which case the
// inspector does.  The constructing builder also starts as the maintainer.
func (h *EmployeeHandler) CreateRoad(c echo.Context) error {
	managerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createRoadReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	started, err := time.Parse("2006-01-02", req.StartedDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid started_date"})
	}
	ended, err := parseOptionalDate(req.EndedDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ended_date"})
	}
	verified, err := parseOptionalDate(req.DateVerified)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_verified"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Builders.GetByID(ctx, req.BuilderID); err != nil {
		if errors.Is(err, repository.ErrBuilderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "builder not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	assigned := managerID
	if req.InspectorID != nil {
		inspector, err := h.Users.GetByID(ctx, *req.InspectorID)
		if err != nil || inspector.UserType != model.UserTypeInspector {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "inspector employee not found"})
		}
		assigned = inspector.ID
	}

	coords := req.Coordinates
	if len(coords) == 0 {
		coords = json.RawMessage("{}")
	}
	road := &model.Road{
		Coordinates:  coords,
		Cost:         req.Cost,
		StartedDate:  started,
		EndedDate:    ended,
		BuilderID:    req.BuilderID,
		EmployeeID:   assigned,
		MaintainedBy: req.BuilderID,
		DateVerified: verified,
		Status:       model.RoadStatusUnderConstruction,
	}
	if err := h.Roads.Create(ctx, road); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create road failed"})
	}

	// Best effort; the columns are recomputable from roads and ratings.
	_ = h.Builders.RefreshStats(ctx, req.BuilderID)

	return c.JSON(http.StatusCreated, echo.Map{
		"road_id":      road.ID,
		"builder_id":   road.BuilderID,
		"employee_id":  road.EmployeeID,
		"started_date": road.StartedDate.Format("2006-01-02"),
		"ended_date":   dateString(road.EndedDate),
		"status":       road.Status,
	})
}

// InspectorRoads lists the roads assigned to an inspector.  Inspectors see
// their own assignments; managers may inspect another employee's list via
// the inspector_id query parameter.
func (h *EmployeeHandler) InspectorRoads(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	inspectorID := uid
	if role, _ := c.Get("role").(string); role != model.UserTypeInspector {
		inspectorID, err = strconvParseUint(c.QueryParam("inspector_id"))
		if err != nil || inspectorID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "inspector_id required"})
		}
		inspector, err := h.Users.GetByID(ctx, inspectorID)
		if err != nil || inspector.UserType != model.UserTypeInspector {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "inspector profile not found"})
		}
	}

	roads, err := h.Roads.ListByEmployee(ctx, inspectorID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	out := make([]roadSummaryResp, 0, len(roads))
	for _, s := range roads {
		out = append(out, toRoadSummaryResp(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(out), "roads": out})
}

// VerifyUser marks a user's email address as verified, unblocking login for
// the account.  Only managers may call it.  The operation is idempotent: a
// second call on an already-verified user succeeds.
func (h *EmployeeHandler) VerifyUser(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if !u.IsVerified {
		if err := h.Users.SetVerified(ctx, u.ID, true); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verify user failed"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": u.ID, "is_verified": true})
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
