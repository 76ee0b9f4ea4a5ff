package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civictrack/road-registry/internal/repository"
)

// BuilderHandler serves the public builder portfolio listing and the
// authenticated road update a builder performs on roads it constructed
// or maintains.
type BuilderHandler struct {
	Roads    *repository.RoadRepo
	Builders *repository.BuilderRepo
}

func NewBuilderHandler(roads *repository.RoadRepo, builders *repository.BuilderRepo) *BuilderHandler {
	return &BuilderHandler{Roads: roads, Builders: builders}
}

// ----- DTOs -----

type builderRoadUpdateReq struct {
	BuilderID     uint64  `json:"builder_unique_id" validate:"required"`
	ChiefEngineer *string `json:"chief_engineer"`
	Status        *string `json:"status" validate:"omitempty,oneof=under_construction completed maintained"`
	DateVerified  *string `json:"date_verified"`
}

// ListBuilderRoads returns the roads a builder constructed or maintains,
// each with its current average rating.  The listing is public.
func (h *BuilderHandler) ListBuilderRoads(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid builder id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	builder, err := h.Builders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBuilderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "builder not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	roads, err := h.Roads.ListByBuilder(ctx, builder.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	out := make([]roadSummaryResp, 0, len(roads))
	for _, s := range roads {
		out = append(out, toRoadSummaryResp(s))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"builder_id":   builder.ID,
		"builder_name": builder.Name,
		"count":        len(out),
		"roads":        out,
	})
}

// UpdateRoad lets a builder assign a chief engineer, change the construction
// status or record the verification date on a road it constructed or
// maintains.  An unrelated builder gets 403.
func (h *BuilderHandler) UpdateRoad(c echo.Context) error {
	roadID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid road id"})
	}
	var req builderRoadUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if req.ChiefEngineer == nil && req.Status == nil && req.DateVerified == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
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

	road, err := h.Roads.UpdateByBuilder(ctx, roadID, req.BuilderID, repository.BuilderRoadUpdate{
		ChiefEngineer: req.ChiefEngineer,
		Status:        req.Status,
		DateVerified:  verified,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRoadNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "road not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "builder not authorized to modify this road"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update road failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"road_id":           road.ID,
		"chief_engineer":    road.ChiefEngineer,
		"status":            road.Status,
		"verification_date": dateString(road.DateVerified),
	})
}
