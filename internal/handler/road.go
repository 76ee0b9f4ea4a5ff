package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/civictrack/road-registry/internal/model"
	"github.com/civictrack/road-registry/internal/queue"
	"github.com/civictrack/road-registry/internal/repository"
	"github.com/civictrack/road-registry/internal/service"
)

// RoadHandler serves the public road detail endpoints and the authenticated
// citizen feedback endpoints (ratings and reviews).
type RoadHandler struct {
	Roads   *repository.RoadRepo
	Ratings *repository.RatingRepo
	Reviews *repository.ReviewRepo
	Media   *service.MediaStore
	BaseURL string // public base URL prefixed onto stored media paths
	Log     *zap.Logger
}

func NewRoadHandler(roads *repository.RoadRepo, ratings *repository.RatingRepo, reviews *repository.ReviewRepo, media *service.MediaStore, baseURL string, log *zap.Logger) *RoadHandler {
	return &RoadHandler{Roads: roads, Ratings: ratings, Reviews: reviews, Media: media, BaseURL: baseURL, Log: log}
}

// ----- DTOs -----

type roadDetailResp struct {
	RoadID         uint64          `json:"road_id"`
	Coordinates    json.RawMessage `json:"coordinates"`
	Cost           string          `json:"cost"`
	BuilderID      uint64          `json:"builder_id"`
	BuilderName    string          `json:"builder_name"`
	EmployeeID     uint64          `json:"employee_id"`
	EmployeeName   string          `json:"employee_name"`
	MaintainedBy   uint64          `json:"maintained_by"`
	MaintainerName string          `json:"maintainer_name"`
	ChiefEngineer  string          `json:"chief_engineer,omitempty"`
	Status         string          `json:"status"`
	StartedDate    string          `json:"started_date"`
	EndedDate      *string         `json:"ended_date"`
	DateVerified   *string         `json:"verification_date"`
	AverageRating  *float64        `json:"average_rating"`
	TotalRatings   int             `json:"total_ratings"`
	TotalReviews   int             `json:"total_reviews"`
}

type ratingReq struct {
	RoadID   uint64  `json:"road_id" validate:"required"`
	Rating   float64 `json:"rating" validate:"required,gte=0,lte=5"`
	Location string  `json:"location" validate:"required"`
}

type ratingResp struct {
	RatingID  uint64    `json:"rating_id"`
	RoadID    uint64    `json:"road_id"`
	UserID    uint64    `json:"user_id"`
	Rating    float64   `json:"rating"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

type reviewResp struct {
	ReviewID  uint64    `json:"review_id"`
	RoadID    uint64    `json:"road_id"`
	UserID    uint64    `json:"user_id"`
	Media     *string   `json:"media"`
	Tags      *string   `json:"tags"`
	Timestamp time.Time `json:"timestamp"`
}

// reviewListEntry is a review as presented in the road listing: tags parsed
// into a list, the leading tag segment surfaced as a comment, and the media
// path expanded into a downloadable URL.
type reviewListEntry struct {
	UserID    uint64    `json:"user_id"`
	Tags      []string  `json:"tags"`
	Comment   string    `json:"comment"`
	Media     *string   `json:"media"`
	Timestamp time.Time `json:"timestamp"`
}

type reviewListResp struct {
	Reviews   []reviewListEntry `json:"reviews"`
	TagCounts map[string]int    `json:"tag_counts"`
}

// GetRoad returns detailed information about a road: responsible parties,
// construction dates, status and aggregated citizen feedback.
func (h *RoadHandler) GetRoad(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid road id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.Roads.Detail(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoadNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "road not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	return c.JSON(http.StatusOK, roadDetailResp{
		RoadID:         d.ID,
		Coordinates:    json.RawMessage(d.Coordinates),
		Cost:           d.Cost,
		BuilderID:      d.BuilderID,
		BuilderName:    d.BuilderName,
		EmployeeID:     d.EmployeeID,
		EmployeeName:   d.EmployeeName,
		MaintainedBy:   d.MaintainedBy,
		MaintainerName: d.MaintainerName,
		ChiefEngineer:  d.ChiefEngineer,
		Status:         d.Status,
		StartedDate:    d.StartedDate.Format("2006-01-02"),
		EndedDate:      dateString(d.EndedDate),
		DateVerified:   dateString(d.DateVerified),
		AverageRating:  d.AverageRating,
		TotalRatings:   d.TotalRatings,
		TotalReviews:   d.TotalReviews,
	})
}

// ListRoadRatings returns every rating submitted for a road.
func (h *RoadHandler) ListRoadRatings(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid road id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ratings, err := h.Ratings.ListByRoad(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoadNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "road not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	out := make([]ratingResp, 0, len(ratings))
	for _, r := range ratings {
		out = append(out, toRatingResp(r))
	}
	return c.JSON(http.StatusOK, out)
}

// ListRoadReviews returns every review submitted for a road together with an
// aggregate frequency map of the tags citizens attached.
func (h *RoadHandler) ListRoadReviews(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid road id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	reviews, err := h.Reviews.ListByRoad(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoadNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "road not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	return c.JSON(http.StatusOK, buildReviewListing(reviews, h.BaseURL))
}

// buildReviewListing shapes reviews for the public listing.  Tags are split
// on commas, trimmed, and purely numeric entries dropped; the raw leading
// segment doubles as the review's comment.  Stored media paths become URLs
// under baseURL.  The tag_counts map counts every parsed tag occurrence
// across the road's reviews.
func buildReviewListing(reviews []*model.Review, baseURL string) reviewListResp {
	resp := reviewListResp{
		Reviews:   make([]reviewListEntry, 0, len(reviews)),
		TagCounts: map[string]int{},
	}
	for _, r := range reviews {
		tags := parseReviewTags(r.Tags)
		for _, tag := range tags {
			resp.TagCounts[tag]++
		}

		comment := ""
		if r.Tags != nil {
			comment = strings.Split(*r.Tags, ",")[0]
		}

		var mediaURL *string
		if r.Media != nil {
			u := strings.TrimRight(baseURL, "/") + "/" + *r.Media
			mediaURL = &u
		}

		resp.Reviews = append(resp.Reviews, reviewListEntry{
			UserID:    r.UserID,
			Tags:      tags,
			Comment:   comment,
			Media:     mediaURL,
			Timestamp: r.CreatedAt,
		})
	}
	return resp
}

// parseReviewTags splits a stored comma-separated tag string into clean tag
// values, skipping blanks and entries that are digits only.
func parseReviewTags(raw *string) []string {
	tags := []string{}
	if raw == nil {
		return tags
	}
	for _, part := range strings.Split(*raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || numericOnly(part) {
			continue
		}
		tags = append(tags, part)
	}
	return tags
}

func numericOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// RateRoad records a citizen's rating for a road.  A user may rate a given
// road once; a second attempt yields 409.
func (h *RoadHandler) RateRoad(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req ratingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rt := &model.Rating{RoadID: req.RoadID, UserID: uid, Rating: req.Rating, Location: req.Location}
	if err := h.Ratings.Create(ctx, rt); err != nil {
		switch {
		case errors.Is(err, repository.ErrRoadNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "road not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "you have already rated this road"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create rating failed"})
	}

	h.publishContribution(c, rt.RoadID, "rating", &rt.Rating, rt.Location)
	return c.JSON(http.StatusCreated, toRatingResp(rt))
}

// ReviewRoad records a citizen's review with an optional media attachment.
// Accepts multipart/form-data with road_id (required), tags and media_file.
func (h *RoadHandler) ReviewRoad(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	roadID, err := strconvParseUint(c.FormValue("road_id"))
	if err != nil || roadID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "road_id required"})
	}

	var tags *string
	if t := strings.TrimSpace(c.FormValue("tags")); t != "" {
		tags = &t
	}

	var mediaPath *string
	if fh, err := c.FormFile("media_file"); err == nil && fh != nil {
		src, err := fh.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable media file"})
		}
		defer src.Close()
		path, err := h.Media.Save(fh.Filename, src)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrMediaType):
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "file type not allowed"})
			case errors.Is(err, service.ErrMediaTooLarge):
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "file too large"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store media failed"})
		}
		mediaPath = &path
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rv := &model.Review{RoadID: roadID, UserID: uid, Media: mediaPath, Tags: tags}
	if err := h.Reviews.Create(ctx, rv); err != nil {
		// The review row is the source of truth; orphaned files are removed.
		if mediaPath != nil {
			h.Media.Remove(*mediaPath)
		}
		if errors.Is(err, repository.ErrRoadNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "road not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create review failed"})
	}

	h.publishContribution(c, rv.RoadID, "review", nil, "")
	return c.JSON(http.StatusCreated, toReviewResp(rv))
}

// publishContribution emits a contribution.recorded event in the background.
// Publishing is best-effort; the feedback is already committed.
func (h *RoadHandler) publishContribution(c echo.Context, roadID uint64, kind string, rating *float64, location string) {
	uid, _ := getUserID(c)
	name := ""
	if u, ok := c.Get("user").(*model.User); ok {
		name = u.Name
	}
	ev := queue.ContributionRecordedEvent{
		UserID:     uid,
		UserName:   name,
		RoadID:     roadID,
		Kind:       kind,
		Rating:     rating,
		Location:   location,
		RecordedAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		if err := queue.PublishContributionRecorded(context.Background(), ev); err != nil {
			h.Log.Warn("contribution event publish failed",
				zap.Uint64("road_id", roadID), zap.String("kind", kind), zap.Error(err))
		}
	}()
}

func toRatingResp(r *model.Rating) ratingResp {
	return ratingResp{
		RatingID: r.ID, RoadID: r.RoadID, UserID: r.UserID,
		Rating: r.Rating, Location: r.Location, Timestamp: r.CreatedAt,
	}
}

func toReviewResp(r *model.Review) reviewResp {
	return reviewResp{
		ReviewID: r.ID, RoadID: r.RoadID, UserID: r.UserID,
		Media: r.Media, Tags: r.Tags, Timestamp: r.CreatedAt,
	}
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}
