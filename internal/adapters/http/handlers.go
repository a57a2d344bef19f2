package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cinereview/core/internal/domain/entities"
	"github.com/cinereview/core/internal/infrastructure/logger"
	"github.com/cinereview/core/internal/ports"
)

// Response status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Messages returned to API clients
const (
	MsgMovieIDRequired  = "movieId parameter is required."
	MsgInvalidMovieID   = "Invalid movieId format."
	MsgReadFailed       = "Could not read reviews data."
	MsgInvalidJSON      = "Invalid JSON payload."
	MsgMissingFields    = "Missing required fields (movieId, name, review)."
	MsgSaveFailed       = "Failed to save review."
	MsgReadBeforeSave   = "Could not read existing reviews data before saving."
	MsgReviewAdded      = "Review added successfully."
	MsgMethodNotAllowed = "Method not allowed. Only GET and POST are supported."
)

// ReviewHandler handles the review endpoint
type ReviewHandler struct {
	reviewService ports.ReviewService
	logger        *logger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService ports.ReviewService, logger *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger.WithComponent("review_handler"),
	}
}

// ListReviews godoc
// @Summary List reviews of a movie
// @Description Reviews are returned in the order they were submitted
// @Tags reviews
// @Produce json
// @Param movieId query string true "Movie identifier ([A-Za-z0-9_]+)"
// @Success 200 {object} ReviewsResponse
// @Failure 400 {object} StatusResponse
// @Failure 500 {object} StatusResponse
// @Router /reviews [get]
func (h *ReviewHandler) ListReviews(c echo.Context) error {
	movieID := c.QueryParam("movieId")
	if strings.TrimSpace(movieID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, MsgMovieIDRequired)
	}

	reviews, err := h.reviewService.ListReviews(c.Request().Context(), movieID)
	if err != nil {
		return h.mapError(err, MsgReadFailed)
	}

	return c.JSON(http.StatusOK, ReviewsResponse{
		Status:  StatusSuccess,
		Reviews: reviews,
	})
}

// AddReview godoc
// @Summary Submit a review
// @Description Name and review text are trimmed and HTML-escaped; the timestamp is assigned by the server
// @Tags reviews
// @Accept json
// @Produce json
// @Param request body ports.AddReviewRequest true "Review"
// @Success 200 {object} StatusResponse
// @Failure 400 {object} StatusResponse
// @Failure 500 {object} StatusResponse
// @Router /reviews [post]
func (h *ReviewHandler) AddReview(c echo.Context) error {
	var req ports.AddReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, MsgInvalidJSON).
			SetInternal(fmt.Errorf("%w: %v", entities.ErrMalformedRequest, err))
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, MsgMissingFields).SetInternal(err)
	}

	if _, err := h.reviewService.AddReview(c.Request().Context(), req); err != nil {
		if errors.Is(err, entities.ErrPriorReadFailed) {
			return h.mapError(err, MsgReadBeforeSave)
		}
		return h.mapError(err, MsgSaveFailed)
	}

	return c.JSON(http.StatusOK, StatusResponse{
		Status:  StatusSuccess,
		Message: MsgReviewAdded,
	})
}

// mapError turns service errors into HTTP errors; fallback is the message
// used for storage failures.
func (h *ReviewHandler) mapError(err error, fallback string) error {
	switch {
	case errors.Is(err, entities.ErrInvalidIdentifier):
		return echo.NewHTTPError(http.StatusBadRequest, MsgInvalidMovieID)
	case errors.Is(err, entities.ErrMissingField):
		return echo.NewHTTPError(http.StatusBadRequest, MsgMissingFields)
	default:
		h.logger.Errorw("Review request failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, fallback).SetInternal(err)
	}
}

// ReviewsResponse is returned by a successful listing
type ReviewsResponse struct {
	Status  string            `json:"status"`
	Reviews []entities.Review `json:"reviews"`
}

// StatusResponse carries a status and a human-readable message
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
