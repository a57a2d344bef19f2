package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/cinereview/core/internal/domain/entities"
	"github.com/cinereview/core/internal/infrastructure/logger"
	"github.com/cinereview/core/internal/ports"
)

// ReviewService handles review listing and submission
type ReviewService struct {
	store  ports.ReviewStore
	logger *logger.Logger
}

// NewReviewService creates a new review service
func NewReviewService(store ports.ReviewStore, logger *logger.Logger) *ReviewService {
	return &ReviewService{
		store:  store,
		logger: logger.WithComponent("review_service"),
	}
}

var _ ports.ReviewService = (*ReviewService)(nil)

// ListReviews returns the reviews for a movie in the order they were added
func (s *ReviewService) ListReviews(ctx context.Context, movieID string) ([]entities.Review, error) {
	id, err := entities.ParseMovieID(movieID)
	if err != nil {
		s.logger.Warnw("Rejected review listing", "movie_id", movieID, "error", err)
		return nil, err
	}

	reviews, err := s.store.List(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	return reviews, nil
}

// AddReview validates, sanitizes and appends a review
func (s *ReviewService) AddReview(ctx context.Context, req ports.AddReviewRequest) (entities.Review, error) {
	if strings.TrimSpace(req.MovieID) == "" {
		return entities.Review{}, fmt.Errorf("movieId: %w", entities.ErrMissingField)
	}

	review, err := entities.NewReview(req.Name, req.Review)
	if err != nil {
		return entities.Review{}, err
	}

	id, err := entities.ParseMovieID(req.MovieID)
	if err != nil {
		s.logger.Warnw("Rejected review submission", "movie_id", req.MovieID, "error", err)
		return entities.Review{}, err
	}

	stored, err := s.store.Append(ctx, id, review)
	if err != nil {
		return entities.Review{}, fmt.Errorf("failed to save review: %w", err)
	}

	s.logger.Infow("Review added", "movie_id", id.String(), "timestamp", stored.Timestamp)

	return stored, nil
}
