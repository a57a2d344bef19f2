package ports

import (
	"context"

	"github.com/cinereview/core/internal/domain/entities"
)

// ReviewService interface for review listing and submission
type ReviewService interface {
	ListReviews(ctx context.Context, movieID string) ([]entities.Review, error)
	AddReview(ctx context.Context, req AddReviewRequest) (entities.Review, error)
}

// AddReviewRequest is the payload accepted by the review endpoint.
// The body field is called "review" on the wire.
type AddReviewRequest struct {
	MovieID string `json:"movieId" validate:"notblank"`
	Name    string `json:"name" validate:"notblank"`
	Review  string `json:"review" validate:"notblank"`
}
