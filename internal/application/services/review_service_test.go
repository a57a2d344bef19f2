package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinereview/core/internal/adapters/repository"
	"github.com/cinereview/core/internal/domain/entities"
	"github.com/cinereview/core/internal/infrastructure/logger"
	"github.com/cinereview/core/internal/ports"
)

func newFileBackedService(t *testing.T) (*ReviewService, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := repository.NewFileStore(repository.FileStoreOptions{Dir: dir, LockTimeout: time.Second})
	require.NoError(t, err)
	return NewReviewService(store, logger.NewNop()), dir
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestListReviewsUnknownMovieIsEmpty(t *testing.T) {
	svc, _ := newFileBackedService(t)

	reviews, err := svc.ListReviews(context.Background(), "tt999")
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestAddThenList(t *testing.T) {
	svc, _ := newFileBackedService(t)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	stored, err := svc.AddReview(ctx, ports.AddReviewRequest{MovieID: " tt001 ", Name: "Alice", Review: "Great film"})
	require.NoError(t, err)
	assert.True(t, stored.Timestamp.After(before))

	reviews, err := svc.ListReviews(ctx, "tt001")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Alice", reviews[0].Name)
	assert.Equal(t, "Great film", reviews[0].Text)

	parsed, err := time.Parse(time.RFC3339, reviews[0].Timestamp.Format(time.RFC3339))
	require.NoError(t, err)
	assert.WithinDuration(t, stored.Timestamp, parsed, time.Second)
}

func TestAddReviewValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     ports.AddReviewRequest
		wantErr error
	}{
		{
			name:    "blank name",
			req:     ports.AddReviewRequest{MovieID: "tt001", Name: "   ", Review: "text"},
			wantErr: entities.ErrMissingField,
		},
		{
			name:    "blank review",
			req:     ports.AddReviewRequest{MovieID: "tt001", Name: "Alice", Review: "\n\t"},
			wantErr: entities.ErrMissingField,
		},
		{
			name:    "missing movie",
			req:     ports.AddReviewRequest{Name: "Alice", Review: "text"},
			wantErr: entities.ErrMissingField,
		},
		{
			name:    "invalid movie",
			req:     ports.AddReviewRequest{MovieID: "../tt001", Name: "Alice", Review: "text"},
			wantErr: entities.ErrInvalidIdentifier,
		},
		{
			name:    "movie with spaces inside",
			req:     ports.AddReviewRequest{MovieID: "tt 001", Name: "Alice", Review: "text"},
			wantErr: entities.ErrInvalidIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, dir := newFileBackedService(t)

			_, err := svc.AddReview(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, dirEntries(t, dir), "rejected input must not touch storage")
		})
	}
}

func TestMissingFieldLeavesCollectionUnchanged(t *testing.T) {
	svc, _ := newFileBackedService(t)
	ctx := context.Background()

	_, err := svc.AddReview(ctx, ports.AddReviewRequest{MovieID: "tt001", Name: "Alice", Review: "first"})
	require.NoError(t, err)

	_, err = svc.AddReview(ctx, ports.AddReviewRequest{MovieID: "tt001", Name: "", Review: "second"})
	require.ErrorIs(t, err, entities.ErrMissingField)

	reviews, err := svc.ListReviews(ctx, "tt001")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "first", reviews[0].Text)
}

func TestListReviewsRejectsInvalidIdentifier(t *testing.T) {
	svc, dir := newFileBackedService(t)

	for _, raw := range []string{"", "  ", "tt-001", "a/b", "tt001;rm"} {
		_, err := svc.ListReviews(context.Background(), raw)
		require.ErrorIs(t, err, entities.ErrInvalidIdentifier, raw)
	}
	assert.Empty(t, dirEntries(t, dir))
}

func TestAddReviewSanitizesMarkup(t *testing.T) {
	svc := NewReviewService(repository.NewMemoryStore(nil), logger.NewNop())
	ctx := context.Background()

	_, err := svc.AddReview(ctx, ports.AddReviewRequest{MovieID: "tt001", Name: "<script>x</script>", Review: `"quoted" & 'single'`})
	require.NoError(t, err)

	reviews, err := svc.ListReviews(ctx, "tt001")
	require.NoError(t, err)
	require.Len(t, reviews, 1)

	assert.Equal(t, "&lt;script&gt;x&lt;/script&gt;", reviews[0].Name)
	assert.NotContains(t, reviews[0].Text, `"`)
	assert.NotContains(t, reviews[0].Text, "'")

	raw := reviews[0].Unescaped()
	assert.Equal(t, "<script>x</script>", raw.Name)
	assert.Equal(t, `"quoted" & 'single'`, raw.Text)
}
