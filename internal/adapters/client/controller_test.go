package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinereview/core/internal/adapters/repository"
	"github.com/cinereview/core/internal/domain/entities"
	"github.com/cinereview/core/internal/infrastructure/config"
	"github.com/cinereview/core/internal/infrastructure/logger"
	"github.com/cinereview/core/internal/infrastructure/server"
)

// recordingView keeps every call in order
type recordingView struct {
	mu      sync.Mutex
	calls   []string
	items   []ReviewItem
	alerts  []string
	errors  []string
	cleared int
}

func (v *recordingView) record(call string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, call)
}

func (v *recordingView) ShowLoading() { v.record("loading") }

func (v *recordingView) RenderReviews(items []ReviewItem) {
	v.record("reviews")
	v.mu.Lock()
	v.items = items
	v.mu.Unlock()
}

func (v *recordingView) RenderEmpty(msg string) { v.record("empty:" + msg) }

func (v *recordingView) RenderError(msg string) {
	v.record("error")
	v.mu.Lock()
	v.errors = append(v.errors, msg)
	v.mu.Unlock()
}

func (v *recordingView) Alert(msg string) {
	v.record("alert")
	v.mu.Lock()
	v.alerts = append(v.alerts, msg)
	v.mu.Unlock()
}

func (v *recordingView) SetSubmitting(busy bool, label string) {
	v.record(fmt.Sprintf("submitting:%t:%s", busy, label))
}

func (v *recordingView) ClearForm() {
	v.record("clear")
	v.mu.Lock()
	v.cleared++
	v.mu.Unlock()
}

// fakeAPI serves reviews from memory and can block or fail on demand
type fakeAPI struct {
	mu        sync.Mutex
	reviews   []entities.Review
	listErr   error
	submitErr error
	submits   int
	block     chan struct{}
	entered   chan struct{}
}

func (a *fakeAPI) List(ctx context.Context, movieID string) ([]entities.Review, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listErr != nil {
		return nil, a.listErr
	}
	out := make([]entities.Review, len(a.reviews))
	copy(out, a.reviews)
	return out, nil
}

func (a *fakeAPI) Submit(ctx context.Context, movieID, name, text string) error {
	if a.entered != nil {
		a.entered <- struct{}{}
	}
	if a.block != nil {
		<-a.block
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submits++
	if a.submitErr != nil {
		return a.submitErr
	}
	a.reviews = append(a.reviews, entities.Review{Name: name, Text: text, Timestamp: time.Now()})
	return nil
}

func TestMountRendersMostRecentFirst(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	api := &fakeAPI{reviews: []entities.Review{
		{Name: "first", Text: "one", Timestamp: base},
		{Name: "", Text: "two"},
		{Name: "third", Text: "a &amp; b", Timestamp: base.Add(time.Hour)},
	}}
	view := &recordingView{}

	_, err := Mount(context.Background(), "tt001", view, StaticForm{}, api, WithLocation(time.UTC))
	require.NoError(t, err)

	assert.Equal(t, []string{"loading", "reviews"}, view.calls)
	require.Len(t, view.items, 3)
	assert.Equal(t, ReviewItem{Name: "third", Body: "a & b", Timestamp: "Added: 2024-03-01 11:00:00"}, view.items[0])
	assert.Equal(t, ReviewItem{Name: "Anonymous", Body: "two"}, view.items[1])
	assert.Equal(t, "first", view.items[2].Name)
}

func TestMountEmptyAndFailure(t *testing.T) {
	view := &recordingView{}
	_, err := Mount(context.Background(), "tt001", view, StaticForm{}, &fakeAPI{})
	require.NoError(t, err)
	assert.Equal(t, []string{"loading", "empty:No reviews yet. Be the first!"}, view.calls)

	view = &recordingView{}
	api := &fakeAPI{listErr: &APIError{StatusCode: 500, Message: "Could not read reviews data."}}
	_, err = Mount(context.Background(), "tt001", view, StaticForm{}, api)
	require.NoError(t, err)
	require.Len(t, view.errors, 1)
	assert.Equal(t, "Could not load reviews: Could not read reviews data.", view.errors[0])

	view = &recordingView{}
	api = &fakeAPI{listErr: errors.New("dial tcp: connection refused")}
	_, err = Mount(context.Background(), "tt001", view, StaticForm{}, api)
	require.NoError(t, err)
	assert.Equal(t, "Could not load reviews: the review service could not be reached", view.errors[0])
}

func TestMountMissingElements(t *testing.T) {
	view := &recordingView{}

	_, err := Mount(context.Background(), "tt001", view, nil, &fakeAPI{})
	require.ErrorIs(t, err, ErrMissingElement)
	assert.Equal(t, []string{"error"}, view.calls)

	_, err = Mount(context.Background(), "  ", view, StaticForm{}, &fakeAPI{})
	require.ErrorIs(t, err, ErrMissingElement)

	_, err = Mount(context.Background(), "tt001", nil, StaticForm{}, &fakeAPI{})
	require.ErrorIs(t, err, ErrMissingElement)
}

func TestSubmitSuccessReloads(t *testing.T) {
	api := &fakeAPI{}
	view := &recordingView{}
	form := &StaticForm{NameValue: "  Alice ", TextValue: "Great film  "}

	c, err := Mount(context.Background(), "tt001", view, form, api)
	require.NoError(t, err)
	view.calls = nil

	require.NoError(t, c.Submit(context.Background()))

	assert.Equal(t, []string{
		"submitting:true:Submitting...",
		"clear",
		"loading",
		"reviews",
		"submitting:false:Submit",
	}, view.calls)
	require.Len(t, view.items, 1)
	assert.Equal(t, "Alice", view.items[0].Name)
	assert.Equal(t, "Great film", view.items[0].Body)
	assert.Equal(t, StateIdle, c.State())
}

func TestSubmitEmptyFieldsStaysLocal(t *testing.T) {
	api := &fakeAPI{}
	view := &recordingView{}

	c, err := Mount(context.Background(), "tt001", view, StaticForm{NameValue: "Alice", TextValue: "   "}, api)
	require.NoError(t, err)

	err = c.Submit(context.Background())
	require.ErrorIs(t, err, entities.ErrMissingField)
	assert.Equal(t, 0, api.submits)
	assert.Equal(t, []string{"Please fill in all review fields."}, view.alerts)
}

func TestSubmitFailureKeepsForm(t *testing.T) {
	api := &fakeAPI{submitErr: &APIError{StatusCode: 500, Message: "Failed to save review."}}
	view := &recordingView{}

	c, err := Mount(context.Background(), "tt001", view, StaticForm{NameValue: "Alice", TextValue: "text"}, api)
	require.NoError(t, err)

	err = c.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"Could not submit review: Failed to save review."}, view.alerts)
	assert.Zero(t, view.cleared)
	assert.Contains(t, view.calls, "submitting:false:Submit")
	assert.Equal(t, StateIdle, c.State())
}

func TestSecondSubmitWhileInFlight(t *testing.T) {
	api := &fakeAPI{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	view := &recordingView{}

	c, err := Mount(context.Background(), "tt001", view, StaticForm{NameValue: "Alice", TextValue: "text"}, api)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background()) }()

	<-api.entered
	assert.Equal(t, StateSubmitting, c.State())
	require.ErrorIs(t, c.Submit(context.Background()), ErrSubmitInFlight)

	close(api.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, api.submits)
	assert.Equal(t, StateIdle, c.State())
}

func TestControllerAgainstServer(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{Backend: config.BackendMemory},
		Security: config.SecurityConfig{CORSAllowedOrigins: "*"},
	}
	srv, err := server.New(cfg, repository.NewMemoryStore(nil), logger.NewNop(), nil)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var out, errOut bytes.Buffer
	view := NewTerminalView(&out, &errOut)
	api := NewClient(ts.URL, time.Second)

	c, err := Mount(context.Background(), "tt001", view, StaticForm{NameValue: "Alice", TextValue: "<b>Great</b> film"}, api)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "No reviews yet")

	out.Reset()
	require.NoError(t, c.Submit(context.Background()))
	assert.False(t, view.Failed, errOut.String())
	assert.Contains(t, out.String(), "Alice\n  <b>Great</b> film\n  Added: ")

	_, err = Mount(context.Background(), "tt-001", view, StaticForm{}, api)
	require.NoError(t, err)
	assert.True(t, view.Failed)
	assert.Contains(t, errOut.String(), "Invalid movieId format.")
}
