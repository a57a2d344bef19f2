package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cinereview/core/internal/domain/entities"
	"github.com/cinereview/core/internal/infrastructure/logger"
)

var (
	// ErrSubmitInFlight is returned when a submission is already running
	ErrSubmitInFlight = errors.New("a review submission is already in progress")
	// ErrMissingElement is returned by Mount when a collaborator is absent
	ErrMissingElement = errors.New("required review element is missing")
)

// View renders the review list and form state
type View interface {
	ShowLoading()
	RenderReviews(items []ReviewItem)
	RenderEmpty(msg string)
	RenderError(msg string)
	Alert(msg string)
	SetSubmitting(busy bool, label string)
	ClearForm()
}

// Form exposes the current form values
type Form interface {
	Name() string
	Text() string
}

// API is the review service as seen by the controller
type API interface {
	List(ctx context.Context, movieID string) ([]entities.Review, error)
	Submit(ctx context.Context, movieID, name, text string) error
}

// ReviewItem is one rendered review
type ReviewItem struct {
	Name      string
	Body      string
	Timestamp string
}

// State of the submit control
type State int

const (
	StateIdle State = iota
	StateSubmitting
)

func (s State) String() string {
	if s == StateSubmitting {
		return "submitting"
	}
	return "idle"
}

// Messages holds every user-facing string. Format strings take one %s.
type Messages struct {
	Empty         string
	LoadFailed    string
	Unreachable   string
	FillAllFields string
	SubmitFailed  string
	Submitting    string
	SubmitLabel   string
	Anonymous     string
	AddedAt       string
	MountFailed   string
	TimeLayout    string
}

// DefaultMessages returns the English strings
func DefaultMessages() Messages {
	return Messages{
		Empty:         "No reviews yet. Be the first!",
		LoadFailed:    "Could not load reviews: %s",
		Unreachable:   "the review service could not be reached",
		FillAllFields: "Please fill in all review fields.",
		SubmitFailed:  "Could not submit review: %s",
		Submitting:    "Submitting...",
		SubmitLabel:   "Submit",
		Anonymous:     "Anonymous",
		AddedAt:       "Added: %s",
		MountFailed:   "Error loading the reviews section.",
		TimeLayout:    "2006-01-02 15:04:05",
	}
}

// Option configures a Controller
type Option func(*Controller)

// WithMessages replaces the default strings
func WithMessages(m Messages) Option {
	return func(c *Controller) { c.messages = m }
}

// WithLocation sets the zone timestamps are rendered in
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithLogger attaches a logger
func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l.WithComponent("review_controller").WithMovie(c.movieID)
		}
	}
}

// Controller binds one movie's reviews to a view and a form.
// Each mount owns its state; there is no package level instance.
type Controller struct {
	movieID  string
	view     View
	form     Form
	api      API
	messages Messages
	location *time.Location
	logger   *logger.Logger

	mu    sync.Mutex
	state State
}

// Mount validates the collaborators and performs the initial load
func Mount(ctx context.Context, movieID string, view View, form Form, api API, opts ...Option) (*Controller, error) {
	c := &Controller{
		movieID:  strings.TrimSpace(movieID),
		view:     view,
		form:     form,
		api:      api,
		messages: DefaultMessages(),
		location: time.Local,
		logger:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	var missing []string
	if view == nil {
		missing = append(missing, "view")
	}
	if form == nil {
		missing = append(missing, "form")
	}
	if api == nil {
		missing = append(missing, "api")
	}
	if c.movieID == "" {
		missing = append(missing, "movie id")
	}
	if len(missing) > 0 {
		c.logger.Errorw("Cannot mount review controller", "missing", missing)
		if view != nil {
			view.RenderError(c.messages.MountFailed)
		}
		return nil, fmt.Errorf("%w: %s", ErrMissingElement, strings.Join(missing, ", "))
	}

	_ = c.Load(ctx)

	return c, nil
}

// State reports whether a submission is running
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load fetches and renders the reviews. Failures are rendered in the view
// and also returned.
func (c *Controller) Load(ctx context.Context) error {
	c.view.ShowLoading()

	reviews, err := c.api.List(ctx, c.movieID)
	if err != nil {
		c.logger.Warnw("Loading reviews failed", "error", err)
		c.view.RenderError(fmt.Sprintf(c.messages.LoadFailed, c.reason(err)))
		return err
	}

	if len(reviews) == 0 {
		c.view.RenderEmpty(c.messages.Empty)
		return nil
	}

	c.view.RenderReviews(c.items(reviews))
	return nil
}

// Submit sends the form contents and reloads the list on success.
// The form is left intact when the submission fails.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}

	name := strings.TrimSpace(c.form.Name())
	text := strings.TrimSpace(c.form.Text())
	if name == "" || text == "" {
		c.mu.Unlock()
		c.view.Alert(c.messages.FillAllFields)
		return fmt.Errorf("review form: %w", entities.ErrMissingField)
	}

	c.state = StateSubmitting
	c.mu.Unlock()

	c.view.SetSubmitting(true, c.messages.Submitting)
	defer func() {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
		c.view.SetSubmitting(false, c.messages.SubmitLabel)
	}()

	if err := c.api.Submit(ctx, c.movieID, name, text); err != nil {
		c.logger.Warnw("Submitting review failed", "error", err)
		c.view.Alert(fmt.Sprintf(c.messages.SubmitFailed, c.reason(err)))
		return err
	}

	c.view.ClearForm()
	_ = c.Load(ctx)

	return nil
}

// items converts stored reviews to display order, most recent first.
// Text is handed to the view unescaped; views that emit markup escape it themselves.
func (c *Controller) items(reviews []entities.Review) []ReviewItem {
	items := make([]ReviewItem, 0, len(reviews))
	for i := len(reviews) - 1; i >= 0; i-- {
		r := reviews[i].Unescaped()

		name := r.Name
		if strings.TrimSpace(name) == "" {
			name = c.messages.Anonymous
		}

		item := ReviewItem{Name: name, Body: r.Text}
		if !r.Timestamp.IsZero() {
			item.Timestamp = fmt.Sprintf(c.messages.AddedAt, r.Timestamp.In(c.location).Format(c.messages.TimeLayout))
		}
		items = append(items, item)
	}
	return items
}

// reason picks the text shown to the user for err
func (c *Controller) reason(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return c.messages.Unreachable
}
