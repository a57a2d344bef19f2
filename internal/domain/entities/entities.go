package entities

import (
	"errors"
	"html"
	"regexp"
	"strings"
	"time"
)

// Common errors
var (
	ErrInvalidIdentifier  = errors.New("invalid movie identifier")
	ErrMissingField       = errors.New("missing required field")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrCorruptData        = errors.New("stored collection is corrupt")
	ErrPriorReadFailed    = errors.New("existing collection could not be read before append")
	ErrMalformedRequest   = errors.New("malformed request")
	ErrMethodNotAllowed   = errors.New("method not allowed")
)

var movieIDPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// MovieID identifies one review collection. The zero value is never valid;
// values are obtained through ParseMovieID only.
type MovieID struct {
	value string
}

// ParseMovieID trims raw and checks it against the identifier alphabet.
func ParseMovieID(raw string) (MovieID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !movieIDPattern.MatchString(trimmed) {
		return MovieID{}, ErrInvalidIdentifier
	}
	return MovieID{value: trimmed}, nil
}

// String returns the validated identifier.
func (id MovieID) String() string {
	return id.value
}

// IsZero reports whether id was not produced by ParseMovieID.
func (id MovieID) IsZero() bool {
	return id.value == ""
}

// Review represents one submitted review
type Review struct {
	Name      string    `json:"name" db:"name"`
	Text      string    `json:"text" db:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReview trims and escapes name and text. The timestamp is left for the
// store to assign at append time.
func NewReview(name, text string) (Review, error) {
	name = strings.TrimSpace(name)
	text = strings.TrimSpace(text)
	if name == "" || text == "" {
		return Review{}, ErrMissingField
	}

	return Review{
		Name: Sanitize(name),
		Text: Sanitize(text),
	}, nil
}

// Sanitize escapes the characters that carry meaning in rendered markup:
// < > & " and '.
func Sanitize(s string) string {
	return html.EscapeString(s)
}

// Unescaped returns a copy of r with the original characters of name and text restored.
func (r Review) Unescaped() Review {
	r.Name = html.UnescapeString(r.Name)
	r.Text = html.UnescapeString(r.Text)
	return r
}
