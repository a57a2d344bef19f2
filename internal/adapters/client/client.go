// Package client talks to the review endpoint and drives a review widget.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cinereview/core/internal/domain/entities"
	"github.com/cinereview/core/internal/ports"
)

const reviewsPath = "/api/v1/reviews"

// APIError is a non-success answer from the review endpoint
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP error! Status: %d", e.StatusCode)
	}
	return e.Message
}

// Client is the HTTP implementation of API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ API = (*Client)(nil)

type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Reviews []entities.Review `json:"reviews"`
}

// List fetches the reviews of a movie in storage order
func (c *Client) List(ctx context.Context, movieID string) ([]entities.Review, error) {
	endpoint := c.baseURL + reviewsPath + "?" + url.Values{"movieId": {movieID}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if body.Reviews == nil {
		body.Reviews = []entities.Review{}
	}
	return body.Reviews, nil
}

// Submit posts a review
func (c *Client) Submit(ctx context.Context, movieID, name, text string) error {
	payload, err := json.Marshal(ports.AddReviewRequest{MovieID: movieID, Name: name, Review: text})
	if err != nil {
		return fmt.Errorf("encode review: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+reviewsPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	_, err = c.do(req)
	return err
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var body envelope
	decodeErr := json.Unmarshal(raw, &body)

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: body.Message}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	if body.Status != "success" {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: body.Message}
	}
	return &body, nil
}
