// Package go4schools fetches a student's homework list through the scraping
// sidecar, which drives the portal's login with a headless browser.
package go4schools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/famorg/internal/apperr"
	"github.com/dukerupert/famorg/internal/model"
)

// Scraper returns the homework currently listed for an account.
type Scraper interface {
	Scrape(ctx context.Context, email, password string) ([]model.HomeworkItem, error)
}

var ErrNotConfigured = errors.New("scraper url not configured")

// Client calls the sidecar's POST /scrape endpoint.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

type scrapeRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type scrapeResponse struct {
	Items []model.HomeworkItem `json:"items"`
	Error string               `json:"error"`
}

// Scrape logs in and returns the homework rows. A login rejected by the portal
// comes back as an error carrying the sidecar's message.
func (c *Client) Scrape(ctx context.Context, email, password string) ([]model.HomeworkItem, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(scrapeRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Unavailable("go4schools", err)
	}
	defer resp.Body.Close()

	var sr scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, apperr.Unavailable("go4schools", fmt.Errorf("status %d", resp.StatusCode))
		}
		return nil, apperr.Unavailable("go4schools", fmt.Errorf("decode response: %w", err))
	}
	if sr.Error != "" {
		return nil, errors.New(sr.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Unavailable("go4schools", fmt.Errorf("status %d", resp.StatusCode))
	}
	return sr.Items, nil
}
