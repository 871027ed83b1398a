package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/whatthedob/whatthedob-backend/pkg/logger"
)

const maxPageBytes = 8 << 20

// Client fetches pages from the upstream daily menu site.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new menu site client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// FetchFilterPage loads the unfiltered page, which carries the campus
// and meal pickers.
func (c *Client) FetchFilterPage(ctx context.Context) (string, error) {
	return c.doRequest(ctx, http.MethodGet, nil)
}

// FetchMenuPage posts the filter form for one date, meal and campus.
func (c *Client) FetchMenuPage(ctx context.Context, date, meal string, campusID uint) (string, error) {
	form := url.Values{}
	if date != "" {
		form.Set("selMenuDate", date)
	}
	if meal != "" {
		form.Set("selMeal", meal)
	}
	if campusID != 0 {
		form.Set("selCampus", strconv.FormatUint(uint64(campusID), 10))
	}
	if len(form) == 0 {
		return c.doRequest(ctx, http.MethodGet, nil)
	}
	return c.doRequest(ctx, http.MethodPost, form)
}

func (c *Client) doRequest(ctx context.Context, method string, form url.Values) (string, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.URL, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	logger.Debug("Fetching menu page", map[string]interface{}{
		"method": method,
		"url":    c.config.URL,
		"form":   form.Encode(),
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d from %s %s", ErrUnexpectedStatus, resp.StatusCode, method, c.config.URL)
	}

	logger.Debug("Fetched menu page", map[string]interface{}{
		"method":         method,
		"content_length": len(content),
	})
	return string(content), nil
}
