package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"jokefeed/internal/config"
	"jokefeed/internal/models"
	"jokefeed/pkg/logger"
)

// Client fetches joke content from the remote feed backend.
type Client struct {
	cfg    config.FeedConfig
	client *http.Client
}

func New(cfg config.FeedConfig, opts ...Option) *Client {
	c := &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

type feedResponse struct {
	Jokes []models.Joke `json:"jokes"`
}

// Fetch returns the current feed page, optionally narrowed to a category.
func (c *Client) Fetch(ctx context.Context, category string) ([]models.Joke, error) {
	if c.cfg.URL == "" {
		return nil, fmt.Errorf("feed url is not configured")
	}

	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed url: %w", err)
	}

	q := u.Query()
	q.Set("limit", strconv.Itoa(c.cfg.Limit))
	if category != "" {
		q.Set("category", category)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "jokefeed/1.0")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	var parsed feedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	// Backfill feed positions for backends that omit them.
	for i := range parsed.Jokes {
		if parsed.Jokes[i].FeedIndex == 0 {
			parsed.Jokes[i].FeedIndex = i
		}
	}

	logger.Debug("Feed fetched",
		logger.Int("jokes", len(parsed.Jokes)),
		logger.String("category", category),
		logger.Duration("elapsed", time.Since(start)),
	)

	return parsed.Jokes, nil
}
