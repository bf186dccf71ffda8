package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"jokefeed/internal/config"
	"jokefeed/internal/models"
)

// UsageClient pushes usage snapshots to the remote track-usage endpoint.
// The endpoint is opaque and unreliable; callers must treat every push as
// best-effort.
type UsageClient struct {
	cfg    config.SyncConfig
	client *http.Client
}

func NewUsageClient(cfg config.SyncConfig, opts ...Option) *UsageClient {
	c := &UsageClient{
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

type Option func(*UsageClient)

func WithHTTPClient(client *http.Client) Option {
	return func(c *UsageClient) {
		c.client = client
	}
}

// TrackUsage POSTs the snapshot. Any transport or non-2xx failure is
// returned as an error; the client never retries.
func (c *UsageClient) TrackUsage(ctx context.Context, snap models.UsageSnapshot) error {
	if c.cfg.URL == "" {
		return fmt.Errorf("usage endpoint is not configured")
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal usage snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to push usage snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("usage endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
