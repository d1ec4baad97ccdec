// Package registry is the client for the remote strategy-registry
// service. The executor polls it for the strategies it should run.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Definition describes one registered strategy.
type Definition struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Token     string         `json:"token"`
	Type      string         `json:"strategy_type"`
	Params    map[string]any `json:"params"`
	Owner     string         `json:"owner"`
	Investors []string       `json:"investors"`
	IsOpen    bool           `json:"is_open"`
}

// Client talks to the registry over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
	retries int
	delay   time.Duration
	log     zerolog.Logger
}

func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		retries: 3,
		delay:   2 * time.Second,
		log:     log.With().Str("component", "registry").Logger(),
	}
}

// retry wraps fn with exponential backoff for transient errors, capped at
// 5 minutes between attempts.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	backoff := c.delay
	for i := 1; i <= c.retries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		c.log.Warn().Err(err).Int("attempt", i).Int("max", c.retries).
			Dur("backoff", backoff).Msg("registry request failed")
		if i == c.retries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 5*time.Minute {
			backoff *= 2
			if backoff > 5*time.Minute {
				backoff = 5 * time.Minute
			}
		}
	}
	return errors.New("all retry attempts failed")
}

// List fetches every registered strategy definition.
func (c *Client) List(ctx context.Context) ([]Definition, error) {
	var defs []Definition
	err := c.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/strategies", nil)
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetching strategies: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("registry returned %s", resp.Status)
		}
		defs = nil
		if err := json.NewDecoder(resp.Body).Decode(&defs); err != nil {
			return fmt.Errorf("decoding strategies: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("List failed: %w", err)
	}
	return defs, nil
}
