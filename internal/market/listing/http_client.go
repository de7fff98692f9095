// Package listing talks to the external market listing store over HTTP.
package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	marketdomain "github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/market/domain"
	"github.com/mamidalamokshithreddy-cloud/Storage-Guard-sub003/internal/observability/tracing"
)

const defaultTimeout = 10 * time.Second

// Config configures the listing store client.
type Config struct {
	Endpoint string
	Timeout  time.Duration
	APIKey   string
}

// Client publishes listing payloads to the market store endpoint. Every
// call is bounded by the configured timeout; a timeout is reported as a
// failure so the snapshot is marked failed rather than maybe-published.
type Client struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	http     *http.Client
	log      *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, marketdomain.ErrListingUnavailable
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		timeout:  timeout,
		http:     tracing.WrapHTTPClient(&http.Client{Timeout: timeout}),
		log:      log.Named("market.listing"),
	}, nil
}

func (c *Client) PublishListing(ctx context.Context, payload marketdomain.ListingPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("listing store call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	// Bounded read keeps a misbehaving store from holding the sweep.
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("listing store returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
}
