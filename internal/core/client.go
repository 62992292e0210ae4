// Package core implements the HTTP client for the control-plane API that
// owns source configuration and source health status.
package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/intelforge/collector-worker/internal/collector"
	"github.com/intelforge/collector-worker/internal/logging"
	"github.com/intelforge/collector-worker/internal/metrics"
)

// ErrSourceNotFound is returned when the control plane resolves the request
// but knows no source with the given id. It is terminal, never retried.
var ErrSourceNotFound = errors.New("source not found")

// TransportError wraps a failure to reach the control plane. The current task
// attempt is aborted; recovery is the task queue's retry mechanism, not a
// loop inside the dispatcher.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("core api %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Config captures the client parameters.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is a synchronous JSON client for the control-plane worker API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds a Client. A zero timeout falls back to 10 seconds.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// GetSource resolves a source configuration by id.
func (c *Client) GetSource(ctx context.Context, id string) (collector.Source, error) {
	const endpoint = "get_source"
	url := fmt.Sprintf("%s/api/v1/worker/sources/%s", c.cfg.BaseURL, id)

	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		metrics.ObserveCoreRequest(endpoint, "transport_error")
		return collector.Source{}, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer closeBody(resp, c.logger)
	metrics.ObserveCoreRequest(endpoint, strconv.Itoa(resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return collector.Source{}, ErrSourceNotFound
	case resp.StatusCode >= 500:
		return collector.Source{}, &TransportError{
			Endpoint: endpoint,
			Err:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	case resp.StatusCode != http.StatusOK:
		return collector.Source{}, fmt.Errorf("get source %s: unexpected status %d", id, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return collector.Source{}, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(bytes.TrimSpace(body)) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return collector.Source{}, ErrSourceNotFound
	}

	var source collector.Source
	if err := json.Unmarshal(body, &source); err != nil {
		return collector.Source{}, fmt.Errorf("decode source %s: %w", id, err)
	}
	return source, nil
}

// UpdateStatus reports a source health status. Best effort: a delivery
// failure is logged and swallowed so status reporting never fails a task.
func (c *Client) UpdateStatus(ctx context.Context, id string, status collector.SourceStatus) {
	const endpoint = "update_status"
	url := fmt.Sprintf("%s/api/v1/worker/sources/%s/status", c.cfg.BaseURL, id)

	payload, err := json.Marshal(status)
	if err != nil {
		c.logger.Error("encode status update", zap.String("source_id", id), zap.Error(err))
		return
	}

	resp, err := c.do(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		metrics.ObserveCoreRequest(endpoint, "transport_error")
		c.logger.Warn("status update not delivered",
			zap.String("source_id", id),
			zap.Error(err),
		)
		return
	}
	defer closeBody(resp, c.logger)
	metrics.ObserveCoreRequest(endpoint, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode >= 400 {
		c.logger.Warn("status update rejected",
			zap.String("source_id", id),
			zap.Int("status_code", resp.StatusCode),
		)
	}
}

// TriggerDownstream starts post-collection processing for a source. The call
// returns once the control plane has accepted the trigger; it does not await
// downstream completion.
func (c *Client) TriggerDownstream(ctx context.Context, id string) error {
	const endpoint = "trigger_downstream"
	url := fmt.Sprintf("%s/api/v1/worker/sources/%s/process", c.cfg.BaseURL, id)

	resp, err := c.do(ctx, http.MethodPost, url, nil)
	if err != nil {
		metrics.ObserveCoreRequest(endpoint, "transport_error")
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	defer closeBody(resp, c.logger)
	metrics.ObserveCoreRequest(endpoint, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("trigger downstream for %s: unexpected status %d", id, resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("control plane unreachable",
			zap.String("url", url),
			zap.Error(err),
			logging.Critical(),
		)
		return nil, err
	}
	return resp, nil
}

func closeBody(resp *http.Response, logger *zap.Logger) {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		logger.Debug("drain response body", zap.Error(err))
	}
	if err := resp.Body.Close(); err != nil {
		logger.Debug("close response body", zap.Error(err))
	}
}
