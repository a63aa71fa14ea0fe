// Package httpdoc implements the remote document store over HTTP. Documents
// live at {base_url}/{category}/{task_id}/subtasks.json and are replaced
// wholesale with a PUT.
package httpdoc

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

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/boardkit/boardpulse/internal/board"
)

const subtasksResource = "subtasks.json"

// Config controls the HTTP document store client.
type Config struct {
	BaseURL            string
	Timeout            time.Duration
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

// Client writes subtask documents to the remote store. Calls are guarded by
// a circuit breaker so a flapping store does not tie up toggle flows.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewClient validates the base URL and constructs a Client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote.base_url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse remote base url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 3
	}
	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 5 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "remote-docstore",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
		logger:  logger,
	}, nil
}

// ReplaceSubtasks PUTs the full subtask sequence to the task's document path.
// A nil sequence is written as an empty array so the remote document never
// carries a JSON null.
func (c *Client) ReplaceSubtasks(ctx context.Context, category, taskID string, subtasks []board.Subtask) error {
	if category == "" || taskID == "" {
		return fmt.Errorf("category and task id are required")
	}
	if subtasks == nil {
		subtasks = []board.Subtask{}
	}
	body, err := json.Marshal(subtasks)
	if err != nil {
		return fmt.Errorf("marshal subtasks: %w", err)
	}
	docURL := fmt.Sprintf("%s/%s/%s/%s",
		c.baseURL,
		url.PathEscape(category),
		url.PathEscape(taskID),
		subtasksResource,
	)
	_, err = c.breaker.Execute(func() (any, error) {
		return nil, c.put(ctx, docURL, body)
	})
	if err != nil {
		return fmt.Errorf("replace subtasks for %s/%s: %w", category, taskID, err)
	}
	return nil
}

func (c *Client) put(ctx context.Context, docURL string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, docURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("failed to close response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote store returned status %d", resp.StatusCode)
	}
	return nil
}

// Close implements docstore.Store; the HTTP client holds no resources that
// need explicit shutdown.
func (c *Client) Close(context.Context) error {
	return nil
}
