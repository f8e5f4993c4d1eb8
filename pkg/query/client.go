package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single query execution.
const DefaultTimeout = 60 * time.Second

// Result is the outcome of one query execution. ElapsedMs is measured
// end-to-end, including server processing.
type Result struct {
	Rows      [][]any
	ElapsedMs float64
}

// Config for the query client.
type Config struct {
	// ServerURL is the base URL of the data-query endpoint.
	ServerURL string

	// APIKey is an optional access credential sent with every request.
	APIKey string

	// Timeout for a single query execution. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Client executes queries against a data-query HTTP endpoint.
type Client struct {
	log  logrus.FieldLogger
	cfg  *Config
	http *http.Client
}

// NewClient creates a query client for the configured server.
func NewClient(log logrus.FieldLogger, cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		log:  log.WithField("component", "query-client"),
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// queryRequest is the wire format sent to the server.
type queryRequest struct {
	Query  string    `json:"query"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Signal string    `json:"signal,omitempty"`
}

// queryResponse is the wire format returned by the server.
type queryResponse struct {
	Rows       [][]any `json:"rows"`
	Statistics struct {
		ElapsedMs float64 `json:"elapsed_ms"`
	} `json:"statistics"`
}

// Execute runs one query over the given time range, optionally narrowed by a
// signal expression. The reported elapsed time prefers the server-side
// statistic and falls back to the wall-clock duration of the request.
func (c *Client) Execute(
	ctx context.Context,
	q string,
	start, end time.Time,
	signal string,
) (*Result, error) {
	body, err := json.Marshal(queryRequest{
		Query:  q,
		Start:  start,
		End:    end,
		Signal: signal,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding query request: %w", err)
	}

	url := strings.TrimRight(c.cfg.ServerURL, "/") + "/api/queries"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building query request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}

	began := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	elapsed := time.Since(began)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, fmt.Errorf("query failed with status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("decoding query response: %w", err)
	}

	elapsedMs := qr.Statistics.ElapsedMs
	if elapsedMs == 0 {
		elapsedMs = float64(elapsed) / float64(time.Millisecond)
	}

	c.log.WithFields(logrus.Fields{
		"rows":       len(qr.Rows),
		"elapsed_ms": elapsedMs,
	}).Debug("Query executed")

	return &Result{
		Rows:      qr.Rows,
		ElapsedMs: elapsedMs,
	}, nil
}
