package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"llmperfbench/internal/types"
)

const (
	// DefaultTemperature is sent with every benchmark and probe request.
	DefaultTemperature = 0.7
	// DefaultRequestTimeout bounds a whole request including the drained stream.
	DefaultRequestTimeout = 300 * time.Second

	maxErrorBody = 512
)

// ClientConfig describes the target completion service.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration

	// HTTPClient overrides the shared client built from Timeout.
	HTTPClient *http.Client
}

func (cfg ClientConfig) httpClient() *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &http.Client{Timeout: timeout}
}

// TransportError reports a request that failed before its stream was fully
// drained: connect/send failures, non-2xx statuses and body read errors.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("completion request failed with status %d: %s", e.StatusCode, e.Body)
		}
		return fmt.Sprintf("completion request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("completion %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client sends streaming completion requests. A single Client shares one
// connection pool across all concurrent requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	now        func() time.Time
}

// NewClient builds a Client for the given service.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		httpClient: cfg.httpClient(),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		now:        time.Now,
	}
}

// Model returns the model name sent with every request.
func (c *Client) Model() string {
	return c.model
}

// Execute sends one streaming completion request and drains its stream.
func (c *Client) Execute(ctx context.Context, prompt string, maxTokens uint32) (types.RequestMetrics, error) {
	body, err := json.Marshal(CompletionRequest{
		Model:         c.model,
		Prompt:        prompt,
		MaxTokens:     maxTokens,
		Temperature:   DefaultTemperature,
		Stream:        true,
		StreamOptions: &StreamOptions{IncludeUsage: true},
	})
	if err != nil {
		return types.RequestMetrics{}, fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completions", bytes.NewReader(body))
	if err != nil {
		return types.RequestMetrics{}, &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.RequestMetrics{}, &TransportError{Op: "send", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return types.RequestMetrics{}, &TransportError{
			Op:         "status",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	parser := NewStreamParser(start, c.now)
	if err := parser.Consume(resp.Body); err != nil {
		return types.RequestMetrics{}, &TransportError{Op: "read stream", Err: err}
	}
	return parser.Finish(maxTokens), nil
}
