package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/antoniostano/calliope/internal/reliability"
)

const (
	DefaultBaseURL     = "https://api.mistral.ai"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3
	DefaultBackoffMin  = 4 * time.Second
	DefaultBackoffMax  = 10 * time.Second
	DefaultTemperature = 0.7
)

// Message is one entry of the chat-completions wire payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one completion call.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Response is the provider's completion envelope.
type Response struct {
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Message Message `json:"message"`
}

// Observer receives per-attempt outcomes, typically backed by metrics.
type Observer interface {
	ObserveUpstreamLatency(d time.Duration, outcome string)
	IncUpstreamRetry()
}

// Config controls client construction. Zero values take the defaults above.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration

	// HTTPClient overrides the transport, used by tests.
	HTTPClient *http.Client
	Logger     *slog.Logger
	Observer   Observer
}

// Client talks to a Mistral-style chat-completions endpoint. Transport
// failures (connection errors, timeouts) are retried with capped exponential
// backoff; a received non-2xx response or a malformed envelope fails the call
// immediately.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	backoffMin  time.Duration
	backoffMax  time.Duration
	logger      *slog.Logger
	observer    Observer
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = DefaultBackoffMin
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = DefaultBackoffMax
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  cfg.HTTPClient,
		maxAttempts: cfg.MaxAttempts,
		backoffMin:  cfg.BackoffMin,
		backoffMax:  cfg.BackoffMax,
		logger:      cfg.Logger,
		observer:    cfg.Observer,
	}
}

// Complete issues the completion call, retrying only transport failures, at
// most maxAttempts times. The last error is surfaced after exhaustion.
func (c *Client) Complete(ctx context.Context, req Request, apiKey string) (*Response, error) {
	if req.Temperature == 0 {
		req.Temperature = DefaultTemperature
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		start := time.Now()
		resp, err := c.doAttempt(ctx, req, apiKey)
		latency := time.Since(start)

		if err == nil {
			c.logger.Info("upstream call completed",
				"model", req.Model, "latency", latency, "attempt", attempt)
			c.observe(latency, "success")
			return resp, nil
		}

		c.logger.Error("upstream call failed",
			"model", req.Model, "latency", latency, "attempt", attempt, "error", err)
		c.observe(latency, "error")
		lastErr = err

		if !reliability.IsRetryable(err) || attempt == c.maxAttempts {
			break
		}
		if c.observer != nil {
			c.observer.IncUpstreamRetry()
		}

		delay := reliability.ExponentialBackoff(attempt-1, c.backoffMin, c.backoffMax)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &TransportError{Op: "backoff wait", Err: ctx.Err()}
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (c *Client) doAttempt(ctx context.Context, req Request, apiKey string) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "send request", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, &StatusError{Code: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out Response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("decode envelope: %v", err)}
	}
	return &out, nil
}

func (c *Client) observe(latency time.Duration, outcome string) {
	if c.observer != nil {
		c.observer.ObserveUpstreamLatency(latency, outcome)
	}
}

// ExtractReply pulls the first completion's message content out of the
// envelope.
func ExtractReply(resp *Response) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", &MalformedResponseError{Reason: "no choices in response"}
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", &MalformedResponseError{Reason: "empty message content"}
	}
	return content, nil
}
