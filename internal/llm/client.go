// Package llm is the planner transport: a small client for the Anthropic
// Messages API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"dreamofone.ai/internal/protocol"
)

const (
	DefaultEndpoint = "https://api.anthropic.com/v1/messages"
	DefaultModel    = "claude-haiku-4-5-20251001"
	apiVersion      = "2023-06-01"

	maxResponseBytes = 1 << 20
)

type Config struct {
	APIKey       string
	Endpoint     string
	Model        string
	Timeout      time.Duration
	MaxPerMinute int
}

// Client wraps the Messages API. A nil *Client is disabled.
type Client struct {
	apiKey     string
	endpoint   string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *log.Logger

	mu        sync.Mutex
	callCount int
	resetAt   time.Time
	maxPerMin int
}

// NewClient returns nil when no API key is configured.
func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 6 * time.Second
	}
	if cfg.MaxPerMinute <= 0 {
		cfg.MaxPerMinute = 20
	}
	return &Client{
		apiKey:     cfg.APIKey,
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		maxPerMin:  cfg.MaxPerMinute,
	}
}

func (c *Client) SetLogger(l *log.Logger) {
	if c != nil {
		c.logger = l
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Plan sends one planning request and returns the concatenated text blocks.
// The call is bounded by both ctx and the client timeout.
func (c *Client) Plan(ctx context.Context, req protocol.PlanRequest) (string, error) {
	if !c.Enabled() {
		return "", protocol.NewError(protocol.ErrPlannerDisabled, "llm client not configured", nil)
	}
	if err := c.take(); err != nil {
		return "", err
	}

	body, err := json.Marshal(request{
		Model:       c.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    []message{{Role: "user", Content: req.User}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", protocol.NewError(protocol.ErrPlannerTransport, "api call", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", protocol.NewError(protocol.ErrPlannerTransport, "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", protocol.NewError(protocol.ErrPlannerTransport, fmt.Sprintf("api error %d: %s", resp.StatusCode, truncate(string(respBody), 200)), nil)
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", protocol.NewError(protocol.ErrPlannerTransport, "unmarshal response", err)
	}
	var sb strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", protocol.NewError(protocol.ErrNoObject, "empty response", nil)
	}
	if c.logger != nil {
		c.logger.Printf("llm: plan in=%d out=%d", apiResp.Usage.InputTokens, apiResp.Usage.OutputTokens)
	}
	return sb.String(), nil
}

func (c *Client) take() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.After(c.resetAt) {
		c.callCount = 0
		c.resetAt = now.Add(time.Minute)
	}
	if c.callCount >= c.maxPerMin {
		return protocol.NewError(protocol.ErrRateLimit, fmt.Sprintf("%d calls/min", c.maxPerMin), nil)
	}
	c.callCount++
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
