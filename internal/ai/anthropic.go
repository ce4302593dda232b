package ai

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

	"github.com/devbuddy-ai/devbuddy/internal/config"
)

const (
	anthropicDefaultBase   = "https://api.anthropic.com/v1"
	anthropicVersionHeader = "2023-06-01"
	anthropicDefaultModel  = "claude-sonnet-4-5"
)

// AnthropicClient implements Client using the Anthropic Messages REST API.
type AnthropicClient struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	client      *http.Client
	dbg         debugFlags
}

// NewAnthropic creates an AnthropicClient from cfg.
func NewAnthropic(cfg config.AIConfig) *AnthropicClient {
	base := cfg.BaseURL
	if base == "" {
		base = anthropicDefaultBase
	}
	model := cfg.Model
	if model == "" {
		model = anthropicDefaultModel
	}
	return &AnthropicClient{
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     strings.TrimRight(base, "/"),
		maxTokens:   maxTokens(cfg),
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout(cfg)},
		dbg:         newDebugFlags(),
	}
}

func (c *AnthropicClient) Name() string { return ProviderAnthropic }

func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, SystemPrompt, prompt)
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnthropicClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	payload := anthropicRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		System:      system,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshalling Anthropic request: %w", err)
	}
	c.dbg.request(c.Name(), c.model, len(prompt))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating Anthropic request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersionHeader)
	req.Header.Set("content-type", "application/json")

	// #nosec G107 -- baseURL comes from trusted local config.
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Anthropic API: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if err != nil {
		return "", fmt.Errorf("reading Anthropic response body: %w", err)
	}
	if closeErr != nil && c.dbg.debug {
		slog.Debug("Closing Anthropic response body", "error", closeErr)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Anthropic API error status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("parsing Anthropic API response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("Anthropic error: %s", apiResp.Error.Message)
	}
	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("Anthropic returned no content")
	}

	out := strings.TrimSpace(apiResp.Content[0].Text)
	c.dbg.exchange(c.Name(), prompt, out)
	return out, nil
}

func maxTokens(cfg config.AIConfig) int {
	if cfg.MaxTokens > 0 {
		return cfg.MaxTokens
	}
	return 4096
}

func timeout(cfg config.AIConfig) time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return 120 * time.Second
}
