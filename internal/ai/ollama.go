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

// OllamaClient implements Client using a local Ollama server.
// Configure with: ai.provider = "ollama", ai.ollama_url = "http://localhost:11434"
type OllamaClient struct {
	baseURL      string
	model        string
	temperature  float64
	client       *http.Client
	maxAttempts  int
	retryBackoff time.Duration
	dbg          debugFlags
}

// NewOllama creates an OllamaClient from cfg.
func NewOllama(cfg config.AIConfig) *OllamaClient {
	base := cfg.OllamaURL
	if base == "" {
		base = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "llama3.2"
	}
	return &OllamaClient{
		baseURL:      strings.TrimRight(base, "/"),
		model:        model,
		temperature:  cfg.Temperature,
		client:       &http.Client{Timeout: timeout(cfg)},
		maxAttempts:  2,
		retryBackoff: 1500 * time.Millisecond,
		dbg:          newDebugFlags(),
	}
}

func (o *OllamaClient) Name() string { return ProviderOllama }

func (o *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	return o.CompleteWithSystem(ctx, SystemPrompt, prompt)
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (o *OllamaClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	payload := ollamaRequest{
		Model:   o.model,
		System:  system,
		Prompt:  prompt,
		Options: map[string]any{"temperature": o.temperature},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshalling ollama request: %w", err)
	}
	o.dbg.request(o.Name(), o.model, len(prompt))

	attempts := o.maxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			o.baseURL+"/api/generate", bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("calling Ollama API: %w", err)
		} else {
			data, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("reading Ollama response: %w", readErr)
			case resp.StatusCode != http.StatusOK:
				msg := strings.TrimSpace(string(data))
				if msg == "" {
					msg = http.StatusText(resp.StatusCode)
				}
				lastErr = fmt.Errorf("ollama /api/generate returned status %d: %s", resp.StatusCode, truncateForError(msg, 300))
				if !shouldRetryOllamaStatus(resp.StatusCode) {
					return "", lastErr
				}
			default:
				var apiResp ollamaResponse
				if err := json.Unmarshal(data, &apiResp); err != nil {
					return "", fmt.Errorf("parsing Ollama response: %w", err)
				}
				out := strings.TrimSpace(apiResp.Response)
				o.dbg.exchange(o.Name(), prompt, out)
				return out, nil
			}
		}

		if attempt >= attempts || ctx.Err() != nil {
			break
		}
		slog.Warn("Ollama generate failed; retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"error", lastErr,
		)
		if o.retryBackoff > 0 {
			select {
			case <-time.After(o.retryBackoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("ollama /api/generate failed")
	}
	return "", lastErr
}

func shouldRetryOllamaStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func truncateForError(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
