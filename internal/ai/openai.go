package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/devbuddy-ai/devbuddy/internal/config"
)

const openAIDefaultModel = "gpt-4o"

// OpenAIClient implements Client with the go-openai SDK.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	dbg         debugFlags
}

// NewOpenAI creates an OpenAIClient from cfg.
func NewOpenAI(cfg config.AIConfig) (*OpenAIClient, error) {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid OpenAI base URL: %w", err)
		}
		if u.Scheme != "https" && u.Scheme != "http" {
			return nil, fmt.Errorf("invalid OpenAI base URL scheme %q", u.Scheme)
		}
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: timeout(cfg)}

	model := cfg.Model
	if model == "" {
		model = openAIDefaultModel
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(oc),
		model:       model,
		maxTokens:   maxTokens(cfg),
		temperature: float32(cfg.Temperature),
		dbg:         newDebugFlags(),
	}, nil
}

func (o *OpenAIClient) Name() string { return ProviderOpenAI }

func (o *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return o.CompleteWithSystem(ctx, SystemPrompt, prompt)
}

func (o *OpenAIClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	o.dbg.request(o.Name(), o.model, len(prompt))
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("OpenAI API error status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	slog.Debug("Received response from OpenAI", "finish_reason", resp.Choices[0].FinishReason)

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	o.dbg.exchange(o.Name(), prompt, out)
	return out, nil
}
