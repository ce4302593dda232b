package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/devbuddy-ai/devbuddy/internal/config"
)

const geminiDefaultModel = "gemini-2.5-flash"

// GeminiClient implements Client with the Google GenAI SDK.
type GeminiClient struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	dbg         debugFlags
}

// NewGemini creates a GeminiClient from cfg.
func NewGemini(ctx context.Context, cfg config.AIConfig) (*GeminiClient, error) {
	gc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		gc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, gc)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = geminiDefaultModel
	}
	return &GeminiClient{
		client:      client,
		model:       model,
		maxTokens:   int32(maxTokens(cfg)),
		temperature: float32(cfg.Temperature),
		dbg:         newDebugFlags(),
	}, nil
}

func (g *GeminiClient) Name() string { return ProviderGemini }

func (g *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return g.CompleteWithSystem(ctx, SystemPrompt, prompt)
}

func (g *GeminiClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	g.dbg.request(g.Name(), g.model, len(prompt))
	temp := g.temperature
	gen := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   g.maxTokens,
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), gen)
	if err != nil {
		return "", fmt.Errorf("calling Gemini API: %w", err)
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", fmt.Errorf("Gemini returned no content")
	}
	g.dbg.exchange(g.Name(), prompt, out)
	return out, nil
}
