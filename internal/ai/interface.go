package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/devbuddy-ai/devbuddy/internal/config"
)

// ErrNoClient is returned when no model credential is configured.
var ErrNoClient = errors.New("AI provider not configured: set DEVBUDDY_API_KEY or ai.api_key")

// Client is a language model that turns a prompt into text.
// To add a new provider:
//  1. Create a file in internal/ai/ (e.g. mymodel.go)
//  2. Implement Client
//  3. Register in newSingle()
type Client interface {
	// Name returns the provider identifier (e.g. "anthropic", "ollama").
	Name() string

	// Complete sends prompt with the default reviewer system prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteWithSystem sends prompt with an explicit system prompt.
	CompleteWithSystem(ctx context.Context, system, prompt string) (string, error)
}

// Provider names.
const (
	ProviderAuto      = "auto"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
)

// DetectProvider infers the vendor from the shape of an API key. Unknown
// shapes default to Anthropic.
func DetectProvider(apiKey string) string {
	switch {
	case strings.HasPrefix(apiKey, "sk-ant-"):
		return ProviderAnthropic
	case strings.HasPrefix(apiKey, "sk-"):
		return ProviderOpenAI
	case strings.HasPrefix(apiKey, "AIza"):
		return ProviderGemini
	default:
		return ProviderAnthropic
	}
}

// New returns the configured Client.
// If no credential is set for a keyed provider, it returns a NoopClient
// whose calls fail with ErrNoClient. If fallback providers are
// configured, it returns a ChainClient that tries them in order on
// failure with circuit breaker protection.
func New(cfg config.AIConfig) (Client, error) {
	primary, err := newSingle(cfg.Provider, cfg)
	if err != nil {
		return nil, err
	}

	if len(cfg.Fallback) == 0 {
		return primary, nil
	}

	chain := []Client{primary}
	for _, fallbackProvider := range cfg.Fallback {
		p, err := newSingle(fallbackProvider, cfg)
		if err != nil {
			slog.Warn("Failed to create fallback AI provider, skipping", "provider", fallbackProvider, "error", err)
			continue
		}
		chain = append(chain, p)
	}

	if len(chain) == 1 {
		return primary, nil
	}
	return NewChain(chain), nil
}

// Available reports whether c can make calls at all.
func Available(c Client) bool {
	_, noop := c.(*NoopClient)
	return c != nil && !noop
}

func newSingle(provider string, cfg config.AIConfig) (Client, error) {
	if provider == "" || provider == ProviderAuto {
		if cfg.APIKey == "" {
			return &NoopClient{}, nil
		}
		provider = DetectProvider(cfg.APIKey)
	}

	switch provider {
	case "none":
		return &NoopClient{}, nil
	case ProviderOllama:
		return NewOllama(cfg), nil
	}

	if cfg.APIKey == "" {
		return &NoopClient{}, nil
	}
	switch provider {
	case ProviderAnthropic:
		return NewAnthropic(cfg), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg)
	case ProviderGemini:
		return NewGemini(context.Background(), cfg)
	default:
		return nil, fmt.Errorf("unsupported AI provider %q (supported: anthropic, openai, gemini, ollama)", provider)
	}
}
