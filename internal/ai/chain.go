package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	failureThreshold = 3
	resetTimeout     = 2 * time.Minute
)

type circuitBreaker struct {
	mu           sync.Mutex
	failures     int
	lastFailedAt time.Time
	state        string
}

func newCircuitBreaker() *circuitBreaker {
	return &circuitBreaker{state: "closed"}
}

func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == "open" {
		if time.Since(cb.lastFailedAt) >= resetTimeout {
			cb.state = "half-open"
			return true
		}
		return false
	}
	return true
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = "closed"
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailedAt = time.Now()
	if cb.failures >= failureThreshold {
		cb.state = "open"
		slog.Debug("AI circuit breaker opened", "failures", cb.failures)
	}
}

func (cb *circuitBreaker) trip() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailedAt = time.Now()
	cb.state = "open"
}

// ChainClient tries each client in order until one succeeds. A client
// that keeps failing is skipped for resetTimeout.
type ChainClient struct {
	clients  []Client
	breakers map[string]*circuitBreaker
	mu       sync.RWMutex
	current  string
	fallback bool
}

// NewChain builds a ChainClient over clients.
func NewChain(clients []Client) *ChainClient {
	breakers := make(map[string]*circuitBreaker, len(clients))
	for _, c := range clients {
		breakers[c.Name()] = newCircuitBreaker()
	}
	current := ""
	if len(clients) > 0 {
		current = clients[0].Name()
	}
	return &ChainClient{clients: clients, breakers: breakers, current: current}
}

func (c *ChainClient) Name() string { return "chain" }

func (c *ChainClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, SystemPrompt, prompt)
}

func (c *ChainClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	var lastErr error
	var usedFallback bool

	for _, p := range c.clients {
		cb := c.breakers[p.Name()]
		if !cb.allow() {
			slog.Debug("AI circuit open, skipping provider", "provider", p.Name())
			continue
		}

		out, err := p.CompleteWithSystem(ctx, system, prompt)
		if err == nil {
			cb.recordSuccess()
			c.mu.Lock()
			c.current = p.Name()
			c.fallback = usedFallback
			c.mu.Unlock()
			if usedFallback {
				slog.Info("AI provider succeeded after failover", "provider", p.Name())
			}
			return out, nil
		}

		switch {
		case isAuthError(err):
			cb.trip()
			slog.Warn("AI auth error, opening circuit", "provider", p.Name(), "error", err)
		case isRetriableError(err):
			cb.recordFailure()
		}

		slog.Warn("AI provider failed, trying next", "provider", p.Name(), "error", err)
		lastErr = err
		usedFallback = true
	}

	if lastErr == nil {
		return "", fmt.Errorf("all AI providers are cooling down")
	}
	return "", fmt.Errorf("all AI providers failed; last error: %w", lastErr)
}

// CurrentProvider reports the client that served the last call and
// whether it was a fallback.
func (c *ChainClient) CurrentProvider() (provider string, fallback bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.fallback
}

func isRetriableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "status 429"):
		return true
	case strings.Contains(errStr, "status 5"):
		return true
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "connection refused"):
		return true
	case strings.Contains(errStr, "status 4"):
		return false
	default:
		return true
	}
}

func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "status 401") || strings.Contains(errStr, "status 403")
}
