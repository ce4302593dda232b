package ai

import "context"

// NoopClient is used when no provider is configured. Every call returns
// ErrNoClient so commands can report the missing credential cleanly.
type NoopClient struct{}

func (n *NoopClient) Name() string { return "none" }

func (n *NoopClient) Complete(_ context.Context, _ string) (string, error) {
	return "", ErrNoClient
}

func (n *NoopClient) CompleteWithSystem(_ context.Context, _, _ string) (string, error) {
	return "", ErrNoClient
}
