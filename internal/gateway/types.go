package gateway

import (
	"context"

	"github.com/devbuddy-ai/devbuddy/internal/billing"
)

// Payments is the billing backend used by the checkout and subscription
// endpoints. *billing.Client implements it.
type Payments interface {
	CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error)
	GetSubscription(ctx context.Context, id string) (*billing.Subscription, error)
	CancelSubscription(ctx context.Context, id string, atPeriodEnd bool) (*billing.Subscription, error)
}

// Ledger is the subset of the license manager the gateway drives directly.
type Ledger interface {
	billing.Licenses
	Rollover(ctx context.Context, keepMonths int) error
}

type checkoutRequest struct {
	Plan       string            `json:"plan"`
	Email      string            `json:"email"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type checkoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	Plan      string `json:"plan"`
	Status    string `json:"status"`
}

type cancelRequest struct {
	SubscriptionID string `json:"subscription_id"`
	// AtPeriodEnd defaults to true when omitted.
	AtPeriodEnd *bool `json:"at_period_end,omitempty"`
}

// HealthStatus is returned by GET /health.
type HealthStatus struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
