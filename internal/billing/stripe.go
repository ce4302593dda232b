package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/devbuddy-ai/devbuddy/internal/config"
	"github.com/devbuddy-ai/devbuddy/internal/licensing"
)

const stripeDefaultBase = "https://api.stripe.com"

// ErrNotConfigured is returned when no Stripe API key is set.
var ErrNotConfigured = errors.New("stripe API key not configured")

// Client is a minimal Stripe REST client covering checkout and
// subscription management.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a Client from cfg.
func NewClient(cfg config.BillingConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = stripeDefaultBase
	}
	return &Client{
		apiKey:  cfg.StripeAPIKey,
		baseURL: strings.TrimRight(base, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// CheckoutRequest describes a subscription purchase.
type CheckoutRequest struct {
	Plan       licensing.Plan
	Email      string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// CheckoutSession is the hosted payment page created for a request.
type CheckoutSession struct {
	ID        string         `json:"session_id"`
	URL       string         `json:"url"`
	Plan      licensing.Plan `json:"plan"`
	Email     string         `json:"email"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// Subscription is the subset of a Stripe subscription devbuddy uses.
type Subscription struct {
	ID                 string         `json:"subscription_id"`
	CustomerID         string         `json:"customer_id"`
	Plan               licensing.Plan `json:"plan"`
	Status             string         `json:"status"`
	CurrentPeriodStart time.Time      `json:"current_period_start"`
	CurrentPeriodEnd   time.Time      `json:"current_period_end"`
	CancelAtPeriodEnd  bool           `json:"cancel_at_period_end"`
}

// CreateCheckoutSession opens a subscription-mode checkout for a paid plan.
// Plan and email are stored as metadata on both the session and the
// subscription so webhooks can issue the license.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.Plan == licensing.PlanFree {
		return nil, errors.New("free plan does not require payment")
	}
	price, ok := PriceFor(req.Plan)
	if !ok {
		return nil, fmt.Errorf("invalid plan: %s", req.Plan)
	}

	meta := map[string]string{"plan": string(req.Plan), "email": req.Email}
	for k, v := range req.Metadata {
		meta[k] = v
	}
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("customer_email", req.Email)
	form.Set("line_items[0][price]", price.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		form.Set("metadata["+k+"]", meta[k])
		form.Set("subscription_data[metadata]["+k+"]", meta[k])
	}

	var resp struct {
		ID     string `json:"id"`
		URL    string `json:"url"`
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &resp); err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}
	slog.Info("Checkout session created", "plan", req.Plan, "session", resp.ID)
	return &CheckoutSession{
		ID:        resp.ID,
		URL:       resp.URL,
		Plan:      req.Plan,
		Email:     req.Email,
		Status:    resp.Status,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// GetSubscription fetches a subscription by ID.
func (c *Client) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	var sub stripeSubscription
	if err := c.do(ctx, http.MethodGet, "/v1/subscriptions/"+url.PathEscape(id), nil, &sub); err != nil {
		return nil, fmt.Errorf("getting subscription %s: %w", id, err)
	}
	return sub.convert(), nil
}

// CancelSubscription cancels at the end of the billing period, or
// immediately when atPeriodEnd is false.
func (c *Client) CancelSubscription(ctx context.Context, id string, atPeriodEnd bool) (*Subscription, error) {
	path := "/v1/subscriptions/" + url.PathEscape(id)
	var sub stripeSubscription
	var err error
	if atPeriodEnd {
		err = c.do(ctx, http.MethodPost, path, url.Values{"cancel_at_period_end": {"true"}}, &sub)
	} else {
		err = c.do(ctx, http.MethodDelete, path, nil, &sub)
	}
	if err != nil {
		return nil, fmt.Errorf("canceling subscription %s: %w", id, err)
	}
	slog.Info("Subscription canceled", "subscription", id, "at_period_end", atPeriodEnd)
	return sub.convert(), nil
}

type stripeSubscription struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	Metadata           map[string]string `json:"metadata"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
}

func (s *stripeSubscription) convert() *Subscription {
	return &Subscription{
		ID:                 s.ID,
		CustomerID:         s.Customer,
		Plan:               planFromMetadata(s.Metadata),
		Status:             s.Status,
		CurrentPeriodStart: time.Unix(s.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(s.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
	}
}

// planFromMetadata reads metadata["plan"], defaulting to pro.
func planFromMetadata(meta map[string]string) licensing.Plan {
	p, err := licensing.ParsePlan(meta["plan"])
	if err != nil {
		return licensing.PlanPro
	}
	return p
}

type stripeError struct {
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating Stripe request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	// #nosec G107 -- baseURL comes from trusted local config.
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling Stripe API: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading Stripe response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		var se stripeError
		if json.Unmarshal(data, &se) == nil && se.Error != nil {
			return fmt.Errorf("Stripe API error status %d: %s", resp.StatusCode, se.Error.Message)
		}
		return fmt.Errorf("Stripe API error status %d: %s", resp.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing Stripe response: %w", err)
	}
	return nil
}
