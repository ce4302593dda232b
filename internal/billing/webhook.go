package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/devbuddy-ai/devbuddy/internal/licensing"
)

// Event is a Stripe webhook event envelope.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseEvent verifies the signature header and decodes the event.
func ParseEvent(payload []byte, header, secret string) (*Event, error) {
	if err := VerifySignature(payload, header, secret, DefaultTolerance, time.Now()); err != nil {
		return nil, err
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decoding webhook event: %w", err)
	}
	return &ev, nil
}

// Result is the JSON acknowledgement returned for a processed event.
type Result map[string]any

// Licenses is the license store the webhook handler drives.
// *licensing.Manager implements it.
type Licenses interface {
	Issue(ctx context.Context, g licensing.Grant) (*licensing.License, error)
	SetActive(ctx context.Context, subscriptionID string, active bool) (int64, error)
	RecordPaymentFailure(ctx context.Context, subscriptionID string, attempts int) (bool, error)
	RecordPaymentSuccess(ctx context.Context, subscriptionID string) error
}

// WebhookHandler turns Stripe events into license changes.
type WebhookHandler struct {
	licenses Licenses
}

// NewWebhookHandler returns a handler over licenses.
func NewWebhookHandler(licenses Licenses) *WebhookHandler {
	return &WebhookHandler{licenses: licenses}
}

type checkoutObject struct {
	ID              string            `json:"id"`
	CustomerEmail   string            `json:"customer_email"`
	Customer        string            `json:"customer"`
	Subscription    string            `json:"subscription"`
	Metadata        map[string]string `json:"metadata"`
	CustomerDetails *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

type invoiceObject struct {
	Subscription string `json:"subscription"`
	AttemptCount int    `json:"attempt_count"`
}

// Handle dispatches one event. Unknown event types are acknowledged with
// status "ignored".
func (h *WebhookHandler) Handle(ctx context.Context, ev *Event) (Result, error) {
	var (
		res Result
		err error
	)
	switch ev.Type {
	case "checkout.session.completed":
		res, err = h.checkoutCompleted(ctx, ev.Data.Object)
	case "customer.subscription.created":
		res, err = h.subscriptionCreated(ev.Data.Object)
	case "customer.subscription.updated":
		res, err = h.subscriptionUpdated(ctx, ev.Data.Object)
	case "customer.subscription.deleted":
		res, err = h.subscriptionDeleted(ctx, ev.Data.Object)
	case "invoice.payment_succeeded":
		res, err = h.paymentSucceeded(ctx, ev.Data.Object)
	case "invoice.payment_failed":
		res, err = h.paymentFailed(ctx, ev.Data.Object)
	default:
		return Result{"status": "ignored", "event_type": ev.Type}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("handling %s: %w", ev.Type, err)
	}
	slog.Info("Webhook processed", "type", ev.Type, "action", res["action"])
	return res, nil
}

func (h *WebhookHandler) checkoutCompleted(ctx context.Context, raw json.RawMessage) (Result, error) {
	var s checkoutObject
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding checkout session: %w", err)
	}
	email := s.CustomerEmail
	if email == "" && s.CustomerDetails != nil {
		email = s.CustomerDetails.Email
	}
	if email == "" {
		email = s.Metadata["email"]
	}
	plan := planFromMetadata(s.Metadata)

	lic, err := h.licenses.Issue(ctx, licensing.Grant{
		Plan:           plan,
		Email:          email,
		SubscriptionID: s.Subscription,
		CustomerID:     s.Customer,
	})
	if err != nil {
		return nil, err
	}
	return Result{
		"status":      "success",
		"action":      "license_activated",
		"plan":        string(plan),
		"email":       email,
		"license_key": lic.Key,
	}, nil
}

func (h *WebhookHandler) subscriptionCreated(raw json.RawMessage) (Result, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("decoding subscription: %w", err)
	}
	return Result{
		"status":              "success",
		"action":              "subscription_created",
		"subscription_status": sub.Status,
		"plan":                string(planFromMetadata(sub.Metadata)),
	}, nil
}

func (h *WebhookHandler) subscriptionUpdated(ctx context.Context, raw json.RawMessage) (Result, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("decoding subscription: %w", err)
	}

	switch sub.Status {
	case "active":
		plan, err := licensing.ParsePlan(sub.Metadata["plan"])
		if err != nil {
			slog.Warn("Subscription has no usable plan metadata", "subscription", sub.ID, "plan", sub.Metadata["plan"])
			break
		}
		if _, err := h.licenses.Issue(ctx, licensing.Grant{
			Plan:           plan,
			Email:          sub.Metadata["email"],
			SubscriptionID: sub.ID,
			CustomerID:     sub.Customer,
		}); err != nil {
			return nil, err
		}
	case "past_due", "unpaid", "canceled":
		if _, err := h.licenses.SetActive(ctx, sub.ID, false); err != nil {
			return nil, err
		}
	}
	return Result{
		"status":              "success",
		"action":              "subscription_updated",
		"subscription_status": sub.Status,
	}, nil
}

func (h *WebhookHandler) subscriptionDeleted(ctx context.Context, raw json.RawMessage) (Result, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("decoding subscription: %w", err)
	}
	if _, err := h.licenses.SetActive(ctx, sub.ID, false); err != nil {
		return nil, err
	}
	return Result{"status": "success", "action": "license_deactivated"}, nil
}

func (h *WebhookHandler) paymentSucceeded(ctx context.Context, raw json.RawMessage) (Result, error) {
	var inv invoiceObject
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("decoding invoice: %w", err)
	}
	if inv.Subscription != "" {
		if err := h.licenses.RecordPaymentSuccess(ctx, inv.Subscription); err != nil {
			return nil, err
		}
	}
	return Result{
		"status":          "success",
		"action":          "payment_recorded",
		"subscription_id": inv.Subscription,
	}, nil
}

func (h *WebhookHandler) paymentFailed(ctx context.Context, raw json.RawMessage) (Result, error) {
	var inv invoiceObject
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("decoding invoice: %w", err)
	}
	suspended := inv.AttemptCount >= licensing.MaxFailedPayments
	if inv.Subscription != "" {
		var err error
		if suspended, err = h.licenses.RecordPaymentFailure(ctx, inv.Subscription, inv.AttemptCount); err != nil {
			return nil, err
		}
	}
	if suspended {
		return Result{
			"status":        "warning",
			"action":        "license_suspended",
			"reason":        "payment_failed",
			"attempt_count": inv.AttemptCount,
		}, nil
	}
	return Result{
		"status":        "warning",
		"action":        "payment_retry_pending",
		"attempt_count": inv.AttemptCount,
	}, nil
}
