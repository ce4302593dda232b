package licensing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/devbuddy-ai/devbuddy/internal/database"
)

// MaxFailedPayments is the number of failed invoice attempts after which
// a subscription's license is suspended.
const MaxFailedPayments = 3

// Grant describes a paid subscription to be turned into a license.
type Grant struct {
	Plan           Plan
	Email          string
	SubscriptionID string
	CustomerID     string
}

// Issue creates or refreshes the license for a paid subscription. A grant
// for a known subscription updates that license in place and reactivates it.
func (m *Manager) Issue(ctx context.Context, g Grant) (*License, error) {
	if g.SubscriptionID != "" {
		lic, err := m.BySubscription(ctx, g.SubscriptionID)
		switch {
		case err == nil:
			lic.Plan = g.Plan
			if g.Email != "" {
				lic.Email = g.Email
			}
			if g.CustomerID != "" {
				lic.CustomerID = g.CustomerID
			}
			lic.Active = true
			lic.FailedPayments = 0
			lic.UpdatedAt = m.stamp()
			if err := m.db.Update(ctx, "licenses", lic, "id = ?", lic.ID); err != nil {
				return nil, fmt.Errorf("refreshing license: %w", err)
			}
			return lic, nil
		case !errors.Is(err, database.ErrNotFound):
			return nil, err
		}
	}

	now := m.stamp()
	lic := &License{
		Key:            GenerateKey(g.Plan, g.Email),
		Plan:           g.Plan,
		Email:          g.Email,
		Active:         true,
		SubscriptionID: g.SubscriptionID,
		CustomerID:     g.CustomerID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	id, err := m.db.Insert(ctx, "licenses", lic)
	if err != nil {
		return nil, fmt.Errorf("issuing license: %w", err)
	}
	lic.ID = id
	slog.Info("License issued", "plan", g.Plan, "subscription", g.SubscriptionID)
	return lic, nil
}

// BySubscription finds the license bound to a subscription.
func (m *Manager) BySubscription(ctx context.Context, subscriptionID string) (*License, error) {
	var lic License
	if err := m.db.Get(ctx, &lic,
		`SELECT `+licenseColumns+` FROM licenses WHERE subscription_id = ? ORDER BY id DESC LIMIT 1`,
		subscriptionID); err != nil {
		return nil, err
	}
	return &lic, nil
}

// SetActive switches every license bound to the subscription on or off and
// returns how many rows changed.
func (m *Manager) SetActive(ctx context.Context, subscriptionID string, active bool) (int64, error) {
	n, err := m.db.Exec(ctx,
		`UPDATE licenses SET active = ?, updated_at = ? WHERE subscription_id = ?`,
		active, m.stamp(), subscriptionID)
	if err != nil {
		return 0, fmt.Errorf("updating subscription %s: %w", subscriptionID, err)
	}
	return n, nil
}

// RecordPaymentFailure stores the invoice attempt count and suspends the
// license once it reaches MaxFailedPayments. It reports whether the
// license was suspended.
func (m *Manager) RecordPaymentFailure(ctx context.Context, subscriptionID string, attempts int) (bool, error) {
	suspend := attempts >= MaxFailedPayments
	query := `UPDATE licenses SET failed_payments = ?, updated_at = ? WHERE subscription_id = ?`
	if suspend {
		query = `UPDATE licenses SET failed_payments = ?, updated_at = ?, active = 0 WHERE subscription_id = ?`
	}
	if _, err := m.db.Exec(ctx, query, attempts, m.stamp(), subscriptionID); err != nil {
		return false, fmt.Errorf("recording payment failure: %w", err)
	}
	if suspend {
		slog.Warn("License suspended after failed payments", "subscription", subscriptionID, "attempts", attempts)
	}
	return suspend, nil
}

// RecordPaymentSuccess clears the failure count and reactivates the license.
func (m *Manager) RecordPaymentSuccess(ctx context.Context, subscriptionID string) error {
	if _, err := m.db.Exec(ctx,
		`UPDATE licenses SET failed_payments = 0, active = 1, updated_at = ? WHERE subscription_id = ?`,
		m.stamp(), subscriptionID); err != nil {
		return fmt.Errorf("recording payment: %w", err)
	}
	return nil
}
