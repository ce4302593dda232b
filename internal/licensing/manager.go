package licensing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/devbuddy-ai/devbuddy/internal/database"
)

const monthLayout = "2006-01"

// License is a row of the licenses table. Local marks the key activated
// on this machine; server-issued keys are tracked by subscription.
type License struct {
	ID             int64  `db:"id" json:"-"`
	Key            string `db:"license_key" json:"license_key"`
	Plan           Plan   `db:"plan" json:"plan"`
	Email          string `db:"email" json:"email"`
	Organization   string `db:"organization" json:"organization,omitempty"`
	Local          bool   `db:"is_local" json:"-"`
	Active         bool   `db:"active" json:"active"`
	ExpiresAt      string `db:"expires_at" json:"expires_at,omitempty"`
	SubscriptionID string `db:"subscription_id" json:"subscription_id,omitempty"`
	CustomerID     string `db:"customer_id" json:"customer_id,omitempty"`
	FailedPayments int    `db:"failed_payments" json:"failed_payments"`
	CreatedAt      string `db:"created_at" json:"created_at"`
	UpdatedAt      string `db:"updated_at" json:"updated_at"`
}

const licenseColumns = `id, license_key, plan, email, organization, is_local, active, expires_at,
	subscription_id, customer_id, failed_payments, created_at, updated_at`

// Expired reports whether ExpiresAt is set and in the past. An
// unparseable timestamp counts as not expired.
func (l *License) Expired(now time.Time) bool {
	if l.ExpiresAt == "" {
		return false
	}
	t, err := time.Parse(time.RFC3339, l.ExpiresAt)
	if err != nil {
		return false
	}
	return now.After(t)
}

type counterRow struct {
	ID        int64  `db:"id"`
	Month     string `db:"month"`
	Kind      string `db:"kind"`
	Count     int    `db:"count"`
	UpdatedAt string `db:"updated_at"`
}

type eventRow struct {
	ID        string `db:"id"`
	Month     string `db:"month"`
	Kind      string `db:"kind"`
	CreatedAt string `db:"created_at"`
}

// Manager resolves the active plan and meters usage per calendar month.
// Counters are read then incremented without locking; concurrent
// processes may under-count.
type Manager struct {
	db  database.DB
	key string
	now func() time.Time
}

// NewManager returns a Manager backed by db. A non-empty key (from config
// or DEVBUDDY_LICENSE_KEY) takes precedence over the locally activated one.
func NewManager(db database.DB, key string) *Manager {
	return &Manager{db: db, key: key, now: time.Now}
}

func (m *Manager) month() string { return m.now().Format(monthLayout) }

func (m *Manager) stamp() string { return m.now().UTC().Format(time.RFC3339) }

// Activate validates key and stores it as this machine's license.
func (m *Manager) Activate(ctx context.Context, key, email string) (*License, error) {
	plan, err := DecodeKey(key)
	if err != nil {
		return nil, err
	}
	if _, err := m.db.Exec(ctx, `UPDATE licenses SET is_local = 0 WHERE is_local = 1`); err != nil {
		return nil, fmt.Errorf("clearing local license: %w", err)
	}
	now := m.stamp()
	lic := License{
		Key:       key,
		Plan:      plan,
		Email:     email,
		Local:     true,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.db.Upsert(ctx, "licenses", lic, []string{"license_key"}); err != nil {
		return nil, fmt.Errorf("saving license: %w", err)
	}
	slog.Info("License activated", "plan", plan)
	return m.byKey(ctx, key)
}

// Deactivate forgets the locally activated license.
func (m *Manager) Deactivate(ctx context.Context) error {
	if _, err := m.db.Exec(ctx, `DELETE FROM licenses WHERE is_local = 1`); err != nil {
		return fmt.Errorf("removing local license: %w", err)
	}
	return nil
}

// License returns the license in effect, or nil when none is configured.
func (m *Manager) License(ctx context.Context) (*License, error) {
	if m.key != "" {
		lic, err := m.byKey(ctx, m.key)
		if err == nil {
			return lic, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
		plan, err := DecodeKey(m.key)
		if err != nil {
			return nil, err
		}
		return &License{Key: m.key, Plan: plan, Active: true}, nil
	}

	var lic License
	err := m.db.Get(ctx, &lic,
		`SELECT `+licenseColumns+` FROM licenses WHERE is_local = 1 ORDER BY id DESC LIMIT 1`)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading license: %w", err)
	}
	return &lic, nil
}

func (m *Manager) byKey(ctx context.Context, key string) (*License, error) {
	var lic License
	if err := m.db.Get(ctx, &lic,
		`SELECT `+licenseColumns+` FROM licenses WHERE license_key = ?`, key); err != nil {
		return nil, err
	}
	return &lic, nil
}

// Plan returns the plan in effect. Missing, invalid, inactive and
// expired licenses all fall back to free.
func (m *Manager) Plan(ctx context.Context) Plan {
	lic, err := m.License(ctx)
	if err != nil {
		slog.Debug("License lookup failed, using free plan", "error", err)
		return PlanFree
	}
	if lic == nil || !lic.Active || lic.Expired(m.now()) {
		return PlanFree
	}
	return lic.Plan
}

// Limits returns the quotas of the plan in effect.
func (m *Manager) Limits(ctx context.Context) Limits {
	return m.Plan(ctx).Limits()
}

// Usage returns the current month's counters. A new month starts at zero.
func (m *Manager) Usage(ctx context.Context) (*Usage, error) {
	month := m.month()
	var rows []counterRow
	if err := m.db.Select(ctx, &rows,
		`SELECT id, month, kind, count, updated_at FROM usage_counters WHERE month = ?`, month); err != nil {
		return nil, fmt.Errorf("loading usage: %w", err)
	}
	u := &Usage{Month: month}
	for _, r := range rows {
		u.set(Kind(r.Kind), r.Count)
	}
	return u, nil
}

// CheckLimit returns a *LimitError when kind's monthly quota is used up.
func (m *Manager) CheckLimit(ctx context.Context, kind Kind) error {
	limit := kind.limit(m.Limits(ctx))
	if limit == Unlimited {
		return nil
	}
	u, err := m.Usage(ctx)
	if err != nil {
		return err
	}
	if used := u.Count(kind); used >= limit {
		return &LimitError{Kind: kind, Used: used, Limit: limit}
	}
	return nil
}

// CheckFileLines rejects files longer than the plan allows.
func (m *Manager) CheckFileLines(ctx context.Context, lines int) error {
	limit := m.Limits(ctx).MaxFileLines
	if limit != Unlimited && lines > limit {
		return &LimitError{Kind: kindFileLines, Used: lines, Limit: limit}
	}
	return nil
}

// CheckFeature reports whether the plan in effect enables feature.
func (m *Manager) CheckFeature(ctx context.Context, feature string) bool {
	enabled, _ := m.Limits(ctx).Feature(feature)
	return enabled
}

// RecordUsage meters one unit of kind in the current month.
func (m *Manager) RecordUsage(ctx context.Context, kind Kind) error {
	month, now := m.month(), m.stamp()

	if _, err := m.db.Insert(ctx, "usage_events", eventRow{
		ID:        uuid.NewString(),
		Month:     month,
		Kind:      string(kind),
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("recording usage event: %w", err)
	}

	n, err := m.db.Exec(ctx,
		`UPDATE usage_counters SET count = count + 1, updated_at = ? WHERE month = ? AND kind = ?`,
		now, month, string(kind))
	if err != nil {
		return fmt.Errorf("incrementing usage: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := m.db.Insert(ctx, "usage_counters", counterRow{
		Month: month, Kind: string(kind), Count: 1, UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("creating usage counter: %w", err)
	}
	return nil
}

// Summary reports plan, usage against limits and features.
func (m *Manager) Summary(ctx context.Context) (*Summary, error) {
	plan := m.Plan(ctx)
	limits := plan.Limits()
	u, err := m.Usage(ctx)
	if err != nil {
		return nil, err
	}
	maxLines := "unlimited"
	if limits.MaxFileLines != Unlimited {
		maxLines = itoa(limits.MaxFileLines)
	}
	return &Summary{
		Plan:         plan,
		Month:        u.Month,
		Reviews:      formatLimit(u.Reviews, limits.ReviewsPerMonth),
		TestGens:     formatLimit(u.TestGens, limits.TestGenPerMonth),
		Fixes:        formatLimit(u.Fixes, limits.FixPerMonth),
		MaxFileLines: maxLines,
		Features:     limits.Features(),
	}, nil
}

// ResetUsage clears the current month's counters.
func (m *Manager) ResetUsage(ctx context.Context) error {
	if _, err := m.db.Exec(ctx, `DELETE FROM usage_counters WHERE month = ?`, m.month()); err != nil {
		return fmt.Errorf("resetting usage: %w", err)
	}
	return nil
}

// Rollover prunes usage older than keepMonths and deactivates expired
// licenses. The gateway runs it on a monthly schedule.
func (m *Manager) Rollover(ctx context.Context, keepMonths int) error {
	if keepMonths < 1 {
		keepMonths = 1
	}
	cutoff := m.now().AddDate(0, -keepMonths+1, 0).Format(monthLayout)

	events, err := m.db.Exec(ctx, `DELETE FROM usage_events WHERE month < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("pruning usage events: %w", err)
	}
	if _, err := m.db.Exec(ctx, `DELETE FROM usage_counters WHERE month < ?`, cutoff); err != nil {
		return fmt.Errorf("pruning usage counters: %w", err)
	}
	now := m.stamp()
	expired, err := m.db.Exec(ctx,
		`UPDATE licenses SET active = 0, updated_at = ? WHERE active = 1 AND expires_at <> '' AND expires_at < ?`,
		now, now)
	if err != nil {
		return fmt.Errorf("expiring licenses: %w", err)
	}
	slog.Info("Usage rollover complete", "cutoff", cutoff, "events_pruned", events, "licenses_expired", expired)
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }
