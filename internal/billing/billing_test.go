package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devbuddy-ai/devbuddy/internal/config"
	"github.com/devbuddy-ai/devbuddy/internal/database"
	"github.com/devbuddy-ai/devbuddy/internal/licensing"
)

func TestPrices(t *testing.T) {
	ps := Prices()
	require.Len(t, ps, 3)
	assert.Equal(t, licensing.PlanPro, ps[0].Plan)

	pro, ok := PriceFor(licensing.PlanPro)
	require.True(t, ok)
	assert.Equal(t, "price_pro_monthly", pro.PriceID)
	assert.Equal(t, 1980, pro.Amount)
	assert.Equal(t, "¥1,980/month", pro.Display())

	team, _ := PriceFor(licensing.PlanTeam)
	assert.Equal(t, "¥9,800/month", team.Display())

	ent, _ := PriceFor(licensing.PlanEnterprise)
	assert.Equal(t, "Contact sales", ent.Display())

	_, ok = PriceFor(licensing.PlanFree)
	assert.False(t, ok)

	ps[0].Amount = 1
	again, _ := PriceFor(licensing.PlanPro)
	assert.Equal(t, 1980, again.Amount, "Prices must return a copy")

	assert.Equal(t, "1,234,567 usd/year", Price{Amount: 1234567, Currency: "usd", Interval: "year"}.Display())
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded"}`)
	secret := "whsec_test"
	now := time.Unix(1_800_000_000, 0)
	header := SignatureHeader(payload, secret, now)

	require.NoError(t, VerifySignature(payload, header, secret, DefaultTolerance, now))
	require.NoError(t, VerifySignature(payload, "t=1800000000,v1=00,"+header[len("t=1800000000,"):], secret, DefaultTolerance, now),
		"any v1 entry may match")
	require.NoError(t, VerifySignature(payload, header, secret, 0, now.Add(24*time.Hour)),
		"zero tolerance skips the age check")

	tests := []struct {
		name    string
		payload []byte
		header  string
		secret  string
		now     time.Time
	}{
		{"tampered", []byte(`{"id":"evt_2"}`), header, secret, now},
		{"wrong secret", payload, header, "whsec_other", now},
		{"no secret", payload, header, "", now},
		{"too old", payload, header, secret, now.Add(10 * time.Minute)},
		{"future", payload, header, secret, now.Add(-10 * time.Minute)},
		{"missing v1", payload, "t=1800000000", secret, now},
		{"missing t", payload, "v1=abcd", secret, now},
		{"bad t", payload, "t=abc,v1=abcd", secret, now},
		{"garbage", payload, "nonsense", secret, now},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.payload, tt.header, tt.secret, DefaultTolerance, tt.now)
			assert.ErrorIs(t, err, ErrSignature)
		})
	}
}

func TestParseEvent(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1"}}}`)
	ev, err := ParseEvent(payload, SignatureHeader(payload, "s", time.Now()), "s")
	require.NoError(t, err)
	assert.Equal(t, "customer.subscription.deleted", ev.Type)
	assert.JSONEq(t, `{"id":"sub_1"}`, string(ev.Data.Object))

	_, err = ParseEvent(payload, "t=1,v1=00", "s")
	assert.ErrorIs(t, err, ErrSignature)

	bad := []byte(`not json`)
	_, err = ParseEvent(bad, SignatureHeader(bad, "s", time.Now()), "s")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSignature)
}

func newStripe(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.BillingConfig{StripeAPIKey: "sk_test_123", BaseURL: srv.URL})
}

func TestCreateCheckoutSession(t *testing.T) {
	var form url.Values
	c := newStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "sk_test_123", user)
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		_, _ = io.WriteString(w, `{"id":"cs_1","url":"https://checkout.stripe.com/c/cs_1","status":"open"}`)
	})

	sess, err := c.CreateCheckoutSession(context.Background(), CheckoutRequest{
		Plan:       licensing.PlanTeam,
		Email:      "dev@example.com",
		SuccessURL: "https://devbuddy.ai/success",
		CancelURL:  "https://devbuddy.ai/pricing",
		Metadata:   map[string]string{"org": "acme"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_1", sess.URL)
	assert.Equal(t, "open", sess.Status)
	assert.Equal(t, licensing.PlanTeam, sess.Plan)

	assert.Equal(t, "subscription", form.Get("mode"))
	assert.Equal(t, "dev@example.com", form.Get("customer_email"))
	assert.Equal(t, "price_team_monthly", form.Get("line_items[0][price]"))
	assert.Equal(t, "1", form.Get("line_items[0][quantity]"))
	assert.Equal(t, "team", form.Get("metadata[plan]"))
	assert.Equal(t, "dev@example.com", form.Get("metadata[email]"))
	assert.Equal(t, "acme", form.Get("subscription_data[metadata][org]"))
}

func TestCreateCheckoutSessionRejects(t *testing.T) {
	c := newStripe(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	_, err := c.CreateCheckoutSession(context.Background(), CheckoutRequest{Plan: licensing.PlanFree})
	assert.EqualError(t, err, "free plan does not require payment")

	_, err = c.CreateCheckoutSession(context.Background(), CheckoutRequest{Plan: "platinum"})
	assert.EqualError(t, err, "invalid plan: platinum")

	unconfigured := NewClient(config.BillingConfig{})
	_, err = unconfigured.GetSubscription(context.Background(), "sub_1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

const subscriptionJSON = `{
  "id": "sub_1",
  "customer": "cus_1",
  "status": "%s",
  "metadata": {"plan": "%s"},
  "current_period_start": 1790000000,
  "current_period_end": 1792592000,
  "cancel_at_period_end": %t
}`

func TestGetAndCancelSubscription(t *testing.T) {
	var methods []string
	c := newStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/subscriptions/sub_1", r.URL.Path)
		methods = append(methods, r.Method)
		switch r.Method {
		case http.MethodGet:
			fmt.Fprintf(w, subscriptionJSON, "active", "team", false)
		case http.MethodPost:
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "true", r.PostForm.Get("cancel_at_period_end"))
			fmt.Fprintf(w, subscriptionJSON, "active", "bogus", true)
		case http.MethodDelete:
			fmt.Fprintf(w, subscriptionJSON, "canceled", "team", false)
		}
	})
	ctx := context.Background()

	sub, err := c.GetSubscription(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, "cus_1", sub.CustomerID)
	assert.Equal(t, licensing.PlanTeam, sub.Plan)
	assert.Equal(t, time.Unix(1792592000, 0).UTC(), sub.CurrentPeriodEnd)

	sub, err = c.CancelSubscription(ctx, "sub_1", true)
	require.NoError(t, err)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, licensing.PlanPro, sub.Plan, "unknown plan metadata defaults to pro")

	sub, err = c.CancelSubscription(ctx, "sub_1", false)
	require.NoError(t, err)
	assert.Equal(t, "canceled", sub.Status)

	assert.Equal(t, []string{http.MethodGet, http.MethodPost, http.MethodDelete}, methods)
}

func TestStripeError(t *testing.T) {
	c := newStripe(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"type":"invalid_request_error","message":"No such subscription: 'sub_x'"}}`)
	})
	_, err := c.GetSubscription(context.Background(), "sub_x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404: No such subscription: 'sub_x'")
}

func newManager(t *testing.T) *licensing.Manager {
	t.Helper()
	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "billing.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return licensing.NewManager(db, "")
}

func event(t *testing.T, typ, object string) *Event {
	t.Helper()
	ev := &Event{ID: "evt_test", Type: typ}
	ev.Data.Object = []byte(object)
	return ev
}

func TestWebhookLifecycle(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	h := NewWebhookHandler(m)

	res, err := h.Handle(ctx, event(t, "checkout.session.completed",
		`{"id":"cs_1","customer_email":"dev@example.com","customer":"cus_1","subscription":"sub_1","metadata":{"plan":"team"}}`))
	require.NoError(t, err)
	assert.Equal(t, "success", res["status"])
	assert.Equal(t, "license_activated", res["action"])
	assert.Equal(t, "team", res["plan"])
	assert.Regexp(t, `^DB-TEAM-[0-9a-f]{12}$`, res["license_key"])

	lic, err := m.BySubscription(ctx, "sub_1")
	require.NoError(t, err)
	assert.True(t, lic.Active)
	assert.Equal(t, "cus_1", lic.CustomerID)

	res, err = h.Handle(ctx, event(t, "customer.subscription.created",
		`{"id":"sub_1","status":"active","metadata":{"plan":"team"}}`))
	require.NoError(t, err)
	assert.Equal(t, Result{"status": "success", "action": "subscription_created", "subscription_status": "active", "plan": "team"}, res)

	res, err = h.Handle(ctx, event(t, "invoice.payment_failed", `{"subscription":"sub_1","attempt_count":1}`))
	require.NoError(t, err)
	assert.Equal(t, "payment_retry_pending", res["action"])

	res, err = h.Handle(ctx, event(t, "invoice.payment_failed", `{"subscription":"sub_1","attempt_count":3}`))
	require.NoError(t, err)
	assert.Equal(t, Result{"status": "warning", "action": "license_suspended", "reason": "payment_failed", "attempt_count": 3}, res)
	lic, _ = m.BySubscription(ctx, "sub_1")
	assert.False(t, lic.Active)

	res, err = h.Handle(ctx, event(t, "invoice.payment_succeeded", `{"subscription":"sub_1"}`))
	require.NoError(t, err)
	assert.Equal(t, "payment_recorded", res["action"])
	lic, _ = m.BySubscription(ctx, "sub_1")
	assert.True(t, lic.Active)

	res, err = h.Handle(ctx, event(t, "customer.subscription.updated",
		`{"id":"sub_1","status":"past_due","metadata":{"plan":"team"}}`))
	require.NoError(t, err)
	assert.Equal(t, "past_due", res["subscription_status"])
	lic, _ = m.BySubscription(ctx, "sub_1")
	assert.False(t, lic.Active)

	_, err = h.Handle(ctx, event(t, "customer.subscription.updated",
		`{"id":"sub_1","status":"active","customer":"cus_1","metadata":{"plan":"enterprise","email":"dev@example.com"}}`))
	require.NoError(t, err)
	lic, _ = m.BySubscription(ctx, "sub_1")
	assert.True(t, lic.Active)
	assert.Equal(t, licensing.PlanEnterprise, lic.Plan)

	res, err = h.Handle(ctx, event(t, "customer.subscription.deleted", `{"id":"sub_1"}`))
	require.NoError(t, err)
	assert.Equal(t, Result{"status": "success", "action": "license_deactivated"}, res)
	lic, _ = m.BySubscription(ctx, "sub_1")
	assert.False(t, lic.Active)
}

func TestWebhookCheckoutDefaults(t *testing.T) {
	h := NewWebhookHandler(newManager(t))
	res, err := h.Handle(context.Background(), event(t, "checkout.session.completed",
		`{"id":"cs_2","customer_details":{"email":"x@y.z"},"metadata":{"plan":"gold"}}`))
	require.NoError(t, err)
	assert.Equal(t, "pro", res["plan"])
	assert.Equal(t, "x@y.z", res["email"])
}

func TestWebhookIgnoredAndMalformed(t *testing.T) {
	h := NewWebhookHandler(newManager(t))
	ctx := context.Background()

	res, err := h.Handle(ctx, event(t, "charge.refunded", `{}`))
	require.NoError(t, err)
	assert.Equal(t, Result{"status": "ignored", "event_type": "charge.refunded"}, res)

	_, err = h.Handle(ctx, event(t, "invoice.payment_failed", `[1,2]`))
	assert.Error(t, err)
}

type failingLicenses struct{ Licenses }

func (failingLicenses) SetActive(context.Context, string, bool) (int64, error) {
	return 0, errors.New("db down")
}

func TestWebhookStoreError(t *testing.T) {
	h := NewWebhookHandler(failingLicenses{})
	_, err := h.Handle(context.Background(), event(t, "customer.subscription.deleted", `{"id":"sub_1"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handling customer.subscription.deleted: db down")
}
