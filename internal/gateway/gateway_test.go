package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/devbuddy-ai/devbuddy/internal/billing"
	"github.com/devbuddy-ai/devbuddy/internal/config"
	"github.com/devbuddy-ai/devbuddy/internal/database"
	"github.com/devbuddy-ai/devbuddy/internal/licensing"
)

const testSecret = "whsec_gateway"

type fakePayments struct {
	checkout  *billing.CheckoutRequest
	cancelEnd *bool
	err       error
}

func (f *fakePayments) CreateCheckoutSession(_ context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error) {
	f.checkout = &req
	if f.err != nil {
		return nil, f.err
	}
	return &billing.CheckoutSession{ID: "cs_1", URL: "https://pay/cs_1", Plan: req.Plan, Status: "open"}, nil
}

func (f *fakePayments) GetSubscription(_ context.Context, id string) (*billing.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &billing.Subscription{ID: id, CustomerID: "cus_1", Plan: licensing.PlanPro, Status: "active"}, nil
}

func (f *fakePayments) CancelSubscription(_ context.Context, id string, atPeriodEnd bool) (*billing.Subscription, error) {
	f.cancelEnd = &atPeriodEnd
	if f.err != nil {
		return nil, f.err
	}
	return &billing.Subscription{ID: id, Status: "active", CancelAtPeriodEnd: atPeriodEnd}, nil
}

func newTestGateway(t *testing.T) (*Gateway, *fakePayments, *licensing.Manager) {
	t.Helper()
	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "gateway.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"https://devbuddy.dev"}},
		Billing: config.BillingConfig{
			WebhookSecret: testSecret,
			SuccessURL:    "https://devbuddy.dev/ok",
			CancelURL:     "https://devbuddy.dev/cancel",
		},
	}
	pay := &fakePayments{}
	m := licensing.NewManager(db, "")
	return newGateway(cfg, pay, m, "1.2.3"), pay, m
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	gw, _, _ := newTestGateway(t)
	rec := do(t, gw.Handler(), http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "devbuddy-webhook", body["service"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestPrices(t *testing.T) {
	gw, _, _ := newTestGateway(t)
	h := gw.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/prices", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	prices := decode(t, rec)["prices"].([]any)
	assert.Len(t, prices, 3)

	rec = do(t, h, http.MethodGet, "/api/v1/prices/pro", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pro := decode(t, rec)
	assert.Equal(t, "price_pro_monthly", pro["price_id"])
	assert.EqualValues(t, 1980, pro["amount"])
	assert.Equal(t, "jpy", pro["currency"])

	rec = do(t, h, http.MethodGet, "/api/v1/prices/platinum", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Plan not found: platinum", decode(t, rec)["error"])

	rec = do(t, h, http.MethodGet, "/api/v1/prices/free", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Price not available", decode(t, rec)["error"])
}

func TestCheckout(t *testing.T) {
	gw, pay, _ := newTestGateway(t)
	h := gw.Handler()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"plan":`, "invalid JSON"},
		{"missing email", `{"plan":"pro"}`, "Missing required fields: plan, email, success_url, cancel_url"},
		{"bad plan", `{"plan":"gold","email":"a@b.c"}`, "Invalid plan: gold"},
		{"free plan", `{"plan":"free","email":"a@b.c"}`, "Free plan does not require payment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/checkout/create", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decode(t, rec)["error"])
		})
	}
	assert.Nil(t, pay.checkout)

	rec := do(t, h, http.MethodPost, "/api/v1/checkout/create",
		`{"plan":"team","email":"a@b.c","metadata":{"org":"acme"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "cs_1", body["session_id"])
	assert.Equal(t, "team", body["plan"])
	require.NotNil(t, pay.checkout)
	assert.Equal(t, "https://devbuddy.dev/ok", pay.checkout.SuccessURL)
	assert.Equal(t, "acme", pay.checkout.Metadata["org"])

	pay.err = errors.New("stripe down")
	rec = do(t, h, http.MethodPost, "/api/v1/checkout/create", `{"plan":"pro","email":"a@b.c"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSubscriptionEndpoints(t *testing.T) {
	gw, pay, _ := newTestGateway(t)
	h := gw.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/subscription/sub_9", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sub_9", decode(t, rec)["subscription_id"])

	rec = do(t, h, http.MethodPost, "/api/v1/subscription/cancel", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing subscription_id", decode(t, rec)["error"])

	rec = do(t, h, http.MethodPost, "/api/v1/subscription/cancel", `{"subscription_id":"sub_9"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, pay.cancelEnd)
	assert.True(t, *pay.cancelEnd, "at_period_end defaults to true")
	assert.Equal(t, true, decode(t, rec)["cancel_at_period_end"])

	rec = do(t, h, http.MethodPost, "/api/v1/subscription/cancel", `{"subscription_id":"sub_9","at_period_end":false}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, *pay.cancelEnd)

	pay.err = errors.New("boom")
	rec = do(t, h, http.MethodGet, "/api/v1/subscription/sub_9", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStripeWebhook(t *testing.T) {
	gw, _, m := newTestGateway(t)
	h := gw.Handler()

	rec := do(t, h, http.MethodPost, "/webhook/stripe", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing Stripe-Signature header", decode(t, rec)["error"])

	payload := `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"customer_email":"dev@example.com","subscription":"sub_1","customer":"cus_1","metadata":{"plan":"pro"}}}}`
	rec = do(t, h, http.MethodPost, "/webhook/stripe", payload,
		map[string]string{"Stripe-Signature": billing.SignatureHeader([]byte(payload), "wrong", time.Now())})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	sig := billing.SignatureHeader([]byte(payload), testSecret, time.Now())
	rec = do(t, h, http.MethodPost, "/webhook/stripe", payload, map[string]string{"Stripe-Signature": sig})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "license_activated", body["action"])

	lic, err := m.BySubscription(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, licensing.PlanPro, lic.Plan)
	assert.True(t, lic.Active)

	ignored := `{"id":"evt_2","type":"charge.refunded","data":{"object":{}}}`
	rec = do(t, h, http.MethodPost, "/api/v1/webhook/stripe", ignored,
		map[string]string{"Stripe-Signature": billing.SignatureHeader([]byte(ignored), testSecret, time.Now())})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ignored", decode(t, rec)["status"])

	rec = do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	metricsBody, _ := io.ReadAll(rec.Body)
	text := string(metricsBody)
	assert.Contains(t, text, `devbuddy_billing_webhook_events_total{action="license_activated",type="checkout.session.completed"} 1`)
	assert.Contains(t, text, `devbuddy_billing_webhook_events_total{action="rejected",type="unknown"} 1`)
	assert.Contains(t, text, `devbuddy_http_requests_total{code="400",method="POST",route="POST /webhook/stripe"} 2`)
}

func TestCORS(t *testing.T) {
	gw, _, _ := newTestGateway(t)
	h := gw.Handler()

	rec := do(t, h, http.MethodOptions, "/api/v1/checkout/create", "", map[string]string{
		"Origin":                         "https://devbuddy.dev",
		"Access-Control-Request-Headers": "Content-Type, X-Trace",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://devbuddy.dev", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type, X-Trace", rec.Header().Get("Access-Control-Allow-Headers"))

	rec = do(t, h, http.MethodGet, "/health", "", map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	assert.True(t, allowOrigin([]string{"*"}, "https://any.example"))
	assert.False(t, allowOrigin(nil, "https://any.example"))
}

type fakeLedger struct {
	billing.Licenses
	runs atomic.Int32
	err  error
}

func (f *fakeLedger) Rollover(context.Context, int) error {
	f.runs.Add(1)
	return f.err
}

func TestSchedulerRunOnce(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("locked")}
	var got []error
	s := newScheduler(ledger, func(err error) { got = append(got, err) })

	s.RunOnce(context.Background())
	assert.EqualValues(t, 1, ledger.runs.Load())
	require.Len(t, got, 1)
	assert.EqualError(t, got[0], "locked")
	assert.False(t, s.LastRun().IsZero())
	assert.True(t, s.NextRun().IsZero())
}

func TestSchedulerLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := newScheduler(&fakeLedger{}, nil)
	require.Error(t, s.Start("not a cron"))
	require.NoError(t, s.Start(""))

	require.NoError(t, s.Start("5 0 1 * *"))
	next := s.NextRun()
	assert.False(t, next.IsZero())
	assert.Equal(t, 1, next.Day())
	s.Stop()
}
