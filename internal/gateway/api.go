package gateway

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/devbuddy-ai/devbuddy/internal/billing"
	"github.com/devbuddy-ai/devbuddy/internal/licensing"
)

// buildHandler constructs the HTTP mux with all routes.
func buildHandler(gw *Gateway) http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, gw.metrics.instrument(pattern, h))
	}

	// Health / metrics
	route("GET /health", gw.handleHealth)
	mux.Handle("GET /metrics", gw.metrics.handler())

	// Prices
	route("GET /api/v1/prices", gw.handleListPrices)
	route("GET /api/v1/prices/{plan}", gw.handleGetPrice)

	// Checkout + subscriptions
	route("POST /api/v1/checkout/create", gw.handleCreateCheckout)
	route("GET /api/v1/subscription/{id}", gw.handleGetSubscription)
	route("POST /api/v1/subscription/cancel", gw.handleCancelSubscription)

	// Stripe webhooks
	route("POST /webhook/stripe", gw.handleStripeWebhook)
	route("POST /api/v1/webhook/stripe", gw.handleStripeWebhook)

	return gw.withCORS(mux)
}

// withCORS applies the allowed_origins policy and answers preflights.
func (gw *Gateway) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && allowOrigin(gw.cfg.Server.AllowedOrigins, origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", firstNonEmpty(r.Header.Get("Access-Control-Request-Headers"), "Content-Type"))
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (gw *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthStatus{
		Status:        "healthy",
		Service:       serviceName,
		Version:       gw.version,
		UptimeSeconds: int64(time.Since(gw.startedAt).Seconds()),
	})
}

func (gw *Gateway) handleListPrices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"prices": billing.Prices()})
}

func (gw *Gateway) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("plan")
	plan, err := licensing.ParsePlan(raw)
	if err != nil {
		writeError(w, http.StatusNotFound, "Plan not found: "+raw)
		return
	}
	price, ok := billing.PriceFor(plan)
	if !ok {
		writeError(w, http.StatusNotFound, "Price not available")
		return
	}
	writeJSON(w, http.StatusOK, price)
}

func (gw *Gateway) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SuccessURL = firstNonEmpty(req.SuccessURL, gw.cfg.Billing.SuccessURL)
	req.CancelURL = firstNonEmpty(req.CancelURL, gw.cfg.Billing.CancelURL)
	if req.Plan == "" || req.Email == "" || req.SuccessURL == "" || req.CancelURL == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: plan, email, success_url, cancel_url")
		return
	}
	plan, err := licensing.ParsePlan(req.Plan)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid plan: "+req.Plan)
		return
	}
	if plan == licensing.PlanFree {
		writeError(w, http.StatusBadRequest, "Free plan does not require payment")
		return
	}

	sess, err := gw.payments.CreateCheckoutSession(r.Context(), billing.CheckoutRequest{
		Plan:       plan,
		Email:      req.Email,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		Metadata:   req.Metadata,
	})
	if err != nil {
		slog.Error("Checkout creation failed", "plan", plan, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{
		SessionID: sess.ID,
		URL:       sess.URL,
		Plan:      string(sess.Plan),
		Status:    sess.Status,
	})
}

func (gw *Gateway) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := gw.payments.GetSubscription(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("Get subscription failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (gw *Gateway) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.SubscriptionID) == "" {
		writeError(w, http.StatusBadRequest, "Missing subscription_id")
		return
	}
	atPeriodEnd := req.AtPeriodEnd == nil || *req.AtPeriodEnd

	sub, err := gw.payments.CancelSubscription(r.Context(), req.SubscriptionID, atPeriodEnd)
	if err != nil {
		slog.Error("Subscription cancel failed", "subscription", req.SubscriptionID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (gw *Gateway) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		writeError(w, http.StatusBadRequest, "Missing Stripe-Signature header")
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ev, err := billing.ParseEvent(payload, sig, gw.cfg.Billing.WebhookSecret)
	if err != nil {
		if errors.Is(err, billing.ErrSignature) {
			slog.Warn("Webhook verification failed", "error", err)
		}
		gw.metrics.webhooks.WithLabelValues("unknown", "rejected").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := gw.events.Handle(r.Context(), ev)
	if err != nil {
		slog.Error("Webhook processing failed", "type", ev.Type, "error", err)
		gw.metrics.webhooks.WithLabelValues(ev.Type, "error").Inc()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	action, _ := res["action"].(string)
	if action == "" {
		action = "ignored"
	}
	gw.metrics.webhooks.WithLabelValues(ev.Type, action).Inc()
	writeJSON(w, http.StatusOK, res)
}
