// Package gateway serves the billing webhook API: price lookups, checkout
// creation, Stripe webhooks, subscription management and Prometheus
// metrics, plus the scheduled usage rollover.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/devbuddy-ai/devbuddy/internal/billing"
	"github.com/devbuddy-ai/devbuddy/internal/config"
	"github.com/devbuddy-ai/devbuddy/internal/database"
	"github.com/devbuddy-ai/devbuddy/internal/licensing"
)

const serviceName = "devbuddy-webhook"

// Gateway is the long-running webhook server.
type Gateway struct {
	cfg       *config.Config
	version   string
	payments  Payments
	ledger    Ledger
	events    *billing.WebhookHandler
	metrics   *metrics
	scheduler *Scheduler
	startedAt time.Time
}

// New creates a Gateway backed by the Stripe client and the license
// ledger in db. Call Start to begin serving.
func New(cfg *config.Config, db database.DB, version string) *Gateway {
	return newGateway(cfg, billing.NewClient(cfg.Billing), licensing.NewManager(db, ""), version)
}

func newGateway(cfg *config.Config, payments Payments, ledger Ledger, version string) *Gateway {
	gw := &Gateway{
		cfg:       cfg,
		version:   version,
		payments:  payments,
		ledger:    ledger,
		events:    billing.NewWebhookHandler(ledger),
		metrics:   newMetrics(),
		startedAt: time.Now(),
	}
	gw.scheduler = newScheduler(ledger, func(err error) {
		status := "success"
		if err != nil {
			status = "error"
		}
		gw.metrics.rollovers.WithLabelValues(status).Inc()
	})
	return gw
}

// Handler returns the gateway's HTTP handler.
func (gw *Gateway) Handler() http.Handler { return buildHandler(gw) }

// Start runs the gateway until ctx is cancelled. It starts the rollover
// scheduler, then binds the HTTP server (blocks until shutdown).
func (gw *Gateway) Start(ctx context.Context) error {
	port := gw.cfg.Server.Port
	if port == 0 {
		port = 8000
	}
	host := gw.cfg.Server.Host
	if host == "" {
		host = "127.0.0.1"
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	if gw.cfg.Billing.WebhookSecret == "" {
		slog.Warn("Webhook secret not configured; Stripe events will be rejected")
	}
	if err := gw.scheduler.Start(gw.cfg.Server.RolloverCron); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Shut down HTTP server when ctx is cancelled.
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		gw.scheduler.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Gateway listening", "addr", "http://"+addr)
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	<-done
	slog.Info("Gateway stopped")
	return nil
}
