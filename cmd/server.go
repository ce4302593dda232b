package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devbuddy-ai/devbuddy/internal/gateway"
)

var (
	serverHost string
	serverPort int
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the billing webhook server",
	Long: `Starts the HTTP server that receives Stripe webhooks, issues and
suspends licenses, serves the price list and checkout API, and rolls
monthly usage over on a cron schedule.

Routes:
  GET  /health                          liveness and version
  GET  /metrics                         Prometheus metrics
  GET  /api/v1/prices                   price list
  GET  /api/v1/prices/{plan}            one plan's price
  POST /api/v1/checkout/create          create a checkout session
  GET  /api/v1/subscription/{id}        subscription status
  POST /api/v1/subscription/cancel      cancel a subscription
  POST /webhook/stripe                  Stripe events (signature-verified)`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().StringVar(&serverHost, "host", "", "Address to bind (default from config)")
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "Port to listen on (default 8000, overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort > 0 {
		cfg.Server.Port = serverPort
	}

	db, _, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Printf("devbuddy server %s\n", Version)
	fmt.Printf("  Listen   : http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Database : %s\n", db.Driver())
	fmt.Printf("  Rollover : %s\n\n", cfg.Server.RolloverCron)
	fmt.Println("Press Ctrl+C to stop gracefully.")

	return gateway.New(cfg, db, Version).Start(ctx)
}
