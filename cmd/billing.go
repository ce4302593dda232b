package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/devbuddy-ai/devbuddy/internal/billing"
	"github.com/devbuddy-ai/devbuddy/internal/licensing"
)

var (
	billingEmail string
	billingNow   bool
)

var billingCmd = &cobra.Command{
	Use:   "billing",
	Short: "View plans and manage your subscription",
}

var billingPlansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List plans, prices and limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(headingStyle.Render("Plans"))
		for _, plan := range licensing.Plans() {
			price := "Free"
			if p, ok := billing.PriceFor(plan); ok {
				price = p.Display()
			}
			l := plan.Limits()
			fmt.Printf("\n%s  %s\n", headingStyle.Render(string(plan)), price)
			fmt.Println(field("  Reviews/month", limitText(l.ReviewsPerMonth)))
			fmt.Println(field("  Max file lines", limitText(l.MaxFileLines)))
			fmt.Println(field("  Test gens/month", limitText(l.TestGenPerMonth)))
			fmt.Println(field("  Fixes/month", limitText(l.FixPerMonth)))
		}
		return nil
	},
}

var billingUpgradeCmd = &cobra.Command{
	Use:   "upgrade <plan>",
	Short: "Open a Stripe checkout for a paid plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		plan, err := licensing.ParsePlan(args[0])
		if err != nil {
			fmt.Println(warnStyle.Render("✗ " + err.Error()))
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		session, err := billing.NewClient(cfg.Billing).CreateCheckoutSession(ctx, billing.CheckoutRequest{
			Plan:       plan,
			Email:      billingEmail,
			SuccessURL: cfg.Billing.SuccessURL,
			CancelURL:  cfg.Billing.CancelURL,
		})
		if err != nil {
			return billingFailure(err)
		}
		fmt.Println(successStyle.Render("✓ Checkout created for the " + string(plan) + " plan"))
		fmt.Println(field("Session", session.ID))
		fmt.Println(field("Pay at", session.URL))
		fmt.Println("\nYour license key will be emailed once payment completes; then run: devbuddy license activate <key>")
		return nil
	},
}

var billingStatusCmd = &cobra.Command{
	Use:   "status <subscription_id>",
	Short: "Show a subscription",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		sub, err := billing.NewClient(cfg.Billing).GetSubscription(ctx, args[0])
		if err != nil {
			return billingFailure(err)
		}
		printSubscription(sub)
		return nil
	},
}

var billingCancelCmd = &cobra.Command{
	Use:   "cancel <subscription_id>",
	Short: "Cancel a subscription at the end of the billing period",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		sub, err := billing.NewClient(cfg.Billing).CancelSubscription(ctx, args[0], !billingNow)
		if err != nil {
			return billingFailure(err)
		}
		if billingNow {
			fmt.Println(successStyle.Render("✓ Subscription cancelled"))
		} else {
			fmt.Println(successStyle.Render("✓ Subscription will end on " + sub.CurrentPeriodEnd.Format("2006-01-02")))
		}
		printSubscription(sub)
		return nil
	},
}

func printSubscription(sub *billing.Subscription) {
	fmt.Println(headingStyle.Render("Subscription " + sub.ID))
	fmt.Println(field("Plan", sub.Plan))
	fmt.Println(field("Status", sub.Status))
	fmt.Println(field("Customer", sub.CustomerID))
	if !sub.CurrentPeriodEnd.IsZero() {
		fmt.Println(field("Period", sub.CurrentPeriodStart.Format("2006-01-02")+" to "+sub.CurrentPeriodEnd.Format("2006-01-02")))
	}
	fmt.Println(field("Cancel at period end", sub.CancelAtPeriodEnd))
}

// billingFailure prints Stripe-side problems without failing the process;
// a missing key is a credential problem and does.
func billingFailure(err error) error {
	if errors.Is(err, billing.ErrNotConfigured) {
		return fmt.Errorf("%w: set STRIPE_API_KEY or billing.stripe_api_key", err)
	}
	fmt.Println(warnStyle.Render("✗ " + err.Error()))
	return nil
}

func limitText(n int) string {
	if n == licensing.Unlimited {
		return "unlimited"
	}
	return fmt.Sprint(n)
}

func init() {
	billingUpgradeCmd.Flags().StringVar(&billingEmail, "email", "", "Billing email (required)")
	_ = billingUpgradeCmd.MarkFlagRequired("email")
	billingCancelCmd.Flags().BoolVar(&billingNow, "now", false, "Cancel immediately instead of at period end")
	billingCmd.AddCommand(billingPlansCmd, billingUpgradeCmd, billingStatusCmd, billingCancelCmd)
}
