package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/devbuddy-ai/devbuddy/internal/licensing"
)

var licenseEmail string

var licenseCmd = &cobra.Command{
	Use:   "license",
	Short: "Manage the devbuddy license and view usage",
}

var licenseActivateCmd = &cobra.Command{
	Use:   "activate <key>",
	Short: "Activate a license key on this machine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := licensing.DecodeKey(args[0]); err != nil {
			fmt.Println(warnStyle.Render("✗ " + err.Error()))
			return nil
		}

		email := licenseEmail
		if email == "" {
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Email").
						Description("Used to look up your subscription").
						Placeholder("you@example.com").
						Validate(func(s string) error {
							if s == "" {
								return errors.New("email is required")
							}
							return nil
						}).
						Value(&email),
				),
			)
			if err := form.Run(); err != nil {
				return err
			}
		}

		db, mgr, err := openLedger(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		lic, err := mgr.Activate(ctx, args[0], email)
		if err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ License activated: %s plan", lic.Plan)))
		return nil
	},
}

var licenseStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the license in effect",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, mgr, err := openLedger(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		lic, err := mgr.License(ctx)
		if err != nil {
			fmt.Println(warnStyle.Render("✗ " + err.Error()))
		}
		fmt.Println(headingStyle.Render("License"))
		fmt.Println(field("Plan", mgr.Plan(ctx)))
		if lic == nil {
			fmt.Println(field("Key", "none (free plan)"))
			fmt.Println("\nUpgrade with: devbuddy billing upgrade pro --email you@example.com")
			return nil
		}
		fmt.Println(field("Key", maskKey(lic.Key)))
		if lic.Email != "" {
			fmt.Println(field("Email", lic.Email))
		}
		fmt.Println(field("Active", lic.Active))
		if lic.ExpiresAt != "" {
			fmt.Println(field("Expires", lic.ExpiresAt))
		}
		return nil
	},
}

var licenseDeactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Remove the license activated on this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, mgr, err := openLedger(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := mgr.Deactivate(ctx); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("✓ License deactivated; now on the free plan"))
		return nil
	},
}

var licenseUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show this month's usage against plan limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, mgr, err := openLedger(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		s, err := mgr.Summary(ctx)
		if err != nil {
			return err
		}
		fmt.Println(headingStyle.Render("Usage " + s.Month))
		fmt.Println(field("Plan", s.Plan))
		fmt.Println(field("Reviews", s.Reviews))
		fmt.Println(field("Test generations", s.TestGens))
		fmt.Println(field("Fixes", s.Fixes))
		fmt.Println(field("Max file lines", s.MaxFileLines))

		names := make([]string, 0, len(s.Features))
		for name := range s.Features {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println()
		fmt.Println(headingStyle.Render("Features"))
		for _, name := range names {
			mark := "no"
			if s.Features[name] {
				mark = "yes"
			}
			fmt.Println(field(name, mark))
		}
		return nil
	},
}

// maskKey keeps the plan segment visible.
func maskKey(key string) string {
	if len(key) <= 12 {
		return key
	}
	return key[:len(key)-8] + "********"
}

func init() {
	licenseActivateCmd.Flags().StringVar(&licenseEmail, "email", "", "Email the license was issued to")
	licenseCmd.AddCommand(licenseActivateCmd, licenseStatusCmd, licenseDeactivateCmd, licenseUsageCmd)
}
