package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/devbuddy-ai/devbuddy/internal/ai"
	"github.com/devbuddy-ai/devbuddy/internal/config"
	"github.com/devbuddy-ai/devbuddy/internal/database"
	"github.com/devbuddy-ai/devbuddy/internal/licensing"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

// errNoCredential is the only failure that exits non-zero on its own
// merit: nothing useful can run without a model credential.
var errNoCredential = errors.New("no AI credential configured: set " + config.APIKeyEnv + " or ai.api_key (provider ollama needs none)")

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "devbuddy",
	Short: "AI-assisted code review, test generation and bug fixing",
	Long: `devbuddy reviews code with static analyzers and a language model,
writes pytest suites that it runs and repairs until they pass, and
proposes verified fixes for failing tests.

Get started:
  devbuddy config init        Write a .devbuddy.yaml for this project
  devbuddy review ./src       Review a file or directory
  devbuddy review --diff      Review uncommitted changes
  devbuddy testgen app.py     Generate tests for a Python module
  devbuddy fix test_app.py    Suggest fixes for failing tests
  devbuddy license status     Show plan and monthly usage`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .devbuddy.yaml, then ~/.devbuddy/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable verbose/debug output")

	rootCmd.Version = Version
	rootCmd.AddCommand(
		reviewCmd,
		testgenCmd,
		fixCmd,
		configCmd,
		licenseCmd,
		billingCmd,
		serverCmd,
	)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		slog.Debug("Verbose logging enabled")
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// modelClient returns the configured model or errNoCredential.
func modelClient(cfg *config.Config) (ai.Client, error) {
	client, err := ai.New(cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("creating AI client: %w", err)
	}
	if !ai.Available(client) {
		return nil, errNoCredential
	}
	return client, nil
}

// openLedger opens the usage database and returns the license manager on
// top of it. The caller closes the returned DB.
func openLedger(ctx context.Context, cfg *config.Config) (database.DB, *licensing.Manager, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return db, licensing.NewManager(db, cfg.License.Key), nil
}
