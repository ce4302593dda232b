package config

import (
	"time"

	"github.com/devbuddy-ai/devbuddy/internal/analyzer"
)

// Config is the root configuration structure for devbuddy. It is merged
// from ~/.devbuddy/config.yaml, the project's .devbuddy.yaml and the
// environment.
type Config struct {
	AI             AIConfig       `mapstructure:"ai"              yaml:"ai"`
	Review         ReviewConfig   `mapstructure:"review"          yaml:"review"`
	TestGen        TestGenConfig  `mapstructure:"testgen"         yaml:"testgen"`
	Fix            FixConfig      `mapstructure:"fix"             yaml:"fix"`
	IgnorePatterns []string       `mapstructure:"ignore_patterns" yaml:"ignore_patterns"`
	Output         OutputConfig   `mapstructure:"output"          yaml:"output"`
	License        LicenseConfig  `mapstructure:"license"         yaml:"license"`
	Database       DatabaseConfig `mapstructure:"database"        yaml:"database"`
	GitHub         GitHubConfig   `mapstructure:"github"          yaml:"github"`
	Server         ServerConfig   `mapstructure:"server"          yaml:"server"`
	Billing        BillingConfig  `mapstructure:"billing"         yaml:"billing"`
}

// AIConfig selects and tunes the language model provider.
type AIConfig struct {
	// Provider is "anthropic", "openai", "gemini", "ollama" or "auto".
	// "auto" picks the vendor from the API key prefix.
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model"    yaml:"model"`
	APIKey   string `mapstructure:"api_key"  yaml:"api_key"`
	// BaseURL overrides the vendor endpoint (proxies, Azure OpenAI).
	BaseURL     string        `mapstructure:"base_url"    yaml:"base_url"`
	OllamaURL   string        `mapstructure:"ollama_url"  yaml:"ollama_url"`
	MaxTokens   int           `mapstructure:"max_tokens"  yaml:"max_tokens"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"     yaml:"timeout"`
	// Fallback providers are tried in order when the primary fails.
	Fallback []string `mapstructure:"fallback" yaml:"fallback"`
}

// ReviewConfig controls code review.
type ReviewConfig struct {
	// Severity is the minimum level reported: "low", "medium" or "high".
	Severity  string   `mapstructure:"severity"  yaml:"severity"`
	Languages []string `mapstructure:"languages" yaml:"languages"`
	// MaxFileLines caps reviewed file size; 0 defers to the license plan.
	MaxFileLines int `mapstructure:"max_file_lines" yaml:"max_file_lines"`
	// Workers bounds concurrent file reviews when reviewing a directory.
	Workers   int              `mapstructure:"workers" yaml:"workers"`
	Analyzers analyzer.Configs `mapstructure:",squash" yaml:",inline"`
}

// TestGenConfig controls test generation.
type TestGenConfig struct {
	Framework string        `mapstructure:"framework" yaml:"framework"`
	MaxRetry  int           `mapstructure:"max_retry" yaml:"max_retry"`
	Timeout   time.Duration `mapstructure:"timeout"   yaml:"timeout"`
	Coverage  bool          `mapstructure:"coverage"  yaml:"coverage"`
}

// FixConfig controls the fix loop.
type FixConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"    yaml:"timeout"`
	AutoApply bool          `mapstructure:"auto_apply" yaml:"auto_apply"`
	MaxRetry  int           `mapstructure:"max_retry"  yaml:"max_retry"`
}

// OutputConfig controls result rendering.
type OutputConfig struct {
	// Format is "text", "json" or "markdown".
	Format string `mapstructure:"format" yaml:"format"`
	// Color is "auto", "always" or "never".
	Color string `mapstructure:"color" yaml:"color"`
}

// LicenseConfig locates the license key and local state.
type LicenseConfig struct {
	Key     string `mapstructure:"key"      yaml:"key"`
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// DatabaseConfig controls the usage ledger storage backend.
type DatabaseConfig struct {
	// Driver is "sqlite" (default) or "mysql".
	Driver string `mapstructure:"driver" yaml:"driver"`
	// Path is the SQLite file path (expanded at runtime).
	Path string `mapstructure:"path" yaml:"path"`
	// DSN is the MySQL data source name (used when Driver == "mysql").
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// GitHubConfig holds credentials for publishing PR reviews.
type GitHubConfig struct {
	Token string `mapstructure:"token" yaml:"token"`
	// Host allows enterprise GitHub (e.g. github.mycompany.com).
	Host string `mapstructure:"host" yaml:"host"`
}

// ServerConfig controls the webhook server.
type ServerConfig struct {
	Host           string   `mapstructure:"host"            yaml:"host"`
	Port           int      `mapstructure:"port"            yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	// RolloverCron schedules the monthly usage rollover.
	RolloverCron string `mapstructure:"rollover_cron" yaml:"rollover_cron"`
}

// BillingConfig holds Stripe credentials.
type BillingConfig struct {
	StripeAPIKey  string `mapstructure:"stripe_api_key" yaml:"stripe_api_key"`
	WebhookSecret string `mapstructure:"webhook_secret" yaml:"webhook_secret"`
	BaseURL       string `mapstructure:"base_url"       yaml:"base_url"`
	SuccessURL    string `mapstructure:"success_url"    yaml:"success_url"`
	CancelURL     string `mapstructure:"cancel_url"     yaml:"cancel_url"`
}
