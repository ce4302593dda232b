package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

const (
	DefaultConfigDir    = ".devbuddy"
	DefaultConfigFile   = "config.yaml"
	ProjectConfigFile   = ".devbuddy.yaml"
	DefaultDBFile       = ".devbuddy/devbuddy.db"
	EnvPrefix           = "DEVBUDDY"
	APIKeyEnv           = "DEVBUDDY_API_KEY"
	LicenseKeyEnv       = "DEVBUDDY_LICENSE_KEY"
	StripeAPIKeyEnv     = "STRIPE_API_KEY"
	StripeWebhookEnv    = "STRIPE_WEBHOOK_SECRET"
	GitHubTokenEnv      = "GITHUB_TOKEN"
	defaultRolloverCron = "5 0 1 * *"
)

// Load merges defaults, the global config, the project config in the
// working directory, the configPath override and the environment, in that
// order, and returns the populated Config.
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// Keys returns every known configuration key, sorted.
func Keys(configPath string) ([]string, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys, nil
}

// Get returns the effective value of a dotted key.
func Get(configPath, key string) (any, bool, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, false, err
	}
	if !v.IsSet(key) {
		return nil, false, nil
	}
	return v.Get(key), true, nil
}

func newViper(configPath string) (*viper.Viper, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)
	setDefaults(v, home)

	files := []string{
		filepath.Join(home, DefaultConfigDir, DefaultConfigFile),
		ProjectConfigFile,
	}
	if configPath != "" {
		files = append(files, configPath)
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			if f == configPath {
				return nil, fmt.Errorf("reading config %s: %w", f, err)
			}
			continue
		}
		v.SetConfigFile(f)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", f, err)
		}
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	expandPaths(&cfg, home)
	return &cfg, nil
}

// Default returns the configuration used when no file or env overrides
// anything.
func Default() *Config {
	v := viper.New()
	home, err := os.UserHomeDir()
	if err != nil {
		home = "~"
	}
	setDefaults(v, home)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Save writes cfg to path as YAML.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("serialising config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// ConfigPath returns the file "config set" edits: the override, else the
// project file when present, else the global file.
func ConfigPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if _, err := os.Stat(ProjectConfigFile); err == nil {
		return ProjectConfigFile, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// EnsureDir creates ~/.devbuddy if it does not exist.
func EnsureDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	dir := filepath.Join(home, DefaultConfigDir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

// Redacted returns a copy of cfg with credentials masked.
func (c Config) Redacted() Config {
	c.AI.APIKey = mask(c.AI.APIKey)
	c.License.Key = mask(c.License.Key)
	c.GitHub.Token = mask(c.GitHub.Token)
	c.Billing.StripeAPIKey = mask(c.Billing.StripeAPIKey)
	c.Billing.WebhookSecret = mask(c.Billing.WebhookSecret)
	c.Database.DSN = mask(c.Database.DSN)
	return c
}

func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "********"
	default:
		return secret[:4] + "..." + secret[len(secret)-4:]
	}
}

// bindEnv maps the well-known unprefixed variables onto their keys.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("ai.api_key", APIKeyEnv, "DEVBUDDY_AI_API_KEY")
	_ = v.BindEnv("license.key", LicenseKeyEnv)
	_ = v.BindEnv("billing.stripe_api_key", StripeAPIKeyEnv)
	_ = v.BindEnv("billing.webhook_secret", StripeWebhookEnv)
	_ = v.BindEnv("github.token", GitHubTokenEnv, "DEVBUDDY_GITHUB_TOKEN")
}

// setDefaults populates viper with sensible out-of-the-box values.
func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("ai.provider", "auto")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.ollama_url", "http://localhost:11434")
	v.SetDefault("ai.max_tokens", 4096)
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.timeout", 120*time.Second)
	v.SetDefault("ai.fallback", []string{})

	v.SetDefault("review.severity", "medium")
	v.SetDefault("review.languages", []string{"python", "javascript", "go", "rust"})
	v.SetDefault("review.max_file_lines", 0)
	v.SetDefault("review.workers", 4)

	v.SetDefault("review.python.use_flake8", true)
	v.SetDefault("review.python.use_mypy", false)
	v.SetDefault("review.python.max_line_length", 120)
	v.SetDefault("review.python.ignore_codes", []string{})
	v.SetDefault("review.python.timeout", 30*time.Second)

	v.SetDefault("review.javascript.use_eslint", true)
	v.SetDefault("review.javascript.use_tsc", false)
	v.SetDefault("review.javascript.strict_mode", false)
	v.SetDefault("review.javascript.eslint_config", "")
	v.SetDefault("review.javascript.timeout", 60*time.Second)

	v.SetDefault("review.go.use_go_vet", true)
	v.SetDefault("review.go.use_staticcheck", false)
	v.SetDefault("review.go.use_golangci_lint", false)
	v.SetDefault("review.go.timeout", 120*time.Second)

	v.SetDefault("review.rust.use_clippy", true)
	v.SetDefault("review.rust.use_cargo_check", false)
	v.SetDefault("review.rust.deny_warnings", false)
	v.SetDefault("review.rust.warn_as_error", false)
	v.SetDefault("review.rust.edition", "2021")
	v.SetDefault("review.rust.timeout", 120*time.Second)

	v.SetDefault("testgen.framework", "pytest")
	v.SetDefault("testgen.max_retry", 3)
	v.SetDefault("testgen.timeout", 60*time.Second)
	v.SetDefault("testgen.coverage", false)

	v.SetDefault("fix.timeout", 120*time.Second)
	v.SetDefault("fix.auto_apply", false)
	v.SetDefault("fix.max_retry", 3)

	v.SetDefault("ignore_patterns", []string{
		".git", "node_modules", "__pycache__", ".venv", "venv", "target", "vendor", "dist", "build",
	})

	v.SetDefault("output.format", "text")
	v.SetDefault("output.color", "auto")

	v.SetDefault("license.key", "")
	v.SetDefault("license.data_dir", filepath.Join(home, DefaultConfigDir))

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", filepath.Join(home, DefaultDBFile))
	v.SetDefault("database.dsn", "")

	v.SetDefault("github.token", "")
	v.SetDefault("github.host", "")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rollover_cron", defaultRolloverCron)

	v.SetDefault("billing.stripe_api_key", "")
	v.SetDefault("billing.webhook_secret", "")
	v.SetDefault("billing.base_url", "https://api.stripe.com")
	v.SetDefault("billing.success_url", "https://devbuddy.dev/billing/success")
	v.SetDefault("billing.cancel_url", "https://devbuddy.dev/billing/cancel")
}

// expandPaths resolves ~ in configured paths.
func expandPaths(cfg *Config, home string) {
	cfg.Database.Path = expandHome(cfg.Database.Path, home)
	cfg.License.DataDir = expandHome(cfg.License.DataDir, home)
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
