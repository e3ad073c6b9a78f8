// Package config loads the agent's yaml configuration. Policies receive
// immutable structs built from here; nothing reads configuration globals
// at decision time.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lulabot/lula/internal/exchange"
	"github.com/lulabot/lula/internal/guardian"
	"github.com/lulabot/lula/internal/scheduler"
	"github.com/lulabot/lula/internal/strategy"
)

// Account selects one exchange session. Credentials stay in the
// environment; the config only names the variables.
type Account struct {
	Exchange     string `yaml:"exchange"`
	APIKeyEnv    string `yaml:"api_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
}

// Oracle locates the model artifacts.
type Oracle struct {
	ModelPath      string `yaml:"model_path"`
	ScalerPath     string `yaml:"scaler_path"`
	RuntimeLibPath string `yaml:"runtime_lib_path"`
	SequenceWindow int    `yaml:"sequence_window"`
}

// Cycle tunes the control loop.
type Cycle struct {
	Symbols       []string `yaml:"symbols"`
	TargetSymbol  string   `yaml:"target_symbol"`
	QuoteAsset    string   `yaml:"quote_asset"`
	Interval      string   `yaml:"interval"`
	BarLimit      int      `yaml:"bar_limit"`
	SleepSeconds  int      `yaml:"sleep_seconds"`
	CooldownSecs  int      `yaml:"cooldown_seconds"`
	MacroTicker   string   `yaml:"macro_ticker"`
}

// Retry bounds exchange call retries.
type Retry struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	AttemptDelaySecs  int     `yaml:"attempt_delay_seconds"`
	RatePerSec        float64 `yaml:"rate_per_sec"`
}

// Journal configures the outbox.
type Journal struct {
	Path             string `yaml:"path"`
	DedupeWindowSecs int    `yaml:"dedupe_window_seconds"`
}

// SentimentFeed configures the fear & greed source.
type SentimentFeed struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_seconds"`
}

// Root is the full agent configuration.
type Root struct {
	Generator Account `yaml:"generator_account"`
	Refuge    Account `yaml:"refuge_account"`

	Oracle    Oracle        `yaml:"oracle"`
	Cycle     Cycle         `yaml:"cycle"`
	Retry     Retry         `yaml:"retry"`
	Journal   Journal       `yaml:"journal"`
	Sentiment SentimentFeed `yaml:"sentiment"`

	Guardian    guardian.Config            `yaml:"guardian"`
	GenPolicy   strategy.GeneratorConfig   `yaml:"generator_policy"`
	Savings     strategy.SavingsConfig     `yaml:"savings_policy"`
	Bridge      strategy.BridgeConfig      `yaml:"bridge"`
	ColdStorage strategy.ColdStorageConfig `yaml:"cold_storage"`
}

// Load reads and defaults the configuration.
func Load(path string) (Root, error) {
	c := defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&c)
	if err := validate(&c); err != nil {
		return c, err
	}
	return c, nil
}

func defaults() Root {
	return Root{
		Generator:   Account{Exchange: "mock", APIKeyEnv: "GEN_API_KEY", SecretKeyEnv: "GEN_SECRET_KEY"},
		Refuge:      Account{Exchange: "mock", APIKeyEnv: "SAFE_API_KEY", SecretKeyEnv: "SAFE_SECRET_KEY"},
		Guardian:    guardian.DefaultConfig(),
		GenPolicy:   strategy.DefaultGeneratorConfig(),
		Savings:     strategy.DefaultSavingsConfig(),
		Bridge:      strategy.DefaultBridgeConfig(),
		ColdStorage: strategy.DefaultColdStorageConfig(),
	}
}

func applyDefaults(c *Root) {
	if c.Oracle.ModelPath == "" {
		c.Oracle.ModelPath = "data/madness.onnx"
	}
	if c.Oracle.ScalerPath == "" {
		c.Oracle.ScalerPath = "data/scaler.json"
	}
	if len(c.Cycle.Symbols) == 0 {
		c.Cycle.Symbols = []string{"SOL/USDT", "ETH/USDT", "BTC/USDT"}
	}
	if c.Cycle.TargetSymbol == "" {
		c.Cycle.TargetSymbol = "XMR/USDT"
	}
	if c.Cycle.QuoteAsset == "" {
		c.Cycle.QuoteAsset = "USDT"
	}
	if c.Cycle.Interval == "" {
		c.Cycle.Interval = "1h"
	}
	if c.Cycle.BarLimit == 0 {
		c.Cycle.BarLimit = 300
	}
	if c.Cycle.SleepSeconds == 0 {
		c.Cycle.SleepSeconds = 3600
	}
	if c.Cycle.CooldownSecs == 0 {
		c.Cycle.CooldownSecs = 60
	}
	if c.Cycle.MacroTicker == "" {
		c.Cycle.MacroTicker = "^GSPC"
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.AttemptDelaySecs == 0 {
		c.Retry.AttemptDelaySecs = 5
	}
	if c.Retry.RatePerSec == 0 {
		c.Retry.RatePerSec = 1
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "data/journal.jsonl"
	}
	if c.Journal.DedupeWindowSecs == 0 {
		c.Journal.DedupeWindowSecs = 90
	}
	if c.Sentiment.TimeoutSecs == 0 {
		c.Sentiment.TimeoutSecs = 5
	}
}

func validate(c *Root) error {
	if c.Generator.Exchange == "" || c.Refuge.Exchange == "" {
		return fmt.Errorf("both generator_account.exchange and refuge_account.exchange are required")
	}
	if c.Savings.TargetAsset != c.ColdStorage.Asset {
		return fmt.Errorf("savings target asset %q and cold storage asset %q disagree",
			c.Savings.TargetAsset, c.ColdStorage.Asset)
	}
	return nil
}

// SchedulerConfig converts to the loop's config.
func (c Root) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		Symbols:      c.Cycle.Symbols,
		TargetSymbol: c.Cycle.TargetSymbol,
		QuoteAsset:   c.Cycle.QuoteAsset,
		Interval:     c.Cycle.Interval,
		BarLimit:     c.Cycle.BarLimit,
		CycleSleep:   time.Duration(c.Cycle.SleepSeconds) * time.Second,
		Cooldown:     time.Duration(c.Cycle.CooldownSecs) * time.Second,
		MacroTicker:  c.Cycle.MacroTicker,
	}
}

// RetryConfig converts to the exchange wrapper's config.
func (c Root) RetryConfig() exchange.RetryConfig {
	return exchange.RetryConfig{
		MaxAttempts:  c.Retry.MaxAttempts,
		AttemptDelay: time.Duration(c.Retry.AttemptDelaySecs) * time.Second,
		RatePerSec:   c.Retry.RatePerSec,
	}
}

// Credentials resolves an account's API keys from the environment. Both
// must be present; a missing credential is fatal before the loop starts.
func (a Account) Credentials() (exchange.Credentials, error) {
	if a.Exchange == "mock" {
		return exchange.Credentials{}, nil
	}
	key, secret := os.Getenv(a.APIKeyEnv), os.Getenv(a.SecretKeyEnv)
	if key == "" || secret == "" {
		return exchange.Credentials{}, fmt.Errorf(
			"missing credentials for %s: set %s and %s", a.Exchange, a.APIKeyEnv, a.SecretKeyEnv)
	}
	return exchange.Credentials{APIKey: key, Secret: secret}, nil
}
