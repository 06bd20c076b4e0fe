// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Provider describes one market data source in failover priority order
// (first entry is primary).
type Provider struct {
	Name           string `yaml:"name"`
	Kind           string `yaml:"kind"` // websocket | poll | stub
	URL            string `yaml:"url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
}

// Feed groups provider failover tuning.
type Feed struct {
	Providers        []Provider `yaml:"providers"`
	Symbols          []string   `yaml:"symbols"`
	StalenessMs      int        `yaml:"staleness_ms"`
	HealthIntervalMs int        `yaml:"health_interval_ms"`
	ReconnectMinMs   int        `yaml:"reconnect_min_ms"`
	ReconnectMaxMs   int        `yaml:"reconnect_max_ms"`
	WindowSize       int        `yaml:"window_size"`
}

// Hours bounds when the scheduler may evaluate strategies.
type Hours struct {
	Open     string `yaml:"open"`
	Close    string `yaml:"close"`
	Timezone string `yaml:"timezone"`
}

// StrategyParams groups tunable knobs shared by strategy implementations.
type StrategyParams struct {
	Threshold     float64 `yaml:"threshold"`
	WindowSecs    int     `yaml:"window_secs"`
	Quantity      float64 `yaml:"quantity"`
	StopLossPct   float64 `yaml:"stop_loss_pct"`
	TakeProfitPct float64 `yaml:"take_profit_pct"`
}

// Strategy configures one registered strategy instance.
type Strategy struct {
	Name            string         `yaml:"name"`
	Symbol          string         `yaml:"symbol"`
	Mode            string         `yaml:"mode"`
	Params          StrategyParams `yaml:"params"`
	CooldownSecs    int            `yaml:"cooldown_secs"`
	MaxDailySignals int            `yaml:"max_daily_signals"`
	MinWindow       int            `yaml:"min_window"`
}

// Scheduler tunes the evaluation loop.
type Scheduler struct {
	IntervalMs int   `yaml:"interval_ms"`
	Hours      Hours `yaml:"hours"`
}

// Risk encodes guard-rails consulted before every order.
type Risk struct {
	Capital         float64 `yaml:"capital"`
	MaxExposurePct  float64 `yaml:"max_exposure_pct"`
	MaxDailyLossPct float64 `yaml:"max_daily_loss_pct"`
	MaxPositions    int     `yaml:"max_positions"`
}

// Execution selects paper vs live order handling and retry behaviour.
type Execution struct {
	Mode           string  `yaml:"mode"` // paper | live
	SlippageBps    float64 `yaml:"slippage_bps"`
	RetryMax       int     `yaml:"retry_max"`
	RetryBackoffMs int     `yaml:"retry_backoff_ms"`
}

// Broker locates the live order venue for live execution mode.
type Broker struct {
	URL              string `yaml:"url"`
	APIKeyEnv        string `yaml:"api_key_env"`
	StatusIntervalMs int    `yaml:"status_interval_ms"`
}

// Journal locates the durable signal/order store.
type Journal struct {
	Path string `yaml:"path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App        App        `yaml:"app"`
	Feed       Feed       `yaml:"feed"`
	Strategies []Strategy `yaml:"strategies"`
	Scheduler  Scheduler  `yaml:"scheduler"`
	Risk       Risk       `yaml:"risk"`
	Execution  Execution  `yaml:"execution"`
	Broker     Broker     `yaml:"broker"`
	Journal    Journal    `yaml:"journal"`
}

// Load reads a YAML file from disk and hydrates a validated Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate applies defaults and rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.MetricsAddr == "" {
		c.App.MetricsAddr = ":9100"
	}
	if len(c.Feed.Providers) == 0 {
		return fmt.Errorf("feed: at least one provider required")
	}
	seen := make(map[string]struct{}, len(c.Feed.Providers))
	for i, p := range c.Feed.Providers {
		if p.Name == "" {
			return fmt.Errorf("feed: provider %d missing name", i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("feed: duplicate provider %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		switch p.Kind {
		case "websocket", "poll", "stub":
		default:
			return fmt.Errorf("feed: provider %q has unknown kind %q", p.Name, p.Kind)
		}
	}
	if c.Feed.StalenessMs <= 0 {
		c.Feed.StalenessMs = 15000
	}
	if c.Feed.HealthIntervalMs <= 0 {
		c.Feed.HealthIntervalMs = 30000
	}
	if c.Feed.ReconnectMinMs <= 0 {
		c.Feed.ReconnectMinMs = 1000
	}
	if c.Feed.ReconnectMaxMs <= 0 {
		c.Feed.ReconnectMaxMs = 30000
	}
	if c.Feed.WindowSize <= 0 {
		c.Feed.WindowSize = 512
	}
	if c.Scheduler.IntervalMs <= 0 {
		c.Scheduler.IntervalMs = 10000
	}
	for i := range c.Strategies {
		s := &c.Strategies[i]
		if s.Name == "" || s.Symbol == "" {
			return fmt.Errorf("strategies[%d]: name and symbol required", i)
		}
		if s.CooldownSecs < 0 {
			return fmt.Errorf("strategies[%d]: negative cooldown", i)
		}
		if s.MinWindow <= 0 {
			s.MinWindow = 10
		}
	}
	switch c.Execution.Mode {
	case "":
		c.Execution.Mode = "paper"
	case "paper", "live":
	default:
		return fmt.Errorf("execution: unknown mode %q", c.Execution.Mode)
	}
	if c.Execution.Mode == "live" && c.Broker.URL == "" {
		return fmt.Errorf("broker: url required in live mode")
	}
	if c.Broker.StatusIntervalMs <= 0 {
		c.Broker.StatusIntervalMs = 2000
	}
	if c.Execution.RetryMax <= 0 {
		c.Execution.RetryMax = 3
	}
	if c.Execution.RetryBackoffMs <= 0 {
		c.Execution.RetryBackoffMs = 500
	}
	if c.Risk.Capital <= 0 {
		return fmt.Errorf("risk: capital must be positive")
	}
	if c.Risk.MaxExposurePct <= 0 {
		c.Risk.MaxExposurePct = 1.0
	}
	if c.Risk.MaxDailyLossPct <= 0 {
		c.Risk.MaxDailyLossPct = 0.02
	}
	if c.Risk.MaxPositions <= 0 {
		c.Risk.MaxPositions = 10
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "data/journal.db"
	}
	return nil
}

// Staleness returns the quote staleness threshold as a duration.
func (f Feed) Staleness() time.Duration { return time.Duration(f.StalenessMs) * time.Millisecond }

// HealthInterval returns the failover health-check cadence.
func (f Feed) HealthInterval() time.Duration {
	return time.Duration(f.HealthIntervalMs) * time.Millisecond
}

// Interval returns the scheduler tick cadence.
func (s Scheduler) Interval() time.Duration { return time.Duration(s.IntervalMs) * time.Millisecond }

// RetryBackoff returns the live-mode retry delay.
func (e Execution) RetryBackoff() time.Duration {
	return time.Duration(e.RetryBackoffMs) * time.Millisecond
}

// StatusInterval returns the broker order-status polling cadence.
func (b Broker) StatusInterval() time.Duration {
	return time.Duration(b.StatusIntervalMs) * time.Millisecond
}
