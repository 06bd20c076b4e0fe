package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "engine-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.LogLevel != "debug" {
		t.Fatalf("unexpected App.LogLevel: %s", cfg.App.LogLevel)
	}
	if len(cfg.Feed.Providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(cfg.Feed.Providers))
	}
	if cfg.Feed.Providers[0].Name != "primary-ws" || cfg.Feed.Providers[0].Kind != "websocket" {
		t.Fatalf("unexpected primary provider: %+v", cfg.Feed.Providers[0])
	}
	if cfg.Feed.Providers[1].PollIntervalMs != 1000 {
		t.Fatalf("unexpected poll interval: %d", cfg.Feed.Providers[1].PollIntervalMs)
	}
	if len(cfg.Feed.Symbols) != 2 || cfg.Feed.Symbols[0] != "NIFTY" {
		t.Fatalf("unexpected symbols: %+v", cfg.Feed.Symbols)
	}
	if cfg.Feed.Staleness() != 15*time.Second {
		t.Fatalf("unexpected staleness: %v", cfg.Feed.Staleness())
	}
	if len(cfg.Strategies) != 1 || cfg.Strategies[0].Name != "mom-nifty" {
		t.Fatalf("unexpected strategies: %+v", cfg.Strategies)
	}
	if cfg.Strategies[0].Params.Quantity != 50 {
		t.Fatalf("unexpected strategy quantity: %.0f", cfg.Strategies[0].Params.Quantity)
	}
	if cfg.Scheduler.Interval() != 10*time.Second {
		t.Fatalf("unexpected scheduler interval: %v", cfg.Scheduler.Interval())
	}
	if cfg.Scheduler.Hours.Timezone != "Asia/Kolkata" {
		t.Fatalf("unexpected timezone: %s", cfg.Scheduler.Hours.Timezone)
	}
	if cfg.Risk.Capital != 500000 || cfg.Risk.MaxPositions != 5 {
		t.Fatalf("unexpected risk limits: %+v", cfg.Risk)
	}
	if cfg.Execution.Mode != "paper" || cfg.Execution.SlippageBps != 5 {
		t.Fatalf("unexpected execution config: %+v", cfg.Execution)
	}
	if cfg.Journal.Path != "data/test-journal.db" {
		t.Fatalf("unexpected journal path: %s", cfg.Journal.Path)
	}
}

func minimalConfig() *Config {
	return &Config{
		Feed: Feed{Providers: []Provider{{Name: "stub", Kind: "stub"}}},
		Risk: Risk{Capital: 100000},
	}
}

func TestValidateAppliesDefaults(t *testing.T) {
	cfg := minimalConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if cfg.App.LogLevel != "info" {
		t.Fatalf("expected default log level, got %s", cfg.App.LogLevel)
	}
	if cfg.Feed.StalenessMs != 15000 || cfg.Feed.HealthIntervalMs != 30000 {
		t.Fatalf("unexpected feed defaults: %+v", cfg.Feed)
	}
	if cfg.Scheduler.IntervalMs != 10000 {
		t.Fatalf("expected default scheduler interval, got %d", cfg.Scheduler.IntervalMs)
	}
	if cfg.Execution.Mode != "paper" {
		t.Fatalf("expected default paper mode, got %s", cfg.Execution.Mode)
	}
	if cfg.Broker.StatusIntervalMs != 2000 {
		t.Fatalf("expected default broker status interval, got %d", cfg.Broker.StatusIntervalMs)
	}
	if cfg.Journal.Path != "data/journal.db" {
		t.Fatalf("expected default journal path, got %s", cfg.Journal.Path)
	}
}

func TestValidateRejections(t *testing.T) {
	cfg := minimalConfig()
	cfg.Feed.Providers = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("no providers must be rejected")
	}

	cfg = minimalConfig()
	cfg.Feed.Providers = append(cfg.Feed.Providers, Provider{Name: "stub", Kind: "stub"})
	if err := cfg.Validate(); err == nil {
		t.Fatal("duplicate provider names must be rejected")
	}

	cfg = minimalConfig()
	cfg.Feed.Providers[0].Kind = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown provider kind must be rejected")
	}

	cfg = minimalConfig()
	cfg.Execution.Mode = "yolo"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown execution mode must be rejected")
	}

	cfg = minimalConfig()
	cfg.Risk.Capital = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero capital must be rejected")
	}

	cfg = minimalConfig()
	cfg.Strategies = []Strategy{{Name: "mom"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("strategy without symbol must be rejected")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := minimalConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Feed.Providers[0].Name != "stub" {
		t.Fatalf("round trip lost provider: %+v", loaded.Feed.Providers)
	}
}
