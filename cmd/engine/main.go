// Binary engine runs the full trading loop: market data failover, strategy
// scheduling, risk-gated order execution, and the position ledger.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/broker"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/bus"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/config"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/execution"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/feed"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/journal"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/ledger"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/market"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/metrics"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/risk"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/scheduler"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/strategy"
	"github.com/shyamanurag/ALGO-FRONTEND-sub001/internal/util"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to engine configuration")
	flag.Parse()

	_ = godotenv.Load()

	log := util.NewLogger("info")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *cfgPath).Msg("load config")
	}
	log = util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b := bus.New(log)
	defer b.Close()

	fo := feed.NewFailover(log, b, cfg.Feed.Staleness(), cfg.Feed.HealthInterval())
	feeds, err := buildFeeds(cfg, fo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build feeds")
	}
	fo.SetFeeds(feeds)
	fo.Subscribe(cfg.Feed.Symbols)

	jrnl, err := journal.NewSQLite(cfg.Journal.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Journal.Path).Msg("open journal")
	}
	defer jrnl.Close()

	terminal, err := jrnl.TerminalSignalIDs()
	if err != nil {
		log.Fatal().Err(err).Msg("load terminal signals")
	}
	log.Info().Int("count", len(terminal)).Msg("journal recovered")

	led := ledger.New(log)
	led.Attach(b)

	gate := risk.NewGate(risk.Limits{
		Capital:         cfg.Risk.Capital,
		MaxExposurePct:  cfg.Risk.MaxExposurePct,
		MaxDailyLossPct: cfg.Risk.MaxDailyLossPct,
		MaxPositions:    cfg.Risk.MaxPositions,
	}, led, log)

	var gwOpts []execution.Option
	var brk broker.Broker
	if cfg.Execution.Mode == execution.ModeLive {
		brokerKey := ""
		if cfg.Broker.APIKeyEnv != "" {
			brokerKey = os.Getenv(cfg.Broker.APIKeyEnv)
		}
		brk = broker.NewRESTBroker(cfg.Broker.URL, brokerKey, log)
		gwOpts = append(gwOpts, execution.WithBroker(brk))
	}
	gw, err := execution.NewGateway(execution.Config{
		Mode:         cfg.Execution.Mode,
		SlippageBps:  cfg.Execution.SlippageBps,
		RetryMax:     cfg.Execution.RetryMax,
		RetryBackoff: cfg.Execution.RetryBackoff(),
	}, b, fo, gate, jrnl, terminal, log, gwOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("build gateway")
	}
	gw.Attach(ctx, b)

	// Pending live orders resolve asynchronously; poll the venue for their
	// terminal state.
	if brk != nil {
		conf := execution.NewConfirmer(gw, brk, cfg.Broker.StatusInterval(), log)
		go func() {
			if err := conf.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("confirmer stopped")
				cancel()
			}
		}()
	}

	hours := market.Hours{}
	if cfg.Scheduler.Hours.Open != "" {
		hours, err = market.ParseHours(cfg.Scheduler.Hours.Open, cfg.Scheduler.Hours.Close, cfg.Scheduler.Hours.Timezone)
		if err != nil {
			log.Fatal().Err(err).Msg("parse trading hours")
		}
	}

	sched := scheduler.New(log, b, cfg.Scheduler.Interval(), hours, cfg.Feed.WindowSize)
	for _, sc := range cfg.Strategies {
		strat := strategy.Build(sc.Mode, strategy.Params{
			Threshold:     sc.Params.Threshold,
			Quantity:      sc.Params.Quantity,
			StopLossPct:   sc.Params.StopLossPct,
			TakeProfitPct: sc.Params.TakeProfitPct,
		})
		policy := scheduler.Policy{
			Cooldown:        time.Duration(sc.CooldownSecs) * time.Second,
			MaxDailySignals: sc.MaxDailySignals,
			MinWindow:       sc.MinWindow,
		}
		if err := sched.Register(sc.Name, sc.Symbol, strat, policy); err != nil {
			log.Fatal().Err(err).Str("strategy", sc.Name).Msg("register strategy")
		}
	}

	go func() {
		if err := fo.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("failover stopped")
			cancel()
		}
	}()
	go func() {
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("scheduler stopped")
			cancel()
		}
	}()

	log.Info().
		Str("mode", cfg.Execution.Mode).
		Int("providers", len(feeds)).
		Int("strategies", len(cfg.Strategies)).
		Msg("engine started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	snap := led.Snapshot()
	log.Info().
		Float64("realized", snap.Totals.RealizedPnL).
		Float64("unrealized", snap.Totals.UnrealizedPnL).
		Int("open_positions", snap.Totals.OpenPositions).
		Msg("final ledger")
}

// buildFeeds constructs provider clients in configured priority order, all
// sinking into the failover controller.
func buildFeeds(cfg *config.Config, fo *feed.Failover, log zerolog.Logger) ([]feed.Feed, error) {
	backoff := feed.Backoff{
		Min:    time.Duration(cfg.Feed.ReconnectMinMs) * time.Millisecond,
		Max:    time.Duration(cfg.Feed.ReconnectMaxMs) * time.Millisecond,
		Jitter: 0.2,
	}

	feeds := make([]feed.Feed, 0, len(cfg.Feed.Providers))
	for _, p := range cfg.Feed.Providers {
		apiKey := ""
		if p.APIKeyEnv != "" {
			apiKey = os.Getenv(p.APIKeyEnv)
		}
		switch p.Kind {
		case "websocket":
			feeds = append(feeds, feed.NewWebSocketFeed(p.Name, p.URL, apiKey, backoff, log, fo.OnQuote, fo.OnEvent))
		case "poll":
			interval := time.Duration(p.PollIntervalMs) * time.Millisecond
			if interval <= 0 {
				interval = time.Second
			}
			feeds = append(feeds, feed.NewPollFeed(p.Name, p.URL, apiKey, interval, log, fo.OnQuote, fo.OnEvent))
		case "stub":
			feeds = append(feeds, feed.NewStubFeed(p.Name, time.Second, fo.OnQuote, fo.OnEvent))
		}
	}
	return feeds, nil
}
