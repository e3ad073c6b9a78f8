package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lulabot/lula/internal/config"
	"github.com/lulabot/lula/internal/exchange"
	"github.com/lulabot/lula/internal/guardian"
	"github.com/lulabot/lula/internal/macro"
	"github.com/lulabot/lula/internal/observ"
	"github.com/lulabot/lula/internal/oracle"
	"github.com/lulabot/lula/internal/outbox"
	"github.com/lulabot/lula/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "config/agent.yaml", "path to agent configuration")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	accounts, err := buildAccounts(cfg)
	if err != nil {
		return err
	}
	defer accounts.Close()

	// The oracle binds the inference runtime exactly once; a malformed or
	// missing artifact aborts here, before the loop ever starts.
	orc, err := oracle.New(oracle.Config{
		ModelPath:      cfg.Oracle.ModelPath,
		ScalerPath:     cfg.Oracle.ScalerPath,
		RuntimeLibPath: cfg.Oracle.RuntimeLibPath,
		SequenceWindow: cfg.Oracle.SequenceWindow,
	})
	if err != nil {
		return fmt.Errorf("load oracle: %w", err)
	}
	defer orc.Close()

	journal, err := outbox.New(cfg.Journal.Path, time.Duration(cfg.Journal.DedupeWindowSecs)*time.Second)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	guard := guardian.New(cfg.Guardian)
	deps := guardian.Deps{
		MarketData: macro.NewYahooClient("", 10*time.Second),
		Sentiment:  macro.NewFearGreedClient(cfg.Sentiment.BaseURL, time.Duration(cfg.Sentiment.TimeoutSecs)*time.Second),
	}

	sched := scheduler.New(cfg.SchedulerConfig(), accounts, orc, guard, deps, journal,
		cfg.GenPolicy, cfg.Savings, cfg.Bridge, cfg.ColdStorage)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observ.Log("agent_online", map[string]any{
		"generator": accounts.Gen.ID(),
		"refuge":    accounts.Safe.ID(),
		"symbols":   cfg.Cycle.Symbols,
		"target":    cfg.Cycle.TargetSymbol,
	})
	sched.Run(ctx)
	observ.Log("agent_offline", nil)
	return nil
}

func buildAccounts(cfg config.Root) (*exchange.DualAccount, error) {
	genCreds, err := cfg.Generator.Credentials()
	if err != nil {
		return nil, err
	}
	safeCreds, err := cfg.Refuge.Credentials()
	if err != nil {
		return nil, err
	}

	gen, err := exchange.New(cfg.Generator.Exchange, genCreds)
	if err != nil {
		return nil, err
	}
	safe, err := exchange.New(cfg.Refuge.Exchange, safeCreds)
	if err != nil {
		gen.Close()
		return nil, err
	}

	retry := cfg.RetryConfig()
	return &exchange.DualAccount{
		Gen:  exchange.WithRetries(gen, retry),
		Safe: exchange.WithRetries(safe, retry),
	}, nil
}
