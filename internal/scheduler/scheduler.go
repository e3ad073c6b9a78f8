// Package scheduler runs the agent's perpetual watch cycle: guardian
// checks, the generator pass over each speculative symbol, the liquidity
// bridge, the savings pass and the cold-storage sweep, in that order,
// every cycle. One stage failing never stops the stages after it.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lulabot/lula/internal/exchange"
	"github.com/lulabot/lula/internal/guardian"
	"github.com/lulabot/lula/internal/market"
	"github.com/lulabot/lula/internal/observ"
	"github.com/lulabot/lula/internal/oracle"
	"github.com/lulabot/lula/internal/outbox"
	"github.com/lulabot/lula/internal/strategy"
)

// Predictor is the oracle capability the scheduler needs; tests inject a
// deterministic fake.
type Predictor interface {
	Predict(bars market.Bars, macro market.Series) (oracle.Signal, error)
}

// MacroFetcher fetches auxiliary series; nil disables macro context.
type MacroFetcher interface {
	FetchSeries(ctx context.Context, ticker, period, interval string) (market.Series, error)
}

// Config tunes the loop itself.
type Config struct {
	Symbols      []string      // generator symbols, evaluated in this order
	TargetSymbol string        // savings market, e.g. "XMR/USDT"
	QuoteAsset   string        // e.g. "USDT"
	Interval     string        // bar interval, e.g. "1h"
	BarLimit     int           // bars fetched per symbol
	CycleSleep   time.Duration // between cycles
	Cooldown     time.Duration // after an escaped cycle error
	MacroTicker  string        // aux series for the feature builder
}

// DefaultConfig mirrors the production loop: hourly bars, hourly cycles,
// a minute of cooldown after an unexpected failure.
func DefaultConfig() Config {
	return Config{
		Symbols:      []string{"SOL/USDT", "ETH/USDT", "BTC/USDT"},
		TargetSymbol: "XMR/USDT",
		QuoteAsset:   "USDT",
		Interval:     "1h",
		BarLimit:     300,
		CycleSleep:   time.Hour,
		Cooldown:     time.Minute,
		MacroTicker:  "^GSPC",
	}
}

// Scheduler owns the control loop and the per-stage wiring.
type Scheduler struct {
	cfg      Config
	accounts *exchange.DualAccount
	oracle   Predictor
	guard    *guardian.Guardian
	deps     guardian.Deps
	journal  *outbox.Outbox

	genCfg    strategy.GeneratorConfig
	savCfg    strategy.SavingsConfig
	bridgeCfg strategy.BridgeConfig
	vaultCfg  strategy.ColdStorageConfig

	// sleep is replaced in tests; returns false when the context died.
	sleep func(ctx context.Context, d time.Duration) bool
}

// New wires a scheduler from its collaborators.
func New(cfg Config, accounts *exchange.DualAccount, pred Predictor, guard *guardian.Guardian,
	deps guardian.Deps, journal *outbox.Outbox,
	genCfg strategy.GeneratorConfig, savCfg strategy.SavingsConfig,
	bridgeCfg strategy.BridgeConfig, vaultCfg strategy.ColdStorageConfig) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		accounts:  accounts,
		oracle:    pred,
		guard:     guard,
		deps:      deps,
		journal:   journal,
		genCfg:    genCfg,
		savCfg:    savCfg,
		bridgeCfg: bridgeCfg,
		vaultCfg:  vaultCfg,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Run loops until the context is cancelled. An error escaping a whole
// cycle pauses for the cooldown and retries; it never kills the process.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		err := s.RunCycle(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			observ.IncCounter("cycle_errors_total", nil)
			observ.Log("cycle_error", map[string]any{
				"error":        err.Error(),
				"cooldown_sec": s.cfg.Cooldown.Seconds(),
			})
			if !s.sleep(ctx, s.cfg.Cooldown) {
				return
			}
			continue
		}
		observ.Log("cycle_sleep", map[string]any{"seconds": s.cfg.CycleSleep.Seconds()})
		if !s.sleep(ctx, s.cfg.CycleSleep) {
			return
		}
	}
}

// RunCycle executes one full watch round. Stage failures are contained
// inside the stage; only a panic escaping every handler surfaces as the
// returned error.
func (s *Scheduler) RunCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()

	cycleStart := time.Now().UTC()
	observ.Log("cycle_start", map[string]any{"symbols": s.cfg.Symbols})

	macroSeries := s.fetchMacroSeries(ctx)

	for _, symbol := range s.cfg.Symbols {
		if ctx.Err() != nil {
			return nil
		}
		s.stage(ctx, "generator:"+symbol, func(ctx context.Context) error {
			return s.runGeneratorSymbol(ctx, symbol, macroSeries, cycleStart)
		})
	}

	s.stage(ctx, "bridge", func(ctx context.Context) error {
		return s.runBridge(ctx, cycleStart)
	})
	s.stage(ctx, "savings", func(ctx context.Context) error {
		return s.runSavings(ctx, macroSeries, cycleStart)
	})
	s.stage(ctx, "vault", func(ctx context.Context) error {
		return s.runColdStorage(ctx, cycleStart)
	})

	observ.Log("cycle_done", map[string]any{
		"elapsed_sec": time.Since(cycleStart).Seconds(),
	})
	return nil
}

// stage runs fn with fault isolation: an error or panic is logged and the
// cycle moves on to the next stage.
func (s *Scheduler) stage(ctx context.Context, name string, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			observ.IncCounter("stage_panics_total", map[string]string{"stage": name})
			observ.Log("stage_panic", map[string]any{"stage": name, "panic": fmt.Sprint(r)})
		}
	}()
	if ctx.Err() != nil {
		return
	}
	if err := fn(ctx); err != nil {
		observ.IncCounter("stage_errors_total", map[string]string{"stage": name})
		observ.Log("stage_error", map[string]any{"stage": name, "error": err.Error()})
	}
}

// fetchMacroSeries pulls the equity-index context once per cycle. When
// the feed is down the feature builder substitutes the instrument's own
// closes, so a nil return is fine.
func (s *Scheduler) fetchMacroSeries(ctx context.Context) market.Series {
	if s.deps.MarketData == nil || s.cfg.MacroTicker == "" {
		return nil
	}
	series, err := s.deps.MarketData.FetchSeries(ctx, s.cfg.MacroTicker, "5d", s.cfg.Interval)
	if err != nil {
		observ.Log("macro_series_unavailable", map[string]any{
			"ticker": s.cfg.MacroTicker, "error": err.Error(),
		})
		return nil
	}
	return series
}

func (s *Scheduler) runGeneratorSymbol(ctx context.Context, symbol string, macroSeries market.Series, cycleStart time.Time) error {
	gen := s.accounts.Gen

	if !gen.HasMarket(symbol) {
		observ.Log("generator_skip", map[string]any{
			"symbol": symbol, "reason": "market not tradable on " + gen.ID(),
		})
		return nil
	}

	bars, err := gen.FetchOHLCV(ctx, symbol, s.cfg.Interval, s.cfg.BarLimit)
	if err != nil {
		if exchange.IsUnavailable(err) {
			observ.Log("generator_skip", map[string]any{
				"symbol": symbol, "reason": "bars unavailable this cycle", "error": err.Error(),
			})
			return nil
		}
		return fmt.Errorf("fetch bars for %s: %w", symbol, err)
	}

	gctx := s.guard.GatherContext(ctx, s.deps, gen, symbol, bars)
	verdict := s.guard.Evaluate(gctx)
	if !verdict.Allowed {
		observ.Log("guardian_deny", map[string]any{"symbol": symbol, "reason": verdict.Reason})
		return s.journal.Append(outbox.Record{
			Kind: outbox.KindSkip, Account: gen.ID(), Symbol: symbol, Reason: verdict.Reason,
		})
	}

	sig, err := s.oracle.Predict(bars, macroSeries)
	if err != nil {
		observ.Log("generator_skip", map[string]any{
			"symbol": symbol, "reason": "oracle unavailable", "error": err.Error(),
		})
		return nil
	}

	bal, err := gen.FetchBalance(ctx)
	if err != nil {
		observ.Log("generator_skip", map[string]any{
			"symbol": symbol, "reason": "balance unavailable", "error": err.Error(),
		})
		return nil
	}

	in := strategy.GeneratorInput{
		Symbol:       symbol,
		Score:        sig.Score,
		RSI:          sig.RSI,
		Price:        sig.Price,
		BaseQty:      bal.Free(baseAsset(symbol)),
		FreeQuoteUSD: bal.Free(s.cfg.QuoteAsset),
	}
	dec := strategy.DecideGenerator(s.genCfg, in)
	observ.Log("generator_decision", map[string]any{
		"symbol": symbol, "action": string(dec.Action), "amount": dec.Amount,
		"score": sig.Score, "rsi": sig.RSI, "price": sig.Price, "reason": dec.Reason,
	})

	switch dec.Action {
	case strategy.ActionBuy, strategy.ActionSell:
		return s.executeOrder(ctx, gen, symbol, dec, cycleStart)
	default:
		return nil
	}
}

func (s *Scheduler) runBridge(ctx context.Context, cycleStart time.Time) error {
	gen := s.accounts.Gen
	bal, err := gen.FetchBalance(ctx)
	if err != nil {
		observ.Log("bridge_skip", map[string]any{"reason": "balance unavailable", "error": err.Error()})
		return nil
	}

	dec := strategy.DecideBridge(s.bridgeCfg, bal.Free(s.bridgeCfg.QuoteAsset))
	observ.Log("bridge_decision", map[string]any{
		"action": string(dec.Action), "amount": dec.Amount, "reason": dec.Reason,
	})
	if dec.Action != strategy.ActionTransfer {
		return nil
	}

	key := outbox.IdempotencyKey(gen.ID(), outbox.KindTransfer, "", s.bridgeCfg.QuoteAsset, dec.Amount, cycleStart)
	if dup, err := s.journal.HasRecent(key); err != nil {
		return err
	} else if dup {
		observ.Log("bridge_skip", map[string]any{"reason": "duplicate transfer inside dedupe window"})
		return nil
	}

	rcpt, err := gen.Withdraw(ctx, s.bridgeCfg.QuoteAsset, dec.Amount, s.bridgeCfg.DepositAddress, s.bridgeCfg.Network)
	if err != nil {
		return fmt.Errorf("bridge transfer: %w", err)
	}
	observ.IncCounter("bridge_transfers_total", nil)
	return s.journal.Append(outbox.Record{
		Kind: outbox.KindTransfer, Account: gen.ID(), Asset: s.bridgeCfg.QuoteAsset,
		Amount: dec.Amount, Address: s.bridgeCfg.DepositAddress, Network: s.bridgeCfg.Network,
		Reason: dec.Reason, ReceiptID: rcpt.ID, IdempotencyKey: key,
	})
}

func (s *Scheduler) runSavings(ctx context.Context, macroSeries market.Series, cycleStart time.Time) error {
	safe := s.accounts.Safe
	symbol := s.cfg.TargetSymbol

	bars, err := safe.FetchOHLCV(ctx, symbol, s.cfg.Interval, s.cfg.BarLimit)
	if err != nil {
		observ.Log("savings_skip", map[string]any{"reason": "bars unavailable", "error": err.Error()})
		return nil
	}
	sig, err := s.oracle.Predict(bars, macroSeries)
	if err != nil {
		observ.Log("savings_skip", map[string]any{"reason": "oracle unavailable", "error": err.Error()})
		return nil
	}
	bal, err := safe.FetchBalance(ctx)
	if err != nil {
		observ.Log("savings_skip", map[string]any{"reason": "balance unavailable", "error": err.Error()})
		return nil
	}

	var askDepth *float64
	if book, err := safe.FetchOrderBook(ctx, symbol, 20); err == nil {
		d := book.AskDepthUSD()
		askDepth = &d
	} else {
		observ.Log("savings_book_unavailable", map[string]any{"error": err.Error()})
	}

	in := strategy.SavingsInput{
		Score:        sig.Score,
		RSI:          sig.RSI,
		RelVolume:    sig.RelVolume,
		Price:        sig.Price,
		FreeQuoteUSD: bal.Free(s.savCfg.QuoteAsset),
		TargetQty:    bal.Total(s.savCfg.TargetAsset),
		AskDepthUSD:  askDepth,
	}
	dec := strategy.DecideSavings(s.savCfg, in)
	observ.Log("savings_decision", map[string]any{
		"action": string(dec.Action), "amount": dec.Amount,
		"score": sig.Score, "rsi": sig.RSI, "rvol": sig.RelVolume,
		"target_pct": in.TargetPct(), "reason": dec.Reason,
	})
	if dec.Action != strategy.ActionBuy {
		return nil
	}
	return s.executeOrder(ctx, safe, symbol, dec, cycleStart)
}

func (s *Scheduler) runColdStorage(ctx context.Context, cycleStart time.Time) error {
	safe := s.accounts.Safe
	bal, err := safe.FetchBalance(ctx)
	if err != nil {
		observ.Log("vault_skip", map[string]any{"reason": "balance unavailable", "error": err.Error()})
		return nil
	}

	dec := strategy.DecideColdStorage(s.vaultCfg, bal.Free(s.vaultCfg.Asset))
	observ.Log("vault_decision", map[string]any{
		"action": string(dec.Action), "amount": dec.Amount, "reason": dec.Reason,
	})
	if dec.Action != strategy.ActionWithdraw {
		return nil
	}

	key := outbox.IdempotencyKey(safe.ID(), outbox.KindWithdrawal, "", s.vaultCfg.Asset, dec.Amount, cycleStart)
	if dup, err := s.journal.HasRecent(key); err != nil {
		return err
	} else if dup {
		observ.Log("vault_skip", map[string]any{"reason": "duplicate withdrawal inside dedupe window"})
		return nil
	}

	rcpt, err := safe.Withdraw(ctx, s.vaultCfg.Asset, dec.Amount, s.vaultCfg.Address, s.vaultCfg.Network)
	if err != nil {
		return fmt.Errorf("vault withdrawal: %w", err)
	}
	observ.IncCounter("vault_withdrawals_total", nil)
	return s.journal.Append(outbox.Record{
		Kind: outbox.KindWithdrawal, Account: safe.ID(), Asset: s.vaultCfg.Asset,
		Amount: dec.Amount, Address: s.vaultCfg.Address, Network: s.vaultCfg.Network,
		Reason: dec.Reason, ReceiptID: rcpt.ID, IdempotencyKey: key,
	})
}

func (s *Scheduler) executeOrder(ctx context.Context, client exchange.Client, symbol string, dec strategy.Decision, cycleStart time.Time) error {
	side := exchange.SideBuy
	if dec.Action == strategy.ActionSell {
		side = exchange.SideSell
	}

	key := outbox.IdempotencyKey(client.ID(), outbox.KindOrder, symbol, side, dec.Amount, cycleStart)
	if dup, err := s.journal.HasRecent(key); err != nil {
		return err
	} else if dup {
		observ.Log("order_skip", map[string]any{
			"symbol": symbol, "reason": "duplicate order inside dedupe window",
		})
		return nil
	}

	rcpt, err := client.PlaceMarketOrder(ctx, symbol, side, dec.Amount)
	if err != nil {
		return fmt.Errorf("place %s order for %s: %w", side, symbol, err)
	}
	observ.IncCounter("orders_total", map[string]string{"side": side, "account": client.ID()})
	observ.Log("order_executed", map[string]any{
		"symbol": symbol, "side": side, "amount": dec.Amount, "receipt": rcpt.ID,
	})
	return s.journal.Append(outbox.Record{
		Kind: outbox.KindOrder, Account: client.ID(), Symbol: symbol, Side: side,
		Amount: dec.Amount, Reason: dec.Reason, ReceiptID: rcpt.ID, IdempotencyKey: key,
	})
}

// baseAsset extracts the base from a "BASE/QUOTE" market symbol.
func baseAsset(symbol string) string {
	if i := strings.Index(symbol, "/"); i > 0 {
		return symbol[:i]
	}
	return symbol
}
