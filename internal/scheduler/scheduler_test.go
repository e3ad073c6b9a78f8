package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lulabot/lula/internal/exchange"
	"github.com/lulabot/lula/internal/guardian"
	"github.com/lulabot/lula/internal/macro"
	"github.com/lulabot/lula/internal/market"
	"github.com/lulabot/lula/internal/oracle"
	"github.com/lulabot/lula/internal/outbox"
	"github.com/lulabot/lula/internal/strategy"
)

type fakePredictor struct {
	sig   oracle.Signal
	err   error
	panic bool
}

func (f *fakePredictor) Predict(market.Bars, market.Series) (oracle.Signal, error) {
	if f.panic {
		panic("model blew up")
	}
	return f.sig, f.err
}

func cycleBars(n int) market.Bars {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := make(market.Bars, n)
	for i := 0; i < n; i++ {
		c := 100 + 5*math.Sin(float64(i)/3)
		bars[i] = market.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c, High: c + 1, Low: c - 1, Close: c, Volume: 10,
		}
	}
	return bars
}

type fixture struct {
	sched       *Scheduler
	gen, safe   *exchange.MockClient
	journalPath string
}

func newFixture(t *testing.T, pred Predictor) *fixture {
	t.Helper()

	gen := exchange.NewMockClient()
	gen.Name = "kraken"
	gen.Bars["SOL/USDT"] = cycleBars(60)
	gen.Balances = exchange.Balances{
		"USDT": {Free: 200, Total: 200},
		"SOL":  {Free: 0.1, Total: 0.1},
	}

	safe := exchange.NewMockClient()
	safe.Name = "mexc"
	safe.Bars["XMR/USDT"] = cycleBars(60)
	safe.Balances = exchange.Balances{
		"USDT": {Free: 200, Total: 200},
		"XMR":  {Free: 0.8, Total: 0.8},
	}

	journalPath := filepath.Join(t.TempDir(), "actions.jsonl")
	journal, err := outbox.New(journalPath, time.Hour)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Symbols = []string{"SOL/USDT"}
	cfg.MacroTicker = "" // macro feed exercised separately

	bridgeCfg := strategy.DefaultBridgeConfig()
	bridgeCfg.DepositAddress = "TRefugeDepositAddr"
	vaultCfg := strategy.DefaultColdStorageConfig()
	vaultCfg.Address = "4AdUndXHHZ6cfufTMvppY6JwXNouMBzSkbLYfpAV5Usx"

	sched := New(cfg,
		&exchange.DualAccount{Gen: gen, Safe: safe},
		pred,
		guardian.New(guardian.DefaultConfig()),
		guardian.Deps{},
		journal,
		strategy.DefaultGeneratorConfig(),
		strategy.DefaultSavingsConfig(),
		bridgeCfg,
		vaultCfg,
	)
	return &fixture{sched: sched, gen: gen, safe: safe, journalPath: journalPath}
}

func readJournal(t *testing.T, path string) []outbox.Record {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var out []outbox.Record
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		var rec outbox.Record
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestRunCycleFullPass(t *testing.T) {
	pred := &fakePredictor{sig: oracle.Signal{Score: 0.95, RSI: 25, Price: 100, RelVolume: 1}}
	f := newFixture(t, pred)

	require.NoError(t, f.sched.RunCycle(context.Background()))

	// generator: high conviction buy of $20 notional at $100
	require.Len(t, f.gen.Orders, 1)
	assert.Equal(t, exchange.SideBuy, f.gen.Orders[0].Side)
	assert.InDelta(t, 0.2, f.gen.Orders[0].Amount, 1e-9)

	// bridge: $200 - $100 reserve - $1 fee buffer moves to the refuge
	require.Len(t, f.gen.Withdrawals, 1)
	assert.Equal(t, "USDT", f.gen.Withdrawals[0].Asset)
	assert.InDelta(t, 99, f.gen.Withdrawals[0].Amount, 1e-9)

	// savings: oversold trigger spends the surplus above the $50 reserve
	require.Len(t, f.safe.Orders, 1)
	assert.Equal(t, exchange.SideBuy, f.safe.Orders[0].Side)
	assert.InDelta(t, 1.5, f.safe.Orders[0].Amount, 1e-9)

	// vault: 0.8 XMR free clears the 0.5 minimum
	require.Len(t, f.safe.Withdrawals, 1)
	assert.Equal(t, "XMR", f.safe.Withdrawals[0].Asset)
	assert.InDelta(t, 0.799, f.safe.Withdrawals[0].Amount, 1e-9)

	// every submission is journaled with an idempotency key
	recs := readJournal(t, f.journalPath)
	require.Len(t, recs, 4)
	for _, rec := range recs {
		assert.NotEqual(t, outbox.KindSkip, rec.Kind)
		assert.NotEmpty(t, rec.IdempotencyKey)
		assert.NotEmpty(t, rec.ReceiptID)
	}
}

func TestRunCycleGuardianDenyIsJournaled(t *testing.T) {
	pred := &fakePredictor{sig: oracle.Signal{Score: 0.95, RSI: 50, Price: 100, RelVolume: 1}}
	f := newFixture(t, pred)
	f.sched.deps = guardian.Deps{Sentiment: &macro.MockSentiment{Value: 95}}

	require.NoError(t, f.sched.RunCycle(context.Background()))

	// no generator order went out, and the refusal is on the audit trail
	assert.Empty(t, f.gen.Orders)
	recs := readJournal(t, f.journalPath)
	var skips []outbox.Record
	for _, rec := range recs {
		if rec.Kind == outbox.KindSkip {
			skips = append(skips, rec)
		}
	}
	require.Len(t, skips, 1)
	assert.Equal(t, "SOL/USDT", skips[0].Symbol)
	assert.Contains(t, skips[0].Reason, "euphoria")
}

func TestRunCycleStageIsolation(t *testing.T) {
	pred := &fakePredictor{sig: oracle.Signal{Score: 0.95, RSI: 25, Price: 100, RelVolume: 1}}
	f := newFixture(t, pred)
	// generator account dies entirely; the refuge stages must still run
	f.gen.Fail["ohlcv"] = exchange.NewNetworkError("SOL/USDT", "connection reset", nil)
	f.gen.Fail["balance"] = exchange.NewNetworkError("", "connection reset", nil)

	require.NoError(t, f.sched.RunCycle(context.Background()))

	assert.Empty(t, f.gen.Orders)
	assert.Empty(t, f.gen.Withdrawals)
	require.Len(t, f.safe.Orders, 1, "savings still traded")
	require.Len(t, f.safe.Withdrawals, 1, "vault still swept")
}

func TestRunCycleContainsPanics(t *testing.T) {
	f := newFixture(t, &fakePredictor{panic: true})

	require.NoError(t, f.sched.RunCycle(context.Background()))

	// both scoring stages blew up; the stages that don't score still ran
	assert.Empty(t, f.gen.Orders)
	assert.Empty(t, f.safe.Orders)
	require.Len(t, f.gen.Withdrawals, 1, "bridge still ran")
	require.Len(t, f.safe.Withdrawals, 1, "vault still ran")
}

func TestRunCycleOracleOutageSkipsQuietly(t *testing.T) {
	pred := &fakePredictor{err: errors.New("runtime session lost")}
	f := newFixture(t, pred)

	require.NoError(t, f.sched.RunCycle(context.Background()))

	assert.Empty(t, f.gen.Orders)
	assert.Empty(t, f.safe.Orders)
	// non-scoring stages are unaffected by an oracle outage
	require.Len(t, f.gen.Withdrawals, 1)
	require.Len(t, f.safe.Withdrawals, 1)
}

func TestRunCycleSkipsUnlistedMarket(t *testing.T) {
	pred := &fakePredictor{sig: oracle.Signal{Score: 0.95, RSI: 50, Price: 100, RelVolume: 1}}
	f := newFixture(t, pred)
	f.gen.Markets = map[string]bool{"ETH/USDT": true} // SOL delisted

	require.NoError(t, f.sched.RunCycle(context.Background()))
	assert.Empty(t, f.gen.Orders)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	f := newFixture(t, &fakePredictor{sig: oracle.Signal{Score: 0.1, RSI: 50, Price: 100}})

	ctx, cancel := context.WithCancel(context.Background())
	cycles := 0
	f.sched.sleep = func(context.Context, time.Duration) bool {
		cycles++
		if cycles >= 2 {
			cancel()
			return false
		}
		return true
	}

	done := make(chan struct{})
	go func() {
		f.sched.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
	assert.Equal(t, 2, cycles)
}
