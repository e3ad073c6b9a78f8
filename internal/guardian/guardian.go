package guardian

import (
	"fmt"

	"github.com/lulabot/lula/internal/observ"
)

// Verdict is the guardian's gate decision. There are no graded verdicts:
// either the cycle may trade or it may not, with a human-readable reason.
type Verdict struct {
	Allowed bool
	Reason  string
}

// Context carries one cycle's market-health readings. Nil pointer fields
// mean the source was unavailable this cycle; the dependent rule is then
// skipped (fail-open) instead of treating the gap as a signal.
type Context struct {
	VIX            *float64
	DXY            *float64
	Sentiment      *int
	BookImbalance  *float64
	LargeTradeSeen bool

	// Instrument trend inputs, derived from its own bars.
	Price   float64
	LongSMA float64 // 0 when history is too short to compute
}

// Config holds the veto thresholds. Values are tunable, the rule order is
// structural.
type Config struct {
	VIXCritical       float64 `yaml:"vix_critical"`
	DXYCritical       float64 `yaml:"dxy_critical"`
	EuphoriaLevel     int     `yaml:"euphoria_level"`
	SellPressureFloor float64 `yaml:"sell_pressure_floor"`
	ElevatedSentiment int     `yaml:"elevated_sentiment"`
	FearFloor         int     `yaml:"fear_floor"`
	BuySupportLevel   float64 `yaml:"buy_support_level"`
	LargeTradeUSD     float64 `yaml:"large_trade_usd"`
}

// DefaultConfig carries the thresholds the agent has run with in
// production.
func DefaultConfig() Config {
	return Config{
		VIXCritical:       30,
		DXYCritical:       107,
		EuphoriaLevel:     85,
		SellPressureFloor: -0.45,
		ElevatedSentiment: 60,
		FearFloor:         25,
		BuySupportLevel:   0.2,
		LargeTradeUSD:     250_000,
	}
}

// Guardian vetoes trading on macro, sentiment and liquidity conditions
// regardless of the oracle's score.
type Guardian struct {
	cfg Config
}

// New returns a guardian with the given thresholds.
func New(cfg Config) *Guardian { return &Guardian{cfg: cfg} }

// Evaluate walks the veto rules in fixed priority order and short-circuits
// on the first failure. No rule weighting, no combination: the first
// broken rule names the verdict.
func (g *Guardian) Evaluate(ctx Context) Verdict {
	if v, denied := g.checkRules(ctx); denied {
		observ.IncCounter("guardian_deny_total", map[string]string{"reason": v.Reason})
		return v
	}
	return Verdict{Allowed: true, Reason: "market stable"}
}

func (g *Guardian) checkRules(ctx Context) (Verdict, bool) {
	if ctx.VIX != nil && *ctx.VIX > g.cfg.VIXCritical {
		return deny(fmt.Sprintf("volatility index critical (%.1f > %.1f)", *ctx.VIX, g.cfg.VIXCritical)), true
	}
	if ctx.DXY != nil && *ctx.DXY > g.cfg.DXYCritical {
		return deny(fmt.Sprintf("dollar too strong (DXY %.1f > %.1f)", *ctx.DXY, g.cfg.DXYCritical)), true
	}
	if ctx.Sentiment != nil && *ctx.Sentiment > g.cfg.EuphoriaLevel {
		return deny(fmt.Sprintf("extreme euphoria (fear&greed %d > %d)", *ctx.Sentiment, g.cfg.EuphoriaLevel)), true
	}
	if ctx.BookImbalance != nil && *ctx.BookImbalance < g.cfg.SellPressureFloor {
		return deny(fmt.Sprintf("heavy sell pressure (imbalance %.2f < %.2f)", *ctx.BookImbalance, g.cfg.SellPressureFloor)), true
	}
	if ctx.LargeTradeSeen && ctx.Sentiment != nil && *ctx.Sentiment > g.cfg.ElevatedSentiment {
		return deny(fmt.Sprintf("large trade during elevated sentiment (fear&greed %d)", *ctx.Sentiment)), true
	}
	if ctx.LongSMA > 0 && ctx.Price < ctx.LongSMA {
		// A bearish trend alone is tolerable in deep fear (capitulation
		// buys); above the fear floor and without strong bid support it
		// is a veto. Each clause resolves permissively when its source is
		// unavailable, so a missing feed can never trip this rule.
		sentimentWeak := ctx.Sentiment != nil && *ctx.Sentiment > g.cfg.FearFloor
		buySupport := ctx.BookImbalance == nil || *ctx.BookImbalance >= g.cfg.BuySupportLevel
		if sentimentWeak && !buySupport {
			return deny(fmt.Sprintf("bearish trend without buy support (price %.2f < SMA %.2f)", ctx.Price, ctx.LongSMA)), true
		}
	}
	return Verdict{}, false
}

func deny(reason string) Verdict {
	return Verdict{Allowed: false, Reason: reason}
}
