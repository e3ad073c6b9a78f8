package strategy

import "fmt"

// SavingsConfig tunes the patient accumulation policy on the refuge
// account.
type SavingsConfig struct {
	TargetAsset    string  `yaml:"target_asset"`     // e.g. "XMR"
	QuoteAsset     string  `yaml:"quote_asset"`      // e.g. "USDT"
	TargetPctCap   float64 `yaml:"target_pct_cap"`   // e.g. 0.40
	MinTradeUSD    float64 `yaml:"min_trade_usd"`    // e.g. 10
	CashReserveUSD float64 `yaml:"cash_reserve_usd"` // e.g. 50
	OversoldRSI    float64 `yaml:"oversold_rsi"`     // e.g. 35
	HighConviction float64 `yaml:"high_conviction"`  // e.g. 0.85
	SqueezeRVOL    float64 `yaml:"squeeze_rvol"`     // e.g. 2.0
	ThinBookUSD    float64 `yaml:"thin_book_usd"`    // ask-side depth floor
}

// DefaultSavingsConfig carries the production thresholds.
func DefaultSavingsConfig() SavingsConfig {
	return SavingsConfig{
		TargetAsset:    "XMR",
		QuoteAsset:     "USDT",
		TargetPctCap:   0.40,
		MinTradeUSD:    10,
		CashReserveUSD: 50,
		OversoldRSI:    35,
		HighConviction: 0.85,
		SqueezeRVOL:    2.0,
		ThinBookUSD:    100_000,
	}
}

// SavingsInput is the refuge account's fresh snapshot for a cycle.
type SavingsInput struct {
	Score        float64
	RSI          float64
	RelVolume    float64
	Price        float64 // target asset price in quote currency
	FreeQuoteUSD float64
	TargetQty    float64 // total target-asset holding

	// AskDepthUSD is nil when the order book was unavailable; the squeeze
	// trigger is then skipped.
	AskDepthUSD *float64
}

// TargetPct is the target asset's share of combined portfolio value,
// recomputed from fresh balances every cycle.
func (in SavingsInput) TargetPct() float64 {
	targetValue := in.TargetQty * in.Price
	total := in.FreeQuoteUSD + targetValue
	if total <= 0 {
		return 0
	}
	return targetValue / total
}

// DecideSavings accumulates the target asset whenever it looks cheap
// (oversold RSI), the oracle is confident, or a liquidity squeeze is
// forming, subject to a hard portfolio-percentage ceiling and a cash
// reserve that is never spent.
func DecideSavings(cfg SavingsConfig, in SavingsInput) Decision {
	if in.Price <= 0 {
		return hold("savings: no usable price")
	}

	pct := in.TargetPct()
	if pct >= cfg.TargetPctCap {
		return hold(fmt.Sprintf("savings: %s ceiling reached (%.0f%% >= %.0f%%)",
			cfg.TargetAsset, pct*100, cfg.TargetPctCap*100))
	}
	if in.FreeQuoteUSD < cfg.MinTradeUSD {
		return hold(fmt.Sprintf("savings: free %s $%.2f below minimum trade $%.2f",
			cfg.QuoteAsset, in.FreeQuoteUSD, cfg.MinTradeUSD))
	}

	squeeze := in.AskDepthUSD != nil &&
		in.RelVolume > cfg.SqueezeRVOL && *in.AskDepthUSD < cfg.ThinBookUSD

	var trigger string
	switch {
	case in.RSI < cfg.OversoldRSI:
		trigger = fmt.Sprintf("oversold (rsi %.1f < %.1f)", in.RSI, cfg.OversoldRSI)
	case in.Score > cfg.HighConviction:
		trigger = fmt.Sprintf("high conviction (score %.2f > %.2f)", in.Score, cfg.HighConviction)
	case squeeze:
		trigger = fmt.Sprintf("liquidity squeeze (rvol %.2f, ask depth $%.0f)", in.RelVolume, *in.AskDepthUSD)
	default:
		return hold(fmt.Sprintf("savings: waiting for a better entry (rsi %.1f, score %.2f)", in.RSI, in.Score))
	}

	surplus := in.FreeQuoteUSD - cfg.CashReserveUSD
	if surplus < cfg.MinTradeUSD {
		return hold(fmt.Sprintf("savings: surplus $%.2f above reserve too small to trade", surplus))
	}

	return Decision{
		Action: ActionBuy,
		Amount: surplus / in.Price,
		Reason: fmt.Sprintf("savings: buying %s with $%.2f surplus, trigger: %s",
			cfg.TargetAsset, surplus, trigger),
	}
}
