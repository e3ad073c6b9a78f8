package strategy

import "fmt"

// GeneratorConfig tunes the speculative per-symbol policy on the
// generator account.
type GeneratorConfig struct {
	BuyScore          float64 `yaml:"buy_score"`           // e.g. 0.92
	SellScore         float64 `yaml:"sell_score"`          // e.g. 0.30
	OverboughtRSI     float64 `yaml:"overbought_rsi"`      // e.g. 70
	BuyNotionalUSD    float64 `yaml:"buy_notional_usd"`    // fixed buy size
	ExposureCapUSD    float64 `yaml:"exposure_cap_usd"`    // per-symbol cap
	MinOrderUSD       float64 `yaml:"min_order_usd"`       // exchange minimum
	MinLiquidationUSD float64 `yaml:"min_liquidation_usd"` // dust floor for exits
}

// DefaultGeneratorConfig carries the production thresholds.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		BuyScore:          0.92,
		SellScore:         0.30,
		OverboughtRSI:     70,
		BuyNotionalUSD:    20,
		ExposureCapUSD:    50,
		MinOrderUSD:       10,
		MinLiquidationUSD: 5,
	}
}

// GeneratorInput is one symbol's fresh snapshot for a cycle.
type GeneratorInput struct {
	Symbol       string
	Score        float64
	RSI          float64
	Price        float64
	BaseQty      float64 // current position in base asset
	FreeQuoteUSD float64
}

// PositionValueUSD is the current notional of the held position.
func (in GeneratorInput) PositionValueUSD() float64 { return in.BaseQty * in.Price }

// DecideGenerator applies the aggressive cash-flow policy: buy a fixed
// notional on very high conviction while under the exposure cap, exit the
// whole position on a collapsed score or an overbought RSI. Decisions are
// independent per symbol; there is no cross-symbol optimization.
func DecideGenerator(cfg GeneratorConfig, in GeneratorInput) Decision {
	if in.Price <= 0 {
		return hold(fmt.Sprintf("%s: no usable price", in.Symbol))
	}
	posValue := in.PositionValueUSD()

	exitSignal := in.Score <= cfg.SellScore || in.RSI >= cfg.OverboughtRSI
	if exitSignal && posValue >= cfg.MinLiquidationUSD {
		return Decision{
			Action: ActionSell,
			Amount: in.BaseQty,
			Reason: fmt.Sprintf("%s: take profit (score %.2f, rsi %.1f, position $%.2f)",
				in.Symbol, in.Score, in.RSI, posValue),
		}
	}

	if in.Score >= cfg.BuyScore {
		if posValue >= cfg.ExposureCapUSD {
			return hold(fmt.Sprintf("%s: exposure cap reached ($%.2f >= $%.2f)",
				in.Symbol, posValue, cfg.ExposureCapUSD))
		}
		if in.FreeQuoteUSD < cfg.MinOrderUSD {
			return hold(fmt.Sprintf("%s: free quote $%.2f below minimum order $%.2f",
				in.Symbol, in.FreeQuoteUSD, cfg.MinOrderUSD))
		}
		notional := cfg.BuyNotionalUSD
		if notional > in.FreeQuoteUSD {
			notional = in.FreeQuoteUSD
		}
		return Decision{
			Action: ActionBuy,
			Amount: notional / in.Price,
			Reason: fmt.Sprintf("%s: high conviction buy (score %.2f, $%.2f notional)",
				in.Symbol, in.Score, notional),
		}
	}

	return hold(fmt.Sprintf("%s: no signal (score %.2f, rsi %.1f)", in.Symbol, in.Score, in.RSI))
}
