package strategy

import "fmt"

// BridgeConfig governs moving realized profit from the generator account
// to the refuge account.
type BridgeConfig struct {
	QuoteAsset     string  `yaml:"quote_asset"`     // e.g. "USDT"
	ReserveUSD     float64 `yaml:"reserve_usd"`     // working capital left behind
	MinBatchUSD    float64 `yaml:"min_batch_usd"`   // don't move dust
	FeeBufferUSD   float64 `yaml:"fee_buffer_usd"`  // estimated network fee
	Network        string  `yaml:"network"`         // e.g. "TRC20"
	DepositAddress string  `yaml:"deposit_address"` // refuge account deposit address
}

// DefaultBridgeConfig carries the production thresholds.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		QuoteAsset:   "USDT",
		ReserveUSD:   100,
		MinBatchUSD:  25,
		FeeBufferUSD: 1,
		Network:      "TRC20",
	}
}

// DecideBridge transfers the surplus above the reserve, minus the fee
// buffer. The reserve is invariant: the transfer amount is
// max(0, balance - reserve - feeBuffer) and anything under the batch
// minimum stays put.
func DecideBridge(cfg BridgeConfig, genFreeQuoteUSD float64) Decision {
	if cfg.DepositAddress == "" {
		return hold("bridge: no deposit address configured")
	}
	surplus := genFreeQuoteUSD - cfg.ReserveUSD - cfg.FeeBufferUSD
	if surplus < 0 {
		surplus = 0
	}
	if surplus < cfg.MinBatchUSD {
		return hold(fmt.Sprintf("bridge: surplus $%.2f below batch minimum $%.2f",
			surplus, cfg.MinBatchUSD))
	}
	return Decision{
		Action: ActionTransfer,
		Amount: surplus,
		Reason: fmt.Sprintf("bridge: moving $%.2f %s surplus to refuge (reserve $%.2f kept)",
			surplus, cfg.QuoteAsset, cfg.ReserveUSD),
	}
}
