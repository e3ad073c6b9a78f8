package strategy

import "fmt"

// ColdStorageConfig governs sweeping accumulated target-asset holdings to
// a self-custody address.
type ColdStorageConfig struct {
	Asset       string  `yaml:"asset"`        // e.g. "XMR"
	MinWithdraw float64 `yaml:"min_withdraw"` // don't pay fees on crumbs
	FeeBuffer   float64 `yaml:"fee_buffer"`   // left behind for the withdrawal fee
	Address     string  `yaml:"address"`      // self-custody address
	Network     string  `yaml:"network"`
}

// DefaultColdStorageConfig carries the production thresholds.
func DefaultColdStorageConfig() ColdStorageConfig {
	return ColdStorageConfig{
		Asset:       "XMR",
		MinWithdraw: 0.5,
		FeeBuffer:   0.001,
	}
}

// DecideColdStorage withdraws the free balance minus a fee buffer once it
// clears the minimum. With no address configured the vault stage is a
// logged no-op.
func DecideColdStorage(cfg ColdStorageConfig, freeQty float64) Decision {
	if cfg.Address == "" {
		return hold("vault: no self-custody address configured")
	}
	if freeQty <= cfg.MinWithdraw {
		return hold(fmt.Sprintf("vault: accumulating %s (%.4f/%.4f)",
			cfg.Asset, freeQty, cfg.MinWithdraw))
	}
	amount := freeQty - cfg.FeeBuffer
	return Decision{
		Action: ActionWithdraw,
		Amount: amount,
		Reason: fmt.Sprintf("vault: sweeping %.4f %s to self-custody", amount, cfg.Asset),
	}
}
