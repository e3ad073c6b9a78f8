package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideBridge(t *testing.T) {
	cfg := DefaultBridgeConfig()
	cfg.DepositAddress = "TRefugeDepositAddr"

	tests := []struct {
		name    string
		balance float64
		action  Action
		amount  float64
	}{
		{name: "surplus above reserve moves", balance: 200, action: ActionTransfer, amount: 99},
		{name: "exactly at reserve stays", balance: 100, action: ActionNone},
		{name: "below reserve never goes negative", balance: 40, action: ActionNone},
		{name: "dust surplus stays", balance: 120, action: ActionNone},
		{name: "zero balance", balance: 0, action: ActionNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := DecideBridge(cfg, tc.balance)
			assert.Equal(t, tc.action, d.Action)
			if tc.action == ActionTransfer {
				assert.InDelta(t, tc.amount, d.Amount, 1e-9)
				// the reserve is untouchable
				assert.LessOrEqual(t, d.Amount, tc.balance-cfg.ReserveUSD)
			}
		})
	}
}

func TestDecideBridgeWithoutAddress(t *testing.T) {
	d := DecideBridge(DefaultBridgeConfig(), 10_000)
	assert.Equal(t, ActionNone, d.Action)
	assert.Contains(t, d.Reason, "no deposit address")
}

func TestDecideColdStorage(t *testing.T) {
	cfg := DefaultColdStorageConfig()
	cfg.Address = "4AdUndXHHZ6cfufTMvppY6JwXNouMBzSkbLYfpAV5Usx3skxNgYeYTRJ5AmD5H3F"

	tests := []struct {
		name   string
		free   float64
		action Action
		amount float64
	}{
		{name: "above minimum sweeps minus fee buffer", free: 0.8, action: ActionWithdraw, amount: 0.799},
		{name: "at minimum keeps accumulating", free: 0.5, action: ActionNone},
		{name: "below minimum keeps accumulating", free: 0.2, action: ActionNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := DecideColdStorage(cfg, tc.free)
			assert.Equal(t, tc.action, d.Action)
			if tc.action == ActionWithdraw {
				assert.InDelta(t, tc.amount, d.Amount, 1e-9)
			}
		})
	}
}

func TestDecideColdStorageWithoutAddress(t *testing.T) {
	d := DecideColdStorage(DefaultColdStorageConfig(), 5)
	assert.Equal(t, ActionNone, d.Action)
	assert.Contains(t, d.Reason, "no self-custody address")
}
