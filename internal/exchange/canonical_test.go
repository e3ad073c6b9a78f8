package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalAsset(t *testing.T) {
	cases := map[string]string{
		"XXMR": "XMR",
		"XMR":  "XMR",
		"XBT":  "BTC",
		"XXBT": "BTC",
		"ZUSD": "USD",
		"usdt": "USDT",
		" sol": "SOL",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalAsset(in), "input %q", in)
	}
}

func TestCanonicalizeBalancesMergesAliases(t *testing.T) {
	raw := Balances{
		"XXMR": {Free: 1.5, Total: 2.0},
		"XMR":  {Free: 0.5, Total: 0.5},
		"ZUSD": {Free: 100, Total: 100},
	}
	got := CanonicalizeBalances(raw)
	assert.Len(t, got, 2)
	assert.Equal(t, Balance{Free: 2.0, Total: 2.5}, got["XMR"])
	assert.Equal(t, Balance{Free: 100, Total: 100}, got["USD"])
}

func TestBalancesLookupUsesCanonicalKey(t *testing.T) {
	b := Balances{"XMR": {Free: 3, Total: 4}}
	assert.Equal(t, 3.0, b.Free("XXMR"))
	assert.Equal(t, 4.0, b.Total("xmr"))
	assert.Equal(t, 0.0, b.Free("BTC"))
}
