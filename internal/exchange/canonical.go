package exchange

import "strings"

// Exchanges disagree on asset codes: Kraken prefixes legacy assets with X/Z
// ("XXMR", "ZUSD") and still calls bitcoin "XBT". All balance maps are
// normalized through this single function at the account boundary so the
// policies only ever see one key per asset.
var assetAliases = map[string]string{
	"XXMR": "XMR",
	"XXBT": "BTC",
	"XBT":  "BTC",
	"XETH": "ETH",
	"ZUSD": "USD",
	"ZEUR": "EUR",
	"USDT": "USDT",
}

// CanonicalAsset maps an exchange-specific asset code to its canonical form.
func CanonicalAsset(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if canon, ok := assetAliases[c]; ok {
		return canon
	}
	return c
}

// CanonicalizeBalances rewrites all keys to canonical codes, merging
// aliases that map to the same asset.
func CanonicalizeBalances(raw Balances) Balances {
	out := make(Balances, len(raw))
	for code, bal := range raw {
		canon := CanonicalAsset(code)
		merged := out[canon]
		merged.Free += bal.Free
		merged.Total += bal.Total
		out[canon] = merged
	}
	return out
}
