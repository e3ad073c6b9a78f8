package exchange

import (
	"context"
	"time"

	"github.com/lulabot/lula/internal/market"
)

// Order sides.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Balance is a per-asset holding on one account.
type Balance struct {
	Free  float64 `json:"free"`
	Total float64 `json:"total"`
}

// Balances maps canonical asset code to holding. Keys are always canonical
// (see CanonicalAsset); policy code never sees exchange-specific aliases.
type Balances map[string]Balance

// Free returns the free amount for an asset, zero when absent.
func (b Balances) Free(asset string) float64 { return b[CanonicalAsset(asset)].Free }

// Total returns the total amount for an asset, zero when absent.
func (b Balances) Total(asset string) float64 { return b[CanonicalAsset(asset)].Total }

// OrderReceipt is the exchange acknowledgement of a market order.
type OrderReceipt struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// WithdrawalReceipt is the exchange acknowledgement of an on-chain withdrawal.
type WithdrawalReceipt struct {
	ID      string  `json:"id"`
	Asset   string  `json:"asset"`
	Amount  float64 `json:"amount"`
	Address string  `json:"address"`
	Network string  `json:"network"`
}

// Client is the exchange collaborator boundary. Implementations wrap vendor
// SDKs; the core only depends on this interface so tests inject
// deterministic fakes without network access.
type Client interface {
	ID() string
	HasMarket(symbol string) bool
	FetchOHLCV(ctx context.Context, symbol, interval string, limit int) (market.Bars, error)
	FetchBalance(ctx context.Context) (Balances, error)
	FetchOrderBook(ctx context.Context, symbol string, depth int) (market.OrderBook, error)
	FetchRecentTrades(ctx context.Context, symbol string, limit int) ([]market.Trade, error)
	PlaceMarketOrder(ctx context.Context, symbol, side string, amount float64) (OrderReceipt, error)
	Withdraw(ctx context.Context, asset string, amount float64, address, network string) (WithdrawalReceipt, error)
	Close() error
}

// DualAccount holds the two process-wide exchange sessions: Gen runs the
// speculative generator strategy, Safe accumulates the target asset.
type DualAccount struct {
	Gen  Client
	Safe Client
}

// Close releases both sessions, returning the first error.
func (d *DualAccount) Close() error {
	var first error
	if d.Gen != nil {
		if err := d.Gen.Close(); err != nil {
			first = err
		}
	}
	if d.Safe != nil {
		if err := d.Safe.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
