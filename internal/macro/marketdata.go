package macro

import (
	"context"
	"errors"

	"github.com/lulabot/lula/internal/market"
)

// ErrUnavailable means an auxiliary data source could not be reached this
// cycle. Callers skip the dependent rule or feature; they never treat it
// as a zero or neutral reading.
var ErrUnavailable = errors.New("macro data unavailable")

// Well-known tickers for the macro context.
const (
	TickerSP500 = "^GSPC"
	TickerVIX   = "^VIX"
	TickerDXY   = "DX-Y.NYB"
)

// MarketData fetches auxiliary market series (equity index, volatility
// index, currency-strength index) from an external provider.
type MarketData interface {
	FetchSeries(ctx context.Context, ticker, period, interval string) (market.Series, error)
}

// Sentiment fetches the crowd fear/greed index, 0 (extreme fear) to 100
// (extreme greed).
type Sentiment interface {
	FetchIndex(ctx context.Context) (int, error)
}
