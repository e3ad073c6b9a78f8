package guardian

import (
	"context"
	"math"

	"github.com/lulabot/lula/internal/exchange"
	"github.com/lulabot/lula/internal/features"
	"github.com/lulabot/lula/internal/macro"
	"github.com/lulabot/lula/internal/market"
	"github.com/lulabot/lula/internal/observ"
)

// LongTrendLen is the long-window moving average the trend rule compares
// against. Shorter histories leave the rule inactive.
const LongTrendLen = 200

// Book and trade snapshot depth for the liquidity rules.
const (
	bookDepth   = 20
	tradesLimit = 50
)

// Deps are the external feeds the guardian samples each cycle.
type Deps struct {
	MarketData macro.MarketData
	Sentiment  macro.Sentiment
}

// GatherContext assembles one cycle's Context for a symbol. Every feed
// failure is logged, converted into an absent field and the gathering
// continues: an auxiliary outage must never block trading by itself.
func (g *Guardian) GatherContext(ctx context.Context, deps Deps, client exchange.Client, symbol string, bars market.Bars) Context {
	out := Context{}

	if last, ok := bars.Last(); ok {
		out.Price = last.Close
		if len(bars) >= LongTrendLen {
			sma := features.SMA(bars.Closes(), LongTrendLen)
			if v := sma[len(sma)-1]; !math.IsNaN(v) {
				out.LongSMA = v
			}
		}
	}

	if deps.MarketData != nil {
		if vix, err := lastValue(ctx, deps.MarketData, macro.TickerVIX); err == nil {
			out.VIX = &vix
		} else {
			logFeedDown("vix", err)
		}
		if dxy, err := lastValue(ctx, deps.MarketData, macro.TickerDXY); err == nil {
			out.DXY = &dxy
		} else {
			logFeedDown("dxy", err)
		}
	}

	if deps.Sentiment != nil {
		if v, err := deps.Sentiment.FetchIndex(ctx); err == nil {
			out.Sentiment = &v
		} else {
			logFeedDown("sentiment", err)
		}
	}

	if client != nil {
		if book, err := client.FetchOrderBook(ctx, symbol, bookDepth); err == nil {
			imb := book.Imbalance()
			out.BookImbalance = &imb
		} else {
			logFeedDown("orderbook", err)
		}
		if trades, err := client.FetchRecentTrades(ctx, symbol, tradesLimit); err == nil {
			for _, t := range trades {
				if t.NotionalUSD() >= g.cfg.LargeTradeUSD {
					out.LargeTradeSeen = true
					break
				}
			}
		} else {
			logFeedDown("trades", err)
		}
	}

	return out
}

func lastValue(ctx context.Context, md macro.MarketData, ticker string) (float64, error) {
	series, err := md.FetchSeries(ctx, ticker, "5d", "1d")
	if err != nil {
		return 0, err
	}
	v, ok := series.Last()
	if !ok {
		return 0, macro.ErrUnavailable
	}
	return v, nil
}

func logFeedDown(feed string, err error) {
	observ.IncCounter("guardian_feed_down_total", map[string]string{"feed": feed})
	observ.Log("guardian_feed_down", map[string]any{"feed": feed, "error": err.Error()})
}
