package exchange

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/lulabot/lula/internal/market"
	"github.com/lulabot/lula/internal/observ"
)

// RetryConfig bounds how hard we lean on a flaky exchange before treating
// its data as unavailable for the cycle.
type RetryConfig struct {
	MaxAttempts  int
	AttemptDelay time.Duration
	RatePerSec   float64
}

// DefaultRetryConfig mirrors the original agent: 3 attempts, 5s apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, AttemptDelay: 5 * time.Second, RatePerSec: 1}
}

// Retrier wraps a Client with a rate limiter and bounded retries on reads.
// Order placement and withdrawals are deliberately NOT retried: a timeout
// after submission is indistinguishable from success, and resubmitting
// could double-execute.
type Retrier struct {
	inner   Client
	cfg     RetryConfig
	limiter *rate.Limiter
	sleep   func(time.Duration) // overridable in tests
}

// WithRetries wraps client with the retry policy.
func WithRetries(client Client, cfg RetryConfig) *Retrier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	return &Retrier{
		inner:   client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		sleep:   time.Sleep,
	}
}

func (r *Retrier) ID() string                   { return r.inner.ID() }
func (r *Retrier) HasMarket(symbol string) bool { return r.inner.HasMarket(symbol) }
func (r *Retrier) Close() error                 { return r.inner.Close() }

func retryRead[T any](r *Retrier, ctx context.Context, what, symbol string, call func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return zero, err
		}
		v, err := call()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !IsUnavailable(err) {
			return zero, err
		}
		observ.IncCounter("exchange_retry_total", map[string]string{
			"exchange": r.inner.ID(), "call": what,
		})
		observ.Log("exchange_retry", map[string]any{
			"exchange": r.inner.ID(), "call": what, "symbol": symbol,
			"attempt": attempt, "max": r.cfg.MaxAttempts, "error": err.Error(),
		})
		if attempt < r.cfg.MaxAttempts {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			default:
				r.sleep(r.cfg.AttemptDelay)
			}
		}
	}
	return zero, lastErr
}

func (r *Retrier) FetchOHLCV(ctx context.Context, symbol, interval string, limit int) (market.Bars, error) {
	return retryRead(r, ctx, "ohlcv", symbol, func() (market.Bars, error) {
		return r.inner.FetchOHLCV(ctx, symbol, interval, limit)
	})
}

// FetchBalance also canonicalizes asset codes so alias keys never leak
// past this boundary.
func (r *Retrier) FetchBalance(ctx context.Context) (Balances, error) {
	bal, err := retryRead(r, ctx, "balance", "", func() (Balances, error) {
		return r.inner.FetchBalance(ctx)
	})
	if err != nil {
		return nil, err
	}
	return CanonicalizeBalances(bal), nil
}

func (r *Retrier) FetchOrderBook(ctx context.Context, symbol string, depth int) (market.OrderBook, error) {
	return retryRead(r, ctx, "orderbook", symbol, func() (market.OrderBook, error) {
		return r.inner.FetchOrderBook(ctx, symbol, depth)
	})
}

func (r *Retrier) FetchRecentTrades(ctx context.Context, symbol string, limit int) ([]market.Trade, error) {
	return retryRead(r, ctx, "trades", symbol, func() ([]market.Trade, error) {
		return r.inner.FetchRecentTrades(ctx, symbol, limit)
	})
}

func (r *Retrier) PlaceMarketOrder(ctx context.Context, symbol, side string, amount float64) (OrderReceipt, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return OrderReceipt{}, err
	}
	return r.inner.PlaceMarketOrder(ctx, symbol, side, amount)
}

func (r *Retrier) Withdraw(ctx context.Context, asset string, amount float64, address, network string) (WithdrawalReceipt, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return WithdrawalReceipt{}, err
	}
	return r.inner.Withdraw(ctx, asset, amount, address, network)
}
