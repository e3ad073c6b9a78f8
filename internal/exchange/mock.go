package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lulabot/lula/internal/market"
)

// MockClient is a scriptable in-memory exchange for deterministic tests
// and dry runs. Every fetch can be primed with data or a failure.
type MockClient struct {
	mu sync.Mutex

	Name     string
	Bars     map[string]market.Bars
	Books    map[string]market.OrderBook
	Trades   map[string][]market.Trade
	Balances Balances
	Markets  map[string]bool

	// Fail primes an error per call name: "ohlcv", "balance", "orderbook",
	// "trades", "order", "withdraw".
	Fail map[string]error

	Orders      []OrderReceipt
	Withdrawals []WithdrawalReceipt

	closed bool
}

// NewMockClient returns an empty mock; prime fields before use.
func NewMockClient() *MockClient {
	return &MockClient{
		Name:     "mock",
		Bars:     map[string]market.Bars{},
		Books:    map[string]market.OrderBook{},
		Trades:   map[string][]market.Trade{},
		Balances: Balances{},
		Markets:  map[string]bool{},
		Fail:     map[string]error{},
	}
}

func (m *MockClient) ID() string {
	if m.Name == "" {
		return "mock"
	}
	return m.Name
}

func (m *MockClient) HasMarket(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Markets) == 0 {
		// unprimed mocks trade everything they have bars for
		_, ok := m.Bars[symbol]
		return ok
	}
	return m.Markets[symbol]
}

func (m *MockClient) FetchOHLCV(_ context.Context, symbol, _ string, limit int) (market.Bars, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["ohlcv"]; err != nil {
		return nil, err
	}
	bars, ok := m.Bars[symbol]
	if !ok {
		return nil, NewBadSymbolError(symbol, "no bars primed")
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

func (m *MockClient) FetchBalance(_ context.Context) (Balances, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["balance"]; err != nil {
		return nil, err
	}
	out := make(Balances, len(m.Balances))
	for k, v := range m.Balances {
		out[k] = v
	}
	return out, nil
}

func (m *MockClient) FetchOrderBook(_ context.Context, symbol string, _ int) (market.OrderBook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["orderbook"]; err != nil {
		return market.OrderBook{}, err
	}
	book, ok := m.Books[symbol]
	if !ok {
		return market.OrderBook{}, NewBadSymbolError(symbol, "no book primed")
	}
	return book, nil
}

func (m *MockClient) FetchRecentTrades(_ context.Context, symbol string, limit int) ([]market.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["trades"]; err != nil {
		return nil, err
	}
	trades := m.Trades[symbol]
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	return trades, nil
}

func (m *MockClient) PlaceMarketOrder(_ context.Context, symbol, side string, amount float64) (OrderReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["order"]; err != nil {
		return OrderReceipt{}, err
	}
	if amount <= 0 {
		return OrderReceipt{}, NewExchangeError(symbol, fmt.Sprintf("invalid amount %.8f", amount), nil)
	}
	rcpt := OrderReceipt{
		ID:        fmt.Sprintf("mock-order-%d", len(m.Orders)+1),
		Symbol:    symbol,
		Side:      side,
		Amount:    amount,
		Timestamp: time.Now().UTC(),
	}
	m.Orders = append(m.Orders, rcpt)
	return rcpt, nil
}

func (m *MockClient) Withdraw(_ context.Context, asset string, amount float64, address, network string) (WithdrawalReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["withdraw"]; err != nil {
		return WithdrawalReceipt{}, err
	}
	rcpt := WithdrawalReceipt{
		ID:      fmt.Sprintf("mock-wd-%d", len(m.Withdrawals)+1),
		Asset:   asset,
		Amount:  amount,
		Address: address,
		Network: network,
	}
	m.Withdrawals = append(m.Withdrawals, rcpt)
	return rcpt, nil
}

func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
