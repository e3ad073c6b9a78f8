package macro

import (
	"context"

	"github.com/lulabot/lula/internal/market"
)

// MockMarketData serves primed series per ticker, or a primed error.
type MockMarketData struct {
	Series map[string]market.Series
	Err    error
}

func (m *MockMarketData) FetchSeries(_ context.Context, ticker, _, _ string) (market.Series, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.Series[ticker]
	if !ok {
		return nil, ErrUnavailable
	}
	return s, nil
}

// MockSentiment serves a fixed index value, or a primed error.
type MockSentiment struct {
	Value int
	Err   error
}

func (m *MockSentiment) FetchIndex(context.Context) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Value, nil
}
