package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourly(start time.Time, closes ...float64) Bars {
	bars := make(Bars, len(closes))
	for i, c := range closes {
		bars[i] = Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c, High: c + 1, Low: c - 1, Close: c, Volume: 100,
		}
	}
	return bars
}

func TestValidateBars(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, ValidateBars(hourly(start, 10, 11, 12)))
	})

	t.Run("empty", func(t *testing.T) {
		require.Error(t, ValidateBars(nil))
	})

	t.Run("non_positive_price", func(t *testing.T) {
		bars := hourly(start, 10, 11)
		bars[1].Close = 0
		require.Error(t, ValidateBars(bars))
	})

	t.Run("inverted_high_low", func(t *testing.T) {
		bars := hourly(start, 10, 11)
		bars[0].High, bars[0].Low = bars[0].Low, bars[0].High
		require.Error(t, ValidateBars(bars))
	})

	t.Run("out_of_order_timestamps", func(t *testing.T) {
		bars := hourly(start, 10, 11)
		bars[1].Timestamp = bars[0].Timestamp
		require.Error(t, ValidateBars(bars))
	})
}

func TestSeriesAlignTo(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := hourly(start, 10, 11, 12, 13)

	t.Run("carry_forward_over_gaps", func(t *testing.T) {
		series := Series{
			{Timestamp: start, Value: 100},
			{Timestamp: start.Add(2 * time.Hour), Value: 102},
		}
		got, err := series.AlignTo(bars)
		require.NoError(t, err)
		assert.Equal(t, []float64{100, 100, 102, 102}, got)
	})

	t.Run("backward_fill_leading_gap", func(t *testing.T) {
		series := Series{{Timestamp: start.Add(3 * time.Hour), Value: 42}}
		got, err := series.AlignTo(bars)
		require.NoError(t, err)
		assert.Equal(t, []float64{42, 42, 42, 42}, got)
	})

	t.Run("empty_series_errors", func(t *testing.T) {
		_, err := Series{}.AlignTo(bars)
		require.Error(t, err)
	})
}

func TestOrderBookImbalance(t *testing.T) {
	book := OrderBook{
		Bids: []Level{{Price: 10, Size: 30}},
		Asks: []Level{{Price: 11, Size: 10}},
	}
	assert.InDelta(t, 0.5, book.Imbalance(), 1e-9)

	assert.Equal(t, 0.0, OrderBook{}.Imbalance())

	sellHeavy := OrderBook{
		Bids: []Level{{Price: 10, Size: 5}},
		Asks: []Level{{Price: 11, Size: 45}},
	}
	assert.InDelta(t, -0.8, sellHeavy.Imbalance(), 1e-9)
}

func TestOrderBookAskDepthUSD(t *testing.T) {
	book := OrderBook{Asks: []Level{{Price: 100, Size: 2}, {Price: 101, Size: 1}}}
	assert.InDelta(t, 301, book.AskDepthUSD(), 1e-9)
}
