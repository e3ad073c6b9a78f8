package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lulabot/lula/internal/market"
)

func waveBars(n int) market.Bars {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := make(market.Bars, n)
	for i := 0; i < n; i++ {
		c := 100 + 10*math.Sin(float64(i)/3) + float64(i)*0.1
		bars[i] = market.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c - 0.5,
			High:      c + 2,
			Low:       c - 2,
			Close:     c,
			Volume:    100 + 20*math.Sin(float64(i)/5),
		}
	}
	return bars
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4}, 2)
	assert.True(t, math.IsNaN(got[0]))
	assert.InDelta(t, 1.5, got[1], 1e-9)
	assert.InDelta(t, 2.5, got[2], 1e-9)
	assert.InDelta(t, 3.5, got[3], 1e-9)
}

func TestEMASeededWithSMA(t *testing.T) {
	got := EMA([]float64{1, 2, 3}, 2)
	assert.True(t, math.IsNaN(got[0]))
	assert.InDelta(t, 1.5, got[1], 1e-9)
	// alpha = 2/3: 2/3*3 + 1/3*1.5
	assert.InDelta(t, 2.5, got[2], 1e-9)
}

func TestRSIMonotonicUpIsHundred(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	got := RSI(closes, 14)
	assert.True(t, math.IsNaN(got[13]))
	assert.InDelta(t, 100, got[14], 1e-9)
	assert.InDelta(t, 100, got[29], 1e-9)
}

func TestRSIStaysInBounds(t *testing.T) {
	bars := waveBars(80)
	got := RSI(bars.Closes(), 14)
	for i := 14; i < len(got); i++ {
		require.False(t, math.IsNaN(got[i]), "rsi undefined at %d", i)
		assert.GreaterOrEqual(t, got[i], 0.0)
		assert.LessOrEqual(t, got[i], 100.0)
	}
}

func TestATRWarmupAndPositive(t *testing.T) {
	bars := waveBars(40)
	got := ATR(bars, 14)
	assert.True(t, math.IsNaN(got[13]))
	for i := 14; i < len(got); i++ {
		require.False(t, math.IsNaN(got[i]))
		assert.Greater(t, got[i], 0.0)
	}
}

func TestOBVAccumulates(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	closes := []float64{10, 11, 10.5, 10.5, 12}
	bars := make(market.Bars, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c, High: c + 1, Low: c - 1, Close: c, Volume: 100,
		}
	}
	got := OBV(bars)
	assert.Equal(t, []float64{0, 100, 0, 0, 100}, got)
}

func TestMFIStaysInBounds(t *testing.T) {
	bars := waveBars(60)
	got := MFI(bars, 14)
	for i := 14; i < len(got); i++ {
		require.False(t, math.IsNaN(got[i]))
		assert.GreaterOrEqual(t, got[i], 0.0)
		assert.LessOrEqual(t, got[i], 100.0)
	}
}

func TestRollingCorrExtremes(t *testing.T) {
	n := 30
	up := make([]float64, n)
	down := make([]float64, n)
	for i := 0; i < n; i++ {
		up[i] = float64(i)
		down[i] = float64(n - i)
	}
	same := RollingCorr(up, up, 24)
	opposite := RollingCorr(up, down, 24)
	assert.InDelta(t, 1, same[n-1], 1e-9)
	assert.InDelta(t, -1, opposite[n-1], 1e-9)
}

func TestRelVolumeConstantVolumeIsOne(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := make(market.Bars, 30)
	for i := range bars {
		bars[i] = market.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      10, High: 11, Low: 9, Close: 10, Volume: 100,
		}
	}
	got := RelVolume(bars, 20)
	assert.True(t, math.IsNaN(got[18]))
	assert.InDelta(t, 1, got[29], 1e-9)
}
