package features

import (
	"math"

	"github.com/lulabot/lula/internal/market"
)

// Indicator columns are computed full-length with NaN during the warmup
// period, matching the training-time preprocessing. The builder rejects
// any target row that still contains NaN.

// SMA returns the simple moving average with window n.
func SMA(values []float64, n int) []float64 {
	out := nanSlice(len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA returns the exponential moving average with window n, seeded with
// the SMA of the first n values.
func EMA(values []float64, n int) []float64 {
	out := nanSlice(len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	var seed float64
	for i := 0; i < n; i++ {
		seed += values[i]
	}
	seed /= float64(n)
	out[n-1] = seed
	alpha := 2.0 / (float64(n) + 1.0)
	for i := n; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI returns the Wilder relative strength index with lookback n.
func RSI(closes []float64, n int) []float64 {
	out := nanSlice(len(closes))
	if n <= 0 || len(closes) < n+1 {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(n)
	avgLoss /= float64(n)
	out[n] = rsiValue(avgGain, avgLoss)
	for i := n + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(n-1) + gain) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + loss) / float64(n)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ATR returns the Wilder-smoothed average true range with lookback n.
func ATR(bars market.Bars, n int) []float64 {
	out := nanSlice(len(bars))
	if n <= 0 || len(bars) < n+1 {
		return out
	}
	tr := make([]float64, len(bars))
	tr[0] = bars[0].High - bars[0].Low
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	var seed float64
	for i := 1; i <= n; i++ {
		seed += tr[i]
	}
	out[n] = seed / float64(n)
	for i := n + 1; i < len(bars); i++ {
		out[i] = (out[i-1]*float64(n-1) + tr[i]) / float64(n)
	}
	return out
}

// OBV returns the cumulative on-balance volume.
func OBV(bars market.Bars) []float64 {
	out := make([]float64, len(bars))
	if len(bars) == 0 {
		return out
	}
	for i := 1; i < len(bars); i++ {
		switch {
		case bars[i].Close > bars[i-1].Close:
			out[i] = out[i-1] + bars[i].Volume
		case bars[i].Close < bars[i-1].Close:
			out[i] = out[i-1] - bars[i].Volume
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// MFI returns the money flow index with lookback n.
func MFI(bars market.Bars, n int) []float64 {
	out := nanSlice(len(bars))
	if n <= 0 || len(bars) < n+1 {
		return out
	}
	pos := make([]float64, len(bars))
	neg := make([]float64, len(bars))
	prevTP := (bars[0].High + bars[0].Low + bars[0].Close) / 3
	for i := 1; i < len(bars); i++ {
		tp := (bars[i].High + bars[i].Low + bars[i].Close) / 3
		flow := tp * bars[i].Volume
		if tp > prevTP {
			pos[i] = flow
		} else if tp < prevTP {
			neg[i] = flow
		}
		prevTP = tp
	}
	var posSum, negSum float64
	for i := 1; i < len(bars); i++ {
		posSum += pos[i]
		negSum += neg[i]
		if i > n {
			posSum -= pos[i-n]
			negSum -= neg[i-n]
		}
		if i >= n {
			if negSum == 0 {
				out[i] = 100
			} else {
				ratio := posSum / negSum
				out[i] = 100 - 100/(1+ratio)
			}
		}
	}
	return out
}

// RollingCorr returns the trailing Pearson correlation between a and b
// over window n. A window with zero variance on either side yields NaN.
func RollingCorr(a, b []float64, n int) []float64 {
	out := nanSlice(len(a))
	if n <= 1 || len(a) != len(b) || len(a) < n {
		return out
	}
	for i := n - 1; i < len(a); i++ {
		out[i] = pearson(a[i-n+1:i+1], b[i-n+1:i+1])
	}
	return out
}

func pearson(x, y []float64) float64 {
	nf := float64(len(x))
	var sx, sy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
	}
	mx, my := sx/nf, sy/nf
	var cov, vx, vy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}

// RelVolume returns volume divided by its rolling mean over window n.
func RelVolume(bars market.Bars, n int) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = b.Volume
	}
	sma := SMA(vols, n)
	out := nanSlice(len(bars))
	for i := range bars {
		if !math.IsNaN(sma[i]) && sma[i] > 0 {
			out[i] = vols[i] / sma[i]
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
