package market

import (
	"fmt"
	"time"
)

// Bar is one OHLCV candle on a fixed interval. Bars are immutable once
// fetched within a cycle.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Bars is a time-ascending candle sequence.
type Bars []Bar

// Closes extracts the close column.
func (bs Bars) Closes() []float64 {
	out := make([]float64, len(bs))
	for i, b := range bs {
		out[i] = b.Close
	}
	return out
}

// Last returns the most recent bar; ok is false on an empty sequence.
func (bs Bars) Last() (Bar, bool) {
	if len(bs) == 0 {
		return Bar{}, false
	}
	return bs[len(bs)-1], true
}

// ValidateBars performs fail-closed validation before any indicator math
// runs: reject empty sequences, non-positive prices, inverted high/low and
// out-of-order timestamps rather than letting them poison a feature vector.
func ValidateBars(bs Bars) error {
	if len(bs) == 0 {
		return fmt.Errorf("empty bar sequence")
	}
	for i, b := range bs {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("bar %d: non-positive price: open=%.8f high=%.8f low=%.8f close=%.8f",
				i, b.Open, b.High, b.Low, b.Close)
		}
		if b.High < b.Low {
			return fmt.Errorf("bar %d: high(%.8f) < low(%.8f)", i, b.High, b.Low)
		}
		if b.Volume < 0 {
			return fmt.Errorf("bar %d: negative volume: %.8f", i, b.Volume)
		}
		if i > 0 && !bs[i-1].Timestamp.Before(b.Timestamp) {
			return fmt.Errorf("bar %d: timestamp %v not after previous %v",
				i, b.Timestamp, bs[i-1].Timestamp)
		}
	}
	return nil
}
