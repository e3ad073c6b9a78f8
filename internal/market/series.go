package market

import (
	"fmt"
	"time"
)

// Point is one observation in an auxiliary time series.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Series is a time-ascending auxiliary series (equity index close,
// volatility index level, currency index level).
type Series []Point

// Last returns the most recent value; ok is false on an empty series.
func (s Series) Last() (float64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1].Value, true
}

// AlignTo maps the series onto the bar timeline using last-known-value
// carry-forward, then backward fill for any leading gap. Aux markets do not
// trade around the clock, so most hourly bars land between observations.
func (s Series) AlignTo(bars Bars) ([]float64, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("empty series")
	}
	out := make([]float64, len(bars))
	j := -1 // index of last series point at or before the current bar
	for i, b := range bars {
		for j+1 < len(s) && !s[j+1].Timestamp.After(b.Timestamp) {
			j++
		}
		if j >= 0 {
			out[i] = s[j].Value
		} else {
			// leading gap, backward fill from the first observation
			out[i] = s[0].Value
		}
	}
	return out, nil
}
