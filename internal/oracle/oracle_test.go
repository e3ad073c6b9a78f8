package oracle

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lulabot/lula/internal/features"
	"github.com/lulabot/lula/internal/market"
)

type fakeBackend struct {
	score     float32
	err       error
	runs      int
	lastInput []float32
	destroyed int
}

func (f *fakeBackend) Run(input []float32) (float32, error) {
	f.runs++
	f.lastInput = input
	return f.score, f.err
}

func (f *fakeBackend) Destroy() { f.destroyed++ }

func testScaler() *Scaler {
	n := len(features.FeatureNames())
	s := &Scaler{
		DataMin:  make([]float64, n),
		DataMax:  make([]float64, n),
		RangeMin: 0,
		RangeMax: 1,
	}
	for i := range s.DataMax {
		s.DataMin[i] = -1e6
		s.DataMax[i] = 1e6
	}
	return s
}

func testBars(n int) market.Bars {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := make(market.Bars, n)
	for i := 0; i < n; i++ {
		c := 150 + 12*math.Sin(float64(i)/3) + float64(i)*0.05
		bars[i] = market.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c - 0.5,
			High:      c + 2,
			Low:       c - 2,
			Close:     c,
			Volume:    80 + 15*math.Cos(float64(i)/4),
		}
	}
	return bars
}

func TestPredictScoresLatestBar(t *testing.T) {
	be := &fakeBackend{score: 0.73}
	o := newWith(testScaler(), be, 0)

	bars := testBars(60)
	sig, err := o.Predict(bars, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.73, sig.Score, 1e-6)
	assert.Equal(t, bars[len(bars)-1].Close, sig.Price)
	assert.True(t, sig.MacroFallback)
	assert.Len(t, be.lastInput, len(features.FeatureNames()))
	assert.Equal(t, 1, be.runs)
}

func TestPredictClampsScore(t *testing.T) {
	for _, tc := range []struct {
		raw  float32
		want float64
	}{
		{raw: 1.4, want: 1},
		{raw: -0.2, want: 0},
		{raw: 0.5, want: 0.5},
	} {
		o := newWith(testScaler(), &fakeBackend{score: tc.raw}, 0)
		sig, err := o.Predict(testBars(60), nil)
		require.NoError(t, err)
		assert.InDelta(t, tc.want, sig.Score, 1e-6)
	}
}

func TestPredictSequenceModeFlattensWindow(t *testing.T) {
	be := &fakeBackend{score: 0.4}
	o := newWith(testScaler(), be, features.SequenceWindow)

	_, err := o.Predict(testBars(80), nil)
	require.NoError(t, err)
	assert.Len(t, be.lastInput, features.SequenceWindow*len(features.FeatureNames()))
}

func TestPredictInsufficientHistory(t *testing.T) {
	o := newWith(testScaler(), &fakeBackend{}, 0)

	_, err := o.Predict(testBars(features.MinHistory-1), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, features.ErrInsufficientData))
}

func TestPredictInferenceFailureSurfaces(t *testing.T) {
	o := newWith(testScaler(), &fakeBackend{err: errors.New("session lost")}, 0)

	_, err := o.Predict(testBars(60), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle inference")
}

func TestCloseIsIdempotent(t *testing.T) {
	be := &fakeBackend{}
	o := newWith(testScaler(), be, 0)

	o.Close()
	o.Close()
	assert.Equal(t, 1, be.destroyed)
}

func TestCloseWithoutBackend(t *testing.T) {
	o := newWith(testScaler(), nil, 0)
	assert.NotPanics(t, o.Close)
}
