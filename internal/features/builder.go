package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/lulabot/lula/internal/market"
)

// ErrInsufficientData means the bar history is shorter than the longest
// indicator warmup. The caller gets this sentinel instead of a vector
// containing NaN entries.
var ErrInsufficientData = errors.New("insufficient bar history for feature computation")

// Indicator windows. These are a contract with the trained model and the
// persisted scaler; changing any of them invalidates both.
const (
	RSILen     = 14
	EMALen     = 20
	ATRLen     = 14
	MFILen     = 14
	VolWindow  = 20
	CorrWindow = 24

	// SequenceWindow is the trailing vector count fed to recurrent models.
	SequenceWindow = 10
)

// MinHistory is the fewest bars that leave the most recent row fully
// defined across every indicator above.
const MinHistory = CorrWindow + 1

// Vector is the fixed-order feature row for one bar. Order and count are
// shared with the scaler and the model; Values() is the single source of
// that order.
type Vector struct {
	RSI       float64
	EMA20     float64
	ATR       float64
	OBV       float64
	MFI       float64
	RelVolume float64
	Close     float64
	Macro     float64
	MacroCorr float64

	// MacroFallback is true when the macro series was unavailable and the
	// bar's own close stood in for it. Production treats both the same;
	// tests need to tell them apart.
	MacroFallback bool
}

// FeatureNames lists the canonical feature order.
func FeatureNames() []string {
	return []string{"rsi", "ema20", "atr", "obv", "mfi", "rvol", "close", "macro_close", "macro_corr"}
}

// Values returns the vector in canonical order.
func (v Vector) Values() []float64 {
	return []float64{v.RSI, v.EMA20, v.ATR, v.OBV, v.MFI, v.RelVolume, v.Close, v.Macro, v.MacroCorr}
}

// Builder turns raw bars plus an optional macro series into model input.
type Builder struct{}

// NewBuilder returns a feature builder with the canonical configuration.
func NewBuilder() *Builder { return &Builder{} }

type columns struct {
	rsi, ema20, atr, obv, mfi, rvol, closes, macro, corr []float64
	fallback                                             bool
}

func (b *Builder) compute(bars market.Bars, macro market.Series) (*columns, error) {
	if err := market.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("invalid bars: %w", err)
	}
	if len(bars) < MinHistory {
		return nil, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientData, len(bars), MinHistory)
	}

	closes := bars.Closes()

	var macroCol []float64
	fallback := false
	if len(macro) > 0 {
		aligned, err := macro.AlignTo(bars)
		if err != nil {
			return nil, fmt.Errorf("align macro series: %w", err)
		}
		macroCol = aligned
	} else {
		// No macro data this cycle: the bar's own close substitutes so the
		// vector keeps its shape. Correlation then degenerates to 1.
		macroCol = closes
		fallback = true
	}

	return &columns{
		rsi:      RSI(closes, RSILen),
		ema20:    EMA(closes, EMALen),
		atr:      ATR(bars, ATRLen),
		obv:      OBV(bars),
		mfi:      MFI(bars, MFILen),
		rvol:     RelVolume(bars, VolWindow),
		closes:   closes,
		macro:    macroCol,
		corr:     RollingCorr(closes, macroCol, CorrWindow),
		fallback: fallback,
	}, nil
}

func (c *columns) row(i int) (Vector, error) {
	v := Vector{
		RSI:           c.rsi[i],
		EMA20:         c.ema20[i],
		ATR:           c.atr[i],
		OBV:           c.obv[i],
		MFI:           c.mfi[i],
		RelVolume:     c.rvol[i],
		Close:         c.closes[i],
		Macro:         c.macro[i],
		MacroCorr:     c.corr[i],
		MacroFallback: c.fallback,
	}
	if c.fallback && math.IsNaN(v.MacroCorr) {
		// close correlated with itself over a constant-variance window
		v.MacroCorr = 1
	}
	for _, f := range v.Values() {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Vector{}, fmt.Errorf("%w: undefined feature at row %d", ErrInsufficientData, i)
		}
	}
	return v, nil
}

// Build computes the feature vector for the most recent bar.
func (b *Builder) Build(bars market.Bars, macro market.Series) (Vector, error) {
	cols, err := b.compute(bars, macro)
	if err != nil {
		return Vector{}, err
	}
	return cols.row(len(bars) - 1)
}

// BuildSequence computes the trailing window of feature vectors for
// recurrent models, oldest first.
func (b *Builder) BuildSequence(bars market.Bars, macro market.Series, window int) ([]Vector, error) {
	if window <= 0 {
		window = SequenceWindow
	}
	cols, err := b.compute(bars, macro)
	if err != nil {
		return nil, err
	}
	if len(bars) < MinHistory+window-1 {
		return nil, fmt.Errorf("%w: have %d bars, need %d for window %d",
			ErrInsufficientData, len(bars), MinHistory+window-1, window)
	}
	out := make([]Vector, 0, window)
	for i := len(bars) - window; i < len(bars); i++ {
		v, err := cols.row(i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
