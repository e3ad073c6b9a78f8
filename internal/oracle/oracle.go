package oracle

import (
	"fmt"
	"sync"

	"github.com/lulabot/lula/internal/features"
	"github.com/lulabot/lula/internal/market"
	"github.com/lulabot/lula/internal/observ"
)

// Signal is one scored snapshot: the model's directional score plus the
// raw diagnostic indicators the allocation policies check themselves.
type Signal struct {
	Score         float64 // [0, 1]
	RSI           float64
	Price         float64
	RelVolume     float64
	MacroFallback bool
}

// Config selects the model artifacts and input mode.
type Config struct {
	ModelPath      string `yaml:"model_path"`
	ScalerPath     string `yaml:"scaler_path"`
	RuntimeLibPath string `yaml:"runtime_lib_path"`
	// SequenceWindow > 0 feeds a trailing window of rows to a recurrent
	// model; 0 feeds only the latest row.
	SequenceWindow int `yaml:"sequence_window"`
}

type backend interface {
	Run(input []float32) (float32, error)
	Destroy()
}

// Oracle owns the inference binding for the whole process. It is bound
// exactly once at startup and released exactly once at shutdown.
type Oracle struct {
	scaler    *Scaler
	backend   backend
	builder   *features.Builder
	seqWindow int

	closeOnce sync.Once
}

// New loads the scaler and model artifacts and binds the inference
// runtime. Any failure here is fatal to startup; nothing is retried.
func New(cfg Config) (*Oracle, error) {
	scaler, err := LoadScaler(cfg.ScalerPath)
	if err != nil {
		return nil, err
	}
	shape := []int64{1, int64(scaler.Dim())}
	if cfg.SequenceWindow > 0 {
		shape = []int64{1, int64(cfg.SequenceWindow), int64(scaler.Dim())}
	}
	be, err := newONNXBackend(cfg.ModelPath, cfg.RuntimeLibPath, shape)
	if err != nil {
		return nil, err
	}
	observ.Log("oracle_loaded", map[string]any{
		"model":           cfg.ModelPath,
		"scaler":          cfg.ScalerPath,
		"features":        scaler.Dim(),
		"sequence_window": cfg.SequenceWindow,
	})
	return newWith(scaler, be, cfg.SequenceWindow), nil
}

// newWith wires an oracle from parts; tests inject a fake backend here.
func newWith(scaler *Scaler, be backend, seqWindow int) *Oracle {
	return &Oracle{
		scaler:    scaler,
		backend:   be,
		builder:   features.NewBuilder(),
		seqWindow: seqWindow,
	}
}

// Predict builds features for the latest bar, normalizes them and runs
// inference. Insufficient history comes back as a wrapped
// features.ErrInsufficientData, never a panic past the cycle boundary.
func (o *Oracle) Predict(bars market.Bars, macro market.Series) (Signal, error) {
	var input []float32
	var last features.Vector

	if o.seqWindow > 0 {
		rows, err := o.builder.BuildSequence(bars, macro, o.seqWindow)
		if err != nil {
			return Signal{}, err
		}
		input = make([]float32, 0, len(rows)*o.scaler.Dim())
		for _, row := range rows {
			scaled, err := o.scaler.Transform(row.Values())
			if err != nil {
				return Signal{}, err
			}
			input = append(input, scaled...)
		}
		last = rows[len(rows)-1]
	} else {
		row, err := o.builder.Build(bars, macro)
		if err != nil {
			return Signal{}, err
		}
		scaled, err := o.scaler.Transform(row.Values())
		if err != nil {
			return Signal{}, err
		}
		input = scaled
		last = row
	}

	raw, err := o.backend.Run(input)
	if err != nil {
		return Signal{}, fmt.Errorf("oracle inference: %w", err)
	}
	score := float64(raw)
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	return Signal{
		Score:         score,
		RSI:           last.RSI,
		Price:         last.Close,
		RelVolume:     last.RelVolume,
		MacroFallback: last.MacroFallback,
	}, nil
}

// Close releases the inference binding. Safe to call more than once and
// safe after a failed startup: only a bound backend is destroyed.
func (o *Oracle) Close() {
	o.closeOnce.Do(func() {
		if o.backend != nil {
			o.backend.Destroy()
		}
		observ.Log("oracle_released", nil)
	})
}
