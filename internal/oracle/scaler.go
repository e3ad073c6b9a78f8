package oracle

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lulabot/lula/internal/features"
)

// Scaler is the min-max normalization transform fitted at training time
// and persisted next to the model. It is loaded read-only and never refit.
type Scaler struct {
	FeatureNames []string  `json:"feature_names"`
	DataMin      []float64 `json:"data_min"`
	DataMax      []float64 `json:"data_max"`
	RangeMin     float64   `json:"range_min"`
	RangeMax     float64   `json:"range_max"`
}

// LoadScaler reads the scaler artifact and checks it against the feature
// contract. A malformed or mismatched artifact is a startup-fatal error:
// scoring with the wrong transform would silently mis-score every cycle.
func LoadScaler(path string) (*Scaler, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler artifact: %w", err)
	}
	var s Scaler
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scaler artifact %s: %w", path, err)
	}
	if len(s.DataMin) == 0 || len(s.DataMin) != len(s.DataMax) {
		return nil, fmt.Errorf("scaler artifact %s: bad bounds (min=%d max=%d)",
			path, len(s.DataMin), len(s.DataMax))
	}
	if s.RangeMax <= s.RangeMin {
		return nil, fmt.Errorf("scaler artifact %s: bad range [%g, %g]", path, s.RangeMin, s.RangeMax)
	}
	want := features.FeatureNames()
	if len(s.DataMin) != len(want) {
		return nil, fmt.Errorf("scaler artifact %s: %d features, builder produces %d",
			path, len(s.DataMin), len(want))
	}
	if len(s.FeatureNames) > 0 {
		for i, name := range s.FeatureNames {
			if name != want[i] {
				return nil, fmt.Errorf("scaler artifact %s: feature %d is %q, builder produces %q",
					path, i, name, want[i])
			}
		}
	}
	return &s, nil
}

// Dim returns the feature count the scaler was fitted on.
func (s *Scaler) Dim() int { return len(s.DataMin) }

// Transform maps one raw feature row into the model's input range and the
// float32 precision the runtime requires. A dimension mismatch fails
// loudly rather than silently mis-scoring.
func (s *Scaler) Transform(values []float64) ([]float32, error) {
	if len(values) != s.Dim() {
		return nil, fmt.Errorf("feature count mismatch: got %d values, scaler fitted on %d",
			len(values), s.Dim())
	}
	out := make([]float32, len(values))
	span := s.RangeMax - s.RangeMin
	for i, v := range values {
		denom := s.DataMax[i] - s.DataMin[i]
		if denom == 0 {
			out[i] = float32(s.RangeMin)
			continue
		}
		out[i] = float32(s.RangeMin + (v-s.DataMin[i])/denom*span)
	}
	return out, nil
}
