package cof_ann

import (
	"strings"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// Scaler kinds.
const (
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
)

// Scaler is a per-feature affine transform fitted at training time.
//
//	standard: t = (x - mean) / scale,  x = t*scale + mean
//	minmax:   t = x*scale + min,       x = (t - min) / scale
type Scaler struct {
	Kind   string
	offset []float64
	scale  []float64
}

// NewScaler builds a scaler of the given kind. Zero scales are replaced by 1,
// matching how constant features are handled at fit time.
func NewScaler(kind string, offset, scale []float64) (*Scaler, error) {
	kind = strings.ToLower(kind)
	if kind != ScalerStandard && kind != ScalerMinMax {
		return nil, errors.Newf(errors.ErrCodeModelUnsupported, "unsupported scaler kind %q", kind)
	}
	if len(offset) == 0 || len(offset) != len(scale) {
		return nil, errors.Newf(errors.ErrCodeModelSchemaMismatch,
			"scaler offset has %d values, scale has %d", len(offset), len(scale))
	}
	s := &Scaler{Kind: kind, offset: append([]float64(nil), offset...), scale: append([]float64(nil), scale...)}
	for i, v := range s.scale {
		if v == 0 {
			s.scale[i] = 1
		}
	}
	return s, nil
}

// Width is the number of features the scaler was fitted on.
func (s *Scaler) Width() int { return len(s.scale) }

// Transform maps raw features into the network's input space.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != s.Width() {
		return nil, errors.SchemaMismatch(s.Width(), len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		if s.Kind == ScalerStandard {
			out[i] = (v - s.offset[i]) / s.scale[i]
		} else {
			out[i] = v*s.scale[i] + s.offset[i]
		}
	}
	return out, nil
}

// Inverse maps scaled values back to raw units.
func (s *Scaler) Inverse(t []float64) ([]float64, error) {
	if len(t) != s.Width() {
		return nil, errors.SchemaMismatch(s.Width(), len(t))
	}
	out := make([]float64, len(t))
	for i, v := range t {
		if s.Kind == ScalerStandard {
			out[i] = v*s.scale[i] + s.offset[i]
		} else {
			out[i] = (v - s.offset[i]) / s.scale[i]
		}
	}
	return out, nil
}
