package cof_ann

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

func TestScaler_Standard(t *testing.T) {
	s, err := NewScaler("standard", []float64{10, 0}, []float64{2, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Width())

	out, err := s.Transform([]float64{14, 3})
	require.NoError(t, err)
	// Zero scale is treated as 1.
	assert.Equal(t, []float64{2, 3}, out)

	back, err := s.Inverse(out)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{14, 3}, back, 1e-12)
}

func TestScaler_MinMax(t *testing.T) {
	s, err := NewScaler("MinMax", []float64{-0.5}, []float64{0.25})
	require.NoError(t, err)

	out, err := s.Transform([]float64{4})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out[0], 1e-12)

	back, err := s.Inverse([]float64{0.5})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, back[0], 1e-12)
}

func TestScaler_Errors(t *testing.T) {
	_, err := NewScaler("robust", []float64{0}, []float64{1})
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelUnsupported))

	_, err = NewScaler("standard", []float64{0, 1}, []float64{1})
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelSchemaMismatch))

	s, err := NewScaler("standard", []float64{0}, []float64{1})
	require.NoError(t, err)
	_, err = s.Transform([]float64{1, 2})
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelSchemaMismatch))
	_, err = s.Inverse(nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelSchemaMismatch))
}

func TestScaler_DoesNotAliasInput(t *testing.T) {
	scale := []float64{0}
	s, err := NewScaler("standard", []float64{0}, scale)
	require.NoError(t, err)
	assert.Equal(t, 0.0, scale[0])
	assert.Equal(t, 1.0, s.scale[0])
}
