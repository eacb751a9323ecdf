package cof_ann

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

func TestActivations(t *testing.T) {
	tests := []struct {
		name  string
		alpha float64
		in    float64
		want  float64
	}{
		{"linear", 0, -3, -3},
		{"", 0, 2, 2},
		{"relu", 0, -1, 0},
		{"ReLU", 0, 2.5, 2.5},
		{"sigmoid", 0, 0, 0.5},
		{"tanh", 0, 0, 0},
		{"elu", 0, -1, math.Expm1(-1)},
		{"elu", 0.5, -1, 0.5 * math.Expm1(-1)},
		{"selu", 0, 1, seluScale},
		{"leaky_relu", 0, -2, -0.6},
		{"leaky_relu", 0.01, -2, -0.02},
		{"softplus", 0, 0, math.Ln2},
		{"softplus", 0, 100, 100},
		{"swish", 0, 0, 0},
		{"silu", 0, 1, 1 / (1 + math.Exp(-1))},
	}
	for _, tt := range tests {
		act, err := lookupActivation(tt.name, tt.alpha)
		require.NoError(t, err, tt.name)
		assert.InDelta(t, tt.want, act(tt.in), 1e-12, "%s(%v)", tt.name, tt.in)
	}
}

func TestSigmoidIsStableForLargeInputs(t *testing.T) {
	assert.Equal(t, 0.0, sigmoid(-1000))
	assert.Equal(t, 1.0, sigmoid(1000))
	assert.False(t, math.IsNaN(sigmoid(-800)))
}

func TestActivationNamesAreSupported(t *testing.T) {
	for _, name := range ActivationNames {
		_, err := lookupActivation(name, 0)
		assert.NoError(t, err, name)
	}
	_, err := lookupActivation("gelu", 0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelUnsupported))
}
