package cof_ann

import (
	"math"
	"strings"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// Activation is an element-wise layer nonlinearity.
type Activation func(float64) float64

const (
	seluAlpha = 1.6732632423543772
	seluScale = 1.0507009873554805
	// defaultLeakyAlpha is the Keras LeakyReLU default.
	defaultLeakyAlpha = 0.3
)

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func softplus(x float64) float64 {
	if x > 30 {
		return x
	}
	return math.Log1p(math.Exp(x))
}

// ActivationNames lists the supported activation names.
var ActivationNames = []string{"linear", "relu", "sigmoid", "tanh", "elu", "selu", "leaky_relu", "softplus", "swish"}

func lookupActivation(name string, alpha float64) (Activation, error) {
	switch strings.ToLower(name) {
	case "", "linear", "identity":
		return func(x float64) float64 { return x }, nil
	case "relu":
		return func(x float64) float64 { return math.Max(0, x) }, nil
	case "sigmoid":
		return sigmoid, nil
	case "tanh":
		return math.Tanh, nil
	case "elu":
		if alpha == 0 {
			alpha = 1
		}
		return func(x float64) float64 {
			if x > 0 {
				return x
			}
			return alpha * math.Expm1(x)
		}, nil
	case "selu":
		return func(x float64) float64 {
			if x > 0 {
				return seluScale * x
			}
			return seluScale * seluAlpha * math.Expm1(x)
		}, nil
	case "leaky_relu", "leakyrelu":
		if alpha == 0 {
			alpha = defaultLeakyAlpha
		}
		return func(x float64) float64 {
			if x > 0 {
				return x
			}
			return alpha * x
		}, nil
	case "softplus":
		return softplus, nil
	case "swish", "silu":
		return func(x float64) float64 { return x * sigmoid(x) }, nil
	}
	return nil, errors.Newf(errors.ErrCodeModelUnsupported, "unsupported activation %q", name)
}
