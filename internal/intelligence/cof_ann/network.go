package cof_ann

import (
	"gonum.org/v1/gonum/mat"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// Dense is a fully connected layer: y = act(x·W + b).
type Dense struct {
	Name       string
	Kernel     *mat.Dense // in × out
	Bias       []float64
	Activation Activation
}

// In is the layer's input width.
func (d *Dense) In() int { r, _ := d.Kernel.Dims(); return r }

// Out is the layer's output width.
func (d *Dense) Out() int { _, c := d.Kernel.Dims(); return c }

// Network is a feed-forward stack of dense layers.
type Network struct {
	Layers []*Dense
}

// NewNetwork checks that consecutive layers chain and returns the network.
func NewNetwork(layers ...*Dense) (*Network, error) {
	if len(layers) == 0 {
		return nil, errors.New(errors.ErrCodeModelArtifactLoadFailed, "network has no layers")
	}
	for i, l := range layers {
		if len(l.Bias) != l.Out() {
			return nil, errors.Newf(errors.ErrCodeModelSchemaMismatch,
				"layer %s: bias length %d does not match %d kernel columns", l.Name, len(l.Bias), l.Out())
		}
		if i > 0 && layers[i-1].Out() != l.In() {
			return nil, errors.Newf(errors.ErrCodeModelSchemaMismatch,
				"layer %s: kernel has %d rows, previous layer outputs %d", l.Name, l.In(), layers[i-1].Out())
		}
	}
	return &Network{Layers: layers}, nil
}

// InputWidth is the width of the first layer.
func (n *Network) InputWidth() int { return n.Layers[0].In() }

// OutputWidth is the width of the last layer.
func (n *Network) OutputWidth() int { return n.Layers[len(n.Layers)-1].Out() }

// Forward evaluates a batch: x is rows × InputWidth.
func (n *Network) Forward(x mat.Matrix) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != n.InputWidth() {
		return nil, errors.SchemaMismatch(n.InputWidth(), cols)
	}
	cur := mat.DenseCopyOf(x)
	for _, l := range n.Layers {
		next := mat.NewDense(rows, l.Out(), nil)
		next.Mul(cur, l.Kernel)
		next.Apply(func(_, j int, v float64) float64 {
			return l.Activation(v + l.Bias[j])
		}, next)
		cur = next
	}
	return cur, nil
}

// ForwardRow evaluates a single input vector.
func (n *Network) ForwardRow(x []float64) ([]float64, error) {
	if len(x) != n.InputWidth() {
		return nil, errors.SchemaMismatch(n.InputWidth(), len(x))
	}
	out, err := n.Forward(mat.NewDense(1, len(x), append([]float64(nil), x...)))
	if err != nil {
		return nil, err
	}
	return mat.Row(nil, 0, out), nil
}
