package cof_ann

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/frame"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// Prediction is the model output for one input row.
type Prediction struct {
	Values  []float64 `json:"values"`
	Unit    string    `json:"unit"`
	Model   string    `json:"model"`
	Version string    `json:"version"`
}

// Value is the first target, the H2 evolution rate for the shipped model.
func (p Prediction) Value() float64 {
	if len(p.Values) == 0 {
		return math.NaN()
	}
	return p.Values[0]
}

// Predictor evaluates input tables against the store's current bundle.
type Predictor struct {
	store *ArtifactStore
}

// NewPredictor returns a predictor backed by store.
func NewPredictor(store *ArtifactStore) *Predictor {
	return &Predictor{store: store}
}

// Store returns the underlying artifact store.
func (p *Predictor) Store() *ArtifactStore { return p.store }

// Predict scales each row of input, runs the network and maps the outputs
// back to raw units.
func (p *Predictor) Predict(ctx context.Context, input *frame.Table) ([]Prediction, error) {
	b, err := p.store.Bundle(ctx)
	if err != nil {
		return nil, err
	}
	return b.Predict(input)
}

// Predict runs the bundle on every row of input. The table width must equal
// the input scaler width; when the manifest names feature columns the table
// is reordered to match them.
func (b *Bundle) Predict(input *frame.Table) ([]Prediction, error) {
	if input.IsEmpty() {
		return nil, errors.New(errors.ErrCodeMoleculeDescriptorsMissing,
			errors.DefaultMessageForCode(errors.ErrCodeMoleculeDescriptorsMissing))
	}
	if input.Width() != b.InputWidth() {
		return nil, errors.SchemaMismatch(b.InputWidth(), input.Width())
	}
	if cols := b.Manifest.FeatureColumns; len(cols) > 0 {
		selected, err := input.Select(cols)
		if err != nil {
			return nil, err
		}
		input = selected
	}

	scaled := mat.NewDense(input.Height(), input.Width(), nil)
	for i := 0; i < input.Height(); i++ {
		row, err := b.InputScaler.Transform(input.Row(i))
		if err != nil {
			return nil, err
		}
		scaled.SetRow(i, row)
	}

	out, err := b.Network.Forward(scaled)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "forward pass")
	}

	preds := make([]Prediction, input.Height())
	for i := range preds {
		values, err := b.OutputScaler.Inverse(mat.Row(nil, i, out))
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Newf(errors.ErrCodeModelInferenceFailed, "row %d: non-finite prediction", i)
			}
		}
		preds[i] = Prediction{
			Values:  values,
			Unit:    b.Manifest.Unit,
			Model:   b.Manifest.Name,
			Version: b.Manifest.Version,
		}
	}
	return preds, nil
}
