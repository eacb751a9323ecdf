package cof_ann

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/frame"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

func TestLoadBundle(t *testing.T) {
	b, err := LoadBundle(context.Background(), fixtureDir(t))
	require.NoError(t, err)

	assert.Equal(t, 3, b.InputWidth())
	assert.Equal(t, 1, b.OutputWidth())
	assert.Len(t, b.Network.Layers, 2)
	assert.Equal(t, "hidden", b.Network.Layers[0].Name)
	assert.False(t, b.LoadedAt.IsZero())
}

func TestLoadBundle_MissingArray(t *testing.T) {
	dir := fixtureDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "weights/dense_1_bias.npy")))

	_, err := LoadBundle(context.Background(), dir)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelArtifactLoadFailed))
}

func TestLoadBundle_MissingManifest(t *testing.T) {
	_, err := LoadBundle(context.Background(), t.TempDir())
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelArtifactLoadFailed))
}

func TestLoadBundle_ShapeMismatch(t *testing.T) {
	cases := map[string]func(*Manifest){
		"units": func(m *Manifest) { m.Layers[0].Units = 3 },
		"input scaler width": func(m *Manifest) {
			m.InputScaler.Mean = Vector{Values: []float64{1, 2}}
		},
		"output scaler width": func(m *Manifest) {
			m.OutputScaler.Min = Vector{Values: []float64{0, 0}}
			m.OutputScaler.Scale = Vector{Values: []float64{1, 1}}
		},
		"feature columns": func(m *Manifest) { m.FeatureColumns = []string{"a", "b"} },
		"kernel as bias": func(m *Manifest) { m.Layers[1].Bias = "weights/dense_0_kernel.npy" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeArtifact(t, dir, mutate)
			_, err := LoadBundle(context.Background(), dir)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeModelSchemaMismatch), "got %v", err)
		})
	}
}

func TestLoadBundle_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadBundle(ctx, fixtureDir(t))
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))
}

func TestBundle_Predict(t *testing.T) {
	b, err := LoadBundle(context.Background(), fixtureDir(t))
	require.NoError(t, err)

	in, err := frame.New([]string{"a", "b", "c"}, fixtureInput, []float64{1, 2, 3})
	require.NoError(t, err)

	preds, err := b.Predict(in)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.InDelta(t, fixtureExpected, preds[0].Value(), 1e-9)
	assert.Equal(t, DefaultUnit, preds[0].Unit)
	assert.Equal(t, "cof-h2-ann", preds[0].Model)
	// x = mean: scaled input is zero, hidden relu([0.25, 0.5]), output
	// 0.25*1.5 + 0.5*3 + 0.5 = 2.375, inverse (2.375 - 0.1) / 0.5.
	assert.InDelta(t, 4.55, preds[1].Value(), 1e-9)
}

func TestBundle_PredictReordersFeatureColumns(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, func(m *Manifest) { m.FeatureColumns = []string{"a", "b", "c"} })
	b, err := LoadBundle(context.Background(), dir)
	require.NoError(t, err)

	in, err := frame.New([]string{"c", "a", "b"}, []float64{7, 2, 4})
	require.NoError(t, err)
	preds, err := b.Predict(in)
	require.NoError(t, err)
	assert.InDelta(t, fixtureExpected, preds[0].Value(), 1e-9)

	wrong, err := frame.New([]string{"a", "b", "z"}, fixtureInput)
	require.NoError(t, err)
	_, err = b.Predict(wrong)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelSchemaMismatch))
}

func TestBundle_PredictErrors(t *testing.T) {
	b, err := LoadBundle(context.Background(), fixtureDir(t))
	require.NoError(t, err)

	_, err = b.Predict(frame.Empty())
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeDescriptorsMissing))

	narrow, err := frame.New([]string{"a", "b"}, []float64{1, 2})
	require.NoError(t, err)
	_, err = b.Predict(narrow)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelSchemaMismatch))
	assert.Contains(t, err.Error(), "expected 3 columns, got 2")
}
