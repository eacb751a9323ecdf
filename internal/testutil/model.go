package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/COF-H2-Predictor/internal/intelligence/cof_ann"
)

// ModelSpec shapes a constant test model.
type ModelSpec struct {
	Name    string
	Version string
	// Width is the number of input columns.
	Width int
	// Value is what the model predicts for every input.
	Value float64
	// FeatureColumns is written to the manifest when set.
	FeatureColumns []string
}

// WriteConstantModel writes a one-layer artifact into dir whose kernel is
// zero, so every prediction equals spec.Value. Scalers are the identity.
func WriteConstantModel(t testing.TB, dir string, spec ModelSpec) {
	t.Helper()
	require.Positive(t, spec.Width)
	if spec.Name == "" {
		spec.Name = "cof-h2-ann"
	}
	if spec.Version == "" {
		spec.Version = "test"
	}

	zeros := make([]float64, spec.Width)
	ones := make([]float64, spec.Width)
	for i := range ones {
		ones[i] = 1
	}
	writeNpy(t, filepath.Join(dir, "weights", "dense_0_kernel.npy"), kernel(spec.Width))
	writeNpy(t, filepath.Join(dir, "weights", "dense_0_bias.npy"), []float64{spec.Value})

	m := cof_ann.Manifest{
		Name:           spec.Name,
		Version:        spec.Version,
		Unit:           cof_ann.DefaultUnit,
		FeatureColumns: spec.FeatureColumns,
		InputScaler: cof_ann.ScalerSpec{
			Kind:  cof_ann.ScalerStandard,
			Mean:  cof_ann.Vector{Values: zeros},
			Scale: cof_ann.Vector{Values: ones},
		},
		OutputScaler: cof_ann.ScalerSpec{
			Kind:  cof_ann.ScalerStandard,
			Mean:  cof_ann.Vector{Values: []float64{0}},
			Scale: cof_ann.Vector{Values: []float64{1}},
		},
		Layers: []cof_ann.LayerSpec{{
			Name:       "output",
			Units:      1,
			Activation: "linear",
			Kernel:     "weights/dense_0_kernel.npy",
			Bias:       "weights/dense_0_bias.npy",
		}},
	}
	data, err := yaml.Marshal(&m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, cof_ann.ManifestFile), data, 0o644))
}

// kernel is a width × 1 zero matrix in the row-major layout npyio writes for
// nested arrays.
func kernel(width int) [][1]float64 {
	return make([][1]float64, width)
}

func writeNpy(t testing.TB, path string, data interface{}) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, npyio.Write(f, data))
}
