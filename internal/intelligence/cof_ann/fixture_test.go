package cof_ann

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// The fixture network is 3 → 2 (relu) → 1 (linear) with a standard input
// scaler and a min-max output scaler. For x = [2, 4, 7] the scaled input is
// [1, 1, 1], the hidden layer gives relu([2, -2]) = [2, 0], the output layer
// 3.5 and the inverse output scaling (3.5 - 0.1) / 0.5 = 6.8.
const fixtureExpected = 6.8

var fixtureInput = []float64{2, 4, 7}

func fixtureManifest() *Manifest {
	return &Manifest{
		Name:    "cof-h2-ann",
		Version: "test",
		Unit:    DefaultUnit,
		InputScaler: ScalerSpec{
			Kind:  ScalerStandard,
			Mean:  Vector{Values: []float64{1, 2, 3}},
			Scale: Vector{File: "input_scale.npy"},
		},
		OutputScaler: ScalerSpec{
			Kind:  ScalerMinMax,
			Min:   Vector{Values: []float64{0.1}},
			Scale: Vector{Values: []float64{0.5}},
		},
		Layers: []LayerSpec{
			{Name: "hidden", Units: 2, Activation: "relu", Kernel: "weights/dense_0_kernel.npy", Bias: "weights/dense_0_bias.npy"},
			{Name: "output", Units: 1, Activation: "linear", Kernel: "weights/dense_1_kernel.npy", Bias: "weights/dense_1_bias.npy"},
		},
	}
}

func writeNpy(t *testing.T, path string, data interface{}) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, npyio.Write(f, data))
}

func writeManifest(t *testing.T, dir string, m *Manifest) {
	t.Helper()
	data, err := yaml.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644))
}

// writeArtifact writes the fixture model into dir, letting mutate adjust the
// manifest first.
func writeArtifact(t *testing.T, dir string, mutate func(*Manifest)) {
	t.Helper()
	m := fixtureManifest()
	if mutate != nil {
		mutate(m)
	}
	writeNpy(t, filepath.Join(dir, "input_scale.npy"), []float64{1, 2, 4})
	writeNpy(t, filepath.Join(dir, "weights/dense_0_kernel.npy"), [][2]float64{{1, -1}, {0.5, 0.5}, {0.25, -2}})
	writeNpy(t, filepath.Join(dir, "weights/dense_0_bias.npy"), []float64{0.25, 0.5})
	writeNpy(t, filepath.Join(dir, "weights/dense_1_kernel.npy"), [][1]float32{{1.5}, {3}})
	writeNpy(t, filepath.Join(dir, "weights/dense_1_bias.npy"), []float32{0.5})
	writeManifest(t, dir, m)
}

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeArtifact(t, dir, nil)
	return dir
}
