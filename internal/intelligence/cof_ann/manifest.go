// Package cof_ann loads and evaluates the hydrogen-evolution regression
// network: a YAML manifest naming dense-layer weights and scaler vectors
// stored as .npy arrays.
package cof_ann

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// ManifestFile is the default manifest name inside an artifact directory.
const ManifestFile = "model.yaml"

// DefaultUnit labels predictions when the manifest does not.
const DefaultUnit = "μmol*h-1"

// Manifest describes one model artifact.
type Manifest struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
	Unit    string `yaml:"unit" json:"unit"`
	// FeatureColumns, when set, is the exact input column order the model
	// was fit on.
	FeatureColumns []string    `yaml:"feature_columns,omitempty" json:"feature_columns,omitempty"`
	InputScaler    ScalerSpec  `yaml:"input_scaler" json:"input_scaler"`
	OutputScaler   ScalerSpec  `yaml:"output_scaler" json:"output_scaler"`
	Layers         []LayerSpec `yaml:"layers" json:"layers"`
}

// ScalerSpec declares a feature scaler. Standard scalers use Mean and Scale;
// min-max scalers use Min and Scale.
type ScalerSpec struct {
	Kind  string `yaml:"kind" json:"kind"`
	Mean  Vector `yaml:"mean,omitempty" json:"mean,omitempty"`
	Scale Vector `yaml:"scale,omitempty" json:"scale,omitempty"`
	Min   Vector `yaml:"min,omitempty" json:"min,omitempty"`
}

// LayerSpec declares one dense layer. Kernel is an (in × units) array.
type LayerSpec struct {
	Name       string  `yaml:"name" json:"name"`
	Units      int     `yaml:"units" json:"units"`
	Activation string  `yaml:"activation" json:"activation"`
	Alpha      float64 `yaml:"alpha,omitempty" json:"alpha,omitempty"`
	Kernel     string  `yaml:"kernel" json:"kernel"`
	Bias       string  `yaml:"bias" json:"bias"`
}

// Vector is either inline values or the name of a 1-D .npy file.
type Vector struct {
	Values []float64 `json:"values,omitempty"`
	File   string    `json:"file,omitempty"`
}

// UnmarshalYAML accepts a scalar file name or a sequence of numbers.
func (v *Vector) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		v.File = node.Value
		return nil
	case yaml.SequenceNode:
		return node.Decode(&v.Values)
	default:
		return errors.Newf(errors.ErrCodeModelArtifactLoadFailed,
			"line %d: vector must be a file name or a list of numbers", node.Line)
	}
}

// MarshalYAML writes the file name when set, else the values.
func (v Vector) MarshalYAML() (interface{}, error) {
	if v.File != "" {
		return v.File, nil
	}
	return v.Values, nil
}

// IsZero reports whether the vector is unset.
func (v Vector) IsZero() bool { return v.File == "" && len(v.Values) == 0 }

// ReadManifest loads and validates a manifest file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeModelArtifactLoadFailed, "read manifest %s", path)
	}
	return ParseManifest(data)
}

// ParseManifest decodes and validates manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeModelArtifactLoadFailed, "parse manifest")
	}
	if m.Unit == "" {
		m.Unit = DefaultUnit
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks structure only; array shapes are checked at load time.
func (m *Manifest) Validate() error {
	if len(m.Layers) == 0 {
		return errors.New(errors.ErrCodeModelArtifactLoadFailed, "manifest declares no layers")
	}
	for i, l := range m.Layers {
		if l.Units <= 0 {
			return errors.Newf(errors.ErrCodeModelArtifactLoadFailed, "layer %d: units must be > 0", i)
		}
		if l.Kernel == "" || l.Bias == "" {
			return errors.Newf(errors.ErrCodeModelArtifactLoadFailed, "layer %d: kernel and bias files are required", i)
		}
		if _, err := lookupActivation(l.Activation, l.Alpha); err != nil {
			return err
		}
	}
	for name, s := range map[string]ScalerSpec{"input_scaler": m.InputScaler, "output_scaler": m.OutputScaler} {
		if err := s.validate(name); err != nil {
			return err
		}
	}
	if dup := lo.FindDuplicates(m.FeatureColumns); len(dup) > 0 {
		return errors.Newf(errors.ErrCodeModelArtifactLoadFailed, "feature_columns repeats %q", dup)
	}
	return nil
}

func (s ScalerSpec) validate(name string) error {
	switch strings.ToLower(s.Kind) {
	case ScalerStandard:
		if s.Mean.IsZero() || s.Scale.IsZero() {
			return errors.Newf(errors.ErrCodeModelArtifactLoadFailed, "%s: standard scaler needs mean and scale", name)
		}
	case ScalerMinMax:
		if s.Min.IsZero() || s.Scale.IsZero() {
			return errors.Newf(errors.ErrCodeModelArtifactLoadFailed, "%s: minmax scaler needs min and scale", name)
		}
	default:
		return errors.Newf(errors.ErrCodeModelUnsupported, "%s: unsupported scaler kind %q", name, s.Kind)
	}
	return nil
}

// Files lists every array file the manifest references, relative to its
// directory, in first-use order.
func (m *Manifest) Files() []string {
	var out []string
	for _, s := range []ScalerSpec{m.InputScaler, m.OutputScaler} {
		for _, v := range []Vector{s.Mean, s.Scale, s.Min} {
			if v.File != "" {
				out = append(out, v.File)
			}
		}
	}
	for _, l := range m.Layers {
		out = append(out, l.Kernel, l.Bias)
	}
	return lo.Uniq(out)
}

func resolve(dir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}
