package cof_ann

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// maxParallelReads bounds concurrent array decodes during a load.
const maxParallelReads = 4

// Bundle is a fully loaded model artifact.
type Bundle struct {
	Dir          string
	Manifest     *Manifest
	Network      *Network
	InputScaler  *Scaler
	OutputScaler *Scaler
	LoadedAt     time.Time
}

// InputWidth is the number of raw features the model accepts.
func (b *Bundle) InputWidth() int { return b.InputScaler.Width() }

// OutputWidth is the number of predicted targets.
func (b *Bundle) OutputWidth() int { return b.OutputScaler.Width() }

// LoadBundle reads dir/model.yaml and every array it references, then checks
// that scalers and layers chain into a consistent network.
func LoadBundle(ctx context.Context, dir string) (*Bundle, error) {
	return LoadBundleManifest(ctx, dir, ManifestFile)
}

// LoadBundleManifest is LoadBundle with a manifest name other than model.yaml.
func LoadBundleManifest(ctx context.Context, dir, manifestName string) (*Bundle, error) {
	if manifestName == "" {
		manifestName = ManifestFile
	}
	manifest, err := ReadManifest(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, err
	}

	arrays := make(map[string]*array)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for _, file := range manifest.Files() {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, err := readArrayFile(resolve(dir, file))
			if err != nil {
				return err
			}
			mu.Lock()
			arrays[file] = a
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "model load interrupted")
		}
		return nil, err
	}

	b := &Bundle{Dir: dir, Manifest: manifest, LoadedAt: time.Now()}
	if b.InputScaler, err = buildScaler(manifest.InputScaler, arrays); err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "input scaler")
	}
	if b.OutputScaler, err = buildScaler(manifest.OutputScaler, arrays); err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "output scaler")
	}

	layers := make([]*Dense, 0, len(manifest.Layers))
	for i, spec := range manifest.Layers {
		l, err := buildLayer(i, spec, arrays)
		if err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}
	if b.Network, err = NewNetwork(layers...); err != nil {
		return nil, err
	}

	if b.Network.InputWidth() != b.InputScaler.Width() {
		return nil, errors.Newf(errors.ErrCodeModelSchemaMismatch,
			"input scaler has %d features, first layer expects %d", b.InputScaler.Width(), b.Network.InputWidth())
	}
	if b.Network.OutputWidth() != b.OutputScaler.Width() {
		return nil, errors.Newf(errors.ErrCodeModelSchemaMismatch,
			"output scaler has %d targets, last layer produces %d", b.OutputScaler.Width(), b.Network.OutputWidth())
	}
	if n := len(manifest.FeatureColumns); n > 0 && n != b.InputScaler.Width() {
		return nil, errors.Newf(errors.ErrCodeModelSchemaMismatch,
			"manifest lists %d feature columns, input scaler has %d", n, b.InputScaler.Width())
	}
	return b, nil
}

func vectorValues(v Vector, arrays map[string]*array) ([]float64, error) {
	if v.File == "" {
		return v.Values, nil
	}
	return arrays[v.File].vector()
}

func buildScaler(spec ScalerSpec, arrays map[string]*array) (*Scaler, error) {
	offsetSpec := spec.Mean
	if spec.Kind == ScalerMinMax {
		offsetSpec = spec.Min
	}
	offset, err := vectorValues(offsetSpec, arrays)
	if err != nil {
		return nil, err
	}
	scale, err := vectorValues(spec.Scale, arrays)
	if err != nil {
		return nil, err
	}
	return NewScaler(spec.Kind, offset, scale)
}

func buildLayer(i int, spec LayerSpec, arrays map[string]*array) (*Dense, error) {
	name := spec.Name
	if name == "" {
		name = fmt.Sprintf("dense_%d", i)
	}
	kernel, err := arrays[spec.Kernel].matrix()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeModelSchemaMismatch, "layer %s kernel", name)
	}
	if _, c := kernel.Dims(); c != spec.Units {
		return nil, errors.Newf(errors.ErrCodeModelSchemaMismatch,
			"layer %s: kernel has %d columns, manifest declares %d units", name, c, spec.Units)
	}
	bias, err := arrays[spec.Bias].vector()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeModelSchemaMismatch, "layer %s bias", name)
	}
	act, err := lookupActivation(spec.Activation, spec.Alpha)
	if err != nil {
		return nil, err
	}
	return &Dense{Name: name, Kernel: kernel, Bias: bias, Activation: act}, nil
}
