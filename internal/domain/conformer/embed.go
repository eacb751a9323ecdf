package conformer

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/molecule"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

const (
	DefaultMaxAttempts        = 10
	DefaultEmbedIterations    = 500
	DefaultOptimizeIterations = 200

	// maxBondStrain rejects a conformer whose bond deviates from its rest
	// length by more than this many Å after optimisation.
	maxBondStrain = 0.5
)

// Options controls conformer generation.
type Options struct {
	// Seed for the random starting coordinates. Zero draws a fresh seed per
	// call.
	Seed               int64
	MaxAttempts        int
	EmbedIterations    int
	OptimizeIterations int
}

// DefaultOptions returns the settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:        DefaultMaxAttempts,
		EmbedIterations:    DefaultEmbedIterations,
		OptimizeIterations: DefaultOptimizeIterations,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.EmbedIterations <= 0 {
		o.EmbedIterations = DefaultEmbedIterations
	}
	if o.OptimizeIterations <= 0 {
		o.OptimizeIterations = DefaultOptimizeIterations
	}
	return o
}

// Conformer is one optimised 3-D geometry. Positions are indexed like the
// atoms of the molecule it was generated for.
type Conformer struct {
	Positions []r3.Vec
	Energy    float64
	Attempts  int
	Types     []string
}

// Generate embeds and optimises a conformer for m, which must carry explicit
// hydrogens. Attempts that end in non-finite or badly strained coordinates are
// retried with fresh random coordinates; after MaxAttempts failures it returns
// DESC_001.
func Generate(ctx context.Context, m *molecule.Molecule, opts Options) (*Conformer, error) {
	if m == nil || m.NumAtoms() == 0 {
		return nil, errors.InvalidParam("molecule has no atoms")
	}
	opts = opts.withDefaults()

	ff, err := NewForceField(m)
	if err != nil {
		return nil, err
	}
	bounds := newBoundsMatrix(ff)

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>32|1))

	n := m.NumAtoms()
	var lastErr string
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "conformer generation cancelled")
		}
		x := randomCoordinates(rng, n)
		if n > 1 {
			if _, err := minimize(ctx, x, opts.EmbedIterations, bounds.penalty, bounds.gradient); err != nil {
				if ctx.Err() != nil {
					return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "conformer generation cancelled")
				}
				lastErr = err.Error()
				continue
			}
		}
		energy, err := ff.Minimize(ctx, x, opts.OptimizeIterations)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "conformer generation cancelled")
			}
			lastErr = err.Error()
			continue
		}
		if !allFinite(x) || math.IsNaN(energy) || math.IsInf(energy, 0) {
			lastErr = "non-finite coordinates"
			continue
		}
		if strain := ff.maxBondStrain(x); strain > maxBondStrain {
			lastErr = fmt.Sprintf("bond strain %.2f Å", strain)
			continue
		}
		return &Conformer{
			Positions: toVecs(x),
			Energy:    energy,
			Attempts:  attempt,
			Types:     ff.Types(),
		}, nil
	}
	return nil, errors.Newf(errors.ErrCodeConformerEmbedFailed,
		"no conformer after %d attempts: %s", opts.MaxAttempts, lastErr)
}

func randomCoordinates(rng *rand.Rand, n int) []float64 {
	side := 2.5*math.Cbrt(float64(n)) + 2
	x := make([]float64, 3*n)
	for i := range x {
		x[i] = (rng.Float64() - 0.5) * side
	}
	return x
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func toVecs(x []float64) []r3.Vec {
	out := make([]r3.Vec, len(x)/3)
	for i := range out {
		out[i] = r3.Vec{X: x[3*i], Y: x[3*i+1], Z: x[3*i+2]}
	}
	return out
}

func (ff *ForceField) maxBondStrain(x []float64) float64 {
	worst := 0.0
	for _, b := range ff.bonds {
		worst = math.Max(worst, math.Abs(dist(x, b.i, b.j)-b.r0))
	}
	return worst
}

// ─────────────────────────────────────────────────────────────────────────────
// Distance bounds
// ─────────────────────────────────────────────────────────────────────────────

// boundsMatrix holds lower and upper distance limits for every atom pair;
// upper is +Inf for atoms in different fragments.
type boundsMatrix struct {
	n     int
	lower []float64
	upper []float64
}

func newBoundsMatrix(ff *ForceField) *boundsMatrix {
	n := ff.n
	bm := &boundsMatrix{n: n, lower: make([]float64, n*n), upper: make([]float64, n*n)}

	longest := 0.0
	rest := make(map[[2]int]float64, len(ff.bonds))
	for _, b := range ff.bonds {
		rest[pairKey(b.i, b.j)] = b.r0
		longest = math.Max(longest, b.r0)
	}
	// 1-3 distances from the natural angle at the centre atom.
	oneThree := map[[2]int]float64{}
	for _, a := range ff.angles {
		rij, rjk := rest[pairKey(a.i, a.j)], rest[pairKey(a.j, a.k)]
		theta := deg2rad(ff.params[a.j].theta0)
		oneThree[pairKey(a.i, a.k)] = math.Sqrt(rij*rij + rjk*rjk - 2*rij*rjk*math.Cos(theta))
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var lo, hi float64
			switch d := ff.topo[i][j]; {
			case d == 1:
				r := rest[pairKey(i, j)]
				lo, hi = r-0.01, r+0.01
			case d == 2:
				r := oneThree[pairKey(i, j)]
				lo, hi = r-0.04, r+0.04
			case d == 3:
				lo, hi = 2.0, 3*longest
			case d > 3:
				lo = 0.35 * (ff.params[i].x1 + ff.params[j].x1)
				hi = float64(d) * longest
			default:
				lo = 0.35 * (ff.params[i].x1 + ff.params[j].x1)
				hi = math.Inf(1)
			}
			bm.lower[i*n+j], bm.lower[j*n+i] = lo, lo
			bm.upper[i*n+j], bm.upper[j*n+i] = hi, hi
		}
	}
	return bm
}

// penalty is zero inside the bounds and quadratic outside.
func (bm *boundsMatrix) penalty(x []float64) float64 {
	e := 0.0
	for i := 0; i < bm.n; i++ {
		for j := i + 1; j < bm.n; j++ {
			r := dist(x, i, j)
			if v := r - bm.upper[i*bm.n+j]; v > 0 {
				e += v * v
			} else if v := bm.lower[i*bm.n+j] - r; v > 0 {
				e += v * v
			}
		}
	}
	return e
}

func (bm *boundsMatrix) gradient(grad, x []float64) {
	for i := range grad {
		grad[i] = 0
	}
	for i := 0; i < bm.n; i++ {
		for j := i + 1; j < bm.n; j++ {
			r := dist(x, i, j)
			if r < 1e-8 {
				continue
			}
			var dEdr float64
			if v := r - bm.upper[i*bm.n+j]; v > 0 {
				dEdr = 2 * v
			} else if v := bm.lower[i*bm.n+j] - r; v > 0 {
				dEdr = -2 * v
			} else {
				continue
			}
			addPairGradient(grad, x, i, j, dEdr/r)
		}
	}
}
