package conformer

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/molecule"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

func withHs(t *testing.T, smiles string) *molecule.Molecule {
	t.Helper()
	m, err := molecule.ParseSMILES(smiles)
	require.NoError(t, err)
	return m.AddHydrogens()
}

func TestAtomType(t *testing.T) {
	tests := []struct {
		smiles string
		atom   int
		want   string
	}{
		{"C", 0, "C_3"},
		{"C", 1, "H_"},
		{"C=C", 0, "C_2"},
		{"C#N", 0, "C_1"},
		{"C#N", 1, "N_1"},
		{"c1ccccc1", 0, "C_R"},
		{"CO", 1, "O_3"},
		{"C=O", 1, "O_2"},
		{"CNc1ccccc1", 1, "N_R"},
		{"CCN", 2, "N_3"},
		{"CS(=O)(=O)C", 1, "S_3+6"},
		{"CSC", 1, "S_3+2"},
		{"c1ccsc1", 3, "S_R"},
		{"CCl", 1, "Cl"},
		{"CBr", 1, "Br"},
		{"CF", 1, "F_"},
		{"OB(O)O", 1, "B_3"},
		{"CP(C)C", 1, "P_3+3"},
	}
	for _, tt := range tests {
		t.Run(tt.smiles, func(t *testing.T) {
			m := withHs(t, tt.smiles)
			got, err := atomType(m, tt.atom)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAtomType_Metals(t *testing.T) {
	tests := []struct {
		smiles string
		atom   int
		want   string
	}{
		{"[Co]", 0, "Co6+3"},
		{"[Pt]", 0, "Pt4+2"},
		{"[Ru]", 0, "Ru6+2"},
		{"[Pd]", 0, "Pd4+2"},
		{"[Fe]", 0, "Fe3+2"},
		{"[Fe](C)(C)(C)(C)(C)C", 0, "Fe6+2"},
		{"[Zn]", 0, "Zn3+2"},
		{"[Na+]", 0, "Na"},
		{"C[Sn](C)(C)C", 1, "Sn3"},
	}
	for _, tt := range tests {
		t.Run(tt.smiles, func(t *testing.T) {
			got, err := atomType(withHs(t, tt.smiles), tt.atom)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAtomType_Unsupported(t *testing.T) {
	m := withHs(t, "[Eu+3]")
	_, err := NewForceField(m)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeUnsupportedElement))
}

func TestForceField_SquarePlanarMinima(t *testing.T) {
	// Pt with four ligands: both cis (90°) and trans (180°) are minima.
	m := withHs(t, "Cl[Pt](Cl)(Cl)Cl")
	ff, err := NewForceField(m)
	require.NoError(t, err)

	var square int
	for _, a := range ff.angles {
		if a.square {
			square++
		}
	}
	assert.Equal(t, 6, square)

	x := make([]float64, 3*m.NumAtoms())
	place := func(i int, v [3]float64) { copy(x[3*i:], v[:]) }
	r := ff.RestLength(0, 1)
	place(1, [3]float64{0, 0, 0})
	place(0, [3]float64{r, 0, 0})
	place(2, [3]float64{0, r, 0})
	place(3, [3]float64{-r, 0, 0})
	place(4, [3]float64{0, -r, 0})

	grad := make([]float64, len(x))
	ff.Gradient(grad, x)
	for _, g := range grad {
		assert.InDelta(t, 0, g, 1e-6)
	}
}

func TestMinimize_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evals := 0
	f := func(x []float64) float64 {
		evals++
		if evals == 5 {
			cancel()
		}
		return x[0]*x[0] + x[1]*x[1]
	}
	g := func(grad, x []float64) {
		grad[0], grad[1] = 2*x[0], 2*x[1]
	}
	_, err := minimize(ctx, []float64{30, -40}, 10000, f, g)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, evals, 50)
}

func TestRestLength(t *testing.T) {
	c3, cR, c2, c1 := uffTable["C_3"], uffTable["C_R"], uffTable["C_2"], uffTable["C_1"]
	h := uffTable["H_"]

	assert.InDelta(t, 1.514, restLength(c3, c3, 1), 0.01)
	assert.InDelta(t, 1.38, restLength(cR, cR, 1.5), 0.02)
	assert.InDelta(t, 1.33, restLength(c2, c2, 2), 0.02)
	assert.InDelta(t, 1.20, restLength(c1, c1, 3), 0.02)
	assert.InDelta(t, 1.11, restLength(c3, h, 1), 0.01)
	assert.Greater(t, restLength(c3, c3, 1), restLength(c2, c2, 2))
}

func TestForceField_GradientMatchesFiniteDifference(t *testing.T) {
	m := withHs(t, "OC(=O)c1ccc(N)cc1")
	ff, err := NewForceField(m)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(7, 11))
	x := randomCoordinates(rng, m.NumAtoms())
	bm := newBoundsMatrix(ff)
	_, err = minimize(context.Background(), x, 200, bm.penalty, bm.gradient)
	require.NoError(t, err)
	grad := make([]float64, len(x))
	ff.Gradient(grad, x)

	const h = 1e-6
	for _, idx := range []int{0, 4, 11, 20, len(x) - 1} {
		orig := x[idx]
		x[idx] = orig + h
		ep := ff.Energy(x)
		x[idx] = orig - h
		em := ff.Energy(x)
		x[idx] = orig
		num := (ep - em) / (2 * h)
		assert.InDelta(t, num, grad[idx], 1e-3*math.Max(1, math.Abs(num)), "coordinate %d", idx)
	}
}

func TestBoundsPenalty_GradientMatchesFiniteDifference(t *testing.T) {
	m := withHs(t, "CCO")
	ff, err := NewForceField(m)
	require.NoError(t, err)
	bm := newBoundsMatrix(ff)

	rng := rand.New(rand.NewPCG(3, 5))
	x := randomCoordinates(rng, m.NumAtoms())
	grad := make([]float64, len(x))
	bm.gradient(grad, x)

	const h = 1e-6
	for idx := range x {
		orig := x[idx]
		x[idx] = orig + h
		ep := bm.penalty(x)
		x[idx] = orig - h
		em := bm.penalty(x)
		x[idx] = orig
		assert.InDelta(t, (ep-em)/(2*h), grad[idx], 1e-4, "coordinate %d", idx)
	}
}

func TestForceField_MinimizeLowersEnergy(t *testing.T) {
	m := withHs(t, "CCCC")
	ff, err := NewForceField(m)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	x := randomCoordinates(rng, m.NumAtoms())
	bm := newBoundsMatrix(ff)
	_, err = minimize(context.Background(), x, 300, bm.penalty, bm.gradient)
	require.NoError(t, err)

	before := ff.Energy(x)
	after, err := ff.Minimize(context.Background(), x, 300)
	require.NoError(t, err)
	assert.LessOrEqual(t, after, before)
	assert.InDelta(t, ff.RestLength(0, 1), dist(x, 0, 1), 0.1)
}

func TestTopologicalDistances(t *testing.T) {
	m, err := molecule.ParseSMILES("CCC.O")
	require.NoError(t, err)
	d := topologicalDistances(m)
	assert.Equal(t, 0, d[0][0])
	assert.Equal(t, 1, d[0][1])
	assert.Equal(t, 2, d[0][2])
	assert.Equal(t, -1, d[0][3])
}
