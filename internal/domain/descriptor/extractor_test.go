package descriptor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/conformer"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/molecule"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

func newTestCalculator(t *testing.T, seed int64) *Calculator {
	t.Helper()
	c, err := NewCalculator(Config{
		Conformer: conformer.Options{Seed: seed, MaxAttempts: 5, EmbedIterations: 200, OptimizeIterations: 100},
	}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func TestCalculator_Columns(t *testing.T) {
	c := newTestCalculator(t, 1)
	cols := c.Columns()
	require.Len(t, cols, 577+11)
	assert.Equal(t, "6", cols[0])
	assert.Equal(t, ShapeNames, cols[577:])
	assert.Equal(t, 2, c.Config().Radius)
	assert.Equal(t, 2048, c.Config().NBits)
}

func TestCalculator_ExtractValid(t *testing.T) {
	c := newTestCalculator(t, 42)
	tbl, err := c.Extract(context.Background(), "Nc1ccc(cc1)C=O")
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Height())
	assert.Equal(t, c.Columns(), tbl.Columns)

	fp, err := molecule.FingerprintFromSMILES("Nc1ccc(cc1)C=O", 2, 2048)
	require.NoError(t, err)
	p, _ := LoadProfile(DefaultProfile)
	assert.Equal(t, fp.Select(p.Bits), tbl.Row(0)[:577])

	pmi3, ok := tbl.Value(0, "PMI3")
	require.True(t, ok)
	assert.Greater(t, pmi3, 0.0)
	npr1, _ := tbl.Value(0, "NPR1")
	assert.True(t, npr1 >= 0 && npr1 <= 1)
}

func TestCalculator_ExtractInvalidIsEmpty(t *testing.T) {
	c := newTestCalculator(t, 1)
	for _, s := range []string{"", "   ", "C1CC", "not a smiles"} {
		tbl, err := c.Extract(context.Background(), s)
		require.NoError(t, err, s)
		assert.True(t, tbl.IsEmpty(), s)
	}
}

func TestCalculator_FixedSeedReproducible(t *testing.T) {
	c := newTestCalculator(t, 1234)
	a, err := c.Extract(context.Background(), "CC(=O)Oc1ccccc1C(=O)O")
	require.NoError(t, err)
	b, err := c.Extract(context.Background(), "CC(=O)Oc1ccccc1C(=O)O")
	require.NoError(t, err)
	assert.Equal(t, a.Rows, b.Rows)
}

func TestCalculator_RandomSeedKeepsFingerprint(t *testing.T) {
	c := newTestCalculator(t, 0)
	a, err := c.Extract(context.Background(), "c1ccccc1O")
	require.NoError(t, err)
	b, err := c.Extract(context.Background(), "c1ccccc1O")
	require.NoError(t, err)
	assert.Equal(t, a.Row(0)[:577], b.Row(0)[:577])
}

func TestCalculator_Calculate(t *testing.T) {
	c := newTestCalculator(t, 3)
	res, err := c.Calculate(context.Background(), "CCO")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "C2H6O", res.Formula)
	assert.Len(t, res.Conformer.Positions, 9)
	assert.Equal(t, res.Shape.Values(), res.Table.Row(0)[577:])
}

func TestCalculator_UnsupportedElementErrors(t *testing.T) {
	c := newTestCalculator(t, 3)
	_, err := c.Extract(context.Background(), "[Eu]")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeUnsupportedElement))
}

func TestCalculator_MetalsExtract(t *testing.T) {
	c := newTestCalculator(t, 3)
	for _, smiles := range []string{"[Co]", "[Pt]", "Cl[Pd](Cl)(N)N"} {
		t.Run(smiles, func(t *testing.T) {
			tbl, err := c.Extract(context.Background(), smiles)
			require.NoError(t, err)
			assert.False(t, tbl.IsEmpty())
			assert.Equal(t, len(c.Columns()), tbl.Width())
		})
	}
}

func TestNewCalculator_MismatchedBits(t *testing.T) {
	_, err := NewCalculator(Config{NBits: 1024}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeColumnProfileInvalid))
}
