package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

func TestFingerprint_BitOperations(t *testing.T) {
	fp := NewFingerprint(2, 20)
	assert.Equal(t, 20, fp.Length)
	assert.Len(t, fp.Bits, 3)

	fp.SetBit(0)
	fp.SetBit(9)
	fp.SetBit(9)
	fp.SetBit(19)
	fp.SetBit(20)
	fp.SetBit(-1)

	assert.Equal(t, 3, fp.NumOnBits)
	assert.True(t, fp.GetBit(9))
	assert.False(t, fp.GetBit(8))
	assert.False(t, fp.GetBit(25))
	assert.Equal(t, []int{0, 9, 19}, fp.OnBits())
	assert.Equal(t, "10000000010000000001", fp.String())

	vals := fp.Values()
	require.Len(t, vals, 20)
	assert.Equal(t, 1.0, vals[9])
	assert.Equal(t, 0.0, vals[10])

	assert.Equal(t, []float64{1, 0, 1, 0}, fp.Select([]int{19, 18, 0, 100}))
}

func TestMorganFingerprint_Deterministic(t *testing.T) {
	smiles := "O=C(O)c1ccc(cc1)/C=N/c1ccc(N)cc1"
	a, err := FingerprintFromSMILES(smiles, 2, 2048)
	require.NoError(t, err)
	b, err := FingerprintFromSMILES(smiles, 2, 2048)
	require.NoError(t, err)

	assert.Equal(t, a.Bits, b.Bits)
	assert.Equal(t, 2048, a.Length)
	assert.Greater(t, a.NumOnBits, 5)
	assert.Equal(t, a.NumOnBits, len(a.OnBits()))
}

func TestMorganFingerprint_AromaticAndKekuleAgree(t *testing.T) {
	pairs := [][2]string{
		{"c1ccccc1", "C1=CC=CC=C1"},
		{"c1ccc2ccccc2c1", "C1=CC=C2C=CC=CC2=C1"},
		{"c1cc[nH]c1", "C1=CNC=C1"},
	}
	for _, p := range pairs {
		t.Run(p[0], func(t *testing.T) {
			a, err := FingerprintFromSMILES(p[0], 2, 2048)
			require.NoError(t, err)
			b, err := FingerprintFromSMILES(p[1], 2, 2048)
			require.NoError(t, err)
			assert.Equal(t, a.OnBits(), b.OnBits())
		})
	}
}

func TestMorganFingerprint_RadiusZero(t *testing.T) {
	fp, err := FingerprintFromSMILES("CC", 0, 2048)
	require.NoError(t, err)
	assert.Equal(t, 1, fp.NumOnBits)

	fp, err = FingerprintFromSMILES("c1ccccc1", 0, 2048)
	require.NoError(t, err)
	assert.Equal(t, 1, fp.NumOnBits)
}

func TestMorganFingerprint_RadiusGrowsBits(t *testing.T) {
	smiles := "CC(=O)Nc1ccc(O)cc1"
	prev := 0
	for r := 0; r <= 3; r++ {
		fp, err := FingerprintFromSMILES(smiles, r, 1<<20)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, fp.NumOnBits, prev, "radius %d", r)
		prev = fp.NumOnBits
	}
}

func TestMorganFingerprint_FoldingIsModulo(t *testing.T) {
	wide, err := FingerprintFromSMILES("CCO", 1, 1<<16)
	require.NoError(t, err)
	narrow, err := FingerprintFromSMILES("CCO", 1, 256)
	require.NoError(t, err)
	for _, bit := range wide.OnBits() {
		assert.True(t, narrow.GetBit(bit%256), "bit %d", bit)
	}
}

func TestMorganFingerprint_InvalidArguments(t *testing.T) {
	m, err := ParseSMILES("CCO")
	require.NoError(t, err)

	_, err = MorganFingerprint(m, -1, 2048)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
	_, err = MorganFingerprint(m, 2, 0)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
	_, err = MorganFingerprint(&Molecule{}, 2, 2048)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = FingerprintFromSMILES("C(", 2, 2048)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES))
}

func TestAtomInvariant_DistinguishesEnvironment(t *testing.T) {
	m, err := ParseSMILES("CC(=O)O")
	require.NoError(t, err)
	seen := map[uint32]bool{}
	for i := range m.Atoms {
		seen[m.AtomInvariant(i)] = true
	}
	assert.Len(t, seen, 4)

	ring, err := ParseSMILES("C1CCCCC1")
	require.NoError(t, err)
	chain, err := ParseSMILES("CCC")
	require.NoError(t, err)
	assert.NotEqual(t, ring.AtomInvariant(0), chain.AtomInvariant(1))
}
