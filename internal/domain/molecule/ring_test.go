package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerceiveRings(t *testing.T) {
	tests := []struct {
		name      string
		smiles    string
		rings     int
		ringAtoms int
	}{
		{"acyclic", "CCCC", 0, 0},
		{"cyclohexane", "C1CCCCC1", 1, 6},
		{"cyclopropane", "C1CC1", 1, 3},
		{"naphthalene", "c1ccc2ccccc2c1", 2, 10},
		{"biphenyl", "c1ccc(cc1)-c1ccccc1", 2, 12},
		{"spiro", "C1CCC2(C1)CCC2", 2, 8},
		{"toluene", "Cc1ccccc1", 1, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseSMILES(tt.smiles)
			require.NoError(t, err)
			assert.Equal(t, tt.rings, m.NumRings())
			n := 0
			for _, a := range m.Atoms {
				if a.InRing {
					n++
				}
			}
			assert.Equal(t, tt.ringAtoms, n)
		})
	}
}

func TestPerceiveRings_BondMembership(t *testing.T) {
	m, err := ParseSMILES("c1ccc(cc1)-c1ccccc1")
	require.NoError(t, err)
	linker := m.BondBetween(3, 6)
	require.GreaterOrEqual(t, linker, 0)
	assert.False(t, m.Bonds[linker].InRing)

	fused, err := ParseSMILES("c1ccc2ccccc2c1")
	require.NoError(t, err)
	shared := fused.BondBetween(3, 8)
	require.GreaterOrEqual(t, shared, 0)
	assert.True(t, fused.Bonds[shared].InRing)
	for _, r := range fused.Rings {
		assert.Len(t, r, 6)
	}
}

func TestAromatize(t *testing.T) {
	tests := []struct {
		name      string
		smiles    string
		aromatics int
	}{
		{"cyclohexene", "C1=CCCCC1", 0},
		{"cyclobutadiene", "C1=CC=C1", 0},
		{"cyclooctatetraene", "C1=CC=CC=CC=C1", 0},
		{"cyclopentadienyl anion", "[CH-]1C=CC=C1", 5},
		{"tropylium", "[CH+]1C=CC=CC=C1", 7},
		{"pyridine kekule", "C1=CC=NC=C1", 6},
		{"thiophene kekule", "C1=CSC=C1", 5},
		{"quinoline kekule", "C1=CC=C2N=CC=CC2=C1", 10},
		{"styrene", "C=CC1=CC=CC=C1", 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseSMILES(tt.smiles)
			require.NoError(t, err)
			n := 0
			for _, a := range m.Atoms {
				if a.Aromatic {
					n++
				}
			}
			assert.Equal(t, tt.aromatics, n)
		})
	}
}

func TestAromatize_ExocyclicDoubleBondStaysDouble(t *testing.T) {
	m, err := ParseSMILES("C=CC1=CC=CC=C1")
	require.NoError(t, err)
	assert.Equal(t, BondDouble, m.Bonds[0].Type)
	for _, b := range m.Bonds {
		if b.InRing {
			assert.Equal(t, BondAromatic, b.Type)
		}
	}
}
