package molecule

import (
	"math/bits"
	"slices"
	"strings"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprint Structure
// ─────────────────────────────────────────────────────────────────────────────

// Fingerprint is a packed bit vector: bit i lives in byte i/8 at position i%8.
type Fingerprint struct {
	Radius    int    `json:"radius"`
	Bits      []byte `json:"bits"`
	Length    int    `json:"length"`
	NumOnBits int    `json:"num_on_bits"`
}

// NewFingerprint returns an all-zero fingerprint of the given length.
func NewFingerprint(radius, length int) *Fingerprint {
	return &Fingerprint{
		Radius: radius,
		Bits:   make([]byte, (length+7)/8),
		Length: length,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Bit Operations
// ─────────────────────────────────────────────────────────────────────────────

// GetBit returns true if the bit at the given index is set.
func (fp *Fingerprint) GetBit(index int) bool {
	if index < 0 || index >= fp.Length {
		return false
	}
	return fp.Bits[index/8]&(1<<uint(index%8)) != 0
}

// SetBit sets the bit at the given index to 1.
func (fp *Fingerprint) SetBit(index int) {
	if index < 0 || index >= fp.Length {
		return
	}
	old := fp.Bits[index/8]
	fp.Bits[index/8] |= 1 << uint(index%8)
	if old != fp.Bits[index/8] {
		fp.NumOnBits++
	}
}

// OnBits returns the indices of set bits in ascending order.
func (fp *Fingerprint) OnBits() []int {
	out := make([]int, 0, fp.NumOnBits)
	for bi, b := range fp.Bits {
		for b != 0 {
			tz := bits.TrailingZeros8(b)
			out = append(out, bi*8+tz)
			b &^= 1 << uint(tz)
		}
	}
	return out
}

// Values expands the fingerprint into one 0/1 float per bit.
func (fp *Fingerprint) Values() []float64 {
	out := make([]float64, fp.Length)
	for _, i := range fp.OnBits() {
		out[i] = 1
	}
	return out
}

// Select returns the 0/1 values of the given bit indices, in order.
func (fp *Fingerprint) Select(indices []int) []float64 {
	out := make([]float64, len(indices))
	for k, i := range indices {
		if fp.GetBit(i) {
			out[k] = 1
		}
	}
	return out
}

// String renders the fingerprint as a string of '0' and '1'.
func (fp *Fingerprint) String() string {
	var sb strings.Builder
	sb.Grow(fp.Length)
	for i := 0; i < fp.Length; i++ {
		if fp.GetBit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// Morgan (circular) fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// hashCombine is boost::hash_combine on 32-bit words.
func hashCombine(seed *uint32, v uint32) {
	*seed ^= v + 0x9e3779b9 + (*seed << 6) + (*seed >> 2)
}

// AtomInvariant is the connectivity invariant of heavy atom i: atomic number,
// total degree, total H count, formal charge, isotope mass shift and ring
// membership.
func (m *Molecule) AtomInvariant(i int) uint32 {
	a := &m.Atoms[i]
	components := []uint32{
		uint32(a.Element.Z),
		uint32(m.TotalDegree(i)),
		uint32(a.TotalHs()),
		uint32(int32(a.Charge)),
	}
	delta := 0
	if a.Isotope > 0 {
		delta = int(float64(a.Isotope) - a.Element.Mass)
	}
	components = append(components, uint32(int32(delta)))
	if a.InRing {
		components = append(components, 1)
	}
	var seed uint32
	for _, c := range components {
		hashCombine(&seed, c)
	}
	return seed
}

type morganEnv struct {
	neighborhood string
	invariant    uint32
	atom         int
}

// MorganFingerprint computes the circular fingerprint of m folded to nBits.
// Each atom contributes its invariant at layer 0; layer k hashes the previous
// invariant with the sorted (bond type, neighbour invariant) pairs. An
// environment whose bond set was already seen is dropped and its atom stops
// growing.
func MorganFingerprint(m *Molecule, radius, nBits int) (*Fingerprint, error) {
	if m == nil || len(m.Atoms) == 0 {
		return nil, errors.InvalidParam("molecule has no atoms")
	}
	if radius < 0 {
		return nil, errors.InvalidParam("fingerprint radius must be ≥ 0")
	}
	if nBits <= 0 {
		return nil, errors.InvalidParam("fingerprint length must be > 0")
	}

	fp := NewFingerprint(radius, nBits)
	n := len(m.Atoms)
	nbytes := (len(m.Bonds) + 7) / 8

	current := make([]uint32, n)
	for i := range m.Atoms {
		current[i] = m.AtomInvariant(i)
		fp.SetBit(int(current[i] % uint32(nBits)))
	}

	atomNeighborhoods := make([][]byte, n)
	for i := range atomNeighborhoods {
		atomNeighborhoods[i] = make([]byte, nbytes)
	}
	dead := make([]bool, n)
	seen := map[string]bool{}

	type pair struct {
		bt  uint32
		inv uint32
	}

	for layer := 0; layer < radius; layer++ {
		next := make([]uint32, n)
		copy(next, current)
		roundNeighborhoods := make([][]byte, n)
		var envs []morganEnv

		for i := 0; i < n; i++ {
			roundNeighborhoods[i] = slices.Clone(atomNeighborhoods[i])
			if dead[i] {
				continue
			}
			if len(m.adj[i]) == 0 {
				dead[i] = true
				continue
			}
			nbrs := make([]pair, 0, len(m.adj[i]))
			for _, nb := range m.adj[i] {
				nbrs = append(nbrs, pair{bt: uint32(m.Bonds[nb.Bond].Type), inv: current[nb.Atom]})
				roundNeighborhoods[i][nb.Bond/8] |= 1 << uint(nb.Bond%8)
				for k, b := range atomNeighborhoods[nb.Atom] {
					roundNeighborhoods[i][k] |= b
				}
			}
			slices.SortFunc(nbrs, func(a, b pair) int {
				if a.bt != b.bt {
					return cmpU32(a.bt, b.bt)
				}
				return cmpU32(a.inv, b.inv)
			})

			invar := uint32(layer)
			hashCombine(&invar, current[i])
			for _, p := range nbrs {
				var ph uint32
				hashCombine(&ph, p.bt)
				hashCombine(&ph, p.inv)
				hashCombine(&invar, ph)
			}
			next[i] = invar
			envs = append(envs, morganEnv{
				neighborhood: string(roundNeighborhoods[i]),
				invariant:    invar,
				atom:         i,
			})
		}

		slices.SortFunc(envs, func(a, b morganEnv) int {
			if c := strings.Compare(a.neighborhood, b.neighborhood); c != 0 {
				return c
			}
			if c := cmpU32(a.invariant, b.invariant); c != 0 {
				return c
			}
			return a.atom - b.atom
		})
		for _, env := range envs {
			if seen[env.neighborhood] {
				dead[env.atom] = true
				continue
			}
			seen[env.neighborhood] = true
			fp.SetBit(int(env.invariant % uint32(nBits)))
		}

		current = next
		atomNeighborhoods = roundNeighborhoods
	}
	return fp, nil
}

func cmpU32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// FingerprintFromSMILES parses smiles and returns its Morgan fingerprint.
func FingerprintFromSMILES(smiles string, radius, nBits int) (*Fingerprint, error) {
	m, err := ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	return MorganFingerprint(m, radius, nBits)
}
