// Package molecule parses SMILES strings into molecular graphs and computes
// the graph-level features used by the predictor: implicit hydrogens, ring
// membership, aromaticity and Morgan fingerprints.
package molecule

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// BondType enumerates bond kinds. The numeric values are the ones hashed into
// Morgan environments, so they must not be renumbered.
type BondType int

const (
	BondSingle     BondType = 1
	BondDouble     BondType = 2
	BondTriple     BondType = 3
	BondQuadruple  BondType = 4
	BondAromatic   BondType = 12
	bondUnassigned BondType = 0
)

// ValenceContribution is the bond's share of an atom's valence.
func (b BondType) ValenceContribution() float64 {
	switch b {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	case BondQuadruple:
		return 4
	case BondAromatic:
		return 1.5
	default:
		return 1
	}
}

func (b BondType) String() string {
	switch b {
	case BondSingle:
		return "SINGLE"
	case BondDouble:
		return "DOUBLE"
	case BondTriple:
		return "TRIPLE"
	case BondQuadruple:
		return "QUADRUPLE"
	case BondAromatic:
		return "AROMATIC"
	default:
		return "UNSPECIFIED"
	}
}

// Hybridization is the coarse orbital state used for force-field typing.
type Hybridization int

const (
	HybridUnknown Hybridization = iota
	HybridS
	HybridSP
	HybridSP2
	HybridSP3
	HybridResonant
)

// Atom is a node of the molecular graph.
type Atom struct {
	Element  *Element
	Charge   int
	Isotope  int
	Aromatic bool
	// ExplicitH is the hydrogen count written in a bracket atom, plus any
	// [H] atoms folded into this atom.
	ExplicitH int
	// ImplicitH is derived from default valences for organic-subset atoms.
	ImplicitH int
	// NoImplicit marks bracket atoms, whose H count is exactly ExplicitH.
	NoImplicit bool
	Class      int
	InRing     bool
}

// TotalHs is the number of hydrogens attached without being graph nodes.
func (a *Atom) TotalHs() int {
	return a.ExplicitH + a.ImplicitH
}

// Mass returns the isotopic mass when an isotope is set, else the standard
// atomic weight.
func (a *Atom) Mass() float64 {
	if a.Isotope > 0 {
		return float64(a.Isotope)
	}
	return a.Element.Mass
}

// Bond is an edge of the molecular graph.
type Bond struct {
	Begin, End int
	Type       BondType
	InRing     bool
}

// Other returns the atom at the other end of the bond.
func (b *Bond) Other(atom int) int {
	if b.Begin == atom {
		return b.End
	}
	return b.Begin
}

// Neighbor is an adjacency entry: the neighbouring atom and the bond to it.
type Neighbor struct {
	Atom int
	Bond int
}

// Molecule is an undirected molecular graph.
type Molecule struct {
	SMILES string
	Atoms  []Atom
	Bonds  []Bond
	adj    [][]Neighbor
	// Rings holds the atom cycles found by ring perception.
	Rings [][]int
}

// NumAtoms returns the number of graph atoms.
func (m *Molecule) NumAtoms() int { return len(m.Atoms) }

// NumBonds returns the number of graph bonds.
func (m *Molecule) NumBonds() int { return len(m.Bonds) }

// Neighbors returns the adjacency list of atom i.
func (m *Molecule) Neighbors(i int) []Neighbor { return m.adj[i] }

// Degree is the number of graph neighbours of atom i.
func (m *Molecule) Degree(i int) int { return len(m.adj[i]) }

// TotalDegree counts graph neighbours plus non-graph hydrogens.
func (m *Molecule) TotalDegree(i int) int {
	return len(m.adj[i]) + m.Atoms[i].TotalHs()
}

// BondBetween returns the index of the bond joining a and b, or -1.
func (m *Molecule) BondBetween(a, b int) int {
	for _, nb := range m.adj[a] {
		if nb.Atom == b {
			return nb.Bond
		}
	}
	return -1
}

// ExplicitValence sums the valence contributions of the atom's graph bonds.
func (m *Molecule) ExplicitValence(i int) float64 {
	v := 0.0
	for _, nb := range m.adj[i] {
		v += m.Bonds[nb.Bond].Type.ValenceContribution()
	}
	return v
}

// HeavyAtomCount returns the number of non-hydrogen graph atoms.
func (m *Molecule) HeavyAtomCount() int {
	n := 0
	for i := range m.Atoms {
		if m.Atoms[i].Element.Z != 1 {
			n++
		}
	}
	return n
}

// Hybridization estimates the hybridization of atom i from its bonds.
func (m *Molecule) Hybridization(i int) Hybridization {
	a := &m.Atoms[i]
	if a.Element.Z == 1 {
		return HybridS
	}
	if a.Aromatic {
		return HybridResonant
	}
	doubles, triples := 0, 0
	for _, nb := range m.adj[i] {
		switch m.Bonds[nb.Bond].Type {
		case BondDouble:
			doubles++
		case BondTriple:
			triples++
		case BondAromatic:
			return HybridResonant
		}
	}
	switch {
	case triples > 0 || doubles > 1:
		return HybridSP
	case doubles == 1:
		return HybridSP2
	}
	// Amine nitrogens conjugated with a pi system are planar.
	if a.Element.Symbol == "N" {
		for _, nb := range m.adj[i] {
			if m.isPiAtom(nb.Atom) {
				return HybridResonant
			}
		}
	}
	return HybridSP3
}

func (m *Molecule) isPiAtom(i int) bool {
	if m.Atoms[i].Aromatic {
		return true
	}
	for _, nb := range m.adj[i] {
		switch m.Bonds[nb.Bond].Type {
		case BondDouble, BondTriple, BondAromatic:
			return true
		}
	}
	return false
}

func (m *Molecule) addAtom(a Atom) int {
	m.Atoms = append(m.Atoms, a)
	m.adj = append(m.adj, nil)
	return len(m.Atoms) - 1
}

func (m *Molecule) addBond(a, b int, t BondType) int {
	m.Bonds = append(m.Bonds, Bond{Begin: a, End: b, Type: t})
	idx := len(m.Bonds) - 1
	m.adj[a] = append(m.adj[a], Neighbor{Atom: b, Bond: idx})
	m.adj[b] = append(m.adj[b], Neighbor{Atom: a, Bond: idx})
	return idx
}

// AddHydrogens returns a copy of the molecule in which every implicit and
// explicit hydrogen count is materialised as a hydrogen atom bonded to its
// parent. Hydrogens are appended after the heavy atoms, so heavy-atom indices
// are unchanged.
func (m *Molecule) AddHydrogens() *Molecule {
	out := &Molecule{SMILES: m.SMILES, Rings: m.Rings}
	for _, a := range m.Atoms {
		out.addAtom(a)
	}
	for _, b := range m.Bonds {
		idx := out.addBond(b.Begin, b.End, b.Type)
		out.Bonds[idx].InRing = b.InRing
	}
	hydrogen := LookupElement("H")
	for i := range m.Atoms {
		n := m.Atoms[i].TotalHs()
		out.Atoms[i].ExplicitH = 0
		out.Atoms[i].ImplicitH = 0
		out.Atoms[i].NoImplicit = true
		for k := 0; k < n; k++ {
			h := out.addAtom(Atom{Element: hydrogen, NoImplicit: true})
			out.addBond(i, h, BondSingle)
		}
	}
	return out
}

// Formula returns the Hill-order molecular formula including implicit Hs.
func (m *Molecule) Formula() string {
	counts := map[string]int{}
	for i := range m.Atoms {
		a := &m.Atoms[i]
		counts[a.Element.Symbol]++
		if h := a.TotalHs(); h > 0 {
			counts["H"] += h
		}
	}
	var sb strings.Builder
	write := func(sym string) {
		if n, ok := counts[sym]; ok {
			sb.WriteString(sym)
			if n > 1 {
				fmt.Fprintf(&sb, "%d", n)
			}
			delete(counts, sym)
		}
	}
	if _, ok := counts["C"]; ok {
		write("C")
		write("H")
	}
	for _, el := range slices.Sorted(maps.Keys(counts)) {
		write(el)
	}
	return sb.String()
}
