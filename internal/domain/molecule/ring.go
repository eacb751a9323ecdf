package molecule

import (
	"slices"
)

// ─────────────────────────────────────────────────────────────────────────────
// Ring perception
// ─────────────────────────────────────────────────────────────────────────────

// perceiveRings marks ring atoms and bonds (every bond that is not a bridge)
// and collects the smallest cycle through each ring bond into m.Rings.
func perceiveRings(m *Molecule) {
	n := len(m.Atoms)
	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	bridge := make([]bool, len(m.Bonds))
	timer := 0

	type frame struct {
		atom, parentBond, next int
	}
	for root := 0; root < n; root++ {
		if disc[root] >= 0 {
			continue
		}
		stack := []frame{{atom: root, parentBond: -1}}
		disc[root], low[root] = timer, timer
		timer++
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(m.adj[top.atom]) {
				nb := m.adj[top.atom][top.next]
				top.next++
				if nb.Bond == top.parentBond {
					continue
				}
				if disc[nb.Atom] < 0 {
					disc[nb.Atom], low[nb.Atom] = timer, timer
					timer++
					stack = append(stack, frame{atom: nb.Atom, parentBond: nb.Bond})
				} else if disc[nb.Atom] < low[top.atom] {
					low[top.atom] = disc[nb.Atom]
				}
				continue
			}
			done := *top
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				parent := &stack[len(stack)-1]
				if low[done.atom] < low[parent.atom] {
					low[parent.atom] = low[done.atom]
				}
				if low[done.atom] > disc[parent.atom] {
					bridge[done.parentBond] = true
				}
			}
		}
	}

	for bi := range m.Bonds {
		if bridge[bi] {
			continue
		}
		b := &m.Bonds[bi]
		b.InRing = true
		m.Atoms[b.Begin].InRing = true
		m.Atoms[b.End].InRing = true
	}

	m.Rings = nil
	seen := map[string]bool{}
	for bi := range m.Bonds {
		if !m.Bonds[bi].InRing {
			continue
		}
		ring := m.shortestCycle(bi)
		if ring == nil {
			continue
		}
		key := ringKey(ring)
		if seen[key] {
			continue
		}
		seen[key] = true
		m.Rings = append(m.Rings, ring)
	}
	slices.SortStableFunc(m.Rings, func(a, b []int) int { return len(a) - len(b) })
}

// shortestCycle returns the atoms of the smallest ring containing bond bi, in
// path order, by searching for the shortest path between its ends that avoids
// the bond itself.
func (m *Molecule) shortestCycle(bi int) []int {
	b := m.Bonds[bi]
	prev := make([]int, len(m.Atoms))
	for i := range prev {
		prev[i] = -2
	}
	prev[b.Begin] = -1
	queue := []int{b.Begin}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == b.End {
			break
		}
		for _, nb := range m.adj[cur] {
			if nb.Bond == bi || !m.Bonds[nb.Bond].InRing || prev[nb.Atom] != -2 {
				continue
			}
			prev[nb.Atom] = cur
			queue = append(queue, nb.Atom)
		}
	}
	if prev[b.End] == -2 {
		return nil
	}
	var path []int
	for at := b.End; at != -1; at = prev[at] {
		path = append(path, at)
	}
	return path
}

func ringKey(ring []int) string {
	sorted := slices.Clone(ring)
	slices.Sort(sorted)
	key := make([]byte, 0, len(sorted)*3)
	for _, a := range sorted {
		key = append(key, byte(a>>16), byte(a>>8), byte(a))
	}
	return string(key)
}

// ringBonds returns the bond indices joining consecutive atoms of ring.
func (m *Molecule) ringBonds(ring []int) []int {
	out := make([]int, 0, len(ring))
	for i := range ring {
		b := m.BondBetween(ring[i], ring[(i+1)%len(ring)])
		if b < 0 {
			return nil
		}
		out = append(out, b)
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Aromaticity
// ─────────────────────────────────────────────────────────────────────────────

// aromatize marks Kekulé rings that satisfy the 4n+2 rule as aromatic. Single
// rings are tried first, then pairs of fused rings as one envelope so that
// systems such as Kekulé naphthalene are recognised.
func aromatize(m *Molecule) {
	type system struct {
		atoms []int
		bonds []int
	}
	var candidates []system
	ringSets := make([][]int, 0, len(m.Rings))
	for _, r := range m.Rings {
		bonds := m.ringBonds(r)
		if bonds == nil {
			continue
		}
		ringSets = append(ringSets, bonds)
		candidates = append(candidates, system{atoms: r, bonds: bonds})
	}
	for i := 0; i < len(ringSets); i++ {
		for j := i + 1; j < len(ringSets); j++ {
			if !sharesBond(ringSets[i], ringSets[j]) {
				continue
			}
			candidates = append(candidates, system{
				atoms: union(m.Rings[i], m.Rings[j]),
				bonds: union(ringSets[i], ringSets[j]),
			})
		}
	}

	written := make([]bool, len(m.Atoms))
	for i := range m.Atoms {
		written[i] = m.Atoms[i].Aromatic
	}
	for _, sys := range candidates {
		if len(sys.atoms) < 4 || m.allAromatic(sys.bonds) {
			continue
		}
		if anyOf(written, sys.atoms) {
			// Written aromatic in the input; trust it.
			continue
		}
		inSys := map[int]bool{}
		for _, b := range sys.bonds {
			inSys[b] = true
		}
		electrons := 0
		ok := true
		for _, a := range sys.atoms {
			e := m.piElectrons(a, inSys)
			if e < 0 {
				ok = false
				break
			}
			electrons += e
		}
		if !ok || electrons < 2 || (electrons-2)%4 != 0 {
			continue
		}
		for _, a := range sys.atoms {
			m.Atoms[a].Aromatic = true
		}
		for _, b := range sys.bonds {
			m.Bonds[b].Type = BondAromatic
		}
	}
}

// piElectrons returns the number of pi electrons atom a donates to the ring
// system whose bonds are inSys, or -1 if the atom cannot be aromatic.
func (m *Molecule) piElectrons(a int, inSys map[int]bool) int {
	atom := &m.Atoms[a]
	hasRingPi, hasExoDouble, exoToHetero := false, false, false
	for _, nb := range m.adj[a] {
		t := m.Bonds[nb.Bond].Type
		if t != BondDouble && t != BondAromatic {
			if t == BondTriple {
				return -1
			}
			continue
		}
		if inSys[nb.Bond] {
			hasRingPi = true
			continue
		}
		if t == BondDouble {
			hasExoDouble = true
			switch m.Atoms[nb.Atom].Element.Symbol {
			case "O", "N", "S":
				exoToHetero = true
			}
		}
	}
	if hasRingPi {
		return 1
	}
	if hasExoDouble {
		if exoToHetero && atom.Element.Symbol == "C" {
			return 0
		}
		return -1
	}
	conn := m.TotalDegree(a)
	switch atom.Element.Symbol {
	case "N", "P", "As":
		if atom.Charge == 0 && conn == 3 {
			return 2
		}
	case "O", "S", "Se", "Te":
		if atom.Charge == 0 && conn == 2 {
			return 2
		}
	case "C":
		if atom.Charge == -1 && conn == 3 {
			return 2
		}
		if atom.Charge == 1 && conn == 3 {
			return 0
		}
	case "B":
		if atom.Charge == 0 && conn == 3 {
			return 0
		}
	}
	return -1
}

func (m *Molecule) allAromatic(bonds []int) bool {
	for _, b := range bonds {
		if m.Bonds[b].Type != BondAromatic {
			return false
		}
	}
	return true
}

func anyOf(flags []bool, idx []int) bool {
	for _, i := range idx {
		if flags[i] {
			return true
		}
	}
	return false
}

func sharesBond(a, b []int) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}

func union(a, b []int) []int {
	out := slices.Clone(a)
	for _, x := range b {
		if !slices.Contains(out, x) {
			out = append(out, x)
		}
	}
	return out
}

// NumRings returns the number of perceived rings.
func (m *Molecule) NumRings() int { return len(m.Rings) }
