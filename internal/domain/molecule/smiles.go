package molecule

import (
	"fmt"
	"strings"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// SMILES parsing
// ─────────────────────────────────────────────────────────────────────────────

// ParseSMILES parses a SMILES string into a sanitized molecule: explicit [H]
// atoms are folded into their parents, implicit hydrogens are assigned,
// valences are checked, rings are perceived and Kekulé rings are aromatised.
//
// Stereo markers (@, @@, /, \) are accepted and ignored.
func ParseSMILES(smiles string) (*Molecule, error) {
	s := strings.TrimSpace(smiles)
	if s == "" {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "empty SMILES")
	}
	p := &smilesParser{src: s, rings: map[int]ringOpen{}, prev: -1}
	m, err := p.parse()
	if err != nil {
		return nil, err
	}
	m.SMILES = s
	m = foldHydrogens(m)
	if err := assignImplicitHydrogens(m); err != nil {
		return nil, err
	}
	perceiveRings(m)
	if err := checkAromaticRingMembership(m); err != nil {
		return nil, err
	}
	aromatize(m)
	return m, nil
}

type ringOpen struct {
	atom int
	bond BondType
	pos  int
}

type smilesParser struct {
	src   string
	pos   int
	mol   Molecule
	prev  int
	bond  BondType
	stack []int
	rings map[int]ringOpen
}

func (p *smilesParser) fail(format string, args ...interface{}) error {
	return errors.New(errors.ErrCodeMoleculeInvalidSMILES,
		fmt.Sprintf("%s at position %d", fmt.Sprintf(format, args...), p.pos))
}

func (p *smilesParser) parse() (*Molecule, error) {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return nil, p.fail("branch without preceding atom")
			}
			if p.bond != bondUnassigned {
				return nil, p.fail("bond symbol before branch")
			}
			p.stack = append(p.stack, p.prev)
			p.pos++
		case c == ')':
			if len(p.stack) == 0 {
				return nil, p.fail("unbalanced ')'")
			}
			if p.bond != bondUnassigned {
				return nil, p.fail("dangling bond before ')'")
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.pos++
		case c == '.':
			if p.bond != bondUnassigned {
				return nil, p.fail("bond symbol before '.'")
			}
			p.prev = -1
			p.pos++
		case strings.IndexByte("-=#$:/\\", c) >= 0:
			if p.bond != bondUnassigned {
				return nil, p.fail("consecutive bond symbols")
			}
			p.bond = bondFromSymbol(c)
			p.pos++
		case c >= '0' && c <= '9':
			if err := p.ringClosure(int(c - '0')); err != nil {
				return nil, err
			}
			p.pos++
		case c == '%':
			if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
				return nil, p.fail("'%%' must be followed by two digits")
			}
			n := int(p.src[p.pos+1]-'0')*10 + int(p.src[p.pos+2]-'0')
			if err := p.ringClosure(n); err != nil {
				return nil, err
			}
			p.pos += 3
		case c == '[':
			atom, err := p.bracketAtom()
			if err != nil {
				return nil, err
			}
			if err := p.attach(atom); err != nil {
				return nil, err
			}
		default:
			atom, err := p.organicAtom()
			if err != nil {
				return nil, err
			}
			if err := p.attach(atom); err != nil {
				return nil, err
			}
		}
	}
	if len(p.stack) > 0 {
		return nil, p.fail("unclosed branch")
	}
	if p.bond != bondUnassigned {
		return nil, p.fail("dangling bond at end of input")
	}
	for n, r := range p.rings {
		p.pos = r.pos
		return nil, p.fail("unclosed ring %d", n)
	}
	if len(p.mol.Atoms) == 0 {
		return nil, p.fail("no atoms")
	}
	return &p.mol, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

var chiralClasses = map[string]bool{"TH": true, "AL": true, "SP": true, "TB": true, "OH": true}

func bondFromSymbol(c byte) BondType {
	switch c {
	case '=':
		return BondDouble
	case '#':
		return BondTriple
	case '$':
		return BondQuadruple
	case ':':
		return BondAromatic
	default:
		return BondSingle
	}
}

func (p *smilesParser) attach(atom Atom) error {
	idx := p.mol.addAtom(atom)
	if p.prev >= 0 {
		t := p.bond
		if t == bondUnassigned {
			t = p.implicitBond(p.prev, idx)
		}
		p.mol.addBond(p.prev, idx, t)
	} else if p.bond != bondUnassigned {
		return p.fail("bond without preceding atom")
	}
	p.bond = bondUnassigned
	p.prev = idx
	return nil
}

func (p *smilesParser) implicitBond(a, b int) BondType {
	if p.mol.Atoms[a].Aromatic && p.mol.Atoms[b].Aromatic {
		return BondAromatic
	}
	return BondSingle
}

func (p *smilesParser) ringClosure(n int) error {
	if p.prev < 0 {
		return p.fail("ring closure without preceding atom")
	}
	open, ok := p.rings[n]
	if !ok {
		p.rings[n] = ringOpen{atom: p.prev, bond: p.bond, pos: p.pos}
		p.bond = bondUnassigned
		return nil
	}
	delete(p.rings, n)
	if open.atom == p.prev {
		return p.fail("ring %d closes on itself", n)
	}
	if p.mol.BondBetween(open.atom, p.prev) >= 0 {
		return p.fail("ring %d duplicates an existing bond", n)
	}
	t := open.bond
	switch {
	case t == bondUnassigned:
		t = p.bond
	case p.bond != bondUnassigned && p.bond != t:
		return p.fail("conflicting bond orders on ring %d", n)
	}
	if t == bondUnassigned {
		t = p.implicitBond(open.atom, p.prev)
	}
	p.mol.addBond(open.atom, p.prev, t)
	p.bond = bondUnassigned
	return nil
}

func (p *smilesParser) organicAtom() (Atom, error) {
	c := p.src[p.pos]
	if c == '*' {
		return Atom{}, errors.New(errors.ErrCodeMoleculeUnsupportedElement, "wildcard atoms are not supported")
	}
	// Two-letter organic symbols first.
	if p.pos+1 < len(p.src) {
		two := p.src[p.pos : p.pos+2]
		if two == "Cl" || two == "Br" {
			p.pos += 2
			return Atom{Element: LookupElement(two)}, nil
		}
	}
	sym := string(c)
	if organicSubset[sym] {
		p.pos++
		return Atom{Element: LookupElement(sym)}, nil
	}
	if el, ok := aromaticSymbols[sym]; ok {
		p.pos++
		return Atom{Element: LookupElement(el), Aromatic: true}, nil
	}
	return Atom{}, p.fail("unexpected character %q", c)
}

func (p *smilesParser) bracketAtom() (Atom, error) {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return Atom{}, p.fail("unterminated bracket atom")
	}
	body := p.src[p.pos+1 : p.pos+end]
	start := p.pos
	p.pos += end + 1

	var atom Atom
	atom.NoImplicit = true
	i := 0

	// isotope
	for i < len(body) && isDigit(body[i]) {
		atom.Isotope = atom.Isotope*10 + int(body[i]-'0')
		i++
	}

	// element symbol
	if i >= len(body) {
		return Atom{}, errors.New(errors.ErrCodeMoleculeInvalidSMILES,
			fmt.Sprintf("bracket atom without element at position %d", start))
	}
	if body[i] == '*' {
		return Atom{}, errors.New(errors.ErrCodeMoleculeUnsupportedElement, "wildcard atoms are not supported")
	}
	sym := ""
	if i+1 < len(body) {
		two := body[i : i+2]
		if el, ok := aromaticSymbols[two]; ok {
			sym, atom.Aromatic = el, true
		} else if LookupElement(two) != nil {
			sym = two
		}
	}
	if sym == "" {
		one := body[i : i+1]
		if el, ok := aromaticSymbols[one]; ok {
			sym, atom.Aromatic = el, true
		} else if LookupElement(one) != nil {
			sym = one
		}
	}
	if sym == "" {
		return Atom{}, errors.New(errors.ErrCodeMoleculeInvalidSMILES,
			fmt.Sprintf("unknown element in [%s] at position %d", body, start))
	}
	atom.Element = LookupElement(sym)
	if atom.Aromatic {
		i += len(strings.ToLower(sym))
	} else {
		i += len(sym)
	}

	// chirality: @, @@, @TH1, @AL2, @SP3, @TB12, @OH25
	if i < len(body) && body[i] == '@' {
		i++
		if i < len(body) && body[i] == '@' {
			i++
		} else if i+1 < len(body) && chiralClasses[body[i:i+2]] {
			i += 2
			for i < len(body) && isDigit(body[i]) {
				i++
			}
		}
	}

	// hydrogen count
	if i < len(body) && body[i] == 'H' {
		i++
		atom.ExplicitH = 1
		if i < len(body) && isDigit(body[i]) {
			atom.ExplicitH = int(body[i] - '0')
			i++
		}
	}

	// charge
	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		sc := body[i]
		i++
		mag := 1
		if i < len(body) && isDigit(body[i]) {
			mag = 0
			for i < len(body) && isDigit(body[i]) {
				mag = mag*10 + int(body[i]-'0')
				i++
			}
		} else {
			for i < len(body) && body[i] == sc {
				mag++
				i++
			}
		}
		atom.Charge = sign * mag
	}

	// atom class
	if i < len(body) && body[i] == ':' {
		i++
		for i < len(body) && isDigit(body[i]) {
			atom.Class = atom.Class*10 + int(body[i]-'0')
			i++
		}
	}

	if i != len(body) {
		return Atom{}, errors.New(errors.ErrCodeMoleculeInvalidSMILES,
			fmt.Sprintf("malformed bracket atom [%s] at position %d", body, start))
	}
	return atom, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Post-processing
// ─────────────────────────────────────────────────────────────────────────────

// foldHydrogens removes plain [H] atoms bonded to a single heavy atom and adds
// them to that atom's explicit H count. H2, H+ and isotopic hydrogens stay as
// graph atoms.
func foldHydrogens(m *Molecule) *Molecule {
	remove := make([]bool, len(m.Atoms))
	folded := false
	for i := range m.Atoms {
		a := &m.Atoms[i]
		if a.Element.Z != 1 || a.Charge != 0 || a.Isotope != 0 || a.ExplicitH != 0 || len(m.adj[i]) != 1 {
			continue
		}
		nb := m.adj[i][0]
		if m.Atoms[nb.Atom].Element.Z == 1 || m.Bonds[nb.Bond].Type != BondSingle {
			continue
		}
		remove[i] = true
		m.Atoms[nb.Atom].ExplicitH++
		folded = true
	}
	if !folded {
		return m
	}

	out := &Molecule{SMILES: m.SMILES}
	newIdx := make([]int, len(m.Atoms))
	for i, a := range m.Atoms {
		if remove[i] {
			newIdx[i] = -1
			continue
		}
		newIdx[i] = out.addAtom(a)
	}
	for _, b := range m.Bonds {
		if newIdx[b.Begin] < 0 || newIdx[b.End] < 0 {
			continue
		}
		out.addBond(newIdx[b.Begin], newIdx[b.End], b.Type)
	}
	return out
}

// assignImplicitHydrogens fills ImplicitH for organic-subset atoms and checks
// every atom against its allowed valences.
func assignImplicitHydrogens(m *Molecule) error {
	for i := range m.Atoms {
		a := &m.Atoms[i]
		vals := valencesFor(a.Element, a.Charge)
		if a.NoImplicit {
			if len(vals) == 0 {
				continue
			}
			total := m.ExplicitValence(i) + float64(a.ExplicitH)
			if a.Aromatic {
				total = m.aromaticBase(i) + float64(a.ExplicitH)
			}
			if int(total+0.1) > vals[len(vals)-1] {
				return valenceError(m, i, total)
			}
			continue
		}
		if len(vals) == 0 {
			continue
		}
		if a.Aromatic {
			base := m.aromaticBase(i) + float64(a.ExplicitH)
			if int(base+0.1) >= vals[0] {
				if int(base+0.1) > vals[len(vals)-1] {
					return valenceError(m, i, base)
				}
				a.ImplicitH = 0
				continue
			}
			need := int(base+0.1) + 1
			target := pickValence(vals, need)
			a.ImplicitH = target - need
			continue
		}
		ev := int(m.ExplicitValence(i)+0.1) + a.ExplicitH
		if ev > vals[len(vals)-1] {
			return valenceError(m, i, float64(ev))
		}
		a.ImplicitH = pickValence(vals, ev) - ev
	}
	return nil
}

// aromaticBase counts aromatic bonds as single bonds.
func (m *Molecule) aromaticBase(i int) float64 {
	v := 0.0
	for _, nb := range m.adj[i] {
		t := m.Bonds[nb.Bond].Type
		if t == BondAromatic {
			v++
			continue
		}
		v += t.ValenceContribution()
	}
	return v
}

func pickValence(vals []int, ev int) int {
	for _, v := range vals {
		if v >= ev {
			return v
		}
	}
	return ev
}

func valenceError(m *Molecule, i int, total float64) error {
	a := &m.Atoms[i]
	return errors.New(errors.ErrCodeMoleculeValence,
		fmt.Sprintf("explicit valence %.0f for atom #%d %s is greater than permitted", total, i, a.Element.Symbol))
}

// checkAromaticRingMembership rejects aromatic atoms outside rings.
func checkAromaticRingMembership(m *Molecule) error {
	for i := range m.Atoms {
		if m.Atoms[i].Aromatic && !m.Atoms[i].InRing {
			return errors.New(errors.ErrCodeMoleculeInvalidSMILES,
				fmt.Sprintf("non-ring atom #%d marked aromatic", i))
		}
	}
	return nil
}
