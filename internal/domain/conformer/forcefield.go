package conformer

import (
	"context"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/molecule"
)

// ─────────────────────────────────────────────────────────────────────────────
// Force-field terms
// ─────────────────────────────────────────────────────────────────────────────

type bondTerm struct {
	i, j  int
	r0, k float64
}

type angleTerm struct {
	i, j, k    int
	ka         float64
	c0, c1, c2 float64
	linear     bool
	// square uses the four-fold term ka/16 (1 - cos 4θ) of square-planar
	// and octahedral centres.
	square bool
}

type vdwTerm struct {
	i, j int
	x, d float64
}

// ForceField is a UFF-style field with bond stretch, angle bend and
// Lennard-Jones terms between atoms more than two bonds apart. Torsion and
// inversion terms are not modelled. Coordinates are flat x,y,z triples.
type ForceField struct {
	n      int
	types  []string
	params []uffParams
	bonds  []bondTerm
	angles []angleTerm
	vdw    []vdwTerm
	// topo holds the topological distance between atom pairs, -1 when the
	// atoms are in different fragments.
	topo [][]int
}

// NewForceField types every atom of m and builds the energy terms. m is
// expected to carry explicit hydrogens.
func NewForceField(m *molecule.Molecule) (*ForceField, error) {
	n := m.NumAtoms()
	ff := &ForceField{
		n:      n,
		types:  make([]string, n),
		params: make([]uffParams, n),
	}
	for i := 0; i < n; i++ {
		t, err := atomType(m, i)
		if err != nil {
			return nil, err
		}
		ff.types[i] = t
		ff.params[i] = uffTable[t]
	}

	rest := make(map[[2]int]float64, m.NumBonds())
	for _, b := range m.Bonds {
		pi, pj := ff.params[b.Begin], ff.params[b.End]
		r0 := restLength(pi, pj, bondOrder(b.Type))
		rest[pairKey(b.Begin, b.End)] = r0
		ff.bonds = append(ff.bonds, bondTerm{i: b.Begin, j: b.End, r0: r0, k: bondForceConstant(pi, pj, r0)})
	}

	for j := 0; j < n; j++ {
		nbrs := m.Neighbors(j)
		theta0 := deg2rad(ff.params[j].theta0)
		linear := ff.params[j].theta0 >= 179
		square := squareCoordinated(ff.types[j], ff.params[j])
		sin0, cos0 := math.Sin(theta0), math.Cos(theta0)
		for a := 0; a < len(nbrs); a++ {
			for b := a + 1; b < len(nbrs); b++ {
				i, k := nbrs[a].Atom, nbrs[b].Atom
				rij, rjk := rest[pairKey(i, j)], rest[pairKey(j, k)]
				t := angleTerm{
					i: i, j: j, k: k,
					ka:     angleForceConstant(ff.params[i], ff.params[k], rij, rjk, theta0),
					linear: linear,
					square: square,
				}
				if !linear && !square {
					t.c2 = 1 / (4 * sin0 * sin0)
					t.c1 = -4 * t.c2 * cos0
					t.c0 = t.c2 * (2*cos0*cos0 + 1)
				}
				ff.angles = append(ff.angles, t)
			}
		}
	}

	ff.topo = topologicalDistances(m)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if d := ff.topo[i][j]; d >= 0 && d < 3 {
				continue
			}
			x, d := vdwPair(ff.params[i], ff.params[j])
			ff.vdw = append(ff.vdw, vdwTerm{i: i, j: j, x: x, d: d})
		}
	}
	return ff, nil
}

// Types returns the UFF type label of each atom.
func (ff *ForceField) Types() []string { return ff.types }

// RestLength returns the natural length of the bond between i and j, or 0
// when they are not bonded.
func (ff *ForceField) RestLength(i, j int) float64 {
	for _, b := range ff.bonds {
		if (b.i == i && b.j == j) || (b.i == j && b.j == i) {
			return b.r0
		}
	}
	return 0
}

// Energy evaluates the total energy in kcal/mol.
func (ff *ForceField) Energy(x []float64) float64 {
	e := 0.0
	for _, b := range ff.bonds {
		dr := dist(x, b.i, b.j) - b.r0
		e += 0.5 * b.k * dr * dr
	}
	for _, a := range ff.angles {
		c := cosAngle(x, a.i, a.j, a.k)
		switch {
		case a.linear:
			e += a.ka * (1 + c)
			continue
		case a.square:
			// cos 4θ = 8c⁴ - 8c² + 1
			e += a.ka / 2 * (c*c - c*c*c*c)
			continue
		}
		e += a.ka * (a.c0 + a.c1*c + a.c2*(2*c*c-1))
	}
	for _, v := range ff.vdw {
		r := dist(x, v.i, v.j)
		s := v.x / r
		s6 := s * s * s * s * s * s
		e += v.d * (s6*s6 - 2*s6)
	}
	return e
}

// Gradient writes dE/dx into grad.
func (ff *ForceField) Gradient(grad, x []float64) {
	for i := range grad {
		grad[i] = 0
	}
	for _, b := range ff.bonds {
		r := dist(x, b.i, b.j)
		if r < 1e-8 {
			continue
		}
		addPairGradient(grad, x, b.i, b.j, b.k*(r-b.r0)/r)
	}
	for _, a := range ff.angles {
		c := cosAngle(x, a.i, a.j, a.k)
		var dEdc float64
		switch {
		case a.linear:
			dEdc = a.ka
		case a.square:
			dEdc = a.ka * (c - 2*c*c*c)
		default:
			dEdc = a.ka * (a.c1 + 4*a.c2*c)
		}
		addAngleGradient(grad, x, a.i, a.j, a.k, dEdc)
	}
	for _, v := range ff.vdw {
		r := dist(x, v.i, v.j)
		if r < 1e-8 {
			continue
		}
		s := v.x / r
		s6 := s * s * s * s * s * s
		dEdr := 12 * v.d / r * (s6 - s6*s6)
		addPairGradient(grad, x, v.i, v.j, dEdr/r)
	}
}

// Minimize relaxes x in place with L-BFGS and returns the final energy. It
// stops early with ctx's error when ctx is done.
func (ff *ForceField) Minimize(ctx context.Context, x []float64, maxIter int) (float64, error) {
	return minimize(ctx, x, maxIter, ff.Energy, ff.Gradient)
}

// ctxRecorder aborts an optimisation once its context is done.
type ctxRecorder struct {
	ctx context.Context
}

func (r ctxRecorder) Init() error { return r.ctx.Err() }

func (r ctxRecorder) Record(*optimize.Location, optimize.Operation, *optimize.Stats) error {
	return r.ctx.Err()
}

func minimize(ctx context.Context, x []float64, maxIter int, f func([]float64) float64, g func(grad, x []float64)) (float64, error) {
	p := optimize.Problem{Func: f, Grad: g}
	settings := &optimize.Settings{
		MajorIterations:   maxIter,
		GradientThreshold: 1e-4,
		Recorder:          ctxRecorder{ctx: ctx},
	}
	res, err := optimize.Minimize(p, x, settings, &optimize.LBFGS{})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return math.NaN(), ctxErr
	}
	if res == nil {
		return math.NaN(), err
	}
	copy(x, res.X)
	// Line-search stalls still leave a usable, lower-energy point.
	return res.F, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Geometry helpers
// ─────────────────────────────────────────────────────────────────────────────

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func dist(x []float64, i, j int) float64 {
	dx := x[3*i] - x[3*j]
	dy := x[3*i+1] - x[3*j+1]
	dz := x[3*i+2] - x[3*j+2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// addPairGradient adds s*(x_i - x_j) to atom i and its negation to atom j.
func addPairGradient(grad, x []float64, i, j int, s float64) {
	for d := 0; d < 3; d++ {
		g := s * (x[3*i+d] - x[3*j+d])
		grad[3*i+d] += g
		grad[3*j+d] -= g
	}
}

func cosAngle(x []float64, i, j, k int) float64 {
	var u, v [3]float64
	for d := 0; d < 3; d++ {
		u[d] = x[3*i+d] - x[3*j+d]
		v[d] = x[3*k+d] - x[3*j+d]
	}
	nu := math.Sqrt(u[0]*u[0] + u[1]*u[1] + u[2]*u[2])
	nv := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if nu < 1e-8 || nv < 1e-8 {
		return 1
	}
	c := (u[0]*v[0] + u[1]*v[1] + u[2]*v[2]) / (nu * nv)
	return math.Max(-1, math.Min(1, c))
}

// addAngleGradient chains dE/dcos through dcos/dx for the angle i-j-k.
func addAngleGradient(grad, x []float64, i, j, k int, dEdc float64) {
	var u, v [3]float64
	for d := 0; d < 3; d++ {
		u[d] = x[3*i+d] - x[3*j+d]
		v[d] = x[3*k+d] - x[3*j+d]
	}
	nu := math.Sqrt(u[0]*u[0] + u[1]*u[1] + u[2]*u[2])
	nv := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if nu < 1e-8 || nv < 1e-8 {
		return
	}
	c := (u[0]*v[0] + u[1]*v[1] + u[2]*v[2]) / (nu * nv)
	for d := 0; d < 3; d++ {
		gi := v[d]/(nu*nv) - c*u[d]/(nu*nu)
		gk := u[d]/(nu*nv) - c*v[d]/(nv*nv)
		grad[3*i+d] += dEdc * gi
		grad[3*k+d] += dEdc * gk
		grad[3*j+d] -= dEdc * (gi + gk)
	}
}

// topologicalDistances runs a BFS from every atom.
func topologicalDistances(m *molecule.Molecule) [][]int {
	n := m.NumAtoms()
	out := make([][]int, n)
	for s := 0; s < n; s++ {
		d := make([]int, n)
		for i := range d {
			d[i] = -1
		}
		d[s] = 0
		queue := []int{s}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nb := range m.Neighbors(cur) {
				if d[nb.Atom] < 0 {
					d[nb.Atom] = d[cur] + 1
					queue = append(queue, nb.Atom)
				}
			}
		}
		out[s] = d
	}
	return out
}
