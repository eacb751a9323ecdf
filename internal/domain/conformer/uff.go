// Package conformer generates a single 3-D conformer for a molecule with
// explicit hydrogens: a distance-bounds embedding from random coordinates
// followed by a UFF-style force-field minimisation.
package conformer

import (
	"math"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/molecule"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// uffParams are the per-type UFF parameters (Rappé et al., 1992).
type uffParams struct {
	r1     float64 // bond radius, Å
	theta0 float64 // natural angle, degrees
	x1     float64 // vdW distance, Å
	d1     float64 // vdW well depth, kcal/mol
	zeta   float64
	z1     float64 // effective charge
	xi     float64 // GMP electronegativity
}

var uffTable = map[string]uffParams{
	"H_":    {0.354, 180.0, 2.886, 0.044, 12.0, 0.712, 4.528},
	"B_3":   {0.838, 109.47, 4.083, 0.180, 12.052, 1.755, 5.110},
	"B_2":   {0.828, 120.0, 4.083, 0.180, 12.052, 1.755, 5.110},
	"C_3":   {0.757, 109.47, 3.851, 0.105, 12.73, 1.912, 5.343},
	"C_R":   {0.729, 120.0, 3.851, 0.105, 12.73, 1.912, 5.343},
	"C_2":   {0.732, 120.0, 3.851, 0.105, 12.73, 1.912, 5.343},
	"C_1":   {0.706, 180.0, 3.851, 0.105, 12.73, 1.912, 5.343},
	"N_3":   {0.700, 106.7, 3.660, 0.069, 13.407, 2.544, 6.899},
	"N_R":   {0.699, 120.0, 3.660, 0.069, 13.407, 2.544, 6.899},
	"N_2":   {0.685, 111.2, 3.660, 0.069, 13.407, 2.544, 6.899},
	"N_1":   {0.656, 180.0, 3.660, 0.069, 13.407, 2.544, 6.899},
	"O_3":   {0.658, 104.51, 3.500, 0.060, 14.085, 2.300, 8.741},
	"O_R":   {0.680, 110.0, 3.500, 0.060, 14.085, 2.300, 8.741},
	"O_2":   {0.634, 120.0, 3.500, 0.060, 14.085, 2.300, 8.741},
	"O_1":   {0.639, 180.0, 3.500, 0.060, 14.085, 2.300, 8.741},
	"F_":    {0.668, 180.0, 3.364, 0.050, 14.762, 1.735, 10.874},
	"Si3":   {1.117, 109.47, 4.295, 0.402, 12.175, 2.323, 4.168},
	"P_3+3": {1.101, 93.8, 4.147, 0.305, 13.072, 2.863, 5.463},
	"P_3+5": {1.056, 109.47, 4.147, 0.305, 13.072, 2.863, 5.463},
	"S_3+2": {1.064, 92.1, 4.035, 0.274, 13.969, 2.703, 6.928},
	"S_3+4": {1.049, 103.2, 4.035, 0.274, 13.969, 2.703, 6.928},
	"S_3+6": {1.027, 109.47, 4.035, 0.274, 13.969, 2.703, 6.928},
	"S_R":   {1.077, 92.2, 4.035, 0.274, 13.969, 2.703, 6.928},
	"S_2":   {0.854, 120.0, 4.035, 0.274, 13.969, 2.703, 6.928},
	"Cl":    {1.044, 180.0, 3.947, 0.227, 14.866, 2.348, 8.564},
	"Se3+2": {1.190, 90.6, 4.205, 0.291, 13.9, 2.764, 6.428},
	"Br":    {1.192, 180.0, 4.189, 0.251, 15.0, 2.519, 7.790},
	"I_":    {1.382, 180.0, 4.500, 0.339, 15.0, 2.650, 6.822},
	"Ge3":   {1.197, 109.47, 4.280, 0.379, 12.0, 2.789, 4.051},
	"As3+3": {1.211, 92.1, 4.230, 0.309, 13.0, 2.864, 5.188},
	"Sn3":   {1.398, 109.47, 4.392, 0.567, 12.0, 2.961, 3.987},
	"Sb3+3": {1.407, 91.6, 4.420, 0.449, 13.0, 2.704, 4.899},
	"Te3+2": {1.386, 90.25, 4.470, 0.398, 14.0, 2.882, 5.816},
	"Pb3":   {1.459, 109.47, 4.297, 0.663, 12.0, 2.846, 3.900},
	"Bi3+3": {1.512, 90.0, 4.370, 0.518, 13.0, 2.470, 4.690},
	"Al3":   {1.244, 109.47, 4.499, 0.505, 11.278, 1.792, 4.060},
	"Ga3+3": {1.260, 109.47, 4.383, 0.415, 11.0, 1.821, 3.641},
	"In3+3": {1.459, 109.47, 4.463, 0.599, 11.0, 2.070, 3.506},
	"Tl3+3": {1.518, 120.0, 4.347, 0.680, 11.0, 2.068, 3.200},

	// alkali and alkaline-earth metals
	"Li":    {1.336, 180.0, 2.451, 0.025, 12.0, 1.026, 3.006},
	"Na":    {1.539, 180.0, 2.983, 0.030, 12.0, 1.081, 2.843},
	"K_":    {1.953, 180.0, 3.812, 0.035, 12.0, 1.165, 2.421},
	"Rb":    {2.260, 180.0, 4.114, 0.040, 12.0, 1.592, 2.331},
	"Cs":    {2.570, 180.0, 4.517, 0.045, 12.0, 1.573, 2.183},
	"Be3+2": {1.074, 109.47, 2.745, 0.085, 12.0, 1.565, 4.877},
	"Mg3+2": {1.421, 109.47, 3.021, 0.111, 12.0, 1.787, 3.951},
	"Ca6+2": {1.761, 90.0, 3.399, 0.238, 12.0, 2.141, 3.231},
	"Sr6+2": {2.052, 90.0, 3.641, 0.235, 12.0, 2.449, 3.024},
	"Ba6+2": {2.277, 90.0, 3.703, 0.364, 12.0, 2.727, 2.814},

	// transition metals
	"Sc3+3": {1.513, 109.47, 3.295, 0.019, 12.0, 2.592, 3.395},
	"Ti3+4": {1.412, 109.47, 3.175, 0.017, 12.0, 2.659, 3.470},
	"Ti6+4": {1.412, 90.0, 3.175, 0.017, 12.0, 2.659, 3.470},
	"V_3+5": {1.402, 109.47, 3.144, 0.016, 12.0, 2.679, 3.650},
	"Cr6+3": {1.345, 90.0, 3.023, 0.015, 12.0, 2.463, 3.415},
	"Mn6+2": {1.382, 90.0, 2.961, 0.013, 12.0, 2.430, 3.325},
	"Fe3+2": {1.270, 109.47, 2.912, 0.013, 12.0, 2.430, 3.760},
	"Fe6+2": {1.335, 90.0, 2.912, 0.013, 12.0, 2.430, 3.760},
	"Co6+3": {1.241, 90.0, 2.872, 0.014, 12.0, 2.430, 4.105},
	"Ni4+2": {1.164, 90.0, 2.834, 0.015, 12.0, 2.430, 4.465},
	"Cu3+1": {1.302, 109.47, 3.495, 0.005, 12.0, 1.756, 4.200},
	"Zn3+2": {1.193, 109.47, 2.763, 0.124, 12.0, 1.308, 5.106},
	"Y_3+3": {1.698, 109.47, 3.345, 0.072, 12.0, 3.257, 3.830},
	"Zr3+4": {1.564, 109.47, 3.124, 0.069, 12.0, 3.667, 3.400},
	"Nb3+5": {1.473, 109.47, 3.165, 0.059, 12.0, 3.618, 3.550},
	"Mo3+6": {1.484, 109.47, 3.052, 0.056, 12.0, 3.400, 3.465},
	"Mo6+6": {1.467, 90.0, 3.052, 0.056, 12.0, 3.400, 3.465},
	"Tc6+5": {1.322, 90.0, 2.998, 0.048, 12.0, 3.400, 3.290},
	"Ru6+2": {1.478, 90.0, 2.963, 0.056, 12.0, 3.400, 3.575},
	"Rh6+3": {1.332, 90.0, 2.929, 0.053, 12.0, 3.508, 3.975},
	"Pd4+2": {1.338, 90.0, 2.899, 0.048, 12.0, 3.210, 4.320},
	"Ag1+1": {1.386, 180.0, 3.148, 0.036, 12.0, 1.956, 4.436},
	"Cd3+2": {1.403, 109.47, 2.848, 0.228, 12.0, 1.650, 5.034},
	"La3+3": {1.943, 109.47, 3.522, 0.017, 12.0, 3.300, 2.836},
	"Hf3+4": {1.611, 109.47, 3.141, 0.072, 12.0, 3.921, 3.400},
	"Ta3+5": {1.511, 109.47, 3.170, 0.081, 12.0, 4.075, 5.100},
	"W_6+6": {1.392, 90.0, 3.069, 0.067, 12.0, 3.700, 4.630},
	"Re6+5": {1.372, 90.0, 2.954, 0.066, 12.0, 3.700, 3.960},
	"Os6+6": {1.372, 90.0, 3.120, 0.037, 12.0, 3.700, 5.140},
	"Ir6+3": {1.371, 90.0, 2.840, 0.073, 12.0, 3.731, 5.000},
	"Pt4+2": {1.364, 90.0, 2.754, 0.080, 12.0, 3.382, 4.790},
	"Au4+3": {1.262, 90.0, 3.293, 0.039, 12.0, 2.625, 4.894},
	"Hg1+2": {1.340, 180.0, 2.705, 0.385, 12.0, 1.750, 6.270},
}

// singleTypes maps elements with one usable UFF type (or one default) to it.
// Noble gases and the lanthanides after La are not parameterised.
var singleTypes = map[string]string{
	"Si": "Si3", "Se": "Se3+2", "Ge": "Ge3", "As": "As3+3", "Sn": "Sn3",
	"Sb": "Sb3+3", "Te": "Te3+2", "Pb": "Pb3", "Bi": "Bi3+3",
	"Al": "Al3", "Ga": "Ga3+3", "In": "In3+3", "Tl": "Tl3+3",
	"Li": "Li", "Na": "Na", "K": "K_", "Rb": "Rb", "Cs": "Cs",
	"Be": "Be3+2", "Mg": "Mg3+2", "Ca": "Ca6+2", "Sr": "Sr6+2", "Ba": "Ba6+2",
	"Sc": "Sc3+3", "Ti": "Ti3+4", "V": "V_3+5", "Cr": "Cr6+3", "Mn": "Mn6+2",
	"Fe": "Fe3+2", "Co": "Co6+3", "Ni": "Ni4+2", "Cu": "Cu3+1", "Zn": "Zn3+2",
	"Y": "Y_3+3", "Zr": "Zr3+4", "Nb": "Nb3+5", "Mo": "Mo3+6", "Tc": "Tc6+5",
	"Ru": "Ru6+2", "Rh": "Rh6+3", "Pd": "Pd4+2", "Ag": "Ag1+1", "Cd": "Cd3+2",
	"La": "La3+3", "Hf": "Hf3+4", "Ta": "Ta3+5", "W": "W_6+6", "Re": "Re6+5",
	"Os": "Os6+6", "Ir": "Ir6+3", "Pt": "Pt4+2", "Au": "Au4+3", "Hg": "Hg1+2",
}

// octahedralTypes replace the default for atoms with more than four
// neighbours.
var octahedralTypes = map[string]string{
	"Ti": "Ti6+4", "Fe": "Fe6+2", "Mo": "Mo6+6",
}

// squareCoordinated reports a square-planar or octahedral type, whose angle
// term has minima at both 90 and 180 degrees.
func squareCoordinated(label string, p uffParams) bool {
	return len(label) > 2 && (label[2] == '4' || label[2] == '6') && p.theta0 == 90
}

// atomType assigns the UFF type label of atom i.
func atomType(m *molecule.Molecule, i int) (string, error) {
	a := &m.Atoms[i]
	hyb := m.Hybridization(i)
	suffix := func() string {
		switch hyb {
		case molecule.HybridSP:
			return "1"
		case molecule.HybridSP2:
			return "2"
		case molecule.HybridResonant:
			return "R"
		default:
			return "3"
		}
	}

	sym := a.Element.Symbol
	var label string
	switch sym {
	case "H":
		label = "H_"
	case "C", "N", "O":
		label = sym + "_" + suffix()
	case "B":
		label = "B_3"
		if hyb == molecule.HybridSP2 || hyb == molecule.HybridResonant {
			label = "B_2"
		}
	case "S":
		valence := int(m.ExplicitValence(i)+0.1) + a.TotalHs()
		switch {
		case a.Aromatic:
			label = "S_R"
		case hyb == molecule.HybridSP2 && m.Degree(i) == 1:
			label = "S_2"
		case valence >= 6:
			label = "S_3+6"
		case valence >= 4:
			label = "S_3+4"
		default:
			label = "S_3+2"
		}
	case "P":
		label = "P_3+3"
		if int(m.ExplicitValence(i)+0.1)+a.TotalHs() >= 5 {
			label = "P_3+5"
		}
	case "F":
		label = "F_"
	case "I":
		label = "I_"
	case "Cl", "Br":
		label = sym
	default:
		label = singleTypes[sym]
		if oct, ok := octahedralTypes[sym]; ok && m.Degree(i) > 4 {
			label = oct
		}
	}
	if _, ok := uffTable[label]; !ok {
		return "", errors.Newf(errors.ErrCodeMoleculeUnsupportedElement,
			"no force-field parameters for element %s (atom %d)", sym, i)
	}
	return label, nil
}

// bondOrder is the UFF bond order used for rest lengths.
func bondOrder(t molecule.BondType) float64 {
	switch t {
	case molecule.BondDouble:
		return 2
	case molecule.BondTriple:
		return 3
	case molecule.BondQuadruple:
		return 4
	case molecule.BondAromatic:
		return 1.5
	default:
		return 1
	}
}

// restLength is the UFF natural bond length r_ij = r_i + r_j + r_BO - r_EN.
func restLength(pi, pj uffParams, order float64) float64 {
	rBO := -0.1332 * (pi.r1 + pj.r1) * math.Log(order)
	sq := math.Sqrt(pi.xi) - math.Sqrt(pj.xi)
	rEN := pi.r1 * pj.r1 * sq * sq / (pi.xi*pi.r1 + pj.xi*pj.r1)
	return pi.r1 + pj.r1 + rBO - rEN
}

// bondForceConstant is k_ij = 664.12 Z_i Z_j / r_ij^3.
func bondForceConstant(pi, pj uffParams, r0 float64) float64 {
	return 664.12 * pi.z1 * pj.z1 / (r0 * r0 * r0)
}

// angleForceConstant is the UFF K_ijk for the angle i-j-k centred on j.
func angleForceConstant(pi, pk uffParams, rij, rjk, theta0 float64) float64 {
	cos0 := math.Cos(theta0)
	rik2 := rij*rij + rjk*rjk - 2*rij*rjk*cos0
	rik := math.Sqrt(rik2)
	beta := 664.12 / (rij * rjk)
	return beta * pi.z1 * pk.z1 / (rik2 * rik2 * rik) *
		(3*rij*rjk*(1-cos0*cos0) - rik2*cos0)
}

// vdwPair returns the combined LJ distance and well depth.
func vdwPair(pi, pj uffParams) (x, d float64) {
	return math.Sqrt(pi.x1 * pj.x1), math.Sqrt(pi.d1 * pj.d1)
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
