package molecule

// Element holds the per-element data needed by the parser, the fingerprint
// and the 3-D code.
type Element struct {
	Z      int
	Symbol string
	// Mass is the standard atomic weight in Da.
	Mass float64
	// Valences lists the allowed neutral valences in ascending order. Empty
	// means no implicit hydrogens and no valence check.
	Valences []int
}

var elements = []Element{
	{1, "H", 1.008, []int{1}},
	{2, "He", 4.0026, []int{0}},
	{3, "Li", 6.94, []int{1}},
	{4, "Be", 9.0122, []int{2}},
	{5, "B", 10.81, []int{3}},
	{6, "C", 12.011, []int{4}},
	{7, "N", 14.007, []int{3}},
	{8, "O", 15.999, []int{2}},
	{9, "F", 18.998, []int{1}},
	{10, "Ne", 20.180, []int{0}},
	{11, "Na", 22.990, []int{1}},
	{12, "Mg", 24.305, []int{2}},
	{13, "Al", 26.982, []int{3}},
	{14, "Si", 28.085, []int{4}},
	{15, "P", 30.974, []int{3, 5}},
	{16, "S", 32.065, []int{2, 4, 6}},
	{17, "Cl", 35.453, []int{1}},
	{18, "Ar", 39.948, []int{0}},
	{19, "K", 39.098, []int{1}},
	{20, "Ca", 40.078, []int{2}},
	{21, "Sc", 44.956, nil},
	{22, "Ti", 47.867, nil},
	{23, "V", 50.942, nil},
	{24, "Cr", 51.996, nil},
	{25, "Mn", 54.938, nil},
	{26, "Fe", 55.845, nil},
	{27, "Co", 58.933, nil},
	{28, "Ni", 58.693, nil},
	{29, "Cu", 63.546, nil},
	{30, "Zn", 65.38, nil},
	{31, "Ga", 69.723, []int{3}},
	{32, "Ge", 72.630, []int{4}},
	{33, "As", 74.922, []int{3, 5}},
	{34, "Se", 78.971, []int{2, 4, 6}},
	{35, "Br", 79.904, []int{1}},
	{36, "Kr", 83.798, []int{0}},
	{37, "Rb", 85.468, []int{1}},
	{38, "Sr", 87.62, []int{2}},
	{39, "Y", 88.906, nil},
	{40, "Zr", 91.224, nil},
	{41, "Nb", 92.906, nil},
	{42, "Mo", 95.95, nil},
	{43, "Tc", 98.0, nil},
	{44, "Ru", 101.07, nil},
	{45, "Rh", 102.91, nil},
	{46, "Pd", 106.42, nil},
	{47, "Ag", 107.87, nil},
	{48, "Cd", 112.41, nil},
	{49, "In", 114.82, []int{3}},
	{50, "Sn", 118.71, []int{2, 4}},
	{51, "Sb", 121.76, []int{3, 5}},
	{52, "Te", 127.60, []int{2, 4, 6}},
	{53, "I", 126.90, []int{1, 3, 5}},
	{54, "Xe", 131.29, []int{0}},
	{55, "Cs", 132.91, []int{1}},
	{56, "Ba", 137.33, []int{2}},
	{57, "La", 138.91, nil},
	{58, "Ce", 140.12, nil},
	{59, "Pr", 140.91, nil},
	{60, "Nd", 144.24, nil},
	{61, "Pm", 145.0, nil},
	{62, "Sm", 150.36, nil},
	{63, "Eu", 151.96, nil},
	{64, "Gd", 157.25, nil},
	{65, "Tb", 158.93, nil},
	{66, "Dy", 162.50, nil},
	{67, "Ho", 164.93, nil},
	{68, "Er", 167.26, nil},
	{69, "Tm", 168.93, nil},
	{70, "Yb", 173.05, nil},
	{71, "Lu", 174.97, nil},
	{72, "Hf", 178.49, nil},
	{73, "Ta", 180.95, nil},
	{74, "W", 183.84, nil},
	{75, "Re", 186.21, nil},
	{76, "Os", 190.23, nil},
	{77, "Ir", 192.22, nil},
	{78, "Pt", 195.08, nil},
	{79, "Au", 196.97, nil},
	{80, "Hg", 200.59, nil},
	{81, "Tl", 204.38, nil},
	{82, "Pb", 207.2, nil},
	{83, "Bi", 208.98, nil},
	{84, "Po", 209.0, nil},
	{85, "At", 210.0, nil},
	{86, "Rn", 222.0, nil},
}

var elementBySymbol = func() map[string]*Element {
	m := make(map[string]*Element, len(elements))
	for i := range elements {
		m[elements[i].Symbol] = &elements[i]
	}
	return m
}()

// LookupElement returns the element with the given symbol, or nil.
func LookupElement(symbol string) *Element {
	return elementBySymbol[symbol]
}

// ElementByZ returns the element with atomic number z, or nil.
func ElementByZ(z int) *Element {
	if z < 1 || z > len(elements) {
		return nil
	}
	return &elements[z-1]
}

// organicSubset are the symbols that may appear outside brackets.
var organicSubset = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true,
	"F": true, "Cl": true, "Br": true, "I": true,
}

// aromaticSymbols maps lowercase aromatic symbols to element symbols. The
// two-letter forms are only valid inside brackets.
var aromaticSymbols = map[string]string{
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S",
	"se": "Se", "as": "As", "te": "Te",
}

// valencesFor returns the allowed valences for an atom with the given element
// and formal charge. Charged main-group atoms take the valences of their
// isoelectronic neutral element (N+ behaves like C, O- like F).
func valencesFor(el *Element, charge int) []int {
	if charge == 0 {
		return el.Valences
	}
	if len(el.Valences) == 0 {
		return nil
	}
	iso := ElementByZ(el.Z - charge)
	if iso == nil || len(iso.Valences) == 0 || iso.Valences[0] == 0 {
		return nil
	}
	// Only second/third-row shifts are meaningful.
	if iso.Z < 5 && el.Z > 4 {
		return nil
	}
	return iso.Valences
}
