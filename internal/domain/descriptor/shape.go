package descriptor

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// ShapeNames are the 3-D shape descriptor columns, in row order.
var ShapeNames = []string{
	"Asphericity",
	"Eccentricity",
	"InertialShapeFactor",
	"PMI1",
	"PMI2",
	"PMI3",
	"RadiusOfGyration",
	"SpherocityIndex",
	"NPR1",
	"NPR2",
	"PBF",
}

// Shape holds the 3-D shape descriptors of one conformer.
type Shape struct {
	Asphericity         float64 `json:"asphericity"`
	Eccentricity        float64 `json:"eccentricity"`
	InertialShapeFactor float64 `json:"inertial_shape_factor"`
	PMI1                float64 `json:"pmi1"`
	PMI2                float64 `json:"pmi2"`
	PMI3                float64 `json:"pmi3"`
	RadiusOfGyration    float64 `json:"radius_of_gyration"`
	SpherocityIndex     float64 `json:"spherocity_index"`
	NPR1                float64 `json:"npr1"`
	NPR2                float64 `json:"npr2"`
	PBF                 float64 `json:"pbf"`
}

// Values returns the descriptors in ShapeNames order.
func (s Shape) Values() []float64 {
	return []float64{
		s.Asphericity,
		s.Eccentricity,
		s.InertialShapeFactor,
		s.PMI1,
		s.PMI2,
		s.PMI3,
		s.RadiusOfGyration,
		s.SpherocityIndex,
		s.NPR1,
		s.NPR2,
		s.PBF,
	}
}

// planarMomentTol is the smallest principal moment below which a conformer
// is treated as planar for the radius of gyration.
const planarMomentTol = 1e-4

// ComputeShape derives the shape descriptors from atom positions and masses.
// Moments come from the mass-weighted inertia tensor about the centre of
// mass; the spherocity index and plane of best fit use unweighted positions.
func ComputeShape(pos []r3.Vec, masses []float64) (Shape, error) {
	if len(pos) == 0 || len(pos) != len(masses) {
		return Shape{}, errors.Newf(errors.ErrCodeDescriptorCalculationFailed,
			"need one mass per position, got %d positions and %d masses", len(pos), len(masses))
	}

	pm, err := principalMoments(pos, masses)
	if err != nil {
		return Shape{}, err
	}
	pm1, pm2, pm3 := pm[0], pm[1], pm[2]
	total := 0.0
	for _, w := range masses {
		total += w
	}

	var s Shape
	s.PMI1, s.PMI2, s.PMI3 = pm1, pm2, pm3
	s.NPR1 = safeDiv(pm1, pm3)
	s.NPR2 = safeDiv(pm2, pm3)
	s.InertialShapeFactor = safeDiv(pm2, pm1*pm3)
	if pm3 > 0 {
		s.Eccentricity = math.Sqrt(math.Max(0, pm3*pm3-pm1*pm1)) / pm3
	}
	sumSq := pm1*pm1 + pm2*pm2 + pm3*pm3
	s.Asphericity = safeDiv(0.5*((pm3-pm2)*(pm3-pm2)+(pm3-pm1)*(pm3-pm1)+(pm2-pm1)*(pm2-pm1)), sumSq)
	if pm1 < planarMomentTol {
		s.RadiusOfGyration = math.Sqrt(safeDiv(math.Sqrt(pm3*pm2), total))
	} else {
		s.RadiusOfGyration = math.Sqrt(safeDiv(2*math.Pi*math.Cbrt(pm1*pm2*pm3), total))
	}

	ev, vecs, err := covarianceEigen(pos)
	if err != nil {
		return Shape{}, err
	}
	s.SpherocityIndex = safeDiv(3*ev[0], ev[0]+ev[1]+ev[2])
	s.PBF = planeOfBestFit(pos, vecs)
	return s, nil
}

// principalMoments returns the eigenvalues of the inertia tensor, ascending.
func principalMoments(pos []r3.Vec, masses []float64) ([3]float64, error) {
	com := r3.Vec{}
	total := 0.0
	for i, p := range pos {
		com = r3.Add(com, r3.Scale(masses[i], p))
		total += masses[i]
	}
	if total <= 0 {
		return [3]float64{}, errors.New(errors.ErrCodeDescriptorCalculationFailed, "total mass must be positive")
	}
	com = r3.Scale(1/total, com)

	var ixx, iyy, izz, ixy, ixz, iyz float64
	for i, p := range pos {
		d := r3.Sub(p, com)
		w := masses[i]
		ixx += w * (d.Y*d.Y + d.Z*d.Z)
		iyy += w * (d.X*d.X + d.Z*d.Z)
		izz += w * (d.X*d.X + d.Y*d.Y)
		ixy -= w * d.X * d.Y
		ixz -= w * d.X * d.Z
		iyz -= w * d.Y * d.Z
	}
	tensor := mat.NewSymDense(3, []float64{
		ixx, ixy, ixz,
		ixy, iyy, iyz,
		ixz, iyz, izz,
	})
	var eig mat.EigenSym
	if ok := eig.Factorize(tensor, false); !ok {
		return [3]float64{}, errors.New(errors.ErrCodeDescriptorCalculationFailed, "inertia tensor eigen-decomposition failed")
	}
	vals := eig.Values(nil)
	slices.Sort(vals)
	return [3]float64{clampZero(vals[0]), clampZero(vals[1]), clampZero(vals[2])}, nil
}

// covarianceEigen returns the ascending eigenvalues of the unweighted
// positional covariance and the matching eigenvectors as columns.
func covarianceEigen(pos []r3.Vec) ([3]float64, *mat.Dense, error) {
	centre := r3.Vec{}
	for _, p := range pos {
		centre = r3.Add(centre, p)
	}
	centre = r3.Scale(1/float64(len(pos)), centre)

	var xx, yy, zz, xy, xz, yz float64
	for _, p := range pos {
		d := r3.Sub(p, centre)
		xx += d.X * d.X
		yy += d.Y * d.Y
		zz += d.Z * d.Z
		xy += d.X * d.Y
		xz += d.X * d.Z
		yz += d.Y * d.Z
	}
	n := float64(len(pos))
	cov := mat.NewSymDense(3, []float64{
		xx / n, xy / n, xz / n,
		xy / n, yy / n, yz / n,
		xz / n, yz / n, zz / n,
	})
	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return [3]float64{}, nil, errors.New(errors.ErrCodeDescriptorCalculationFailed, "covariance eigen-decomposition failed")
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	vals := eig.Values(nil)
	// gonum returns eigenvalues in ascending order.
	return [3]float64{clampZero(vals[0]), clampZero(vals[1]), clampZero(vals[2])}, &vecs, nil
}

// planeOfBestFit is the mean absolute distance of the atoms from the plane
// through their centroid whose normal is the least-variance direction.
func planeOfBestFit(pos []r3.Vec, vecs *mat.Dense) float64 {
	normal := r3.Unit(r3.Vec{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)})
	centre := r3.Vec{}
	for _, p := range pos {
		centre = r3.Add(centre, p)
	}
	centre = r3.Scale(1/float64(len(pos)), centre)
	sum := 0.0
	for _, p := range pos {
		sum += math.Abs(r3.Dot(r3.Sub(p, centre), normal))
	}
	return sum / float64(len(pos))
}

func safeDiv(a, b float64) float64 {
	if b == 0 || math.IsNaN(b) {
		return 0
	}
	return a / b
}

// clampZero removes tiny negative eigenvalues from rounding.
func clampZero(v float64) float64 {
	if v < 0 && v > -1e-9 {
		return 0
	}
	return v
}
