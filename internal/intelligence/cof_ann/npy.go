package cof_ann

import (
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// array is a decoded .npy file in row-major order.
type array struct {
	Data  []float64
	Shape []int
}

func (a *array) size() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// matrix returns a 2-D array as a gonum matrix.
func (a *array) matrix() (*mat.Dense, error) {
	if len(a.Shape) != 2 {
		return nil, errors.Newf(errors.ErrCodeModelSchemaMismatch, "expected a 2-D array, got shape %v", a.Shape)
	}
	return mat.NewDense(a.Shape[0], a.Shape[1], a.Data), nil
}

// vector returns a 1-D array, also accepting (1, n) and (n, 1).
func (a *array) vector() ([]float64, error) {
	switch {
	case len(a.Shape) == 1:
		return a.Data, nil
	case len(a.Shape) == 2 && (a.Shape[0] == 1 || a.Shape[1] == 1):
		return a.Data, nil
	}
	return nil, errors.Newf(errors.ErrCodeModelSchemaMismatch, "expected a 1-D array, got shape %v", a.Shape)
}

func readArrayFile(path string) (*array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeModelArtifactLoadFailed, "open %s", path)
	}
	defer f.Close()
	a, err := readArray(f)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeModelArtifactLoadFailed, "decode %s", path)
	}
	return a, nil
}

// readArray decodes a numeric .npy stream. The header is parsed by npyio;
// the payload is read in one batch with the header's byte order.
func readArray(r io.Reader) (*array, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, err
	}
	descr := nr.Header.Descr
	a := &array{Shape: append([]int(nil), descr.Shape...)}
	if len(a.Shape) == 0 {
		a.Shape = []int{1}
	}
	n := a.size()

	order := byteOrder(descr.Type)
	switch strings.TrimLeft(descr.Type, "<>|=") {
	case "f8":
		a.Data = make([]float64, n)
		err = binary.Read(r, order, a.Data)
	case "f4":
		buf := make([]float32, n)
		err = binary.Read(r, order, buf)
		a.Data = widen(buf)
	case "i8":
		buf := make([]int64, n)
		err = binary.Read(r, order, buf)
		a.Data = widen(buf)
	case "i4":
		buf := make([]int32, n)
		err = binary.Read(r, order, buf)
		a.Data = widen(buf)
	default:
		return nil, errors.Newf(errors.ErrCodeModelUnsupported, "unsupported npy dtype %q", descr.Type)
	}
	if err != nil {
		return nil, err
	}
	if descr.Fortran && len(a.Shape) == 2 {
		a.Data = transposeColumnMajor(a.Data, a.Shape[0], a.Shape[1])
	}
	return a, nil
}

func widen[T float32 | int64 | int32](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func byteOrder(dtype string) binary.ByteOrder {
	if strings.HasPrefix(dtype, ">") {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func transposeColumnMajor(data []float64, rows, cols int) []float64 {
	out := make([]float64, len(data))
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			out[r*cols+c] = data[c*rows+r]
		}
	}
	return out
}
