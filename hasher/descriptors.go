package hasher

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Dims returns number of rows and columns of the matrix.
// Rows of different size make the matrix malformed.
func (d Descriptors) Dims() (int, int, error) {
	if len(d) == 0 {
		return 0, 0, nil
	}
	cols := len(d[0])
	for i, row := range d {
		if len(row) != cols {
			return 0, 0, errors.Wrapf(ErrInvalidInput, "row %d has %d values, expected %d", i, len(row), cols)
		}
	}
	return len(d), cols, nil
}

// SelectRows returns a new matrix made of the rows with given indices
func (d Descriptors) SelectRows(idx []int) (Descriptors, error) {
	res := make(Descriptors, 0, len(idx))
	for _, i := range idx {
		if i < 0 || i >= len(d) {
			return nil, errors.Wrapf(ErrInvalidInput, "row index %d is out of range [0, %d)", i, len(d))
		}
		res = append(res, d[i])
	}
	return res, nil
}

// FromMatrix copies a gonum matrix into Descriptors
func FromMatrix(m mat.Matrix) Descriptors {
	rows, _ := m.Dims()
	res := make(Descriptors, rows)
	for i := range res {
		res[i] = mat.Row(nil, i, m)
	}
	return res
}

// FromBinary unpacks bit-string descriptors (BRIEF, ORB) into 0/1 rows.
// Bit i of a descriptor lives at word i/64, position i%64.
func FromBinary(descs [][]uint64, nbits int) (Descriptors, error) {
	if nbits <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "number of bits must be positive, got %d", nbits)
	}
	res := make(Descriptors, len(descs))
	for k, desc := range descs {
		if len(desc)*64 < nbits {
			return nil, errors.Wrapf(ErrInvalidInput, "descriptor %d holds %d bits, expected %d", k, len(desc)*64, nbits)
		}
		row := make([]float64, nbits)
		for i := range row {
			if desc[i/64]&(1<<uint(i%64)) != 0 {
				row[i] = 1.0
			}
		}
		res[k] = row
	}
	return res, nil
}
