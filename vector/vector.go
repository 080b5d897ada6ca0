package vector

import (
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
)

// Tol is the tolerance used to treat floating values as zero
const Tol = 1e-6

// ConvertTo64 widens float32 values read from external sources
func ConvertTo64(ar []float32) []float64 {
	newar := make([]float64, len(ar))
	for i, v := range ar {
		newar[i] = float64(v)
	}
	return newar
}

// NewVec creates new blas vector
func NewVec(data []float64) blas64.Vector {
	if data == nil {
		data = make([]float64, 0)
	}
	return blas64.Vector{
		N:    len(data),
		Inc:  1,
		Data: data,
	}
}

// Dot calculates dot product of two equally sized slices
func Dot(a, b []float64) float64 {
	return blas64.Dot(NewVec(a), NewVec(b))
}

// Norm returns euclidean norm of the slice
func Norm(a []float64) float64 {
	return blas64.Nrm2(NewVec(a))
}

// L2 calculates l2-distance between two vectors.
// Neither of the inputs is modified.
func L2(a, b blas64.Vector) float64 {
	res := NewVec(make([]float64, b.N))
	blas64.Copy(b, res)
	blas64.Axpy(-1.0, a, res)
	return blas64.Nrm2(res)
}

// Unit returns a copy of v scaled to unit euclidean length;
// false is returned if v is (close to) the zero vector
func Unit(v []float64) ([]float64, bool) {
	vec := NewVec(make([]float64, len(v)))
	copy(vec.Data, v)
	if IsZeroVector(vec) {
		return nil, false
	}
	norm := blas64.Nrm2(vec)
	if norm <= Tol || math.IsInf(norm, 0) || math.IsNaN(norm) {
		return nil, false
	}
	blas64.Scal(1/norm, vec)
	return vec.Data, true
}

// MeanRow returns the column-wise mean of the rows; every row must have dims values.
// Zero rows give the zero vector.
func MeanRow(rows [][]float64, dims int) []float64 {
	mean := NewVec(make([]float64, dims))
	if len(rows) == 0 {
		return mean.Data
	}
	w := 1 / float64(len(rows))
	for _, row := range rows {
		blas64.Axpy(w, NewVec(row), mean)
	}
	return mean.Data
}

// IsZeroVector returns true if the sum of vectors' absolute values is close to 0.0
func IsZeroVector(v blas64.Vector) bool {
	return blas64.Asum(v) <= Tol
}

// Equal compares two slices element-wise within tol
func Equal(a, b []float64, tol float64) bool {
	return floats.EqualApprox(a, b, tol)
}
