package hasher

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gasparian/haloc-go/vector"
)

// randomUnitVector draws a gaussian vector of given size from the seeded source
// and scales it to unit length
func randomUnitVector(seed int64, size int) []float64 {
	rnd := rand.New(rand.NewSource(seed))
	vec := make([]float64, size)
	for {
		for i := range vec {
			vec[i] = rnd.NormFloat64()
		}
		// NOTE: zero draw is practically impossible, but it can't be normalized
		if unit, ok := vector.Unit(vec); ok {
			return unit
		}
	}
}

// Build creates the projection basis. The sample matrix is used
// only to discover the descriptor size.
func Build(params Params, sample Descriptors) (*Context, error) {
	err := params.Validate()
	if err != nil {
		return nil, err
	}
	rows, dims, err := sample.Dims()
	if err != nil {
		return nil, err
	}
	if rows == 0 || dims == 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "can't get descriptor size from %dx%d sample", rows, dims)
	}
	projections := make([][]float64, params.NumProj)
	for i := range projections {
		projections[i] = randomUnitVector(params.Seed+int64(i), dims)
	}
	return &Context{
		params:      params,
		dims:        dims,
		projections: projections,
		generation:  uuid.New(),
	}, nil
}

// Params returns params the basis was built with
func (c *Context) Params() Params {
	return c.params
}

// Dims returns the descriptor size
func (c *Context) Dims() int {
	return c.dims
}

// NumProj returns the hash length
func (c *Context) NumProj() int {
	return len(c.projections)
}

// Generation returns the basis identifier
func (c *Context) Generation() uuid.UUID {
	return c.generation
}

// Projections returns a copy of the basis vectors
func (c *Context) Projections() [][]float64 {
	res := make([][]float64, len(c.projections))
	for i, p := range c.projections {
		res[i] = append([]float64(nil), p...)
	}
	return res
}

// Hash reduces the descriptors matrix to a vector of NumProj values.
// Value i is the mean of dot products of projection i with every row,
// so the result doesn't depend on rows order.
func (c *Context) Hash(desc Descriptors) (HashVector, error) {
	if c == nil {
		return HashVector{}, ErrNotInitialized
	}
	rows, dims, err := desc.Dims()
	if err != nil {
		return HashVector{}, err
	}
	hash := HashVector{
		Values:     make([]float64, len(c.projections)),
		Generation: c.generation,
	}
	if rows == 0 {
		return hash, nil
	}
	if dims != c.dims {
		return HashVector{}, errors.Wrapf(ErrDimensionMismatch, "got %d, basis has %d", dims, c.dims)
	}
	mean := vector.MeanRow(desc, dims)
	for i, p := range c.projections {
		hash.Values[i] = vector.Dot(p, mean)
	}
	return hash, nil
}

// GetHash computes hash of the descriptors with the given basis
func GetHash(ctx *Context, desc Descriptors) (HashVector, error) {
	return ctx.Hash(desc)
}

// Match returns l2 distance between the two hashes; lower is more similar.
// Hashes without generation are treated as coming from any basis.
func Match(h1, h2 HashVector) (float64, error) {
	if len(h1.Values) != len(h2.Values) {
		return 0, errors.Wrapf(ErrLengthMismatch, "%d != %d", len(h1.Values), len(h2.Values))
	}
	if h1.Generation != uuid.Nil && h2.Generation != uuid.Nil && h1.Generation != h2.Generation {
		return 0, errors.Wrapf(ErrGenerationMismatch, "%s != %s", h1.Generation, h2.Generation)
	}
	return vector.L2(vector.NewVec(h1.Values), vector.NewVec(h2.Values)), nil
}

// Len returns the hash length
func (h HashVector) Len() int {
	return len(h.Values)
}
