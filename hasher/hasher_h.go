package hasher

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultNumProj is the number of projections used when nothing else is set
const DefaultNumProj = 1

// Params holds the hasher configuration
type Params struct {
	NumProj int   `json:"num_proj" yaml:"num_proj"` // number of random projections, i.e. the hash length
	Seed    int64 `json:"seed" yaml:"seed"`         // projection i is drawn from Seed+i
}

// Descriptors is a matrix of local feature descriptors:
// one row per keypoint, one column per descriptor dimension.
// Rows order has no meaning.
type Descriptors [][]float64

// Context holds a generated projection basis.
// It's never modified after Build, so it can be shared between goroutines.
type Context struct {
	params      Params
	dims        int
	projections [][]float64
	generation  uuid.UUID
}

// HashVector is the fingerprint of a single descriptors matrix.
// Generation identifies the basis which produced it.
type HashVector struct {
	Values     []float64
	Generation uuid.UUID
}

// SimpleHash keeps params and the current Context, guarding
// the uninitialized -> initialized transition
type SimpleHash struct {
	mutex  sync.RWMutex
	params Params
	ctx    *Context
	logger *zap.Logger
}

// Option configures SimpleHash
type Option func(*SimpleHash)
