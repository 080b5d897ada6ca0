package hasher

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// WithLogger sets the logger used by SimpleHash
func WithLogger(logger *zap.Logger) Option {
	return func(h *SimpleHash) {
		h.logger = logger
	}
}

// New creates uninitialized SimpleHash with default params
func New(opts ...Option) *SimpleHash {
	h := &SimpleHash{
		params: DefaultParams(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetParams stores params for the next Init.
// Non-positive number of projections is replaced with the default one
// and ErrInvalidParameter is returned anyway.
func (h *SimpleHash) SetParams(params Params) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	err := params.Validate()
	if err != nil {
		h.logger.Warn("invalid params, falling back to default number of projections",
			zap.Int("num_proj", params.NumProj),
			zap.Int("default", DefaultNumProj),
		)
		params.NumProj = DefaultNumProj
	}
	h.params = params
	return err
}

// Params returns currently applied params
func (h *SimpleHash) Params() Params {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.params
}

// IsInitialized returns true when the projection basis has been built
func (h *SimpleHash) IsInitialized() bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.ctx != nil
}

// Init builds a new projection basis from the sample descriptors.
// On failure the previous basis stays in place.
func (h *SimpleHash) Init(sample Descriptors) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	ctx, err := Build(h.params, sample)
	if err != nil {
		return errors.Wrap(err, "init")
	}
	if h.ctx != nil {
		h.logger.Debug("replacing projection basis, hashes of the previous one are not comparable anymore",
			zap.Stringer("previous", h.ctx.generation),
		)
	}
	h.ctx = ctx
	h.logger.Debug("projection basis generated",
		zap.Int("num_proj", ctx.NumProj()),
		zap.Int("dims", ctx.Dims()),
		zap.Stringer("generation", ctx.Generation()),
	)
	return nil
}

// Context returns the current basis or nil before Init
func (h *SimpleHash) Context() *Context {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.ctx
}

// GetHash computes the hash with the current basis
func (h *SimpleHash) GetHash(desc Descriptors) (HashVector, error) {
	return h.Context().Hash(desc)
}

// Match computes the distance between two hashes
func (h *SimpleHash) Match(h1, h2 HashVector) (float64, error) {
	return Match(h1, h2)
}
