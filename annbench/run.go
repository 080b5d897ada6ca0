package annbench

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/gasparian/haloc-go/bucket"
	"github.com/gasparian/haloc-go/hasher"
)

func (b *Bench) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

// Validate checks that the dataset parts are consistent
func (ds *Dataset) Validate() error {
	if len(ds.Names) != len(ds.Descriptors) {
		return errors.Errorf("%d names for %d images", len(ds.Names), len(ds.Descriptors))
	}
	if ds.KeyPoints != nil && len(ds.KeyPoints) != len(ds.Descriptors) {
		return errors.Errorf("%d keypoint sets for %d images", len(ds.KeyPoints), len(ds.Descriptors))
	}
	for _, l := range ds.Loops {
		if l.Query < 0 || l.Query >= len(ds.Descriptors) || l.Match < 0 || l.Match >= len(ds.Descriptors) {
			return errors.Errorf("loop %v refers to unknown image", l)
		}
	}
	return nil
}

// features returns descriptors of image i to be hashed
func (b *Bench) features(ds *Dataset, i int) (hasher.Descriptors, error) {
	desc := ds.Descriptors[i]
	if !b.Opts.Bucketing || ds.KeyPoints == nil {
		return desc, nil
	}
	kept, err := bucket.Features(ds.KeyPoints[i], b.Grid)
	if err != nil {
		return nil, err
	}
	return desc.SelectRows(kept.Indices())
}

// HashAll computes hashes of every image in the dataset
func (b *Bench) HashAll(ds *Dataset) ([]hasher.HashVector, error) {
	if b.Ctx == nil {
		return nil, hasher.ErrNotInitialized
	}
	err := ds.Validate()
	if err != nil {
		return nil, err
	}
	hashes := make([]hasher.HashVector, len(ds.Descriptors))
	for i := range ds.Descriptors {
		desc, err := b.features(ds, i)
		if err != nil {
			return nil, errors.Wrapf(err, "image %s", ds.Names[i])
		}
		hashes[i], err = b.Ctx.Hash(desc)
		if err != nil {
			return nil, errors.Wrapf(err, "image %s", ds.Names[i])
		}
		if b.Bar != nil {
			b.Bar.Increment()
		}
	}
	if b.Bar != nil {
		b.Bar.Finish()
	}
	return hashes, nil
}

// Detect finds the closest earlier image for every image in the sequence.
// Images less than MinGap apart are skipped; with non-zero Threshold
// candidates farther than it are rejected.
func (b *Bench) Detect(hashes []hasher.HashVector) ([]Loop, []float64, error) {
	loops := make([]Loop, 0)
	dists := make([]float64, 0)
	for i := range hashes {
		last := i - b.Opts.MinGap
		if last < 0 {
			continue
		}
		candDists := make([]float64, last+1)
		for j := 0; j <= last; j++ {
			d, err := hasher.Match(hashes[i], hashes[j])
			if err != nil {
				return nil, nil, errors.Wrapf(err, "images %d and %d", i, j)
			}
			candDists[j] = d
		}
		best := floats.MinIdx(candDists)
		if b.Opts.Threshold > 0 && candDists[best] > b.Opts.Threshold {
			continue
		}
		b.logger().Debug("loop candidate",
			zap.Int("query", i),
			zap.Int("match", best),
			zap.Float64("distance", candDists[best]),
		)
		loops = append(loops, Loop{Query: i, Match: best})
		dists = append(dists, candDists[best])
	}
	return loops, dists, nil
}

// Run hashes the dataset, detects loops and evaluates them against the dataset loops
func (b *Bench) Run(ds *Dataset) ([]Loop, Report, error) {
	hashes, err := b.HashAll(ds)
	if err != nil {
		return nil, Report{}, err
	}
	loops, dists, err := b.Detect(hashes)
	if err != nil {
		return nil, Report{}, err
	}
	return loops, Evaluate(loops, dists, ds.Loops), nil
}
