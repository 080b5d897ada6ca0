package annbench

import (
	"github.com/cheggaaa/pb/v3"
	"go.uber.org/zap"

	"github.com/gasparian/haloc-go/bucket"
	"github.com/gasparian/haloc-go/hasher"
)

// Options holds the loop detection constants
type Options struct {
	MinGap    int     `json:"min_gap" yaml:"min_gap"`     // images closer than MinGap in the sequence are never loop candidates
	Threshold float64 `json:"threshold" yaml:"threshold"` // max hash distance of an accepted loop, 0 accepts the best candidate
	Bucketing bool    `json:"bucketing" yaml:"bucketing"` // bucket keypoints before hashing, if the dataset has them
}

// Loop is a pair of images of the same place
type Loop struct {
	Query int
	Match int
}

// Dataset holds a sequence of images' features.
// KeyPoints is nil when there are no keypoints stored;
// otherwise KeyPoints[i] describes rows of Descriptors[i].
type Dataset struct {
	Names       []string
	Descriptors []hasher.Descriptors
	KeyPoints   []bucket.KeyPoints
	Loops       []Loop
}

// Bench hashes a dataset and searches for loops in it
type Bench struct {
	Ctx    *hasher.Context
	Grid   bucket.GridConfig
	Opts   Options
	Logger *zap.Logger
	Bar    *pb.ProgressBar // optional
}

// Report holds quality measures of the detected loops
type Report struct {
	Precision    float64
	Recall       float64
	MeanDist     float64
	StdDist      float64
	NumPredicted int
	NumTruth     int
}
