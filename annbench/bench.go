package annbench

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// DefaultOptions returns options with 10 images gap and no distance threshold
func DefaultOptions() Options {
	return Options{
		MinGap: 10,
	}
}

// Validate checks the options values
func (o Options) Validate() error {
	if o.MinGap < 1 {
		return errors.Errorf("min_gap should be >= 1, got %d", o.MinGap)
	}
	if !(o.Threshold >= 0) || math.IsInf(o.Threshold, 0) {
		return errors.Errorf("threshold should be a finite non-negative number, got %v", o.Threshold)
	}
	return nil
}

func (l Loop) key() Loop {
	if l.Query < l.Match {
		return Loop{l.Match, l.Query}
	}
	return l
}

// PrecisionRecall returns ratio of true loops among the predicted ones,
// and ratio of found loops among the all true ones.
// Loops are unordered pairs.
func PrecisionRecall(prediction, groundTruth []Loop) (float64, float64) {
	truth := make(map[Loop]bool, len(groundTruth))
	for _, l := range groundTruth {
		truth[l.key()] = true
	}
	found := make(map[Loop]bool)
	valid := 0
	for _, l := range prediction {
		if truth[l.key()] {
			valid++
			found[l.key()] = true
		}
	}
	precision := 0.0
	if len(prediction) > 0 {
		precision = float64(valid) / float64(len(prediction))
	}
	recall := 0.0
	if len(truth) > 0 {
		recall = float64(len(found)) / float64(len(truth))
	}
	return precision, recall
}

// Evaluate compares predicted loops with the ground truth;
// dists are hash distances of the predicted loops
func Evaluate(prediction []Loop, dists []float64, groundTruth []Loop) Report {
	report := Report{
		NumPredicted: len(prediction),
		NumTruth:     len(groundTruth),
	}
	report.Precision, report.Recall = PrecisionRecall(prediction, groundTruth)
	switch {
	case len(dists) == 1:
		report.MeanDist = dists[0]
	case len(dists) > 1:
		report.MeanDist, report.StdDist = stat.MeanStdDev(dists, nil)
	}
	return report
}
