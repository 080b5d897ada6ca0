package annbench

import (
	"math"
	"math/rand"
	"path/filepath"
	"strconv"
	"testing"

	"go.uber.org/zap/zaptest"
	"gonum.org/v1/hdf5"

	"github.com/gasparian/haloc-go/bucket"
	"github.com/gasparian/haloc-go/hasher"
)

const (
	numScenes   = 20
	numRevisits = 10
	dims        = 8
	rowsPerImg  = 30
)

func sceneDescriptors(rnd *rand.Rand) hasher.Descriptors {
	offset := make([]float64, dims)
	for j := range offset {
		offset[j] = rnd.NormFloat64() * 10
	}
	desc := make(hasher.Descriptors, rowsPerImg)
	for i := range desc {
		desc[i] = make([]float64, dims)
		for j := range desc[i] {
			desc[i][j] = offset[j] + rnd.Float64() - 0.5
		}
	}
	return desc
}

func revisit(rnd *rand.Rand, desc hasher.Descriptors) hasher.Descriptors {
	res := make(hasher.Descriptors, len(desc))
	for i := range desc {
		res[i] = make([]float64, len(desc[i]))
		for j := range desc[i] {
			res[i][j] = desc[i][j] + (rnd.Float64()-0.5)*1e-3
		}
	}
	rnd.Shuffle(len(res), func(i, j int) {
		res[i], res[j] = res[j], res[i]
	})
	return res
}

// sequence of distinct scenes followed by revisits of the first ones
func syntheticDataset(seed int64) *Dataset {
	rnd := rand.New(rand.NewSource(seed))
	ds := &Dataset{}
	for i := 0; i < numScenes; i++ {
		ds.Names = append(ds.Names, "img"+strconv.Itoa(i))
		ds.Descriptors = append(ds.Descriptors, sceneDescriptors(rnd))
	}
	for k := 0; k < numRevisits; k++ {
		i := numScenes + k
		ds.Names = append(ds.Names, "img"+strconv.Itoa(i))
		ds.Descriptors = append(ds.Descriptors, revisit(rnd, ds.Descriptors[k]))
		ds.Loops = append(ds.Loops, Loop{Query: i, Match: k})
	}
	return ds
}

func TestOptionsValidate(t *testing.T) {
	t.Parallel()
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("Default options must be valid: %v", err)
	}
	invalid := []Options{
		{MinGap: 0},
		{MinGap: 1, Threshold: -1},
		{MinGap: 1, Threshold: math.NaN()},
		{MinGap: 1, Threshold: math.Inf(1)},
	}
	for _, opts := range invalid {
		if opts.Validate() == nil {
			t.Errorf("Options %+v must be rejected", opts)
		}
	}
}

func TestPrecisionRecall(t *testing.T) {
	t.Parallel()
	truth := []Loop{{10, 0}, {11, 1}, {12, 2}, {13, 3}}
	prediction := []Loop{{0, 10}, {11, 1}, {12, 5}}
	precision, recall := PrecisionRecall(prediction, truth)
	if math.Abs(precision-2.0/3.0) > 1e-9 {
		t.Errorf("Wrong precision: %v", precision)
	}
	if recall != 0.5 {
		t.Errorf("Wrong recall: %v", recall)
	}

	precision, recall = PrecisionRecall(nil, truth)
	if precision != 0 || recall != 0 {
		t.Errorf("Empty prediction must give zero scores, got %v, %v", precision, recall)
	}
	precision, recall = PrecisionRecall(prediction, nil)
	if precision != 0 || recall != 0 {
		t.Errorf("Empty ground truth must give zero scores, got %v, %v", precision, recall)
	}

	// duplicates are not counted twice in recall
	precision, recall = PrecisionRecall([]Loop{{10, 0}, {0, 10}}, truth)
	if precision != 1 || recall != 0.25 {
		t.Errorf("Wrong scores for duplicated prediction: %v, %v", precision, recall)
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()
	truth := []Loop{{10, 0}, {11, 1}}
	report := Evaluate([]Loop{{10, 0}, {11, 1}}, []float64{1, 3}, truth)
	if report.Precision != 1 || report.Recall != 1 {
		t.Errorf("Wrong scores: %+v", report)
	}
	if report.MeanDist != 2 {
		t.Errorf("Wrong mean distance: %v", report.MeanDist)
	}
	if math.Abs(report.StdDist-math.Sqrt2) > 1e-9 {
		t.Errorf("Wrong distance std: %v", report.StdDist)
	}
	if report.NumPredicted != 2 || report.NumTruth != 2 {
		t.Errorf("Wrong counters: %+v", report)
	}

	report = Evaluate([]Loop{{10, 0}}, []float64{5}, truth)
	if report.MeanDist != 5 || report.StdDist != 0 {
		t.Errorf("Single distance stats are wrong: %+v", report)
	}
}

func TestDatasetValidate(t *testing.T) {
	t.Parallel()
	ds := syntheticDataset(1)
	if err := ds.Validate(); err != nil {
		t.Fatalf("Synthetic dataset must be valid: %v", err)
	}
	broken := *ds
	broken.Names = broken.Names[1:]
	if broken.Validate() == nil {
		t.Error("Names count mismatch must be rejected")
	}
	broken = *ds
	broken.KeyPoints = make([]bucket.KeyPoints, 1)
	if broken.Validate() == nil {
		t.Error("Keypoints count mismatch must be rejected")
	}
	broken = *ds
	broken.Loops = []Loop{{Query: 100, Match: 0}}
	if broken.Validate() == nil {
		t.Error("Loop with unknown image must be rejected")
	}
}

func TestHashAllNotInitialized(t *testing.T) {
	t.Parallel()
	b := &Bench{Opts: DefaultOptions()}
	_, err := b.HashAll(syntheticDataset(1))
	if err != hasher.ErrNotInitialized {
		t.Fatalf("Expected ErrNotInitialized, got %v", err)
	}
}

func TestRunSynthetic(t *testing.T) {
	t.Parallel()
	ds := syntheticDataset(42)
	ctx, err := hasher.Build(hasher.Params{NumProj: 16, Seed: 7}, ds.Descriptors[0])
	if err != nil {
		t.Fatal(err)
	}
	b := &Bench{
		Ctx:    ctx,
		Grid:   bucket.DefaultGridConfig(),
		Opts:   Options{MinGap: 10, Threshold: 1.0},
		Logger: zaptest.NewLogger(t),
	}
	loops, report, err := b.Run(ds)
	if err != nil {
		t.Fatal(err)
	}
	if len(loops) != numRevisits {
		t.Fatalf("Expected %d loops, got %d: %v", numRevisits, len(loops), loops)
	}
	for i, l := range loops {
		if l != ds.Loops[i] {
			t.Errorf("Expected loop %v, got %v", ds.Loops[i], l)
		}
	}
	if report.Precision != 1 || report.Recall != 1 {
		t.Errorf("Expected perfect scores, got %+v", report)
	}
	if report.MeanDist > 0.01 {
		t.Errorf("Revisits must be close, mean distance is %v", report.MeanDist)
	}
}

func TestDetectMinGap(t *testing.T) {
	t.Parallel()
	ds := syntheticDataset(3)
	ctx, err := hasher.Build(hasher.Params{NumProj: 4}, ds.Descriptors[0])
	if err != nil {
		t.Fatal(err)
	}
	b := &Bench{Ctx: ctx, Opts: Options{MinGap: 5}}
	hashes, err := b.HashAll(ds)
	if err != nil {
		t.Fatal(err)
	}
	loops, dists, err := b.Detect(hashes)
	if err != nil {
		t.Fatal(err)
	}
	// no threshold: every image far enough from the start gets a candidate
	if len(loops) != len(hashes)-5 || len(dists) != len(loops) {
		t.Fatalf("Expected %d loops, got %d", len(hashes)-5, len(loops))
	}
	for _, l := range loops {
		if l.Query-l.Match < 5 {
			t.Errorf("Loop %v violates min gap", l)
		}
	}
}

func TestDetectGenerationMismatch(t *testing.T) {
	t.Parallel()
	ds := syntheticDataset(5)
	ctx1, _ := hasher.Build(hasher.Params{NumProj: 2}, ds.Descriptors[0])
	ctx2, _ := hasher.Build(hasher.Params{NumProj: 2}, ds.Descriptors[0])
	h1, _ := ctx1.Hash(ds.Descriptors[0])
	h2, _ := ctx2.Hash(ds.Descriptors[1])
	b := &Bench{Opts: Options{MinGap: 1}}
	_, _, err := b.Detect([]hasher.HashVector{h1, h2})
	if err == nil {
		t.Fatal("Hashes of different bases must not be compared")
	}
}

func TestHashAllBucketing(t *testing.T) {
	t.Parallel()
	desc := hasher.Descriptors{
		{1, 0},
		{0, 1},
		{5, 5},
	}
	ds := &Dataset{
		Names:       []string{"img"},
		Descriptors: []hasher.Descriptors{desc},
		KeyPoints: []bucket.KeyPoints{{
			{X: 1, Y: 1, Response: 0.1, Index: 0},
			{X: 2, Y: 2, Response: 0.9, Index: 1},
			{X: 3, Y: 3, Response: 0.5, Index: 2},
		}},
	}
	ctx, err := hasher.Build(hasher.Params{NumProj: 3}, desc)
	if err != nil {
		t.Fatal(err)
	}
	b := &Bench{
		Ctx:  ctx,
		Grid: bucket.GridConfig{CellWidth: 10, CellHeight: 10, MaxPerCell: 1},
		Opts: Options{MinGap: 1, Bucketing: true},
	}
	hashes, err := b.HashAll(ds)
	if err != nil {
		t.Fatal(err)
	}
	expected, err := ctx.Hash(hasher.Descriptors{{0, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if d, _ := hasher.Match(hashes[0], expected); d > 1e-12 {
		t.Errorf("Only the strongest keypoint must be hashed, distance is %v", d)
	}

	b.Opts.Bucketing = false
	hashes, err = b.HashAll(ds)
	if err != nil {
		t.Fatal(err)
	}
	expected, _ = ctx.Hash(desc)
	if d, _ := hasher.Match(hashes[0], expected); d > 1e-12 {
		t.Errorf("Without bucketing all descriptors must be hashed, distance is %v", d)
	}
}

func writeMatrix(t *testing.T, fg interface {
	CreateDataset(string, *hdf5.Datatype, *hdf5.Dataspace) (*hdf5.Dataset, error)
}, name string, dtype *hdf5.Datatype, rows, cols uint, data interface{}) {
	t.Helper()
	space, err := hdf5.CreateSimpleDataspace([]uint{rows, cols}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer space.Close()
	dataset, err := fg.CreateDataset(name, dtype, space)
	if err != nil {
		t.Fatal(err)
	}
	defer dataset.Close()
	err = dataset.Write(data)
	if err != nil {
		t.Fatal(err)
	}
}

// writeDataset stores two images "a" and "b" with keypoints and the given loops matrix
func writeDataset(t *testing.T, loops []int32, loopCols uint) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seq.hdf5")
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	descGroup, err := f.CreateGroup(descriptorsGroup)
	if err != nil {
		t.Fatal(err)
	}
	writeMatrix(t, descGroup, "b", hdf5.T_NATIVE_FLOAT, 2, 3, &[]float32{1, 2, 3, 4, 5, 6})
	writeMatrix(t, descGroup, "a", hdf5.T_NATIVE_FLOAT, 1, 3, &[]float32{7, 8, 9})
	descGroup.Close()

	kpGroup, err := f.CreateGroup(keypointsGroup)
	if err != nil {
		t.Fatal(err)
	}
	writeMatrix(t, kpGroup, "b", hdf5.T_NATIVE_FLOAT, 2, 3, &[]float32{10, 20, 0.5, 30, 40, 0.25})
	writeMatrix(t, kpGroup, "a", hdf5.T_NATIVE_FLOAT, 1, 3, &[]float32{1, 1, 1})
	kpGroup.Close()

	writeMatrix(t, f, loopsDataset, hdf5.T_NATIVE_INT32, uint(len(loops))/loopCols, loopCols, &loops)
	return path
}

func TestLoadDataset(t *testing.T) {
	ds, err := LoadDataset(writeDataset(t, []int32{1, 0}, 2))
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Names) != 2 || ds.Names[0] != "a" || ds.Names[1] != "b" {
		t.Fatalf("Images must be sorted by name, got %v", ds.Names)
	}
	if len(ds.Descriptors[1]) != 2 || ds.Descriptors[1][1][2] != 6 {
		t.Errorf("Wrong descriptors: %v", ds.Descriptors[1])
	}
	if ds.KeyPoints == nil || ds.KeyPoints[1][1] != (bucket.KeyPoint{X: 30, Y: 40, Response: 0.25, Index: 1}) {
		t.Errorf("Wrong keypoints: %v", ds.KeyPoints)
	}
	if len(ds.Loops) != 1 || ds.Loops[0] != (Loop{Query: 1, Match: 0}) {
		t.Errorf("Wrong loops: %v", ds.Loops)
	}
}

func TestLoadDatasetWideLoops(t *testing.T) {
	ds, err := LoadDataset(writeDataset(t, []int32{1, 0, 0, 1}, 4))
	if err == nil {
		t.Fatalf("Loops with 4 columns must be rejected, got %v", ds.Loops)
	}
	if ds != nil {
		t.Error("No dataset must be returned with an error")
	}
}

func TestLoadDatasetUnknownLoopImage(t *testing.T) {
	ds, err := LoadDataset(writeDataset(t, []int32{5, 0}, 2))
	if err == nil {
		t.Fatal("Loop with unknown image must be rejected")
	}
	if ds != nil {
		t.Error("No dataset must be returned with an error")
	}
}

func TestLoadDatasetMissing(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "none.hdf5"))
	if err == nil {
		t.Fatal("Missing file must be reported")
	}
}
