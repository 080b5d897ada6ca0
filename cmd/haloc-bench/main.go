package main

import (
	"os"

	"github.com/alexflint/go-arg"
	"github.com/cheggaaa/pb/v3"
	"go.uber.org/zap"

	"github.com/gasparian/haloc-go/annbench"
	"github.com/gasparian/haloc-go/common"
	"github.com/gasparian/haloc-go/config"
	"github.com/gasparian/haloc-go/hasher"
)

// command-line arguments, unset ones keep the config values
var args struct {
	Input     string   `arg:"positional,required" help:"hdf5 file with the images sequence"`
	Config    string   `arg:"-c" help:"yaml config path"`
	NumProj   *int     `arg:"env:NUM_PROJ" help:"number of projections"`
	Seed      *int64   `arg:"env:SEED" help:"projections seed"`
	MinGap    *int     `help:"min number of images between loop candidates"`
	Threshold *float64 `help:"max hash distance of a loop"`
	Bucketing bool     `help:"bucket keypoints before hashing"`
	Debug     bool     `help:"print every detected loop"`
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if args.Config != "" {
		loaded, err := config.Load(args.Config)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if args.NumProj != nil {
		cfg.Hash.NumProj = *args.NumProj
	}
	if args.Seed != nil {
		cfg.Hash.Seed = *args.Seed
	}
	if args.MinGap != nil {
		cfg.Bench.MinGap = *args.MinGap
	}
	if args.Threshold != nil {
		cfg.Bench.Threshold = *args.Threshold
	}
	if args.Bucketing {
		cfg.Bench.Bucketing = true
	}
	return &cfg, cfg.Validate()
}

// sample returns the first non-empty descriptors matrix
func sample(ds *annbench.Dataset) hasher.Descriptors {
	for _, desc := range ds.Descriptors {
		if len(desc) > 0 {
			return desc
		}
	}
	return nil
}

func main() {
	arg.MustParse(&args)

	logger, err := common.NewLogger(args.Debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal("bad config", zap.Error(err))
	}

	ds, err := annbench.LoadDataset(args.Input)
	if err != nil {
		logger.Fatal("can't load dataset", zap.Error(err))
	}
	logger.Info("dataset loaded",
		zap.String("path", args.Input),
		zap.Int("images", len(ds.Names)),
		zap.Int("loops", len(ds.Loops)),
		zap.Bool("keypoints", ds.KeyPoints != nil),
	)

	ctx, err := hasher.Build(cfg.Hash, sample(ds))
	if err != nil {
		logger.Fatal("can't build projection basis", zap.Error(err))
	}

	bar := pb.New(len(ds.Descriptors)).SetWriter(os.Stderr).Start()
	bench := &annbench.Bench{
		Ctx:    ctx,
		Grid:   cfg.Bucket,
		Opts:   cfg.Bench,
		Logger: logger,
		Bar:    bar,
	}
	_, report, err := bench.Run(ds)
	if err != nil {
		logger.Fatal("benchmark failed", zap.Error(err))
	}
	logger.Info("benchmark done",
		zap.Int("num_proj", ctx.NumProj()),
		zap.Int("dims", ctx.Dims()),
		zap.Int("predicted", report.NumPredicted),
		zap.Int("truth", report.NumTruth),
		zap.Float64("precision", report.Precision),
		zap.Float64("recall", report.Recall),
		zap.Float64("mean_dist", report.MeanDist),
		zap.Float64("std_dist", report.StdDist),
	)
}
