// Package bucket spreads keypoints over the image by capping
// the number of keypoints kept in every cell of a regular grid.
package bucket

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ErrInvalidGrid is returned for unusable grid configurations.
var ErrInvalidGrid = errors.New("invalid bucketing grid")

// maxCells bounds the grid size, so cell indices always fit into int.
const maxCells = math.MaxInt32

type (
	// KeyPoint is a detected image location with its detector response.
	// Index points to the keypoint descriptor row.
	KeyPoint struct {
		X        float64
		Y        float64
		Response float64
		Index    int
	}
	// KeyPoints is a set of keypoints.
	KeyPoints []KeyPoint
)

// GridConfig stores the bucketing parameters.
// Zero Width or Height means the extent is taken from the farthest keypoint.
type GridConfig struct {
	CellWidth  float64 `json:"cell_width" yaml:"cell_width"`
	CellHeight float64 `json:"cell_height" yaml:"cell_height"`
	MaxPerCell int     `json:"max_per_cell" yaml:"max_per_cell"`
	Width      float64 `json:"width" yaml:"width"`
	Height     float64 `json:"height" yaml:"height"`
}

// DefaultGridConfig returns 50x50 px cells holding up to 3 keypoints each.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		CellWidth:  50,
		CellHeight: 50,
		MaxPerCell: 3,
	}
}

// Validate ensures all parts of the GridConfig are valid.
func (cfg GridConfig) Validate() error {
	var err error
	if !(cfg.CellWidth > 0) || math.IsInf(cfg.CellWidth, 1) {
		err = multierr.Append(err, errors.Errorf("cell_width should be finite and > 0, got %v", cfg.CellWidth))
	}
	if !(cfg.CellHeight > 0) || math.IsInf(cfg.CellHeight, 1) {
		err = multierr.Append(err, errors.Errorf("cell_height should be finite and > 0, got %v", cfg.CellHeight))
	}
	if cfg.MaxPerCell < 1 {
		err = multierr.Append(err, errors.Errorf("max_per_cell should be >= 1, got %d", cfg.MaxPerCell))
	}
	if !(cfg.Width >= 0) || !(cfg.Height >= 0) || math.IsInf(cfg.Width, 1) || math.IsInf(cfg.Height, 1) {
		err = multierr.Append(err, errors.Errorf("grid extent should be finite and >= 0, got %vx%v", cfg.Width, cfg.Height))
	}
	if err != nil {
		return errors.Wrapf(ErrInvalidGrid, "%v", err)
	}
	return nil
}

// Grid maps image coordinates to cells.
type Grid struct {
	cfg  GridConfig
	Cols int
	Rows int
}

// numCells returns how many cells of given size cover the extent.
// Zero extent is replaced with the farthest coordinate, which then has to fall into the last cell.
func numCells(extent, maxCoord, cell float64) float64 {
	if extent > 0 {
		return math.Ceil(extent / cell)
	}
	if maxCoord < 0 {
		return 1
	}
	return math.Floor(maxCoord/cell) + 1
}

// NewGrid creates grid for the keypoints with given config.
func NewGrid(kps KeyPoints, cfg GridConfig) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	xMax, yMax := 0.0, 0.0
	for _, kp := range kps {
		if math.IsNaN(kp.X) || math.IsInf(kp.X, 0) || math.IsNaN(kp.Y) || math.IsInf(kp.Y, 0) {
			return nil, errors.Wrapf(ErrInvalidGrid, "keypoint %d has non-finite coordinates (%v, %v)", kp.Index, kp.X, kp.Y)
		}
		if kp.X > xMax {
			xMax = kp.X
		}
		if kp.Y > yMax {
			yMax = kp.Y
		}
	}
	cols := numCells(cfg.Width, xMax, cfg.CellWidth)
	rows := numCells(cfg.Height, yMax, cfg.CellHeight)
	if cols*rows > maxCells {
		return nil, errors.Wrapf(ErrInvalidGrid, "%vx%v cells exceed the limit of %d", cols, rows, maxCells)
	}
	return &Grid{
		cfg:  cfg,
		Cols: int(cols),
		Rows: int(rows),
	}, nil
}

// NumCells returns total number of cells.
func (g *Grid) NumCells() int {
	return g.Cols * g.Rows
}

// cellPos returns position of the coordinate along an axis of n cells, clipped to [0, n-1].
func cellPos(coord, cell float64, n int) int {
	pos := math.Floor(coord / cell)
	if pos < 0 || math.IsNaN(pos) {
		return 0
	}
	if pos > float64(n-1) {
		return n - 1
	}
	return int(pos)
}

// Cell returns the row-major cell index of the keypoint.
// Keypoints out of the grid extent are clipped to the nearest border cell.
func (g *Grid) Cell(kp KeyPoint) int {
	u := cellPos(kp.X, g.cfg.CellWidth, g.Cols)
	v := cellPos(kp.Y, g.cfg.CellHeight, g.Rows)
	return v*g.Cols + u
}

// Features keeps at most MaxPerCell keypoints with the strongest response in every grid cell.
// Cells are visited in row-major order; inside a cell keypoints are ordered by decreasing response,
// equal responses keep their input order.
func Features(kps KeyPoints, cfg GridConfig) (KeyPoints, error) {
	grid, err := NewGrid(kps, cfg)
	if err != nil {
		return nil, err
	}
	buckets := make(map[int]KeyPoints)
	for _, kp := range kps {
		cell := grid.Cell(kp)
		buckets[cell] = append(buckets[cell], kp)
	}
	cells := make([]int, 0, len(buckets))
	for cell := range buckets {
		cells = append(cells, cell)
	}
	sort.Ints(cells)

	out := make(KeyPoints, 0, len(kps))
	for _, cell := range cells {
		bucket := buckets[cell]
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].Response > bucket[j].Response
		})
		if len(bucket) > cfg.MaxPerCell {
			bucket = bucket[:cfg.MaxPerCell]
		}
		out = append(out, bucket...)
	}
	return out, nil
}

// Indices returns descriptor row indices of the keypoints.
func (kps KeyPoints) Indices() []int {
	idx := make([]int, len(kps))
	for i, kp := range kps {
		idx[i] = kp.Index
	}
	return idx
}
