package annbench

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/hdf5"

	"github.com/gasparian/haloc-go/bucket"
	"github.com/gasparian/haloc-go/hasher"
	"github.com/gasparian/haloc-go/vector"
)

// Objects inside the hdf5:
// descriptors/<image> - float32 matrix, one row per keypoint
// keypoints/<image>   - float32 matrix of (x, y, response) rows, optional
// loops               - int32 matrix of (query, match) rows, optional
// Images are ordered by name.
const (
	descriptorsGroup = "descriptors"
	keypointsGroup   = "keypoints"
	loopsDataset     = "loops"
)

type container interface {
	NumObjects() (uint, error)
	ObjectNameByIndex(idx uint) (string, error)
}

func objectNames(c container) ([]string, error) {
	n, err := c.NumObjects()
	if err != nil {
		return nil, err
	}
	names := make([]string, n)
	for i := range names {
		names[i], err = c.ObjectNameByIndex(uint(i))
		if err != nil {
			return nil, err
		}
	}
	return names, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// readMatrix reads 2D dataset as rows of float64
func readMatrix(dataset *hdf5.Dataset, expectedCols int) ([][]float64, error) {
	space := dataset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, err
	}
	if len(dims) != 2 {
		return nil, errors.Errorf("expected 2D dataset, got %d dimensions", len(dims))
	}
	rows, cols := int(dims[0]), int(dims[1])
	if expectedCols > 0 && cols != expectedCols {
		return nil, errors.Errorf("expected %d columns, got %d", expectedCols, cols)
	}
	data := make([]float32, space.SimpleExtentNPoints())
	if len(data) > 0 {
		err = dataset.Read(&data)
		if err != nil {
			return nil, err
		}
	}
	res := make([][]float64, rows)
	for i := range res {
		res[i] = vector.ConvertTo64(data[i*cols : (i+1)*cols])
	}
	return res, nil
}

func readGroupMatrix(group *hdf5.Group, name string, expectedCols int) ([][]float64, error) {
	dataset, err := group.OpenDataset(name)
	if err != nil {
		return nil, err
	}
	defer dataset.Close()
	return readMatrix(dataset, expectedCols)
}

func readLoops(file *hdf5.File) ([]Loop, error) {
	dataset, err := file.OpenDataset(loopsDataset)
	if err != nil {
		return nil, err
	}
	defer dataset.Close()
	space := dataset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, err
	}
	if len(dims) != 2 || dims[1] != 2 {
		return nil, errors.Errorf("loops dataset must be Nx2, got %v", dims)
	}
	data := make([]int32, space.SimpleExtentNPoints())
	if len(data) > 0 {
		err = dataset.Read(&data)
		if err != nil {
			return nil, err
		}
	}
	loops := make([]Loop, len(data)/2)
	for i := range loops {
		loops[i] = Loop{Query: int(data[2*i]), Match: int(data[2*i+1])}
	}
	return loops, nil
}

// LoadDataset reads the images' features from the hdf5 file
func LoadDataset(path string) (*Dataset, error) {
	file, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	rootNames, err := objectNames(file)
	if err != nil {
		return nil, err
	}
	if !contains(rootNames, descriptorsGroup) {
		return nil, errors.Errorf("%s has no %q group", path, descriptorsGroup)
	}
	descGroup, err := file.OpenGroup(descriptorsGroup)
	if err != nil {
		return nil, err
	}
	defer descGroup.Close()
	names, err := objectNames(descGroup)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	ds := &Dataset{
		Names:       names,
		Descriptors: make([]hasher.Descriptors, len(names)),
	}
	for i, name := range names {
		rows, err := readGroupMatrix(descGroup, name, 0)
		if err != nil {
			return nil, errors.Wrapf(err, "descriptors of %s", name)
		}
		ds.Descriptors[i] = rows
	}

	if contains(rootNames, keypointsGroup) {
		kpGroup, err := file.OpenGroup(keypointsGroup)
		if err != nil {
			return nil, err
		}
		defer kpGroup.Close()
		ds.KeyPoints = make([]bucket.KeyPoints, len(names))
		for i, name := range names {
			rows, err := readGroupMatrix(kpGroup, name, 3)
			if err != nil {
				return nil, errors.Wrapf(err, "keypoints of %s", name)
			}
			if len(rows) != len(ds.Descriptors[i]) {
				return nil, errors.Errorf("%s has %d keypoints and %d descriptors", name, len(rows), len(ds.Descriptors[i]))
			}
			kps := make(bucket.KeyPoints, len(rows))
			for j, row := range rows {
				kps[j] = bucket.KeyPoint{X: row[0], Y: row[1], Response: row[2], Index: j}
			}
			ds.KeyPoints[i] = kps
		}
	}

	if contains(rootNames, loopsDataset) {
		ds.Loops, err = readLoops(file)
		if err != nil {
			return nil, errors.Wrap(err, "loops")
		}
	}
	err = ds.Validate()
	if err != nil {
		return nil, err
	}
	return ds, nil
}
