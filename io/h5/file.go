/*package h5 implements the io package's interfaces on top of HDF5 files. This
is the only package in simbavr which needs cgo.
*/
package h5

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/hdf5"

	"github.com/phil-mansfield/simbavr/io"
)

const headerGroup = "Header"

// File is an HDF5 snapshot or membership file.
type File struct {
	name     string
	f        *hdf5.File
	writable bool
}

// Type assertions
var (
	_ io.Snapshot = &File{}
	_ io.Catalog  = &Catalog{}
)

// Open opens an existing HDF5 file.
func Open(name string, writable bool) (*File, error) {
	flags := hdf5.F_ACC_RDONLY
	if writable {
		flags = hdf5.F_ACC_RDWR
	}
	f, err := hdf5.OpenFile(name, flags)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", name)
	}
	return &File{name: name, f: f, writable: writable}, nil
}

// Create creates a new, empty HDF5 file, truncating any file which was
// already there.
func Create(name string) (*File, error) {
	f, err := hdf5.CreateFile(name, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s", name)
	}
	return &File{name: name, f: f, writable: true}, nil
}

func (file *File) Name() string { return file.name }

func (file *File) Close() error {
	return errors.Wrapf(file.f.Close(), "closing %s", file.name)
}

// Header reads the particle counts from the Header group.
func (file *File) Header() (*io.Header, error) {
	if !file.f.LinkExists(headerGroup) {
		return nil, errors.Newf("%s has no '%s' group.", file.name, headerGroup)
	}
	g, err := file.f.OpenGroup(headerGroup)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s/%s", file.name, headerGroup)
	}
	defer g.Close()

	thisFile, err := readAttribute(g, "NumPart_ThisFile")
	if err != nil {
		return nil, errors.Wrapf(err, "reading header of %s", file.name)
	}
	low, err := readAttribute(g, "NumPart_Total")
	if err != nil {
		return nil, errors.Wrapf(err, "reading header of %s", file.name)
	}
	var high []int64
	if g.AttributeExists("NumPart_Total_HighWord") {
		high, err = readAttribute(g, "NumPart_Total_HighWord")
		if err != nil {
			return nil, errors.Wrapf(err, "reading header of %s", file.name)
		}
	}

	hd := &io.Header{
		NumPartThisFile: io.StandardizeCounts(thisFile, nil),
		NumPartTotal:    io.StandardizeCounts(low, high),
	}
	return hd, nil
}

func readAttribute(g *hdf5.Group, name string) ([]int64, error) {
	attr, err := g.OpenAttribute(name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening attribute %s", name)
	}
	defer attr.Close()

	xs := make([]int64, attr.Space().SimpleExtentNPoints())
	if len(xs) == 0 {
		return xs, nil
	}
	if err := attr.Read(&xs, hdf5.T_NATIVE_INT64); err != nil {
		return nil, errors.Wrapf(err, "reading attribute %s", name)
	}
	return xs, nil
}

func partitionName(tag int) string { return fmt.Sprintf("PartType%d", tag) }

func (file *File) ReadInt64(tag int, name string) ([]int64, bool, error) {
	part := partitionName(tag)
	if !file.f.LinkExists(part) {
		return nil, false, nil
	}
	g, err := file.f.OpenGroup(part)
	if err != nil {
		return nil, false, errors.Wrapf(err, "opening %s/%s", file.name, part)
	}
	defer g.Close()

	if !g.LinkExists(name) {
		return nil, false, nil
	}
	xs, err := readDataset(&g.CommonFG, name)
	if err != nil {
		return nil, false, errors.Wrapf(err, "in %s/%s", file.name, part)
	}
	return xs, true, nil
}

// readDataset reads an entire one-dimensional integer dataset. 32-bit
// datasets are widened to int64.
func readDataset(fg *hdf5.CommonFG, name string) ([]int64, error) {
	ds, err := fg.OpenDataset(name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening dataset %s", name)
	}
	defer ds.Close()

	dtype, err := ds.Datatype()
	if err != nil {
		return nil, errors.Wrapf(err, "reading type of dataset %s", name)
	}
	defer dtype.Close()

	space := ds.Space()
	n := space.SimpleExtentNPoints()
	space.Close()

	if dtype.Class() != hdf5.T_INTEGER {
		return nil, errors.Newf("Dataset %s does not hold integers.", name)
	}

	switch size := dtype.Size(); {
	case size == 8:
		return readAs[int64](ds, name, n)
	case size == 4 && dtype.Equal(hdf5.T_NATIVE_UINT32):
		return readAs[uint32](ds, name, n)
	case size == 4:
		return readAs[int32](ds, name, n)
	default:
		return nil, errors.Newf(
			"Dataset %s has %d-byte integers; only 32- and 64-bit integers "+
				"are supported.", name, size,
		)
	}
}

// readAs reads n elements of the dataset into a buffer whose type matches
// the dataset's and converts them to int64.
func readAs[T int32 | uint32 | int64](ds *hdf5.Dataset, name string, n int) ([]int64, error) {
	buf := make([]T, n)
	if n > 0 {
		if err := ds.Read(&buf); err != nil {
			return nil, errors.Wrapf(err, "reading dataset %s", name)
		}
	}

	if out, ok := any(buf).([]int64); ok {
		return out, nil
	}
	out := make([]int64, n)
	for i := range buf {
		out[i] = int64(buf[i])
	}
	return out, nil
}

// WriteInt64 overwrites the named dataset if it exists and creates it, along
// with its partition group, if it doesn't. An existing dataset can only be
// overwritten by an array of the same length.
func (file *File) WriteInt64(tag int, name string, xs []int64) error {
	if !file.writable {
		return errors.Newf("%s was opened read-only.", file.name)
	}

	part := partitionName(tag)
	var (
		g   *hdf5.Group
		err error
	)
	if file.f.LinkExists(part) {
		g, err = file.f.OpenGroup(part)
	} else {
		g, err = file.f.CreateGroup(part)
	}
	if err != nil {
		return errors.Wrapf(err, "opening %s/%s", file.name, part)
	}
	defer g.Close()

	if err := writeDataset(&g.CommonFG, name, xs); err != nil {
		return errors.Wrapf(err, "in %s/%s", file.name, part)
	}
	return nil
}

func writeDataset(fg *hdf5.CommonFG, name string, xs []int64) error {
	var ds *hdf5.Dataset
	if fg.LinkExists(name) {
		var err error
		if ds, err = fg.OpenDataset(name); err != nil {
			return errors.Wrapf(err, "opening dataset %s", name)
		}
		space := ds.Space()
		n := space.SimpleExtentNPoints()
		space.Close()
		if n != len(xs) {
			ds.Close()
			return errors.Newf(
				"Cannot overwrite dataset %s, which has length %d, with %d "+
					"elements.", name, n, len(xs),
			)
		}
	} else {
		space, err := hdf5.CreateSimpleDataspace([]uint{uint(len(xs))}, nil)
		if err != nil {
			return errors.Wrapf(err, "creating dataspace for %s", name)
		}
		ds, err = fg.CreateDataset(name, hdf5.T_NATIVE_INT64, space)
		space.Close()
		if err != nil {
			return errors.Wrapf(err, "creating dataset %s", name)
		}
	}
	defer ds.Close()

	if len(xs) == 0 {
		return nil
	}
	return errors.Wrapf(ds.Write(&xs), "writing dataset %s", name)
}
