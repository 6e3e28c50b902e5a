package h5

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/hdf5"

	"github.com/phil-mansfield/simbavr/io"
)

func writeTestHeader(t *testing.T, file *File, thisFile, total []int64) {
	g, err := file.f.CreateGroup(headerGroup)
	require.NoError(t, err)
	defer g.Close()

	for name, xs := range map[string][]int64{
		"NumPart_ThisFile": thisFile, "NumPart_Total": total,
	} {
		space, err := hdf5.CreateSimpleDataspace([]uint{uint(len(xs))}, nil)
		require.NoError(t, err)
		attr, err := g.CreateAttribute(name, hdf5.T_NATIVE_INT64, space)
		require.NoError(t, err)
		require.NoError(t, attr.Write(&xs, hdf5.T_NATIVE_INT64))
		attr.Close()
		space.Close()
	}
}

func TestFileRoundTrip(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "snap.hdf5")

	file, err := Create(fname)
	require.NoError(t, err)
	writeTestHeader(t, file, []int64{3, 0, 0, 0, 2, 0}, []int64{3, 0, 0, 0, 2, 0})
	require.NoError(t, file.WriteInt64(0, io.IDName, []int64{1, 2, 3}))
	require.NoError(t, file.WriteInt64(4, io.IDName, []int64{4, 5}))
	require.NoError(t, file.Close())

	file, err = Open(fname, true)
	require.NoError(t, err)
	defer file.Close()

	hd, err := file.Header()
	require.NoError(t, err)
	assert.Equal(t, [io.NTypes]int64{3, 0, 0, 0, 2, 0}, hd.NumPartThisFile)

	partitions, err := io.ReadPartitions(file, io.IDName)
	require.NoError(t, err)
	assert.Equal(t, map[int][]int64{0: {1, 2, 3}, 4: {4, 5}}, partitions)

	_, ok, err := file.ReadInt64(1, io.IDName)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, file.WriteInt64(0, io.IDName, []int64{7, 8, 9}))
	assert.Error(t, file.WriteInt64(0, io.IDName, []int64{7}))
	require.NoError(t, file.WriteInt64(0, "VRHaloID", []int64{-1, 0, 1}))

	xs, ok, err := file.ReadInt64(0, io.IDName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int64{7, 8, 9}, xs)

	xs, _, err = file.ReadInt64(0, "VRHaloID")
	require.NoError(t, err)
	assert.Equal(t, []int64{-1, 0, 1}, xs)
}

func TestReadOnly(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "snap.hdf5")
	file, err := Create(fname)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	file, err = Open(fname, false)
	require.NoError(t, err)
	defer file.Close()
	assert.Error(t, file.WriteInt64(0, io.IDName, []int64{1}))

	_, err = file.Header()
	assert.Error(t, err)
}

func writeRoot(t *testing.T, fname string, datasets map[string][]int64) {
	file, err := Create(fname)
	require.NoError(t, err)
	defer file.Close()
	for name, xs := range datasets {
		require.NoError(t, writeDataset(&file.f.CommonFG, name, xs))
	}
}

func TestCatalog(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "snap")
	writeRoot(t, io.CatalogParticlesPath(prefix), map[string][]int64{
		particleIDsName: {4, 7, 5, 6, 9},
	})
	writeRoot(t, io.CatalogGroupsPath(prefix), map[string][]int64{
		offsetName:        {0, 2},
		offsetUnboundName: {0, 1},
	})

	cat := &Catalog{prefix}
	bound, err := cat.Bound()
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 7, 5, 6, 9}, bound.ParticleIDs)
	assert.Equal(t, []int64{2, 3}, bound.Sizes)

	_, ok, err := cat.Unbound()
	require.NoError(t, err)
	assert.False(t, ok)

	writeRoot(t, io.CatalogUnboundPath(prefix), map[string][]int64{
		particleIDsName: {1, 2, 3},
	})
	unbound, ok, err := cat.Unbound()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int64{1, 2}, unbound.Sizes)

	_, err = (&Catalog{prefix + "_missing"}).Bound()
	assert.Error(t, err)
}

func writeTyped(t *testing.T, fg *hdf5.CommonFG, name string, dtype *hdf5.Datatype, data interface{}, n int) {
	space, err := hdf5.CreateSimpleDataspace([]uint{uint(n)}, nil)
	require.NoError(t, err)
	defer space.Close()
	ds, err := fg.CreateDataset(name, dtype, space)
	require.NoError(t, err)
	defer ds.Close()
	require.NoError(t, ds.Write(data))
}

func TestReadNarrowIntegers(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "snap")

	groupsFile, err := Create(io.CatalogGroupsPath(prefix))
	require.NoError(t, err)
	sizes := []uint32{2, 3}
	writeTyped(t, &groupsFile.f.CommonFG, groupSizeName, hdf5.T_NATIVE_UINT32, &sizes, len(sizes))
	require.NoError(t, groupsFile.Close())

	particles, err := Create(io.CatalogParticlesPath(prefix))
	require.NoError(t, err)
	catIDs := []int32{4, 7, 5, 6, -9}
	writeTyped(t, &particles.f.CommonFG, particleIDsName, hdf5.T_NATIVE_INT32, &catIDs, len(catIDs))
	require.NoError(t, particles.Close())

	bound, err := (&Catalog{prefix}).Bound()
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, bound.Sizes)
	assert.Equal(t, []int64{4, 7, 5, 6, -9}, bound.ParticleIDs)

	fname := filepath.Join(t.TempDir(), "snap.hdf5")
	snap, err := Create(fname)
	require.NoError(t, err)
	g, err := snap.f.CreateGroup("PartType1")
	require.NoError(t, err)
	snapIDs := []uint32{1, 3000000000}
	writeTyped(t, &g.CommonFG, io.IDName, hdf5.T_NATIVE_UINT32, &snapIDs, len(snapIDs))
	masses := []float64{1.5, 2.5}
	writeTyped(t, &g.CommonFG, "Masses", hdf5.T_NATIVE_DOUBLE, &masses, len(masses))
	g.Close()
	defer snap.Close()

	xs, ok, err := snap.ReadInt64(1, io.IDName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int64{1, 3000000000}, xs)

	_, _, err = snap.ReadInt64(1, "Masses")
	assert.Error(t, err)
}

func TestHeaderHighWord(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "snap.hdf5")
	file, err := Create(fname)
	require.NoError(t, err)
	defer file.Close()
	writeTestHeader(t, file, []int64{3, 0, 0, 0, 0, 0}, []int64{3, 0, 0, 0, 0, 0})

	hd, err := file.Header()
	require.NoError(t, err)
	assert.Equal(t, [io.NTypes]int64{3, 0, 0, 0, 0, 0}, hd.NumPartTotal)

	g, err := file.f.OpenGroup(headerGroup)
	require.NoError(t, err)
	high := []int64{0, 1, 0, 0, 0, 0}
	space, err := hdf5.CreateSimpleDataspace([]uint{uint(len(high))}, nil)
	require.NoError(t, err)
	attr, err := g.CreateAttribute("NumPart_Total_HighWord", hdf5.T_NATIVE_INT64, space)
	require.NoError(t, err)
	require.NoError(t, attr.Write(&high, hdf5.T_NATIVE_INT64))
	attr.Close()
	space.Close()
	g.Close()

	hd, err = file.Header()
	require.NoError(t, err)
	assert.Equal(t, [io.NTypes]int64{3, 1 << 32, 0, 0, 0, 0}, hd.NumPartTotal)
}
