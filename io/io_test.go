package io

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/simbavr/ids"
)

func TestDatasetPath(t *testing.T) {
	assert.Equal(t, "PartType0/ParticleIDs", DatasetPath(0, IDName))
	assert.Equal(t, "PartType5/GroupID", DatasetPath(5, GroupIDName))
}

func TestStandardizeCounts(t *testing.T) {
	counts := StandardizeCounts([]int64{10, 20, 0, 0, 5, 1}, []int64{0, 1, 0, 0, 0, 0})
	assert.Equal(t, [NTypes]int64{10, 20 + 1<<32, 0, 0, 5, 1}, counts)

	counts = StandardizeCounts([]int64{3, 4}, nil)
	assert.Equal(t, [NTypes]int64{3, 4, 0, 0, 0, 0}, counts)
}

func TestMemSnapshot(t *testing.T) {
	snap := NewMemSnapshot()
	snap.Set(1, IDName, []int64{1, 2, 3})
	snap.Set(4, IDName, []int64{4})

	xs, ok, err := snap.ReadInt64(1, IDName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int64{1, 2, 3}, xs)

	xs[0] = 100
	assert.Equal(t, []int64{1, 2, 3}, snap.Get(1, IDName))

	_, ok, err = snap.ReadInt64(0, IDName)
	require.NoError(t, err)
	assert.False(t, ok)

	hd, err := snap.Header()
	require.NoError(t, err)
	assert.Equal(t, [NTypes]int64{0, 3, 0, 0, 1, 0}, hd.NumPartThisFile)

	require.NoError(t, snap.WriteInt64(1, IDName, []int64{7, 8, 9}))
	require.NoError(t, snap.WriteInt64(1, "VRHaloID", []int64{-1, 0, 0}))
	assert.Error(t, snap.WriteInt64(1, IDName, []int64{1}))
	assert.Equal(t, 2, snap.Writes)
	assert.Equal(t, []string{
		"PartType1/ParticleIDs", "PartType1/VRHaloID", "PartType4/ParticleIDs",
	}, snap.Paths())

	partitions, err := ReadPartitions(snap, IDName)
	require.NoError(t, err)
	assert.Equal(t, map[int][]int64{1: {7, 8, 9}, 4: {4}}, partitions)

	snap.FailWrite, snap.FailAfter = errors.New("disk full"), 2
	assert.Error(t, snap.WriteInt64(4, IDName, []int64{5}))
	assert.Equal(t, []int64{4}, snap.Get(4, IDName))
}

func TestFinderOutputFromOffsets(t *testing.T) {
	out, err := NewFinderOutputFromOffsets(make([]int64, 20), []int64{0, 5, 15})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 10, 5}, out.Sizes)

	_, err = NewFinderOutputFromOffsets(make([]int64, 4), []int64{0, 5})
	assert.Error(t, err)

	cat := &MemCatalog{BoundOutput: out}
	_, ok, err := cat.Unbound()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPaths(t *testing.T) {
	assert.NoError(t, CheckInputPath("snap_m50n512_151"))
	assert.NoError(t, CheckInputPath("dir.hdf5/snap"))

	err := CheckInputPath("snap_m50n512_151.hdf5")
	var inputErr *InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Contains(t, inputErr.Message, ".hdf5")

	assert.True(t, errors.As(CheckInputPath(""), &inputErr))

	assert.Equal(t, "snap.hdf5", SnapshotPath("snap"))
	assert.Equal(t, "a/snap_duplicated.yaml", SideFilePath("a/snap", "", ""))
	assert.Equal(t, "snap_dup.yaml.zst", SideFilePath("snap", "dup", ".yaml.zst"))
	assert.Equal(t, "halo/snap.ordered_group_particles", MembershipPath("halo/snap"))
	assert.Equal(t, "halo/snap.catalog_particles", CatalogParticlesPath("halo/snap"))
	assert.Equal(t, "halo/snap.catalog_particles.unbound", CatalogUnboundPath("halo/snap"))
	assert.Equal(t, "halo/snap.catalog_groups", CatalogGroupsPath("halo/snap"))
}

func testSideFile() *SideFile {
	return &SideFile{
		Version: SideFileVersion,
		Dataset: IDName,
		Order:   []int{0, 1, 4},
		Lengths: []int64{4, 3, 3},
		Old:     ids.PositionMap{Positions: []int64{5, 7, 9}, Values: []int64{5, 2, 7}},
		New:     ids.PositionMap{Positions: []int64{5, 7, 9}, Values: []int64{8, 9, 10}},
	}
}

func TestSideFileRoundTrip(t *testing.T) {
	dir := t.TempDir()

	for _, ext := range []string{"yaml", "yaml.zst"} {
		path := SideFilePath(filepath.Join(dir, "snap"), DefaultSuffix, ext)
		sf := testSideFile()

		require.NoError(t, WriteSideFile(path, sf), ext)
		got, err := ReadSideFile(path)
		require.NoError(t, err, ext)
		assert.Equal(t, sf, got, ext)

		_, err = os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err), ext)

		// Overwriting is allowed.
		sf.Old = ids.PositionMap{Positions: []int64{}, Values: []int64{}}
		sf.New = ids.PositionMap{Positions: []int64{}, Values: []int64{}}
		require.NoError(t, WriteSideFile(path, sf), ext)
		got, err = ReadSideFile(path)
		require.NoError(t, err, ext)
		assert.Equal(t, 0, got.Old.Len(), ext)
	}
}

func TestDecodeLegacySideFile(t *testing.T) {
	legacy := `new_positions:
  9: 10
  5: 8
  7: 9
old_positions:
  5: 5
  9: 7
  7: 2
`
	sf, err := DecodeSideFile(strings.NewReader(legacy))
	require.NoError(t, err)
	assert.True(t, sf.Legacy)
	assert.Equal(t, IDName, sf.Dataset)
	assert.Nil(t, sf.Order)
	assert.Equal(t, ids.PositionMap{Positions: []int64{5, 7, 9}, Values: []int64{5, 2, 7}}, sf.Old)
	assert.Equal(t, ids.PositionMap{Positions: []int64{5, 7, 9}, Values: []int64{8, 9, 10}}, sf.New)

	sf, err = DecodeSideFile(strings.NewReader("old_positions: {}\nnew_positions: {}\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, sf.Old.Len())
}

func TestDecodeSideFileErrors(t *testing.T) {
	table := []string{
		"version: \"3\"\nold_positions: {}\nnew_positions: {}\n",
		"new_positions: {}\n",
		"old_positions: [1, 2]\nnew_positions: {}\n",
		"old_positions: {5: 5}\nnew_positions: {6: 8}\n",
		`version: "2"
order: [0, 1]
lengths: [2]
old_positions: {positions: [], values: []}
new_positions: {positions: [], values: []}
`,
		`version: "2"
order: [0, 0]
lengths: [2, 2]
old_positions: {positions: [], values: []}
new_positions: {positions: [], values: []}
`,
		`version: "2"
order: [0, 1]
lengths: [2, 2]
old_positions: {positions: [4], values: [1]}
new_positions: {positions: [4], values: [5]}
`,
		`version: "2"
order: [0]
lengths: [5]
old_positions: {positions: [3, 1], values: [1, 1]}
new_positions: {positions: [3, 1], values: [5, 6]}
`,
	}

	for i, str := range table {
		_, err := DecodeSideFile(strings.NewReader(str))
		assert.Error(t, err, "%d)", i)
	}
}

func TestEncodeSideFile(t *testing.T) {
	sb := &strings.Builder{}
	sf := testSideFile()
	sf.Version = ""
	require.NoError(t, EncodeSideFile(sb, sf))

	str := sb.String()
	assert.Contains(t, str, `version: "2"`)
	assert.Contains(t, str, "order: [0, 1, 4]")
	assert.Contains(t, str, "positions: [5, 7, 9]")
}

func TestExampleConfigs(t *testing.T) {
	pre := DefaultPreprocessWrapper()
	require.NoError(t, ReadConfigString(ExamplePreprocessFile, pre))
	assert.Equal(t, "path/to/snap_m50n512_151", pre.Preprocess.Input)
	assert.Equal(t, "path/to/snap_m50n512_151_duplicated.yaml", pre.Preprocess.SideFile())

	fix := DefaultFixParticleIDsWrapper()
	require.NoError(t, ReadConfigString(ExampleFixParticleIDsFile, fix))
	assert.Equal(t, DefaultSuffix, fix.FixParticleIDs.Suffix)

	run := DefaultRunVELOCIraptorWrapper()
	require.NoError(t, ReadConfigString(ExampleRunVELOCIraptorFile, run))
	assert.Equal(t, "./stf", run.RunVELOCIraptor.Binary)
	assert.Equal(t, -1, run.RunVELOCIraptor.Threads)
	assert.Equal(t, "halo/snap_m50n512_151", run.RunVELOCIraptor.OutputPrefix())

	post := DefaultPostprocessWrapper()
	require.NoError(t, ReadConfigString(ExamplePostprocessFile, post))
	assert.False(t, post.Postprocess.Unbound)
	assert.Equal(t, "halo/path/to/snap_m50n512_151", post.Postprocess.CataloguePrefix())

	add := DefaultAddInfoWrapper()
	require.NoError(t, ReadConfigString(ExampleAddInfoFile, add))
	assert.Equal(t, "VRHaloID", add.AddInfo.HaloName)
	assert.False(t, add.AddInfo.ValidGalaxies())
}

func TestConfigErrors(t *testing.T) {
	table := []struct {
		str  string
		wrap interface{}
	}{
		{"[Preprocess]\nInput = snap.hdf5\n", DefaultPreprocessWrapper()},
		{"[Preprocess]\nSuffix = dup\n", DefaultPreprocessWrapper()},
		{"[FixParticleIDs]\nInput = snap\nSuffix = \"\"\n", DefaultFixParticleIDsWrapper()},
		{"[RunVELOCIraptor]\nInput = snap\n", DefaultRunVELOCIraptorWrapper()},
		{"[RunVELOCIraptor]\nInput = snap\nDirectory = .\nThreads = 0\n", DefaultRunVELOCIraptorWrapper()},
		{"[Postprocess]\nInput = snap.hdf5\n", DefaultPostprocessWrapper()},
		{"[AddInfo]\nSnapshot = snap\n", DefaultAddInfoWrapper()},
		{"[AddInfo]\nSnapshot = snap\nHalos = h\nGalaxyName = VRHaloID\n", DefaultAddInfoWrapper()},
	}

	for i, line := range table {
		err := ReadConfigString(line.str, line.wrap)
		var inputErr *InputError
		assert.True(t, errors.As(err, &inputErr), "%d) %v", i, err)
	}

	assert.Error(t, ReadConfigString("[Preprocess]\nNotAField = 1\n", DefaultPreprocessWrapper()))
	assert.Error(t, ReadConfigString("", &struct{}{}))
}

func TestReadConfig(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "post.cfg")
	body := "[Postprocess]\nInput = snap\nOutput = cat/snap\nUnbound = true\n"
	require.NoError(t, os.WriteFile(fname, []byte(body), 0644))

	wrap := DefaultPostprocessWrapper()
	require.NoError(t, ReadConfig(fname, wrap))
	assert.True(t, wrap.Postprocess.Unbound)
	assert.Equal(t, "cat/snap", wrap.Postprocess.CataloguePrefix())

	assert.Error(t, ReadConfig(filepath.Join(t.TempDir(), "missing.cfg"), wrap))
}
