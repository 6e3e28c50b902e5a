package h5

import (
	"os"

	"github.com/cockroachdb/errors"

	"github.com/phil-mansfield/simbavr/io"
)

const (
	particleIDsName   = "Particle_IDs"
	groupSizeName     = "Group_Size"
	offsetName        = "Offset"
	offsetUnboundName = "Offset_unbound"
)

// Catalog reads the HDF5 output of a VELOCIraptor run with the given prefix:
// <prefix>.catalog_groups, <prefix>.catalog_particles and, optionally,
// <prefix>.catalog_particles.unbound.
type Catalog struct {
	Prefix string
}

func (c *Catalog) Bound() (*io.FinderOutput, error) {
	ids, err := readRoot(io.CatalogParticlesPath(c.Prefix), particleIDsName)
	if err != nil {
		return nil, err
	}

	groupsPath := io.CatalogGroupsPath(c.Prefix)
	sizes, ok, err := readRootIfExists(groupsPath, groupSizeName)
	if err != nil {
		return nil, err
	} else if ok {
		return &io.FinderOutput{ParticleIDs: ids, Sizes: sizes}, nil
	}

	offsets, err := readRoot(groupsPath, offsetName)
	if err != nil {
		return nil, err
	}
	out, err := io.NewFinderOutputFromOffsets(ids, offsets)
	return out, errors.Wrapf(err, "in %s", groupsPath)
}

func (c *Catalog) Unbound() (*io.FinderOutput, bool, error) {
	unboundPath := io.CatalogUnboundPath(c.Prefix)
	ids, ok, err := readRootIfExists(unboundPath, particleIDsName)
	if err != nil || !ok {
		return nil, false, err
	}

	groupsPath := io.CatalogGroupsPath(c.Prefix)
	offsets, err := readRoot(groupsPath, offsetUnboundName)
	if err != nil {
		return nil, false, err
	}
	out, err := io.NewFinderOutputFromOffsets(ids, offsets)
	if err != nil {
		return nil, false, errors.Wrapf(err, "in %s", groupsPath)
	}
	return out, true, nil
}

func readRoot(fname, name string) ([]int64, error) {
	xs, ok, err := readRootIfExists(fname, name)
	if err != nil {
		return nil, err
	} else if !ok {
		return nil, errors.Newf("%s does not exist or has no '%s' dataset.", fname, name)
	}
	return xs, nil
}

// readRootIfExists reads a top-level dataset. ok is false if either the file
// or the dataset doesn't exist.
func readRootIfExists(fname, name string) (xs []int64, ok bool, err error) {
	if _, err := os.Stat(fname); os.IsNotExist(err) {
		return nil, false, nil
	}
	file, err := Open(fname, false)
	if err != nil {
		return nil, false, err
	}
	defer file.Close()

	if !file.f.LinkExists(name) {
		return nil, false, nil
	}
	xs, err = readDataset(&file.f.CommonFG, name)
	if err != nil {
		return nil, false, errors.Wrapf(err, "in %s", fname)
	}
	return xs, true, nil
}
