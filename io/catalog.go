package io

import (
	"github.com/phil-mansfield/simbavr/groups"
)

// FinderOutput is one pass of halo finder output: a flat particle ID array
// and the size of each group. The first Sizes[0] IDs belong to group 0, the
// next Sizes[1] to group 1, and so on.
type FinderOutput struct {
	ParticleIDs []int64
	Sizes       []int64
}

// NewFinderOutputFromOffsets builds a FinderOutput from per-group starting
// offsets rather than sizes.
func NewFinderOutputFromOffsets(particleIDs, offsets []int64) (*FinderOutput, error) {
	sizes, err := groups.SizesFromOffsets(offsets, int64(len(particleIDs)))
	if err != nil {
		return nil, err
	}
	return &FinderOutput{ParticleIDs: particleIDs, Sizes: sizes}, nil
}

// Finder indexes the output for lookups.
func (out *FinderOutput) Finder() (*groups.Finder, error) {
	return groups.NewFinder(out.ParticleIDs, out.Sizes)
}

// Catalog is a halo finder catalogue.
type Catalog interface {
	// Bound returns the particles bound to each group.
	Bound() (*FinderOutput, error)
	// Unbound returns the particles associated with, but not bound to, each
	// group. ok is false if the catalogue doesn't have them.
	Unbound() (out *FinderOutput, ok bool, err error)
}

// MemCatalog is an in-memory Catalog.
type MemCatalog struct {
	BoundOutput, UnboundOutput *FinderOutput
}

func (c *MemCatalog) Bound() (*FinderOutput, error) {
	return c.BoundOutput, nil
}

func (c *MemCatalog) Unbound() (*FinderOutput, bool, error) {
	return c.UnboundOutput, c.UnboundOutput != nil, nil
}
