/*package groups matches the particles in halo finder output against the
particles in a snapshot and produces group membership arrays that follow the
snapshot's own particle order.
*/
package groups

import (
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/phil-mansfield/simbavr/array"
)

// GroupArray expands a list of group sizes into one group index per
// particle: the first sizes[0] entries are 0, the next sizes[1] entries are 1,
// and so on.
func GroupArray(sizes []int64) ([]int64, error) {
	total := int64(0)
	for i, n := range sizes {
		if n < 0 {
			return nil, errors.Newf("Group %d has negative size %d.", i, n)
		}
		total += n
	}

	out := make([]int64, total)
	start := int64(0)
	for id, n := range sizes {
		for j := start; j < start+n; j++ {
			out[j] = int64(id)
		}
		start += n
	}

	return out, nil
}

// SizesFromOffsets converts the starting offset of each group into group
// sizes. The final group runs until total, the number of particles in the
// catalogue.
func SizesFromOffsets(offsets []int64, total int64) ([]int64, error) {
	sizes := make([]int64, len(offsets))
	if len(offsets) == 0 {
		if total != 0 {
			return nil, errors.Newf(
				"Catalogue has %d particles, but no groups.", total,
			)
		}
		return sizes, nil
	}

	if offsets[0] != 0 {
		return nil, errors.Newf("First group offset is %d, not 0.", offsets[0])
	}
	for i := 0; i < len(offsets)-1; i++ {
		sizes[i] = offsets[i+1] - offsets[i]
		if sizes[i] < 0 {
			return nil, errors.Newf(
				"Group offsets decrease from %d to %d at group %d.",
				offsets[i], offsets[i+1], i,
			)
		}
	}

	last := len(offsets) - 1
	sizes[last] = total - offsets[last]
	if sizes[last] < 0 {
		return nil, errors.Newf(
			"Final group offset %d is past the particle count %d.",
			offsets[last], total,
		)
	}

	return sizes, nil
}

// Finder is the output of one halo finder pass, indexed for lookups by
// particle ID. Particle IDs must be unique within a Finder; this isn't
// checked unless CheckUnique is called, and the result of Assign is
// undefined otherwise.
type Finder struct {
	sortedIDs []int64
	groups    []int64 // groups[i] is the group of sortedIDs[i]
}

// NewFinder builds a Finder from the finder's flat particle ID array and the
// size of each group. The sizes must sum to len(particleIDs).
func NewFinder(particleIDs, sizes []int64) (*Finder, error) {
	groupArray, err := GroupArray(sizes)
	if err != nil {
		return nil, err
	}
	if len(groupArray) != len(particleIDs) {
		return nil, errors.Newf(
			"Group sizes sum to %d, but the catalogue has %d particle IDs.",
			len(groupArray), len(particleIDs),
		)
	}
	return NewFinderFromGroups(particleIDs, groupArray)
}

// NewFinderFromGroups builds a Finder from a particle ID array and a parallel
// array giving the group of each particle. Group IDs must be non-negative.
func NewFinderFromGroups(particleIDs, groupArray []int64) (*Finder, error) {
	if len(particleIDs) != len(groupArray) {
		return nil, errors.Newf(
			"Given %d particle IDs, but %d group IDs.",
			len(particleIDs), len(groupArray),
		)
	}
	for i, g := range groupArray {
		if g < 0 {
			return nil, errors.Newf(
				"Particle %d has negative group ID %d.", i, g,
			)
		}
	}

	order := array.ArgSort(particleIDs)
	return &Finder{
		sortedIDs: array.Gather(particleIDs, order),
		groups:    array.Gather(groupArray, order),
	}, nil
}

// Len returns the number of particles in the Finder.
func (f *Finder) Len() int { return len(f.sortedIDs) }

// CheckUnique returns an error naming the first repeated particle ID.
func (f *Finder) CheckUnique() error {
	if i := firstRepeat(f.sortedIDs); i >= 0 {
		return errors.Newf(
			"Particle ID %d appears more than once in the halo catalogue.",
			f.sortedIDs[i],
		)
	}
	return nil
}

// CheckUnique returns an error if ids contains a repeated value.
func CheckUnique(ids []int64) error {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	if i := firstRepeat(sorted); i >= 0 {
		return errors.Newf("Particle ID %d appears more than once.", sorted[i])
	}
	return nil
}

func firstRepeat(sorted []int64) int {
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return i
		}
	}
	return -1
}

// Lookup returns the group of the particle with the given ID.
func (f *Finder) Lookup(id int64) (group int64, ok bool) {
	i, found := slices.BinarySearch(f.sortedIDs, id)
	if !found {
		return 0, false
	}
	return f.groups[i], true
}

// Assign sets the group of every particle in snapIDs that the Finder knows
// about, overwriting earlier assignments. m must have the same length as
// snapIDs. It returns the number of particles assigned; visit, if non-nil,
// is called with the position of each of them.
func (f *Finder) Assign(
	snapIDs []int64, m *Membership, visit func(pos int),
) (assigned int, err error) {
	if m.Len() != len(snapIDs) {
		return 0, errors.Newf(
			"Membership has length %d, but there are %d particles.",
			m.Len(), len(snapIDs),
		)
	}

	for pos, id := range snapIDs {
		group, ok := f.Lookup(id)
		if !ok {
			continue
		}
		m.set(pos, group)
		assigned++
		if visit != nil {
			visit(pos)
		}
	}

	return assigned, nil
}
