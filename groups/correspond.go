package groups

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/phil-mansfield/simbavr/array"
)

// Report summarizes a call to Correspond.
type Report struct {
	// Assigned[tag][k] is the number of particles of that partition which
	// were given a group by the k-th Finder.
	Assigned map[int][]int
	// Overlaps[tag] is the number of particles of that partition which were
	// given a group by more than one Finder. Only the last assignment is
	// kept.
	Overlaps map[int]uint64
}

// TotalOverlaps sums Overlaps over all partitions.
func (r *Report) TotalOverlaps() uint64 {
	n := uint64(0)
	for _, x := range r.Overlaps {
		n += x
	}
	return n
}

// Correspond computes a Membership for every partition in snapIDs. The
// finders are applied in order and later assignments overwrite earlier ones,
// so passing (bound, unbound) lets unbound assignments win when a particle
// appears in both. Such overlaps are counted in the Report.
//
// Particle IDs must be unique within each Finder and within each partition.
func Correspond(
	finders []*Finder, snapIDs map[int][]int64,
) (map[int]*Membership, *Report, error) {
	out := map[int]*Membership{}
	report := &Report{Assigned: map[int][]int{}, Overlaps: map[int]uint64{}}

	for _, tag := range array.Tags(snapIDs) {
		ids := snapIDs[tag]
		m := NewMembership(len(ids))
		report.Assigned[tag] = make([]int, len(finders))

		var seen *roaring64.Bitmap
		if len(finders) > 1 {
			seen = roaring64.New()
		}

		for k, f := range finders {
			var visit func(int)
			var pass *roaring64.Bitmap
			if seen != nil {
				pass = roaring64.New()
				visit = func(pos int) { pass.Add(uint64(pos)) }
			}

			n, err := f.Assign(ids, m, visit)
			if err != nil {
				return nil, nil, err
			}
			report.Assigned[tag][k] = n

			if seen != nil {
				report.Overlaps[tag] += roaring64.And(seen, pass).GetCardinality()
				seen.Or(pass)
			}
		}

		out[tag] = m
	}

	return out, report, nil
}
