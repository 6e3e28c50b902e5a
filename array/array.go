/*package array contains the integer-slice utilities shared by the ID
deduplication and group correspondence code: concatenation of partitions with
boundary offsets, the inverse split, maxima, and index-preserving sorts.
*/
package array

import (
	"cmp"
	"slices"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

// Combine concatenates xs in order and returns the combined slice along with
// the offsets at which each input slice starts. len(offsets) = len(xs) + 1,
// offsets[0] = 0 and offsets[len(xs)] = len(out).
func Combine[T constraints.Integer](xs [][]T) (out []T, offsets []int) {
	offsets = make([]int, len(xs)+1)
	for i := range xs {
		offsets[i+1] = offsets[i] + len(xs[i])
	}

	out = make([]T, offsets[len(xs)])
	for i := range xs {
		copy(out[offsets[i]:offsets[i+1]], xs[i])
	}

	return out, offsets
}

// Split is the inverse of Combine. The returned slices share memory with x,
// but have their capacity clipped so that appending to one cannot overwrite
// its neighbor. Zero-length partitions are returned as empty, non-nil
// slices.
func Split[T constraints.Integer](x []T, offsets []int) ([][]T, error) {
	if len(offsets) == 0 {
		return nil, errors.Newf("Split was given an empty offset list.")
	}
	if offsets[len(offsets)-1] > len(x) {
		return nil, errors.Newf(
			"Final offset %d is past the end of an array of length %d.",
			offsets[len(offsets)-1], len(x),
		)
	}

	out := make([][]T, len(offsets)-1)
	for i := range out {
		lo, hi := offsets[i], offsets[i+1]
		if lo < 0 || hi < lo {
			return nil, errors.Newf(
				"Offsets %d and %d at index %d are not a valid range.",
				lo, hi, i,
			)
		}
		out[i] = x[lo:hi:hi]
	}

	return out, nil
}

// Lengths returns the length of each slice in xs.
func Lengths[T any](xs [][]T) []int {
	out := make([]int, len(xs))
	for i := range xs {
		out[i] = len(xs[i])
	}
	return out
}

// Offsets converts a list of lengths into Combine-style offsets.
func Offsets(lengths []int) []int {
	offsets := make([]int, len(lengths)+1)
	for i, n := range lengths {
		offsets[i+1] = offsets[i] + n
	}
	return offsets
}

// Max returns the largest element of xs. ok is false if xs is empty.
func Max[T constraints.Integer](xs []T) (max T, ok bool) {
	if len(xs) == 0 {
		return max, false
	}
	max = xs[0]
	for _, x := range xs[1:] {
		if x > max {
			max = x
		}
	}
	return max, true
}

// ArgSort returns the permutation which sorts xs in ascending order. Equal
// elements keep their original relative order, so the lowest index of a run
// of equal values always comes first. xs is not modified.
func ArgSort[T constraints.Integer](xs []T) []int {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}

	// Ties are broken on the index, so this matches a stable sort.
	slices.SortFunc(idx, func(a, b int) int {
		if c := cmp.Compare(xs[a], xs[b]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	return idx
}

// Gather returns xs[idx[0]], xs[idx[1]], ...
func Gather[T any](xs []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = xs[j]
	}
	return out
}

// Tags returns the keys of a partition map in ascending order.
func Tags[T any](partitions map[int]T) []int {
	tags := make([]int, 0, len(partitions))
	for tag := range partitions {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}
