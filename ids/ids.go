/*package ids finds repeated particle IDs, replaces them with fresh unique
values, and records the substitutions so that they can be undone exactly.
*/
package ids

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"

	"github.com/phil-mansfield/simbavr/array"
)

// EmptyInputError is returned when an operation needs at least one element
// to work with (e.g. the maximum of an array) but was given none.
type EmptyInputError struct {
	Op string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s requires a non-empty ID array.", e.Op)
}

// FindDuplicates returns the IDs that repeat an earlier ID and the positions
// at which they occur. "Earlier" means earlier in sorted order, where equal
// IDs are ordered by position, so the first occurrence of every ID is kept
// and the remaining k-1 occurrences of a k-fold ID are flagged. positions is
// in ascending order and values[i] = ids[positions[i]].
//
// Both outputs are empty, not nil, when there are no duplicates.
func FindDuplicates(ids []int64) (values, positions []int64) {
	order := array.ArgSort(ids)
	repeat := make([]bool, len(ids))

	// order[0] can never be a repeat of anything.
	for i := 1; i < len(order); i++ {
		if ids[order[i]] == ids[order[i-1]] {
			repeat[order[i]] = true
		}
	}

	positions = []int64{}
	for i := range repeat {
		if repeat[i] {
			positions = append(positions, int64(i))
		}
	}

	values = make([]int64, len(positions))
	for i, p := range positions {
		values[i] = ids[p]
	}

	return values, positions
}

// NewIDs returns n consecutive IDs starting at max(ids) + 1, so none of them
// collide with any ID already in ids.
func NewIDs(ids []int64, n int) ([]int64, error) {
	if n < 0 {
		return nil, errors.Newf("Cannot generate %d new IDs.", n)
	} else if n == 0 {
		return []int64{}, nil
	}

	max, ok := array.Max(ids)
	if !ok {
		return nil, &EmptyInputError{Op: "NewIDs"}
	}
	if max > math.MaxInt64-int64(n) {
		return nil, errors.Newf(
			"Generating %d IDs above the maximum ID, %d, would overflow int64.",
			n, max,
		)
	}

	out := make([]int64, n)
	for i := range out {
		out[i] = max + 1 + int64(i)
	}
	return out, nil
}

// Replace returns a copy of ids where ids[positions[i]] has been set to
// newValues[i]. The returned maps record the values before and after the
// substitution, keyed by position. ids itself isn't modified.
func Replace(
	ids, positions, newValues []int64,
) (out []int64, oldMap, newMap PositionMap, err error) {
	if len(positions) != len(newValues) {
		return nil, oldMap, newMap, errors.Newf(
			"Given %d positions, but %d replacement values.",
			len(positions), len(newValues),
		)
	}

	out = make([]int64, len(ids))
	copy(out, ids)

	oldMap = PositionMap{
		Positions: make([]int64, len(positions)),
		Values:    make([]int64, len(positions)),
	}
	newMap = PositionMap{
		Positions: make([]int64, len(positions)),
		Values:    make([]int64, len(positions)),
	}

	for i, p := range positions {
		if p < 0 || p >= int64(len(ids)) {
			return nil, PositionMap{}, PositionMap{}, errors.Newf(
				"Position %d is outside an ID array of length %d.", p, len(ids),
			)
		}
		oldMap.Positions[i], oldMap.Values[i] = p, ids[p]
		newMap.Positions[i], newMap.Values[i] = p, newValues[i]
		out[p] = newValues[i]
	}

	return out, oldMap, newMap, nil
}

// Deduplicate runs FindDuplicates, NewIDs and Replace in sequence. If ids has
// no duplicates, out is nil and both maps are empty.
func Deduplicate(ids []int64) (out []int64, oldMap, newMap PositionMap, err error) {
	_, positions := FindDuplicates(ids)
	if len(positions) == 0 {
		return nil, PositionMap{}, PositionMap{}, nil
	}

	newValues, err := NewIDs(ids, len(positions))
	if err != nil {
		return nil, PositionMap{}, PositionMap{}, err
	}

	return Replace(ids, positions, newValues)
}
