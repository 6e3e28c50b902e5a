package ids

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// PositionMap is a set of (position, value) pairs stored as two parallel
// columns. Positions index into the concatenation of every partition of a
// snapshot. Maps produced by this package always have strictly ascending
// positions.
type PositionMap struct {
	Positions []int64
	Values    []int64
}

// Len returns the number of pairs in the map.
func (m PositionMap) Len() int { return len(m.Positions) }

// Validate checks that the two columns have the same length and that
// positions are non-negative and strictly ascending.
func (m PositionMap) Validate() error {
	if len(m.Positions) != len(m.Values) {
		return errors.Newf(
			"PositionMap has %d positions but %d values.",
			len(m.Positions), len(m.Values),
		)
	}
	for i, p := range m.Positions {
		if p < 0 {
			return errors.Newf("PositionMap contains negative position %d.", p)
		}
		if i > 0 && p <= m.Positions[i-1] {
			return errors.Newf(
				"PositionMap positions are not strictly ascending: %d follows %d.",
				p, m.Positions[i-1],
			)
		}
	}
	return nil
}

// Get returns the value stored at position p.
func (m PositionMap) Get(p int64) (int64, bool) {
	i := sort.Search(len(m.Positions), func(i int) bool {
		return m.Positions[i] >= p
	})
	if i < len(m.Positions) && m.Positions[i] == p {
		return m.Values[i], true
	}
	return 0, false
}

// Sort puts the pairs in ascending position order. Used for maps decoded from
// formats which don't guarantee an order.
func (m *PositionMap) Sort() {
	sort.Sort(byPosition(*m))
}

type byPosition PositionMap

func (m byPosition) Len() int           { return len(m.Positions) }
func (m byPosition) Less(i, j int) bool { return m.Positions[i] < m.Positions[j] }
func (m byPosition) Swap(i, j int) {
	m.Positions[i], m.Positions[j] = m.Positions[j], m.Positions[i]
	m.Values[i], m.Values[j] = m.Values[j], m.Values[i]
}

// Apply writes every value in the map into ids at its position. Applying the
// old-value map from Replace to Replace's output gives back the original
// array.
func (m PositionMap) Apply(ids []int64) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if n := len(m.Positions); n > 0 && m.Positions[n-1] >= int64(len(ids)) {
		return errors.Newf(
			"PositionMap refers to position %d, but the ID array only has "+
				"%d elements.", m.Positions[n-1], len(ids),
		)
	}

	for i, p := range m.Positions {
		ids[p] = m.Values[i]
	}
	return nil
}

// SameKeys returns true if m and other record exactly the same positions.
func (m PositionMap) SameKeys(other PositionMap) bool {
	if len(m.Positions) != len(other.Positions) {
		return false
	}
	for i := range m.Positions {
		if m.Positions[i] != other.Positions[i] {
			return false
		}
	}
	return true
}
