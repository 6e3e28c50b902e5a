package groups

import (
	"github.com/cockroachdb/errors"
)

// Ungrouped is the value used for particles outside of every group when
// membership arrays are written to disk.
const Ungrouped int64 = -1

// Membership records the group of each particle in a snapshot partition,
// in the partition's storage order. A particle either has a non-negative
// group ID or no group at all; there is no in-memory sentinel.
type Membership struct {
	// shifted[i] = group + 1, with 0 meaning "no group".
	shifted []int64
}

// NewMembership returns a Membership for n particles, none of which are in a
// group.
func NewMembership(n int) *Membership {
	return &Membership{shifted: make([]int64, n)}
}

// MembershipFromInt64s decodes a stored membership array, where Ungrouped
// marks particles without a group. Any other negative value is an error.
func MembershipFromInt64s(xs []int64) (*Membership, error) {
	m := NewMembership(len(xs))
	for i, x := range xs {
		if x < Ungrouped {
			return nil, errors.Newf(
				"Membership array contains invalid group ID %d at index %d.",
				x, i,
			)
		}
		m.shifted[i] = x + 1
	}
	return m, nil
}

// Len returns the number of particles.
func (m *Membership) Len() int { return len(m.shifted) }

// Lookup returns the group of particle i, if it has one.
func (m *Membership) Lookup(i int) (group int64, ok bool) {
	if m.shifted[i] == 0 {
		return 0, false
	}
	return m.shifted[i] - 1, true
}

// Grouped returns the number of particles that are in some group.
func (m *Membership) Grouped() int {
	n := 0
	for _, x := range m.shifted {
		if x != 0 {
			n++
		}
	}
	return n
}

func (m *Membership) set(i int, group int64) { m.shifted[i] = group + 1 }

// Int64s encodes the membership array for storage, using Ungrouped for
// particles without a group.
func (m *Membership) Int64s() []int64 {
	out := make([]int64, len(m.shifted))
	for i, x := range m.shifted {
		out[i] = x - 1
	}
	return out
}
