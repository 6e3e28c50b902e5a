/*package io contains the interfaces between the ID and group-matching code and
the files it operates on: snapshots, halo finder catalogues, membership files
and the side files which record ID substitutions. In-memory implementations of
each interface live here too; the HDF5 implementations are in io/h5.
*/
package io

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
)

const (
	// NTypes is the number of particle types a snapshot can contain.
	NTypes = 6

	// IDName is the dataset holding particle IDs in each partition.
	IDName = "ParticleIDs"
	// GroupIDName is the dataset holding group membership in each partition
	// of a membership file.
	GroupIDName = "GroupID"
)

// DatasetPath returns the path of the named dataset inside the partition for
// the given particle type.
func DatasetPath(tag int, name string) string {
	return fmt.Sprintf("PartType%d/%s", tag, name)
}

// Container is a file made of per-particle-type partitions, each holding
// named integer datasets.
type Container interface {
	// ReadInt64 reads the named dataset of a partition. ok is false, and err
	// is nil, if the dataset doesn't exist.
	ReadInt64(tag int, name string) (xs []int64, ok bool, err error)
	// WriteInt64 writes the named dataset of a partition, creating it if
	// needed. Other datasets are left alone.
	WriteInt64(tag int, name string, xs []int64) error
}

// Snapshot is a Container with a Gadget-style header.
type Snapshot interface {
	Container
	Header() (*Header, error)
}

// Header contains the particle counts of a snapshot.
type Header struct {
	NumPartThisFile [NTypes]int64 // Particles of each type in this file
	NumPartTotal    [NTypes]int64 // Particles of each type in all files
}

// StandardizeCounts combines the low and high words that Gadget-style
// headers use for total particle counts.
func StandardizeCounts(low, high []int64) [NTypes]int64 {
	var out [NTypes]int64
	for i := 0; i < NTypes && i < len(low); i++ {
		out[i] = low[i]
		if i < len(high) {
			out[i] += high[i] << 32
		}
	}
	return out
}

// ReadPartitions reads a dataset from every partition in which it exists.
func ReadPartitions(c Container, name string) (map[int][]int64, error) {
	out := map[int][]int64{}
	for tag := 0; tag < NTypes; tag++ {
		xs, ok, err := c.ReadInt64(tag, name)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", DatasetPath(tag, name))
		}
		if ok {
			out[tag] = xs
		}
	}
	return out, nil
}

// MemSnapshot is an in-memory Snapshot. If no header has been set, the
// header's counts are the lengths of the ParticleIDs datasets.
type MemSnapshot struct {
	hd   *Header
	data map[string][]int64

	// Writes counts successful calls to WriteInt64.
	Writes int

	// FailWrite, if non-nil, is returned by WriteInt64 once Writes reaches
	// FailAfter.
	FailWrite error
	FailAfter int
}

// Type assertions
var (
	_ Snapshot = &MemSnapshot{}
	_ Catalog  = &MemCatalog{}
)

// NewMemSnapshot returns an empty MemSnapshot.
func NewMemSnapshot() *MemSnapshot {
	return &MemSnapshot{data: map[string][]int64{}}
}

// Set stores a copy of xs without counting it as a write.
func (s *MemSnapshot) Set(tag int, name string, xs []int64) {
	s.data[DatasetPath(tag, name)] = append([]int64{}, xs...)
}

// Get returns the stored dataset, or nil.
func (s *MemSnapshot) Get(tag int, name string) []int64 {
	return s.data[DatasetPath(tag, name)]
}

// SetHeader overrides the header.
func (s *MemSnapshot) SetHeader(hd *Header) { s.hd = hd }

func (s *MemSnapshot) Header() (*Header, error) {
	if s.hd != nil {
		hd := *s.hd
		return &hd, nil
	}

	hd := &Header{}
	for tag := 0; tag < NTypes; tag++ {
		n := int64(len(s.data[DatasetPath(tag, IDName)]))
		hd.NumPartThisFile[tag], hd.NumPartTotal[tag] = n, n
	}
	return hd, nil
}

func (s *MemSnapshot) ReadInt64(tag int, name string) ([]int64, bool, error) {
	xs, ok := s.data[DatasetPath(tag, name)]
	if !ok {
		return nil, false, nil
	}
	return append([]int64{}, xs...), true, nil
}

func (s *MemSnapshot) WriteInt64(tag int, name string, xs []int64) error {
	if s.FailWrite != nil && s.Writes >= s.FailAfter {
		return s.FailWrite
	}

	path := DatasetPath(tag, name)
	if old, ok := s.data[path]; ok && len(old) != len(xs) {
		return errors.Newf(
			"Cannot overwrite %s, which has length %d, with %d elements.",
			path, len(old), len(xs),
		)
	}
	s.data[path] = append([]int64{}, xs...)
	s.Writes++
	return nil
}

// Paths returns the names of all stored datasets, sorted.
func (s *MemSnapshot) Paths() []string {
	out := make([]string, 0, len(s.data))
	for path := range s.data {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}
