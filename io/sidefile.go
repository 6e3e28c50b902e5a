package io

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
	"go.yaml.in/yaml/v3"

	"github.com/phil-mansfield/simbavr/ids"
)

// SideFileVersion is the schema version written into new side files.
const SideFileVersion = "2"

// SideFile records the ID substitutions made by deduplication, along with the
// partition layout they refer to.
type SideFile struct {
	Version string
	Dataset string
	// Order lists the partition tags in the order they were concatenated.
	Order []int
	// Lengths[i] is the length of partition Order[i] at deduplication time.
	Lengths []int64
	Old     ids.PositionMap
	New     ids.PositionMap

	// Legacy is true for side files which predate Order and Lengths. These
	// store positions as a position -> value mapping and imply an ascending
	// tag order.
	Legacy bool
}

// Validate checks the internal consistency of a side file.
func (sf *SideFile) Validate() error {
	if err := sf.Old.Validate(); err != nil {
		return errors.Wrap(err, "old_positions")
	}
	if err := sf.New.Validate(); err != nil {
		return errors.Wrap(err, "new_positions")
	}
	if !sf.Old.SameKeys(sf.New) {
		return errors.Newf("old_positions and new_positions have different keys.")
	}
	if sf.Legacy {
		return nil
	}

	if len(sf.Order) != len(sf.Lengths) {
		return errors.Newf(
			"Side file lists %d partitions but %d partition lengths.",
			len(sf.Order), len(sf.Lengths),
		)
	}
	seen := map[int]bool{}
	total := int64(0)
	for i, tag := range sf.Order {
		if tag < 0 || tag >= NTypes || seen[tag] {
			return errors.Newf("Side file has invalid partition order %v.", sf.Order)
		}
		seen[tag] = true
		if sf.Lengths[i] < 0 {
			return errors.Newf("Partition %d has negative length.", tag)
		}
		total += sf.Lengths[i]
	}
	if n := sf.Old.Len(); n > 0 && sf.Old.Positions[n-1] >= total {
		return errors.Newf(
			"Side file refers to position %d, but its partitions only have "+
				"%d particles in total.", sf.Old.Positions[n-1], total,
		)
	}
	return nil
}

type positionRecord struct {
	Positions []int64 `yaml:"positions,flow"`
	Values    []int64 `yaml:"values,flow"`
}

type sideFileOut struct {
	Version      string         `yaml:"version"`
	Dataset      string         `yaml:"dataset"`
	Order        []int          `yaml:"order,flow"`
	Lengths      []int64        `yaml:"lengths,flow"`
	OldPositions positionRecord `yaml:"old_positions"`
	NewPositions positionRecord `yaml:"new_positions"`
}

type sideFileIn struct {
	Version      string    `yaml:"version"`
	Dataset      string    `yaml:"dataset"`
	Order        []int     `yaml:"order"`
	Lengths      []int64   `yaml:"lengths"`
	OldPositions yaml.Node `yaml:"old_positions"`
	NewPositions yaml.Node `yaml:"new_positions"`
}

// EncodeSideFile writes sf as YAML.
func EncodeSideFile(w io.Writer, sf *SideFile) error {
	out := sideFileOut{
		Version:      sf.Version,
		Dataset:      sf.Dataset,
		Order:        sf.Order,
		Lengths:      sf.Lengths,
		OldPositions: positionRecord{nonNil(sf.Old.Positions), nonNil(sf.Old.Values)},
		NewPositions: positionRecord{nonNil(sf.New.Positions), nonNil(sf.New.Values)},
	}
	if out.Version == "" {
		out.Version = SideFileVersion
	}

	enc := yaml.NewEncoder(w)
	if err := enc.Encode(&out); err != nil {
		return errors.Wrap(err, "encoding side file")
	}
	return enc.Close()
}

func nonNil(xs []int64) []int64 {
	if xs == nil {
		return []int64{}
	}
	return xs
}

// DecodeSideFile reads a YAML side file, including legacy side files.
func DecodeSideFile(r io.Reader) (*SideFile, error) {
	in := sideFileIn{}
	if err := yaml.NewDecoder(r).Decode(&in); err != nil {
		return nil, errors.Wrap(err, "decoding side file")
	}

	sf := &SideFile{
		Version: in.Version,
		Dataset: in.Dataset,
		Order:   in.Order,
		Lengths: in.Lengths,
	}

	if in.Version == "" {
		sf.Legacy = true
	} else if in.Version != SideFileVersion {
		return nil, errors.Newf(
			"Side file has version '%s', but only version '%s' (and legacy, "+
				"unversioned files) can be read.", in.Version, SideFileVersion,
		)
	}
	if sf.Dataset == "" {
		sf.Dataset = IDName
	}

	var err error
	if sf.Old, err = decodePositions(&in.OldPositions, "old_positions"); err != nil {
		return nil, err
	}
	if sf.New, err = decodePositions(&in.NewPositions, "new_positions"); err != nil {
		return nil, err
	}

	if err := sf.Validate(); err != nil {
		return nil, err
	}
	return sf, nil
}

// decodePositions accepts either a {positions, values} record or a legacy
// position -> value mapping.
func decodePositions(node *yaml.Node, name string) (ids.PositionMap, error) {
	if node.Kind == 0 {
		return ids.PositionMap{}, errors.Newf("Side file has no '%s'.", name)
	}
	if node.Kind != yaml.MappingNode {
		return ids.PositionMap{}, errors.Newf(
			"'%s' in side file is not a mapping (line %d).", name, node.Line,
		)
	}

	isRecord := false
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if key == "positions" || key == "values" {
			isRecord = true
		}
	}

	if isRecord {
		rec := positionRecord{}
		if err := node.Decode(&rec); err != nil {
			return ids.PositionMap{}, errors.Wrapf(err, "decoding %s", name)
		}
		return ids.PositionMap{
			Positions: nonNil(rec.Positions), Values: nonNil(rec.Values),
		}, nil
	}

	legacy := map[int64]int64{}
	if err := node.Decode(&legacy); err != nil {
		return ids.PositionMap{}, errors.Wrapf(err, "decoding legacy %s", name)
	}
	m := ids.PositionMap{
		Positions: make([]int64, 0, len(legacy)),
		Values:    make([]int64, 0, len(legacy)),
	}
	for p, v := range legacy {
		m.Positions = append(m.Positions, p)
		m.Values = append(m.Values, v)
	}
	m.Sort()
	return m, nil
}

func compressed(path string) bool { return strings.HasSuffix(path, ".zst") }

// WriteSideFile writes sf to path, replacing any existing file. Paths ending
// in ".zst" are zstd-compressed. The file is written under a temporary name
// and renamed into place.
func WriteSideFile(path string, sf *SideFile) (err error) {
	if err := sf.Validate(); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "creating side file %s", path)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if compressed(path) {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			return errors.Wrap(err, "creating zstd encoder")
		}
		if err := EncodeSideFile(enc, sf); err != nil {
			enc.Close()
			return err
		}
		if err := enc.Close(); err != nil {
			return errors.Wrap(err, "flushing zstd encoder")
		}
	} else if err := EncodeSideFile(f, sf); err != nil {
		return err
	}

	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "closing side file %s", path)
	}
	return errors.Wrapf(os.Rename(tmp, path), "moving side file into %s", path)
}

// ReadSideFile reads the side file at path.
func ReadSideFile(path string) (*SideFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening side file %s", path)
	}
	defer f.Close()

	if !compressed(path) {
		return DecodeSideFile(f)
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "creating zstd decoder")
	}
	defer dec.Close()
	return DecodeSideFile(dec)
}
