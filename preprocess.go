package simbavr

import (
	"github.com/cockroachdb/errors"

	"github.com/phil-mansfield/simbavr/array"
	"github.com/phil-mansfield/simbavr/ids"
	"github.com/phil-mansfield/simbavr/io"
)

// Preprocess replaces repeated particle IDs in snap with new IDs larger than
// any existing one. Partitions are concatenated in ascending tag order and
// the first occurrence of each ID is kept. The substitutions, together with
// the partition order and lengths, are written to the side file at sideFile
// before the snapshot is modified.
//
// If there are no repeated IDs, nothing is written and NothingToDo is
// returned.
func Preprocess(snap io.Container, sideFile string, opt *Options) (Status, error) {
	partitions, err := io.ReadPartitions(snap, io.IDName)
	if err != nil {
		return Modified, err
	}

	order := array.Tags(partitions)
	arrays := make([][]int64, len(order))
	lengths := make([]int64, len(order))
	for i, tag := range order {
		arrays[i] = partitions[tag]
		lengths[i] = int64(len(arrays[i]))
		opt.Log.Debug().Int("tag", tag).Int64("particles", lengths[i]).
			Msg("Read partition")
	}
	logMemory(opt.Log, "read")

	combined, offsets := array.Combine(arrays)
	out, oldMap, newMap, err := ids.Deduplicate(combined)
	if err != nil {
		return Modified, errors.Wrap(err, "deduplicating IDs")
	}
	if out == nil {
		opt.Log.Info().Int("particles", len(combined)).
			Msg("No repeated IDs found, nothing to do")
		return NothingToDo, nil
	}

	split, err := array.Split(out, offsets)
	if err != nil {
		return Modified, err
	}

	sf := &io.SideFile{
		Version: io.SideFileVersion,
		Dataset: io.IDName,
		Order:   order,
		Lengths: lengths,
		Old:     oldMap,
		New:     newMap,
	}
	if err := io.WriteSideFile(sideFile, sf); err != nil {
		return Modified, err
	}
	opt.Log.Info().Int("duplicates", oldMap.Len()).Str("side_file", sideFile).
		Msg("Wrote side file")

	if err := writePartitions(snap, io.IDName, order, split); err != nil {
		return Modified, errors.Wrapf(
			err, "snapshot partially written; %s can restore it", sideFile,
		)
	}
	logMemory(opt.Log, "written")

	return Modified, nil
}

// FixParticleIDs restores the particle IDs which Preprocess replaced, using
// the side file at sideFile. The partition order and lengths recorded in the
// side file must match the snapshot. If the side file records no
// substitutions, nothing is written and NothingToDo is returned.
func FixParticleIDs(snap io.Container, sideFile string, opt *Options) (Status, error) {
	sf, err := io.ReadSideFile(sideFile)
	if err != nil {
		return Modified, err
	}
	if sf.Old.Len() == 0 {
		opt.Log.Info().Str("side_file", sideFile).
			Msg("Side file records no replaced IDs, nothing to restore")
		return NothingToDo, nil
	}

	order, arrays, err := readOrdered(snap, sf)
	if err != nil {
		return Modified, err
	}
	logMemory(opt.Log, "read")

	combined, offsets := array.Combine(arrays)
	if err := sf.Old.Apply(combined); err != nil {
		return Modified, errors.Wrapf(err, "applying %s", sideFile)
	}
	split, err := array.Split(combined, offsets)
	if err != nil {
		return Modified, err
	}

	if err := writePartitions(snap, sf.Dataset, order, split); err != nil {
		return Modified, err
	}
	opt.Log.Info().Int("restored", sf.Old.Len()).Msg("Restored particle IDs")

	return Modified, nil
}

// readOrdered reads the partitions a side file refers to in the order it
// recorded them.
func readOrdered(snap io.Container, sf *io.SideFile) ([]int, [][]int64, error) {
	if sf.Legacy {
		partitions, err := io.ReadPartitions(snap, sf.Dataset)
		if err != nil {
			return nil, nil, err
		}
		order := array.Tags(partitions)
		arrays := make([][]int64, len(order))
		for i, tag := range order {
			arrays[i] = partitions[tag]
		}
		return order, arrays, nil
	}

	arrays := make([][]int64, len(sf.Order))
	for i, tag := range sf.Order {
		xs, ok, err := snap.ReadInt64(tag, sf.Dataset)
		if err != nil {
			return nil, nil, err
		} else if !ok {
			return nil, nil, errors.Newf(
				"The side file records %s, but the snapshot doesn't have it.",
				io.DatasetPath(tag, sf.Dataset),
			)
		} else if int64(len(xs)) != sf.Lengths[i] {
			return nil, nil, errors.Newf(
				"The side file records %d particles in %s, but the snapshot "+
					"has %d.", sf.Lengths[i], io.DatasetPath(tag, sf.Dataset),
				len(xs),
			)
		}
		arrays[i] = xs
	}
	return sf.Order, arrays, nil
}

func writePartitions(c io.Container, name string, order []int, xs [][]int64) error {
	for i, tag := range order {
		if err := c.WriteInt64(tag, name, xs[i]); err != nil {
			return errors.Wrapf(err, "writing %s", io.DatasetPath(tag, name))
		}
	}
	return nil
}
