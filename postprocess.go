package simbavr

import (
	"github.com/cockroachdb/errors"

	"github.com/phil-mansfield/simbavr/array"
	"github.com/phil-mansfield/simbavr/groups"
	"github.com/phil-mansfield/simbavr/io"
)

// Postprocess finds the group of every particle in snap using the halo
// finder catalogue cat and writes one GroupID dataset per non-empty
// partition to out. Particles which aren't in any group get -1.
//
// Within the catalogue and within each partition, particle IDs must be
// unique. Set opt.CheckUnique to verify this first.
func Postprocess(
	snap io.Container, cat io.Catalog, out io.Container, opt *PostprocessOptions,
) error {
	finders, err := catalogFinders(cat, opt)
	if err != nil {
		return err
	}

	snapIDs, err := io.ReadPartitions(snap, io.IDName)
	if err != nil {
		return err
	}
	logMemory(opt.Log, "read")

	if opt.CheckUnique {
		for _, f := range finders {
			if err := f.CheckUnique(); err != nil {
				return errors.Wrap(err, "in catalogue")
			}
		}
		for _, tag := range array.Tags(snapIDs) {
			if err := groups.CheckUnique(snapIDs[tag]); err != nil {
				return errors.Wrapf(err, "in %s", io.DatasetPath(tag, io.IDName))
			}
		}
	}

	memberships, report, err := groups.Correspond(finders, snapIDs)
	if err != nil {
		return err
	}
	logMemory(opt.Log, "matched")

	for _, tag := range array.Tags(memberships) {
		m := memberships[tag]
		opt.Log.Info().
			Int("tag", tag).
			Int("particles", m.Len()).
			Int("grouped", m.Grouped()).
			Ints("assigned_per_pass", report.Assigned[tag]).
			Msg("Matched partition")
		if n := report.Overlaps[tag]; n > 0 {
			opt.Log.Warn().Int("tag", tag).Uint64("particles", n).
				Msg("Particles are in both the bound and unbound catalogues; " +
					"keeping their unbound groups")
		}
	}

	for _, tag := range array.Tags(memberships) {
		m := memberships[tag]
		if m.Len() == 0 {
			continue
		}
		if err := out.WriteInt64(tag, io.GroupIDName, m.Int64s()); err != nil {
			return errors.Wrapf(err, "writing %s", io.DatasetPath(tag, io.GroupIDName))
		}
	}
	return nil
}

func catalogFinders(cat io.Catalog, opt *PostprocessOptions) ([]*groups.Finder, error) {
	bound, err := cat.Bound()
	if err != nil {
		return nil, errors.Wrap(err, "reading bound particles")
	}
	f, err := bound.Finder()
	if err != nil {
		return nil, errors.Wrap(err, "in bound particles")
	}
	opt.Log.Info().Int("groups", len(bound.Sizes)).Int("particles", f.Len()).
		Msg("Read bound particles")
	finders := []*groups.Finder{f}

	if !opt.Unbound {
		return finders, nil
	}

	unbound, ok, err := cat.Unbound()
	if err != nil {
		return nil, errors.Wrap(err, "reading unbound particles")
	} else if !ok {
		return nil, errors.Newf("Unbound particles were requested, but the " +
			"catalogue doesn't have any.")
	}
	f, err = unbound.Finder()
	if err != nil {
		return nil, errors.Wrap(err, "in unbound particles")
	}
	opt.Log.Info().Int("groups", len(unbound.Sizes)).Int("particles", f.Len()).
		Msg("Read unbound particles")

	return append(finders, f), nil
}

// AddInfo copies the GroupID datasets of a membership file written by
// Postprocess into snap under the given name. Every partition which the
// snapshot header counts particles in must be present in membership with the
// same length. Nothing is written unless every partition checks out.
func AddInfo(snap io.Snapshot, membership io.Container, name string, opt *Options) error {
	hd, err := snap.Header()
	if err != nil {
		return errors.Wrap(err, "reading snapshot header")
	}

	staged := map[int][]int64{}
	for tag := 0; tag < io.NTypes; tag++ {
		n := hd.NumPartThisFile[tag]
		if n == 0 {
			continue
		}

		xs, ok, err := membership.ReadInt64(tag, io.GroupIDName)
		if err != nil {
			return err
		} else if !ok {
			return errors.Newf(
				"The snapshot has %d particles of type %d, but the membership "+
					"file has no %s.", n, tag, io.DatasetPath(tag, io.GroupIDName),
			)
		} else if int64(len(xs)) != n {
			return errors.Newf(
				"The snapshot has %d particles of type %d, but the membership "+
					"file has %d.", n, tag, len(xs),
			)
		}

		m, err := groups.MembershipFromInt64s(xs)
		if err != nil {
			return errors.Wrapf(err, "in %s", io.DatasetPath(tag, io.GroupIDName))
		}
		opt.Log.Debug().Int("tag", tag).Int("grouped", m.Grouped()).
			Msg("Read membership")
		staged[tag] = xs
	}

	for _, tag := range array.Tags(staged) {
		if err := snap.WriteInt64(tag, name, staged[tag]); err != nil {
			return errors.Wrapf(err, "writing %s", io.DatasetPath(tag, name))
		}
	}
	opt.Log.Info().Str("dataset", name).Int("partitions", len(staged)).
		Msg("Added group membership to snapshot")
	return nil
}
