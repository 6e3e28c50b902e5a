/*package simbavr prepares SIMBA snapshots for the VELOCIraptor halo finder and
carries its output back into them.

The four operations are run in this order:

	Preprocess      replaces repeated particle IDs with new, unique ones
	(VELOCIraptor)  see the velociraptor package
	Postprocess     matches catalogue particles to snapshot particles
	AddInfo         writes the resulting group IDs into the snapshot

FixParticleIDs undoes Preprocess at any later point.
*/
package simbavr

import (
	"runtime"

	"github.com/rs/zerolog"
)

// Status reports whether an operation changed anything.
type Status int

const (
	Modified Status = iota
	NothingToDo
)

func (s Status) String() string {
	switch s {
	case Modified:
		return "modified"
	case NothingToDo:
		return "nothing to do"
	}
	return "unknown"
}

// Options are the settings shared by every operation.
type Options struct {
	Log zerolog.Logger
}

// PostprocessOptions configures Postprocess.
type PostprocessOptions struct {
	Options
	// Unbound adds a second pass over the catalogue's unbound particles.
	// Particles in both passes take their unbound group.
	Unbound bool
	// CheckUnique fails instead of matching when IDs repeat.
	CheckUnique bool
}

func logMemory(log zerolog.Logger, stage string) {
	if e := log.Debug(); e.Enabled() {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		e.Str("stage", stage).
			Uint64("alloc_mb", ms.Alloc>>20).
			Uint64("sys_mb", ms.Sys>>20).
			Msg("Memory usage")
	}
}
