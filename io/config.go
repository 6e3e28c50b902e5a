package io

import (
	"fmt"
	"path"

	"github.com/cockroachdb/errors"
	"gopkg.in/gcfg.v1"
)

const (
	ExamplePreprocessFile = `[Preprocess]

#######################
# Required Parameters #
#######################

# Snapshot filename, including its path but excluding the .hdf5 extension.
Input = path/to/snap_m50n512_151

#######################
# Optional Parameters #
#######################

# The side file recording every replaced ID is written to
# <Input>_<Suffix>.<Extension>. Set Extension to yaml.zst to compress it.
# Suffix = duplicated
# Extension = yaml`

	ExampleFixParticleIDsFile = `[FixParticleIDs]

#######################
# Required Parameters #
#######################

# Snapshot filename, including its path but excluding the .hdf5 extension.
Input = path/to/snap_m50n512_151

#######################
# Optional Parameters #
#######################

# These must match the values used when the snapshot was preprocessed.
# Suffix = duplicated
# Extension = yaml`

	ExampleRunVELOCIraptorFile = `[RunVELOCIraptor]

#######################
# Required Parameters #
#######################

# Snapshot filename relative to Directory, excluding the .hdf5 extension.
Input = snap_m50n512_151
# Directory that the snapshots and halos live in.
Directory = path/to/snapshots

#######################
# Optional Parameters #
#######################

# Path to the VELOCIraptor stf binary. It should be compiled without MPI, but
# with OpenMP.
# Binary = ./stf

# VELOCIraptor configuration file.
# Config = velociraptor.cfg

# Number of OpenMP threads. -1 leaves OMP_NUM_THREADS as it is.
# Threads = -1

# Name of the catalogue directory inside Directory.
# Catalogue = halo

# Output prefix relative to Directory. Defaults to <Catalogue>/<Input>, which
# produces files like halo/snap_m50n512_151.catalog_groups.
# Output = halo/snap_m50n512_151`

	ExamplePostprocessFile = `[Postprocess]

#######################
# Required Parameters #
#######################

# Snapshot filename, including its path but excluding the .hdf5 extension.
Input = path/to/snap_m50n512_151

#######################
# Optional Parameters #
#######################

# Prefix of the VELOCIraptor output. Defaults to halo/<Input>. Group
# membership is written to <Output>.ordered_group_particles.
# Output = halo/path/to/snap_m50n512_151

# Also assign unbound particles, read from <Output>.catalog_particles.unbound.
# Unbound particles that also appear in the bound catalogue take their
# unbound assignment.
# Unbound = false

# Check that particle IDs are unique before matching them. Matching is
# undefined for repeated IDs.
# CheckUnique = false`

	ExampleAddInfoFile = `[AddInfo]

#######################
# Required Parameters #
#######################

# Snapshot filename, including its path but excluding the .hdf5 extension.
Snapshot = path/to/snap_m50n512_151
# The .ordered_group_particles file for halos.
Halos = halo/snap_m50n512_151.ordered_group_particles

#######################
# Optional Parameters #
#######################

# The .ordered_group_particles file for galaxies.
# Galaxies = galaxy/snap_m50n512_151.ordered_group_particles

# Names of the datasets created in each PartType<X> group.
# HaloName = VRHaloID
# GalaxyName = VRGalID`
)

// IDConfig configures the [Preprocess] and [FixParticleIDs] modes.
type IDConfig struct {
	Input     string
	Suffix    string
	Extension string
}

type PreprocessWrapper struct {
	Preprocess IDConfig
}

type FixParticleIDsWrapper struct {
	FixParticleIDs IDConfig
}

func defaultIDConfig() IDConfig {
	return IDConfig{
		Suffix:    DefaultSuffix,
		Extension: DefaultSideFileExtension,
	}
}

func DefaultPreprocessWrapper() *PreprocessWrapper {
	return &PreprocessWrapper{defaultIDConfig()}
}

func DefaultFixParticleIDsWrapper() *FixParticleIDsWrapper {
	return &FixParticleIDsWrapper{defaultIDConfig()}
}

func (con *IDConfig) ValidSuffix() bool    { return con.Suffix != "" }
func (con *IDConfig) ValidExtension() bool { return con.Extension != "" }

// Check returns an InputError describing the first invalid parameter.
func (con *IDConfig) Check() error {
	if err := CheckInputPath(con.Input); err != nil {
		return err
	} else if !con.ValidSuffix() {
		return &InputError{"Invalid/non-existent 'Suffix' value."}
	} else if !con.ValidExtension() {
		return &InputError{"Invalid/non-existent 'Extension' value."}
	}
	return nil
}

// SideFile returns the path of the side file.
func (con *IDConfig) SideFile() string {
	return SideFilePath(con.Input, con.Suffix, con.Extension)
}

// RunVELOCIraptorConfig configures the [RunVELOCIraptor] mode.
type RunVELOCIraptorConfig struct {
	Input, Directory string

	Binary    string
	Config    string
	Threads   int
	Catalogue string
	Output    string
}

type RunVELOCIraptorWrapper struct {
	RunVELOCIraptor RunVELOCIraptorConfig
}

func DefaultRunVELOCIraptorWrapper() *RunVELOCIraptorWrapper {
	return &RunVELOCIraptorWrapper{RunVELOCIraptorConfig{
		Binary:    "./stf",
		Config:    "velociraptor.cfg",
		Threads:   -1,
		Catalogue: "halo",
	}}
}

func (con *RunVELOCIraptorConfig) ValidDirectory() bool { return con.Directory != "" }
func (con *RunVELOCIraptorConfig) ValidThreads() bool {
	return con.Threads == -1 || con.Threads > 0
}

func (con *RunVELOCIraptorConfig) Check() error {
	if err := CheckInputPath(con.Input); err != nil {
		return err
	} else if !con.ValidDirectory() {
		return &InputError{"Invalid/non-existent 'Directory' value."}
	} else if !con.ValidThreads() {
		return &InputError{fmt.Sprintf(
			"'Threads' must be -1 or positive, but is %d.", con.Threads,
		)}
	} else if con.Binary == "" {
		return &InputError{"Invalid/non-existent 'Binary' value."}
	}
	return nil
}

// OutputPrefix returns Output, or its default, <Catalogue>/<Input>.
func (con *RunVELOCIraptorConfig) OutputPrefix() string {
	if con.Output != "" {
		return con.Output
	}
	return path.Join(con.Catalogue, con.Input)
}

// PostprocessConfig configures the [Postprocess] mode.
type PostprocessConfig struct {
	Input  string
	Output string

	Unbound     bool
	CheckUnique bool
}

type PostprocessWrapper struct {
	Postprocess PostprocessConfig
}

func DefaultPostprocessWrapper() *PostprocessWrapper {
	return &PostprocessWrapper{}
}

func (con *PostprocessConfig) Check() error {
	return CheckInputPath(con.Input)
}

// CataloguePrefix returns Output, or its default, halo/<Input>.
func (con *PostprocessConfig) CataloguePrefix() string {
	if con.Output != "" {
		return con.Output
	}
	return "halo/" + con.Input
}

// AddInfoConfig configures the [AddInfo] mode.
type AddInfoConfig struct {
	Snapshot string
	Halos    string
	Galaxies string

	HaloName   string
	GalaxyName string
}

type AddInfoWrapper struct {
	AddInfo AddInfoConfig
}

func DefaultAddInfoWrapper() *AddInfoWrapper {
	return &AddInfoWrapper{AddInfoConfig{
		HaloName:   "VRHaloID",
		GalaxyName: "VRGalID",
	}}
}

func (con *AddInfoConfig) ValidHalos() bool    { return con.Halos != "" }
func (con *AddInfoConfig) ValidGalaxies() bool { return con.Galaxies != "" }

func (con *AddInfoConfig) Check() error {
	if err := CheckInputPath(con.Snapshot); err != nil {
		return err
	} else if !con.ValidHalos() {
		return &InputError{"Invalid/non-existent 'Halos' value."}
	} else if con.HaloName == "" || con.GalaxyName == "" {
		return &InputError{"'HaloName' and 'GalaxyName' cannot be empty."}
	} else if con.HaloName == con.GalaxyName {
		return &InputError{"'HaloName' and 'GalaxyName' must be different."}
	}
	return nil
}

// ReadConfig reads the config file fname into wrap, which should be one of
// the Default...Wrapper() values, and checks the result.
func ReadConfig(fname string, wrap interface{}) error {
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return errors.Wrapf(err, "reading config file %s", fname)
	}
	return checkWrapper(wrap)
}

// ReadConfigString is ReadConfig for an in-memory config file.
func ReadConfigString(str string, wrap interface{}) error {
	if err := gcfg.ReadStringInto(wrap, str); err != nil {
		return errors.Wrap(err, "parsing config")
	}
	return checkWrapper(wrap)
}

func checkWrapper(wrap interface{}) error {
	switch w := wrap.(type) {
	case *PreprocessWrapper:
		return w.Preprocess.Check()
	case *FixParticleIDsWrapper:
		return w.FixParticleIDs.Check()
	case *RunVELOCIraptorWrapper:
		return w.RunVELOCIraptor.Check()
	case *PostprocessWrapper:
		return w.Postprocess.Check()
	case *AddInfoWrapper:
		return w.AddInfo.Check()
	}
	return errors.Newf("Unrecognized config type %T.", wrap)
}
