package io

import (
	"fmt"
	"strings"
)

const (
	// SnapshotExtension is appended to snapshot names by every tool in this
	// module and by VELOCIraptor.
	SnapshotExtension = ".hdf5"
	// DefaultSuffix is the default side file suffix.
	DefaultSuffix = "duplicated"
	// DefaultSideFileExtension is the default side file extension. Adding
	// ".zst" turns on compression.
	DefaultSideFileExtension = "yaml"
)

// InputError is returned for malformed user input.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

// CheckInputPath returns an InputError if the snapshot name p is empty or
// already has the snapshot extension.
func CheckInputPath(p string) error {
	if p == "" {
		return &InputError{"No snapshot filename was given."}
	}
	if strings.HasSuffix(p, SnapshotExtension) {
		return &InputError{fmt.Sprintf(
			"Please remove the %s at the end of the snapshot filename '%s'; "+
				"it is added automatically.", SnapshotExtension, p,
		)}
	}
	return nil
}

// SnapshotPath returns the file name of the snapshot named p.
func SnapshotPath(p string) string { return p + SnapshotExtension }

// SideFilePath returns the path of the side file for the snapshot named p.
func SideFilePath(p, suffix, ext string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	if ext == "" {
		ext = DefaultSideFileExtension
	}
	return fmt.Sprintf("%s_%s.%s", p, suffix, strings.TrimPrefix(ext, "."))
}

// MembershipPath returns the path of the membership file written next to the
// VELOCIraptor catalogue with the given prefix.
func MembershipPath(catalogue string) string {
	return catalogue + ".ordered_group_particles"
}

// CatalogParticlesPath returns the path of the bound particle file of a
// VELOCIraptor catalogue.
func CatalogParticlesPath(catalogue string) string {
	return catalogue + ".catalog_particles"
}

// CatalogUnboundPath returns the path of the unbound particle file of a
// VELOCIraptor catalogue.
func CatalogUnboundPath(catalogue string) string {
	return catalogue + ".catalog_particles.unbound"
}

// CatalogGroupsPath returns the path of the group file of a VELOCIraptor
// catalogue.
func CatalogGroupsPath(catalogue string) string {
	return catalogue + ".catalog_groups"
}
