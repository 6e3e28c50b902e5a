/*package velociraptor runs the VELOCIraptor stf binary on a snapshot.

The binary should be compiled without MPI but with OpenMP. A non-zero exit
status is logged, not returned.
*/
package velociraptor

import (
	"context"
	"fmt"
	stdio "io"
	"os"
	"os/exec"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Runner holds everything needed to invoke VELOCIraptor.
type Runner struct {
	Binary     string
	ConfigFile string
	// Threads sets OMP_NUM_THREADS for the child process. -1 inherits the
	// current environment.
	Threads int

	Stdout, Stderr stdio.Writer
	Log            zerolog.Logger
}

// Command returns the command which runs VELOCIraptor on the snapshot at
// input (without .hdf5) and writes output files with the given prefix.
func (r *Runner) Command(ctx context.Context, input, output string) *exec.Cmd {
	cmd := exec.CommandContext(
		ctx, r.Binary, "-I", "2", "-i", input, "-C", r.ConfigFile, "-o", output,
	)
	cmd.Env = os.Environ()
	if r.Threads != -1 {
		cmd.Env = append(cmd.Env, fmt.Sprintf("OMP_NUM_THREADS=%d", r.Threads))
	}

	cmd.Stdout, cmd.Stderr = r.Stdout, r.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd
}

// Run blocks until VELOCIraptor exits. An error is returned only if the binary
// couldn't be started.
func (r *Runner) Run(ctx context.Context, input, output string) error {
	cmd := r.Command(ctx, input, output)
	r.Log.Info().
		Str("binary", r.Binary).
		Str("input", input).
		Str("output", output).
		Int("threads", r.Threads).
		Msg("Running VELOCIraptor")

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		r.Log.Warn().
			Int("exit_code", exitErr.ExitCode()).
			Msg("VELOCIraptor exited with a non-zero status")
		return nil
	} else if err != nil {
		return errors.Wrapf(err, "running %s", r.Binary)
	}

	r.Log.Info().Msg("VELOCIraptor finished")
	return nil
}

// ParseOutputPath splits an output prefix into its file name and the
// directory it lives in. The directory is "." for bare file names.
func ParseOutputPath(output string) (file, dir string) {
	return path.Base(output), path.Dir(output)
}

// CreateDirectory creates dir and any missing parents.
func CreateDirectory(dir string) error {
	return errors.Wrapf(os.MkdirAll(dir, 0777), "creating directory %s", dir)
}

// RunInDirectory resolves input and output relative to dir, creates the
// output directory and runs VELOCIraptor.
func (r *Runner) RunInDirectory(ctx context.Context, dir, input, output string) error {
	_, outDir := ParseOutputPath(output)
	if err := CreateDirectory(path.Join(dir, outDir)); err != nil {
		return err
	}
	return r.Run(ctx, path.Join(dir, input), path.Join(dir, output))
}
