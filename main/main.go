package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/phil-mansfield/simbavr"
	"github.com/phil-mansfield/simbavr/io"
	"github.com/phil-mansfield/simbavr/io/h5"
	"github.com/phil-mansfield/simbavr/velociraptor"
)

// nothingToDoCode is the exit code used when a mode had nothing to change.
const nothingToDoCode = 3

func main() {
	var (
		preprocess, fixParticleIDs, runVELOCIraptor string
		postprocess, addInfo, exampleConfig         string
		logLevel                                    string
	)
	vars := map[string]*string{
		"Preprocess":      &preprocess,
		"FixParticleIDs":  &fixParticleIDs,
		"RunVELOCIraptor": &runVELOCIraptor,
		"Postprocess":     &postprocess,
		"AddInfo":         &addInfo,
		"ExampleConfig":   &exampleConfig,
	}

	for _, mode := range []string{
		"Preprocess", "FixParticleIDs", "RunVELOCIraptor", "Postprocess", "AddInfo",
	} {
		flag.StringVar(
			vars[mode], mode, "",
			fmt.Sprintf("Configuration file for [%s] mode.", mode),
		)
	}
	flag.StringVar(
		&exampleConfig,
		"ExampleConfig", "", "Prints an example configuration file of the "+
			"specified type to stdout. Accepted arguments are 'Preprocess', "+
			"'FixParticleIDs', 'RunVELOCIraptor', 'Postprocess', and 'AddInfo'.",
	)
	flag.StringVar(
		&logLevel, "LogLevel", "info",
		"Logging level: 'debug', 'info', 'warn', or 'error'.",
	)

	flag.Parse()

	log := createLogger(logLevel)

	modeName, err := getModeName(vars)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	var status simbavr.Status
	switch modeName {
	case "Preprocess":
		wrap := io.DefaultPreprocessWrapper()
		if err := io.ReadConfig(preprocess, wrap); err != nil {
			log.Fatal().Msg(err.Error())
		}
		status, err = idMain(&wrap.Preprocess, simbavr.Preprocess, log)

	case "FixParticleIDs":
		wrap := io.DefaultFixParticleIDsWrapper()
		if err := io.ReadConfig(fixParticleIDs, wrap); err != nil {
			log.Fatal().Msg(err.Error())
		}
		status, err = idMain(&wrap.FixParticleIDs, simbavr.FixParticleIDs, log)

	case "RunVELOCIraptor":
		wrap := io.DefaultRunVELOCIraptorWrapper()
		if err := io.ReadConfig(runVELOCIraptor, wrap); err != nil {
			log.Fatal().Msg(err.Error())
		}
		err = runVELOCIraptorMain(&wrap.RunVELOCIraptor, log)

	case "Postprocess":
		wrap := io.DefaultPostprocessWrapper()
		if err := io.ReadConfig(postprocess, wrap); err != nil {
			log.Fatal().Msg(err.Error())
		}
		err = postprocessMain(&wrap.Postprocess, log)

	case "AddInfo":
		wrap := io.DefaultAddInfoWrapper()
		if err := io.ReadConfig(addInfo, wrap); err != nil {
			log.Fatal().Msg(err.Error())
		}
		err = addInfoMain(&wrap.AddInfo, log)

	case "ExampleConfig":
		switch exampleConfig {
		case "Preprocess":
			fmt.Println(io.ExamplePreprocessFile)
		case "FixParticleIDs":
			fmt.Println(io.ExampleFixParticleIDsFile)
		case "RunVELOCIraptor":
			fmt.Println(io.ExampleRunVELOCIraptorFile)
		case "Postprocess":
			fmt.Println(io.ExamplePostprocessFile)
		case "AddInfo":
			fmt.Println(io.ExampleAddInfoFile)
		default:
			log.Fatal().Msg(
				"Unrecognized 'ExampleConfig' argument. Only recognized " +
					"arguments are 'Preprocess', 'FixParticleIDs', " +
					"'RunVELOCIraptor', 'Postprocess', and 'AddInfo'.",
			)
		}
	default:
		panic("Impossible")
	}

	if err != nil {
		log.Fatal().Msg(err.Error())
	}
	if status == simbavr.NothingToDo {
		os.Exit(nothingToDoCode)
	}
}

func createLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}).Level(lvl).With().Timestamp().Logger()
}

type idFunc func(io.Container, string, *simbavr.Options) (simbavr.Status, error)

func idMain(
	con *io.IDConfig, f idFunc, log zerolog.Logger,
) (status simbavr.Status, err error) {
	fname := io.SnapshotPath(con.Input)
	snap, err := h5.Open(fname, true)
	if err != nil {
		return simbavr.Modified, err
	}
	defer func() {
		if cerr := snap.Close(); err == nil {
			err = cerr
		}
	}()

	log = log.With().Str("snapshot", fname).Logger()
	return f(snap, con.SideFile(), &simbavr.Options{Log: log})
}

func runVELOCIraptorMain(con *io.RunVELOCIraptorConfig, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := &velociraptor.Runner{
		Binary:     con.Binary,
		ConfigFile: con.Config,
		Threads:    con.Threads,
		Log:        log,
	}
	return r.RunInDirectory(ctx, con.Directory, con.Input, con.OutputPrefix())
}

func postprocessMain(con *io.PostprocessConfig, log zerolog.Logger) (err error) {
	fname := io.SnapshotPath(con.Input)
	snap, err := h5.Open(fname, false)
	if err != nil {
		return err
	}
	defer snap.Close()

	prefix := con.CataloguePrefix()
	outName := io.MembershipPath(prefix)
	out, err := h5.Create(outName)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(outName)
		}
	}()

	opt := &simbavr.PostprocessOptions{
		Options:     simbavr.Options{Log: log.With().Str("catalogue", prefix).Logger()},
		Unbound:     con.Unbound,
		CheckUnique: con.CheckUnique,
	}
	if err := simbavr.Postprocess(snap, &h5.Catalog{Prefix: prefix}, out, opt); err != nil {
		return err
	}
	log.Info().Str("file", outName).Msg("Wrote group membership")
	return nil
}

func addInfoMain(con *io.AddInfoConfig, log zerolog.Logger) (err error) {
	snap, err := h5.Open(io.SnapshotPath(con.Snapshot), true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := snap.Close(); err == nil {
			err = cerr
		}
	}()

	files := []struct{ membership, name string }{{con.Halos, con.HaloName}}
	if con.ValidGalaxies() {
		files = append(files, struct{ membership, name string }{
			con.Galaxies, con.GalaxyName,
		})
	}

	opt := &simbavr.Options{Log: log.With().Str("snapshot", snap.Name()).Logger()}
	for _, file := range files {
		membership, err := h5.Open(file.membership, false)
		if err != nil {
			return err
		}
		err = simbavr.AddInfo(snap, membership, file.name, opt)
		membership.Close()
		if err != nil {
			return errors.Wrapf(err, "adding %s", file.membership)
		}
	}
	return nil
}

func getModeName(vars map[string]*string) (string, error) {
	setNames := []string{}

	for name, varPtr := range vars {
		if *varPtr != "" {
			setNames = append(setNames, name)
		}
	}

	if len(setNames) == 0 {
		return "", errors.Newf("No flags have been set.")
	}

	if len(setNames) > 1 {
		return "", errors.Newf(
			"The following flags were set: %s, but simbavr only accepts "+
				"one flag at a time.", strings.Join(setNames, ", "),
		)
	}

	return setNames[0], nil
}
