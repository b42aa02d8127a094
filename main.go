// IQCORR - Locate known waveforms and reference ticks in I/Q sample streams.
// Copyright (C) 2015 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.


package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"

	"github.com/bemasher/iqcorr/iq"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	buildTag   = "dev"     // v#.#.#
	buildDate  = "unknown" // date -u '+%Y-%m-%d'
	commitHash = "unknown" // git rev-parse HEAD
)

const (
	exitOK = iota
	exitError
	exitUsage
	exitFormat
	exitCancelled
	exitIncomplete
)

// errIncomplete is returned by commands that finished but could not fully
// resolve every result.
var errIncomplete = errors.New("completed with unresolved candidates")

type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...interface{}) error {
	return usageError{fmt.Errorf(format, args...)}
}

// env carries the state shared by every command of a single run.
type env struct {
	log    logrus.FieldLogger
	enc    Encoder
	stdout io.Writer
	stderr io.Writer

	sampleRate int
}

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"dump":        {dumpUsage, runDump},
	"find":        {findUsage, runFind},
	"findpattern": {findUsage, runFind},
	"findreftick": {findRefTickUsage, runFindRefTick},
	"convert":     {convertUsage, runConvert},
	"synth":       {synthUsage, runSynth},
	"version":     {"", runVersion},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	g := newGlobalFlags(stderr)

	overrides, err := EnvOverride(g.fs)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	if err := g.fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	logger, err := g.Logger(stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	enc, err := g.Encoder(stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	log := logger.WithField("run", uuid.New().String())
	for name, value := range overrides {
		log.WithFields(logrus.Fields{"flag": name, "value": value}).Debug("environment overrides flag")
	}
	g.LogIgnored(log)

	rest := g.fs.Args()
	if len(rest) == 0 {
		g.fs.Usage()
		return exitUsage
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
		g.fs.Usage()
		return exitUsage
	}

	e := &env{
		log:        log.WithField("cmd", rest[0]),
		enc:        enc,
		stdout:     stdout,
		stderr:     stderr,
		sampleRate: int(g.sampleRate),
	}

	return exitCode(ctx, e.log, cmd.run(ctx, e, rest[1:]))
}

func exitCode(ctx context.Context, log logrus.FieldLogger, err error) int {
	if err == nil {
		return exitOK
	}

	var usageErr usageError
	var formatErr *iq.FormatError

	switch {
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.As(err, &usageErr):
		log.Error(err)
		return exitUsage
	case errors.As(err, &formatErr):
		log.WithError(err).Error("unsupported input")
		return exitFormat
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		log.WithError(err).Warn("interrupted")
		return exitCancelled
	case errors.Is(err, errIncomplete):
		log.Warn(err)
		return exitIncomplete
	}

	log.WithError(err).Error("failed")
	log.Debugf("%+v", err)
	return exitError
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runVersion(ctx context.Context, e *env, args []string) error {
	fmt.Fprintln(e.stdout, "Build Tag: ", buildTag)
	fmt.Fprintln(e.stdout, "Build Date:", buildDate)
	fmt.Fprintln(e.stdout, "Commit:    ", commitHash)
	return nil
}
