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
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bemasher/iqcorr/csv"
	"github.com/bemasher/rtltcp/si"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const envPrefix = "IQCORR_"

type globalFlags struct {
	fs *flag.FlagSet

	sampleRate si.ScientificNotation
	format     string
	logLevel   string
	logFormat  string

	// Parameterized the FFT peak search, accepted and ignored.
	blockSize  int
	skipFrames int
}

func newGlobalFlags(output io.Writer) *globalFlags {
	g := &globalFlags{fs: flag.NewFlagSet("iqcorr", flag.ContinueOnError)}
	g.fs.SetOutput(output)

	g.fs.Var(&g.sampleRate, "samplerate", "sample rate of packed input files, ex. 2.4M (WAV files declare their own)")
	g.fs.StringVar(&g.format, "format", "plain", "result output format: plain, csv or json")
	g.fs.StringVar(&g.logLevel, "loglevel", "info", "log level: debug, info, warn or error")
	g.fs.StringVar(&g.logFormat, "logformat", "text", "log format: text or json")
	g.fs.IntVar(&g.blockSize, "b", 1024, "ignored")
	g.fs.IntVar(&g.skipFrames, "s", 1, "ignored")

	g.fs.Usage = func() {
		fmt.Fprintf(output, "Usage: iqcorr [flags] <%s> [args]\n\n", strings.Join(commandNames(), "|"))
		for _, name := range commandNames() {
			if u := commands[name].usage; u != "" {
				fmt.Fprintf(output, "  iqcorr %s %s\n", name, u)
			}
		}
		fmt.Fprintln(output)
		printDefaults(g.fs, output)
	}

	return g
}

func printDefaults(fs *flag.FlagSet, output io.Writer) {
	fs.VisitAll(func(f *flag.Flag) {
		if f.Usage == "ignored" {
			return
		}
		fmt.Fprintf(output, "  -%s=%s: %s\n", f.Name, f.Value, f.Usage)
	})
}

// EnvOverride sets any flag of fs named by an IQCORR_<FLAG> environment
// variable. Command line flags parsed afterwards take precedence. It returns
// the flags that were overridden.
func EnvOverride(fs *flag.FlagSet) (map[string]string, error) {
	overrides := map[string]string{}

	var err error
	fs.VisitAll(func(f *flag.Flag) {
		envName := envPrefix + strings.ToUpper(f.Name)
		flagValue := os.Getenv(envName)
		if flagValue == "" || err != nil {
			return
		}

		if setErr := fs.Set(f.Name, flagValue); setErr != nil {
			err = usagef("environment variable %q failed to override flag %q with value %q: %s",
				envName, f.Name, flagValue, setErr,
			)
			return
		}
		overrides[f.Name] = flagValue
	})

	return overrides, err
}

func (g *globalFlags) Logger(output io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(output)

	level, err := logrus.ParseLevel(g.logLevel)
	if err != nil {
		return nil, errors.Wrap(err, "loglevel")
	}
	logger.SetLevel(level)

	switch strings.ToLower(g.logFormat) {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.Errorf("unknown log format %q", g.logFormat)
	}

	return logger, nil
}

func (g *globalFlags) Encoder(output io.Writer) (Encoder, error) {
	switch strings.ToLower(g.format) {
	case "plain":
		return PlainEncoder{output}, nil
	case "csv":
		return csv.NewEncoder(output), nil
	case "json":
		return json.NewEncoder(output), nil
	}
	return nil, errors.Errorf("unknown output format %q", g.format)
}

// LogIgnored notes compatibility flags that were given but have no effect.
func (g *globalFlags) LogIgnored(log logrus.FieldLogger) {
	g.fs.Visit(func(f *flag.Flag) {
		if f.Usage == "ignored" {
			log.WithField("flag", f.Name).Warn("flag has no effect")
		}
	})
}

// newFlagSet returns a flag set for a command.
func newFlagSet(e *env, name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(e.stderr, "Usage: iqcorr %s %s\n\n", name, usage)
		printDefaults(fs, e.stderr)
	}
	return fs
}

// parseArgs parses flags interspersed with positional arguments and checks
// the number of positional arguments is within [lo, hi]. Environment
// overrides are applied before the command line.
func parseArgs(e *env, fs *flag.FlagSet, args []string, lo, hi int) ([]string, error) {
	overrides, err := EnvOverride(fs)
	if err != nil {
		return nil, err
	}
	for name, value := range overrides {
		e.log.WithFields(logrus.Fields{"flag": name, "value": value}).Debug("environment overrides flag")
	}

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, usageError{err}
		}

		args = fs.Args()
		if len(args) == 0 {
			break
		}
		positional = append(positional, args[0])
		args = args[1:]
	}

	if len(positional) < lo || len(positional) > hi {
		fs.Usage()
		return nil, usagef("%s: expected %d to %d arguments, got %d", fs.Name(), lo, hi, len(positional))
	}

	return positional, nil
}

// JSON and CSV both implement this interface so we can simplify result
// output formatting.
type Encoder interface {
	Encode(interface{}) error
}

type PlainEncoder struct {
	w io.Writer
}

func (pe PlainEncoder) Encode(v interface{}) (err error) {
	_, err = fmt.Fprintln(pe.w, v)
	return
}
