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
	"io"
	"os"

	"github.com/bemasher/iqcorr/iq"
	"github.com/bemasher/iqcorr/window"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const convertUsage = "[-v] INFILE [OUTFILE]"

const convertChunk = 1 << 16

func runConvert(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "convert", convertUsage)
	verbose := fs.Bool("v", false, "verbose output")

	pos, err := parseArgs(e, fs, args, 1, 2)
	if err != nil {
		return err
	}

	in := pos[0]
	out := in + ".iq"
	if len(pos) == 2 {
		out = pos[1]
	}

	log := e.log.WithFields(logrus.Fields{"input": in, "output": out})
	if *verbose {
		if l, ok := e.log.(*logrus.Entry); ok {
			l.Logger.SetLevel(logrus.DebugLevel)
		}
	}

	src, err := iq.OpenWAV(in)
	if err != nil {
		return err
	}
	defer src.Close()

	log.WithFields(logrus.Fields{
		"samples":    src.Len(),
		"samplerate": src.SampleRate(),
	}).Debug("input")

	f, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	defer f.Close()

	if err := convert(ctx, src, f); err != nil {
		return err
	}

	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close output")
	}

	log.WithField("size", humanize.IBytes(uint64(src.Len()*iq.SampleSize))).Info("done")
	return nil
}

// convert streams every sample of src to w in packed form.
func convert(ctx context.Context, src iq.Source, w io.Writer) error {
	pw := iq.NewPackedWriter(w)

	win, err := window.New(src, convertChunk, 0)
	if err != nil {
		return err
	}
	if err := pw.Write(win.Data()); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "convert")
		}

		read, err := win.Advance(convertChunk)
		if err != nil {
			return err
		}
		if read == 0 {
			break
		}

		if err := pw.Write(win.Fresh(read)); err != nil {
			return err
		}
	}

	if pw.Samples() != src.Len() {
		return errors.Errorf("convert: wrote %d of %d samples", pw.Samples(), src.Len())
	}

	return pw.Flush()
}
