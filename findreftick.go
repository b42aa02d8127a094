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
	"time"

	"github.com/bemasher/iqcorr/iq"
	"github.com/bemasher/iqcorr/reftick"
	"github.com/pkg/errors"
)

const findRefTickUsage = "[-o OFFSET] [-f FRAMES] [-period D] [-frames N] [-gap N] [-spf N] [-floor F] FILE"

func runFindRefTick(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "findreftick", findRefTickUsage)
	offset := fs.Int("o", 0, "number of frames from the beginning of the file to skip")
	frames := fs.Int("f", 0, "limit search to at most this number of frames, 0 for all")
	period := fs.Duration("period", time.Second, "expected reference tick period")
	perPeriod := fs.Int("frames", 16, "coarse frames per period")
	gap := fs.Int("gap", 0, "minimum frames between ticks, 0 for half a period")
	spf := fs.Int("spf", 0, "coarse samples per frame, 0 to derive from sample rate and period")
	floor := fs.Float64("floor", 0.9, "minimum coarse score of a tick")

	pos, err := parseArgs(e, fs, args, 1, 1)
	if err != nil {
		return err
	}
	if *offset < 0 || *frames < 0 {
		return usagef("findreftick: offset and frames must not be negative")
	}

	src, err := iq.Open(pos[0], e.sampleRate)
	if err != nil {
		return err
	}
	defer src.Close()

	f, err := reftick.NewFinder(src, reftick.Config{
		SampleRate:      src.SampleRate(),
		Period:          *period,
		FramesPerPeriod: *perPeriod,
		GapFrames:       *gap,
		SamplesPerFrame: *spf,
		Floor:           *floor,
		Offset:          *offset,
		Limit:           *frames,
		Logger:          e.log,
	})
	if err != nil {
		return usageError{err}
	}

	candidates, err := f.Find(ctx)
	if err != nil {
		return err
	}

	incomplete := 0
	for _, c := range candidates {
		if c.Err != nil {
			incomplete++
		}
		if err := e.enc.Encode(c); err != nil {
			return errors.Wrap(err, "encode candidate")
		}
	}

	e.log.WithField("candidates", len(candidates)).Info("done")

	if incomplete > 0 {
		return errors.Wrapf(errIncomplete, "%d of %d candidates", incomplete, len(candidates))
	}
	return nil
}
