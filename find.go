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
	"runtime"
	"time"

	"github.com/bemasher/iqcorr/iq"
	"github.com/bemasher/iqcorr/search"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const findUsage = "[-o OFFSET] [-f FRAMES] [-t THRESHOLD] [-workers W] [-workload N] PATTERN FILE"

func runFind(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "find", findUsage)
	offset := fs.Int("o", 0, "number of frames from the beginning of FILE to skip")
	frames := fs.Int("f", 0, "limit search to at most this number of frames, 0 for all")
	threshold := fs.Float64("t", 0.5, "correlation threshold, between -1 and +1")
	workers := fs.Int("workers", runtime.NumCPU(), "number of correlation workers")
	workload := fs.Int("workload", search.DefaultWorkloadSize, "offsets per worker task")

	pos, err := parseArgs(e, fs, args, 2, 2)
	if err != nil {
		return err
	}
	if *offset < 0 || *frames < 0 {
		return usagef("find: offset and frames must not be negative")
	}
	if *workers < 1 || *workload < 1 {
		return usagef("find: workers and workload must be positive")
	}

	needleSrc, err := iq.Open(pos[0], e.sampleRate)
	if err != nil {
		return err
	}
	defer needleSrc.Close()

	haystackSrc, err := iq.Open(pos[1], e.sampleRate)
	if err != nil {
		return err
	}
	defer haystackSrc.Close()

	if err := iq.CheckCompatible(haystackSrc, needleSrc); err != nil {
		return err
	}

	limit := -1
	if *frames > 0 {
		limit = *frames
	}

	e.log.Info("loading pattern")
	needle, err := iq.Load(needleSrc, 0, -1)
	if err != nil {
		return errors.Wrap(err, "load pattern")
	}

	e.log.Info("loading haystack")
	haystack, err := iq.Load(haystackSrc, *offset, limit)
	if err != nil {
		return errors.Wrap(err, "load haystack")
	}

	log := e.log.WithFields(logrus.Fields{
		"pattern":  len(needle),
		"haystack": len(haystack),
		"size":     humanize.IBytes(uint64(len(haystack) * iq.SampleSize)),
	})
	log.Info("correlating")

	start := time.Now()
	c := search.NewCoordinator(search.Config{
		Workers:      *workers,
		WorkloadSize: *workload,
		Logger:       log,
	})

	results, err := c.Search(ctx, haystack, needle, *threshold)
	if err != nil {
		return err
	}

	for _, r := range results {
		r.Offset += *offset
		if err := e.enc.Encode(r); err != nil {
			return errors.Wrap(err, "encode result")
		}
	}

	log.WithFields(logrus.Fields{
		"results": len(results),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("done")

	return nil
}
