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
	"math/rand"
	"os"
	"strings"

	"github.com/bemasher/iqcorr/gen"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const synthUsage = "[-periods N] [-high N] [-low N] [-spf N] [-scale F] [-noise F] [-seed N] [-rate N] OUTFILE"

// runSynth writes a synthetic reference tick signal. Files ending in .wav
// are written as WAV, anything else as packed samples.
func runSynth(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "synth", synthUsage)
	periods := fs.Int("periods", 3, "number of tick periods")
	high := fs.Int("high", 8, "high frames per period")
	low := fs.Int("low", 8, "low frames per period")
	spf := fs.Int("spf", 16, "samples per frame")
	scale := fs.Float64("scale", 1000, "level of the high frames, low frames are a fifth of it")
	noise := fs.Float64("noise", 0, "amplitude of added uniform noise")
	seed := fs.Int64("seed", 1, "noise seed")
	rate := fs.Int("rate", 48000, "sample rate declared in WAV output")

	pos, err := parseArgs(e, fs, args, 1, 1)
	if err != nil {
		return err
	}
	if *periods < 1 || *high < 1 || *low < 1 || *spf < 1 {
		return usagef("synth: periods, frames and samples per frame must be positive")
	}

	profile := gen.StepProfile(*scale, *scale/5, *high, *low, *periods)
	signal := gen.StepSignal(profile, *spf)

	if *noise > 0 {
		rng := rand.New(rand.NewSource(*seed))
		for idx, n := range gen.Noise(len(signal), *noise, rng) {
			signal[idx] += n
		}
	}

	f, err := os.Create(pos[0])
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(pos[0]), ".wav") {
		err = gen.WriteWAV(f, signal, *rate)
	} else {
		err = gen.WritePacked(f, signal)
	}
	if err != nil {
		return errors.Wrap(err, "write signal")
	}

	e.log.WithFields(logrus.Fields{
		"output":  pos[0],
		"samples": len(signal),
		"edges":   *periods,
	}).Info("done")

	return f.Close()
}
