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


// Package reftick locates a recurring high/low synchronization pulse in a
// sample source. A coarse scan over frame-averaged samples finds candidate
// pulses which are then refined by repeatedly halving the frame length until
// the pulse edge is located to a single sample.
package reftick

import (
	"context"
	"math"
	"time"

	"github.com/bemasher/iqcorr/correlate"
	"github.com/bemasher/iqcorr/iq"
	"github.com/bemasher/iqcorr/window"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrInsufficientSearchRange is recorded on a candidate whose best match at
// some resolution lies on the boundary of the searched range. The candidate
// keeps its last estimate.
var ErrInsufficientSearchRange = errors.New("reftick: insufficient search range")

type Config struct {
	SampleRate int
	Period     time.Duration

	FramesPerPeriod int
	GapFrames       int

	// SamplesPerFrame overrides the value derived from SampleRate and
	// Period when non-zero.
	SamplesPerFrame int

	Floor     float64
	High, Low float64

	// Offset and Limit bound the scanned samples. A Limit of zero or less
	// scans to the end of the source.
	Offset, Limit int

	Logger logrus.FieldLogger
}

func (cfg Config) withDefaults() (Config, error) {
	if cfg.FramesPerPeriod <= 0 {
		cfg.FramesPerPeriod = 16
	}
	if cfg.GapFrames <= 0 {
		cfg.GapFrames = cfg.FramesPerPeriod / 2
	}
	if cfg.Floor == 0 {
		cfg.Floor = 0.9
	}
	if cfg.High == 0 && cfg.Low == 0 {
		cfg.High, cfg.Low = 1.0, 0.2
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	if cfg.SamplesPerFrame <= 0 {
		if cfg.SampleRate <= 0 || cfg.Period <= 0 {
			return cfg, errors.New("reftick: samples per frame requires a sample rate and period")
		}
		samples := float64(cfg.SampleRate) * cfg.Period.Seconds()
		cfg.SamplesPerFrame = int(math.Round(samples / float64(cfg.FramesPerPeriod)))
	}

	switch {
	case cfg.SamplesPerFrame < 1:
		return cfg, errors.Errorf("reftick: period too short for %d frames", cfg.FramesPerPeriod)
	case cfg.GapFrames < 3:
		return cfg, errors.Errorf("reftick: gap of %d frames is too short", cfg.GapFrames)
	case cfg.Offset < 0:
		return cfg, errors.WithStack(iq.ErrNegativeOffset)
	}

	return cfg, nil
}

// Candidate is a located pulse. Start is the absolute sample offset of the
// best matching template and Edge the offset of its high to low transition.
type Candidate struct {
	Start, Edge     int
	Score           float64
	SamplesPerFrame int
	Err             error

	frames int
}

type Finder struct {
	src iq.Source
	cfg Config
	end int
	log logrus.FieldLogger
}

func NewFinder(src iq.Source, cfg Config) (*Finder, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	end := src.Len()
	if cfg.Limit > 0 && cfg.Offset+cfg.Limit < end {
		end = cfg.Offset + cfg.Limit
	}

	return &Finder{
		src: bounded{src, end},
		cfg: cfg,
		end: end,
		log: cfg.Logger.WithField("spf", cfg.SamplesPerFrame),
	}, nil
}

// Find scans the source and refines every candidate down to single-sample
// resolution. Candidates that could not be fully refined carry a wrapped
// ErrInsufficientSearchRange.
func (f *Finder) Find(ctx context.Context) ([]Candidate, error) {
	candidates, err := f.Coarse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "refine")
		}

		active := 0
		for idx := range candidates {
			c := &candidates[idx]
			if c.Err != nil || c.SamplesPerFrame < 2 {
				continue
			}
			if err := f.refine(c, idx); err != nil {
				return nil, err
			}
			active++
		}
		if active == 0 {
			break
		}
	}

	for idx, c := range candidates {
		log := f.log.WithFields(logrus.Fields{
			"candidate": idx,
			"edge":      c.Edge,
			"score":     c.Score,
		})
		if c.Err != nil {
			log.WithError(c.Err).Warn("candidate not fully refined")
		} else {
			log.Debug("candidate")
		}
	}

	return candidates, nil
}

// Coarse returns the candidates found at the configured frame length.
func (f *Finder) Coarse(ctx context.Context) ([]Candidate, error) {
	profile, err := f.profile(ctx)
	if err != nil {
		return nil, err
	}

	high := f.cfg.GapFrames - 2
	template := correlate.StepTemplate(high, high, f.cfg.High, f.cfg.Low)
	scores := correlate.Rough(profile, template)

	spf := f.cfg.SamplesPerFrame
	var candidates []Candidate
	for _, frame := range locate(scores, f.cfg.Floor, f.cfg.GapFrames) {
		start := f.cfg.Offset + frame*spf
		candidates = append(candidates, Candidate{
			Start:           start,
			Edge:            start + high*spf,
			Score:           scores[frame],
			SamplesPerFrame: spf,
			frames:          len(template),
		})
	}

	f.log.WithFields(logrus.Fields{
		"frames":     len(profile),
		"candidates": len(candidates),
	}).Info("coarse scan complete")

	return candidates, nil
}

// profile reduces every full frame of the scan range. A trailing partial
// frame is dropped.
func (f *Finder) profile(ctx context.Context) ([]float64, error) {
	spf := f.cfg.SamplesPerFrame

	w, err := window.New(f.src, spf, f.cfg.Offset)
	if err != nil {
		return nil, errors.Wrap(err, "coarse scan")
	}
	if w.Len() < spf {
		return nil, nil
	}

	profile := make([]float64, 0, (f.end-f.cfg.Offset)/spf)
	profile = append(profile, correlate.Reduce(w.Data()))
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "coarse scan")
		}

		read, err := w.Advance(spf)
		if err != nil {
			return nil, errors.Wrap(err, "coarse scan")
		}
		if read < spf {
			break
		}

		profile = append(profile, correlate.Reduce(w.Data()))
	}

	return profile, nil
}

// locate walks the coarse scores and returns the index of the best score of
// each run. A run opens when a score reaches the floor and closes on the
// first score below the floor at least gap frames after it opened.
func locate(scores []float64, floor float64, gap int) []int {
	var (
		found     []int
		open      bool
		runStart  int
		best      int
		bestScore float64
	)

	for idx, s := range scores {
		above := s >= floor

		if !open {
			if above {
				open, runStart = true, idx
				best, bestScore = idx, s
			}
			continue
		}

		if above && s > bestScore {
			best, bestScore = idx, s
		}
		if !above && idx-runStart >= gap {
			found = append(found, best)
			open = false
		}
	}

	if open {
		found = append(found, best)
	}

	return found
}

// refine halves the candidate's frame length and searches a window of two
// frames either side of its current estimate.
func (f *Finder) refine(c *Candidate, idx int) error {
	spf := c.SamplesPerFrame
	next := spf / 2

	frames := int(math.Round(float64(c.frames*spf) / float64(next)))
	if frames&1 == 1 {
		frames++
	}

	start := c.Start - 2*spf
	if start < f.cfg.Offset {
		start = f.cfg.Offset
	}
	length := (c.frames + 4) * spf

	samples, err := iq.ReadAll(f.src, start, length)
	if err != nil {
		return errors.Wrapf(err, "refine candidate %d", idx)
	}

	profile := correlate.ReduceFrames(samples, next)
	template := correlate.StepTemplate(frames/2, frames/2, f.cfg.High, f.cfg.Low)
	scores := correlate.Rough(profile, template)

	best, score := correlate.ArgMax(scores)
	if best <= 0 || best == len(scores)-1 {
		c.Err = errors.Wrapf(ErrInsufficientSearchRange, "candidate %d at %d samples per frame", idx, next)
		return nil
	}

	c.Start = start + best*next
	c.Edge = c.Start + frames/2*next
	c.Score = score
	c.SamplesPerFrame = next
	c.frames = frames

	return nil
}

// bounded clips a source to end samples.
type bounded struct {
	iq.Source
	end int
}

func (b bounded) ReadSamples(dst []complex64, offset int) (int, error) {
	if remaining := b.end - offset; len(dst) > remaining {
		if remaining < 0 {
			remaining = 0
		}
		dst = dst[:remaining]
	}
	return b.Source.ReadSamples(dst, offset)
}

func (b bounded) Len() int { return b.end }
