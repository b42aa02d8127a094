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


// Package search distributes the correlation of a needle against every
// offset of a haystack over a pool of workers.
package search

import (
	"context"
	"runtime"
	"time"

	"github.com/bemasher/iqcorr/correlate"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const DefaultWorkloadSize = 1 << 16

type Config struct {
	Workers      int
	WorkloadSize int

	Logger   logrus.FieldLogger
	Progress time.Duration
}

func (cfg Config) withDefaults() Config {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.WorkloadSize <= 0 {
		cfg.WorkloadSize = DefaultWorkloadSize
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Progress <= 0 {
		cfg.Progress = time.Second
	}
	return cfg
}

// Task is a half-open range [Start, End) of haystack offsets.
type Task struct {
	Start, End int
}

func (t Task) Len() int { return t.End - t.Start }

// Result is an offset whose score passed the threshold.
type Result struct {
	Offset int
	Score  complex128
}

type kind int

const (
	chunkDone kind = iota
	workerDone
)

type message struct {
	kind   kind
	worker int
	task   Task
	scores []complex128
}

// Partition splits [0, length) into tasks of at most size offsets.
func Partition(length, size int) []Task {
	if size <= 0 {
		size = DefaultWorkloadSize
	}

	tasks := make([]Task, 0, (length+size-1)/size)
	for start := 0; start < length; start += size {
		end := start + size
		if end > length {
			end = length
		}
		tasks = append(tasks, Task{start, end})
	}
	return tasks
}

type Coordinator struct {
	cfg Config
}

func NewCoordinator(cfg Config) *Coordinator {
	return &Coordinator{cfg: cfg.withDefaults()}
}

// Scores correlates needle against every admissible offset of haystack and
// returns one score per offset. Offsets run from 0 to
// len(haystack)-len(needle). The result is empty if the needle is empty or
// longer than the haystack.
//
// Both slices are shared read-only by the workers and must not be modified
// until Scores returns.
func (c *Coordinator) Scores(ctx context.Context, haystack, needle []complex64) ([]complex128, error) {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return nil, nil
	}

	length := len(haystack) - len(needle) + 1
	tasks := Partition(length, c.cfg.WorkloadSize)

	workers := c.cfg.Workers
	if workers > len(tasks) {
		workers = len(tasks)
	}

	log := c.cfg.Logger.WithFields(logrus.Fields{
		"haystack": humanize.IBytes(uint64(len(haystack) * 8)),
		"needle":   len(needle),
		"offsets":  length,
		"workers":  workers,
		"tasks":    len(tasks),
	})
	log.Debug("starting search")

	tmpl := correlate.NewTemplate(needle)

	g, gctx := errgroup.WithContext(ctx)

	taskCh := make(chan Task)
	msgCh := make(chan message, workers)

	g.Go(func() error {
		defer close(taskCh)
		for _, t := range tasks {
			select {
			case taskCh <- t:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			defer func() { msgCh <- message{kind: workerDone, worker: w} }()

			for t := range taskCh {
				if err := gctx.Err(); err != nil {
					return err
				}

				scores := make([]complex128, t.Len())
				for idx := range scores {
					offset := t.Start + idx
					scores[idx] = tmpl.Score(haystack[offset : offset+len(needle)])
				}

				msgCh <- message{kind: chunkDone, worker: w, task: t, scores: scores}
			}
			return nil
		})
	}

	progress := rate.Sometimes{Interval: c.cfg.Progress}
	start := time.Now()

	scores := make([]complex128, length)
	covered := 0
	for done := 0; done < workers; {
		msg := <-msgCh
		switch msg.kind {
		case workerDone:
			done++
		case chunkDone:
			copy(scores[msg.task.Start:], msg.scores)
			covered += msg.task.Len()

			progress.Do(func() {
				log.WithFields(logrus.Fields{
					"worker":   msg.worker,
					"chunk":    msg.task.Start,
					"complete": float64(covered) / float64(length),
					"elapsed":  time.Since(start).Round(time.Millisecond),
				}).Info("search progress")
			})
		}
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "search cancelled")
		}
		return nil, errors.Wrap(err, "search")
	}

	if covered != length {
		return nil, errors.Errorf("search: covered %d of %d offsets", covered, length)
	}

	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Debug("search complete")

	return scores, nil
}

// Search returns, in increasing offset order, every offset whose score has a
// real part strictly greater than threshold. Undefined scores never pass.
func (c *Coordinator) Search(ctx context.Context, haystack, needle []complex64, threshold float64) ([]Result, error) {
	scores, err := c.Scores(ctx, haystack, needle)
	if err != nil {
		return nil, err
	}
	return Threshold(scores, threshold), nil
}

// Threshold filters scores whose real part is strictly greater than t.
func Threshold(scores []complex128, t float64) []Result {
	var results []Result
	for offset, s := range scores {
		if correlate.IsUndefined(s) {
			continue
		}
		if real(s) > t {
			results = append(results, Result{Offset: offset, Score: s})
		}
	}
	return results
}
