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
	"fmt"
	"strconv"

	"github.com/bemasher/iqcorr/iq"
	"github.com/pkg/errors"
)

const dumpUsage = "[-o OFFSET] [-f FRAMES] FILE"

const dumpChunk = 4096

type sample struct {
	Offset int
	Value  complex64
}

func (s sample) String() string {
	return fmt.Sprintf("(%g%+gj)", real(s.Value), imag(s.Value))
}

func (s sample) Header() []string {
	return []string{"offset", "real", "imag"}
}

func (s sample) Record() []string {
	return []string{
		strconv.Itoa(s.Offset),
		strconv.FormatFloat(float64(real(s.Value)), 'g', -1, 32),
		strconv.FormatFloat(float64(imag(s.Value)), 'g', -1, 32),
	}
}

func (s sample) MarshalJSON() ([]byte, error) {
	r := s.Record()
	return []byte(fmt.Sprintf(`{"offset":%s,"real":%s,"imag":%s}`, r[0], r[1], r[2])), nil
}

func runDump(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "dump", dumpUsage)
	offset := fs.Int("o", 0, "number of frames from the beginning of the file to skip")
	frames := fs.Int("f", 0, "limit output to at most this number of frames, 0 for all")

	pos, err := parseArgs(e, fs, args, 1, 1)
	if err != nil {
		return err
	}
	if *offset < 0 || *frames < 0 {
		return usagef("dump: offset and frames must not be negative")
	}

	src, err := iq.Open(pos[0], e.sampleRate)
	if err != nil {
		return err
	}
	defer src.Close()

	end := src.Len()
	if *frames > 0 && *offset+*frames < end {
		end = *offset + *frames
	}

	buf := make([]complex64, dumpChunk)
	for at := *offset; at < end; {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "dump")
		}

		chunk := buf
		if remaining := end - at; len(chunk) > remaining {
			chunk = chunk[:remaining]
		}

		n, err := src.ReadSamples(chunk, at)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}

		for idx, v := range chunk[:n] {
			if err := e.enc.Encode(sample{at + idx, v}); err != nil {
				return errors.Wrap(err, "encode sample")
			}
		}
		at += n
	}

	return nil
}
