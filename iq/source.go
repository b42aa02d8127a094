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

// Package iq provides random access to streams of complex I/Q samples stored
// in WAV containers or packed complex64 files.
package iq

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// A Source produces complex samples from an absolute sample offset.
//
// ReadSamples copies at most len(dst) samples starting at offset. A short
// read with a nil error means the source is exhausted, it is not an error.
type Source interface {
	ReadSamples(dst []complex64, offset int) (int, error)
	Len() int
	SampleRate() int
	Close() error
}

// A Viewer exposes samples without copying them. Views are read-only and
// remain valid until the source is closed.
type Viewer interface {
	View(offset, limit int) []complex64
}

// ErrNegativeOffset is returned when reading before the start of a source.
var ErrNegativeOffset = errors.New("iq: negative offset")

// FormatError reports a file that cannot be interpreted as an I/Q stream.
// It is detected when a source is opened, never while reading.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return "iq: " + e.Reason
	}
	return fmt.Sprintf("iq: %s: %s", e.Path, e.Reason)
}

func formatErrorf(path, format string, args ...interface{}) error {
	return errors.WithStack(&FormatError{Path: path, Reason: fmt.Sprintf(format, args...)})
}

// Open opens path as a WAV file if it carries a RIFF header and as a packed
// complex64 file otherwise. The rate is used for packed files only, which
// carry no header to declare it in.
func Open(path string, rate int) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}

	var magic [4]byte
	n, _ := f.Read(magic[:])
	f.Close()

	if n == len(magic) && string(magic[:]) == "RIFF" {
		w, err := OpenWAV(path)
		if err != nil {
			return nil, err
		}
		return w, nil
	}

	p, err := OpenPacked(path, rate)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ReadAll reads limit samples beginning at offset into memory. A negative
// limit reads to the end of the source.
func ReadAll(src Source, offset, limit int) ([]complex64, error) {
	if offset < 0 {
		return nil, errors.WithStack(ErrNegativeOffset)
	}

	remaining := src.Len() - offset
	if remaining < 0 {
		remaining = 0
	}
	if limit < 0 || limit > remaining {
		limit = remaining
	}

	samples := make([]complex64, limit)
	n, err := src.ReadSamples(samples, offset)
	if err != nil {
		return nil, errors.Wrapf(err, "read %d samples at %d", limit, offset)
	}

	return samples[:n], nil
}

// Load is like ReadAll but returns a shared read-only view when the source
// supports one.
func Load(src Source, offset, limit int) ([]complex64, error) {
	if v, ok := src.(Viewer); ok {
		if samples := v.View(offset, limit); samples != nil {
			return samples, nil
		}
	}
	return ReadAll(src, offset, limit)
}

// CheckCompatible returns a FormatError if both sources declare a sample
// rate and the rates differ. A rate of zero is undeclared.
func CheckCompatible(haystack, needle Source) error {
	hRate, nRate := haystack.SampleRate(), needle.SampleRate()
	if hRate == 0 || nRate == 0 || hRate == nRate {
		return nil
	}

	return formatErrorf(name(needle), "sample rate mismatch: %d Hz != %d Hz", nRate, hRate)
}

func name(src Source) string {
	if n, ok := src.(interface{ Name() string }); ok {
		return n.Name()
	}
	return ""
}

// Samples is an in-memory Source.
type Samples []complex64

func (s Samples) ReadSamples(dst []complex64, offset int) (int, error) {
	if offset < 0 {
		return 0, errors.WithStack(ErrNegativeOffset)
	}
	if offset >= len(s) {
		return 0, nil
	}
	return copy(dst, s[offset:]), nil
}

func (s Samples) View(offset, limit int) []complex64 {
	if offset < 0 || offset > len(s) {
		return nil
	}
	v := s[offset:]
	if limit >= 0 && limit < len(v) {
		v = v[:limit]
	}
	return v
}

func (s Samples) Len() int        { return len(s) }
func (s Samples) SampleRate() int { return 0 }
func (s Samples) Close() error    { return nil }
