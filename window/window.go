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


// Package window maintains a fixed-length sliding view over a sample source.
package window

import (
	"github.com/bemasher/iqcorr/iq"
	"github.com/pkg/errors"
)

// Window holds a contiguous run of samples and the absolute offset of its
// first sample. A Window is single-threaded.
type Window struct {
	src    iq.Source
	data   []complex64
	offset int

	buf []complex64
}

// New fills a window of up to capacity samples beginning at offset. The
// window is shorter than capacity if the source ends first.
func New(src iq.Source, capacity, offset int) (*Window, error) {
	if capacity < 0 {
		return nil, errors.Errorf("window: negative capacity %d", capacity)
	}

	data := make([]complex64, capacity)
	n, err := src.ReadSamples(data, offset)
	if err != nil {
		return nil, errors.Wrapf(err, "fill window at %d", offset)
	}

	return &Window{
		src:    src,
		data:   data[:n],
		offset: offset,
	}, nil
}

// Advance reads up to n samples following the window's last sample. The
// oldest samples are dropped so the window length is unchanged and the
// offset moves forward by the number of samples read.
//
// Advance returns 0 only when the source is exhausted, in which case the
// window is left as it was.
func (w *Window) Advance(n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}

	if cap(w.buf) < n {
		w.buf = make([]complex64, n)
	}
	fresh := w.buf[:n]

	read, err := w.src.ReadSamples(fresh, w.offset+len(w.data))
	if err != nil {
		return 0, errors.Wrapf(err, "advance window at %d", w.offset)
	}
	if read == 0 {
		return 0, nil
	}
	fresh = fresh[:read]

	// Shift buffer and append new samples.
	if read >= len(w.data) {
		copy(w.data, fresh[read-len(w.data):])
	} else {
		copy(w.data, w.data[read:])
		copy(w.data[len(w.data)-read:], fresh)
	}
	w.offset += read

	return read, nil
}

// Data returns the window's samples. The slice is only valid until the next
// call to Advance and must not be modified.
func (w *Window) Data() []complex64 { return w.data }

// Offset returns the absolute offset of the first sample in the window.
func (w *Window) Offset() int { return w.offset }

func (w *Window) Len() int { return len(w.data) }

// Fresh returns the newest n samples of the window.
func (w *Window) Fresh(n int) []complex64 {
	if n > len(w.data) {
		n = len(w.data)
	}
	if n < 0 {
		n = 0
	}
	return w.data[len(w.data)-n:]
}
