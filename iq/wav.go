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

package iq

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

const (
	wavFormatPCM  = 1
	wavChannels   = 2
	wavBitDepth   = 16
	wavFrameBytes = wavChannels * wavBitDepth / 8
)

// WAV is a Source backed by a 16-bit stereo PCM WAV file. The left channel
// carries the in-phase and the right channel the quadrature component.
//
// A WAV source owns a scratch buffer and must not be read concurrently.
type WAV struct {
	name string
	f    *os.File
	data *io.SectionReader
	rate int
	n    int

	buf []byte
}

// OpenWAV opens and validates a WAV file. The container must declare
// uncompressed PCM, exactly two channels and 16-bit samples.
func OpenWAV(path string) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open wav")
	}

	w, err := newWAV(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return w, nil
}

func newWAV(path string, f *os.File) (*WAV, error) {
	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, formatErrorf(path, "invalid wav header: %s", err)
	}

	switch {
	case dec.WavAudioFormat != wavFormatPCM:
		return nil, formatErrorf(path, "compressed or non-pcm encoding (format %d)", dec.WavAudioFormat)
	case dec.NumChans != wavChannels:
		return nil, formatErrorf(path, "expected %d channels, got %d", wavChannels, dec.NumChans)
	case dec.BitDepth != wavBitDepth:
		return nil, formatErrorf(path, "expected %d-bit samples, got %d-bit", wavBitDepth, dec.BitDepth)
	}

	start, size, err := findDataChunk(f)
	if err != nil {
		return nil, formatErrorf(path, "%s", err)
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat wav")
	}

	// Writers that stream to disk often leave the data chunk size unset.
	if available := fi.Size() - start; size > available {
		size = available
	}

	return &WAV{
		name: path,
		f:    f,
		data: io.NewSectionReader(f, start, size),
		rate: int(dec.SampleRate),
		n:    int(size / wavFrameBytes),
	}, nil
}

// findDataChunk walks the RIFF chunk list and returns the byte offset and
// size of the data chunk.
func findDataChunk(r io.ReadSeeker) (start, size int64, err error) {
	if _, err := r.Seek(12, io.SeekStart); err != nil {
		return 0, 0, err
	}

	for {
		var header struct {
			ID   [4]byte
			Size uint32
		}

		if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return 0, 0, errors.New("data chunk not found")
			}
			return 0, 0, err
		}

		pos, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, 0, err
		}

		if string(header.ID[:]) == "data" {
			return pos, int64(header.Size), nil
		}

		// Chunks are word aligned, odd sizes carry a pad byte.
		skip := int64(header.Size) + int64(header.Size&1)
		if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
			return 0, 0, err
		}
	}
}

func (w *WAV) ReadSamples(dst []complex64, offset int) (int, error) {
	if offset < 0 {
		return 0, errors.WithStack(ErrNegativeOffset)
	}
	if offset >= w.n {
		return 0, nil
	}

	count := len(dst)
	if remaining := w.n - offset; count > remaining {
		count = remaining
	}

	size := count * wavFrameBytes
	if cap(w.buf) < size {
		w.buf = make([]byte, size)
	}
	buf := w.buf[:size]

	n, err := w.data.ReadAt(buf, int64(offset)*wavFrameBytes)
	if err != nil && err != io.EOF {
		return 0, errors.Wrapf(err, "read %s", w.name)
	}

	count = n / wavFrameBytes
	for idx := range dst[:count] {
		i := int16(binary.LittleEndian.Uint16(buf[idx*wavFrameBytes:]))
		q := int16(binary.LittleEndian.Uint16(buf[idx*wavFrameBytes+2:]))
		dst[idx] = complex(float32(i), float32(q))
	}

	return count, nil
}

func (w *WAV) Len() int        { return w.n }
func (w *WAV) SampleRate() int { return w.rate }
func (w *WAV) Name() string    { return w.name }
func (w *WAV) Close() error    { return w.f.Close() }
