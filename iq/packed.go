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
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"unsafe"

	"github.com/pkg/errors"
)

// SampleSize is the size in bytes of one packed complex64 sample.
const SampleSize = 8

var littleEndian = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()

// Packed is a Source backed by a headerless file of little-endian complex64
// samples, real part first. The file is memory mapped read-only when the
// platform allows it, otherwise samples are read with ReadAt.
type Packed struct {
	name string
	f    *os.File
	rate int
	n    int

	data  []byte
	unmap func([]byte) error

	buf []byte
}

// OpenPacked opens a packed sample file. Packed files carry no header, the
// caller declares the sample rate (zero if unknown). A trailing partial
// sample is ignored.
func OpenPacked(path string, rate int) (*Packed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open packed")
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat packed")
	}
	if !fi.Mode().IsRegular() {
		f.Close()
		return nil, formatErrorf(path, "not a regular file")
	}

	p := &Packed{
		name: path,
		f:    f,
		rate: rate,
		n:    int(fi.Size() / SampleSize),
	}

	if p.n > 0 {
		// Fall back to ReadAt if the mapping fails.
		if data, unmap, err := mapFile(f, p.n*SampleSize); err == nil {
			p.data, p.unmap = data, unmap
		}
	}

	return p, nil
}

func (p *Packed) ReadSamples(dst []complex64, offset int) (int, error) {
	if offset < 0 {
		return 0, errors.WithStack(ErrNegativeOffset)
	}
	if offset >= p.n {
		return 0, nil
	}

	count := len(dst)
	if remaining := p.n - offset; count > remaining {
		count = remaining
	}

	var raw []byte
	if p.data != nil {
		raw = p.data[offset*SampleSize : (offset+count)*SampleSize]
	} else {
		size := count * SampleSize
		if cap(p.buf) < size {
			p.buf = make([]byte, size)
		}
		raw = p.buf[:size]

		n, err := p.f.ReadAt(raw, int64(offset)*SampleSize)
		if err != nil && err != io.EOF {
			return 0, errors.Wrapf(err, "read %s", p.name)
		}
		count = n / SampleSize
	}

	Unpack(raw[:count*SampleSize], dst[:count])

	return count, nil
}

// View returns a zero-copy view of the mapped samples. It returns nil when
// the file is not mapped or the host byte order differs from the file's.
func (p *Packed) View(offset, limit int) []complex64 {
	if p.data == nil || !littleEndian || offset < 0 || offset > p.n {
		return nil
	}

	all := unsafe.Slice((*complex64)(unsafe.Pointer(&p.data[0])), p.n)
	v := all[offset:]
	if limit >= 0 && limit < len(v) {
		v = v[:limit]
	}
	return v
}

func (p *Packed) Len() int        { return p.n }
func (p *Packed) SampleRate() int { return p.rate }
func (p *Packed) Name() string    { return p.name }

func (p *Packed) Close() error {
	var err error
	if p.unmap != nil && p.data != nil {
		err = p.unmap(p.data)
		p.data = nil
	}
	if closeErr := p.f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Unpack decodes packed little-endian complex64 samples from raw into dst.
func Unpack(raw []byte, dst []complex64) {
	for idx := range dst {
		re := math.Float32frombits(binary.LittleEndian.Uint32(raw[idx*SampleSize:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(raw[idx*SampleSize+4:]))
		dst[idx] = complex(re, im)
	}
}

// Pack encodes samples as little-endian complex64 into dst, which must hold
// len(samples)*SampleSize bytes.
func Pack(samples []complex64, dst []byte) {
	for idx, s := range samples {
		binary.LittleEndian.PutUint32(dst[idx*SampleSize:], math.Float32bits(real(s)))
		binary.LittleEndian.PutUint32(dst[idx*SampleSize+4:], math.Float32bits(imag(s)))
	}
}

// PackedWriter writes samples as headerless little-endian complex64.
type PackedWriter struct {
	w   *bufio.Writer
	buf []byte
	n   int
}

func NewPackedWriter(w io.Writer) *PackedWriter {
	return &PackedWriter{
		w:   bufio.NewWriter(w),
		buf: make([]byte, SampleSize<<10),
	}
}

// Write encodes and buffers samples. Call Flush when done.
func (pw *PackedWriter) Write(samples []complex64) error {
	for len(samples) > 0 {
		n := len(samples)
		if limit := len(pw.buf) / SampleSize; n > limit {
			n = limit
		}

		Pack(samples[:n], pw.buf)
		if _, err := pw.w.Write(pw.buf[:n*SampleSize]); err != nil {
			return errors.Wrap(err, "write packed")
		}

		pw.n += n
		samples = samples[n:]
	}
	return nil
}

// Samples returns the number of samples written.
func (pw *PackedWriter) Samples() int { return pw.n }

func (pw *PackedWriter) Flush() error {
	return errors.Wrap(pw.w.Flush(), "flush packed")
}
