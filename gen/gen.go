// Package gen synthesizes I/Q test signals and writes them in the formats
// understood by package iq.
package gen

import (
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/bemasher/iqcorr/iq"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func CmplxOscillator(samples int, freq, samplerate, amplitude float64) []complex64 {
	signal := make([]complex64, samples)

	for idx := range signal {
		s, c := math.Sincos(2 * math.Pi * float64(idx) * freq / samplerate)
		signal[idx] = complex(float32(c*amplitude), float32(s*amplitude))
	}

	return signal
}

// Noise returns uniformly distributed complex noise in [-amplitude, amplitude).
func Noise(samples int, amplitude float64, rng *rand.Rand) []complex64 {
	signal := make([]complex64, samples)

	for idx := range signal {
		i := (rng.Float64() - 0.5) * 2.0 * amplitude
		q := (rng.Float64() - 0.5) * 2.0 * amplitude
		signal[idx] = complex(float32(i), float32(q))
	}

	return signal
}

// Insert copies needle into haystack at the given offset.
func Insert(haystack, needle []complex64, at int) {
	if at < 0 || at+len(needle) > len(haystack) {
		panic(fmt.Errorf("needle of length %d does not fit at %d in haystack of %d", len(needle), at, len(haystack)))
	}
	copy(haystack[at:], needle)
}

// StepProfile repeats a run of high frames followed by a run of low frames.
func StepProfile(high, low float64, highFrames, lowFrames, periods int) []float64 {
	profile := make([]float64, 0, (highFrames+lowFrames)*periods)

	for p := 0; p < periods; p++ {
		for i := 0; i < highFrames; i++ {
			profile = append(profile, high)
		}
		for i := 0; i < lowFrames; i++ {
			profile = append(profile, low)
		}
	}

	return profile
}

func Upsample(levels []float64, factor int) []float64 {
	signal := make([]float64, len(levels)*factor)

	for idx, l := range levels {
		offset := idx * factor
		for i := 0; i < factor; i++ {
			signal[offset+i] = l
		}
	}

	return signal
}

// StepSignal expands a frame profile into raw samples, samplesPerFrame per
// frame. The in-phase component alternates sign at the frame's level so each
// frame's mean absolute real part equals its level. The quadrature component
// is a scaled oscillation which a real-part reduction ignores.
func StepSignal(profile []float64, samplesPerFrame int) []complex64 {
	levels := Upsample(profile, samplesPerFrame)
	signal := make([]complex64, len(levels))

	for idx, l := range levels {
		sign := 1.0
		if idx&1 == 1 {
			sign = -1.0
		}
		q := 3.0 * math.Sin(float64(idx)*0.37)
		signal[idx] = complex(float32(sign*l), float32(q))
	}

	return signal
}

// WritePacked writes samples as headerless little-endian complex64.
func WritePacked(w io.Writer, samples []complex64) error {
	pw := iq.NewPackedWriter(w)
	if err := pw.Write(samples); err != nil {
		return err
	}
	return pw.Flush()
}

// WriteWAV writes samples as a 16-bit stereo PCM WAV file, in-phase on the
// left channel. Components are rounded and clamped to the int16 range.
func WriteWAV(w io.WriteSeeker, samples []complex64, samplerate int) error {
	enc := wav.NewEncoder(w, samplerate, 16, 2, 1)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: samplerate},
		Data:           make([]int, len(samples)<<1),
		SourceBitDepth: 16,
	}

	for idx, s := range samples {
		buf.Data[idx<<1] = toInt16(real(s))
		buf.Data[idx<<1+1] = toInt16(imag(s))
	}

	if err := enc.Write(buf); err != nil {
		return err
	}

	return enc.Close()
}

func toInt16(v float32) int {
	r := math.Round(float64(v))
	switch {
	case r > math.MaxInt16:
		return math.MaxInt16
	case r < math.MinInt16:
		return math.MinInt16
	}
	return int(r)
}
