package gen

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/bemasher/iqcorr/iq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepProfile(t *testing.T) {
	profile := StepProfile(1.0, 0.2, 8, 8, 3)
	require.Len(t, profile, 48)

	for idx, v := range profile {
		if idx%16 < 8 {
			assert.Equal(t, 1.0, v, "frame %d", idx)
		} else {
			assert.Equal(t, 0.2, v, "frame %d", idx)
		}
	}
}

func TestStepSignal(t *testing.T) {
	profile := []float64{1.0, 0.2, 0.5}
	signal := StepSignal(profile, 4)
	require.Len(t, signal, 12)

	for frame, level := range profile {
		var sum float64
		for _, s := range signal[frame*4 : (frame+1)*4] {
			sum += math.Abs(float64(real(s)))
		}
		assert.InDelta(t, level, sum/4, 1e-6)
	}
}

func TestInsert(t *testing.T) {
	haystack := make([]complex64, 10)
	Insert(haystack, []complex64{1, 2, 3}, 7)
	assert.Equal(t, []complex64{0, 0, 0, 0, 0, 0, 0, 1, 2, 3}, haystack)

	assert.Panics(t, func() { Insert(haystack, []complex64{1, 2}, 9) })
}

func TestWritePacked(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	samples := Noise(3000, 100, rng)

	var buf bytes.Buffer
	require.NoError(t, WritePacked(&buf, samples))
	require.Equal(t, len(samples)*iq.SampleSize, buf.Len())

	decoded := make([]complex64, len(samples))
	iq.Unpack(buf.Bytes(), decoded)
	assert.Equal(t, samples, decoded)
}

func TestCmplxOscillator(t *testing.T) {
	signal := CmplxOscillator(64, 1e3, 48e3, 2.0)
	for idx, s := range signal {
		mag := math.Hypot(float64(real(s)), float64(imag(s)))
		assert.InDelta(t, 2.0, mag, 1e-5, "sample %d", idx)
	}
}
