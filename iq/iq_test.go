package iq_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/bemasher/iqcorr/gen"
	"github.com/bemasher/iqcorr/iq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, samples []complex64, rate int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "samples.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, gen.WriteWAV(f, samples, rate))
	return path
}

func writePacked(t *testing.T, samples []complex64, extra int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "samples.iq")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, gen.WritePacked(f, samples))
	_, err = f.Write(make([]byte, extra))
	require.NoError(t, err)
	return path
}

// writeRawWAV writes a WAV header with arbitrary format fields, followed by
// an odd-sized junk chunk and the data chunk.
func writeRawWAV(t *testing.T, format, channels, bits uint16, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "raw.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	junk := []byte{1, 2, 3}
	blockAlign := channels * bits / 8
	le := binary.LittleEndian

	w := func(v interface{}) { require.NoError(t, binary.Write(f, le, v)) }
	w([]byte("RIFF"))
	w(uint32(4 + 24 + 8 + len(junk) + 1 + 8 + len(data)))
	w([]byte("WAVE"))
	w([]byte("fmt "))
	w(uint32(16))
	w(format)
	w(channels)
	w(uint32(8000))
	w(uint32(8000) * uint32(blockAlign))
	w(blockAlign)
	w(bits)
	w([]byte("junk"))
	w(uint32(len(junk)))
	w(append(junk, 0))
	w([]byte("data"))
	w(uint32(len(data)))
	w(data)

	return path
}

func TestSamples(t *testing.T) {
	src := iq.Samples{1, 2, 3, 4, 5}

	dst := make([]complex64, 3)
	n, err := src.ReadSamples(dst, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []complex64{4, 5}, dst[:n])

	n, err = src.ReadSamples(dst, 5)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = src.ReadSamples(dst, -1)
	assert.True(t, errors.Is(err, iq.ErrNegativeOffset))

	assert.Equal(t, []complex64{2, 3}, src.View(1, 2))
	assert.Equal(t, []complex64{5}, src.View(4, -1))
	assert.Nil(t, src.View(6, 1))
}

func TestOpenWAV(t *testing.T) {
	samples := []complex64{complex(1, -1), complex(-32768, 32767), complex(7, 0), complex(0, 42)}
	path := writeWAV(t, samples, 44100)

	src, err := iq.Open(path, 0)
	require.NoError(t, err)
	defer src.Close()

	require.IsType(t, &iq.WAV{}, src)
	assert.Equal(t, 4, src.Len())
	assert.Equal(t, 44100, src.SampleRate())

	all, err := iq.ReadAll(src, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, samples, all)

	tail := make([]complex64, 10)
	n, err := src.ReadSamples(tail, 2)
	require.NoError(t, err)
	assert.Equal(t, samples[2:], tail[:n])

	n, err = src.ReadSamples(tail, 4)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenWAVSkipsChunks(t *testing.T) {
	data := []byte{1, 0, 2, 0, 0xFF, 0xFF, 0, 0x80}
	path := writeRawWAV(t, 1, 2, 16, data)

	src, err := iq.OpenWAV(path)
	require.NoError(t, err)
	defer src.Close()

	all, err := iq.ReadAll(src, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []complex64{complex(1, 2), complex(-1, -32768)}, all)
}

func TestOpenWAVRejects(t *testing.T) {
	for _, tc := range []struct {
		name                   string
		format, channels, bits uint16
	}{
		{"mono", 1, 1, 16},
		{"quad", 1, 4, 16},
		{"8bit", 1, 2, 8},
		{"24bit", 1, 2, 24},
		{"float", 3, 2, 16},
		{"adpcm", 2, 2, 16},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := writeRawWAV(t, tc.format, tc.channels, tc.bits, make([]byte, 12))

			_, err := iq.Open(path, 0)
			require.Error(t, err)

			var formatErr *iq.FormatError
			require.True(t, errors.As(err, &formatErr), "%+v", err)
			assert.Equal(t, path, formatErr.Path)
		})
	}
}

func TestOpenPacked(t *testing.T) {
	samples := gen.CmplxOscillator(1000, 1e3, 48e3, 1)
	path := writePacked(t, samples, 5)

	src, err := iq.Open(path, 48000)
	require.NoError(t, err)
	defer src.Close()

	p, ok := src.(*iq.Packed)
	require.True(t, ok)
	assert.Equal(t, 1000, p.Len())
	assert.Equal(t, 48000, p.SampleRate())

	dst := make([]complex64, 16)
	n, err := p.ReadSamples(dst, 990)
	require.NoError(t, err)
	assert.Equal(t, samples[990:], dst[:n])

	if view := p.View(10, 20); view != nil {
		assert.Equal(t, samples[10:30], view)
	}

	loaded, err := iq.Load(p, 500, -1)
	require.NoError(t, err)
	assert.Equal(t, samples[500:], loaded)
}

func TestOpenPackedEmpty(t *testing.T) {
	path := writePacked(t, nil, 7)

	src, err := iq.OpenPacked(path, 0)
	require.NoError(t, err)
	defer src.Close()

	assert.Zero(t, src.Len())
	n, err := src.ReadSamples(make([]complex64, 4), 0)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, src.View(0, -1))
}

func TestCheckCompatible(t *testing.T) {
	samples := []complex64{1, 2, 3}
	a := writeWAV(t, samples, 8000)
	b := writeWAV(t, samples, 16000)

	hay, err := iq.Open(a, 0)
	require.NoError(t, err)
	defer hay.Close()

	needle, err := iq.Open(b, 0)
	require.NoError(t, err)
	defer needle.Close()

	err = iq.CheckCompatible(hay, needle)
	var formatErr *iq.FormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, b, formatErr.Path)

	assert.NoError(t, iq.CheckCompatible(hay, hay))
	assert.NoError(t, iq.CheckCompatible(hay, iq.Samples(samples)))
}

func TestReadAll(t *testing.T) {
	src := iq.Samples{1, 2, 3, 4}

	s, err := iq.ReadAll(src, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []complex64{2, 3}, s)

	s, err = iq.ReadAll(src, 3, 100)
	require.NoError(t, err)
	assert.Equal(t, []complex64{4}, s)

	s, err = iq.ReadAll(src, 9, -1)
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = iq.ReadAll(src, -1, 1)
	assert.Error(t, err)
}
