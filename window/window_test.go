package window

import (
	"testing"

	"github.com/bemasher/iqcorr/iq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int) iq.Samples {
	s := make(iq.Samples, n)
	for idx := range s {
		s[idx] = complex(float32(idx), float32(-idx))
	}
	return s
}

func TestNew(t *testing.T) {
	src := ramp(10)

	w, err := New(src, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, w.Offset())
	assert.Equal(t, []complex64(src[3:7]), w.Data())

	short, err := New(src, 4, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, short.Len())

	_, err = New(src, 4, -1)
	assert.Error(t, err)
}

func TestAdvance(t *testing.T) {
	src := ramp(10)

	w, err := New(src, 4, 0)
	require.NoError(t, err)

	for _, tc := range []struct {
		n, read, offset int
	}{
		{1, 1, 1},
		{2, 2, 3},
		{6, 3, 6},
	} {
		read, err := w.Advance(tc.n)
		require.NoError(t, err)
		assert.Equal(t, tc.read, read)
		assert.Equal(t, tc.offset, w.Offset())
		assert.Equal(t, 4, w.Len())
		assert.Equal(t, []complex64(src[tc.offset:tc.offset+4]), w.Data())
		assert.Equal(t, []complex64(src[tc.offset+4-read:tc.offset+4]), w.Fresh(read))
	}
}

func TestAdvanceExhausted(t *testing.T) {
	src := ramp(6)

	w, err := New(src, 4, 2)
	require.NoError(t, err)

	before := append([]complex64(nil), w.Data()...)

	for i := 0; i < 3; i++ {
		read, err := w.Advance(4)
		require.NoError(t, err)
		assert.Zero(t, read)
		assert.Equal(t, 2, w.Offset())
		assert.Equal(t, before, w.Data())
	}
}

func TestAdvanceLargerThanWindow(t *testing.T) {
	src := ramp(20)

	w, err := New(src, 3, 0)
	require.NoError(t, err)

	read, err := w.Advance(8)
	require.NoError(t, err)
	assert.Equal(t, 8, read)
	assert.Equal(t, 8, w.Offset())
	assert.Equal(t, []complex64(src[8:11]), w.Data())
}

// Stepping by the window length visits every sample exactly once.
func TestAdvanceChunks(t *testing.T) {
	src := ramp(37)

	w, err := New(src, 5, 0)
	require.NoError(t, err)

	var seen []complex64
	seen = append(seen, w.Data()...)
	for {
		read, err := w.Advance(5)
		require.NoError(t, err)
		if read == 0 {
			break
		}
		seen = append(seen, w.Fresh(read)...)
	}

	assert.Equal(t, []complex64(src), seen)
}
