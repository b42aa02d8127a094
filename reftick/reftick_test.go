package reftick

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/bemasher/iqcorr/gen"
	"github.com/bemasher/iqcorr/iq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// tickSignal is three periods of 8 high and 8 low frames at 16 samples per
// frame. Each high to low edge falls on a multiple of 256 plus 128 samples.
func tickSignal() iq.Samples {
	profile := gen.StepProfile(1.0, 0.2, 8, 8, 3)
	return iq.Samples(gen.StepSignal(profile, 16))
}

func testConfig() Config {
	return Config{
		SamplesPerFrame: 16,
		FramesPerPeriod: 16,
		GapFrames:       8,
		Logger:          quietLogger(),
	}
}

func TestLocate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		scores []float64
		want   []int
	}{
		{"empty", nil, nil},
		{"never above", []float64{0.1, 0.5, 0.89}, nil},
		{"single run", []float64{0.1, 0.95, 0.99, 0.92, 0.1, 0.1, 0.1}, []int{2}},
		{"gap not elapsed", []float64{0.95, 0.1, 0.97, 0.1, 0.1}, []int{2}},
		{"two runs", []float64{0.95, 0.1, 0.1, 0.1, 0.91, 0.93, 0.1, 0.1, 0.1}, []int{0, 5}},
		{"open at end", []float64{0.1, 0.1, 0.92, 0.96}, []int{3}},
		{"floor inclusive", []float64{0.9, 0.1, 0.1, 0.1}, []int{0}},
		{"first of equal", []float64{0.95, 0.95, 0.1, 0.1, 0.1}, []int{0}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, locate(tc.scores, 0.9, 3))
		})
	}
}

func TestProfile(t *testing.T) {
	src := tickSignal()

	cfg := testConfig()
	cfg.Limit = 744

	f, err := NewFinder(src, cfg)
	require.NoError(t, err)

	profile, err := f.profile(context.Background())
	require.NoError(t, err)

	// 744 samples hold 46 full frames, the partial 47th is dropped.
	require.Len(t, profile, 46)
	for idx, v := range profile {
		want := 1.0
		if idx%16 >= 8 {
			want = 0.2
		}
		assert.InDelta(t, want, v, 1e-6, "frame %d", idx)
	}
}

func TestCoarse(t *testing.T) {
	f, err := NewFinder(tickSignal(), testConfig())
	require.NoError(t, err)

	candidates, err := f.Coarse(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	for idx, c := range candidates {
		assert.Equal(t, 32+256*idx, c.Start)
		assert.Equal(t, 128+256*idx, c.Edge)
		assert.Equal(t, 16, c.SamplesPerFrame)
		assert.InDelta(t, 1.0, c.Score, 1e-6)
		assert.NoError(t, c.Err)
	}
}

func TestFind(t *testing.T) {
	f, err := NewFinder(tickSignal(), testConfig())
	require.NoError(t, err)

	candidates, err := f.Find(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	for idx, c := range candidates {
		assert.NoError(t, c.Err)
		assert.Equal(t, 1, c.SamplesPerFrame)
		assert.Equal(t, 32+256*idx, c.Start)
		assert.Equal(t, 128+256*idx, c.Edge)
		assert.InDelta(t, 1.0, c.Score, 1e-6)
	}
}

func TestFindOffset(t *testing.T) {
	// Prefix the signal with half a period of low samples and skip it.
	signal := append(gen.StepSignal(make([]float64, 5), 16), tickSignal()...)

	cfg := testConfig()
	cfg.Offset = 80

	f, err := NewFinder(iq.Samples(signal), cfg)
	require.NoError(t, err)

	candidates, err := f.Find(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	for idx, c := range candidates {
		assert.NoError(t, c.Err)
		assert.Equal(t, 80+128+256*idx, c.Edge)
	}
}

func TestFindInsufficientRange(t *testing.T) {
	cfg := testConfig()
	cfg.Limit = 736

	f, err := NewFinder(tickSignal(), cfg)
	require.NoError(t, err)

	candidates, err := f.Find(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	for idx, c := range candidates[:2] {
		assert.NoError(t, c.Err)
		assert.Equal(t, 128+256*idx, c.Edge)
	}

	// The last refinement window runs past the limit, the candidate keeps
	// its coarse estimate.
	last := candidates[2]
	assert.True(t, errors.Is(last.Err, ErrInsufficientSearchRange), "%v", last.Err)
	assert.Equal(t, 16, last.SamplesPerFrame)
	assert.Equal(t, 544, last.Start)
	assert.Equal(t, 640, last.Edge)
}

func TestFindNoSignal(t *testing.T) {
	f, err := NewFinder(make(iq.Samples, 1000), testConfig())
	require.NoError(t, err)

	candidates, err := f.Find(context.Background())
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFindCancelled(t *testing.T) {
	f, err := NewFinder(tickSignal(), testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.Find(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := Config{SampleRate: 48000, Period: time.Second}.withDefaults()
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.FramesPerPeriod)
	assert.Equal(t, 8, cfg.GapFrames)
	assert.Equal(t, 3000, cfg.SamplesPerFrame)
	assert.Equal(t, 0.9, cfg.Floor)
	assert.Equal(t, 1.0, cfg.High)
	assert.Equal(t, 0.2, cfg.Low)

	_, err = Config{}.withDefaults()
	assert.Error(t, err)

	_, err = Config{SamplesPerFrame: 4, GapFrames: 2}.withDefaults()
	assert.Error(t, err)

	_, err = Config{SamplesPerFrame: 4, Offset: -1}.withDefaults()
	assert.Error(t, err)
}

func TestCandidateRecord(t *testing.T) {
	c := Candidate{Start: 32, Edge: 128, Score: 1, SamplesPerFrame: 1}
	assert.Equal(t, []string{"32", "128", "1", "1", "ok"}, c.Record())

	c.Err = errors.Wrap(ErrInsufficientSearchRange, "candidate 0")
	assert.Equal(t, "insufficient search range", c.Status())
	assert.Len(t, c.Record(), len(c.Header()))

	b, err := c.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":32,"edge":128,"score":1,"samples_per_frame":1,"status":"insufficient search range"}`, string(b))
}
