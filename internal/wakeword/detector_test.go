package wakeword

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hammamikhairi/deskmate/internal/logger"
)

// fakeModels returns zero mel frames, constant embeddings and a score
// derived from the masked embedding input (or a fixed score).
type fakeModels struct {
	mu        sync.Mutex
	score     float32
	lastInput []float32
	melErr    error
}

func (f *fakeModels) Melspec([]int16) ([]float32, error) {
	if f.melErr != nil {
		return nil, f.melErr
	}
	return make([]float32, nMelFrames*melBins), nil
}

func (f *fakeModels) Embed([]float32) ([]float32, error) {
	out := make([]float32, embeddingDim)
	for i := range out {
		out[i] = 1
	}
	return out, nil
}

func (f *fakeModels) Score(emb []float32) (float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastInput = append([]float32(nil), emb...)
	return f.score, nil
}

func (f *fakeModels) setScore(s float32) {
	f.mu.Lock()
	f.score = s
	f.mu.Unlock()
}

func chunks(n int) []int16 { return make([]int16, n*chunkSamples) }

func TestPipelineNeedsFullMelWindow(t *testing.T) {
	m := &fakeModels{score: 0.1}
	p := newPipeline(m)

	scores, err := p.feed(chunks(15))
	require.NoError(t, err)
	assert.Empty(t, scores, "75 mel frames is one short of a window")

	scores, err = p.feed(chunks(1))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1}, scores)
}

func TestPipelineMasksOldEmbeddings(t *testing.T) {
	m := &fakeModels{}
	p := newPipeline(m)
	_, err := p.feed(chunks(60))
	require.NoError(t, err)

	var sum float32
	for _, v := range m.lastInput {
		sum += v
	}
	assert.Equal(t, float32(recentWindow*embeddingDim), sum)
	for _, v := range m.lastInput[:(nEmbedFrames-recentWindow)*embeddingDim] {
		require.Zero(t, v)
	}
}

func TestPipelineCarriesPartialFrames(t *testing.T) {
	p := newPipeline(&fakeModels{})
	_, err := p.feed(make([]int16, chunkSamples+100))
	require.NoError(t, err)
	assert.Len(t, p.rem, 100)

	p.reset()
	assert.Empty(t, p.rem)
	assert.Empty(t, p.mel)
}

func TestPipelineModelError(t *testing.T) {
	p := newPipeline(&fakeModels{melErr: errors.New("bad model")})
	_, err := p.feed(chunks(1))
	assert.Error(t, err)
}

func TestTrigger(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := &trigger{threshold: 0.5, cooldown: time.Second}

	assert.False(t, tr.observe(0.2, base))
	assert.True(t, tr.observe(0.6, base.Add(100*time.Millisecond)))
	assert.False(t, tr.observe(0.9, base.Add(500*time.Millisecond)), "within cooldown")
	assert.True(t, tr.observe(0.9, base.Add(2*time.Second)))

	tr.reset()
	assert.False(t, tr.observe(0.1, base.Add(10*time.Second)))
}

func TestDetectorRunFiresAndPauses(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := New(Config{Threshold: 0.5, Cooldown: time.Hour}, logger.New(logger.LevelOff, nil))
	var fired atomic.Int32
	d.OnDetected = func() {
		fired.Add(1)
		d.Pause()
	}

	m := &fakeModels{score: 0.9}
	frames := make(chan []int16)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- d.run(ctx, frames, m) }()

	for i := 0; i < 20; i++ {
		frames <- chunks(1)
	}
	assert.Equal(t, int32(1), fired.Load())

	d.Resume()
	for i := 0; i < 20; i++ {
		frames <- chunks(1)
	}
	assert.Equal(t, int32(1), fired.Load(), "cooldown still applies after resume")

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestDetectorRunEndsOnClosedSource(t *testing.T) {
	d := New(Config{}, logger.New(logger.LevelOff, nil))
	frames := make(chan []int16)
	close(frames)
	assert.NoError(t, d.run(context.Background(), frames, &fakeModels{}))
	assert.Equal(t, 0.3, d.cfg.Threshold)
	assert.Equal(t, 1500*time.Millisecond, d.cfg.Cooldown)
}
