package wakeword

import "time"

// openWakeWord pipeline geometry.
const (
	sampleRate    = 16000
	chunkSamples  = 1280 // 80 ms @ 16 kHz
	melWindowSize = 76   // mel frames per embedding
	melStepSize   = 8    // mel frames between embeddings
	embeddingDim  = 96
	nEmbedFrames  = 16 // embeddings per wakeword score
	melBins       = 32
	nMelFrames    = 5 // mel frames per chunk

	// scoreWindowSize recent scores are kept; detection uses their max
	// so a peak one frame early or late still counts. 5 frames ≈ 400 ms.
	scoreWindowSize = 5

	// recentWindow is how many of the newest embedding slots the scorer
	// sees; older slots are zeroed so long silences cannot suppress a
	// detection.
	recentWindow = 5
)

// models is the three-stage model chain. Each func reads its input and
// returns its output; slices are only valid until the next call.
type models interface {
	Melspec(chunk []int16) ([]float32, error)
	Embed(mel []float32) ([]float32, error)
	Score(embeddings []float32) (float32, error)
}

// pipeline turns raw capture frames into wakeword scores.
type pipeline struct {
	m      models
	mel    []float32
	embed  []float32
	rem    []int16
	scores chan<- float32
}

func newPipeline(m models) *pipeline {
	return &pipeline{
		m:     m,
		mel:   make([]float32, 0, 300*melBins),
		embed: make([]float32, nEmbedFrames*embeddingDim),
		rem:   make([]int16, 0, chunkSamples*2),
	}
}

func (p *pipeline) reset() {
	p.mel = p.mel[:0]
	clear(p.embed)
	p.rem = p.rem[:0]
}

// feed consumes a capture frame and returns one score per new embedding.
func (p *pipeline) feed(frame []int16) ([]float32, error) {
	p.rem = append(p.rem, frame...)
	var scores []float32

	for len(p.rem) >= chunkSamples {
		chunk := make([]int16, chunkSamples)
		copy(chunk, p.rem)
		n := copy(p.rem, p.rem[chunkSamples:])
		p.rem = p.rem[:n]

		melOut, err := p.m.Melspec(chunk)
		if err != nil {
			return scores, err
		}
		for i := 0; i < nMelFrames*melBins && i < len(melOut); i++ {
			p.mel = append(p.mel, melOut[i]/10.0+2.0)
		}

		fresh := false
		for len(p.mel)/melBins >= melWindowSize {
			emb, err := p.m.Embed(p.mel[:melWindowSize*melBins])
			if err != nil {
				return scores, err
			}
			copy(p.embed, p.embed[embeddingDim:])
			copy(p.embed[(nEmbedFrames-1)*embeddingDim:], emb[:embeddingDim])
			fresh = true

			n := copy(p.mel, p.mel[melStepSize*melBins:])
			p.mel = p.mel[:n]
		}
		if !fresh {
			continue
		}

		masked := make([]float32, len(p.embed))
		pad := (nEmbedFrames - recentWindow) * embeddingDim
		copy(masked[pad:], p.embed[pad:])
		s, err := p.m.Score(masked)
		if err != nil {
			return scores, err
		}
		scores = append(scores, s)
	}
	return scores, nil
}

// trigger turns a score stream into detections: the max over a trailing
// window must reach threshold, and detections are spaced by cooldown.
type trigger struct {
	threshold float64
	cooldown  time.Duration
	window    [scoreWindowSize]float32
	idx       int
	last      time.Time
}

// observe records a score and reports whether it fires a detection.
func (t *trigger) observe(score float32, now time.Time) bool {
	t.window[t.idx%scoreWindowSize] = score
	t.idx++

	var peak float32
	for _, s := range t.window {
		peak = max(peak, s)
	}
	if float64(peak) < t.threshold || (!t.last.IsZero() && now.Sub(t.last) <= t.cooldown) {
		return false
	}
	t.last = now
	t.window = [scoreWindowSize]float32{}
	return true
}

func (t *trigger) reset() {
	t.window = [scoreWindowSize]float32{}
	t.idx = 0
}
