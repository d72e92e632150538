// Package wakeword provides acoustic wake-word detection with the
// openWakeWord ONNX pipeline: melspectrogram -> embedding -> wakeword.
//
// The detector owns a miniaudio (malgo) capture device, feeds 80 ms
// chunks through the three models and calls OnDetected when the score
// crosses the threshold. A detection typically triggers one single-shot
// voice capture, so the detector pauses itself until Resume.
package wakeword

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/deskmate/internal/logger"
	"github.com/hammamikhairi/deskmate/internal/onnxrt"
)

// Config holds model paths and tuning knobs.
type Config struct {
	Model          string // e.g. "models/hey_deskmate.onnx"
	MelspecModel   string // e.g. "models/melspectrogram.onnx"
	EmbeddingModel string // e.g. "models/embedding_model.onnx"
	OnnxLib        string // e.g. "/usr/lib/libonnxruntime.so"

	Threshold float64       // window max >= threshold fires (default 0.3)
	Cooldown  time.Duration // min time between detections (default 1.5s)
}

func (c *Config) defaults() {
	if c.Threshold <= 0 {
		c.Threshold = 0.3
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 1500 * time.Millisecond
	}
}

// Detector listens for the wakeword continuously.
type Detector struct {
	cfg Config
	log *logger.Logger

	// OnDetected runs on the processing goroutine. Set before Start.
	OnDetected func()

	mu         sync.Mutex
	paused     bool
	needsReset bool
}

// New creates a Detector. Call Start to begin listening.
func New(cfg Config, log *logger.Logger) *Detector {
	cfg.defaults()
	return &Detector{cfg: cfg, log: log}
}

// Pause stops scoring, e.g. while the assistant speaks or the voice
// loop owns the microphone.
func (d *Detector) Pause() {
	d.mu.Lock()
	d.paused = true
	d.mu.Unlock()
}

// Resume re-enables scoring and flushes stale pipeline state.
func (d *Detector) Resume() {
	d.mu.Lock()
	d.paused = false
	d.needsReset = true
	d.mu.Unlock()
}

// state reports paused and consumes a pending reset.
func (d *Detector) state() (paused, reset bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	reset = d.needsReset
	d.needsReset = false
	return d.paused, reset
}

// Start loads the models, opens the capture device and processes audio
// until ctx is cancelled. Run it in its own goroutine.
func (d *Detector) Start(ctx context.Context) error {
	release, err := onnxrt.Acquire(d.cfg.OnnxLib)
	if err != nil {
		return err
	}
	defer release()

	m, err := loadModels(d.cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	c, err := openCapture()
	if err != nil {
		return err
	}
	defer c.Close()

	d.log.Info("wakeword: listening (threshold=%.2f, cooldown=%s)", d.cfg.Threshold, d.cfg.Cooldown)
	return d.run(ctx, c.frames, m)
}

// run is the processing loop, separated from device setup for tests.
func (d *Detector) run(ctx context.Context, frames <-chan []int16, m models) error {
	p := newPipeline(m)
	t := &trigger{threshold: d.cfg.Threshold, cooldown: d.cfg.Cooldown}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			paused, reset := d.state()
			if reset {
				p.reset()
				t.reset()
				d.log.Debug("wakeword: pipeline reset after resume")
			}
			if paused {
				continue
			}

			scores, err := p.feed(frame)
			if err != nil {
				d.log.Error("wakeword: model run failed: %v", err)
				continue
			}
			for _, s := range scores {
				if !t.observe(s, time.Now()) {
					continue
				}
				d.log.Info("wakeword: detected (score=%.3f)", s)
				if d.OnDetected != nil {
					d.OnDetected()
				}
			}
		}
	}
}
