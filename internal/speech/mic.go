package speech

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Compile-time interface check.
var _ domain.Capturer = (*MicCapturer)(nil)

const (
	frameSize        = 320 // 20ms at 16 kHz
	frameDuration    = 20 * time.Millisecond
	defaultThreshold = 0.015
	calibrationGain  = 2.0
	endOfPhrase      = 600 * time.Millisecond
)

// MicOption configures the MicCapturer.
type MicOption func(*MicCapturer)

// WithMinThreshold sets the lowest RMS level treated as speech, whatever
// calibration measures.
func WithMinThreshold(rms float64) MicOption {
	return func(m *MicCapturer) { m.minThreshold = rms }
}

// WithEndSilence sets how much trailing silence ends a phrase.
func WithEndSilence(d time.Duration) MicOption {
	return func(m *MicCapturer) { m.endSilence = d }
}

// MicCapturer records phrases from the default input device through
// PortAudio. The device is held only for the duration of one Calibrate
// or Listen call, and calls are serialized.
type MicCapturer struct {
	log          *logger.Logger
	minThreshold float64
	endSilence   time.Duration

	mu        sync.Mutex
	threshold float64
}

// NewMicCapturer initializes PortAudio. Call Close when done.
func NewMicCapturer(log *logger.Logger, opts ...MicOption) (*MicCapturer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("mic: %w: %w", domain.ErrDeviceUnavailable, err)
	}
	m := &MicCapturer{
		log:          log,
		minThreshold: defaultThreshold,
		endSilence:   endOfPhrase,
		threshold:    defaultThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Close terminates PortAudio.
func (m *MicCapturer) Close() error {
	return portaudio.Terminate()
}

// Threshold returns the current speech RMS threshold.
func (m *MicCapturer) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// Calibrate samples ambient noise for d and raises the speech threshold
// above it.
func (m *MicCapturer) Calibrate(ctx context.Context, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		sum    float64
		frames int
	)
	err := m.stream(ctx, func(buf []float32) bool {
		sum += frameRMS(buf)
		frames++
		return time.Duration(frames)*frameDuration >= d
	})
	if err != nil {
		return err
	}
	m.threshold = calibratedThreshold(sum, frames, m.minThreshold)
	m.log.Debug("mic: calibrated over %s, threshold=%.4f", d, m.threshold)
	return nil
}

// Listen waits up to silenceTimeout for speech to start, then records
// until a pause or phraseLimit. No speech yields domain.ErrRecognitionMiss.
func (m *MicCapturer) Listen(ctx context.Context, silenceTimeout, phraseLimit time.Duration) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	det := newPhraseDetector(m.threshold, silenceTimeout, m.endSilence, phraseLimit)
	if err := m.stream(ctx, det.push); err != nil {
		return nil, err
	}
	if !det.heard() {
		return nil, domain.ErrRecognitionMiss
	}
	m.log.Debug("mic: captured %d samples", len(det.samples))
	return det.samples, nil
}

// stream opens the default input and feeds frames to fn until it returns
// true or ctx ends.
func (m *MicCapturer) stream(ctx context.Context, fn func([]float32) bool) error {
	buf := make([]float32, frameSize)
	s, err := portaudio.OpenDefaultStream(1, 0, CaptureRate, len(buf), buf)
	if err != nil {
		return fmt.Errorf("mic: open stream: %w: %w", domain.ErrDeviceUnavailable, err)
	}
	defer s.Close()

	if err := s.Start(); err != nil {
		return fmt.Errorf("mic: start stream: %w", err)
	}
	defer s.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Read(); err != nil {
			return fmt.Errorf("mic: read: %w", err)
		}
		if fn(buf) {
			return nil
		}
	}
}

// ── Phrase detection ─────────────────────────────────────────────

// phraseDetector is an RMS energy gate: it waits for the first loud
// frame, then records until endSilence of quiet frames or limit.
type phraseDetector struct {
	threshold    float64
	startTimeout time.Duration
	endSilence   time.Duration
	limit        time.Duration

	waited   time.Duration
	phrase   time.Duration
	silence  time.Duration
	speaking bool
	samples  []float32
}

func newPhraseDetector(threshold float64, startTimeout, endSilence, limit time.Duration) *phraseDetector {
	return &phraseDetector{
		threshold:    threshold,
		startTimeout: startTimeout,
		endSilence:   endSilence,
		limit:        limit,
		samples:      make([]float32, 0, CaptureRate*2),
	}
}

// push consumes one frame and reports whether capture is finished.
func (d *phraseDetector) push(frame []float32) bool {
	loud := frameRMS(frame) > d.threshold

	if !d.speaking {
		if !loud {
			d.waited += frameDuration
			return d.waited >= d.startTimeout
		}
		d.speaking = true
	}

	d.samples = append(d.samples, frame...)
	d.phrase += frameDuration
	if loud {
		d.silence = 0
	} else {
		d.silence += frameDuration
	}
	return d.silence >= d.endSilence || d.phrase >= d.limit
}

func (d *phraseDetector) heard() bool { return d.speaking }

func calibratedThreshold(sum float64, frames int, floor float64) float64 {
	if frames == 0 {
		return floor
	}
	return math.Max(floor, sum/float64(frames)*calibrationGain)
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
