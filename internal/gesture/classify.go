package gesture

import (
	"time"

	"github.com/hammamikhairi/deskmate/internal/domain"
)

// DefaultMinConfidence is the per-stage acceptance threshold.
const DefaultMinConfidence = 0.6

// Classifier labels a hand. ok is false when it has no opinion.
type Classifier interface {
	Classify(h Hand) (name string, confidence float64, ok bool)
	Source() domain.GestureSource
}

// Stage is one layer of classification.
type Stage struct {
	Classifier    Classifier
	MinConfidence float64
}

// Classify tries stages in order and returns the first result at or
// above its stage's threshold.
func Classify(stages []Stage, h Hand, at time.Time) (domain.GestureEvent, bool) {
	for _, s := range stages {
		if s.Classifier == nil {
			continue
		}
		name, conf, ok := s.Classifier.Classify(h)
		if !ok || name == domain.GestureNone {
			continue
		}
		threshold := s.MinConfidence
		if threshold <= 0 {
			threshold = DefaultMinConfidence
		}
		if conf < threshold {
			continue
		}
		return domain.GestureEvent{Name: name, Confidence: conf, Source: s.Classifier.Source(), At: at}, true
	}
	return domain.GestureEvent{}, false
}
