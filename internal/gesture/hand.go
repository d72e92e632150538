// Package gesture runs the camera loop: frames -> hand landmarks ->
// layered gesture classifiers -> an attention gesture that triggers a
// single-shot voice capture.
package gesture

import (
	"context"
	"math"

	"github.com/hammamikhairi/deskmate/internal/domain"
)

// Landmark indices in the 21-point hand model.
const (
	Wrist     = 0
	ThumbCMC  = 1
	ThumbMCP  = 2
	ThumbIP   = 3
	ThumbTip  = 4
	IndexMCP  = 5
	IndexPIP  = 6
	IndexTip  = 8
	MiddleMCP = 9
	MiddlePIP = 10
	MiddleTip = 12
	RingPIP   = 14
	RingTip   = 16
	PinkyMCP  = 17
	PinkyPIP  = 18
	PinkyTip  = 20

	NumLandmarks = 21
	NumFeatures  = NumLandmarks * 2
)

// Point is a landmark in normalized image coordinates (0..1, y down).
type Point struct {
	X, Y, Z float64
}

// Hand is one detected hand.
type Hand struct {
	Landmarks [NumLandmarks]Point
}

// LandmarkDetector finds a hand in a frame. ok is false when no hand is
// visible.
type LandmarkDetector interface {
	Detect(ctx context.Context, f domain.Frame) (h Hand, ok bool, err error)
}

// Features returns the landmarks as 42 x/y values relative to the wrist
// and scaled so the farthest landmark is at distance 1. The vector is
// invariant to where the hand is and how close it is to the camera.
func (h Hand) Features() []float64 {
	w := h.Landmarks[Wrist]
	var scale float64
	for _, p := range h.Landmarks {
		scale = math.Max(scale, math.Hypot(p.X-w.X, p.Y-w.Y))
	}
	if scale == 0 {
		scale = 1
	}
	out := make([]float64, 0, NumFeatures)
	for _, p := range h.Landmarks {
		out = append(out, (p.X-w.X)/scale, (p.Y-w.Y)/scale)
	}
	return out
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
