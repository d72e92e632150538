package gesture

import (
	"context"
	"fmt"
	"math"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/onnxrt"
)

// ModelLabels is the output order of the pretrained gesture model.
var ModelLabels = []string{
	domain.GestureOpenPalm,
	domain.GestureFist,
	domain.GesturePeaceSign,
	domain.GestureThumbsUp,
	domain.GesturePointing,
	domain.GestureRock,
	domain.GestureThreeCount,
	domain.GestureFourCount,
}

// ModelClassifier runs a pretrained landmark -> gesture model. Input is
// Hand.Features, output one logit per ModelLabels entry.
type ModelClassifier struct {
	sess *onnxrt.Session
}

var _ Classifier = (*ModelClassifier)(nil)

// NewModelClassifier loads the model. The ONNX environment must already
// be acquired.
func NewModelClassifier(path string) (*ModelClassifier, error) {
	s, err := onnxrt.NewSession(path, ort.NewShape(1, NumFeatures), ort.NewShape(1, int64(len(ModelLabels))))
	if err != nil {
		return nil, fmt.Errorf("gesture: %w", err)
	}
	return &ModelClassifier{sess: s}, nil
}

// Source implements Classifier.
func (m *ModelClassifier) Source() domain.GestureSource { return domain.GestureFromPretrained }

// Classify implements Classifier.
func (m *ModelClassifier) Classify(h Hand) (string, float64, bool) {
	in := m.sess.Input()
	for i, v := range h.Features() {
		in[i] = float32(v)
	}
	if err := m.sess.Run(); err != nil {
		return "", 0, false
	}
	probs := softmax(m.sess.Output())
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return ModelLabels[best], probs[best], true
}

// Close frees the model.
func (m *ModelClassifier) Close() { m.sess.Close() }

func softmax(logits []float32) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	peak := float64(logits[0])
	for _, l := range logits {
		peak = math.Max(peak, float64(l))
	}
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(float64(l) - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// ── Landmarks ────────────────────────────────────────────────────

// landmarkInput is the square input size of the hand landmark model.
const landmarkInput = 224

// ModelLandmarks runs a single-hand landmark model over a resized frame.
// Output is 21 x/y/z triples in input pixel coordinates.
type ModelLandmarks struct {
	sess *onnxrt.Session
}

var _ LandmarkDetector = (*ModelLandmarks)(nil)

// NewModelLandmarks loads the landmark model. The ONNX environment must
// already be acquired.
func NewModelLandmarks(path string) (*ModelLandmarks, error) {
	s, err := onnxrt.NewSession(path,
		ort.NewShape(1, landmarkInput, landmarkInput, 3), ort.NewShape(1, NumLandmarks*3))
	if err != nil {
		return nil, fmt.Errorf("gesture: %w", err)
	}
	return &ModelLandmarks{sess: s}, nil
}

// Detect implements LandmarkDetector.
func (m *ModelLandmarks) Detect(_ context.Context, f domain.Frame) (Hand, bool, error) {
	if len(f.Pix) < f.Width*f.Height*3 || f.Width == 0 || f.Height == 0 {
		return Hand{}, false, fmt.Errorf("gesture: short frame %dx%d (%d bytes)", f.Width, f.Height, len(f.Pix))
	}
	resizeInto(m.sess.Input(), f, landmarkInput)
	if err := m.sess.Run(); err != nil {
		return Hand{}, false, fmt.Errorf("gesture: landmark model: %w", err)
	}
	return handFromOutput(m.sess.Output())
}

// Close frees the model.
func (m *ModelLandmarks) Close() { m.sess.Close() }

// resizeInto nearest-neighbour scales an RGB24 frame into a size x size
// float tensor with values in [0,1].
func resizeInto(dst []float32, f domain.Frame, size int) {
	for y := 0; y < size; y++ {
		sy := y * f.Height / size
		for x := 0; x < size; x++ {
			sx := x * f.Width / size
			src := (sy*f.Width + sx) * 3
			d := (y*size + x) * 3
			dst[d] = float32(f.Pix[src]) / 255
			dst[d+1] = float32(f.Pix[src+1]) / 255
			dst[d+2] = float32(f.Pix[src+2]) / 255
		}
	}
}

// handFromOutput converts model output to a Hand. Landmarks outside the
// image or collapsed to a point mean no hand was found.
func handFromOutput(out []float32) (Hand, bool, error) {
	var h Hand
	minX, minY, maxX, maxY := 1.0, 1.0, 0.0, 0.0
	for i := 0; i < NumLandmarks; i++ {
		p := Point{
			X: float64(out[i*3]) / landmarkInput,
			Y: float64(out[i*3+1]) / landmarkInput,
			Z: float64(out[i*3+2]) / landmarkInput,
		}
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			return Hand{}, false, nil
		}
		h.Landmarks[i] = p
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	if (maxX-minX)*(maxY-minY) < 0.005 {
		return Hand{}, false, nil
	}
	return h, true, nil
}
