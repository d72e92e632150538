package gesture

import "github.com/hammamikhairi/deskmate/internal/domain"

// FingerCounter is the geometric fallback: it decides which fingers are
// extended and maps the pattern to a gesture.
type FingerCounter struct{}

var _ Classifier = FingerCounter{}

// fingerConfidence is reported for every recognized pattern. The
// heuristic has no graded output, so it sits just above the default
// stage threshold and loses to any confident learned classifier.
const fingerConfidence = 0.7

// Source implements Classifier.
func (FingerCounter) Source() domain.GestureSource { return domain.GestureFromFingerCount }

// Extended reports, for thumb..pinky, whether each finger is extended.
func Extended(h Hand) [5]bool {
	l := h.Landmarks
	var ext [5]bool
	// The thumb folds sideways: extended when its tip is farther from
	// the index base than its IP joint is.
	ext[0] = dist(l[ThumbTip], l[IndexMCP]) > dist(l[ThumbIP], l[IndexMCP])*1.2 &&
		dist(l[ThumbTip], l[PinkyMCP]) > dist(l[IndexMCP], l[PinkyMCP])
	// Other fingers are extended when the tip is farther from the wrist
	// than the PIP joint.
	pairs := [4][2]int{{IndexTip, IndexPIP}, {MiddleTip, MiddlePIP}, {RingTip, RingPIP}, {PinkyTip, PinkyPIP}}
	for i, p := range pairs {
		ext[i+1] = dist(l[p[0]], l[Wrist]) > dist(l[p[1]], l[Wrist])
	}
	return ext
}

// Classify implements Classifier.
func (FingerCounter) Classify(h Hand) (string, float64, bool) {
	ext := Extended(h)
	thumb, index, middle, ring, pinky := ext[0], ext[1], ext[2], ext[3], ext[4]

	n := 0
	for _, e := range ext {
		if e {
			n++
		}
	}

	var name string
	switch {
	case n == 0:
		name = domain.GestureFist
	case n == 5:
		name = domain.GestureOpenPalm
	case index && pinky && !middle && !ring:
		name = domain.GestureRock
	case n == 1 && thumb:
		name = domain.GestureThumbsUp
	case n == 1 && index:
		name = domain.GesturePointing
	case n == 2 && index && middle:
		name = domain.GesturePeaceSign
	case n == 3:
		name = domain.GestureThreeCount
	case n == 4:
		name = domain.GestureFourCount
	default:
		return "", 0, false
	}
	return name, fingerConfidence, true
}
