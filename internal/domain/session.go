package domain

import "time"

// Mood is the user's detected disposition, inferred from what they type
// or say. It only steers phrase selection.
type Mood int

const (
	MoodNeutral Mood = iota
	MoodHappy
	MoodFrustrated
	MoodBusy
	MoodTired
)

// String returns a human-readable mood.
func (m Mood) String() string {
	switch m {
	case MoodNeutral:
		return "neutral"
	case MoodHappy:
		return "happy"
	case MoodFrustrated:
		return "frustrated"
	case MoodBusy:
		return "busy"
	case MoodTired:
		return "tired"
	default:
		return "unknown"
	}
}

// SessionState is the humanizer's per-process memory. It is never
// persisted.
type SessionState struct {
	InteractionCount  int
	ConsecutiveErrors int
	Mood              Mood
	LastInteraction   time.Time
}

// AudioSource tells where an utterance came from.
type AudioSource int

const (
	SourceMic AudioSource = iota
	SourceFile
)

// String returns a human-readable audio source.
func (s AudioSource) String() string {
	switch s {
	case SourceMic:
		return "mic"
	case SourceFile:
		return "file"
	default:
		return "unknown"
	}
}

// AudioUtterance is one recorded and transcribed phrase.
type AudioUtterance struct {
	Transcript string
	Confidence float64 // 0 when the recognizer does not report one
	Source     AudioSource
}

// Empty reports whether nothing usable was transcribed.
func (u AudioUtterance) Empty() bool { return u.Transcript == "" }

// Gesture names understood by the classifiers.
const (
	GestureNone       = ""
	GestureOpenPalm   = "OPEN_PALM"
	GestureFist       = "FIST"
	GesturePeaceSign  = "PEACE_SIGN"
	GestureThumbsUp   = "THUMBS_UP"
	GesturePointing   = "POINTING"
	GestureThreeCount = "THREE"
	GestureFourCount  = "FOUR"
	GestureRock       = "ROCK"
)

// GestureSource identifies which classifier produced a gesture.
type GestureSource int

const (
	GestureFromFingerCount GestureSource = iota
	GestureFromTrained
	GestureFromPretrained
)

// String returns a human-readable gesture source.
func (s GestureSource) String() string {
	switch s {
	case GestureFromFingerCount:
		return "finger_counting"
	case GestureFromTrained:
		return "trained_classifier"
	case GestureFromPretrained:
		return "pretrained_landmark_model"
	default:
		return "unknown"
	}
}

// GestureEvent is a single classified hand pose.
type GestureEvent struct {
	Name       string
	Confidence float64
	Source     GestureSource
	At         time.Time
}

// HistoryRecord is one conversation turn. Records are append-only and
// keyed by context name.
type HistoryRecord struct {
	Context   string
	Role      string // "user" or "assistant"
	Content   string
	Timestamp time.Time
}
