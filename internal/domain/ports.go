package domain

import (
	"context"
	"time"
)

// LLM generates a text reply for a prompt. Errors wrap ErrTransient or
// ErrModelNotFound when the provider reports those conditions.
type LLM interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// Recognizer turns recorded audio into text. A clip with no speech
// returns ErrRecognitionMiss.
type Recognizer interface {
	Transcribe(ctx context.Context, pcm []float32) (AudioUtterance, error)
}

// Capturer records one phrase from the microphone, bounded by an initial
// silence timeout and a maximum phrase length.
type Capturer interface {
	Calibrate(ctx context.Context, d time.Duration) error
	Listen(ctx context.Context, silenceTimeout, phraseLimit time.Duration) ([]float32, error)
}

// Ear records and transcribes in one step, for recognizers that own the
// microphone themselves.
type Ear interface {
	Hear(ctx context.Context, phraseLimit time.Duration) (AudioUtterance, error)
}

// Speaker says text aloud.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Frame is one camera image as packed RGB24.
type Frame struct {
	Width, Height int
	Pix           []byte
}

// FrameSource yields camera frames.
type FrameSource interface {
	ReadFrame(ctx context.Context) (Frame, error)
	Close() error
}

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// Launcher starts applications and opens URLs.
type Launcher interface {
	Launch(ctx context.Context, app string, args ...string) error
	OpenURL(ctx context.Context, url string) error
}

// Keyboard automates key presses.
type Keyboard interface {
	Type(ctx context.Context, text string) error
	Press(ctx context.Context, keys string) error
}

// Screenshotter captures the screen into a file.
type Screenshotter interface {
	Capture(ctx context.Context, path string) error
}

// Messenger sends instant messages through a third-party service.
type Messenger interface {
	SendWhatsApp(ctx context.Context, phone, message string) error
}

// HistoryStore keeps conversation history.
type HistoryStore interface {
	Append(ctx context.Context, rec HistoryRecord) error
	Recent(ctx context.Context, contextName string, n int) ([]HistoryRecord, error)
}

// KVStore is an opaque namespaced key-value store for handler data
// (notes, contacts, habits).
type KVStore interface {
	Put(ctx context.Context, namespace, key, value string) error
	Get(ctx context.Context, namespace, key string) (string, error)
	List(ctx context.Context, namespace string) (map[string]string, error)
	Delete(ctx context.Context, namespace, key string) error
}

// Notifier delivers messages to the user outside the request/reply flow.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}
