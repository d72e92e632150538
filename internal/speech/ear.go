package speech

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Compile-time interface check.
var _ domain.Ear = (*CLIEar)(nil)

// EarOption configures the CLIEar.
type EarOption func(*CLIEar)

// WithTempDir sets the directory for temporary WAV files.
func WithTempDir(dir string) EarOption {
	return func(e *CLIEar) { e.tempDir = dir }
}

// CLIEar records a clip from the default microphone and transcribes it
// with the whisper-cli executable. Each Hear call is one record-then-
// transcribe cycle; calls are serialized since the recorder owns the
// device.
type CLIEar struct {
	whisperBin string
	modelPath  string
	tempDir    string
	log        *logger.Logger

	mu sync.Mutex
}

// NewCLIEar creates a whisper-cli backed ear.
//
//   - whisperBin: path to the whisper-cli executable
//   - modelPath:  path to the GGML model file
func NewCLIEar(whisperBin, modelPath string, log *logger.Logger, opts ...EarOption) *CLIEar {
	e := &CLIEar{
		whisperBin: whisperBin,
		modelPath:  modelPath,
		tempDir:    ".deskmate-stt",
		log:        log,
	}
	for _, opt := range opts {
		opt(e)
	}

	if _, err := exec.LookPath(e.whisperBin); err != nil {
		log.Error("ear: whisper binary %q not found in PATH: %v", e.whisperBin, err)
	}
	return e
}

// Hear records for phraseLimit and returns the cleaned transcript. An
// empty transcript is reported as domain.ErrRecognitionMiss.
func (e *CLIEar) Hear(ctx context.Context, phraseLimit time.Duration) (domain.AudioUtterance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		result string
		wg     sync.WaitGroup
	)
	wg.Add(1)
	callback := func(text string) {
		result = text
		wg.Done()
	}

	verbose := e.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(e.whisperBin, e.modelPath, e.tempDir, "wav", callback, verbose)
	if err != nil {
		return domain.AudioUtterance{}, fmt.Errorf("ear: transcriber init: %w", err)
	}
	if err := t.Start(); err != nil {
		return domain.AudioUtterance{}, fmt.Errorf("ear: recording start: %w: %w", domain.ErrDeviceUnavailable, err)
	}

	select {
	case <-time.After(phraseLimit):
	case <-ctx.Done():
	}
	t.Stop()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return domain.AudioUtterance{}, err
	}

	text := cleanTranscription(result)
	e.log.Debug("ear: heard %q (raw %q)", text, result)
	if text == "" {
		return domain.AudioUtterance{}, domain.ErrRecognitionMiss
	}
	return domain.AudioUtterance{Transcript: text, Source: domain.SourceMic}, nil
}
