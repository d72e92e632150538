package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Compile-time interface check.
var _ domain.Recognizer = (*WhisperModel)(nil)

// WhisperModel transcribes 16 kHz mono PCM in-process with whisper.cpp.
type WhisperModel struct {
	model    whisper.Model
	language string
	threads  uint
	log      *logger.Logger

	mu sync.Mutex // whisper contexts share the model's compute buffers
}

// NewWhisperModel loads a GGML model. language may be "auto".
func NewWhisperModel(modelPath, language string, log *logger.Logger) (*WhisperModel, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model: %w", err)
	}
	if language == "" {
		language = "en"
	}
	log.Info("whisper: model loaded from %s (lang=%s)", modelPath, language)
	return &WhisperModel{
		model:    m,
		language: language,
		threads:  uint(runtime.NumCPU()),
		log:      log,
	}, nil
}

// Close releases the model.
func (w *WhisperModel) Close() error {
	if w.model == nil {
		return nil
	}
	return w.model.Close()
}

// Transcribe runs whisper over pcm. Silence or artifacts only yield
// domain.ErrRecognitionMiss.
func (w *WhisperModel) Transcribe(ctx context.Context, pcm []float32) (domain.AudioUtterance, error) {
	if len(pcm) == 0 {
		return domain.AudioUtterance{}, domain.ErrRecognitionMiss
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	wctx, err := w.model.NewContext()
	if err != nil {
		return domain.AudioUtterance{}, fmt.Errorf("whisper: new context: %w", err)
	}
	if err := wctx.SetLanguage(w.language); err != nil {
		return domain.AudioUtterance{}, fmt.Errorf("whisper: set language: %w", err)
	}
	wctx.SetThreads(w.threads)

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return domain.AudioUtterance{}, fmt.Errorf("whisper: process: %w", err)
	}

	var parts []string
	for {
		if err := ctx.Err(); err != nil {
			return domain.AudioUtterance{}, err
		}
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.AudioUtterance{}, fmt.Errorf("whisper: next segment: %w", err)
		}
		parts = append(parts, seg.Text)
	}

	text := cleanTranscription(strings.Join(parts, " "))
	w.log.Debug("whisper: %d samples -> %q", len(pcm), text)
	if text == "" {
		return domain.AudioUtterance{}, domain.ErrRecognitionMiss
	}
	return domain.AudioUtterance{Transcript: text, Source: domain.SourceMic}, nil
}
