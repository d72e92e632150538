package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Compile-time interface check.
var _ domain.Speaker = (*Mouth)(nil)

// Synthesizer converts text into WAV audio. *AzureClient satisfies it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Voice() string
}

// AudioPlayer plays WAV audio and can be interrupted. *Player satisfies it.
type AudioPlayer interface {
	Play(wav []byte) error
	Stop()
}

// MouthOption configures the Mouth.
type MouthOption func(*Mouth)

// WithChunkSize sets the approximate max character count per synthesis
// request. Longer text is split at sentence boundaries and synthesized
// concurrently.
func WithChunkSize(n int) MouthOption {
	return func(m *Mouth) { m.chunkSize = n }
}

// WithCacheDir enables the on-disk audio cache.
func WithCacheDir(dir string) MouthOption {
	return func(m *Mouth) { m.cacheDir = dir }
}

// WithDiskWrite controls whether new cache entries are written to disk.
func WithDiskWrite(enabled bool) MouthOption {
	return func(m *Mouth) { m.diskWrite = enabled }
}

// Mouth serializes speech output: queue -> chunk -> synthesize -> play.
// One item speaks at a time, highest priority first. It implements
// domain.Speaker for replies; other callers use Say with a priority.
type Mouth struct {
	tts    Synthesizer
	player AudioPlayer
	cache  *AudioCache
	log    *logger.Logger

	chunkSize int
	cacheDir  string
	diskWrite bool

	mu          sync.Mutex
	queue       []SpeechRequest
	speaking    bool
	interrupted bool
	notify      chan struct{}
}

// NewMouth creates a speech dispatcher. Call Start to begin speaking.
func NewMouth(tts Synthesizer, player AudioPlayer, log *logger.Logger, opts ...MouthOption) *Mouth {
	m := &Mouth{
		tts:       tts,
		player:    player,
		log:       log,
		chunkSize: 200,
		diskWrite: true,
		notify:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cache = NewAudioCache(tts.Voice(), m.cacheDir, m.diskWrite, log)
	return m
}

// Speak queues a reply at normal priority and returns immediately.
func (m *Mouth) Speak(_ context.Context, text string) error {
	if text = cleanForSpeech(text); text != "" {
		m.Say(text, PriorityNormal)
	}
	return nil
}

// Say queues text at the given priority. Queuing anything at normal
// priority or above drops pending low-priority items.
func (m *Mouth) Say(text string, priority Priority) {
	m.mu.Lock()
	if priority >= PriorityNormal {
		kept := m.queue[:0]
		for _, r := range m.queue {
			if r.Priority > PriorityLow {
				kept = append(kept, r)
			}
		}
		m.queue = kept
	}
	m.queue = append(m.queue, SpeechRequest{Text: text, Priority: priority, QueuedAt: time.Now()})
	n := len(m.queue)
	m.mu.Unlock()

	m.log.Debug("mouth: queued p=%d len=%d: %s", priority, n, truncate(text, 60))
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Busy reports whether anything is playing or queued. The voice loop
// waits on it so the microphone does not hear the assistant.
func (m *Mouth) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking || len(m.queue) > 0
}

// Interrupt clears the queue and stops current playback.
func (m *Mouth) Interrupt() {
	m.mu.Lock()
	m.queue = m.queue[:0]
	m.interrupted = true
	m.mu.Unlock()
	m.player.Stop()
	m.log.Debug("mouth: interrupted")
}

// Start runs the processing goroutine until ctx is cancelled.
func (m *Mouth) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				hits, misses := m.cache.Stats()
				m.log.Info("mouth stopped (cache hits=%d misses=%d)", hits, misses)
				return
			case <-m.notify:
				m.drain(ctx)
			}
		}
	}()
	m.log.Info("mouth started")
}

func (m *Mouth) drain(ctx context.Context) {
	for ctx.Err() == nil {
		m.mu.Lock()
		req, ok := m.popLocked()
		m.interrupted = false
		m.speaking = ok
		m.mu.Unlock()
		if !ok {
			return
		}

		m.say(ctx, req)

		m.mu.Lock()
		m.speaking = false
		m.mu.Unlock()
	}
}

// popLocked removes the highest priority request, oldest first on ties.
func (m *Mouth) popLocked() (SpeechRequest, bool) {
	if len(m.queue) == 0 {
		return SpeechRequest{}, false
	}
	best := 0
	for i, r := range m.queue {
		if r.Priority > m.queue[best].Priority {
			best = i
		}
	}
	req := m.queue[best]
	m.queue = append(m.queue[:best], m.queue[best+1:]...)
	return req, true
}

func (m *Mouth) say(ctx context.Context, req SpeechRequest) {
	m.log.Debug("mouth: speaking p=%d waited=%s: %s",
		req.Priority, time.Since(req.QueuedAt).Round(time.Millisecond), truncate(req.Text, 60))

	chunks := splitChunks(req.Text, m.chunkSize)
	audio := make([][]byte, len(chunks))
	var g errgroup.Group
	for i, c := range chunks {
		g.Go(func() error {
			a, err := m.synthesize(ctx, c)
			if err != nil {
				m.log.Error("mouth: chunk %d synthesis failed: %v", i, err)
				return nil
			}
			audio[i] = a
			return nil
		})
	}
	_ = g.Wait()

	for i, a := range audio {
		if a == nil || ctx.Err() != nil {
			continue
		}
		m.mu.Lock()
		abort := m.interrupted
		m.mu.Unlock()
		if abort {
			return
		}
		if err := m.player.Play(a); errors.Is(err, ErrInterrupted) {
			return
		} else if err != nil {
			m.log.Error("mouth: chunk %d playback failed: %v", i, err)
		}
	}
}

func (m *Mouth) synthesize(ctx context.Context, text string) ([]byte, error) {
	if a, ok := m.cache.Get(text); ok {
		return a, nil
	}
	a, err := m.tts.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	m.cache.Put(text, a)
	return a, nil
}

// Prefetch synthesizes texts into the cache in the background.
func (m *Mouth) Prefetch(ctx context.Context, texts ...string) {
	for _, text := range texts {
		for _, c := range splitChunks(text, m.chunkSize) {
			if c == "" || m.cache.Has(c) {
				continue
			}
			go func(t string) {
				if _, err := m.synthesize(ctx, t); err != nil {
					m.log.Debug("mouth: prefetch failed: %v", err)
				}
			}(c)
		}
	}
}

// ── Text helpers ─────────────────────────────────────────────────

// splitChunks groups sentences into chunks of roughly size characters.
// size <= 0 disables splitting.
func splitChunks(text string, size int) []string {
	if size <= 0 || len(text) <= size {
		return []string{text}
	}
	var (
		chunks []string
		cur    strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}
	for _, s := range splitSentences(text) {
		if cur.Len() > 0 && cur.Len()+len(s) > size {
			flush()
		}
		cur.WriteString(s)
	}
	flush()
	return chunks
}

// splitSentences splits after . ! ? keeping trailing whitespace with the
// sentence it ends.
func splitSentences(text string) []string {
	var (
		out []string
		cur strings.Builder
	)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		cur.WriteRune(runes[i])
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			i++
			cur.WriteRune(runes[i])
		}
		out = append(out, cur.String())
		cur.Reset()
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
