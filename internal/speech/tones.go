package speech

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Tone is a short feedback sound.
type Tone int

const (
	ToneListenStart Tone = iota // rising: the microphone is open
	ToneListenStop              // falling: capture finished
	ToneSuccess                 // high blip: wake phrase accepted
)

// String returns the tone name for logging.
func (t Tone) String() string {
	switch t {
	case ToneListenStart:
		return "listen_start"
	case ToneListenStop:
		return "listen_stop"
	case ToneSuccess:
		return "success"
	default:
		return "unknown"
	}
}

type toneSpec struct {
	from, to float64 // Hz
	dur      time.Duration
}

var toneSpecs = map[Tone]toneSpec{
	ToneListenStart: {from: 600, to: 900, dur: 150 * time.Millisecond},
	ToneListenStop:  {from: 900, to: 600, dur: 150 * time.Millisecond},
	ToneSuccess:     {from: 1200, to: 1200, dur: 100 * time.Millisecond},
}

// PCMPlayer plays raw 16-bit mono PCM at SampleRate. *Player satisfies it.
type PCMPlayer interface {
	PlayPCM(pcm []byte) error
}

// Tones plays feedback sounds on background goroutines so the caller
// never waits for audio. A nil *Tones is silent.
type Tones struct {
	player PCMPlayer
	log    *logger.Logger
	wg     sync.WaitGroup
	cache  map[Tone][]byte
}

// NewTones pre-renders every tone.
func NewTones(player PCMPlayer, log *logger.Logger) *Tones {
	t := &Tones{player: player, log: log, cache: make(map[Tone][]byte, len(toneSpecs))}
	for tone, spec := range toneSpecs {
		t.cache[tone] = synthSweep(spec)
	}
	return t
}

// Play starts the tone and returns immediately.
func (t *Tones) Play(tone Tone) {
	if t == nil {
		return
	}
	pcm, ok := t.cache[tone]
	if !ok {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.player.PlayPCM(pcm); err != nil {
			t.log.Debug("tones: %s playback failed: %v", tone, err)
		}
	}()
}

// Wait blocks until every started tone has finished.
func (t *Tones) Wait() {
	if t == nil {
		return
	}
	t.wg.Wait()
}

// synthSweep renders a linear frequency sweep with a short fade in/out
// so the tone does not click.
func synthSweep(s toneSpec) []byte {
	n := int(s.dur.Seconds() * SampleRate)
	fade := n / 10
	out := make([]byte, n*2)
	phase := 0.0
	for i := 0; i < n; i++ {
		f := s.from + (s.to-s.from)*float64(i)/float64(n)
		phase += 2 * math.Pi * f / SampleRate
		amp := 0.3
		if i < fade {
			amp *= float64(i) / float64(fade)
		} else if i > n-fade {
			amp *= float64(n-i) / float64(fade)
		}
		v := int16(math.Sin(phase) * amp * math.MaxInt16)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
