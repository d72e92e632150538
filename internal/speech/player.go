package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// ErrInterrupted is returned by Play and PlayPCM when Stop cut playback
// short.
var ErrInterrupted = errors.New("player: interrupted")

// Player plays 16-bit mono PCM through one shared oto context. Speech and
// feedback tones go through the same Player, one clip at a time.
type Player struct {
	ctx *oto.Context
	log *logger.Logger

	turn sync.Mutex // held for the length of one clip

	mu          sync.Mutex
	active      *oto.Player
	interrupted bool
}

// NewPlayer opens the system audio device. It fails with
// domain.ErrDeviceUnavailable when there is no output device.
func NewPlayer(log *logger.Logger) (*Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("player: %w: %w", domain.ErrDeviceUnavailable, err)
	}
	<-ready

	log.Debug("player: ready (%d Hz, %d ch)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, log: log}, nil
}

// Play plays a WAV clip and blocks until it ends. The clip must match the
// device format.
func (p *Player) Play(wavData []byte) error {
	pcm, err := wavPCM(wavData)
	if err != nil {
		return err
	}
	return p.PlayPCM(pcm)
}

// PlayPCM plays raw little-endian PCM at SampleRate and blocks until it
// ends or Stop is called.
func (p *Player) PlayPCM(pcm []byte) error {
	p.turn.Lock()
	defer p.turn.Unlock()

	pl := p.ctx.NewPlayer(bytes.NewReader(pcm))
	p.mu.Lock()
	p.active, p.interrupted = pl, false
	p.mu.Unlock()

	pl.Play()
	tick := time.NewTicker(10 * time.Millisecond)
	for pl.IsPlaying() {
		<-tick.C
	}
	tick.Stop()

	p.mu.Lock()
	p.active = nil
	cut := p.interrupted
	p.mu.Unlock()

	if err := pl.Close(); err != nil {
		return fmt.Errorf("player: %w", err)
	}
	if cut {
		return ErrInterrupted
	}
	p.log.Debug("player: played %s", pcmDuration(len(pcm)))
	return nil
}

// Stop cuts the current clip short. It is a no-op when idle.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return
	}
	p.active.Pause()
	p.interrupted = true
	p.log.Debug("player: stopped")
}

func pcmDuration(n int) time.Duration {
	return time.Duration(n/(BitDepth/8*ChannelCount)) * time.Second / SampleRate
}

// wavPCM returns the data chunk of a RIFF/WAVE clip after checking its fmt
// chunk against the device format.
func wavPCM(wav []byte) ([]byte, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errors.New("player: not a WAV clip")
	}

	for pos := 12; pos+8 <= len(wav); {
		id := string(wav[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		body := wav[pos+8 : min(pos+8+size, len(wav))]

		switch id {
		case "fmt ":
			if len(body) < 16 {
				return nil, errors.New("player: short fmt chunk")
			}
			ch := int(binary.LittleEndian.Uint16(body[2:4]))
			rate := int(binary.LittleEndian.Uint32(body[4:8]))
			bits := int(binary.LittleEndian.Uint16(body[14:16]))
			if ch != ChannelCount || rate != SampleRate || bits != BitDepth {
				return nil, fmt.Errorf("player: clip is %d Hz/%d ch/%d bit, device is %d Hz/%d ch/%d bit",
					rate, ch, bits, SampleRate, ChannelCount, BitDepth)
			}
		case "data":
			return body, nil
		}

		// Chunks are word-aligned.
		pos += 8 + size + size%2
	}
	return nil, errors.New("player: WAV clip has no data chunk")
}
