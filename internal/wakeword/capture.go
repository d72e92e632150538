package wakeword

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/hammamikhairi/deskmate/internal/domain"
)

const audioQueueCap = 32

// capture streams 16 kHz mono S16 frames from the default input through
// miniaudio. Frames are dropped, not queued, when the consumer falls
// behind.
type capture struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	frames chan []int16
	drops  atomic.Int64
}

func openCapture() (*capture, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("wakeword: audio context: %w: %w", domain.ErrDeviceUnavailable, err)
	}

	c := &capture{ctx: mctx, frames: make(chan []int16, audioQueueCap)}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.SampleRate = sampleRate
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.Alsa.NoMMap = 1

	dev, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{Data: c.onData})
	if err != nil {
		c.freeContext()
		return nil, fmt.Errorf("wakeword: capture device: %w: %w", domain.ErrDeviceUnavailable, err)
	}
	c.device = dev

	if err := dev.Start(); err != nil {
		dev.Uninit()
		c.freeContext()
		return nil, fmt.Errorf("wakeword: capture start: %w", err)
	}
	return c, nil
}

func (c *capture) onData(_, raw []byte, _ uint32) {
	if len(raw) == 0 {
		return
	}
	pcm := make([]int16, len(raw)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	select {
	case c.frames <- pcm:
	default:
		c.drops.Add(1)
	}
}

func (c *capture) Close() {
	_ = c.device.Stop()
	c.device.Uninit()
	c.freeContext()
}

func (c *capture) freeContext() {
	_ = c.ctx.Uninit()
	c.ctx.Free()
}
