package gesture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

var _ domain.FrameSource = (*FFmpegCamera)(nil)

// CameraConfig describes the capture device.
type CameraConfig struct {
	Device      string // e.g. /dev/video0
	InputFormat string // ffmpeg demuxer, e.g. v4l2, avfoundation, dshow
	Width       int
	Height      int
	FPS         int
}

// FFmpegCamera reads raw RGB24 frames from an ffmpeg subprocess.
type FFmpegCamera struct {
	cfg    CameraConfig
	cmd    *exec.Cmd
	out    *bufio.Reader
	closer io.Closer
	log    *logger.Logger

	closeOnce sync.Once
}

// OpenCamera starts ffmpeg. The process lives until Close.
func OpenCamera(ctx context.Context, cfg CameraConfig, log *logger.Logger) (*FFmpegCamera, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("gesture: invalid camera size %dx%d", cfg.Width, cfg.Height)
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", ffmpegArgs(cfg)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("gesture: ffmpeg pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("gesture: starting ffmpeg: %w: %w", domain.ErrDeviceUnavailable, err)
	}
	log.Info("gesture: camera %s opened (%dx%d@%d)", cfg.Device, cfg.Width, cfg.Height, cfg.FPS)
	return &FFmpegCamera{
		cfg:    cfg,
		cmd:    cmd,
		out:    bufio.NewReaderSize(stdout, cfg.Width*cfg.Height*3),
		closer: stdout,
		log:    log,
	}, nil
}

func ffmpegArgs(cfg CameraConfig) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if cfg.InputFormat != "" {
		args = append(args, "-f", cfg.InputFormat)
	}
	if cfg.FPS > 0 {
		args = append(args, "-framerate", strconv.Itoa(cfg.FPS))
	}
	args = append(args,
		"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-i", cfg.Device,
		"-f", "rawvideo", "-pix_fmt", "rgb24", "-")
	return args
}

// ReadFrame blocks for the next frame.
func (c *FFmpegCamera) ReadFrame(ctx context.Context) (domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return domain.Frame{}, err
	}
	return readFrame(c.out, c.cfg.Width, c.cfg.Height)
}

func readFrame(r io.Reader, w, h int) (domain.Frame, error) {
	pix := make([]byte, w*h*3)
	if _, err := io.ReadFull(r, pix); err != nil {
		return domain.Frame{}, fmt.Errorf("gesture: reading frame: %w", err)
	}
	return domain.Frame{Width: w, Height: h, Pix: pix}, nil
}

// Close stops ffmpeg.
func (c *FFmpegCamera) Close() error {
	c.closeOnce.Do(func() {
		_ = c.closer.Close()
		if c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
		_ = c.cmd.Wait()
		c.log.Debug("gesture: camera closed")
	})
	return nil
}
