package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/deskmate/internal/config"
	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/engine"
	"github.com/hammamikhairi/deskmate/internal/gesture"
	"github.com/hammamikhairi/deskmate/internal/onnxrt"
)

// openLandmarks loads the ONNX runtime and the landmark model. The
// returned release func must run after every session built on the
// runtime is closed.
func openLandmarks(onnxLib, path string) (*gesture.ModelLandmarks, func(), error) {
	if path == "" {
		return nil, nil, errors.New("gesture: gesture.landmark_model is not set")
	}
	release, err := onnxrt.Acquire(onnxLib)
	if err != nil {
		return nil, nil, err
	}
	det, err := gesture.NewModelLandmarks(path)
	if err != nil {
		release()
		return nil, nil, err
	}
	return det, release, nil
}

// openGesture builds the gesture loop: camera, landmarks and the
// classifier stages in order pretrained, trained, finger count.
func (a *app) openGesture(ctx context.Context) (*gesture.Loop, error) {
	gc := a.cfg.Gesture

	det, release, err := openLandmarks(gc.OnnxLib, gc.LandmarkModel)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { release(); return nil })
	a.closers = append(a.closers, func() error { det.Close(); return nil })

	var stages []gesture.Stage
	if gc.GestureModel != "" {
		m, err := gesture.NewModelClassifier(gc.GestureModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { m.Close(); return nil })
		stages = append(stages, gesture.Stage{Classifier: m, MinConfidence: gc.MinConfidence})
	}
	data, err := gesture.LoadDataset(gc.Dataset)
	if err != nil {
		return nil, err
	}
	if data.Len() > 0 {
		stages = append(stages, gesture.Stage{Classifier: gesture.NewKNN(data, 5), MinConfidence: gc.MinConfidence})
	}
	stages = append(stages, gesture.Stage{Classifier: gesture.FingerCounter{}, MinConfidence: gc.MinConfidence})

	cam, err := gesture.OpenCamera(ctx, cameraConfig(a.cfg), a.log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, cam.Close)

	return gesture.NewLoop(cam, det, stages,
		func(ctx context.Context) { a.listenAndSubmit(ctx, engine.SourceGesture) },
		a.log,
		gesture.WithAttention(gc.Attention),
		gesture.WithCooldown(gc.Cooldown),
		gesture.WithObserver(func(ev domain.GestureEvent) {
			a.log.Debug("gesture: saw %s (%.2f via %s)", ev.Name, ev.Confidence, ev.Source)
		}),
	), nil
}

func cameraConfig(cfg *config.Config) gesture.CameraConfig {
	gc := cfg.Gesture
	return gesture.CameraConfig{
		Device:      gc.Device,
		InputFormat: gc.InputFormat,
		Width:       gc.Width,
		Height:      gc.Height,
		FPS:         gc.FPS,
	}
}

// ── gesture train ───────────────────────────────────────────────

func newGestureCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gesture",
		Short: "Manage the user-trained gesture set",
	}

	var samples int
	train := &cobra.Command{
		Use:   "train <LABEL>",
		Short: "Record hand samples from the camera under LABEL",
		Long: `Hold the gesture in front of the camera. Every frame with a detected
hand is stored as one sample in the gesture dataset; the trained classifier
runs before the finger-count fallback.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return trainGesture(ctx, c, strings.ToUpper(args[0]), samples)
		},
	}
	train.Flags().IntVarP(&samples, "samples", "n", 40, "number of samples to record")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show samples per label in the gesture dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := gesture.LoadDataset(c.cfg.Gesture.Dataset)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if data.Len() == 0 {
				fmt.Fprintf(out, "no samples in %s\n", c.cfg.Gesture.Dataset)
				return nil
			}
			counts := data.Counts()
			for _, label := range slices.Sorted(maps.Keys(counts)) {
				fmt.Fprintf(out, "%-12s %d\n", label, counts[label])
			}
			return nil
		},
	}

	cmd.AddCommand(train, stats)
	return cmd
}

func trainGesture(ctx context.Context, c *cli, label string, samples int) error {
	gc := c.cfg.Gesture
	data, err := gesture.LoadDataset(gc.Dataset)
	if err != nil {
		return err
	}

	det, release, err := openLandmarks(gc.OnnxLib, gc.LandmarkModel)
	if err != nil {
		return err
	}
	defer release()
	defer det.Close()

	cam, err := gesture.OpenCamera(ctx, cameraConfig(c.cfg), c.log)
	if err != nil {
		return err
	}
	defer cam.Close()

	fmt.Printf("Show %s to the camera. Recording %d samples...\n", label, samples)
	start := time.Now()
	for got := 0; got < samples; {
		f, err := cam.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}
		h, ok, err := det.Detect(ctx, f)
		if err != nil || !ok {
			continue
		}
		data.Add(label, h)
		got++
		fmt.Printf("\r  %d/%d", got, samples)
	}
	fmt.Println()

	if err := data.Save(gc.Dataset); err != nil {
		return err
	}
	fmt.Printf("Saved %s to %s in %s (%d samples total).\n",
		label, gc.Dataset, time.Since(start).Round(time.Second), data.Len())
	return nil
}
