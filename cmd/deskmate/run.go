package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/hammamikhairi/deskmate/internal/bus"
	"github.com/hammamikhairi/deskmate/internal/display"
	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/engine"
	"github.com/hammamikhairi/deskmate/internal/speech"
	"github.com/hammamikhairi/deskmate/internal/wakeword"
)

// runConsole is the default mode: the terminal console plus every loop
// enabled in the config, all feeding one submit queue.
func runConsole(parent context.Context, c *cli) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []display.Option{
		display.WithReminders(a.reminders),
		display.WithStatus(func() display.Status {
			st := a.humanizer.State()
			return display.Status{
				Mood:         st.Mood.String(),
				Interactions: st.InteractionCount,
				Listening:    a.listening(),
				Brief:        a.humanizer.Brief(),
				Busy:         a.engine.Busy(),
				Pending:      a.engine.Pending(),
			}
		}),
	}
	if code, err := display.NewCodeRenderer("auto", 100); err == nil {
		opts = append(opts, display.WithCodeRenderer(code))
	} else {
		c.log.Warn("display: %v", err)
	}
	ui := display.NewUI(opts...)
	a.engine.OnReply(ui.PrintReply)

	var notifier domain.Notifier = display.NewNotifier(ui, c.log)
	if a.mouth != nil {
		notifier = speech.NewSpeakingNotifier(notifier, a.mouth, c.log)
	}
	a.notify.add(notifier)

	g, gctx := errgroup.WithContext(ctx)
	if err := a.startLoops(gctx, g); err != nil {
		return err
	}

	fmt.Println(display.RenderBanner())
	for _, line := range a.welcomeLines() {
		fmt.Println(display.BannerStyle.Render("  " + line))
	}
	fmt.Println()
	if a.mouth != nil {
		a.mouth.Say(speech.LineWelcome(), speech.PriorityNormal)
	}

	g.Go(func() error {
		defer ui.Quit()
		ui.WaitReady()
		a.readConsole(gctx, ui)
		return nil
	})

	// Bubble Tea owns the terminal until the user quits.
	if err := ui.Run(); err != nil {
		c.log.Error("display: %v", err)
	}
	cancel()
	if a.mouth != nil {
		a.mouth.Interrupt()
	}
	return g.Wait()
}

func (a *app) welcomeLines() []string {
	lines := []string{"Type a request, 'help' for examples, 'quit' to exit."}
	if a.listener != nil && a.cfg.Voice.Enabled {
		if a.cfg.Voice.WakeEnabled && len(a.cfg.Voice.WakeWords) > 0 {
			lines = append(lines, fmt.Sprintf("Voice is on: say %q and then your request.", a.cfg.Voice.WakeWords[0]))
		} else {
			lines = append(lines, "Voice is on: just say your request.")
		}
	}
	if a.cfg.Gesture.Enabled {
		lines = append(lines, fmt.Sprintf("Show %s to the camera to start listening.", a.cfg.Gesture.Attention))
	}
	return lines
}

var helpLines = []string{
	"open firefox",
	"search the web for go generics",
	"what time is it",
	"take a screenshot",
	"remind me to stretch in 20 minutes",
	"open notepad and type hello",
	"save a workflow called standup that opens slack and zoom",
	"brief mode on",
}

func (a *app) readConsole(ctx context.Context, ui *display.UI) {
	input := ui.InputChan()
	for {
		var line string
		select {
		case <-ctx.Done():
			return
		case line = <-input:
		}

		line = strings.TrimSpace(line)
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "bye":
			ui.PrintChat(speech.LineShutdown())
			return
		case "help", "?":
			ui.PrintHint("Try things like:")
			for _, h := range helpLines {
				ui.PrintHint("  " + h)
			}
			continue
		}

		if a.mouth != nil {
			a.mouth.Interrupt()
		}
		if err := a.engine.Submit(ctx, engine.SourceConsole, line); err != nil {
			a.log.Warn("console: submit failed: %v", err)
		}
	}
}

// startLoops launches the queue consumer and every enabled producer on g.
func (a *app) startLoops(ctx context.Context, g *errgroup.Group) error {
	cfg := a.cfg

	if a.mouth != nil {
		a.mouth.Start(ctx)
	}
	a.reminders.Start(ctx)
	a.closers = append(a.closers, func() error { a.reminders.Stop(); return nil })

	g.Go(func() error {
		a.engine.Run(ctx)
		return nil
	})

	if cfg.Voice.Enabled || cfg.Gesture.Enabled || cfg.Wakeword.Enabled {
		if err := a.openListener(a.engine.Submitter(ctx, engine.SourceVoice)); err != nil {
			return err
		}
		if a.mouth != nil {
			a.mouth.Prefetch(ctx, speech.ListeningFillers()...)
		}
	}

	if cfg.Voice.Enabled {
		g.Go(func() error {
			a.listener.Run(ctx)
			return nil
		})
	}

	if cfg.Gesture.Enabled {
		loop, err := a.openGesture(ctx)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := loop.Run(ctx); err != nil {
				a.log.Error("gesture: loop stopped: %v", err)
			}
			return nil
		})
	}

	if cfg.Wakeword.Enabled {
		a.startWakeword(ctx, g)
	}

	if cfg.Bus.Enabled {
		srv := bus.New(cfg.Bus.Addr, a.engine, a.log)
		a.engine.OnReply(srv.Broadcast)
		a.notify.add(srv)
		g.Go(func() error { return srv.ListenAndServe(ctx) })
	}
	return nil
}

func (a *app) startWakeword(ctx context.Context, g *errgroup.Group) {
	wc := a.cfg.Wakeword
	det := wakeword.New(wakeword.Config{
		Model:          wc.Model,
		MelspecModel:   wc.MelspecModel,
		EmbeddingModel: wc.EmbeddingModel,
		OnnxLib:        wc.OnnxLib,
		Threshold:      wc.Threshold,
		Cooldown:       wc.Cooldown,
	}, a.log)

	triggers := make(chan struct{}, 1)
	det.OnDetected = func() {
		select {
		case triggers <- struct{}{}:
		default:
		}
	}

	g.Go(func() error {
		if err := det.Start(ctx); err != nil && ctx.Err() == nil {
			a.log.Error("wakeword: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-triggers:
				// The detector must not score our own capture.
				det.Pause()
				a.listenAndSubmit(ctx, engine.SourceVoice)
				det.Resume()
			}
		}
	})
}
