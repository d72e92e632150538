package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hammamikhairi/deskmate/internal/actions"
	"github.com/hammamikhairi/deskmate/internal/config"
	"github.com/hammamikhairi/deskmate/internal/dispatch"
	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/engine"
	"github.com/hammamikhairi/deskmate/internal/intent"
	"github.com/hammamikhairi/deskmate/internal/llm"
	"github.com/hammamikhairi/deskmate/internal/logger"
	"github.com/hammamikhairi/deskmate/internal/persona"
	"github.com/hammamikhairi/deskmate/internal/reminder"
	"github.com/hammamikhairi/deskmate/internal/speech"
	"github.com/hammamikhairi/deskmate/internal/storage"
	"github.com/hammamikhairi/deskmate/internal/voice"
	"github.com/hammamikhairi/deskmate/internal/workflows"
)

// store is what the app needs from a storage backend.
type store interface {
	domain.HistoryStore
	domain.KVStore
}

// app is the wired object graph shared by every run mode.
type app struct {
	cfg *config.Config
	log *logger.Logger

	store     store
	library   *workflows.Library
	reminders *reminder.Supervisor
	humanizer *persona.Humanizer
	registry  *dispatch.Registry
	engine    *engine.Engine
	notify    *notifiers

	player *speech.Player
	mouth  *speech.Mouth
	tones  *speech.Tones

	listener   *voice.Listener
	voiceState atomic.Value // voice.State

	closers []func() error
}

// newApp builds everything that does not own a device. Devices (mic,
// camera, wakeword) are opened by the run mode that needs them.
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, notify: &notifiers{}}

	if err := a.openStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}

	client, err := llm.New(ctx, cfg.LLM, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.humanizer = persona.New(log, persona.WithBrief(cfg.Persona.Brief))
	a.reminders = reminder.New(a.notify, log)
	a.openAudio()

	var dispatcher *dispatch.Dispatcher
	a.registry = dispatch.NewRegistry()
	if err := actions.Register(a.registry, a.actionDeps(client, actions.RunnerFunc(
		func(ctx context.Context, cmd domain.Command) domain.Result {
			return dispatcher.Dispatch(ctx, cmd)
		},
	))); err != nil {
		a.Close()
		return nil, err
	}
	a.registry.Freeze()

	dispatcher = dispatch.New(a.registry, log, dispatch.WithStateHook(func(c dispatch.StateChange) {
		if c.Workflow {
			log.Debug("dispatch: workflow %q %s step %d", c.Action, c.WFState, c.Step)
		}
	}))

	parser := intent.NewParser(client, a.registry, log,
		intent.WithModel(cfg.LLM.Model),
		intent.WithFallbackModel(cfg.LLM.FallbackModel),
		intent.WithTimeout(cfg.LLM.Timeout),
	)

	var speaker domain.Speaker = speech.NewNoOp(log)
	if a.mouth != nil {
		speaker = a.mouth
	}
	a.engine = engine.New(parser, dispatcher, a.humanizer, log,
		engine.WithHistory(a.store, cfg.Context),
		engine.WithSpeaker(speaker),
	)

	log.Info("deskmate: %d actions ready (llm=%s/%s)", a.registry.Len(), cfg.LLM.Provider, cfg.LLM.Model)
	return a, nil
}

func (a *app) openStorage(ctx context.Context) error {
	sc := a.cfg.Storage
	workflowsFile := sc.WorkflowsFile
	if sc.Ephemeral {
		a.store = storage.NewMemoryStore(a.log)
		workflowsFile = ""
	} else {
		db, err := storage.OpenSQLite(ctx, sc.Path, a.log)
		if err != nil {
			return err
		}
		a.store = db
		a.closers = append(a.closers, db.Close)
	}

	lib, err := workflows.Open(workflowsFile, a.log)
	if err != nil {
		return err
	}
	a.library = lib
	return nil
}

// openAudio sets up the speaker and feedback tones. Audio is optional:
// failures are logged and the assistant stays silent.
func (a *app) openAudio() {
	tts := a.cfg.TTS
	wantTTS := tts.Enabled && tts.AzureKey != "" && tts.AzureRegion != ""
	if tts.Enabled && !wantTTS {
		a.log.Info("tts: disabled, set tts.azure_key and tts.azure_region to enable")
	}
	if !wantTTS && !a.cfg.Voice.Tones {
		return
	}

	player, err := speech.NewPlayer(a.log)
	if err != nil {
		a.log.Error("audio player init failed, speech disabled: %v", err)
		return
	}
	a.player = player
	a.closers = append(a.closers, func() error { player.Stop(); return nil })

	if a.cfg.Voice.Tones {
		a.tones = speech.NewTones(player, a.log)
	}
	if wantTTS {
		client := speech.NewAzureClient(tts.AzureKey, tts.AzureRegion, a.log,
			speech.WithVoice(tts.Voice),
			speech.WithHTTPTimeout(tts.Timeout),
		)
		a.mouth = speech.NewMouth(client, player, a.log,
			speech.WithCacheDir(tts.CacheDir),
			speech.WithDiskWrite(tts.DiskCache),
			speech.WithChunkSize(tts.ChunkSize),
		)
		a.log.Info("tts: enabled (voice=%s, region=%s)", tts.Voice, tts.AzureRegion)
	}
}

func (a *app) actionDeps(client domain.LLM, runner actions.Runner) actions.Deps {
	dc := a.cfg.Desktop
	deps := actions.Deps{
		Launcher:      actions.NewExecLauncher(a.log),
		Keyboard:      actions.NewXdotool(),
		Screenshotter: actions.NewScreenshotTool(),
		Clipboard:     actions.SystemClipboard{},
		Media:         actions.NewPlayerctl(),
		LLM:           client,
		Model:         a.cfg.LLM.Model,
		History:       a.store,
		Context:       a.cfg.Context,
		KV:            a.store,
		Reminders:     a.reminders,
		Workflows:     a.library,
		Runner:        runner,
		Brief:         a.humanizer,
		Screenshots:   a.cfg.Storage.Screenshots,
		Log:           a.log,
	}

	wa := actions.NewWebWhatsApp(actions.WhatsAppConfig{
		Browser:     dc.Browser,
		ProfileDir:  dc.WhatsAppProfile,
		SendTimeout: dc.WhatsAppTimeout,
	}, a.log)
	deps.Messenger = wa
	a.closers = append(a.closers, wa.Close)

	if dc.AllowShell {
		deps.Shell = actions.NewSystemShell(dc.ShellTimeout)
	}
	return deps
}

// ── Voice ───────────────────────────────────────────────────────

// openListener builds the voice listener. submit receives command
// transcripts from the continuous loop.
func (a *app) openListener(submit func(string)) error {
	vc := a.cfg.Voice
	opts := []voice.Option{
		voice.WithBounds(vc.SilenceTimeout, vc.PhraseLimit),
		voice.WithCalibration(vc.Calibration),
		voice.WithStopPhrase(vc.StopPhrase),
		voice.WithClipDir(vc.ClipDir),
		voice.WithStateHook(func(s voice.State) { a.voiceState.Store(s) }),
	}
	if vc.WakeEnabled {
		opts = append(opts, voice.WithWakeWords(vc.WakeWords...))
	}
	if a.tones != nil {
		opts = append(opts, voice.WithTones(a.tones))
	}
	if a.mouth != nil {
		opts = append(opts,
			voice.WithBusy(a.mouth.Busy),
			voice.WithAnnouncer(func(text string) { a.mouth.Say(text, speech.PriorityCritical) }),
		)
	}

	switch vc.Recognizer {
	case "cli":
		ear := speech.NewCLIEar(vc.WhisperBin, vc.WhisperModel, a.log, speech.WithTempDir(vc.TempDir))
		opts = append(opts, voice.WithEar(ear))
		a.listener = voice.NewListener(nil, nil, submit, a.log, opts...)
	case "model":
		mic, err := speech.NewMicCapturer(a.log,
			speech.WithMinThreshold(vc.MinThreshold),
			speech.WithEndSilence(vc.EndSilence),
		)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, mic.Close)
		model, err := speech.NewWhisperModel(vc.WhisperModel, vc.Language, a.log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, model.Close)
		a.listener = voice.NewListener(mic, model, submit, a.log, opts...)
	default:
		return fmt.Errorf("voice: unknown recognizer %q (want cli or model)", vc.Recognizer)
	}
	a.log.Info("voice: %s recognizer ready (model=%s)", vc.Recognizer, vc.WhisperModel)
	return nil
}

// listenAndSubmit runs one single-shot capture and submits what was
// heard. Gestures and the wakeword use it.
func (a *app) listenAndSubmit(ctx context.Context, source engine.Source) {
	utt, ok := a.listener.ListenOnce(ctx)
	if !ok || utt.Empty() {
		return
	}
	if err := a.engine.Submit(ctx, source, utt.Transcript); err != nil {
		a.log.Warn("voice: submit failed: %v", err)
	}
}

// listening returns the voice loop state for the status bar.
func (a *app) listening() string {
	if a.listener == nil {
		return ""
	}
	if s, ok := a.voiceState.Load().(voice.State); ok {
		return s.String()
	}
	return voice.StateIdle.String()
}

// Close releases every resource in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// ── Notification fan-out ────────────────────────────────────────

// notifiers delivers reminders to every attached surface (console, bus,
// speech). Surfaces are attached during start-up.
type notifiers struct {
	mu   sync.RWMutex
	list []domain.Notifier
}

var _ domain.Notifier = (*notifiers)(nil)

func (n *notifiers) add(x domain.Notifier) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, x)
}

func (n *notifiers) each(fn func(domain.Notifier) error) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var errs []error
	for _, x := range n.list {
		errs = append(errs, fn(x))
	}
	return errors.Join(errs...)
}

func (n *notifiers) Notify(ctx context.Context, msg string) error {
	return n.each(func(x domain.Notifier) error { return x.Notify(ctx, msg) })
}

func (n *notifiers) NotifyUrgent(ctx context.Context, msg string) error {
	return n.each(func(x domain.Notifier) error { return x.NotifyUrgent(ctx, msg) })
}
