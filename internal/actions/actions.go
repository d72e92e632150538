// Package actions holds the handler table: one small function per action
// name, registered into a dispatch.Registry at start-up. Handlers read
// only their parameters and the collaborators in Deps, and always return
// a Result.
package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/hammamikhairi/deskmate/internal/dispatch"
	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/intent"
	"github.com/hammamikhairi/deskmate/internal/logger"
	"github.com/hammamikhairi/deskmate/internal/reminder"
	"github.com/hammamikhairi/deskmate/internal/workflows"
)

// MediaController sends transport commands to the active media player.
type MediaController interface {
	Media(ctx context.Context, command string) error
}

// Shell runs an arbitrary command line and returns its combined output.
type Shell interface {
	Run(ctx context.Context, command string) (string, error)
}

// Reminders is the part of the reminder supervisor handlers use.
type Reminders interface {
	Add(text string, in time.Duration) reminder.Reminder
	List() []reminder.Reminder
	Dismiss(id string) error
}

// Runner dispatches a command. run_workflow uses it to replay saved
// workflows through the same fail-fast path as parsed ones.
type Runner interface {
	Dispatch(ctx context.Context, cmd domain.Command) domain.Result
}

// RunnerFunc adapts a function to Runner. It lets wiring code hand the
// dispatcher to handlers before the dispatcher exists.
type RunnerFunc func(ctx context.Context, cmd domain.Command) domain.Result

// Dispatch implements Runner.
func (f RunnerFunc) Dispatch(ctx context.Context, cmd domain.Command) domain.Result {
	return f(ctx, cmd)
}

// BriefToggle flips the humanizer's brief mode.
type BriefToggle interface {
	SetBrief(on bool)
	Brief() bool
}

// Deps are the collaborators handlers may use. A nil collaborator
// leaves the actions that need it unregistered, so the intent model is
// never offered an action that cannot run.
type Deps struct {
	Launcher      domain.Launcher
	Keyboard      domain.Keyboard
	Screenshotter domain.Screenshotter
	Clipboard     domain.Clipboard
	Messenger     domain.Messenger
	Media         MediaController
	Shell         Shell

	LLM   domain.LLM
	Model string

	History     domain.HistoryStore
	Context     string // history context name
	KV          domain.KVStore
	Reminders   Reminders
	Workflows   *workflows.Library
	Runner      Runner
	Brief       BriefToggle
	Screenshots string // directory for take_screenshot without a path

	Now   func() time.Time
	Sleep func(time.Duration)
	Log   *logger.Logger
}

func (d *Deps) defaults() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Sleep == nil {
		d.Sleep = time.Sleep
	}
	if d.Context == "" {
		d.Context = "default"
	}
	if d.Screenshots == "" {
		d.Screenshots = "."
	}
	if d.Log == nil {
		d.Log = logger.New(logger.LevelOff, nil)
	}
}

// handlers binds the handler methods to their Deps.
type handlers struct {
	Deps
	known intent.Known
}

// Register adds every action whose collaborators are present. It returns
// the first registration error, e.g. a duplicate name.
func Register(reg *dispatch.Registry, deps Deps) error {
	deps.defaults()
	h := &handlers{Deps: deps, known: reg}

	for _, e := range h.table() {
		if err := reg.Register(e); err != nil {
			return fmt.Errorf("actions: %w", err)
		}
	}
	h.Log.Debug("actions: %d registered", reg.Len())
	return nil
}

// table lists the actions available with the current Deps.
func (h *handlers) table() []dispatch.Entry {
	entries := []dispatch.Entry{
		{Name: "get_time", Description: "tell the current local time", Fn: h.getTime},
		{Name: "get_date", Description: "tell today's date", Fn: h.getDate},
		{Name: "system_info", Description: "report host, OS and CPU details", Fn: h.systemInfo},
		{Name: "sleep", Description: "wait a number of seconds, mostly inside workflows", Params: []string{"seconds"}, Fn: h.sleep},
	}
	add := func(cond bool, es ...dispatch.Entry) {
		if cond {
			entries = append(entries, es...)
		}
	}

	add(h.Launcher != nil,
		dispatch.Entry{Name: "open_app", Description: "launch a desktop application", Params: []string{"app_name"}, Fn: h.openApp},
		dispatch.Entry{Name: "open_url", Description: "open a web page in the browser", Params: []string{"url"}, Fn: h.openURL},
		dispatch.Entry{Name: "search_web", Description: "search the web", Params: []string{"query"}, Fn: h.searchWeb},
		dispatch.Entry{Name: "play_music", Description: "play a song, artist or genre", Params: []string{"query"}, Fn: h.playMusic},
	)
	add(h.Media != nil,
		dispatch.Entry{Name: "media_control", Description: "control playback: play, pause, next, previous, stop", Params: []string{"command"}, Fn: h.mediaControl})
	add(h.Keyboard != nil,
		dispatch.Entry{Name: "type_text", Description: "type text into the focused window", Params: []string{"text"}, Fn: h.typeText},
		dispatch.Entry{Name: "press_key", Description: "press a key or combination such as ctrl+s", Params: []string{"keys"}, Fn: h.pressKey},
	)
	add(h.Screenshotter != nil,
		dispatch.Entry{Name: "take_screenshot", Description: "capture the screen to a file", Params: []string{"path?"}, Fn: h.takeScreenshot})
	add(h.Clipboard != nil,
		dispatch.Entry{Name: "copy_to_clipboard", Description: "put text on the clipboard", Params: []string{"text"}, Fn: h.copyToClipboard},
		dispatch.Entry{Name: "read_clipboard", Description: "read the clipboard contents", Fn: h.readClipboard},
	)
	add(h.Shell != nil,
		dispatch.Entry{Name: "run_command", Description: "run a shell command", Params: []string{"command"}, Fn: h.runCommand})
	add(h.Messenger != nil,
		dispatch.Entry{Name: "send_whatsapp", Description: "send a WhatsApp message to a phone number", Params: []string{"phone", "message"}, Fn: h.sendWhatsApp})
	add(h.LLM != nil,
		dispatch.Entry{Name: "conversational_ai", Description: "chat, answer questions, small talk", Params: []string{"message"}, Fn: h.conversational},
		dispatch.Entry{Name: "generate_text", Description: "write free-form text from a prompt", Params: []string{"prompt"}, Fn: h.generateText},
		dispatch.Entry{Name: "generate_code", Description: "write source code", Params: []string{"language", "description"}, Fn: h.generateCode},
		dispatch.Entry{Name: "write_letter", Description: "draft a letter or email", Params: []string{"recipient", "topic", "tone?"}, Fn: h.writeLetter},
	)
	add(h.KV != nil,
		dispatch.Entry{Name: "add_note", Description: "save a short note", Params: []string{"text"}, Fn: h.addNote},
		dispatch.Entry{Name: "list_notes", Description: "read back saved notes", Fn: h.listNotes},
	)
	add(h.Reminders != nil,
		dispatch.Entry{Name: "set_reminder", Description: "remind the user about something later", Params: []string{"text", "minutes"}, Fn: h.setReminder},
		dispatch.Entry{Name: "list_reminders", Description: "list pending reminders", Fn: h.listReminders},
		dispatch.Entry{Name: "dismiss_reminder", Description: "cancel a reminder by its text", Params: []string{"text"}, Fn: h.dismissReminder},
	)
	add(h.Workflows != nil,
		dispatch.Entry{Name: "save_workflow", Description: "save a list of steps under a name", Params: []string{"name", "steps", "description?"}, Fn: h.saveWorkflow},
		dispatch.Entry{Name: "list_workflows", Description: "list saved workflows", Fn: h.listWorkflows},
	)
	add(h.Workflows != nil && h.Runner != nil,
		dispatch.Entry{Name: "run_workflow", Description: "run a saved workflow by name", Params: []string{"name"}, Fn: h.runWorkflow})
	add(h.Brief != nil,
		dispatch.Entry{Name: "toggle_brief_mode", Description: "switch short replies on or off", Params: []string{"enabled?"}, Fn: h.toggleBrief})
	add(h.History != nil,
		dispatch.Entry{Name: "show_history", Description: "show recent conversation", Params: []string{"limit?"}, Fn: h.showHistory})

	return entries
}
