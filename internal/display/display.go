// Package display provides the terminal console using Bubble Tea.
//
// The [UI] type manages a status bar and an input prompt at the bottom
// of the terminal. All application output is printed above the rendered
// area via Program.Println / Printf, ensuring concurrent writes never
// garble the display.
package display

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/deskmate/internal/engine"
	"github.com/hammamikhairi/deskmate/internal/reminder"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	reminderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	overdueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	listeningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// BannerStyle is the muted slate used for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	chatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	urgentOutputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fca5a5"))

	userInputEchoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a1a1aa"))
)

const prompt = "you> "

// Status is the live session summary shown in the status bar.
type Status struct {
	Mood         string
	Interactions int
	Listening    string // voice loop state; empty when voice is off
	Brief        bool
	Busy         bool
	Pending      int
}

// ReminderLister lists pending reminders for the status bar.
type ReminderLister interface {
	List() []reminder.Reminder
}

// Option configures the UI.
type Option func(*UI)

// WithStatus sets the status bar source, polled once a second.
func WithStatus(fn func() Status) Option {
	return func(u *UI) { u.status = fn }
}

// WithReminders shows pending reminders with a countdown.
func WithReminders(r ReminderLister) Option {
	return func(u *UI) { u.reminders = r }
}

// WithCodeRenderer renders generated code in replies.
func WithCodeRenderer(r *CodeRenderer) Option {
	return func(u *UI) { u.code = r }
}

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Other goroutines may safely
// call [UI.Println], [UI.Printf], and read from [UI.InputChan] at any
// time after [UI.WaitReady] returns.
type UI struct {
	program   *tea.Program
	inputCh   chan string
	readyCh   chan struct{}
	status    func() Status
	reminders ReminderLister
	code      *CodeRenderer
	now       func() time.Time
	done      atomic.Bool
}

// NewUI creates the display. Call Run() to start.
func NewUI(opts ...Option) *UI {
	u := &UI{
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
		status:  func() Status { return Status{} },
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Println prints a line above the prompt. Thread-safe. If the program
// hasn't started yet, falls back to fmt.Println.
func (u *UI) Println(a ...any) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// Printf prints formatted text above the prompt on its own line.
// Thread-safe.
func (u *UI) Printf(format string, a ...any) {
	if u.program != nil && !u.done.Load() {
		u.program.Printf(format, a...)
	} else {
		fmt.Printf(format+"\n", a...)
	}
}

// InputChan returns completed user-input lines.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// ── Styled print helpers ─────────────────────────────────────────

// PrintChat prints a conversational assistant line.
func (u *UI) PrintChat(text string) {
	u.Println(chatStyle.Render("  " + text))
}

// PrintHint prints a secondary/dimmed line.
func (u *UI) PrintHint(text string) {
	u.Println(secondaryStyle.Render("  " + text))
}

// PrintUrgent prints an urgent/error line.
func (u *UI) PrintUrgent(text string) {
	u.Println(urgentOutputStyle.Render("  " + text))
}

// PrintHeard prints an input line that did not come from the keyboard.
func (u *UI) PrintHeard(source engine.Source, text string) {
	u.Println(secondaryStyle.Render("["+string(source)+"] ") + primaryStyle.Render(text))
}

// PrintUserInput echoes the user's typed command into the scrollback.
func (u *UI) PrintUserInput(text string) {
	u.Println(promptStyle.Render(strings.TrimSpace(prompt)) + " " + userInputEchoStyle.Render(text))
}

// PrintReply prints a handled request: the echo for non-console input,
// the shaped reply and any generated code.
func (u *UI) PrintReply(r engine.Reply) {
	if r.Source != engine.SourceConsole && r.Input != "" {
		u.PrintHeard(r.Source, r.Input)
	}
	if r.Result.Success {
		u.PrintChat(r.Text)
	} else {
		u.PrintUrgent(r.Text)
	}
	if r.Result.GeneratedCode != "" {
		lang, _ := r.Result.Data["language"].(string)
		u.Println(u.renderCode(lang, r.Result.GeneratedCode))
	}
}

func (u *UI) renderCode(lang, code string) string {
	if u.code == nil {
		return primaryStyle.Render(code)
	}
	return u.code.Render(lang, code)
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	u.program = tea.NewProgram(u.newModel())
	_, err := u.program.Run()
	u.done.Store(true)
	return err
}

func (u *UI) newModel() model {
	ti := textinput.New()
	// Plain-text prompt: styled prompts add ANSI bytes that break the
	// textinput width math for long input.
	ti.Prompt = prompt
	ti.PromptStyle = promptStyle
	ti.TextStyle = userInputEchoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60 // updated on first WindowSizeMsg

	return model{
		input:     ti,
		inputCh:   u.inputCh,
		readyCh:   u.readyCh,
		statusFn:  u.status,
		reminders: u.reminders,
		now:       u.now,
		echoFn:    u.PrintUserInput,
	}
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	input     textinput.Model
	inputCh   chan<- string
	readyCh   chan struct{}
	echoFn    func(string)
	statusFn  func() Status
	reminders ReminderLister
	now       func() time.Time

	status  Status
	pending []reminderInfo
	width   int
}

type reminderInfo struct {
	text      string
	remaining time.Duration
	fired     bool
}

type tickMsg time.Time

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
		signalReady(m.readyCh),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) == "" {
				return m, nil
			}
			m.inputCh <- v
			// Echo from a Cmd so Println does not deadlock inside Update.
			echoFn := m.echoFn
			return m, func() tea.Msg {
				echoFn(v)
				return nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > len(prompt) {
			m.input.Width = msg.Width - len(prompt)
		}
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tea.Batch(tickCmd(), tea.SetWindowTitle(m.titleStr()))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) refresh() {
	m.status = m.statusFn()
	m.pending = m.pending[:0]
	if m.reminders == nil {
		return
	}
	now := m.now()
	for _, r := range m.reminders.List() {
		m.pending = append(m.pending, reminderInfo{
			text:      r.Text,
			remaining: r.Due.Sub(now),
			fired:     r.Fired,
		})
	}
}

func (m model) titleStr() string {
	if len(m.pending) == 0 {
		return "deskmate"
	}
	next := m.pending[0]
	if next.fired {
		return "deskmate: " + next.text + " is due!"
	}
	return "deskmate: " + next.text + " in " + fmtDuration(next.remaining)
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.renderBar())
	b.WriteByte('\n')
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

func (m model) renderBar() string {
	s := m.status
	parts := []string{labelStyle.Render(fmt.Sprintf("#%d", s.Interactions))}
	if s.Mood != "" {
		parts = append(parts, labelStyle.Render("mood: ")+primaryStyle.Render(s.Mood))
	}
	if s.Listening != "" {
		parts = append(parts, listeningStyle.Render("mic: "+s.Listening))
	}
	if s.Brief {
		parts = append(parts, labelStyle.Render("brief"))
	}
	switch {
	case s.Busy && s.Pending > 0:
		parts = append(parts, reminderStyle.Render(fmt.Sprintf("working (+%d queued)", s.Pending)))
	case s.Busy:
		parts = append(parts, reminderStyle.Render("working"))
	}
	for _, r := range m.pending {
		if r.fired {
			parts = append(parts, overdueStyle.Render(r.text+": due!"))
		} else {
			parts = append(parts, labelStyle.Render(r.text+": ")+reminderStyle.Render(fmtDuration(r.remaining)))
		}
	}

	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "

	w := m.width
	if w <= 0 {
		w = 80
	}
	return barBg.Width(w).Render(content)
}

// ── Helpers ──────────────────────────────────────────────────────

func fmtDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
