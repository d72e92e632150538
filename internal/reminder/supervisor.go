// Package reminder implements the background supervisor that fires
// user reminders when they come due and nags until they are dismissed.
package reminder

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
	"github.com/hammamikhairi/deskmate/internal/speech"
)

// Reminder is one scheduled reminder.
type Reminder struct {
	ID           string
	Text         string
	Due          time.Time
	Fired        bool
	Escalation   int
	LastNotified time.Time
}

// Option configures the supervisor.
type Option func(*Supervisor)

// WithTickInterval sets how often the supervisor checks reminders.
func WithTickInterval(d time.Duration) Option {
	return func(s *Supervisor) { s.tickInterval = d }
}

// WithNotifyCooldown sets the minimum time between repeated notifications
// for a fired reminder.
func WithNotifyCooldown(d time.Duration) Option {
	return func(s *Supervisor) { s.notifyCooldown = d }
}

// WithMaxEscalation sets the total number of notices a fired reminder
// gets before it is dropped.
func WithMaxEscalation(level int) Option {
	return func(s *Supervisor) { s.maxEscalation = level }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) { s.now = now }
}

// Supervisor tracks pending reminders and delivers them through a
// Notifier.
type Supervisor struct {
	notifier       domain.Notifier
	log            *logger.Logger
	tickInterval   time.Duration
	notifyCooldown time.Duration
	maxEscalation  int
	now            func() time.Time

	mu        sync.Mutex
	reminders map[string]*Reminder
	seq       int
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a reminder supervisor.
func New(notifier domain.Notifier, log *logger.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		notifier:       notifier,
		log:            log,
		tickInterval:   time.Second,
		notifyCooldown: time.Minute,
		maxEscalation:  3,
		now:            time.Now,
		reminders:      make(map[string]*Reminder),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add schedules text to be announced after in.
func (s *Supervisor) Add(text string, in time.Duration) Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	r := &Reminder{
		ID:   fmt.Sprintf("r%d", s.seq),
		Text: text,
		Due:  s.now().Add(in),
	}
	s.reminders[r.ID] = r
	s.log.Debug("reminder: %s scheduled for %s (%q)", r.ID, r.Due.Format(time.TimeOnly), text)
	return *r
}

// Dismiss stops a reminder, fired or not.
func (s *Supervisor) Dismiss(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reminders[id]; !ok {
		return fmt.Errorf("reminder %s: %w", id, domain.ErrNotFound)
	}
	delete(s.reminders, id)
	return nil
}

// List returns a snapshot of live reminders ordered by due time.
func (s *Supervisor) List() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Reminder, 0, len(s.reminders))
	for _, r := range s.reminders {
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b Reminder) int { return a.Due.Compare(b.Due) })
	return out
}

// Start begins the background loop. Non-blocking.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Warn("reminder supervisor already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(childCtx)
	}()

	s.log.Info("reminder supervisor started (tick=%s, cooldown=%s)", s.tickInterval, s.notifyCooldown)
}

// Stop shuts the loop down and waits for it to exit.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("reminder supervisor stopped")
}

func (s *Supervisor) loop(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

type delivery struct {
	urgent bool
	msg    string
}

// tick fires due reminders and escalates fired ones. Notifications are
// sent after the lock is released; a speaking notifier can block.
func (s *Supervisor) tick(ctx context.Context) {
	now := s.now()
	var out []delivery

	s.mu.Lock()
	for id, r := range s.reminders {
		switch {
		case !r.Fired:
			if now.Before(r.Due) {
				continue
			}
			r.Fired = true
			r.Escalation = 1
			r.LastNotified = now
			s.log.Debug("reminder: %s fired", id)
			out = append(out, delivery{urgent: true, msg: speech.LineReminder(r.Text)})

		case r.Escalation >= s.maxEscalation:
			s.log.Debug("reminder: %s dropped after %d notices", id, r.Escalation)
			delete(s.reminders, id)

		case now.Sub(r.LastNotified) >= s.notifyCooldown:
			r.Escalation++
			r.LastNotified = now
			out = append(out, delivery{msg: speech.LineReminderAgain(r.Text, now.Sub(r.Due))})
		}
	}
	s.mu.Unlock()

	for _, d := range out {
		var err error
		if d.urgent {
			err = s.notifier.NotifyUrgent(ctx, d.msg)
		} else {
			err = s.notifier.Notify(ctx, d.msg)
		}
		if err != nil {
			s.log.Error("reminder: notify: %v", err)
		}
	}
}
