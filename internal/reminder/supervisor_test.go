package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }

// mockNotifier collects notifications for testing.
type mockNotifier struct {
	mu       sync.Mutex
	messages []string
	urgent   []string
}

func (m *mockNotifier) Notify(_ context.Context, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockNotifier) NotifyUrgent(_ context.Context, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urgent = append(m.urgent, msg)
	return nil
}

func (m *mockNotifier) snapshot() (normal, urgent []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...), append([]string(nil), m.urgent...)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestSupervisor(n domain.Notifier, c *clock, opts ...Option) *Supervisor {
	opts = append([]Option{WithClock(c.now)}, opts...)
	return New(n, logger.New(logger.LevelOff, nil), opts...)
}

func TestFiresWhenDue(t *testing.T) {
	n := &mockNotifier{}
	c := &clock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestSupervisor(n, c)
	ctx := context.Background()

	s.Add("stretch", 10*time.Minute)
	s.tick(ctx)
	_, urgent := n.snapshot()
	assert.Empty(t, urgent)

	c.advance(10 * time.Minute)
	s.tick(ctx)
	_, urgent = n.snapshot()
	assert.Equal(t, []string{"Reminder: stretch."}, urgent)

	list := s.List()
	require.Len(t, list, 1)
	assert.True(t, list[0].Fired)
}

func TestEscalatesThenDrops(t *testing.T) {
	n := &mockNotifier{}
	c := &clock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestSupervisor(n, c, WithNotifyCooldown(time.Minute), WithMaxEscalation(3))
	ctx := context.Background()

	s.Add("call the dentist", 0)
	s.tick(ctx) // fires

	c.advance(30 * time.Second)
	s.tick(ctx) // inside cooldown
	normal, _ := n.snapshot()
	assert.Empty(t, normal)

	c.advance(30 * time.Second)
	s.tick(ctx)
	c.advance(time.Minute)
	s.tick(ctx)
	c.advance(time.Minute)
	s.tick(ctx) // max reached, dropped

	normal, urgent := n.snapshot()
	assert.Len(t, urgent, 1)
	assert.Equal(t, []string{
		"Still waiting on: call the dentist. That was due 1 minute ago.",
		"Still waiting on: call the dentist. That was due 2 minutes ago.",
	}, normal)
	assert.Empty(t, s.List())
}

func TestDismiss(t *testing.T) {
	n := &mockNotifier{}
	c := &clock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestSupervisor(n, c)

	r := s.Add("tea", time.Minute)
	require.NoError(t, s.Dismiss(r.ID))
	assert.ErrorIs(t, s.Dismiss(r.ID), domain.ErrNotFound)

	c.advance(time.Hour)
	s.tick(context.Background())
	normal, urgent := n.snapshot()
	assert.Empty(t, normal)
	assert.Empty(t, urgent)
}

func TestListOrderedByDue(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestSupervisor(&mockNotifier{}, c)
	s.Add("later", time.Hour)
	s.Add("sooner", time.Minute)
	s.Add("middle", 10*time.Minute)

	var texts []string
	for _, r := range s.List() {
		texts = append(texts, r.Text)
	}
	assert.Equal(t, []string{"sooner", "middle", "later"}, texts)
}

func TestStartStop(t *testing.T) {
	n := &mockNotifier{}
	s := New(n, logger.New(logger.LevelOff, nil), WithTickInterval(10*time.Millisecond))
	s.Add("now", 0)

	s.Start(context.Background())
	s.Start(context.Background()) // second start is a no-op
	assert.Eventually(t, func() bool {
		_, urgent := n.snapshot()
		return len(urgent) == 1
	}, time.Second, 10*time.Millisecond)
	s.Stop()
	s.Stop()
}
