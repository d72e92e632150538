package persona

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

func testHumanizer(opts ...Option) *Humanizer {
	base := []Option{
		WithRand(rand.New(rand.NewSource(1))),
		WithClock(func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }),
	}
	return New(logger.New(logger.LevelOff, nil), append(base, opts...)...)
}

func hasPrefixFrom(s string, set []string) bool {
	for _, p := range set {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, set []string) bool {
	for _, p := range set {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// ── Prefix selection ─────────────────────────────────────────────

func TestOpenChromeShapedUpbeat(t *testing.T) {
	h := testHumanizer()
	out := h.Shape("open_app", domain.OK("Opened chrome"), "open chrome")

	assert.True(t, hasPrefixFrom(out, UpbeatPrefixes), "got %q", out)
	assert.Contains(t, out, "I opened chrome")
	assert.True(t, containsAny(out, SuccessFollowUps), "got %q", out)
	assert.True(t, containsAny(out, MorningSmallTalk), "first interaction gets small talk: %q", out)
	assert.NotContains(t, out, "Done.")
}

func TestClassifyPrefix(t *testing.T) {
	tests := []struct {
		name       string
		action     string
		success    bool
		prevErrors int
		errors     int
		want       PrefixClass
	}{
		{"plain success", "get_time", true, 0, 0, PrefixSuccess},
		{"launch success", "open_app", true, 0, 0, PrefixUpbeat},
		{"search prefix", "search_files", true, 0, 0, PrefixUpbeat},
		{"recovery", "get_time", true, 2, 0, PrefixCelebratory},
		{"recovery beats upbeat", "open_app", true, 1, 0, PrefixCelebratory},
		{"first failure", "open_app", false, 0, 1, PrefixMildApology},
		{"second failure", "open_app", false, 1, 2, PrefixMildApology},
		{"third failure", "open_app", false, 2, 3, PrefixStrongApology},
		{"fifth failure", "open_app", false, 4, 5, PrefixStrongApology},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPrefix(tt.action, tt.success, tt.prevErrors, tt.errors))
		})
	}
}

func TestFailureStreakThenRecovery(t *testing.T) {
	h := testHumanizer()

	for i := 1; i <= 3; i++ {
		out := h.Shape("open_app", domain.Fail("Failed to open foo"), "open foo")
		if i < 3 {
			assert.True(t, hasPrefixFrom(out, MildApologyPrefixes), "attempt %d: %q", i, out)
		} else {
			assert.True(t, hasPrefixFrom(out, StrongApologyPrefixes), "attempt %d: %q", i, out)
		}
		assert.Contains(t, out, "I couldn't open foo")
		assert.True(t, containsAny(out, FailureFollowUps))
		assert.Equal(t, i, h.State().ConsecutiveErrors)
	}

	out := h.Shape("open_app", domain.OK("Opened foo"), "open foo")
	assert.True(t, hasPrefixFrom(out, CelebratoryPrefixes), "got %q", out)
	assert.Equal(t, 0, h.State().ConsecutiveErrors)
	assert.Equal(t, 4, h.State().InteractionCount)
}

// ── Brief mode ───────────────────────────────────────────────────

func TestBriefMode(t *testing.T) {
	h := testHumanizer(WithBrief(true))
	require.True(t, h.Brief())

	assert.Equal(t, "Done. Opened chrome.", h.Shape("open_app", domain.OK("Opened chrome"), "open chrome"))
	assert.Equal(t, "Sorry, that didn't work. Unknown action: fly.",
		h.Shape("fly", domain.Fail("Unknown action: fly"), "fly"))
	assert.Equal(t, "Done.", h.Shape("sleep", domain.OK(""), ""))

	h.SetBrief(false)
	out := h.Shape("open_app", domain.OK("Opened chrome"), "open chrome")
	assert.False(t, strings.HasPrefix(out, "Done."))
}

func TestDoneReservedForBriefMode(t *testing.T) {
	sets := [][]string{
		CelebratoryPrefixes, UpbeatPrefixes, SuccessPrefixes, SuccessFollowUps,
		MorningSmallTalk, AfternoonSmallTalk, EveningSmallTalk, NightSmallTalk,
		EmpathyLines, RestLines, Encouragements, Tips, Milestones,
	}
	for _, set := range sets {
		for _, p := range set {
			assert.NotContains(t, p, "Done.")
		}
	}
}

// ── Periodic lines ───────────────────────────────────────────────

func TestPeriodicLines(t *testing.T) {
	h := testHumanizer()
	var outs []string
	for i := 0; i < 10; i++ {
		outs = append(outs, h.Shape("get_time", domain.OK("It's 9:00 AM"), "what time is it"))
	}

	assert.True(t, containsAny(outs[4], Encouragements), "5th: %q", outs[4])
	assert.True(t, containsAny(outs[7], Tips), "8th: %q", outs[7])
	assert.Contains(t, outs[9], "10")
	assert.False(t, containsAny(outs[2], Encouragements))
	assert.False(t, containsAny(outs[1], MorningSmallTalk), "small talk only on first interaction")
}

// ── Mood ─────────────────────────────────────────────────────────

func TestDetectMood(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Mood
	}{
		{"open chrome", domain.MoodNeutral},
		{"why is this still broken", domain.MoodFrustrated},
		{"thanks, that's great", domain.MoodHappy},
		{"quick, open the browser", domain.MoodBusy},
		{"I'm so tired", domain.MoodTired},
		{"thanks but fix it", domain.MoodFrustrated},
		{"", domain.MoodNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMood(tt.in))
		})
	}
}

func TestBusyMoodSkipsFollowUp(t *testing.T) {
	h := testHumanizer()
	h.Shape("get_time", domain.OK("It's 9:00 AM"), "what time is it")
	out := h.Shape("open_app", domain.OK("Opened chrome"), "quick open chrome")

	assert.Equal(t, domain.MoodBusy, h.State().Mood)
	assert.False(t, containsAny(out, SuccessFollowUps), "got %q", out)
}

func TestFrustratedAddsEmpathy(t *testing.T) {
	h := testHumanizer()
	out := h.Shape("open_app", domain.Fail("Failed to open chrome"), "why won't it open again")
	assert.True(t, containsAny(out, EmpathyLines), "got %q", out)
}

func TestEmptyUtteranceKeepsMood(t *testing.T) {
	h := testHumanizer()
	h.Shape("get_time", domain.OK("x"), "thanks")
	h.Shape("get_time", domain.OK("x"), "")
	assert.Equal(t, domain.MoodHappy, h.State().Mood)
}

// ── Helpers ──────────────────────────────────────────────────────

func TestFirstPerson(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Opened chrome", "I opened chrome"},
		{"Failed to open foo", "I couldn't open foo"},
		{"Failed to send message", "I couldn't send message"},
		{"Screenshot saved to /tmp/a.png", "I saved the screenshot to /tmp/a.png"},
		{"It's 3:04 PM", "It's 3:04 PM"},
		{"✅ WhatsApp message sent to +1", "✅ WhatsApp message sent to +1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FirstPerson(tt.in))
	}
}

func TestSmallTalkFor(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2026, 1, 1, h, 0, 0, 0, time.UTC) }
	assert.Equal(t, MorningSmallTalk, SmallTalkFor(at(7)))
	assert.Equal(t, AfternoonSmallTalk, SmallTalkFor(at(13)))
	assert.Equal(t, EveningSmallTalk, SmallTalkFor(at(19)))
	assert.Equal(t, NightSmallTalk, SmallTalkFor(at(23)))
	assert.Equal(t, NightSmallTalk, SmallTalkFor(at(3)))
}

func TestJoinSentences(t *testing.T) {
	assert.Equal(t, "Okay. It's late. What's next?", joinSentences("Okay.", "It's late", "", "What's next?"))
	assert.Equal(t, "Hmm… Still loading…", joinSentences("Hmm…", "Still loading…"))
	assert.Equal(t, "Saved 🎉 Next one.", joinSentences("Saved 🎉", "Next one"))
	assert.Equal(t, "Café.", joinSentences("Café"))
}
