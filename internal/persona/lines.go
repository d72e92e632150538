package persona

// Every phrase the humanizer can add around a result lives here. Keep
// phrases short; no phrase may contain "Done." because that token is
// reserved for brief mode.

import (
	"fmt"
	"math/rand"
)

// ── Prefixes ─────────────────────────────────────────────────────

// CelebratoryPrefixes open the first success after one or more failures.
var CelebratoryPrefixes = []string{
	"There we go!",
	"Finally, that worked!",
	"Back on track!",
	"Got it this time!",
	"Persistence pays off!",
}

// UpbeatPrefixes open successes of launch, search and playback actions.
var UpbeatPrefixes = []string{
	"You got it!",
	"On it!",
	"Right away!",
	"Here you go!",
	"Coming right up!",
	"With pleasure!",
}

// SuccessPrefixes open every other success.
var SuccessPrefixes = []string{
	"All set.",
	"Okay.",
	"Sure thing.",
	"No problem.",
	"Alright.",
	"Taken care of.",
}

// MildApologyPrefixes open the first and second failure in a row.
var MildApologyPrefixes = []string{
	"Hmm, that didn't go as planned.",
	"Oops.",
	"Sorry about that.",
	"That didn't quite work.",
	"Something went sideways.",
}

// StrongApologyPrefixes open the third and later failures in a row.
var StrongApologyPrefixes = []string{
	"I'm really sorry, this keeps failing.",
	"I apologize, I'm having real trouble with this.",
	"I'm so sorry, that failed again.",
	"My apologies, nothing seems to be working right now.",
}

// ── Follow-ups ───────────────────────────────────────────────────

// SuccessFollowUps are appended after a success.
var SuccessFollowUps = []string{
	"What's next?",
	"Anything else I can do?",
	"Need anything else?",
	"What would you like to do now?",
	"Let me know if you need more.",
}

// FailureFollowUps suggest an alternative approach after a failure.
var FailureFollowUps = []string{
	"Want to try saying it a different way?",
	"Maybe we can try another approach?",
	"Should I try something else instead?",
	"You could rephrase that and I'll give it another go.",
}

// Small talk for the first interaction, by time of day.
var (
	MorningSmallTalk = []string{
		"Good morning, by the way!",
		"Hope your morning is off to a good start.",
	}
	AfternoonSmallTalk = []string{
		"Hope your afternoon is going well.",
		"Good afternoon, by the way!",
	}
	EveningSmallTalk = []string{
		"Good evening, by the way!",
		"Hope you had a good day.",
	}
	NightSmallTalk = []string{
		"Working late tonight?",
		"Don't stay up too late!",
	}
)

// ── Mood lines ───────────────────────────────────────────────────

// EmpathyLines are added when the user sounds frustrated.
var EmpathyLines = []string{
	"I know this is frustrating.",
	"I hear you, let's get this sorted.",
	"I understand, I'm doing my best here.",
}

// RestLines are added when the user sounds tired.
var RestLines = []string{
	"Remember to take a break soon.",
	"Maybe grab some water when you can.",
}

// ── Periodic lines ───────────────────────────────────────────────

// Encouragements are appended every EncourageEvery interactions.
var Encouragements = []string{
	"You're on a roll!",
	"We make a good team.",
	"Nice work today.",
	"Keep it coming!",
}

// Tips are appended every TipEvery interactions.
var Tips = []string{
	"Tip: you can chain actions, like \"open notepad and type hello\".",
	"Tip: say \"brief mode\" if you prefer shorter replies.",
	"Tip: you can save a sequence of actions as a workflow and run it by name.",
	"Tip: ask me to set a reminder and I'll nudge you when it's due.",
}

// Milestones are appended every MilestoneEvery interactions. Each is a
// format string taking the interaction count.
var Milestones = []string{
	"That's %d requests together!",
	"Milestone: %d interactions and counting.",
	"We just hit %d interactions!",
}

// ── Brief mode ───────────────────────────────────────────────────

// Brief-mode openers.
const (
	BriefSuccess = "Done."
	BriefFailure = "Sorry, that didn't work."
)

func pick(rng *rand.Rand, set []string) string {
	return set[rng.Intn(len(set))]
}

func milestoneLine(rng *rand.Rand, count int) string {
	return fmt.Sprintf(pick(rng, Milestones), count)
}
