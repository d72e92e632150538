package persona

import (
	"strings"
	"unicode"

	"github.com/hammamikhairi/deskmate/internal/domain"
)

// Mood keyword sets. Matching is on whole lower-cased words.
var (
	FrustratedWords = []string{"still", "broken", "why", "fix", "again", "ugh", "annoying", "useless"}
	HappyWords      = []string{"thanks", "thank", "great", "awesome", "perfect", "love", "nice"}
	BusyWords       = []string{"quick", "quickly", "urgent", "asap", "hurry", "fast"}
	TiredWords      = []string{"tired", "exhausted", "sleepy", "yawn"}
)

// DetectMood classifies an utterance. Frustration wins over the other
// moods since it changes how failures are phrased.
func DetectMood(utterance string) domain.Mood {
	words := strings.FieldsFunc(strings.ToLower(utterance), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	has := func(set []string) bool {
		for _, w := range words {
			for _, k := range set {
				if w == k {
					return true
				}
			}
		}
		return false
	}

	switch {
	case has(FrustratedWords):
		return domain.MoodFrustrated
	case has(BusyWords):
		return domain.MoodBusy
	case has(TiredWords):
		return domain.MoodTired
	case has(HappyWords):
		return domain.MoodHappy
	default:
		return domain.MoodNeutral
	}
}
