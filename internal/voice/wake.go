package voice

import (
	"strings"
	"unicode"
)

// DefaultWakeWords are used when none are configured.
var DefaultWakeWords = []string{"hey desk", "hey deskmate", "deskmate", "computer"}

// DefaultStopPhrase ends the continuous loop.
const DefaultStopPhrase = "stop listening"

// normalize lower-cases s and replaces punctuation with spaces so
// "Hey, Deskmate!" matches "hey deskmate".
func normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if isWordRune(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// containsPhrase reports whether phrase occurs in text on word
// boundaries. Both must already be normalized.
func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// word is one normalized token of a transcript and where it ends in the
// original text.
type word struct {
	text string
	end  int
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\''
}

// words splits s the way normalize does, keeping byte offsets.
func words(s string) []word {
	var out []word
	start := -1
	for i, r := range s {
		switch {
		case isWordRune(r) && start < 0:
			start = i
		case !isWordRune(r) && start >= 0:
			out = append(out, word{text: strings.ToLower(s[start:i]), end: i})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, word{text: strings.ToLower(s[start:]), end: len(s)})
	}
	return out
}

// StripWake looks for the earliest wake phrase in text. It returns the
// original text spoken after it and whether a wake phrase was found.
// Longer phrases win when two start at the same word.
func StripWake(text string, wakeWords []string) (string, bool) {
	toks := words(text)
	best, bestLen := -1, 0
	for _, w := range wakeWords {
		phrase := strings.Fields(normalize(w))
		if len(phrase) == 0 {
			continue
		}
		for i := 0; i+len(phrase) <= len(toks); i++ {
			if best >= 0 && i > best {
				break
			}
			if !matchAt(toks[i:], phrase) {
				continue
			}
			if best < 0 || i < best || len(phrase) > bestLen {
				best, bestLen = i, len(phrase)
			}
			break
		}
	}
	if best < 0 {
		return "", false
	}
	rest := text[toks[best+bestLen-1].end:]
	return strings.TrimSpace(strings.TrimLeft(rest, " \t,;:!?.")), true
}

func matchAt(toks []word, phrase []string) bool {
	for j, p := range phrase {
		if toks[j].text != p {
			return false
		}
	}
	return true
}

// IsStopPhrase reports whether text contains the stop phrase.
func IsStopPhrase(text, stop string) bool {
	return containsPhrase(normalize(text), normalize(stop))
}
