package persona

import "strings"

// firstPerson maps a leading verb phrase to its first-person form. Order
// matters: longer phrases come before their prefixes.
var firstPerson = []struct{ from, to string }{
	{"Failed to open ", "I couldn't open "},
	{"Failed to ", "I couldn't "},
	{"Could not ", "I couldn't "},
	{"Couldn't ", "I couldn't "},
	{"Unable to ", "I was unable to "},
	{"Screenshot saved", "I saved the screenshot"},
	{"Opened ", "I opened "},
	{"Opening ", "I'm opening "},
	{"Launched ", "I launched "},
	{"Searched ", "I searched "},
	{"Searching ", "I'm searching "},
	{"Playing ", "I'm playing "},
	{"Played ", "I played "},
	{"Paused ", "I paused "},
	{"Typed ", "I typed "},
	{"Pressed ", "I pressed "},
	{"Copied ", "I copied "},
	{"Saved ", "I saved "},
	{"Sent ", "I sent "},
	{"Created ", "I created "},
	{"Generated ", "I generated "},
	{"Wrote ", "I wrote "},
	{"Started ", "I started "},
	{"Stopped ", "I stopped "},
	{"Added ", "I added "},
	{"Deleted ", "I deleted "},
	{"Set ", "I set "},
	{"Took ", "I took "},
	{"Ran ", "I ran "},
}

// FirstPerson rewrites a result message's leading verb into the first
// person ("Opened X" -> "I opened X"). Unmatched messages are returned
// unchanged.
func FirstPerson(msg string) string {
	for _, r := range firstPerson {
		if strings.HasPrefix(msg, r.from) {
			return r.to + msg[len(r.from):]
		}
	}
	return msg
}
