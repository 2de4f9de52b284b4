// Package trigger scans utterances for emergency vocabulary. Detection is
// deliberately recall-biased: a false positive costs one unnecessary human
// hand-off, a miss costs far more.
package trigger

import "strings"

// vocabulary is the fixed emergency term list. Matching is case-insensitive
// substring, so "crashed" and "breakdown lane" both fire.
var vocabulary = []string{
	"accident",
	"crash",
	"collision",
	"rollover",
	"blowout",
	"injury",
	"injured",
	"hurt",
	"bleeding",
	"medical",
	"ambulance",
	"hospital",
	"breakdown",
	"broken down",
	"mechanical",
	"stuck",
	"stranded",
	"police",
	"fire",
	"smoke",
	"emergency",
	"911",
	"need help",
	"send help",
}

// Detect reports whether text contains any emergency vocabulary term.
func Detect(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range vocabulary {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Keywords returns every vocabulary term present in text, in vocabulary order.
func Keywords(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range vocabulary {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}
