package trigger

import (
	"reflect"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"plain keyword", "there's been a crash on I-10", true},
		{"mixed case", "I had an ACCIDENT", true},
		{"keyword inside word", "the truck crashed into the barrier", true},
		{"medical", "I think someone's hurt, send an ambulance", true},
		{"breakdown phrase", "we're broken down at mile marker 42", true},
		{"distress phrase", "I need help out here", true},
		{"numeric", "should I call 911?", true},
		{"routine status", "driving on I-40, ETA tomorrow morning", false},
		{"arrival", "arrived at the dock, waiting for a door", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetect_EveryVocabularyTerm(t *testing.T) {
	for _, kw := range vocabulary {
		if !Detect("driver said: " + kw + " just now") {
			t.Errorf("Detect missed vocabulary term %q", kw)
		}
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords("There was a CRASH and someone is hurt, we need an ambulance")
	want := []string{"crash", "hurt", "ambulance"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keywords = %v, want %v", got, want)
	}

	if kws := Keywords("all good, rolling along"); kws != nil {
		t.Errorf("expected no keywords, got %v", kws)
	}
}
