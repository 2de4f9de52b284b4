package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fleetvoice/dispatchd/internal/scenario"
)

// Rule-based confidence is fixed: the rules always produce some answer but
// miss nuance. Emergency rules score slightly higher because the vocabulary
// is narrower.
const (
	ruleConfidenceCheckin   = 0.6
	ruleConfidenceEmergency = 0.7
)

// RuleBased is the deterministic keyword/regex extractor. It never fails,
// which makes it the floor the pipeline can always fall back to.
type RuleBased struct{}

func NewRuleBased() *RuleBased {
	return &RuleBased{}
}

var (
	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:mile marker|mm)\s*\d+`),
		regexp.MustCompile(`(?i)(?:exit|off)\s*\d+`),
		regexp.MustCompile(`(?i)I-\d+`),
		regexp.MustCompile(`(?i)highway\s*\d+`),
		regexp.MustCompile(`(?i)route\s*\d+`),
		regexp.MustCompile(`[A-Z][a-z]+,?\s*[A-Z]{2}\b`),
	}
	locationPhrases = []*regexp.Regexp{
		regexp.MustCompile(`(?i)at\s+([^,.!?\n]+)`),
		regexp.MustCompile(`(?i)near\s+([^,.!?\n]+)`),
		regexp.MustCompile(`(?i)on\s+([^,.!?\n]+)`),
	}
	etaPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\d+\s*(?:hours?|hrs?)`),
		regexp.MustCompile(`(?i)\d+\s*(?:minutes?|mins?)`),
		regexp.MustCompile(`(?i)(?:around|about|approximately)\s*\d+(?::\d+)?`),
		regexp.MustCompile(`\d{1,2}:\d{2}`),
		regexp.MustCompile(`(?i)tomorrow(?:\s*at\s*\d+(?::\d+)?)?`),
		regexp.MustCompile(`(?i)tonight(?:\s*at\s*\d+(?::\d+)?)?`),
	}
)

func (r *RuleBased) Extract(_ context.Context, transcript string, scenarioType scenario.Type) (*Result, error) {
	var fields map[string]any
	var confidence float64

	switch scenarioType {
	case scenario.DriverCheckin:
		fields = r.extractCheckin(transcript)
		confidence = ruleConfidenceCheckin
	case scenario.EmergencyProtocol:
		fields = r.extractEmergency(transcript)
		confidence = ruleConfidenceEmergency
	default:
		return nil, fmt.Errorf("%w: %s", scenario.ErrUnknownScenario, scenarioType)
	}

	return &Result{
		ID:           uuid.New(),
		ScenarioType: scenarioType,
		Fields:       fields,
		Confidence:   confidence,
		Method:       MethodRuleBased,
		ExtractedAt:  time.Now().UTC(),
	}, nil
}

func (r *RuleBased) extractCheckin(transcript string) map[string]any {
	lower := strings.ToLower(transcript)
	fields := make(map[string]any)

	switch {
	case containsAny(lower, "arrived", "at the dock", "at destination"):
		fields["call_outcome"] = "Arrival Confirmation"
	case containsAny(lower, "driving", "on the road", "en route", "traveling"):
		fields["call_outcome"] = "In-Transit Update"
	}

	switch {
	case containsAny(lower, "unloading", "offloading", "door"):
		fields["driver_status"] = "Unloading"
	case containsAny(lower, "arrived", "at the dock", "here at"):
		fields["driver_status"] = "Arrived"
	case containsAny(lower, "delayed", "late", "behind", "stuck"):
		fields["driver_status"] = "Delayed"
	case containsAny(lower, "driving", "on the road"):
		fields["driver_status"] = "Driving"
	}

	if loc := extractLocation(transcript); loc != "" {
		fields["current_location"] = loc
	}
	if eta := extractETA(transcript); eta != "" {
		fields["eta"] = eta
	}
	if reason := extractDelayReason(lower); reason != "" {
		fields["delay_reason"] = reason
	}

	fields["pod_reminder_acknowledged"] = containsAny(lower, "pod", "proof of delivery", "paperwork", "documents")

	return fields
}

func (r *RuleBased) extractEmergency(transcript string) map[string]any {
	lower := strings.ToLower(transcript)
	fields := map[string]any{
		"call_outcome":      "Emergency Escalation",
		"escalation_status": "Connected to Human Dispatcher",
	}

	switch {
	case containsAny(lower, "accident", "crash", "collision"):
		fields["emergency_type"] = "Accident"
	case containsAny(lower, "breakdown", "mechanical", "engine", "blowout"):
		fields["emergency_type"] = "Breakdown"
	case containsAny(lower, "medical", "injured", "hurt", "sick"):
		fields["emergency_type"] = "Medical"
	default:
		fields["emergency_type"] = "Other"
	}

	switch {
	case containsAny(lower, "everyone is safe", "we're safe", "no injuries"):
		fields["safety_status"] = "Everyone is safe"
	case containsAny(lower, "someone is hurt", "injured", "need ambulance"):
		fields["safety_status"] = "Injuries reported"
	}

	if containsAny(lower, "injured", "hurt", "bleeding", "unconscious") {
		fields["injury_status"] = "Injuries reported"
	} else {
		fields["injury_status"] = "No injuries reported"
	}

	loadSecure := true
	if containsAny(lower, "load shifted", "cargo damaged", "spilled") {
		loadSecure = false
	}
	fields["load_secure"] = loadSecure

	if loc := extractLocation(transcript); loc != "" {
		fields["emergency_location"] = loc
	}

	fields["emergency_services_called"] = containsAny(lower, "911", "called emergency")

	return fields
}

func extractLocation(transcript string) string {
	for _, p := range locationPatterns {
		if m := p.FindString(transcript); m != "" {
			return m
		}
	}
	for _, p := range locationPhrases {
		if m := p.FindStringSubmatch(transcript); len(m) > 1 {
			loc := strings.TrimSpace(m[1])
			if len(loc) > 3 && len(loc) < 100 {
				return loc
			}
		}
	}
	return ""
}

func extractETA(transcript string) string {
	for _, p := range etaPatterns {
		if m := p.FindString(transcript); m != "" {
			return m
		}
	}
	return ""
}

func extractDelayReason(lower string) string {
	switch {
	case containsAny(lower, "traffic", "congestion", "jam"):
		return "Heavy Traffic"
	case containsAny(lower, "weather", "rain", "snow", "fog", "storm"):
		return "Weather"
	case containsAny(lower, "mechanical", "breakdown", "engine", "tire"):
		return "Mechanical Issue"
	case containsAny(lower, "loading", "waiting", "appointment"):
		return "Loading Delay"
	}
	return "None"
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
