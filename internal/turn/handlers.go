package turn

import (
	"strings"

	"github.com/fleetvoice/dispatchd/internal/scenario"
)

// handlerResult is what a state handler produced for one utterance: schema
// fields it recognized, the state to move to (empty means stay), and the
// scripted follow-up to speak.
type handlerResult struct {
	fields    map[string]any
	nextState string
	response  string
}

// handleState runs the lexical rules for the current state. Handlers are pure
// functions of (state, utterance, prior fields); the second return is false
// when no rule matched and the dynamic fallback should answer instead.
func handleState(def *scenario.Definition, state, utterance string, prior map[string]any) (handlerResult, bool) {
	lower := strings.ToLower(utterance)

	switch def.Type {
	case scenario.DriverCheckin:
		return handleCheckinState(state, utterance, lower, prior)
	case scenario.EmergencyProtocol:
		return handleEmergencyState(state, utterance, lower, prior)
	}
	return handlerResult{}, false
}

func handleCheckinState(state, utterance, lower string, prior map[string]any) (handlerResult, bool) {
	switch state {
	case "greeting_and_identification":
		// Any acknowledgement confirms the driver is on the line.
		return handlerResult{
			nextState: "status_assessment",
			response:  "Thanks! Can you give me an update on your current status with this load?",
		}, true

	case "status_assessment":
		switch {
		case containsWord(lower, "arrived", "here", "delivery", "unloading", "dock"):
			return handlerResult{
				fields: map[string]any{
					"driver_status": "Arrived",
					"call_outcome":  "Arrival Confirmation",
				},
				nextState: "arrival_and_unloading",
				response: "Perfect. Are you currently unloading or waiting to get into a door? " +
					"Also, please remember to get your POD signed when you're finished.",
			}, true
		case containsWord(lower, "driving", "road", "miles", "highway"):
			return handlerResult{
				fields: map[string]any{
					"driver_status": "Driving",
					"call_outcome":  "In-Transit Update",
				},
				nextState: "location_and_eta",
				response:  "Got it. What's your current location and estimated arrival time?",
			}, true
		case containsWord(lower, "delayed", "late", "behind", "traffic", "problem"):
			return handlerResult{
				fields:    map[string]any{"driver_status": "Delayed"},
				nextState: "location_and_eta",
				response:  "I understand you're running behind. Where are you now, and what's your updated ETA?",
			}, true
		}
		return handlerResult{}, false

	case "location_and_eta":
		fields := map[string]any{}
		if containsWord(lower, "highway", "i-", "mile", "exit", "route") {
			fields["current_location"] = utterance
		}
		hasETA := containsWord(lower, "am", "pm", "hour", "minute", "tomorrow", "tonight")
		if hasETA {
			fields["eta"] = utterance
		}

		switch {
		case containsWord(lower, "delayed", "late", "behind", "traffic", "weather", "problem"):
			return handlerResult{
				fields:    fields,
				nextState: "delay_management",
				response:  "I understand you're experiencing delays. Can you tell me what's causing the delay and your updated ETA?",
			}, true
		case hasETA:
			return handlerResult{
				fields:    fields,
				nextState: "arrival_and_unloading",
				response:  "Thanks, I've got your ETA. Is there anything I should pass along to the receiver before you arrive?",
			}, true
		case len(fields) > 0:
			return handlerResult{
				fields:   fields,
				response: "Got it. Do you have an estimated arrival time?",
			}, true
		}
		return handlerResult{}, false

	case "delay_management":
		fields := map[string]any{}
		switch {
		case strings.Contains(lower, "traffic"):
			fields["delay_reason"] = "Heavy Traffic"
		case containsWord(lower, "weather", "storm", "snow", "rain", "fog", "ice"):
			fields["delay_reason"] = "Weather"
		case containsWord(lower, "shipper", "receiver", "loading", "detention"):
			fields["delay_reason"] = "Loading Delay"
		}
		if containsWord(lower, "am", "pm", "hour", "minute", "tomorrow", "tonight") {
			fields["eta"] = utterance
		}
		if len(fields) == 0 {
			return handlerResult{}, false
		}
		return handlerResult{
			fields:    fields,
			nextState: "arrival_and_unloading",
			response:  "Thanks for letting me know. I'll update the receiver with your new ETA. Anything else about the delay I should note?",
		}, true

	case "arrival_and_unloading":
		fields := map[string]any{}
		switch {
		case strings.Contains(lower, "door"):
			fields["unloading_status"] = "In " + utterance
		case strings.Contains(lower, "waiting"):
			fields["unloading_status"] = "Waiting for dock assignment"
		}
		if containsWord(lower, "pod", "paperwork", "signed", "will do", "sure") {
			fields["pod_reminder_acknowledged"] = true
		}
		if len(fields) == 0 {
			return handlerResult{}, false
		}
		return handlerResult{
			fields:    fields,
			nextState: "call_completion",
			response:  "Perfect, thank you for the update. Drive safely and have a great day!",
		}, true

	case "call_completion":
		return handlerResult{
			response: "Thanks again for the update. Drive safely!",
		}, true

	case "emergency_protocol":
		return emergencyIntake(utterance, lower, handlerResult{
			response: "I'm connecting you to a human dispatcher immediately. Please stay on the line and keep yourself safe.",
		}), true
	}
	return handlerResult{}, false
}

func handleEmergencyState(state, utterance, lower string, prior map[string]any) (handlerResult, bool) {
	switch state {
	case "initial_assessment":
		if containsWord(lower, "load", "delivery", "pickup", "status", "question", "schedule") {
			return handlerResult{
				nextState: "routine_logistics",
				response:  "Okay, glad everything's safe. What do you need help with on this load?",
			}, true
		}
		return handlerResult{}, false

	case "emergency_response":
		result := emergencyIntake(utterance, lower, handlerResult{
			nextState: "emergency_escalation",
			response:  "I'm connecting you to a human dispatcher immediately. Please stay on the line and keep yourself safe.",
		})
		return result, true

	case "emergency_escalation":
		return handlerResult{
			response: "Help is on the way. Please stay on the line, a human dispatcher is picking up now.",
		}, true

	case "routine_logistics":
		fields := map[string]any{}
		switch {
		case strings.Contains(lower, "door"):
			fields["call_outcome"] = "Routine Logistics"
		case containsWord(lower, "eta", "arrive", "deliver"):
			fields["call_outcome"] = "Routine Logistics"
		}
		if len(fields) == 0 {
			return handlerResult{}, false
		}
		return handlerResult{
			fields:    fields,
			nextState: "call_completion",
			response:  "You're all set. Thanks for calling in, and drive safely!",
		}, true

	case "call_completion":
		return handlerResult{
			response: "Thanks for calling in. Drive safely!",
		}, true
	}
	return handlerResult{}, false
}

// emergencyIntake pulls safety, injury, and location details out of an
// utterance on the emergency path, then stamps the escalation outcome. The
// handoff fields are written every time so re-processing stays idempotent.
func emergencyIntake(utterance, lower string, base handlerResult) handlerResult {
	fields := map[string]any{
		"call_outcome":      "Emergency Escalation",
		"escalation_status": "Connected to Human Dispatcher",
	}
	switch {
	case containsWord(lower, "hurt", "injured", "injury", "medical", "bleeding"):
		fields["injury_status"] = utterance
		fields["safety_status"] = "Injuries reported"
	case containsWord(lower, "safe", "okay", "fine"):
		fields["safety_status"] = "Driver confirmed everyone is safe"
	}
	if containsWord(lower, "highway", "i-", "mile", "exit", "road", "street") {
		fields["emergency_location"] = utterance
	}
	base.fields = fields
	return base
}

// containsWord reports whether the lowercased utterance contains any of the
// given substrings.
func containsWord(lower string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
