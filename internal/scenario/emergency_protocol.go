package scenario

func emergencyProtocolDefinition() *Definition {
	return &Definition{
		Type:        EmergencyProtocol,
		Name:        "Emergency Protocol Agent",
		Description: "Detects emergencies during routine calls and immediately escalates to human dispatcher",
		SystemPrompt: `You are an emergency-aware logistics dispatcher. Your PRIMARY MISSION is to detect emergency situations during routine calls and immediately escalate to human dispatchers.

IMMEDIATE EMERGENCY RESPONSE PROTOCOL:
1. ACKNOWLEDGE: "I can hear this is urgent."
2. SAFETY FIRST: "Is everyone safe right now?"
3. LOCATION: "What's your exact location?"
4. EMERGENCY TYPE: "Can you tell me what happened?"
5. ESCALATE: "I'm connecting you to our emergency dispatcher immediately."

NON-EMERGENCY ROUTINE:
If no emergency is detected, conduct a normal logistics check-in: status,
location, ETA, routine delays.

CRITICAL: ANY doubt about emergency = ESCALATE IMMEDIATELY.
Better to escalate unnecessarily than miss a real emergency.
The driver's safety is the absolute top priority.`,
		BeginMessage: "Hi, this is dispatch calling to check in. How are things going?",
		States: []State{
			{
				Name: "initial_assessment",
				Prompt: "Conduct an initial assessment with emergency detection as the top " +
					"priority. Ask open questions that allow emergency disclosure. Any emergency " +
					"indicator means immediate escalation; otherwise continue routine logistics.",
				Edges: []Edge{
					{Destination: "emergency_response", Description: "Immediate transition if any emergency indicators detected"},
					{Destination: "routine_logistics", Description: "Transition if no emergency detected and routine logistics needed"},
				},
			},
			{
				Name: "emergency_response",
				Prompt: "Emergency detected. Stay calm, confirm everyone is safe, get the exact " +
					"location and the nature of the emergency, and reassure the driver that help " +
					"is coming.",
				Edges: []Edge{
					{Destination: "emergency_escalation", Description: "Immediate transition to escalate to human dispatcher"},
				},
			},
			{
				Name: "emergency_escalation",
				Prompt: "Escalation in progress. Confirm the human dispatcher is connected, hand " +
					"over a brief summary, and end automated dialogue with the " +
					"end_call_emergency tool.",
			},
			{
				Name: "routine_logistics",
				Prompt: "No emergency detected. Conduct a routine logistics check-in while " +
					"continuing to monitor for emergency keywords throughout the call.",
				Edges: []Edge{
					{Destination: "emergency_response", Description: "Immediate transition if emergency detected at any point"},
					{Destination: "call_completion", Description: "Transition when routine logistics complete"},
				},
			},
			{
				Name: "call_completion",
				Prompt: "Completing the routine call: status confirmed, no emergencies detected. " +
					"End professionally with the end_call tool.",
			},
		},
		Tools: []Tool{
			{
				Type:        "end_call",
				Name:        "end_call_emergency",
				Description: "End call to allow immediate manual emergency escalation to human dispatcher",
			},
			{
				Type:        "end_call",
				Name:        "end_call",
				Description: "End call only when confirmed no emergency and routine logistics complete",
			},
		},
		Schema: map[string]Field{
			"call_outcome": {
				Type:        "string",
				Enum:        []string{"Emergency Escalation", "Routine Logistics", "False Alarm"},
				Description: "The primary outcome of the call",
			},
			"emergency_type": {
				Type:        "string",
				Enum:        []string{"Accident", "Breakdown", "Medical", "Weather", "Security", "Other", "None"},
				Description: "Type of emergency detected",
			},
			"safety_status": {
				Type:        "string",
				Description: "Safety status reported (e.g., 'Driver confirmed everyone is safe')",
			},
			"injury_status": {
				Type:        "string",
				Description: "Injury status if applicable (e.g., 'No injuries reported')",
			},
			"emergency_location": {
				Type:        "string",
				Description: "Exact location of emergency (e.g., 'I-15 North, Mile Marker 123')",
			},
			"load_secure": {
				Type:        "boolean",
				Description: "Whether the load is secure and undamaged",
			},
			"escalation_status": {
				Type:        "string",
				Enum:        []string{"Connected to Human Dispatcher", "911 Called", "Emergency Services Notified", "No Escalation Needed"},
				Description: "Status of emergency escalation",
			},
			"emergency_services_called": {
				Type:        "boolean",
				Description: "Whether 911 or emergency services have been contacted",
			},
		},
		EmergencyState: "emergency_response",
		EmergencyAck:   "I can hear this is urgent. Is everyone safe right now? What's your exact location?",
	}
}
