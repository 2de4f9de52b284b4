package scenario

func driverCheckinDefinition() *Definition {
	return &Definition{
		Type:        DriverCheckin,
		Name:        "Driver Check-in Agent",
		Description: "Handles end-to-end driver check-in conversations with dynamic flow based on driver status",
		SystemPrompt: `You are a professional logistics dispatcher conducting a driver check-in call. Your goal is to gather essential status information while maintaining a conversational, human-like tone.

CONVERSATION FLOW:
1. Greet the driver warmly and confirm their identity
2. Ask about their current status and location
3. Get estimated time of arrival (ETA) information
4. Address any delays or issues
5. Confirm unloading status if applicable
6. Remind about POD (Proof of Delivery) requirements
7. End the call professionally

CRITICAL EMERGENCY DETECTION:
If the driver mentions any accident, injury, breakdown, being stuck or stranded, police, fire, or any safety concern, IMMEDIATELY switch to emergency protocol.

CONVERSATION STYLE:
- Be conversational and friendly, not robotic
- Show empathy for delays or issues
- Keep the conversation moving but don't rush

Remember: Sound human, be efficient, prioritize safety.`,
		BeginMessage: "Hi there! This is dispatch calling for your check-in. How's everything going out there?",
		States: []State{
			{
				Name: "greeting_and_identification",
				Prompt: "Greet the driver and confirm their identity. Be warm and conversational. " +
					"Listen for any immediate emergency indicators.",
				Edges: []Edge{
					{Destination: "status_assessment", Description: "Transition when driver identity is confirmed and no emergency detected"},
					{Destination: "emergency_protocol", Description: "Immediate transition if any emergency indicators detected"},
				},
			},
			{
				Name: "status_assessment",
				Prompt: "Assess the driver's current status: location, whether they are driving, " +
					"stopped, or have arrived, and any problems or delays.",
				Edges: []Edge{
					{Destination: "location_and_eta", Description: "Transition when basic status is understood"},
					{Destination: "arrival_and_unloading", Description: "Transition when driver has arrived"},
					{Destination: "emergency_protocol", Description: "Immediate transition if emergency detected"},
				},
			},
			{
				Name: "location_and_eta",
				Prompt: "Gather the exact current location (highway, mile marker, city), the ETA " +
					"to destination, and any factors affecting arrival time.",
				Edges: []Edge{
					{Destination: "arrival_and_unloading", Description: "Transition when location/ETA info is gathered"},
					{Destination: "delay_management", Description: "Transition if significant delays mentioned"},
					{Destination: "emergency_protocol", Description: "Immediate transition if emergency detected"},
				},
			},
			{
				Name: "delay_management",
				Prompt: "Address delays: get the specific reason (traffic, weather, mechanical, " +
					"loading) and a realistic updated ETA. Be empathetic but gather the facts.",
				Edges: []Edge{
					{Destination: "arrival_and_unloading", Description: "Transition when delay information is documented"},
					{Destination: "emergency_protocol", Description: "Immediate transition if emergency detected"},
				},
			},
			{
				Name: "arrival_and_unloading",
				Prompt: "Check arrival status, dock assignment, and unloading timeline. " +
					"Always remind the driver to get the POD signed before leaving.",
				Edges: []Edge{
					{Destination: "call_completion", Description: "Transition when all information is gathered"},
					{Destination: "emergency_protocol", Description: "Immediate transition if emergency detected"},
				},
			},
			{
				Name: "call_completion",
				Prompt: "Wrap up professionally: confirm status, note the ETA, document issues, " +
					"give the POD reminder, and end warmly. Use the end_call tool.",
			},
			{
				Name: "emergency_protocol",
				Prompt: "EMERGENCY MODE. Acknowledge the emergency calmly, confirm everyone is " +
					"safe, get the exact location, and keep the driver on the line while the call " +
					"is escalated to a human dispatcher.",
			},
		},
		Tools: []Tool{
			{
				Type:        "end_call",
				Name:        "end_call",
				Description: "End the call when driver check-in is complete and all information is gathered",
			},
		},
		Schema: map[string]Field{
			"call_outcome": {
				Type:        "string",
				Enum:        []string{"In-Transit Update", "Arrival Confirmation", "Emergency Escalation"},
				Description: "The primary outcome of the call",
			},
			"driver_status": {
				Type:        "string",
				Enum:        []string{"Driving", "Delayed", "Arrived", "Unloading"},
				Description: "Current status of the driver",
			},
			"current_location": {
				Type:        "string",
				Description: "Driver's current location (e.g., 'I-10 near Indio, CA')",
			},
			"eta": {
				Type:        "string",
				Description: "Estimated time of arrival (e.g., 'Tomorrow, 8:00 AM')",
			},
			"delay_reason": {
				Type:        "string",
				Enum:        []string{"Heavy Traffic", "Weather", "Mechanical Issue", "Loading Delay", "Route Change", "None"},
				Description: "Reason for any delays",
			},
			"unloading_status": {
				Type:        "string",
				Description: "Status of unloading process (e.g., 'In Door 42', 'Waiting for Lumper', 'N/A')",
			},
			"pod_reminder_acknowledged": {
				Type:        "boolean",
				Description: "Whether driver acknowledged POD (Proof of Delivery) reminder",
			},
		},
		EmergencyState: "emergency_protocol",
		EmergencyAck:   "I understand this is urgent. Let me connect you with our emergency dispatcher immediately. First, is everyone safe? What's your exact location?",
	}
}
