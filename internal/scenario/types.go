package scenario

// Type identifies a call scenario. The set is closed: event payloads and
// agent records are validated against it at the boundary.
type Type string

const (
	DriverCheckin     Type = "driver_checkin"
	EmergencyProtocol Type = "emergency_protocol"
)

// Valid reports whether t is a known scenario type.
func (t Type) Valid() bool {
	switch t {
	case DriverCheckin, EmergencyProtocol:
		return true
	}
	return false
}

// Definition is the full static configuration for one scenario: prompts,
// state graph, tools, and the post-call extraction schema. Definitions are
// built once at startup and never mutated.
type Definition struct {
	Type          Type
	Name          string
	Description   string
	SystemPrompt  string
	BeginMessage  string
	States        []State
	Tools         []Tool
	Schema        map[string]Field
	// EmergencyState is the state the turn processor jumps to when the
	// trigger detector fires, regardless of the current state.
	EmergencyState string
	// EmergencyAck is the fixed acknowledgement spoken on that jump.
	EmergencyAck string
}

// State is one node in a scenario's conversation graph. The first state in
// Definition.States is the initial state; a state with no edges is terminal.
type State struct {
	Name   string
	Prompt string
	Edges  []Edge
}

// Terminal reports whether the state has no outgoing transitions.
func (s State) Terminal() bool {
	return len(s.Edges) == 0
}

// Edge is a directed transition to another state in the same scenario.
type Edge struct {
	Destination string
	Description string
}

// Tool is an end-conversation tool descriptor exposed to the voice engine.
// Emergency-capable scenarios carry a distinct emergency end tool so callers
// can tell outcomes apart without parsing transcript text.
type Tool struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Field describes one entry of a scenario's extraction schema.
type Field struct {
	Type        string   `json:"type"`
	Enum        []string `json:"enum,omitempty"`
	Description string   `json:"description"`
}

// Summary is the catalog entry returned by Registry.List.
type Summary struct {
	Type        Type   `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// InitialState returns the name of the scenario's starting state.
func (d *Definition) InitialState() string {
	if len(d.States) == 0 {
		return ""
	}
	return d.States[0].Name
}

// FindState looks up a state by name.
func (d *Definition) FindState(name string) (State, bool) {
	for _, s := range d.States {
		if s.Name == name {
			return s, true
		}
	}
	return State{}, false
}

// SchemaKeys returns the field names of the extraction schema.
func (d *Definition) SchemaKeys() []string {
	keys := make([]string, 0, len(d.Schema))
	for k := range d.Schema {
		keys = append(keys, k)
	}
	return keys
}
