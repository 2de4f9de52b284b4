package scenario

import "fmt"

// AgentConfig is the per-agent record handed over by the provisioning
// collaborator: scenario binding plus voice/behavior overrides.
type AgentConfig struct {
	ID                      string   `json:"id"`
	Name                    string   `json:"name"`
	ScenarioType            Type     `json:"scenario_type"`
	BeginMessage            string   `json:"begin_message,omitempty"`
	Model                   string   `json:"model,omitempty"`
	VoiceID                 string   `json:"voice_id"`
	VoiceModel              string   `json:"voice_model,omitempty"`
	VoiceTemperature        float64  `json:"voice_temperature,omitempty"`
	VoiceSpeed              float64  `json:"voice_speed,omitempty"`
	Responsiveness          float64  `json:"responsiveness,omitempty"`
	InterruptionSensitivity float64  `json:"interruption_sensitivity,omitempty"`
	EnableBackchannel       *bool    `json:"enable_backchannel,omitempty"`
	BackchannelFrequency    float64  `json:"backchannel_frequency,omitempty"`
	BackchannelWords        []string `json:"backchannel_words,omitempty"`
}

// EngineConfig is the merged scenario + agent configuration handed to the
// external voice/LLM vendor when an agent is provisioned.
type EngineConfig struct {
	SystemPrompt            string            `json:"general_prompt"`
	Model                   string            `json:"model"`
	BeginMessage            string            `json:"begin_message"`
	DynamicVariables        map[string]string `json:"default_dynamic_variables"`
	States                  []State           `json:"states"`
	StartingState           string            `json:"starting_state"`
	Tools                   []Tool            `json:"general_tools"`
	VoiceID                 string            `json:"voice_id"`
	VoiceModel              string            `json:"voice_model,omitempty"`
	VoiceTemperature        float64           `json:"voice_temperature"`
	VoiceSpeed              float64           `json:"voice_speed"`
	Responsiveness          float64           `json:"responsiveness"`
	InterruptionSensitivity float64           `json:"interruption_sensitivity"`
	EnableBackchannel       bool              `json:"enable_backchannel"`
	BackchannelFrequency    float64           `json:"backchannel_frequency"`
	BackchannelWords        []string          `json:"backchannel_words,omitempty"`
	Language                string            `json:"language"`
}

// BuildEngineConfig merges scenario defaults with agent overrides. The agent's
// custom begin message wins over the scenario default. Emergency scenarios
// force maximal responsiveness and interruption sensitivity and dampen
// backchannel; driver check-in floors backchannel for a natural flow.
func (r *Registry) BuildEngineConfig(agent AgentConfig) (*EngineConfig, error) {
	def, err := r.Get(agent.ScenarioType)
	if err != nil {
		return nil, err
	}

	cfg := &EngineConfig{
		SystemPrompt: def.SystemPrompt,
		Model:        orStr(agent.Model, "gpt-4o"),
		BeginMessage: orStr(agent.BeginMessage, def.BeginMessage),
		DynamicVariables: map[string]string{
			"driver_name": "Driver",
			"load_number": "N/A",
		},
		States:                  def.States,
		StartingState:           def.InitialState(),
		Tools:                   def.Tools,
		VoiceID:                 agent.VoiceID,
		VoiceModel:              agent.VoiceModel,
		VoiceTemperature:        orFloat(agent.VoiceTemperature, 1.0),
		VoiceSpeed:              orFloat(agent.VoiceSpeed, 1.0),
		Responsiveness:          orFloat(agent.Responsiveness, 1.0),
		InterruptionSensitivity: orFloat(agent.InterruptionSensitivity, 1.0),
		EnableBackchannel:       agent.EnableBackchannel == nil || *agent.EnableBackchannel,
		BackchannelFrequency:    orFloat(agent.BackchannelFrequency, 0.8),
		BackchannelWords:        agent.BackchannelWords,
		Language:                "en-US",
	}

	switch def.Type {
	case EmergencyProtocol:
		cfg.Responsiveness = 1.0
		cfg.InterruptionSensitivity = 1.0
		if cfg.BackchannelFrequency > 0.6 {
			cfg.BackchannelFrequency = 0.6
		}
	case DriverCheckin:
		if cfg.BackchannelFrequency < 0.8 {
			cfg.BackchannelFrequency = 0.8
		}
	}

	return cfg, nil
}

// Validate checks agent data against scenario-specific structural
// requirements and returns human-readable problems.
func (r *Registry) Validate(t Type, agent AgentConfig) []string {
	var errs []string

	if _, err := r.Get(t); err != nil {
		return []string{fmt.Sprintf("unknown scenario type: %s", t)}
	}

	if agent.Name == "" {
		errs = append(errs, "missing required field: name")
	}
	if agent.VoiceID == "" {
		errs = append(errs, "missing required field: voice_id")
	}
	if agent.ScenarioType == "" {
		errs = append(errs, "missing required field: scenario_type")
	}

	switch t {
	case EmergencyProtocol:
		if agent.Responsiveness != 0 && agent.Responsiveness < 1.0 {
			errs = append(errs, "emergency protocol agents should have responsiveness >= 1.0")
		}
	case DriverCheckin:
		if agent.BackchannelFrequency != 0 && agent.BackchannelFrequency < 0.5 {
			errs = append(errs, "driver check-in agents should have backchannel_frequency >= 0.5 for natural conversation")
		}
	}

	return errs
}

func orStr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func orFloat(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}
