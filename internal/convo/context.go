// Package convo holds the live per-call conversation state. The store is the
// exclusive owner of a context for the call's lifetime: created on call
// start, mutated turn by turn, snapshotted and evicted on call end.
package convo

import (
	"time"

	"github.com/fleetvoice/dispatchd/internal/scenario"
)

// Role values for dialogue history entries.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one utterance in the dialogue history. Turn is strictly
// increasing and orders the history.
type Message struct {
	Role      string    `json:"role"`
	Text      string    `json:"content"`
	Turn      int       `json:"turn"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is an immutable copy of a call's context, safe to read outside the
// store's locks and to hand to the persistence collaborator.
type Snapshot struct {
	CallID            string         `json:"call_id"`
	AgentID           string         `json:"agent_id"`
	ScenarioType      scenario.Type  `json:"scenario_type"`
	CurrentState      string         `json:"state"`
	History           []Message      `json:"conversation_history"`
	Fields            map[string]any `json:"collected_data"`
	EmergencyDetected bool           `json:"emergency_detected"`
	Completed         bool           `json:"completed"`
	TurnCount         int            `json:"turn_count"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// context is the live, store-owned state of one call. lastTurnID and
// lastReply remember the most recent processed turn event so a redelivery
// can be answered again without touching history.
type context struct {
	callID            string
	agentID           string
	scenarioType      scenario.Type
	currentState      string
	history           []Message
	fields            map[string]any
	emergencyDetected bool
	completed         bool
	lastTurnID        int
	lastReply         string
	createdAt         time.Time
	updatedAt         time.Time
}

func (c *context) snapshot() Snapshot {
	history := make([]Message, len(c.history))
	copy(history, c.history)

	fields := make(map[string]any, len(c.fields))
	for k, v := range c.fields {
		fields[k] = v
	}

	return Snapshot{
		CallID:            c.callID,
		AgentID:           c.agentID,
		ScenarioType:      c.scenarioType,
		CurrentState:      c.currentState,
		History:           history,
		Fields:            fields,
		EmergencyDetected: c.emergencyDetected,
		Completed:         c.completed,
		TurnCount:         len(c.history),
		CreatedAt:         c.createdAt,
		UpdatedAt:         c.updatedAt,
	}
}
