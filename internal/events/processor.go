package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fleetvoice/dispatchd/internal/convo"
	"github.com/fleetvoice/dispatchd/internal/extraction"
	"github.com/fleetvoice/dispatchd/internal/notify"
	"github.com/fleetvoice/dispatchd/internal/scenario"
	"github.com/fleetvoice/dispatchd/internal/store"
	"github.com/fleetvoice/dispatchd/internal/trigger"
	"github.com/fleetvoice/dispatchd/internal/turn"
)

// CallStartedEvent announces a new voice session.
type CallStartedEvent struct {
	CallID  string `json:"call_id"`
	AgentID string `json:"agent_id"`
}

// CallTurnEvent carries one driver utterance. The gateway waits on the reply
// subject for the turn.Reply.
type CallTurnEvent struct {
	CallID    string `json:"call_id"`
	Utterance string `json:"utterance"`
	TurnID    int    `json:"turn_id"`
}

// CallEndedEvent closes a session. Transcript is the gateway's own full
// transcript, used when the live context is gone.
type CallEndedEvent struct {
	CallID     string `json:"call_id"`
	AgentID    string `json:"agent_id,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// EscalationEvent notifies human dispatch that a call left automated flow.
type EscalationEvent struct {
	CallID    string   `json:"call_id"`
	AgentID   string   `json:"agent_id"`
	State     string   `json:"state"`
	Keywords  []string `json:"keywords,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// Publisher is the outbound event capability; *Client satisfies it.
type Publisher interface {
	Publish(subject string, data any) error
}

// AgentDirectory resolves agent provisioning records; *store.Store satisfies
// it.
type AgentDirectory interface {
	GetAgent(ctx context.Context, agentID string) (store.Agent, error)
}

// Persister writes finished calls and extraction results; *store.Store
// satisfies it.
type Persister interface {
	SaveContextSnapshot(ctx context.Context, snap convo.Snapshot) error
	SaveExtractionResult(ctx context.Context, result *extraction.Result) error
}

// Processor wires the call lifecycle events to the conversation core.
type Processor struct {
	convos   *convo.Store
	turns    *turn.Processor
	pipeline *extraction.Pipeline
	registry *scenario.Registry
	agents   AgentDirectory
	db       Persister
	pub      Publisher
	slack    *notify.Poster
	logger   *slog.Logger
}

func New(convos *convo.Store, turns *turn.Processor, pipeline *extraction.Pipeline,
	registry *scenario.Registry, agents AgentDirectory, db Persister, pub Publisher,
	slack *notify.Poster, logger *slog.Logger) *Processor {
	return &Processor{
		convos:   convos,
		turns:    turns,
		pipeline: pipeline,
		registry: registry,
		agents:   agents,
		db:       db,
		pub:      pub,
		slack:    slack,
		logger:   logger,
	}
}

// HandleCallStarted is the NATS handler for voice.call.started.
func (p *Processor) HandleCallStarted(subject string, data []byte) {
	ctx := context.Background()

	var evt CallStartedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse call-started event", "error", err)
		return
	}
	if evt.CallID == "" {
		p.logger.Warn("call-started event without call_id dropped")
		return
	}

	agent, scenarioType := p.resolveAgent(ctx, evt.AgentID)
	def, err := p.registry.Get(scenarioType)
	if err != nil {
		p.logger.Error("agent bound to unknown scenario", "agent_id", agent.ID, "scenario", scenarioType)
		return
	}

	p.convos.Initialize(evt.CallID, agent.ID, def.InitialState(), scenarioType)
}

// HandleCallTurn is the request-reply handler for voice.call.turn. The return
// value goes back on the reply subject.
func (p *Processor) HandleCallTurn(subject string, data []byte) any {
	ctx := context.Background()

	var evt CallTurnEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse turn event", "error", err)
		return turn.Reply{Response: "I'm sorry, could you repeat that?"}
	}

	before, hadContext := p.convos.Get(evt.CallID)
	reply := p.turns.Process(ctx, evt.CallID, evt.Utterance, evt.TurnID)

	// First transition onto the emergency path notifies human dispatch.
	if after, ok := p.convos.Get(evt.CallID); ok && after.EmergencyDetected {
		if !hadContext || !before.EmergencyDetected {
			p.publishEscalation(after, evt.Utterance)
		}
	}

	return reply
}

// HandleCallEnded is the NATS handler for voice.call.ended: run the
// extraction pipeline over the transcript, persist everything, evict the live
// context. A call-ended with no prior call-started still extracts, using the
// agent's defaults and the gateway transcript.
func (p *Processor) HandleCallEnded(subject string, data []byte) {
	ctx := context.Background()

	var evt CallEndedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse call-ended event", "error", err)
		return
	}
	if evt.CallID == "" {
		p.logger.Warn("call-ended event without call_id dropped")
		return
	}

	transcript := evt.Transcript
	scenarioType := scenario.DriverCheckin

	// End wins over any in-flight turn: the completed flag is set before the
	// snapshot is taken, so racing mutations are dropped.
	snap, live := p.convos.Get(evt.CallID)
	if live {
		scenarioType = snap.ScenarioType
		if formatted := extraction.FormatHistory(snap.History); formatted != "" {
			transcript = formatted
		}
	} else {
		_, scenarioType = p.resolveAgent(ctx, evt.AgentID)
		p.logger.Warn("call ended with no live context, extracting from gateway transcript",
			"call_id", evt.CallID,
			"scenario", scenarioType,
		)
	}

	if transcript != "" {
		result, err := p.pipeline.Extract(ctx, evt.CallID, transcript, scenarioType)
		if err != nil {
			p.logger.Error("post-call extraction failed", "call_id", evt.CallID, "error", err)
		} else {
			if err := p.db.SaveExtractionResult(ctx, result); err != nil {
				p.logger.Error("failed to persist extraction result", "call_id", evt.CallID, "error", err)
			}
			if err := p.pub.Publish(SubjectExtraction, result); err != nil {
				p.logger.Warn("failed to publish extraction result", "call_id", evt.CallID, "error", err)
			}
			if p.slack != nil {
				if _, err := p.slack.PostExtractionSummary(ctx, result); err != nil {
					p.logger.Warn("slack extraction summary failed", "call_id", evt.CallID, "error", err)
				}
			}
		}
	} else {
		p.logger.Warn("call ended with empty transcript, skipping extraction", "call_id", evt.CallID)
	}

	p.convos.End(evt.CallID, func(s convo.Snapshot) error {
		return p.db.SaveContextSnapshot(ctx, s)
	})
}

// resolveAgent loads the agent record, degrading to the built-in default when
// the directory is unavailable or the record is missing.
func (p *Processor) resolveAgent(ctx context.Context, agentID string) (store.Agent, scenario.Type) {
	if p.agents == nil {
		agent := store.DefaultAgent(agentID)
		return agent, agent.ScenarioType
	}
	agent, err := p.agents.GetAgent(ctx, agentID)
	if err != nil {
		p.logger.Warn("agent lookup failed, using defaults", "agent_id", agentID, "error", err)
		agent = store.DefaultAgent(agentID)
	}
	return agent, agent.ScenarioType
}

func (p *Processor) publishEscalation(snap convo.Snapshot, utterance string) {
	evt := EscalationEvent{
		CallID:    snap.CallID,
		AgentID:   snap.AgentID,
		State:     snap.CurrentState,
		Keywords:  trigger.Keywords(utterance),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := p.pub.Publish(SubjectEscalation, evt); err != nil {
		p.logger.Error("failed to publish escalation", "call_id", snap.CallID, "error", err)
	}
	if p.slack != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := p.slack.PostEscalation(ctx, snap.CallID, snap.AgentID, snap.CurrentState, evt.Keywords); err != nil {
			p.logger.Warn("slack escalation alert failed", "call_id", snap.CallID, "error", err)
		}
	}
}
