// Package turn is the live state machine: one inbound utterance in, one
// response out, fast enough for a voice session. Handlers are pure lexical
// rules; anything they cannot answer falls through to the generation
// capability under a hard timeout, and any failure degrades to a scripted
// fallback. A live call must always get an answer.
package turn

import (
	"context"
	"log/slog"
	"time"

	"github.com/fleetvoice/dispatchd/internal/anthropic"
	"github.com/fleetvoice/dispatchd/internal/convo"
	"github.com/fleetvoice/dispatchd/internal/scenario"
	"github.com/fleetvoice/dispatchd/internal/trigger"
)

// Scripted responses for degraded paths. Voice callers never see raw errors.
const (
	fallbackResponse = "I understand. Can you tell me more about your current situation?"
	apologyResponse  = "I'm sorry, I'm having trouble on my end. A dispatcher will follow up with you shortly. Drive safely."
)

// Reply is the synchronous answer to one turn event.
type Reply struct {
	Response string `json:"response"`
	TurnID   int    `json:"turn_id"`
	EndCall  bool   `json:"end_call"`
}

// Generator is the text-generation capability used for the dynamic fallback.
// *anthropic.Client satisfies it; tests substitute deterministic stubs.
type Generator interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, maxTokens int) (string, error)
}

// Processor drives one conversation turn end to end.
type Processor struct {
	store    *convo.Store
	registry *scenario.Registry
	llm      Generator
	timeout  time.Duration
	logger   *slog.Logger
}

func NewProcessor(store *convo.Store, registry *scenario.Registry, llm Generator, timeout time.Duration, logger *slog.Logger) *Processor {
	return &Processor{
		store:    store,
		registry: registry,
		llm:      llm,
		timeout:  timeout,
		logger:   logger,
	}
}

// Process handles one inbound utterance for a call and returns the response
// to speak. It never returns an error: an unanswered turn stalls a live call,
// so every failure path degrades to a scripted reply instead.
func (p *Processor) Process(ctx context.Context, callID, utterance string, turnID int) Reply {
	snap, ok := p.store.Get(callID)
	if !ok {
		p.logger.Error("no conversation context for call", "call_id", callID, "turn_id", turnID)
		return Reply{Response: fallbackResponse, TurnID: turnID}
	}

	// Redelivered turn events get the prior reply again; history, fields,
	// and state stay untouched.
	if prior, seen := p.store.SeenTurn(callID, turnID); seen {
		p.logger.Debug("duplicate turn delivery, re-emitting reply", "call_id", callID, "turn_id", turnID)
		return Reply{Response: prior, TurnID: turnID}
	}

	p.store.AddMessage(callID, convo.RoleUser, utterance)

	def, err := p.registry.Get(snap.ScenarioType)
	if err != nil {
		// Configuration fault mid-call: end this call politely, never crash.
		p.logger.Error("unknown scenario on live call", "call_id", callID, "scenario", snap.ScenarioType)
		return p.respond(callID, Reply{Response: apologyResponse, TurnID: turnID, EndCall: true})
	}

	// Emergency detection precedes and overrides state dispatch. The jump is
	// one-way: once a call is on the emergency path it never leaves it.
	if trigger.Detect(utterance) && !onEmergencyPath(snap, def) {
		p.store.MarkEmergency(callID)
		p.store.SetState(callID, def.EmergencyState)
		p.logger.Warn("emergency trigger fired",
			"call_id", callID,
			"state", snap.CurrentState,
			"keywords", trigger.Keywords(utterance),
		)
		return p.respond(callID, Reply{Response: def.EmergencyAck, TurnID: turnID})
	}

	state, ok := def.FindState(snap.CurrentState)
	if !ok {
		// State inconsistency: reset to the scenario's initial state and keep
		// the call alive rather than terminating abruptly.
		p.logger.Warn("unknown conversation state, resetting",
			"call_id", callID,
			"state", snap.CurrentState,
			"scenario", def.Type,
		)
		state, _ = def.FindState(def.InitialState())
		p.store.SetState(callID, state.Name)
	}

	result, handled := handleState(def, state.Name, utterance, snap.Fields)
	if !handled {
		return p.respond(callID, Reply{
			Response: p.generate(ctx, callID, def, state, snap),
			TurnID:   turnID,
			EndCall:  state.Terminal(),
		})
	}

	// Collected field keys stay within the scenario's extraction schema, even
	// when a handler knows more than the schema can hold.
	for k := range result.fields {
		if _, ok := def.Schema[k]; !ok {
			delete(result.fields, k)
		}
	}
	p.store.UpdateFields(callID, result.fields)

	next := state
	if result.nextState != "" && result.nextState != state.Name {
		next, ok = def.FindState(result.nextState)
		if !ok {
			next = state
		} else {
			p.store.SetState(callID, next.Name)
		}
	}

	return p.respond(callID, Reply{
		Response: result.response,
		TurnID:   turnID,
		EndCall:  next.Terminal(),
	})
}

// respond records the outbound utterance and the turn's reply before handing
// it back.
func (p *Processor) respond(callID string, reply Reply) Reply {
	p.store.AddMessage(callID, convo.RoleAssistant, reply.Response)
	p.store.RecordTurn(callID, reply.TurnID, reply.Response)
	return reply
}

// generate asks the generation capability for a dynamic reply when no lexical
// rule matched. The timeout is mandatory: a stalled generation stalls the
// live call, so on any failure the scripted fallback goes out instead.
func (p *Processor) generate(ctx context.Context, callID string, def *scenario.Definition, state scenario.State, snap convo.Snapshot) string {
	if p.llm == nil {
		return fallbackResponse
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	system := def.SystemPrompt +
		"\n\nCURRENT CONVERSATION STAGE: " + state.Name +
		"\nSTAGE INSTRUCTIONS: " + state.Prompt +
		"\n\nRespond with one or two short conversational sentences. Stay on task for this stage."

	messages := make([]anthropic.Message, 0, len(snap.History))
	for _, m := range snap.History {
		messages = append(messages, anthropic.Message{Role: m.Role, Content: m.Text})
	}

	response, err := p.llm.Complete(ctx, system, messages, 256)
	if err != nil {
		p.logger.Warn("generation fallback failed, using scripted response",
			"call_id", callID,
			"state", state.Name,
			"error", err,
		)
		return fallbackResponse
	}
	return response
}

// onEmergencyPath reports whether the call has already escalated, either by
// flag or by sitting in (or past) the scenario's emergency state.
func onEmergencyPath(snap convo.Snapshot, def *scenario.Definition) bool {
	if snap.EmergencyDetected {
		return true
	}
	if snap.CurrentState == def.EmergencyState {
		return true
	}
	// emergency_escalation is downstream of the emergency state and terminal.
	if state, ok := def.FindState(snap.CurrentState); ok && state.Terminal() {
		return true
	}
	return false
}
