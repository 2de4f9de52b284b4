package convo

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fleetvoice/dispatchd/internal/scenario"
)

// Store is the keyed table of live call contexts. The table mutex only guards
// the map; each entry carries its own mutex so mutations to the same call are
// serialized while different calls proceed fully in parallel.
type Store struct {
	mu     sync.Mutex
	calls  map[string]*entry
	logger *slog.Logger
}

type entry struct {
	mu  sync.Mutex
	ctx *context
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		calls:  make(map[string]*entry),
		logger: logger,
	}
}

// Initialize creates the live context for a call. The upstream event source
// delivers at-least-once, so re-initializing an existing callID is a silent
// no-op rather than an error.
func (s *Store) Initialize(callID, agentID, initialState string, scenarioType scenario.Type) Snapshot {
	s.mu.Lock()
	e, exists := s.calls[callID]
	if !exists {
		now := time.Now().UTC()
		e = &entry{ctx: &context{
			callID:       callID,
			agentID:      agentID,
			scenarioType: scenarioType,
			currentState: initialState,
			fields:       make(map[string]any),
			lastTurnID:   -1,
			createdAt:    now,
			updatedAt:    now,
		}}
		s.calls[callID] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if exists {
		s.logger.Debug("duplicate call start ignored", "call_id", callID)
	} else {
		s.logger.Info("conversation initialized",
			"call_id", callID,
			"agent_id", agentID,
			"scenario", scenarioType,
		)
	}
	return e.ctx.snapshot()
}

// Get returns a snapshot of a live context, or false when the call is unknown
// or already ended.
func (s *Store) Get(callID string) (Snapshot, bool) {
	e, ok := s.lookup(callID)
	if !ok {
		return Snapshot{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx.snapshot(), true
}

// AddMessage appends an utterance to the dialogue history, assigning the next
// turn index. A redelivered duplicate — same role and text as the latest
// entry — is dropped so at-least-once delivery cannot double-append.
// Returns the assigned turn index, or -1 when nothing was appended.
func (s *Store) AddMessage(callID, role, text string) int {
	e, ok := s.lookup(callID)
	if !ok {
		return -1
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx.completed {
		return -1
	}

	if n := len(e.ctx.history); n > 0 {
		last := e.ctx.history[n-1]
		if last.Role == role && last.Text == text {
			s.logger.Debug("duplicate message delivery ignored", "call_id", callID, "turn", last.Turn)
			return -1
		}
	}

	turn := len(e.ctx.history)
	e.ctx.history = append(e.ctx.history, Message{
		Role:      role,
		Text:      text,
		Turn:      turn,
		Timestamp: time.Now().UTC(),
	})
	e.ctx.updatedAt = time.Now().UTC()
	return turn
}

// UpdateFields merges collected fields with per-field last-write-wins
// semantics. Callers restrict keys to the scenario's schema.
func (s *Store) UpdateFields(callID string, fields map[string]any) {
	if len(fields) == 0 {
		return
	}
	e, ok := s.lookup(callID)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx.completed {
		return
	}
	for k, v := range fields {
		e.ctx.fields[k] = v
	}
	e.ctx.updatedAt = time.Now().UTC()
}

// SetState moves the call to a new conversation state. No-op after End.
func (s *Store) SetState(callID, state string) {
	e, ok := s.lookup(callID)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx.completed {
		return
	}
	e.ctx.currentState = state
	e.ctx.updatedAt = time.Now().UTC()
	s.logger.Info("conversation state updated", "call_id", callID, "state", state)
}

// SeenTurn reports whether turnID was the most recently processed turn event
// for the call and, if so, returns the reply that was given. The upstream
// source delivers at-least-once; a redelivered turn gets the same answer
// without re-appending history.
func (s *Store) SeenTurn(callID string, turnID int) (string, bool) {
	e, ok := s.lookup(callID)
	if !ok {
		return "", false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx.lastTurnID != turnID {
		return "", false
	}
	return e.ctx.lastReply, true
}

// RecordTurn remembers the reply given for a turn event, for redelivery
// suppression. No-op after End.
func (s *Store) RecordTurn(callID string, turnID int, reply string) {
	e, ok := s.lookup(callID)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx.completed {
		return
	}
	e.ctx.lastTurnID = turnID
	e.ctx.lastReply = reply
}

// MarkEmergency sets the emergency flag. The flag is one-way: once set it is
// never cleared for the call, and re-marking an escalated call is a no-op.
func (s *Store) MarkEmergency(callID string) {
	e, ok := s.lookup(callID)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx.completed || e.ctx.emergencyDetected {
		return
	}
	e.ctx.emergencyDetected = true
	e.ctx.updatedAt = time.Now().UTC()
	s.logger.Warn("emergency flagged", "call_id", callID)
}

// End finalizes a call: marks it completed, hands a snapshot to the persist
// collaborator, and evicts the live entry. Ending an unknown or already-ended
// call is a no-op. Mutations racing with End lose: once the completed flag is
// set, every later mutation on the entry is dropped.
func (s *Store) End(callID string, persist func(Snapshot) error) {
	e, ok := s.lookup(callID)
	if !ok {
		return
	}

	e.mu.Lock()
	if e.ctx.completed {
		e.mu.Unlock()
		return
	}
	e.ctx.completed = true
	e.ctx.updatedAt = time.Now().UTC()
	snap := e.ctx.snapshot()
	e.mu.Unlock()

	if persist != nil {
		if err := persist(snap); err != nil {
			s.logger.Error("failed to persist conversation snapshot", "call_id", callID, "error", err)
		}
	}

	s.mu.Lock()
	delete(s.calls, callID)
	s.mu.Unlock()

	s.logger.Info("conversation ended", "call_id", callID, "turns", snap.TurnCount)
}

// ActiveCalls returns the number of live contexts.
func (s *Store) ActiveCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *Store) lookup(callID string) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.calls[callID]
	return e, ok
}
