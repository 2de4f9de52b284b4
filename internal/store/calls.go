package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fleetvoice/dispatchd/internal/convo"
	"github.com/fleetvoice/dispatchd/internal/extraction"
)

// SaveContextSnapshot persists the final state of a finished call. Upsert by
// call_id: a redelivered call-ended event overwrites with identical data
// rather than failing.
func (s *Store) SaveContextSnapshot(ctx context.Context, snap convo.Snapshot) error {
	history, err := json.Marshal(snap.History)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	fields, err := json.Marshal(snap.Fields)
	if err != nil {
		return fmt.Errorf("marshal collected fields: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO calls (call_id, agent_id, scenario_type, final_state, emergency_detected,
			collected_data, transcript, turn_count, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (call_id) DO UPDATE SET
			final_state = EXCLUDED.final_state,
			emergency_detected = EXCLUDED.emergency_detected,
			collected_data = EXCLUDED.collected_data,
			transcript = EXCLUDED.transcript,
			turn_count = EXCLUDED.turn_count,
			ended_at = now()`,
		snap.CallID, snap.AgentID, snap.ScenarioType, snap.CurrentState, snap.EmergencyDetected,
		fields, history, snap.TurnCount, snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save call snapshot: %w", err)
	}
	return nil
}

// SaveExtractionResult persists a reconciled post-call extraction.
func (s *Store) SaveExtractionResult(ctx context.Context, result *extraction.Result) error {
	fields, err := json.Marshal(result.Fields)
	if err != nil {
		return fmt.Errorf("marshal extraction fields: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO extraction_results (id, call_id, scenario_type, fields, confidence, method, extracted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		result.ID, result.CallID, result.ScenarioType, fields, result.Confidence, result.Method, result.ExtractedAt,
	)
	if err != nil {
		return fmt.Errorf("save extraction result: %w", err)
	}
	return nil
}
