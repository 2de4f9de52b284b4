//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fleetvoice/dispatchd/internal/convo"
	"github.com/fleetvoice/dispatchd/internal/extraction"
	"github.com/fleetvoice/dispatchd/internal/scenario"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestIntegration_SaveContextSnapshotUpsert(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	callID := "itest-" + uuid.New().String()[:8]

	snap := convo.Snapshot{
		CallID:       callID,
		AgentID:      "agent-itest",
		ScenarioType: scenario.DriverCheckin,
		CurrentState: "call_completion",
		History: []convo.Message{
			{Role: convo.RoleUser, Text: "arrived at the dock", Turn: 0, Timestamp: time.Now().UTC()},
		},
		Fields:    map[string]any{"driver_status": "Arrived"},
		Completed: true,
		TurnCount: 1,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.SaveContextSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveContextSnapshot failed: %v", err)
	}

	// Redelivered call-ended event: same call_id must upsert, not fail.
	snap.Fields["pod_reminder_acknowledged"] = true
	if err := s.SaveContextSnapshot(ctx, snap); err != nil {
		t.Fatalf("upsert on redelivery failed: %v", err)
	}
}

func TestIntegration_SaveExtractionResult(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	result := &extraction.Result{
		ID:           uuid.New(),
		CallID:       "itest-" + uuid.New().String()[:8],
		ScenarioType: scenario.DriverCheckin,
		Fields:       map[string]any{"driver_status": "Driving", "eta": "2 hours"},
		Confidence:   0.85,
		Method:       extraction.MethodGenerativePrimary,
		ExtractedAt:  time.Now().UTC(),
	}

	if err := s.SaveExtractionResult(ctx, result); err != nil {
		t.Fatalf("SaveExtractionResult failed: %v", err)
	}
}

func TestIntegration_GetAgentDefault(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	agent, err := s.GetAgent(ctx, "no-such-agent-"+uuid.New().String()[:8])
	if err != nil {
		t.Fatalf("GetAgent failed: %v", err)
	}
	if agent.ScenarioType != scenario.DriverCheckin {
		t.Errorf("expected default scenario, got %s", agent.ScenarioType)
	}
}

func TestIntegration_UpsertAndGetAgent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id := "itest-agent-" + uuid.New().String()[:8]
	agent := Agent{
		ID:           id,
		Name:         "Test Dispatch Agent",
		ScenarioType: scenario.EmergencyProtocol,
		Config: scenario.AgentConfig{
			ID:           id,
			Name:         "Test Dispatch Agent",
			ScenarioType: scenario.EmergencyProtocol,
			VoiceID:      "voice-1",
		},
	}

	if err := s.UpsertAgent(ctx, agent); err != nil {
		t.Fatalf("UpsertAgent failed: %v", err)
	}

	got, err := s.GetAgent(ctx, id)
	if err != nil {
		t.Fatalf("GetAgent failed: %v", err)
	}
	if got.ScenarioType != scenario.EmergencyProtocol {
		t.Errorf("expected emergency_protocol, got %s", got.ScenarioType)
	}
	if got.Config.VoiceID != "voice-1" {
		t.Errorf("expected voice config round-trip, got %q", got.Config.VoiceID)
	}
}
