package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fleetvoice/dispatchd/internal/scenario"
)

// Agent is a provisioning record: which scenario an agent runs and its voice
// overrides.
type Agent struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	ScenarioType scenario.Type        `json:"scenario_type"`
	Config       scenario.AgentConfig `json:"config"`
}

// DefaultAgent is the fallback used when an agent record is missing: a plain
// driver check-in with scenario defaults. A missing record must not take down
// a live call.
func DefaultAgent(agentID string) Agent {
	return Agent{
		ID:           agentID,
		Name:         "Driver Check-in Agent",
		ScenarioType: scenario.DriverCheckin,
		Config:       scenario.AgentConfig{ScenarioType: scenario.DriverCheckin},
	}
}

// GetAgent loads an agent record, falling back to DefaultAgent when the id is
// unknown.
func (s *Store) GetAgent(ctx context.Context, agentID string) (Agent, error) {
	var (
		agent     Agent
		rawConfig []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, scenario_type, config
		FROM agents WHERE id = $1`,
		agentID,
	).Scan(&agent.ID, &agent.Name, &agent.ScenarioType, &rawConfig)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultAgent(agentID), nil
	}
	if err != nil {
		return Agent{}, fmt.Errorf("get agent %s: %w", agentID, err)
	}

	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &agent.Config); err != nil {
			return Agent{}, fmt.Errorf("parse agent config %s: %w", agentID, err)
		}
	}
	if !agent.ScenarioType.Valid() {
		agent.ScenarioType = scenario.DriverCheckin
	}
	return agent, nil
}

// UpsertAgent writes an agent provisioning record.
func (s *Store) UpsertAgent(ctx context.Context, agent Agent) error {
	cfg, err := json.Marshal(agent.Config)
	if err != nil {
		return fmt.Errorf("marshal agent config: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO agents (id, name, scenario_type, config)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			scenario_type = EXCLUDED.scenario_type,
			config = EXCLUDED.config`,
		agent.ID, agent.Name, agent.ScenarioType, cfg,
	)
	if err != nil {
		return fmt.Errorf("upsert agent %s: %w", agent.ID, err)
	}
	return nil
}
