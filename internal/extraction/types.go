package extraction

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fleetvoice/dispatchd/internal/convo"
	"github.com/fleetvoice/dispatchd/internal/scenario"
)

// Extraction method tags recorded on results.
const (
	MethodRuleBased         = "rule_based"
	MethodRuleBasedPrimary  = "rule_based_primary"
	MethodGenerativePrimary = "generative_primary"
)

// Result is the structured outcome of post-call extraction: a
// schema-constrained field map with a confidence score and the method that
// produced it.
type Result struct {
	ID           uuid.UUID      `json:"id"`
	CallID       string         `json:"call_id"`
	ScenarioType scenario.Type  `json:"scenario_type"`
	Fields       map[string]any `json:"extracted_data"`
	Confidence   float64        `json:"confidence_score"`
	Method       string         `json:"extraction_method"`
	ExtractedAt  time.Time      `json:"extracted_at"`
}

// Extractor derives structured fields from a full call transcript. The
// pipeline composes two implementations; a third can be added without
// touching call sites.
type Extractor interface {
	Extract(ctx context.Context, transcript string, scenarioType scenario.Type) (*Result, error)
}

// FormatHistory renders a dialogue history as transcript text, one
// "role: text" line per utterance in turn order.
func FormatHistory(history []convo.Message) string {
	var b strings.Builder
	for _, m := range history {
		role := "agent"
		if m.Role == convo.RoleUser {
			role = "driver"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	return b.String()
}
