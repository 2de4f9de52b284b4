package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fleetvoice/dispatchd/internal/anthropic"
	"github.com/fleetvoice/dispatchd/internal/scenario"
)

// generativeConfidence is assigned when the model returns parseable,
// schema-shaped output. Failures score 0.0 so the pipeline never trusts them.
const generativeConfidence = 0.9

const extractionSystemPrompt = `You are an expert data extraction system for logistics call transcripts.
Extract structured data and return valid JSON only, using exactly the field
names described in the user prompt. Use null for information that is not
explicitly present in the transcript. Do not infer.`

// Completer is the text-generation capability the generative extractor
// consumes. *anthropic.Client satisfies it; tests substitute deterministic
// stubs.
type Completer interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, maxTokens int) (string, error)
}

// Generative extracts fields by sending the transcript plus a schema
// description to the generation capability. It is more accurate than the
// rule-based extractor but can fail or time out, so callers must tolerate an
// error return.
type Generative struct {
	llm      Completer
	registry *scenario.Registry
	timeout  time.Duration
	logger   *slog.Logger
}

func NewGenerative(llm Completer, registry *scenario.Registry, timeout time.Duration, logger *slog.Logger) *Generative {
	return &Generative{llm: llm, registry: registry, timeout: timeout, logger: logger}
}

func (g *Generative) Extract(ctx context.Context, transcript string, scenarioType scenario.Type) (*Result, error) {
	prompt, err := g.registry.ExtractionPrompt(scenarioType, transcript)
	if err != nil {
		return nil, err
	}

	def, err := g.registry.Get(scenarioType)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.llm.Complete(ctx, extractionSystemPrompt, []anthropic.Message{
		{Role: "user", Content: prompt},
	}, 1024)
	if err != nil {
		return nil, fmt.Errorf("generative extraction: %w", err)
	}

	fields, err := parseExtractionJSON(raw)
	if err != nil {
		g.logger.Error("failed to parse extraction response", "error", err, "raw", raw)
		return nil, fmt.Errorf("parse extraction: %w", err)
	}

	// Drop anything outside the scenario's schema.
	for k := range fields {
		if _, ok := def.Schema[k]; !ok {
			delete(fields, k)
		}
	}

	return &Result{
		ID:           uuid.New(),
		ScenarioType: scenarioType,
		Fields:       fields,
		Confidence:   generativeConfidence,
		Method:       MethodGenerativePrimary,
		ExtractedAt:  time.Now().UTC(),
	}, nil
}

// parseExtractionJSON tolerates markdown code fences around the JSON body,
// which models emit despite instructions.
func parseExtractionJSON(raw string) (map[string]any, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var fields map[string]any
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
