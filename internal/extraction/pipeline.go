package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fleetvoice/dispatchd/internal/scenario"
)

// ruleBasedCeiling caps combined confidence whenever the rule-based result is
// primary. The asymmetry is deliberate: generative extraction is more
// accurate but can fail unpredictably, while the rules always answer.
const (
	generativeTrustThreshold = 0.8
	ruleBasedCeiling         = 0.8
)

// Pipeline runs the rule-based and generative extractors over a completed
// call transcript and reconciles their results. Re-running on an unchanged
// transcript yields field-identical output, so retries after transient
// failures are safe.
type Pipeline struct {
	rules      Extractor
	generative Extractor
	logger     *slog.Logger
}

func NewPipeline(rules, generative Extractor, logger *slog.Logger) *Pipeline {
	return &Pipeline{rules: rules, generative: generative, logger: logger}
}

// Extract produces the reconciled extraction result for a call. The
// rule-based extractor is the floor: if it fails the pipeline fails, but a
// generative failure only degrades the result.
func (p *Pipeline) Extract(ctx context.Context, callID, transcript string, scenarioType scenario.Type) (*Result, error) {
	ruleResult, err := p.rules.Extract(ctx, transcript, scenarioType)
	if err != nil {
		return nil, fmt.Errorf("rule-based extraction: %w", err)
	}

	genResult, err := p.generative.Extract(ctx, transcript, scenarioType)
	if err != nil {
		p.logger.Warn("generative extraction unavailable, using rule-based result",
			"call_id", callID,
			"scenario", scenarioType,
			"error", err,
		)
		genResult = nil
	}

	combined := reconcile(genResult, ruleResult)
	combined.ID = uuid.New()
	combined.CallID = callID
	combined.ExtractedAt = time.Now().UTC()

	p.logger.Info("extraction complete",
		"call_id", callID,
		"scenario", scenarioType,
		"method", combined.Method,
		"confidence", combined.Confidence,
		"completeness", Completeness(combined.Fields, len(strings.Fields(transcript))),
	)
	return combined, nil
}

// reconcile merges the two extractor outputs. When the generative result is
// trustworthy (confidence above the threshold) it is primary and its null or
// missing fields are backfilled from the rules; otherwise the rules are
// primary, backfilled from whatever the generative pass produced, and the
// combined confidence is capped.
func reconcile(gen, rules *Result) *Result {
	if gen != nil && gen.Confidence > generativeTrustThreshold {
		return &Result{
			ScenarioType: gen.ScenarioType,
			Fields:       backfill(gen.Fields, rules.Fields),
			Confidence:   gen.Confidence,
			Method:       MethodGenerativePrimary,
		}
	}

	combined := &Result{
		ScenarioType: rules.ScenarioType,
		Fields:       rules.Fields,
		Confidence:   capAt(rules.Confidence, ruleBasedCeiling),
		Method:       MethodRuleBased,
	}
	if gen != nil {
		combined.Fields = backfill(rules.Fields, gen.Fields)
		combined.Method = MethodRuleBasedPrimary
	}
	return combined
}

// backfill copies primary and fills its null or missing keys from secondary.
func backfill(primary, secondary map[string]any) map[string]any {
	out := make(map[string]any, len(primary))
	for k, v := range primary {
		out[k] = v
	}
	for k, v := range secondary {
		if v == nil {
			continue
		}
		if cur, ok := out[k]; !ok || cur == nil || cur == "" {
			out[k] = v
		}
	}
	return out
}
