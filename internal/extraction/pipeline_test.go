package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/fleetvoice/dispatchd/internal/scenario"
)

// stubExtractor returns a fixed result or error regardless of input.
type stubExtractor struct {
	result *Result
	err    error
}

func (s *stubExtractor) Extract(context.Context, string, scenario.Type) (*Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.result
	cp.Fields = make(map[string]any, len(s.result.Fields))
	for k, v := range s.result.Fields {
		cp.Fields[k] = v
	}
	return &cp, nil
}

func TestPipeline_GenerativePrimary(t *testing.T) {
	rules := &stubExtractor{result: &Result{
		ScenarioType: scenario.DriverCheckin,
		Fields: map[string]any{
			"driver_status":    "Driving",
			"current_location": "I-10",
			"eta":              "2 hours",
		},
		Confidence: 0.6,
		Method:     MethodRuleBased,
	}}
	gen := &stubExtractor{result: &Result{
		ScenarioType: scenario.DriverCheckin,
		Fields: map[string]any{
			"driver_status":    "Delayed",
			"current_location": nil,
			"delay_reason":     "Weather",
		},
		Confidence: 0.85,
		Method:     MethodGenerativePrimary,
	}}

	p := NewPipeline(rules, gen, discardLogger())
	result, err := p.Extract(context.Background(), "call-1", "transcript", scenario.DriverCheckin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Method != MethodGenerativePrimary {
		t.Errorf("expected generative_primary, got %s", result.Method)
	}
	if result.Confidence != 0.85 {
		t.Errorf("generative confidence should pass through, got %f", result.Confidence)
	}
	// Where both answered, the generative value wins.
	if result.Fields["driver_status"] != "Delayed" {
		t.Errorf("expected generative driver_status to win, got %v", result.Fields["driver_status"])
	}
	// Null generative fields are backfilled from the rules.
	if result.Fields["current_location"] != "I-10" {
		t.Errorf("expected null location backfilled from rules, got %v", result.Fields["current_location"])
	}
	// Fields only the rules produced are backfilled too.
	if result.Fields["eta"] != "2 hours" {
		t.Errorf("expected missing eta backfilled from rules, got %v", result.Fields["eta"])
	}
	if result.Fields["delay_reason"] != "Weather" {
		t.Errorf("expected generative-only field kept, got %v", result.Fields["delay_reason"])
	}
	if result.CallID != "call-1" {
		t.Errorf("expected call id stamped, got %q", result.CallID)
	}
}

func TestPipeline_RuleBasedPrimaryWhenGenerativeUntrusted(t *testing.T) {
	rules := &stubExtractor{result: &Result{
		ScenarioType: scenario.DriverCheckin,
		Fields:       map[string]any{"driver_status": "Arrived"},
		Confidence:   0.6,
		Method:       MethodRuleBased,
	}}
	gen := &stubExtractor{result: &Result{
		ScenarioType: scenario.DriverCheckin,
		Fields:       map[string]any{"driver_status": "Driving", "eta": "30 minutes"},
		Confidence:   0.5,
		Method:       MethodGenerativePrimary,
	}}

	p := NewPipeline(rules, gen, discardLogger())
	result, err := p.Extract(context.Background(), "call-2", "transcript", scenario.DriverCheckin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Method != MethodRuleBasedPrimary {
		t.Errorf("expected rule_based_primary, got %s", result.Method)
	}
	// Rule values win over the untrusted generative pass.
	if result.Fields["driver_status"] != "Arrived" {
		t.Errorf("expected rule driver_status to win, got %v", result.Fields["driver_status"])
	}
	// But generative fields still fill the gaps.
	if result.Fields["eta"] != "30 minutes" {
		t.Errorf("expected eta backfilled from generative, got %v", result.Fields["eta"])
	}
	if result.Confidence > 0.8 {
		t.Errorf("rule-primary confidence must be capped at 0.8, got %f", result.Confidence)
	}
}

func TestPipeline_ConfidenceCapWhenRulesPrimary(t *testing.T) {
	rules := &stubExtractor{result: &Result{
		ScenarioType: scenario.EmergencyProtocol,
		Fields:       map[string]any{"call_outcome": "Emergency Escalation"},
		Confidence:   0.95, // hypothetical high rule score must still be capped
		Method:       MethodRuleBased,
	}}
	gen := &stubExtractor{err: errors.New("model overloaded")}

	p := NewPipeline(rules, gen, discardLogger())
	result, err := p.Extract(context.Background(), "call-3", "transcript", scenario.EmergencyProtocol)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != 0.8 {
		t.Errorf("expected capped confidence 0.8, got %f", result.Confidence)
	}
}

func TestPipeline_GenerativeFailureDegrades(t *testing.T) {
	rules := &stubExtractor{result: &Result{
		ScenarioType: scenario.DriverCheckin,
		Fields:       map[string]any{"driver_status": "Driving"},
		Confidence:   0.6,
		Method:       MethodRuleBased,
	}}
	gen := &stubExtractor{err: errors.New("timeout")}

	p := NewPipeline(rules, gen, discardLogger())
	result, err := p.Extract(context.Background(), "call-4", "transcript", scenario.DriverCheckin)
	if err != nil {
		t.Fatalf("generative failure must not fail the pipeline: %v", err)
	}
	if result.Method != MethodRuleBased {
		t.Errorf("expected rule_based method without generative input, got %s", result.Method)
	}
	if result.Fields["driver_status"] != "Driving" {
		t.Errorf("expected rule fields, got %v", result.Fields)
	}
}

func TestPipeline_RuleFailureFails(t *testing.T) {
	rules := &stubExtractor{err: errors.New("unknown scenario")}
	gen := &stubExtractor{result: &Result{Fields: map[string]any{}, Confidence: 0.9}}

	p := NewPipeline(rules, gen, discardLogger())
	if _, err := p.Extract(context.Background(), "call-5", "transcript", scenario.DriverCheckin); err == nil {
		t.Fatal("expected pipeline failure when the rule-based extractor fails")
	}
}

func TestPipeline_Idempotent(t *testing.T) {
	rules := &stubExtractor{result: &Result{
		ScenarioType: scenario.DriverCheckin,
		Fields:       map[string]any{"driver_status": "Driving", "eta": "1 hour"},
		Confidence:   0.6,
	}}
	gen := &stubExtractor{result: &Result{
		ScenarioType: scenario.DriverCheckin,
		Fields:       map[string]any{"driver_status": "Driving", "current_location": "I-40"},
		Confidence:   0.9,
	}}

	p := NewPipeline(rules, gen, discardLogger())
	a, err := p.Extract(context.Background(), "call-6", "transcript", scenario.DriverCheckin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := p.Extract(context.Background(), "call-6", "transcript", scenario.DriverCheckin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Method != b.Method || a.Confidence != b.Confidence {
		t.Errorf("method/confidence differ across runs: %s/%f vs %s/%f",
			a.Method, a.Confidence, b.Method, b.Confidence)
	}
	if len(a.Fields) != len(b.Fields) {
		t.Fatalf("field counts differ: %d vs %d", len(a.Fields), len(b.Fields))
	}
	for k, v := range a.Fields {
		if b.Fields[k] != v {
			t.Errorf("field %s differs across runs: %v vs %v", k, v, b.Fields[k])
		}
	}
}
