package extraction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fleetvoice/dispatchd/internal/anthropic"
	"github.com/fleetvoice/dispatchd/internal/scenario"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubCompleter returns a canned response or error and records the prompt.
type stubCompleter struct {
	response string
	err      error
	prompt   string
}

func (s *stubCompleter) Complete(_ context.Context, _ string, messages []anthropic.Message, _ int) (string, error) {
	if len(messages) > 0 {
		s.prompt = messages[0].Content
	}
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func testRegistry(t *testing.T) *scenario.Registry {
	t.Helper()
	r, err := scenario.NewRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return r
}

func TestGenerative_Success(t *testing.T) {
	stub := &stubCompleter{response: `{
		"call_outcome": "Arrival Confirmation",
		"driver_status": "Arrived",
		"current_location": "I-10 near Indio, CA",
		"eta": null,
		"not_in_schema": "dropped"
	}`}
	gen := NewGenerative(stub, testRegistry(t), time.Second, discardLogger())

	result, err := gen.Extract(context.Background(), "driver: arrived", scenario.DriverCheckin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", result.Confidence)
	}
	if result.Fields["driver_status"] != "Arrived" {
		t.Errorf("expected Arrived, got %v", result.Fields["driver_status"])
	}
	if _, ok := result.Fields["not_in_schema"]; ok {
		t.Error("fields outside the schema must be dropped")
	}
	if v, ok := result.Fields["eta"]; !ok || v != nil {
		t.Errorf("null schema field should survive as nil, got %v (present=%v)", v, ok)
	}
	if !strings.Contains(stub.prompt, "driver_status") {
		t.Error("prompt should describe the extraction schema")
	}
}

func TestGenerative_CodeFencedJSON(t *testing.T) {
	stub := &stubCompleter{response: "```json\n{\"call_outcome\": \"In-Transit Update\"}\n```"}
	gen := NewGenerative(stub, testRegistry(t), time.Second, discardLogger())

	result, err := gen.Extract(context.Background(), "driver: rolling", scenario.DriverCheckin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Fields["call_outcome"] != "In-Transit Update" {
		t.Errorf("expected fenced JSON to parse, got %v", result.Fields)
	}
}

func TestGenerative_MalformedOutput(t *testing.T) {
	stub := &stubCompleter{response: "I couldn't find any structured data, sorry!"}
	gen := NewGenerative(stub, testRegistry(t), time.Second, discardLogger())

	if _, err := gen.Extract(context.Background(), "driver: hi", scenario.DriverCheckin); err == nil {
		t.Fatal("expected error for malformed output")
	}
}

func TestGenerative_CompleterFailure(t *testing.T) {
	stub := &stubCompleter{err: errors.New("deadline exceeded")}
	gen := NewGenerative(stub, testRegistry(t), time.Second, discardLogger())

	if _, err := gen.Extract(context.Background(), "driver: hi", scenario.DriverCheckin); err == nil {
		t.Fatal("expected error when the completer fails")
	}
}

func TestGenerative_UnknownScenario(t *testing.T) {
	gen := NewGenerative(&stubCompleter{}, testRegistry(t), time.Second, discardLogger())

	_, err := gen.Extract(context.Background(), "hi", scenario.Type("mystery"))
	if !errors.Is(err, scenario.ErrUnknownScenario) {
		t.Fatalf("expected ErrUnknownScenario, got %v", err)
	}
}
