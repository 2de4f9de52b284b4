package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/fleetvoice/dispatchd/internal/extraction"
	"github.com/fleetvoice/dispatchd/internal/scenario"
)

func newTestPoster(t *testing.T, handler http.HandlerFunc) *Poster {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewPoster("xoxb-test", "#dispatch-alerts", slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.SetTestTransport(srv.URL)
	return p
}

func TestPostEscalation(t *testing.T) {
	var got map[string]any
	p := newTestPoster(t, func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer xoxb-test" {
			t.Errorf("unexpected auth header %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "123.456"})
	})

	ts, err := p.PostEscalation(context.Background(), "call-1", "agent-1", "emergency_protocol", []string{"crash", "hurt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != "123.456" {
		t.Errorf("expected ts from slack, got %q", ts)
	}
	if got["channel"] != "#dispatch-alerts" {
		t.Errorf("expected channel, got %v", got["channel"])
	}
	text, _ := got["text"].(string)
	if !strings.Contains(text, "call-1") || !strings.Contains(text, "crash") {
		t.Errorf("alert text missing call or keywords: %q", text)
	}
}

func TestPostExtractionSummary(t *testing.T) {
	var text string
	p := newTestPoster(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		text, _ = payload["text"].(string)
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "1.2"})
	})

	result := &extraction.Result{
		ID:           uuid.New(),
		CallID:       "call-2",
		ScenarioType: scenario.DriverCheckin,
		Fields: map[string]any{
			"driver_status": "Arrived",
			"eta":           nil,
		},
		Confidence: 0.85,
		Method:     extraction.MethodGenerativePrimary,
	}

	if _, err := p.PostExtractionSummary(context.Background(), result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "driver_status") || !strings.Contains(text, "Arrived") {
		t.Errorf("summary missing extracted field: %q", text)
	}
	if strings.Contains(text, "eta") {
		t.Errorf("null fields should be omitted from summary: %q", text)
	}
}

func TestPost_SlackError(t *testing.T) {
	p := newTestPoster(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	})

	_, err := p.PostEscalation(context.Background(), "call-3", "a", "s", nil)
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("expected slack error surfaced, got %v", err)
	}
}
