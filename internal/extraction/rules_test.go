package extraction

import (
	"context"
	"testing"

	"github.com/fleetvoice/dispatchd/internal/scenario"
)

func TestRuleBased_Checkin(t *testing.T) {
	rb := NewRuleBased()

	transcript := "agent: How's it going?\n" +
		"driver: I've arrived at the dock, unloading in door 42 now.\n" +
		"agent: Great, remember the POD.\n" +
		"driver: Got the paperwork ready."

	result, err := rb.Extract(context.Background(), transcript, scenario.DriverCheckin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Confidence != 0.6 {
		t.Errorf("expected fixed confidence 0.6, got %f", result.Confidence)
	}
	if result.Fields["call_outcome"] != "Arrival Confirmation" {
		t.Errorf("expected Arrival Confirmation, got %v", result.Fields["call_outcome"])
	}
	if result.Fields["driver_status"] != "Unloading" {
		t.Errorf("expected Unloading, got %v", result.Fields["driver_status"])
	}
	if result.Fields["pod_reminder_acknowledged"] != true {
		t.Errorf("expected POD acknowledged, got %v", result.Fields["pod_reminder_acknowledged"])
	}
}

func TestRuleBased_CheckinInTransit(t *testing.T) {
	rb := NewRuleBased()

	transcript := "driver: still driving, I'm on I-10 near Indio, heavy traffic, " +
		"probably 2 hours out"

	result, err := rb.Extract(context.Background(), transcript, scenario.DriverCheckin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Fields["call_outcome"] != "In-Transit Update" {
		t.Errorf("expected In-Transit Update, got %v", result.Fields["call_outcome"])
	}
	if result.Fields["driver_status"] != "Driving" {
		t.Errorf("expected Driving, got %v", result.Fields["driver_status"])
	}
	if result.Fields["current_location"] != "I-10" {
		t.Errorf("expected I-10 location, got %v", result.Fields["current_location"])
	}
	if result.Fields["eta"] != "2 hours" {
		t.Errorf("expected eta '2 hours', got %v", result.Fields["eta"])
	}
	if result.Fields["delay_reason"] != "Heavy Traffic" {
		t.Errorf("expected Heavy Traffic, got %v", result.Fields["delay_reason"])
	}
}

func TestRuleBased_Emergency(t *testing.T) {
	rb := NewRuleBased()

	transcript := "driver: there's been a crash, someone is hurt, we're at mile marker 123 on I-15\n" +
		"agent: is everyone safe?\n" +
		"driver: no, someone is hurt, I called 911 already"

	result, err := rb.Extract(context.Background(), transcript, scenario.EmergencyProtocol)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Confidence != 0.7 {
		t.Errorf("expected fixed confidence 0.7, got %f", result.Confidence)
	}
	if result.Fields["call_outcome"] != "Emergency Escalation" {
		t.Errorf("expected Emergency Escalation, got %v", result.Fields["call_outcome"])
	}
	if result.Fields["emergency_type"] != "Accident" {
		t.Errorf("expected Accident, got %v", result.Fields["emergency_type"])
	}
	if result.Fields["injury_status"] != "Injuries reported" {
		t.Errorf("expected injuries reported, got %v", result.Fields["injury_status"])
	}
	if result.Fields["emergency_services_called"] != true {
		t.Errorf("expected 911 detected, got %v", result.Fields["emergency_services_called"])
	}
	if result.Fields["emergency_location"] != "mile marker 123" {
		t.Errorf("expected mile marker location, got %v", result.Fields["emergency_location"])
	}
}

func TestRuleBased_UnknownScenario(t *testing.T) {
	rb := NewRuleBased()
	if _, err := rb.Extract(context.Background(), "hi", scenario.Type("mystery")); err == nil {
		t.Fatal("expected error for unknown scenario")
	}
}

func TestRuleBased_Deterministic(t *testing.T) {
	rb := NewRuleBased()
	transcript := "driver: delayed by weather, stuck behind a storm near Flagstaff, AZ"

	a, err := rb.Extract(context.Background(), transcript, scenario.DriverCheckin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := rb.Extract(context.Background(), transcript, scenario.DriverCheckin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
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
