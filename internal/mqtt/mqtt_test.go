package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jholub/mactivity/internal/timeline"
)

func TestFormatTransitionPayload(t *testing.T) {
	tr := Transition{
		Timestamp: time.Date(2026, 8, 24, 12, 30, 0, 0, time.UTC),
		State:     timeline.StateSleep,
		Previous:  timeline.StateActive,
		Since:     time.Date(2026, 8, 24, 12, 30, 0, 0, time.UTC),
	}

	payload, err := FormatTransitionPayload(tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed TransitionPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Activity.Timestamp != "2026-08-24T12:30:00Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Activity.Timestamp)
	}
	if parsed.Activity.State != "sleep" {
		t.Errorf("unexpected state: %s", parsed.Activity.State)
	}
	if parsed.Activity.Previous != "active" {
		t.Errorf("unexpected previous: %s", parsed.Activity.Previous)
	}
	if parsed.Activity.ID == "" {
		t.Error("expected a non-empty id")
	}
}

func TestFormatTransitionPayloadUniqueIDs(t *testing.T) {
	tr := Transition{
		Timestamp: time.Now(),
		State:     timeline.StateActive,
		Since:     time.Now(),
	}

	p1, _ := FormatTransitionPayload(tr)
	p2, _ := FormatTransitionPayload(tr)

	var a, b TransitionPayload
	json.Unmarshal(p1, &a)
	json.Unmarshal(p2, &b)
	if a.Activity.ID == b.Activity.ID {
		t.Errorf("expected distinct ids, both %s", a.Activity.ID)
	}
}

func TestFormatTransitionPayloadOmitsEmptyPrevious(t *testing.T) {
	tr := Transition{
		Timestamp: time.Now(),
		State:     timeline.StateActive,
		Since:     time.Now(),
	}

	payload, err := FormatTransitionPayload(tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]interface{}
	json.Unmarshal(payload, &raw)
	activity := raw["activity"].(map[string]interface{})
	if _, exists := activity["previous"]; exists {
		t.Error("previous should be omitted when empty")
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed SystemPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.System.Event != "SHUTDOWN" {
		t.Errorf("unexpected event: %s", parsed.System.Event)
	}
	if parsed.System.Reason != "SIGTERM" {
		t.Errorf("unexpected reason: %s", parsed.System.Reason)
	}
	if parsed.System.Timestamp != "2026-08-24T09:00:00Z" {
		t.Errorf("unexpected timestamp: %s", parsed.System.Timestamp)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"activity":{"event":"STARTUP"}}`)
	event := SystemEvent{
		Timestamp:  time.Now(),
		Event:      "STARTUP",
		RawPayload: raw,
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	tr := Transition{
		Timestamp: time.Now(),
		State:     timeline.StatePause,
		Previous:  timeline.StateActive,
		Since:     time.Now(),
	}

	if err := f.PublishTransition(tr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Transitions) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(f.Transitions))
	}
	if f.Transitions[0].State != timeline.StatePause {
		t.Errorf("unexpected state: %s", f.Transitions[0].State)
	}
	if len(f.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker unreachable")

	err := f.PublishTransition(Transition{Timestamp: time.Now(), State: timeline.StateActive})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(f.Transitions) != 0 {
		t.Errorf("expected no recorded transitions, got %d", len(f.Transitions))
	}
}

func TestFakePublisherSystemEvents(t *testing.T) {
	f := NewFakePublisher()

	event := SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}
	if err := f.PublishSystem(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(f.SystemEvents))
	}
	if !f.SystemEvents[0].Retained {
		t.Error("expected retained flag preserved")
	}
}

func TestFakePublisherClose(t *testing.T) {
	f := NewFakePublisher()
	if err := f.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("expected Closed=true")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.PublishTransition(Transition{Timestamp: time.Now(), State: timeline.StateActive})
	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP"})
	f.Connected = true

	f.Reset()

	if len(f.Transitions) != 0 || len(f.SystemEvents) != 0 || f.Connected {
		t.Error("expected a clean publisher after Reset")
	}
}
