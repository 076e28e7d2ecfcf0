package internal

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jholub/mactivity/internal/mqtt"
	"github.com/jholub/mactivity/internal/power"
	"github.com/jholub/mactivity/internal/stats"
	"github.com/jholub/mactivity/internal/status"
	"github.com/jholub/mactivity/internal/timeline"
	"github.com/jholub/mactivity/internal/web"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 8, 24, hour, min, 0, 0, time.UTC)
}

func mustEvent(t *testing.T, ts time.Time, typ timeline.EventType, details map[string]string) timeline.Event {
	t.Helper()
	e, err := timeline.NewEvent(ts, typ, string(typ), details, ts)
	if err != nil {
		t.Fatalf("NewEvent(%s): %v", typ, err)
	}
	return e
}

// daySources returns a pmset-style source scripting one working day, out of
// order and with an unknown-typed event that admission must drop, plus one
// source that always fails.
func daySources(t *testing.T) []power.Source {
	t.Helper()
	pmset := &power.FakeSource{
		SourceName: "pmset",
		Events: []timeline.Event{
			mustEvent(t, at(12, 0), timeline.EventSleep, map[string]string{"sleep_reason": "Clamshell Sleep"}),
			mustEvent(t, at(9, 0), timeline.EventWake, map[string]string{"wake_reason": "EC.LidOpen"}),
			mustEvent(t, at(10, 30), timeline.EventDisplayOn, nil),
			mustEvent(t, at(10, 0), timeline.EventDisplayOff, nil),
			mustEvent(t, at(13, 0), timeline.EventWake, map[string]string{"wake_reason": "HID Activity"}),
			mustEvent(t, at(17, 0), timeline.EventShutdown, nil),
			mustEvent(t, at(11, 0), timeline.EventUnknown, nil),
		},
	}
	last := &power.FakeSource{
		SourceName: "last",
		Err:        errors.New("exit status 1"),
	}
	return []power.Source{pmset, last}
}

// refreshDay runs one full collection sweep over the scripted day: collect,
// admit, reconstruct, aggregate.
func refreshDay(t *testing.T, now time.Time, rate float64) ([]timeline.State, []timeline.Event, map[stats.Date]stats.Daily, stats.Summary, map[string]error) {
	t.Helper()
	collector := &power.Composite{Sources: daySources(t)}
	cfg := timeline.DefaultConfig()

	raw, failed := collector.Collect(context.Background(), now.AddDate(0, 0, -cfg.RetentionDays), now)
	admitted := timeline.Admit(raw, cfg, now)
	states, err := timeline.Reconstruct(admitted, cfg, now)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	daily, sum := stats.Aggregate(states, admitted, rate)
	return states, admitted, daily, sum, failed
}

// TestIntegrationFullPipeline drives the whole refresh path with fakes: two
// sources (one failing), admission, reconstruction, aggregation, and the
// status tracker.
func TestIntegrationFullPipeline(t *testing.T) {
	now := at(18, 0)
	states, admitted, daily, sum, failed := refreshDay(t, now, 40)

	// The failing source is reported but never aborts the sweep.
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed source, got %d: %v", len(failed), failed)
	}
	if failed["last"] == nil {
		t.Errorf("expected failure keyed by source name, got %v", failed)
	}

	// The unknown-typed event is dropped; the rest survive, sorted.
	if len(admitted) != 6 {
		t.Fatalf("expected 6 admitted events, got %d", len(admitted))
	}
	for i := 1; i < len(admitted); i++ {
		if admitted[i].Timestamp.Before(admitted[i-1].Timestamp) {
			t.Errorf("admitted events not sorted at index %d", i)
		}
	}

	want := []struct {
		typ        timeline.StateType
		start, end time.Time
	}{
		{timeline.StateActive, at(9, 0), at(10, 0)},
		{timeline.StatePause, at(10, 0), at(10, 30)},
		{timeline.StateActive, at(10, 30), at(12, 0)},
		{timeline.StateSleep, at(12, 0), at(13, 0)},
		{timeline.StateActive, at(13, 0), at(17, 0)},
		{timeline.StateShutdown, at(17, 0), at(18, 0)},
	}
	if len(states) != len(want) {
		t.Fatalf("expected %d states, got %d: %+v", len(want), len(states), states)
	}
	for i, w := range want {
		if states[i].Type != w.typ {
			t.Errorf("state %d: expected %s, got %s", i, w.typ, states[i].Type)
		}
		if !states[i].Start.Equal(w.start) || !states[i].End.Equal(w.end) {
			t.Errorf("state %d: expected [%v, %v], got [%v, %v]",
				i, w.start, w.end, states[i].Start, states[i].End)
		}
	}

	// Partition must be gap-free from the first event through now.
	for i := 1; i < len(states); i++ {
		if !states[i-1].End.Equal(states[i].Start) {
			t.Errorf("gap between state %d and %d", i-1, i)
		}
	}

	if sum.ActiveHours != 6.5 {
		t.Errorf("ActiveHours: got %g, want 6.5", sum.ActiveHours)
	}
	if sum.PauseHours != 0.5 {
		t.Errorf("PauseHours: got %g, want 0.5", sum.PauseHours)
	}
	if sum.SleepHours != 1 {
		t.Errorf("SleepHours: got %g, want 1", sum.SleepHours)
	}
	if sum.ShutdownHours != 1 {
		t.Errorf("ShutdownHours: got %g, want 1", sum.ShutdownHours)
	}
	if sum.Billable != 260 {
		t.Errorf("Billable: got %g, want 260", sum.Billable)
	}
	if wantEff := 6.5 / 7.0 * 100; math.Abs(sum.EfficiencyPercent-wantEff) > 1e-9 {
		t.Errorf("EfficiencyPercent: got %g, want %g", sum.EfficiencyPercent, wantEff)
	}
	if sum.StateCount != 6 {
		t.Errorf("StateCount: got %d, want 6", sum.StateCount)
	}
	if sum.EventCount != 6 {
		t.Errorf("EventCount: got %d, want 6", sum.EventCount)
	}

	d, ok := daily["2026-08-24"]
	if !ok {
		t.Fatalf("expected daily entry for 2026-08-24, got %v", daily)
	}
	if d.ActiveHours != 6.5 || d.EventCount != 6 {
		t.Errorf("daily: got active=%g events=%d, want 6.5 and 6", d.ActiveHours, d.EventCount)
	}

	reasons := stats.WakeReasons(admitted)
	if reasons["EC.LidOpen"] != 1 || reasons["HID Activity"] != 1 {
		t.Errorf("wake reasons: got %v", reasons)
	}

	tr := status.NewTracker(at(8, 0), status.Config{RefreshSecs: 30, HTTPAddr: ":8920", HourlyRate: 40})
	tr.Update(states, daily, sum, len(admitted), failed, now)

	snap := tr.Snapshot()
	if snap.CurrentState != timeline.StateShutdown {
		t.Errorf("CurrentState: got %s, want shutdown", snap.CurrentState)
	}
	if !snap.Ready() {
		t.Error("expected snapshot to be ready after one refresh")
	}
	if snap.SourceErrors["last"] != "exit status 1" {
		t.Errorf("SourceErrors: got %v", snap.SourceErrors)
	}
}

// TestIntegrationWebEndpoints serves the snapshot of a real refresh over HTTP
// and checks the JSON endpoint and the readiness probe.
func TestIntegrationWebEndpoints(t *testing.T) {
	now := at(18, 0)
	states, admitted, daily, sum, failed := refreshDay(t, now, 40)

	tr := status.NewTracker(at(8, 0), status.Config{RefreshSecs: 30, HTTPAddr: ":8920", HourlyRate: 40})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := web.New(ln.Addr().String(), tr, nil, nil)
	go srv.Serve(ln)
	defer srv.Shutdown(context.Background())
	base := "http://" + ln.Addr().String()

	// Before the first refresh the daemon reports not ready.
	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("healthz before refresh: got %d, want 503", resp.StatusCode)
	}

	tr.Update(states, daily, sum, len(admitted), failed, now)

	resp, err = http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz after refresh: got %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(base + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var aj status.ActivityJSON
	if err := json.NewDecoder(resp.Body).Decode(&aj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if aj.Activity.State != "shutdown" {
		t.Errorf("state: got %q, want shutdown", aj.Activity.State)
	}
	if aj.Activity.Summary.Billable != 260 {
		t.Errorf("billable: got %g, want 260", aj.Activity.Summary.Billable)
	}
	if aj.Activity.EventCount != 6 {
		t.Errorf("event_count: got %d, want 6", aj.Activity.EventCount)
	}
	if aj.Activity.SourceErrors["last"] != "exit status 1" {
		t.Errorf("source_errors: got %v", aj.Activity.SourceErrors)
	}
	d, ok := aj.Activity.Daily["2026-08-24"]
	if !ok {
		t.Fatalf("expected daily entry in JSON, got %v", aj.Activity.Daily)
	}
	if d.ActiveHours != 6.5 {
		t.Errorf("daily active_hours: got %g, want 6.5", d.ActiveHours)
	}
	if aj.Activity.Config.HourlyRate != 40 {
		t.Errorf("config hourly_rate: got %g, want 40", aj.Activity.Config.HourlyRate)
	}
}

// TestIntegrationLifecycleEvents walks a daemon lifecycle against the fake
// publisher: STARTUP, a transition per state change across two refreshes,
// then SHUTDOWN. Both system events carry the full status snapshot.
func TestIntegrationLifecycleEvents(t *testing.T) {
	cfg := timeline.DefaultConfig()
	publisher := mqtt.NewFakePublisher()
	tr := status.NewTracker(at(8, 0), status.Config{RefreshSecs: 30, Broker: "tcp://127.0.0.1:1883", HTTPAddr: ":8920"})

	// STARTUP goes out before the first refresh, not ready yet.
	startup := mqtt.SystemEvent{
		Timestamp:  at(8, 0),
		Event:      "STARTUP",
		RawPayload: status.FormatStatusEvent(tr.Snapshot(), "STARTUP", ""),
		Retained:   true,
	}
	if err := publisher.PublishSystem(startup); err != nil {
		t.Fatalf("startup publish: %v", err)
	}

	refresh := func(events []timeline.Event, now time.Time) timeline.StateType {
		t.Helper()
		admitted := timeline.Admit(events, cfg, now)
		states, err := timeline.Reconstruct(admitted, cfg, now)
		if err != nil {
			t.Fatalf("Reconstruct: %v", err)
		}
		daily, sum := stats.Aggregate(states, admitted, 0)
		tr.Update(states, daily, sum, len(admitted), nil, now)
		return states[len(states)-1].Type
	}

	wake := mustEvent(t, at(9, 0), timeline.EventWake, nil)
	sleep := mustEvent(t, at(12, 30), timeline.EventSleep, nil)

	// First refresh runs right after the wake: the timeline opens active.
	prev := timeline.StateUnknown
	current := refresh([]timeline.Event{wake}, at(9, 1))
	if current != prev {
		tran := mqtt.Transition{Timestamp: at(9, 1), State: current, Since: at(9, 0)}
		if prev != timeline.StateUnknown {
			tran.Previous = prev
		}
		if err := publisher.PublishTransition(tran); err != nil {
			t.Fatalf("transition publish: %v", err)
		}
		prev = current
	}

	// Second refresh: a sleep event flips the current state.
	current = refresh([]timeline.Event{wake, sleep}, at(13, 0))
	if current != prev {
		if err := publisher.PublishTransition(mqtt.Transition{
			Timestamp: at(13, 0), State: current, Previous: prev, Since: at(12, 30),
		}); err != nil {
			t.Fatalf("transition publish: %v", err)
		}
		prev = current
	}

	shutdown := mqtt.SystemEvent{
		Timestamp:  at(13, 30),
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		RawPayload: status.FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM"),
		Retained:   true,
	}
	if err := publisher.PublishSystem(shutdown); err != nil {
		t.Fatalf("shutdown publish: %v", err)
	}

	if len(publisher.Transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(publisher.Transitions))
	}
	if publisher.Transitions[0].State != timeline.StateActive || publisher.Transitions[0].Previous != "" {
		t.Errorf("transition 0: got %+v", publisher.Transitions[0])
	}
	if publisher.Transitions[1].State != timeline.StateSleep || publisher.Transitions[1].Previous != timeline.StateActive {
		t.Errorf("transition 1: got %+v", publisher.Transitions[1])
	}

	var tp mqtt.TransitionPayload
	if err := json.Unmarshal(publisher.Payloads[1], &tp); err != nil {
		t.Fatalf("transition payload: %v", err)
	}
	if tp.Activity.State != "sleep" || tp.Activity.Previous != "active" {
		t.Errorf("payload 1: got %+v", tp.Activity)
	}
	if tp.Activity.ID == "" {
		t.Error("transition payload missing id")
	}
	if tp.Activity.Since != "2026-08-24T12:30:00Z" {
		t.Errorf("payload 1 since: got %q", tp.Activity.Since)
	}

	if len(publisher.SystemEvents) != 2 {
		t.Fatalf("expected 2 system events, got %d", len(publisher.SystemEvents))
	}
	if publisher.SystemEvents[0].Event != "STARTUP" || !publisher.SystemEvents[0].Retained {
		t.Errorf("system event 0: got %+v", publisher.SystemEvents[0])
	}
	if publisher.SystemEvents[1].Event != "SHUTDOWN" || publisher.SystemEvents[1].Reason != "SIGTERM" {
		t.Errorf("system event 1: got %+v", publisher.SystemEvents[1])
	}

	var startupPayload status.ActivityJSON
	if err := json.Unmarshal(publisher.SystemPayloads[0], &startupPayload); err != nil {
		t.Fatalf("startup payload: %v", err)
	}
	if startupPayload.Activity.Event != "STARTUP" {
		t.Errorf("startup payload event: got %q", startupPayload.Activity.Event)
	}
	if startupPayload.Activity.Ready {
		t.Error("startup payload should report not ready")
	}

	var shutdownPayload status.ActivityJSON
	if err := json.Unmarshal(publisher.SystemPayloads[1], &shutdownPayload); err != nil {
		t.Fatalf("shutdown payload: %v", err)
	}
	if shutdownPayload.Activity.Event != "SHUTDOWN" || shutdownPayload.Activity.Reason != "SIGTERM" {
		t.Errorf("shutdown payload: got event %q reason %q",
			shutdownPayload.Activity.Event, shutdownPayload.Activity.Reason)
	}
	if shutdownPayload.Activity.State != "sleep" {
		t.Errorf("shutdown payload state: got %q, want sleep", shutdownPayload.Activity.State)
	}
	if !shutdownPayload.Activity.Ready {
		t.Error("shutdown payload should report ready")
	}
}

// TestIntegrationAllSourcesFailing verifies that a refresh with nothing but
// broken sources degrades to an empty, unknown snapshot instead of crashing.
func TestIntegrationAllSourcesFailing(t *testing.T) {
	now := at(18, 0)
	collector := &power.Composite{Sources: []power.Source{
		&power.FakeSource{SourceName: "pmset", Err: errors.New("command not found")},
		&power.FakeSource{SourceName: "log", Err: errors.New("timed out")},
	}}
	cfg := timeline.DefaultConfig()

	raw, failed := collector.Collect(context.Background(), now.AddDate(0, 0, -cfg.RetentionDays), now)
	if len(raw) != 0 {
		t.Fatalf("expected no events, got %d", len(raw))
	}
	if len(failed) != 2 {
		t.Fatalf("expected 2 failed sources, got %v", failed)
	}

	admitted := timeline.Admit(raw, cfg, now)
	states, err := timeline.Reconstruct(admitted, cfg, now)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(states) != 0 {
		t.Fatalf("expected no states, got %+v", states)
	}

	daily, sum := stats.Aggregate(states, admitted, 40)
	tr := status.NewTracker(at(8, 0), status.Config{RefreshSecs: 30, HTTPAddr: ":8920"})
	tr.Update(states, daily, sum, 0, failed, now)

	snap := tr.Snapshot()
	if snap.CurrentState != timeline.StateUnknown {
		t.Errorf("CurrentState: got %s, want unknown", snap.CurrentState)
	}
	if len(snap.SourceErrors) != 2 {
		t.Errorf("SourceErrors: got %v", snap.SourceErrors)
	}

	var aj status.ActivityJSON
	if err := json.Unmarshal(status.FormatJSON(snap), &aj); err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}
	if aj.Activity.State != "unknown" {
		t.Errorf("state: got %q, want unknown", aj.Activity.State)
	}
}
