package timeline

import (
	"time"
)

// foldState is the accumulator carried across the event fold.
type foldState struct {
	systemOn     bool
	displayOn    bool
	lastActivity time.Time // zero when no activity is being tracked
	currentStart time.Time // start of the currently open interval
}

type reconstruction struct {
	cfg    Config
	acc    foldState
	states []State
}

// Reconstruct converts a sorted, admitted event stream into a gap-free
// partition of [events[0].Timestamp, now]. It is a pure left-to-right fold:
// identical (events, cfg, now) always yields an identical result. The input
// must already be sorted ascending (see Admit); now is the single injected
// reference for finalizing the open interval.
//
// Event types without a transition rule of their own (lid, power button,
// assertions, anything unexpected) are folded as no-ops so one odd record
// cannot abort the run.
func Reconstruct(events []Event, cfg Config, now time.Time) ([]State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	r := reconstruction{
		cfg: cfg,
		acc: foldState{
			// The first event proves the machine existed at that instant;
			// without an explicit boot we assume it was on.
			systemOn:     true,
			currentStart: events[0].Timestamp,
		},
	}

	for i := range events {
		r.step(&events[i], i == 0)
	}
	r.finalize(now)

	return mergeAdjacent(r.states, cfg.MergeTolerance), nil
}

// step handles one event. The inactivity sweep runs before the event's own
// transition rule: the active slice since the last tracked activity is cut
// off first, and the event's rule then classifies whatever remains. The
// merge post-pass glues the slice back together with an adjacent interval of
// the same type.
func (r *reconstruction) step(ev *Event, first bool) {
	r.sweep(ev.Timestamp)

	switch ev.Type {
	case EventBoot, EventReboot:
		// Whatever happened since the last close, the machine was off.
		if !first {
			r.close(ev.Timestamp, StateShutdown, ev)
		}
		r.acc.systemOn = true
		r.acc.displayOn = true
		r.acc.lastActivity = ev.Timestamp
		r.acc.currentStart = ev.Timestamp

	case EventShutdown:
		if r.acc.systemOn {
			r.close(ev.Timestamp, r.effectiveState(ev.Timestamp), ev)
		}
		r.acc.systemOn = false
		r.acc.displayOn = false
		r.acc.currentStart = ev.Timestamp

	case EventSleep:
		if r.acc.systemOn {
			r.close(ev.Timestamp, r.effectiveState(ev.Timestamp), ev)
			r.acc.displayOn = false
			r.acc.currentStart = ev.Timestamp
		}

	case EventWake, EventDarkWake, EventMaintenanceWake:
		// A cleared lastActivity with the display flag still set means the
		// open interval is adrift after a sweep; a wake closes it as sleep
		// just like a wake after a captured sleep event does.
		if r.acc.systemOn && (!r.acc.displayOn || r.acc.lastActivity.IsZero()) {
			r.close(ev.Timestamp, StateSleep, ev)
			r.acc.currentStart = ev.Timestamp
		}
		if ev.Type == EventWake {
			// Only a full wake lights the display; dark and maintenance
			// wakes leave it off and track no activity.
			r.acc.displayOn = true
			r.acc.lastActivity = ev.Timestamp
		}

	case EventDisplayOn:
		if r.acc.systemOn && (!r.acc.displayOn || r.acc.lastActivity.IsZero()) {
			elapsed := ev.Timestamp.Sub(r.acc.currentStart)
			r.close(ev.Timestamp, r.cfg.classifyGap(elapsed), ev)
			r.acc.currentStart = ev.Timestamp
		}
		r.acc.displayOn = true
		r.acc.lastActivity = ev.Timestamp

	case EventDisplayOff:
		if r.acc.systemOn && r.acc.displayOn {
			r.close(ev.Timestamp, StateActive, ev)
			r.acc.currentStart = ev.Timestamp
		}
		r.acc.displayOn = false

	default:
		// lid_open, lid_close, power_button, assertions, unknown: no
		// transition of their own. The sweep above already accounted for
		// idle time up to this event.
	}
}

// sweep cuts off an active slice of exactly InactivityThreshold after the
// last tracked activity once the gap to the given instant exceeds the
// threshold. The remainder stays open and accrues under whatever state the
// next rule assigns.
func (r *reconstruction) sweep(at time.Time) {
	if !r.acc.systemOn || !r.acc.displayOn || r.acc.lastActivity.IsZero() {
		return
	}
	if at.Sub(r.acc.lastActivity) <= r.cfg.InactivityThreshold {
		return
	}
	end := r.acc.lastActivity.Add(r.cfg.InactivityThreshold)
	if end.After(r.acc.currentStart) {
		r.close(end, StateActive, nil)
		r.acc.currentStart = end
	}
	r.acc.lastActivity = time.Time{}
}

// effectiveState classifies the open interval when it is closed at a sleep
// or shutdown boundary.
func (r *reconstruction) effectiveState(at time.Time) StateType {
	if !r.acc.displayOn {
		return StatePause
	}
	if !r.acc.lastActivity.IsZero() && at.Sub(r.acc.lastActivity) > r.cfg.InactivityThreshold {
		return StatePause
	}
	return StateActive
}

// finalize extends the timeline to now: the still-open interval is closed
// as shutdown or sleep when the machine was off or dark at the end, and via
// the effective-state rule otherwise.
func (r *reconstruction) finalize(now time.Time) {
	if !r.acc.currentStart.Before(now) {
		return
	}
	var typ StateType
	switch {
	case !r.acc.systemOn:
		typ = StateShutdown
	case r.acc.displayOn:
		typ = r.effectiveState(now)
	default:
		typ = StateSleep
	}
	r.close(now, typ, nil)
}

// close appends the currently open interval ending at end. Zero-length
// intervals are dropped; the open interval's start is untouched so the
// partition stays gap-free.
func (r *reconstruction) close(end time.Time, typ StateType, trigger *Event) {
	if !end.After(r.acc.currentStart) {
		return
	}
	r.states = append(r.states, State{
		Start:   r.acc.currentStart,
		End:     end,
		Type:    typ,
		Trigger: trigger,
	})
}

// mergeAdjacent coalesces consecutive states of the same type whose gap is
// below tolerance, keeping the first start and the last end. Running it a
// second time finds nothing left to merge.
func mergeAdjacent(states []State, tolerance time.Duration) []State {
	if len(states) == 0 {
		return states
	}
	merged := make([]State, 0, len(states))
	current := states[0]
	for _, s := range states[1:] {
		if s.Type == current.Type && s.Start.Sub(current.End) < tolerance {
			current.End = s.End
			continue
		}
		merged = append(merged, current)
		current = s
	}
	return append(merged, current)
}
