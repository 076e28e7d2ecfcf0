package timeline

import (
	"fmt"
	"time"
)

// StateType classifies a reconstructed interval.
type StateType string

const (
	StateActive      StateType = "active"
	StatePause       StateType = "pause"
	StateSleep       StateType = "sleep"
	StateShutdown    StateType = "shutdown"
	StateMaintenance StateType = "maintenance"
	StateUnknown     StateType = "unknown"
)

// State is one interval of the reconstructed timeline. The states produced
// by a single Reconstruct call form a partition of [firstEvent, now]:
// sorted ascending, non-overlapping, gap-free.
type State struct {
	Start   time.Time
	End     time.Time
	Type    StateType
	Trigger *Event
	Details map[string]string
}

// NewState validates and constructs a State. End before Start is a caller
// bug and is rejected, never clamped.
func NewState(start, end time.Time, typ StateType) (State, error) {
	if end.Before(start) {
		return State{}, fmt.Errorf("state %s: end %s before start %s",
			typ, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return State{Start: start, End: end, Type: typ}, nil
}

// Duration is always derived from the bounds, never stored.
func (s State) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Hours returns the interval length in fractional hours.
func (s State) Hours() float64 {
	return s.Duration().Hours()
}
