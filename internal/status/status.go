// Package status provides a thread-safe snapshot of the latest
// reconstruction for HTTP handlers, the WebSocket hub, and MQTT lifecycle
// payloads.
package status

import (
	"sync"
	"time"

	"github.com/jholub/mactivity/internal/stats"
	"github.com/jholub/mactivity/internal/timeline"
)

// Config contains daemon configuration for display.
type Config struct {
	RefreshSecs int
	Broker      string
	HTTPAddr    string
	HourlyRate  float64
	Sources     []string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	// CurrentState is the type of the last state in the partition, or
	// unknown before the first refresh completes.
	CurrentState timeline.StateType

	// States is the full partition from the last refresh.
	States []timeline.State

	Daily   map[stats.Date]stats.Daily
	Summary stats.Summary

	// SourceErrors maps source names to the error message from the last
	// refresh. Empty when every source succeeded.
	SourceErrors map[string]string

	EventCount    int
	RefreshCount  int64
	LastRefresh   time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether at least one refresh has completed.
func (s Snapshot) Ready() bool {
	return s.RefreshCount > 0
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			CurrentState: timeline.StateUnknown,
			StartTime:    startTime,
			Config:       cfg,
		},
	}
}

// Update installs the result of one refresh.
// Called from the daemon loop after every reconstruction.
func (t *Tracker) Update(states []timeline.State, daily map[stats.Date]stats.Daily, sum stats.Summary, eventCount int, sourceErrs map[string]error, at time.Time) {
	current := timeline.StateUnknown
	if len(states) > 0 {
		current = states[len(states)-1].Type
	}
	errs := make(map[string]string, len(sourceErrs))
	for name, err := range sourceErrs {
		errs[name] = err.Error()
	}

	t.mu.Lock()
	t.snap.CurrentState = current
	t.snap.States = states
	t.snap.Daily = daily
	t.snap.Summary = sum
	t.snap.EventCount = eventCount
	t.snap.SourceErrors = errs
	t.snap.LastRefresh = at
	t.snap.RefreshCount++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
