package status

import (
	"encoding/json"
	"time"

	"github.com/jholub/mactivity/internal/stats"
)

// ActivityJSON is the top-level JSON envelope for status output.
type ActivityJSON struct {
	Activity ActivityInner `json:"activity"`
}

// ActivityInner contains the status details.
type ActivityInner struct {
	Event         string               `json:"event,omitempty"`
	Reason        string               `json:"reason,omitempty"`
	State         string               `json:"state"`
	Ready         bool                 `json:"ready"`
	UptimeSeconds int64                `json:"uptime_seconds"`
	StartTime     string               `json:"start_time"`
	Timestamp     string               `json:"timestamp"`
	LastRefresh   string               `json:"last_refresh,omitempty"`
	RefreshCount  int64                `json:"refresh_count"`
	EventCount    int                  `json:"event_count"`
	MQTT          MQTTStatus           `json:"mqtt"`
	Summary       SummaryJSON          `json:"summary"`
	Daily         map[string]DailyJSON `json:"daily,omitempty"`
	SourceErrors  map[string]string    `json:"source_errors,omitempty"`
	Config        ConfigJSON           `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// SummaryJSON is the JSON representation of the overall reduction.
type SummaryJSON struct {
	ActiveHours       float64 `json:"active_hours"`
	PauseHours        float64 `json:"pause_hours"`
	SleepHours        float64 `json:"sleep_hours"`
	ShutdownHours     float64 `json:"shutdown_hours"`
	MaintenanceHours  float64 `json:"maintenance_hours"`
	EfficiencyPercent float64 `json:"efficiency_percent"`
	Billable          float64 `json:"billable"`
	AvgActiveMinutes  float64 `json:"avg_active_minutes"`
	AvgPauseMinutes   float64 `json:"avg_pause_minutes"`
	StateCount        int     `json:"state_count"`
}

// DailyJSON is the JSON representation of one calendar day.
type DailyJSON struct {
	ActiveHours      float64 `json:"active_hours"`
	PauseHours       float64 `json:"pause_hours"`
	SleepHours       float64 `json:"sleep_hours"`
	ShutdownHours    float64 `json:"shutdown_hours"`
	MaintenanceHours float64 `json:"maintenance_hours"`
	EventCount       int     `json:"event_count"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	RefreshSecs int      `json:"refresh_seconds"`
	Broker      string   `json:"broker,omitempty"`
	HTTPAddr    string   `json:"http_addr"`
	HourlyRate  float64  `json:"hourly_rate"`
	Sources     []string `json:"sources,omitempty"`
}

func buildInner(snap Snapshot) ActivityInner {
	state := string(snap.CurrentState)
	if state == "" {
		state = "unknown"
	}

	inner := ActivityInner{
		State:         state,
		Ready:         snap.Ready(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		RefreshCount:  snap.RefreshCount,
		EventCount:    snap.EventCount,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Summary:       buildSummary(snap.Summary),
		SourceErrors:  snap.SourceErrors,
		Config: ConfigJSON{
			RefreshSecs: snap.Config.RefreshSecs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			HourlyRate:  snap.Config.HourlyRate,
			Sources:     snap.Config.Sources,
		},
	}
	if !snap.LastRefresh.IsZero() {
		inner.LastRefresh = snap.LastRefresh.UTC().Format(time.RFC3339)
	}
	if len(snap.Daily) > 0 {
		inner.Daily = make(map[string]DailyJSON, len(snap.Daily))
		for date, d := range snap.Daily {
			inner.Daily[string(date)] = DailyJSON{
				ActiveHours:      d.ActiveHours,
				PauseHours:       d.PauseHours,
				SleepHours:       d.SleepHours,
				ShutdownHours:    d.ShutdownHours,
				MaintenanceHours: d.MaintenanceHours,
				EventCount:       d.EventCount,
			}
		}
	}
	return inner
}

func buildSummary(s stats.Summary) SummaryJSON {
	return SummaryJSON{
		ActiveHours:       s.ActiveHours,
		PauseHours:        s.PauseHours,
		SleepHours:        s.SleepHours,
		ShutdownHours:     s.ShutdownHours,
		MaintenanceHours:  s.MaintenanceHours,
		EfficiencyPercent: s.EfficiencyPercent,
		Billable:          s.Billable,
		AvgActiveMinutes:  s.AvgActiveMinutes,
		AvgPauseMinutes:   s.AvgPauseMinutes,
		StateCount:        s.StateCount,
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)

	data, _ := json.MarshalIndent(ActivityJSON{Activity: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(ActivityJSON{Activity: inner})
	return data
}
