// Package stats reduces a reconstructed timeline into per-day and overall
// summaries. It is a pure aggregation layer: its correctness depends
// entirely on the reconstruction being right, and it never mutates its
// inputs.
package stats

import (
	"sort"
	"time"

	"github.com/jholub/mactivity/internal/timeline"
)

// Date is a civil date key in the state's own location, YYYY-MM-DD.
type Date string

// DateOf returns the calendar date a timestamp falls on.
func DateOf(t time.Time) Date {
	return Date(t.Format("2006-01-02"))
}

// Daily aggregates one calendar day of states. A state spanning midnight is
// credited wholly to its start date; durations are never split across day
// boundaries.
type Daily struct {
	ActiveHours      float64
	PauseHours       float64
	SleepHours       float64
	ShutdownHours    float64
	MaintenanceHours float64
	EventCount       int
}

// Summary is the overall reduction across the whole timeline.
type Summary struct {
	ActiveHours      float64
	PauseHours       float64
	SleepHours       float64
	ShutdownHours    float64
	MaintenanceHours float64

	// EfficiencyPercent is active / (active + pause) * 100, and exactly 0
	// when the denominator is 0. It is always within [0, 100].
	EfficiencyPercent float64

	// Billable is ActiveHours times the hourly rate. The rate is external
	// and mutable; recomputing Billable never requires re-reconstruction.
	Billable float64

	AvgActiveMinutes float64
	AvgPauseMinutes  float64

	StateCount int
	EventCount int
}

// Aggregate reduces a state partition plus the admitted events into daily
// breakdowns and an overall summary. Zero states yield zero values, never
// an error.
func Aggregate(states []timeline.State, events []timeline.Event, hourlyRate float64) (map[Date]Daily, Summary) {
	daily := make(map[Date]Daily)
	var sum Summary

	var activeCount, pauseCount int
	for _, s := range states {
		d := daily[DateOf(s.Start)]
		h := s.Hours()
		switch s.Type {
		case timeline.StateActive:
			d.ActiveHours += h
			sum.ActiveHours += h
			activeCount++
		case timeline.StatePause:
			d.PauseHours += h
			sum.PauseHours += h
			pauseCount++
		case timeline.StateSleep:
			d.SleepHours += h
			sum.SleepHours += h
		case timeline.StateShutdown:
			d.ShutdownHours += h
			sum.ShutdownHours += h
		case timeline.StateMaintenance:
			d.MaintenanceHours += h
			sum.MaintenanceHours += h
		}
		daily[DateOf(s.Start)] = d
	}

	for _, e := range events {
		d := daily[DateOf(e.Timestamp)]
		d.EventCount++
		daily[DateOf(e.Timestamp)] = d
		sum.EventCount++
	}

	if productive := sum.ActiveHours + sum.PauseHours; productive > 0 {
		sum.EfficiencyPercent = sum.ActiveHours / productive * 100
	}
	sum.Billable = sum.ActiveHours * hourlyRate
	sum.StateCount = len(states)
	if activeCount > 0 {
		sum.AvgActiveMinutes = sum.ActiveHours * 60 / float64(activeCount)
	}
	if pauseCount > 0 {
		sum.AvgPauseMinutes = sum.PauseHours * 60 / float64(pauseCount)
	}

	return daily, sum
}

// Dates returns the daily keys in ascending order, for stable rendering.
func Dates(daily map[Date]Daily) []Date {
	keys := make([]Date, 0, len(daily))
	for d := range daily {
		keys = append(keys, d)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// WakeReasons counts the wake_reason detail across wake and dark-wake
// events. Events without the detail count under "Unknown".
func WakeReasons(events []timeline.Event) map[string]int {
	reasons := make(map[string]int)
	for _, e := range events {
		if e.Type != timeline.EventWake && e.Type != timeline.EventDarkWake {
			continue
		}
		reason := e.Details["wake_reason"]
		if reason == "" {
			reason = "Unknown"
		}
		reasons[reason]++
	}
	return reasons
}

// AppAssertions counts power-assertion events per process name. Assertions
// are an application-activity proxy only; the reconstructor never acts on
// them.
func AppAssertions(events []timeline.Event) map[string]int {
	apps := make(map[string]int)
	for _, e := range events {
		if e.Type != timeline.EventAssertionCreate && e.Type != timeline.EventAssertionRelease {
			continue
		}
		process := e.Details["process"]
		if process == "" {
			process = "Unknown"
		}
		apps[process]++
	}
	return apps
}
