package timeline

import (
	"fmt"
	"time"
)

// GapTiers is an alternative policy for classifying a silent gap that ends
// at a display-on or wake: instead of the flat pause/sleep boundary, the gap
// is graded into pause, sleep, or shutdown by elapsed time.
type GapTiers struct {
	// SleepAfter is the elapsed time after which a gap counts as sleep.
	SleepAfter time.Duration
	// ShutdownAfter is the elapsed time after which a gap counts as shutdown.
	ShutdownAfter time.Duration
}

// Config holds the policy constants the reconstructor consumes. The values
// are heuristics, not measured facts; all of them are configurable.
type Config struct {
	// RetentionDays drops events older than now minus this many days.
	RetentionDays int
	// InactivityThreshold is how long after the last tracked activity an
	// open active interval is cut off.
	InactivityThreshold time.Duration
	// MaxEvents bounds memory: admission keeps only the most recent
	// MaxEvents events. This is a lossy cap, not a correctness feature.
	MaxEvents int
	// PauseSleepBoundary distinguishes "user stepped away" from "machine
	// slept without a captured sleep event" when a gap is closed.
	PauseSleepBoundary time.Duration
	// MergeTolerance is the largest gap between two adjacent states of the
	// same type that still lets them be coalesced.
	MergeTolerance time.Duration
	// Tiers, when set, replaces the flat PauseSleepBoundary with the tiered
	// gap classification.
	Tiers *GapTiers
}

// DefaultConfig returns the documented default policy.
func DefaultConfig() Config {
	return Config{
		RetentionDays:       10,
		InactivityThreshold: 60 * time.Second,
		MaxEvents:           10000,
		PauseSleepBoundary:  time.Hour,
		MergeTolerance:      60 * time.Second,
	}
}

// Validate rejects out-of-range values up front, before the algorithm runs.
func (c Config) Validate() error {
	if c.RetentionDays < 1 {
		return fmt.Errorf("retention_days must be >= 1, got %d", c.RetentionDays)
	}
	if c.InactivityThreshold < time.Second {
		return fmt.Errorf("inactivity_threshold must be >= 1s, got %s", c.InactivityThreshold)
	}
	if c.MaxEvents < 1 {
		return fmt.Errorf("max_events must be >= 1, got %d", c.MaxEvents)
	}
	if c.PauseSleepBoundary <= 0 {
		return fmt.Errorf("pause_sleep_boundary must be positive, got %s", c.PauseSleepBoundary)
	}
	if c.MergeTolerance < 0 {
		return fmt.Errorf("merge_tolerance must not be negative, got %s", c.MergeTolerance)
	}
	if c.Tiers != nil {
		if c.Tiers.SleepAfter <= 0 || c.Tiers.ShutdownAfter <= 0 {
			return fmt.Errorf("gap tiers must be positive, got sleep_after=%s shutdown_after=%s",
				c.Tiers.SleepAfter, c.Tiers.ShutdownAfter)
		}
		if c.Tiers.ShutdownAfter <= c.Tiers.SleepAfter {
			return fmt.Errorf("gap tier shutdown_after %s must exceed sleep_after %s",
				c.Tiers.ShutdownAfter, c.Tiers.SleepAfter)
		}
	}
	return nil
}

// classifyGap types a silent interval of the given length that ended with
// the display coming (back) on.
func (c Config) classifyGap(elapsed time.Duration) StateType {
	if c.Tiers != nil {
		switch {
		case elapsed > c.Tiers.ShutdownAfter:
			return StateShutdown
		case elapsed > c.Tiers.SleepAfter:
			return StateSleep
		default:
			return StatePause
		}
	}
	if elapsed >= c.PauseSleepBoundary {
		return StateSleep
	}
	return StatePause
}
