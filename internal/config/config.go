// Package config loads and saves the JSON configuration file. The file is
// optional; a missing file yields the defaults, and saves are atomic
// (write to a temp file, then rename).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jholub/mactivity/internal/timeline"
)

// File is the on-disk configuration. Durations are stored as whole seconds
// so the file stays hand-editable. Unknown fields are ignored on load.
type File struct {
	RetentionDays           int      `json:"retention_days"`
	InactivityThresholdSecs int      `json:"inactivity_threshold_seconds"`
	MaxEvents               int      `json:"max_events"`
	PauseSleepBoundarySecs  int      `json:"pause_sleep_boundary_seconds"`
	MergeToleranceSecs      int      `json:"merge_tolerance_seconds"`
	GapSleepAfterSecs       int      `json:"gap_sleep_after_seconds,omitempty"`
	GapShutdownAfterSecs    int      `json:"gap_shutdown_after_seconds,omitempty"`
	HourlyRate              float64  `json:"hourly_rate"`
	RefreshSecs             int      `json:"refresh_seconds"`
	HTTPAddr                string   `json:"http_addr"`
	MQTTBroker              string   `json:"mqtt_broker"`
	Sources                 []string `json:"sources"`
}

// knownSources is the set of names accepted in the sources list.
var knownSources = map[string]struct{}{
	"pmset":    {},
	"last":     {},
	"log":      {},
	"ioreg":    {},
	"boottime": {},
}

// Default returns the configuration used when no file exists.
func Default() File {
	tc := timeline.DefaultConfig()
	return File{
		RetentionDays:           tc.RetentionDays,
		InactivityThresholdSecs: int(tc.InactivityThreshold / time.Second),
		MaxEvents:               tc.MaxEvents,
		PauseSleepBoundarySecs:  int(tc.PauseSleepBoundary / time.Second),
		MergeToleranceSecs:      int(tc.MergeTolerance / time.Second),
		HourlyRate:              0,
		RefreshSecs:             30,
		HTTPAddr:                ":8920",
		MQTTBroker:              "",
		Sources:                 []string{"pmset", "last", "ioreg", "boottime"},
	}
}

// DefaultPath is the config location used when -config is not given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mactivity.json"
	}
	return filepath.Join(home, ".config", "mactivity", "config.json")
}

// Load reads the file at path. A missing file is not an error: the defaults
// are returned. A present but malformed or invalid file is an error, so a
// typo never silently reverts the daemon to defaults.
func Load(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return File{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	c := Default()
	if err := json.NewDecoder(f).Decode(&c); err != nil {
		return File{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return File{}, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Save writes the config atomically: encode to path.tmp, then rename over
// path. The parent directory is created if needed.
func Save(path string, c File) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Validate rejects out-of-range values with errors that name the JSON field.
func (c File) Validate() error {
	if c.HourlyRate < 0 {
		return fmt.Errorf("hourly_rate must not be negative, got %g", c.HourlyRate)
	}
	if c.RefreshSecs < 1 {
		return fmt.Errorf("refresh_seconds must be >= 1, got %d", c.RefreshSecs)
	}
	if (c.GapSleepAfterSecs == 0) != (c.GapShutdownAfterSecs == 0) {
		return errors.New("gap_sleep_after_seconds and gap_shutdown_after_seconds must be set together")
	}
	for _, s := range c.Sources {
		if _, ok := knownSources[s]; !ok {
			return fmt.Errorf("unknown source %q in sources", s)
		}
	}
	return c.Timeline().Validate()
}

// Timeline converts the file values into the reconstructor's config.
func (c File) Timeline() timeline.Config {
	tc := timeline.Config{
		RetentionDays:       c.RetentionDays,
		InactivityThreshold: time.Duration(c.InactivityThresholdSecs) * time.Second,
		MaxEvents:           c.MaxEvents,
		PauseSleepBoundary:  time.Duration(c.PauseSleepBoundarySecs) * time.Second,
		MergeTolerance:      time.Duration(c.MergeToleranceSecs) * time.Second,
	}
	if c.GapSleepAfterSecs > 0 && c.GapShutdownAfterSecs > 0 {
		tc.Tiers = &timeline.GapTiers{
			SleepAfter:    time.Duration(c.GapSleepAfterSecs) * time.Second,
			ShutdownAfter: time.Duration(c.GapShutdownAfterSecs) * time.Second,
		}
	}
	return tc
}

// Refresh returns the daemon refresh interval.
func (c File) Refresh() time.Duration {
	return time.Duration(c.RefreshSecs) * time.Second
}
