// Package timeline contains the pure core of mactivity: the event and state
// data model, the admission filter, and the state reconstruction algorithm.
// This package has NO external dependencies and performs no I/O. Time is
// always injectable via time.Time parameters so reconstruction is
// deterministic and reproducible.
package timeline

import (
	"fmt"
	"time"
)

// EventType classifies a raw system event.
type EventType string

const (
	EventWake             EventType = "wake"
	EventDarkWake         EventType = "dark_wake"
	EventMaintenanceWake  EventType = "maintenance_wake"
	EventSleep            EventType = "sleep"
	EventBoot             EventType = "boot"
	EventReboot           EventType = "reboot"
	EventShutdown         EventType = "shutdown"
	EventDisplayOn        EventType = "display_on"
	EventDisplayOff       EventType = "display_off"
	EventLidOpen          EventType = "lid_open"
	EventLidClose         EventType = "lid_close"
	EventPowerButton      EventType = "power_button"
	EventAssertionCreate  EventType = "assertion_create"
	EventAssertionRelease EventType = "assertion_release"
	EventUnknown          EventType = "unknown"
)

// Category groups event types by origin.
type Category string

const (
	CategoryPower   Category = "power"
	CategoryDisplay Category = "display"
	CategorySystem  Category = "system"
	CategoryApp     Category = "app"
	CategoryUnknown Category = "unknown"
)

// CategoryOf returns the category an event type belongs to.
func CategoryOf(t EventType) Category {
	switch t {
	case EventWake, EventDarkWake, EventMaintenanceWake, EventSleep:
		return CategoryPower
	case EventDisplayOn, EventDisplayOff:
		return CategoryDisplay
	case EventBoot, EventReboot, EventShutdown, EventLidOpen, EventLidClose, EventPowerButton:
		return CategorySystem
	case EventAssertionCreate, EventAssertionRelease:
		return CategoryApp
	default:
		return CategoryUnknown
	}
}

// Event is a single timestamped system event. Events are immutable once
// created. Duplicate timestamps and types are legal input; uniqueness is
// never assumed.
type Event struct {
	Timestamp   time.Time
	Type        EventType
	Category    Category
	Description string
	Details     map[string]string
}

// NewEvent validates and constructs an Event. An event stamped after now is
// rejected outright: it is clock skew or a garbage parse, not a real event.
func NewEvent(ts time.Time, typ EventType, description string, details map[string]string, now time.Time) (Event, error) {
	e := Event{
		Timestamp:   ts,
		Type:        typ,
		Category:    CategoryOf(typ),
		Description: description,
		Details:     details,
	}
	if err := e.Validate(now); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Validate checks the event against the given reference time.
func (e Event) Validate(now time.Time) error {
	if e.Timestamp.IsZero() {
		return fmt.Errorf("event %s has zero timestamp", e.Type)
	}
	if e.Timestamp.After(now) {
		return fmt.Errorf("event %s at %s is in the future (now %s)",
			e.Type, e.Timestamp.Format(time.RFC3339), now.Format(time.RFC3339))
	}
	return nil
}
