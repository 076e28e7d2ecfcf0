// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jholub/mactivity/internal/timeline"
)

// TopicTransitions is the MQTT topic for state transition events.
const TopicTransitions = "mactivity/state/transitions"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "mactivity/system"

// Transition is a change of the current timeline state observed between two
// refreshes.
type Transition struct {
	Timestamp time.Time
	State     timeline.StateType
	Previous  timeline.StateType
	// Since is when the current state began, per the reconstruction.
	Since time.Time
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishTransition sends a state transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishTransition(t Transition) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// TransitionPayload represents the MQTT message payload structure.
type TransitionPayload struct {
	Activity TransitionInner `json:"activity"`
}

// TransitionInner contains the transition details.
type TransitionInner struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	State     string `json:"state"`
	Previous  string `json:"previous,omitempty"`
	Since     string `json:"since"`
}

// FormatTransitionPayload creates the JSON payload for a state transition.
// Each payload carries a fresh UUID so consumers can deduplicate replays.
func FormatTransitionPayload(t Transition) ([]byte, error) {
	payload := TransitionPayload{
		Activity: TransitionInner{
			ID:        uuid.NewString(),
			Timestamp: t.Timestamp.UTC().Format(time.RFC3339),
			State:     string(t.State),
			Previous:  string(t.Previous),
			Since:     t.Since.UTC().Format(time.RFC3339),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
