package web

import (
	"encoding/json"
	"time"

	"github.com/jholub/mactivity/internal/status"
)

// TimelineJSON is the JSON representation of the reconstructed partition.
type TimelineJSON struct {
	GeneratedAt string      `json:"generated_at"`
	Current     string      `json:"current_state"`
	States      []StateJSON `json:"states"`
}

// StateJSON is one timeline interval.
type StateJSON struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Type  string  `json:"type"`
	Hours float64 `json:"hours"`
}

func formatTimeline(snap status.Snapshot) []byte {
	tj := TimelineJSON{
		GeneratedAt: snap.Now.UTC().Format(time.RFC3339),
		Current:     string(snap.CurrentState),
		States:      make([]StateJSON, 0, len(snap.States)),
	}
	for _, s := range snap.States {
		tj.States = append(tj.States, StateJSON{
			Start: s.Start.UTC().Format(time.RFC3339),
			End:   s.End.UTC().Format(time.RFC3339),
			Type:  string(s.Type),
			Hours: s.Hours(),
		})
	}

	data, _ := json.MarshalIndent(tj, "", "  ")
	return data
}
