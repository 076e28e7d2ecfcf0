package timeline

import (
	"sort"
	"time"
)

// Admit decides which raw events the reconstructor is allowed to see.
// Unknown-typed events and events older than the retention window are
// dropped. Survivors are sorted ascending by timestamp with a stable sort,
// because same-timestamp events are legal and their relative order must be
// kept. If more than MaxEvents survive, only the most recent MaxEvents are
// retained; that cap is a lossy memory bound.
func Admit(events []Event, cfg Config, now time.Time) []Event {
	cutoff := now.AddDate(0, 0, -cfg.RetentionDays)

	kept := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Type == EventUnknown {
			continue
		}
		if e.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Timestamp.Before(kept[j].Timestamp)
	})

	if len(kept) > cfg.MaxEvents {
		kept = kept[len(kept)-cfg.MaxEvents:]
	}
	return kept
}
