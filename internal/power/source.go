// Package power collects raw power, display, and boot events from macOS.
// All shelling out and text parsing lives here; the reconstruction core in
// internal/timeline never sees raw command output.
package power

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jholub/mactivity/internal/timeline"
)

// Source produces typed events for the window [since, now].
type Source interface {
	// Name identifies the source in logs and health output.
	Name() string

	// Collect gathers events. The returned slice carries no ordering
	// guarantee; admission sorts the combined set.
	Collect(ctx context.Context, since, now time.Time) ([]timeline.Event, error)
}

// Composite fans a collection sweep out over every source concurrently and
// merges the results. A failing source is reported in the returned error
// map and skipped; events from the healthy sources are still returned, so
// one broken command never kills a refresh.
type Composite struct {
	Sources []Source
}

// Collect runs all sources and merges their events. The error map is keyed
// by source name and is empty when every source succeeded.
func (c *Composite) Collect(ctx context.Context, since, now time.Time) ([]timeline.Event, map[string]error) {
	results := make([][]timeline.Event, len(c.Sources))
	errs := make([]error, len(c.Sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range c.Sources {
		i, src := i, src
		g.Go(func() error {
			events, err := src.Collect(gctx, since, now)
			results[i] = events
			errs[i] = err
			return nil
		})
	}
	// The closures never return an error; Wait only joins them.
	_ = g.Wait()

	var all []timeline.Event
	failed := make(map[string]error)
	for i, src := range c.Sources {
		if errs[i] != nil {
			log.Printf("power: source %s failed: %v", src.Name(), errs[i])
			failed[src.Name()] = errs[i]
			continue
		}
		all = append(all, results[i]...)
	}
	return all, failed
}
