package power

import (
	"context"
	"time"

	"github.com/jholub/mactivity/internal/timeline"
)

// FakeSource returns scripted events for tests.
type FakeSource struct {
	// SourceName is returned by Name; defaults to "fake".
	SourceName string

	// Events are returned by Collect as-is.
	Events []timeline.Event

	// Err, if set, is returned by Collect.
	Err error

	// Calls counts Collect invocations.
	Calls int
}

func (f *FakeSource) Name() string {
	if f.SourceName == "" {
		return "fake"
	}
	return f.SourceName
}

func (f *FakeSource) Collect(ctx context.Context, since, now time.Time) ([]timeline.Event, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Events, nil
}

// FakeRunner scripts command output for tests without executing anything.
type FakeRunner struct {
	// Output is returned by Run.
	Output []byte

	// Err, if set, is returned by Run.
	Err error

	// Calls records each invocation as name followed by its args.
	Calls [][]string
}

func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.Calls = append(f.Calls, append([]string{name}, args...))
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Output, nil
}
