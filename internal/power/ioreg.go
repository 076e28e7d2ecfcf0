package power

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jholub/mactivity/internal/timeline"
)

// HIDIdleTime is nanoseconds since the last HID input.
var hidIdleRe = regexp.MustCompile(`"HIDIdleTime"\s*=\s*([0-9]+)`)

// IdleSource turns the HID idle counter into a synthetic display_on event
// at now minus idle: proof that the user last touched the machine then. The
// reconstructor treats it like any other activity refresh.
type IdleSource struct {
	run CommandRunner
}

func NewIdleSource(run CommandRunner) *IdleSource {
	return &IdleSource{run: run}
}

func (s *IdleSource) Name() string { return "ioreg" }

func (s *IdleSource) Collect(ctx context.Context, since, now time.Time) ([]timeline.Event, error) {
	out, err := s.run.Run(ctx, ioregPath, "-c", "IOHIDSystem")
	if err != nil {
		return nil, fmt.Errorf("ioreg -c IOHIDSystem: %w", err)
	}
	idle, err := ParseHIDIdle(string(out))
	if err != nil {
		return nil, err
	}

	lastInput := now.Add(-idle)
	if lastInput.Before(since) {
		return nil, nil
	}
	e, err := timeline.NewEvent(lastInput, timeline.EventDisplayOn, "HID input", nil, now)
	if err != nil {
		return nil, err
	}
	return []timeline.Event{e}, nil
}

// ParseHIDIdle extracts the idle duration from ioreg -c IOHIDSystem output.
func ParseHIDIdle(text string) (time.Duration, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "HIDIdleTime") {
			continue
		}
		m := hidIdleRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ns, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse HIDIdleTime %q: %w", m[1], err)
		}
		return time.Duration(ns), nil
	}
	return 0, fmt.Errorf("HIDIdleTime not found")
}
