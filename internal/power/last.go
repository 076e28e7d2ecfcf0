package power

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jholub/mactivity/internal/timeline"
)

// LastSource reads boot and shutdown records from the last command, which
// survives restarts of the power management log.
type LastSource struct {
	run CommandRunner
	loc *time.Location
}

func NewLastSource(run CommandRunner, loc *time.Location) *LastSource {
	if loc == nil {
		loc = time.Local
	}
	return &LastSource{run: run, loc: loc}
}

func (s *LastSource) Name() string { return "last" }

func (s *LastSource) Collect(ctx context.Context, since, now time.Time) ([]timeline.Event, error) {
	var all []timeline.Event
	for _, kind := range []string{"reboot", "shutdown"} {
		out, err := s.run.Run(ctx, lastPath, kind)
		if err != nil {
			return nil, fmt.Errorf("last %s: %w", kind, err)
		}
		all = append(all, ParseLastOutput(string(out), since, now, s.loc)...)
	}
	return all, nil
}

// ParseLastOutput parses last reboot / last shutdown lines of the form
//
//	reboot    ~                         Mon Aug 24 09:14
//	shutdown  ~                         Sun Aug 23 23:02
//
// The record carries no year; it is borrowed from now, rolling back one
// year when that would place the record in the future.
func ParseLastOutput(text string, since, now time.Time, loc *time.Location) []timeline.Event {
	var events []timeline.Event

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		var typ timeline.EventType
		switch fields[0] {
		case "reboot":
			typ = timeline.EventBoot
		case "shutdown":
			typ = timeline.EventShutdown
		default:
			continue
		}

		// The timestamp is the last four fields: "Mon Aug 24 09:14".
		stamp := strings.Join(fields[len(fields)-4:], " ")
		ts, err := time.ParseInLocation("Mon Jan 2 15:04", stamp, loc)
		if err != nil {
			continue
		}
		ts = ts.AddDate(now.Year(), 0, 0)
		if ts.After(now) {
			ts = ts.AddDate(-1, 0, 0)
		}
		if ts.Before(since) {
			continue
		}

		e, err := timeline.NewEvent(ts, typ, fmt.Sprintf("%s (last)", typ), nil, now)
		if err != nil {
			continue
		}
		events = append(events, e)
	}
	return events
}
