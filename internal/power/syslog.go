package power

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jholub/mactivity/internal/timeline"
)

// compact-style unified log timestamp, with or without a zone offset:
// "2026-08-24 09:15:03.123456+0200" or "2026-08-24 09:15:03.123".
var unifiedStampRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\.\d+([+-]\d{4})?`)

// UnifiedLogSource queries the unified log for powerd events. It overlaps
// with pmset on purpose: the reconstructor tolerates duplicates, and the
// unified log keeps display events pmset sometimes drops.
type UnifiedLogSource struct {
	run CommandRunner
	loc *time.Location
}

func NewUnifiedLogSource(run CommandRunner, loc *time.Location) *UnifiedLogSource {
	if loc == nil {
		loc = time.Local
	}
	return &UnifiedLogSource{run: run, loc: loc}
}

func (s *UnifiedLogSource) Name() string { return "log" }

func (s *UnifiedLogSource) Collect(ctx context.Context, since, now time.Time) ([]timeline.Event, error) {
	window := now.Sub(since)
	if window <= 0 {
		return nil, nil
	}
	out, err := s.run.Run(ctx, logPath, "show",
		"--predicate", `subsystem == "com.apple.powerd"`,
		"--style", "compact",
		"--last", fmt.Sprintf("%dm", int(window.Minutes())+1),
	)
	if err != nil {
		return nil, fmt.Errorf("log show: %w", err)
	}
	return ParseUnifiedLog(string(out), since, now, s.loc), nil
}

// ParseUnifiedLog classifies compact-style unified log lines with the same
// pattern table as the pmset parser.
func ParseUnifiedLog(text string, since, now time.Time, loc *time.Location) []timeline.Event {
	var events []timeline.Event

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		m := unifiedStampRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		var ts time.Time
		var err error
		if m[2] != "" {
			ts, err = time.Parse("2006-01-02 15:04:05 -0700", m[1]+" "+m[2])
		} else {
			ts, err = time.ParseInLocation("2006-01-02 15:04:05", m[1], loc)
		}
		if err != nil {
			continue
		}

		rest := strings.TrimSpace(line[len(m[0]):])
		typ := classifyLine(rest)
		if typ == timeline.EventUnknown {
			continue
		}
		if ts.Before(since) {
			continue
		}
		e, err := timeline.NewEvent(ts, typ, describe(typ, rest), extractDetails(typ, rest), now)
		if err != nil {
			continue
		}
		events = append(events, e)
	}
	return events
}
