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

// pmset -g log timestamp formats, tried in order. The third form carries no
// year; the parser borrows it from the reference time.
var pmsetTimestamps = []struct {
	re     *regexp.Regexp
	layout string
	zoned  bool
	noYear bool
}{
	{regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} [+-]\d{4})`), "2006-01-02 15:04:05 -0700", true, false},
	{regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`), "2006-01-02 15:04:05", false, false},
	{regexp.MustCompile(`^(\w{3} \w{3}\s+\d{1,2} \d{2}:\d{2}:\d{2})`), "Mon Jan 2 15:04:05", false, true},
}

// Ordered classification table. Dark and maintenance wakes must come before
// plain wakes: "DarkWake from Normal Sleep" contains "Wake from Normal
// Sleep" as a substring.
var eventPatterns = []struct {
	typ timeline.EventType
	res []*regexp.Regexp
}{
	{timeline.EventDarkWake, compileAll(`DarkWake from`, `DarkWake to FullWake`)},
	{timeline.EventMaintenanceWake, compileAll(`Maintenance wake`, `Background wake`)},
	{timeline.EventWake, compileAll(`Wake from Normal Sleep`, `Wake from sleep`, `System Wake`)},
	{timeline.EventSleep, compileAll(`Entering Sleep`, `Going to sleep`, `System Sleep`)},
	{timeline.EventDisplayOn, compileAll(`Display is turned on`, `Display woke`, `Display on`)},
	{timeline.EventDisplayOff, compileAll(`Display is turned off`, `Display sleep`, `Display off`)},
	{timeline.EventLidOpen, compileAll(`LidOpen`, `Lid opened`)},
	{timeline.EventLidClose, compileAll(`LidClose`, `Lid closed`)},
	{timeline.EventPowerButton, compileAll(`PowerButton`, `Power button`)},
	{timeline.EventShutdown, compileAll(`Shutdown`, `System shutdown`)},
	{timeline.EventAssertionCreate, compileAll(`Assertion created:`, `Created assertion`)},
	{timeline.EventAssertionRelease, compileAll(`Assertion released:`, `Released assertion`)},
}

var (
	wakeReasonRe = regexp.MustCompile(`due to ([A-Za-z0-9._/ -]+?)(?:\s+Using|$)`)
	sleepKindRe  = regexp.MustCompile(`Entering Sleep state due to '([^']+)'`)
	assertionRe  = regexp.MustCompile(`pid (\d+)\(([^)]+)\)`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return res
}

// PmsetSource reads the power management log via pmset -g log.
type PmsetSource struct {
	run CommandRunner
	loc *time.Location
}

// NewPmsetSource builds a pmset source parsing timestamps in loc (nil means
// time.Local).
func NewPmsetSource(run CommandRunner, loc *time.Location) *PmsetSource {
	if loc == nil {
		loc = time.Local
	}
	return &PmsetSource{run: run, loc: loc}
}

func (s *PmsetSource) Name() string { return "pmset" }

func (s *PmsetSource) Collect(ctx context.Context, since, now time.Time) ([]timeline.Event, error) {
	out, err := s.run.Run(ctx, pmsetPath, "-g", "log")
	if err != nil {
		return nil, fmt.Errorf("pmset -g log: %w", err)
	}
	return ParsePmsetLog(string(out), since, now, s.loc), nil
}

// ParsePmsetLog turns pmset -g log text into typed events. Lines without a
// recognizable timestamp or event pattern are skipped; events outside
// [since, now] are dropped. Parsing one bad line never aborts the rest.
func ParsePmsetLog(text string, since, now time.Time, loc *time.Location) []timeline.Event {
	var events []timeline.Event

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ts, rest, ok := extractTimestamp(line, now, loc)
		if !ok {
			continue
		}
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

func extractTimestamp(line string, now time.Time, loc *time.Location) (time.Time, string, bool) {
	for _, f := range pmsetTimestamps {
		m := f.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		var ts time.Time
		var err error
		if f.zoned {
			ts, err = time.Parse(f.layout, m[1])
		} else {
			ts, err = time.ParseInLocation(f.layout, m[1], loc)
		}
		if err != nil {
			continue
		}
		if f.noYear {
			ts = ts.AddDate(now.Year(), 0, 0)
			if ts.After(now) {
				ts = ts.AddDate(-1, 0, 0)
			}
		}
		return ts, strings.TrimSpace(line[len(m[0]):]), true
	}
	return time.Time{}, "", false
}

func classifyLine(rest string) timeline.EventType {
	for _, p := range eventPatterns {
		for _, re := range p.res {
			if re.MatchString(rest) {
				return p.typ
			}
		}
	}
	return timeline.EventUnknown
}

func describe(typ timeline.EventType, rest string) string {
	if len(rest) > 120 {
		rest = rest[:120]
	}
	return fmt.Sprintf("%s: %s", typ, rest)
}

func extractDetails(typ timeline.EventType, rest string) map[string]string {
	details := make(map[string]string)
	switch typ {
	case timeline.EventWake, timeline.EventDarkWake, timeline.EventMaintenanceWake:
		if m := wakeReasonRe.FindStringSubmatch(rest); m != nil {
			details["wake_reason"] = strings.TrimSpace(m[1])
		}
	case timeline.EventSleep:
		if m := sleepKindRe.FindStringSubmatch(rest); m != nil {
			details["sleep_reason"] = m[1]
		}
	case timeline.EventAssertionCreate, timeline.EventAssertionRelease:
		if m := assertionRe.FindStringSubmatch(rest); m != nil {
			details["pid"] = m[1]
			details["process"] = m[2]
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}
