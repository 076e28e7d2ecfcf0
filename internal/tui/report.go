package tui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jholub/mactivity/internal/stats"
)

// WriteReport prints the per-day table and overall summary as plain text.
// The output is stable across runs for the same input.
func WriteReport(w io.Writer, daily map[stats.Date]stats.Daily, sum stats.Summary) {
	rule := strings.Repeat("-", 66)

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-12s | %8s | %8s | %8s | %8s | %6s\n",
		"Date", "Active", "Pause", "Sleep", "Shutdown", "Events")
	fmt.Fprintln(w, rule)

	for _, d := range stats.Dates(daily) {
		day := daily[d]
		fmt.Fprintf(w, "%-12s | %8.2f | %8.2f | %8.2f | %8.2f | %6d\n",
			d, day.ActiveHours, day.PauseHours, day.SleepHours, day.ShutdownHours, day.EventCount)
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total active   : %.2f h\n", sum.ActiveHours)
	fmt.Fprintf(w, "Total pause    : %.2f h\n", sum.PauseHours)
	fmt.Fprintf(w, "Total sleep    : %.2f h\n", sum.SleepHours)
	fmt.Fprintf(w, "Efficiency     : %.1f %%\n", sum.EfficiencyPercent)
	fmt.Fprintf(w, "Avg active     : %.0f min\n", sum.AvgActiveMinutes)
	fmt.Fprintf(w, "Avg pause      : %.0f min\n", sum.AvgPauseMinutes)
	if sum.Billable > 0 {
		fmt.Fprintf(w, "Billable       : %.2f\n", sum.Billable)
	}
}

// WriteWakeReasons prints the wake reason and per-app assertion counts.
func WriteWakeReasons(w io.Writer, reasons, apps map[string]int) {
	if len(reasons) > 0 {
		fmt.Fprintln(w, "Wake reasons:")
		for _, k := range sortedKeys(reasons) {
			fmt.Fprintf(w, "  %-40s %d\n", k, reasons[k])
		}
	}
	if len(apps) > 0 {
		fmt.Fprintln(w, "App assertions:")
		for _, k := range sortedKeys(apps) {
			fmt.Fprintf(w, "  %-40s %d\n", k, apps[k])
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
