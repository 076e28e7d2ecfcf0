// Package tui renders the terminal dashboard and plain-text reports.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jholub/mactivity/internal/stats"
	"github.com/jholub/mactivity/internal/status"
	"github.com/jholub/mactivity/internal/timeline"
)

// RefreshFunc produces a fresh snapshot for the dashboard tick.
type RefreshFunc func() (status.Snapshot, error)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4A90E2")).
			Padding(0, 1).
			MarginBottom(1)

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	pauseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F7DC6F")).
			Bold(true)

	sleepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4A90E2")).
			Bold(true)

	shutdownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(1, 2).
			MarginBottom(1)
)

func styleFor(t timeline.StateType) lipgloss.Style {
	switch t {
	case timeline.StateActive:
		return activeStyle
	case timeline.StatePause:
		return pauseStyle
	case timeline.StateSleep, timeline.StateMaintenance:
		return sleepStyle
	case timeline.StateShutdown:
		return shutdownStyle
	default:
		return dimStyle
	}
}

type tickMsg time.Time

type dashboardModel struct {
	refresh  RefreshFunc
	interval time.Duration
	snap     status.Snapshot
	err      error
	width    int
	height   int
}

func newDashboard(refresh RefreshFunc, interval time.Duration) dashboardModel {
	return dashboardModel{refresh: refresh, interval: interval}
}

func (m dashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m dashboardModel) Init() tea.Cmd {
	return func() tea.Msg { return tickMsg(time.Now()) }
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		snap, err := m.refresh()
		m.err = err
		if err == nil {
			m.snap = snap
		}
		return m, m.tickCmd()
	}
	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	now := time.Now()
	header := headerStyle.Width(m.width).Render(
		fmt.Sprintf("mactivity - %s", now.Format("Jan 2, 2006 15:04:05")),
	)

	leftColWidth := m.width/2 - 3
	rightColWidth := m.width/2 - 3

	today := m.snap.Daily[stats.DateOf(now)]
	todayBox := boxStyle.Width(leftColWidth).Render(fmt.Sprintf(
		"TODAY\n\n"+
			"%s active   %s\n"+
			"%s pause    %s\n"+
			"%s sleep    %s",
		activeStyle.Render("●"), hoursString(today.ActiveHours),
		pauseStyle.Render("●"), hoursString(today.PauseHours),
		sleepStyle.Render("●"), hoursString(today.SleepHours),
	))

	sum := m.snap.Summary
	summaryBox := boxStyle.Width(leftColWidth).Render(fmt.Sprintf(
		"SUMMARY\n\n"+
			"Active:     %s\n"+
			"Efficiency: %.1f%%\n"+
			"Billable:   %.2f\n"+
			"Avg active: %.0f min",
		activeStyle.Render(hoursString(sum.ActiveHours)),
		sum.EfficiencyPercent,
		sum.Billable,
		sum.AvgActiveMinutes,
	))

	liveBox := boxStyle.Width(leftColWidth).Render(fmt.Sprintf(
		"LIVE STATUS\n\n%s",
		styleFor(m.snap.CurrentState).Render(strings.ToUpper(string(m.snap.CurrentState))),
	))

	timelineBox := m.timelineBox(rightColWidth, m.height-8)

	leftColumn := lipgloss.JoinVertical(lipgloss.Left, todayBox, summaryBox, liveBox)
	content := lipgloss.JoinHorizontal(lipgloss.Top, leftColumn, timelineBox)

	footerText := "Press 'q' or Ctrl+C to quit"
	if m.err != nil {
		footerText = fmt.Sprintf("refresh error: %v", m.err)
	}
	footer := dimStyle.Width(m.width).Render(footerText)

	fullContent := lipgloss.JoinVertical(lipgloss.Left, header, content, footer)

	contentHeight := lipgloss.Height(fullContent)
	if contentHeight < m.height {
		fullContent += strings.Repeat("\n", m.height-contentHeight-1)
	}
	return fullContent
}

// timelineBox renders the most recent states, newest last.
func (m dashboardModel) timelineBox(width, maxHeight int) string {
	rows := maxHeight - 6
	if rows < 3 {
		rows = 3
	}
	states := m.snap.States
	if len(states) > rows {
		states = states[len(states)-rows:]
	}

	var b strings.Builder
	b.WriteString("TIMELINE\n\n")
	if len(states) == 0 {
		b.WriteString(dimStyle.Render("no data yet"))
	}
	for _, s := range states {
		style := styleFor(s.Type)
		b.WriteString(fmt.Sprintf("%s-%s %s (%s)\n",
			s.Start.Local().Format("15:04"),
			s.End.Local().Format("15:04"),
			style.Render(string(s.Type)),
			durString(s.Duration()),
		))
	}
	return boxStyle.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

func hoursString(h float64) string {
	return durString(time.Duration(h * float64(time.Hour)))
}

func durString(d time.Duration) string {
	d = d.Truncate(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// RunDashboard blocks inside the TUI until the user quits.
func RunDashboard(refresh RefreshFunc, interval time.Duration) error {
	p := tea.NewProgram(newDashboard(refresh, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
