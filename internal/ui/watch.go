package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/wifiprov/internal/notify"
	"github.com/muurk/wifiprov/internal/supervisor"
)

// HistorySize is how many transitions the watch view keeps on screen
const HistorySize = 10

type eventMsg notify.Event

type streamClosedMsg struct{}

// WatchModel is a Bubble Tea model that follows a device's status stream.
type WatchModel struct {
	events     <-chan notify.Event
	status     supervisor.Status
	received   bool
	history    []notify.Event
	maxRetries int
	closed     bool
	width      int

	spinner spinner.Model
	retries progress.Model
	now     func() time.Time
}

// NewWatchModel creates a model reading from events. maxRetries scales
// the reconnect bar; it is the device's reconnect_attempts setting.
func NewWatchModel(events <-chan notify.Event, maxRetries int) WatchModel {
	if maxRetries <= 0 {
		maxRetries = supervisor.ReconnectAttempts
	}
	return WatchModel{
		events:     events,
		maxRetries: maxRetries,
		width:      GetTerminalWidth(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		retries:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		now:        time.Now,
	}
}

// waitForEvent reads the next event off the stream
func waitForEvent(ch <-chan notify.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width, nil)

	case eventMsg:
		ev := notify.Event(msg)
		m.status = ev.Status
		m.received = true
		if ev.From != "" {
			m.history = append(m.history, ev)
			if len(m.history) > HistorySize {
				m.history = m.history[len(m.history)-HistorySize:]
			}
		}
		return m, waitForEvent(m.events)

	case streamClosedMsg:
		m.closed = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Status returns the latest status received
func (m WatchModel) Status() supervisor.Status {
	return m.status
}

// Closed reports whether the stream ended
func (m WatchModel) Closed() bool {
	return m.closed
}

// View implements tea.Model
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(HeaderTitleStyle.Render("WIFIPROV WATCH"))
	b.WriteString("\n\n")

	if !m.received {
		b.WriteString("  " + m.spinner.View() + " waiting for device status...\n")
		return b.String()
	}

	b.WriteString(indent(RenderStatus(m.status, m.now()), "  "))
	b.WriteString("\n")

	switch m.status.State {
	case supervisor.AttemptingSaved:
		b.WriteString("\n  " + m.spinner.View() + " associating with " + m.status.Attempting + "\n")
	case supervisor.Recovering:
		pct := float64(m.status.RetryCount) / float64(m.maxRetries)
		if pct > 1 {
			pct = 1
		}
		b.WriteString(fmt.Sprintf("\n  %s  %d/%d reconnect cycles\n", m.retries.ViewAs(pct), m.status.RetryCount, m.maxRetries))
	case supervisor.PortalActive:
		b.WriteString("\n  " + MutedStyle.Render("Join the setup network and open any web page to configure.") + "\n")
	}

	if len(m.history) > 0 {
		b.WriteString("\n" + TroubleshootingTitleStyle.Render("  History") + "\n")
		for i := len(m.history) - 1; i >= 0; i-- {
			ev := m.history[i]
			b.WriteString(fmt.Sprintf("  %s  %s %s %s\n",
				MutedStyle.Render(ev.At.Format("15:04:05")), ev.From, ArrowMarker, ev.To))
		}
	}

	b.WriteString("\n" + MutedStyle.Render("  q to quit") + "\n")
	return b.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// RunWatch runs the watch view until the user quits or the stream closes.
func RunWatch(events <-chan notify.Event, maxRetries int) (WatchModel, error) {
	final, err := tea.NewProgram(NewWatchModel(events, maxRetries)).Run()
	if err != nil {
		return WatchModel{}, err
	}
	return final.(WatchModel), nil
}
