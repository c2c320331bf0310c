package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/wifiprov/internal/supervisor"
)

// RenderNetworks lists saved SSIDs by priority, showing free slots up to capacity.
func RenderNetworks(ssids []string, capacity, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	if capacity < len(ssids) {
		capacity = len(ssids)
	}

	lines := make([]string, 0, capacity+2)
	for i := 0; i < capacity; i++ {
		slot := SlotStyle.Render(fmt.Sprintf("%d.", i+1))
		if i < len(ssids) {
			lines = append(lines, slot+ResultValueStyle.Render(ssids[i]))
		} else {
			lines = append(lines, slot+MutedStyle.Italic(true).Render("(empty)"))
		}
	}
	lines = append(lines, "", MutedStyle.Render(fmt.Sprintf("%d of %d slots used. Slot 1 is tried first.", len(ssids), capacity)))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(width-4).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

// RenderStatus renders one supervisor snapshot.
func RenderStatus(st supervisor.Status, now time.Time) string {
	lines := []string{
		ResultKeyStyle.Render("State:") + " " + StateBadge(st.State),
	}
	if !st.Since.IsZero() {
		lines = append(lines, ResultKeyStyle.Render("Since:")+" "+
			ResultValueStyle.Render(st.Since.Format("15:04:05"))+" "+
			MutedStyle.Render("("+now.Sub(st.Since).Truncate(time.Second).String()+" ago)"))
	}
	if st.SSID != "" {
		lines = append(lines, ResultKeyStyle.Render("Network:")+" "+ResultValueStyle.Render(st.SSID))
	}
	if st.Attempting != "" {
		lines = append(lines, ResultKeyStyle.Render("Trying:")+" "+ResultValueStyle.Render(st.Attempting))
	}
	if st.State == supervisor.Recovering || st.RetryCount > 0 {
		lines = append(lines, ResultKeyStyle.Render("Retries:")+" "+ResultValueStyle.Render(fmt.Sprintf("%d", st.RetryCount)))
	}
	if st.Session != nil {
		lines = append(lines, ResultKeyStyle.Render("Portal:")+" "+
			ResultValueStyle.Render(st.Session.ID)+" "+
			MutedStyle.Render("opened "+st.Session.StartedAt.Format("15:04:05")))
	}
	if st.LastError != "" {
		lines = append(lines, ResultKeyStyle.Render("Last error:")+" "+ErrorMessageStyle.Render(st.LastError))
	}
	return strings.Join(lines, "\n")
}
