package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/betweencoffee/baristaboard/internal/toast"
)

// renderToasts stacks the visible notifications, newest first, within
// width by height cells. Notifications that do not fit are summarized.
func (m Model) renderToasts(width, height int) string {
	if len(m.toasts) == 0 || width < 8 || height < 3 {
		return ""
	}
	boxes := make([]string, 0, len(m.toasts))
	used := 0
	for i := len(m.toasts) - 1; i >= 0; i-- {
		box := m.renderToast(m.toasts[i], width)
		h := lipgloss.Height(box)
		if used+h > height {
			rest := i + 1
			more := m.theme.Styles().FaintText.Render(fmt.Sprintf(" +%d more", rest))
			if used+1 <= height {
				boxes = append(boxes, more)
			}
			break
		}
		boxes = append(boxes, box)
		used += h
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(boxes, "\n"))
}

// renderToast renders one notification in a box colored by severity.
func (m Model) renderToast(t toast.Toast, width int) string {
	color := lipgloss.Color(m.theme.SeverityColor(t.Severity))
	inner := width - 4

	title := t.Title
	if t.Repeats > 1 {
		title = fmt.Sprintf("%s (×%d)", title, t.Repeats)
	}
	lines := []string{lipgloss.NewStyle().Bold(true).Foreground(color).Render(title)}
	if t.Message != "" {
		lines = append(lines, wrapLines(t.Message, inner, MaxToastLines)...)
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Foreground(lipgloss.Color(m.theme.Text)).
		Padding(0, 1).
		Width(width - 2).
		Render(strings.Join(lines, "\n"))
}

// wrapLines word-wraps s to width and keeps at most limit lines, marking
// the cut with an ellipsis.
func wrapLines(s string, width, limit int) []string {
	if width < 1 {
		width = 1
	}
	lines := strings.Split(wordwrap.String(s, width), "\n")
	if limit > 0 && len(lines) > limit {
		lines = lines[:limit]
		lines[limit-1] = strings.TrimRight(lines[limit-1], " ") + "…"
	}
	return lines
}
